package service_test

import (
	"context"
	"testing"

	"github.com/ndewijer/portfolio-analytics/internal/api/request"
	"github.com/ndewijer/portfolio-analytics/internal/testutil"
	"github.com/shopspring/decimal"
)

// TestMarketDataService_UpsertExchangeRate tests rate storage.
//
// WHY: Collaborators resend corrected rates for the same day. The later value
// must replace the earlier one instead of adding a second row.
func TestMarketDataService_UpsertExchangeRate(t *testing.T) {
	// Setup
	db := testutil.SetupTestDB(t)
	svc := testutil.NewTestMarketDataService(t, db)
	ctx := context.Background()
	req := request.UpsertExchangeRateRequest{
		Date: "2024-03-01", FromCurrency: "usd", ToCurrency: "kwd", Rate: decimal.RequireFromString("0.3071"),
	}

	// Execute
	if _, err := svc.UpsertExchangeRate(ctx, req); err != nil {
		t.Fatalf("first UpsertExchangeRate() error: %v", err)
	}
	req.Rate = decimal.RequireFromString("0.3075")
	if _, err := svc.UpsertExchangeRate(ctx, req); err != nil {
		t.Fatalf("second UpsertExchangeRate() error: %v", err)
	}

	// Assert
	got, err := svc.GetExchangeRate("USD", "KWD", testutil.Day(2024, 3, 1))
	if err != nil {
		t.Fatalf("GetExchangeRate() returned unexpected error: %v", err)
	}
	if got.Rate.String() != "0.3075" {
		t.Errorf("Expected corrected rate 0.3075, got %s", got.Rate)
	}

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM fx_rate`).Scan(&count); err != nil {
		t.Fatalf("count query failed: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected 1 stored rate, got %d", count)
	}
}

// TestMarketDataService_UpsertPrice tests price storage and normalization.
func TestMarketDataService_UpsertPrice(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := testutil.NewTestMarketDataService(t, db)

	p, err := svc.UpsertPrice(context.Background(), request.UpsertPriceRequest{
		Symbol: "msft", Date: "2024-03-01", Price: decimal.RequireFromString("415.5"), Currency: "usd",
	})
	if err != nil {
		t.Fatalf("UpsertPrice() returned unexpected error: %v", err)
	}
	if p.Symbol != "MSFT" || p.Currency != "USD" || p.ID == "" {
		t.Errorf("Expected normalized price with an id, got %+v", p)
	}
}
