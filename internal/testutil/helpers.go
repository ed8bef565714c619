package testutil

import (
	"database/sql"
	"io"
	"math/rand"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/ndewijer/portfolio-analytics/internal/repository"
	"github.com/ndewijer/portfolio-analytics/internal/service"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// TestSettings are the valuation settings used by the service constructors:
// KWD base, no fallback rates, seven day price staleness.
func TestSettings() service.ValuationSettings {
	return service.ValuationSettings{
		BaseCurrency:  "KWD",
		MaxPriceAge:   7 * 24 * time.Hour,
		FallbackRates: map[string]decimal.Decimal{},
	}
}

// TestLogger returns a logger that discards everything.
func TestLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

func NewTestTransactionService(t *testing.T, db *sql.DB) *service.TransactionService {
	t.Helper()

	return service.NewTransactionService(repository.NewTransactionRepository(db))
}

func NewTestDataLoaderService(t *testing.T, db *sql.DB) *service.DataLoaderService {
	t.Helper()

	return service.NewDataLoaderService(
		repository.NewTransactionRepository(db),
		repository.NewCashRepository(db),
		repository.NewMarketRepository(db),
		TestLogger(),
	)
}

func NewTestValuationService(t *testing.T, db *sql.DB, settings service.ValuationSettings) *service.ValuationService {
	t.Helper()

	return service.NewValuationService(
		db,
		repository.NewSnapshotRepository(db),
		repository.NewTransactionRepository(db),
		NewTestDataLoaderService(t, db),
		settings,
		TestLogger(),
	)
}

func NewTestPerformanceService(t *testing.T, db *sql.DB, settings service.ValuationSettings) *service.PerformanceService {
	t.Helper()

	return service.NewPerformanceService(
		repository.NewSnapshotRepository(db),
		NewTestDataLoaderService(t, db),
		settings,
	)
}

func NewTestMarketDataService(t *testing.T, db *sql.DB) *service.MarketDataService {
	t.Helper()

	return service.NewMarketDataService(repository.NewMarketRepository(db))
}

func NewTestCashService(t *testing.T, db *sql.DB) *service.CashService {
	t.Helper()

	return service.NewCashService(repository.NewCashRepository(db))
}

func NewTestSystemService(t *testing.T, db *sql.DB) *service.SystemService {
	t.Helper()

	return service.NewSystemService(db)
}

// MakeID generates a UUID string for use in tests.
//
// Example usage:
//
//	id := testutil.MakeID()
//	// Returns: "550e8400-e29b-41d4-a716-446655440000"
func MakeID() string {
	return uuid.New().String()
}

// MakeSymbol generates a stock ticker symbol for testing.
//
// Example usage:
//
//	symbol := testutil.MakeSymbol("AAPL")
//	// Returns: "AAPL1A2B"
func MakeSymbol(base string) string {
	if base == "" {
		base = "TEST"
	}
	return base + randomAlphanumeric(4)
}

// Day returns midnight UTC of the given date.
func Day(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// randomAlphanumeric generates a random alphanumeric string of specified length.
func randomAlphanumeric(length int) string {
	const charset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	result := make([]byte, length)
	for i := range result {
		//nolint:gosec // G404: Using math/rand for test data generation is acceptable
		result[i] = charset[rand.Intn(len(charset))]
	}
	return string(result)
}
