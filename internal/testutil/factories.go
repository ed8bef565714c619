package testutil

import (
	"database/sql"
	"testing"
	"time"

	"github.com/ndewijer/portfolio-analytics/internal/model"
	"github.com/shopspring/decimal"
)

// TransactionBuilder provides a fluent interface for creating test transactions.
//
// Example usage:
//
//	// Simple buy with defaults
//	tx := testutil.NewTransaction(ownerID).Build(t, db)
//
//	// Customized sell
//	tx := testutil.NewTransaction(ownerID).
//	    WithSymbol("AAPL").
//	    WithType("sell").
//	    WithQuantity("5").
//	    WithPrice("120").
//	    Build(t, db)
type TransactionBuilder struct {
	ID           string
	OwnerID      string
	Portfolio    string
	Symbol       string
	Date         time.Time
	Type         model.TransactionType
	Quantity     decimal.Decimal
	Price        decimal.Decimal
	Amount       decimal.Decimal
	Fees         decimal.Decimal
	Currency     string
	BonusShares  decimal.Decimal
	CashDividend decimal.Decimal
	Category     string
}

// NewTransaction creates a TransactionBuilder with defaults: a buy of 10 TEST at 100 USD.
func NewTransaction(ownerID string) *TransactionBuilder {
	return &TransactionBuilder{
		ID:        MakeID(),
		OwnerID:   ownerID,
		Portfolio: "main",
		Symbol:    "TEST",
		Date:      Day(2024, 1, 2),
		Type:      model.TransactionBuy,
		Quantity:  decimal.NewFromInt(10),
		Price:     decimal.NewFromInt(100),
		Currency:  "USD",
		Category:  model.CategoryPortfolio,
	}
}

// WithID sets a custom ID
func (b *TransactionBuilder) WithID(id string) *TransactionBuilder {
	b.ID = id
	return b
}

// WithPortfolio sets the portfolio tag
func (b *TransactionBuilder) WithPortfolio(portfolio string) *TransactionBuilder {
	b.Portfolio = portfolio
	return b
}

// WithSymbol sets the symbol
func (b *TransactionBuilder) WithSymbol(symbol string) *TransactionBuilder {
	b.Symbol = symbol
	return b
}

// WithDate sets the transaction date
func (b *TransactionBuilder) WithDate(date time.Time) *TransactionBuilder {
	b.Date = date
	return b
}

// WithType sets the transaction type
func (b *TransactionBuilder) WithType(txType model.TransactionType) *TransactionBuilder {
	b.Type = txType
	return b
}

// WithQuantity sets the quantity
func (b *TransactionBuilder) WithQuantity(qty string) *TransactionBuilder {
	b.Quantity = decimal.RequireFromString(qty)
	return b
}

// WithPrice sets the unit price
func (b *TransactionBuilder) WithPrice(price string) *TransactionBuilder {
	b.Price = decimal.RequireFromString(price)
	return b
}

// WithAmount sets the cash amount of deposit and withdrawal rows
func (b *TransactionBuilder) WithAmount(amount string) *TransactionBuilder {
	b.Amount = decimal.RequireFromString(amount)
	return b
}

// WithFees sets the fees
func (b *TransactionBuilder) WithFees(fees string) *TransactionBuilder {
	b.Fees = decimal.RequireFromString(fees)
	return b
}

// WithCurrency sets the currency
func (b *TransactionBuilder) WithCurrency(ccy string) *TransactionBuilder {
	b.Currency = ccy
	return b
}

// WithCategory sets the category
func (b *TransactionBuilder) WithCategory(category string) *TransactionBuilder {
	b.Category = category
	return b
}

// Deposit turns the row into an external deposit of amount.
func (b *TransactionBuilder) Deposit(amount string) *TransactionBuilder {
	b.Type = model.TransactionDeposit
	b.Category = model.CategoryFlowIn
	b.Symbol = ""
	b.Quantity = decimal.Zero
	b.Price = decimal.Zero
	b.Amount = decimal.RequireFromString(amount)
	return b
}

// Build creates the transaction in the database
func (b *TransactionBuilder) Build(t *testing.T, db *sql.DB) model.Transaction {
	t.Helper()

	query := `
		INSERT INTO "transaction" (id, owner_id, portfolio, symbol, date, type, quantity, price,
			amount, fees, currency, bonus_shares, cash_dividend, category, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	createdAt := time.Now().UTC()
	_, err := db.Exec(query,
		b.ID, b.OwnerID, b.Portfolio, b.Symbol, b.Date.Format("2006-01-02"), string(b.Type),
		b.Quantity, b.Price, b.Amount, b.Fees, b.Currency, b.BonusShares, b.CashDividend,
		b.Category, createdAt.Format(time.RFC3339),
	)
	if err != nil {
		t.Fatalf("Failed to create transaction: %v", err)
	}

	return model.Transaction{
		ID:           b.ID,
		OwnerID:      b.OwnerID,
		Portfolio:    b.Portfolio,
		Symbol:       b.Symbol,
		Date:         b.Date,
		Type:         b.Type,
		Quantity:     b.Quantity,
		Price:        b.Price,
		Amount:       b.Amount,
		Fees:         b.Fees,
		Currency:     b.Currency,
		BonusShares:  b.BonusShares,
		CashDividend: b.CashDividend,
		Category:     b.Category,
		CreatedAt:    createdAt,
	}
}

// CreateExchangeRate stores 1 from = rate to on date.
//
// Example usage:
//
//	testutil.CreateExchangeRate(t, db, "USD", "KWD", "0.30", testutil.Day(2024, 1, 2))
func CreateExchangeRate(t *testing.T, db *sql.DB, from, to, rate string, date time.Time) model.ExchangeRate {
	t.Helper()

	er := model.ExchangeRate{
		ID:           MakeID(),
		Date:         date,
		FromCurrency: from,
		ToCurrency:   to,
		Rate:         decimal.RequireFromString(rate),
		Source:       "test",
	}
	_, err := db.Exec(`
		INSERT INTO fx_rate (id, date, from_currency, to_currency, rate, source)
		VALUES (?, ?, ?, ?, ?, ?)
	`, er.ID, date.Format("2006-01-02"), from, to, er.Rate, er.Source)
	if err != nil {
		t.Fatalf("Failed to create exchange rate: %v", err)
	}
	return er
}

// CreatePrice stores the closing price of symbol on date.
func CreatePrice(t *testing.T, db *sql.DB, symbol, price, currency string, date time.Time) model.MarketPrice {
	t.Helper()

	p := model.MarketPrice{
		ID:       MakeID(),
		Symbol:   symbol,
		Date:     date,
		Price:    decimal.RequireFromString(price),
		Currency: currency,
		Source:   "test",
	}
	_, err := db.Exec(`
		INSERT INTO market_price (id, symbol, date, price, currency, source)
		VALUES (?, ?, ?, ?, ?, ?)
	`, p.ID, symbol, date.Format("2006-01-02"), p.Price, currency, p.Source)
	if err != nil {
		t.Fatalf("Failed to create market price: %v", err)
	}
	return p
}

// CreateDeposit stores a separately tracked deposit that counts towards analysis.
// A negative amount is a withdrawal.
func CreateDeposit(t *testing.T, db *sql.DB, ownerID, portfolio, amount, currency string, date time.Time) model.CashDeposit {
	t.Helper()

	d := model.CashDeposit{
		ID:                MakeID(),
		OwnerID:           ownerID,
		Portfolio:         portfolio,
		Date:              date,
		Amount:            decimal.RequireFromString(amount),
		Currency:          currency,
		IncludeInAnalysis: true,
		CreatedAt:         time.Now().UTC(),
	}
	_, err := db.Exec(`
		INSERT INTO cash_deposit (id, owner_id, portfolio, date, amount, currency, include_in_analysis, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, d.ID, ownerID, portfolio, date.Format("2006-01-02"), d.Amount, currency, true, d.CreatedAt.Format(time.RFC3339))
	if err != nil {
		t.Fatalf("Failed to create cash deposit: %v", err)
	}
	return d
}

// CreateCashBalance stores a manual cash balance last updated at updatedAt.
func CreateCashBalance(t *testing.T, db *sql.DB, ownerID, portfolio, balance, currency string, updatedAt time.Time) model.CashBalance {
	t.Helper()

	b := model.CashBalance{
		OwnerID:   ownerID,
		Portfolio: portfolio,
		Balance:   decimal.RequireFromString(balance),
		Currency:  currency,
		UpdatedAt: updatedAt,
	}
	_, err := db.Exec(`
		INSERT INTO portfolio_cash (owner_id, portfolio, balance, currency, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`, ownerID, portfolio, b.Balance, currency, updatedAt.UTC().Format(time.RFC3339))
	if err != nil {
		t.Fatalf("Failed to create cash balance: %v", err)
	}
	return b
}
