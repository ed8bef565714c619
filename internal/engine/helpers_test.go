package engine

import (
	"testing"
	"time"

	"github.com/ndewijer/portfolio-analytics/internal/model"
	"github.com/shopspring/decimal"
)

const owner = "11111111-1111-1111-1111-111111111111"

func day(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse(time.DateOnly, s)
	if err != nil {
		t.Fatalf("bad date %q: %v", s, err)
	}
	return d
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func buy(t *testing.T, date, symbol, qty, price, fees, ccy string) model.Transaction {
	t.Helper()
	return model.Transaction{
		OwnerID: owner, Portfolio: "main", Symbol: symbol, Date: day(t, date),
		Type: model.TransactionBuy, Quantity: dec(qty), Price: dec(price), Fees: dec(fees), Currency: ccy,
		Category: model.CategoryPortfolio,
	}
}

func sell(t *testing.T, date, symbol, qty, price, fees, ccy string) model.Transaction {
	t.Helper()
	tx := buy(t, date, symbol, qty, price, fees, ccy)
	tx.Type = model.TransactionSell
	return tx
}

func deposit(t *testing.T, date, amount, ccy string) model.Transaction {
	t.Helper()
	return model.Transaction{
		OwnerID: owner, Portfolio: "main", Date: day(t, date),
		Type: model.TransactionDeposit, Amount: dec(amount), Currency: ccy,
		Category: model.CategoryFlowIn,
	}
}

func rate(t *testing.T, date, from, to, r string) model.ExchangeRate {
	t.Helper()
	return model.ExchangeRate{Date: day(t, date), FromCurrency: from, ToCurrency: to, Rate: dec(r)}
}

func price(t *testing.T, date, symbol, p, ccy string) model.MarketPrice {
	t.Helper()
	return model.MarketPrice{Date: day(t, date), Symbol: symbol, Price: dec(p), Currency: ccy}
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	if !got.Equal(dec(want)) {
		t.Errorf("want %s, got %s", want, got)
	}
}
