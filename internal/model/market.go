package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// ExchangeRate states that 1 unit of FromCurrency equals Rate units of ToCurrency on Date.
type ExchangeRate struct {
	ID           string          `json:"id"`
	Date         time.Time       `json:"date"`
	FromCurrency string          `json:"fromCurrency"`
	ToCurrency   string          `json:"toCurrency"`
	Rate         decimal.Decimal `json:"rate"`
	Source       string          `json:"source,omitempty"`
}

// MarketPrice is the closing price of a symbol on a date, as supplied by the
// price collaborator. Any stored price is treated as authoritative for its date.
type MarketPrice struct {
	ID       string          `json:"id"`
	Symbol   string          `json:"symbol"`
	Date     time.Time       `json:"date"`
	Price    decimal.Decimal `json:"price"`
	Currency string          `json:"currency"`
	Source   string          `json:"source,omitempty"`
}
