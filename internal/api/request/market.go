package request

import "github.com/shopspring/decimal"

// UpsertExchangeRateRequest states that 1 FromCurrency equals Rate ToCurrency on Date.
type UpsertExchangeRateRequest struct {
	Date         string          `json:"date"`
	FromCurrency string          `json:"fromCurrency"`
	ToCurrency   string          `json:"toCurrency"`
	Rate         decimal.Decimal `json:"rate"`
	Source       string          `json:"source"`
}

// UpsertPriceRequest stores the closing price of a symbol on Date.
type UpsertPriceRequest struct {
	Symbol   string          `json:"symbol"`
	Date     string          `json:"date"`
	Price    decimal.Decimal `json:"price"`
	Currency string          `json:"currency"`
	Source   string          `json:"source"`
}
