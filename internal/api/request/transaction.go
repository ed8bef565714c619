package request

import "github.com/shopspring/decimal"

// CreateTransactionRequest records one ledger row. Quantity and Price apply to
// trades, Amount to deposit and withdrawal rows.
type CreateTransactionRequest struct {
	OwnerID      string          `json:"ownerId"`
	Portfolio    string          `json:"portfolio"`
	Symbol       string          `json:"symbol"`
	Date         string          `json:"date"`
	Type         string          `json:"type"`
	Quantity     decimal.Decimal `json:"quantity"`
	Price        decimal.Decimal `json:"price"`
	Amount       decimal.Decimal `json:"amount"`
	Fees         decimal.Decimal `json:"fees"`
	Currency     string          `json:"currency"`
	BonusShares  decimal.Decimal `json:"bonusShares"`
	CashDividend decimal.Decimal `json:"cashDividend"`
	Category     string          `json:"category"`
}
