package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType enumerates the ledger event kinds.
type TransactionType string

const (
	TransactionBuy        TransactionType = "buy"
	TransactionSell       TransactionType = "sell"
	TransactionDividend   TransactionType = "dividend"
	TransactionBonus      TransactionType = "bonus"
	TransactionDeposit    TransactionType = "deposit"
	TransactionWithdrawal TransactionType = "withdrawal"
)

// Transaction categories. Rows flagged FLOW_IN / FLOW_OUT are external cash
// movements regardless of their type.
const (
	CategoryPortfolio = "portfolio"
	CategoryFlowIn    = "FLOW_IN"
	CategoryFlowOut   = "FLOW_OUT"
)

// Transaction represents one recorded ledger row for an owner.
// Price is the unit cost for buys and the unit proceeds for sells. Amount holds
// the total cash of deposit and withdrawal rows.
type Transaction struct {
	ID           string          `json:"id"`
	OwnerID      string          `json:"ownerId"`
	Portfolio    string          `json:"portfolio"`
	Symbol       string          `json:"symbol"`
	Date         time.Time       `json:"date"`
	Type         TransactionType `json:"type"`
	Quantity     decimal.Decimal `json:"quantity"`
	Price        decimal.Decimal `json:"price"`
	Amount       decimal.Decimal `json:"amount"`
	Fees         decimal.Decimal `json:"fees"`
	Currency     string          `json:"currency"`
	BonusShares  decimal.Decimal `json:"bonusShares"`
	CashDividend decimal.Decimal `json:"cashDividend"`
	Category     string          `json:"category"`
	CreatedAt    time.Time       `json:"createdAt,omitempty"`
}

// CashAmount returns the total cash moved by a deposit or withdrawal row.
// Older rows only carry quantity and price, so those are used when Amount is empty.
func (t Transaction) CashAmount() decimal.Decimal {
	if !t.Amount.IsZero() {
		return t.Amount.Abs()
	}
	return t.Quantity.Mul(t.Price).Abs()
}
