package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// CashDeposit is an external cash movement tracked outside the transaction table.
// A negative Amount is a withdrawal. Deposits excluded from analysis are money
// held elsewhere and are ignored by valuation.
type CashDeposit struct {
	ID                string          `json:"id"`
	OwnerID           string          `json:"ownerId"`
	Portfolio         string          `json:"portfolio"`
	Date              time.Time       `json:"date"`
	Amount            decimal.Decimal `json:"amount"`
	Currency          string          `json:"currency"`
	BankName          string          `json:"bankName,omitempty"`
	IncludeInAnalysis bool            `json:"includeInAnalysis"`
	CreatedAt         time.Time       `json:"createdAt,omitempty"`
}

// CashBalance is a manually maintained cash balance for one portfolio.
// When present it replaces the cash balance derived from the ledger.
type CashBalance struct {
	OwnerID   string          `json:"ownerId"`
	Portfolio string          `json:"portfolio"`
	Balance   decimal.Decimal `json:"balance"`
	Currency  string          `json:"currency"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// CashFlowKind classifies derived cash-flow events.
type CashFlowKind string

const (
	FlowDeposit      CashFlowKind = "deposit"
	FlowWithdrawal   CashFlowKind = "withdrawal"
	FlowDividendCash CashFlowKind = "dividend_cash"
)

// CashFlowEvent is a derived cash movement. Amount is always positive and in
// Currency; the direction comes from Kind.
type CashFlowEvent struct {
	Date      time.Time       `json:"date"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
	Kind      CashFlowKind    `json:"kind"`
	Portfolio string          `json:"portfolio"`
	Symbol    string          `json:"symbol,omitempty"`
}

// Contribution returns the signed amount from the portfolio's point of view:
// deposits and dividends add value, withdrawals remove it.
func (e CashFlowEvent) Contribution() decimal.Decimal {
	if e.Kind == FlowWithdrawal {
		return e.Amount.Neg()
	}
	return e.Amount
}

// IsExternal reports whether the flow crosses the portfolio boundary.
func (e CashFlowEvent) IsExternal() bool {
	return e.Kind == FlowDeposit || e.Kind == FlowWithdrawal
}
