package request

import "github.com/shopspring/decimal"

type SetCashBalanceRequest struct {
	Portfolio string          `json:"portfolio"`
	Balance   decimal.Decimal `json:"balance"`
	Currency  string          `json:"currency"`
}

// CreateDepositRequest records external cash. A negative Amount is a withdrawal.
// IncludeInAnalysis defaults to true when omitted.
type CreateDepositRequest struct {
	Portfolio         string          `json:"portfolio"`
	Date              string          `json:"date"`
	Amount            decimal.Decimal `json:"amount"`
	Currency          string          `json:"currency"`
	BankName          string          `json:"bankName"`
	IncludeInAnalysis *bool           `json:"includeInAnalysis,omitempty"`
}
