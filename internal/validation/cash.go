package validation

import (
	"strings"
	"time"

	"github.com/ndewijer/portfolio-analytics/internal/api/request"
)

// ValidateCashBalance validates a manual cash balance update.
func ValidateCashBalance(req request.SetCashBalanceRequest) error {
	errors := make(map[string]string)

	if strings.TrimSpace(req.Portfolio) == "" {
		errors["portfolio"] = "portfolio is required"
	}
	if msg := currencyError(req.Currency); msg != "" {
		errors["currency"] = msg
	}

	if len(errors) > 0 {
		return &Error{Fields: errors}
	}
	return nil
}

// ValidateDeposit validates a cash deposit or withdrawal.
func ValidateDeposit(req request.CreateDepositRequest) error {
	errors := make(map[string]string)

	if strings.TrimSpace(req.Portfolio) == "" {
		errors["portfolio"] = "portfolio is required"
	}
	if _, err := time.Parse(request.DateLayout, req.Date); err != nil {
		errors["date"] = "date must be in YYYY-MM-DD format"
	}
	if msg := currencyError(req.Currency); msg != "" {
		errors["currency"] = msg
	}
	if req.Amount.IsZero() {
		errors["amount"] = "amount must not be zero"
	}

	if len(errors) > 0 {
		return &Error{Fields: errors}
	}
	return nil
}
