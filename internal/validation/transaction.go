package validation

import (
	"fmt"
	"strings"
	"time"

	"github.com/ndewijer/portfolio-analytics/internal/api/request"
	"github.com/ndewijer/portfolio-analytics/internal/model"
)

// ValidTransactionType contains the allowed transaction type values.
var ValidTransactionType = map[string]bool{
	string(model.TransactionBuy):        true,
	string(model.TransactionSell):       true,
	string(model.TransactionDividend):   true,
	string(model.TransactionBonus):      true,
	string(model.TransactionDeposit):    true,
	string(model.TransactionWithdrawal): true,
}

// ValidCategory contains the allowed transaction categories. Empty means portfolio.
var ValidCategory = map[string]bool{
	"":                      true,
	model.CategoryPortfolio: true,
	model.CategoryFlowIn:    true,
	model.CategoryFlowOut:   true,
}

// ValidateCreateTransaction validates a transaction creation request.
//
// Required fields:
//   - ownerId: Must be a valid UUID
//   - portfolio: Must be non-blank
//   - date: Must be in YYYY-MM-DD format
//   - type: Must be one of: buy, sell, dividend, bonus, deposit, withdrawal
//   - currency: Must be an ISO 4217 code
//
// Per type:
//   - buy/sell: symbol, positive quantity, non-negative price
//   - bonus: symbol and a positive quantity or bonusShares
//   - dividend: symbol and a positive cashDividend, amount or bonusShares
//   - deposit/withdrawal: positive amount (or quantity x price)
//
// Fees, bonusShares and cashDividend may never be negative.
// Returns a validation Error with field-specific error messages if validation fails.
func ValidateCreateTransaction(req request.CreateTransactionRequest) error {
	errors := make(map[string]string)

	if err := ValidateUUID(req.OwnerID); err != nil {
		return err
	}

	if strings.TrimSpace(req.Portfolio) == "" {
		errors["portfolio"] = "portfolio is required"
	}

	if strings.TrimSpace(req.Date) == "" {
		errors["date"] = "date is required"
	} else if _, err := time.Parse(request.DateLayout, req.Date); err != nil {
		errors["date"] = err.Error()
	}

	if msg := currencyError(req.Currency); msg != "" {
		errors["currency"] = msg
	}

	if !ValidCategory[req.Category] {
		errors["category"] = fmt.Sprintf("invalid category: %s", req.Category)
	}

	if req.Fees.IsNegative() {
		errors["fees"] = "fees must not be negative"
	}
	if req.BonusShares.IsNegative() {
		errors["bonusShares"] = "bonusShares must not be negative"
	}
	if req.CashDividend.IsNegative() {
		errors["cashDividend"] = "cashDividend must not be negative"
	}

	switch t := strings.TrimSpace(req.Type); {
	case t == "":
		errors["transactionType"] = "type is required"
	case !ValidTransactionType[t]:
		errors["transactionType"] = fmt.Sprintf("invalid type: %s", t)
	default:
		validateByType(model.TransactionType(t), req, errors)
	}

	if len(errors) > 0 {
		return &Error{Fields: errors}
	}

	return nil
}

func validateByType(t model.TransactionType, req request.CreateTransactionRequest, errors map[string]string) {
	needsSymbol := t == model.TransactionBuy || t == model.TransactionSell ||
		t == model.TransactionBonus || t == model.TransactionDividend
	if needsSymbol && strings.TrimSpace(req.Symbol) == "" {
		errors["symbol"] = "symbol is required"
	}

	switch t {
	case model.TransactionBuy, model.TransactionSell:
		if !req.Quantity.IsPositive() {
			errors["quantity"] = "quantity must be positive"
		}
		if req.Price.IsNegative() {
			errors["price"] = "price must not be negative"
		}
	case model.TransactionBonus:
		if !req.Quantity.IsPositive() && !req.BonusShares.IsPositive() {
			errors["quantity"] = "quantity or bonusShares must be positive"
		}
	case model.TransactionDividend:
		if !req.CashDividend.IsPositive() && !req.Amount.IsPositive() && !req.BonusShares.IsPositive() {
			errors["cashDividend"] = "cashDividend, amount or bonusShares must be positive"
		}
	case model.TransactionDeposit, model.TransactionWithdrawal:
		if !req.Amount.IsPositive() && !req.Quantity.Mul(req.Price).IsPositive() {
			errors["amount"] = "amount must be positive"
		}
	}
}
