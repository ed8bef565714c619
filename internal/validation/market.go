package validation

import (
	"strings"
	"time"

	"github.com/ndewijer/portfolio-analytics/internal/api/request"
	"github.com/ndewijer/portfolio-analytics/internal/engine"
)

// ValidateExchangeRate validates an exchange rate upsert.
// Both currencies must be ISO 4217 codes, distinct from each other, and the
// rate must be positive.
func ValidateExchangeRate(req request.UpsertExchangeRateRequest) error {
	errors := make(map[string]string)

	if _, err := time.Parse(request.DateLayout, req.Date); err != nil {
		errors["date"] = "date must be in YYYY-MM-DD format"
	}
	if msg := currencyError(req.FromCurrency); msg != "" {
		errors["fromCurrency"] = msg
	}
	if msg := currencyError(req.ToCurrency); msg != "" {
		errors["toCurrency"] = msg
	}
	if strings.EqualFold(strings.TrimSpace(req.FromCurrency), strings.TrimSpace(req.ToCurrency)) {
		errors["toCurrency"] = "toCurrency must differ from fromCurrency"
	}
	if !req.Rate.IsPositive() {
		errors["rate"] = "rate must be positive"
	}

	if len(errors) > 0 {
		return &Error{Fields: errors}
	}
	return nil
}

// ValidatePrice validates a market price upsert.
func ValidatePrice(req request.UpsertPriceRequest) error {
	errors := make(map[string]string)

	if strings.TrimSpace(req.Symbol) == "" {
		errors["symbol"] = "symbol is required"
	}
	if _, err := time.Parse(request.DateLayout, req.Date); err != nil {
		errors["date"] = "date must be in YYYY-MM-DD format"
	}
	if msg := currencyError(req.Currency); msg != "" {
		errors["currency"] = msg
	}
	if req.Price.IsNegative() {
		errors["price"] = "price must not be negative"
	}

	if len(errors) > 0 {
		return &Error{Fields: errors}
	}
	return nil
}

// currencyError returns a message when code is not a known ISO 4217 currency.
func currencyError(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return "currency is required"
	}
	if engine.ValidateCurrency(code) != nil {
		return "unknown currency: " + code
	}
	return ""
}
