package apperrors

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

// DataIntegrityError reports a symbol whose recorded sells exceed what was ever
// acquired up to that point.
type DataIntegrityError struct {
	Symbol    string
	Date      time.Time
	Available decimal.Decimal
	Requested decimal.Decimal
}

func (e *DataIntegrityError) Error() string {
	return fmt.Sprintf("%s: %s sells %s on %s with only %s held",
		ErrDataIntegrity, e.Symbol, e.Requested, e.Date.Format(dateLayout), e.Available)
}

// Is makes errors.Is(err, ErrDataIntegrity) hold.
func (e *DataIntegrityError) Is(target error) bool { return target == ErrDataIntegrity }

// MissingFxRateError reports a currency pair without a usable rate on or before Date.
type MissingFxRateError struct {
	From string
	To   string
	Date time.Time
}

func (e *MissingFxRateError) Error() string {
	return fmt.Sprintf("%s: %s->%s on or before %s", ErrMissingFxRate, e.From, e.To, e.Date.Format(dateLayout))
}

// Is makes errors.Is(err, ErrMissingFxRate) hold.
func (e *MissingFxRateError) Is(target error) bool { return target == ErrMissingFxRate }

// MissingPriceError reports a symbol without a market price on or before Date.
type MissingPriceError struct {
	Symbol string
	Date   time.Time
}

func (e *MissingPriceError) Error() string {
	return fmt.Sprintf("%s: %s on or before %s", ErrMissingPrice, e.Symbol, e.Date.Format(dateLayout))
}

// Is makes errors.Is(err, ErrMissingPrice) hold.
func (e *MissingPriceError) Is(target error) bool { return target == ErrMissingPrice }

// OverSellError reports a sell that the open lots of a symbol cannot cover.
type OverSellError struct {
	Symbol string
	Date   time.Time
	Open   decimal.Decimal
	Sold   decimal.Decimal
}

func (e *OverSellError) Error() string {
	return fmt.Sprintf("%s: %s sells %s on %s, open quantity %s",
		ErrOverSell, e.Symbol, e.Sold, e.Date.Format(dateLayout), e.Open)
}

// Is makes errors.Is(err, ErrOverSell) hold.
func (e *OverSellError) Is(target error) bool { return target == ErrOverSell }

// NoConvergenceError reports the last iterate reached by the root finder.
type NoConvergenceError struct {
	Iterations int
	LastRate   float64
	Reason     string
}

func (e *NoConvergenceError) Error() string {
	return fmt.Sprintf("%s after %d iterations (last rate %.6f): %s",
		ErrNoConvergence, e.Iterations, e.LastRate, e.Reason)
}

// Is makes errors.Is(err, ErrNoConvergence) hold.
func (e *NoConvergenceError) Is(target error) bool { return target == ErrNoConvergence }
