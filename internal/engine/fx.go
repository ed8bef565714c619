package engine

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/Rhymond/go-money"
	"github.com/ndewijer/portfolio-analytics/internal/apperrors"
	"github.com/ndewijer/portfolio-analytics/internal/model"
	"github.com/shopspring/decimal"
)

// RateSource resolves the rate that converts one unit of from into to on date.
type RateSource interface {
	Rate(from, to string, date time.Time) (decimal.Decimal, error)
}

type pair struct{ from, to string }

type ratePoint struct {
	date time.Time
	rate decimal.Decimal
}

// Converter converts amounts between currencies using a table of dated rates.
// Lookups use the rate of the exact date, else the most recent rate before it.
// A rate is never taken from a later date.
type Converter struct {
	series map[pair][]ratePoint
}

// NewConverter builds a Converter from rates. Rates with an unknown currency
// code or a non-positive value are skipped and reported in the returned error;
// the Converter is usable either way.
func NewConverter(rates []model.ExchangeRate) (*Converter, error) {
	c := &Converter{series: make(map[pair][]ratePoint)}
	var errs []error
	for _, r := range rates {
		if err := c.Add(r.FromCurrency, r.ToCurrency, r.Date, r.Rate); err != nil {
			errs = append(errs, err)
		}
	}
	return c, errors.Join(errs...)
}

// Add records a rate. When two rates share a pair and date, the later one wins.
func (c *Converter) Add(from, to string, date time.Time, rate decimal.Decimal) error {
	from, to = normalizeCurrency(from), normalizeCurrency(to)
	if err := ValidateCurrency(from); err != nil {
		return err
	}
	if err := ValidateCurrency(to); err != nil {
		return err
	}
	if !rate.IsPositive() {
		return fmt.Errorf("%w: %s->%s on %s is %s", apperrors.ErrInvalidRate, from, to, Day(date).Format(time.DateOnly), rate)
	}
	k := pair{from, to}
	date = Day(date)
	s := c.series[k]
	i := sort.Search(len(s), func(i int) bool { return !s[i].date.Before(date) })
	if i < len(s) && s[i].date.Equal(date) {
		s[i].rate = rate
		return nil
	}
	s = append(s, ratePoint{})
	copy(s[i+1:], s[i:])
	s[i] = ratePoint{date: date, rate: rate}
	c.series[k] = s
	return nil
}

// Rate returns the rate for from->to on date. Identical currencies convert at 1.
// When only the reverse pair is known its reciprocal is used.
func (c *Converter) Rate(from, to string, date time.Time) (decimal.Decimal, error) {
	from, to = normalizeCurrency(from), normalizeCurrency(to)
	if from == to {
		return decimal.NewFromInt(1), nil
	}
	date = Day(date)
	if p, ok := c.lookup(pair{from, to}, date); ok {
		return p.rate, nil
	}
	if p, ok := c.lookup(pair{to, from}, date); ok {
		return decimal.NewFromInt(1).Div(p.rate), nil
	}
	return decimal.Zero, &apperrors.MissingFxRateError{From: from, To: to, Date: date}
}

// Convert returns amount expressed in to on date.
func (c *Converter) Convert(amount decimal.Decimal, from, to string, date time.Time) (decimal.Decimal, error) {
	rate, err := c.Rate(from, to, date)
	if err != nil {
		return decimal.Zero, err
	}
	return amount.Mul(rate), nil
}

func (c *Converter) lookup(k pair, date time.Time) (ratePoint, bool) {
	s := c.series[k]
	// first index strictly after date
	i := sort.Search(len(s), func(i int) bool { return s[i].date.After(date) })
	if i == 0 {
		return ratePoint{}, false
	}
	return s[i-1], true
}

// ValidateCurrency reports whether code is a known ISO 4217 currency.
func ValidateCurrency(code string) error {
	if code == "" || money.GetCurrency(code) == nil {
		return fmt.Errorf("%w: %q", apperrors.ErrInvalidCurrency, code)
	}
	return nil
}
