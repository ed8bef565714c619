package engine

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/ndewijer/portfolio-analytics/internal/apperrors"
	"github.com/ndewijer/portfolio-analytics/internal/model"
	"github.com/shopspring/decimal"
)

// IssueLog collects data issues without duplicates.
type IssueLog struct {
	seen   map[model.DataIssue]struct{}
	issues []model.DataIssue
}

// Add records issue once.
func (l *IssueLog) Add(issue model.DataIssue) {
	if l.seen == nil {
		l.seen = make(map[model.DataIssue]struct{})
	}
	if _, ok := l.seen[issue]; ok {
		return
	}
	l.seen[issue] = struct{}{}
	l.issues = append(l.issues, issue)
}

// Len returns the number of recorded issues.
func (l *IssueLog) Len() int { return len(l.issues) }

// Sorted returns the issues in a stable order.
func (l *IssueLog) Sorted() []model.DataIssue {
	out := make([]model.DataIssue, len(l.issues))
	copy(out, l.issues)
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		if a.Symbol != b.Symbol {
			return a.Symbol < b.Symbol
		}
		if a.Currency != b.Currency {
			return a.Currency < b.Currency
		}
		if a.Date != b.Date {
			return a.Date < b.Date
		}
		return a.Detail < b.Detail
	})
	return out
}

// RateResolver wraps a RateSource and never fails. When a rate is missing it
// substitutes, in order, the latest rate it resolved for the pair on an earlier
// date, the configured fallback rate, or 1, and records an issue each time.
// A rate resolved for a later date is never used.
type RateResolver struct {
	rates    RateSource
	fallback map[string]decimal.Decimal
	// last holds the rates resolved so far per pair, ordered by request date.
	last   map[pair][]ratePoint
	issues *IssueLog
}

// NewRateResolver returns a resolver over rates. fallback maps a currency code
// to its rate into the base currency.
func NewRateResolver(rates RateSource, fallback map[string]decimal.Decimal, issues *IssueLog) *RateResolver {
	if issues == nil {
		issues = &IssueLog{}
	}
	return &RateResolver{
		rates:    rates,
		fallback: fallback,
		last:     make(map[pair][]ratePoint),
		issues:   issues,
	}
}

// Rate implements RateSource. The error is always nil.
func (r *RateResolver) Rate(from, to string, date time.Time) (decimal.Decimal, error) {
	from, to = normalizeCurrency(from), normalizeCurrency(to)
	k := pair{from, to}
	rate, err := r.rates.Rate(from, to, date)
	if err == nil {
		r.remember(k, Day(date), rate)
		return rate, nil
	}
	if !errors.Is(err, apperrors.ErrMissingFxRate) {
		r.issues.Add(model.DataIssue{
			Kind: model.IssueUnconvertedFx, Currency: from,
			Date: Day(date).Format(time.DateOnly), Detail: err.Error(),
		})
		return decimal.NewFromInt(1), nil
	}

	if last, ok := r.lastBefore(k, Day(date)); ok {
		r.issues.Add(model.DataIssue{
			Kind: model.IssueMissingFxRate, Currency: from, Date: Day(date).Format(time.DateOnly),
			Detail: fmt.Sprintf("no %s->%s rate on or before date, used rate %s resolved for %s",
				from, to, last.rate, last.date.Format(time.DateOnly)),
		})
		return last.rate, nil
	}
	if fb, ok := r.fallback[from]; ok && fb.IsPositive() {
		r.issues.Add(model.DataIssue{
			Kind: model.IssueFallbackFxRate, Currency: from, Date: Day(date).Format(time.DateOnly),
			Detail: fmt.Sprintf("no %s->%s rate on or before date, used configured rate %s", from, to, fb),
		})
		return fb, nil
	}
	r.issues.Add(model.DataIssue{
		Kind: model.IssueUnconvertedFx, Currency: from, Date: Day(date).Format(time.DateOnly),
		Detail: fmt.Sprintf("no %s->%s rate available, amount left unconverted", from, to),
	})
	return decimal.NewFromInt(1), nil
}

func (r *RateResolver) remember(k pair, date time.Time, rate decimal.Decimal) {
	s := r.last[k]
	i := sort.Search(len(s), func(i int) bool { return !s[i].date.Before(date) })
	if i < len(s) && s[i].date.Equal(date) {
		s[i].rate = rate
		return
	}
	s = append(s, ratePoint{})
	copy(s[i+1:], s[i:])
	s[i] = ratePoint{date: date, rate: rate}
	r.last[k] = s
}

// lastBefore returns the latest resolved rate of k requested on or before date.
func (r *RateResolver) lastBefore(k pair, date time.Time) (ratePoint, bool) {
	s := r.last[k]
	i := sort.Search(len(s), func(i int) bool { return s[i].date.After(date) })
	if i == 0 {
		return ratePoint{}, false
	}
	return s[i-1], true
}
