package engine

import (
	"sort"
	"strings"
	"time"

	"github.com/ndewijer/portfolio-analytics/internal/apperrors"
	"github.com/ndewijer/portfolio-analytics/internal/model"
)

// PriceSource resolves the price of a symbol on or before date.
type PriceSource interface {
	PriceOn(symbol string, date time.Time) (model.MarketPrice, error)
}

// PriceBook is an in-memory PriceSource over already fetched market prices.
type PriceBook struct {
	series map[string][]model.MarketPrice
}

// NewPriceBook indexes prices by symbol. For duplicate (symbol, date) entries
// the last one in prices is kept.
func NewPriceBook(prices []model.MarketPrice) *PriceBook {
	b := &PriceBook{series: make(map[string][]model.MarketPrice)}
	for _, p := range prices {
		p.Symbol = strings.TrimSpace(p.Symbol)
		p.Date = Day(p.Date)
		p.Currency = normalizeCurrency(p.Currency)
		b.series[p.Symbol] = append(b.series[p.Symbol], p)
	}
	for sym, s := range b.series {
		sort.SliceStable(s, func(i, j int) bool { return s[i].Date.Before(s[j].Date) })
		out := s[:0]
		for _, p := range s {
			if n := len(out); n > 0 && out[n-1].Date.Equal(p.Date) {
				out[n-1] = p
				continue
			}
			out = append(out, p)
		}
		b.series[sym] = out
	}
	return b
}

// PriceOn returns the price dated on or before date.
func (b *PriceBook) PriceOn(symbol string, date time.Time) (model.MarketPrice, error) {
	date = Day(date)
	s := b.series[symbol]
	i := sort.Search(len(s), func(i int) bool { return s[i].Date.After(date) })
	if i == 0 {
		return model.MarketPrice{}, &apperrors.MissingPriceError{Symbol: symbol, Date: date}
	}
	return s[i-1], nil
}
