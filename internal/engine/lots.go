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

// Position is the FIFO working state of one symbol: its open lots, oldest
// first, and the realized slices of every sell matched so far.
// When Err is set the symbol could not be matched and its numbers are not usable.
type Position struct {
	Symbol   string
	Currency string
	Lots     []model.Lot
	Realized []model.RealizedSlice
	Err      error
}

// OpenQuantity is the total remaining quantity across open lots.
func (p *Position) OpenQuantity() decimal.Decimal {
	q := decimal.Zero
	for _, l := range p.Lots {
		q = q.Add(l.Quantity)
	}
	return q
}

// CostBasis is the remaining cost of the open lots in the trading currency.
func (p *Position) CostBasis() decimal.Decimal {
	c := decimal.Zero
	for _, l := range p.Lots {
		c = c.Add(l.Quantity.Mul(l.UnitCost))
	}
	return c
}

// BaseCostBasis is the remaining cost of the open lots in base currency at
// each lot's acquisition rate.
func (p *Position) BaseCostBasis() decimal.Decimal {
	c := decimal.Zero
	for _, l := range p.Lots {
		c = c.Add(l.Quantity.Mul(l.BaseUnitCost))
	}
	return c
}

// AverageCost is the weighted average unit cost of the open lots. Bonus lots
// carry zero cost and so pull the average down.
func (p *Position) AverageCost() decimal.Decimal {
	q := p.OpenQuantity()
	if q.IsZero() {
		return decimal.Zero
	}
	return p.CostBasis().Div(q)
}

// BaseAverageCost is AverageCost in base currency.
func (p *Position) BaseAverageCost() decimal.Decimal {
	q := p.OpenQuantity()
	if q.IsZero() {
		return decimal.Zero
	}
	return p.BaseCostBasis().Div(q)
}

// RealizedPnL sums the realized profit in the trading currency.
func (p *Position) RealizedPnL() decimal.Decimal {
	r := decimal.Zero
	for _, s := range p.Realized {
		r = r.Add(s.RealizedPnL)
	}
	return r
}

// BaseRealizedPnL sums the realized profit in base currency.
func (p *Position) BaseRealizedPnL() decimal.Decimal {
	r := decimal.Zero
	for _, s := range p.Realized {
		r = r.Add(s.BaseRealized)
	}
	return r
}

// Unrealized values the open lots at price (trading currency) converted with
// rate, against each lot's base cost.
func (p *Position) Unrealized(price, rate decimal.Decimal) decimal.Decimal {
	basePrice := price.Mul(rate)
	u := decimal.Zero
	for _, l := range p.Lots {
		u = u.Add(l.Quantity.Mul(basePrice.Sub(l.BaseUnitCost)))
	}
	return u
}

// buy appends a lot. Fees are capitalised into the unit cost.
func (p *Position) buy(t Trade, rate decimal.Decimal) {
	unit := t.Price
	if !t.Fees.IsZero() {
		unit = unit.Add(t.Fees.Div(t.Quantity))
	}
	p.Lots = append(p.Lots, model.Lot{
		Symbol:       p.Symbol,
		Date:         t.Date,
		Quantity:     t.Quantity,
		UnitCost:     unit,
		BaseUnitCost: unit.Mul(rate),
	})
}

func (p *Position) bonus(t Trade) {
	p.Lots = append(p.Lots, model.Lot{
		Symbol:       p.Symbol,
		Date:         t.Date,
		Quantity:     t.Quantity,
		UnitCost:     decimal.Zero,
		BaseUnitCost: decimal.Zero,
		Bonus:        true,
	})
}

// sell consumes lots from the front of the queue. Fees are prorated over the
// consumed slices by quantity.
func (p *Position) sell(t Trade, rate decimal.Decimal) error {
	open := p.OpenQuantity()
	if t.Quantity.GreaterThan(open) {
		return &apperrors.OverSellError{Symbol: p.Symbol, Date: t.Date, Open: open, Sold: t.Quantity}
	}

	remaining := t.Quantity
	for remaining.IsPositive() && len(p.Lots) > 0 {
		lot := &p.Lots[0]
		consumed := decimal.Min(lot.Quantity, remaining)

		fee := decimal.Zero
		if !t.Fees.IsZero() {
			fee = t.Fees.Mul(consumed).Div(t.Quantity)
		}
		proceeds := consumed.Mul(t.Price).Sub(fee)
		cost := consumed.Mul(lot.UnitCost)
		p.Realized = append(p.Realized, model.RealizedSlice{
			Symbol:       p.Symbol,
			SellDate:     t.Date,
			LotDate:      lot.Date,
			Quantity:     consumed,
			CostBasis:    cost,
			Proceeds:     proceeds,
			RealizedPnL:  proceeds.Sub(cost),
			BaseRealized: proceeds.Mul(rate).Sub(consumed.Mul(lot.BaseUnitCost)),
		})

		remaining = remaining.Sub(consumed)
		lot.Quantity = lot.Quantity.Sub(consumed)
		if lot.Quantity.IsZero() {
			p.Lots = p.Lots[1:]
		}
	}
	return nil
}

// MatchLots replays trades dated on or before asOf through a FIFO queue per
// symbol. Buys are costed in base currency at their own date's rate and sells
// at theirs.
//
// A symbol that fails (an over-sell or an unresolvable rate) keeps its Err and
// stops being processed; the other symbols are unaffected. The returned error
// joins the per-symbol failures.
func MatchLots(trades []Trade, asOf time.Time, rates RateSource, base string) ([]*Position, error) {
	asOf = Day(asOf)
	bySymbol := make(map[string]*Position)
	for _, t := range trades {
		if t.Date.After(asOf) {
			continue
		}
		p, ok := bySymbol[t.Symbol]
		if !ok {
			p = &Position{Symbol: t.Symbol, Currency: t.Currency}
			bySymbol[t.Symbol] = p
		}
		if p.Err != nil {
			continue
		}

		switch t.Kind {
		case TradeBonus:
			p.bonus(t)
		case TradeBuy, TradeSell:
			rate, err := rates.Rate(t.Currency, base, t.Date)
			if err != nil {
				p.Err = fmt.Errorf("%s %s on %s: %w", p.Symbol, t.Kind, t.Date.Format(time.DateOnly), err)
				continue
			}
			if t.Kind == TradeBuy {
				p.buy(t, rate)
			} else if err := p.sell(t, rate); err != nil {
				p.Err = err
			}
		}
	}

	out := make([]*Position, 0, len(bySymbol))
	for _, p := range bySymbol {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })

	var errs []error
	for _, p := range out {
		if p.Err != nil {
			errs = append(errs, p.Err)
		}
	}
	return out, errors.Join(errs...)
}
