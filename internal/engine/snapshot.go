package engine

import (
	"fmt"
	"sort"
	"time"

	"github.com/ndewijer/portfolio-analytics/internal/model"
	"github.com/shopspring/decimal"
)

// MoneyPlaces is the number of decimal places snapshot amounts are rounded to.
const MoneyPlaces = 4

var hundred = decimal.NewFromInt(100)

// SnapshotInput carries everything needed to value one owner on one date.
type SnapshotInput struct {
	OwnerID      string
	Date         time.Time
	BaseCurrency string
	Ledger       Ledger
	Rates        RateSource
	Prices       PriceSource
	// Manual replaces the ledger cash of the portfolios it names.
	Manual []model.CashBalance
	// Previous is the latest snapshot before Date, First the earliest one.
	// Both are nil when this snapshot is the first.
	Previous *model.Snapshot
	First    *model.Snapshot
	// MaxPriceAge flags prices older than this as stale. Zero disables the check.
	MaxPriceAge   time.Duration
	FallbackRates map[string]decimal.Decimal
}

// Valuation is the result of a snapshot build: the snapshot itself and the
// per-symbol lines it was summed from.
type Valuation struct {
	Snapshot  model.Snapshot
	Positions []model.PositionReport
}

// BuildSnapshot values the owner's open positions and cash on in.Date.
// Missing prices and rates never drop a line from the total: a substitute is
// used and the snapshot is marked degraded with the reason in its issues.
// The output depends only on the input, so rebuilding is idempotent.
func BuildSnapshot(in SnapshotInput) Valuation {
	date := Day(in.Date)
	in.Ledger = in.Ledger.AsOf(date)
	issues := &IssueLog{}
	rates := NewRateResolver(in.Rates, in.FallbackRates, issues)
	base := normalizeCurrency(in.BaseCurrency)

	excluded := droppedCost(in.Ledger.Dropped, base, rates)
	for sym, e := range in.Ledger.Rejected {
		issues.Add(model.DataIssue{
			Kind: model.IssueDataIntegrity, Symbol: sym, Date: e.Date.Format(time.DateOnly),
			Detail: fmt.Sprintf("%s; net cost %s %s left out of market value", e.Error(), round(excluded[sym]), base),
		})
	}

	positions, _ := MatchLots(in.Ledger.Trades, date, rates, base)
	reports := make([]model.PositionReport, 0, len(positions))
	marketValue := decimal.Zero

	for _, p := range positions {
		if p.Err != nil {
			issues.Add(model.DataIssue{Kind: model.IssueOverSell, Symbol: p.Symbol, Detail: p.Err.Error()})
			reports = append(reports, model.PositionReport{
				Symbol: p.Symbol, Currency: p.Currency, Degraded: true, Error: p.Err.Error(),
			})
			continue
		}
		r := valuePosition(p, date, base, in, rates, issues)
		marketValue = marketValue.Add(r.MarketValue)
		reports = append(reports, r)
	}
	syms := make([]string, 0, len(in.Ledger.Rejected))
	for sym := range in.Ledger.Rejected {
		syms = append(syms, sym)
	}
	sort.Strings(syms)
	for _, sym := range syms {
		reports = append(reports, model.PositionReport{
			Symbol: sym, Degraded: true, Error: in.Ledger.Rejected[sym].Error(),
		})
	}
	sort.SliceStable(reports, func(i, j int) bool { return reports[i].Symbol < reports[j].Symbol })

	cashValue := sumCash(in, date, base, rates)
	portfolioValue := marketValue.Add(cashValue)

	netInvested := flowsBetween(in.Ledger.Flows, time.Time{}, date, base, rates).
		Add(flowsBetween(in.Ledger.Excluded, time.Time{}, date, base, rates))

	// The first snapshot is the baseline, so cash that arrived before it is
	// already part of its value and is not counted again as accumulated cash.
	accumulated := decimal.Zero
	firstValue := portfolioValue
	movement, change := decimal.Zero, decimal.Zero
	if in.Previous != nil {
		prevDate := Day(in.Previous.Date)
		accumulated = in.Previous.AccumulatedCash.
			Add(flowsBetween(in.Ledger.Flows, prevDate, date, base, rates)).
			Add(flowsBetween(in.Ledger.Dividends, prevDate, date, base, rates))
		movement = portfolioValue.Sub(in.Previous.PortfolioValue)
		if !in.Previous.PortfolioValue.IsZero() {
			change = movement.Div(in.Previous.PortfolioValue).Mul(hundred)
		}
	}
	if in.First != nil {
		firstValue = in.First.PortfolioValue
	}
	netGain := portfolioValue.Sub(firstValue).Sub(accumulated)
	roi := decimal.Zero
	if netInvested.IsPositive() {
		roi = netGain.Div(netInvested).Mul(hundred)
	}

	snap := model.Snapshot{
		OwnerID:         in.OwnerID,
		Date:            date,
		BaseCurrency:    base,
		PortfolioValue:  round(portfolioValue),
		MarketValue:     round(marketValue),
		CashValue:       round(cashValue),
		AccumulatedCash: round(accumulated),
		NetInvested:     round(netInvested),
		NetGain:         round(netGain),
		ROIPercent:      round(roi),
		DailyMovement:   round(movement),
		ChangePercent:   round(change),
		Quality:         model.QualityOK,
		Issues:          issues.Sorted(),
	}
	if issues.Len() > 0 {
		snap.Quality = model.QualityDegraded
	}
	return Valuation{Snapshot: snap, Positions: reports}
}

func valuePosition(p *Position, date time.Time, base string, in SnapshotInput, rates *RateResolver, issues *IssueLog) model.PositionReport {
	r := model.PositionReport{
		Symbol:       p.Symbol,
		Currency:     p.Currency,
		OpenQuantity: p.OpenQuantity(),
		AvgCostLocal: round(p.AverageCost()),
		AvgCost:      round(p.BaseAverageCost()),
		Realized:     round(p.BaseRealizedPnL()),
	}
	if r.OpenQuantity.IsZero() {
		return r
	}

	price, ccy := decimal.Zero, p.Currency
	mp, err := in.Prices.PriceOn(p.Symbol, date)
	if err == nil {
		price = mp.Price
		if mp.Currency != "" {
			ccy = mp.Currency
		}
		if in.MaxPriceAge > 0 && date.Sub(Day(mp.Date)) > in.MaxPriceAge {
			r.Degraded = true
			issues.Add(model.DataIssue{
				Kind: model.IssueStalePrice, Symbol: p.Symbol, Date: Day(mp.Date).Format(time.DateOnly),
				Detail: fmt.Sprintf("latest price %s is older than %s", mp.Price, in.MaxPriceAge),
			})
		}
	} else {
		r.Degraded = true
		if last, at, ok := in.Ledger.LastTradePrice(p.Symbol, date); ok {
			price = last
			issues.Add(model.DataIssue{
				Kind: model.IssueMissingPrice, Symbol: p.Symbol, Date: at.Format(time.DateOnly),
				Detail: fmt.Sprintf("%v; valued at last transaction price %s", err, last),
			})
		} else {
			issues.Add(model.DataIssue{
				Kind: model.IssueMissingPrice, Symbol: p.Symbol,
				Detail: fmt.Sprintf("%v; no transaction price either, valued at zero", err),
			})
		}
	}

	rate, _ := rates.Rate(ccy, base, date)
	r.Price = price
	r.MarketValue = round(r.OpenQuantity.Mul(price).Mul(rate))
	r.Unrealized = round(p.Unrealized(price, rate))
	return r
}

// sumCash converts each portfolio's cash to base currency. A manual balance
// set on or before date replaces every ledger cash line of its portfolio.
func sumCash(in SnapshotInput, date time.Time, base string, rates *RateResolver) decimal.Decimal {
	manual := make(map[string]bool, len(in.Manual))
	balances := make([]model.CashBalance, 0, len(in.Manual))
	total := decimal.Zero
	for _, b := range in.Manual {
		if !b.UpdatedAt.IsZero() && Day(b.UpdatedAt).After(date) {
			continue
		}
		manual[b.Portfolio] = true
		balances = append(balances, b)
	}

	ledger := in.Ledger.CashAsOf(date)
	keys := make([]CashKey, 0, len(ledger))
	for k := range ledger {
		if !manual[k.Portfolio] {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Portfolio != keys[j].Portfolio {
			return keys[i].Portfolio < keys[j].Portfolio
		}
		return keys[i].Currency < keys[j].Currency
	})
	for _, k := range keys {
		rate, _ := rates.Rate(k.Currency, base, date)
		total = total.Add(ledger[k].Mul(rate))
	}

	sort.Slice(balances, func(i, j int) bool {
		if balances[i].Portfolio != balances[j].Portfolio {
			return balances[i].Portfolio < balances[j].Portfolio
		}
		return balances[i].Currency < balances[j].Currency
	})
	for _, b := range balances {
		rate, _ := rates.Rate(b.Currency, base, date)
		total = total.Add(b.Balance.Mul(rate))
	}
	return total
}

// droppedCost sums, per symbol, what its dropped trades paid net of sale
// proceeds in base currency.
func droppedCost(trades []Trade, base string, rates RateSource) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal)
	for _, t := range trades {
		gross := t.Quantity.Mul(t.Price)
		var cost decimal.Decimal
		switch t.Kind {
		case TradeBuy:
			cost = gross.Add(t.Fees)
		case TradeSell:
			cost = gross.Sub(t.Fees).Neg()
		default:
			continue
		}
		rate, _ := rates.Rate(t.Currency, base, t.Date)
		out[t.Symbol] = out[t.Symbol].Add(cost.Mul(rate))
	}
	return out
}

// flowsBetween sums the base-currency contribution of events in (after, upTo].
func flowsBetween(events []model.CashFlowEvent, after, upTo time.Time, base string, rates RateSource) decimal.Decimal {
	sum := decimal.Zero
	for _, e := range events {
		if !e.Date.After(after) {
			continue
		}
		if e.Date.After(upTo) {
			break
		}
		rate, _ := rates.Rate(e.Currency, base, e.Date)
		sum = sum.Add(e.Contribution().Mul(rate))
	}
	return sum
}

func round(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyPlaces)
}
