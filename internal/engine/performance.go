package engine

import (
	"sort"
	"time"

	"github.com/ndewijer/portfolio-analytics/internal/model"
)

// Metric names used as keys of PerformanceReport.Unavailable.
const (
	MetricMWRR        = "mwrr"
	MetricTWR         = "twr"
	MetricSharpe      = "sharpe"
	MetricSortino     = "sortino"
	MetricMaxDrawdown = "max_drawdown"
)

// PerformanceInput is a snapshot series and the external flows around it.
type PerformanceInput struct {
	OwnerID   string
	Snapshots []model.Snapshot
	// Flows are net external contributions in base currency.
	Flows        []Flow
	RiskFreeRate float64
}

// ComputePerformance derives the return metrics of a snapshot series. A metric
// that cannot be computed is left nil and its reason is recorded; it is never
// reported as zero.
func ComputePerformance(in PerformanceInput) model.PerformanceReport {
	report := model.PerformanceReport{OwnerID: in.OwnerID, Unavailable: make(map[string]string)}

	snaps := make([]model.Snapshot, len(in.Snapshots))
	copy(snaps, in.Snapshots)
	sort.SliceStable(snaps, func(i, j int) bool { return snaps[i].Date.Before(snaps[j].Date) })

	flows := make([]Flow, 0, len(in.Flows))
	for _, f := range in.Flows {
		if Day(f.Date).After(Epoch) && f.Amount != 0 {
			flows = append(flows, Flow{Date: Day(f.Date), Amount: f.Amount})
		}
	}

	if len(snaps) == 0 {
		for _, m := range []string{MetricMWRR, MetricTWR, MetricSharpe, MetricSortino, MetricMaxDrawdown} {
			report.Unavailable[m] = "no snapshots in range"
		}
		return report
	}

	first, last := snaps[0], snaps[len(snaps)-1]
	report.StartDate, report.AsOfDate = Day(first.Date), Day(last.Date)

	points := make([]ValuePoint, len(snaps))
	dates := make([]time.Time, len(snaps))
	for i, s := range snaps {
		points[i] = ValuePoint{Date: Day(s.Date), Value: s.PortfolioValue.InexactFloat64()}
		dates[i] = Day(s.Date)
		report.Degraded = report.Degraded || s.Degraded()
	}

	// The opening value is the first contribution of the window. Flows on the
	// opening date are already inside that value.
	cash := []CashFlow{{Date: points[0].Date, Amount: -points[0].Value}}
	for _, f := range flows {
		if f.Date.After(points[0].Date) && !f.Date.After(report.AsOfDate) {
			cash = append(cash, CashFlow{Date: f.Date, Amount: -f.Amount})
		}
	}
	cash = append(cash, CashFlow{Date: report.AsOfDate, Amount: points[len(points)-1].Value})
	if r, err := XIRR(cash); err != nil {
		report.Unavailable[MetricMWRR] = err.Error()
	} else {
		report.MWRR = &r
	}

	if r, err := TWR(points, flows); err != nil {
		report.Unavailable[MetricTWR] = err.Error()
	} else {
		report.TWR = &r
	}

	returns, _ := SubPeriodReturns(points, flows)
	ppy := PeriodsPerYear(dates)
	if v, err := Sharpe(returns, ppy, in.RiskFreeRate); err != nil {
		report.Unavailable[MetricSharpe] = err.Error()
	} else {
		report.Sharpe = &v
	}
	if v, err := Sortino(returns, ppy, in.RiskFreeRate); err != nil {
		report.Unavailable[MetricSortino] = err.Error()
	} else {
		report.Sortino = &v
	}
	if len(returns) > 0 {
		dd := MaxDrawdown(returns)
		report.MaxDrawdown = &dd
	} else {
		report.Unavailable[MetricMaxDrawdown] = "no sub-period returns"
	}

	if len(report.Unavailable) == 0 {
		report.Unavailable = nil
	}
	return report
}

// BaseFlows converts external flow events into base-currency contributions.
// Rates are resolved through rates, so missing rates degrade rather than fail.
func BaseFlows(events []model.CashFlowEvent, base string, rates RateSource) []Flow {
	out := make([]Flow, 0, len(events))
	for _, e := range events {
		if !e.IsExternal() {
			continue
		}
		rate, err := rates.Rate(e.Currency, base, e.Date)
		if err != nil {
			continue
		}
		out = append(out, Flow{Date: Day(e.Date), Amount: e.Contribution().Mul(rate).InexactFloat64()})
	}
	return out
}
