package engine

import (
	"math"
	"sort"
	"time"

	"github.com/ndewijer/portfolio-analytics/internal/apperrors"
)

// Root finder bounds.
const (
	MinRate       = -0.9999
	MaxRate       = 10.0
	RateTolerance = 1e-9
	newtonSteps   = 50
	bisectSteps   = 200
	daysPerYear   = 365.0
)

// Epoch marks placeholder dates. Flows dated on or before it are not real.
var Epoch = time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)

// CashFlow is a dated amount seen from the investor: money put into the
// portfolio is negative, money taken out (and the closing value) positive.
type CashFlow struct {
	Date   time.Time
	Amount float64
}

// XIRR solves sum(CF_i / (1+r)^(days_i/365)) = 0 for r.
// Newton-Raphson runs first from a 10% guess; when it leaves the domain or
// stalls, bisection over (MinRate, MaxRate) takes over. Both loops are bounded.
func XIRR(flows []CashFlow) (float64, error) {
	cf := make([]CashFlow, 0, len(flows))
	for _, f := range flows {
		if !Day(f.Date).After(Epoch) || f.Amount == 0 {
			continue
		}
		cf = append(cf, CashFlow{Date: Day(f.Date), Amount: f.Amount})
	}
	sort.SliceStable(cf, func(i, j int) bool { return cf[i].Date.Before(cf[j].Date) })

	var pos, neg bool
	for _, f := range cf {
		pos = pos || f.Amount > 0
		neg = neg || f.Amount < 0
	}
	if !pos || !neg {
		return 0, &apperrors.NoConvergenceError{Reason: "cash flows need both a positive and a negative amount"}
	}
	if !cf[len(cf)-1].Date.After(cf[0].Date) {
		return 0, &apperrors.NoConvergenceError{Reason: "cash flows span no time"}
	}

	years := make([]float64, len(cf))
	for i, f := range cf {
		years[i] = f.Date.Sub(cf[0].Date).Hours() / 24 / daysPerYear
	}
	npv := func(r float64) float64 {
		var v float64
		for i, f := range cf {
			v += f.Amount / math.Pow(1+r, years[i])
		}
		return v
	}
	dnpv := func(r float64) float64 {
		var v float64
		for i, f := range cf {
			v -= years[i] * f.Amount / math.Pow(1+r, years[i]+1)
		}
		return v
	}

	r := 0.1
	for i := 0; i < newtonSteps; i++ {
		d := dnpv(r)
		if d == 0 || math.IsNaN(d) || math.IsInf(d, 0) {
			break
		}
		next := r - npv(r)/d
		if math.IsNaN(next) || next <= MinRate || next >= MaxRate {
			break
		}
		if math.Abs(next-r) < RateTolerance {
			return next, nil
		}
		r = next
	}

	lo, hi := MinRate, MaxRate
	flo, fhi := npv(lo), npv(hi)
	if math.IsNaN(flo) || math.IsNaN(fhi) || flo*fhi > 0 {
		return 0, &apperrors.NoConvergenceError{Iterations: newtonSteps, LastRate: r, Reason: "no sign change in rate domain"}
	}
	mid := lo
	for i := 0; i < bisectSteps; i++ {
		mid = (lo + hi) / 2
		fm := npv(mid)
		if fm == 0 || (hi-lo)/2 < RateTolerance {
			return mid, nil
		}
		if (fm < 0) == (flo < 0) {
			lo, flo = mid, fm
		} else {
			hi = mid
		}
	}
	return 0, &apperrors.NoConvergenceError{Iterations: newtonSteps + bisectSteps, LastRate: mid, Reason: "iteration limit reached"}
}
