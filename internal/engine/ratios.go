package engine

import (
	"fmt"
	"math"
	"time"

	"github.com/ndewijer/portfolio-analytics/internal/apperrors"
	"gonum.org/v1/gonum/stat"
)

// PeriodsPerYear infers the sampling frequency of a series from its first and
// last dates.
func PeriodsPerYear(dates []time.Time) float64 {
	if len(dates) < 2 {
		return 0
	}
	span := Day(dates[len(dates)-1]).Sub(Day(dates[0])).Hours() / 24
	if span <= 0 {
		return 0
	}
	gap := span / float64(len(dates)-1)
	return daysPerYear / gap
}

// periodicRiskFree converts an annual risk-free rate to one period.
func periodicRiskFree(annual, periodsPerYear float64) float64 {
	return math.Pow(1+annual, 1/periodsPerYear) - 1
}

// Sharpe returns the annualised Sharpe ratio of periodic returns:
// mean excess return over its sample standard deviation, scaled by sqrt(periods).
func Sharpe(returns []float64, periodsPerYear, riskFree float64) (float64, error) {
	if len(returns) < 2 || periodsPerYear <= 0 {
		return 0, fmt.Errorf("%w: sharpe needs at least two returns", apperrors.ErrInsufficientData)
	}
	rf := periodicRiskFree(riskFree, periodsPerYear)
	excess := make([]float64, len(returns))
	for i, r := range returns {
		excess[i] = r - rf
	}
	mean, sd := stat.MeanStdDev(excess, nil)
	if sd == 0 || math.IsNaN(sd) {
		return 0, fmt.Errorf("%w: returns have no volatility", apperrors.ErrInsufficientData)
	}
	return mean / sd * math.Sqrt(periodsPerYear), nil
}

// Sortino is Sharpe with the downside deviation of excess returns below zero
// in place of the standard deviation.
func Sortino(returns []float64, periodsPerYear, riskFree float64) (float64, error) {
	if len(returns) < 2 || periodsPerYear <= 0 {
		return 0, fmt.Errorf("%w: sortino needs at least two returns", apperrors.ErrInsufficientData)
	}
	rf := periodicRiskFree(riskFree, periodsPerYear)
	excess := make([]float64, len(returns))
	var sq float64
	for i, r := range returns {
		excess[i] = r - rf
		if excess[i] < 0 {
			sq += excess[i] * excess[i]
		}
	}
	downside := math.Sqrt(sq / float64(len(excess)))
	if downside == 0 {
		return 0, fmt.Errorf("%w: no returns below the minimum acceptable return", apperrors.ErrInsufficientData)
	}
	return stat.Mean(excess, nil) / downside * math.Sqrt(periodsPerYear), nil
}

// MaxDrawdown is the largest peak-to-trough fall of the wealth index built by
// compounding returns, as a positive fraction.
func MaxDrawdown(returns []float64) float64 {
	wealth, peak, worst := 1.0, 1.0, 0.0
	for _, r := range returns {
		wealth *= 1 + r
		if wealth > peak {
			peak = wealth
		}
		if dd := (peak - wealth) / peak; dd > worst {
			worst = dd
		}
	}
	return worst
}
