package engine

import (
	"fmt"
	"time"

	"github.com/ndewijer/portfolio-analytics/internal/apperrors"
)

// ValuePoint is a portfolio value on a date, in base currency.
type ValuePoint struct {
	Date  time.Time
	Value float64
}

// Flow is a net external contribution into the portfolio in base currency:
// deposits positive, withdrawals negative.
type Flow struct {
	Date   time.Time
	Amount float64
}

// SubPeriodReturns splits the value series at each point and returns, per
// sub-period, (end - flows) / start - 1 where flows are the contributions
// dated after the start and on or before the end. Sub-periods that start at a
// zero or negative value are skipped. The dates of the returned entries are
// the sub-period end dates.
func SubPeriodReturns(points []ValuePoint, flows []Flow) ([]float64, []time.Time) {
	var (
		returns []float64
		ends    []time.Time
	)
	for i := 1; i < len(points); i++ {
		start, end := points[i-1], points[i]
		if start.Value <= 0 {
			continue
		}
		var net float64
		for _, f := range flows {
			d := Day(f.Date)
			if !d.After(Epoch) {
				continue
			}
			if d.After(Day(start.Date)) && !d.After(Day(end.Date)) {
				net += f.Amount
			}
		}
		returns = append(returns, (end.Value-net)/start.Value-1)
		ends = append(ends, end.Date)
	}
	return returns, ends
}

// TWR chains the sub-period returns geometrically.
func TWR(points []ValuePoint, flows []Flow) (float64, error) {
	if len(points) < 2 {
		return 0, fmt.Errorf("%w: time-weighted return needs two valuations, got %d", apperrors.ErrInsufficientData, len(points))
	}
	returns, _ := SubPeriodReturns(points, flows)
	if len(returns) == 0 {
		return 0, fmt.Errorf("%w: no sub-period starts with a positive value", apperrors.ErrInsufficientData)
	}
	growth := 1.0
	for _, r := range returns {
		growth *= 1 + r
	}
	return growth - 1, nil
}
