package request

import (
	"fmt"
	"strings"
	"time"

	"github.com/ndewijer/portfolio-analytics/internal/apperrors"
)

// DateLayout is the layout of every date parameter and body field.
const DateLayout = "2006-01-02"

// ParseDate parses a YYYY-MM-DD value as a UTC day.
// An empty value returns fallback.
func ParseDate(value string, fallback time.Time) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback, nil
	}
	d, err := time.Parse(DateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", apperrors.ErrInvalidDate, value)
	}
	return d, nil
}

// ParseDateRange parses start_date and end_date query values.
// Missing values take the given defaults; start after end is an error.
func ParseDateRange(startParam, endParam string, defaultStart, defaultEnd time.Time) (time.Time, time.Time, error) {
	start, err := ParseDate(startParam, defaultStart)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := ParseDate(endParam, defaultEnd)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if start.After(end) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: start %s is after end %s",
			apperrors.ErrInvalidDateRange, start.Format(DateLayout), end.Format(DateLayout))
	}
	return start, end, nil
}
