package model

import "time"

// PerformanceReport holds the return metrics for an owner over a range.
// A nil metric is unavailable; Unavailable carries the reason keyed by metric name.
type PerformanceReport struct {
	OwnerID     string            `json:"ownerId"`
	StartDate   time.Time         `json:"startDate"`
	AsOfDate    time.Time         `json:"asOfDate"`
	MWRR        *float64          `json:"mwrr"`
	TWR         *float64          `json:"twr"`
	Sharpe      *float64          `json:"sharpe"`
	Sortino     *float64          `json:"sortino"`
	MaxDrawdown *float64          `json:"maxDrawdown"`
	Degraded    bool              `json:"degraded"`
	Unavailable map[string]string `json:"unavailable,omitempty"`
}
