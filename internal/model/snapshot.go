package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Data quality of a snapshot.
const (
	QualityOK       = "ok"
	QualityDegraded = "degraded"
)

// IssueKind names the reason a value was degraded.
type IssueKind string

const (
	IssueMissingPrice   IssueKind = "missing_price"
	IssueStalePrice     IssueKind = "stale_price"
	IssueMissingFxRate  IssueKind = "missing_fx_rate"
	IssueDataIntegrity  IssueKind = "data_integrity"
	IssueOverSell       IssueKind = "over_sell"
	IssueUnconvertedFx  IssueKind = "unconverted_fx"
	IssueFallbackFxRate IssueKind = "fallback_fx_rate"
)

// DataIssue records provenance for a degraded line of a valuation: which symbol
// or currency was affected and what was substituted.
type DataIssue struct {
	Kind     IssueKind `json:"kind"`
	Symbol   string    `json:"symbol,omitempty"`
	Currency string    `json:"currency,omitempty"`
	Date     string    `json:"date,omitempty"` // YYYY-MM-DD of the value actually used
	Detail   string    `json:"detail"`
}

// Snapshot is the persisted valuation of all of an owner's portfolios on one
// calendar date, in base currency. There is at most one per (OwnerID, Date).
type Snapshot struct {
	OwnerID         string          `json:"ownerId"`
	Date            time.Time       `json:"date"`
	BaseCurrency    string          `json:"baseCurrency"`
	PortfolioValue  decimal.Decimal `json:"portfolioValue"`  // market value + cash
	MarketValue     decimal.Decimal `json:"marketValue"`     // open positions only
	CashValue       decimal.Decimal `json:"cashValue"`       // all portfolio cash
	AccumulatedCash decimal.Decimal `json:"accumulatedCash"` // external flows since the baseline snapshot
	NetInvested     decimal.Decimal `json:"netInvested"`     // deposits - withdrawals to date
	NetGain         decimal.Decimal `json:"netGain"`
	ROIPercent      decimal.Decimal `json:"roiPercent"`
	DailyMovement   decimal.Decimal `json:"dailyMovement"`
	ChangePercent   decimal.Decimal `json:"changePercent"`
	Quality         string          `json:"quality"`
	Issues          []DataIssue     `json:"issues"`
}

// Degraded reports whether any line of the snapshot used substituted data.
func (s Snapshot) Degraded() bool {
	return s.Quality == QualityDegraded
}

// SnapshotRecord is a stored snapshot together with its storage metadata.
type SnapshotRecord struct {
	Snapshot
	CalculatedAt time.Time `json:"calculatedAt"`
}
