package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Lot is an open quantity of a symbol acquired on Date.
// UnitCost is in the symbol's trading currency; BaseUnitCost is the same cost
// converted at the acquisition date's rate.
type Lot struct {
	Symbol       string          `json:"symbol"`
	Date         time.Time       `json:"date"`
	Quantity     decimal.Decimal `json:"quantity"`
	UnitCost     decimal.Decimal `json:"unitCost"`
	BaseUnitCost decimal.Decimal `json:"baseUnitCost"`
	Bonus        bool            `json:"bonus"`
}

// RealizedSlice is the part of a sell matched against one lot.
type RealizedSlice struct {
	Symbol       string          `json:"symbol"`
	SellDate     time.Time       `json:"sellDate"`
	LotDate      time.Time       `json:"lotDate"`
	Quantity     decimal.Decimal `json:"quantity"`
	CostBasis    decimal.Decimal `json:"costBasis"`    // local currency
	Proceeds     decimal.Decimal `json:"proceeds"`     // local currency, net of prorated fees
	RealizedPnL  decimal.Decimal `json:"realizedPnl"`  // local currency
	BaseRealized decimal.Decimal `json:"baseRealized"` // base currency
}

// PositionReport is the per-symbol valuation handed to the report layer.
// Money fields other than AvgCostLocal are in base currency.
type PositionReport struct {
	Symbol       string          `json:"symbol"`
	Currency     string          `json:"currency"`
	OpenQuantity decimal.Decimal `json:"openQty"`
	AvgCostLocal decimal.Decimal `json:"avgCostLocal"`
	AvgCost      decimal.Decimal `json:"avgCost"`
	Price        decimal.Decimal `json:"price"`
	MarketValue  decimal.Decimal `json:"marketValue"`
	Unrealized   decimal.Decimal `json:"unrealizedPnl"`
	Realized     decimal.Decimal `json:"realizedPnlToDate"`
	Degraded     bool            `json:"degraded"`
	Error        string          `json:"error,omitempty"`
}
