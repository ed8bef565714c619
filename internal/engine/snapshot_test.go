package engine

import (
	"testing"
	"time"

	"github.com/ndewijer/portfolio-analytics/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type snapshotFixture struct {
	txns     []model.Transaction
	deposits []model.CashDeposit
	rates    []model.ExchangeRate
	prices   []model.MarketPrice
	manual   []model.CashBalance
	fallback map[string]decimal.Decimal
}

func (f snapshotFixture) input(t *testing.T, date string, prev, first *model.Snapshot) SnapshotInput {
	t.Helper()
	l, _ := Normalize(owner, f.txns, f.deposits)
	c, err := NewConverter(f.rates)
	require.NoError(t, err)
	return SnapshotInput{
		OwnerID:      owner,
		Date:         day(t, date),
		BaseCurrency: "KWD",
		Ledger:       l,
		Rates:        c,
		Prices:       NewPriceBook(f.prices),
		Manual:       f.manual,
		Previous:      prev,
		First:         first,
		FallbackRates: f.fallback,
	}
}

func basicFixture(t *testing.T) snapshotFixture {
	return snapshotFixture{
		txns: []model.Transaction{
			deposit(t, "2024-01-01", "1000", "KWD"),
			buy(t, "2024-01-02", "AAA", "10", "50", "0", "KWD"),
			deposit(t, "2024-01-04", "200", "KWD"),
		},
		prices: []model.MarketPrice{
			price(t, "2024-01-03", "AAA", "60", "KWD"),
			price(t, "2024-01-05", "AAA", "65", "KWD"),
		},
	}
}

func TestBuildSnapshot_FirstSnapshotIsBaseline(t *testing.T) {
	f := basicFixture(t)

	v := BuildSnapshot(f.input(t, "2024-01-03", nil, nil))
	s := v.Snapshot

	assert.Equal(t, model.QualityOK, s.Quality)
	assert.Empty(t, s.Issues)
	assertDecimal(t, "600", s.MarketValue)
	assertDecimal(t, "500", s.CashValue)
	assertDecimal(t, "1100", s.PortfolioValue)
	assertDecimal(t, "0", s.AccumulatedCash)
	assertDecimal(t, "0", s.NetGain)
	assertDecimal(t, "1000", s.NetInvested)
	assertDecimal(t, "0", s.DailyMovement)
	assertDecimal(t, "0", s.ChangePercent)

	require.Len(t, v.Positions, 1)
	assertDecimal(t, "100", v.Positions[0].Unrealized)
	assertDecimal(t, "50", v.Positions[0].AvgCost)
}

func TestBuildSnapshot_CarriesAccumulatedCash(t *testing.T) {
	f := basicFixture(t)
	first := BuildSnapshot(f.input(t, "2024-01-03", nil, nil)).Snapshot

	s := BuildSnapshot(f.input(t, "2024-01-05", &first, &first)).Snapshot

	assertDecimal(t, "1350", s.PortfolioValue)
	assertDecimal(t, "200", s.AccumulatedCash)
	assertDecimal(t, "50", s.NetGain)
	assertDecimal(t, "1200", s.NetInvested)
	assertDecimal(t, "4.1667", s.ROIPercent)
	assertDecimal(t, "250", s.DailyMovement)
	assertDecimal(t, "22.7273", s.ChangePercent)
}

// WHY: re-running a day must upsert the same row, so the output has to be
// fully determined by the inputs.
func TestBuildSnapshot_Idempotent(t *testing.T) {
	f := basicFixture(t)
	f.txns = append(f.txns, buy(t, "2024-01-02", "NOPRICE", "1", "5", "0", "USD"))
	first := BuildSnapshot(f.input(t, "2024-01-03", nil, nil)).Snapshot

	a := BuildSnapshot(f.input(t, "2024-01-05", &first, &first))
	b := BuildSnapshot(f.input(t, "2024-01-05", &first, &first))

	assert.Equal(t, a, b)
	assert.True(t, a.Snapshot.Degraded())
}

func TestBuildSnapshot_MissingPriceUsesLastTradePrice(t *testing.T) {
	f := basicFixture(t)
	f.prices = nil

	v := BuildSnapshot(f.input(t, "2024-01-03", nil, nil))

	assert.Equal(t, model.QualityDegraded, v.Snapshot.Quality)
	assertDecimal(t, "500", v.Snapshot.MarketValue)
	require.Len(t, v.Snapshot.Issues, 1)
	assert.Equal(t, model.IssueMissingPrice, v.Snapshot.Issues[0].Kind)
	assert.Equal(t, "AAA", v.Snapshot.Issues[0].Symbol)
	assert.True(t, v.Positions[0].Degraded)
}

func TestBuildSnapshot_StalePriceIsFlagged(t *testing.T) {
	f := basicFixture(t)
	in := f.input(t, "2024-01-20", nil, nil)
	in.MaxPriceAge = 5 * 24 * time.Hour

	v := BuildSnapshot(in)

	assertDecimal(t, "650", v.Snapshot.MarketValue)
	require.Len(t, v.Snapshot.Issues, 1)
	assert.Equal(t, model.IssueStalePrice, v.Snapshot.Issues[0].Kind)
	assert.Equal(t, "2024-01-05", v.Snapshot.Issues[0].Date)
}

func TestBuildSnapshot_ManualCashOverridesLedger(t *testing.T) {
	f := basicFixture(t)
	f.manual = []model.CashBalance{{OwnerID: owner, Portfolio: "main", Balance: dec("100"), Currency: "USD"}}
	f.rates = []model.ExchangeRate{rate(t, "2024-01-01", "USD", "KWD", "0.3")}

	s := BuildSnapshot(f.input(t, "2024-01-03", nil, nil)).Snapshot

	assertDecimal(t, "30", s.CashValue)
	assertDecimal(t, "630", s.PortfolioValue)
}

func TestBuildSnapshot_MissingFxUsesConfiguredRate(t *testing.T) {
	f := snapshotFixture{
		txns:   []model.Transaction{buy(t, "2024-01-01", "US1", "10", "100", "0", "USD")},
		prices: []model.MarketPrice{price(t, "2024-01-02", "US1", "110", "USD")},
	}
	in := f.input(t, "2024-01-02", nil, nil)
	in.FallbackRates = map[string]decimal.Decimal{"USD": dec("0.3")}

	v := BuildSnapshot(in)

	assert.True(t, v.Snapshot.Degraded())
	assertDecimal(t, "330", v.Snapshot.MarketValue)
	assertDecimal(t, "-300", v.Snapshot.CashValue)
	for _, issue := range v.Snapshot.Issues {
		assert.Equal(t, model.IssueFallbackFxRate, issue.Kind)
	}
}

func TestBuildSnapshot_UnrealizedInBaseCurrency(t *testing.T) {
	f := snapshotFixture{
		txns: []model.Transaction{buy(t, "2024-01-01", "US1", "50", "100", "0", "USD")},
		rates: []model.ExchangeRate{
			rate(t, "2024-01-01", "USD", "KWD", "0.30"),
			rate(t, "2024-01-30", "USD", "KWD", "0.31"),
		},
		prices: []model.MarketPrice{price(t, "2024-01-30", "US1", "110", "USD")},
	}

	v := BuildSnapshot(f.input(t, "2024-01-30", nil, nil))

	require.Len(t, v.Positions, 1)
	p := v.Positions[0]
	assertDecimal(t, "205", p.Unrealized)
	assertDecimal(t, "1705", p.MarketValue)
	assertDecimal(t, "30", p.AvgCost)
	assertDecimal(t, "100", p.AvgCostLocal)
}

func TestBuildSnapshot_RejectedSymbolIsReported(t *testing.T) {
	f := basicFixture(t)
	f.txns = append(f.txns, sell(t, "2024-01-02", "GHOST", "1", "1", "0", "KWD"))

	v := BuildSnapshot(f.input(t, "2024-01-03", nil, nil))

	assert.True(t, v.Snapshot.Degraded())
	require.Len(t, v.Positions, 2)
	assert.Equal(t, "GHOST", v.Positions[1].Symbol)
	assert.NotEmpty(t, v.Positions[1].Error)
	assert.Equal(t, model.IssueDataIntegrity, v.Snapshot.Issues[0].Kind)
}

// WHY: an over-sell is only known from the day it happens. Days before it
// must value the symbol normally whatever history the ledger was loaded with.
func TestBuildSnapshot_LaterOverSellLeavesEarlierDaysAlone(t *testing.T) {
	f := basicFixture(t)
	f.txns = append(f.txns, sell(t, "2024-01-05", "AAA", "20", "10", "0", "KWD"))

	before := BuildSnapshot(f.input(t, "2024-01-03", nil, nil)).Snapshot
	assert.Equal(t, model.QualityOK, before.Quality)
	assertDecimal(t, "600", before.MarketValue)
	assertDecimal(t, "1100", before.PortfolioValue)

	after := BuildSnapshot(f.input(t, "2024-01-05", &before, &before))
	assert.True(t, after.Snapshot.Degraded())
	assertDecimal(t, "0", after.Snapshot.MarketValue)
	require.Len(t, after.Snapshot.Issues, 1)
	issue := after.Snapshot.Issues[0]
	assert.Equal(t, model.IssueDataIntegrity, issue.Kind)
	assert.Equal(t, "2024-01-05", issue.Date)
	assert.Contains(t, issue.Detail, "net cost 300 KWD left out of market value")
}

// WHY: a rate resolved for a later day must never convert an earlier flow.
func TestBuildSnapshot_EarlierFlowUsesConfiguredRateNotLaterOne(t *testing.T) {
	f := snapshotFixture{
		txns:     []model.Transaction{deposit(t, "2024-01-01", "1000", "USD")},
		rates:    []model.ExchangeRate{rate(t, "2024-01-05", "USD", "KWD", "0.5")},
		fallback: map[string]decimal.Decimal{"USD": dec("0.3")},
	}

	s := BuildSnapshot(f.input(t, "2024-01-10", nil, nil)).Snapshot

	assertDecimal(t, "500", s.CashValue)
	assertDecimal(t, "300", s.NetInvested)
	require.Len(t, s.Issues, 1)
	assert.Equal(t, model.IssueFallbackFxRate, s.Issues[0].Kind)
}

// WHY: deposits kept out of analysis are still capital the owner put in.
func TestBuildSnapshot_ExcludedDepositCountsAsInvested(t *testing.T) {
	f := basicFixture(t)
	f.deposits = []model.CashDeposit{
		{OwnerID: owner, Portfolio: "bank", Date: day(t, "2024-01-01"), Amount: dec("500"), Currency: "KWD"},
	}

	s := BuildSnapshot(f.input(t, "2024-01-03", nil, nil)).Snapshot

	assertDecimal(t, "1500", s.NetInvested)
	assertDecimal(t, "500", s.CashValue)
	assertDecimal(t, "1100", s.PortfolioValue)
}
