package engine

import (
	"errors"
	"testing"

	"github.com/ndewijer/portfolio-analytics/internal/apperrors"
	"github.com/ndewijer/portfolio-analytics/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func matchAll(t *testing.T, txns []model.Transaction, rates []model.ExchangeRate, asOf string) []*Position {
	t.Helper()
	l, err := Normalize(owner, txns, nil)
	require.NoError(t, err)
	c, err := NewConverter(rates)
	require.NoError(t, err)
	positions, _ := MatchLots(l.Trades, day(t, asOf), c, "KWD")
	return positions
}

func TestMatchLots_FullSellRealizesExactly(t *testing.T) {
	// Setup
	txns := []model.Transaction{
		buy(t, "2024-01-01", "AAA", "100", "10.00", "0", "KWD"),
		sell(t, "2024-01-10", "AAA", "100", "12.00", "0", "KWD"),
	}

	// Execute
	positions := matchAll(t, txns, nil, "2024-01-10")

	// Assert
	require.Len(t, positions, 1)
	p := positions[0]
	require.NoError(t, p.Err)
	assertDecimal(t, "200", p.RealizedPnL())
	assertDecimal(t, "200", p.BaseRealizedPnL())
	assert.True(t, p.OpenQuantity().IsZero())
	assert.Empty(t, p.Lots)
}

func TestMatchLots_FeesReduceRealized(t *testing.T) {
	txns := []model.Transaction{
		buy(t, "2024-01-01", "AAA", "10", "10", "2", "KWD"),
		sell(t, "2024-01-10", "AAA", "10", "12", "3", "KWD"),
	}

	p := matchAll(t, txns, nil, "2024-01-10")[0]

	// qty * (sell - buy) - all fees
	assertDecimal(t, "15", p.RealizedPnL())
}

func TestMatchLots_ConsumesOldestLotsFirst(t *testing.T) {
	txns := []model.Transaction{
		buy(t, "2024-01-01", "AAA", "10", "10", "0", "KWD"),
		buy(t, "2024-01-02", "AAA", "10", "20", "0", "KWD"),
		sell(t, "2024-01-03", "AAA", "15", "30", "1.5", "KWD"),
	}

	p := matchAll(t, txns, nil, "2024-01-03")[0]

	require.Len(t, p.Realized, 2)
	assertDecimal(t, "10", p.Realized[0].Quantity)
	assertDecimal(t, "299", p.Realized[0].Proceeds)
	assertDecimal(t, "199", p.Realized[0].RealizedPnL)
	assertDecimal(t, "5", p.Realized[1].Quantity)
	assertDecimal(t, "49.5", p.Realized[1].RealizedPnL)

	require.Len(t, p.Lots, 1)
	assertDecimal(t, "5", p.Lots[0].Quantity)
	assertDecimal(t, "20", p.Lots[0].UnitCost)
	assertDecimal(t, "20", p.AverageCost())
}

func TestMatchLots_UnrealizedUsesAcquisitionRate(t *testing.T) {
	// Buy 50 @ 100 USD at 0.30, valued at 110 USD at 0.31.
	txns := []model.Transaction{buy(t, "2024-01-01", "US1", "50", "100", "0", "USD")}
	rates := []model.ExchangeRate{
		rate(t, "2024-01-01", "USD", "KWD", "0.30"),
		rate(t, "2024-01-30", "USD", "KWD", "0.31"),
	}

	p := matchAll(t, txns, rates, "2024-01-30")[0]
	require.NoError(t, p.Err)

	assertDecimal(t, "205", p.Unrealized(dec("110"), dec("0.31")))
	assertDecimal(t, "30", p.BaseAverageCost())
	assertDecimal(t, "100", p.AverageCost())
}

// WHY: bonus shares come in at zero cost, so the average cost per unit drops.
func TestMatchLots_BonusDilutesAverageCost(t *testing.T) {
	bonus := model.Transaction{
		OwnerID: owner, Portfolio: "main", Symbol: "AAA", Date: day(t, "2024-01-02"),
		Type: model.TransactionBonus, Quantity: dec("10"), Currency: "KWD",
	}
	txns := []model.Transaction{buy(t, "2024-01-01", "AAA", "10", "10", "0", "KWD"), bonus}

	p := matchAll(t, txns, nil, "2024-01-02")[0]

	assertDecimal(t, "20", p.OpenQuantity())
	assertDecimal(t, "5", p.AverageCost())
	assert.True(t, p.Lots[1].Bonus)
}

func TestMatchLots_OverSellIsIsolated(t *testing.T) {
	trades := []Trade{
		{Seq: 0, Symbol: "AAA", Date: day(t, "2024-01-01"), Kind: TradeBuy, Quantity: dec("5"), Price: dec("1"), Currency: "KWD"},
		{Seq: 1, Symbol: "BBB", Date: day(t, "2024-01-01"), Kind: TradeBuy, Quantity: dec("5"), Price: dec("1"), Currency: "KWD"},
		{Seq: 2, Symbol: "AAA", Date: day(t, "2024-01-02"), Kind: TradeSell, Quantity: dec("6"), Price: dec("1"), Currency: "KWD"},
	}
	c, _ := NewConverter(nil)

	positions, err := MatchLots(trades, day(t, "2024-01-02"), c, "KWD")

	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrOverSell))
	require.Len(t, positions, 2)
	assert.Error(t, positions[0].Err)
	assert.NoError(t, positions[1].Err)
	assertDecimal(t, "5", positions[1].OpenQuantity())
}

func TestMatchLots_MissingRateFailsSymbol(t *testing.T) {
	txns := []model.Transaction{
		buy(t, "2024-01-01", "US1", "1", "1", "0", "USD"),
		buy(t, "2024-01-01", "KW1", "1", "1", "0", "KWD"),
	}
	positions := matchAll(t, txns, nil, "2024-01-01")

	require.Len(t, positions, 2)
	assert.NoError(t, positions[0].Err)
	assert.True(t, errors.Is(positions[1].Err, apperrors.ErrMissingFxRate))
}

func TestMatchLots_IgnoresTradesAfterAsOf(t *testing.T) {
	txns := []model.Transaction{
		buy(t, "2024-01-01", "AAA", "10", "10", "0", "KWD"),
		sell(t, "2024-02-01", "AAA", "10", "12", "0", "KWD"),
	}

	p := matchAll(t, txns, nil, "2024-01-31")[0]
	assertDecimal(t, "10", p.OpenQuantity())
	assert.Empty(t, p.Realized)
}

// WHY: open quantity must always equal buys - sells + bonus and never go negative.
func TestMatchLots_ConservesQuantity(t *testing.T) {
	type step struct {
		kind TradeKind
		qty  string
	}
	steps := []step{
		{TradeBuy, "10"}, {TradeSell, "3"}, {TradeBonus, "1.5"}, {TradeBuy, "0.25"},
		{TradeSell, "8.75"}, {TradeBuy, "4"}, {TradeSell, "4"}, {TradeBonus, "2"}, {TradeSell, "1"},
	}

	c, _ := NewConverter(nil)
	var trades []Trade
	expected := decimal.Zero
	for i, s := range steps {
		trades = append(trades, Trade{
			Seq: i, Symbol: "AAA", Date: day(t, "2024-01-01").AddDate(0, 0, i), Kind: s.kind,
			Quantity: dec(s.qty), Price: dec("10"), Currency: "KWD",
		})
		if s.kind == TradeSell {
			expected = expected.Sub(dec(s.qty))
		} else {
			expected = expected.Add(dec(s.qty))
		}

		positions, err := MatchLots(trades, trades[i].Date, c, "KWD")
		require.NoError(t, err)
		got := positions[0].OpenQuantity()
		assert.Truef(t, got.Equal(expected), "step %d: want %s, got %s", i, expected, got)
		assert.False(t, got.IsNegative())
		for _, l := range positions[0].Lots {
			assert.True(t, l.Quantity.IsPositive())
		}
	}
}
