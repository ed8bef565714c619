package engine

import (
	"errors"
	"testing"

	"github.com/ndewijer/portfolio-analytics/internal/apperrors"
	"github.com/ndewijer/portfolio-analytics/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize_OrdersTradesByDateThenInputOrder(t *testing.T) {
	txns := []model.Transaction{
		buy(t, "2024-01-05", "AAA", "1", "10", "0", "KWD"),
		buy(t, "2024-01-01", "AAA", "2", "10", "0", "KWD"),
		sell(t, "2024-01-05", "AAA", "1", "11", "0", "KWD"),
		buy(t, "2024-01-05", "BBB", "3", "5", "0", "KWD"),
	}

	l, err := Normalize(owner, txns, nil)
	require.NoError(t, err)
	require.Len(t, l.Trades, 4)

	assert.Equal(t, 1, l.Trades[0].Seq)
	assert.Equal(t, 0, l.Trades[1].Seq)
	assert.Equal(t, 2, l.Trades[2].Seq)
	assert.Equal(t, 3, l.Trades[3].Seq)
}

func TestNormalize_SplitsStreams(t *testing.T) {
	withdrawal := deposit(t, "2024-02-01", "200", "KWD")
	withdrawal.Type = model.TransactionWithdrawal
	withdrawal.Category = model.CategoryFlowOut

	flaggedBuy := buy(t, "2024-01-03", "", "0", "0", "0", "KWD")
	flaggedBuy.Category = model.CategoryFlowIn
	flaggedBuy.Amount = dec("50")

	div := model.Transaction{
		OwnerID: owner, Portfolio: "main", Symbol: "AAA", Date: day(t, "2024-03-01"),
		Type: model.TransactionDividend, CashDividend: dec("7.5"), Currency: "KWD",
	}
	bonusOnBuy := buy(t, "2024-01-02", "AAA", "10", "10", "0", "KWD")
	bonusOnBuy.BonusShares = dec("2")

	txns := []model.Transaction{
		deposit(t, "2024-01-01", "1000", "KWD"),
		bonusOnBuy,
		flaggedBuy,
		withdrawal,
		div,
	}
	deposits := []model.CashDeposit{
		{OwnerID: owner, Portfolio: "main", Date: day(t, "2024-01-10"), Amount: dec("300"), Currency: "USD", IncludeInAnalysis: true},
		{OwnerID: owner, Portfolio: "main", Date: day(t, "2024-01-11"), Amount: dec("-100"), Currency: "USD", IncludeInAnalysis: true},
		{OwnerID: owner, Portfolio: "bank", Date: day(t, "2024-01-12"), Amount: dec("999"), Currency: "USD", IncludeInAnalysis: false},
	}

	l, err := Normalize(owner, txns, deposits)
	require.NoError(t, err)

	require.Len(t, l.Trades, 2)
	assert.Equal(t, TradeBuy, l.Trades[0].Kind)
	assert.Equal(t, TradeBonus, l.Trades[1].Kind)
	assertDecimal(t, "2", l.Trades[1].Quantity)

	require.Len(t, l.Flows, 5)
	kinds := make([]model.CashFlowKind, len(l.Flows))
	for i, f := range l.Flows {
		kinds[i] = f.Kind
	}
	assert.Equal(t, []model.CashFlowKind{
		model.FlowDeposit, model.FlowDeposit, model.FlowDeposit, model.FlowWithdrawal, model.FlowWithdrawal,
	}, kinds)
	assertDecimal(t, "50", l.Flows[1].Amount)

	require.Len(t, l.Dividends, 1)
	assertDecimal(t, "7.5", l.Dividends[0].Amount)
	assert.Equal(t, "AAA", l.Dividends[0].Symbol)

	require.Len(t, l.Excluded, 1)
	assertDecimal(t, "999", l.Excluded[0].Amount)
	assert.Equal(t, "bank", l.Excluded[0].Portfolio)
	for k := range l.CashAsOf(day(t, "2024-12-31")) {
		assert.NotEqual(t, "bank", k.Portfolio)
	}
}

// WHY: the inventory check must only see trades up to the valuation date.
func TestLedger_AsOf(t *testing.T) {
	l, err := Normalize(owner, []model.Transaction{
		buy(t, "2024-01-02", "AAA", "10", "10", "0", "KWD"),
		sell(t, "2024-01-05", "AAA", "20", "10", "0", "KWD"),
		buy(t, "2024-01-03", "BBB", "1", "5", "0", "KWD"),
	}, nil)
	require.Error(t, err)
	assert.Contains(t, l.Rejected, "AAA")
	require.Len(t, l.Dropped, 2)

	early := l.AsOf(day(t, "2024-01-04"))
	assert.Empty(t, early.Rejected)
	assert.Empty(t, early.Dropped)
	require.Len(t, early.Trades, 2)
	assert.Equal(t, "AAA", early.Trades[0].Symbol)

	late := l.AsOf(day(t, "2024-01-05"))
	assert.Contains(t, late.Rejected, "AAA")
	require.Len(t, late.Trades, 1)
	assert.Equal(t, "BBB", late.Trades[0].Symbol)
}

func TestNormalize_CashAsOf(t *testing.T) {
	txns := []model.Transaction{
		deposit(t, "2024-01-01", "1000", "KWD"),
		buy(t, "2024-01-02", "AAA", "10", "50", "1", "KWD"),
		sell(t, "2024-01-03", "AAA", "5", "60", "1", "KWD"),
	}
	l, err := Normalize(owner, txns, nil)
	require.NoError(t, err)

	key := CashKey{Portfolio: "main", Currency: "KWD"}
	assertDecimal(t, "1000", l.CashAsOf(day(t, "2024-01-01"))[key])
	assertDecimal(t, "499", l.CashAsOf(day(t, "2024-01-02"))[key])
	assertDecimal(t, "798", l.CashAsOf(day(t, "2024-01-03"))[key])
}

// WHY: a sell without enough prior inventory is a data error that must be
// reported for that symbol, without hiding the rest of the ledger.
func TestNormalize_NegativeInventoryIsReported(t *testing.T) {
	txns := []model.Transaction{
		sell(t, "2024-01-01", "GHOST", "5", "10", "0", "KWD"),
		buy(t, "2024-01-02", "GHOST", "5", "10", "0", "KWD"),
		buy(t, "2024-01-02", "OK", "5", "10", "0", "KWD"),
	}

	l, err := Normalize(owner, txns, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrDataIntegrity))

	var die *apperrors.DataIntegrityError
	require.True(t, errors.As(err, &die))
	assert.Equal(t, "GHOST", die.Symbol)

	require.Len(t, l.Trades, 1)
	assert.Equal(t, "OK", l.Trades[0].Symbol)
	assert.Contains(t, l.Rejected, "GHOST")
}

func TestNormalize_BonusCoversSell(t *testing.T) {
	bonus := model.Transaction{
		OwnerID: owner, Portfolio: "main", Symbol: "AAA", Date: day(t, "2024-01-02"),
		Type: model.TransactionBonus, BonusShares: dec("5"), Currency: "KWD",
	}
	txns := []model.Transaction{
		buy(t, "2024-01-01", "AAA", "10", "10", "0", "KWD"),
		bonus,
		sell(t, "2024-01-03", "AAA", "15", "12", "0", "KWD"),
	}

	_, err := Normalize(owner, txns, nil)
	assert.NoError(t, err)
}

func TestNormalize_IgnoresOtherOwners(t *testing.T) {
	other := buy(t, "2024-01-01", "AAA", "1", "1", "0", "KWD")
	other.OwnerID = "22222222-2222-2222-2222-222222222222"

	l, err := Normalize(owner, []model.Transaction{other}, nil)
	require.NoError(t, err)
	assert.Empty(t, l.Trades)
}

func TestLedger_LastTradePrice(t *testing.T) {
	l, err := Normalize(owner, []model.Transaction{
		buy(t, "2024-01-01", "AAA", "10", "10", "0", "KWD"),
		sell(t, "2024-01-05", "AAA", "5", "12", "0", "KWD"),
	}, nil)
	require.NoError(t, err)

	p, at, ok := l.LastTradePrice("AAA", day(t, "2024-01-04"))
	require.True(t, ok)
	assertDecimal(t, "10", p)
	assert.Equal(t, day(t, "2024-01-01"), at)

	p, _, _ = l.LastTradePrice("AAA", day(t, "2024-02-01"))
	assertDecimal(t, "12", p)

	_, _, ok = l.LastTradePrice("BBB", day(t, "2024-02-01"))
	assert.False(t, ok)
}
