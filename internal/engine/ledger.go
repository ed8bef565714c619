// Package engine holds the pure valuation and performance calculations.
// Nothing in this package touches storage; callers hand in transactions, rates
// and prices and receive values back.
package engine

import (
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/ndewijer/portfolio-analytics/internal/apperrors"
	"github.com/ndewijer/portfolio-analytics/internal/model"
	"github.com/shopspring/decimal"
)

// TradeKind classifies the events that move a symbol's inventory.
type TradeKind int

const (
	TradeBuy TradeKind = iota
	TradeSell
	TradeBonus
)

func (k TradeKind) String() string {
	switch k {
	case TradeBuy:
		return "buy"
	case TradeSell:
		return "sell"
	case TradeBonus:
		return "bonus"
	}
	return "unknown"
}

// Trade is a normalized inventory event. Seq is the position of the source row
// in the input and breaks ties between events on the same date.
type Trade struct {
	Seq       int
	Portfolio string
	Symbol    string
	Date      time.Time
	Kind      TradeKind
	Quantity  decimal.Decimal
	Price     decimal.Decimal
	Fees      decimal.Decimal
	Currency  string
}

// CashMovement is a signed change of a portfolio's cash in one currency.
type CashMovement struct {
	Date      time.Time
	Portfolio string
	Currency  string
	Amount    decimal.Decimal
}

// Ledger is the normalized view of one owner's records.
type Ledger struct {
	OwnerID   string
	Trades    []Trade
	Dividends []model.CashFlowEvent
	Flows     []model.CashFlowEvent
	Cash      []CashMovement
	// Excluded holds deposits kept out of cash and return calculations. They
	// still count as invested capital.
	Excluded []model.CashFlowEvent
	// Rejected lists symbols whose trades were dropped because their
	// inventory went negative.
	Rejected map[string]*apperrors.DataIntegrityError
	// Dropped holds the trades of the rejected symbols.
	Dropped []Trade

	all []Trade
}

// Normalize turns raw transactions and separately tracked deposits into trade,
// dividend and external flow streams. Trades are ordered by date and then by
// input order.
//
// A symbol whose sells exceed what it held at that point is reported with a
// DataIntegrityError and its trades are left out of the ledger. The returned
// Ledger is usable even when the error is non-nil. Deposits not included in
// analysis only land in Excluded.
func Normalize(ownerID string, txns []model.Transaction, deposits []model.CashDeposit) (Ledger, error) {
	l := Ledger{OwnerID: ownerID, Rejected: make(map[string]*apperrors.DataIntegrityError)}

	for i, t := range txns {
		if ownerID != "" && t.OwnerID != "" && t.OwnerID != ownerID {
			continue
		}
		date := Day(t.Date)
		ccy := normalizeCurrency(t.Currency)
		symbol := strings.TrimSpace(t.Symbol)

		switch {
		case t.Category == model.CategoryFlowIn || t.Type == model.TransactionDeposit:
			l.addFlow(date, t.Portfolio, ccy, t.CashAmount(), model.FlowDeposit)
			continue
		case t.Category == model.CategoryFlowOut || t.Type == model.TransactionWithdrawal:
			l.addFlow(date, t.Portfolio, ccy, t.CashAmount(), model.FlowWithdrawal)
			continue
		}

		switch t.Type {
		case model.TransactionBuy:
			if t.Quantity.IsPositive() {
				l.Trades = append(l.Trades, Trade{
					Seq: i, Portfolio: t.Portfolio, Symbol: symbol, Date: date, Kind: TradeBuy,
					Quantity: t.Quantity, Price: t.Price, Fees: t.Fees, Currency: ccy,
				})
				l.addCash(date, t.Portfolio, ccy, t.Quantity.Mul(t.Price).Add(t.Fees).Neg())
			}
		case model.TransactionSell:
			if t.Quantity.IsPositive() {
				l.Trades = append(l.Trades, Trade{
					Seq: i, Portfolio: t.Portfolio, Symbol: symbol, Date: date, Kind: TradeSell,
					Quantity: t.Quantity, Price: t.Price, Fees: t.Fees, Currency: ccy,
				})
				l.addCash(date, t.Portfolio, ccy, t.Quantity.Mul(t.Price).Sub(t.Fees))
			}
		case model.TransactionBonus:
			qty := t.Quantity
			if !qty.IsPositive() {
				qty = t.BonusShares
			}
			if qty.IsPositive() {
				l.Trades = append(l.Trades, Trade{
					Seq: i, Portfolio: t.Portfolio, Symbol: symbol, Date: date, Kind: TradeBonus,
					Quantity: qty, Currency: ccy,
				})
			}
			continue
		case model.TransactionDividend:
			amount := t.CashDividend
			if !amount.IsPositive() {
				amount = t.CashAmount()
			}
			l.addDividend(date, t.Portfolio, symbol, ccy, amount)
			if t.BonusShares.IsPositive() {
				l.Trades = append(l.Trades, Trade{
					Seq: i, Portfolio: t.Portfolio, Symbol: symbol, Date: date, Kind: TradeBonus,
					Quantity: t.BonusShares, Currency: ccy,
				})
			}
			continue
		}

		// Buy and sell rows may carry bonus shares or a cash dividend alongside the trade.
		if t.BonusShares.IsPositive() {
			l.Trades = append(l.Trades, Trade{
				Seq: i, Portfolio: t.Portfolio, Symbol: symbol, Date: date, Kind: TradeBonus,
				Quantity: t.BonusShares, Currency: ccy,
			})
		}
		if t.CashDividend.IsPositive() {
			l.addDividend(date, t.Portfolio, symbol, ccy, t.CashDividend)
		}
	}

	for _, d := range deposits {
		if d.Amount.IsZero() {
			continue
		}
		if ownerID != "" && d.OwnerID != "" && d.OwnerID != ownerID {
			continue
		}
		kind := model.FlowDeposit
		if d.Amount.IsNegative() {
			kind = model.FlowWithdrawal
		}
		if !d.IncludeInAnalysis {
			l.Excluded = append(l.Excluded, model.CashFlowEvent{
				Date: Day(d.Date), Amount: d.Amount.Abs(), Currency: normalizeCurrency(d.Currency),
				Kind: kind, Portfolio: d.Portfolio,
			})
			continue
		}
		l.addFlow(Day(d.Date), d.Portfolio, normalizeCurrency(d.Currency), d.Amount.Abs(), kind)
	}

	sort.SliceStable(l.Trades, func(i, j int) bool {
		if !l.Trades[i].Date.Equal(l.Trades[j].Date) {
			return l.Trades[i].Date.Before(l.Trades[j].Date)
		}
		return l.Trades[i].Seq < l.Trades[j].Seq
	})
	sortEvents(l.Flows)
	sortEvents(l.Dividends)
	sortEvents(l.Excluded)
	sort.SliceStable(l.Cash, func(i, j int) bool { return l.Cash[i].Date.Before(l.Cash[j].Date) })

	l.all = l.Trades
	l.Trades, l.Dropped, l.Rejected = checkInventory(l.all)
	return l, joinRejected(l.Rejected)
}

// AsOf returns the ledger as it stood at the end of date: the inventory check
// only sees trades up to date, so a symbol over-sold later is still held.
// Ledgers not built by Normalize are returned unchanged.
func (l Ledger) AsOf(date time.Time) Ledger {
	if l.all == nil {
		return l
	}
	date = Day(date)
	n := sort.Search(len(l.all), func(i int) bool { return l.all[i].Date.After(date) })
	out := l
	out.Trades, out.Dropped, out.Rejected = checkInventory(l.all[:n])
	return out
}

// checkInventory walks trades in order and splits off every symbol whose
// running quantity would go negative.
func checkInventory(trades []Trade) (kept, dropped []Trade, rejected map[string]*apperrors.DataIntegrityError) {
	rejected = make(map[string]*apperrors.DataIntegrityError)
	held := make(map[string]decimal.Decimal)
	for _, t := range trades {
		if _, bad := rejected[t.Symbol]; bad {
			continue
		}
		switch t.Kind {
		case TradeBuy, TradeBonus:
			held[t.Symbol] = held[t.Symbol].Add(t.Quantity)
		case TradeSell:
			if t.Quantity.GreaterThan(held[t.Symbol]) {
				rejected[t.Symbol] = &apperrors.DataIntegrityError{
					Symbol:    t.Symbol,
					Date:      t.Date,
					Available: held[t.Symbol],
					Requested: t.Quantity,
				}
				continue
			}
			held[t.Symbol] = held[t.Symbol].Sub(t.Quantity)
		}
	}
	if len(rejected) == 0 {
		return trades, nil, rejected
	}

	kept = make([]Trade, 0, len(trades))
	for _, t := range trades {
		if _, bad := rejected[t.Symbol]; bad {
			dropped = append(dropped, t)
			continue
		}
		kept = append(kept, t)
	}
	return kept, dropped, rejected
}

func joinRejected(rejected map[string]*apperrors.DataIntegrityError) error {
	if len(rejected) == 0 {
		return nil
	}
	symbols := make([]string, 0, len(rejected))
	for s := range rejected {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)
	errs := make([]error, 0, len(symbols))
	for _, s := range symbols {
		errs = append(errs, rejected[s])
	}
	return errors.Join(errs...)
}

func (l *Ledger) addFlow(date time.Time, portfolio, ccy string, amount decimal.Decimal, kind model.CashFlowKind) {
	if amount.IsZero() {
		return
	}
	l.Flows = append(l.Flows, model.CashFlowEvent{
		Date: date, Amount: amount, Currency: ccy, Kind: kind, Portfolio: portfolio,
	})
	if kind == model.FlowWithdrawal {
		amount = amount.Neg()
	}
	l.addCash(date, portfolio, ccy, amount)
}

func (l *Ledger) addDividend(date time.Time, portfolio, symbol, ccy string, amount decimal.Decimal) {
	if !amount.IsPositive() {
		return
	}
	l.Dividends = append(l.Dividends, model.CashFlowEvent{
		Date: date, Amount: amount, Currency: ccy, Kind: model.FlowDividendCash,
		Portfolio: portfolio, Symbol: symbol,
	})
	l.addCash(date, portfolio, ccy, amount)
}

func (l *Ledger) addCash(date time.Time, portfolio, ccy string, amount decimal.Decimal) {
	l.Cash = append(l.Cash, CashMovement{Date: date, Portfolio: portfolio, Currency: ccy, Amount: amount})
}

// CashKey identifies one cash line of a portfolio.
type CashKey struct {
	Portfolio string
	Currency  string
}

// CashAsOf sums the ledger cash movements dated on or before asOf.
func (l Ledger) CashAsOf(asOf time.Time) map[CashKey]decimal.Decimal {
	asOf = Day(asOf)
	out := make(map[CashKey]decimal.Decimal)
	for _, m := range l.Cash {
		if m.Date.After(asOf) {
			break
		}
		k := CashKey{Portfolio: m.Portfolio, Currency: m.Currency}
		out[k] = out[k].Add(m.Amount)
	}
	return out
}

// LastTradePrice returns the most recent non-zero buy or sell price recorded
// for symbol on or before asOf.
func (l Ledger) LastTradePrice(symbol string, asOf time.Time) (decimal.Decimal, time.Time, bool) {
	asOf = Day(asOf)
	var (
		price decimal.Decimal
		date  time.Time
		found bool
	)
	for _, t := range l.Trades {
		if t.Date.After(asOf) {
			break
		}
		if t.Symbol != symbol || t.Kind == TradeBonus || !t.Price.IsPositive() {
			continue
		}
		price, date, found = t.Price, t.Date, true
	}
	return price, date, found
}

func sortEvents(events []model.CashFlowEvent) {
	sort.SliceStable(events, func(i, j int) bool { return events[i].Date.Before(events[j].Date) })
}

// Day truncates t to its calendar date in UTC, keeping the date as written.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func normalizeCurrency(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
