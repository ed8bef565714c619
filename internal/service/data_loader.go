package service

import (
	"fmt"
	"sort"
	"time"

	"github.com/ndewijer/portfolio-analytics/internal/engine"
	"github.com/ndewijer/portfolio-analytics/internal/model"
	"github.com/ndewijer/portfolio-analytics/internal/repository"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// DataLoaderService centralizes the loading of everything a valuation needs:
// the owner's ledger rows, separately tracked deposits, manual cash balances,
// exchange rates and the prices of every symbol the owner ever traded.
type DataLoaderService struct {
	transactionRepo *repository.TransactionRepository
	cashRepo        *repository.CashRepository
	marketRepo      *repository.MarketRepository
	log             zerolog.Logger
}

// NewDataLoaderService creates a new DataLoaderService with the provided dependencies.
func NewDataLoaderService(
	transactionRepo *repository.TransactionRepository,
	cashRepo *repository.CashRepository,
	marketRepo *repository.MarketRepository,
	log zerolog.Logger,
) *DataLoaderService {
	return &DataLoaderService{
		transactionRepo: transactionRepo,
		cashRepo:        cashRepo,
		marketRepo:      marketRepo,
		log:             log.With().Str("component", "loader").Logger(),
	}
}

// OwnerData contains all inputs of the engine for one owner up to EndDate.
//
// Ledger is the normalized history. Symbols whose inventory is inconsistent
// over the whole history are absent from Ledger.Trades and listed in
// Ledger.Rejected; Ledger.AsOf re-checks them for an earlier date.
type OwnerData struct {
	OwnerID  string
	EndDate  time.Time
	Ledger   engine.Ledger
	Manual   []model.CashBalance
	Rates    *engine.Converter
	Prices   *engine.PriceBook
	Symbols  []string
	Rejected error
}

// LoadForOwner loads the complete history of an owner up to endDate.
//
// Data Loading Strategy:
//   - Loads the COMPLETE history from the first transaction to endDate, since
//     open lots and accumulated cash depend on every prior event
//   - Transactions, deposits, balances and rates are loaded concurrently
//   - Prices are loaded afterwards for the symbols found in the ledger
//
// A data integrity violation is not an error here: the affected symbols are
// kept out of the ledger and reported through OwnerData.Rejected.
func (s *DataLoaderService) LoadForOwner(ownerID string, endDate time.Time) (*OwnerData, error) {
	endDate = engine.Day(endDate)

	var (
		txns     []model.Transaction
		deposits []model.CashDeposit
		balances []model.CashBalance
		rates    []model.ExchangeRate
	)

	var g errgroup.Group
	g.Go(func() error {
		var err error
		txns, err = s.transactionRepo.GetTransactions(ownerID, endDate)
		if err != nil {
			return fmt.Errorf("failed to load transactions: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		deposits, err = s.cashRepo.GetDeposits(ownerID, endDate)
		if err != nil {
			return fmt.Errorf("failed to load cash deposits: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		balances, err = s.cashRepo.GetBalances(ownerID)
		if err != nil {
			return fmt.Errorf("failed to load cash balances: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		rates, err = s.marketRepo.GetExchangeRates(endDate)
		if err != nil {
			return fmt.Errorf("failed to load exchange rates: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	ledger, rejected := engine.Normalize(ownerID, txns, deposits)
	if rejected != nil {
		s.log.Warn().
			Err(rejected).
			Str("owner_id", ownerID).
			Int("rejected_symbols", len(ledger.Rejected)).
			Msg("Ledger has symbols with inconsistent inventory")
	}

	converter, err := engine.NewConverter(rates)
	if err != nil {
		// Invalid stored rows are skipped; the valid ones are still usable.
		s.log.Warn().Err(err).Msg("Skipped invalid exchange rates")
	}

	symbols := ledgerSymbols(ledger)
	prices, err := s.marketRepo.GetPrices(symbols, endDate)
	if err != nil {
		return nil, fmt.Errorf("failed to load market prices: %w", err)
	}

	return &OwnerData{
		OwnerID:  ownerID,
		EndDate:  endDate,
		Ledger:   ledger,
		Manual:   balances,
		Rates:    converter,
		Prices:   engine.NewPriceBook(prices),
		Symbols:  symbols,
		Rejected: rejected,
	}, nil
}

// ledgerSymbols returns the sorted set of symbols traded in the ledger,
// including rejected ones, which may still be held on earlier dates.
func ledgerSymbols(l engine.Ledger) []string {
	seen := make(map[string]bool)
	symbols := []string{}
	for _, t := range append(append([]engine.Trade{}, l.Trades...), l.Dropped...) {
		if !seen[t.Symbol] {
			seen[t.Symbol] = true
			symbols = append(symbols, t.Symbol)
		}
	}
	sort.Strings(symbols)
	return symbols
}
