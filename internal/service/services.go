package service

import (
	"database/sql"

	"github.com/ndewijer/portfolio-analytics/internal/config"
	"github.com/ndewijer/portfolio-analytics/internal/repository"
	"github.com/rs/zerolog"
)

// Services groups every service built on one database handle.
type Services struct {
	System      *SystemService
	Transaction *TransactionService
	MarketData  *MarketDataService
	Cash        *CashService
	Loader      *DataLoaderService
	Valuation   *ValuationService
	Performance *PerformanceService
}

// SettingsFromConfig converts the valuation configuration into service settings.
func SettingsFromConfig(cfg config.ValuationConfig) ValuationSettings {
	return ValuationSettings{
		BaseCurrency:  cfg.BaseCurrency,
		MaxPriceAge:   cfg.MaxPriceAge,
		FallbackRates: cfg.FallbackRates,
		RiskFreeRate:  cfg.RiskFreeRate,
	}
}

// NewServices creates the repositories and wires every service to them.
func NewServices(db *sql.DB, settings ValuationSettings, log zerolog.Logger) *Services {
	// Create repositories
	transactionRepo := repository.NewTransactionRepository(db)
	cashRepo := repository.NewCashRepository(db)
	marketRepo := repository.NewMarketRepository(db)
	snapshotRepo := repository.NewSnapshotRepository(db)

	loader := NewDataLoaderService(transactionRepo, cashRepo, marketRepo, log)

	return &Services{
		System:      NewSystemService(db),
		Transaction: NewTransactionService(transactionRepo),
		MarketData:  NewMarketDataService(marketRepo),
		Cash:        NewCashService(cashRepo),
		Loader:      loader,
		Valuation:   NewValuationService(db, snapshotRepo, transactionRepo, loader, settings, log),
		Performance: NewPerformanceService(snapshotRepo, loader, settings),
	}
}
