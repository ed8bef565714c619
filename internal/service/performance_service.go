package service

import (
	"time"

	"github.com/ndewijer/portfolio-analytics/internal/apperrors"
	"github.com/ndewijer/portfolio-analytics/internal/engine"
	"github.com/ndewijer/portfolio-analytics/internal/model"
	"github.com/ndewijer/portfolio-analytics/internal/repository"
)

// PerformanceService derives return and risk metrics from stored snapshots.
type PerformanceService struct {
	snapshotRepo *repository.SnapshotRepository
	loader       *DataLoaderService
	settings     ValuationSettings
}

// NewPerformanceService creates a new PerformanceService with the provided dependencies.
func NewPerformanceService(
	snapshotRepo *repository.SnapshotRepository,
	loader *DataLoaderService,
	settings ValuationSettings,
) *PerformanceService {
	return &PerformanceService{
		snapshotRepo: snapshotRepo,
		loader:       loader,
		settings:     settings,
	}
}

// GetPerformance computes MWRR, TWR, Sharpe, Sortino and maximum drawdown over
// the stored snapshots between startDate and endDate.
//
// External flows are converted to the base currency on their own dates. When a
// flow needs a fallback rate the report is marked degraded.
// Returns ErrNoSnapshots when the range holds no snapshot.
func (s *PerformanceService) GetPerformance(ownerID string, startDate, endDate time.Time) (model.PerformanceReport, error) {
	startDate, endDate = engine.Day(startDate), engine.Day(endDate)
	if startDate.After(endDate) {
		return model.PerformanceReport{}, apperrors.ErrInvalidDateRange
	}

	records, err := s.snapshotRepo.GetSnapshots(ownerID, startDate, endDate)
	if err != nil {
		return model.PerformanceReport{}, err
	}
	if len(records) == 0 {
		return model.PerformanceReport{}, apperrors.ErrNoSnapshots
	}

	data, err := s.loader.LoadForOwner(ownerID, endDate)
	if err != nil {
		return model.PerformanceReport{}, err
	}

	issues := &engine.IssueLog{}
	rates := engine.NewRateResolver(data.Rates, s.settings.FallbackRates, issues)
	flows := engine.BaseFlows(data.Ledger.Flows, s.settings.BaseCurrency, rates)

	snapshots := make([]model.Snapshot, len(records))
	for i, rec := range records {
		snapshots[i] = rec.Snapshot
	}

	report := engine.ComputePerformance(engine.PerformanceInput{
		OwnerID:      ownerID,
		Snapshots:    snapshots,
		Flows:        flows,
		RiskFreeRate: s.settings.RiskFreeRate,
	})
	if issues.Len() > 0 {
		report.Degraded = true
	}
	return report, nil
}
