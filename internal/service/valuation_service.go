package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ndewijer/portfolio-analytics/internal/apperrors"
	"github.com/ndewijer/portfolio-analytics/internal/engine"
	"github.com/ndewijer/portfolio-analytics/internal/model"
	"github.com/ndewijer/portfolio-analytics/internal/repository"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
)

// ValuationSettings are the calculation inputs that come from configuration.
type ValuationSettings struct {
	BaseCurrency  string
	MaxPriceAge   time.Duration
	FallbackRates map[string]decimal.Decimal
	RiskFreeRate  float64
}

// ValuationService builds, stores and serves daily portfolio snapshots.
//
// Concurrent requests for the same owner and date share one build. Different
// builds for the same day converge on one stored row through the upsert.
type ValuationService struct {
	db              *sql.DB
	snapshotRepo    *repository.SnapshotRepository
	transactionRepo *repository.TransactionRepository
	loader          *DataLoaderService
	settings        ValuationSettings
	log             zerolog.Logger
	group           singleflight.Group
	now             func() time.Time
}

// NewValuationService creates a new ValuationService with the provided dependencies.
func NewValuationService(
	db *sql.DB,
	snapshotRepo *repository.SnapshotRepository,
	transactionRepo *repository.TransactionRepository,
	loader *DataLoaderService,
	settings ValuationSettings,
	log zerolog.Logger,
) *ValuationService {
	return &ValuationService{
		db:              db,
		snapshotRepo:    snapshotRepo,
		transactionRepo: transactionRepo,
		loader:          loader,
		settings:        settings,
		log:             log.With().Str("component", "valuation").Logger(),
		now:             time.Now,
	}
}

// BuildSnapshot values an owner on date and stores the result, replacing any
// snapshot already stored for that day. Rebuilding an unchanged day yields an
// identical snapshot.
func (s *ValuationService) BuildSnapshot(ctx context.Context, ownerID string, date time.Time) (engine.Valuation, error) {
	date = engine.Day(date)
	key := ownerID + "|" + date.Format(time.DateOnly)

	v, err, shared := s.group.Do(key, func() (any, error) {
		return s.buildAndStore(ctx, ownerID, date)
	})
	if err != nil {
		return engine.Valuation{}, err
	}
	if shared {
		s.log.Debug().Str("owner_id", ownerID).Time("date", date).Msg("Shared concurrent snapshot build")
	}
	return v.(engine.Valuation), nil
}

func (s *ValuationService) buildAndStore(ctx context.Context, ownerID string, date time.Time) (engine.Valuation, error) {
	val, err := s.PreviewSnapshot(ownerID, date)
	if err != nil {
		return engine.Valuation{}, err
	}

	if err := s.snapshotRepo.UpsertSnapshot(ctx, val.Snapshot, s.now().UTC()); err != nil {
		return engine.Valuation{}, err
	}

	s.logSnapshot(val.Snapshot)
	return val, nil
}

// PreviewSnapshot values an owner on date exactly as BuildSnapshot would,
// chaining from the stored snapshots before date, but stores nothing.
func (s *ValuationService) PreviewSnapshot(ownerID string, date time.Time) (engine.Valuation, error) {
	date = engine.Day(date)
	data, err := s.loader.LoadForOwner(ownerID, date)
	if err != nil {
		return engine.Valuation{}, err
	}

	prev, first, err := neighbours(s.snapshotRepo, ownerID, date)
	if err != nil {
		return engine.Valuation{}, err
	}
	return engine.BuildSnapshot(s.input(data, date, prev, first)), nil
}

// RebuildRange recomputes and stores one snapshot per day from startDate to
// endDate, oldest first, so that each day chains from the one before it.
// All writes happen in one database transaction. Snapshots after endDate are
// left as they are.
func (s *ValuationService) RebuildRange(ctx context.Context, ownerID string, startDate, endDate time.Time) ([]model.Snapshot, error) {
	startDate, endDate = engine.Day(startDate), engine.Day(endDate)
	if startDate.After(endDate) {
		return nil, apperrors.ErrInvalidDateRange
	}

	// The engine cuts every input at the snapshot date, including the
	// inventory check, so one load up to endDate serves every day of the range.
	data, err := s.loader.LoadForOwner(ownerID, endDate)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	repo := s.snapshotRepo.WithTx(tx)
	prev, first, err := neighbours(repo, ownerID, startDate)
	if err != nil {
		return nil, err
	}

	calculatedAt := s.now().UTC()
	snapshots := []model.Snapshot{}
	for d := startDate; !d.After(endDate); d = d.AddDate(0, 0, 1) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		snap := engine.BuildSnapshot(s.input(data, d, prev, first)).Snapshot
		if err := repo.UpsertSnapshot(ctx, snap, calculatedAt); err != nil {
			return nil, err
		}
		snapshots = append(snapshots, snap)

		prev = &snapshots[len(snapshots)-1]
		if first == nil {
			first = prev
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.log.Info().
		Str("owner_id", ownerID).
		Time("start", startDate).
		Time("end", endDate).
		Int("snapshots", len(snapshots)).
		Msg("Snapshot range rebuilt")
	return snapshots, nil
}

// SnapshotAllOwners builds the snapshot of date for every owner with recorded
// activity. A failing owner does not stop the others; all failures are returned
// joined.
func (s *ValuationService) SnapshotAllOwners(ctx context.Context, date time.Time) error {
	owners, err := s.transactionRepo.GetOwnerIDs()
	if err != nil {
		return fmt.Errorf("failed to list owners: %w", err)
	}

	var errs []error
	for _, ownerID := range owners {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if _, err := s.BuildSnapshot(ctx, ownerID, date); err != nil {
			s.log.Error().Err(err).Str("owner_id", ownerID).Msg("Snapshot failed")
			errs = append(errs, fmt.Errorf("owner %s: %w", ownerID, err))
		}
	}

	s.log.Info().
		Int("owners", len(owners)).
		Int("failed", len(errs)).
		Time("date", engine.Day(date)).
		Msg("Daily snapshots completed")
	return errors.Join(errs...)
}

// GetSnapshots returns the stored snapshots of an owner between startDate and
// endDate (both inclusive), oldest first.
func (s *ValuationService) GetSnapshots(ownerID string, startDate, endDate time.Time) ([]model.SnapshotRecord, error) {
	if startDate.After(endDate) {
		return nil, apperrors.ErrInvalidDateRange
	}
	return s.snapshotRepo.GetSnapshots(ownerID, engine.Day(startDate), engine.Day(endDate))
}

// GetPositions values every symbol of an owner on date without storing anything.
func (s *ValuationService) GetPositions(ownerID string, date time.Time) ([]model.PositionReport, error) {
	date = engine.Day(date)
	data, err := s.loader.LoadForOwner(ownerID, date)
	if err != nil {
		return nil, err
	}
	return engine.BuildSnapshot(s.input(data, date, nil, nil)).Positions, nil
}

// OwnerIDs returns every owner with recorded activity.
func (s *ValuationService) OwnerIDs() ([]string, error) {
	return s.transactionRepo.GetOwnerIDs()
}

// OldestActivity returns the date of an owner's first transaction, or the zero
// time when there is none.
func (s *ValuationService) OldestActivity(ownerID string) time.Time {
	return s.transactionRepo.GetOldestTransaction(ownerID)
}

func (s *ValuationService) input(data *OwnerData, date time.Time, prev, first *model.Snapshot) engine.SnapshotInput {
	return engine.SnapshotInput{
		OwnerID:       data.OwnerID,
		Date:          date,
		BaseCurrency:  s.settings.BaseCurrency,
		Ledger:        data.Ledger,
		Rates:         data.Rates,
		Prices:        data.Prices,
		Manual:        data.Manual,
		Previous:      prev,
		First:         first,
		MaxPriceAge:   s.settings.MaxPriceAge,
		FallbackRates: s.settings.FallbackRates,
	}
}

func (s *ValuationService) logSnapshot(snap model.Snapshot) {
	event := s.log.Info()
	if snap.Degraded() {
		event = s.log.Warn().Int("issues", len(snap.Issues))
	}
	event.
		Str("owner_id", snap.OwnerID).
		Time("date", snap.Date).
		Str("portfolio_value", snap.PortfolioValue.String()).
		Str("quality", snap.Quality).
		Msg("Snapshot stored")
}

// neighbours returns the latest and the earliest stored snapshot strictly
// before date. Either is nil when there is none.
func neighbours(repo *repository.SnapshotRepository, ownerID string, date time.Time) (*model.Snapshot, *model.Snapshot, error) {
	prev, err := repo.GetPreviousSnapshot(ownerID, date)
	if errors.Is(err, apperrors.ErrSnapshotNotFound) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load previous snapshot: %w", err)
	}

	first, err := repo.GetFirstSnapshot(ownerID, date)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load first snapshot: %w", err)
	}
	return &prev.Snapshot, &first.Snapshot, nil
}
