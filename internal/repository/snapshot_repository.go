package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ndewijer/portfolio-analytics/internal/apperrors"
	"github.com/ndewijer/portfolio-analytics/internal/model"
)

// SnapshotRepository provides data access methods for the portfolio_snapshot table.
type SnapshotRepository struct {
	db *sql.DB
	tx *sql.Tx
}

// NewSnapshotRepository creates a new repository instance.
func NewSnapshotRepository(db *sql.DB) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

// WithTx returns a new SnapshotRepository scoped to the provided transaction.
func (r *SnapshotRepository) WithTx(tx *sql.Tx) *SnapshotRepository {
	return &SnapshotRepository{
		db: r.db,
		tx: tx,
	}
}

func (r *SnapshotRepository) getQuerier() querier {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}

const snapshotColumns = `
	owner_id, date, base_currency, portfolio_value, market_value, cash_value,
	accumulated_cash, net_invested, net_gain, roi_percent, daily_movement,
	change_percent, quality, issues, calculated_at
`

// UpsertSnapshot writes the snapshot for (owner, date), replacing any existing row.
// The unique constraint on (owner_id, date) makes concurrent runs for the same
// day converge on one row instead of duplicating it.
func (r *SnapshotRepository) UpsertSnapshot(ctx context.Context, s model.Snapshot, calculatedAt time.Time) error {
	issues := s.Issues
	if issues == nil {
		issues = []model.DataIssue{}
	}
	issuesJSON, err := json.Marshal(issues)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot issues: %w", err)
	}

	query := `
		INSERT INTO portfolio_snapshot (id, ` + snapshotColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(owner_id, date) DO UPDATE SET
			base_currency = excluded.base_currency,
			portfolio_value = excluded.portfolio_value,
			market_value = excluded.market_value,
			cash_value = excluded.cash_value,
			accumulated_cash = excluded.accumulated_cash,
			net_invested = excluded.net_invested,
			net_gain = excluded.net_gain,
			roi_percent = excluded.roi_percent,
			daily_movement = excluded.daily_movement,
			change_percent = excluded.change_percent,
			quality = excluded.quality,
			issues = excluded.issues,
			calculated_at = excluded.calculated_at
	`
	_, err = r.getQuerier().ExecContext(ctx, query,
		uuid.New().String(),
		s.OwnerID,
		formatDate(s.Date),
		s.BaseCurrency,
		s.PortfolioValue,
		s.MarketValue,
		s.CashValue,
		s.AccumulatedCash,
		s.NetInvested,
		s.NetGain,
		s.ROIPercent,
		s.DailyMovement,
		s.ChangePercent,
		s.Quality,
		string(issuesJSON),
		formatTimestamp(calculatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert portfolio_snapshot: %w", err)
	}
	return nil
}

// GetSnapshot retrieves the snapshot of an owner on a date.
// Returns ErrSnapshotNotFound if none exists.
func (r *SnapshotRepository) GetSnapshot(ownerID string, date time.Time) (model.SnapshotRecord, error) {
	return r.getOne(`WHERE owner_id = ? AND date = ?`, ownerID, formatDate(date))
}

// GetPreviousSnapshot retrieves the latest snapshot dated strictly before date.
// Returns ErrSnapshotNotFound if there is none.
func (r *SnapshotRepository) GetPreviousSnapshot(ownerID string, date time.Time) (model.SnapshotRecord, error) {
	return r.getOne(`WHERE owner_id = ? AND date < ? ORDER BY date DESC LIMIT 1`, ownerID, formatDate(date))
}

// GetFirstSnapshot retrieves the earliest snapshot dated strictly before date.
// Returns ErrSnapshotNotFound if there is none.
func (r *SnapshotRepository) GetFirstSnapshot(ownerID string, date time.Time) (model.SnapshotRecord, error) {
	return r.getOne(`WHERE owner_id = ? AND date < ? ORDER BY date ASC LIMIT 1`, ownerID, formatDate(date))
}

func (r *SnapshotRepository) getOne(where string, args ...any) (model.SnapshotRecord, error) {
	query := `SELECT ` + snapshotColumns + ` FROM portfolio_snapshot ` + where
	rec, err := scanSnapshot(r.getQuerier().QueryRow(query, args...))
	if err == sql.ErrNoRows {
		return model.SnapshotRecord{}, apperrors.ErrSnapshotNotFound
	}
	return rec, err
}

// GetSnapshotHistory streams the snapshots of an owner between startDate and
// endDate (both inclusive), oldest first.
//
// The callback pattern lets the caller process records one at a time without
// loading a long history into memory. Returns an error if the query fails or
// if the callback returns an error.
func (r *SnapshotRepository) GetSnapshotHistory(
	ownerID string,
	startDate, endDate time.Time,
	callback func(record model.SnapshotRecord) error,
) error {
	query := `SELECT ` + snapshotColumns + `
		FROM portfolio_snapshot
		WHERE owner_id = ?
		AND date >= ?
		AND date <= ?
		ORDER BY date ASC
	`
	rows, err := r.getQuerier().Query(query, ownerID, formatDate(startDate), formatDate(endDate))
	if err != nil {
		return fmt.Errorf("failed to query portfolio_snapshot: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		rec, err := scanSnapshot(rows)
		if err != nil {
			return err
		}
		if err := callback(rec); err != nil {
			return err
		}
	}

	if err = rows.Err(); err != nil {
		return fmt.Errorf("error iterating rows: %w", err)
	}
	return nil
}

// GetSnapshots collects GetSnapshotHistory into a slice.
func (r *SnapshotRepository) GetSnapshots(ownerID string, startDate, endDate time.Time) ([]model.SnapshotRecord, error) {
	records := []model.SnapshotRecord{}
	err := r.GetSnapshotHistory(ownerID, startDate, endDate, func(rec model.SnapshotRecord) error {
		records = append(records, rec)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

func scanSnapshot(row rowScanner) (model.SnapshotRecord, error) {
	var (
		rec                      model.SnapshotRecord
		dateStr, calculatedAtStr string
		issuesJSON               string
	)
	err := row.Scan(
		&rec.OwnerID,
		&dateStr,
		&rec.BaseCurrency,
		&rec.PortfolioValue,
		&rec.MarketValue,
		&rec.CashValue,
		&rec.AccumulatedCash,
		&rec.NetInvested,
		&rec.NetGain,
		&rec.ROIPercent,
		&rec.DailyMovement,
		&rec.ChangePercent,
		&rec.Quality,
		&issuesJSON,
		&calculatedAtStr,
	)
	if err == sql.ErrNoRows {
		return rec, err
	}
	if err != nil {
		return rec, fmt.Errorf("failed to scan row: %w", err)
	}

	rec.Date, err = ParseTime(dateStr)
	if err != nil {
		return rec, fmt.Errorf("failed to parse date: %w", err)
	}
	rec.CalculatedAt, err = ParseTime(calculatedAtStr)
	if err != nil {
		return rec, fmt.Errorf("failed to parse calculated_at: %w", err)
	}
	rec.Issues = []model.DataIssue{}
	if err := json.Unmarshal([]byte(issuesJSON), &rec.Issues); err != nil {
		return rec, fmt.Errorf("failed to decode snapshot issues: %w", err)
	}
	return rec, nil
}
