package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ndewijer/portfolio-analytics/internal/model"
)

// CashRepository provides data access methods for the cash_deposit and portfolio_cash tables.
type CashRepository struct {
	db *sql.DB
}

// NewCashRepository creates a new CashRepository with the provided database connection.
func NewCashRepository(db *sql.DB) *CashRepository {
	return &CashRepository{db: db}
}

// GetDeposits retrieves an owner's separately tracked cash deposits dated on or
// before endDate, oldest first. The zero endDate loads everything.
func (r *CashRepository) GetDeposits(ownerID string, endDate time.Time) ([]model.CashDeposit, error) {
	query := `
		SELECT id, owner_id, portfolio, date, amount, currency, bank_name, include_in_analysis, created_at
		FROM cash_deposit
		WHERE owner_id = ?`
	args := []any{ownerID}
	if !endDate.IsZero() {
		query += ` AND date <= ?`
		args = append(args, formatDate(endDate))
	}
	query += ` ORDER BY date ASC, rowid ASC`

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query cash_deposit table: %w", err)
	}
	defer rows.Close()

	deposits := []model.CashDeposit{}
	for rows.Next() {
		var (
			d                     model.CashDeposit
			bankName              sql.NullString
			dateStr, createdAtStr string
		)
		if err := rows.Scan(
			&d.ID,
			&d.OwnerID,
			&d.Portfolio,
			&dateStr,
			&d.Amount,
			&d.Currency,
			&bankName,
			&d.IncludeInAnalysis,
			&createdAtStr,
		); err != nil {
			return nil, fmt.Errorf("failed to scan cash_deposit table results: %w", err)
		}
		if bankName.Valid {
			d.BankName = bankName.String
		}
		if d.Date, err = ParseTime(dateStr); err != nil {
			return nil, err
		}
		if d.CreatedAt, err = ParseTime(createdAtStr); err != nil {
			return nil, err
		}
		deposits = append(deposits, d)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cash_deposit table: %w", err)
	}
	return deposits, nil
}

// InsertDeposit records a cash deposit or, with a negative amount, a withdrawal.
func (r *CashRepository) InsertDeposit(ctx context.Context, d *model.CashDeposit) error {
	query := `
		INSERT INTO cash_deposit (id, owner_id, portfolio, date, amount, currency, bank_name, include_in_analysis, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	var bankName sql.NullString
	if d.BankName != "" {
		bankName = sql.NullString{String: d.BankName, Valid: true}
	}
	_, err := r.db.ExecContext(ctx, query,
		d.ID,
		d.OwnerID,
		d.Portfolio,
		formatDate(d.Date),
		d.Amount,
		d.Currency,
		bankName,
		d.IncludeInAnalysis,
		formatTimestamp(d.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert cash deposit: %w", err)
	}
	return nil
}

// GetBalances retrieves the manual cash balances of an owner's portfolios.
func (r *CashRepository) GetBalances(ownerID string) ([]model.CashBalance, error) {
	rows, err := r.db.Query(`
		SELECT owner_id, portfolio, balance, currency, updated_at
		FROM portfolio_cash
		WHERE owner_id = ?
		ORDER BY portfolio ASC
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query portfolio_cash table: %w", err)
	}
	defer rows.Close()

	balances := []model.CashBalance{}
	for rows.Next() {
		var (
			b            model.CashBalance
			updatedAtStr string
		)
		if err := rows.Scan(&b.OwnerID, &b.Portfolio, &b.Balance, &b.Currency, &updatedAtStr); err != nil {
			return nil, fmt.Errorf("failed to scan portfolio_cash table results: %w", err)
		}
		if b.UpdatedAt, err = ParseTime(updatedAtStr); err != nil {
			return nil, err
		}
		balances = append(balances, b)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating portfolio_cash table: %w", err)
	}
	return balances, nil
}

// UpsertBalance sets the manual cash balance of one portfolio, replacing any previous value.
func (r *CashRepository) UpsertBalance(ctx context.Context, b *model.CashBalance) error {
	query := `
		INSERT INTO portfolio_cash (owner_id, portfolio, balance, currency, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(owner_id, portfolio) DO UPDATE SET
			balance = excluded.balance,
			currency = excluded.currency,
			updated_at = excluded.updated_at
	`
	_, err := r.db.ExecContext(ctx, query,
		b.OwnerID,
		b.Portfolio,
		b.Balance,
		b.Currency,
		formatTimestamp(b.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert portfolio cash: %w", err)
	}
	return nil
}
