package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ndewijer/portfolio-analytics/internal/apperrors"
	"github.com/ndewijer/portfolio-analytics/internal/model"
)

// TransactionRepository provides data access methods for the transaction table.
// It handles recording ledger rows and reading them back in ledger order.
type TransactionRepository struct {
	db *sql.DB
	tx *sql.Tx
}

// NewTransactionRepository creates a new TransactionRepository with the provided database connection.
func NewTransactionRepository(db *sql.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// WithTx returns a new TransactionRepository scoped to the provided transaction.
func (r *TransactionRepository) WithTx(tx *sql.Tx) *TransactionRepository {
	return &TransactionRepository{
		db: r.db,
		tx: tx,
	}
}

func (r *TransactionRepository) getQuerier() querier {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}

const transactionColumns = `
	id, owner_id, portfolio, symbol, date, type, quantity, price, amount, fees,
	currency, bonus_shares, cash_dividend, category, created_at
`

// GetTransactions retrieves every transaction of an owner dated on or before endDate.
// Rows are sorted by date and then by insertion order, which is the order the
// ledger normalizer relies on for same-day tie-breaks.
//
// Parameters:
//   - ownerID: the owner whose ledger to load
//   - endDate: inclusive upper bound; the zero time loads everything
//
// Returns an empty slice if the owner has no transactions.
func (r *TransactionRepository) GetTransactions(ownerID string, endDate time.Time) ([]model.Transaction, error) {
	query := `SELECT ` + transactionColumns + `
		FROM "transaction"
		WHERE owner_id = ?`
	args := []any{ownerID}
	if !endDate.IsZero() {
		query += ` AND date <= ?`
		args = append(args, formatDate(endDate))
	}
	query += ` ORDER BY date ASC, rowid ASC`

	rows, err := r.getQuerier().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transaction table: %w", err)
	}
	defer rows.Close()

	transactions := []model.Transaction{}
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, t)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transaction table: %w", err)
	}

	return transactions, nil
}

// GetTransaction retrieves a single transaction by its ID.
// Returns ErrTransactionNotFound if no record with the given ID exists.
func (r *TransactionRepository) GetTransaction(transactionID string) (model.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM "transaction" WHERE id = ?`

	t, err := scanTransaction(r.getQuerier().QueryRow(query, transactionID))
	if err == sql.ErrNoRows {
		return model.Transaction{}, apperrors.ErrTransactionNotFound
	}
	if err != nil {
		return model.Transaction{}, err
	}
	return t, nil
}

// GetOldestTransaction returns the date of an owner's earliest transaction.
// Returns time.Time{} (zero value) when the owner has none or the lookup fails.
func (r *TransactionRepository) GetOldestTransaction(ownerID string) time.Time {
	var oldest sql.NullString
	err := r.getQuerier().QueryRow(`SELECT MIN(date) FROM "transaction" WHERE owner_id = ?`, ownerID).Scan(&oldest)
	if err != nil || !oldest.Valid {
		return time.Time{}
	}
	d, err := ParseTime(oldest.String)
	if err != nil {
		return time.Time{}
	}
	return d
}

// GetOwnerIDs returns every owner that has at least one transaction or cash deposit.
func (r *TransactionRepository) GetOwnerIDs() ([]string, error) {
	rows, err := r.getQuerier().Query(`
		SELECT owner_id FROM "transaction"
		UNION
		SELECT owner_id FROM cash_deposit
		ORDER BY owner_id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query owners: %w", err)
	}
	defer rows.Close()

	owners := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan owner: %w", err)
		}
		owners = append(owners, id)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating owners: %w", err)
	}
	return owners, nil
}

// InsertTransaction records a new transaction.
func (r *TransactionRepository) InsertTransaction(ctx context.Context, t *model.Transaction) error {
	query := `
		INSERT INTO "transaction" (` + transactionColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.getQuerier().ExecContext(ctx, query,
		t.ID,
		t.OwnerID,
		t.Portfolio,
		t.Symbol,
		formatDate(t.Date),
		string(t.Type),
		t.Quantity,
		t.Price,
		t.Amount,
		t.Fees,
		t.Currency,
		t.BonusShares,
		t.CashDividend,
		t.Category,
		formatTimestamp(t.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert transaction: %w", err)
	}
	return nil
}

// DeleteTransaction removes a transaction by its ID.
// Returns ErrTransactionNotFound if no record with the given ID exists.
func (r *TransactionRepository) DeleteTransaction(ctx context.Context, transactionID string) error {
	result, err := r.getQuerier().ExecContext(ctx, `DELETE FROM "transaction" WHERE id = ?`, transactionID)
	if err != nil {
		return fmt.Errorf("failed to delete transaction: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return apperrors.ErrTransactionNotFound
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (model.Transaction, error) {
	var (
		t                     model.Transaction
		txType                string
		dateStr, createdAtStr string
	)
	err := row.Scan(
		&t.ID,
		&t.OwnerID,
		&t.Portfolio,
		&t.Symbol,
		&dateStr,
		&txType,
		&t.Quantity,
		&t.Price,
		&t.Amount,
		&t.Fees,
		&t.Currency,
		&t.BonusShares,
		&t.CashDividend,
		&t.Category,
		&createdAtStr,
	)
	if err == sql.ErrNoRows {
		return t, err
	}
	if err != nil {
		return t, fmt.Errorf("failed to scan transaction table results: %w", err)
	}
	t.Type = model.TransactionType(txType)

	t.Date, err = ParseTime(dateStr)
	if err != nil || t.Date.IsZero() {
		return t, fmt.Errorf("failed to parse date: %w", err)
	}
	t.CreatedAt, err = ParseTime(createdAtStr)
	if err != nil {
		return t, fmt.Errorf("failed to parse created_at: %w", err)
	}
	return t, nil
}
