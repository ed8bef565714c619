package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ndewijer/portfolio-analytics/internal/apperrors"
	"github.com/ndewijer/portfolio-analytics/internal/model"
)

// MarketRepository provides data access methods for the fx_rate and market_price tables.
// Both tables are filled by external collaborators; the engine only reads them.
type MarketRepository struct {
	db *sql.DB
}

// NewMarketRepository creates a new MarketRepository with the provided database connection.
func NewMarketRepository(db *sql.DB) *MarketRepository {
	return &MarketRepository{db: db}
}

// GetExchangeRates retrieves all rates dated on or before endDate.
// Rates after endDate are never needed: lookups only ever fall back to earlier dates.
func (r *MarketRepository) GetExchangeRates(endDate time.Time) ([]model.ExchangeRate, error) {
	rows, err := r.db.Query(`
		SELECT id, date, from_currency, to_currency, rate, source
		FROM fx_rate
		WHERE date <= ?
		ORDER BY date ASC
	`, formatDate(endDate))
	if err != nil {
		return nil, fmt.Errorf("failed to query fx_rate table: %w", err)
	}
	defer rows.Close()

	rates := []model.ExchangeRate{}
	for rows.Next() {
		var (
			er      model.ExchangeRate
			dateStr string
			source  sql.NullString
		)
		if err := rows.Scan(&er.ID, &dateStr, &er.FromCurrency, &er.ToCurrency, &er.Rate, &source); err != nil {
			return nil, fmt.Errorf("failed to scan fx_rate table results: %w", err)
		}
		if er.Date, err = ParseTime(dateStr); err != nil {
			return nil, err
		}
		er.Source = source.String
		rates = append(rates, er)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating fx_rate table: %w", err)
	}
	return rates, nil
}

// GetExchangeRate retrieves the rate stored for exactly the given pair and date.
// Returns ErrExchangeRateNotFound when there is none.
func (r *MarketRepository) GetExchangeRate(from, to string, date time.Time) (model.ExchangeRate, error) {
	var (
		er      model.ExchangeRate
		dateStr string
		source  sql.NullString
	)
	err := r.db.QueryRow(`
		SELECT id, date, from_currency, to_currency, rate, source
		FROM fx_rate
		WHERE from_currency = ? AND to_currency = ? AND date = ?
	`, from, to, formatDate(date)).Scan(&er.ID, &dateStr, &er.FromCurrency, &er.ToCurrency, &er.Rate, &source)
	if err == sql.ErrNoRows {
		return model.ExchangeRate{}, apperrors.ErrExchangeRateNotFound
	}
	if err != nil {
		return model.ExchangeRate{}, fmt.Errorf("failed to query fx_rate: %w", err)
	}
	if er.Date, err = ParseTime(dateStr); err != nil {
		return model.ExchangeRate{}, err
	}
	er.Source = source.String
	return er, nil
}

// UpsertExchangeRate stores a rate, replacing an existing one for the same pair and date.
func (r *MarketRepository) UpsertExchangeRate(ctx context.Context, er *model.ExchangeRate) error {
	if er.ID == "" {
		er.ID = uuid.New().String()
	}
	query := `
		INSERT INTO fx_rate (id, date, from_currency, to_currency, rate, source)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(date, from_currency, to_currency) DO UPDATE SET
			rate = excluded.rate,
			source = excluded.source
	`
	_, err := r.db.ExecContext(ctx, query,
		er.ID,
		formatDate(er.Date),
		er.FromCurrency,
		er.ToCurrency,
		er.Rate,
		er.Source,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert exchange rate: %w", err)
	}
	return nil
}

// GetPrices retrieves the stored prices of the given symbols dated on or before endDate.
// Returns an empty slice if symbols is empty.
func (r *MarketRepository) GetPrices(symbols []string, endDate time.Time) ([]model.MarketPrice, error) {
	if len(symbols) == 0 {
		return []model.MarketPrice{}, nil
	}

	query := `
		SELECT id, symbol, date, price, currency, source
		FROM market_price
		WHERE symbol IN (` + placeholders(len(symbols)) + `)
		AND date <= ?
		ORDER BY symbol ASC, date ASC
	`
	args := make([]any, 0, len(symbols)+1)
	for _, s := range symbols {
		args = append(args, s)
	}
	args = append(args, formatDate(endDate))

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query market_price table: %w", err)
	}
	defer rows.Close()

	prices := []model.MarketPrice{}
	for rows.Next() {
		var (
			p       model.MarketPrice
			dateStr string
			source  sql.NullString
		)
		if err := rows.Scan(&p.ID, &p.Symbol, &dateStr, &p.Price, &p.Currency, &source); err != nil {
			return nil, fmt.Errorf("failed to scan market_price table results: %w", err)
		}
		if p.Date, err = ParseTime(dateStr); err != nil {
			return nil, err
		}
		p.Source = source.String
		prices = append(prices, p)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating market_price table: %w", err)
	}
	return prices, nil
}

// UpsertPrice stores a price, replacing an existing one for the same symbol and date.
func (r *MarketRepository) UpsertPrice(ctx context.Context, p *model.MarketPrice) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	query := `
		INSERT INTO market_price (id, symbol, date, price, currency, source)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(symbol, date) DO UPDATE SET
			price = excluded.price,
			currency = excluded.currency,
			source = excluded.source
	`
	_, err := r.db.ExecContext(ctx, query,
		p.ID,
		p.Symbol,
		formatDate(p.Date),
		p.Price,
		p.Currency,
		p.Source,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert market price: %w", err)
	}
	return nil
}
