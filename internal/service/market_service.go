package service

import (
	"context"
	"strings"
	"time"

	"github.com/ndewijer/portfolio-analytics/internal/api/request"
	"github.com/ndewijer/portfolio-analytics/internal/model"
	"github.com/ndewijer/portfolio-analytics/internal/repository"
)

// MarketDataService stores the exchange rates and prices supplied by the
// market data collaborators.
type MarketDataService struct {
	marketRepo *repository.MarketRepository
}

// NewMarketDataService creates a new MarketDataService.
func NewMarketDataService(marketRepo *repository.MarketRepository) *MarketDataService {
	return &MarketDataService{marketRepo: marketRepo}
}

// UpsertExchangeRate stores a validated rate, replacing the one for the same pair and date.
func (s *MarketDataService) UpsertExchangeRate(ctx context.Context, req request.UpsertExchangeRateRequest) (*model.ExchangeRate, error) {
	date, err := time.Parse(request.DateLayout, req.Date)
	if err != nil {
		return nil, err
	}

	er := &model.ExchangeRate{
		Date:         date,
		FromCurrency: strings.ToUpper(strings.TrimSpace(req.FromCurrency)),
		ToCurrency:   strings.ToUpper(strings.TrimSpace(req.ToCurrency)),
		Rate:         req.Rate,
		Source:       req.Source,
	}
	if err := s.marketRepo.UpsertExchangeRate(ctx, er); err != nil {
		return nil, err
	}
	return er, nil
}

// GetExchangeRate returns the rate stored for exactly the given pair and date.
func (s *MarketDataService) GetExchangeRate(from, to string, date time.Time) (model.ExchangeRate, error) {
	return s.marketRepo.GetExchangeRate(strings.ToUpper(from), strings.ToUpper(to), date)
}

// UpsertPrice stores a validated price, replacing the one for the same symbol and date.
func (s *MarketDataService) UpsertPrice(ctx context.Context, req request.UpsertPriceRequest) (*model.MarketPrice, error) {
	date, err := time.Parse(request.DateLayout, req.Date)
	if err != nil {
		return nil, err
	}

	p := &model.MarketPrice{
		Symbol:   strings.ToUpper(strings.TrimSpace(req.Symbol)),
		Date:     date,
		Price:    req.Price,
		Currency: strings.ToUpper(strings.TrimSpace(req.Currency)),
		Source:   req.Source,
	}
	if err := s.marketRepo.UpsertPrice(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}
