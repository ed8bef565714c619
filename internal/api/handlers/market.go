package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/ndewijer/portfolio-analytics/internal/api/request"
	"github.com/ndewijer/portfolio-analytics/internal/api/response"
	"github.com/ndewijer/portfolio-analytics/internal/apperrors"
	"github.com/ndewijer/portfolio-analytics/internal/service"
	"github.com/ndewijer/portfolio-analytics/internal/validation"
)

// MarketHandler handles the endpoints through which exchange rates and prices are fed in.
type MarketHandler struct {
	marketService *service.MarketDataService
}

// NewMarketHandler creates a new MarketHandler.
func NewMarketHandler(marketService *service.MarketDataService) *MarketHandler {
	return &MarketHandler{marketService: marketService}
}

// GetExchangeRate handles GET requests for the rate stored for a pair on one date.
//
// Endpoint: GET /api/market/fx?from=USD&to=KWD&date=2024-01-01
// Response: 200 OK with ExchangeRate
// Error: 400 Bad Request if a parameter is missing or the date is invalid
// Error: 404 Not Found if no rate is stored for exactly that date
func (h *MarketHandler) GetExchangeRate(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, to := strings.TrimSpace(q.Get("from")), strings.TrimSpace(q.Get("to"))
	if from == "" || to == "" {
		response.RespondError(w, http.StatusBadRequest, "from and to are required", nil)
		return
	}

	date, err := request.ParseDate(q.Get("date"), time.Now().UTC())
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	rate, err := h.marketService.GetExchangeRate(from, to, date)
	if err != nil {
		respondServiceError(w, err, apperrors.ErrExchangeRateNotFound)
		return
	}

	response.RespondJSON(w, http.StatusOK, rate)
}

// UpsertExchangeRate handles PUT requests storing the rate of a currency pair on a date.
// An existing rate for the same pair and date is replaced.
//
// Endpoint: PUT /api/market/fx
// Request Body: UpsertExchangeRateRequest
// Response: 200 OK with ExchangeRate
// Error: 400 Bad Request if validation fails or request body is invalid
// Error: 500 Internal Server Error if the write fails
func (h *MarketHandler) UpsertExchangeRate(w http.ResponseWriter, r *http.Request) {
	req, err := parseJSON[request.UpsertExchangeRateRequest](r)
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if err := validation.ValidateExchangeRate(req); err != nil {
		response.RespondError(w, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	rate, err := h.marketService.UpsertExchangeRate(r.Context(), req)
	if err != nil {
		response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToUpdateExchangeRate.Error(), err.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, rate)
}

// UpsertPrice handles PUT requests storing the closing price of a symbol on a date.
// An existing price for the same symbol and date is replaced.
//
// Endpoint: PUT /api/market/price
// Request Body: UpsertPriceRequest
// Response: 200 OK with MarketPrice
// Error: 400 Bad Request if validation fails or request body is invalid
// Error: 500 Internal Server Error if the write fails
func (h *MarketHandler) UpsertPrice(w http.ResponseWriter, r *http.Request) {
	req, err := parseJSON[request.UpsertPriceRequest](r)
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if err := validation.ValidatePrice(req); err != nil {
		response.RespondError(w, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	price, err := h.marketService.UpsertPrice(r.Context(), req)
	if err != nil {
		response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToUpdatePrice.Error(), err.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, price)
}
