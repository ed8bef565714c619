package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/ndewijer/portfolio-analytics/internal/api/request"
	"github.com/ndewijer/portfolio-analytics/internal/api/response"
	"github.com/ndewijer/portfolio-analytics/internal/apperrors"
	"github.com/ndewijer/portfolio-analytics/internal/model"
	"github.com/ndewijer/portfolio-analytics/internal/service"
	"github.com/ndewijer/portfolio-analytics/internal/validation"
)

// OwnerHandler handles the per-owner endpoints: cash, snapshots, positions and performance.
type OwnerHandler struct {
	valuationService   *service.ValuationService
	performanceService *service.PerformanceService
	cashService        *service.CashService
	now                func() time.Time
}

// NewOwnerHandler creates a new OwnerHandler with the provided service dependencies.
func NewOwnerHandler(
	valuationService *service.ValuationService,
	performanceService *service.PerformanceService,
	cashService *service.CashService,
) *OwnerHandler {
	return &OwnerHandler{
		valuationService:   valuationService,
		performanceService: performanceService,
		cashService:        cashService,
		now:                time.Now,
	}
}

// SnapshotResponse is a freshly built snapshot together with the positions it values.
type SnapshotResponse struct {
	Snapshot  model.Snapshot         `json:"snapshot"`
	Positions []model.PositionReport `json:"positions"`
}

func (h *OwnerHandler) today() time.Time {
	t := h.now().UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// SetCashBalance handles PUT requests setting the manual cash balance of one portfolio.
//
// Endpoint: PUT /api/owner/{uuid}/cash
// Request Body: SetCashBalanceRequest
// Response: 200 OK with CashBalance
// Error: 400 Bad Request if validation fails or request body is invalid
// Error: 500 Internal Server Error if the write fails
func (h *OwnerHandler) SetCashBalance(w http.ResponseWriter, r *http.Request) {
	ownerID := chi.URLParam(r, "uuid")

	req, err := parseJSON[request.SetCashBalanceRequest](r)
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if err := validation.ValidateCashBalance(req); err != nil {
		response.RespondError(w, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	balance, err := h.cashService.SetBalance(r.Context(), ownerID, req)
	if err != nil {
		response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToUpdateCash.Error(), err.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, balance)
}

// CreateDeposit handles POST requests recording a deposit, or a withdrawal when the amount is negative.
//
// Endpoint: POST /api/owner/{uuid}/deposit
// Request Body: CreateDepositRequest
// Response: 201 Created with CashDeposit
// Error: 400 Bad Request if validation fails or request body is invalid
// Error: 500 Internal Server Error if the write fails
func (h *OwnerHandler) CreateDeposit(w http.ResponseWriter, r *http.Request) {
	ownerID := chi.URLParam(r, "uuid")

	req, err := parseJSON[request.CreateDepositRequest](r)
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if err := validation.ValidateDeposit(req); err != nil {
		response.RespondError(w, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	deposit, err := h.cashService.CreateDeposit(r.Context(), ownerID, req)
	if err != nil {
		response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToUpdateCash.Error(), err.Error())
		return
	}

	response.RespondJSON(w, http.StatusCreated, deposit)
}

// BuildSnapshot handles POST requests building and storing the snapshot of one day.
// A snapshot already stored for that day is replaced.
//
// Endpoint: POST /api/owner/{uuid}/snapshot?date=2024-01-31
// Query Parameters: date (optional, defaults to today)
// Response: 200 OK with SnapshotResponse
// Error: 400 Bad Request if the date is invalid
// Error: 500 Internal Server Error if the build fails
func (h *OwnerHandler) BuildSnapshot(w http.ResponseWriter, r *http.Request) {
	ownerID := chi.URLParam(r, "uuid")

	date, err := request.ParseDate(r.URL.Query().Get("date"), h.today())
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	val, err := h.valuationService.BuildSnapshot(r.Context(), ownerID, date)
	if err != nil {
		respondServiceError(w, err, apperrors.ErrFailedToBuildSnapshot)
		return
	}

	response.RespondJSON(w, http.StatusOK, SnapshotResponse{
		Snapshot:  val.Snapshot,
		Positions: val.Positions,
	})
}

// RebuildSnapshots handles POST requests recomputing every snapshot in a range.
// Used after a correction to the ledger or to the market data.
//
// Endpoint: POST /api/owner/{uuid}/snapshot/rebuild?start_date=2024-01-01&end_date=2024-01-31
// Query Parameters:
//   - start_date: optional, defaults to the owner's first transaction (or today)
//   - end_date: optional, defaults to today
//
// Response: 200 OK with array of Snapshot
// Error: 400 Bad Request if a date is invalid or start_date is after end_date
// Error: 500 Internal Server Error if the rebuild fails
func (h *OwnerHandler) RebuildSnapshots(w http.ResponseWriter, r *http.Request) {
	ownerID := chi.URLParam(r, "uuid")

	startDate, endDate, err := h.parseRange(r, ownerID)
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	snapshots, err := h.valuationService.RebuildRange(r.Context(), ownerID, startDate, endDate)
	if err != nil {
		respondServiceError(w, err, apperrors.ErrFailedToBuildSnapshot)
		return
	}

	response.RespondJSON(w, http.StatusOK, snapshots)
}

// Snapshots handles GET requests for the stored snapshot history of an owner.
//
// Endpoint: GET /api/owner/{uuid}/snapshot?start_date=2024-01-01&end_date=2024-01-31
// Query Parameters:
//   - start_date: optional, defaults to the owner's first transaction
//   - end_date: optional, defaults to today
//
// Response: 200 OK with array of SnapshotRecord (empty when none are stored)
// Error: 400 Bad Request if a date is invalid or start_date is after end_date
// Error: 500 Internal Server Error if retrieval fails
func (h *OwnerHandler) Snapshots(w http.ResponseWriter, r *http.Request) {
	ownerID := chi.URLParam(r, "uuid")

	startDate, endDate, err := h.parseRange(r, ownerID)
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	snapshots, err := h.valuationService.GetSnapshots(ownerID, startDate, endDate)
	if err != nil {
		respondServiceError(w, err, apperrors.ErrFailedToRetrieveSnapshots)
		return
	}

	response.RespondJSON(w, http.StatusOK, snapshots)
}

// Positions handles GET requests for the position report of an owner on one day.
// Nothing is stored.
//
// Endpoint: GET /api/owner/{uuid}/positions?date=2024-01-31
// Query Parameters: date (optional, defaults to today)
// Response: 200 OK with array of PositionReport
// Error: 400 Bad Request if the date is invalid
// Error: 500 Internal Server Error if valuation fails
func (h *OwnerHandler) Positions(w http.ResponseWriter, r *http.Request) {
	ownerID := chi.URLParam(r, "uuid")

	date, err := request.ParseDate(r.URL.Query().Get("date"), h.today())
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	positions, err := h.valuationService.GetPositions(ownerID, date)
	if err != nil {
		respondServiceError(w, err, apperrors.ErrFailedToRetrievePositions)
		return
	}

	response.RespondJSON(w, http.StatusOK, positions)
}

// Performance handles GET requests for the return and risk metrics of an owner.
// Unavailable metrics are null with the reason in the unavailable map.
//
// Endpoint: GET /api/owner/{uuid}/performance?start_date=2024-01-01&end_date=2024-12-31
// Query Parameters:
//   - start_date: optional, defaults to the owner's first transaction
//   - end_date: optional, defaults to today
//
// Response: 200 OK with PerformanceReport
// Error: 400 Bad Request if a date is invalid or start_date is after end_date
// Error: 404 Not Found if no snapshot is stored in the range
// Error: 500 Internal Server Error if the computation fails
func (h *OwnerHandler) Performance(w http.ResponseWriter, r *http.Request) {
	ownerID := chi.URLParam(r, "uuid")

	startDate, endDate, err := h.parseRange(r, ownerID)
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	report, err := h.performanceService.GetPerformance(ownerID, startDate, endDate)
	if err != nil {
		respondServiceError(w, err, apperrors.ErrFailedToComputePerformance)
		return
	}

	response.RespondJSON(w, http.StatusOK, report)
}

// parseRange reads start_date and end_date, defaulting to the owner's first
// transaction and today. An owner without transactions starts today.
func (h *OwnerHandler) parseRange(r *http.Request, ownerID string) (time.Time, time.Time, error) {
	today := h.today()
	q := r.URL.Query()

	var defaultStart time.Time
	if q.Get("start_date") == "" {
		defaultStart = h.valuationService.OldestActivity(ownerID)
	}
	if defaultStart.IsZero() {
		defaultStart = today
	}
	return request.ParseDateRange(q.Get("start_date"), q.Get("end_date"), defaultStart, today)
}
