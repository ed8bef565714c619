package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/ndewijer/portfolio-analytics/internal/api/response"
	"github.com/ndewijer/portfolio-analytics/internal/apperrors"
)

// maxBodyBytes caps request bodies; every body this API accepts is a single small object.
const maxBodyBytes = 1 << 20

// parseJSON decodes the request body into T. Unknown fields are rejected.
func parseJSON[T any](r *http.Request) (T, error) {
	var v T
	if r.Body == nil {
		return v, errors.New("request body is empty")
	}
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&v); err != nil {
		return v, fmt.Errorf("failed to decode request body: %w", err)
	}
	return v, nil
}

// errorStatus maps a service error to its HTTP status code.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, apperrors.ErrInvalidDate),
		errors.Is(err, apperrors.ErrInvalidDateRange):
		return http.StatusBadRequest
	case errors.Is(err, apperrors.ErrNoSnapshots),
		errors.Is(err, apperrors.ErrSnapshotNotFound),
		errors.Is(err, apperrors.ErrTransactionNotFound),
		errors.Is(err, apperrors.ErrExchangeRateNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// respondServiceError writes err with the status from errorStatus. Server
// errors use fallback as the message so internals stay in the details field.
func respondServiceError(w http.ResponseWriter, err error, fallback error) {
	status := errorStatus(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		message = fallback.Error()
	}
	response.RespondError(w, status, message, err.Error())
}
