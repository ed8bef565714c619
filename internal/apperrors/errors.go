package apperrors

import "errors"

// Domain entity errors represent missing or invalid entities in the system.
// These errors indicate that a requested resource does not exist.
var (
	// ErrTransactionNotFound indicates that a transaction with the given ID does not exist.
	ErrTransactionNotFound = errors.New("transaction not found")

	// ErrSnapshotNotFound indicates no snapshot exists for the owner and date combination.
	ErrSnapshotNotFound = errors.New("snapshot not found")

	// ErrExchangeRateNotFound indicates no record for a specific currency pair and date combination.
	ErrExchangeRateNotFound = errors.New("exchange rate for currency/date not found")

	// ErrNoSnapshots indicates an owner has no snapshots in the requested range.
	ErrNoSnapshots = errors.New("no snapshots in range")
)

// Valuation errors form the engine's error taxonomy. Each sentinel is matched by
// the corresponding typed error in valuation.go through errors.Is, so callers can
// branch on the class of failure without caring about the details it carries.
var (
	// ErrDataIntegrity indicates negative or inconsistent lot inventory for a symbol.
	// Fatal for that symbol; other symbols are still valued.
	ErrDataIntegrity = errors.New("data integrity violation")

	// ErrMissingFxRate indicates no rate exists on or before the requested date.
	// Recoverable: the snapshot falls back and is flagged as degraded.
	ErrMissingFxRate = errors.New("missing fx rate")

	// ErrMissingPrice indicates no market price exists on or before the requested date.
	// Recoverable: the position is valued at its last known price and flagged.
	ErrMissingPrice = errors.New("missing market price")

	// ErrOverSell indicates a sell for more units than the open lots hold.
	ErrOverSell = errors.New("sell exceeds open quantity")

	// ErrNoConvergence indicates the money-weighted return solver found no root.
	// The metric must be reported as unavailable, never as zero.
	ErrNoConvergence = errors.New("rate of return did not converge")

	// ErrInsufficientData indicates too few observations to compute a metric.
	ErrInsufficientData = errors.New("insufficient data")
)

// Business logic errors represent validation failures or constraint violations.
var (
	// ErrInvalidDateRange indicates that the provided date range is invalid
	// (e.g., start date is after end date).
	ErrInvalidDateRange = errors.New("invalid date range")

	// ErrInvalidUUID indicates that a provided ID is not a valid UUID format.
	ErrInvalidUUID = errors.New("invalid UUID format")

	// ErrInvalidCurrency indicates a currency code that is not a known ISO 4217 code.
	ErrInvalidCurrency = errors.New("invalid currency code")

	// ErrInvalidRate indicates a non-positive exchange rate.
	ErrInvalidRate = errors.New("exchange rate must be positive")

	// ErrInvalidDate indicates a date parameter that could not be parsed.
	ErrInvalidDate = errors.New("date parameter is invalid")
)

// Operation failure errors represent system-level failures when retrieving or processing data.
var (
	ErrFailedToRetrieveTransactions = errors.New("failed to retrieve transactions")
	ErrFailedToDeleteTransaction    = errors.New("failed to delete transaction")
	ErrFailedToBuildSnapshot        = errors.New("failed to build snapshot")
	ErrFailedToRetrieveSnapshots    = errors.New("failed to retrieve snapshots")
	ErrFailedToRetrievePositions    = errors.New("failed to retrieve positions")
	ErrFailedToComputePerformance   = errors.New("failed to compute performance")
	ErrFailedToUpdateExchangeRate   = errors.New("failed to update exchange rate")
	ErrFailedToUpdatePrice          = errors.New("failed to update market price")
	ErrFailedToUpdateCash           = errors.New("failed to update cash balance")
)
