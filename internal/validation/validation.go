// Package validation checks request bodies and identifiers before they reach
// the service layer.
package validation

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/ndewijer/portfolio-analytics/internal/apperrors"
)

// ErrInvalidUUID is returned, wrapped with the offending value, by ValidateUUID.
var ErrInvalidUUID = apperrors.ErrInvalidUUID

// ValidateUUID checks if a string is a valid UUID
func ValidateUUID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidUUID, id)
	}
	return nil
}
