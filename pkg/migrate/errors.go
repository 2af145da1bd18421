package migrate

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateVersion is returned when two converters target the same
	// schema version.
	ErrDuplicateVersion = errors.New("duplicate converter version")

	// ErrInvalidVersion is returned for converters targeting a version below 1.
	ErrInvalidVersion = errors.New("converter version must be greater than zero")

	// ErrVersionGap is returned when the converter versions are not a
	// contiguous run starting at the baseline.
	ErrVersionGap = errors.New("gap between database converters")
)

// MigrationError reports a converter that failed. The version file keeps
// the last version that was fully applied.
type MigrationError struct {
	Version int   // Target version of the failing converter
	Applied int   // Last version fully applied
	Cause   error // Underlying error
}

// Error implements the error interface.
func (e *MigrationError) Error() string {
	return fmt.Sprintf("converting database to version %d (at version %d): %v", e.Version, e.Applied, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *MigrationError) Unwrap() error {
	return e.Cause
}
