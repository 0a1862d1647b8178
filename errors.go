package nanovdb

import (
	"errors"
	"fmt"

	"github.com/hupe1980/nanovdb/blobstore"
	"github.com/hupe1980/nanovdb/recordstore"
)

var (
	// ErrInvalidK is returned when topK is not positive.
	ErrInvalidK = errors.New("k must be positive")

	// ErrInvalidConfig is returned when a constructor receives an invalid
	// setting. The offending field is named in the wrapping error.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrTenantNotFound is returned when a tenant is neither cached nor
	// persisted.
	ErrTenantNotFound = errors.New("tenant not found")

	// ErrCorrupted is returned when persisted state cannot be decoded.
	ErrCorrupted = errors.New("corrupted storage")

	// ErrNoResults is returned by SearchBuilder.First when nothing matches.
	ErrNoResults = errors.New("no results")

	// errNotPersisted marks a location with no persisted state.
	errNotPersisted = errors.New("not persisted")
)

// ErrDimensionMismatch indicates a vector/query dimensionality mismatch.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ErrDimensionMismatch struct {
	Expected int
	Actual   int
	cause    error
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

func (e *ErrDimensionMismatch) Unwrap() error { return e.cause }

// ErrInvalidDimension indicates an invalid configured dimension.
type ErrInvalidDimension struct {
	Dimension int
}

func (e *ErrInvalidDimension) Error() string {
	return fmt.Sprintf("invalid dimension: %d", e.Dimension)
}

// Is lets errors.Is(err, ErrInvalidConfig) match an invalid dimension.
func (e *ErrInvalidDimension) Is(target error) bool { return target == ErrInvalidConfig }

// CorruptionError describes persisted state that failed validation.
type CorruptionError struct {
	Location string
	Reason   string
	cause    error
}

func (e *CorruptionError) Error() string {
	return fmt.Sprintf("corrupted storage at %q: %s", e.Location, e.Reason)
}

func (e *CorruptionError) Unwrap() error { return e.cause }

// Is reports true for ErrCorrupted.
func (e *CorruptionError) Is(target error) bool { return target == ErrCorrupted }

func corruption(location string, cause error, format string, args ...any) error {
	return &CorruptionError{Location: location, Reason: fmt.Sprintf(format, args...), cause: cause}
}

func invalidConfig(field string, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %s", ErrInvalidConfig, field, fmt.Sprintf(format, args...))
}

// translateError unifies backend errors into the package taxonomy.
func translateError(location string, err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, blobstore.ErrNotFound) || errors.Is(err, recordstore.ErrNotFound) {
		return fmt.Errorf("%w: %w", errNotPersisted, err)
	}
	if errors.Is(err, recordstore.ErrCorrupt) || errors.Is(err, blobstore.ErrCorruptFrame) {
		return corruption(location, err, "%v", err)
	}

	return err
}
