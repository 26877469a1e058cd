package retention

import (
	"errors"
	"fmt"
)

var (
	// ErrStoreUnavailable is returned when the configuration store cannot be
	// reached or its stored policy cannot be decoded.
	ErrStoreUnavailable = errors.New("retention policy store unavailable")

	// ErrInvalidPolicy is returned when a policy fails validation.
	ErrInvalidPolicy = errors.New("invalid retention policy")

	// ErrCleanupPanic wraps a panic recovered during a cleanup run.
	ErrCleanupPanic = errors.New("cleanup run panicked")
)

// PolicyError describes why a policy was rejected. It matches
// ErrInvalidPolicy with errors.Is.
type PolicyError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *PolicyError) Error() string {
	return fmt.Sprintf("invalid retention policy: %s: %s", e.Field, e.Message)
}

// Is reports whether target is ErrInvalidPolicy.
func (e *PolicyError) Is(target error) bool {
	return target == ErrInvalidPolicy
}
