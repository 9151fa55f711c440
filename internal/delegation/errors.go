package delegation

import (
	"errors"
	"fmt"

	"github.com/alechenninger/trustreg/internal/store"
)

var (
	// ErrNotFound is returned when no active delegation exists for a pair
	ErrNotFound = store.ErrNotFound

	// ErrConflict is returned when an active delegation already exists for a pair
	ErrConflict = store.ErrConflict

	ErrRootNotFound   = errors.New("root issuer not found")
	ErrRootInactive   = errors.New("root issuer is not active")
	ErrIssuerNotFound = errors.New("issuer not found")

	// ErrCycle is returned when the delegate is already an ancestor of the root
	ErrCycle = errors.New("delegation would create a cycle")

	// ErrDepthExceeded is returned when the root's chain is already at the maximum depth
	ErrDepthExceeded = errors.New("delegation chain depth exceeded")
)

// ValidationError reports a malformed delegation request
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
