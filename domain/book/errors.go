package book

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when an order id has no entry in the
	// book. Cancel paths treat it as idempotent.
	ErrNotFound = errors.New("order not found")

	// ErrDuplicateID is returned when an insert reuses a live id.
	ErrDuplicateID = errors.New("duplicate order id")

	// ErrCorruption marks a snapshot that fails a structural or
	// aggregate-consistency check on load.
	ErrCorruption = errors.New("snapshot corruption")
)

// InvariantError reports an internal consistency failure. It is a
// logic bug, not a user error: the affected pair's worker must stop
// rather than continue with suspect state.
type InvariantError struct {
	Pair   string
	Detail string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("invariant violation on %s: %s", e.Pair, e.Detail)
}

func invariant(pair, format string, args ...any) *InvariantError {
	return &InvariantError{Pair: pair, Detail: fmt.Sprintf(format, args...)}
}

func corruptionf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrCorruption, fmt.Sprintf(format, args...))
}
