package forum

import (
	"errors"
	"fmt"

	"github.com/campusnest/forum/internal/models"
	"github.com/campusnest/forum/internal/storage"
)

var (
	// ErrNotFound means the addressed entity does not exist.
	ErrNotFound = errors.New("not found")
	// ErrForbidden is returned by the ownership gate. It deliberately covers
	// both "does not exist" and "owned by someone else".
	ErrForbidden = errors.New("forbidden")
	// ErrValidation wraps every input rejection.
	ErrValidation = errors.New("validation failed")
	// ErrUnauthenticated means a mutation arrived without an identity.
	ErrUnauthenticated = errors.New("unauthenticated")
)

// StoreError is a persistence failure that is neither a missing row nor a bad
// input. It is surfaced as an internal error and never retried.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// classify converts a storage error into the service taxonomy.
func classify(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, storage.ErrNotFound):
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	case errors.Is(err, models.ErrInvalidParent):
		return fmt.Errorf("%w: %v", ErrValidation, err)
	default:
		return &StoreError{Op: op, Err: err}
	}
}

// classifyOwned is classify for mutations that already passed the gate: a row
// that vanished in between is reported the same way the gate would.
func classifyOwned(op string, err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return ErrForbidden
	}
	return classify(op, err)
}
