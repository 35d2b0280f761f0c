package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrNoActiveSession = errors.New("no active session")
	ErrInvalidRating   = errors.New("invalid rating")
	ErrInvalidStrategy = errors.New("invalid strategy")
	ErrAlreadyExists   = errors.New("already exists")
	ErrInvalidCard     = errors.New("invalid card")
)

// NotFoundError reports a deck, item or session referenced by an identifier
// that no longer exists. It matches ErrNotFound with errors.Is.
type NotFoundError struct {
	Kind string
	ID   any
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %v not found", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// PersistError wraps a store failure. The in-memory state that was being
// persisted stays authoritative; the caller decides whether to retry.
type PersistError struct {
	Op  string
	Err error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("persist %s: %v", e.Op, e.Err)
}

func (e *PersistError) Unwrap() error { return e.Err }

// IsPersistError reports whether err wraps a PersistError.
func IsPersistError(err error) bool {
	var pe *PersistError
	return errors.As(err, &pe)
}
