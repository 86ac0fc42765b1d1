package store

import (
	"errors"
	"strings"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var (
	// ErrNotFound is returned when a referenced row does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicateIdentity is returned when a username, email or phone is already in use.
	ErrDuplicateIdentity = errors.New("username, email or phone already in use")

	// ErrAlreadyDecided is returned when a registration has already left the pending state.
	ErrAlreadyDecided = errors.New("registration already decided")

	// ErrImmutableAccount is returned for status changes or deletion of admin accounts.
	ErrImmutableAccount = errors.New("admin accounts cannot be modified")
)

// PersistenceError wraps a failure of the underlying database.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return "store: " + e.Op + ": " + e.Err.Error()
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// IsPersistence reports whether err originates from a database failure.
func IsPersistence(err error) bool {
	var pe *PersistenceError
	return errors.As(err, &pe)
}

// wrap converts driver errors into store errors. Domain sentinels pass through untouched.
func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrDuplicateIdentity) ||
		errors.Is(err, ErrAlreadyDecided) || errors.Is(err, ErrImmutableAccount) || IsPersistence(err) {
		return err
	}
	if isUniqueViolation(err) {
		return ErrDuplicateIdentity
	}
	return &PersistenceError{Op: op, Err: err}
}

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.Code()&0xff == sqlite3.SQLITE_CONSTRAINT && strings.Contains(se.Error(), "UNIQUE")
}
