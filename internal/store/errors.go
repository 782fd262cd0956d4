package store

import (
	"errors"

	"github.com/lib/pq"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when an insert violates a unique constraint.
// Uniqueness (emails, friendship pairs, group codes) is enforced by the
// database, not by check-then-act application logic.
var ErrDuplicate = errors.New("duplicate")

const uniqueViolation = "23505"

func mapError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return ErrDuplicate
	}
	return err
}
