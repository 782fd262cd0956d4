package services

import (
	"errors"
	"fmt"
)

// Domain failures surfaced to handlers. Everything else coming out of
// a service is an internal error and must not leak detail to clients.
var (
	// ErrValidation marks malformed input. Wrapped errors carry a
	// caller-safe message.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidCredentials covers both unknown email and wrong
	// password on login. The two cases are deliberately
	// indistinguishable to the caller.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrInvalidToken covers every refresh/reset token failure:
	// bad signature, expired, revoked, rotated away, already used.
	ErrInvalidToken = errors.New("invalid or expired token")

	// ErrEmailTaken is returned when registering an email that
	// already has an account.
	ErrEmailTaken = errors.New("email already registered")

	// ErrNotFriends gates the comparison view.
	ErrNotFriends = errors.New("users are not friends")

	// ErrAlreadyFriends rejects a duplicate invitation in either
	// direction.
	ErrAlreadyFriends = errors.New("friendship already exists")

	// ErrAlreadyInGroup enforces the one-group-per-user rule.
	ErrAlreadyInGroup = errors.New("already in a group")
)

func validationError(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrValidation}, args...)...)
}
