package types

import "time"

// User represents an account in the system.
// It contains identity, profile, and audit metadata.
type User struct {
	// ID is the unique identifier of the user.
	ID int `json:"id" db:"id"`

	// Email is the user's email address. Unique across all users,
	// enforced by the database.
	Email string `json:"email" db:"email"`

	// FirstName is the user's given name.
	FirstName string `json:"first_name" db:"first_name"`

	// LastName is the user's family name.
	LastName string `json:"last_name" db:"last_name"`

	// AvatarURL points at the user's avatar in object storage.
	// Empty when no avatar has been uploaded.
	AvatarURL string `json:"avatar_url" db:"avatar_url"`

	// Goals are free-form goal labels chosen by the user.
	// Persisted as a JSON array.
	Goals []string `json:"goals" db:"goals"`

	// IsActive indicates whether the account is allowed to authenticate.
	IsActive bool `json:"is_active" db:"is_active"`

	// EmailVerified indicates whether the email address has been confirmed.
	EmailVerified bool `json:"email_verified" db:"email_verified"`

	// PasswordHash stores the bcrypt hash of the user's password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-" db:"password_hash"`

	// CreatedAt is the timestamp when the user account was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the user account.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// AuthResponse is returned on a successful login or token refresh.
type AuthResponse struct {
	// AccessToken is a short-lived, self-contained credential. It is not
	// persisted server-side and cannot be revoked before expiry.
	AccessToken string `json:"access_token"`

	// RefreshToken is a long-lived credential tracked in the session
	// ledger. It is exchanged for a new token pair and is revocable.
	RefreshToken string `json:"refresh_token"`

	// User is a snapshot of the authenticated account.
	User User `json:"user"`
}
