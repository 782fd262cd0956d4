package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/progress2win/apiserver/types"
)

// SessionRepository is the session ledger: it persists refresh tokens
// and password reset tokens. Single-use and rotation invariants are
// enforced by conditional statements with affected-row checks, so
// concurrent callers cannot race past a point-in-time lookup.
type SessionRepository struct {
	db *sql.DB
}

func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) CreateRefreshToken(ctx context.Context, row types.RefreshToken) error {
	const query = `
		INSERT INTO refresh_tokens (user_id, token, expires_at)
		VALUES ($1, $2, $3)`
	if _, err := r.db.ExecContext(ctx, query, row.UserID, row.Token, row.ExpiresAt); err != nil {
		return mapError(err)
	}
	return nil
}

// GetRefreshToken returns the ledger row for an unexpired refresh
// token. Expired and absent tokens are indistinguishable to the caller.
func (r *SessionRepository) GetRefreshToken(ctx context.Context, token string) (types.RefreshToken, error) {
	const query = `
		SELECT id, user_id, token, expires_at, created_at
		FROM refresh_tokens
		WHERE token = $1 AND expires_at > now()`
	var row types.RefreshToken
	if err := r.db.QueryRowContext(ctx, query, token).Scan(
		&row.ID,
		&row.UserID,
		&row.Token,
		&row.ExpiresAt,
		&row.CreatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.RefreshToken{}, ErrNotFound
		}
		return types.RefreshToken{}, err
	}
	return row, nil
}

// RotateRefreshToken replaces the ledger row for oldToken in place with
// the new token string and expiry. The row is updated, not re-inserted,
// which both caps ledger growth and invalidates the previous token
// string atomically. Rotating a token that was already rotated (or
// revoked, or expired) affects zero rows and returns ErrNotFound.
func (r *SessionRepository) RotateRefreshToken(ctx context.Context, oldToken, newToken string, expiresAt time.Time) error {
	const query = `
		UPDATE refresh_tokens
		SET token = $1,
			expires_at = $2
		WHERE token = $3 AND expires_at > now()`
	result, err := r.db.ExecContext(ctx, query, newToken, expiresAt, oldToken)
	if err != nil {
		return mapError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteRefreshToken removes a ledger row. Deleting a token that is not
// in the ledger is not an error; logout is idempotent.
func (r *SessionRepository) DeleteRefreshToken(ctx context.Context, token string) error {
	const query = `DELETE FROM refresh_tokens WHERE token = $1`
	_, err := r.db.ExecContext(ctx, query, token)
	return err
}

func (r *SessionRepository) DeleteRefreshTokensForUser(ctx context.Context, userID int) error {
	const query = `DELETE FROM refresh_tokens WHERE user_id = $1`
	_, err := r.db.ExecContext(ctx, query, userID)
	return err
}

func (r *SessionRepository) CreateResetToken(ctx context.Context, row types.PasswordResetToken) error {
	const query = `
		INSERT INTO password_reset_tokens (user_id, token, expires_at, used)
		VALUES ($1, $2, $3, FALSE)`
	if _, err := r.db.ExecContext(ctx, query, row.UserID, row.Token, row.ExpiresAt); err != nil {
		return mapError(err)
	}
	return nil
}

// ResetPassword consumes a reset token and applies the new password
// hash in one transaction:
//
//  1. mark the token used, guarded by used=false and non-expiry in the
//     same statement (a second concurrent consume matches zero rows),
//  2. store the new password hash,
//  3. revoke every refresh token belonging to the user.
//
// Either all three happen or none do, so a crash cannot leave the
// password changed with old sessions still live.
func (r *SessionRepository) ResetPassword(ctx context.Context, token, passwordHash string) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	const consume = `
		UPDATE password_reset_tokens
		SET used = TRUE
		WHERE token = $1 AND used = FALSE AND expires_at > now()
		RETURNING user_id`
	var userID int
	if err := tx.QueryRowContext(ctx, consume, token).Scan(&userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, err
	}

	const updatePassword = `
		UPDATE users
		SET password_hash = $1,
			updated_at = now()
		WHERE id = $2`
	if _, err := tx.ExecContext(ctx, updatePassword, passwordHash, userID); err != nil {
		return 0, err
	}

	const revokeSessions = `DELETE FROM refresh_tokens WHERE user_id = $1`
	if _, err := tx.ExecContext(ctx, revokeSessions, userID); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return userID, nil
}
