package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/progress2win/apiserver/config"
	"github.com/progress2win/apiserver/internal/mailer"
	"github.com/progress2win/apiserver/internal/store"
	"github.com/progress2win/apiserver/internal/token"
	"github.com/progress2win/apiserver/types"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 6

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id int) (types.User, error)
	GetByEmail(ctx context.Context, email string) (types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
	Update(ctx context.Context, user types.User) (types.User, error)
	UpdatePassword(ctx context.Context, id int, passwordHash string) error
	Delete(ctx context.Context, id int) error
}

// SessionRepository defines the session ledger operations: refresh
// tokens and password reset tokens.
type SessionRepository interface {
	CreateRefreshToken(ctx context.Context, row types.RefreshToken) error
	GetRefreshToken(ctx context.Context, token string) (types.RefreshToken, error)
	RotateRefreshToken(ctx context.Context, oldToken, newToken string, expiresAt time.Time) error
	DeleteRefreshToken(ctx context.Context, token string) error
	DeleteRefreshTokensForUser(ctx context.Context, userID int) error
	CreateResetToken(ctx context.Context, row types.PasswordResetToken) error
	ResetPassword(ctx context.Context, token, passwordHash string) (int, error)
}

// AuthService orchestrates the session lifecycle: registration, login,
// refresh rotation, logout, and the password reset flow.
type AuthService struct {
	users    UserRepository
	sessions SessionRepository
	codec    *token.Codec
	mailer   mailer.Mailer
	cfg      config.AuthConfig
}

func NewAuthService(users UserRepository, sessions SessionRepository, codec *token.Codec, m mailer.Mailer, cfg config.AuthConfig) *AuthService {
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	return &AuthService{
		users:    users,
		sessions: sessions,
		codec:    codec,
		mailer:   m,
		cfg:      cfg,
	}
}

// Register creates a new account. Email uniqueness is enforced by the
// credential store's constraint, never by a lookup-then-insert.
func (s *AuthService) Register(ctx context.Context, email, password, firstName, lastName string) (types.User, error) {
	email = strings.TrimSpace(email)
	firstName = strings.TrimSpace(firstName)
	lastName = strings.TrimSpace(lastName)

	if email == "" || password == "" || firstName == "" || lastName == "" {
		return types.User{}, validationError("all fields are required")
	}
	if !strings.Contains(email, "@") {
		return types.User{}, validationError("invalid email address")
	}
	if len(password) < minPasswordLength {
		return types.User{}, validationError("password must be at least %d characters", minPasswordLength)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), s.cfg.BcryptCost)
	if err != nil {
		return types.User{}, err
	}

	user, err := s.users.Create(ctx, types.User{
		Email:        email,
		FirstName:    firstName,
		LastName:     lastName,
		PasswordHash: string(hashed),
		IsActive:     true,
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return types.User{}, ErrEmailTaken
		}
		return types.User{}, err
	}
	return user, nil
}

// Login verifies credentials and issues a fresh token pair. An unknown
// email, an inactive account, and a wrong password all fail the same
// way.
func (s *AuthService) Login(ctx context.Context, email, password string) (types.AuthResponse, error) {
	user, err := s.users.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.AuthResponse{}, ErrInvalidCredentials
		}
		return types.AuthResponse{}, err
	}
	if !user.IsActive {
		return types.AuthResponse{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return types.AuthResponse{}, ErrInvalidCredentials
	}

	return s.issueTokenPair(ctx, user)
}

// Logout revokes a refresh token. Logging out with a token that is not
// in the ledger is not an error.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	return s.sessions.DeleteRefreshToken(ctx, refreshToken)
}

// Refresh exchanges a refresh token for a new pair. The token must
// verify as a refresh token (an access token is rejected by claim
// kind) and must still be present and unexpired in the ledger; the
// ledger row is then rotated in place, invalidating the old string.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (types.AuthResponse, error) {
	userID, err := s.codec.Verify(refreshToken, token.KindRefresh)
	if err != nil {
		return types.AuthResponse{}, ErrInvalidToken
	}

	// Signature checks out, but the ledger decides revocation.
	row, err := s.sessions.GetRefreshToken(ctx, refreshToken)
	if err != nil || row.UserID != userID {
		return types.AuthResponse{}, ErrInvalidToken
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil || !user.IsActive {
		return types.AuthResponse{}, ErrInvalidToken
	}

	accessToken, err := s.codec.Issue(user.ID, token.KindAccess, s.cfg.AccessTokenTTL)
	if err != nil {
		return types.AuthResponse{}, err
	}
	newRefreshToken, err := s.codec.Issue(user.ID, token.KindRefresh, s.cfg.RefreshTokenTTL)
	if err != nil {
		return types.AuthResponse{}, err
	}

	expiresAt := time.Now().Add(s.cfg.RefreshTokenTTL)
	if err := s.sessions.RotateRefreshToken(ctx, refreshToken, newRefreshToken, expiresAt); err != nil {
		// Lost the rotation race or the token was revoked under us.
		if errors.Is(err, store.ErrNotFound) {
			return types.AuthResponse{}, ErrInvalidToken
		}
		return types.AuthResponse{}, err
	}

	return types.AuthResponse{
		AccessToken:  accessToken,
		RefreshToken: newRefreshToken,
		User:         user,
	}, nil
}

// ForgotPassword starts the reset flow. It always succeeds so callers
// cannot probe which emails have accounts; only when the user exists
// is a reset token minted and handed to the mailer.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.users.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return err
	}

	resetToken, err := generateResetToken()
	if err != nil {
		return err
	}
	if err := s.sessions.CreateResetToken(ctx, types.PasswordResetToken{
		UserID:    user.ID,
		Token:     resetToken,
		ExpiresAt: time.Now().Add(s.cfg.ResetTokenTTL),
	}); err != nil {
		return err
	}

	return s.mailer.SendPasswordReset(user.Email, user.FirstName, resetToken)
}

// ResetPassword consumes a reset token and sets the new password. The
// ledger applies the token consumption, the password change, and the
// revocation of every refresh token as one atomic unit.
func (s *AuthService) ResetPassword(ctx context.Context, resetToken, newPassword string) error {
	if len(newPassword) < minPasswordLength {
		return validationError("password must be at least %d characters", minPasswordLength)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.cfg.BcryptCost)
	if err != nil {
		return err
	}

	if _, err := s.sessions.ResetPassword(ctx, resetToken, string(hashed)); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrInvalidToken
		}
		return err
	}
	return nil
}

// ChangePassword sets a new password for a logged-in user who knows
// the current one, and forces re-login everywhere.
func (s *AuthService) ChangePassword(ctx context.Context, userID int, currentPassword, newPassword string) error {
	if len(newPassword) < minPasswordLength {
		return validationError("password must be at least %d characters", minPasswordLength)
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(currentPassword)); err != nil {
		return ErrInvalidCredentials
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.cfg.BcryptCost)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, userID, string(hashed)); err != nil {
		return err
	}
	return s.sessions.DeleteRefreshTokensForUser(ctx, userID)
}

// Me returns the current account snapshot.
func (s *AuthService) Me(ctx context.Context, userID int) (types.User, error) {
	return s.users.GetByID(ctx, userID)
}

func (s *AuthService) issueTokenPair(ctx context.Context, user types.User) (types.AuthResponse, error) {
	accessToken, err := s.codec.Issue(user.ID, token.KindAccess, s.cfg.AccessTokenTTL)
	if err != nil {
		return types.AuthResponse{}, err
	}
	refreshToken, err := s.codec.Issue(user.ID, token.KindRefresh, s.cfg.RefreshTokenTTL)
	if err != nil {
		return types.AuthResponse{}, err
	}

	if err := s.sessions.CreateRefreshToken(ctx, types.RefreshToken{
		UserID:    user.ID,
		Token:     refreshToken,
		ExpiresAt: time.Now().Add(s.cfg.RefreshTokenTTL),
	}); err != nil {
		return types.AuthResponse{}, err
	}

	return types.AuthResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         user,
	}, nil
}

// generateResetToken mints a random, unguessable reset token.
func generateResetToken() (string, error) {
	var buf [32]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf[:]), nil
}
