package services

import (
	"context"
	"testing"
	"time"

	"github.com/progress2win/apiserver/config"
	"github.com/progress2win/apiserver/internal/store"
	"github.com/progress2win/apiserver/internal/token"
	"github.com/progress2win/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type fakeUserRepo struct {
	nextID int
	users  map[int]types.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{nextID: 1, users: map[int]types.User{}}
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id int) (types.User, error) {
	user, ok := r.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return user, nil
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (types.User, error) {
	for _, user := range r.users {
		if user.Email == email {
			return user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (r *fakeUserRepo) Create(ctx context.Context, user types.User) (types.User, error) {
	if _, err := r.GetByEmail(ctx, user.Email); err == nil {
		return types.User{}, store.ErrDuplicate
	}
	user.ID = r.nextID
	r.nextID++
	r.users[user.ID] = user
	return user, nil
}

func (r *fakeUserRepo) Update(ctx context.Context, user types.User) (types.User, error) {
	if _, ok := r.users[user.ID]; !ok {
		return types.User{}, store.ErrNotFound
	}
	r.users[user.ID] = user
	return user, nil
}

func (r *fakeUserRepo) UpdatePassword(ctx context.Context, id int, passwordHash string) error {
	user, ok := r.users[id]
	if !ok {
		return store.ErrNotFound
	}
	user.PasswordHash = passwordHash
	r.users[id] = user
	return nil
}

func (r *fakeUserRepo) Delete(ctx context.Context, id int) error {
	if _, ok := r.users[id]; !ok {
		return store.ErrNotFound
	}
	delete(r.users, id)
	return nil
}

// fakeSessionRepo mirrors the session ledger, including the atomic
// reset-password unit that also touches the user row.
type fakeSessionRepo struct {
	users         *fakeUserRepo
	refreshTokens map[string]types.RefreshToken
	resetTokens   map[string]types.PasswordResetToken
}

func newFakeSessionRepo(users *fakeUserRepo) *fakeSessionRepo {
	return &fakeSessionRepo{
		users:         users,
		refreshTokens: map[string]types.RefreshToken{},
		resetTokens:   map[string]types.PasswordResetToken{},
	}
}

func (r *fakeSessionRepo) CreateRefreshToken(ctx context.Context, row types.RefreshToken) error {
	r.refreshTokens[row.Token] = row
	return nil
}

func (r *fakeSessionRepo) GetRefreshToken(ctx context.Context, tok string) (types.RefreshToken, error) {
	row, ok := r.refreshTokens[tok]
	if !ok || time.Now().After(row.ExpiresAt) {
		return types.RefreshToken{}, store.ErrNotFound
	}
	return row, nil
}

func (r *fakeSessionRepo) RotateRefreshToken(ctx context.Context, oldToken, newToken string, expiresAt time.Time) error {
	row, ok := r.refreshTokens[oldToken]
	if !ok {
		return store.ErrNotFound
	}
	delete(r.refreshTokens, oldToken)
	row.Token = newToken
	row.ExpiresAt = expiresAt
	r.refreshTokens[newToken] = row
	return nil
}

func (r *fakeSessionRepo) DeleteRefreshToken(ctx context.Context, tok string) error {
	delete(r.refreshTokens, tok)
	return nil
}

func (r *fakeSessionRepo) DeleteRefreshTokensForUser(ctx context.Context, userID int) error {
	for tok, row := range r.refreshTokens {
		if row.UserID == userID {
			delete(r.refreshTokens, tok)
		}
	}
	return nil
}

func (r *fakeSessionRepo) CreateResetToken(ctx context.Context, row types.PasswordResetToken) error {
	r.resetTokens[row.Token] = row
	return nil
}

func (r *fakeSessionRepo) ResetPassword(ctx context.Context, tok, passwordHash string) (int, error) {
	row, ok := r.resetTokens[tok]
	if !ok || row.Used || time.Now().After(row.ExpiresAt) {
		return 0, store.ErrNotFound
	}
	row.Used = true
	r.resetTokens[tok] = row

	if err := r.users.UpdatePassword(ctx, row.UserID, passwordHash); err != nil {
		return 0, err
	}
	_ = r.DeleteRefreshTokensForUser(ctx, row.UserID)
	return row.UserID, nil
}

func (r *fakeSessionRepo) refreshTokenCount(userID int) int {
	count := 0
	for _, row := range r.refreshTokens {
		if row.UserID == userID {
			count++
		}
	}
	return count
}

type recordingMailer struct {
	sentTo    string
	lastToken string
	sends     int
}

func (m *recordingMailer) SendPasswordReset(email, firstName, resetToken string) error {
	m.sentTo = email
	m.lastToken = resetToken
	m.sends++
	return nil
}

func newTestAuthService() (*AuthService, *fakeUserRepo, *fakeSessionRepo, *recordingMailer) {
	users := newFakeUserRepo()
	sessions := newFakeSessionRepo(users)
	mail := &recordingMailer{}
	svc := NewAuthService(users, sessions, token.NewCodec("test-secret"), mail, config.AuthConfig{
		AccessTokenTTL:  time.Hour,
		RefreshTokenTTL: 24 * time.Hour,
		ResetTokenTTL:   time.Hour,
		BcryptCost:      bcrypt.MinCost,
	})
	return svc, users, sessions, mail
}

func mustRegister(t *testing.T, svc *AuthService, email string) types.User {
	t.Helper()
	user, err := svc.Register(context.Background(), email, "secret123", "Ada", "Lovelace")
	require.NoError(t, err)
	return user
}

func TestRegisterAndLogin(t *testing.T) {
	svc, _, sessions, _ := newTestAuthService()
	ctx := context.Background()

	user := mustRegister(t, svc, "ada@example.com")
	assert.Equal(t, "ada@example.com", user.Email)
	assert.True(t, user.IsActive)
	assert.NotEqual(t, "secret123", user.PasswordHash)

	resp, err := svc.Login(ctx, "ada@example.com", "secret123")
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.NotEqual(t, resp.AccessToken, resp.RefreshToken)
	assert.Equal(t, user.ID, resp.User.ID)
	assert.Equal(t, 1, sessions.refreshTokenCount(user.ID))
}

func TestLoginTwiceIssuesDistinctSessions(t *testing.T) {
	svc, _, sessions, _ := newTestAuthService()
	ctx := context.Background()

	user := mustRegister(t, svc, "ada@example.com")

	// Two logins in the same second must still mint two distinct
	// ledger rows; the token table has a uniqueness constraint.
	first, err := svc.Login(ctx, "ada@example.com", "secret123")
	require.NoError(t, err)
	second, err := svc.Login(ctx, "ada@example.com", "secret123")
	require.NoError(t, err)

	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)
	assert.Equal(t, 2, sessions.refreshTokenCount(user.ID))
}

func TestRegisterValidation(t *testing.T) {
	svc, _, _, _ := newTestAuthService()
	ctx := context.Background()

	cases := []struct {
		name      string
		email     string
		password  string
		firstName string
	}{
		{"missing email", "", "secret123", "Ada"},
		{"missing first name", "ada@example.com", "secret123", ""},
		{"bad email", "not-an-email", "secret123", "Ada"},
		{"short password", "ada@example.com", "short", "Ada"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Register(ctx, tc.email, tc.password, tc.firstName, "Lovelace")
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _, _, _ := newTestAuthService()

	mustRegister(t, svc, "ada@example.com")
	_, err := svc.Register(context.Background(), "ada@example.com", "different1", "Grace", "Hopper")
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	svc, users, _, _ := newTestAuthService()
	ctx := context.Background()

	user := mustRegister(t, svc, "ada@example.com")

	_, wrongPassword := svc.Login(ctx, "ada@example.com", "wrongpass")
	_, unknownEmail := svc.Login(ctx, "nobody@example.com", "secret123")

	deactivated := users.users[user.ID]
	deactivated.IsActive = false
	users.users[user.ID] = deactivated
	_, inactive := svc.Login(ctx, "ada@example.com", "secret123")

	assert.ErrorIs(t, wrongPassword, ErrInvalidCredentials)
	assert.ErrorIs(t, unknownEmail, ErrInvalidCredentials)
	assert.ErrorIs(t, inactive, ErrInvalidCredentials)
	assert.Equal(t, wrongPassword.Error(), unknownEmail.Error())
	assert.Equal(t, wrongPassword.Error(), inactive.Error())
}

func TestRefreshRotatesToken(t *testing.T) {
	svc, _, sessions, _ := newTestAuthService()
	ctx := context.Background()

	user := mustRegister(t, svc, "ada@example.com")
	first, err := svc.Login(ctx, "ada@example.com", "secret123")
	require.NoError(t, err)

	second, err := svc.Refresh(ctx, first.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)
	assert.Equal(t, 1, sessions.refreshTokenCount(user.ID))

	// The rotated-out token is no longer usable.
	_, err = svc.Refresh(ctx, first.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidToken)

	// The replacement still is.
	_, err = svc.Refresh(ctx, second.RefreshToken)
	require.NoError(t, err)
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	svc, _, _, _ := newTestAuthService()
	ctx := context.Background()

	mustRegister(t, svc, "ada@example.com")
	resp, err := svc.Login(ctx, "ada@example.com", "secret123")
	require.NoError(t, err)

	_, err = svc.Refresh(ctx, resp.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRefreshRejectsInactiveUser(t *testing.T) {
	svc, users, _, _ := newTestAuthService()
	ctx := context.Background()

	user := mustRegister(t, svc, "ada@example.com")
	resp, err := svc.Login(ctx, "ada@example.com", "secret123")
	require.NoError(t, err)

	deactivated := users.users[user.ID]
	deactivated.IsActive = false
	users.users[user.ID] = deactivated

	_, err = svc.Refresh(ctx, resp.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestLogout(t *testing.T) {
	svc, _, _, _ := newTestAuthService()
	ctx := context.Background()

	mustRegister(t, svc, "ada@example.com")
	resp, err := svc.Login(ctx, "ada@example.com", "secret123")
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, resp.RefreshToken))

	_, err = svc.Refresh(ctx, resp.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidToken)

	// Logging out an unknown token is not an error.
	assert.NoError(t, svc.Logout(ctx, "no-such-token"))
}

func TestPasswordResetFlow(t *testing.T) {
	svc, _, sessions, mail := newTestAuthService()
	ctx := context.Background()

	user := mustRegister(t, svc, "ada@example.com")
	resp, err := svc.Login(ctx, "ada@example.com", "secret123")
	require.NoError(t, err)

	require.NoError(t, svc.ForgotPassword(ctx, "ada@example.com"))
	require.Equal(t, "ada@example.com", mail.sentTo)
	require.NotEmpty(t, mail.lastToken)

	require.NoError(t, svc.ResetPassword(ctx, mail.lastToken, "newsecret"))

	// Every session is revoked by the reset.
	assert.Equal(t, 0, sessions.refreshTokenCount(user.ID))
	_, err = svc.Refresh(ctx, resp.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = svc.Login(ctx, "ada@example.com", "secret123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Login(ctx, "ada@example.com", "newsecret")
	assert.NoError(t, err)

	// A reset token is single-use.
	err = svc.ResetPassword(ctx, mail.lastToken, "anothersecret")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestForgotPasswordUnknownEmail(t *testing.T) {
	svc, _, _, mail := newTestAuthService()

	// Succeeds without sending anything, so callers cannot probe
	// which emails have accounts.
	require.NoError(t, svc.ForgotPassword(context.Background(), "nobody@example.com"))
	assert.Zero(t, mail.sends)
}

func TestResetPasswordUnknownToken(t *testing.T) {
	svc, _, _, _ := newTestAuthService()

	err := svc.ResetPassword(context.Background(), "bogus", "newsecret")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestChangePassword(t *testing.T) {
	svc, _, sessions, _ := newTestAuthService()
	ctx := context.Background()

	user := mustRegister(t, svc, "ada@example.com")
	_, err := svc.Login(ctx, "ada@example.com", "secret123")
	require.NoError(t, err)

	err = svc.ChangePassword(ctx, user.ID, "wrongpass", "newsecret")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	require.NoError(t, svc.ChangePassword(ctx, user.ID, "secret123", "newsecret"))
	assert.Equal(t, 0, sessions.refreshTokenCount(user.ID))

	_, err = svc.Login(ctx, "ada@example.com", "newsecret")
	assert.NoError(t, err)
}
