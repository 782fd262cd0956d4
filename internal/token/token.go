package token

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Kind distinguishes access tokens from refresh tokens. The kind is
// embedded as a claim and checked on verification, so an access token
// can never be replayed against the refresh endpoint (and vice versa),
// independently of the session ledger.
type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
)

// ErrInvalidToken is returned for any token that does not verify:
// bad signature, malformed, expired, or wrong kind. Callers get no
// further detail.
var ErrInvalidToken = errors.New("invalid token")

type claims struct {
	Kind Kind `json:"kind"`
	jwt.RegisteredClaims
}

// Codec signs and verifies compact claim sets with a shared secret.
// Issue and Verify are pure functions of their inputs and the clock;
// no storage is consulted. Revocation of refresh tokens is the session
// ledger's job.
type Codec struct {
	secret []byte
}

func NewCodec(secret string) *Codec {
	return &Codec{secret: []byte(secret)}
}

// Issue signs a token carrying the subject id, the kind, issued-at,
// an expiry of now+ttl, and a random jti. The jti makes every issued
// token distinct even for the same subject inside the same second,
// which the rotation ledger relies on: rotating a row must always
// replace the old string with a different one.
func (c *Codec) Issue(userID int, kind Kind, ttl time.Duration) (string, error) {
	now := time.Now()
	tokenClaims := claims{
		Kind: kind,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   strconv.Itoa(userID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, tokenClaims)
	return token.SignedString(c.secret)
}

// Verify checks signature, expiry, and kind, and returns the subject
// user id.
func (c *Codec) Verify(tokenString string, kind Kind) (int, error) {
	parsed := claims{}
	token, err := jwt.ParseWithClaims(tokenString, &parsed, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return c.secret, nil
	})
	if err != nil || !token.Valid {
		return 0, ErrInvalidToken
	}
	if parsed.Kind != kind {
		return 0, ErrInvalidToken
	}
	userID, err := strconv.Atoi(strings.TrimSpace(parsed.Subject))
	if err != nil || userID < 1 {
		return 0, ErrInvalidToken
	}
	return userID, nil
}
