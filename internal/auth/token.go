package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrTokenInvalid indicates a token whose signature or structure does not
// validate, including expired tokens presented on the wire.
var ErrTokenInvalid = errors.New("token invalid")

// TokenKind selects the lifetime applied when issuing a token.
type TokenKind string

const (
	// TokenAccess is the short-lived kind presented on every request.
	TokenAccess TokenKind = "access"
	// TokenRefresh is the long-lived kind exchanged for a new pair.
	TokenRefresh TokenKind = "refresh"
)

// Claims is the signed payload carried by both token kinds. Roles are a
// snapshot of the user's role codes at issuance time, never re-resolved.
type Claims struct {
	Email string   `json:"email"`
	Roles []string `json:"roles"`
	jwt.RegisteredClaims
}

// UserID parses the subject claim back into the owning user id.
func (c *Claims) UserID() (int64, error) {
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: subject %q", ErrTokenInvalid, c.Subject)
	}
	return id, nil
}

// TokenCodec issues and verifies HMAC-signed tokens. The key is derived once
// from configuration; verification is pure and safe for concurrent use.
type TokenCodec struct {
	key        []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewTokenCodec constructs a codec from the configured secret and lifetimes.
func NewTokenCodec(secret string, accessTTL, refreshTTL time.Duration) *TokenCodec {
	return &TokenCodec{
		key:        []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

// RefreshTTL returns the configured refresh token lifetime.
func (c *TokenCodec) RefreshTTL() time.Duration {
	return c.refreshTTL
}

// Issue creates a signed token of the given kind for the user.
func (c *TokenCodec) Issue(kind TokenKind, userID int64, email string, roles []string) (string, error) {
	ttl := c.accessTTL
	if kind == TokenRefresh {
		ttl = c.refreshTTL
	}
	now := c.now()

	claims := &Claims{
		Email: email,
		Roles: append([]string(nil), roles...),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.key)
	if err != nil {
		return "", fmt.Errorf("auth: sign token: %w", err)
	}
	return signed, nil
}

// Parse verifies the signature and expiry of a token and returns its claims.
func (c *TokenCodec) Parse(value string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(value, claims, func(t *jwt.Token) (any, error) {
		return c.key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(c.now))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	if !token.Valid {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}
