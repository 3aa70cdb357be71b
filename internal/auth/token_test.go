package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/helmdesk/helmdesk/testing"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newTestCodec(now time.Time) *TokenCodec {
	codec := NewTokenCodec(testSecret, 30*time.Minute, 14*24*time.Hour)
	codec.now = func() time.Time { return now }
	return codec
}

func TestTokenRoundTrip(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	codec := newTestCodec(now)

	signed, err := codec.Issue(TokenAccess, 42, "ops@helmdesk.local", []string{"ADMIN", "AUDITOR"})
	require.NoError(t, err)

	claims, err := codec.Parse(signed)
	require.NoError(t, err)

	userID, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, int64(42), userID)
	assert.Equal(t, "ops@helmdesk.local", claims.Email)
	assert.Equal(t, []string{"ADMIN", "AUDITOR"}, claims.Roles)
	assert.NotEmpty(t, claims.ID, "every token carries a unique id")
}

func TestTokenKindsUseDistinctLifetimes(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	codec := newTestCodec(now)

	access, err := codec.Issue(TokenAccess, 1, "a@helmdesk.local", nil)
	require.NoError(t, err)
	refresh, err := codec.Issue(TokenRefresh, 1, "a@helmdesk.local", nil)
	require.NoError(t, err)

	accessClaims, err := codec.Parse(access)
	require.NoError(t, err)
	refreshClaims, err := codec.Parse(refresh)
	require.NoError(t, err)

	assert.Equal(t, now.Add(30*time.Minute), accessClaims.ExpiresAt.Time)
	assert.Equal(t, now.Add(14*24*time.Hour), refreshClaims.ExpiresAt.Time)
}

func TestParseRejectsWrongKey(t *testing.T) {
	now := time.Now()
	codec := newTestCodec(now)
	other := NewTokenCodec("another-secret-another-secret-xx", 30*time.Minute, time.Hour)
	other.now = func() time.Time { return now }

	signed, err := other.Issue(TokenAccess, 7, "x@helmdesk.local", nil)
	require.NoError(t, err)

	_, err = codec.Parse(signed)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestParseRejectsExpiredToken(t *testing.T) {
	issuedAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	codec := newTestCodec(issuedAt)

	signed, err := codec.Issue(TokenAccess, 7, "x@helmdesk.local", nil)
	require.NoError(t, err)

	codec.now = func() time.Time { return issuedAt.Add(31 * time.Minute) }
	_, err = codec.Parse(signed)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestParseRejectsGarbage(t *testing.T) {
	codec := newTestCodec(time.Now())
	_, err := codec.Parse("not-a-token")
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestClaimsUserIDRejectsNonNumericSubject(t *testing.T) {
	claims := &Claims{}
	claims.Subject = "abc"
	_, err := claims.UserID()
	assert.ErrorIs(t, err, ErrTokenInvalid)
}
