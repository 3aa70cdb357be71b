package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/helmdesk/helmdesk/internal/menu"
	"github.com/helmdesk/helmdesk/internal/shared"
	_ "github.com/helmdesk/helmdesk/testing"
)

// ============================================================================
// MOCK REPOSITORY
// ============================================================================

type mockRepository struct {
	usersByID    map[int64]*AdminUser
	usersByEmail map[string]*AdminUser
	nextUserID   int64

	tokens      map[string]*RefreshToken
	nextTokenID int64

	txError error
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		usersByID:    make(map[int64]*AdminUser),
		usersByEmail: make(map[string]*AdminUser),
		tokens:       make(map[string]*RefreshToken),
		nextUserID:   1,
		nextTokenID:  1,
	}
}

func (m *mockRepository) addUser(user *AdminUser) *AdminUser {
	if user.ID == 0 {
		user.ID = m.nextUserID
		m.nextUserID++
	}
	m.usersByID[user.ID] = user
	m.usersByEmail[user.Email] = user
	return user
}

func (m *mockRepository) FindUserByEmail(ctx context.Context, email string) (*AdminUser, error) {
	u, ok := m.usersByEmail[email]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return u, nil
}

func (m *mockRepository) FindUserByID(ctx context.Context, id int64) (*AdminUser, error) {
	u, ok := m.usersByID[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return u, nil
}

func (m *mockRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	_, ok := m.usersByEmail[email]
	return ok, nil
}

func (m *mockRepository) CreateUser(ctx context.Context, user *AdminUser) error {
	if _, ok := m.usersByEmail[user.Email]; ok {
		return shared.ErrDuplicateEmail
	}
	m.addUser(user)
	return nil
}

func (m *mockRepository) FindRefreshToken(ctx context.Context, value string) (*RefreshToken, error) {
	t, ok := m.tokens[value]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return t, nil
}

func (m *mockRepository) DeleteRefreshToken(ctx context.Context, value string) error {
	delete(m.tokens, value)
	return nil
}

func (m *mockRepository) DeleteRefreshTokensByUser(ctx context.Context, userID int64) error {
	for value, t := range m.tokens {
		if t.UserID == userID {
			delete(m.tokens, value)
		}
	}
	return nil
}

func (m *mockRepository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if m.txError != nil {
		return m.txError
	}
	return fn(ctx, &mockTxRepo{mock: m})
}

type mockTxRepo struct {
	mock *mockRepository
}

func (t *mockTxRepo) UpdateLoginState(ctx context.Context, userID int64, failCount int, lockedAt *time.Time) error {
	u, ok := t.mock.usersByID[userID]
	if !ok {
		return shared.ErrNotFound
	}
	u.LoginFailCount = failCount
	u.LockedAt = lockedAt
	return nil
}

func (t *mockTxRepo) ReplaceRefreshToken(ctx context.Context, userID int64, token string, expiresAt time.Time) error {
	if err := t.mock.DeleteRefreshTokensByUser(ctx, userID); err != nil {
		return err
	}
	t.mock.tokens[token] = &RefreshToken{
		ID:        t.mock.nextTokenID,
		UserID:    userID,
		Token:     token,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now().UTC(),
	}
	t.mock.nextTokenID++
	return nil
}

func (m *mockRepository) tokensForUser(userID int64) []*RefreshToken {
	var result []*RefreshToken
	for _, t := range m.tokens {
		if t.UserID == userID {
			result = append(result, t)
		}
	}
	return result
}

// ============================================================================
// STUB MENU PROVIDER
// ============================================================================

type stubMenus struct {
	nodes           []menu.Node
	seenAuthorities []string
}

func (s *stubMenus) AccessibleTree(ctx context.Context, authorities []string) ([]menu.Node, error) {
	s.seenAuthorities = authorities
	return s.nodes, nil
}

// ============================================================================
// HELPERS
// ============================================================================

func newTestService(repo *mockRepository, menus *stubMenus) *Service {
	if menus == nil {
		menus = &stubMenus{}
	}
	codec := NewTokenCodec(testSecret, 30*time.Minute, 14*24*time.Hour)
	return NewService(repo, codec, BcryptHasher{}, menus)
}

func hashPassword(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func seedUser(t *testing.T, repo *mockRepository, email, password string) *AdminUser {
	t.Helper()
	return repo.addUser(&AdminUser{
		Email:        email,
		Name:         "Test User",
		PasswordHash: hashPassword(t, password),
		IsActive:     true,
	})
}

// ============================================================================
// SIGN UP
// ============================================================================

func TestSignUpCreatesActiveUserWithoutRoles(t *testing.T) {
	repo := newMockRepository()
	svc := newTestService(repo, nil)

	profile, err := svc.SignUp(context.Background(), SignUpInput{
		Email:    "new@helmdesk.local",
		Password: "s3cret-pass",
		Name:     "New Operator",
	})
	require.NoError(t, err)

	assert.Equal(t, "new@helmdesk.local", profile.Email)
	assert.True(t, profile.IsActive)
	assert.Empty(t, profile.Roles)

	stored := repo.usersByEmail["new@helmdesk.local"]
	require.NotNil(t, stored)
	assert.NotEqual(t, "s3cret-pass", stored.PasswordHash, "password must be stored hashed")
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("s3cret-pass")))
}

func TestSignUpDuplicateEmail(t *testing.T) {
	repo := newMockRepository()
	seedUser(t, repo, "taken@helmdesk.local", "whatever1")
	svc := newTestService(repo, nil)

	_, err := svc.SignUp(context.Background(), SignUpInput{
		Email:    "taken@helmdesk.local",
		Password: "s3cret-pass",
		Name:     "Someone Else",
	})
	assert.ErrorIs(t, err, shared.ErrDuplicateEmail)
}

// ============================================================================
// LOGIN
// ============================================================================

func TestLoginUnknownEmailLooksLikeWrongPassword(t *testing.T) {
	repo := newMockRepository()
	svc := newTestService(repo, nil)

	_, err := svc.Login(context.Background(), "ghost@helmdesk.local", "anything")
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestLoginWrongPasswordIncrementsFailCount(t *testing.T) {
	repo := newMockRepository()
	user := seedUser(t, repo, "ops@helmdesk.local", "correct-pass")
	svc := newTestService(repo, nil)

	_, err := svc.Login(context.Background(), "ops@helmdesk.local", "wrong-pass")
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)
	assert.Equal(t, 1, user.LoginFailCount)
	assert.Nil(t, user.LockedAt)
}

func TestLoginLocksAfterFiveFailures(t *testing.T) {
	repo := newMockRepository()
	user := seedUser(t, repo, "ops@helmdesk.local", "correct-pass")
	svc := newTestService(repo, nil)

	for i := 0; i < MaxLoginFailCount; i++ {
		_, err := svc.Login(context.Background(), "ops@helmdesk.local", "wrong-pass")
		assert.ErrorIs(t, err, shared.ErrInvalidCredentials)
	}
	assert.Equal(t, MaxLoginFailCount, user.LoginFailCount)
	require.NotNil(t, user.LockedAt, "fifth failure must lock the account")

	// Even the correct password is refused once locked.
	_, err := svc.Login(context.Background(), "ops@helmdesk.local", "correct-pass")
	assert.ErrorIs(t, err, shared.ErrAccountLocked)
}

func TestLoginInactiveAccount(t *testing.T) {
	repo := newMockRepository()
	user := seedUser(t, repo, "ops@helmdesk.local", "correct-pass")
	user.IsActive = false
	svc := newTestService(repo, nil)

	_, err := svc.Login(context.Background(), "ops@helmdesk.local", "correct-pass")
	assert.ErrorIs(t, err, shared.ErrAccountInactive)
}

func TestLoginSuccessResetsCountersAndStoresToken(t *testing.T) {
	repo := newMockRepository()
	user := seedUser(t, repo, "ops@helmdesk.local", "correct-pass")
	user.LoginFailCount = 3
	svc := newTestService(repo, nil)

	pair, err := svc.Login(context.Background(), "ops@helmdesk.local", "correct-pass")
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)

	assert.Equal(t, 0, user.LoginFailCount, "success clears the fail counter")
	assert.Nil(t, user.LockedAt)

	stored := repo.tokensForUser(user.ID)
	require.Len(t, stored, 1)
	assert.Equal(t, pair.RefreshToken, stored[0].Token)
	assert.True(t, stored[0].ExpiresAt.After(time.Now().Add(13*24*time.Hour)))
}

func TestLoginReplacesPreviousRefreshToken(t *testing.T) {
	repo := newMockRepository()
	user := seedUser(t, repo, "ops@helmdesk.local", "correct-pass")
	svc := newTestService(repo, nil)

	first, err := svc.Login(context.Background(), "ops@helmdesk.local", "correct-pass")
	require.NoError(t, err)
	second, err := svc.Login(context.Background(), "ops@helmdesk.local", "correct-pass")
	require.NoError(t, err)

	stored := repo.tokensForUser(user.ID)
	require.Len(t, stored, 1, "at most one live refresh token per user")
	assert.Equal(t, second.RefreshToken, stored[0].Token)
	assert.NotContains(t, repo.tokens, first.RefreshToken)
}

// ============================================================================
// REFRESH
// ============================================================================

func TestRefreshRotatesToken(t *testing.T) {
	repo := newMockRepository()
	user := seedUser(t, repo, "ops@helmdesk.local", "correct-pass")
	svc := newTestService(repo, nil)

	pair, err := svc.Login(context.Background(), "ops@helmdesk.local", "correct-pass")
	require.NoError(t, err)

	rotated, err := svc.Refresh(context.Background(), pair.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, pair.RefreshToken, rotated.RefreshToken)

	stored := repo.tokensForUser(user.ID)
	require.Len(t, stored, 1)
	assert.Equal(t, rotated.RefreshToken, stored[0].Token)

	// The consumed token cannot be replayed.
	_, err = svc.Refresh(context.Background(), pair.RefreshToken)
	assert.ErrorIs(t, err, shared.ErrInvalidRefreshToken)
}

func TestRefreshUnknownToken(t *testing.T) {
	repo := newMockRepository()
	svc := newTestService(repo, nil)

	_, err := svc.Refresh(context.Background(), "never-issued")
	assert.ErrorIs(t, err, shared.ErrInvalidRefreshToken)
}

func TestRefreshExpiredTokenIsReaped(t *testing.T) {
	repo := newMockRepository()
	user := seedUser(t, repo, "ops@helmdesk.local", "correct-pass")
	repo.tokens["stale"] = &RefreshToken{
		ID:        99,
		UserID:    user.ID,
		Token:     "stale",
		ExpiresAt: time.Now().UTC().Add(-time.Minute),
	}
	svc := newTestService(repo, nil)

	_, err := svc.Refresh(context.Background(), "stale")
	assert.ErrorIs(t, err, shared.ErrExpiredRefreshToken)
	assert.NotContains(t, repo.tokens, "stale", "expired token row must be deleted")

	_, err = svc.Refresh(context.Background(), "stale")
	assert.ErrorIs(t, err, shared.ErrInvalidRefreshToken)
}

func TestRefreshOrphanedToken(t *testing.T) {
	repo := newMockRepository()
	repo.tokens["orphan"] = &RefreshToken{
		ID:        7,
		UserID:    123,
		Token:     "orphan",
		ExpiresAt: time.Now().UTC().Add(time.Hour),
	}
	svc := newTestService(repo, nil)

	_, err := svc.Refresh(context.Background(), "orphan")
	assert.ErrorIs(t, err, shared.ErrUserNotFound)
}

// ============================================================================
// LOGOUT
// ============================================================================

func TestLogoutRevokesTokensAndIsIdempotent(t *testing.T) {
	repo := newMockRepository()
	user := seedUser(t, repo, "ops@helmdesk.local", "correct-pass")
	svc := newTestService(repo, nil)

	_, err := svc.Login(context.Background(), "ops@helmdesk.local", "correct-pass")
	require.NoError(t, err)
	require.Len(t, repo.tokensForUser(user.ID), 1)

	require.NoError(t, svc.Logout(context.Background(), user.ID))
	assert.Empty(t, repo.tokensForUser(user.ID))

	require.NoError(t, svc.Logout(context.Background(), user.ID))
}

// ============================================================================
// MY INFO
// ============================================================================

func TestGetMyInfoAggregatesAuthoritiesAndMenus(t *testing.T) {
	repo := newMockRepository()
	user := repo.addUser(&AdminUser{
		Email:        "admin@helmdesk.local",
		Name:         "Admin",
		PasswordHash: hashPassword(t, "irrelevant1"),
		IsActive:     true,
		Roles: []Role{
			{
				ID: 1, Code: "ADMIN", Name: "Administrator",
				Permissions: []Permission{
					{Resource: "user", Action: "read"},
					{Resource: "user", Action: "create"},
				},
			},
			{
				ID: 2, Code: "AUDITOR", Name: "Auditor",
				Permissions: []Permission{
					{Resource: "user", Action: "read"},
					{Resource: "role", Action: "read"},
				},
			},
		},
	})
	menus := &stubMenus{nodes: []menu.Node{{ID: 1, Name: "Dashboard", Code: "dashboard"}}}
	svc := newTestService(repo, menus)

	info, err := svc.GetMyInfo(context.Background(), user.ID)
	require.NoError(t, err)

	assert.Equal(t, []string{"role:read", "user:create", "user:read"}, info.Authorities,
		"authorities are deduplicated across roles and sorted")
	assert.Equal(t, menus.seenAuthorities, info.Authorities,
		"menu filtering sees the same authority set")
	require.Len(t, info.Menus, 1)
	assert.Equal(t, "dashboard", info.Menus[0].Code)
	require.Len(t, info.Roles, 2)
	assert.Equal(t, "ADMIN", info.Roles[0].Code)
}

func TestGetMyInfoUnknownUser(t *testing.T) {
	repo := newMockRepository()
	svc := newTestService(repo, nil)

	_, err := svc.GetMyInfo(context.Background(), 404)
	assert.ErrorIs(t, err, shared.ErrUserNotFound)
}
