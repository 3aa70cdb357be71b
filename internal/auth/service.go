package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/helmdesk/helmdesk/internal/menu"
	"github.com/helmdesk/helmdesk/internal/shared"
)

// MenuProvider resolves the menu subtree visible to a set of authorities.
type MenuProvider interface {
	AccessibleTree(ctx context.Context, authorities []string) ([]menu.Node, error)
}

// Service orchestrates sign-up, login, token rotation, logout and the
// "who am I" view. This is the component the HTTP layer calls.
type Service struct {
	repo   Repository
	codec  *TokenCodec
	hasher PasswordHasher
	menus  MenuProvider
}

// NewService constructs a new Service.
func NewService(repo Repository, codec *TokenCodec, hasher PasswordHasher, menus MenuProvider) *Service {
	return &Service{repo: repo, codec: codec, hasher: hasher, menus: menus}
}

// SignUpInput carries the fields required to register an account.
type SignUpInput struct {
	Email    string
	Password string
	Name     string
}

// RoleSummary is the public shape of an assigned role.
type RoleSummary struct {
	ID   int64  `json:"id"`
	Code string `json:"code"`
	Name string `json:"name"`
}

// Profile is the public view of an account. No password hash, no internal
// counters beyond the active flag.
type Profile struct {
	ID       int64         `json:"id"`
	Email    string        `json:"email"`
	Name     string        `json:"name"`
	Roles    []RoleSummary `json:"roles"`
	IsActive bool          `json:"isActive"`
}

// TokenPair is the result of a successful login or refresh.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// MyInfo aggregates the profile, effective authorities and accessible menus.
type MyInfo struct {
	Profile
	Authorities []string    `json:"permissions"`
	Menus       []menu.Node `json:"menus"`
}

// SignUp registers a new account with an empty role set.
func (s *Service) SignUp(ctx context.Context, input SignUpInput) (*Profile, error) {
	exists, err := s.repo.EmailExists(ctx, input.Email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, shared.ErrDuplicateEmail
	}

	hashed, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, fmt.Errorf("auth: hash password: %w", err)
	}

	user := &AdminUser{
		Email:        input.Email,
		Name:         norm.NFC.String(input.Name),
		PasswordHash: hashed,
		IsActive:     true,
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	return profileOf(user), nil
}

// Login verifies credentials and issues a fresh token pair. Account state is
// checked before the password so a locked account never leaks whether the
// password was right, and lookup failure is indistinguishable from a wrong
// password.
func (s *Service) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	user, err := s.repo.FindUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.ErrInvalidCredentials
		}
		return nil, err
	}

	if err := s.checkAccountState(user); err != nil {
		return nil, err
	}

	if err := s.hasher.Verify(user.PasswordHash, password); err != nil {
		user.RecordLoginFailure(time.Now().UTC())
		if err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
			return tx.UpdateLoginState(ctx, user.ID, user.LoginFailCount, user.LockedAt)
		}); err != nil {
			return nil, err
		}
		return nil, shared.ErrInvalidCredentials
	}

	user.ResetLoginFailures()
	return s.issueTokens(ctx, user)
}

// Refresh rotates a refresh token. The presented token is single-use: it is
// deleted whether expired or consumed.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	stored, err := s.repo.FindRefreshToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.ErrInvalidRefreshToken
		}
		return nil, err
	}

	if stored.Expired(time.Now().UTC()) {
		if err := s.repo.DeleteRefreshToken(ctx, stored.Token); err != nil {
			return nil, err
		}
		return nil, shared.ErrExpiredRefreshToken
	}

	user, err := s.repo.FindUserByID(ctx, stored.UserID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.ErrUserNotFound
		}
		return nil, err
	}

	return s.issueTokens(ctx, user)
}

// Logout revokes any stored refresh token for the user. Idempotent.
func (s *Service) Logout(ctx context.Context, userID int64) error {
	return s.repo.DeleteRefreshTokensByUser(ctx, userID)
}

// GetMyInfo loads the caller's profile, effective authorities and the menu
// subtree those authorities grant. Recomputed fresh on every call so a role
// or permission change is visible immediately.
func (s *Service) GetMyInfo(ctx context.Context, userID int64) (*MyInfo, error) {
	user, err := s.repo.FindUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.ErrUserNotFound
		}
		return nil, err
	}

	authorities := user.EffectiveAuthorities()
	menus, err := s.menus.AccessibleTree(ctx, authorities)
	if err != nil {
		return nil, err
	}

	return &MyInfo{
		Profile:     *profileOf(user),
		Authorities: authorities,
		Menus:       menus,
	}, nil
}

func (s *Service) checkAccountState(user *AdminUser) error {
	if !user.IsActive {
		return shared.ErrAccountInactive
	}
	if user.Locked() {
		return shared.ErrAccountLocked
	}
	return nil
}

// issueTokens embeds the user's current role codes as claims, replaces any
// previous refresh token row and returns the pair. Sole path that creates
// refresh-token rows, which is what keeps the single-session invariant.
func (s *Service) issueTokens(ctx context.Context, user *AdminUser) (*TokenPair, error) {
	roleCodes := user.RoleCodes()

	access, err := s.codec.Issue(TokenAccess, user.ID, user.Email, roleCodes)
	if err != nil {
		return nil, err
	}
	refresh, err := s.codec.Issue(TokenRefresh, user.ID, user.Email, roleCodes)
	if err != nil {
		return nil, err
	}

	expiresAt := time.Now().UTC().Add(s.codec.RefreshTTL())
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.UpdateLoginState(ctx, user.ID, user.LoginFailCount, user.LockedAt); err != nil {
			return err
		}
		return tx.ReplaceRefreshToken(ctx, user.ID, refresh, expiresAt)
	})
	if err != nil {
		return nil, err
	}

	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func profileOf(user *AdminUser) *Profile {
	roles := make([]RoleSummary, 0, len(user.Roles))
	for _, r := range user.Roles {
		roles = append(roles, RoleSummary{ID: r.ID, Code: r.Code, Name: r.Name})
	}
	return &Profile{
		ID:       user.ID,
		Email:    user.Email,
		Name:     user.Name,
		Roles:    roles,
		IsActive: user.IsActive,
	}
}
