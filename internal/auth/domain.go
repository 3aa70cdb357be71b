package auth

import (
	"sort"
	"time"
)

// MaxLoginFailCount is the number of consecutive failed logins that locks an
// account. The lock is permanent until a successful login clears it.
const MaxLoginFailCount = 5

// AdminUser represents a back-office account with its assigned roles.
type AdminUser struct {
	ID             int64
	Email          string
	Name           string
	PasswordHash   string
	IsActive       bool
	LoginFailCount int
	LockedAt       *time.Time
	Roles          []Role
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Locked reports whether the account is locked out.
func (u *AdminUser) Locked() bool {
	return u.LockedAt != nil
}

// RecordLoginFailure increments the fail counter and locks the account once
// the threshold is reached.
func (u *AdminUser) RecordLoginFailure(now time.Time) {
	u.LoginFailCount++
	if u.LoginFailCount >= MaxLoginFailCount {
		ts := now
		u.LockedAt = &ts
	}
}

// ResetLoginFailures clears the fail counter and any lockout. A successful
// login always unlocks.
func (u *AdminUser) ResetLoginFailures() {
	u.LoginFailCount = 0
	u.LockedAt = nil
}

// RoleCodes returns the codes of the user's roles in assignment order.
func (u *AdminUser) RoleCodes() []string {
	codes := make([]string, 0, len(u.Roles))
	for _, r := range u.Roles {
		codes = append(codes, r.Code)
	}
	return codes
}

// EffectiveAuthorities returns the deduplicated union of authority strings
// across all of the user's roles, sorted for deterministic output.
func (u *AdminUser) EffectiveAuthorities() []string {
	seen := make(map[string]struct{})
	for _, role := range u.Roles {
		for _, perm := range role.Permissions {
			seen[perm.Authority()] = struct{}{}
		}
	}
	authorities := make([]string, 0, len(seen))
	for a := range seen {
		authorities = append(authorities, a)
	}
	sort.Strings(authorities)
	return authorities
}

// Role groups permissions under a stable code used in token claims.
type Role struct {
	ID          int64
	Code        string
	Name        string
	Description string
	IsActive    bool
	IsSystem    bool
	Permissions []Permission
}

// Permission is an atomic grantable capability identified by (resource, action).
type Permission struct {
	ID          int64
	Resource    string
	Action      string
	Name        string
	Description string
}

// Authority returns the canonical "resource:action" string checked by
// authorization decisions.
func (p Permission) Authority() string {
	return p.Resource + ":" + p.Action
}

// RefreshToken is a stored long-lived credential. At most one live token
// exists per user; issuing a new one replaces any prior row.
type RefreshToken struct {
	ID        int64
	UserID    int64
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Expired reports whether the token's expiry has passed. Checked explicitly
// on stored records so already-trusted rows need no signature re-verification.
func (t *RefreshToken) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}
