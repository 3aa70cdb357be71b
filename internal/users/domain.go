package users

import "time"

// User is the administrative listing view of an account. Lockout state is
// surfaced so operators can spot brute-forced accounts.
type User struct {
	ID             int64      `json:"id"`
	Email          string     `json:"email"`
	Name           string     `json:"name"`
	IsActive       bool       `json:"isActive"`
	LoginFailCount int        `json:"loginFailCount"`
	LockedAt       *time.Time `json:"lockedAt,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}
