package auth

import (
	"context"
	"time"
)

// Repository defines persistence operations for the auth module. User lookups
// eagerly include roles and their permissions since the results feed token
// issuance and the /me view.
type Repository interface {
	FindUserByEmail(ctx context.Context, email string) (*AdminUser, error)
	FindUserByID(ctx context.Context, id int64) (*AdminUser, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	CreateUser(ctx context.Context, user *AdminUser) error
	FindRefreshToken(ctx context.Context, value string) (*RefreshToken, error)
	DeleteRefreshToken(ctx context.Context, value string) error
	DeleteRefreshTokensByUser(ctx context.Context, userID int64) error
	WithTx(ctx context.Context, fn func(ctx context.Context, tx TxRepository) error) error
}

// TxRepository exposes the mutations that must commit atomically within a
// single login or refresh operation.
type TxRepository interface {
	UpdateLoginState(ctx context.Context, userID int64, failCount int, lockedAt *time.Time) error
	ReplaceRefreshToken(ctx context.Context, userID int64, token string, expiresAt time.Time) error
}
