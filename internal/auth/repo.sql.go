package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/helmdesk/helmdesk/internal/platform/db"
	"github.com/helmdesk/helmdesk/internal/shared"
)

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const userColumns = `id, email, name, password_hash, is_active, login_fail_count, locked_at, created_at, updated_at`

// FindUserByEmail fetches a user with roles and permissions eagerly loaded.
func (r *PGRepository) FindUserByEmail(ctx context.Context, email string) (*AdminUser, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM admin_users WHERE email = $1`, email)
	return r.scanUserGraph(ctx, row)
}

// FindUserByID fetches a user with roles and permissions eagerly loaded.
func (r *PGRepository) FindUserByID(ctx context.Context, id int64) (*AdminUser, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM admin_users WHERE id = $1`, id)
	return r.scanUserGraph(ctx, row)
}

func (r *PGRepository) scanUserGraph(ctx context.Context, row pgx.Row) (*AdminUser, error) {
	var user AdminUser
	err := row.Scan(&user.ID, &user.Email, &user.Name, &user.PasswordHash, &user.IsActive,
		&user.LoginFailCount, &user.LockedAt, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("auth: scan user: %w", err)
	}
	roles, err := r.loadRoles(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	user.Roles = roles
	return &user, nil
}

func (r *PGRepository) loadRoles(ctx context.Context, userID int64) ([]Role, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT r.id, r.code, r.name, r.description, r.is_active, r.is_system
		FROM roles r
		JOIN admin_user_roles ur ON ur.role_id = r.id
		WHERE ur.admin_user_id = $1
		ORDER BY r.id`, userID)
	if err != nil {
		return nil, fmt.Errorf("auth: query roles: %w", err)
	}
	defer rows.Close()

	var roles []Role
	for rows.Next() {
		var role Role
		if err := rows.Scan(&role.ID, &role.Code, &role.Name, &role.Description, &role.IsActive, &role.IsSystem); err != nil {
			return nil, fmt.Errorf("auth: scan role: %w", err)
		}
		roles = append(roles, role)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range roles {
		perms, err := r.loadPermissions(ctx, roles[i].ID)
		if err != nil {
			return nil, err
		}
		roles[i].Permissions = perms
	}
	return roles, nil
}

func (r *PGRepository) loadPermissions(ctx context.Context, roleID int64) ([]Permission, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT p.id, p.resource, p.action, p.name, p.description
		FROM permissions p
		JOIN role_permissions rp ON rp.permission_id = p.id
		WHERE rp.role_id = $1
		ORDER BY p.id`, roleID)
	if err != nil {
		return nil, fmt.Errorf("auth: query permissions: %w", err)
	}
	defer rows.Close()

	var perms []Permission
	for rows.Next() {
		var perm Permission
		if err := rows.Scan(&perm.ID, &perm.Resource, &perm.Action, &perm.Name, &perm.Description); err != nil {
			return nil, fmt.Errorf("auth: scan permission: %w", err)
		}
		perms = append(perms, perm)
	}
	return perms, rows.Err()
}

// EmailExists reports whether the email is already registered.
func (r *PGRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM admin_users WHERE email = $1)`, email).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("auth: email exists: %w", err)
	}
	return exists, nil
}

// CreateUser inserts a new account and fills the generated id. A concurrent
// duplicate insert surfaces as ErrDuplicateEmail via the unique constraint.
func (r *PGRepository) CreateUser(ctx context.Context, user *AdminUser) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO admin_users (email, name, password_hash, is_active, login_fail_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, now(), now())
		RETURNING id, created_at, updated_at`,
		user.Email, user.Name, user.PasswordHash, user.IsActive, user.LoginFailCount,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return shared.ErrDuplicateEmail
		}
		return fmt.Errorf("auth: create user: %w", err)
	}
	return nil
}

// FindRefreshToken fetches a stored refresh token by its opaque value.
func (r *PGRepository) FindRefreshToken(ctx context.Context, value string) (*RefreshToken, error) {
	var token RefreshToken
	err := r.pool.QueryRow(ctx, `
		SELECT id, admin_user_id, token, expires_at, created_at
		FROM refresh_tokens WHERE token = $1`, value,
	).Scan(&token.ID, &token.UserID, &token.Token, &token.ExpiresAt, &token.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("auth: find refresh token: %w", err)
	}
	return &token, nil
}

// DeleteRefreshToken removes a stored token by value.
func (r *PGRepository) DeleteRefreshToken(ctx context.Context, value string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM refresh_tokens WHERE token = $1`, value)
	if err != nil {
		return fmt.Errorf("auth: delete refresh token: %w", err)
	}
	return nil
}

// DeleteRefreshTokensByUser removes any stored tokens for the user. Deleting
// nothing is not an error, so logout stays idempotent.
func (r *PGRepository) DeleteRefreshTokensByUser(ctx context.Context, userID int64) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM refresh_tokens WHERE admin_user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("auth: delete refresh tokens by user: %w", err)
	}
	return nil
}

// WithTx runs fn against a transactional view of the repository.
func (r *PGRepository) WithTx(ctx context.Context, fn func(ctx context.Context, tx TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &pgTxRepository{tx: tx})
	})
}

type pgTxRepository struct {
	tx pgx.Tx
}

// UpdateLoginState persists the fail counter and lockout timestamp.
func (r *pgTxRepository) UpdateLoginState(ctx context.Context, userID int64, failCount int, lockedAt *time.Time) error {
	tag, err := r.tx.Exec(ctx, `
		UPDATE admin_users SET login_fail_count = $2, locked_at = $3, updated_at = now()
		WHERE id = $1`, userID, failCount, lockedAt)
	if err != nil {
		return fmt.Errorf("auth: update login state: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrUserNotFound
	}
	return nil
}

// ReplaceRefreshToken deletes any existing token rows for the user and
// inserts the new one, so exactly one row per user survives.
func (r *pgTxRepository) ReplaceRefreshToken(ctx context.Context, userID int64, token string, expiresAt time.Time) error {
	if _, err := r.tx.Exec(ctx, `DELETE FROM refresh_tokens WHERE admin_user_id = $1`, userID); err != nil {
		return fmt.Errorf("auth: clear refresh tokens: %w", err)
	}
	_, err := r.tx.Exec(ctx, `
		INSERT INTO refresh_tokens (admin_user_id, token, expires_at, created_at)
		VALUES ($1, $2, $3, now())`, userID, token, expiresAt)
	if err != nil {
		return fmt.Errorf("auth: insert refresh token: %w", err)
	}
	return nil
}

var _ Repository = (*PGRepository)(nil)
var _ TxRepository = (*pgTxRepository)(nil)
