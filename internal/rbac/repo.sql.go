package rbac

import (
	"context"
	"errors"
	"fmt"

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

const roleColumns = `id, code, name, description, is_active, is_system, created_at, updated_at`

// ListRoles returns all roles ordered by code.
func (r *PGRepository) ListRoles(ctx context.Context) ([]Role, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+roleColumns+` FROM roles ORDER BY code`)
	if err != nil {
		return nil, fmt.Errorf("rbac: list roles: %w", err)
	}
	defer rows.Close()

	var roles []Role
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

// FindRole fetches a role by id without its permissions.
func (r *PGRepository) FindRole(ctx context.Context, id int64) (*Role, error) {
	var role Role
	err := r.pool.QueryRow(ctx, `SELECT `+roleColumns+` FROM roles WHERE id = $1`, id).Scan(
		&role.ID, &role.Code, &role.Name, &role.Description, &role.IsActive, &role.IsSystem,
		&role.CreatedAt, &role.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("rbac: find role: %w", err)
	}
	return &role, nil
}

// FindRoleWithPermissions fetches a role and eagerly attaches its permissions.
func (r *PGRepository) FindRoleWithPermissions(ctx context.Context, id int64) (*Role, error) {
	role, err := r.FindRole(ctx, id)
	if err != nil {
		return nil, err
	}
	rows, err := r.pool.Query(ctx, `
		SELECT p.id, p.resource, p.action, p.name, p.description
		FROM permissions p
		JOIN role_permissions rp ON rp.permission_id = p.id
		WHERE rp.role_id = $1
		ORDER BY p.resource, p.action`, id)
	if err != nil {
		return nil, fmt.Errorf("rbac: query role permissions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		perm, err := scanPermission(rows)
		if err != nil {
			return nil, err
		}
		role.Permissions = append(role.Permissions, perm)
	}
	return role, rows.Err()
}

// RoleCodeExists reports whether a role code is already taken.
func (r *PGRepository) RoleCodeExists(ctx context.Context, code string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM roles WHERE code = $1)`, code).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("rbac: role code exists: %w", err)
	}
	return exists, nil
}

// CreateRole inserts a new role and fills generated fields.
func (r *PGRepository) CreateRole(ctx context.Context, role *Role) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO roles (code, name, description, is_active, is_system, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, now(), now())
		RETURNING id, created_at, updated_at`,
		role.Code, role.Name, role.Description, role.IsActive, role.IsSystem,
	).Scan(&role.ID, &role.CreatedAt, &role.UpdatedAt)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return shared.ErrDuplicate
		}
		return fmt.Errorf("rbac: create role: %w", err)
	}
	return nil
}

// UpdateRole rewrites the mutable fields of a role. Code and isSystem are
// immutable.
func (r *PGRepository) UpdateRole(ctx context.Context, role *Role) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE roles SET name = $2, description = $3, is_active = $4, updated_at = now()
		WHERE id = $1`, role.ID, role.Name, role.Description, role.IsActive)
	if err != nil {
		return fmt.Errorf("rbac: update role: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// DeleteRole removes a role and its assignment rows.
func (r *PGRepository) DeleteRole(ctx context.Context, id int64) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM role_permissions WHERE role_id = $1`, id); err != nil {
			return fmt.Errorf("rbac: delete role permissions: %w", err)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM admin_user_roles WHERE role_id = $1`, id); err != nil {
			return fmt.Errorf("rbac: delete user roles: %w", err)
		}
		tag, err := tx.Exec(ctx, `DELETE FROM roles WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("rbac: delete role: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
}

// ReplaceRolePermissions swaps the full permission set of a role.
func (r *PGRepository) ReplaceRolePermissions(ctx context.Context, roleID int64, permissionIDs []int64) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM role_permissions WHERE role_id = $1`, roleID); err != nil {
			return fmt.Errorf("rbac: clear role permissions: %w", err)
		}
		for _, permID := range permissionIDs {
			if _, err := tx.Exec(ctx,
				`INSERT INTO role_permissions (role_id, permission_id) VALUES ($1, $2)`,
				roleID, permID); err != nil {
				return fmt.Errorf("rbac: attach permission %d: %w", permID, err)
			}
		}
		return nil
	})
}

// ListPermissions returns all permissions ordered by resource then action.
func (r *PGRepository) ListPermissions(ctx context.Context) ([]Permission, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, resource, action, name, description
		FROM permissions ORDER BY resource, action`)
	if err != nil {
		return nil, fmt.Errorf("rbac: list permissions: %w", err)
	}
	defer rows.Close()

	var perms []Permission
	for rows.Next() {
		perm, err := scanPermission(rows)
		if err != nil {
			return nil, err
		}
		perms = append(perms, perm)
	}
	return perms, rows.Err()
}

// FindPermission fetches a permission by id.
func (r *PGRepository) FindPermission(ctx context.Context, id int64) (*Permission, error) {
	var perm Permission
	err := r.pool.QueryRow(ctx, `
		SELECT id, resource, action, name, description FROM permissions WHERE id = $1`, id,
	).Scan(&perm.ID, &perm.Resource, &perm.Action, &perm.Name, &perm.Description)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("rbac: find permission: %w", err)
	}
	perm.Authority = AuthorityOf(perm.Resource, perm.Action)
	return &perm, nil
}

// CreatePermission inserts a new permission. The unique (resource, action)
// constraint surfaces duplicates.
func (r *PGRepository) CreatePermission(ctx context.Context, perm *Permission) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO permissions (resource, action, name, description)
		VALUES ($1, $2, $3, $4)
		RETURNING id`,
		perm.Resource, perm.Action, perm.Name, perm.Description,
	).Scan(&perm.ID)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return shared.ErrDuplicate
		}
		return fmt.Errorf("rbac: create permission: %w", err)
	}
	perm.Authority = AuthorityOf(perm.Resource, perm.Action)
	return nil
}

// UpdatePermission rewrites the display fields. The (resource, action) pair
// is immutable once created.
func (r *PGRepository) UpdatePermission(ctx context.Context, perm *Permission) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE permissions SET name = $2, description = $3 WHERE id = $1`,
		perm.ID, perm.Name, perm.Description)
	if err != nil {
		return fmt.Errorf("rbac: update permission: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// DeletePermission removes a permission and its role links.
func (r *PGRepository) DeletePermission(ctx context.Context, id int64) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM role_permissions WHERE permission_id = $1`, id); err != nil {
			return fmt.Errorf("rbac: delete permission links: %w", err)
		}
		tag, err := tx.Exec(ctx, `DELETE FROM permissions WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("rbac: delete permission: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
}

// UserExists reports whether the admin user is present.
func (r *PGRepository) UserExists(ctx context.Context, userID int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM admin_users WHERE id = $1)`, userID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("rbac: user exists: %w", err)
	}
	return exists, nil
}

// UserRoles lists the roles assigned to a user.
func (r *PGRepository) UserRoles(ctx context.Context, userID int64) ([]RoleSummary, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT r.id, r.code, r.name
		FROM roles r
		JOIN admin_user_roles ur ON ur.role_id = r.id
		WHERE ur.admin_user_id = $1
		ORDER BY r.code`, userID)
	if err != nil {
		return nil, fmt.Errorf("rbac: user roles: %w", err)
	}
	defer rows.Close()

	var roles []RoleSummary
	for rows.Next() {
		var role RoleSummary
		if err := rows.Scan(&role.ID, &role.Code, &role.Name); err != nil {
			return nil, fmt.Errorf("rbac: scan user role: %w", err)
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

// ReplaceUserRoles swaps the full role set of a user.
func (r *PGRepository) ReplaceUserRoles(ctx context.Context, userID int64, roleIDs []int64) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM admin_user_roles WHERE admin_user_id = $1`, userID); err != nil {
			return fmt.Errorf("rbac: clear user roles: %w", err)
		}
		for _, roleID := range roleIDs {
			if _, err := tx.Exec(ctx,
				`INSERT INTO admin_user_roles (admin_user_id, role_id) VALUES ($1, $2)`,
				userID, roleID); err != nil {
				return fmt.Errorf("rbac: assign role %d: %w", roleID, err)
			}
		}
		return nil
	})
}

// UserAuthorities returns the deduplicated authority strings granted to a
// user through any of their roles, sorted for determinism.
func (r *PGRepository) UserAuthorities(ctx context.Context, userID int64) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT DISTINCT p.resource || ':' || p.action
		FROM permissions p
		JOIN role_permissions rp ON rp.permission_id = p.id
		JOIN admin_user_roles ur ON ur.role_id = rp.role_id
		WHERE ur.admin_user_id = $1
		ORDER BY 1`, userID)
	if err != nil {
		return nil, fmt.Errorf("rbac: user authorities: %w", err)
	}
	defer rows.Close()

	var authorities []string
	for rows.Next() {
		var authority string
		if err := rows.Scan(&authority); err != nil {
			return nil, fmt.Errorf("rbac: scan authority: %w", err)
		}
		authorities = append(authorities, authority)
	}
	return authorities, rows.Err()
}

func scanRole(rows pgx.Rows) (Role, error) {
	var role Role
	err := rows.Scan(&role.ID, &role.Code, &role.Name, &role.Description, &role.IsActive,
		&role.IsSystem, &role.CreatedAt, &role.UpdatedAt)
	if err != nil {
		return Role{}, fmt.Errorf("rbac: scan role: %w", err)
	}
	return role, nil
}

func scanPermission(rows pgx.Rows) (Permission, error) {
	var perm Permission
	if err := rows.Scan(&perm.ID, &perm.Resource, &perm.Action, &perm.Name, &perm.Description); err != nil {
		return Permission{}, fmt.Errorf("rbac: scan permission: %w", err)
	}
	perm.Authority = AuthorityOf(perm.Resource, perm.Action)
	return perm, nil
}

var _ Repository = (*PGRepository)(nil)
