package rbac

import "context"

// Repository defines persistence operations for roles, permissions and their
// assignments.
type Repository interface {
	ListRoles(ctx context.Context) ([]Role, error)
	FindRole(ctx context.Context, id int64) (*Role, error)
	FindRoleWithPermissions(ctx context.Context, id int64) (*Role, error)
	RoleCodeExists(ctx context.Context, code string) (bool, error)
	CreateRole(ctx context.Context, role *Role) error
	UpdateRole(ctx context.Context, role *Role) error
	DeleteRole(ctx context.Context, id int64) error
	ReplaceRolePermissions(ctx context.Context, roleID int64, permissionIDs []int64) error

	ListPermissions(ctx context.Context) ([]Permission, error)
	FindPermission(ctx context.Context, id int64) (*Permission, error)
	CreatePermission(ctx context.Context, perm *Permission) error
	UpdatePermission(ctx context.Context, perm *Permission) error
	DeletePermission(ctx context.Context, id int64) error

	UserExists(ctx context.Context, userID int64) (bool, error)
	UserRoles(ctx context.Context, userID int64) ([]RoleSummary, error)
	ReplaceUserRoles(ctx context.Context, userID int64, roleIDs []int64) error
	UserAuthorities(ctx context.Context, userID int64) ([]string, error)
}
