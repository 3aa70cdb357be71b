package rbac

// Core platform authorities, matching the seeded permission set.
const (
	AuthUserCreate = "user:create"
	AuthUserRead   = "user:read"
	AuthUserUpdate = "user:update"
	AuthUserDelete = "user:delete"

	AuthRoleCreate = "role:create"
	AuthRoleRead   = "role:read"
	AuthRoleUpdate = "role:update"
	AuthRoleDelete = "role:delete"

	AuthPermissionCreate = "permission:create"
	AuthPermissionRead   = "permission:read"
	AuthPermissionUpdate = "permission:update"
	AuthPermissionDelete = "permission:delete"

	AuthMenuCreate = "menu:create"
	AuthMenuRead   = "menu:read"
	AuthMenuUpdate = "menu:update"
	AuthMenuDelete = "menu:delete"
)

// CoreAuthorities lists every authority seeded for the core platform.
func CoreAuthorities() []string {
	return []string{
		AuthUserCreate, AuthUserRead, AuthUserUpdate, AuthUserDelete,
		AuthRoleCreate, AuthRoleRead, AuthRoleUpdate, AuthRoleDelete,
		AuthPermissionCreate, AuthPermissionRead, AuthPermissionUpdate, AuthPermissionDelete,
		AuthMenuCreate, AuthMenuRead, AuthMenuUpdate, AuthMenuDelete,
	}
}
