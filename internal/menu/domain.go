package menu

// Menu is a hierarchical navigation node. A nil RequiredPermission means the
// node is visible to any authenticated user.
type Menu struct {
	ID                 int64
	Name               string
	Code               string
	Path               string
	Icon               string
	ParentID           *int64
	SortOrder          int
	IsActive           bool
	RequiredPermission *PermissionRef
	Children           []*Menu
}

// PermissionRef is the permission a menu node requires, as read from the
// RBAC tables.
type PermissionRef struct {
	ID          int64  `json:"id"`
	Resource    string `json:"resource"`
	Action      string `json:"action"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Authority returns the canonical "resource:action" string.
func (p PermissionRef) Authority() string {
	return p.Resource + ":" + p.Action
}

// Node is the serialisable tree shape returned to callers.
type Node struct {
	ID                 int64          `json:"id"`
	Name               string         `json:"name"`
	Code               string         `json:"code"`
	Path               string         `json:"path,omitempty"`
	Icon               string         `json:"icon,omitempty"`
	ParentID           *int64         `json:"parentId,omitempty"`
	SortOrder          int            `json:"sortOrder"`
	IsActive           bool           `json:"isActive"`
	RequiredPermission *PermissionRef `json:"requiredPermission,omitempty"`
	Children           []Node         `json:"children"`
}
