package rbac

import "time"

// Role groups permissions under a stable, unique code. System roles are
// protected from deletion.
type Role struct {
	ID          int64        `json:"id"`
	Code        string       `json:"code"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	IsActive    bool         `json:"isActive"`
	IsSystem    bool         `json:"isSystem"`
	Permissions []Permission `json:"permissions,omitempty"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

// Permission is an atomic capability identified by a unique
// (resource, action) pair.
type Permission struct {
	ID          int64  `json:"id"`
	Resource    string `json:"resource"`
	Action      string `json:"action"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Authority   string `json:"authority"`
}

// RoleSummary is the compact role shape used in assignment listings.
type RoleSummary struct {
	ID   int64  `json:"id"`
	Code string `json:"code"`
	Name string `json:"name"`
}

// AuthorityOf builds the canonical "resource:action" string.
func AuthorityOf(resource, action string) string {
	return resource + ":" + action
}
