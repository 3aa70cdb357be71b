package rbac

import (
	"context"
	"errors"
	"strings"

	"github.com/helmdesk/helmdesk/internal/shared"
)

// Service orchestrates role, permission and assignment management.
type Service struct {
	repo Repository
}

// NewService constructs a new Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// CreateRoleInput carries the fields for a new role.
type CreateRoleInput struct {
	Code        string
	Name        string
	Description string
}

// UpdateRoleInput carries the mutable fields of a role.
type UpdateRoleInput struct {
	Name        string
	Description *string
	IsActive    *bool
}

// CreatePermissionInput carries the fields for a new permission.
type CreatePermissionInput struct {
	Resource    string
	Action      string
	Name        string
	Description string
}

// CreateRole inserts a new non-system role.
func (s *Service) CreateRole(ctx context.Context, input CreateRoleInput) (*Role, error) {
	code := strings.TrimSpace(input.Code)
	name := strings.TrimSpace(input.Name)
	if code == "" || name == "" {
		return nil, errors.New("rbac: role code and name required")
	}
	exists, err := s.repo.RoleCodeExists(ctx, code)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, shared.ErrDuplicate
	}
	role := &Role{
		Code:        code,
		Name:        name,
		Description: strings.TrimSpace(input.Description),
		IsActive:    true,
	}
	if err := s.repo.CreateRole(ctx, role); err != nil {
		return nil, err
	}
	return role, nil
}

// ListRoles returns all roles.
func (s *Service) ListRoles(ctx context.Context) ([]Role, error) {
	return s.repo.ListRoles(ctx)
}

// GetRole fetches a role with its permissions attached.
func (s *Service) GetRole(ctx context.Context, id int64) (*Role, error) {
	return s.repo.FindRoleWithPermissions(ctx, id)
}

// UpdateRole applies changes to a role's mutable fields.
func (s *Service) UpdateRole(ctx context.Context, id int64, input UpdateRoleInput) (*Role, error) {
	role, err := s.repo.FindRole(ctx, id)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, errors.New("rbac: role name required")
	}
	role.Name = name
	if input.Description != nil {
		role.Description = strings.TrimSpace(*input.Description)
	}
	if input.IsActive != nil {
		role.IsActive = *input.IsActive
	}
	if err := s.repo.UpdateRole(ctx, role); err != nil {
		return nil, err
	}
	return role, nil
}

// DeleteRole removes a role. System roles are refused.
func (s *Service) DeleteRole(ctx context.Context, id int64) error {
	role, err := s.repo.FindRole(ctx, id)
	if err != nil {
		return err
	}
	if role.IsSystem {
		return shared.ErrForbidden
	}
	return s.repo.DeleteRole(ctx, id)
}

// AssignPermissions replaces the full permission set of a role.
func (s *Service) AssignPermissions(ctx context.Context, roleID int64, permissionIDs []int64) (*Role, error) {
	if _, err := s.repo.FindRole(ctx, roleID); err != nil {
		return nil, err
	}
	for _, permID := range permissionIDs {
		if _, err := s.repo.FindPermission(ctx, permID); err != nil {
			return nil, err
		}
	}
	if err := s.repo.ReplaceRolePermissions(ctx, roleID, permissionIDs); err != nil {
		return nil, err
	}
	return s.repo.FindRoleWithPermissions(ctx, roleID)
}

// CreatePermission inserts a new (resource, action) capability.
func (s *Service) CreatePermission(ctx context.Context, input CreatePermissionInput) (*Permission, error) {
	resource := strings.TrimSpace(input.Resource)
	action := strings.TrimSpace(input.Action)
	name := strings.TrimSpace(input.Name)
	if resource == "" || action == "" || name == "" {
		return nil, errors.New("rbac: permission resource, action and name required")
	}
	perm := &Permission{
		Resource:    resource,
		Action:      action,
		Name:        name,
		Description: strings.TrimSpace(input.Description),
	}
	if err := s.repo.CreatePermission(ctx, perm); err != nil {
		return nil, err
	}
	return perm, nil
}

// ListPermissions returns all permissions.
func (s *Service) ListPermissions(ctx context.Context) ([]Permission, error) {
	return s.repo.ListPermissions(ctx)
}

// UpdatePermission rewrites the display fields of a permission.
func (s *Service) UpdatePermission(ctx context.Context, id int64, name, description string) (*Permission, error) {
	perm, err := s.repo.FindPermission(ctx, id)
	if err != nil {
		return nil, err
	}
	perm.Name = strings.TrimSpace(name)
	perm.Description = strings.TrimSpace(description)
	if perm.Name == "" {
		return nil, errors.New("rbac: permission name required")
	}
	if err := s.repo.UpdatePermission(ctx, perm); err != nil {
		return nil, err
	}
	return perm, nil
}

// DeletePermission removes a permission.
func (s *Service) DeletePermission(ctx context.Context, id int64) error {
	if _, err := s.repo.FindPermission(ctx, id); err != nil {
		return err
	}
	return s.repo.DeletePermission(ctx, id)
}

// UserRoles lists the roles assigned to a user.
func (s *Service) UserRoles(ctx context.Context, userID int64) ([]RoleSummary, error) {
	ok, err := s.repo.UserExists(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, shared.ErrUserNotFound
	}
	return s.repo.UserRoles(ctx, userID)
}

// AssignUserRoles replaces the full role set of a user.
func (s *Service) AssignUserRoles(ctx context.Context, userID int64, roleIDs []int64) error {
	ok, err := s.repo.UserExists(ctx, userID)
	if err != nil {
		return err
	}
	if !ok {
		return shared.ErrUserNotFound
	}
	for _, roleID := range roleIDs {
		if _, err := s.repo.FindRole(ctx, roleID); err != nil {
			return err
		}
	}
	return s.repo.ReplaceUserRoles(ctx, userID, roleIDs)
}

// EffectiveAuthorities returns the deduplicated, sorted authority strings a
// user holds through their roles. Always read fresh from current assignments.
func (s *Service) EffectiveAuthorities(ctx context.Context, userID int64) ([]string, error) {
	return s.repo.UserAuthorities(ctx, userID)
}
