package rbac

import (
	"context"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helmdesk/helmdesk/internal/shared"
	_ "github.com/helmdesk/helmdesk/testing"
)

// ============================================================================
// MOCK REPOSITORY
// ============================================================================

type mockRepository struct {
	roles       map[int64]*Role
	rolesByCode map[string]int64
	nextRoleID  int64

	permissions map[int64]*Permission
	nextPermID  int64

	rolePerms map[int64][]int64
	users     map[int64]bool
	userRoles map[int64][]int64
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		roles:       make(map[int64]*Role),
		rolesByCode: make(map[string]int64),
		permissions: make(map[int64]*Permission),
		rolePerms:   make(map[int64][]int64),
		users:       make(map[int64]bool),
		userRoles:   make(map[int64][]int64),
		nextRoleID:  1,
		nextPermID:  1,
	}
}

func (m *mockRepository) addRole(role *Role) *Role {
	if role.ID == 0 {
		role.ID = m.nextRoleID
		m.nextRoleID++
	}
	m.roles[role.ID] = role
	m.rolesByCode[role.Code] = role.ID
	return role
}

func (m *mockRepository) addPermission(perm *Permission) *Permission {
	if perm.ID == 0 {
		perm.ID = m.nextPermID
		m.nextPermID++
	}
	perm.Authority = AuthorityOf(perm.Resource, perm.Action)
	m.permissions[perm.ID] = perm
	return perm
}

func (m *mockRepository) ListRoles(ctx context.Context) ([]Role, error) {
	result := make([]Role, 0, len(m.roles))
	for _, r := range m.roles {
		result = append(result, *r)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *mockRepository) FindRole(ctx context.Context, id int64) (*Role, error) {
	r, ok := m.roles[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return r, nil
}

func (m *mockRepository) FindRoleWithPermissions(ctx context.Context, id int64) (*Role, error) {
	r, err := m.FindRole(ctx, id)
	if err != nil {
		return nil, err
	}
	out := *r
	out.Permissions = nil
	for _, permID := range m.rolePerms[id] {
		if p, ok := m.permissions[permID]; ok {
			out.Permissions = append(out.Permissions, *p)
		}
	}
	return &out, nil
}

func (m *mockRepository) RoleCodeExists(ctx context.Context, code string) (bool, error) {
	_, ok := m.rolesByCode[code]
	return ok, nil
}

func (m *mockRepository) CreateRole(ctx context.Context, role *Role) error {
	if _, ok := m.rolesByCode[role.Code]; ok {
		return shared.ErrDuplicate
	}
	m.addRole(role)
	return nil
}

func (m *mockRepository) UpdateRole(ctx context.Context, role *Role) error {
	if _, ok := m.roles[role.ID]; !ok {
		return shared.ErrNotFound
	}
	m.roles[role.ID] = role
	return nil
}

func (m *mockRepository) DeleteRole(ctx context.Context, id int64) error {
	role, ok := m.roles[id]
	if !ok {
		return shared.ErrNotFound
	}
	delete(m.rolesByCode, role.Code)
	delete(m.roles, id)
	delete(m.rolePerms, id)
	for userID, roleIDs := range m.userRoles {
		kept := roleIDs[:0]
		for _, rid := range roleIDs {
			if rid != id {
				kept = append(kept, rid)
			}
		}
		m.userRoles[userID] = kept
	}
	return nil
}

func (m *mockRepository) ReplaceRolePermissions(ctx context.Context, roleID int64, permissionIDs []int64) error {
	m.rolePerms[roleID] = append([]int64(nil), permissionIDs...)
	return nil
}

func (m *mockRepository) ListPermissions(ctx context.Context) ([]Permission, error) {
	result := make([]Permission, 0, len(m.permissions))
	for _, p := range m.permissions {
		result = append(result, *p)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *mockRepository) FindPermission(ctx context.Context, id int64) (*Permission, error) {
	p, ok := m.permissions[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return p, nil
}

func (m *mockRepository) CreatePermission(ctx context.Context, perm *Permission) error {
	for _, existing := range m.permissions {
		if existing.Resource == perm.Resource && existing.Action == perm.Action {
			return shared.ErrDuplicate
		}
	}
	m.addPermission(perm)
	return nil
}

func (m *mockRepository) UpdatePermission(ctx context.Context, perm *Permission) error {
	if _, ok := m.permissions[perm.ID]; !ok {
		return shared.ErrNotFound
	}
	m.permissions[perm.ID] = perm
	return nil
}

func (m *mockRepository) DeletePermission(ctx context.Context, id int64) error {
	if _, ok := m.permissions[id]; !ok {
		return shared.ErrNotFound
	}
	delete(m.permissions, id)
	for roleID, permIDs := range m.rolePerms {
		kept := permIDs[:0]
		for _, pid := range permIDs {
			if pid != id {
				kept = append(kept, pid)
			}
		}
		m.rolePerms[roleID] = kept
	}
	return nil
}

func (m *mockRepository) UserExists(ctx context.Context, userID int64) (bool, error) {
	return m.users[userID], nil
}

func (m *mockRepository) UserRoles(ctx context.Context, userID int64) ([]RoleSummary, error) {
	var result []RoleSummary
	for _, roleID := range m.userRoles[userID] {
		if r, ok := m.roles[roleID]; ok {
			result = append(result, RoleSummary{ID: r.ID, Code: r.Code, Name: r.Name})
		}
	}
	return result, nil
}

func (m *mockRepository) ReplaceUserRoles(ctx context.Context, userID int64, roleIDs []int64) error {
	m.userRoles[userID] = append([]int64(nil), roleIDs...)
	return nil
}

func (m *mockRepository) UserAuthorities(ctx context.Context, userID int64) ([]string, error) {
	seen := make(map[string]struct{})
	for _, roleID := range m.userRoles[userID] {
		for _, permID := range m.rolePerms[roleID] {
			if p, ok := m.permissions[permID]; ok {
				seen[AuthorityOf(p.Resource, p.Action)] = struct{}{}
			}
		}
	}
	result := make([]string, 0, len(seen))
	for a := range seen {
		result = append(result, a)
	}
	sort.Strings(result)
	return result, nil
}

// ============================================================================
// ROLES
// ============================================================================

func TestCreateRoleDuplicateCode(t *testing.T) {
	repo := newMockRepository()
	repo.addRole(&Role{Code: "ADMIN", Name: "Administrator"})
	svc := NewService(repo)

	_, err := svc.CreateRole(context.Background(), CreateRoleInput{Code: "ADMIN", Name: "Other"})
	assert.ErrorIs(t, err, shared.ErrDuplicate)
}

func TestCreateRoleTrimsAndActivates(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo)

	role, err := svc.CreateRole(context.Background(), CreateRoleInput{
		Code: "  AUDITOR ", Name: " Auditor ", Description: " read only ",
	})
	require.NoError(t, err)
	assert.Equal(t, "AUDITOR", role.Code)
	assert.Equal(t, "Auditor", role.Name)
	assert.Equal(t, "read only", role.Description)
	assert.True(t, role.IsActive)
	assert.False(t, role.IsSystem)
}

func TestDeleteSystemRoleForbidden(t *testing.T) {
	repo := newMockRepository()
	role := repo.addRole(&Role{Code: "SUPER_ADMIN", Name: "Super Administrator", IsSystem: true})
	svc := NewService(repo)

	err := svc.DeleteRole(context.Background(), role.ID)
	assert.ErrorIs(t, err, shared.ErrForbidden)
	_, ok := repo.roles[role.ID]
	assert.True(t, ok, "system role must survive delete attempts")
}

func TestDeleteRoleDetachesAssignments(t *testing.T) {
	repo := newMockRepository()
	role := repo.addRole(&Role{Code: "TEMP", Name: "Temporary"})
	repo.users[10] = true
	repo.userRoles[10] = []int64{role.ID}
	svc := NewService(repo)

	require.NoError(t, svc.DeleteRole(context.Background(), role.ID))

	summaries, err := svc.UserRoles(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, summaries)
}

func TestAssignPermissionsRejectsUnknownPermission(t *testing.T) {
	repo := newMockRepository()
	role := repo.addRole(&Role{Code: "OPS", Name: "Operations"})
	perm := repo.addPermission(&Permission{Resource: "user", Action: "read", Name: "Read users"})
	svc := NewService(repo)

	_, err := svc.AssignPermissions(context.Background(), role.ID, []int64{perm.ID, 404})
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestAssignPermissionsReplacesSet(t *testing.T) {
	repo := newMockRepository()
	role := repo.addRole(&Role{Code: "OPS", Name: "Operations"})
	read := repo.addPermission(&Permission{Resource: "user", Action: "read", Name: "Read users"})
	create := repo.addPermission(&Permission{Resource: "user", Action: "create", Name: "Create users"})
	repo.rolePerms[role.ID] = []int64{read.ID}
	svc := NewService(repo)

	updated, err := svc.AssignPermissions(context.Background(), role.ID, []int64{create.ID})
	require.NoError(t, err)
	require.Len(t, updated.Permissions, 1)
	assert.Equal(t, "user:create", updated.Permissions[0].Authority)
}

// ============================================================================
// USER ASSIGNMENTS
// ============================================================================

func TestAssignUserRolesUnknownUser(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo)

	err := svc.AssignUserRoles(context.Background(), 404, nil)
	assert.ErrorIs(t, err, shared.ErrUserNotFound)
}

func TestAssignUserRolesUnknownRole(t *testing.T) {
	repo := newMockRepository()
	repo.users[10] = true
	svc := NewService(repo)

	err := svc.AssignUserRoles(context.Background(), 10, []int64{404})
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestEffectiveAuthoritiesDeduplicated(t *testing.T) {
	repo := newMockRepository()
	admin := repo.addRole(&Role{Code: "ADMIN", Name: "Administrator"})
	auditor := repo.addRole(&Role{Code: "AUDITOR", Name: "Auditor"})
	read := repo.addPermission(&Permission{Resource: "user", Action: "read", Name: "Read users"})
	create := repo.addPermission(&Permission{Resource: "user", Action: "create", Name: "Create users"})
	roleRead := repo.addPermission(&Permission{Resource: "role", Action: "read", Name: "Read roles"})
	repo.rolePerms[admin.ID] = []int64{read.ID, create.ID}
	repo.rolePerms[auditor.ID] = []int64{read.ID, roleRead.ID}
	repo.users[10] = true
	repo.userRoles[10] = []int64{admin.ID, auditor.ID}
	svc := NewService(repo)

	authorities, err := svc.EffectiveAuthorities(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"role:read", "user:create", "user:read"}, authorities)
}

// ============================================================================
// PERMISSIONS
// ============================================================================

func TestCreatePermissionRequiresFields(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo)

	_, err := svc.CreatePermission(context.Background(), CreatePermissionInput{Resource: "user"})
	assert.Error(t, err)
}

func TestUpdatePermissionRewritesDisplayFields(t *testing.T) {
	repo := newMockRepository()
	perm := repo.addPermission(&Permission{Resource: "user", Action: "read", Name: "Read users"})
	svc := NewService(repo)

	updated, err := svc.UpdatePermission(context.Background(), perm.ID, "View users", "list and detail")
	require.NoError(t, err)
	assert.Equal(t, "View users", updated.Name)
	assert.Equal(t, "list and detail", updated.Description)
	assert.Equal(t, "user", updated.Resource, "identity fields are immutable")
}
