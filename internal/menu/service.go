package menu

import (
	"context"
	"strings"

	"github.com/helmdesk/helmdesk/internal/shared"
)

// Service handles menu management and the accessible-tree computation.
type Service struct {
	repo Repository
}

// NewService constructs a new Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// CreateInput carries the fields for a new menu node.
type CreateInput struct {
	Name         string
	Code         string
	Path         string
	Icon         string
	ParentID     *int64
	SortOrder    int
	PermissionID *int64
}

// UpdateInput carries the mutable fields of a menu node. Nil pointers leave
// the current value untouched.
type UpdateInput struct {
	Name         string
	Path         *string
	Icon         *string
	ParentID     *int64
	SortOrder    *int
	IsActive     *bool
	PermissionID *int64
}

// Create inserts a new menu node after checking code uniqueness and that any
// referenced parent and permission exist.
func (s *Service) Create(ctx context.Context, input CreateInput) (*Node, error) {
	code := strings.TrimSpace(input.Code)
	exists, err := s.repo.CodeExists(ctx, code)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, shared.ErrDuplicate
	}
	if input.ParentID != nil {
		if _, err := s.repo.FindByID(ctx, *input.ParentID); err != nil {
			return nil, err
		}
	}
	var required *PermissionRef
	if input.PermissionID != nil {
		ok, err := s.repo.PermissionExists(ctx, *input.PermissionID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, shared.ErrNotFound
		}
		required = &PermissionRef{ID: *input.PermissionID}
	}

	m := &Menu{
		Name:               strings.TrimSpace(input.Name),
		Code:               code,
		Path:               input.Path,
		Icon:               input.Icon,
		ParentID:           input.ParentID,
		SortOrder:          input.SortOrder,
		IsActive:           true,
		RequiredPermission: required,
	}
	if err := s.repo.Create(ctx, m); err != nil {
		return nil, err
	}
	created, err := s.repo.FindByID(ctx, m.ID)
	if err != nil {
		return nil, err
	}
	node := toNode(created, nil)
	return &node, nil
}

// Update applies the provided changes to a menu node.
func (s *Service) Update(ctx context.Context, id int64, input UpdateInput) (*Node, error) {
	m, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	m.Name = strings.TrimSpace(input.Name)
	if input.Path != nil {
		m.Path = *input.Path
	}
	if input.Icon != nil {
		m.Icon = *input.Icon
	}
	if input.SortOrder != nil {
		m.SortOrder = *input.SortOrder
	}
	if input.IsActive != nil {
		m.IsActive = *input.IsActive
	}
	if input.ParentID != nil {
		if _, err := s.repo.FindByID(ctx, *input.ParentID); err != nil {
			return nil, err
		}
		m.ParentID = input.ParentID
	}
	if input.PermissionID != nil {
		ok, err := s.repo.PermissionExists(ctx, *input.PermissionID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, shared.ErrNotFound
		}
		m.RequiredPermission = &PermissionRef{ID: *input.PermissionID}
	}

	if err := s.repo.Update(ctx, m); err != nil {
		return nil, err
	}
	updated, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	node := toNode(updated, nil)
	return &node, nil
}

// Delete removes a menu node.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

// FullTree returns the complete menu tree without authority filtering, for
// the administrative menu editor.
func (s *Service) FullTree(ctx context.Context) ([]Node, error) {
	roots, err := s.repo.RootMenus(ctx)
	if err != nil {
		return nil, err
	}
	nodes := make([]Node, 0, len(roots))
	for _, root := range roots {
		nodes = append(nodes, fullNode(root))
	}
	return nodes, nil
}

// AccessibleTree prunes the menu tree against the caller's authority set.
// A node survives only if it is active and either requires no permission or
// its required authority is granted; a dropped node takes its whole subtree
// with it, even descendants that would be individually accessible. The result
// depends only on the tree and the set, not on iteration order.
func (s *Service) AccessibleTree(ctx context.Context, authorities []string) ([]Node, error) {
	roots, err := s.repo.RootMenus(ctx)
	if err != nil {
		return nil, err
	}
	granted := make(map[string]struct{}, len(authorities))
	for _, a := range authorities {
		granted[a] = struct{}{}
	}

	nodes := make([]Node, 0, len(roots))
	for _, root := range roots {
		if !root.IsActive {
			continue
		}
		if node, ok := accessibleNode(root, granted); ok {
			nodes = append(nodes, node)
		}
	}
	return nodes, nil
}

func accessibleNode(m *Menu, granted map[string]struct{}) (Node, bool) {
	if m.RequiredPermission != nil {
		if _, ok := granted[m.RequiredPermission.Authority()]; !ok {
			return Node{}, false
		}
	}
	children := make([]Node, 0, len(m.Children))
	for _, child := range m.Children {
		if !child.IsActive {
			continue
		}
		if node, ok := accessibleNode(child, granted); ok {
			children = append(children, node)
		}
	}
	return toNode(m, children), true
}

func fullNode(m *Menu) Node {
	children := make([]Node, 0, len(m.Children))
	for _, child := range m.Children {
		children = append(children, fullNode(child))
	}
	return toNode(m, children)
}

func toNode(m *Menu, children []Node) Node {
	if children == nil {
		children = []Node{}
	}
	return Node{
		ID:                 m.ID,
		Name:               m.Name,
		Code:               m.Code,
		Path:               m.Path,
		Icon:               m.Icon,
		ParentID:           m.ParentID,
		SortOrder:          m.SortOrder,
		IsActive:           m.IsActive,
		RequiredPermission: m.RequiredPermission,
		Children:           children,
	}
}
