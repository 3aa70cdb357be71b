package menu

import (
	"context"
	"errors"
	"fmt"
	"sort"

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

const menuSelect = `
	SELECT m.id, m.name, m.code, COALESCE(m.path, ''), COALESCE(m.icon, ''),
	       m.parent_id, m.sort_order, m.is_active,
	       p.id, p.resource, p.action, p.name, p.description
	FROM menus m
	LEFT JOIN permissions p ON p.id = m.permission_id`

// RootMenus loads the whole menu table in one pass and assembles the tree.
func (r *PGRepository) RootMenus(ctx context.Context) ([]*Menu, error) {
	rows, err := r.pool.Query(ctx, menuSelect+` ORDER BY m.sort_order, m.id`)
	if err != nil {
		return nil, fmt.Errorf("menu: query menus: %w", err)
	}
	defer rows.Close()

	var all []*Menu
	for rows.Next() {
		m, err := scanMenu(rows)
		if err != nil {
			return nil, err
		}
		all = append(all, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return assembleTree(all), nil
}

// FindByID fetches a single menu node without children.
func (r *PGRepository) FindByID(ctx context.Context, id int64) (*Menu, error) {
	rows, err := r.pool.Query(ctx, menuSelect+` WHERE m.id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("menu: query menu: %w", err)
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, shared.ErrNotFound
	}
	return scanMenu(rows)
}

// CodeExists reports whether a menu code is already taken.
func (r *PGRepository) CodeExists(ctx context.Context, code string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM menus WHERE code = $1)`, code).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("menu: code exists: %w", err)
	}
	return exists, nil
}

// PermissionExists reports whether the referenced permission is present.
func (r *PGRepository) PermissionExists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM permissions WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("menu: permission exists: %w", err)
	}
	return exists, nil
}

// Create inserts a menu node and fills the generated id.
func (r *PGRepository) Create(ctx context.Context, m *Menu) error {
	var permID *int64
	if m.RequiredPermission != nil {
		permID = &m.RequiredPermission.ID
	}
	err := r.pool.QueryRow(ctx, `
		INSERT INTO menus (name, code, path, icon, parent_id, sort_order, is_active, permission_id)
		VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), $5, $6, $7, $8)
		RETURNING id`,
		m.Name, m.Code, m.Path, m.Icon, m.ParentID, m.SortOrder, m.IsActive, permID,
	).Scan(&m.ID)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return shared.ErrDuplicate
		}
		return fmt.Errorf("menu: create: %w", err)
	}
	return nil
}

// Update rewrites the mutable fields of a menu node.
func (r *PGRepository) Update(ctx context.Context, m *Menu) error {
	var permID *int64
	if m.RequiredPermission != nil {
		permID = &m.RequiredPermission.ID
	}
	tag, err := r.pool.Exec(ctx, `
		UPDATE menus SET name = $2, path = NULLIF($3, ''), icon = NULLIF($4, ''),
		       parent_id = $5, sort_order = $6, is_active = $7, permission_id = $8
		WHERE id = $1`,
		m.ID, m.Name, m.Path, m.Icon, m.ParentID, m.SortOrder, m.IsActive, permID)
	if err != nil {
		return fmt.Errorf("menu: update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Delete removes a menu node.
func (r *PGRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM menus WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("menu: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func scanMenu(rows pgx.Rows) (*Menu, error) {
	var (
		m                          Menu
		permID                     *int64
		resource, action, permName *string
		permDesc                   *string
	)
	err := rows.Scan(&m.ID, &m.Name, &m.Code, &m.Path, &m.Icon, &m.ParentID, &m.SortOrder, &m.IsActive,
		&permID, &resource, &action, &permName, &permDesc)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("menu: scan: %w", err)
	}
	if permID != nil {
		ref := PermissionRef{ID: *permID}
		if resource != nil {
			ref.Resource = *resource
		}
		if action != nil {
			ref.Action = *action
		}
		if permName != nil {
			ref.Name = *permName
		}
		if permDesc != nil {
			ref.Description = *permDesc
		}
		m.RequiredPermission = &ref
	}
	return &m, nil
}

// assembleTree links children to parents, keeping sort order within levels.
func assembleTree(all []*Menu) []*Menu {
	byID := make(map[int64]*Menu, len(all))
	for _, m := range all {
		byID[m.ID] = m
	}
	var roots []*Menu
	for _, m := range all {
		if m.ParentID == nil {
			roots = append(roots, m)
			continue
		}
		parent, ok := byID[*m.ParentID]
		if !ok {
			// Orphaned node, surface at the root rather than dropping it.
			roots = append(roots, m)
			continue
		}
		parent.Children = append(parent.Children, m)
	}
	sortLevel(roots)
	for _, m := range all {
		sortLevel(m.Children)
	}
	return roots
}

func sortLevel(level []*Menu) {
	sort.SliceStable(level, func(i, j int) bool {
		if level[i].SortOrder != level[j].SortOrder {
			return level[i].SortOrder < level[j].SortOrder
		}
		return level[i].ID < level[j].ID
	})
}

var _ Repository = (*PGRepository)(nil)
