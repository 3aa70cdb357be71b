package menu

import "context"

// Repository defines persistence operations for the menu module. RootMenus
// returns entry points with children recursively attached, sorted by sort
// order ascending at every level.
type Repository interface {
	RootMenus(ctx context.Context) ([]*Menu, error)
	FindByID(ctx context.Context, id int64) (*Menu, error)
	CodeExists(ctx context.Context, code string) (bool, error)
	PermissionExists(ctx context.Context, id int64) (bool, error)
	Create(ctx context.Context, m *Menu) error
	Update(ctx context.Context, m *Menu) error
	Delete(ctx context.Context, id int64) error
}
