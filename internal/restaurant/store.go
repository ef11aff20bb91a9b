package restaurant

import (
	"context"

	"github.com/shopspring/decimal"
)

// Store is the repository every backend implements. Implementations must be
// safe for concurrent use. Lookups of a missing row return ErrNotFound;
// unique-key violations return ErrConflict.
type Store interface {
	GetSettings(ctx context.Context) (Settings, error)
	UpdateSettings(ctx context.Context, s Settings) error

	// ListCategories orders by sort_order then id.
	ListCategories(ctx context.Context, includeHidden bool) ([]Category, error)
	GetCategory(ctx context.Context, id int64) (Category, error)
	CreateCategory(ctx context.Context, in CategoryInput) (Category, error)
	UpdateCategory(ctx context.Context, id int64, in CategoryInput) (bool, error)
	// DeleteCategory removes the category and all of its items.
	DeleteCategory(ctx context.Context, id int64) (bool, error)

	// ListItems orders by sort_order then id within one category.
	ListItems(ctx context.Context, categoryID int64, includeHidden bool) ([]Item, error)
	// ListCatalog returns every item, hidden ones included, ordered by
	// category sort_order, item sort_order, item id.
	ListCatalog(ctx context.Context) ([]CatalogItem, error)
	GetItem(ctx context.Context, id int64) (Item, error)
	// CreateItem assigns max(id)+1, or 1 for an empty catalog.
	CreateItem(ctx context.Context, in ItemInput) (Item, error)
	UpdateItem(ctx context.Context, id int64, in ItemInput) (bool, error)
	DeleteItem(ctx context.Context, id int64) (bool, error)

	ListTables(ctx context.Context) ([]Table, error)
	GetTable(ctx context.Context, id int64) (Table, error)
	GetTableByToken(ctx context.Context, token string) (Table, error)
	CreateTable(ctx context.Context, number, token string) (Table, error)

	// CreateOrder writes the order and all of its lines as one unit.
	CreateOrder(ctx context.Context, o NewOrder) (Order, error)
	GetOrder(ctx context.Context, id int64) (Order, error)
	// ListRecentOrders returns newest first with lines attached.
	ListRecentOrders(ctx context.Context, limit int) ([]Order, error)
	// UpdateOrderStatus sets status to `to` only if it is currently `from`.
	// A missing order returns ErrNotFound; a status mismatch returns
	// ErrIllegalTransition.
	UpdateOrderStatus(ctx context.Context, id int64, from, to Status) error

	CountOrdersByStatus(ctx context.Context, status Status) (int, error)
	SalesTotal(ctx context.Context) (decimal.Decimal, error)
	TopItems(ctx context.Context, limit int) ([]TopItem, error)

	// Reset removes every row and restores default settings.
	Reset(ctx context.Context) error
	Close() error
}
