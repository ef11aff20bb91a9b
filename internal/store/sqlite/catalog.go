package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"aroma-order-service/internal/restaurant"
)

const categoryColumns = `id, key, name, icon, sort_order, hidden`

const itemColumns = `i.id, i.category_id, i.name, i.description, i.price, i.image_url, i.video_url,
	i.nutrition, i.ingredients, i.allergies, i.prep_time, i.hidden, i.sort_order`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCategory(row rowScanner) (restaurant.Category, error) {
	var c restaurant.Category
	err := row.Scan(&c.ID, &c.Key, &c.Name, &c.Icon, &c.SortOrder, &c.Hidden)
	return c, err
}

func scanItem(row rowScanner, extra ...any) (restaurant.Item, error) {
	var it restaurant.Item
	dest := []any{
		&it.ID, &it.CategoryID, &it.Name, &it.Description, &it.Price, &it.ImageURL, &it.VideoURL,
		&it.Nutrition, &it.Ingredients, &it.Allergies, &it.PrepTime, &it.Hidden, &it.SortOrder,
	}
	err := row.Scan(append(dest, extra...)...)
	return it, err
}

func (s *Store) ListCategories(ctx context.Context, includeHidden bool) ([]restaurant.Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM categories`
	if !includeHidden {
		query += ` WHERE hidden = 0`
	}
	query += ` ORDER BY sort_order, id`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	out := []restaurant.Category{}
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) GetCategory(ctx context.Context, id int64) (restaurant.Category, error) {
	c, err := scanCategory(s.db.QueryRowContext(ctx, `SELECT `+categoryColumns+` FROM categories WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return restaurant.Category{}, restaurant.NotFoundError("Category")
	}
	if err != nil {
		return restaurant.Category{}, fmt.Errorf("get category %d: %w", id, err)
	}
	return c, nil
}

func (s *Store) CreateCategory(ctx context.Context, in restaurant.CategoryInput) (restaurant.Category, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO categories (key, name, icon, sort_order, hidden) VALUES (?, ?, ?, ?, ?)`,
		in.Key, in.Name, in.Icon, in.SortOrder, boolInt(in.Hidden),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return restaurant.Category{}, restaurant.ConflictError(fmt.Sprintf("Category key %q already exists", in.Key))
		}
		return restaurant.Category{}, fmt.Errorf("create category: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return restaurant.Category{}, fmt.Errorf("category id: %w", err)
	}
	return restaurant.Category{ID: id, Key: in.Key, Name: in.Name, Icon: in.Icon, SortOrder: in.SortOrder, Hidden: in.Hidden}, nil
}

func (s *Store) UpdateCategory(ctx context.Context, id int64, in restaurant.CategoryInput) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE categories SET key = ?, name = ?, icon = ?, sort_order = ?, hidden = ? WHERE id = ?`,
		in.Key, in.Name, in.Icon, in.SortOrder, boolInt(in.Hidden), id,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return false, restaurant.ConflictError(fmt.Sprintf("Category key %q already exists", in.Key))
		}
		return false, fmt.Errorf("update category %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// DeleteCategory relies on ON DELETE CASCADE to drop the category's items.
func (s *Store) DeleteCategory(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete category %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (s *Store) ListItems(ctx context.Context, categoryID int64, includeHidden bool) ([]restaurant.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items i WHERE i.category_id = ?`
	if !includeHidden {
		query += ` AND i.hidden = 0`
	}
	query += ` ORDER BY i.sort_order, i.id`

	rows, err := s.db.QueryContext(ctx, query, categoryID)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	out := []restaurant.Item{}
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (s *Store) ListCatalog(ctx context.Context) ([]restaurant.CatalogItem, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+itemColumns+`, c.name
		 FROM items i JOIN categories c ON c.id = i.category_id
		 ORDER BY c.sort_order, c.id, i.sort_order, i.id`)
	if err != nil {
		return nil, fmt.Errorf("list catalog: %w", err)
	}
	defer rows.Close()

	out := []restaurant.CatalogItem{}
	for rows.Next() {
		var categoryName string
		it, err := scanItem(rows, &categoryName)
		if err != nil {
			return nil, fmt.Errorf("scan catalog item: %w", err)
		}
		out = append(out, restaurant.CatalogItem{Item: it, CategoryName: categoryName})
	}
	return out, rows.Err()
}

func (s *Store) GetItem(ctx context.Context, id int64) (restaurant.Item, error) {
	it, err := scanItem(s.db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM items i WHERE i.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return restaurant.Item{}, restaurant.NotFoundError("Item")
	}
	if err != nil {
		return restaurant.Item{}, fmt.Errorf("get item %d: %w", id, err)
	}
	return it, nil
}

func (s *Store) CreateItem(ctx context.Context, in restaurant.ItemInput) (restaurant.Item, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return restaurant.Item{}, fmt.Errorf("begin create item: %w", err)
	}
	defer tx.Rollback()

	var id int64
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(id), 0) + 1 FROM items`).Scan(&id); err != nil {
		return restaurant.Item{}, fmt.Errorf("next item id: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO items (id, category_id, name, description, price, image_url, video_url,
		   nutrition, ingredients, allergies, prep_time, hidden, sort_order)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, in.CategoryID, in.Name, in.Description, in.Price, in.ImageURL, in.VideoURL,
		in.Nutrition, in.Ingredients, in.Allergies, in.PrepTime, boolInt(in.Hidden), in.SortOrder,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return restaurant.Item{}, restaurant.NotFoundError("Category")
		}
		return restaurant.Item{}, fmt.Errorf("create item: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return restaurant.Item{}, fmt.Errorf("commit create item: %w", err)
	}
	return in.Apply(restaurant.Item{ID: id}), nil
}

func (s *Store) UpdateItem(ctx context.Context, id int64, in restaurant.ItemInput) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE items SET category_id = ?, name = ?, description = ?, price = ?, image_url = ?, video_url = ?,
		   nutrition = ?, ingredients = ?, allergies = ?, prep_time = ?, hidden = ?, sort_order = ?
		 WHERE id = ?`,
		in.CategoryID, in.Name, in.Description, in.Price, in.ImageURL, in.VideoURL,
		in.Nutrition, in.Ingredients, in.Allergies, in.PrepTime, boolInt(in.Hidden), in.SortOrder, id,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return false, restaurant.NotFoundError("Category")
		}
		return false, fmt.Errorf("update item %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (s *Store) DeleteItem(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM items WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete item %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	return n > 0, err
}
