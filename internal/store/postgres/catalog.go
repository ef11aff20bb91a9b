package postgres

import (
	"context"
	"errors"
	"fmt"

	"aroma-order-service/internal/restaurant"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const itemColumns = `i.id, i.category_id, i.name, i.description, i.price, i.image_url, i.video_url,
	i.nutrition, i.ingredients, i.allergies, i.prep_time, i.hidden, i.sort_order`

func scanItem(row pgx.Row, extra ...any) (restaurant.Item, error) {
	var (
		it    restaurant.Item
		price pgtype.Numeric
	)
	dest := []any{
		&it.ID, &it.CategoryID, &it.Name, &it.Description, &price, &it.ImageURL, &it.VideoURL,
		&it.Nutrition, &it.Ingredients, &it.Allergies, &it.PrepTime, &it.Hidden, &it.SortOrder,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return restaurant.Item{}, err
	}
	it.Price = fromNumeric(price)
	return it, nil
}

func (s *Store) ListCategories(ctx context.Context, includeHidden bool) ([]restaurant.Category, error) {
	rows, err := s.DB.Query(ctx, `
		select id, key, name, icon, sort_order, hidden
		from categories
		where $1 or not hidden
		order by sort_order, id
	`, includeHidden)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	out := []restaurant.Category{}
	for rows.Next() {
		var c restaurant.Category
		if err := rows.Scan(&c.ID, &c.Key, &c.Name, &c.Icon, &c.SortOrder, &c.Hidden); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) GetCategory(ctx context.Context, id int64) (restaurant.Category, error) {
	var c restaurant.Category
	err := s.DB.QueryRow(ctx, `select id, key, name, icon, sort_order, hidden from categories where id = $1`, id).
		Scan(&c.ID, &c.Key, &c.Name, &c.Icon, &c.SortOrder, &c.Hidden)
	if errors.Is(err, pgx.ErrNoRows) {
		return restaurant.Category{}, restaurant.NotFoundError("Category")
	}
	if err != nil {
		return restaurant.Category{}, fmt.Errorf("get category %d: %w", id, err)
	}
	return c, nil
}

func (s *Store) CreateCategory(ctx context.Context, in restaurant.CategoryInput) (restaurant.Category, error) {
	var id int64
	err := s.DB.QueryRow(ctx, `
		insert into categories (key, name, icon, sort_order, hidden)
		values ($1, $2, $3, $4, $5)
		returning id
	`, in.Key, in.Name, in.Icon, in.SortOrder, in.Hidden).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return restaurant.Category{}, restaurant.ConflictError(fmt.Sprintf("Category key %q already exists", in.Key))
		}
		return restaurant.Category{}, fmt.Errorf("create category: %w", err)
	}
	return restaurant.Category{ID: id, Key: in.Key, Name: in.Name, Icon: in.Icon, SortOrder: in.SortOrder, Hidden: in.Hidden}, nil
}

func (s *Store) UpdateCategory(ctx context.Context, id int64, in restaurant.CategoryInput) (bool, error) {
	tag, err := s.DB.Exec(ctx, `
		update categories set key = $1, name = $2, icon = $3, sort_order = $4, hidden = $5
		where id = $6
	`, in.Key, in.Name, in.Icon, in.SortOrder, in.Hidden, id)
	if err != nil {
		if isUniqueViolation(err) {
			return false, restaurant.ConflictError(fmt.Sprintf("Category key %q already exists", in.Key))
		}
		return false, fmt.Errorf("update category %d: %w", id, err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *Store) DeleteCategory(ctx context.Context, id int64) (bool, error) {
	tag, err := s.DB.Exec(ctx, `delete from categories where id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete category %d: %w", id, err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *Store) ListItems(ctx context.Context, categoryID int64, includeHidden bool) ([]restaurant.Item, error) {
	rows, err := s.DB.Query(ctx, `
		select `+itemColumns+`
		from items i
		where i.category_id = $1 and ($2 or not i.hidden)
		order by i.sort_order, i.id
	`, categoryID, includeHidden)
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
	rows, err := s.DB.Query(ctx, `
		select `+itemColumns+`, c.name
		from items i
		join categories c on c.id = i.category_id
		order by c.sort_order, c.id, i.sort_order, i.id
	`)
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
	it, err := scanItem(s.DB.QueryRow(ctx, `select `+itemColumns+` from items i where i.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return restaurant.Item{}, restaurant.NotFoundError("Item")
	}
	if err != nil {
		return restaurant.Item{}, fmt.Errorf("get item %d: %w", id, err)
	}
	return it, nil
}

// CreateItem locks the items table so concurrent creates see a stable max(id).
func (s *Store) CreateItem(ctx context.Context, in restaurant.ItemInput) (restaurant.Item, error) {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return restaurant.Item{}, fmt.Errorf("begin create item: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `lock table items in share row exclusive mode`); err != nil {
		return restaurant.Item{}, fmt.Errorf("lock items: %w", err)
	}
	var id int64
	if err := tx.QueryRow(ctx, `select coalesce(max(id), 0) + 1 from items`).Scan(&id); err != nil {
		return restaurant.Item{}, fmt.Errorf("next item id: %w", err)
	}
	_, err = tx.Exec(ctx, `
		insert into items (id, category_id, name, description, price, image_url, video_url,
			nutrition, ingredients, allergies, prep_time, hidden, sort_order)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, id, in.CategoryID, in.Name, in.Description, toNumeric(in.Price), in.ImageURL, in.VideoURL,
		in.Nutrition, in.Ingredients, in.Allergies, in.PrepTime, in.Hidden, in.SortOrder)
	if err != nil {
		if isForeignKeyViolation(err) {
			return restaurant.Item{}, restaurant.NotFoundError("Category")
		}
		return restaurant.Item{}, fmt.Errorf("create item: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return restaurant.Item{}, fmt.Errorf("commit create item: %w", err)
	}
	return in.Apply(restaurant.Item{ID: id}), nil
}

func (s *Store) UpdateItem(ctx context.Context, id int64, in restaurant.ItemInput) (bool, error) {
	tag, err := s.DB.Exec(ctx, `
		update items set category_id = $1, name = $2, description = $3, price = $4, image_url = $5, video_url = $6,
			nutrition = $7, ingredients = $8, allergies = $9, prep_time = $10, hidden = $11, sort_order = $12
		where id = $13
	`, in.CategoryID, in.Name, in.Description, toNumeric(in.Price), in.ImageURL, in.VideoURL,
		in.Nutrition, in.Ingredients, in.Allergies, in.PrepTime, in.Hidden, in.SortOrder, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return false, restaurant.NotFoundError("Category")
		}
		return false, fmt.Errorf("update item %d: %w", id, err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *Store) DeleteItem(ctx context.Context, id int64) (bool, error) {
	tag, err := s.DB.Exec(ctx, `delete from items where id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete item %d: %w", id, err)
	}
	return tag.RowsAffected() > 0, nil
}
