package services

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"aroma-order-service/internal/restaurant"

	"go.uber.org/zap"
)

type LocalizedText struct {
	En string `json:"en"`
}

type MenuCategory struct {
	Key  string `json:"key"`
	Name string `json:"name"`
	Icon string `json:"icon"`
}

type MenuItem struct {
	ID          int64         `json:"id"`
	Price       float64       `json:"price"`
	Image       string        `json:"image"`
	Video       string        `json:"video"`
	Name        LocalizedText `json:"name"`
	Description LocalizedText `json:"description"`
	Nutrition   LocalizedText `json:"nutrition"`
	Ingredients LocalizedText `json:"ingredients"`
	Allergies   LocalizedText `json:"allergies"`
	PrepTime    LocalizedText `json:"prepTime"`
}

// Menu is the public menu document: visible categories in order, and the
// visible items of each keyed by category key.
type Menu struct {
	Categories []MenuCategory         `json:"categories"`
	Menu       map[string][]MenuItem `json:"menu"`
}

// AdminCatalog is everything the admin item editor needs.
type AdminCatalog struct {
	Categories []restaurant.Category    `json:"categories"`
	Items      []restaurant.CatalogItem `json:"items"`
}

type Catalog struct {
	store restaurant.Store
	log   *zap.Logger
}

func NewCatalog(store restaurant.Store, log *zap.Logger) *Catalog {
	return &Catalog{store: store, log: log}
}

func toMenuItem(it restaurant.Item) MenuItem {
	return MenuItem{
		ID:          it.ID,
		Price:       it.Price.InexactFloat64(),
		Image:       it.ImageURL,
		Video:       it.VideoURL,
		Name:        LocalizedText{En: it.Name},
		Description: LocalizedText{En: it.Description},
		Nutrition:   LocalizedText{En: it.Nutrition},
		Ingredients: LocalizedText{En: it.Ingredients},
		Allergies:   LocalizedText{En: it.Allergies},
		PrepTime:    LocalizedText{En: it.PrepTime},
	}
}

// Menu builds the customer menu. Hidden categories and hidden items are left
// out; a visible category with no visible items still appears with an empty
// list.
func (c *Catalog) Menu(ctx context.Context) (Menu, error) {
	cats, err := c.store.ListCategories(ctx, false)
	if err != nil {
		return Menu{}, err
	}
	out := Menu{
		Categories: make([]MenuCategory, 0, len(cats)),
		Menu:       make(map[string][]MenuItem, len(cats)),
	}
	for _, cat := range cats {
		items, err := c.store.ListItems(ctx, cat.ID, false)
		if err != nil {
			return Menu{}, err
		}
		out.Categories = append(out.Categories, MenuCategory{Key: cat.Key, Name: cat.Name, Icon: cat.Icon})
		list := make([]MenuItem, 0, len(items))
		for _, it := range items {
			list = append(list, toMenuItem(it))
		}
		out.Menu[cat.Key] = list
	}
	return out, nil
}

func (c *Catalog) AdminCatalog(ctx context.Context) (AdminCatalog, error) {
	cats, err := c.store.ListCategories(ctx, true)
	if err != nil {
		return AdminCatalog{}, err
	}
	items, err := c.store.ListCatalog(ctx)
	if err != nil {
		return AdminCatalog{}, err
	}
	return AdminCatalog{Categories: cats, Items: items}, nil
}

func (c *Catalog) ListCategories(ctx context.Context) ([]restaurant.Category, error) {
	return c.store.ListCategories(ctx, true)
}

var categoryKeyPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

func normalizeCategory(in restaurant.CategoryInput) (restaurant.CategoryInput, error) {
	in.Key = strings.ToLower(strings.TrimSpace(in.Key))
	in.Name = strings.TrimSpace(in.Name)
	in.Icon = strings.TrimSpace(in.Icon)
	if in.Key == "" {
		return in, restaurant.ValidationError("Category key is required")
	}
	if !categoryKeyPattern.MatchString(in.Key) {
		return in, restaurant.ValidationError("Category key may only contain lowercase letters, digits, '-' and '_'")
	}
	if in.Name == "" {
		return in, restaurant.ValidationError("Category name is required")
	}
	if in.Icon == "" {
		in.Icon = restaurant.DefaultCategoryIcon
	}
	return in, nil
}

func (c *Catalog) CreateCategory(ctx context.Context, in restaurant.CategoryInput) (restaurant.Category, error) {
	in, err := normalizeCategory(in)
	if err != nil {
		return restaurant.Category{}, err
	}
	return c.store.CreateCategory(ctx, in)
}

func (c *Catalog) UpdateCategory(ctx context.Context, id int64, in restaurant.CategoryInput) (restaurant.Category, error) {
	in, err := normalizeCategory(in)
	if err != nil {
		return restaurant.Category{}, err
	}
	ok, err := c.store.UpdateCategory(ctx, id, in)
	if err != nil {
		return restaurant.Category{}, err
	}
	if !ok {
		return restaurant.Category{}, restaurant.NotFoundError("Category")
	}
	return restaurant.Category{ID: id, Key: in.Key, Name: in.Name, Icon: in.Icon, SortOrder: in.SortOrder, Hidden: in.Hidden}, nil
}

// DeleteCategory removes the category together with its items.
func (c *Catalog) DeleteCategory(ctx context.Context, id int64) error {
	ok, err := c.store.DeleteCategory(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return restaurant.NotFoundError("Category")
	}
	c.log.Info("category deleted", zap.Int64("categoryId", id))
	return nil
}

func (c *Catalog) validateItem(ctx context.Context, in restaurant.ItemInput) (restaurant.ItemInput, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return in, restaurant.ValidationError("Item name is required")
	}
	if in.Price.IsNegative() {
		return in, restaurant.ValidationError("Price must not be negative")
	}
	if !in.Price.Equal(in.Price.Truncate(restaurant.PriceScale)) {
		return in, restaurant.ValidationError("Price may have at most 2 decimal places")
	}
	if in.Price.GreaterThan(restaurant.MaxItemPrice) {
		return in, restaurant.ValidationError("Price is too large")
	}
	if _, err := c.store.GetCategory(ctx, in.CategoryID); err != nil {
		if errors.Is(err, restaurant.ErrNotFound) {
			return in, restaurant.ValidationError("Unknown category")
		}
		return in, err
	}
	return in, nil
}

func (c *Catalog) GetItem(ctx context.Context, id int64) (restaurant.Item, error) {
	return c.store.GetItem(ctx, id)
}

func (c *Catalog) CreateItem(ctx context.Context, in restaurant.ItemInput) (restaurant.Item, error) {
	in, err := c.validateItem(ctx, in)
	if err != nil {
		return restaurant.Item{}, err
	}
	return c.store.CreateItem(ctx, in)
}

func (c *Catalog) UpdateItem(ctx context.Context, id int64, in restaurant.ItemInput) (restaurant.Item, error) {
	in, err := c.validateItem(ctx, in)
	if err != nil {
		return restaurant.Item{}, err
	}
	ok, err := c.store.UpdateItem(ctx, id, in)
	if err != nil {
		return restaurant.Item{}, err
	}
	if !ok {
		return restaurant.Item{}, restaurant.NotFoundError("Item")
	}
	return in.Apply(restaurant.Item{ID: id}), nil
}

func (c *Catalog) DeleteItem(ctx context.Context, id int64) error {
	ok, err := c.store.DeleteItem(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return restaurant.NotFoundError("Item")
	}
	return nil
}

// SetItemImage points an item at a freshly uploaded image.
func (c *Catalog) SetItemImage(ctx context.Context, id int64, imageURL string) (restaurant.Item, error) {
	it, err := c.store.GetItem(ctx, id)
	if err != nil {
		return restaurant.Item{}, err
	}
	in := it.Input()
	in.ImageURL = imageURL
	ok, err := c.store.UpdateItem(ctx, id, in)
	if err != nil {
		return restaurant.Item{}, err
	}
	if !ok {
		return restaurant.Item{}, restaurant.NotFoundError("Item")
	}
	return in.Apply(it), nil
}
