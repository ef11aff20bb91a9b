package filestore

import (
	"context"
	"fmt"
	"sort"

	"aroma-order-service/internal/restaurant"
)

func sortCategories(cats []restaurant.Category) {
	sort.Slice(cats, func(i, j int) bool {
		if cats[i].SortOrder != cats[j].SortOrder {
			return cats[i].SortOrder < cats[j].SortOrder
		}
		return cats[i].ID < cats[j].ID
	})
}

func sortItems(items []restaurant.Item) {
	sort.Slice(items, func(i, j int) bool {
		if items[i].SortOrder != items[j].SortOrder {
			return items[i].SortOrder < items[j].SortOrder
		}
		return items[i].ID < items[j].ID
	})
}

func (s *Store) ListCategories(ctx context.Context, includeHidden bool) ([]restaurant.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.readable(ctx); err != nil {
		return nil, err
	}
	out := make([]restaurant.Category, 0, len(s.st.categories))
	for _, c := range s.st.categories {
		if c.Hidden && !includeHidden {
			continue
		}
		out = append(out, c)
	}
	sortCategories(out)
	return out, nil
}

func (s *Store) GetCategory(ctx context.Context, id int64) (restaurant.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.readable(ctx); err != nil {
		return restaurant.Category{}, err
	}
	c, ok := s.st.categories[id]
	if !ok {
		return restaurant.Category{}, restaurant.NotFoundError("Category")
	}
	return c, nil
}

func (s *Store) keyTaken(key string, except int64) bool {
	for id, c := range s.st.categories {
		if id != except && c.Key == key {
			return true
		}
	}
	return false
}

func (s *Store) CreateCategory(ctx context.Context, in restaurant.CategoryInput) (restaurant.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.readable(ctx); err != nil {
		return restaurant.Category{}, err
	}
	if s.keyTaken(in.Key, 0) {
		return restaurant.Category{}, restaurant.ConflictError(fmt.Sprintf("Category key %q already exists", in.Key))
	}
	c := restaurant.Category{
		ID:        nextID(s.st.categories),
		Key:       in.Key,
		Name:      in.Name,
		Icon:      in.Icon,
		SortOrder: in.SortOrder,
		Hidden:    in.Hidden,
	}
	ch, err := put(collCategories, c.ID, c)
	if err != nil {
		return restaurant.Category{}, err
	}
	if err := s.commit(ch); err != nil {
		return restaurant.Category{}, err
	}
	return c, nil
}

func (s *Store) UpdateCategory(ctx context.Context, id int64, in restaurant.CategoryInput) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.readable(ctx); err != nil {
		return false, err
	}
	if _, ok := s.st.categories[id]; !ok {
		return false, nil
	}
	if s.keyTaken(in.Key, id) {
		return false, restaurant.ConflictError(fmt.Sprintf("Category key %q already exists", in.Key))
	}
	c := restaurant.Category{ID: id, Key: in.Key, Name: in.Name, Icon: in.Icon, SortOrder: in.SortOrder, Hidden: in.Hidden}
	ch, err := put(collCategories, id, c)
	if err != nil {
		return false, err
	}
	if err := s.commit(ch); err != nil {
		return false, err
	}
	return true, nil
}

// DeleteCategory removes the category and its items in one journal record.
func (s *Store) DeleteCategory(ctx context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.readable(ctx); err != nil {
		return false, err
	}
	if _, ok := s.st.categories[id]; !ok {
		return false, nil
	}
	changes := []change{del(collCategories, id)}
	for itemID, it := range s.st.items {
		if it.CategoryID == id {
			changes = append(changes, del(collItems, itemID))
		}
	}
	if err := s.commit(changes...); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) ListItems(ctx context.Context, categoryID int64, includeHidden bool) ([]restaurant.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.readable(ctx); err != nil {
		return nil, err
	}
	out := []restaurant.Item{}
	for _, it := range s.st.items {
		if it.CategoryID != categoryID || (it.Hidden && !includeHidden) {
			continue
		}
		out = append(out, it)
	}
	sortItems(out)
	return out, nil
}

func (s *Store) ListCatalog(ctx context.Context) ([]restaurant.CatalogItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.readable(ctx); err != nil {
		return nil, err
	}
	cats := make([]restaurant.Category, 0, len(s.st.categories))
	for _, c := range s.st.categories {
		cats = append(cats, c)
	}
	sortCategories(cats)

	byCategory := make(map[int64][]restaurant.Item)
	for _, it := range s.st.items {
		byCategory[it.CategoryID] = append(byCategory[it.CategoryID], it)
	}

	out := make([]restaurant.CatalogItem, 0, len(s.st.items))
	for _, c := range cats {
		items := byCategory[c.ID]
		sortItems(items)
		for _, it := range items {
			out = append(out, restaurant.CatalogItem{Item: it, CategoryName: c.Name})
		}
	}
	return out, nil
}

func (s *Store) GetItem(ctx context.Context, id int64) (restaurant.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.readable(ctx); err != nil {
		return restaurant.Item{}, err
	}
	it, ok := s.st.items[id]
	if !ok {
		return restaurant.Item{}, restaurant.NotFoundError("Item")
	}
	return it, nil
}

func (s *Store) CreateItem(ctx context.Context, in restaurant.ItemInput) (restaurant.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.readable(ctx); err != nil {
		return restaurant.Item{}, err
	}
	if _, ok := s.st.categories[in.CategoryID]; !ok {
		return restaurant.Item{}, restaurant.NotFoundError("Category")
	}
	it := in.Apply(restaurant.Item{ID: nextID(s.st.items)})
	ch, err := put(collItems, it.ID, it)
	if err != nil {
		return restaurant.Item{}, err
	}
	if err := s.commit(ch); err != nil {
		return restaurant.Item{}, err
	}
	return it, nil
}

func (s *Store) UpdateItem(ctx context.Context, id int64, in restaurant.ItemInput) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.readable(ctx); err != nil {
		return false, err
	}
	existing, ok := s.st.items[id]
	if !ok {
		return false, nil
	}
	if _, ok := s.st.categories[in.CategoryID]; !ok {
		return false, restaurant.NotFoundError("Category")
	}
	it := in.Apply(existing)
	ch, err := put(collItems, id, it)
	if err != nil {
		return false, err
	}
	if err := s.commit(ch); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) DeleteItem(ctx context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.readable(ctx); err != nil {
		return false, err
	}
	if _, ok := s.st.items[id]; !ok {
		return false, nil
	}
	if err := s.commit(del(collItems, id)); err != nil {
		return false, err
	}
	return true, nil
}
