package filestore

import (
	"context"
	"fmt"
	"sort"

	"aroma-order-service/internal/restaurant"

	"github.com/shopspring/decimal"
)

func (s *Store) ListTables(ctx context.Context) ([]restaurant.Table, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.readable(ctx); err != nil {
		return nil, err
	}
	out := make([]restaurant.Table, 0, len(s.st.tables))
	for _, t := range s.st.tables {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) GetTable(ctx context.Context, id int64) (restaurant.Table, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.readable(ctx); err != nil {
		return restaurant.Table{}, err
	}
	t, ok := s.st.tables[id]
	if !ok {
		return restaurant.Table{}, restaurant.NotFoundError("Table")
	}
	return t, nil
}

func (s *Store) GetTableByToken(ctx context.Context, token string) (restaurant.Table, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.readable(ctx); err != nil {
		return restaurant.Table{}, err
	}
	for _, t := range s.st.tables {
		if t.Token == token {
			return t, nil
		}
	}
	return restaurant.Table{}, restaurant.NotFoundError("Table")
}

func (s *Store) CreateTable(ctx context.Context, number, token string) (restaurant.Table, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.readable(ctx); err != nil {
		return restaurant.Table{}, err
	}
	for _, t := range s.st.tables {
		if t.Number == number || t.Token == token {
			return restaurant.Table{}, restaurant.ConflictError(fmt.Sprintf("Table %s already exists", number))
		}
	}
	t := restaurant.Table{ID: nextID(s.st.tables), Number: number, Token: token}
	ch, err := put(collTables, t.ID, t)
	if err != nil {
		return restaurant.Table{}, err
	}
	if err := s.commit(ch); err != nil {
		return restaurant.Table{}, err
	}
	return t, nil
}

// CreateOrder journals the order and all of its lines as one record.
func (s *Store) CreateOrder(ctx context.Context, in restaurant.NewOrder) (restaurant.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.readable(ctx); err != nil {
		return restaurant.Order{}, err
	}

	o := restaurant.Order{
		ID:            nextID(s.st.orders),
		TableNumber:   in.TableNumber,
		TableToken:    in.TableToken,
		Type:          in.Type,
		Status:        restaurant.StatusReceived,
		Total:         in.Total,
		PaymentMethod: in.PaymentMethod,
		PaymentStatus: in.PaymentStatus,
		CreatedAt:     in.CreatedAt.UTC(),
	}
	ch, err := put(collOrders, o.ID, o)
	if err != nil {
		return restaurant.Order{}, err
	}
	changes := []change{ch}

	lineID := nextID(s.st.orderItems)
	lines := make([]restaurant.OrderItem, 0, len(in.Lines))
	for _, l := range in.Lines {
		if l.Quantity <= 0 {
			return restaurant.Order{}, fmt.Errorf("order item %d: quantity must be positive", l.ItemID)
		}
		l.ID = lineID
		l.OrderID = o.ID
		lineID++
		ch, err := put(collOrderItems, l.ID, l)
		if err != nil {
			return restaurant.Order{}, err
		}
		changes = append(changes, ch)
		lines = append(lines, l)
	}

	if err := s.commit(changes...); err != nil {
		return restaurant.Order{}, err
	}
	o.Items = lines
	return o, nil
}

// linesByOrder groups order lines, each group ordered by line id.
func (s *Store) linesByOrder(want map[int64]bool) map[int64][]restaurant.OrderItem {
	out := make(map[int64][]restaurant.OrderItem)
	for _, l := range s.st.orderItems {
		if want[l.OrderID] {
			out[l.OrderID] = append(out[l.OrderID], l)
		}
	}
	for _, lines := range out {
		sort.Slice(lines, func(i, j int) bool { return lines[i].ID < lines[j].ID })
	}
	return out
}

func (s *Store) GetOrder(ctx context.Context, id int64) (restaurant.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.readable(ctx); err != nil {
		return restaurant.Order{}, err
	}
	o, ok := s.st.orders[id]
	if !ok {
		return restaurant.Order{}, restaurant.NotFoundError("Order")
	}
	o.Items = s.linesByOrder(map[int64]bool{id: true})[id]
	return o, nil
}

func (s *Store) ListRecentOrders(ctx context.Context, limit int) ([]restaurant.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.readable(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = restaurant.DefaultRecentOrders
	}
	out := make([]restaurant.Order, 0, len(s.st.orders))
	for _, o := range s.st.orders {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	if len(out) > limit {
		out = out[:limit]
	}

	want := make(map[int64]bool, len(out))
	for _, o := range out {
		want[o.ID] = true
	}
	lines := s.linesByOrder(want)
	for i := range out {
		out[i].Items = lines[out[i].ID]
	}
	return out, nil
}

// UpdateOrderStatus is a compare-and-set on the current status.
func (s *Store) UpdateOrderStatus(ctx context.Context, id int64, from, to restaurant.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.readable(ctx); err != nil {
		return err
	}
	o, ok := s.st.orders[id]
	if !ok {
		return restaurant.NotFoundError("Order")
	}
	if o.Status != from {
		return restaurant.TransitionError(o.Status, to)
	}
	o.Status = to
	ch, err := put(collOrders, id, o)
	if err != nil {
		return err
	}
	return s.commit(ch)
}

func (s *Store) CountOrdersByStatus(ctx context.Context, status restaurant.Status) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.readable(ctx); err != nil {
		return 0, err
	}
	n := 0
	for _, o := range s.st.orders {
		if o.Status == status {
			n++
		}
	}
	return n, nil
}

func (s *Store) SalesTotal(ctx context.Context) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.readable(ctx); err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, o := range s.st.orders {
		if restaurant.IsSalesStatus(o.Status) {
			total = total.Add(o.Total)
		}
	}
	return total, nil
}

func (s *Store) TopItems(ctx context.Context, limit int) ([]restaurant.TopItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.readable(ctx); err != nil {
		return nil, err
	}
	var tally restaurant.TopItemTally
	for _, l := range s.st.orderItems {
		if o, ok := s.st.orders[l.OrderID]; ok && restaurant.IsSalesStatus(o.Status) {
			tally.Add(l)
		}
	}
	return tally.Ranked(limit), nil
}
