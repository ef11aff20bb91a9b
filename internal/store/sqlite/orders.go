package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"aroma-order-service/internal/restaurant"

	"github.com/shopspring/decimal"
)

const orderColumns = `id, table_number, table_token, order_type, status, total, payment_method, payment_status, created_at`

func scanOrder(row rowScanner) (restaurant.Order, error) {
	var (
		o       restaurant.Order
		created int64
	)
	err := row.Scan(&o.ID, &o.TableNumber, &o.TableToken, &o.Type, &o.Status, &o.Total, &o.PaymentMethod, &o.PaymentStatus, &created)
	o.CreatedAt = fromMicros(created)
	return o, err
}

// CreateOrder writes the order row and its lines in one transaction.
func (s *Store) CreateOrder(ctx context.Context, in restaurant.NewOrder) (restaurant.Order, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return restaurant.Order{}, fmt.Errorf("begin create order: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO orders (table_number, table_token, order_type, status, total, payment_method, payment_status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		in.TableNumber, in.TableToken, string(in.Type), string(restaurant.StatusReceived), in.Total,
		in.PaymentMethod, in.PaymentStatus, toMicros(in.CreatedAt),
	)
	if err != nil {
		return restaurant.Order{}, fmt.Errorf("insert order: %w", err)
	}
	orderID, err := res.LastInsertId()
	if err != nil {
		return restaurant.Order{}, fmt.Errorf("order id: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO order_items (order_id, item_id, name, price, qty) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return restaurant.Order{}, fmt.Errorf("prepare order item: %w", err)
	}
	defer stmt.Close()

	lines := make([]restaurant.OrderItem, 0, len(in.Lines))
	for _, l := range in.Lines {
		res, err := stmt.ExecContext(ctx, orderID, l.ItemID, l.Name, l.Price, l.Quantity)
		if err != nil {
			return restaurant.Order{}, fmt.Errorf("insert order item %d: %w", l.ItemID, err)
		}
		lineID, err := res.LastInsertId()
		if err != nil {
			return restaurant.Order{}, fmt.Errorf("order item id: %w", err)
		}
		l.ID = lineID
		l.OrderID = orderID
		lines = append(lines, l)
	}

	if err := tx.Commit(); err != nil {
		return restaurant.Order{}, fmt.Errorf("commit order: %w", err)
	}

	return restaurant.Order{
		ID:            orderID,
		TableNumber:   in.TableNumber,
		TableToken:    in.TableToken,
		Type:          in.Type,
		Status:        restaurant.StatusReceived,
		Total:         in.Total,
		PaymentMethod: in.PaymentMethod,
		PaymentStatus: in.PaymentStatus,
		CreatedAt:     fromMicros(toMicros(in.CreatedAt)),
		Items:         lines,
	}, nil
}

func (s *Store) GetOrder(ctx context.Context, id int64) (restaurant.Order, error) {
	o, err := scanOrder(s.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return restaurant.Order{}, restaurant.NotFoundError("Order")
	}
	if err != nil {
		return restaurant.Order{}, fmt.Errorf("get order %d: %w", id, err)
	}
	lines, err := s.orderLines(ctx, `order_id = ?`, id)
	if err != nil {
		return restaurant.Order{}, err
	}
	o.Items = lines[id]
	return o, nil
}

func (s *Store) ListRecentOrders(ctx context.Context, limit int) ([]restaurant.Order, error) {
	if limit <= 0 {
		limit = restaurant.DefaultRecentOrders
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+orderColumns+` FROM orders ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	out := []restaurant.Order{}
	ids := make([]any, 0, limit)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan order: %w", err)
		}
		out = append(out, o)
		ids = append(ids, o.ID)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()
	if len(out) == 0 {
		return out, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	lines, err := s.orderLines(ctx, `order_id IN (`+placeholders+`)`, ids...)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Items = lines[out[i].ID]
	}
	return out, nil
}

func (s *Store) orderLines(ctx context.Context, where string, args ...any) (map[int64][]restaurant.OrderItem, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, order_id, item_id, name, price, qty FROM order_items WHERE `+where+` ORDER BY order_id, id`, args...)
	if err != nil {
		return nil, fmt.Errorf("list order items: %w", err)
	}
	defer rows.Close()

	out := make(map[int64][]restaurant.OrderItem)
	for rows.Next() {
		var l restaurant.OrderItem
		if err := rows.Scan(&l.ID, &l.OrderID, &l.ItemID, &l.Name, &l.Price, &l.Quantity); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		out[l.OrderID] = append(out[l.OrderID], l)
	}
	return out, rows.Err()
}

// UpdateOrderStatus is a compare-and-set on the current status.
func (s *Store) UpdateOrderStatus(ctx context.Context, id int64, from, to restaurant.Status) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin status update: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `UPDATE orders SET status = ? WHERE id = ? AND status = ?`, string(to), id, string(from))
	if err != nil {
		return fmt.Errorf("update order %d status: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		var current restaurant.Status
		err := tx.QueryRowContext(ctx, `SELECT status FROM orders WHERE id = ?`, id).Scan(&current)
		if errors.Is(err, sql.ErrNoRows) {
			return restaurant.NotFoundError("Order")
		}
		if err != nil {
			return fmt.Errorf("load order %d status: %w", id, err)
		}
		return restaurant.TransitionError(current, to)
	}
	return tx.Commit()
}

func (s *Store) CountOrdersByStatus(ctx context.Context, status restaurant.Status) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders WHERE status = ?`, string(status)).Scan(&n); err != nil {
		return 0, fmt.Errorf("count orders: %w", err)
	}
	return n, nil
}

func (s *Store) SalesTotal(ctx context.Context) (decimal.Decimal, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT total FROM orders WHERE status IN (?, ?)`,
		string(restaurant.StatusConfirmed), string(restaurant.StatusCompleted),
	)
	if err != nil {
		return decimal.Zero, fmt.Errorf("sales total: %w", err)
	}
	defer rows.Close()

	total := decimal.Zero
	for rows.Next() {
		var t decimal.Decimal
		if err := rows.Scan(&t); err != nil {
			return decimal.Zero, fmt.Errorf("scan order total: %w", err)
		}
		total = total.Add(t)
	}
	return total, rows.Err()
}

func (s *Store) TopItems(ctx context.Context, limit int) ([]restaurant.TopItem, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT oi.item_id, oi.name, oi.price, oi.qty
		 FROM order_items oi JOIN orders o ON o.id = oi.order_id
		 WHERE o.status IN (?, ?)`,
		string(restaurant.StatusConfirmed), string(restaurant.StatusCompleted),
	)
	if err != nil {
		return nil, fmt.Errorf("top items: %w", err)
	}
	defer rows.Close()

	var tally restaurant.TopItemTally
	for rows.Next() {
		var l restaurant.OrderItem
		if err := rows.Scan(&l.ItemID, &l.Name, &l.Price, &l.Quantity); err != nil {
			return nil, fmt.Errorf("scan top item line: %w", err)
		}
		tally.Add(l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return tally.Ranked(limit), nil
}
