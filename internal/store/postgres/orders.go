package postgres

import (
	"context"
	"errors"
	"fmt"

	"aroma-order-service/internal/restaurant"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

func (s *Store) ListTables(ctx context.Context) ([]restaurant.Table, error) {
	rows, err := s.DB.Query(ctx, `select id, number, token from tables order by id`)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()

	out := []restaurant.Table{}
	for rows.Next() {
		var t restaurant.Table
		if err := rows.Scan(&t.ID, &t.Number, &t.Token); err != nil {
			return nil, fmt.Errorf("scan table: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) getTable(ctx context.Context, query string, arg any) (restaurant.Table, error) {
	var t restaurant.Table
	err := s.DB.QueryRow(ctx, query, arg).Scan(&t.ID, &t.Number, &t.Token)
	if errors.Is(err, pgx.ErrNoRows) {
		return restaurant.Table{}, restaurant.NotFoundError("Table")
	}
	if err != nil {
		return restaurant.Table{}, fmt.Errorf("get table: %w", err)
	}
	return t, nil
}

func (s *Store) GetTable(ctx context.Context, id int64) (restaurant.Table, error) {
	return s.getTable(ctx, `select id, number, token from tables where id = $1`, id)
}

func (s *Store) GetTableByToken(ctx context.Context, token string) (restaurant.Table, error) {
	return s.getTable(ctx, `select id, number, token from tables where token = $1`, token)
}

func (s *Store) CreateTable(ctx context.Context, number, token string) (restaurant.Table, error) {
	var id int64
	err := s.DB.QueryRow(ctx, `insert into tables (number, token) values ($1, $2) returning id`, number, token).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return restaurant.Table{}, restaurant.ConflictError(fmt.Sprintf("Table %s already exists", number))
		}
		return restaurant.Table{}, fmt.Errorf("create table: %w", err)
	}
	return restaurant.Table{ID: id, Number: number, Token: token}, nil
}

const orderColumns = `id, table_number, table_token, order_type, status, total, payment_method, payment_status, created_at`

func scanOrder(row pgx.Row) (restaurant.Order, error) {
	var (
		o         restaurant.Order
		orderType string
		status    string
		total     pgtype.Numeric
	)
	if err := row.Scan(&o.ID, &o.TableNumber, &o.TableToken, &orderType, &status, &total, &o.PaymentMethod, &o.PaymentStatus, &o.CreatedAt); err != nil {
		return restaurant.Order{}, err
	}
	o.Type = restaurant.OrderType(orderType)
	o.Status = restaurant.Status(status)
	o.Total = fromNumeric(total)
	o.CreatedAt = o.CreatedAt.UTC()
	return o, nil
}

func (s *Store) CreateOrder(ctx context.Context, in restaurant.NewOrder) (restaurant.Order, error) {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return restaurant.Order{}, fmt.Errorf("begin create order: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	o, err := scanOrder(tx.QueryRow(ctx, `
		insert into orders (table_number, table_token, order_type, status, total, payment_method, payment_status, created_at)
		values ($1, $2, $3, $4, $5, $6, $7, $8)
		returning `+orderColumns,
		in.TableNumber, in.TableToken, string(in.Type), string(restaurant.StatusReceived), toNumeric(in.Total),
		in.PaymentMethod, in.PaymentStatus, in.CreatedAt.UTC(),
	))
	if err != nil {
		return restaurant.Order{}, fmt.Errorf("insert order: %w", err)
	}

	o.Items = make([]restaurant.OrderItem, 0, len(in.Lines))
	for _, l := range in.Lines {
		if err := tx.QueryRow(ctx, `
			insert into order_items (order_id, item_id, name, price, qty)
			values ($1, $2, $3, $4, $5)
			returning id
		`, o.ID, l.ItemID, l.Name, toNumeric(l.Price), l.Quantity).Scan(&l.ID); err != nil {
			return restaurant.Order{}, fmt.Errorf("insert order item %d: %w", l.ItemID, err)
		}
		l.OrderID = o.ID
		o.Items = append(o.Items, l)
	}

	if err := tx.Commit(ctx); err != nil {
		return restaurant.Order{}, fmt.Errorf("commit order: %w", err)
	}
	return o, nil
}

func (s *Store) GetOrder(ctx context.Context, id int64) (restaurant.Order, error) {
	o, err := scanOrder(s.DB.QueryRow(ctx, `select `+orderColumns+` from orders where id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return restaurant.Order{}, restaurant.NotFoundError("Order")
	}
	if err != nil {
		return restaurant.Order{}, fmt.Errorf("get order %d: %w", id, err)
	}
	lines, err := s.orderLines(ctx, []int64{id})
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
	rows, err := s.DB.Query(ctx, `select `+orderColumns+` from orders order by created_at desc, id desc limit $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	out := []restaurant.Order{}
	ids := make([]int64, 0, limit)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		out = append(out, o)
		ids = append(ids, o.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return out, nil
	}

	lines, err := s.orderLines(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Items = lines[out[i].ID]
	}
	return out, nil
}

func (s *Store) orderLines(ctx context.Context, orderIDs []int64) (map[int64][]restaurant.OrderItem, error) {
	rows, err := s.DB.Query(ctx, `
		select id, order_id, item_id, name, price, qty
		from order_items
		where order_id = any($1)
		order by order_id, id
	`, orderIDs)
	if err != nil {
		return nil, fmt.Errorf("list order items: %w", err)
	}
	defer rows.Close()

	out := make(map[int64][]restaurant.OrderItem)
	for rows.Next() {
		var (
			l     restaurant.OrderItem
			price pgtype.Numeric
		)
		if err := rows.Scan(&l.ID, &l.OrderID, &l.ItemID, &l.Name, &price, &l.Quantity); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		l.Price = fromNumeric(price)
		out[l.OrderID] = append(out[l.OrderID], l)
	}
	return out, rows.Err()
}

func (s *Store) UpdateOrderStatus(ctx context.Context, id int64, from, to restaurant.Status) error {
	tag, err := s.DB.Exec(ctx, `update orders set status = $1 where id = $2 and status = $3`, string(to), id, string(from))
	if err != nil {
		return fmt.Errorf("update order %d status: %w", id, err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}
	var current string
	err = s.DB.QueryRow(ctx, `select status from orders where id = $1`, id).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		return restaurant.NotFoundError("Order")
	}
	if err != nil {
		return fmt.Errorf("load order %d status: %w", id, err)
	}
	return restaurant.TransitionError(restaurant.Status(current), to)
}

func (s *Store) CountOrdersByStatus(ctx context.Context, status restaurant.Status) (int, error) {
	var n int
	if err := s.DB.QueryRow(ctx, `select count(*) from orders where status = $1`, string(status)).Scan(&n); err != nil {
		return 0, fmt.Errorf("count orders: %w", err)
	}
	return n, nil
}

func salesStatuses() []string {
	out := make([]string, 0, len(restaurant.SalesStatuses))
	for _, st := range restaurant.SalesStatuses {
		out = append(out, string(st))
	}
	return out
}

func (s *Store) SalesTotal(ctx context.Context) (decimal.Decimal, error) {
	var total pgtype.Numeric
	if err := s.DB.QueryRow(ctx, `select coalesce(sum(total), 0) from orders where status = any($1)`, salesStatuses()).Scan(&total); err != nil {
		return decimal.Zero, fmt.Errorf("sales total: %w", err)
	}
	return fromNumeric(total), nil
}

func (s *Store) TopItems(ctx context.Context, limit int) ([]restaurant.TopItem, error) {
	if limit <= 0 {
		limit = restaurant.DefaultTopItems
	}
	rows, err := s.DB.Query(ctx, `
		select oi.item_id, oi.name, sum(oi.qty)::bigint as qty, sum(oi.price * oi.qty) as sales
		from order_items oi
		join orders o on o.id = oi.order_id
		where o.status = any($1)
		group by oi.item_id, oi.name
		order by sales desc, oi.item_id
		limit $2
	`, salesStatuses(), limit)
	if err != nil {
		return nil, fmt.Errorf("top items: %w", err)
	}
	defer rows.Close()

	out := []restaurant.TopItem{}
	for rows.Next() {
		var (
			ti    restaurant.TopItem
			sales pgtype.Numeric
		)
		if err := rows.Scan(&ti.ItemID, &ti.Name, &ti.Quantity, &sales); err != nil {
			return nil, fmt.Errorf("scan top item: %w", err)
		}
		ti.Sales = fromNumeric(sales)
		out = append(out, ti)
	}
	return out, rows.Err()
}
