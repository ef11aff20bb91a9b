package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"aroma-order-service/internal/restaurant"
)

func (s *Store) ListTables(ctx context.Context) ([]restaurant.Table, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, number, token FROM tables ORDER BY id`)
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

func (s *Store) getTable(ctx context.Context, where string, arg any) (restaurant.Table, error) {
	var t restaurant.Table
	err := s.db.QueryRowContext(ctx, `SELECT id, number, token FROM tables WHERE `+where+` = ?`, arg).
		Scan(&t.ID, &t.Number, &t.Token)
	if errors.Is(err, sql.ErrNoRows) {
		return restaurant.Table{}, restaurant.NotFoundError("Table")
	}
	if err != nil {
		return restaurant.Table{}, fmt.Errorf("get table: %w", err)
	}
	return t, nil
}

func (s *Store) GetTable(ctx context.Context, id int64) (restaurant.Table, error) {
	return s.getTable(ctx, "id", id)
}

func (s *Store) GetTableByToken(ctx context.Context, token string) (restaurant.Table, error) {
	return s.getTable(ctx, "token", token)
}

func (s *Store) CreateTable(ctx context.Context, number, token string) (restaurant.Table, error) {
	res, err := s.db.ExecContext(ctx, `INSERT INTO tables (number, token) VALUES (?, ?)`, number, token)
	if err != nil {
		if isUniqueViolation(err) {
			return restaurant.Table{}, restaurant.ConflictError(fmt.Sprintf("Table %s already exists", number))
		}
		return restaurant.Table{}, fmt.Errorf("create table: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return restaurant.Table{}, fmt.Errorf("table id: %w", err)
	}
	return restaurant.Table{ID: id, Number: number, Token: token}, nil
}
