// Package postgres persists the restaurant in PostgreSQL through a pgx pool.
package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"aroma-order-service/internal/restaurant"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

//go:embed schema.sql
var schemaSQL string

type Store struct {
	DB *pgxpool.Pool
}

var _ restaurant.Store = (*Store)(nil)

// Open connects to databaseURL and migrates the schema.
func Open(ctx context.Context, databaseURL string) (*Store, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	s := &Store{DB: pool}
	if err := s.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.DB.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply postgres schema: %w", err)
	}
	return ensureSettings(ctx, s.DB)
}

func (s *Store) Close() error {
	if s != nil && s.DB != nil {
		s.DB.Close()
	}
	return nil
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func ensureSettings(ctx context.Context, db execer) error {
	d := restaurant.DefaultSettings()
	_, err := db.Exec(ctx, `
		insert into settings (id, brand_name, logo_url, primary_color, secondary_color, background_url, font_family, currency)
		values ($1, $2, $3, $4, $5, $6, $7, $8)
		on conflict (id) do nothing
	`, d.ID, d.BrandName, d.LogoURL, d.PrimaryColor, d.SecondaryColor, d.BackgroundURL, d.FontFamily, d.Currency)
	if err != nil {
		return fmt.Errorf("ensure settings row: %w", err)
	}
	return nil
}

func (s *Store) Reset(ctx context.Context) error {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin reset: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `truncate order_items, orders, items, categories, tables, settings restart identity`); err != nil {
		return fmt.Errorf("truncate: %w", err)
	}
	if err := ensureSettings(ctx, tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *Store) GetSettings(ctx context.Context) (restaurant.Settings, error) {
	var out restaurant.Settings
	err := s.DB.QueryRow(ctx, `
		select id, brand_name, logo_url, primary_color, secondary_color, background_url, font_family, currency
		from settings where id = $1
	`, restaurant.SettingsID).Scan(&out.ID, &out.BrandName, &out.LogoURL, &out.PrimaryColor, &out.SecondaryColor, &out.BackgroundURL, &out.FontFamily, &out.Currency)
	if errors.Is(err, pgx.ErrNoRows) {
		return restaurant.DefaultSettings(), nil
	}
	if err != nil {
		return restaurant.Settings{}, fmt.Errorf("get settings: %w", err)
	}
	return out, nil
}

func (s *Store) UpdateSettings(ctx context.Context, in restaurant.Settings) error {
	_, err := s.DB.Exec(ctx, `
		insert into settings (id, brand_name, logo_url, primary_color, secondary_color, background_url, font_family, currency)
		values ($1, $2, $3, $4, $5, $6, $7, $8)
		on conflict (id) do update set
			brand_name = excluded.brand_name,
			logo_url = excluded.logo_url,
			primary_color = excluded.primary_color,
			secondary_color = excluded.secondary_color,
			background_url = excluded.background_url,
			font_family = excluded.font_family,
			currency = excluded.currency
	`, restaurant.SettingsID, in.BrandName, in.LogoURL, in.PrimaryColor, in.SecondaryColor, in.BackgroundURL, in.FontFamily, in.Currency)
	if err != nil {
		return fmt.Errorf("update settings: %w", err)
	}
	return nil
}

func toNumeric(d decimal.Decimal) pgtype.Numeric {
	return pgtype.Numeric{Int: new(big.Int).Set(d.Coefficient()), Exp: d.Exponent(), Valid: true}
}

func fromNumeric(value pgtype.Numeric) decimal.Decimal {
	if !value.Valid || value.NaN || value.Int == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(value.Int, value.Exp)
}

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

func isUniqueViolation(err error) bool {
	return pgCode(err) == "23505"
}

func isForeignKeyViolation(err error) bool {
	return pgCode(err) == "23503"
}
