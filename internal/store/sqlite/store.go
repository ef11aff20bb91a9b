// Package sqlite persists the restaurant in a single SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"aroma-order-service/internal/restaurant"

	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

//go:embed schema.sql
var schemaSQL string

// Store implements restaurant.Store on SQLite. Writes are serialized through a
// single connection so transactions never race for the write lock.
type Store struct {
	db   *sql.DB
	path string
}

var _ restaurant.Store = (*Store)(nil)

// Open opens (creating if needed) the database at path and migrates it.
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	dsn := "file:" + filepath.Clean(path) +
		"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	s := &Store{db: db, path: path}
	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Migrate creates the schema and the settings row if they are missing.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply sqlite schema: %w", err)
	}
	return s.ensureSettings(ctx, s.db)
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Reset removes every row and restores default settings.
func (s *Store) Reset(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin reset: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"order_items", "orders", "items", "categories", "tables", "settings"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	if err := s.ensureSettings(ctx, tx); err != nil {
		return err
	}
	return tx.Commit()
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Store) ensureSettings(ctx context.Context, db execer) error {
	d := restaurant.DefaultSettings()
	_, err := db.ExecContext(ctx,
		`INSERT OR IGNORE INTO settings (id, brand_name, logo_url, primary_color, secondary_color, background_url, font_family, currency)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.BrandName, d.LogoURL, d.PrimaryColor, d.SecondaryColor, d.BackgroundURL, d.FontFamily, d.Currency,
	)
	if err != nil {
		return fmt.Errorf("ensure settings row: %w", err)
	}
	return nil
}

func (s *Store) GetSettings(ctx context.Context) (restaurant.Settings, error) {
	var out restaurant.Settings
	err := s.db.QueryRowContext(ctx,
		`SELECT id, brand_name, logo_url, primary_color, secondary_color, background_url, font_family, currency
		 FROM settings WHERE id = ?`, restaurant.SettingsID,
	).Scan(&out.ID, &out.BrandName, &out.LogoURL, &out.PrimaryColor, &out.SecondaryColor, &out.BackgroundURL, &out.FontFamily, &out.Currency)
	if errors.Is(err, sql.ErrNoRows) {
		return restaurant.DefaultSettings(), nil
	}
	if err != nil {
		return restaurant.Settings{}, fmt.Errorf("get settings: %w", err)
	}
	return out, nil
}

func (s *Store) UpdateSettings(ctx context.Context, in restaurant.Settings) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO settings (id, brand_name, logo_url, primary_color, secondary_color, background_url, font_family, currency)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   brand_name = excluded.brand_name,
		   logo_url = excluded.logo_url,
		   primary_color = excluded.primary_color,
		   secondary_color = excluded.secondary_color,
		   background_url = excluded.background_url,
		   font_family = excluded.font_family,
		   currency = excluded.currency`,
		restaurant.SettingsID, in.BrandName, in.LogoURL, in.PrimaryColor, in.SecondaryColor, in.BackgroundURL, in.FontFamily, in.Currency,
	)
	if err != nil {
		return fmt.Errorf("update settings: %w", err)
	}
	return nil
}

func toMicros(t time.Time) int64 {
	return t.UTC().UnixMicro()
}

func fromMicros(v int64) time.Time {
	return time.UnixMicro(v).UTC()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func constraintCode(err error) int {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code()
	}
	return 0
}

func isUniqueViolation(err error) bool {
	switch constraintCode(err) {
	case sqlite3lib.SQLITE_CONSTRAINT_UNIQUE, sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY:
		return true
	}
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}

func isForeignKeyViolation(err error) bool {
	if constraintCode(err) == sqlite3lib.SQLITE_CONSTRAINT_FOREIGNKEY {
		return true
	}
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "foreign key constraint failed")
}
