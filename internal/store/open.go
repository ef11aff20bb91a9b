// Package store picks the restaurant.Store backend named by configuration.
package store

import (
	"context"
	"fmt"

	"aroma-order-service/internal/config"
	"aroma-order-service/internal/restaurant"
	"aroma-order-service/internal/store/filestore"
	"aroma-order-service/internal/store/postgres"
	"aroma-order-service/internal/store/sqlite"
)

// Open opens and migrates the configured backend. Seeding is left to the
// caller.
func Open(ctx context.Context, cfg config.Config) (restaurant.Store, error) {
	var (
		s   restaurant.Store
		err error
	)
	switch cfg.StoreBackend {
	case config.BackendSQLite, "":
		s, err = sqlite.Open(ctx, cfg.SQLitePath)
	case config.BackendJSON:
		s, err = filestore.Open(filestore.Options{Path: cfg.DataFile, CompactEvery: cfg.JSONCompactEvery})
	case config.BackendPostgres:
		s, err = postgres.Open(ctx, cfg.DatabaseURL)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Describe names the backend and where it keeps its data, without secrets.
func Describe(cfg config.Config) string {
	switch cfg.StoreBackend {
	case config.BackendJSON:
		return "json:" + cfg.DataFile
	case config.BackendPostgres:
		return "postgres"
	default:
		return "sqlite:" + cfg.SQLitePath
	}
}
