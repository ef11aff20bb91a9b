package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"aroma-order-service/internal/restaurant"
	"aroma-order-service/internal/store/storetest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTempStore(t *testing.T, path string) *Store {
	t.Helper()
	s, err := Open(context.Background(), path)
	require.NoError(t, err)
	return s
}

func TestConformance(t *testing.T) {
	storetest.Run(t, storetest.Factory{
		Open: func(t *testing.T) restaurant.Store {
			return openTempStore(t, filepath.Join(t.TempDir(), "data.sqlite"))
		},
		Reopen: func(t *testing.T, s restaurant.Store) restaurant.Store {
			path := s.(*Store).path
			require.NoError(t, s.Close())
			return openTempStore(t, path)
		},
	})
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open(context.Background(), "  ")
	assert.Error(t, err)
}

func TestMigrateIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := openTempStore(t, filepath.Join(t.TempDir(), "data.sqlite"))
	defer s.Close()

	require.NoError(t, s.UpdateSettings(ctx, restaurant.Settings{BrandName: "Kept", PrimaryColor: "#1", SecondaryColor: "#2", FontFamily: "f", Currency: "EUR"}))
	require.NoError(t, s.Migrate(ctx))

	got, err := s.GetSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Kept", got.BrandName)
}

func TestCreateOrderRollsBackOnLineFailure(t *testing.T) {
	ctx := context.Background()
	s := openTempStore(t, filepath.Join(t.TempDir(), "data.sqlite"))
	defer s.Close()

	_, err := s.CreateOrder(ctx, restaurant.NewOrder{
		Type:      restaurant.OrderTypeTakeaway,
		Total:     storetest.Money(t, "3"),
		CreatedAt: time.Now(),
		Lines: []restaurant.OrderItem{
			{ItemID: 1, Name: "Fine", Price: storetest.Money(t, "3"), Quantity: 1},
			{ItemID: 2, Name: "Broken", Price: storetest.Money(t, "1"), Quantity: 0},
		},
	})
	require.Error(t, err)

	orders, err := s.ListRecentOrders(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, orders)

	var lines int
	require.NoError(t, s.db.QueryRow(`SELECT COUNT(*) FROM order_items`).Scan(&lines))
	assert.Zero(t, lines)
}

func TestForeignKeysEnforced(t *testing.T) {
	ctx := context.Background()
	s := openTempStore(t, filepath.Join(t.TempDir(), "data.sqlite"))
	defer s.Close()

	_, err := s.db.ExecContext(ctx, `INSERT INTO items (id, category_id, name, price) VALUES (1, 42, 'x', 1)`)
	assert.True(t, isForeignKeyViolation(err))
}
