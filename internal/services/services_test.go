package services

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"aroma-order-service/internal/restaurant"
	"aroma-order-service/internal/store/filestore"
	"aroma-order-service/internal/store/sqlite"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingSink struct {
	mu     sync.Mutex
	events []restaurant.OrderEvent
	err    error
}

func (r *recordingSink) PublishOrderEvent(_ context.Context, ev restaurant.OrderEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return r.err
}

func (r *recordingSink) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Type)
	}
	return out
}

// eachBackend runs fn against a freshly seeded store of every local backend.
func eachBackend(t *testing.T, fn func(t *testing.T, store restaurant.Store)) {
	backends := map[string]func(t *testing.T) restaurant.Store{
		"sqlite": func(t *testing.T) restaurant.Store {
			s, err := sqlite.Open(context.Background(), filepath.Join(t.TempDir(), "data.sqlite"))
			require.NoError(t, err)
			return s
		},
		"json": func(t *testing.T) restaurant.Store {
			s, err := filestore.Open(filestore.Options{Path: filepath.Join(t.TempDir(), "data.json")})
			require.NoError(t, err)
			return s
		},
	}
	for name, open := range backends {
		t.Run(name, func(t *testing.T) {
			store := open(t)
			t.Cleanup(func() { _ = store.Close() })
			_, err := restaurant.Seed(context.Background(), store)
			require.NoError(t, err)
			fn(t, store)
		})
	}
}

func TestPlaceOrderTotals(t *testing.T) {
	eachBackend(t, func(t *testing.T, store restaurant.Store) {
		ctx := context.Background()
		sink := &recordingSink{}
		orders := NewOrders(store, zap.NewNop(), sink)

		order, err := orders.Place(ctx, PlaceOrderInput{
			Lines:     []PlaceOrderLine{{ItemID: 1, Quantity: 2}, {ItemID: 2, Quantity: 1}},
			OrderType: "dine-in",
		})
		require.NoError(t, err)
		assert.True(t, order.Total.Equal(decimal.RequireFromString("24.0")), "total %s", order.Total)
		assert.Equal(t, restaurant.StatusReceived, order.Status)
		require.Len(t, order.Items, 2)
		assert.Equal(t, "Classic Burger", order.Items[0].Name)
		assert.Equal(t, []string{restaurant.EventOrderCreated}, sink.types())

		// later price changes do not touch the stored order
		item, err := store.GetItem(ctx, 1)
		require.NoError(t, err)
		in := item.Input()
		in.Price = decimal.RequireFromString("100")
		_, err = store.UpdateItem(ctx, 1, in)
		require.NoError(t, err)

		got, err := orders.Get(ctx, order.ID)
		require.NoError(t, err)
		assert.True(t, got.Total.Equal(decimal.RequireFromString("24")))
		assert.True(t, got.Items[0].Price.Equal(decimal.RequireFromString("8.5")))
	})
}

func TestPlaceOrderUnknownItemWritesNothing(t *testing.T) {
	eachBackend(t, func(t *testing.T, store restaurant.Store) {
		ctx := context.Background()
		sink := &recordingSink{}
		orders := NewOrders(store, zap.NewNop(), sink)

		_, err := orders.Place(ctx, PlaceOrderInput{
			Lines:     []PlaceOrderLine{{ItemID: 1, Quantity: 1}, {ItemID: 999, Quantity: 1}},
			OrderType: "takeaway",
		})
		require.Error(t, err)
		assert.ErrorIs(t, err, restaurant.ErrInvalidItem)
		assert.Equal(t, "Invalid item 999", err.Error())

		recent, err := orders.ListRecent(ctx, 0)
		require.NoError(t, err)
		assert.Empty(t, recent)
		top, err := store.TopItems(ctx, 20)
		require.NoError(t, err)
		assert.Empty(t, top)
		assert.Empty(t, sink.types())
	})
}

func TestPlaceOrderCoercesQuantity(t *testing.T) {
	eachBackend(t, func(t *testing.T, store restaurant.Store) {
		order, err := NewOrders(store, zap.NewNop()).Place(context.Background(), PlaceOrderInput{
			Lines:     []PlaceOrderLine{{ItemID: 6, Quantity: 0}, {ItemID: 6, Quantity: -4}, {ItemID: 4}},
			OrderType: "takeaway",
		})
		require.NoError(t, err)
		for _, l := range order.Items {
			assert.Equal(t, 1, l.Quantity)
		}
		assert.True(t, order.Total.Equal(decimal.RequireFromString("7")), "total %s", order.Total)
	})
}

func TestPlaceOrderRejectsExcessiveQuantity(t *testing.T) {
	eachBackend(t, func(t *testing.T, store restaurant.Store) {
		ctx := context.Background()
		orders := NewOrders(store, zap.NewNop())

		order, err := orders.Place(ctx, PlaceOrderInput{
			Lines:     []PlaceOrderLine{{ItemID: 6, Quantity: restaurant.MaxLineQuantity}},
			OrderType: "takeaway",
		})
		require.NoError(t, err)
		assert.Equal(t, restaurant.MaxLineQuantity, order.Items[0].Quantity)

		_, err = orders.Place(ctx, PlaceOrderInput{
			Lines:     []PlaceOrderLine{{ItemID: 6, Quantity: 1}, {ItemID: 6, Quantity: 1 << 40}},
			OrderType: "takeaway",
		})
		assert.ErrorIs(t, err, restaurant.ValidationError(""))

		recent, err := orders.ListRecent(ctx, 0)
		require.NoError(t, err)
		assert.Len(t, recent, 1)
	})
}

func TestPlaceOrderValidation(t *testing.T) {
	eachBackend(t, func(t *testing.T, store restaurant.Store) {
		ctx := context.Background()
		orders := NewOrders(store, zap.NewNop())

		_, err := orders.Place(ctx, PlaceOrderInput{OrderType: "dine-in"})
		de, ok := restaurant.AsError(err)
		require.True(t, ok)
		assert.Equal(t, restaurant.CodeValidation, de.Code)

		_, err = orders.Place(ctx, PlaceOrderInput{Lines: []PlaceOrderLine{{ItemID: 1}}, OrderType: "delivery"})
		de, ok = restaurant.AsError(err)
		require.True(t, ok)
		assert.Equal(t, "Invalid orderType", de.Message)

		_, err = orders.Place(ctx, PlaceOrderInput{Lines: []PlaceOrderLine{{ItemID: 1}}, OrderType: "dine-in", TableToken: "t-nope"})
		de, ok = restaurant.AsError(err)
		require.True(t, ok)
		assert.Equal(t, restaurant.CodeValidation, de.Code)
	})
}

func TestPlaceOrderResolvesTableFromToken(t *testing.T) {
	eachBackend(t, func(t *testing.T, store restaurant.Store) {
		ctx := context.Background()
		tables, err := store.ListTables(ctx)
		require.NoError(t, err)
		table := tables[2]

		order, err := NewOrders(store, zap.NewNop()).Place(ctx, PlaceOrderInput{
			Lines:         []PlaceOrderLine{{ItemID: 1, Quantity: 1}},
			OrderType:     "dine-in",
			TableToken:    table.Token,
			TableNumber:   "99",
			PaymentMethod: "card",
		})
		require.NoError(t, err)
		assert.Equal(t, table.Number, order.TableNumber)
		assert.Equal(t, table.Token, order.TableToken)
		assert.Equal(t, restaurant.PaymentStatusPending, order.PaymentStatus)
	})
}

func TestTransition(t *testing.T) {
	eachBackend(t, func(t *testing.T, store restaurant.Store) {
		ctx := context.Background()
		sink := &recordingSink{err: errors.New("broker down")}
		orders := NewOrders(store, zap.NewNop(), sink)

		order, err := orders.Place(ctx, PlaceOrderInput{Lines: []PlaceOrderLine{{ItemID: 1, Quantity: 1}}, OrderType: "takeaway"})
		require.NoError(t, err)

		_, err = orders.Transition(ctx, order.ID, restaurant.StatusCompleted)
		assert.ErrorIs(t, err, restaurant.ErrIllegalTransition)

		updated, err := orders.Transition(ctx, order.ID, restaurant.StatusConfirmed)
		require.NoError(t, err)
		assert.Equal(t, restaurant.StatusConfirmed, updated.Status)

		_, err = orders.Transition(ctx, order.ID, restaurant.StatusConfirmed)
		assert.ErrorIs(t, err, restaurant.ErrIllegalTransition)

		_, err = orders.Transition(ctx, order.ID, restaurant.StatusCompleted)
		require.NoError(t, err)

		_, err = orders.Transition(ctx, order.ID, restaurant.StatusCancelled)
		assert.ErrorIs(t, err, restaurant.ErrIllegalTransition)

		_, err = orders.Transition(ctx, 12345, restaurant.StatusConfirmed)
		assert.ErrorIs(t, err, restaurant.ErrNotFound)

		_, err = orders.Transition(ctx, order.ID, restaurant.Status("shipped"))
		de, ok := restaurant.AsError(err)
		require.True(t, ok)
		assert.Equal(t, restaurant.CodeValidation, de.Code)

		// a failing sink never fails the request
		assert.Equal(t, []string{
			restaurant.EventOrderCreated,
			restaurant.EventOrderStatusUpdated,
			restaurant.EventOrderStatusUpdated,
		}, sink.types())
		last := sink.events[2]
		assert.Equal(t, restaurant.StatusConfirmed, last.PreviousStatus)
		assert.Equal(t, restaurant.StatusCompleted, last.Status)
	})
}

func TestMenuExcludesHidden(t *testing.T) {
	eachBackend(t, func(t *testing.T, store restaurant.Store) {
		ctx := context.Background()
		catalog := NewCatalog(store, zap.NewNop())

		hidden, err := catalog.CreateCategory(ctx, restaurant.CategoryInput{Key: "secret", Name: "Secret", SortOrder: 9, Hidden: true})
		require.NoError(t, err)
		_, err = catalog.CreateItem(ctx, restaurant.ItemInput{CategoryID: hidden.ID, Name: "Mystery", Price: decimal.RequireFromString("1")})
		require.NoError(t, err)
		_, err = catalog.CreateCategory(ctx, restaurant.CategoryInput{Key: "desserts", Name: "Desserts", SortOrder: 4})
		require.NoError(t, err)
		_, err = catalog.CreateItem(ctx, restaurant.ItemInput{CategoryID: 1, Name: "Off menu", Price: decimal.RequireFromString("5"), Hidden: true})
		require.NoError(t, err)

		menu, err := catalog.Menu(ctx)
		require.NoError(t, err)
		keys := make([]string, 0, len(menu.Categories))
		for _, c := range menu.Categories {
			keys = append(keys, c.Key)
		}
		assert.Equal(t, []string{"burgers", "sides", "drinks", "desserts"}, keys)
		assert.NotContains(t, menu.Menu, "secret")
		assert.Empty(t, menu.Menu["desserts"])
		require.Len(t, menu.Menu["burgers"], 3)
		first := menu.Menu["burgers"][0]
		assert.Equal(t, "Classic Burger", first.Name.En)
		assert.Equal(t, 8.5, first.Price)
		assert.Equal(t, "10 min", first.PrepTime.En)

		admin, err := catalog.AdminCatalog(ctx)
		require.NoError(t, err)
		assert.Len(t, admin.Categories, 5)
		assert.Len(t, admin.Items, 9)
	})
}

func TestCatalogValidation(t *testing.T) {
	eachBackend(t, func(t *testing.T, store restaurant.Store) {
		ctx := context.Background()
		catalog := NewCatalog(store, zap.NewNop())

		_, err := catalog.CreateCategory(ctx, restaurant.CategoryInput{Key: "Bad Key", Name: "x"})
		assert.Error(t, err)
		_, err = catalog.CreateCategory(ctx, restaurant.CategoryInput{Key: "BURGERS", Name: "Again"})
		assert.ErrorIs(t, err, restaurant.ErrConflict)

		c, err := catalog.CreateCategory(ctx, restaurant.CategoryInput{Key: " wraps ", Name: "Wraps"})
		require.NoError(t, err)
		assert.Equal(t, "wraps", c.Key)
		assert.Equal(t, restaurant.DefaultCategoryIcon, c.Icon)

		_, err = catalog.CreateItem(ctx, restaurant.ItemInput{CategoryID: c.ID, Name: "Wrap", Price: decimal.RequireFromString("-1")})
		assert.Error(t, err)
		_, err = catalog.CreateItem(ctx, restaurant.ItemInput{CategoryID: 777, Name: "Wrap", Price: decimal.RequireFromString("1")})
		de, ok := restaurant.AsError(err)
		require.True(t, ok)
		assert.Equal(t, restaurant.CodeValidation, de.Code)
		_, err = catalog.CreateItem(ctx, restaurant.ItemInput{CategoryID: c.ID, Name: "  ", Price: decimal.RequireFromString("1")})
		assert.Error(t, err)

		for _, price := range []string{"1.005", "1234567890.123456789", "100000.01"} {
			_, err = catalog.CreateItem(ctx, restaurant.ItemInput{CategoryID: c.ID, Name: "Wrap", Price: decimal.RequireFromString(price)})
			assert.ErrorIs(t, err, restaurant.ValidationError(""), price)
		}
		wrap, err := catalog.CreateItem(ctx, restaurant.ItemInput{CategoryID: c.ID, Name: "Wrap", Price: decimal.RequireFromString("6.50")})
		require.NoError(t, err)
		got, err := catalog.GetItem(ctx, wrap.ID)
		require.NoError(t, err)
		assert.True(t, got.Price.Equal(decimal.RequireFromString("6.5")), got.Price.String())

		_, err = catalog.UpdateItem(ctx, 777, restaurant.ItemInput{CategoryID: c.ID, Name: "Wrap", Price: decimal.RequireFromString("1")})
		assert.ErrorIs(t, err, restaurant.ErrNotFound)
		assert.ErrorIs(t, catalog.DeleteItem(ctx, 777), restaurant.ErrNotFound)
		assert.ErrorIs(t, catalog.DeleteCategory(ctx, 777), restaurant.ErrNotFound)

		updated, err := catalog.SetItemImage(ctx, 2, "https://cdn.example/veggie.webp")
		require.NoError(t, err)
		assert.Equal(t, "https://cdn.example/veggie.webp", updated.ImageURL)
		assert.Equal(t, "Veggie Burger", updated.Name)

		require.NoError(t, catalog.DeleteCategory(ctx, 1))
		_, err = catalog.GetItem(ctx, 1)
		assert.ErrorIs(t, err, restaurant.ErrNotFound)
	})
}

func TestTables(t *testing.T) {
	eachBackend(t, func(t *testing.T, store restaurant.Store) {
		ctx := context.Background()
		tables := NewTables(store, "https://aroma.example/")

		created, err := tables.Create(ctx, "11")
		require.NoError(t, err)
		assert.Regexp(t, `^t-[0-9a-z]{8}$`, created.Token)

		_, err = tables.Create(ctx, "11")
		assert.ErrorIs(t, err, restaurant.ErrConflict)
		_, err = tables.Create(ctx, " ")
		assert.Error(t, err)

		links, err := tables.Links(ctx)
		require.NoError(t, err)
		require.Len(t, links, 11)
		tokens := map[string]bool{}
		for _, l := range links {
			tokens[l.Token] = true
			assert.True(t, strings.HasPrefix(l.QR, "data:image/png;base64,"))
		}
		assert.Len(t, tokens, 11)
		assert.Equal(t, "https://aroma.example/?table=11&token="+created.Token, links[10].URL)

		png, err := tables.QRCode(ctx, created.ID)
		require.NoError(t, err)
		assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")))

		_, err = tables.QRCode(ctx, 999)
		assert.ErrorIs(t, err, restaurant.ErrNotFound)
	})
}

func TestSettings(t *testing.T) {
	eachBackend(t, func(t *testing.T, store restaurant.Store) {
		ctx := context.Background()
		settings := NewSettings(store)

		pub, err := settings.Public(ctx)
		require.NoError(t, err)
		assert.Equal(t, "AROMA", pub.BrandName)
		assert.Equal(t, "#f97316", pub.Colors.Primary)
		assert.Equal(t, "EUR", pub.Currency)

		_, err = settings.Update(ctx, restaurant.Settings{BrandName: "", PrimaryColor: "#000", SecondaryColor: "#fff", FontFamily: "serif", Currency: "usd"})
		assert.Error(t, err)

		saved, err := settings.Update(ctx, restaurant.Settings{BrandName: "Bistro", PrimaryColor: "#000", SecondaryColor: "#fff", FontFamily: "serif", Currency: "usd"})
		require.NoError(t, err)
		assert.Equal(t, "USD", saved.Currency)
		assert.Equal(t, "", saved.LogoURL)

		got, err := settings.Get(ctx)
		require.NoError(t, err)
		assert.Equal(t, saved, got)
	})
}

func TestAnalytics(t *testing.T) {
	eachBackend(t, func(t *testing.T, store restaurant.Store) {
		ctx := context.Background()
		orders := NewOrders(store, zap.NewNop())
		analytics := NewAnalytics(store)

		a, err := orders.Place(ctx, PlaceOrderInput{Lines: []PlaceOrderLine{{ItemID: 1, Quantity: 2}}, OrderType: "takeaway"})
		require.NoError(t, err)
		_, err = orders.Place(ctx, PlaceOrderInput{Lines: []PlaceOrderLine{{ItemID: 6, Quantity: 1}}, OrderType: "takeaway"})
		require.NoError(t, err)
		_, err = orders.Transition(ctx, a.ID, restaurant.StatusConfirmed)
		require.NoError(t, err)

		dash, err := analytics.Dashboard(ctx)
		require.NoError(t, err)
		assert.Equal(t, Dashboard{Pending: 1, Confirmed: 1, TotalSales: 17}, dash)

		top, err := analytics.TopItems(ctx)
		require.NoError(t, err)
		require.Len(t, top, 1)
		assert.Equal(t, TopItem{ItemID: 1, Name: "Classic Burger", Qty: 2, Sales: 17}, top[0])
	})
}
