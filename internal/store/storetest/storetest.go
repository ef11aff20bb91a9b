// Package storetest is a conformance suite run against every
// restaurant.Store backend.
package storetest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"aroma-order-service/internal/restaurant"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory builds stores for the suite. Open returns an empty, migrated store
// that the suite closes itself. Reopen closes s and opens the same data again;
// leave it nil for backends without durable state.
type Factory struct {
	Open   func(t *testing.T) restaurant.Store
	Reopen func(t *testing.T, s restaurant.Store) restaurant.Store
}

func Run(t *testing.T, f Factory) {
	t.Run("Settings", func(t *testing.T) { testSettings(t, f) })
	t.Run("Categories", func(t *testing.T) { testCategories(t, f) })
	t.Run("Items", func(t *testing.T) { testItems(t, f) })
	t.Run("CategoryDeleteCascades", func(t *testing.T) { testCategoryCascade(t, f) })
	t.Run("Tables", func(t *testing.T) { testTables(t, f) })
	t.Run("Orders", func(t *testing.T) { testOrders(t, f) })
	t.Run("OrderStatusCompareAndSet", func(t *testing.T) { testOrderStatus(t, f) })
	t.Run("Analytics", func(t *testing.T) { testAnalytics(t, f) })
	t.Run("ExactMoney", func(t *testing.T) { testExactMoney(t, f) })
	t.Run("Seed", func(t *testing.T) { testSeed(t, f) })
	t.Run("Reset", func(t *testing.T) { testReset(t, f) })
	if f.Reopen != nil {
		t.Run("RoundTrip", func(t *testing.T) { testRoundTrip(t, f) })
	}
}

func open(t *testing.T, f Factory) restaurant.Store {
	t.Helper()
	s := f.Open(t)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// Money parses a decimal literal, failing the test on bad input.
func Money(t *testing.T, v string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(v)
	require.NoError(t, err)
	return d
}

// AssertMoney compares decimals by value, ignoring representation.
func AssertMoney(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.Equal(t, Money(t, want).String(), got.String())
}

func mustCategory(t *testing.T, s restaurant.Store, key string, sort int, hidden bool) restaurant.Category {
	t.Helper()
	c, err := s.CreateCategory(context.Background(), restaurant.CategoryInput{
		Key: key, Name: key, Icon: restaurant.DefaultCategoryIcon, SortOrder: sort, Hidden: hidden,
	})
	require.NoError(t, err)
	return c
}

func mustItem(t *testing.T, s restaurant.Store, categoryID int64, name, price string, sort int, hidden bool) restaurant.Item {
	t.Helper()
	it, err := s.CreateItem(context.Background(), restaurant.ItemInput{
		CategoryID: categoryID, Name: name, Price: Money(t, price), SortOrder: sort, Hidden: hidden,
	})
	require.NoError(t, err)
	return it
}

func itemNames(items []restaurant.Item) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.Name)
	}
	return out
}

func testSettings(t *testing.T, f Factory) {
	ctx := context.Background()
	s := open(t, f)

	got, err := s.GetSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, restaurant.DefaultSettings(), got)

	updated := restaurant.Settings{
		ID:             restaurant.SettingsID,
		BrandName:      "Bistro",
		LogoURL:        "https://cdn.example/logo.png",
		PrimaryColor:   "#000000",
		SecondaryColor: "#111111",
		FontFamily:     "serif",
		Currency:       "USD",
	}
	require.NoError(t, s.UpdateSettings(ctx, updated))

	got, err = s.GetSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, updated, got)
}

func testCategories(t *testing.T, f Factory) {
	ctx := context.Background()
	s := open(t, f)

	drinks := mustCategory(t, s, "drinks", 3, false)
	burgers := mustCategory(t, s, "burgers", 1, false)
	secret := mustCategory(t, s, "secret", 2, true)
	tie := mustCategory(t, s, "tie", 3, false)

	visible, err := s.ListCategories(ctx, false)
	require.NoError(t, err)
	require.Len(t, visible, 3)
	assert.Equal(t, []int64{burgers.ID, drinks.ID, tie.ID}, []int64{visible[0].ID, visible[1].ID, visible[2].ID})

	all, err := s.ListCategories(ctx, true)
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, secret.ID, all[1].ID)

	again, err := s.ListCategories(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, all, again)

	_, err = s.CreateCategory(ctx, restaurant.CategoryInput{Key: "drinks", Name: "Dup"})
	assert.ErrorIs(t, err, restaurant.ErrConflict)

	ok, err := s.UpdateCategory(ctx, secret.ID, restaurant.CategoryInput{Key: "secret", Name: "Secret menu", Icon: "🤫", SortOrder: 9})
	require.NoError(t, err)
	assert.True(t, ok)
	got, err := s.GetCategory(ctx, secret.ID)
	require.NoError(t, err)
	assert.Equal(t, "Secret menu", got.Name)
	assert.False(t, got.Hidden)

	ok, err = s.UpdateCategory(ctx, 9999, restaurant.CategoryInput{Key: "x", Name: "x"})
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = s.GetCategory(ctx, 9999)
	assert.ErrorIs(t, err, restaurant.ErrNotFound)
}

func testItems(t *testing.T, f Factory) {
	ctx := context.Background()
	s := open(t, f)

	cat := mustCategory(t, s, "burgers", 1, false)
	other := mustCategory(t, s, "sides", 2, false)

	first := mustItem(t, s, cat.ID, "Classic", "8.5", 2, false)
	assert.Equal(t, int64(1), first.ID)
	second := mustItem(t, s, cat.ID, "Veggie", "7.0", 1, false)
	assert.Equal(t, int64(2), second.ID)
	mustItem(t, s, cat.ID, "Hidden", "1", 0, true)
	mustItem(t, s, cat.ID, "Tie", "9.5", 2, false)
	mustItem(t, s, other.ID, "Fries", "3", 1, false)

	visible, err := s.ListItems(ctx, cat.ID, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"Veggie", "Classic", "Tie"}, itemNames(visible))

	all, err := s.ListItems(ctx, cat.ID, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"Hidden", "Veggie", "Classic", "Tie"}, itemNames(all))

	catalog, err := s.ListCatalog(ctx)
	require.NoError(t, err)
	require.Len(t, catalog, 5)
	assert.Equal(t, "Hidden", catalog[0].Name)
	assert.Equal(t, "burgers", catalog[0].CategoryName)
	assert.Equal(t, "Fries", catalog[4].Name)
	assert.Equal(t, "sides", catalog[4].CategoryName)

	got, err := s.GetItem(ctx, first.ID)
	require.NoError(t, err)
	AssertMoney(t, "8.5", got.Price)

	in := got.Input()
	in.Price = Money(t, "10.25")
	in.Description = "Now with bacon"
	ok, err := s.UpdateItem(ctx, first.ID, in)
	require.NoError(t, err)
	assert.True(t, ok)
	got, err = s.GetItem(ctx, first.ID)
	require.NoError(t, err)
	AssertMoney(t, "10.25", got.Price)
	assert.Equal(t, "Now with bacon", got.Description)

	ok, err = s.UpdateItem(ctx, 9999, in)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = s.DeleteItem(ctx, first.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = s.DeleteItem(ctx, first.ID)
	require.NoError(t, err)
	assert.False(t, ok)
	_, err = s.GetItem(ctx, first.ID)
	assert.ErrorIs(t, err, restaurant.ErrNotFound)

	// ids keep growing from the current max
	next := mustItem(t, s, cat.ID, "Next", "1", 5, false)
	assert.Equal(t, int64(6), next.ID)

	_, err = s.CreateItem(ctx, restaurant.ItemInput{CategoryID: 9999, Name: "Orphan", Price: Money(t, "1")})
	assert.ErrorIs(t, err, restaurant.ErrNotFound)
}

func testCategoryCascade(t *testing.T, f Factory) {
	ctx := context.Background()
	s := open(t, f)

	doomed := mustCategory(t, s, "doomed", 1, false)
	kept := mustCategory(t, s, "kept", 2, false)
	gone := mustItem(t, s, doomed.ID, "Gone", "1", 1, false)
	mustItem(t, s, kept.ID, "Kept", "1", 1, false)

	ok, err := s.DeleteCategory(ctx, doomed.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = s.GetItem(ctx, gone.ID)
	assert.ErrorIs(t, err, restaurant.ErrNotFound)

	catalog, err := s.ListCatalog(ctx)
	require.NoError(t, err)
	require.Len(t, catalog, 1)
	assert.Equal(t, "Kept", catalog[0].Name)

	ok, err = s.DeleteCategory(ctx, doomed.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func testTables(t *testing.T, f Factory) {
	ctx := context.Background()
	s := open(t, f)

	t2, err := s.CreateTable(ctx, "2", "tok-2")
	require.NoError(t, err)
	t1, err := s.CreateTable(ctx, "1", "tok-1")
	require.NoError(t, err)

	tables, err := s.ListTables(ctx)
	require.NoError(t, err)
	require.Len(t, tables, 2)
	assert.Equal(t, t2.ID, tables[0].ID)
	assert.Equal(t, t1.ID, tables[1].ID)

	_, err = s.CreateTable(ctx, "2", "tok-other")
	assert.ErrorIs(t, err, restaurant.ErrConflict)
	_, err = s.CreateTable(ctx, "3", "tok-1")
	assert.ErrorIs(t, err, restaurant.ErrConflict)

	byToken, err := s.GetTableByToken(ctx, "tok-1")
	require.NoError(t, err)
	assert.Equal(t, t1, byToken)

	byID, err := s.GetTable(ctx, t2.ID)
	require.NoError(t, err)
	assert.Equal(t, t2, byID)

	_, err = s.GetTableByToken(ctx, "nope")
	assert.ErrorIs(t, err, restaurant.ErrNotFound)

	// uniqueness of generated tokens is checked, not assumed
	seen := map[string]bool{}
	for i := 10; i < 20; i++ {
		tbl, err := restaurant.CreateTableWithToken(ctx, s, fmt.Sprint(i), "t")
		require.NoError(t, err)
		seen[tbl.Token] = true
	}
	assert.Len(t, seen, 10)
}

func newOrder(t *testing.T, createdAt time.Time, lines ...restaurant.OrderItem) restaurant.NewOrder {
	t.Helper()
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Subtotal())
	}
	return restaurant.NewOrder{
		TableNumber: "4",
		TableToken:  "tok-4",
		Type:        restaurant.OrderTypeDineIn,
		Total:       total,
		CreatedAt:   createdAt,
		Lines:       lines,
	}
}

func line(t *testing.T, itemID int64, name, price string, qty int) restaurant.OrderItem {
	return restaurant.OrderItem{ItemID: itemID, Name: name, Price: Money(t, price), Quantity: qty}
}

func testOrders(t *testing.T, f Factory) {
	ctx := context.Background()
	s := open(t, f)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	first, err := s.CreateOrder(ctx, newOrder(t, base, line(t, 1, "Classic", "8.5", 2), line(t, 2, "Veggie", "7", 1)))
	require.NoError(t, err)
	assert.NotZero(t, first.ID)
	assert.Equal(t, restaurant.StatusReceived, first.Status)
	AssertMoney(t, "24", first.Total)
	require.Len(t, first.Items, 2)
	for _, it := range first.Items {
		assert.Equal(t, first.ID, it.OrderID)
		assert.NotZero(t, it.ID)
	}

	takeaway := restaurant.NewOrder{
		Type:          restaurant.OrderTypeTakeaway,
		Total:         Money(t, "2"),
		PaymentMethod: "card",
		PaymentStatus: restaurant.PaymentStatusPending,
		CreatedAt:     base.Add(time.Minute),
		Lines:         []restaurant.OrderItem{line(t, 6, "Cola", "2", 1)},
	}
	second, err := s.CreateOrder(ctx, takeaway)
	require.NoError(t, err)
	assert.Greater(t, second.ID, first.ID)

	got, err := s.GetOrder(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "4", got.TableNumber)
	assert.Equal(t, "tok-4", got.TableToken)
	assert.Equal(t, restaurant.OrderTypeDineIn, got.Type)
	assert.True(t, base.Equal(got.CreatedAt))
	require.Len(t, got.Items, 2)
	assert.Equal(t, "Classic", got.Items[0].Name)
	AssertMoney(t, "8.5", got.Items[0].Price)
	assert.Equal(t, 2, got.Items[0].Quantity)

	got, err = s.GetOrder(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, "", got.TableToken)
	assert.Equal(t, "card", got.PaymentMethod)
	assert.Equal(t, restaurant.PaymentStatusPending, got.PaymentStatus)

	recent, err := s.ListRecentOrders(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, second.ID, recent[0].ID)
	assert.Len(t, recent[1].Items, 2)

	limited, err := s.ListRecentOrders(ctx, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, second.ID, limited[0].ID)

	_, err = s.GetOrder(ctx, 9999)
	assert.ErrorIs(t, err, restaurant.ErrNotFound)
}

func testOrderStatus(t *testing.T, f Factory) {
	ctx := context.Background()
	s := open(t, f)

	o, err := s.CreateOrder(ctx, newOrder(t, time.Now().UTC().Truncate(time.Microsecond), line(t, 1, "Classic", "8.5", 1)))
	require.NoError(t, err)

	require.NoError(t, s.UpdateOrderStatus(ctx, o.ID, restaurant.StatusReceived, restaurant.StatusConfirmed))

	err = s.UpdateOrderStatus(ctx, o.ID, restaurant.StatusReceived, restaurant.StatusCancelled)
	assert.ErrorIs(t, err, restaurant.ErrIllegalTransition)

	err = s.UpdateOrderStatus(ctx, 9999, restaurant.StatusReceived, restaurant.StatusConfirmed)
	assert.ErrorIs(t, err, restaurant.ErrNotFound)

	// two racing confirmations of the same order: exactly one wins
	o2, err := s.CreateOrder(ctx, newOrder(t, time.Now().UTC().Truncate(time.Microsecond), line(t, 1, "Classic", "8.5", 1)))
	require.NoError(t, err)
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		winners  int
		failures int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.UpdateOrderStatus(ctx, o2.ID, restaurant.StatusReceived, restaurant.StatusConfirmed)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				winners++
			} else {
				failures++
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, winners)
	assert.Equal(t, 7, failures)

	got, err := s.GetOrder(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, restaurant.StatusConfirmed, got.Status)
}

func testAnalytics(t *testing.T, f Factory) {
	ctx := context.Background()
	s := open(t, f)
	now := time.Now().UTC().Truncate(time.Microsecond)

	a, err := s.CreateOrder(ctx, newOrder(t, now, line(t, 1, "Classic", "8.5", 2), line(t, 6, "Cola", "2", 3)))
	require.NoError(t, err)
	b, err := s.CreateOrder(ctx, newOrder(t, now, line(t, 6, "Cola", "2", 1)))
	require.NoError(t, err)
	_, err = s.CreateOrder(ctx, newOrder(t, now, line(t, 2, "Veggie", "7", 5)))
	require.NoError(t, err)

	require.NoError(t, s.UpdateOrderStatus(ctx, a.ID, restaurant.StatusReceived, restaurant.StatusConfirmed))
	require.NoError(t, s.UpdateOrderStatus(ctx, b.ID, restaurant.StatusReceived, restaurant.StatusConfirmed))
	require.NoError(t, s.UpdateOrderStatus(ctx, b.ID, restaurant.StatusConfirmed, restaurant.StatusCompleted))

	received, err := s.CountOrdersByStatus(ctx, restaurant.StatusReceived)
	require.NoError(t, err)
	assert.Equal(t, 1, received)
	confirmed, err := s.CountOrdersByStatus(ctx, restaurant.StatusConfirmed)
	require.NoError(t, err)
	assert.Equal(t, 1, confirmed)

	sales, err := s.SalesTotal(ctx)
	require.NoError(t, err)
	AssertMoney(t, "25", sales)

	top, err := s.TopItems(ctx, 20)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, int64(1), top[0].ItemID)
	assert.Equal(t, int64(2), top[0].Quantity)
	AssertMoney(t, "17", top[0].Sales)
	assert.Equal(t, "Cola", top[1].Name)
	assert.Equal(t, int64(4), top[1].Quantity)
	AssertMoney(t, "8", top[1].Sales)

	top, err = s.TopItems(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, top, 1)
}

// Money must come back exactly as written and sum without float drift.
func testExactMoney(t *testing.T, f Factory) {
	ctx := context.Background()
	s := open(t, f)
	now := time.Now().UTC().Truncate(time.Microsecond)
	cat := mustCategory(t, s, "drinks", 1, false)

	for _, price := range []string{"0.1", "0.2", "99999.99", "1234567.89"} {
		it, err := s.CreateItem(ctx, restaurant.ItemInput{CategoryID: cat.ID, Name: "Item " + price, Price: Money(t, price)})
		require.NoError(t, err)
		got, err := s.GetItem(ctx, it.ID)
		require.NoError(t, err)
		AssertMoney(t, price, got.Price)
	}

	a, err := s.CreateOrder(ctx, newOrder(t, now, line(t, 1, "Water", "0.1", 1)))
	require.NoError(t, err)
	b, err := s.CreateOrder(ctx, newOrder(t, now, line(t, 1, "Water", "0.2", 1)))
	require.NoError(t, err)
	require.NoError(t, s.UpdateOrderStatus(ctx, a.ID, restaurant.StatusReceived, restaurant.StatusConfirmed))
	require.NoError(t, s.UpdateOrderStatus(ctx, b.ID, restaurant.StatusReceived, restaurant.StatusConfirmed))

	got, err := s.GetOrder(ctx, a.ID)
	require.NoError(t, err)
	AssertMoney(t, "0.1", got.Total)
	AssertMoney(t, "0.1", got.Items[0].Price)

	sales, err := s.SalesTotal(ctx)
	require.NoError(t, err)
	AssertMoney(t, "0.3", sales)

	top, err := s.TopItems(ctx, 20)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, int64(2), top[0].Quantity)
	AssertMoney(t, "0.3", top[0].Sales)
}

func testSeed(t *testing.T, f Factory) {
	ctx := context.Background()
	s := open(t, f)

	wrote, err := restaurant.Seed(ctx, s)
	require.NoError(t, err)
	assert.True(t, wrote)

	cats, err := s.ListCategories(ctx, false)
	require.NoError(t, err)
	require.Len(t, cats, 3)
	assert.Equal(t, "burgers", cats[0].Key)

	catalog, err := s.ListCatalog(ctx)
	require.NoError(t, err)
	assert.Len(t, catalog, 7)

	tables, err := s.ListTables(ctx)
	require.NoError(t, err)
	require.Len(t, tables, 10)
	tokens := map[string]bool{}
	for _, tbl := range tables {
		tokens[tbl.Token] = true
	}
	assert.Len(t, tokens, 10)
	assert.Equal(t, "1", tables[0].Number)
	assert.Regexp(t, `^t1-[0-9a-z]{8}$`, tables[0].Token)

	wrote, err = restaurant.Seed(ctx, s)
	require.NoError(t, err)
	assert.False(t, wrote)
}

func testReset(t *testing.T, f Factory) {
	ctx := context.Background()
	s := open(t, f)

	_, err := restaurant.Seed(ctx, s)
	require.NoError(t, err)
	_, err = s.CreateOrder(ctx, newOrder(t, time.Now().UTC().Truncate(time.Microsecond), line(t, 1, "Classic", "8.5", 1)))
	require.NoError(t, err)
	require.NoError(t, s.UpdateSettings(ctx, restaurant.Settings{ID: 1, BrandName: "X", PrimaryColor: "#1", SecondaryColor: "#2", FontFamily: "f", Currency: "USD"}))

	require.NoError(t, restaurant.ResetAndSeed(ctx, s))

	settings, err := s.GetSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, restaurant.DefaultSettings(), settings)
	orders, err := s.ListRecentOrders(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, orders)
	catalog, err := s.ListCatalog(ctx)
	require.NoError(t, err)
	assert.Len(t, catalog, 7)
	assert.Equal(t, int64(1), catalog[0].ID)
}

func testRoundTrip(t *testing.T, f Factory) {
	ctx := context.Background()
	s := f.Open(t)

	_, err := restaurant.Seed(ctx, s)
	require.NoError(t, err)
	hidden := mustCategory(t, s, "hidden", 4, true)
	mustItem(t, s, hidden.ID, "Off menu", "12.75", 1, true)
	ok, err := s.DeleteItem(ctx, 3)
	require.NoError(t, err)
	require.True(t, ok)
	settings := restaurant.DefaultSettings()
	settings.BrandName = "Round Trip"
	require.NoError(t, s.UpdateSettings(ctx, settings))
	created := time.Date(2026, 5, 4, 10, 30, 15, 123456000, time.UTC)
	order, err := s.CreateOrder(ctx, newOrder(t, created, line(t, 1, "Classic Burger", "8.5", 2), line(t, 2, "Veggie Burger", "7.0", 1)))
	require.NoError(t, err)
	require.NoError(t, s.UpdateOrderStatus(ctx, order.ID, restaurant.StatusReceived, restaurant.StatusConfirmed))

	wantCats, err := s.ListCategories(ctx, true)
	require.NoError(t, err)
	wantCatalog, err := s.ListCatalog(ctx)
	require.NoError(t, err)
	wantTables, err := s.ListTables(ctx)
	require.NoError(t, err)
	wantOrders, err := s.ListRecentOrders(ctx, 10)
	require.NoError(t, err)

	s = f.Reopen(t, s)
	t.Cleanup(func() { _ = s.Close() })

	gotSettings, err := s.GetSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, settings, gotSettings)

	gotCats, err := s.ListCategories(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, wantCats, gotCats)

	gotCatalog, err := s.ListCatalog(ctx)
	require.NoError(t, err)
	require.Len(t, gotCatalog, len(wantCatalog))
	for i := range wantCatalog {
		want, got := wantCatalog[i], gotCatalog[i]
		AssertMoney(t, want.Price.String(), got.Price)
		want.Price, got.Price = decimal.Zero, decimal.Zero
		assert.Equal(t, want, got)
	}

	gotTables, err := s.ListTables(ctx)
	require.NoError(t, err)
	assert.Equal(t, wantTables, gotTables)

	gotOrders, err := s.ListRecentOrders(ctx, 10)
	require.NoError(t, err)
	require.Len(t, gotOrders, len(wantOrders))
	for i := range wantOrders {
		want, got := wantOrders[i], gotOrders[i]
		assert.Equal(t, want.ID, got.ID)
		assert.Equal(t, want.Status, got.Status)
		assert.True(t, want.CreatedAt.Equal(got.CreatedAt), "created_at %s != %s", want.CreatedAt, got.CreatedAt)
		AssertMoney(t, want.Total.String(), got.Total)
		require.Len(t, got.Items, len(want.Items))
		for j := range want.Items {
			assert.Equal(t, want.Items[j].ID, got.Items[j].ID)
			assert.Equal(t, want.Items[j].Name, got.Items[j].Name)
			assert.Equal(t, want.Items[j].Quantity, got.Items[j].Quantity)
			AssertMoney(t, want.Items[j].Price.String(), got.Items[j].Price)
		}
	}

	// ids continue after reopen
	next := mustItem(t, s, hidden.ID, "After reopen", "1", 2, false)
	assert.Equal(t, int64(9), next.ID)
}
