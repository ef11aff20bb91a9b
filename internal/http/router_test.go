package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"aroma-order-service/internal/config"
	"aroma-order-service/internal/http/handlers"
	"aroma-order-service/internal/restaurant"
	"aroma-order-service/internal/services"
	"aroma-order-service/internal/store/sqlite"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeIntents struct{}

func (fakeIntents) CreateIntent(_ context.Context, amount decimal.Decimal, currency string) (string, error) {
	return "secret_" + amount.StringFixed(2) + "_" + currency, nil
}

type memUploads struct {
	mu      sync.Mutex
	objects map[string][]byte
	deleted []string
}

func (m *memUploads) PutObject(_ context.Context, key string, body []byte, _ string, _ string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = body
	return "https://cdn.example/" + key, nil
}

func (m *memUploads) DeleteURL(_ context.Context, raw string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, raw)
	return nil
}

type testAPI struct {
	handler http.Handler
	store   restaurant.Store
	uploads *memUploads
	cfg     config.Config
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	ctx := context.Background()
	store, err := sqlite.Open(ctx, filepath.Join(t.TempDir(), "data.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	_, err = restaurant.Seed(ctx, store)
	require.NoError(t, err)

	cfg := config.Config{
		Env:                      "test",
		AdminUser:                "admin",
		AdminPass:                "pw",
		CorsAllowedOrigins:       []string{"*"},
		OrderTrackingTokenSecret: "tracking-secret",
		OrderTrackingTokenTTL:    time.Hour,
		MaxFileSizeBytes:         1 << 20,
	}
	log := zap.NewNop()
	uploads := &memUploads{objects: map[string][]byte{}}
	h := &handlers.Handler{
		Catalog:   services.NewCatalog(store, log),
		Orders:    services.NewOrders(store, log),
		Tables:    services.NewTables(store, "https://aroma.example"),
		Settings:  services.NewSettings(store),
		Analytics: services.NewAnalytics(store),
		Payments:  fakeIntents{},
		Uploads:   uploads,
		Logger:    log,
		Config:    cfg,
	}
	return &testAPI{handler: NewRouter(h, nil, log, cfg), store: store, uploads: uploads, cfg: cfg}
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Message string          `json:"message"`
}

func (a *testAPI) do(t *testing.T, method, path string, body io.Reader, contentType string, admin bool) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if admin {
		req.SetBasicAuth("admin", "pw")
	}
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

func (a *testAPI) call(t *testing.T, method, path string, payload any, admin bool) (int, envelope) {
	t.Helper()
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}
	rec := a.do(t, method, path, body, "application/json", admin)
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec.Code, env
}

func TestHealth(t *testing.T) {
	api := newTestAPI(t)
	rec := api.do(t, http.MethodGet, "/health", nil, "", false)
	assert.Equal(t, "ok", rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))

	code, env := api.call(t, http.MethodGet, "/api/health", nil, false)
	assert.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"ok":true}`, string(env.Data))
}

func TestMenuAndSettings(t *testing.T) {
	api := newTestAPI(t)

	code, env := api.call(t, http.MethodGet, "/api/menu", nil, false)
	require.Equal(t, http.StatusOK, code)
	var menu struct {
		Categories []struct {
			Key string `json:"key"`
		} `json:"categories"`
		Menu map[string][]struct {
			ID    int64   `json:"id"`
			Price float64 `json:"price"`
			Name  struct {
				En string `json:"en"`
			} `json:"name"`
		} `json:"menu"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &menu))
	require.Len(t, menu.Categories, 3)
	assert.Equal(t, "burgers", menu.Categories[0].Key)
	assert.Equal(t, "Classic Burger", menu.Menu["burgers"][0].Name.En)
	assert.Equal(t, 8.5, menu.Menu["burgers"][0].Price)

	code, env = api.call(t, http.MethodGet, "/api/settings", nil, false)
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"brandName":"AROMA","logoUrl":"","colors":{"primary":"#f97316","secondary":"#ffffff"},"backgroundUrl":"","fontFamily":"system-ui, sans-serif","currency":"EUR"}`, string(env.Data))
}

type created struct {
	OrderID       int64   `json:"orderId"`
	Total         float64 `json:"total"`
	TrackingToken string  `json:"trackingToken"`
}

func placeOrder(t *testing.T, api *testAPI) created {
	t.Helper()
	code, env := api.call(t, http.MethodPost, "/api/orders", map[string]any{
		"items":     []map[string]any{{"id": 1, "qty": 2}, {"id": "2"}},
		"orderType": "dine-in",
	}, false)
	require.Equal(t, http.StatusOK, code, env.Message)
	var out created
	require.NoError(t, json.Unmarshal(env.Data, &out))
	return out
}

func TestOrderLifecycle(t *testing.T) {
	api := newTestAPI(t)
	order := placeOrder(t, api)
	assert.Equal(t, 24.0, order.Total)
	require.NotEmpty(t, order.TrackingToken)

	path := "/api/orders/" + itoa(order.OrderID)

	code, env := api.call(t, http.MethodGet, path, nil, false)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.False(t, env.Success)

	code, env = api.call(t, http.MethodGet, path+"?token="+order.TrackingToken, nil, false)
	require.Equal(t, http.StatusOK, code)
	var detail struct {
		Status string `json:"status"`
		Items  []struct {
			Name     string `json:"name"`
			Quantity int    `json:"quantity"`
		} `json:"items"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &detail))
	assert.Equal(t, "received", detail.Status)
	require.Len(t, detail.Items, 2)
	assert.Equal(t, 1, detail.Items[1].Quantity)

	code, _ = api.call(t, http.MethodPost, path+"/complete", nil, false)
	assert.Equal(t, http.StatusConflict, code)
	code, env = api.call(t, http.MethodPost, path+"/confirm", nil, false)
	assert.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"ok":true}`, string(env.Data))
	code, _ = api.call(t, http.MethodPost, path+"/complete", nil, false)
	assert.Equal(t, http.StatusOK, code)
	code, env = api.call(t, http.MethodPost, path+"/cancel", nil, false)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "INVALID_TRANSITION", env.Error)

	code, env = api.call(t, http.MethodPost, "/api/orders/9999/confirm", nil, false)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "NOT_FOUND", env.Error)

	code, env = api.call(t, http.MethodGet, "/api/analytics/top-items", nil, false)
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `[{"item_id":1,"name":"Classic Burger","qty":2,"sales":17},{"item_id":2,"name":"Veggie Burger","qty":1,"sales":7}]`, string(env.Data))
}

func TestOrderCreateErrors(t *testing.T) {
	api := newTestAPI(t)

	code, env := api.call(t, http.MethodPost, "/api/orders", map[string]any{
		"items":     []map[string]any{{"id": 1, "qty": 1}, {"id": 999, "qty": 1}},
		"orderType": "takeaway",
	}, false)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "INVALID_ITEM", env.Error)
	assert.Equal(t, "Invalid item 999", env.Message)

	orders, err := api.store.ListRecentOrders(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, orders)

	code, env = api.call(t, http.MethodPost, "/api/orders", map[string]any{"items": []any{}, "orderType": "takeaway"}, false)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "No items", env.Message)

	rec := api.do(t, http.MethodPost, "/api/orders", strings.NewReader("{"), "application/json", false)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	for _, line := range []map[string]any{
		{"id": 1.9, "qty": 1},
		{"id": "1.9", "qty": 1},
		{"id": 1, "qty": 2.5},
		{"id": 1, "qty": 1e300},
	} {
		code, env = api.call(t, http.MethodPost, "/api/orders", map[string]any{"items": []any{line}, "orderType": "takeaway"}, false)
		assert.Equal(t, http.StatusBadRequest, code, "line %v", line)
		assert.Equal(t, "VALIDATION_ERROR", env.Error, "line %v", line)
	}

	code, env = api.call(t, http.MethodPost, "/api/orders", map[string]any{
		"items":     []map[string]any{{"id": 1, "qty": 1_000_000}},
		"orderType": "takeaway",
	}, false)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, env.Message, "Quantity")

	orders, err = api.store.ListRecentOrders(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestOrderCreateAcceptsWholeNumberStrings(t *testing.T) {
	api := newTestAPI(t)
	code, env := api.call(t, http.MethodPost, "/api/orders", map[string]any{
		"items":     []map[string]any{{"id": "1", "qty": "2"}, {"id": 1.0, "qty": 1}},
		"orderType": "takeaway",
	}, false)
	require.Equal(t, http.StatusOK, code, env.Message)
}

func TestStripeIntent(t *testing.T) {
	api := newTestAPI(t)
	code, env := api.call(t, http.MethodPost, "/api/payments/stripe-intent", map[string]any{"amount": 24, "currency": "eur"}, false)
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"clientSecret":"secret_24.00_eur"}`, string(env.Data))
}

func TestAdminRequiresAuth(t *testing.T) {
	api := newTestAPI(t)
	rec := api.do(t, http.MethodGet, "/admin", nil, "", false)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Header().Get("WWW-Authenticate"), "Basic")

	rec = api.do(t, http.MethodGet, "/admin/login", nil, "", false)
	assert.Equal(t, http.StatusOK, rec.Code)

	code, env := api.call(t, http.MethodGet, "/admin", nil, true)
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"pending":0,"confirmed":0,"totalSales":0}`, string(env.Data))
}

func TestAdminItemsWithForms(t *testing.T) {
	api := newTestAPI(t)

	form := url.Values{
		"category_id": {"2"},
		"name":        {"Sweet Potato Fries"},
		"price":       {"4.25"},
		"hidden":      {"on"},
		"sort_order":  {"3"},
	}
	rec := api.do(t, http.MethodPost, "/admin/items/create", strings.NewReader(form.Encode()), "application/x-www-form-urlencoded", true)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	var item restaurant.Item
	require.NoError(t, json.Unmarshal(env.Data, &item))
	assert.Equal(t, int64(8), item.ID)
	assert.True(t, item.Hidden)
	assert.True(t, item.Price.Equal(decimal.RequireFromString("4.25")))

	code, env := api.call(t, http.MethodPost, "/admin/items/8/update", map[string]any{
		"category_id": 2, "name": "Sweet Potato Fries", "price": 4.5, "hidden": false,
	}, true)
	require.Equal(t, http.StatusOK, code, env.Message)

	code, _ = api.call(t, http.MethodPost, "/admin/items/create", map[string]any{"category_id": 99, "name": "X", "price": 1}, true)
	assert.Equal(t, http.StatusBadRequest, code)

	code, env = api.call(t, http.MethodGet, "/admin/items", nil, true)
	require.Equal(t, http.StatusOK, code)
	var catalog struct {
		Categories []restaurant.Category `json:"categories"`
		Items      []struct {
			ID           int64  `json:"id"`
			CategoryName string `json:"category_name"`
		} `json:"items"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &catalog))
	assert.Len(t, catalog.Categories, 3)
	assert.Len(t, catalog.Items, 8)

	code, _ = api.call(t, http.MethodPost, "/admin/items/8/delete", nil, true)
	assert.Equal(t, http.StatusOK, code)
	code, env = api.call(t, http.MethodPost, "/admin/items/8/delete", nil, true)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "NOT_FOUND", env.Error)
}

func TestAdminCategories(t *testing.T) {
	api := newTestAPI(t)

	code, env := api.call(t, http.MethodPost, "/admin/categories", map[string]any{"key": "desserts", "name": "Desserts", "sort_order": 4}, true)
	require.Equal(t, http.StatusCreated, code, env.Message)
	code, env = api.call(t, http.MethodPost, "/admin/categories", map[string]any{"key": "desserts", "name": "Again"}, true)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "CONFLICT", env.Error)

	code, _ = api.call(t, http.MethodPost, "/admin/categories/1/delete", nil, true)
	require.Equal(t, http.StatusOK, code)
	_, err := api.store.GetItem(context.Background(), 1)
	assert.ErrorIs(t, err, restaurant.ErrNotFound)

	code, env = api.call(t, http.MethodGet, "/admin/categories", nil, true)
	require.Equal(t, http.StatusOK, code)
	var cats []restaurant.Category
	require.NoError(t, json.Unmarshal(env.Data, &cats))
	assert.Len(t, cats, 3)
}

func TestAdminSettings(t *testing.T) {
	api := newTestAPI(t)
	form := url.Values{
		"brand_name":      {"Bistro"},
		"primary_color":   {"#000000"},
		"secondary_color": {"#ffffff"},
		"font_family":     {"serif"},
		"currency":        {"usd"},
	}
	rec := api.do(t, http.MethodPost, "/admin/settings", strings.NewReader(form.Encode()), "application/x-www-form-urlencoded", true)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	code, env := api.call(t, http.MethodGet, "/api/settings", nil, false)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Data), `"brandName":"Bistro"`)
	assert.Contains(t, string(env.Data), `"currency":"USD"`)

	code, _ = api.call(t, http.MethodPost, "/admin/settings", map[string]any{"brand_name": ""}, true)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestAdminTables(t *testing.T) {
	api := newTestAPI(t)

	code, env := api.call(t, http.MethodPost, "/admin/tables/create", map[string]any{"number": 11}, true)
	require.Equal(t, http.StatusCreated, code, env.Message)
	var table struct {
		ID    int64  `json:"id"`
		Token string `json:"token"`
		URL   string `json:"url"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &table))
	assert.Regexp(t, `^t-[0-9A-Za-z]{8}$`, table.Token)
	assert.Equal(t, "https://aroma.example/?table=11&token="+table.Token, table.URL)

	code, env = api.call(t, http.MethodGet, "/admin/tables", nil, true)
	require.Equal(t, http.StatusOK, code)
	var links []struct {
		Token string `json:"token"`
		QR    string `json:"qr"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &links))
	assert.Len(t, links, 11)
	assert.True(t, strings.HasPrefix(links[0].QR, "data:image/png;base64,"))

	rec := api.do(t, http.MethodGet, "/admin/tables/"+itoa(table.ID)+"/qr.png", nil, "", true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))

	// ordering with the new table's token stamps its number
	code, env = api.call(t, http.MethodPost, "/api/orders", map[string]any{
		"items": []map[string]any{{"id": 6, "qty": 1}}, "orderType": "dine-in", "tableToken": table.Token,
	}, false)
	require.Equal(t, http.StatusOK, code, env.Message)
	orders, err := api.store.ListRecentOrders(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "11", orders[0].TableNumber)
}

func TestAdminOrders(t *testing.T) {
	api := newTestAPI(t)
	first := placeOrder(t, api)
	placeOrder(t, api)

	code, env := api.call(t, http.MethodPost, "/admin/orders/"+itoa(first.OrderID)+"/status", map[string]any{"status": "confirmed"}, true)
	require.Equal(t, http.StatusOK, code, env.Message)
	code, env = api.call(t, http.MethodPost, "/admin/orders/"+itoa(first.OrderID)+"/status", map[string]any{"status": "shipped"}, true)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "VALIDATION_ERROR", env.Error)

	code, env = api.call(t, http.MethodGet, "/admin/orders", nil, true)
	require.Equal(t, http.StatusOK, code)
	var orders []struct {
		ID     int64  `json:"id"`
		Status string `json:"status"`
		Items  []any  `json:"items"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &orders))
	require.Len(t, orders, 2)
	assert.Equal(t, first.OrderID+1, orders[0].ID)
	assert.Equal(t, "confirmed", orders[1].Status)
	assert.Len(t, orders[1].Items, 2)

	rec := api.do(t, http.MethodGet, "/admin/orders/"+itoa(first.OrderID)+"/receipt", nil, "", true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF-")))
}

func TestAdminItemImage(t *testing.T) {
	api := newTestAPI(t)

	var img bytes.Buffer
	require.NoError(t, png.Encode(&img, image.NewRGBA(image.Rect(0, 0, 64, 48))))
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "burger.png")
	require.NoError(t, err)
	_, err = part.Write(img.Bytes())
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	rec := api.do(t, http.MethodPost, "/admin/items/1/image", &body, mw.FormDataContentType(), true)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	var out struct {
		Item     restaurant.Item `json:"item"`
		ThumbURL string          `json:"thumbUrl"`
		Warnings []string        `json:"warnings"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &out))
	assert.True(t, strings.HasPrefix(out.Item.ImageURL, "https://cdn.example/items/1/full-"))
	assert.True(t, strings.HasPrefix(out.ThumbURL, "https://cdn.example/items/1/thumb-"))
	assert.Len(t, out.Warnings, 1)
	assert.Len(t, api.uploads.objects, 2)
	assert.Equal(t, []string{"https://picsum.photos/id/1011/900/540"}, api.uploads.deleted)

	stored, err := api.store.GetItem(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, out.Item.ImageURL, stored.ImageURL)

	rec = api.do(t, http.MethodPost, "/admin/items/1/image", strings.NewReader(""), "multipart/form-data; boundary=x", true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func itoa(v int64) string {
	return strconv.FormatInt(v, 10)
}
