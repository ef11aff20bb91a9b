package services

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"

	"aroma-order-service/internal/restaurant"

	qrcode "github.com/skip2/go-qrcode"
)

const (
	tableTokenPrefix = "t"
	qrSize           = 256
)

// TableLink is a table with the customer URL encoded into its QR code.
type TableLink struct {
	restaurant.Table
	URL string `json:"url"`
	QR  string `json:"qr"`
}

type Tables struct {
	store   restaurant.Store
	baseURL string
}

func NewTables(store restaurant.Store, baseURL string) *Tables {
	return &Tables{store: store, baseURL: strings.TrimRight(baseURL, "/")}
}

func (t *Tables) List(ctx context.Context) ([]restaurant.Table, error) {
	return t.store.ListTables(ctx)
}

// Create registers a table under a fresh, checked-unique token.
func (t *Tables) Create(ctx context.Context, number string) (restaurant.Table, error) {
	number = strings.TrimSpace(number)
	if number == "" {
		return restaurant.Table{}, restaurant.ValidationError("Table number is required")
	}
	return restaurant.CreateTableWithToken(ctx, t.store, number, tableTokenPrefix)
}

// URL is the customer entry point printed on the table.
func (t *Tables) URL(table restaurant.Table) string {
	return fmt.Sprintf("%s/?table=%s&token=%s", t.baseURL, url.QueryEscape(table.Number), url.QueryEscape(table.Token))
}

func (t *Tables) Links(ctx context.Context) ([]TableLink, error) {
	tables, err := t.store.ListTables(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]TableLink, 0, len(tables))
	for _, table := range tables {
		link := t.URL(table)
		png, err := qrcode.Encode(link, qrcode.Medium, qrSize)
		if err != nil {
			return nil, fmt.Errorf("encode qr for table %s: %w", table.Number, err)
		}
		out = append(out, TableLink{
			Table: table,
			URL:   link,
			QR:    "data:image/png;base64," + base64.StdEncoding.EncodeToString(png),
		})
	}
	return out, nil
}

// QRCode renders the PNG for one table.
func (t *Tables) QRCode(ctx context.Context, id int64) ([]byte, error) {
	table, err := t.store.GetTable(ctx, id)
	if err != nil {
		return nil, err
	}
	png, err := qrcode.Encode(t.URL(table), qrcode.Medium, qrSize)
	if err != nil {
		return nil, fmt.Errorf("encode qr for table %s: %w", table.Number, err)
	}
	return png, nil
}
