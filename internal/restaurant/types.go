// Package restaurant holds the domain model shared by every storage backend:
// branding settings, the menu catalog, tables and the order ledger.
package restaurant

import (
	"time"

	"github.com/shopspring/decimal"
)

const SettingsID int64 = 1

type Settings struct {
	ID             int64  `json:"id"`
	BrandName      string `json:"brand_name"`
	LogoURL        string `json:"logo_url"`
	PrimaryColor   string `json:"primary_color"`
	SecondaryColor string `json:"secondary_color"`
	BackgroundURL  string `json:"background_url"`
	FontFamily     string `json:"font_family"`
	Currency       string `json:"currency"`
}

func DefaultSettings() Settings {
	return Settings{
		ID:             SettingsID,
		BrandName:      "AROMA",
		PrimaryColor:   "#f97316",
		SecondaryColor: "#ffffff",
		FontFamily:     "system-ui, sans-serif",
		Currency:       "EUR",
	}
}

const DefaultCategoryIcon = "🍔"

type Category struct {
	ID        int64  `json:"id"`
	Key       string `json:"key"`
	Name      string `json:"name"`
	Icon      string `json:"icon"`
	SortOrder int    `json:"sort_order"`
	Hidden    bool   `json:"hidden"`
}

type CategoryInput struct {
	Key       string
	Name      string
	Icon      string
	SortOrder int
	Hidden    bool
}

type Item struct {
	ID          int64           `json:"id"`
	CategoryID  int64           `json:"category_id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	ImageURL    string          `json:"image_url"`
	VideoURL    string          `json:"video_url"`
	Nutrition   string          `json:"nutrition"`
	Ingredients string          `json:"ingredients"`
	Allergies   string          `json:"allergies"`
	PrepTime    string          `json:"prep_time"`
	Hidden      bool            `json:"hidden"`
	SortOrder   int             `json:"sort_order"`
}

type ItemInput struct {
	CategoryID  int64
	Name        string
	Description string
	Price       decimal.Decimal
	ImageURL    string
	VideoURL    string
	Nutrition   string
	Ingredients string
	Allergies   string
	PrepTime    string
	Hidden      bool
	SortOrder   int
}

// Apply copies the input onto an item, keeping its id.
func (in ItemInput) Apply(item Item) Item {
	item.CategoryID = in.CategoryID
	item.Name = in.Name
	item.Description = in.Description
	item.Price = in.Price
	item.ImageURL = in.ImageURL
	item.VideoURL = in.VideoURL
	item.Nutrition = in.Nutrition
	item.Ingredients = in.Ingredients
	item.Allergies = in.Allergies
	item.PrepTime = in.PrepTime
	item.Hidden = in.Hidden
	item.SortOrder = in.SortOrder
	return item
}

// Input returns the editable fields of an item.
func (it Item) Input() ItemInput {
	return ItemInput{
		CategoryID:  it.CategoryID,
		Name:        it.Name,
		Description: it.Description,
		Price:       it.Price,
		ImageURL:    it.ImageURL,
		VideoURL:    it.VideoURL,
		Nutrition:   it.Nutrition,
		Ingredients: it.Ingredients,
		Allergies:   it.Allergies,
		PrepTime:    it.PrepTime,
		Hidden:      it.Hidden,
		SortOrder:   it.SortOrder,
	}
}

// CatalogItem is an item joined with the name of its category, used by the
// admin listing.
type CatalogItem struct {
	Item
	CategoryName string `json:"category_name"`
}

type Table struct {
	ID     int64  `json:"id"`
	Number string `json:"number"`
	Token  string `json:"token"`
}

type OrderType string

const (
	OrderTypeDineIn   OrderType = "dine-in"
	OrderTypeTakeaway OrderType = "takeaway"
)

func (t OrderType) Valid() bool {
	return t == OrderTypeDineIn || t == OrderTypeTakeaway
}

const PaymentStatusPending = "pending"

type Order struct {
	ID            int64           `json:"id"`
	TableNumber   string          `json:"table_number"`
	TableToken    string          `json:"table_token"`
	Type          OrderType       `json:"order_type"`
	Status        Status          `json:"status"`
	Total         decimal.Decimal `json:"total"`
	PaymentMethod string          `json:"payment_method"`
	PaymentStatus string          `json:"payment_status"`
	CreatedAt     time.Time       `json:"created_at"`
	Items         []OrderItem     `json:"items,omitempty"`
}

type OrderItem struct {
	ID       int64           `json:"id"`
	OrderID  int64           `json:"order_id"`
	ItemID   int64           `json:"item_id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
}

// Subtotal is the line amount at the snapshotted price.
func (oi OrderItem) Subtotal() decimal.Decimal {
	return oi.Price.Mul(decimal.NewFromInt(int64(oi.Quantity)))
}

// NewOrder is a fully priced order ready to be written. Lines carry their
// snapshot name and price; ids are assigned by the store.
type NewOrder struct {
	TableNumber   string
	TableToken    string
	Type          OrderType
	Total         decimal.Decimal
	PaymentMethod string
	PaymentStatus string
	CreatedAt     time.Time
	Lines         []OrderItem
}

type TopItem struct {
	ItemID   int64           `json:"item_id"`
	Name     string          `json:"name"`
	Quantity int64           `json:"qty"`
	Sales    decimal.Decimal `json:"sales"`
}

// DefaultRecentOrders bounds the admin order listing.
const DefaultRecentOrders = 200

// PriceScale is the number of decimal places a menu price may carry.
const PriceScale = 2

// MaxItemPrice bounds a single menu price.
var MaxItemPrice = decimal.NewFromInt(100_000)

// MaxLineQuantity bounds the quantity of a single order line.
const MaxLineQuantity = 999

// DefaultTopItems bounds the best-sellers report.
const DefaultTopItems = 20
