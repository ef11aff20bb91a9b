package restaurant

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

const tokenAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// NewTableToken returns prefix + "-" + 8 random base36 characters read from
// crypto/rand.
func NewTableToken(prefix string) (string, error) {
	buf := make([]byte, 8)
	max := big.NewInt(int64(len(tokenAlphabet)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		buf[i] = tokenAlphabet[n.Int64()]
	}
	return prefix + "-" + string(buf), nil
}

const maxTokenAttempts = 5

// tokenFunc generates a table token for a prefix.
type tokenFunc func(prefix string) (string, error)

// CreateTableWithToken registers a table under a fresh token, retrying when
// the generated token collides with an existing one.
func CreateTableWithToken(ctx context.Context, store Store, number, prefix string) (Table, error) {
	return createTable(ctx, store, number, prefix, NewTableToken)
}

func createTable(ctx context.Context, store Store, number, prefix string, newToken tokenFunc) (Table, error) {
	var lastErr error
	for attempt := 0; attempt < maxTokenAttempts; attempt++ {
		token, err := newToken(prefix)
		if err != nil {
			return Table{}, err
		}
		table, err := store.CreateTable(ctx, number, token)
		if err == nil {
			return table, nil
		}
		if !errors.Is(err, ErrConflict) {
			return Table{}, err
		}
		if _, lookupErr := store.GetTableByToken(ctx, token); lookupErr != nil {
			// The conflict was on the number, not the token.
			return Table{}, err
		}
		lastErr = err
	}
	return Table{}, fmt.Errorf("generate unique table token: %w", lastErr)
}

type seedItem struct {
	category    string
	name        string
	description string
	price       string
	imageURL    string
	nutrition   string
	ingredients string
	allergies   string
	prepTime    string
	sortOrder   int
}

var seedCategories = []CategoryInput{
	{Key: "burgers", Name: "Burgers", Icon: "🍔", SortOrder: 1},
	{Key: "sides", Name: "Sides", Icon: "🍟", SortOrder: 2},
	{Key: "drinks", Name: "Drinks", Icon: "🥤", SortOrder: 3},
}

var seedItems = []seedItem{
	{"burgers", "Classic Burger", "Juicy grilled beef patty with cheese and lettuce", "8.5", "https://picsum.photos/id/1011/900/540", "Proteins: 25g, Carbs: 40g, Fats: 20g", "Beef, Cheese, Lettuce, Tomato, Bun", "Gluten, Dairy", "10 min", 1},
	{"burgers", "Veggie Burger", "Grilled veggie patty with avocado", "7.0", "https://picsum.photos/id/1012/900/540", "Proteins: 15g, Carbs: 35g, Fats: 10g", "Veggie patty, Avocado, Bun", "Gluten", "8 min", 2},
	{"burgers", "Chicken Burger", "Grilled chicken breast with fresh vegetables", "9.5", "https://picsum.photos/id/1015/900/540", "Proteins: 30g, Carbs: 35g, Fats: 12g", "Chicken, Lettuce, Tomato, Bun", "Gluten", "12 min", 3},
	{"sides", "French Fries", "Crispy golden fries", "3.0", "https://picsum.photos/id/1013/900/540", "Proteins: 3g, Carbs: 40g, Fats: 15g", "Potatoes, Oil, Salt", "None", "5 min", 1},
	{"sides", "Onion Rings", "Crispy battered onion rings", "4.5", "https://picsum.photos/id/1016/900/540", "Proteins: 2g, Carbs: 35g, Fats: 18g", "Onions, Flour, Oil", "Gluten", "6 min", 2},
	{"drinks", "Cola", "Chilled refreshing drink", "2.0", "https://picsum.photos/id/1014/900/540", "Proteins: 0g, Carbs: 40g, Fats: 0g", "Water, Sugar, Flavorings", "None", "1 min", 1},
	{"drinks", "Orange Juice", "Fresh squeezed orange juice", "3.5", "https://picsum.photos/id/1017/900/540", "Proteins: 1g, Carbs: 35g, Fats: 0g", "Fresh oranges", "None", "2 min", 2},
}

const seedTables = 10

// Seed installs the default menu and tables when the catalog is empty. It
// reports whether anything was written.
func Seed(ctx context.Context, store Store) (bool, error) {
	existing, err := store.ListCategories(ctx, true)
	if err != nil {
		return false, err
	}
	if len(existing) > 0 {
		return false, nil
	}

	ids := make(map[string]int64, len(seedCategories))
	for _, in := range seedCategories {
		cat, err := store.CreateCategory(ctx, in)
		if err != nil {
			return false, fmt.Errorf("seed category %s: %w", in.Key, err)
		}
		ids[in.Key] = cat.ID
	}

	for _, it := range seedItems {
		price, err := decimal.NewFromString(it.price)
		if err != nil {
			return false, err
		}
		_, err = store.CreateItem(ctx, ItemInput{
			CategoryID:  ids[it.category],
			Name:        it.name,
			Description: it.description,
			Price:       price,
			ImageURL:    it.imageURL,
			Nutrition:   it.nutrition,
			Ingredients: it.ingredients,
			Allergies:   it.allergies,
			PrepTime:    it.prepTime,
			SortOrder:   it.sortOrder,
		})
		if err != nil {
			return false, fmt.Errorf("seed item %s: %w", it.name, err)
		}
	}

	tables, err := store.ListTables(ctx)
	if err != nil {
		return false, err
	}
	if len(tables) == 0 {
		for i := 1; i <= seedTables; i++ {
			if _, err := CreateTableWithToken(ctx, store, fmt.Sprint(i), fmt.Sprintf("t%d", i)); err != nil {
				return false, fmt.Errorf("seed table %d: %w", i, err)
			}
		}
	}
	return true, nil
}

// ResetAndSeed wipes the store and installs the defaults again.
func ResetAndSeed(ctx context.Context, store Store) error {
	if err := store.Reset(ctx); err != nil {
		return err
	}
	_, err := Seed(ctx, store)
	return err
}
