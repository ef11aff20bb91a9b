package services

import (
	"context"

	"aroma-order-service/internal/restaurant"
)

type Dashboard struct {
	Pending    int     `json:"pending"`
	Confirmed  int     `json:"confirmed"`
	TotalSales float64 `json:"totalSales"`
}

type TopItem struct {
	ItemID int64   `json:"item_id"`
	Name   string  `json:"name"`
	Qty    int64   `json:"qty"`
	Sales  float64 `json:"sales"`
}

type Analytics struct {
	store restaurant.Store
}

func NewAnalytics(store restaurant.Store) *Analytics {
	return &Analytics{store: store}
}

// Dashboard counts received and confirmed orders and sums revenue from
// confirmed and completed ones.
func (a *Analytics) Dashboard(ctx context.Context) (Dashboard, error) {
	pending, err := a.store.CountOrdersByStatus(ctx, restaurant.StatusReceived)
	if err != nil {
		return Dashboard{}, err
	}
	confirmed, err := a.store.CountOrdersByStatus(ctx, restaurant.StatusConfirmed)
	if err != nil {
		return Dashboard{}, err
	}
	sales, err := a.store.SalesTotal(ctx)
	if err != nil {
		return Dashboard{}, err
	}
	return Dashboard{Pending: pending, Confirmed: confirmed, TotalSales: sales.Round(2).InexactFloat64()}, nil
}

func (a *Analytics) TopItems(ctx context.Context) ([]TopItem, error) {
	rows, err := a.store.TopItems(ctx, restaurant.DefaultTopItems)
	if err != nil {
		return nil, err
	}
	out := make([]TopItem, 0, len(rows))
	for _, r := range rows {
		out = append(out, TopItem{ItemID: r.ItemID, Name: r.Name, Qty: r.Quantity, Sales: r.Sales.Round(2).InexactFloat64()})
	}
	return out, nil
}
