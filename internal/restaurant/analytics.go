package restaurant

import (
	"sort"

	"github.com/shopspring/decimal"
)

type topItemKey struct {
	itemID int64
	name   string
}

// TopItemTally accumulates sold order lines, grouped by item id and the name
// snapshotted on the line, in exact decimal arithmetic.
type TopItemTally struct {
	byKey map[topItemKey]*TopItem
}

func (t *TopItemTally) Add(line OrderItem) {
	if t.byKey == nil {
		t.byKey = make(map[topItemKey]*TopItem)
	}
	k := topItemKey{line.ItemID, line.Name}
	ti, ok := t.byKey[k]
	if !ok {
		ti = &TopItem{ItemID: line.ItemID, Name: line.Name, Sales: decimal.Zero}
		t.byKey[k] = ti
	}
	ti.Quantity += int64(line.Quantity)
	ti.Sales = ti.Sales.Add(line.Subtotal())
}

// Ranked returns at most limit entries by sales descending, then item id.
func (t *TopItemTally) Ranked(limit int) []TopItem {
	if limit <= 0 {
		limit = DefaultTopItems
	}
	out := make([]TopItem, 0, len(t.byKey))
	for _, ti := range t.byKey {
		out = append(out, *ti)
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Sales.Cmp(out[j].Sales); c != 0 {
			return c > 0
		}
		if out[i].ItemID != out[j].ItemID {
			return out[i].ItemID < out[j].ItemID
		}
		return out[i].Name < out[j].Name
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
