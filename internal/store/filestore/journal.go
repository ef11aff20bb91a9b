package filestore

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"aroma-order-service/internal/restaurant"
)

const (
	opPut    = "put"
	opDelete = "delete"
)

const (
	collSettings   = "settings"
	collCategories = "categories"
	collItems      = "items"
	collTables     = "tables"
	collOrders     = "orders"
	collOrderItems = "order_items"
)

// change is one row-level put or delete. Applying the same change twice
// leaves the state unchanged.
type change struct {
	Op         string          `json:"op"`
	Collection string          `json:"collection"`
	ID         int64           `json:"id"`
	Row        json.RawMessage `json:"row,omitempty"`
}

// record is one journal line: the changes of a single mutation.
type record struct {
	Seq     int64    `json:"seq"`
	Changes []change `json:"changes"`
}

func put(collection string, id int64, row any) (change, error) {
	raw, err := json.Marshal(row)
	if err != nil {
		return change{}, fmt.Errorf("encode %s %d: %w", collection, id, err)
	}
	return change{Op: opPut, Collection: collection, ID: id, Row: raw}, nil
}

func del(collection string, id int64) change {
	return change{Op: opDelete, Collection: collection, ID: id}
}

// snapshot is the on-disk tree written at compaction.
type snapshot struct {
	Seq        int64                  `json:"seq"`
	Settings   restaurant.Settings    `json:"settings"`
	Categories []restaurant.Category  `json:"categories"`
	Items      []restaurant.Item      `json:"items"`
	Tables     []restaurant.Table     `json:"tables"`
	Orders     []restaurant.Order     `json:"orders"`
	OrderItems []restaurant.OrderItem `json:"order_items"`
}

// state is the in-memory copy of every collection, keyed by id.
type state struct {
	settings   restaurant.Settings
	categories map[int64]restaurant.Category
	items      map[int64]restaurant.Item
	tables     map[int64]restaurant.Table
	orders     map[int64]restaurant.Order
	orderItems map[int64]restaurant.OrderItem
}

func emptyState() *state {
	return &state{
		settings:   restaurant.DefaultSettings(),
		categories: make(map[int64]restaurant.Category),
		items:      make(map[int64]restaurant.Item),
		tables:     make(map[int64]restaurant.Table),
		orders:     make(map[int64]restaurant.Order),
		orderItems: make(map[int64]restaurant.OrderItem),
	}
}

func fromSnapshot(snap snapshot) *state {
	st := emptyState()
	if snap.Settings.ID != 0 {
		st.settings = snap.Settings
	}
	for _, c := range snap.Categories {
		st.categories[c.ID] = c
	}
	for _, it := range snap.Items {
		st.items[it.ID] = it
	}
	for _, t := range snap.Tables {
		st.tables[t.ID] = t
	}
	for _, o := range snap.Orders {
		o.Items = nil
		st.orders[o.ID] = o
	}
	for _, l := range snap.OrderItems {
		st.orderItems[l.ID] = l
	}
	return st
}

func (st *state) snapshot(seq int64) snapshot {
	snap := snapshot{
		Seq:        seq,
		Settings:   st.settings,
		Categories: make([]restaurant.Category, 0, len(st.categories)),
		Items:      make([]restaurant.Item, 0, len(st.items)),
		Tables:     make([]restaurant.Table, 0, len(st.tables)),
		Orders:     make([]restaurant.Order, 0, len(st.orders)),
		OrderItems: make([]restaurant.OrderItem, 0, len(st.orderItems)),
	}
	for _, c := range st.categories {
		snap.Categories = append(snap.Categories, c)
	}
	for _, it := range st.items {
		snap.Items = append(snap.Items, it)
	}
	for _, t := range st.tables {
		snap.Tables = append(snap.Tables, t)
	}
	for _, o := range st.orders {
		snap.Orders = append(snap.Orders, o)
	}
	for _, l := range st.orderItems {
		snap.OrderItems = append(snap.OrderItems, l)
	}
	sort.Slice(snap.Categories, func(i, j int) bool { return snap.Categories[i].ID < snap.Categories[j].ID })
	sort.Slice(snap.Items, func(i, j int) bool { return snap.Items[i].ID < snap.Items[j].ID })
	sort.Slice(snap.Tables, func(i, j int) bool { return snap.Tables[i].ID < snap.Tables[j].ID })
	sort.Slice(snap.Orders, func(i, j int) bool { return snap.Orders[i].ID < snap.Orders[j].ID })
	sort.Slice(snap.OrderItems, func(i, j int) bool { return snap.OrderItems[i].ID < snap.OrderItems[j].ID })
	return snap
}

func (st *state) apply(c change) error {
	if c.Op != opPut && c.Op != opDelete {
		return fmt.Errorf("unknown op %q", c.Op)
	}
	switch c.Collection {
	case collSettings:
		if c.Op == opDelete {
			st.settings = restaurant.DefaultSettings()
			return nil
		}
		return json.Unmarshal(c.Row, &st.settings)
	case collCategories:
		return applyTo(st.categories, c)
	case collItems:
		return applyTo(st.items, c)
	case collTables:
		return applyTo(st.tables, c)
	case collOrders:
		return applyTo(st.orders, c)
	case collOrderItems:
		return applyTo(st.orderItems, c)
	default:
		return fmt.Errorf("unknown collection %q", c.Collection)
	}
}

func applyTo[T any](m map[int64]T, c change) error {
	if c.Op == opDelete {
		delete(m, c.ID)
		return nil
	}
	var row T
	if err := json.Unmarshal(c.Row, &row); err != nil {
		return fmt.Errorf("decode %s %d: %w", c.Collection, c.ID, err)
	}
	m[c.ID] = row
	return nil
}

func readSnapshot(path string) (snapshot, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return snapshot{}, nil
	}
	if err != nil {
		return snapshot{}, fmt.Errorf("reading %s: %w", path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return snapshot{}, nil
	}
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return snapshot{}, fmt.Errorf("parsing %s: %w", path, err)
	}
	return snap, nil
}

// writeSnapshot atomically replaces path using the temp-file, fsync, rename
// pattern.
func writeSnapshot(path string, snap snapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".snapshot-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

// replay applies every complete journal record newer than afterSeq. It stops at
// the first line that is unterminated or does not decode, and returns the byte
// offset just past the last good line together with the last applied sequence.
func replay(r io.Reader, st *state, afterSeq int64) (offset int64, seq int64, err error) {
	seq = afterSeq
	br := bufio.NewReader(r)
	for {
		line, readErr := br.ReadBytes('\n')
		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				return offset, seq, nil
			}
			return offset, seq, readErr
		}
		var rec record
		if err := json.Unmarshal(line, &rec); err != nil || rec.Seq == 0 {
			return offset, seq, nil
		}
		if rec.Seq > seq {
			for _, c := range rec.Changes {
				if err := st.apply(c); err != nil {
					return offset, seq, fmt.Errorf("journal seq %d: %w", rec.Seq, err)
				}
			}
			seq = rec.Seq
		}
		offset += int64(len(line))
	}
}
