package filestore

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"aroma-order-service/internal/restaurant"
	"aroma-order-service/internal/store/storetest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openAt(t *testing.T, path string, compactEvery int) *Store {
	t.Helper()
	s, err := Open(Options{Path: path, CompactEvery: compactEvery})
	require.NoError(t, err)
	return s
}

func TestConformance(t *testing.T) {
	storetest.Run(t, storetest.Factory{
		Open: func(t *testing.T) restaurant.Store {
			return openAt(t, filepath.Join(t.TempDir(), "data.json"), 0)
		},
		Reopen: func(t *testing.T, s restaurant.Store) restaurant.Store {
			path := s.(*Store).path
			require.NoError(t, s.Close())
			return openAt(t, path, 0)
		},
	})
}

// The journal alone must be enough to rebuild state when the process dies
// before any compaction.
func TestReplayWithoutSnapshot(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "data.json")
	s := openAt(t, path, 1000)

	cat, err := s.CreateCategory(ctx, restaurant.CategoryInput{Key: "burgers", Name: "Burgers"})
	require.NoError(t, err)
	_, err = s.CreateItem(ctx, restaurant.ItemInput{CategoryID: cat.ID, Name: "Classic", Price: storetest.Money(t, "8.5")})
	require.NoError(t, err)

	// simulate a crash: drop the handle without compacting
	require.NoError(t, s.journal.Close())
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err), "snapshot should not exist before compaction")

	s2 := openAt(t, path, 1000)
	defer s2.Close()
	item, err := s2.GetItem(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Classic", item.Name)
	storetest.AssertMoney(t, "8.5", item.Price)
}

func TestTornJournalLineIsDropped(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "data.json")
	s := openAt(t, path, 1000)

	_, err := s.CreateTable(ctx, "1", "t1-aaaaaaaa")
	require.NoError(t, err)
	require.NoError(t, s.journal.Close())

	f, err := os.OpenFile(path+".journal", os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString(`{"seq":2,"changes":[{"op":"put","collection":"tables","id":2,"row":{"id":2,"num`)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	s2 := openAt(t, path, 1000)
	tables, err := s2.ListTables(ctx)
	require.NoError(t, err)
	require.Len(t, tables, 1)
	assert.Equal(t, "t1-aaaaaaaa", tables[0].Token)

	// new writes land after the last good record, not after the garbage
	_, err = s2.CreateTable(ctx, "2", "t2-bbbbbbbb")
	require.NoError(t, err)
	require.NoError(t, s2.journal.Close())

	s3 := openAt(t, path, 1000)
	defer s3.Close()
	tables, err = s3.ListTables(ctx)
	require.NoError(t, err)
	require.Len(t, tables, 2)
	assert.Equal(t, "2", tables[1].Number)
}

func journalLines(t *testing.T, path string) []record {
	t.Helper()
	f, err := os.Open(path + ".journal")
	require.NoError(t, err)
	defer f.Close()
	var out []record
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var rec record
		require.NoError(t, json.Unmarshal(sc.Bytes(), &rec))
		out = append(out, rec)
	}
	require.NoError(t, sc.Err())
	return out
}

func TestCompactionTruncatesJournal(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "data.json")
	s := openAt(t, path, 3)

	for i, key := range []string{"a", "b"} {
		_, err := s.CreateCategory(ctx, restaurant.CategoryInput{Key: key, Name: key, SortOrder: i})
		require.NoError(t, err)
	}
	assert.Len(t, journalLines(t, path), 2)

	_, err := s.CreateCategory(ctx, restaurant.CategoryInput{Key: "c", Name: "c"})
	require.NoError(t, err)
	assert.Empty(t, journalLines(t, path))

	snap, err := readSnapshot(path)
	require.NoError(t, err)
	assert.Equal(t, int64(3), snap.Seq)
	assert.Len(t, snap.Categories, 3)

	_, err = s.CreateCategory(ctx, restaurant.CategoryInput{Key: "d", Name: "d"})
	require.NoError(t, err)
	lines := journalLines(t, path)
	require.Len(t, lines, 1)
	assert.Equal(t, int64(4), lines[0].Seq)

	require.NoError(t, s.Close())
	assert.Empty(t, journalLines(t, path))
	require.NoError(t, s.CompactionError())
}

// A crash between snapshot rename and journal truncation leaves records the
// snapshot already contains; replay must skip them.
func TestReplaySkipsRecordsInSnapshot(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "data.json")
	s := openAt(t, path, 1000)

	_, err := s.CreateCategory(ctx, restaurant.CategoryInput{Key: "a", Name: "a"})
	require.NoError(t, err)
	ok, err := s.DeleteCategory(ctx, 1)
	require.NoError(t, err)
	require.True(t, ok)
	journal, err := os.ReadFile(path + ".journal")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = s.CreateCategory(ctx, restaurant.CategoryInput{Key: "b", Name: "b"})
	assert.Error(t, err, "closed store must reject writes")

	require.NoError(t, os.WriteFile(path+".journal", journal, 0o644))
	s2 := openAt(t, path, 1000)
	defer s2.Close()
	cats, err := s2.ListCategories(ctx, true)
	require.NoError(t, err)
	assert.Empty(t, cats)
	assert.Equal(t, int64(2), s2.seq)
}

func TestCreateOrderIsOneRecord(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "data.json")
	s := openAt(t, path, 1000)
	defer s.Close()

	_, err := s.CreateOrder(ctx, restaurant.NewOrder{
		Type:  restaurant.OrderTypeTakeaway,
		Total: storetest.Money(t, "24"),
		Lines: []restaurant.OrderItem{
			{ItemID: 1, Name: "Classic", Price: storetest.Money(t, "8.5"), Quantity: 2},
			{ItemID: 2, Name: "Veggie", Price: storetest.Money(t, "7"), Quantity: 1},
		},
	})
	require.NoError(t, err)

	lines := journalLines(t, path)
	require.Len(t, lines, 1)
	assert.Len(t, lines[0].Changes, 3)
	assert.Equal(t, collOrders, lines[0].Changes[0].Collection)
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open(Options{})
	assert.Error(t, err)
}

// faultyJournal fails the next operation of the chosen kind once.
type faultyJournal struct {
	*os.File
	failSync     bool
	tornWrite    bool
	failTruncate bool
}

var errInjected = errors.New("injected I/O failure")

func (f *faultyJournal) Write(p []byte) (int, error) {
	if f.tornWrite {
		f.tornWrite = false
		n, _ := f.File.Write(p[:len(p)/2])
		return n, errInjected
	}
	return f.File.Write(p)
}

func (f *faultyJournal) Sync() error {
	if f.failSync {
		f.failSync = false
		_ = f.File.Sync()
		return errInjected
	}
	return f.File.Sync()
}

func (f *faultyJournal) Truncate(size int64) error {
	if f.failTruncate {
		return errInjected
	}
	return f.File.Truncate(size)
}

func injectFaults(s *Store) *faultyJournal {
	fj := &faultyJournal{File: s.journal.(*os.File)}
	s.journal = fj
	return fj
}

func TestFailedAppendIsNotReplayed(t *testing.T) {
	cases := map[string]func(*faultyJournal){
		"sync fails": func(f *faultyJournal) { f.failSync = true },
		"torn write": func(f *faultyJournal) { f.tornWrite = true },
	}
	for name, arm := range cases {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			path := filepath.Join(t.TempDir(), "data.json")
			s := openAt(t, path, 1000)
			fj := injectFaults(s)

			_, err := s.CreateCategory(ctx, restaurant.CategoryInput{Key: "before", Name: "Before"})
			require.NoError(t, err)

			arm(fj)
			_, err = s.CreateCategory(ctx, restaurant.CategoryInput{Key: "failed", Name: "Failed"})
			require.ErrorIs(t, err, errInjected)

			ok, err := s.CreateCategory(ctx, restaurant.CategoryInput{Key: "ok", Name: "OK"})
			require.NoError(t, err)
			assert.Equal(t, int64(2), ok.ID)

			// crash without compacting
			require.NoError(t, s.journal.Close())

			s2 := openAt(t, path, 1000)
			defer s2.Close()
			cats, err := s2.ListCategories(ctx, true)
			require.NoError(t, err)
			keys := make([]string, 0, len(cats))
			for _, c := range cats {
				keys = append(keys, c.Key)
			}
			assert.ElementsMatch(t, []string{"before", "ok"}, keys)
		})
	}
}

func TestFailedRollbackRejectsLaterWrites(t *testing.T) {
	ctx := context.Background()
	s := openAt(t, filepath.Join(t.TempDir(), "data.json"), 1000)
	fj := injectFaults(s)
	fj.failSync = true
	fj.failTruncate = true

	_, err := s.CreateCategory(ctx, restaurant.CategoryInput{Key: "failed", Name: "Failed"})
	require.ErrorIs(t, err, errInjected)

	_, err = s.CreateCategory(ctx, restaurant.CategoryInput{Key: "next", Name: "Next"})
	assert.ErrorContains(t, err, "filestore unusable")

	cats, err := s.ListCategories(ctx, true)
	require.NoError(t, err)
	assert.Empty(t, cats)
	require.NoError(t, s.journal.Close())
}
