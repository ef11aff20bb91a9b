// Package filestore keeps the whole restaurant in memory and persists it as a
// JSON snapshot plus an append-only journal of row changes.
//
// Every mutation is appended to the journal and fsynced before it becomes
// visible in memory. Open loads the snapshot and replays the journal, stopping
// at the first torn line. Compaction rewrites the snapshot atomically and
// truncates the journal.
package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"aroma-order-service/internal/restaurant"
)

// DefaultCompactEvery is the journal length that triggers compaction.
const DefaultCompactEvery = 256

type Options struct {
	// Path of the snapshot; the journal lives next to it with a .journal suffix.
	Path         string
	CompactEvery int
}

// journalFile is the part of *os.File the journal needs.
type journalFile interface {
	io.Writer
	Sync() error
	Truncate(size int64) error
	Seek(offset int64, whence int) (int64, error)
	Close() error
}

// Store implements restaurant.Store on local files.
type Store struct {
	mu           sync.RWMutex
	path         string
	journalPath  string
	compactEvery int

	journal    journalFile
	offset     int64
	st         *state
	seq        int64
	pending    int
	compactErr error
	// failed is set when the journal could not be restored to its last good
	// length; every later write is refused.
	failed error
	closed bool
}

var _ restaurant.Store = (*Store)(nil)

func Open(opts Options) (*Store, error) {
	if strings.TrimSpace(opts.Path) == "" {
		return nil, fmt.Errorf("data file path is required")
	}
	if opts.CompactEvery <= 0 {
		opts.CompactEvery = DefaultCompactEvery
	}

	snap, err := readSnapshot(opts.Path)
	if err != nil {
		return nil, err
	}
	st := fromSnapshot(snap)

	journalPath := opts.Path + ".journal"
	journal, err := os.OpenFile(journalPath, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening journal: %w", err)
	}
	offset, seq, err := replay(journal, st, snap.Seq)
	if err != nil {
		journal.Close()
		return nil, fmt.Errorf("replaying journal: %w", err)
	}
	// Drop a torn tail so new records are not appended after garbage.
	if err := journal.Truncate(offset); err != nil {
		journal.Close()
		return nil, fmt.Errorf("truncating journal: %w", err)
	}
	if _, err := journal.Seek(offset, 0); err != nil {
		journal.Close()
		return nil, fmt.Errorf("seeking journal: %w", err)
	}

	return &Store{
		path:         opts.Path,
		journalPath:  journalPath,
		compactEvery: opts.CompactEvery,
		journal:      journal,
		offset:       offset,
		st:           st,
		seq:          seq,
		pending:      int(seq - snap.Seq),
	}, nil
}

// Close compacts the journal into the snapshot and releases the file.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	err := s.compactLocked()
	return errors.Join(err, s.journal.Close())
}

// Compact forces a snapshot rewrite.
func (s *Store) Compact() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errClosed
	}
	return s.compactLocked()
}

var errClosed = errors.New("filestore: closed")

func (s *Store) compactLocked() error {
	if err := writeSnapshot(s.path, s.st.snapshot(s.seq)); err != nil {
		s.compactErr = err
		return err
	}
	if err := s.journal.Truncate(0); err != nil {
		s.compactErr = err
		return fmt.Errorf("truncating journal: %w", err)
	}
	s.offset = 0
	if _, err := s.journal.Seek(0, io.SeekStart); err != nil {
		s.compactErr = err
		s.failed = fmt.Errorf("seeking journal: %w", err)
		return s.failed
	}
	if err := s.journal.Sync(); err != nil {
		s.compactErr = err
		return fmt.Errorf("syncing journal: %w", err)
	}
	s.pending = 0
	s.compactErr = nil
	return nil
}

// commit appends one record to the journal, fsyncs it, then applies it. The
// caller holds the write lock. A failed append is cut back off the journal so
// it can never be replayed.
func (s *Store) commit(changes ...change) error {
	if s.closed {
		return errClosed
	}
	if s.failed != nil {
		return fmt.Errorf("filestore unusable: %w", s.failed)
	}
	if len(changes) == 0 {
		return nil
	}
	rec := record{Seq: s.seq + 1, Changes: changes}
	line, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encoding journal record: %w", err)
	}
	line = append(line, '\n')
	if _, err := s.journal.Write(line); err != nil {
		return s.rollback(fmt.Errorf("appending journal: %w", err))
	}
	if err := s.journal.Sync(); err != nil {
		return s.rollback(fmt.Errorf("syncing journal: %w", err))
	}
	s.offset += int64(len(line))
	s.seq = rec.Seq
	for _, c := range changes {
		if err := s.st.apply(c); err != nil {
			return fmt.Errorf("applying journal seq %d: %w", rec.Seq, err)
		}
	}
	s.pending++
	if s.pending >= s.compactEvery {
		// The record is durable already; a failed compaction is retried on
		// the next threshold and reported by Close.
		_ = s.compactLocked()
	}
	return nil
}

// rollback restores the journal to the end of the last acknowledged record.
func (s *Store) rollback(cause error) error {
	if err := s.journal.Truncate(s.offset); err != nil {
		s.failed = fmt.Errorf("truncating journal after failed append: %w", err)
		return errors.Join(cause, s.failed)
	}
	if _, err := s.journal.Seek(s.offset, io.SeekStart); err != nil {
		s.failed = fmt.Errorf("seeking journal after failed append: %w", err)
		return errors.Join(cause, s.failed)
	}
	return cause
}

// CompactionError returns the last compaction failure, if it has not been
// cleared by a later successful compaction.
func (s *Store) CompactionError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.compactErr
}

func (s *Store) readable(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.closed {
		return errClosed
	}
	return nil
}

func (s *Store) GetSettings(ctx context.Context) (restaurant.Settings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.readable(ctx); err != nil {
		return restaurant.Settings{}, err
	}
	return s.st.settings, nil
}

func (s *Store) UpdateSettings(ctx context.Context, in restaurant.Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.readable(ctx); err != nil {
		return err
	}
	in.ID = restaurant.SettingsID
	c, err := put(collSettings, in.ID, in)
	if err != nil {
		return err
	}
	return s.commit(c)
}

// Reset deletes every row and restores default settings in one record.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.readable(ctx); err != nil {
		return err
	}
	var changes []change
	for id := range s.st.orderItems {
		changes = append(changes, del(collOrderItems, id))
	}
	for id := range s.st.orders {
		changes = append(changes, del(collOrders, id))
	}
	for id := range s.st.items {
		changes = append(changes, del(collItems, id))
	}
	for id := range s.st.categories {
		changes = append(changes, del(collCategories, id))
	}
	for id := range s.st.tables {
		changes = append(changes, del(collTables, id))
	}
	c, err := put(collSettings, restaurant.SettingsID, restaurant.DefaultSettings())
	if err != nil {
		return err
	}
	return s.commit(append(changes, c)...)
}

func nextID[T any](m map[int64]T) int64 {
	var max int64
	for id := range m {
		if id > max {
			max = id
		}
	}
	return max + 1
}
