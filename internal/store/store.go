// Package store persists the engine's raw state as three independent JSON
// records in a key-value backend.
//
// The store is the persistence boundary: backend failures are logged and
// swallowed, and undecodable records load as absent. Callers keep their
// in-memory state authoritative for the session.
package store

import (
	"context"
	"encoding/json"
	"log"
	"time"
)

// KV is the durable key-value backend.
type KV interface {
	// Get returns ok == false when key is absent.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// Store loads, saves and clears timer, task-list and history records.
type Store struct {
	kv     KV
	now    func() time.Time
	logger *log.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger routes persistence diagnostics to l.
func WithLogger(l *log.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithClock overrides the clock used for lastUpdated stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New creates a Store over kv.
func New(kv KV, opts ...Option) *Store {
	s := &Store{kv: kv, now: time.Now, logger: log.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// LoadTimer returns the persisted timer record, or false when absent or corrupt.
func (s *Store) LoadTimer(ctx context.Context) (*TimerRecord, bool) {
	var rec TimerRecord
	if !s.load(ctx, TimerKey, &rec) {
		return nil, false
	}
	return &rec, true
}

// SaveTimer persists rec, stamping LastUpdated.
func (s *Store) SaveTimer(ctx context.Context, rec TimerRecord) {
	if rec.Segments == nil {
		rec.Segments = []SegmentRecord{}
	}
	rec.LastUpdated = s.now().UnixMilli()
	s.save(ctx, TimerKey, rec)
}

// ClearTimer removes the timer record.
func (s *Store) ClearTimer(ctx context.Context) {
	s.clear(ctx, TimerKey)
}

// LoadTaskList returns the persisted task list, or false when absent or corrupt.
func (s *Store) LoadTaskList(ctx context.Context) (*TaskListRecord, bool) {
	var rec TaskListRecord
	if !s.load(ctx, TaskListKey, &rec) {
		return nil, false
	}
	return &rec, true
}

// SaveTaskList persists rec, stamping LastUpdated.
func (s *Store) SaveTaskList(ctx context.Context, rec TaskListRecord) {
	if rec.Tasks == nil {
		rec.Tasks = []TaskRecord{}
	}
	rec.LastUpdated = s.now().UnixMilli()
	s.save(ctx, TaskListKey, rec)
}

// ClearTaskList removes the task-list record.
func (s *Store) ClearTaskList(ctx context.Context) {
	s.clear(ctx, TaskListKey)
}

// LoadHistory returns the persisted history, or false when absent or corrupt.
func (s *Store) LoadHistory(ctx context.Context) (*HistoryRecord, bool) {
	var rec HistoryRecord
	if !s.load(ctx, HistoryKey, &rec) {
		return nil, false
	}
	return &rec, true
}

// SaveHistory persists rec, stamping LastUpdated.
func (s *Store) SaveHistory(ctx context.Context, rec HistoryRecord) {
	if rec.Entries == nil {
		rec.Entries = []HistoryEntryRecord{}
	}
	rec.LastUpdated = s.now().UnixMilli()
	s.save(ctx, HistoryKey, rec)
}

// ClearHistory removes the history record.
func (s *Store) ClearHistory(ctx context.Context) {
	s.clear(ctx, HistoryKey)
}

func (s *Store) load(ctx context.Context, key string, dst any) bool {
	data, ok, err := s.kv.Get(ctx, key)
	if err != nil {
		s.logger.Printf("store: failed to load %s: %v", key, err)
		return false
	}
	if !ok {
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		s.logger.Printf("store: ignoring corrupt %s: %v", key, err)
		return false
	}
	return true
}

func (s *Store) save(ctx context.Context, key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		s.logger.Printf("store: failed to encode %s: %v", key, err)
		return
	}
	if err := s.kv.Put(ctx, key, data); err != nil {
		s.logger.Printf("store: failed to persist %s: %v", key, err)
	}
}

func (s *Store) clear(ctx context.Context, key string) {
	if err := s.kv.Delete(ctx, key); err != nil {
		s.logger.Printf("store: failed to clear %s: %v", key, err)
	}
}
