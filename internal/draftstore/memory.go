package draftstore

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store for tests and local development. Values
// are round-tripped through JSON so encoding behaviour matches RedisStore.
type MemoryStore struct {
	mu       sync.RWMutex
	entries  map[string][]byte
	history  map[string][]string
	counters map[string]int64
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries:  make(map[string][]byte),
		history:  make(map[string][]string),
		counters: make(map[string]int64),
	}
}

func (s *MemoryStore) Ping(context.Context) error { return nil }

func (s *MemoryStore) Save(_ context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = data
	return nil
}

func (s *MemoryStore) Load(_ context.Context, key string, dest any) (bool, error) {
	s.mu.RLock()
	data, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(data, dest); err != nil {
		s.mu.Lock()
		delete(s.entries, key)
		s.mu.Unlock()
		return false, nil
	}
	return true, nil
}

func (s *MemoryStore) Clear(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

func (s *MemoryStore) AppendFieldHistory(_ context.Context, field, value string) error {
	key := FieldHistoryKey(field)
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.history[key]
	next := make([]string, 0, len(prev)+1)
	next = append(next, value)
	for _, v := range prev {
		if v != value {
			next = append(next, v)
		}
	}
	if len(next) > fieldHistoryCap {
		next = next[:fieldHistoryCap]
	}
	s.history[key] = next
	return nil
}

func (s *MemoryStore) FieldHistory(_ context.Context, field string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	vals := s.history[FieldHistoryKey(field)]
	out := make([]string, len(vals))
	copy(out, vals)
	return out, nil
}

func (s *MemoryStore) IncrWithExpiry(_ context.Context, key string, _ time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters[key]++
	return s.counters[key], nil
}

// SetRaw plants raw bytes under a key, bypassing JSON encoding. Tests use it
// to simulate a malformed persisted draft.
func (s *MemoryStore) SetRaw(key string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = data
}
