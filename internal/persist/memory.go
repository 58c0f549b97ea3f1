package persist

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

type memRow struct {
	payload   json.RawMessage
	expiresAt time.Time
}

// MemStore is an in-memory Store for tests and single-node deployments
// that run without a database.
type MemStore struct {
	mu   sync.Mutex
	rows map[string]memRow
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{rows: make(map[string]memRow)}
}

func (s *MemStore) Save(ctx context.Context, key string, value any, expiresAt time.Time) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal value for %q: %w", key, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[key] = memRow{payload: payload, expiresAt: expiresAt}
	return nil
}

func (s *MemStore) Load(ctx context.Context, key string) (json.RawMessage, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[key]
	if !ok || time.Now().After(row.expiresAt) {
		return nil, false, nil
	}
	return row.payload, true, nil
}

func (s *MemStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rows, key)
	return nil
}

func (s *MemStore) Purge(ctx context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for key, row := range s.rows {
		if now.After(row.expiresAt) {
			delete(s.rows, key)
			n++
		}
	}
	return n, nil
}
