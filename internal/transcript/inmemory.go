package transcript

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

const defaultRingSize = 256

// InMemoryStore keeps the most recent turns in a bounded in-process ring.
// Used for local/dev runs without a database.
type InMemoryStore struct {
	mu      sync.RWMutex
	max     int
	records []TurnRecord
}

func NewInMemoryStore(max int) *InMemoryStore {
	if max <= 0 {
		max = defaultRingSize
	}
	return &InMemoryStore{max: max}
}

func (s *InMemoryStore) SaveTurn(_ context.Context, record TurnRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	s.records = append(s.records, record)
	if len(s.records) > s.max {
		s.records = s.records[len(s.records)-s.max:]
	}
	return nil
}

// Recent returns up to limit records in chronological order.
func (s *InMemoryStore) Recent(_ context.Context, limit int) ([]TurnRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.records) == 0 {
		return nil, nil
	}
	if limit <= 0 || limit > len(s.records) {
		limit = len(s.records)
	}
	out := make([]TurnRecord, limit)
	copy(out, s.records[len(s.records)-limit:])
	return out, nil
}

func (s *InMemoryStore) Close() error { return nil }
