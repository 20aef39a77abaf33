package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// MemoryStore is an in-memory Collection used by tests. Records are copied
// through their JSON form on every read so callers never alias stored state,
// matching the persistence contract of the bun store.
type MemoryStore[T Keyed] struct {
	mu      sync.Mutex
	records []T
}

// NewMemoryStore returns an empty in-memory collection.
func NewMemoryStore[T Keyed]() *MemoryStore[T] {
	return &MemoryStore[T]{}
}

func (s *MemoryStore[T]) snapshot() ([]T, error) {
	out := make([]T, 0, len(s.records))
	for _, record := range s.records {
		data, err := json.Marshal(record)
		if err != nil {
			return nil, fmt.Errorf("failed to encode record %s: %w", record.RecordID(), err)
		}
		var copied T
		if err := json.Unmarshal(data, &copied); err != nil {
			return nil, fmt.Errorf("failed to decode record %s: %w", record.RecordID(), err)
		}
		out = append(out, copied)
	}
	return out, nil
}

func (s *MemoryStore[T]) Read(_ context.Context) ([]T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

func (s *MemoryStore[T]) Update(_ context.Context, mutate Mutator[T]) ([]T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.snapshot()
	if err != nil {
		return nil, err
	}
	next, err := mutate(current)
	if err != nil {
		return nil, err
	}
	s.records = next
	result, err := s.snapshot()
	if err != nil {
		return nil, err
	}
	return result, nil
}
