package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/skpark33/bnf-stock/internal/domain"
	"github.com/skpark33/bnf-stock/internal/storage"
)

// BarStore is an in-memory implementation of storage.BarStore.
type BarStore struct {
	mu   sync.RWMutex
	data map[string]domain.Bar // keyed by (code, date)
}

// NewBarStore creates a new in-memory bar store.
func NewBarStore() *BarStore {
	return &BarStore{
		data: make(map[string]domain.Bar),
	}
}

// barKey generates a unique key for a bar.
func barKey(code, date string) string {
	return fmt.Sprintf("%s|%s", code, date)
}

// InsertBulk adds one instrument's bars. Fails the entire batch on duplicate.
func (s *BarStore) InsertBulk(_ context.Context, code string, bars []domain.Bar) error {
	if code == "" {
		return storage.ErrInvalidInput
	}
	if len(bars) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Track keys in this batch to detect intra-batch duplicates
	batchKeys := make(map[string]struct{}, len(bars))
	for _, b := range bars {
		if b.Date == "" {
			return storage.ErrInvalidInput
		}
		key := barKey(code, b.Date)
		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	for _, b := range bars {
		s.data[barKey(code, b.Date)] = b
	}
	return nil
}

// GetByCode retrieves all bars for an instrument, ordered by date ASC.
func (s *BarStore) GetByCode(ctx context.Context, code string) (domain.Series, error) {
	return s.GetByDateRange(ctx, code, "", "99999999")
}

// GetByDateRange retrieves an instrument's bars within [start, end] (inclusive).
func (s *BarStore) GetByDateRange(_ context.Context, code, start, end string) (domain.Series, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	prefix := code + "|"
	var result domain.Series
	for key, b := range s.data {
		if len(key) > len(prefix) && key[:len(prefix)] == prefix && b.Date >= start && b.Date <= end {
			result = append(result, b)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Date < result[j].Date
	})

	return result, nil
}

var _ storage.BarStore = (*BarStore)(nil)
