package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/skpark33/bnf-stock/internal/domain"
	"github.com/skpark33/bnf-stock/internal/storage"
)

// ExitResultStore is an in-memory implementation of storage.ExitResultStore.
type ExitResultStore struct {
	mu   sync.RWMutex
	data map[string]*domain.ExitResult // keyed by signal_id
}

// NewExitResultStore creates a new in-memory exit result store.
func NewExitResultStore() *ExitResultStore {
	return &ExitResultStore{
		data: make(map[string]*domain.ExitResult),
	}
}

// Insert adds a new result. Returns ErrDuplicateKey if signal_id exists.
func (s *ExitResultStore) Insert(_ context.Context, r *domain.ExitResult) error {
	if r == nil || r.SignalID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[r.SignalID]; exists {
		return storage.ErrDuplicateKey
	}

	rCopy := *r
	s.data[r.SignalID] = &rCopy
	return nil
}

// GetBySignalID retrieves the result for a signal. Returns ErrNotFound if not exists.
func (s *ExitResultStore) GetBySignalID(_ context.Context, signalID string) (*domain.ExitResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, exists := s.data[signalID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	rCopy := *r
	return &rCopy, nil
}

// GetByStrategy retrieves all results for a strategy, ordered by entry_date ASC, code ASC.
func (s *ExitResultStore) GetByStrategy(_ context.Context, strategy string) ([]*domain.ExitResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.ExitResult
	for _, r := range s.data {
		if r.Strategy == strategy {
			rCopy := *r
			result = append(result, &rCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].EntryDate != result[j].EntryDate {
			return result[i].EntryDate < result[j].EntryDate
		}
		return result[i].Code < result[j].Code
	})

	return result, nil
}

var _ storage.ExitResultStore = (*ExitResultStore)(nil)
