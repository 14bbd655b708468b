package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/skpark33/bnf-stock/internal/domain"
	"github.com/skpark33/bnf-stock/internal/storage"
)

// SignalRecordStore is an in-memory implementation of storage.SignalRecordStore.
type SignalRecordStore struct {
	mu   sync.RWMutex
	data map[string]*domain.SignalRecord // keyed by signal_id
}

// NewSignalRecordStore creates a new in-memory signal record store.
func NewSignalRecordStore() *SignalRecordStore {
	return &SignalRecordStore{
		data: make(map[string]*domain.SignalRecord),
	}
}

// Insert adds a new signal. Returns ErrDuplicateKey if signal_id exists.
func (s *SignalRecordStore) Insert(_ context.Context, rec *domain.SignalRecord) error {
	if rec == nil || rec.SignalID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[rec.SignalID]; exists {
		return storage.ErrDuplicateKey
	}

	// Store a copy to prevent external mutation
	recCopy := *rec
	s.data[rec.SignalID] = &recCopy
	return nil
}

// GetByID retrieves a signal by its ID. Returns ErrNotFound if not exists.
func (s *SignalRecordStore) GetByID(_ context.Context, signalID string) (*domain.SignalRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, exists := s.data[signalID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	recCopy := *rec
	return &recCopy, nil
}

// GetByStrategy retrieves all signals for a strategy, ordered by signal_date ASC, code ASC.
func (s *SignalRecordStore) GetByStrategy(ctx context.Context, strategy string) ([]*domain.SignalRecord, error) {
	return s.GetByDateRange(ctx, strategy, "", "99999999")
}

// GetByDateRange retrieves a strategy's signals with signal_date within [start, end] (inclusive).
func (s *SignalRecordStore) GetByDateRange(_ context.Context, strategy, start, end string) ([]*domain.SignalRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.SignalRecord
	for _, rec := range s.data {
		if rec.Strategy == strategy && rec.SignalDate >= start && rec.SignalDate <= end {
			recCopy := *rec
			result = append(result, &recCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].SignalDate != result[j].SignalDate {
			return result[i].SignalDate < result[j].SignalDate
		}
		return result[i].Code < result[j].Code
	})

	return result, nil
}

var _ storage.SignalRecordStore = (*SignalRecordStore)(nil)
