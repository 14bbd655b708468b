package storage

import (
	"context"

	"github.com/skpark33/bnf-stock/internal/domain"
)

// BarStore provides access to daily bar storage.
type BarStore interface {
	// InsertBulk adds one instrument's bars. Fails the entire batch on
	// duplicate (code, date).
	InsertBulk(ctx context.Context, code string, bars []domain.Bar) error

	// GetByCode retrieves all bars for an instrument, ordered by date ASC.
	GetByCode(ctx context.Context, code string) (domain.Series, error)

	// GetByDateRange retrieves an instrument's bars within [start, end] (inclusive).
	GetByDateRange(ctx context.Context, code, start, end string) (domain.Series, error)
}

// SignalRecordStore provides access to signal_records storage.
type SignalRecordStore interface {
	// Insert adds a new signal. Returns ErrDuplicateKey if signal_id exists.
	Insert(ctx context.Context, s *domain.SignalRecord) error

	// GetByID retrieves a signal by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, signalID string) (*domain.SignalRecord, error)

	// GetByStrategy retrieves all signals for a strategy, ordered by signal_date ASC, code ASC.
	GetByStrategy(ctx context.Context, strategy string) ([]*domain.SignalRecord, error)

	// GetByDateRange retrieves a strategy's signals with signal_date within [start, end] (inclusive).
	GetByDateRange(ctx context.Context, strategy, start, end string) ([]*domain.SignalRecord, error)
}

// ExitResultStore provides access to exit_results storage.
type ExitResultStore interface {
	// Insert adds a new result. Returns ErrDuplicateKey if signal_id exists.
	Insert(ctx context.Context, r *domain.ExitResult) error

	// GetBySignalID retrieves the result for a signal. Returns ErrNotFound if not exists.
	GetBySignalID(ctx context.Context, signalID string) (*domain.ExitResult, error)

	// GetByStrategy retrieves all results for a strategy, ordered by entry_date ASC, code ASC.
	GetByStrategy(ctx context.Context, strategy string) ([]*domain.ExitResult, error)
}
