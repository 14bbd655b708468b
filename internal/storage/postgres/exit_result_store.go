package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/skpark33/bnf-stock/internal/domain"
	"github.com/skpark33/bnf-stock/internal/storage"
)

// ExitResultStore implements storage.ExitResultStore using PostgreSQL.
type ExitResultStore struct {
	pool *Pool
}

// NewExitResultStore creates a new ExitResultStore.
func NewExitResultStore(pool *Pool) *ExitResultStore {
	return &ExitResultStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ExitResultStore = (*ExitResultStore)(nil)

const exitResultColumns = `
	signal_id, code, strategy, entry_date, entry_price,
	exit_date, exit_reason, return_pct,
	first_exit_date, first_exit_reason
`

// Insert adds a new result. Returns ErrDuplicateKey if signal_id exists.
func (s *ExitResultStore) Insert(ctx context.Context, r *domain.ExitResult) error {
	if r == nil || r.SignalID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO exit_results (` + exitResultColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := s.pool.Exec(ctx, query,
		r.SignalID, r.Code, r.Strategy, r.EntryDate, r.EntryPrice,
		r.ExitDate, r.ExitReason, r.ReturnPct,
		r.FirstExitDate, r.FirstExitReason,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert exit result: %w", err)
	}

	return nil
}

// GetBySignalID retrieves the result for a signal. Returns ErrNotFound if not exists.
func (s *ExitResultStore) GetBySignalID(ctx context.Context, signalID string) (*domain.ExitResult, error) {
	query := `
		SELECT ` + exitResultColumns + `
		FROM exit_results
		WHERE signal_id = $1
	`

	row := s.pool.QueryRow(ctx, query, signalID)
	res, err := scanExitResult(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get exit result by signal id: %w", err)
	}

	return res, nil
}

// GetByStrategy retrieves all results for a strategy, ordered by
// entry_date ASC, code ASC.
func (s *ExitResultStore) GetByStrategy(ctx context.Context, strategy string) ([]*domain.ExitResult, error) {
	query := `
		SELECT ` + exitResultColumns + `
		FROM exit_results
		WHERE strategy = $1
		ORDER BY entry_date ASC, code ASC
	`

	rows, err := s.pool.Query(ctx, query, strategy)
	if err != nil {
		return nil, fmt.Errorf("query exit results by strategy: %w", err)
	}
	defer rows.Close()

	var results []*domain.ExitResult
	for rows.Next() {
		res, err := scanExitResult(rows)
		if err != nil {
			return nil, fmt.Errorf("scan exit result: %w", err)
		}
		results = append(results, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate exit results: %w", err)
	}

	return results, nil
}

func scanExitResult(row pgx.Row) (*domain.ExitResult, error) {
	var r domain.ExitResult
	err := row.Scan(
		&r.SignalID, &r.Code, &r.Strategy, &r.EntryDate, &r.EntryPrice,
		&r.ExitDate, &r.ExitReason, &r.ReturnPct,
		&r.FirstExitDate, &r.FirstExitReason,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}
