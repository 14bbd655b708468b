package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/skpark33/bnf-stock/internal/domain"
	"github.com/skpark33/bnf-stock/internal/storage"
)

// SignalRecordStore implements storage.SignalRecordStore using PostgreSQL.
type SignalRecordStore struct {
	pool *Pool
}

// NewSignalRecordStore creates a new SignalRecordStore.
func NewSignalRecordStore(pool *Pool) *SignalRecordStore {
	return &SignalRecordStore{pool: pool}
}

// Compile-time interface check.
var _ storage.SignalRecordStore = (*SignalRecordStore)(nil)

const signalRecordColumns = `
	signal_id, code, name, strategy, signal_date, signal_index,
	entry_price, stop_loss, stop_loss_pct,
	take_profit_1, take_profit_1_pct, take_profit_2, take_profit_2_pct,
	support_low,
	ma5, ma20, ma60, ma120, volume_ratio,
	stoch_k, stoch_d, adx, macd, macd_signal, rsi
`

// Insert adds a new signal. Returns ErrDuplicateKey if signal_id exists.
func (s *SignalRecordStore) Insert(ctx context.Context, sig *domain.SignalRecord) error {
	if sig == nil || sig.SignalID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO signal_records (` + signalRecordColumns + `)
		VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9,
			$10, $11, $12, $13,
			$14,
			$15, $16, $17, $18, $19,
			$20, $21, $22, $23, $24, $25
		)
	`

	_, err := s.pool.Exec(ctx, query,
		sig.SignalID, sig.Code, sig.Name, sig.Strategy, sig.SignalDate, sig.SignalIndex,
		sig.EntryPrice, sig.StopLoss, sig.StopLossPct,
		sig.TakeProfit1, sig.TakeProfit1Pct, sig.TakeProfit2, sig.TakeProfit2Pct,
		sig.SupportLow,
		sig.Snapshot.MA5, sig.Snapshot.MA20, sig.Snapshot.MA60, sig.Snapshot.MA120, sig.Snapshot.VolumeRatio,
		sig.Snapshot.StochK, sig.Snapshot.StochD, sig.Snapshot.ADX, sig.Snapshot.MACD, sig.Snapshot.MACDSignal, sig.Snapshot.RSI,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert signal record: %w", err)
	}

	return nil
}

// GetByID retrieves a signal by its ID. Returns ErrNotFound if not exists.
func (s *SignalRecordStore) GetByID(ctx context.Context, signalID string) (*domain.SignalRecord, error) {
	query := `
		SELECT ` + signalRecordColumns + `
		FROM signal_records
		WHERE signal_id = $1
	`

	row := s.pool.QueryRow(ctx, query, signalID)
	sig, err := scanSignalRecord(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get signal record by id: %w", err)
	}

	return sig, nil
}

// GetByStrategy retrieves all signals for a strategy, ordered by
// signal_date ASC, code ASC.
func (s *SignalRecordStore) GetByStrategy(ctx context.Context, strategy string) ([]*domain.SignalRecord, error) {
	query := `
		SELECT ` + signalRecordColumns + `
		FROM signal_records
		WHERE strategy = $1
		ORDER BY signal_date ASC, code ASC
	`

	rows, err := s.pool.Query(ctx, query, strategy)
	if err != nil {
		return nil, fmt.Errorf("query signals by strategy: %w", err)
	}
	defer rows.Close()

	return scanSignalRecords(rows)
}

// GetByDateRange retrieves a strategy's signals with signal_date within
// [start, end] (inclusive), ordered by signal_date ASC, code ASC.
func (s *SignalRecordStore) GetByDateRange(ctx context.Context, strategy, start, end string) ([]*domain.SignalRecord, error) {
	query := `
		SELECT ` + signalRecordColumns + `
		FROM signal_records
		WHERE strategy = $1 AND signal_date >= $2 AND signal_date <= $3
		ORDER BY signal_date ASC, code ASC
	`

	rows, err := s.pool.Query(ctx, query, strategy, start, end)
	if err != nil {
		return nil, fmt.Errorf("query signals by date range: %w", err)
	}
	defer rows.Close()

	return scanSignalRecords(rows)
}

func scanSignalRecord(row pgx.Row) (*domain.SignalRecord, error) {
	var sig domain.SignalRecord
	err := row.Scan(
		&sig.SignalID, &sig.Code, &sig.Name, &sig.Strategy, &sig.SignalDate, &sig.SignalIndex,
		&sig.EntryPrice, &sig.StopLoss, &sig.StopLossPct,
		&sig.TakeProfit1, &sig.TakeProfit1Pct, &sig.TakeProfit2, &sig.TakeProfit2Pct,
		&sig.SupportLow,
		&sig.Snapshot.MA5, &sig.Snapshot.MA20, &sig.Snapshot.MA60, &sig.Snapshot.MA120, &sig.Snapshot.VolumeRatio,
		&sig.Snapshot.StochK, &sig.Snapshot.StochD, &sig.Snapshot.ADX, &sig.Snapshot.MACD, &sig.Snapshot.MACDSignal, &sig.Snapshot.RSI,
	)
	if err != nil {
		return nil, err
	}
	return &sig, nil
}

func scanSignalRecords(rows pgx.Rows) ([]*domain.SignalRecord, error) {
	var signals []*domain.SignalRecord
	for rows.Next() {
		sig, err := scanSignalRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan signal record: %w", err)
		}
		signals = append(signals, sig)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate signal records: %w", err)
	}
	return signals, nil
}
