package clickhouse

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/skpark33/bnf-stock/internal/domain"
	"github.com/skpark33/bnf-stock/internal/storage"
)

// BarStore implements storage.BarStore using ClickHouse.
type BarStore struct {
	conn *Conn
}

// NewBarStore creates a new BarStore.
func NewBarStore(conn *Conn) *BarStore {
	return &BarStore{conn: conn}
}

// Compile-time interface check.
var _ storage.BarStore = (*BarStore)(nil)

// InsertBulk adds one instrument's bars. Fails the entire batch on
// duplicate (code, date). MergeTree does not enforce uniqueness, so
// duplicates are checked explicitly before the batch is sent.
func (s *BarStore) InsertBulk(ctx context.Context, code string, bars []domain.Bar) error {
	if code == "" {
		return storage.ErrInvalidInput
	}
	if len(bars) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(bars))
	for _, b := range bars {
		if b.Date == "" {
			return storage.ErrInvalidInput
		}
		if _, exists := seen[b.Date]; exists {
			return storage.ErrDuplicateKey
		}
		seen[b.Date] = struct{}{}
	}

	for _, b := range bars {
		exists, err := s.exists(ctx, code, b.Date)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO daily_bars (code, date, open, high, low, close, volume)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, b := range bars {
		err = batch.Append(code, b.Date, b.Open, b.High, b.Low, b.Close, b.Volume)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByCode retrieves all bars for an instrument, ordered by date ASC.
func (s *BarStore) GetByCode(ctx context.Context, code string) (domain.Series, error) {
	query := `
		SELECT date, open, high, low, close, volume
		FROM daily_bars
		WHERE code = ?
		ORDER BY date ASC
	`

	rows, err := s.conn.Query(ctx, query, code)
	if err != nil {
		return nil, fmt.Errorf("query bars by code: %w", err)
	}
	defer rows.Close()

	return scanBars(rows)
}

// GetByDateRange retrieves an instrument's bars within [start, end] (inclusive).
func (s *BarStore) GetByDateRange(ctx context.Context, code, start, end string) (domain.Series, error) {
	query := `
		SELECT date, open, high, low, close, volume
		FROM daily_bars
		WHERE code = ? AND date >= ? AND date <= ?
		ORDER BY date ASC
	`

	rows, err := s.conn.Query(ctx, query, code, start, end)
	if err != nil {
		return nil, fmt.Errorf("query bars by date range: %w", err)
	}
	defer rows.Close()

	return scanBars(rows)
}

// exists checks if a bar with the given key exists.
func (s *BarStore) exists(ctx context.Context, code, date string) (bool, error) {
	query := `
		SELECT count(*) FROM daily_bars
		WHERE code = ? AND date = ?
	`

	var count uint64
	if err := s.conn.QueryRow(ctx, query, code, date).Scan(&count); err != nil {
		return false, err
	}

	return count > 0, nil
}

func scanBars(rows driver.Rows) (domain.Series, error) {
	var series domain.Series
	for rows.Next() {
		var b domain.Bar
		err := rows.Scan(&b.Date, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume)
		if err != nil {
			return nil, fmt.Errorf("scan bar: %w", err)
		}
		series = append(series, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bars: %w", err)
	}
	return series, nil
}
