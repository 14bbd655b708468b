// Package dataset loads the per-year market data files produced by the
// ingest tool and exposes per-instrument bar series to the screening
// and simulation layers.
package dataset

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/bytedance/sonic"

	"github.com/skpark33/bnf-stock/internal/domain"
)

const dataFileName = "kospi200_data.json"

var (
	ErrNoData            = errors.New("dataset: no trading days in range")
	ErrNonMonotonicDates = errors.New("dataset: trading days out of order")
)

// yearFile is the on-disk shape of one per-year data file.
type yearFile struct {
	Market string             `json:"market"`
	Days   []domain.MarketDay `json:"data"`
}

// MarketData is an immutable snapshot of the loaded trading days with
// per-instrument series materialized for random access. Safe for
// concurrent reads.
type MarketData struct {
	days     []domain.MarketDay
	universe []domain.Instrument
	byCode   map[string]domain.Series
}

// Load reads every year file overlapping [startDate, endDate], drops
// holiday records, and keeps days inside the range. The range bounds
// are inclusive YYYYMMDD strings. Non-monotonic dates are rejected.
func Load(baseDir, startDate, endDate string) (*MarketData, error) {
	startYear, err := yearOf(startDate)
	if err != nil {
		return nil, err
	}
	endYear, err := yearOf(endDate)
	if err != nil {
		return nil, err
	}

	var days []domain.MarketDay
	for year := startYear; year <= endYear; year++ {
		path := filepath.Join(baseDir, strconv.Itoa(year), dataFileName)
		raw, err := os.ReadFile(path)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		var file yearFile
		if err := sonic.Unmarshal(raw, &file); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		for _, day := range file.Days {
			if day.IsHoliday || day.Date < startDate || day.Date > endDate {
				continue
			}
			days = append(days, day)
		}
	}
	return FromDays(days)
}

// FromDays builds a snapshot from already-decoded trading days. The
// days must be holiday-free and date-ordered.
func FromDays(days []domain.MarketDay) (*MarketData, error) {
	if len(days) == 0 {
		return nil, ErrNoData
	}
	for i := 1; i < len(days); i++ {
		if days[i].Date <= days[i-1].Date {
			return nil, fmt.Errorf("%w: %s after %s", ErrNonMonotonicDates, days[i].Date, days[i-1].Date)
		}
	}

	md := &MarketData{days: days, byCode: make(map[string]domain.Series)}
	for _, day := range days {
		for _, q := range day.Stocks {
			md.byCode[q.Code] = append(md.byCode[q.Code], domain.Bar{
				Date:   day.Date,
				Open:   q.Open,
				High:   q.High,
				Low:    q.Low,
				Close:  q.Close,
				Volume: q.Volume,
			})
		}
	}

	// The universe is whatever traded on the most recent day.
	latest := days[len(days)-1]
	md.universe = make([]domain.Instrument, 0, len(latest.Stocks))
	for _, q := range latest.Stocks {
		md.universe = append(md.universe, domain.Instrument{Code: q.Code, Name: q.Name})
	}
	return md, nil
}

// Universe lists the instruments present on the latest trading day.
func (m *MarketData) Universe() []domain.Instrument {
	return m.universe
}

// Series returns the full bar history for one instrument.
func (m *MarketData) Series(code string) (domain.Series, bool) {
	s, ok := m.byCode[code]
	return s, ok
}

// Days reports the number of trading days loaded.
func (m *MarketData) Days() int {
	return len(m.days)
}

// FirstDate returns the earliest loaded trading date.
func (m *MarketData) FirstDate() string {
	return m.days[0].Date
}

// LastDate returns the most recent loaded trading date.
func (m *MarketData) LastDate() string {
	return m.days[len(m.days)-1].Date
}

func yearOf(date string) (int, error) {
	if len(date) != 8 {
		return 0, fmt.Errorf("dataset: bad date %q, want YYYYMMDD", date)
	}
	return strconv.Atoi(date[:4])
}
