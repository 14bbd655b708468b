// Package reporting reduces screening and simulation output into
// summary statistics and renders them as CSV or Markdown.
package reporting

import (
	"time"

	"github.com/skpark33/bnf-stock/internal/domain"
	"github.com/skpark33/bnf-stock/internal/screening"
)

// Report is the full output of one screening run, with the optional
// backtest section populated when simulation was requested.
type Report struct {
	GeneratedAt time.Time
	Strategy    string
	StartDate   string
	EndDate     string

	Funnel  screening.Stats
	Signals []domain.SignalRecord

	// Simulation section; nil when only screening ran.
	Backtest *BacktestSummary
	Results  []domain.ExitResult
}

// BacktestSummary is the reduction over a run's exit results.
type BacktestSummary struct {
	Total  int
	Wins   int
	Losses int

	// Exit reason distribution keyed by the exit enumeration.
	ExitCounts map[string]int

	AvgReturnPct float64
	MaxReturnPct float64
	MinReturnPct float64
}

// exitOrder fixes the rendering order of exit reasons.
var exitOrder = []string{
	domain.ExitStopLoss,
	domain.ExitTakeProfit,
	domain.ExitTakeProfit1,
	domain.ExitTakeProfit2,
	domain.ExitHolding50,
	domain.ExitHolding100,
}

// Summarize reduces exit results to a summary. Zero-return trades
// count as neither win nor loss, matching the win/loss split the
// analysts expect.
func Summarize(results []domain.ExitResult) *BacktestSummary {
	s := &BacktestSummary{
		Total:      len(results),
		ExitCounts: make(map[string]int),
	}
	if len(results) == 0 {
		return s
	}

	var sum float64
	s.MaxReturnPct = results[0].ReturnPct
	s.MinReturnPct = results[0].ReturnPct
	for _, r := range results {
		s.ExitCounts[r.ExitReason]++
		if r.ReturnPct > 0 {
			s.Wins++
		} else if r.ReturnPct < 0 {
			s.Losses++
		}
		sum += r.ReturnPct
		if r.ReturnPct > s.MaxReturnPct {
			s.MaxReturnPct = r.ReturnPct
		}
		if r.ReturnPct < s.MinReturnPct {
			s.MinReturnPct = r.ReturnPct
		}
	}
	s.AvgReturnPct = sum / float64(len(results))
	return s
}

// WinRate returns wins over total as a percentage.
func (s *BacktestSummary) WinRate() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Wins) / float64(s.Total) * 100
}
