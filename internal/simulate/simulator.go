// Package simulate replays screening signals against forward daily
// bars, applying stop-loss and tiered take-profit thresholds with
// partial-position bookkeeping.
package simulate

import (
	"math"
	"sort"

	"github.com/skpark33/bnf-stock/internal/domain"
)

// Position states during a replay.
type State int

const (
	StateFull    State = iota // 100% of the position open
	StatePartial              // 50% open, tier-1 already realized
	StateClosed               // terminal
)

// Source supplies per-instrument history for replays.
type Source interface {
	Series(code string) (domain.Series, bool)
}

// signalBar locates the bar carrying the signal date. The stored
// index is trusted only while it still points at that date; a series
// loaded over a different window shifts every index, so the date is
// authoritative and the sorted series is searched when they disagree.
func signalBar(sig *domain.SignalRecord, series domain.Series) (int, bool) {
	if sig.SignalIndex >= 0 && sig.SignalIndex < len(series) &&
		series[sig.SignalIndex].Date == sig.SignalDate {
		return sig.SignalIndex, true
	}
	i := sort.Search(len(series), func(i int) bool {
		return series[i].Date >= sig.SignalDate
	})
	if i < len(series) && series[i].Date == sig.SignalDate {
		return i, true
	}
	return 0, false
}

// Simulate replays one signal. Entry is the open of the bar after the
// signal bar; scanning runs from that same bar to the end of the
// series. Returns false when no trade can be taken: the signal date is
// not in the series, the signal bar is the last bar, or the entry open
// is zero.
func Simulate(sig *domain.SignalRecord, series domain.Series, mode domain.ExitMode) (*domain.ExitResult, bool) {
	sigIdx, ok := signalBar(sig, series)
	if !ok {
		return nil, false
	}
	entryIdx := sigIdx + 1
	if entryIdx >= len(series) {
		return nil, false
	}
	entry := series[entryIdx].Open
	if entry <= 0 {
		return nil, false
	}

	res := &domain.ExitResult{
		SignalID:   sig.SignalID,
		Code:       sig.Code,
		Strategy:   sig.Strategy,
		EntryDate:  series[entryIdx].Date,
		EntryPrice: entry,
	}

	pct := func(price float64) float64 {
		return (price - entry) / entry * 100
	}

	state := StateFull
	remaining := 1.0
	total := 0.0

	realize := func(fraction, price float64, date, reason string) {
		total += fraction * pct(price)
		remaining -= fraction
		if res.FirstExitDate == "" {
			res.FirstExitDate = date
			res.FirstExitReason = reason
		}
	}

	for i := entryIdx; i < len(series); i++ {
		bar := series[i]

		// Stop-loss dominates any same-bar take-profit.
		if bar.Low <= sig.StopLoss {
			realize(remaining, sig.StopLoss, bar.Date, domain.ExitStopLoss)
			state = StateClosed
			res.ExitDate = bar.Date
			res.ExitReason = domain.ExitStopLoss
			break
		}

		if mode == domain.ExitSingleTier {
			if bar.High >= sig.TakeProfit2 {
				realize(1.0, sig.TakeProfit2, bar.Date, domain.ExitTakeProfit)
				state = StateClosed
				res.ExitDate = bar.Date
				res.ExitReason = domain.ExitTakeProfit
				break
			}
			continue
		}

		if state == StateFull && bar.High >= sig.TakeProfit1 {
			realize(0.5, sig.TakeProfit1, bar.Date, domain.ExitTakeProfit1)
			state = StatePartial
			// Fall through: tier-2 may fire on this same bar.
		}
		if state == StatePartial && bar.High >= sig.TakeProfit2 {
			realize(0.5, sig.TakeProfit2, bar.Date, domain.ExitTakeProfit2)
			state = StateClosed
			res.ExitDate = bar.Date
			res.ExitReason = domain.ExitTakeProfit2
			break
		}
	}

	if state != StateClosed {
		last := series[len(series)-1]
		reason := domain.ExitHolding100
		if state == StatePartial {
			reason = domain.ExitHolding50
		}
		realize(remaining, last.Close, last.Date, reason)
		res.ExitDate = last.Date
		res.ExitReason = reason
	}

	res.ReturnPct = math.Round(total*100) / 100
	if res.FirstExitDate == "" {
		res.FirstExitDate = res.ExitDate
		res.FirstExitReason = res.ExitReason
	}
	return res, true
}

// SimulateAll replays every signal against its instrument's history.
// Signals whose series is missing or untradable are skipped.
func SimulateAll(signals []domain.SignalRecord, src Source, mode domain.ExitMode) []domain.ExitResult {
	results := make([]domain.ExitResult, 0, len(signals))
	for i := range signals {
		series, ok := src.Series(signals[i].Code)
		if !ok {
			continue
		}
		if res, ok := Simulate(&signals[i], series, mode); ok {
			results = append(results, *res)
		}
	}
	return results
}
