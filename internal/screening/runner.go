// Package screening applies a strategy's stage pipeline across an
// instrument universe and emits at most one signal per instrument.
package screening

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/skpark33/bnf-stock/internal/domain"
	"github.com/skpark33/bnf-stock/internal/idhash"
	"github.com/skpark33/bnf-stock/internal/pipeline"
)

// Source supplies the instrument universe and per-instrument history.
// Implementations must be safe for concurrent reads.
type Source interface {
	Universe() []domain.Instrument
	Series(code string) (domain.Series, bool)
}

// Runner screens a universe with one strategy configuration.
type Runner struct {
	cfg     domain.ScreenConfig
	stages  []pipeline.Stage
	pricing PricingMode
	workers int
}

// NewRunner validates the configuration and assembles the stage chain.
// workers caps concurrent instruments; values below 1 mean sequential.
func NewRunner(cfg domain.ScreenConfig, workers int) (*Runner, error) {
	stages, err := buildStages(cfg)
	if err != nil {
		return nil, err
	}
	if workers < 1 {
		workers = 1
	}
	return &Runner{
		cfg:     cfg,
		stages:  stages,
		pricing: pricingMode(cfg.Strategy),
		workers: workers,
	}, nil
}

// Run screens every instrument in the source. Results are sorted by
// instrument code so repeated runs over the same inputs are identical
// regardless of worker scheduling.
func (r *Runner) Run(ctx context.Context, src Source) ([]domain.SignalRecord, Stats, error) {
	universe := src.Universe()
	stats := Stats{Universe: len(universe), StageCounts: make([]int, len(r.stages))}

	type outcome struct {
		rec   *domain.SignalRecord
		stats Stats
	}

	jobs := make(chan domain.Instrument)
	outcomes := make(chan outcome, len(universe))

	var wg sync.WaitGroup
	for w := 0; w < r.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for inst := range jobs {
				series, ok := src.Series(inst.Code)
				if !ok {
					continue
				}
				rec, st := r.ScreenInstrument(inst, series)
				outcomes <- outcome{rec: rec, stats: st}
			}
		}()
	}

feed:
	for _, inst := range universe {
		select {
		case jobs <- inst:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()
	close(outcomes)

	if err := ctx.Err(); err != nil {
		return nil, stats, err
	}

	var records []domain.SignalRecord
	for o := range outcomes {
		stats = stats.Merge(o.stats)
		if o.rec != nil {
			records = append(records, *o.rec)
		}
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Code < records[j].Code })
	return records, stats, nil
}

// ScreenInstrument evaluates one instrument and returns its signal, if
// any, plus the per-instrument diagnostic counters. Instruments with a
// series shorter than the minimum lookback are skipped silently; the
// skip is visible as Evaluated staying zero.
func (r *Runner) ScreenInstrument(inst domain.Instrument, series domain.Series) (*domain.SignalRecord, Stats) {
	stats := Stats{StageCounts: make([]int, len(r.stages))}
	if len(series) <= r.cfg.MinLookback {
		return nil, stats
	}
	stats.Evaluated = 1

	in := pipeline.Build(series)
	lo, hi, ok := scanWindow(in.Dates, r.cfg.StartDate, r.cfg.EndDate)
	if !ok {
		return nil, stats
	}

	p := &pipeline.Pipeline{MinLookback: r.cfg.MinLookback, Stages: r.stages}
	for lo <= hi {
		res := p.Scan(in, lo, hi, r.cfg.Direction)
		stats.Checked += res.Checked
		for k, c := range res.StageCounts {
			stats.StageCounts[k] += c
		}
		if !res.Found {
			return nil, stats
		}
		if rec, ok := r.buildRecord(inst, in, res.Index); ok {
			stats.Selected = 1
			return rec, stats
		}
		// Exit prices could not be derived at this index; resume the
		// scan past it.
		if r.cfg.Direction == domain.ScanBackward {
			hi = res.Index - 1
		} else {
			lo = res.Index + 1
		}
	}
	return nil, stats
}

// scanWindow resolves the configured date range to index bounds.
// Empty dates leave that side unbounded.
func scanWindow(dates []string, start, end string) (lo, hi int, ok bool) {
	if len(dates) == 0 {
		return 0, 0, false
	}
	lo, hi = 0, len(dates)-1
	if start != "" {
		lo = sort.Search(len(dates), func(i int) bool { return dates[i] >= start })
	}
	if end != "" {
		hi = sort.Search(len(dates), func(i int) bool { return dates[i] > end }) - 1
	}
	return lo, hi, lo <= hi
}

func (r *Runner) buildRecord(inst domain.Instrument, in *pipeline.Inputs, i int) (*domain.SignalRecord, bool) {
	entry := in.Closes[i]
	if entry <= 0 {
		return nil, false
	}

	rec := &domain.SignalRecord{
		Code:        inst.Code,
		Name:        inst.Name,
		Strategy:    r.cfg.Strategy,
		SignalDate:  in.Dates[i],
		SignalIndex: i,
		EntryPrice:  entry,
		Snapshot:    snapshotAt(in, i),
	}
	rec.SignalID = idhash.ComputeSignalID(rec.Strategy, rec.Code, rec.SignalDate, rec.SignalIndex)

	switch r.pricing {
	case PricingSupportRisk:
		ref, ok := r.supportRef(in, i)
		if !ok {
			return nil, false
		}
		support := lowestLow(in.Lows, ref, r.cfg.LowPeriod)
		rec.SupportLow = support
		rec.StopLoss = math.Trunc(support)
		rec.StopLossPct = round2((support - entry) / entry * 100)
		rec.TakeProfit2 = math.Trunc(entry + (entry-support)*2)
		rec.TakeProfit2Pct = round2((rec.TakeProfit2 - entry) / entry * 100)
	default:
		rec.SupportLow = lowestLow(in.Lows, i, r.cfg.LowPeriod)
		rec.StopLoss = math.Trunc(entry * fixedStopRatio)
		rec.StopLossPct = fixedStopPct
		rec.TakeProfit1 = math.Trunc(entry * fixedTier1Ratio)
		rec.TakeProfit1Pct = fixedTier1Pct
		rec.TakeProfit2 = math.Trunc(entry * fixedTier2Ratio)
		rec.TakeProfit2Pct = fixedTier2Pct
	}
	return rec, true
}

// supportRef picks the bar whose trailing lows anchor the stop price.
// The bollinger variant anchors on the band-touch bar; anything else
// anchors on the signal bar itself.
func (r *Runner) supportRef(in *pipeline.Inputs, i int) (int, bool) {
	if r.cfg.Strategy != StrategyBollingerVolume {
		return i, true
	}
	from := i - bbTouchWindow + 1
	if from < 0 {
		from = 0
	}
	for j := from; j <= i; j++ {
		lower := in.BBLower.At(j)
		if lower.Valid && in.Closes[j] <= lower.Num*1.01 {
			return j, true
		}
	}
	return 0, false
}

// lowestLow returns the minimum low over the window [ref-period, ref],
// period+1 bars with ref included.
func lowestLow(lows []float64, ref, period int) float64 {
	from := ref - period
	if from < 0 {
		from = 0
	}
	min := lows[ref]
	for j := from; j <= ref; j++ {
		if lows[j] < min {
			min = lows[j]
		}
	}
	return min
}

func snapshotAt(in *pipeline.Inputs, i int) domain.IndicatorSnapshot {
	snap := domain.IndicatorSnapshot{
		MA5:        in.MA5.At(i).Num,
		MA20:       in.MA20.At(i).Num,
		MA60:       in.MA60.At(i).Num,
		MA120:      in.MA120.At(i).Num,
		StochK:     in.StochK.At(i).Num,
		StochD:     in.StochD.At(i).Num,
		ADX:        in.ADX.At(i).Num,
		MACD:       in.MACD.At(i).Num,
		MACDSignal: in.MACDSignal.At(i).Num,
		RSI:        in.RSI.At(i).Num,
	}
	if avg := in.VolMA20.At(i); avg.Valid && avg.Num > 0 {
		snap.VolumeRatio = round2(in.Volumes[i] / avg.Num)
	}
	return snap
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
