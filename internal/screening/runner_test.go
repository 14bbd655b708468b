package screening

import (
	"context"
	"fmt"
	"testing"

	"github.com/skpark33/bnf-stock/internal/domain"
	"github.com/skpark33/bnf-stock/internal/pipeline"
)

type mapSource struct {
	insts  []domain.Instrument
	series map[string]domain.Series
}

func (m *mapSource) Universe() []domain.Instrument { return m.insts }
func (m *mapSource) Series(code string) (domain.Series, bool) {
	s, ok := m.series[code]
	return s, ok
}

func flatSeries(n int, close float64) domain.Series {
	s := make(domain.Series, n)
	for i := range s {
		s[i] = domain.Bar{
			Date:   fmt.Sprintf("%08d", 20240000+i+1),
			Open:   close,
			High:   close + 1,
			Low:    close - 1,
			Close:  close,
			Volume: 1000,
		}
	}
	return s
}

func passAtStage(indices ...int) []pipeline.Stage {
	set := make(map[int]bool, len(indices))
	for _, i := range indices {
		set[i] = true
	}
	return []pipeline.Stage{{Name: "at", Check: func(_ *pipeline.Inputs, i int) bool { return set[i] }}}
}

func TestFromName(t *testing.T) {
	for _, name := range []string{
		StrategyMomentumTrend, StrategyAlignMomentum,
		StrategyBollingerVolume, StrategyMACDRSISeparation,
	} {
		cfg, err := FromName(name)
		if err != nil {
			t.Fatalf("FromName(%s): %v", name, err)
		}
		if cfg.Strategy != name {
			t.Errorf("strategy = %s, want %s", cfg.Strategy, name)
		}
		if _, err := buildStages(cfg); err != nil {
			t.Errorf("buildStages(%s): %v", name, err)
		}
	}
	if _, err := FromName("nope"); err != ErrUnknownStrategy {
		t.Fatalf("unknown strategy error = %v", err)
	}
}

func TestFromName_Directions(t *testing.T) {
	forward, _ := FromName(StrategyMomentumTrend)
	if forward.Direction != domain.ScanForward {
		t.Error("momentum_trend must scan forward")
	}
	backward, _ := FromName(StrategyBollingerVolume)
	if backward.Direction != domain.ScanBackward {
		t.Error("bollinger_volume must scan backward")
	}
}

func TestStats_MergeAssociative(t *testing.T) {
	a := Stats{Universe: 1, Evaluated: 1, Checked: 5, StageCounts: []int{3, 1}, Selected: 1}
	b := Stats{Universe: 1, Checked: 2, StageCounts: []int{2}}
	c := Stats{Universe: 1, Evaluated: 1, Checked: 7, StageCounts: []int{4, 2, 1}}

	left := a.Merge(b).Merge(c)
	right := a.Merge(b.Merge(c))
	if left.Checked != right.Checked || left.Selected != right.Selected {
		t.Fatal("merge must be associative")
	}
	if len(left.StageCounts) != 3 {
		t.Fatalf("stage counts padded to %d, want 3", len(left.StageCounts))
	}
	for i := range left.StageCounts {
		if left.StageCounts[i] != right.StageCounts[i] {
			t.Fatalf("stage count %d differs: %d vs %d", i, left.StageCounts[i], right.StageCounts[i])
		}
	}
}

func TestScanWindow(t *testing.T) {
	dates := []string{"20240102", "20240103", "20240104", "20240105"}

	lo, hi, ok := scanWindow(dates, "20240103", "20240104")
	if !ok || lo != 1 || hi != 2 {
		t.Fatalf("bounded window = (%d, %d, %v)", lo, hi, ok)
	}
	lo, hi, ok = scanWindow(dates, "", "")
	if !ok || lo != 0 || hi != 3 {
		t.Fatalf("unbounded window = (%d, %d, %v)", lo, hi, ok)
	}
	if _, _, ok = scanWindow(dates, "20240106", ""); ok {
		t.Fatal("window past the data must be empty")
	}
}

func TestScreenInstrument_InsufficientHistory(t *testing.T) {
	cfg, _ := FromName(StrategyMomentumTrend)
	r, err := NewRunner(cfg, 1)
	if err != nil {
		t.Fatal(err)
	}

	rec, stats := r.ScreenInstrument(domain.Instrument{Code: "000001"}, flatSeries(100, 1000))
	if rec != nil {
		t.Fatal("short series must not produce a signal")
	}
	if stats.Evaluated != 0 {
		t.Fatal("short series must not count as evaluated")
	}
}

func TestScreenInstrument_FixedTierPricing(t *testing.T) {
	cfg, _ := FromName(StrategyMomentumTrend)
	cfg.MinLookback = 10
	r := &Runner{cfg: cfg, stages: passAtStage(40, 45), pricing: PricingFixedTiers, workers: 1}

	rec, stats := r.ScreenInstrument(domain.Instrument{Code: "005930", Name: "Samsung"}, flatSeries(60, 1000))
	if rec == nil {
		t.Fatal("expected a signal")
	}
	if rec.SignalIndex != 40 {
		t.Fatalf("forward scan picked index %d, want 40", rec.SignalIndex)
	}
	if stats.Selected != 1 {
		t.Fatalf("selected = %d, want 1", stats.Selected)
	}
	if rec.StopLoss != 920 || rec.TakeProfit1 != 1130 || rec.TakeProfit2 != 1210 {
		t.Fatalf("tier prices = %.0f/%.0f/%.0f, want 920/1130/1210",
			rec.StopLoss, rec.TakeProfit1, rec.TakeProfit2)
	}
	if rec.StopLossPct != -8.0 || rec.TakeProfit1Pct != 13.0 || rec.TakeProfit2Pct != 21.0 {
		t.Fatalf("tier pcts = %.1f/%.1f/%.1f", rec.StopLossPct, rec.TakeProfit1Pct, rec.TakeProfit2Pct)
	}
	if len(rec.SignalID) != 64 {
		t.Fatalf("signal id length = %d, want 64", len(rec.SignalID))
	}
}

func TestScreenInstrument_SupportRiskPricing(t *testing.T) {
	cfg, _ := FromName(StrategyMACDRSISeparation)
	cfg.MinLookback = 10
	r := &Runner{cfg: cfg, stages: passAtStage(50), pricing: PricingSupportRisk, workers: 1}

	series := flatSeries(60, 1000)
	series[45].Low = 900 // support inside the 12-bar reference window

	rec, _ := r.ScreenInstrument(domain.Instrument{Code: "000100"}, series)
	if rec == nil {
		t.Fatal("expected a signal")
	}
	if rec.StopLoss != 900 {
		t.Fatalf("stop = %.0f, want support low 900", rec.StopLoss)
	}
	if rec.StopLossPct != -10.0 {
		t.Fatalf("stop pct = %.2f, want -10", rec.StopLossPct)
	}
	if rec.TakeProfit2 != 1200 {
		t.Fatalf("target = %.0f, want entry plus twice the risk (1200)", rec.TakeProfit2)
	}
	if rec.TakeProfit1 != 0 {
		t.Fatalf("single-tier signal must not carry a tier-1 price, got %.0f", rec.TakeProfit1)
	}
}

func TestScreenInstrument_BackwardPicksLatest(t *testing.T) {
	cfg, _ := FromName(StrategyBollingerVolume)
	cfg.MinLookback = 10
	r := &Runner{cfg: cfg, stages: passAtStage(30, 50), pricing: PricingSupportRisk, workers: 1}

	rec, _ := r.ScreenInstrument(domain.Instrument{Code: "000200"}, flatSeries(60, 1000))
	if rec == nil {
		t.Fatal("expected a signal")
	}
	if rec.SignalIndex != 50 {
		t.Fatalf("backward scan picked index %d, want 50", rec.SignalIndex)
	}
}

func TestScreenInstrument_AtMostOneSignal(t *testing.T) {
	cfg, _ := FromName(StrategyMomentumTrend)
	cfg.MinLookback = 10
	r := &Runner{cfg: cfg, stages: passAtStage(20, 21, 22, 23), pricing: PricingFixedTiers, workers: 1}

	rec, stats := r.ScreenInstrument(domain.Instrument{Code: "000300"}, flatSeries(60, 1000))
	if rec == nil || stats.Selected != 1 {
		t.Fatalf("selected = %d, want exactly 1", stats.Selected)
	}
}

func TestScreenInstrument_ZeroEntrySkipsIndex(t *testing.T) {
	cfg, _ := FromName(StrategyMomentumTrend)
	cfg.MinLookback = 10
	r := &Runner{cfg: cfg, stages: passAtStage(20, 25), pricing: PricingFixedTiers, workers: 1}

	series := flatSeries(60, 1000)
	series[20].Close = 0

	rec, _ := r.ScreenInstrument(domain.Instrument{Code: "000400"}, series)
	if rec == nil {
		t.Fatal("expected the scan to move past the zero-price bar")
	}
	if rec.SignalIndex != 25 {
		t.Fatalf("signal index = %d, want 25", rec.SignalIndex)
	}
}

func TestRun_DeterministicAcrossWorkers(t *testing.T) {
	cfg, _ := FromName(StrategyMomentumTrend)
	cfg.MinLookback = 10

	src := &mapSource{
		insts: []domain.Instrument{{Code: "b"}, {Code: "a"}, {Code: "c"}},
		series: map[string]domain.Series{
			"a": flatSeries(60, 1000),
			"b": flatSeries(60, 2000),
			"c": flatSeries(5, 1000), // too short
		},
	}

	run := func(workers int) ([]domain.SignalRecord, Stats) {
		r := &Runner{cfg: cfg, stages: passAtStage(30), pricing: PricingFixedTiers, workers: workers}
		recs, stats, err := r.Run(context.Background(), src)
		if err != nil {
			t.Fatal(err)
		}
		return recs, stats
	}

	seq, seqStats := run(1)
	par, parStats := run(4)

	if len(seq) != 2 || len(par) != 2 {
		t.Fatalf("record counts = %d, %d, want 2 each", len(seq), len(par))
	}
	for i := range seq {
		if seq[i].SignalID != par[i].SignalID {
			t.Fatal("parallel run must match sequential run")
		}
	}
	if seq[0].Code != "a" || seq[1].Code != "b" {
		t.Fatal("records must be sorted by code")
	}
	if seqStats.Checked != parStats.Checked || seqStats.Selected != parStats.Selected {
		t.Fatal("stats must not depend on worker count")
	}
	if seqStats.Universe != 3 || seqStats.Evaluated != 2 {
		t.Fatalf("universe/evaluated = %d/%d, want 3/2", seqStats.Universe, seqStats.Evaluated)
	}
}
