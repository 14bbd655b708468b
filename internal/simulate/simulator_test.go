package simulate

import (
	"testing"

	"github.com/skpark33/bnf-stock/internal/domain"
)

func twoTierSignal() *domain.SignalRecord {
	return &domain.SignalRecord{
		SignalID:    "sig",
		Code:        "005930",
		Strategy:    "momentum_trend",
		SignalDate:  "20240102",
		SignalIndex: 0,
		StopLoss:    920,
		TakeProfit1: 1130,
		TakeProfit2: 1210,
	}
}

func bar(date string, open, high, low, close float64) domain.Bar {
	return domain.Bar{Date: date, Open: open, High: high, Low: low, Close: close, Volume: 1000}
}

func TestSimulate_TwoTierSeparateBars(t *testing.T) {
	series := domain.Series{
		bar("20240102", 990, 1000, 980, 1000), // signal bar
		bar("20240103", 1000, 1050, 990, 1040),
		bar("20240104", 1040, 1140, 1030, 1120), // tier-1
		bar("20240105", 1120, 1220, 1100, 1200), // tier-2
	}

	res, ok := Simulate(twoTierSignal(), series, domain.ExitTwoTier)
	if !ok {
		t.Fatal("expected a result")
	}
	if res.EntryPrice != 1000 || res.EntryDate != "20240103" {
		t.Fatalf("entry = %.0f @ %s, want next-day open 1000 @ 20240103", res.EntryPrice, res.EntryDate)
	}
	if res.ReturnPct != 17.0 {
		t.Fatalf("return = %.2f, want 17.00 (0.5x13 + 0.5x21)", res.ReturnPct)
	}
	if res.ExitReason != domain.ExitTakeProfit2 || res.ExitDate != "20240105" {
		t.Fatalf("exit = %s @ %s", res.ExitReason, res.ExitDate)
	}
	if res.FirstExitReason != domain.ExitTakeProfit1 || res.FirstExitDate != "20240104" {
		t.Fatalf("first exit = %s @ %s", res.FirstExitReason, res.FirstExitDate)
	}
}

func TestSimulate_StopDominatesSameBar(t *testing.T) {
	series := domain.Series{
		bar("20240102", 990, 1000, 980, 1000),
		bar("20240103", 1000, 1140, 900, 1100), // breaches stop and tier-1 together
	}

	res, ok := Simulate(twoTierSignal(), series, domain.ExitTwoTier)
	if !ok {
		t.Fatal("expected a result")
	}
	if res.ExitReason != domain.ExitStopLoss {
		t.Fatalf("exit = %s, want stop_loss to dominate same-bar take-profit", res.ExitReason)
	}
	if res.ReturnPct != -8.0 {
		t.Fatalf("return = %.2f, want -8.00", res.ReturnPct)
	}
}

func TestSimulate_NoRetroactiveStopAfterTier1(t *testing.T) {
	series := domain.Series{
		bar("20240102", 990, 1000, 980, 1000),
		bar("20240103", 1000, 1140, 990, 1120), // tier-1 realized
		bar("20240104", 1120, 1150, 900, 950),  // stop hits the remaining half only
	}

	res, ok := Simulate(twoTierSignal(), series, domain.ExitTwoTier)
	if !ok {
		t.Fatal("expected a result")
	}
	if res.ExitReason != domain.ExitStopLoss {
		t.Fatalf("exit = %s, want stop_loss", res.ExitReason)
	}
	// 0.5 x 13% stays realized; only the remaining 0.5 takes -8%.
	if res.ReturnPct != 2.5 {
		t.Fatalf("return = %.2f, want 2.50", res.ReturnPct)
	}
	if res.FirstExitReason != domain.ExitTakeProfit1 {
		t.Fatalf("first exit = %s, want take_profit_1", res.FirstExitReason)
	}
}

func TestSimulate_BothTiersSameBar(t *testing.T) {
	series := domain.Series{
		bar("20240102", 990, 1000, 980, 1000),
		bar("20240103", 1000, 1250, 995, 1240),
	}

	res, ok := Simulate(twoTierSignal(), series, domain.ExitTwoTier)
	if !ok {
		t.Fatal("expected a result")
	}
	if res.ReturnPct != 17.0 {
		t.Fatalf("return = %.2f, want 17.00", res.ReturnPct)
	}
	if res.ExitReason != domain.ExitTakeProfit2 || res.ExitDate != "20240103" {
		t.Fatalf("exit = %s @ %s", res.ExitReason, res.ExitDate)
	}
}

func TestSimulate_HoldingExits(t *testing.T) {
	flat := domain.Series{
		bar("20240102", 990, 1000, 980, 1000),
		bar("20240103", 1000, 1050, 990, 1050),
	}
	res, _ := Simulate(twoTierSignal(), flat, domain.ExitTwoTier)
	if res.ExitReason != domain.ExitHolding100 {
		t.Fatalf("exit = %s, want holding_100", res.ExitReason)
	}
	if res.ReturnPct != 5.0 {
		t.Fatalf("return = %.2f, want 5.00", res.ReturnPct)
	}

	partial := domain.Series{
		bar("20240102", 990, 1000, 980, 1000),
		bar("20240103", 1000, 1140, 990, 1120), // tier-1
		bar("20240104", 1120, 1125, 1000, 1000),
	}
	res, _ = Simulate(twoTierSignal(), partial, domain.ExitTwoTier)
	if res.ExitReason != domain.ExitHolding50 {
		t.Fatalf("exit = %s, want holding_50", res.ExitReason)
	}
	if res.ReturnPct != 6.5 {
		t.Fatalf("return = %.2f, want 6.50 (0.5x13 + 0.5x0)", res.ReturnPct)
	}
}

func TestSimulate_SingleTierSkipsTier1(t *testing.T) {
	series := domain.Series{
		bar("20240102", 990, 1000, 980, 1000),
		bar("20240103", 1000, 1140, 990, 1120), // tier-1 level, must be ignored
		bar("20240104", 1120, 1220, 1100, 1200),
	}

	res, ok := Simulate(twoTierSignal(), series, domain.ExitSingleTier)
	if !ok {
		t.Fatal("expected a result")
	}
	if res.ExitReason != domain.ExitTakeProfit {
		t.Fatalf("exit = %s, want take_profit", res.ExitReason)
	}
	if res.ReturnPct != 21.0 {
		t.Fatalf("return = %.2f, want 21.00", res.ReturnPct)
	}
	if res.ExitDate != "20240104" {
		t.Fatalf("exit date = %s, want 20240104", res.ExitDate)
	}
}

func TestSimulate_UntradableSignals(t *testing.T) {
	// Signal on the last bar: no next-day open exists.
	last := domain.Series{bar("20240102", 990, 1000, 980, 1000)}
	if _, ok := Simulate(twoTierSignal(), last, domain.ExitTwoTier); ok {
		t.Fatal("signal on the final bar must be skipped")
	}

	// Zero open on the entry bar.
	zero := domain.Series{
		bar("20240102", 990, 1000, 980, 1000),
		bar("20240103", 0, 1050, 990, 1040),
	}
	if _, ok := Simulate(twoTierSignal(), zero, domain.ExitTwoTier); ok {
		t.Fatal("zero entry open must be skipped")
	}
}

func TestSimulate_RealignsShiftedSeries(t *testing.T) {
	// The stored index points past the signal date when the series is
	// loaded over a shorter window. The date decides the entry bar.
	sig := twoTierSignal()
	sig.SignalIndex = 3
	series := domain.Series{
		bar("20240102", 990, 1000, 980, 1000), // signal bar, index 0 here
		bar("20240103", 1000, 1050, 990, 1040),
		bar("20240104", 1040, 1140, 1030, 1120),
		bar("20240105", 1120, 1220, 1100, 1200),
	}

	res, ok := Simulate(sig, series, domain.ExitTwoTier)
	if !ok {
		t.Fatal("expected a result")
	}
	if res.EntryPrice != 1000 || res.EntryDate != "20240103" {
		t.Fatalf("entry = %.0f @ %s, want 1000 @ 20240103", res.EntryPrice, res.EntryDate)
	}
	if res.ReturnPct != 17.0 {
		t.Fatalf("return = %.2f, want 17.00", res.ReturnPct)
	}
}

func TestSimulate_SignalDateOutsideSeries(t *testing.T) {
	sig := twoTierSignal() // 20240102
	series := domain.Series{
		bar("20240108", 990, 1000, 980, 1000),
		bar("20240109", 1000, 1250, 995, 1240),
	}

	if _, ok := Simulate(sig, series, domain.ExitTwoTier); ok {
		t.Fatal("signal date missing from the series must be skipped")
	}
}

type mapSource map[string]domain.Series

func (m mapSource) Series(code string) (domain.Series, bool) {
	s, ok := m[code]
	return s, ok
}

func TestSimulateAll_SkipsMissingSeries(t *testing.T) {
	signals := []domain.SignalRecord{
		*twoTierSignal(),
		{SignalID: "missing", Code: "999999", SignalIndex: 0},
	}
	src := mapSource{
		"005930": domain.Series{
			bar("20240102", 990, 1000, 980, 1000),
			bar("20240103", 1000, 1250, 995, 1240),
		},
	}

	results := SimulateAll(signals, src, domain.ExitTwoTier)
	if len(results) != 1 {
		t.Fatalf("results = %d, want 1", len(results))
	}
	if results[0].SignalID != "sig" {
		t.Fatalf("unexpected result %s", results[0].SignalID)
	}
}
