package pipeline

import (
	"github.com/skpark33/bnf-stock/internal/domain"
	"github.com/skpark33/bnf-stock/internal/indicator"
)

// Indicator periods shared by the strategy family.
const (
	PeriodMA5   = 5
	PeriodMA20  = 20
	PeriodMA60  = 60
	PeriodMA120 = 120

	PeriodVolumeShort = 5
	PeriodVolumeLong  = 20

	PeriodRollingHigh = 20

	PeriodStochK = 14
	PeriodStochD = 3

	PeriodADX = 14

	PeriodMACDFast   = 12
	PeriodMACDSlow   = 26
	PeriodMACDSignal = 9

	PeriodRSI       = 14
	PeriodRSISignal = 9

	PeriodBollinger = 20
	BollingerWidth  = 2.0
)

// Inputs bundles every aligned series a stage may evaluate. All slices
// share the bar series' length; derived series carry explicit undefined
// markers during warm-up.
type Inputs struct {
	Dates   []string
	Closes  []float64
	Highs   []float64
	Lows    []float64
	Volumes []float64

	MA5   indicator.Series
	MA20  indicator.Series
	MA60  indicator.Series
	MA120 indicator.Series

	VolMA5  indicator.Series
	VolMA20 indicator.Series

	RollingHigh indicator.Series

	StochK indicator.Series
	StochD indicator.Series

	ADX indicator.Series

	MACD       indicator.Series
	MACDSignal indicator.Series
	MACDHist   indicator.Series

	RSI       indicator.Series
	RSISignal indicator.Series

	BBMiddle indicator.Series
	BBUpper  indicator.Series
	BBLower  indicator.Series
}

// Build computes the full indicator set for one instrument's series.
// Every computation is pure; instruments can be built in parallel.
func Build(series domain.Series) *Inputs {
	closes := series.Closes()
	highs := series.Highs()
	lows := series.Lows()
	volumes := series.Volumes()

	dates := make([]string, len(series))
	for i, b := range series {
		dates[i] = b.Date
	}

	in := &Inputs{
		Dates:   dates,
		Closes:  closes,
		Highs:   highs,
		Lows:    lows,
		Volumes: volumes,
	}

	closeVals := indicator.FromFloats(closes)
	in.MA5 = indicator.SMA(closeVals, PeriodMA5)
	in.MA20 = indicator.SMA(closeVals, PeriodMA20)
	in.MA60 = indicator.SMA(closeVals, PeriodMA60)
	in.MA120 = indicator.SMA(closeVals, PeriodMA120)

	volVals := indicator.FromFloats(volumes)
	in.VolMA5 = indicator.SMA(volVals, PeriodVolumeShort)
	in.VolMA20 = indicator.SMA(volVals, PeriodVolumeLong)

	in.RollingHigh = indicator.HighestHigh(highs, PeriodRollingHigh)

	in.StochK, in.StochD = indicator.Stochastic(highs, lows, closes, PeriodStochK, PeriodStochD)
	in.ADX = indicator.ADX(highs, lows, closes, PeriodADX)
	in.MACD, in.MACDSignal, in.MACDHist = indicator.MACD(closes, PeriodMACDFast, PeriodMACDSlow, PeriodMACDSignal)
	in.RSI, in.RSISignal = indicator.RSIWithSignal(closes, PeriodRSI, PeriodRSISignal)
	in.BBMiddle, in.BBUpper, in.BBLower = indicator.Bollinger(closes, PeriodBollinger, BollingerWidth)

	return in
}

// Len returns the number of bars backing the inputs.
func (in *Inputs) Len() int {
	return len(in.Closes)
}

// CrossedAbove reports a golden cross: fast at or below slow at i−1,
// strictly above at i. Undefined samples on either side fail closed.
func CrossedAbove(fast, slow indicator.Series, i int) bool {
	prevFast, prevSlow := fast.At(i-1), slow.At(i-1)
	curFast, curSlow := fast.At(i), slow.At(i)
	if !prevFast.Valid || !prevSlow.Valid || !curFast.Valid || !curSlow.Valid {
		return false
	}
	return prevFast.Num <= prevSlow.Num && curFast.Num > curSlow.Num
}
