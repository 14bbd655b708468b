package pipeline

import "github.com/skpark33/bnf-stock/internal/indicator"

// Stage names, in the order the strategy variants chain them. Funnel
// diagnostics and configuration toggles key off these.
const (
	StageTrendFilter      = "trend_filter"
	StageMAAlignment      = "ma_alignment"
	StageVolumeTrend      = "volume_trend"
	StageVolumeSurge      = "volume_surge"
	StageHighProximity    = "high_proximity"
	StageStochGoldenCross = "stoch_golden_cross"
	StageADXStrength      = "adx_strength"
	StageMACDMomentum     = "macd_momentum"
	StageMACDGoldenCross  = "macd_golden_cross"
	StageRSIGoldenCross   = "rsi_golden_cross"
	StageMAGoldenCross    = "ma_golden_cross"
	StageRSIBand          = "rsi_band"
	StageRSIRecovery      = "rsi_recovery"
	StageBBLowerTouch     = "bb_lower_touch"
	StageBBMiddleBreak    = "bb_middle_break"
)

// TrendFilter requires the medium-term average above the long-term one
// and the close above the medium-term average.
func TrendFilter() Stage {
	return Stage{Name: StageTrendFilter, Check: func(in *Inputs, i int) bool {
		ma60, ma120 := in.MA60.At(i), in.MA120.At(i)
		if !ma60.Valid || !ma120.Valid {
			return false
		}
		return ma60.Num > ma120.Num && in.Closes[i] > ma60.Num
	}}
}

// MAAlignment requires a strict bullish stack of all four averages.
func MAAlignment() Stage {
	return Stage{Name: StageMAAlignment, Check: func(in *Inputs, i int) bool {
		ma5, ma20, ma60, ma120 := in.MA5.At(i), in.MA20.At(i), in.MA60.At(i), in.MA120.At(i)
		if !ma5.Valid || !ma20.Valid || !ma60.Valid || !ma120.Valid {
			return false
		}
		return ma5.Num > ma20.Num && ma20.Num > ma60.Num && ma60.Num > ma120.Num
	}}
}

// VolumeTrend requires the short volume average above the long one.
func VolumeTrend() Stage {
	return Stage{Name: StageVolumeTrend, Check: func(in *Inputs, i int) bool {
		short, long := in.VolMA5.At(i), in.VolMA20.At(i)
		if !short.Valid || !long.Valid {
			return false
		}
		return short.Num > long.Num
	}}
}

// VolumeSurge requires the bar's volume to reach ratio times the long
// volume average. A zero average never qualifies.
func VolumeSurge(ratio float64) Stage {
	return Stage{Name: StageVolumeSurge, Check: func(in *Inputs, i int) bool {
		long := in.VolMA20.At(i)
		if !long.Valid || long.Num <= 0 {
			return false
		}
		return in.Volumes[i] >= long.Num*ratio
	}}
}

// HighProximity requires the close to sit inside a band below the prior
// bar's rolling high, expressed as fractions of that high.
func HighProximity(low, high float64) Stage {
	return Stage{Name: StageHighProximity, Check: func(in *Inputs, i int) bool {
		if i < 1 {
			return false
		}
		rh := in.RollingHigh.At(i - 1)
		if !rh.Valid || rh.Num <= 0 {
			return false
		}
		c := in.Closes[i]
		return c >= rh.Num*low && c <= rh.Num*high
	}}
}

// StochGoldenCross requires %K to cross above %D at i with both lines
// at or below the ceiling.
func StochGoldenCross(ceiling float64) Stage {
	return Stage{Name: StageStochGoldenCross, Check: func(in *Inputs, i int) bool {
		k, d := in.StochK.At(i), in.StochD.At(i)
		if !k.Valid || !d.Valid {
			return false
		}
		if k.Num > ceiling || d.Num > ceiling {
			return false
		}
		return CrossedAbove(in.StochK, in.StochD, i)
	}}
}

// ADXStrength requires the trend strength reading above the floor.
func ADXStrength(min float64) Stage {
	return Stage{Name: StageADXStrength, Check: func(in *Inputs, i int) bool {
		adx := in.ADX.At(i)
		return adx.Valid && adx.Num > min
	}}
}

// MACDMomentum requires the MACD line strictly above its signal line.
func MACDMomentum() Stage {
	return Stage{Name: StageMACDMomentum, Check: func(in *Inputs, i int) bool {
		line, sig := in.MACD.At(i), in.MACDSignal.At(i)
		if !line.Valid || !sig.Valid {
			return false
		}
		return line.Num > sig.Num
	}}
}

// MACDGoldenCross requires a MACD cross above its signal, with a
// positive histogram on the cross bar, within the last lookback bars
// including bar i.
func MACDGoldenCross(lookback int) Stage {
	return Stage{Name: StageMACDGoldenCross, Check: func(in *Inputs, i int) bool {
		from := i - lookback + 1
		if from < 1 {
			from = 1
		}
		for j := from; j <= i; j++ {
			if !CrossedAbove(in.MACD, in.MACDSignal, j) {
				continue
			}
			hist := in.MACDHist.At(j)
			if hist.Valid && hist.Num > 0 {
				return true
			}
		}
		return false
	}}
}

// RSIGoldenCrossBefore requires the RSI to have crossed above its
// signal line strictly before bar i, within the last lookback bars.
func RSIGoldenCrossBefore(lookback int) Stage {
	return Stage{Name: StageRSIGoldenCross, Check: func(in *Inputs, i int) bool {
		return crossedBefore(in.RSI, in.RSISignal, i, lookback)
	}}
}

// MAGoldenCrossBefore requires the short average to have crossed above
// the medium one strictly before bar i, within the last lookback bars.
func MAGoldenCrossBefore(lookback int) Stage {
	return Stage{Name: StageMAGoldenCross, Check: func(in *Inputs, i int) bool {
		return crossedBefore(in.MA5, in.MA20, i, lookback)
	}}
}

func crossedBefore(fast, slow indicator.Series, i, lookback int) bool {
	from := i - lookback + 1
	if from < 1 {
		from = 1
	}
	for j := i - 1; j >= from; j-- {
		if CrossedAbove(fast, slow, j) {
			return true
		}
	}
	return false
}

// RSIBand requires the RSI inside the inclusive [low, high] band.
func RSIBand(low, high float64) Stage {
	return Stage{Name: StageRSIBand, Check: func(in *Inputs, i int) bool {
		rsi := in.RSI.At(i)
		return rsi.Valid && rsi.Num >= low && rsi.Num <= high
	}}
}

// RSIRecovery requires an oversold dip at or below floor within the
// last lookback bars (bar i included) followed by a rebound of at
// least delta above the dip's low by bar i.
func RSIRecovery(floor, delta float64, lookback int) Stage {
	return Stage{Name: StageRSIRecovery, Check: func(in *Inputs, i int) bool {
		cur := in.RSI.At(i)
		if !cur.Valid {
			return false
		}
		from := i - lookback + 1
		if from < 0 {
			from = 0
		}
		min := cur
		dipped := false
		for j := from; j <= i; j++ {
			v := in.RSI.At(j)
			if !v.Valid {
				continue
			}
			if v.Num < min.Num {
				min = v
			}
			if v.Num <= floor {
				dipped = true
			}
		}
		return dipped && cur.Num >= min.Num+delta
	}}
}

// BBLowerTouch requires a bar low at or below the lower band within the
// last lookback bars, bar i included.
func BBLowerTouch(lookback int) Stage {
	return Stage{Name: StageBBLowerTouch, Check: func(in *Inputs, i int) bool {
		from := i - lookback + 1
		if from < 0 {
			from = 0
		}
		for j := from; j <= i; j++ {
			lower := in.BBLower.At(j)
			if lower.Valid && in.Lows[j] <= lower.Num {
				return true
			}
		}
		return false
	}}
}

// BBMiddleBreak requires the close strictly above the middle band.
func BBMiddleBreak() Stage {
	return Stage{Name: StageBBMiddleBreak, Check: func(in *Inputs, i int) bool {
		mid := in.BBMiddle.At(i)
		return mid.Valid && in.Closes[i] > mid.Num
	}}
}
