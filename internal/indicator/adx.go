package indicator

import "math"

// ADX computes the average directional index. True range and the
// directional movements are Wilder-smoothed (first value a simple mean,
// then avg = (avg×(period−1) + new)/period); DI = 100×smoothedDM/ATR
// with DI = 0 when ATR is zero; DX = 100×|+DI−−DI|/(+DI+−DI) with
// DX = 0 when the sum is zero; ADX is the period-bar simple average
// of DX.
func ADX(highs, lows, closes []float64, period int) Series {
	adx, _, _ := ADXWithDI(highs, lows, closes, period)
	return adx
}

// ADXWithDI additionally exposes the +DI/−DI component series.
func ADXWithDI(highs, lows, closes []float64, period int) (adx, plusDI, minusDI Series) {
	n := len(closes)
	adx = undefSeries(n)
	plusDI = undefSeries(n)
	minusDI = undefSeries(n)
	if period <= 0 || n < period+1 {
		return adx, plusDI, minusDI
	}

	tr := make([]float64, n)     // tr[0] unused
	plusDM := make([]float64, n) // dm[0] unused
	minusDM := make([]float64, n)
	for i := 1; i < n; i++ {
		highLow := highs[i] - lows[i]
		highClose := math.Abs(highs[i] - closes[i-1])
		lowClose := math.Abs(lows[i] - closes[i-1])
		tr[i] = math.Max(highLow, math.Max(highClose, lowClose))

		upMove := highs[i] - highs[i-1]
		downMove := lows[i-1] - lows[i]
		if upMove > downMove && upMove > 0 {
			plusDM[i] = upMove
		}
		if downMove > upMove && downMove > 0 {
			minusDM[i] = downMove
		}
	}

	atr := wilderSmooth(tr, period)
	smPlus := wilderSmooth(plusDM, period)
	smMinus := wilderSmooth(minusDM, period)

	dx := undefSeries(n)
	for i := period; i < n; i++ {
		if !atr[i].Valid || !smPlus[i].Valid || !smMinus[i].Valid {
			continue
		}

		var pdi, mdi float64
		if atr[i].Num != 0 {
			pdi = smPlus[i].Num / atr[i].Num * 100
			mdi = smMinus[i].Num / atr[i].Num * 100
		}
		plusDI[i] = Def(pdi)
		minusDI[i] = Def(mdi)

		sum := pdi + mdi
		if sum == 0 {
			dx[i] = Def(0)
			continue
		}
		dx[i] = Def(math.Abs(pdi-mdi) / sum * 100)
	}

	adx = SMA(dx, period)
	return adx, plusDI, minusDI
}

// wilderSmooth smooths raw[1:] with Wilder's recurrence. raw[0] is a
// placeholder (true range and directional movements need a prior bar).
func wilderSmooth(raw []float64, period int) Series {
	out := undefSeries(len(raw))
	if len(raw) < period+1 {
		return out
	}

	sum := 0.0
	for i := 1; i <= period; i++ {
		sum += raw[i]
	}
	prev := sum / float64(period)
	out[period] = Def(prev)

	for i := period + 1; i < len(raw); i++ {
		prev = (prev*float64(period-1) + raw[i]) / float64(period)
		out[i] = Def(prev)
	}

	return out
}
