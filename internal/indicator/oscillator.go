package indicator

// RSI computes Wilder's relative strength index. The first defined
// value, at index period, uses the simple mean of the first period
// deltas; later values use Wilder smoothing
// avg = (avg×(period−1) + new)/period. RSI is 100 whenever the average
// loss is zero.
func RSI(prices []float64, period int) Series {
	out := undefSeries(len(prices))
	if period <= 0 || len(prices) < period+1 {
		return out
	}

	gains := make([]float64, len(prices)-1)
	losses := make([]float64, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		delta := prices[i] - prices[i-1]
		if delta > 0 {
			gains[i-1] = delta
		} else {
			losses[i-1] = -delta
		}
	}

	avgGain := 0.0
	avgLoss := 0.0
	for i := 0; i < period; i++ {
		avgGain += gains[i]
		avgLoss += losses[i]
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)
	out[period] = Def(rsiFromAverages(avgGain, avgLoss))

	for i := period; i < len(gains); i++ {
		avgGain = (avgGain*float64(period-1) + gains[i]) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + losses[i]) / float64(period)
		out[i+1] = Def(rsiFromAverages(avgGain, avgLoss))
	}

	return out
}

// RSIWithSignal returns the RSI series plus its signalPeriod-bar simple
// average signal line.
func RSIWithSignal(prices []float64, period, signalPeriod int) (rsi, signal Series) {
	rsi = RSI(prices, period)
	signal = SMA(rsi, signalPeriod)
	return rsi, signal
}

func rsiFromAverages(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

// Stochastic computes the %K/%D oscillator pair. %K is 50 whenever the
// trailing high/low range is zero; %D is the dPeriod simple average of
// %K and inherits its warm-up.
func Stochastic(highs, lows, closes []float64, kPeriod, dPeriod int) (k, d Series) {
	k = undefSeries(len(closes))
	if kPeriod <= 0 || len(closes) < kPeriod {
		return k, undefSeries(len(closes))
	}

	for i := kPeriod - 1; i < len(closes); i++ {
		periodHigh := highs[i-kPeriod+1]
		periodLow := lows[i-kPeriod+1]
		for j := i - kPeriod + 2; j <= i; j++ {
			if highs[j] > periodHigh {
				periodHigh = highs[j]
			}
			if lows[j] < periodLow {
				periodLow = lows[j]
			}
		}

		if periodHigh == periodLow {
			k[i] = Def(50)
			continue
		}
		k[i] = Def((closes[i] - periodLow) / (periodHigh - periodLow) * 100)
	}

	d = SMA(k, dPeriod)
	return k, d
}
