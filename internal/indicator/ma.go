package indicator

import "math"

// SMA computes the simple moving average. Element i is defined only
// when the trailing window of length period is fully inside the series
// and every sample in it is defined; a single undefined sample leaves
// the whole window undefined (no partial computation).
func SMA(data Series, period int) Series {
	out := undefSeries(len(data))
	if period <= 0 || len(data) < period {
		return out
	}

	for i := period - 1; i < len(data); i++ {
		sum := 0.0
		valid := true
		for j := i - period + 1; j <= i; j++ {
			if !data[j].Valid {
				valid = false
				break
			}
			sum += data[j].Num
		}
		if valid {
			out[i] = Def(sum / float64(period))
		}
	}

	return out
}

// EMA computes the exponential moving average with multiplier
// 2/(period+1). The first defined value is the simple average of the
// first period samples. Fewer than period samples, or an undefined
// sample before the stream ends, leaves the remainder undefined.
func EMA(data Series, period int) Series {
	out := undefSeries(len(data))
	if period <= 0 || len(data) < period {
		return out
	}

	sum := 0.0
	for i := 0; i < period; i++ {
		if !data[i].Valid {
			return out
		}
		sum += data[i].Num
	}
	prev := sum / float64(period)
	out[period-1] = Def(prev)

	multiplier := 2 / float64(period+1)
	for i := period; i < len(data); i++ {
		if !data[i].Valid {
			return out
		}
		prev = (data[i].Num-prev)*multiplier + prev
		out[i] = Def(prev)
	}

	return out
}

// HighestHigh returns the rolling maximum over the trailing period.
func HighestHigh(data []float64, period int) Series {
	out := undefSeries(len(data))
	if period <= 0 || len(data) < period {
		return out
	}

	for i := period - 1; i < len(data); i++ {
		max := data[i-period+1]
		for j := i - period + 2; j <= i; j++ {
			if data[j] > max {
				max = data[j]
			}
		}
		out[i] = Def(max)
	}

	return out
}

// LowestLow returns the rolling minimum over the trailing period.
func LowestLow(data []float64, period int) Series {
	out := undefSeries(len(data))
	if period <= 0 || len(data) < period {
		return out
	}

	for i := period - 1; i < len(data); i++ {
		min := data[i-period+1]
		for j := i - period + 2; j <= i; j++ {
			if data[j] < min {
				min = data[j]
			}
		}
		out[i] = Def(min)
	}

	return out
}

// StdDev computes the population standard deviation over the trailing
// window (divides by period, not period−1).
func StdDev(data Series, period int) Series {
	out := undefSeries(len(data))
	if period <= 0 || len(data) < period {
		return out
	}

	for i := period - 1; i < len(data); i++ {
		sum := 0.0
		valid := true
		for j := i - period + 1; j <= i; j++ {
			if !data[j].Valid {
				valid = false
				break
			}
			sum += data[j].Num
		}
		if !valid {
			continue
		}
		mean := sum / float64(period)

		variance := 0.0
		for j := i - period + 1; j <= i; j++ {
			d := data[j].Num - mean
			variance += d * d
		}
		variance /= float64(period)
		out[i] = Def(math.Sqrt(variance))
	}

	return out
}
