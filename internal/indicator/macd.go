package indicator

// MACD computes the moving average convergence/divergence line, its
// signal line and the histogram. The line is fastEMA−slowEMA and is
// undefined until both EMAs are defined. The signal line is the
// signalPeriod EMA of the MACD line with undefined samples substituted
// by zero before smoothing; the histogram is line−signal with full
// undefined propagation.
func MACD(prices []float64, fast, slow, signalPeriod int) (line, signal, histogram Series) {
	data := FromFloats(prices)
	fastEMA := EMA(data, fast)
	slowEMA := EMA(data, slow)

	line = make(Series, len(prices))
	for i := range line {
		line[i] = Sub(fastEMA[i], slowEMA[i])
	}

	signal = EMA(line.OrZero(), signalPeriod)

	histogram = make(Series, len(prices))
	for i := range histogram {
		histogram[i] = Sub(line[i], signal[i])
	}

	return line, signal, histogram
}
