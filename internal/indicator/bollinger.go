package indicator

// Bollinger computes the middle/upper/lower bands: middle is the
// period simple moving average, the bands sit k population standard
// deviations away.
func Bollinger(prices []float64, period int, k float64) (middle, upper, lower Series) {
	data := FromFloats(prices)
	middle = SMA(data, period)
	sigma := StdDev(data, period)

	upper = make(Series, len(prices))
	lower = make(Series, len(prices))
	for i := range prices {
		if !middle[i].Valid || !sigma[i].Valid {
			upper[i] = Undef()
			lower[i] = Undef()
			continue
		}
		upper[i] = Def(middle[i].Num + k*sigma[i].Num)
		lower[i] = Def(middle[i].Num - k*sigma[i].Num)
	}

	return middle, upper, lower
}
