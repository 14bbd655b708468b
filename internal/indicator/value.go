package indicator

// Value is one sample of an indicator series: either a number or an
// explicit undefined marker. Undefined samples appear before an
// indicator's warm-up length is reached and propagate through derived
// indicators.
type Value struct {
	Num   float64
	Valid bool
}

// Def wraps a defined sample.
func Def(v float64) Value {
	return Value{Num: v, Valid: true}
}

// Undef returns the undefined marker.
func Undef() Value {
	return Value{}
}

// Sub returns a−b, undefined when either operand is undefined.
func Sub(a, b Value) Value {
	if !a.Valid || !b.Valid {
		return Undef()
	}
	return Def(a.Num - b.Num)
}

// Series is a same-length-as-input sequence of indicator samples.
type Series []Value

// FromFloats wraps a raw numeric column as a fully defined series.
func FromFloats(data []float64) Series {
	out := make(Series, len(data))
	for i, v := range data {
		out[i] = Def(v)
	}
	return out
}

// OrZero substitutes zero for undefined samples. The MACD signal line
// is seeded this way, matching the family's published values.
func (s Series) OrZero() Series {
	out := make(Series, len(s))
	for i, v := range s {
		if v.Valid {
			out[i] = v
		} else {
			out[i] = Def(0)
		}
	}
	return out
}

// At returns the sample at i, undefined when i is out of range.
func (s Series) At(i int) Value {
	if i < 0 || i >= len(s) {
		return Undef()
	}
	return s[i]
}

// undefSeries allocates an all-undefined series of length n.
func undefSeries(n int) Series {
	return make(Series, n)
}
