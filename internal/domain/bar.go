package domain

// Bar represents one trading day's prices and volume for one instrument.
// Bars are immutable once loaded.
type Bar struct {
	Date   string // trading date, YYYYMMDD (sortable)
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume int64
}

// Series is a date-ordered bar sequence for one instrument.
// Non-trading days are not present; indices are contiguous trading days.
type Series []Bar

// Closes extracts the close column.
func (s Series) Closes() []float64 {
	out := make([]float64, len(s))
	for i, b := range s {
		out[i] = b.Close
	}
	return out
}

// Highs extracts the high column.
func (s Series) Highs() []float64 {
	out := make([]float64, len(s))
	for i, b := range s {
		out[i] = b.High
	}
	return out
}

// Lows extracts the low column.
func (s Series) Lows() []float64 {
	out := make([]float64, len(s))
	for i, b := range s {
		out[i] = b.Low
	}
	return out
}

// Volumes extracts the volume column as floats for averaging.
func (s Series) Volumes() []float64 {
	out := make([]float64, len(s))
	for i, b := range s {
		out[i] = float64(b.Volume)
	}
	return out
}

// StockQuote is one instrument's entry inside a MarketDay record.
type StockQuote struct {
	Code   string  `json:"code"`
	Name   string  `json:"name"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume int64   `json:"volume"`
}

// MarketDay is one calendar day of the raw input feed: every listed
// instrument's OHLCV for that date. Holiday records carry no stocks.
type MarketDay struct {
	Date      string       `json:"date"`
	IsHoliday bool         `json:"is_holiday"`
	Stocks    []StockQuote `json:"stocks"`
}

// Instrument identifies one tradable equity in the universe.
type Instrument struct {
	Code string
	Name string
}
