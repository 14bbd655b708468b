package domain

// SignalRecord is one selected entry signal for one instrument.
// At most one record exists per instrument per screening run; never
// mutated after creation.
type SignalRecord struct {
	SignalID string // deterministic hash
	Code     string
	Name     string
	Strategy string

	SignalDate  string
	SignalIndex int     // index into the instrument's full series
	EntryPrice  float64 // close at the signal index

	StopLoss       float64
	StopLossPct    float64
	TakeProfit1    float64 // zero in single-tier mode
	TakeProfit1Pct float64
	TakeProfit2    float64
	TakeProfit2Pct float64
	SupportLow     float64 // lowest low over the reference lookback

	Snapshot IndicatorSnapshot
}

// IndicatorSnapshot holds the indicator values observed at the signal
// index. Only the fields the strategy's stages use are populated; the
// rest stay zero.
type IndicatorSnapshot struct {
	MA5         float64
	MA20        float64
	MA60        float64
	MA120       float64
	VolumeRatio float64
	StochK      float64
	StochD      float64
	ADX         float64
	MACD        float64
	MACDSignal  float64
	RSI         float64
}

// Exit reason codes for simulated positions.
const (
	ExitStopLoss    = "stop_loss"
	ExitTakeProfit  = "take_profit"   // single-tier full exit
	ExitTakeProfit1 = "take_profit_1" // first tier fired, position still open
	ExitTakeProfit2 = "take_profit_2"
	ExitHolding50   = "holding_50"
	ExitHolding100  = "holding_100"
)

// ExitResult is the outcome of replaying one signal against forward bars.
type ExitResult struct {
	SignalID   string
	Code       string
	Strategy   string
	EntryDate  string
	EntryPrice float64 // next bar's open, not the signal close
	ExitDate   string
	ExitReason string
	ReturnPct  float64 // position-fraction-weighted total return

	// First partial realization, when a tier-1 exit preceded the final
	// one. Equal to ExitDate/ExitReason otherwise.
	FirstExitDate   string
	FirstExitReason string
}

// Win reports whether the realized return is positive.
func (r *ExitResult) Win() bool {
	return r.ReturnPct > 0
}
