package domain

// ScanDirection selects which passing index wins when several candidate
// indices satisfy every stage.
type ScanDirection int

const (
	// ScanForward walks the window oldest-first and keeps the earliest
	// passing index (captures the initial breakout).
	ScanForward ScanDirection = iota
	// ScanBackward walks the window newest-first and keeps the most
	// recent passing index (captures the freshest signal).
	ScanBackward
)

// ExitMode selects the take-profit plan replayed by the simulator.
type ExitMode int

const (
	// ExitTwoTier realizes 50% at tier-1 and the remainder at tier-2.
	ExitTwoTier ExitMode = iota
	// ExitSingleTier realizes 100% at tier-2 and never touches tier-1.
	ExitSingleTier
)

// StageSettings holds per-stage numeric thresholds. Presets populate
// every field their stages read; overlays replace whole values.
type StageSettings struct {
	VolumeSurgeRatio  float64 // volume vs 20-day average, e.g. 2.0
	ADXMin            float64 // e.g. 25
	RSIBandLow        float64 // e.g. 30
	RSIBandHigh       float64 // e.g. 70
	StochCeiling      float64 // golden cross rejected above this, e.g. 80
	HighProximityLow  float64 // close vs prior rolling high, e.g. 0.95
	HighProximityHigh float64 // e.g. 1.02
	RSIRecoveryFloor  float64 // prior dip must reach this, e.g. 40
	RSIRecoveryDelta  float64 // required rise from the dip, e.g. 5
	CrossLookback     int     // bars searched for recent cross/touch gates
}

// ScreenConfig drives one screening run.
type ScreenConfig struct {
	Strategy  string
	StartDate string // scan window, YYYYMMDD inclusive
	EndDate   string

	Direction   ScanDirection
	MinLookback int // longest single warm-up among indicators used
	LowPeriod   int // support/resistance reference lookback

	// Stage toggles by stage name; a missing entry means enabled.
	DisabledStages map[string]bool
	Settings       StageSettings

	ExitMode ExitMode
}

// StageEnabled reports whether a named stage participates in the run.
func (c *ScreenConfig) StageEnabled(name string) bool {
	if c.DisabledStages == nil {
		return true
	}
	return !c.DisabledStages[name]
}
