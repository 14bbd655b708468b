package screening

import (
	"errors"

	"github.com/skpark33/bnf-stock/internal/domain"
	"github.com/skpark33/bnf-stock/internal/pipeline"
)

// Strategy names accepted by FromName.
const (
	StrategyMomentumTrend     = "momentum_trend"
	StrategyAlignMomentum     = "align_momentum"
	StrategyBollingerVolume   = "bollinger_volume"
	StrategyMACDRSISeparation = "macd_rsi_separation"
)

var ErrUnknownStrategy = errors.New("unknown strategy")

// Fixed tier percentages used by the breakout strategies.
const (
	fixedStopRatio  = 0.92
	fixedStopPct    = -8.0
	fixedTier1Ratio = 1.13
	fixedTier1Pct   = 13.0
	fixedTier2Ratio = 1.21
	fixedTier2Pct   = 21.0
)

// Window sizes for the lookback gates, in bars including the evaluated
// bar. Fixed across the strategy family.
const (
	bbTouchWindow     = 4
	rsiRecoveryWindow = 11
	macdCrossWindow   = 11
	priorCrossWindow  = 10
)

// PricingMode selects how a signal's exit prices are derived.
type PricingMode int

const (
	// PricingFixedTiers uses fixed percentages off the entry price.
	PricingFixedTiers PricingMode = iota
	// PricingSupportRisk stops at the support low and targets twice
	// the stop distance.
	PricingSupportRisk
)

// FromName returns the default configuration for a named strategy.
// Callers overlay the scan window and any threshold overrides.
func FromName(name string) (domain.ScreenConfig, error) {
	switch name {
	case StrategyMomentumTrend:
		return domain.ScreenConfig{
			Strategy:    name,
			Direction:   domain.ScanForward,
			MinLookback: 120,
			LowPeriod:   20,
			ExitMode:    domain.ExitTwoTier,
			Settings: domain.StageSettings{
				VolumeSurgeRatio:  2.0,
				HighProximityLow:  0.95,
				HighProximityHigh: 1.02,
			},
		}, nil
	case StrategyAlignMomentum:
		return domain.ScreenConfig{
			Strategy:    name,
			Direction:   domain.ScanForward,
			MinLookback: 120,
			LowPeriod:   20,
			ExitMode:    domain.ExitTwoTier,
			Settings: domain.StageSettings{
				StochCeiling: 80,
				ADXMin:       25,
				RSIBandLow:   30,
				RSIBandHigh:  70,
			},
		}, nil
	case StrategyBollingerVolume:
		return domain.ScreenConfig{
			Strategy:    name,
			Direction:   domain.ScanBackward,
			MinLookback: 120,
			LowPeriod:   20,
			ExitMode:    domain.ExitSingleTier,
			Settings: domain.StageSettings{
				VolumeSurgeRatio: 1.5,
				RSIRecoveryFloor: 40,
				RSIRecoveryDelta: 5,
				CrossLookback:    macdCrossWindow,
			},
		}, nil
	case StrategyMACDRSISeparation:
		return domain.ScreenConfig{
			Strategy:    name,
			Direction:   domain.ScanBackward,
			MinLookback: 35,
			LowPeriod:   12,
			ExitMode:    domain.ExitSingleTier,
			Settings: domain.StageSettings{
				CrossLookback: priorCrossWindow,
			},
		}, nil
	default:
		return domain.ScreenConfig{}, ErrUnknownStrategy
	}
}

// pricingMode maps a strategy to its exit-price family.
func pricingMode(strategy string) PricingMode {
	switch strategy {
	case StrategyBollingerVolume, StrategyMACDRSISeparation:
		return PricingSupportRisk
	default:
		return PricingFixedTiers
	}
}

// buildStages assembles the strategy's ordered gate chain, honoring
// per-stage disable toggles.
func buildStages(cfg domain.ScreenConfig) ([]pipeline.Stage, error) {
	s := cfg.Settings
	var chain []pipeline.Stage
	switch cfg.Strategy {
	case StrategyMomentumTrend:
		chain = []pipeline.Stage{
			pipeline.TrendFilter(),
			pipeline.HighProximity(s.HighProximityLow, s.HighProximityHigh),
			pipeline.VolumeSurge(s.VolumeSurgeRatio),
			pipeline.MACDMomentum(),
		}
	case StrategyAlignMomentum:
		chain = []pipeline.Stage{
			pipeline.MAAlignment(),
			pipeline.VolumeTrend(),
			pipeline.StochGoldenCross(s.StochCeiling),
			pipeline.ADXStrength(s.ADXMin),
			pipeline.MACDMomentum(),
			pipeline.RSIBand(s.RSIBandLow, s.RSIBandHigh),
		}
	case StrategyBollingerVolume:
		chain = []pipeline.Stage{
			pipeline.TrendFilter(),
			pipeline.BBLowerTouch(bbTouchWindow),
			pipeline.BBMiddleBreak(),
			pipeline.VolumeSurge(s.VolumeSurgeRatio),
			pipeline.RSIRecovery(s.RSIRecoveryFloor, s.RSIRecoveryDelta, rsiRecoveryWindow),
			pipeline.MACDGoldenCross(s.CrossLookback),
		}
	case StrategyMACDRSISeparation:
		chain = []pipeline.Stage{
			pipeline.MACDGoldenCross(1),
			pipeline.RSIGoldenCrossBefore(s.CrossLookback),
			pipeline.MAGoldenCrossBefore(s.CrossLookback),
		}
	default:
		return nil, ErrUnknownStrategy
	}

	enabled := chain[:0:0]
	for _, st := range chain {
		if cfg.StageEnabled(st.Name) {
			enabled = append(enabled, st)
		}
	}
	if len(enabled) == 0 {
		return nil, pipeline.ErrNoStages
	}
	return enabled, nil
}
