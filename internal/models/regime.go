package models

// Regime classifies current volatility against recent history and carries
// the risk parameters that adapt entries to it.
type Regime struct {
	Name             string
	StopMultiplier   float64
	TargetMultiplier float64
	ZScoreThreshold  float64
	ConfidenceBonus  float64
}

var (
	LowRegime    = Regime{Name: "low", StopMultiplier: 0.8, TargetMultiplier: 0.9, ZScoreThreshold: 1.2, ConfidenceBonus: 0.05}
	NormalRegime = Regime{Name: "normal", StopMultiplier: 1.0, TargetMultiplier: 1.0, ZScoreThreshold: 1.5, ConfidenceBonus: 0}
	HighRegime   = Regime{Name: "high", StopMultiplier: 1.3, TargetMultiplier: 1.2, ZScoreThreshold: 2.0, ConfidenceBonus: -0.05}
)

// minRegimeSamples is the ATR history needed before percentile ranking is
// trusted; below it the rank is pinned to the neutral 0.5.
const minRegimeSamples = 20

// ATRPercentile ranks current within history as the fraction of samples
// strictly below it.
func ATRPercentile(history []float64, current float64) float64 {
	if len(history) < minRegimeSamples {
		return 0.5
	}
	below := 0
	for _, v := range history {
		if v < current {
			below++
		}
	}
	return float64(below) / float64(len(history))
}

// ClassifyRegime maps the current ATR's percentile rank within history to a
// volatility regime: low under 0.25, high above 0.75, normal between.
func ClassifyRegime(history []float64, current float64) Regime {
	p := ATRPercentile(history, current)
	switch {
	case p < 0.25:
		return LowRegime
	case p > 0.75:
		return HighRegime
	default:
		return NormalRegime
	}
}
