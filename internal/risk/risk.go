// Package risk converts fused confidence and the volatility regime into
// concrete stop, target, breakeven, and trailing levels.
package risk

import (
	"math"

	"sigflow-go/internal/models"
	"sigflow-go/internal/signal"
)

// Clamps on regime-adjusted tick distances.
const (
	minStopTicks   = 6
	maxStopTicks   = 12
	maxTargetTicks = 24
	// targetStopRatio is the minimum reward:risk expressed in ticks.
	targetStopRatio = 1.5
)

// Config carries the base trade geometry before regime adjustment.
type Config struct {
	BaseStopTicks   int
	BaseTargetTicks int
	BreakevenTicks  int
	ProfitLockPct   float64
}

// DefaultConfig returns the standard base geometry.
func DefaultConfig() Config {
	return Config{BaseStopTicks: 8, BaseTargetTicks: 16, BreakevenTicks: 4, ProfitLockPct: 0.5}
}

// Params is the fully resolved risk geometry for one signal.
type Params struct {
	StopTicks          int
	TargetTicks        int
	TrailTriggerTicks  int
	TrailDistanceTicks int
	StopLoss           float64
	TakeProfit         float64
	BreakevenLevel     float64
	ProfitLockLevel    float64
	RiskReward         float64
	WinProbability     float64
	Edge               float64
	Strength           signal.Strength
}

// Parameterize resolves price levels for a signal at entry. The stop is the
// regime-scaled base clamped to [6,12] ticks; the target is the regime-scaled
// base clamped between 1.5x the stop and 24 ticks. Edge is the expected value
// per unit in tick-value terms.
func Parameterize(dir signal.Direction, entry, tickSize, tickValue, confidence float64, regime models.Regime, cfg Config) Params {
	stop := int(math.Round(float64(cfg.BaseStopTicks) * regime.StopMultiplier))
	if stop < minStopTicks {
		stop = minStopTicks
	}
	if stop > maxStopTicks {
		stop = maxStopTicks
	}

	target := int(math.Round(float64(cfg.BaseTargetTicks) * regime.TargetMultiplier))
	if minTarget := int(math.Ceil(float64(stop) * targetStopRatio)); target < minTarget {
		target = minTarget
	}
	if target > maxTargetTicks {
		target = maxTargetTicks
	}

	sign := 1.0
	if dir == signal.Short {
		sign = -1.0
	}

	p := Params{
		StopTicks:          stop,
		TargetTicks:        target,
		TrailTriggerTicks:  int(math.Round(float64(target) * 0.5)),
		TrailDistanceTicks: int(math.Round(float64(stop) * 0.4)),
		StopLoss:           entry - sign*float64(stop)*tickSize,
		TakeProfit:         entry + sign*float64(target)*tickSize,
		BreakevenLevel:     entry + sign*float64(cfg.BreakevenTicks)*tickSize,
		ProfitLockLevel:    entry + sign*float64(target)*cfg.ProfitLockPct*tickSize,
		RiskReward:         float64(target) / float64(stop),
	}

	p.WinProbability = 0.5 + (confidence-0.5)*0.4

	perTick := tickValue
	if perTick <= 0 {
		perTick = tickSize
	}
	reward := float64(target) * perTick
	riskDist := float64(stop) * perTick
	p.Edge = p.WinProbability*reward - (1-p.WinProbability)*riskDist

	p.Strength = classify(confidence)
	return p
}

func classify(confidence float64) signal.Strength {
	switch {
	case confidence >= 0.85:
		return signal.VeryStrong
	case confidence >= 0.75:
		return signal.Strong
	case confidence < 0.60:
		return signal.Weak
	default:
		return signal.Moderate
	}
}
