// Package fusion gates and combines the per-model outputs into a single
// directional confidence score.
package fusion

import (
	"math"

	"sigflow-go/internal/models"
	"sigflow-go/internal/signal"
)

// Rejection reasons reported for diagnostics and metrics.
const (
	RejectZScoreGate      = "zscore_gate"
	RejectToxicFlow       = "toxic_flow"
	RejectConfidenceFloor = "confidence_floor"
)

// Composite weights per model. They sum to 1 before the regime bonus.
const (
	weightZScore     = 0.30
	weightVPIN       = 0.15
	weightKyle       = 0.10
	weightKalman     = 0.15
	weightVolatility = 0.10
	weightOFI        = 0.20
)

// ofiDeadband is the minimum imbalance magnitude before order flow is
// allowed to confirm a direction.
const ofiDeadband = 0.10

// Config carries the fusion gate thresholds.
type Config struct {
	VPINToxicThreshold float64 // order flow above this is rejected outright
	ConfidenceFloor    float64 // composite confidence below this is rejected
}

// DefaultConfig returns the standard gate thresholds.
func DefaultConfig() Config {
	return Config{VPINToxicThreshold: 0.7, ConfidenceFloor: 0.55}
}

// Inputs bundles the model outputs for one instrument at one bar close.
type Inputs struct {
	ZScore         float64
	VPIN           float64
	KyleLambda     float64
	OFI            float64
	Price          float64 // latest close
	KalmanEstimate float64
	Regime         models.Regime
}

// Scores are the normalized 0..1 per-model contributions.
type Scores struct {
	ZScore     float64
	VPIN       float64
	Kyle       float64
	Kalman     float64
	Volatility float64
	OFI        float64
}

// Result describes an accepted fusion outcome.
type Result struct {
	Direction       signal.Direction
	Confidence      float64
	Scores          Scores
	OFIConfirmed    bool
	KalmanConfirmed bool
}

// Evaluate applies the gates in order and, when all pass, returns the fused
// result. A nil result carries the rejection reason.
func Evaluate(in Inputs, cfg Config) (*Result, string) {
	threshold := in.Regime.ZScoreThreshold
	if math.Abs(in.ZScore) < threshold {
		return nil, RejectZScoreGate
	}
	if in.VPIN > cfg.VPINToxicThreshold {
		return nil, RejectToxicFlow
	}

	direction := signal.Long
	if in.ZScore < 0 {
		direction = signal.Short
	}

	ofiConfirmed := confirmOFI(direction, in.OFI)
	kalmanConfirmed := confirmKalman(direction, in.Price, in.KalmanEstimate)

	scores := Scores{
		ZScore:     math.Min(1, math.Abs(in.ZScore)/4),
		VPIN:       1 - in.VPIN,
		Kyle:       0.5,
		Kalman:     0.4,
		Volatility: 0.8,
		OFI:        0.5,
	}
	if in.KyleLambda <= 0.001 {
		scores.Kyle = 0.8
	}
	if kalmanConfirmed {
		scores.Kalman = 0.8
	}
	switch in.Regime.Name {
	case "low":
		scores.Volatility = 0.7
	case "high":
		scores.Volatility = 0.6
	}
	if ofiConfirmed {
		scores.OFI = 0.9
	}

	confidence := weightZScore*scores.ZScore +
		weightVPIN*scores.VPIN +
		weightKyle*scores.Kyle +
		weightKalman*scores.Kalman +
		weightVolatility*scores.Volatility +
		weightOFI*scores.OFI +
		in.Regime.ConfidenceBonus
	confidence = math.Max(0, math.Min(1, confidence))

	if confidence < cfg.ConfidenceFloor {
		return nil, RejectConfidenceFloor
	}
	return &Result{
		Direction:       direction,
		Confidence:      confidence,
		Scores:          scores,
		OFIConfirmed:    ofiConfirmed,
		KalmanConfirmed: kalmanConfirmed,
	}, ""
}

// confirmOFI accepts order flow pointing the same way as the candidate
// direction beyond the deadband.
func confirmOFI(dir signal.Direction, ofi float64) bool {
	if dir == signal.Long {
		return ofi > ofiDeadband
	}
	return ofi < -ofiDeadband
}

// confirmKalman accepts price leading the filtered estimate in the candidate
// direction.
func confirmKalman(dir signal.Direction, price, estimate float64) bool {
	if dir == signal.Long {
		return price > estimate
	}
	return price < estimate
}
