// Package strategy orchestrates the tick-to-signal pipeline: aggregation,
// per-instrument state, model evaluation, fusion, and risk parameterization.
package strategy

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"sigflow-go/internal/aggregator"
	"sigflow-go/internal/fusion"
	"sigflow-go/internal/metrics"
	"sigflow-go/internal/models"
	"sigflow-go/internal/risk"
	"sigflow-go/internal/state"
	sig "sigflow-go/internal/signal"
)

// Phase is the per-instrument lifecycle stage.
type Phase string

const (
	PhaseUninitialized Phase = "UNINITIALIZED"
	PhaseWarmingUp     Phase = "WARMING_UP"
	PhaseActive        Phase = "ACTIVE"
)

// InstrumentSpec supplies static venue data per instrument.
type InstrumentSpec struct {
	TickSize  float64
	TickValue float64
}

// Config carries every tunable knob of the engine.
type Config struct {
	BarInterval            time.Duration
	ZScoreWindow           int
	ZScoreExitThreshold    float64
	VPINWindow             int
	OFILookback            int
	ATRPeriod              int
	KalmanProcessNoise     float64
	KalmanMeasurementNoise float64
	Fusion                 fusion.Config
	Risk                   risk.Config
	DefaultSpec            InstrumentSpec
	Specs                  map[string]InstrumentSpec
}

// DefaultConfig returns the standard engine tuning for the given default
// instrument spec.
func DefaultConfig(spec InstrumentSpec) Config {
	return Config{
		BarInterval:            aggregator.DefaultInterval,
		ZScoreWindow:           50,
		ZScoreExitThreshold:    0.5,
		VPINWindow:             50,
		OFILookback:            20,
		ATRPeriod:              14,
		KalmanProcessNoise:     0.01,
		KalmanMeasurementNoise: 0.1,
		Fusion:                 fusion.DefaultConfig(),
		Risk:                   risk.DefaultConfig(),
		DefaultSpec:            spec,
	}
}

// ModelValues is a read-only diagnostic snapshot of the six model outputs.
type ModelValues struct {
	ZScore         float64
	VPIN           float64
	KyleLambda     float64
	KalmanEstimate float64
	ATR            float64
	Regime         string
	OFI            float64
	BarCount       int
}

// kyleLookback is the fixed bar window for the price-impact estimate.
const kyleLookback = 20

// instrumentRuntime is engine-level bookkeeping outside the rolling state:
// the one-shot emission latch that keeps a persistent extreme from firing on
// every consecutive bar.
type instrumentRuntime struct {
	latched bool
}

// Engine is the caller-owned strategy engine. Per-instrument state is fully
// independent; emission to the output channel never blocks.
type Engine struct {
	cfg   Config
	log   zerolog.Logger
	agg   *aggregator.Aggregator
	table *state.Table
	clock func() time.Time

	mu      sync.Mutex
	runtime map[string]*instrumentRuntime

	out chan sig.Signal
}

// New validates the configuration and builds an engine. Nonphysical venue
// data (non-positive tick size) fails here, never per tick.
func New(cfg Config, log zerolog.Logger) (*Engine, error) {
	if cfg.DefaultSpec.TickSize <= 0 {
		return nil, fmt.Errorf("default tick size must be positive, got %v", cfg.DefaultSpec.TickSize)
	}
	for id, spec := range cfg.Specs {
		if spec.TickSize <= 0 {
			return nil, fmt.Errorf("instrument %s: tick size must be positive, got %v", id, spec.TickSize)
		}
	}
	if cfg.BarInterval <= 0 {
		cfg.BarInterval = aggregator.DefaultInterval
	}
	if cfg.ZScoreWindow <= 0 {
		cfg.ZScoreWindow = 50
	}
	if cfg.ZScoreExitThreshold <= 0 {
		cfg.ZScoreExitThreshold = 0.5
	}
	if cfg.VPINWindow <= 0 {
		cfg.VPINWindow = 50
	}
	if cfg.OFILookback <= 0 {
		cfg.OFILookback = 20
	}
	if cfg.ATRPeriod <= 0 {
		cfg.ATRPeriod = 14
	}
	if cfg.Fusion.VPINToxicThreshold <= 0 {
		cfg.Fusion.VPINToxicThreshold = 0.7
	}
	if cfg.Fusion.ConfidenceFloor <= 0 {
		cfg.Fusion.ConfidenceFloor = 0.55
	}
	if cfg.Risk.BaseStopTicks <= 0 {
		cfg.Risk = risk.DefaultConfig()
	}
	return &Engine{
		cfg:     cfg,
		log:     log,
		agg:     aggregator.New(cfg.BarInterval),
		table:   state.NewTable(cfg.ATRPeriod, cfg.KalmanProcessNoise, cfg.KalmanMeasurementNoise),
		clock:   time.Now,
		runtime: make(map[string]*instrumentRuntime),
		out:     make(chan sig.Signal, 256),
	}, nil
}

// Signals exposes the asynchronous emission channel. Sends never block; a
// full channel drops the signal after the synchronous return value has been
// handed to the caller.
func (e *Engine) Signals() <-chan sig.Signal { return e.out }

// ProcessTick routes one tick through the aggregator and, when it closes a
// bar, runs the full pipeline. Returns the emitted signal or nil.
func (e *Engine) ProcessTick(t sig.Tick) *sig.Signal {
	metrics.TicksTotal.WithLabelValues(t.Instrument).Inc()
	bar := e.agg.Add(t, e.clock())
	if bar == nil {
		return nil
	}
	return e.onBar(t.Instrument, *bar)
}

// Poll closes any bars whose interval elapsed without a fresh tick and runs
// the pipeline on each. Call on a timer alongside ProcessTick.
func (e *Engine) Poll() []sig.Signal {
	var out []sig.Signal
	for _, cb := range e.agg.FlushDue(e.clock()) {
		if s := e.onBar(cb.Instrument, cb.Bar); s != nil {
			out = append(out, *s)
		}
	}
	return out
}

// onBar folds a closed bar into instrument state and evaluates the models
// once warm-up has completed.
func (e *Engine) onBar(id string, bar sig.Bar) *sig.Signal {
	metrics.BarsTotal.WithLabelValues(id).Inc()
	inst := e.table.Get(id, e.clock())
	if !inst.ApplyBar(bar) {
		return nil
	}

	estimate := inst.Kalman().Update(bar.Close)

	atr := inst.CurrentATR()
	regime := models.ClassifyRegime(inst.ATRHistory(), atr)
	zscore := models.ZScore(inst.Closes(), e.cfg.ZScoreWindow)

	rt := e.instrumentRuntime(id)
	e.mu.Lock()
	if rt.latched {
		if math.Abs(zscore) < e.cfg.ZScoreExitThreshold {
			rt.latched = false
		} else {
			e.mu.Unlock()
			return nil
		}
	}
	e.mu.Unlock()

	in := fusion.Inputs{
		ZScore:         zscore,
		VPIN:           models.VPIN(inst.Flows(), e.cfg.VPINWindow),
		KyleLambda:     models.KyleLambda(inst.Bars(), kyleLookback),
		OFI:            models.OFI(inst.Bars(), e.cfg.OFILookback),
		Price:          bar.Close,
		KalmanEstimate: estimate,
		Regime:         regime,
	}
	res, reason := fusion.Evaluate(in, e.cfg.Fusion)
	if res == nil {
		metrics.GateRejectionsTotal.WithLabelValues(id, reason).Inc()
		return nil
	}

	spec := e.spec(id)
	params := risk.Parameterize(res.Direction, bar.Close, spec.TickSize, spec.TickValue, res.Confidence, regime, e.cfg.Risk)

	side := sig.Bid
	if res.Direction == sig.Short {
		side = sig.Ask
	}
	out := sig.Signal{
		ID:                 uuid.NewString(),
		Ts:                 e.clock(),
		Instrument:         id,
		Side:               side,
		Direction:          res.Direction,
		Strength:           params.Strength,
		Confidence:         res.Confidence,
		Entry:              bar.Close,
		StopLoss:           params.StopLoss,
		TakeProfit:         params.TakeProfit,
		RiskReward:         params.RiskReward,
		StopTicks:          params.StopTicks,
		TargetTicks:        params.TargetTicks,
		TrailTriggerTicks:  params.TrailTriggerTicks,
		TrailDistanceTicks: params.TrailDistanceTicks,
		BreakevenLevel:     params.BreakevenLevel,
		ProfitLockLevel:    params.ProfitLockLevel,
		Edge:               params.Edge,
		Diagnostics: sig.Diagnostics{
			ZScore:     in.ZScore,
			VPIN:       in.VPIN,
			KyleLambda: in.KyleLambda,
			Kalman:     estimate,
			Regime:     regime.Name,
			OFI:        in.OFI,
			Composite:  res.Confidence,
		},
	}

	e.mu.Lock()
	rt.latched = true
	e.mu.Unlock()

	metrics.SignalsTotal.WithLabelValues(id, string(res.Direction)).Inc()
	e.log.Info().
		Str("instrument", id).
		Str("direction", string(res.Direction)).
		Str("strength", string(params.Strength)).
		Float64("confidence", res.Confidence).
		Float64("entry", out.Entry).
		Float64("stop", out.StopLoss).
		Float64("target", out.TakeProfit).
		Msg("signal emitted")

	select {
	case e.out <- out:
	default:
		e.log.Warn().Str("instrument", id).Msg("signal channel full, dropping async copy")
	}
	return &out
}

// ModelValues returns a diagnostic snapshot of the model outputs, or nil
// before warm-up completes. It never mutates state.
func (e *Engine) ModelValues(id string) *ModelValues {
	inst := e.table.Lookup(id)
	if inst == nil || !inst.Ready() {
		return nil
	}
	estimate, _ := inst.Kalman().Estimate()
	atr := inst.CurrentATR()
	return &ModelValues{
		ZScore:         models.ZScore(inst.Closes(), e.cfg.ZScoreWindow),
		VPIN:           models.VPIN(inst.Flows(), e.cfg.VPINWindow),
		KyleLambda:     models.KyleLambda(inst.Bars(), kyleLookback),
		KalmanEstimate: estimate,
		ATR:            atr,
		Regime:         models.ClassifyRegime(inst.ATRHistory(), atr).Name,
		OFI:            models.OFI(inst.Bars(), e.cfg.OFILookback),
		BarCount:       inst.BarCount(),
	}
}

// ShouldExitByZScore reports whether the z-score has decayed inside the
// exit-only threshold, which is independent of the entry threshold.
func (e *Engine) ShouldExitByZScore(id string) bool {
	inst := e.table.Lookup(id)
	if inst == nil || !inst.Ready() {
		return false
	}
	z := models.ZScore(inst.Closes(), e.cfg.ZScoreWindow)
	return math.Abs(z) < e.cfg.ZScoreExitThreshold
}

// Phase reports the lifecycle stage for an instrument id.
func (e *Engine) Phase(id string) Phase {
	inst := e.table.Lookup(id)
	switch {
	case inst == nil || inst.BarCount() == 0:
		return PhaseUninitialized
	case !inst.Ready():
		return PhaseWarmingUp
	default:
		return PhaseActive
	}
}

// Reset drops all rolling state for id, restores warm-up, clears the Kalman
// filter, and re-arms emission.
func (e *Engine) Reset(id string) {
	e.table.Reset(id)
	e.agg.Drop(id)
	e.mu.Lock()
	delete(e.runtime, id)
	e.mu.Unlock()
}

// EvictIdle drops instruments not seen for longer than ttl and reports how
// many were removed. Aggregator buffers and the emission latch go with the
// state so a returning instrument starts clean.
func (e *Engine) EvictIdle(ttl time.Duration) int {
	ids := e.table.EvictIdle(e.clock(), ttl)
	e.mu.Lock()
	for _, id := range ids {
		delete(e.runtime, id)
	}
	e.mu.Unlock()
	for _, id := range ids {
		e.agg.Drop(id)
	}
	return len(ids)
}

func (e *Engine) instrumentRuntime(id string) *instrumentRuntime {
	e.mu.Lock()
	defer e.mu.Unlock()
	rt := e.runtime[id]
	if rt == nil {
		rt = &instrumentRuntime{}
		e.runtime[id] = rt
	}
	return rt
}

func (e *Engine) spec(id string) InstrumentSpec {
	if s, ok := e.cfg.Specs[id]; ok {
		return s
	}
	return e.cfg.DefaultSpec
}
