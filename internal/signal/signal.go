// Package signal standardizes payloads shared between data ingestion,
// the strategy engine, and execution collaborators.
package signal

import "time"

// Tick models a single trade print consumed by the aggregator.
type Tick struct {
	Instrument string
	Price      float64
	Volume     float64 // 0 means unknown; treated as 1 by the aggregator
	Ts         int64   // epoch milliseconds
}

// Bar is a fixed-interval OHLCV+delta summary of ticks for one instrument.
// Immutable once produced.
type Bar struct {
	Ts        int64   `json:"ts"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
	Delta     float64 `json:"delta"` // buy volume minus sell volume, tick-rule classified
	TickCount int     `json:"tick_count"`
}

// Range returns high minus low.
func (b Bar) Range() float64 { return b.High - b.Low }

// Direction expresses the trade bias of a signal.
type Direction string

const (
	Long  Direction = "long"
	Short Direction = "short"
)

// Side is the book side an entry order would rest on.
type Side string

const (
	Bid Side = "BID"
	Ask Side = "ASK"
)

// Strength buckets composite confidence for quick triage.
type Strength string

const (
	Weak       Strength = "WEAK"
	Moderate   Strength = "MODERATE"
	Strong     Strength = "STRONG"
	VeryStrong Strength = "VERY_STRONG"
)

// Diagnostics carries the raw model outputs that produced a signal.
type Diagnostics struct {
	ZScore     float64 `json:"zscore"`
	VPIN       float64 `json:"vpin"`
	KyleLambda float64 `json:"kyle_lambda"`
	Kalman     float64 `json:"kalman"`
	Regime     string  `json:"regime"`
	OFI        float64 `json:"ofi"`
	Composite  float64 `json:"composite"`
}

// Signal is a fully parameterized trade recommendation. Emitted at most once
// per qualifying bar and never mutated afterwards.
type Signal struct {
	ID                 string      `json:"id"`
	Ts                 time.Time   `json:"ts"`
	Instrument         string      `json:"instrument"`
	Side               Side        `json:"side"`
	Direction          Direction   `json:"direction"`
	Strength           Strength    `json:"strength"`
	Confidence         float64     `json:"confidence"`
	Entry              float64     `json:"entry"`
	StopLoss           float64     `json:"stop_loss"`
	TakeProfit         float64     `json:"take_profit"`
	RiskReward         float64     `json:"risk_reward"`
	StopTicks          int         `json:"stop_ticks"`
	TargetTicks        int         `json:"target_ticks"`
	TrailTriggerTicks  int         `json:"trail_trigger_ticks"`
	TrailDistanceTicks int         `json:"trail_distance_ticks"`
	BreakevenLevel     float64     `json:"breakeven_level"`
	ProfitLockLevel    float64     `json:"profit_lock_level"`
	Edge               float64     `json:"edge"`
	Diagnostics        Diagnostics `json:"diagnostics"`
}
