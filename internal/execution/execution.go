// Package execution is the boundary to the order-placement collaborator.
// The engine hands signals off here and never waits on the outcome.
package execution

import (
	"github.com/rs/zerolog"

	sig "sigflow-go/internal/signal"
)

// Executor implements a logger-backed sink for emitted signals.
type Executor struct{ log zerolog.Logger }

// NewExecutor wraps a zerolog logger for future order submissions.
func NewExecutor(log zerolog.Logger) *Executor { return &Executor{log: log} }

// Submit currently logs the signal hand-off; it must never block the engine.
func (executor *Executor) Submit(s sig.Signal) error {
	executor.log.Info().
		Str("id", s.ID).
		Str("instrument", s.Instrument).
		Str("side", string(s.Side)).
		Str("direction", string(s.Direction)).
		Str("strength", string(s.Strength)).
		Float64("entry", s.Entry).
		Float64("stop", s.StopLoss).
		Float64("target", s.TakeProfit).
		Float64("confidence", s.Confidence).
		Msg("submit signal (stub)")
	// TODO: wire broker order placement behind this boundary
	return nil
}
