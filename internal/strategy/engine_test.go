package strategy

import (
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"

	sig "sigflow-go/internal/signal"
	"sigflow-go/internal/state"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	eng, err := New(DefaultConfig(InstrumentSpec{TickSize: 0.25, TickValue: 12.5}), zerolog.Nop())
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	return eng
}

// risingBar builds the i-th bar of a steady 0.05-step uptrend where each bar
// closes 65% up its range, skewing the volume split toward buys without
// tripping the toxicity gate.
func risingBar(i int) sig.Bar {
	close := 100.0 + 0.05*float64(i)
	return sig.Bar{
		Ts:        int64(i) * 5000,
		Open:      close - 0.05,
		High:      close + 0.07,
		Low:       close - 0.13,
		Close:     close,
		Volume:    100,
		TickCount: 10,
	}
}

// flatBar closes exactly where it opened with no range and balanced flow.
func flatBar(i int) sig.Bar {
	return sig.Bar{Ts: int64(i) * 5000, Open: 100, High: 100, Low: 100, Close: 100, Volume: 100, TickCount: 10}
}

// toxicBar closes at its high, so the entire bar volume classifies as buys
// and VPIN saturates at 1.
func toxicBar(i int) sig.Bar {
	close := 100.0 + 0.05*float64(i)
	return sig.Bar{Ts: int64(i) * 5000, Open: close - 0.05, High: close, Low: close - 0.2, Close: close, Volume: 100, TickCount: 10}
}

func TestRisingTrendEmitsExactlyOneLong(t *testing.T) {
	eng := newTestEngine(t)

	var signals []sig.Signal
	for i := 0; i < 60; i++ {
		if s := eng.onBar("ESZ5", risingBar(i)); s != nil {
			signals = append(signals, *s)
		}
	}
	if len(signals) != 1 {
		t.Fatalf("expected exactly one signal, got %d", len(signals))
	}
	s := signals[0]
	if s.Direction != sig.Long || s.Side != sig.Bid {
		t.Fatalf("expected long/BID, got %s/%s", s.Direction, s.Side)
	}
	if s.Confidence < 0.55 {
		t.Fatalf("expected confidence >= 0.55, got %f", s.Confidence)
	}
	if s.StopTicks < 6 || s.StopTicks > 12 {
		t.Fatalf("stop ticks outside [6,12]: %d", s.StopTicks)
	}
	if float64(s.TargetTicks) < 1.5*float64(s.StopTicks) {
		t.Fatalf("target %d under 1.5x stop %d", s.TargetTicks, s.StopTicks)
	}
	if s.StopLoss >= s.Entry {
		t.Fatalf("long stop must sit below entry: %f vs %f", s.StopLoss, s.Entry)
	}
	if s.TakeProfit <= s.Entry {
		t.Fatalf("long target must sit above entry: %f vs %f", s.TakeProfit, s.Entry)
	}
	if s.ID == "" {
		t.Fatalf("expected generated signal id")
	}
	if s.Diagnostics.Composite != s.Confidence {
		t.Fatalf("diagnostics composite mismatch: %f vs %f", s.Diagnostics.Composite, s.Confidence)
	}

	// The async copy lands on the emission channel as well.
	select {
	case got := <-eng.Signals():
		if got.ID != s.ID {
			t.Fatalf("channel copy id mismatch")
		}
	default:
		t.Fatalf("expected signal on emission channel")
	}
}

func TestFlatMarketNeverEmits(t *testing.T) {
	eng := newTestEngine(t)
	for i := 0; i < 60; i++ {
		if s := eng.onBar("NQZ5", flatBar(i)); s != nil {
			t.Fatalf("unexpected signal on flat market at bar %d", i)
		}
	}
}

func TestToxicFlowNeverEmits(t *testing.T) {
	eng := newTestEngine(t)
	for i := 0; i < 60; i++ {
		if s := eng.onBar("CLZ5", toxicBar(i)); s != nil {
			t.Fatalf("unexpected signal under toxic flow at bar %d", i)
		}
	}
}

func TestWarmupNeverEmits(t *testing.T) {
	eng := newTestEngine(t)
	for i := 0; i < state.WarmupBars-1; i++ {
		if s := eng.onBar("ESZ5", risingBar(i)); s != nil {
			t.Fatalf("unexpected signal during warm-up at bar %d", i)
		}
	}
	if eng.Phase("ESZ5") != PhaseWarmingUp {
		t.Fatalf("expected WARMING_UP phase, got %s", eng.Phase("ESZ5"))
	}
	if eng.ModelValues("ESZ5") != nil {
		t.Fatalf("expected nil model values during warm-up")
	}
}

func TestResetRestoresWarmup(t *testing.T) {
	eng := newTestEngine(t)
	var first *sig.Signal
	for i := 0; i < 60; i++ {
		if s := eng.onBar("ESZ5", risingBar(i)); s != nil {
			first = s
		}
	}
	if first == nil {
		t.Fatalf("expected a signal before reset")
	}

	eng.Reset("ESZ5")
	if eng.ModelValues("ESZ5") != nil {
		t.Fatalf("expected nil model values immediately after reset")
	}
	if eng.Phase("ESZ5") != PhaseUninitialized {
		t.Fatalf("expected UNINITIALIZED after reset, got %s", eng.Phase("ESZ5"))
	}

	// Refeeding produces a fresh signal: warm-up, latch, and Kalman state all
	// started over.
	var second *sig.Signal
	for i := 0; i < 60; i++ {
		if s := eng.onBar("ESZ5", risingBar(i)); s != nil {
			second = s
		}
	}
	if second == nil {
		t.Fatalf("expected a signal after reset and refeed")
	}
	if second.ID == first.ID {
		t.Fatalf("expected a distinct signal instance")
	}
}

func TestModelValuesSnapshot(t *testing.T) {
	eng := newTestEngine(t)
	if eng.ModelValues("ESZ5") != nil {
		t.Fatalf("expected nil for unknown instrument")
	}
	for i := 0; i < 60; i++ {
		eng.onBar("ESZ5", risingBar(i))
	}
	mv := eng.ModelValues("ESZ5")
	if mv == nil {
		t.Fatalf("expected model values after warm-up")
	}
	if mv.ZScore <= 0 {
		t.Fatalf("expected positive z in an uptrend, got %f", mv.ZScore)
	}
	if mv.VPIN < 0 || mv.VPIN > 1 {
		t.Fatalf("vpin out of bounds: %f", mv.VPIN)
	}
	if mv.Regime == "" || mv.BarCount != 60 {
		t.Fatalf("unexpected snapshot: %+v", mv)
	}
	if math.Abs(mv.OFI-0.3) > 1e-9 {
		t.Fatalf("expected OFI 0.3 for 65%% close position, got %f", mv.OFI)
	}
}

func TestShouldExitByZScore(t *testing.T) {
	eng := newTestEngine(t)
	if eng.ShouldExitByZScore("ESZ5") {
		t.Fatalf("expected false for unknown instrument")
	}
	for i := 0; i < 60; i++ {
		eng.onBar("ESZ5", risingBar(i))
	}
	if eng.ShouldExitByZScore("ESZ5") {
		t.Fatalf("expected no exit while the trend holds")
	}

	// A flat tape drives z to exactly 0, inside the exit threshold.
	for i := 0; i < 60; i++ {
		eng.onBar("NQZ5", flatBar(i))
	}
	if !eng.ShouldExitByZScore("NQZ5") {
		t.Fatalf("expected exit with z at zero")
	}
}

func TestProcessTickPipeline(t *testing.T) {
	eng := newTestEngine(t)
	now := time.Unix(1700000000, 0)
	eng.clock = func() time.Time { return now }

	var emitted []sig.Signal
	for i := 0; i < 60; i++ {
		bar := risingBar(i)
		for _, px := range []float64{bar.Low, bar.High, bar.Close} {
			if s := eng.ProcessTick(sig.Tick{Instrument: "ESZ5", Price: px, Volume: 100.0 / 3, Ts: now.UnixMilli()}); s != nil {
				emitted = append(emitted, *s)
			}
		}
		now = now.Add(5 * time.Second)
	}
	for _, s := range eng.Poll() {
		emitted = append(emitted, s)
	}
	if len(emitted) != 1 {
		t.Fatalf("expected exactly one signal end to end, got %d", len(emitted))
	}
	if emitted[0].Direction != sig.Long {
		t.Fatalf("expected long signal, got %s", emitted[0].Direction)
	}
}

func TestEvictIdleDropsStaleInstruments(t *testing.T) {
	eng := newTestEngine(t)
	now := time.Unix(1700000000, 0)
	eng.clock = func() time.Time { return now }

	eng.onBar("STALE", risingBar(0))
	now = now.Add(2 * time.Hour)
	eng.onBar("FRESH", risingBar(0))

	if n := eng.EvictIdle(time.Hour); n != 1 {
		t.Fatalf("expected one eviction, got %d", n)
	}
	if eng.Phase("STALE") != PhaseUninitialized {
		t.Fatalf("expected stale instrument gone")
	}
	if eng.Phase("FRESH") != PhaseWarmingUp {
		t.Fatalf("expected fresh instrument retained")
	}
}

func TestNewRejectsNonphysicalConfig(t *testing.T) {
	if _, err := New(DefaultConfig(InstrumentSpec{TickSize: 0}), zerolog.Nop()); err == nil {
		t.Fatalf("expected error for zero default tick size")
	}
	cfg := DefaultConfig(InstrumentSpec{TickSize: 0.25})
	cfg.Specs = map[string]InstrumentSpec{"BAD": {TickSize: -1}}
	if _, err := New(cfg, zerolog.Nop()); err == nil {
		t.Fatalf("expected error for negative instrument tick size")
	}
}
