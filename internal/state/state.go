// Package state owns the per-instrument rolling buffers and persistent
// filter state consumed by the models on every bar close.
package state

import (
	"sync"
	"time"

	"sigflow-go/internal/buffer"
	"sigflow-go/internal/models"
	"sigflow-go/internal/signal"
)

// Buffer capacities. Eviction is strictly oldest-first in every buffer.
const (
	BarHistoryCap  = 500
	CloseBufferCap = 200
	FlowBufferCap  = 100
	ATRHistoryCap  = 500
)

// WarmupBars is the minimum bar history before any model output is trusted.
const WarmupBars = 50

// Instrument holds the bounded rolling history for a single instrument id.
type Instrument struct {
	bars   *buffer.Ring[signal.Bar]
	closes *buffer.Ring[float64]
	flows  *buffer.Ring[models.VolumePair]
	atrs   *buffer.Ring[float64]
	kalman *models.KalmanFilter

	atrPeriod int
	lastSeen  time.Time
}

func newInstrument(atrPeriod int, processNoise, measurementNoise float64) *Instrument {
	return &Instrument{
		bars:      buffer.NewRing[signal.Bar](BarHistoryCap),
		closes:    buffer.NewRing[float64](CloseBufferCap),
		flows:     buffer.NewRing[models.VolumePair](FlowBufferCap),
		atrs:      buffer.NewRing[float64](ATRHistoryCap),
		kalman:    models.NewKalmanFilter(processNoise, measurementNoise),
		atrPeriod: atrPeriod,
	}
}

// ApplyBar folds a closed bar into every rolling buffer and reports whether
// the instrument has cleared warm-up.
func (s *Instrument) ApplyBar(bar signal.Bar) bool {
	s.bars.Push(bar)
	s.closes.Push(bar.Close)

	// Buy/sell split by close position within the bar range, 50/50 when the
	// bar has no range.
	rng := bar.Range()
	pair := models.VolumePair{Buy: bar.Volume / 2, Sell: bar.Volume / 2}
	if rng > 0 {
		ratio := (bar.Close - bar.Low) / rng
		pair = models.VolumePair{Buy: bar.Volume * ratio, Sell: bar.Volume * (1 - ratio)}
	}
	s.flows.Push(pair)

	s.atrs.Push(models.ATR(s.bars.Values(), s.atrPeriod))
	return s.bars.Len() >= WarmupBars
}

// BarCount reports how many bars have been applied, capped by history size.
func (s *Instrument) BarCount() int { return s.bars.Len() }

// Ready reports whether warm-up has completed.
func (s *Instrument) Ready() bool { return s.bars.Len() >= WarmupBars }

// Bars returns the bar history oldest-first.
func (s *Instrument) Bars() []signal.Bar { return s.bars.Values() }

// Closes returns the close-price buffer oldest-first.
func (s *Instrument) Closes() []float64 { return s.closes.Values() }

// Flows returns the buy/sell volume buffer oldest-first.
func (s *Instrument) Flows() []models.VolumePair { return s.flows.Values() }

// ATRHistory returns the ATR buffer oldest-first.
func (s *Instrument) ATRHistory() []float64 { return s.atrs.Values() }

// CurrentATR returns the most recent ATR, or the model default before the
// first bar.
func (s *Instrument) CurrentATR() float64 {
	if atr, ok := s.atrs.Latest(); ok {
		return atr
	}
	return models.ATR(nil, s.atrPeriod)
}

// Kalman exposes the persistent filter for this instrument.
func (s *Instrument) Kalman() *models.KalmanFilter { return s.kalman }

// Reset drops all rolling history and clears the Kalman filter so the next
// measurement reseeds it. The instrument re-enters warm-up.
func (s *Instrument) Reset() {
	s.bars.Reset()
	s.closes.Reset()
	s.flows.Reset()
	s.atrs.Reset()
	s.kalman.Reset()
}

// Table is the instrument-id keyed arena. Entries are created lazily on
// first sight of an id and only removed by idle eviction.
type Table struct {
	mu               sync.RWMutex
	entries          map[string]*Instrument
	atrPeriod        int
	processNoise     float64
	measurementNoise float64
}

// NewTable builds an empty arena sharing model parameters across entries.
func NewTable(atrPeriod int, processNoise, measurementNoise float64) *Table {
	if atrPeriod <= 0 {
		atrPeriod = 14
	}
	return &Table{
		entries:          make(map[string]*Instrument),
		atrPeriod:        atrPeriod,
		processNoise:     processNoise,
		measurementNoise: measurementNoise,
	}
}

// Get returns the state for id, creating it on first sight, and stamps the
// last-seen time used by idle eviction.
func (t *Table) Get(id string, now time.Time) *Instrument {
	t.mu.Lock()
	defer t.mu.Unlock()
	inst := t.entries[id]
	if inst == nil {
		inst = newInstrument(t.atrPeriod, t.processNoise, t.measurementNoise)
		t.entries[id] = inst
	}
	inst.lastSeen = now
	return inst
}

// Lookup returns the state for id without creating it.
func (t *Table) Lookup(id string) *Instrument {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.entries[id]
}

// Len reports how many instruments are tracked.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

// Reset clears the state for id if present; the entry survives and re-enters
// warm-up on the next bar.
func (t *Table) Reset(id string) {
	t.mu.RLock()
	inst := t.entries[id]
	t.mu.RUnlock()
	if inst != nil {
		inst.Reset()
	}
}

// EvictIdle removes instruments not seen for longer than ttl and returns the
// evicted ids. Keeps a long-running process from accumulating state for
// instruments that stopped trading.
func (t *Table) EvictIdle(now time.Time, ttl time.Duration) []string {
	if ttl <= 0 {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	var evicted []string
	for id, inst := range t.entries {
		if now.Sub(inst.lastSeen) > ttl {
			delete(t.entries, id)
			evicted = append(evicted, id)
		}
	}
	return evicted
}
