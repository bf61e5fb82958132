// Package feed hosts tick sources for the engine. Live venue connectors sit
// behind the same Run contract; the stub provider keeps the pipeline
// exercisable offline.
package feed

import (
	"context"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	sig "sigflow-go/internal/signal"
)

// ProviderStub emits deterministic synthetic ticks (useful for tests and
// offline work).
const ProviderStub = "stub"

const defaultTickInterval = 500 * time.Millisecond

// Feed represents a pluggable market data stream implementation.
type Feed struct {
	provider     string
	instruments  []string
	log          zerolog.Logger
	tickInterval time.Duration
	mu           sync.RWMutex
}

// Option configures Feed construction parameters.
type Option func(*Feed)

// WithTickInterval overrides the synthetic tick cadence.
func WithTickInterval(d time.Duration) Option {
	return func(f *Feed) {
		if d > 0 {
			f.tickInterval = d
		}
	}
}

// New constructs a feed backed by the requested provider.
func New(provider string, instruments []string, log zerolog.Logger, opts ...Option) *Feed {
	if provider == "" {
		provider = ProviderStub
	}
	f := &Feed{
		provider:     strings.ToLower(provider),
		log:          log,
		tickInterval: defaultTickInterval,
	}
	f.setInstruments(instruments)
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// SetInstruments replaces the tracked instrument list (deduplicated, sorted
// for determinism).
func (f *Feed) SetInstruments(instruments []string) {
	f.setInstruments(instruments)
}

func (f *Feed) setInstruments(instruments []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	unique := make(map[string]struct{}, len(instruments))
	for _, id := range instruments {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		unique[id] = struct{}{}
	}
	f.instruments = f.instruments[:0]
	for id := range unique {
		f.instruments = append(f.instruments, id)
	}
	sort.Strings(f.instruments)
}

func (f *Feed) snapshotInstruments() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]string, len(f.instruments))
	copy(out, f.instruments)
	return out
}

// Run pushes ticks onto the provided channel until the context is canceled.
func (f *Feed) Run(ctx context.Context, out chan<- sig.Tick) error {
	switch f.provider {
	case ProviderStub:
		return f.runStub(ctx, out)
	default:
		f.log.Warn().Str("provider", f.provider).Msg("unknown feed provider, using stub")
		return f.runStub(ctx, out)
	}
}

// runStub drives an independent random walk per instrument.
func (f *Feed) runStub(ctx context.Context, out chan<- sig.Tick) error {
	ticker := time.NewTicker(f.tickInterval)
	defer ticker.Stop()

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	prices := make(map[string]float64)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ts := <-ticker.C:
			for _, id := range f.snapshotInstruments() {
				px, ok := prices[id]
				if !ok {
					px = 100.0
				}
				px += (rng.Float64() - 0.5) * 0.25
				if px < 1 {
					px = 1
				}
				prices[id] = px
				tick := sig.Tick{
					Instrument: id,
					Price:      px,
					Volume:     float64(1 + rng.Intn(10)),
					Ts:         ts.UnixMilli(),
				}
				select {
				case out <- tick:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
		}
	}
}
