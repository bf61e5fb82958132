// Package aggregator buffers trade ticks per instrument and flushes them
// into one bar per fixed wall-clock interval.
package aggregator

import (
	"math"
	"sync"
	"time"

	"sigflow-go/internal/signal"
)

const (
	// DefaultInterval is the bar flush cadence when none is configured.
	DefaultInterval = 5 * time.Second
	// defaultMaxBufferedTicks bounds a per-instrument burst between flushes;
	// the oldest ticks are dropped beyond it.
	defaultMaxBufferedTicks = 10000
)

type tickBook struct {
	ticks     []signal.Tick
	lastFlush time.Time
}

// ClosedBar pairs a flushed bar with the instrument it belongs to.
type ClosedBar struct {
	Instrument string
	Bar        signal.Bar
}

// Aggregator groups incoming ticks by instrument id, lazily starting a book
// on first sight of an id. It never blocks; the flush trigger is the
// caller-supplied monotonic clock reading.
type Aggregator struct {
	interval time.Duration
	maxTicks int
	mu       sync.Mutex
	books    map[string]*tickBook
}

// New builds an aggregator with the given flush interval.
func New(interval time.Duration) *Aggregator {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Aggregator{
		interval: interval,
		maxTicks: defaultMaxBufferedTicks,
		books:    make(map[string]*tickBook),
	}
}

// Add buffers one tick and returns a closed bar when the flush interval has
// elapsed for that instrument with ticks pending. Malformed ticks (missing
// or non-finite price) are filtered out before they can corrupt bar state.
func (a *Aggregator) Add(t signal.Tick, now time.Time) *signal.Bar {
	if t.Instrument == "" || t.Price <= 0 || math.IsNaN(t.Price) || math.IsInf(t.Price, 0) {
		return nil
	}
	if t.Volume <= 0 || math.IsNaN(t.Volume) || math.IsInf(t.Volume, 0) {
		t.Volume = 1
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	book := a.books[t.Instrument]
	if book == nil {
		book = &tickBook{lastFlush: now}
		a.books[t.Instrument] = book
	}

	var closed *signal.Bar
	if now.Sub(book.lastFlush) >= a.interval {
		if len(book.ticks) > 0 {
			bar := buildBar(book.ticks, now)
			closed = &bar
			book.ticks = book.ticks[:0]
		}
		// An empty interval produces nothing, but still restarts the clock.
		book.lastFlush = now
	}

	book.ticks = append(book.ticks, t)
	if len(book.ticks) > a.maxTicks {
		book.ticks = book.ticks[len(book.ticks)-a.maxTicks:]
	}
	return closed
}

// FlushDue closes every non-empty book whose interval has elapsed. Called on
// a timer so bars still close when ticks go quiet.
func (a *Aggregator) FlushDue(now time.Time) []ClosedBar {
	a.mu.Lock()
	defer a.mu.Unlock()

	var out []ClosedBar
	for id, book := range a.books {
		if now.Sub(book.lastFlush) < a.interval {
			continue
		}
		if len(book.ticks) > 0 {
			out = append(out, ClosedBar{Instrument: id, Bar: buildBar(book.ticks, now)})
			book.ticks = book.ticks[:0]
		}
		book.lastFlush = now
	}
	return out
}

// Drop discards the book for id, if any.
func (a *Aggregator) Drop(id string) {
	a.mu.Lock()
	delete(a.books, id)
	a.mu.Unlock()
}

// buildBar aggregates a non-empty tick slice: open from the first tick,
// close from the last, extremes for high/low, summed volume, and delta from
// tick-rule buy/sell classification (50/50 on an unchanged price; the first
// tick has no reference and counts as neutral).
func buildBar(ticks []signal.Tick, now time.Time) signal.Bar {
	bar := signal.Bar{
		Ts:        now.UnixMilli(),
		Open:      ticks[0].Price,
		High:      ticks[0].Price,
		Low:       ticks[0].Price,
		Close:     ticks[len(ticks)-1].Price,
		TickCount: len(ticks),
	}
	var buyVol, sellVol float64
	prev := ticks[0].Price
	for i, t := range ticks {
		if t.Price > bar.High {
			bar.High = t.Price
		}
		if t.Price < bar.Low {
			bar.Low = t.Price
		}
		bar.Volume += t.Volume
		switch {
		case i == 0 || t.Price == prev:
			buyVol += t.Volume / 2
			sellVol += t.Volume / 2
		case t.Price > prev:
			buyVol += t.Volume
		default:
			sellVol += t.Volume
		}
		prev = t.Price
	}
	bar.Delta = buyVol - sellVol
	return bar
}
