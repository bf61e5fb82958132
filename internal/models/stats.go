// Package models hosts the rolling statistical models evaluated on every
// bar close. All functions are pure over the supplied windows and resolve
// degenerate inputs (short history, near-zero variance, zero volume) to
// documented neutral values instead of NaN or Inf.
package models

import (
	"math"

	"sigflow-go/internal/signal"
)

// degenerateEps guards divisions by near-zero variances and denominators.
const degenerateEps = 1e-4

// VolumePair is the per-bar buy/sell volume split derived from close
// position within the bar range.
type VolumePair struct {
	Buy  float64
	Sell float64
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// ZScore returns how many standard deviations the latest close sits from the
// mean of the trailing window, using population variance. Returns 0 when the
// window is not yet full or the series is effectively flat.
func ZScore(closes []float64, window int) float64 {
	if window <= 0 || len(closes) < window {
		return 0
	}
	tail := closes[len(closes)-window:]
	mu := mean(tail)
	var variance float64
	for _, c := range tail {
		d := c - mu
		variance += d * d
	}
	variance /= float64(len(tail))
	std := math.Sqrt(variance)
	if std < degenerateEps {
		return 0
	}
	return (tail[len(tail)-1] - mu) / std
}

// VPIN estimates order-flow toxicity as the absolute buy/sell volume
// imbalance over the trailing window. Returns the neutral 0.5 when the
// window is not yet full or total volume is under one contract.
func VPIN(flows []VolumePair, window int) float64 {
	if window <= 0 || len(flows) < window {
		return 0.5
	}
	var buy, sell float64
	for _, f := range flows[len(flows)-window:] {
		buy += f.Buy
		sell += f.Sell
	}
	total := buy + sell
	if total < 1 {
		return 0.5
	}
	return math.Abs(buy-sell) / total
}

// KyleLambda measures price impact per unit volume as
// |Cov(priceChange, volume) / Var(volume)| over successive bar-to-bar close
// deltas in the trailing lookback. Returns 0 when volume variance is
// degenerate or there are too few bars to form deltas.
func KyleLambda(bars []signal.Bar, lookback int) float64 {
	if lookback < 2 {
		return 0
	}
	if len(bars) > lookback+1 {
		bars = bars[len(bars)-lookback-1:]
	}
	if len(bars) < 3 {
		return 0
	}
	deltas := make([]float64, 0, len(bars)-1)
	volumes := make([]float64, 0, len(bars)-1)
	for i := 1; i < len(bars); i++ {
		deltas = append(deltas, bars[i].Close-bars[i-1].Close)
		volumes = append(volumes, bars[i].Volume)
	}
	muD := mean(deltas)
	muV := mean(volumes)
	var cov, varV float64
	for i := range deltas {
		cov += (deltas[i] - muD) * (volumes[i] - muV)
		dv := volumes[i] - muV
		varV += dv * dv
	}
	n := float64(len(deltas))
	cov /= n
	varV /= n
	if varV < degenerateEps {
		return 0
	}
	return math.Abs(cov / varV)
}

// defaultATR is reported until period+1 bars exist.
const defaultATR = 2.5

// ATR is the simple mean of the true range over the trailing period. True
// range needs the previous close, so period+1 bars are required; before
// that the default is returned.
func ATR(bars []signal.Bar, period int) float64 {
	if period <= 0 || len(bars) < period+1 {
		return defaultATR
	}
	tail := bars[len(bars)-period-1:]
	var sum float64
	for i := 1; i < len(tail); i++ {
		prevClose := tail[i-1].Close
		tr := tail[i].High - tail[i].Low
		if hc := math.Abs(tail[i].High - prevClose); hc > tr {
			tr = hc
		}
		if lc := math.Abs(tail[i].Low - prevClose); lc > tr {
			tr = lc
		}
		sum += tr
	}
	return sum / float64(period)
}

// OFI derives directional pressure from where each bar closed within its
// range, weighted by bar volume, over the trailing lookback. Bars with no
// range are skipped. Returns 0 when no bar qualifies or total pressure is
// under one contract.
func OFI(bars []signal.Bar, lookback int) float64 {
	if len(bars) > lookback {
		bars = bars[len(bars)-lookback:]
	}
	var buyPressure, sellPressure float64
	qualified := false
	for _, b := range bars {
		rng := b.Range()
		if rng <= 0 {
			continue
		}
		qualified = true
		closePos := (b.Close - b.Low) / rng
		buyPressure += closePos * b.Volume
		sellPressure += (1 - closePos) * b.Volume
	}
	total := buyPressure + sellPressure
	if !qualified || total < 1 {
		return 0
	}
	return (buyPressure - sellPressure) / total
}
