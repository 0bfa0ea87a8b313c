// Package signal turns a pair and a frozen hedge ratio into a spread, and
// the spread into a rolling z-score.
//
// Every z-score at day t is computed from the trailing window ending at t.
// Nothing after t is ever read.
package signal

import (
	"iter"
	"math"
	"time"

	"github.com/rustyeddy/pairtrader/coint"
	"github.com/rustyeddy/pairtrader/errs"
	"github.com/rustyeddy/pairtrader/market"
)

// Point is the z-score for one date. Valid is false (and Z is NaN) when the
// window is short, contains a missing spread value, or has zero variance.
// Consumers treat an invalid point as "no actionable signal".
type Point struct {
	Date  time.Time
	Z     float64
	Valid bool
}

// Spread computes log(A) - beta*log(B) - intercept for each row of pair. A
// row with a missing price yields NaN.
func Spread(pair market.Pair, h coint.HedgeRatio) []float64 {
	out := make([]float64, pair.Len())
	for i := range out {
		pa, pb := pair.A.Points[i].Price, pair.B.Points[i].Price
		if market.Missing(pa) || market.Missing(pb) {
			out[i] = math.NaN()
			continue
		}
		out[i] = h.Spread(math.Log(pa), math.Log(pb))
	}
	return out
}

// Generator builds rolling z-scores over a window of Window observations.
type Generator struct {
	Window int
}

// NewGenerator validates the window length.
func NewGenerator(window int) (Generator, error) {
	if window < 2 {
		return Generator{}, errs.InvalidConfig("zscore_window", "must be >= 2, got %d", window)
	}
	return Generator{Window: window}, nil
}

// ZScore returns (value-mean)/sd from a ready window, or false.
func ZScore(r *Rolling, value float64) (float64, bool) {
	if !r.Ready() || math.IsNaN(value) {
		return math.NaN(), false
	}
	sd := r.StdDev()
	if !(sd > 0) {
		return math.NaN(), false
	}
	return (value - r.Mean()) / sd, true
}

// Points lazily yields one Point per date. The sequence is finite and
// restartable: every range over it starts from an empty window.
func (g Generator) Points(dates []time.Time, spread []float64) iter.Seq[Point] {
	return func(yield func(Point) bool) {
		r := NewRolling(g.Window)
		n := min(len(dates), len(spread))
		for i := 0; i < n; i++ {
			r.Update(spread[i])
			z, ok := ZScore(r, spread[i])
			if !yield(Point{Date: dates[i], Z: z, Valid: ok}) {
				return
			}
		}
	}
}

// Collect materializes Points into a slice.
func (g Generator) Collect(dates []time.Time, spread []float64) []Point {
	out := make([]Point, 0, len(spread))
	for p := range g.Points(dates, spread) {
		out = append(out, p)
	}
	return out
}
