// Package market holds the materialized price data the engine runs on: one
// date-ordered close series per instrument, and a Pair of two aligned series.
package market

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/rustyeddy/pairtrader/errs"
)

// DateLayout is the calendar-date format used in CSV files and configs.
const DateLayout = "2006-01-02"

// Point is one (date, adjusted close) observation. A missing price is NaN.
type Point struct {
	Date  time.Time
	Price float64
}

// Series is an ordered price history for a single instrument.
type Series struct {
	Symbol string
	Points []Point
}

// Missing reports whether a price cannot be used (absent or non-positive).
func Missing(p float64) bool {
	return math.IsNaN(p) || math.IsInf(p, 0) || p <= 0
}

func (s Series) Len() int { return len(s.Points) }

// Dates returns the series dates in order.
func (s Series) Dates() []time.Time {
	out := make([]time.Time, len(s.Points))
	for i, p := range s.Points {
		out[i] = p.Date
	}
	return out
}

// Prices returns the series prices in order.
func (s Series) Prices() []float64 {
	out := make([]float64, len(s.Points))
	for i, p := range s.Points {
		out[i] = p.Price
	}
	return out
}

// Validate checks that dates are strictly increasing.
func (s Series) Validate() error {
	for i := 1; i < len(s.Points); i++ {
		if !s.Points[i].Date.After(s.Points[i-1].Date) {
			return fmt.Errorf("series %s: row %d (%s) is not after %s: %w",
				s.Symbol, i, s.Points[i].Date.Format(DateLayout),
				s.Points[i-1].Date.Format(DateLayout), errs.ErrMisalignedSeries)
		}
	}
	return nil
}

// Pair is two instrument series that share the same dates row for row.
// A is the dependent leg of the hedge regression, B the independent leg.
type Pair struct {
	A Series
	B Series
}

// NewPair validates alignment and returns the pair.
func NewPair(a, b Series) (Pair, error) {
	p := Pair{A: a, B: b}
	if err := p.Validate(); err != nil {
		return Pair{}, err
	}
	return p, nil
}

// Validate fails with a MisalignedSeriesError unless both series have the
// same length and identical dates at every row, in strictly increasing order.
func (p Pair) Validate() error {
	if p.A.Len() != p.B.Len() {
		return &errs.MisalignedSeriesError{Index: -1, LenA: p.A.Len(), LenB: p.B.Len()}
	}
	for i := range p.A.Points {
		da, db := p.A.Points[i].Date, p.B.Points[i].Date
		if !da.Equal(db) {
			return &errs.MisalignedSeriesError{Index: i, DateA: da, DateB: db, LenA: p.A.Len(), LenB: p.B.Len()}
		}
	}
	if err := p.A.Validate(); err != nil {
		return err
	}
	return p.B.Validate()
}

func (p Pair) Len() int { return p.A.Len() }

// Dates returns the shared dates. The pair is assumed valid.
func (p Pair) Dates() []time.Time { return p.A.Dates() }

// Date returns the date at row i.
func (p Pair) Date(i int) time.Time { return p.A.Points[i].Date }

// First and Last return the bounds of the date range. Both are zero for an
// empty pair.
func (p Pair) First() time.Time {
	if p.Len() == 0 {
		return time.Time{}
	}
	return p.A.Points[0].Date
}

func (p Pair) Last() time.Time {
	if p.Len() == 0 {
		return time.Time{}
	}
	return p.A.Points[p.Len()-1].Date
}

// Index returns the first row whose date is not before t.
func (p Pair) Index(t time.Time) int {
	return sort.Search(p.Len(), func(i int) bool {
		return !p.A.Points[i].Date.Before(t)
	})
}

// Slice returns the rows with dates in [from, to). A zero to means no upper
// bound. The returned pair shares backing arrays with p.
func (p Pair) Slice(from, to time.Time) Pair {
	lo := p.Index(from)
	hi := p.Len()
	if !to.IsZero() {
		hi = p.Index(to)
	}
	if hi < lo {
		hi = lo
	}
	return Pair{
		A: Series{Symbol: p.A.Symbol, Points: p.A.Points[lo:hi]},
		B: Series{Symbol: p.B.Symbol, Points: p.B.Points[lo:hi]},
	}
}

// SplitDate returns the date that starts the test window when the first
// trainFrac of rows are used for training.
func (p Pair) SplitDate(trainFrac float64) (time.Time, error) {
	if trainFrac <= 0 || trainFrac >= 1 {
		return time.Time{}, errs.InvalidConfig("train_fraction", "must be in (0, 1), got %g", trainFrac)
	}
	idx := int(float64(p.Len()) * trainFrac)
	if idx <= 0 || idx >= p.Len() {
		return time.Time{}, &errs.InsufficientDataError{What: "train/test split", Need: 2, Have: p.Len()}
	}
	return p.Date(idx), nil
}

// CheckSplit reports whether split falls strictly inside the date range,
// leaving both a train and a test window.
func (p Pair) CheckSplit(split time.Time) error {
	first, last := p.First(), p.Last()
	if !split.After(first) || !split.Before(last) {
		return errs.InvalidConfig("split_date", "%s must be strictly inside %s..%s",
			split.Format(DateLayout), first.Format(DateLayout), last.Format(DateLayout))
	}
	return nil
}

// LogPrices maps prices to natural logs. Missing prices map to NaN.
func LogPrices(prices []float64) []float64 {
	out := make([]float64, len(prices))
	for i, v := range prices {
		if Missing(v) {
			out[i] = math.NaN()
			continue
		}
		out[i] = math.Log(v)
	}
	return out
}

// LogReturns returns day-over-day log returns. The first element, and any
// element touching a missing price, is NaN.
func LogReturns(prices []float64) []float64 {
	logs := LogPrices(prices)
	out := make([]float64, len(logs))
	for i := range logs {
		if i == 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = logs[i] - logs[i-1]
	}
	return out
}
