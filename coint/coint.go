// Package coint estimates the hedge ratio between two log-price series and
// tests the regression residual for stationarity (Engle-Granger two-step).
package coint

import (
	"math"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/rustyeddy/pairtrader/errs"
	"github.com/rustyeddy/pairtrader/market"
)

// MinObservations is the shortest estimation window accepted. It leaves
// enough rows for the ADF regression at the default lag order.
const MinObservations = 20

// DefaultRollingWindow is one trading year.
const DefaultRollingWindow = 252

// Options tunes the stationarity test.
type Options struct {
	MaxLag       int     `json:"max_lag" yaml:"max_lag"`
	Significance float64 `json:"significance" yaml:"significance"`
}

// DefaultOptions returns MaxLag 1 at the 5% level.
func DefaultOptions() Options {
	return Options{MaxLag: 1, Significance: 0.05}
}

// HedgeRatio is the frozen output of one estimation window. It is a value
// type; nothing in the module mutates one after Estimate returns it.
type HedgeRatio struct {
	Beta      float64 `json:"beta" yaml:"beta"`
	Intercept float64 `json:"intercept" yaml:"intercept"`

	WindowStart time.Time `json:"window_start" yaml:"window_start"`
	WindowEnd   time.Time `json:"window_end" yaml:"window_end"`
	NObs        int       `json:"nobs" yaml:"nobs"`

	ADFStatistic   float64        `json:"adf_statistic" yaml:"adf_statistic"`
	PValue         float64        `json:"p_value" yaml:"p_value"`
	UsedLag        int            `json:"used_lag" yaml:"used_lag"`
	CriticalValues CriticalValues `json:"critical_values" yaml:"critical_values"`
	Significance   float64        `json:"significance" yaml:"significance"`
}

// Cointegrated reports whether the residual unit root was rejected.
func (h HedgeRatio) Cointegrated() bool {
	return h.PValue < h.Significance
}

// Spread returns logA - beta*logB - intercept.
func (h HedgeRatio) Spread(logA, logB float64) float64 {
	return logA - h.Beta*logB - h.Intercept
}

// Estimate fits logA = intercept + beta*logB by OLS and runs ADF on the
// residuals. Rows where either input is NaN are dropped first.
func Estimate(dates []time.Time, logA, logB []float64, opts Options) (HedgeRatio, error) {
	d, a, b := dropMissing(dates, logA, logB)
	if len(a) < MinObservations {
		return HedgeRatio{}, &errs.InsufficientDataError{What: "hedge ratio estimation", Need: MinObservations, Have: len(a)}
	}
	if err := checkVariance("A", a); err != nil {
		return HedgeRatio{}, err
	}
	if err := checkVariance("B", b); err != nil {
		return HedgeRatio{}, err
	}

	intercept, beta := stat.LinearRegression(b, a, nil, false)

	resid := make([]float64, len(a))
	for i := range a {
		resid[i] = a[i] - intercept - beta*b[i]
	}

	h := HedgeRatio{
		Beta:         beta,
		Intercept:    intercept,
		WindowStart:  d[0],
		WindowEnd:    d[len(d)-1],
		NObs:         len(a),
		Significance: opts.Significance,
	}

	// A residual with no variance left is trivially stationary.
	if stat.StdDev(resid, nil) <= 1e-10*math.Max(1, stat.StdDev(a, nil)) {
		h.ADFStatistic = math.Inf(-1)
		h.PValue = 0
		h.CriticalValues = criticalValues(len(resid) - 1)
		return h, nil
	}

	res, err := ADF(resid, opts.MaxLag)
	if err != nil {
		return HedgeRatio{}, err
	}
	h.ADFStatistic = res.Statistic
	h.PValue = res.PValue
	h.UsedLag = res.UsedLag
	h.CriticalValues = res.CriticalValues
	return h, nil
}

// EstimatePair estimates on the rows of pair dated in [from, to). A zero to
// means the end of the pair.
func EstimatePair(pair market.Pair, from, to time.Time, opts Options) (HedgeRatio, error) {
	w := pair.Slice(from, to)
	return Estimate(w.Dates(), market.LogPrices(w.A.Prices()), market.LogPrices(w.B.Prices()), opts)
}

// BetaPoint is one rolling estimate, dated by the last row of its window.
type BetaPoint struct {
	Date time.Time `json:"date" yaml:"date"`
	Beta float64   `json:"beta" yaml:"beta"`
}

// Stability summarizes rolling hedge-ratio estimates.
type Stability struct {
	Window int         `json:"window" yaml:"window"`
	Points []BetaPoint `json:"-" yaml:"-"`
	Mean   float64     `json:"mean" yaml:"mean"`
	StdDev float64     `json:"std_dev" yaml:"std_dev"`
	Min    float64     `json:"min" yaml:"min"`
	Max    float64     `json:"max" yaml:"max"`
}

// RollingBeta re-runs the hedge regression over every trailing window of
// the given length. It is a diagnostic for hedge-ratio stability and plays
// no part in the backtest. Windows where B is constant are skipped.
func RollingBeta(dates []time.Time, logA, logB []float64, window int) (Stability, error) {
	if window < 2 {
		return Stability{}, errs.InvalidConfig("rolling_window", "must be >= 2, got %d", window)
	}
	d, a, b := dropMissing(dates, logA, logB)
	if len(a) < window {
		return Stability{}, &errs.InsufficientDataError{What: "rolling beta", Need: window, Have: len(a)}
	}

	s := Stability{Window: window}
	betas := make([]float64, 0, len(a)-window+1)
	for end := window; end <= len(a); end++ {
		wa, wb := a[end-window:end], b[end-window:end]
		if floats.Max(wb) == floats.Min(wb) {
			continue
		}
		_, beta := stat.LinearRegression(wb, wa, nil, false)
		s.Points = append(s.Points, BetaPoint{Date: d[end-1], Beta: beta})
		betas = append(betas, beta)
	}
	if len(betas) == 0 {
		return Stability{}, &errs.DegenerateInputError{Series: "B", Reason: "zero variance in every rolling window"}
	}

	s.Mean, s.StdDev = stat.MeanStdDev(betas, nil)
	if len(betas) < 2 {
		s.StdDev = math.NaN()
	}
	s.Min = floats.Min(betas)
	s.Max = floats.Max(betas)
	return s, nil
}

// RollingBetaPair is RollingBeta over the rows of pair dated in [from, to).
func RollingBetaPair(pair market.Pair, from, to time.Time, window int) (Stability, error) {
	w := pair.Slice(from, to)
	return RollingBeta(w.Dates(), market.LogPrices(w.A.Prices()), market.LogPrices(w.B.Prices()), window)
}

func dropMissing(dates []time.Time, a, b []float64) ([]time.Time, []float64, []float64) {
	n := min(len(dates), len(a), len(b))
	d := make([]time.Time, 0, n)
	xa := make([]float64, 0, n)
	xb := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		if math.IsNaN(a[i]) || math.IsNaN(b[i]) {
			continue
		}
		d = append(d, dates[i])
		xa = append(xa, a[i])
		xb = append(xb, b[i])
	}
	return d, xa, xb
}

func checkVariance(name string, x []float64) error {
	if floats.Max(x) == floats.Min(x) {
		return &errs.DegenerateInputError{Series: name, Reason: "zero variance"}
	}
	return nil
}
