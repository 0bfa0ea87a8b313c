// Package metrics summarizes a daily return series. Every ratio degrades to
// NaN on inputs it cannot be computed from (empty series, zero variance,
// zero drawdown) instead of failing.
package metrics

import (
	"math"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/rustyeddy/pairtrader/backtest"
)

const (
	TradingDaysPerYear = 252
	DaysPerYear        = 365.25
)

// Report holds the summary statistics of one ReturnSeries.
type Report struct {
	Window      string    `json:"window"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	Days        int       `json:"days"`
	TotalReturn float64   `json:"total_return"`
	CAGR        float64   `json:"cagr"`
	Volatility  float64   `json:"volatility"`
	Sharpe      float64   `json:"sharpe"`
	Sortino     float64   `json:"sortino"`
	MaxDrawdown float64   `json:"max_drawdown"`
	Calmar      float64   `json:"calmar"`
	Turnover    float64   `json:"turnover"`
}

// Compute builds the Report for s.
func Compute(s backtest.ReturnSeries) Report {
	r := Report{
		Window: s.Window,
		Days:   s.Len(),
	}
	if s.Len() == 0 {
		nan := math.NaN()
		r.TotalReturn, r.CAGR, r.Volatility = nan, nan, nan
		r.Sharpe, r.Sortino, r.MaxDrawdown, r.Calmar, r.Turnover = nan, nan, nan, nan, nan
		return r
	}
	r.Start, r.End = s.Days[0].Date, s.Days[s.Len()-1].Date

	rets := s.Returns()
	r.TotalReturn = TotalReturn(rets)
	r.CAGR = CAGR(r.TotalReturn, r.Start, r.End)
	r.Volatility = Volatility(rets)
	r.Sharpe = Sharpe(rets)
	r.Sortino = Sortino(rets)
	r.MaxDrawdown = MaxDrawdown(rets)
	r.Calmar = Calmar(r.CAGR, r.MaxDrawdown)
	r.Turnover = Turnover(s)
	return r
}

// TotalReturn compounds daily returns: prod(1+r) - 1.
func TotalReturn(rets []float64) float64 {
	if len(rets) == 0 {
		return math.NaN()
	}
	g := 1.0
	for _, x := range rets {
		g *= 1 + x
	}
	return g - 1
}

// CAGR annualizes total over the calendar span start..end.
func CAGR(total float64, start, end time.Time) float64 {
	years := end.Sub(start).Hours() / 24 / DaysPerYear
	if !(years > 0) || math.IsNaN(total) {
		return math.NaN()
	}
	return math.Pow(1+total, 1/years) - 1
}

// Volatility is the annualized sample standard deviation.
func Volatility(rets []float64) float64 {
	if len(rets) < 2 {
		return math.NaN()
	}
	return stat.StdDev(rets, nil) * math.Sqrt(TradingDaysPerYear)
}

// Sharpe is mean/sd*sqrt(252) with a zero risk-free rate.
func Sharpe(rets []float64) float64 {
	if len(rets) < 2 {
		return math.NaN()
	}
	mean, sd := stat.MeanStdDev(rets, nil)
	if !(sd > 0) {
		return math.NaN()
	}
	return mean / sd * math.Sqrt(TradingDaysPerYear)
}

// Sortino is like Sharpe but divides by the sample standard deviation of
// the negative returns only.
func Sortino(rets []float64) float64 {
	var down []float64
	for _, x := range rets {
		if x < 0 {
			down = append(down, x)
		}
	}
	if len(down) < 2 {
		return math.NaN()
	}
	sd := stat.StdDev(down, nil)
	if !(sd > 0) {
		return math.NaN()
	}
	return stat.Mean(rets, nil) / sd * math.Sqrt(TradingDaysPerYear)
}

// Drawdowns returns equity/peak - 1 for each day of the compounded curve.
// The curve starts at 1, which counts as the first peak.
func Drawdowns(rets []float64) []float64 {
	out := make([]float64, len(rets))
	eq, peak := 1.0, 1.0
	for i, x := range rets {
		eq *= 1 + x
		peak = math.Max(peak, eq)
		out[i] = eq/peak - 1
	}
	return out
}

// MaxDrawdown is the deepest drawdown, <= 0.
func MaxDrawdown(rets []float64) float64 {
	if len(rets) == 0 {
		return math.NaN()
	}
	return math.Min(0, floats.Min(Drawdowns(rets)))
}

// Calmar is cagr/|mdd|, NaN when mdd is zero.
func Calmar(cagr, mdd float64) float64 {
	if mdd == 0 || math.IsNaN(mdd) || math.IsNaN(cagr) {
		return math.NaN()
	}
	return cagr / math.Abs(mdd)
}

// Turnover is sum(|traded|) / mean(equity) / days.
func Turnover(s backtest.ReturnSeries) float64 {
	n := s.Len()
	if n == 0 {
		return math.NaN()
	}
	traded, equity := 0.0, 0.0
	for _, d := range s.Days {
		traded += math.Abs(d.Traded)
		equity += d.Equity
	}
	avg := equity / float64(n)
	if !(avg > 0) {
		return math.NaN()
	}
	return traded / avg / float64(n)
}
