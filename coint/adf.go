package coint

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/rustyeddy/pairtrader/errs"
)

// CriticalValues are the ADF test statistic thresholds at the usual levels.
type CriticalValues struct {
	OnePct  float64 `json:"1%" yaml:"1%"`
	FivePct float64 `json:"5%" yaml:"5%"`
	TenPct  float64 `json:"10%" yaml:"10%"`
}

// ADFResult is the outcome of an augmented Dickey-Fuller test with a
// constant term. Failing to reject the unit root is a valid result, not an
// error.
type ADFResult struct {
	Statistic      float64
	PValue         float64
	UsedLag        int
	NObs           int
	AIC            float64
	CriticalValues CriticalValues
}

// Rejects reports whether the unit root is rejected at significance alpha.
func (r ADFResult) Rejects(alpha float64) bool {
	return r.PValue < alpha
}

// MacKinnon (1994) response surface, constant term, one variable.
const (
	tauMax  = 2.74
	tauMin  = -18.83
	tauStar = -1.61
)

var (
	tauSmallP = []float64{2.1659, 1.4412, 0.038269}
	tauLargeP = []float64{1.7339, 0.93202, -0.12745, -0.010368}
)

// MacKinnon (2010) finite-sample critical value coefficients, constant term.
var (
	cv1  = [4]float64{-3.43035, -6.5393, -16.786, -79.433}
	cv5  = [4]float64{-2.86154, -2.8903, -4.234, -40.040}
	cv10 = [4]float64{-2.56677, -1.5384, -2.809, 0}
)

// ADFPValue maps a test statistic to its approximate p-value.
func ADFPValue(stat float64) float64 {
	if math.IsNaN(stat) {
		return math.NaN()
	}
	if stat > tauMax {
		return 1
	}
	if stat < tauMin {
		return 0
	}
	coef := tauLargeP
	if stat <= tauStar {
		coef = tauSmallP
	}
	poly := 0.0
	for i := len(coef) - 1; i >= 0; i-- {
		poly = poly*stat + coef[i]
	}
	return distuv.UnitNormal.CDF(poly)
}

func criticalValues(nobs int) CriticalValues {
	eval := func(c [4]float64) float64 {
		t := float64(nobs)
		return c[0] + c[1]/t + c[2]/(t*t) + c[3]/(t*t*t)
	}
	return CriticalValues{OnePct: eval(cv1), FivePct: eval(cv5), TenPct: eval(cv10)}
}

// minADFObservations is the shortest series ADF accepts for maxLag.
func minADFObservations(maxLag int) int {
	need := 2*(maxLag+3) + 2
	if need < MinObservations {
		need = MinObservations
	}
	return need
}

// ADF runs the augmented Dickey-Fuller test on x with a constant term. The
// lag order is chosen by AIC over 0..maxLag on a common sample, then the
// chosen regression is refit on its own full sample.
func ADF(x []float64, maxLag int) (ADFResult, error) {
	if maxLag < 0 {
		return ADFResult{}, errs.InvalidConfig("max_lag", "must be >= 0, got %d", maxLag)
	}
	if need := minADFObservations(maxLag); len(x) < need {
		return ADFResult{}, &errs.InsufficientDataError{What: "ADF test", Need: need, Have: len(x)}
	}
	if floats.Max(x) == floats.Min(x) {
		return ADFResult{}, &errs.DegenerateInputError{Series: "ADF input", Reason: "constant series"}
	}

	dx := make([]float64, len(x)-1)
	for i := range dx {
		dx[i] = x[i+1] - x[i]
	}

	bestLag := 0
	bestAIC := math.Inf(1)
	for lag := 0; lag <= maxLag; lag++ {
		fit, err := fitOLS(adfDesign(x, dx, lag, maxLag))
		if err != nil {
			continue
		}
		if a := fit.aic(); a < bestAIC {
			bestAIC = a
			bestLag = lag
		}
	}

	fit, err := fitOLS(adfDesign(x, dx, bestLag, bestLag))
	if err != nil {
		return ADFResult{}, &errs.DegenerateInputError{Series: "ADF input", Reason: err.Error()}
	}

	stat := fit.tvalue(1)
	return ADFResult{
		Statistic:      stat,
		PValue:         ADFPValue(stat),
		UsedLag:        bestLag,
		NObs:           fit.nobs,
		AIC:            bestAIC,
		CriticalValues: criticalValues(fit.nobs),
	}, nil
}

// adfDesign builds the regression of dx[t] on [1, x[t], dx[t-1..t-lag]] for
// t in start..len(dx)-1. Column 1 is the lagged level.
func adfDesign(x, dx []float64, lag, start int) (*mat.Dense, []float64) {
	rows := len(dx) - start
	cols := 2 + lag
	design := mat.NewDense(rows, cols, nil)
	y := make([]float64, rows)
	for r := 0; r < rows; r++ {
		t := start + r
		y[r] = dx[t]
		design.Set(r, 0, 1)
		design.Set(r, 1, x[t])
		for j := 1; j <= lag; j++ {
			design.Set(r, 1+j, dx[t-j])
		}
	}
	return design, y
}
