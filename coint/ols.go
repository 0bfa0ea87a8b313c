package coint

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/mat"
)

var errSingular = errors.New("singular design matrix")

// olsFit is an ordinary least squares fit with classical standard errors.
type olsFit struct {
	coef   []float64
	se     []float64
	resid  []float64
	ssr    float64
	nobs   int
	params int
}

func (f olsFit) tvalue(i int) float64 {
	return f.coef[i] / f.se[i]
}

// aic uses the Gaussian log-likelihood, matching the usual OLS AIC.
func (f olsFit) aic() float64 {
	n := float64(f.nobs)
	llf := -n / 2 * (math.Log(2*math.Pi) + math.Log(f.ssr/n) + 1)
	return -2*llf + 2*float64(f.params)
}

// fitOLS regresses y on the columns of x.
func fitOLS(x *mat.Dense, y []float64) (olsFit, error) {
	n, k := x.Dims()
	if n <= k {
		return olsFit{}, errSingular
	}

	var xtx mat.Dense
	xtx.Mul(x.T(), x)

	var inv mat.Dense
	if err := inv.Inverse(&xtx); err != nil {
		return olsFit{}, errSingular
	}

	yv := mat.NewVecDense(n, y)
	var xty mat.VecDense
	xty.MulVec(x.T(), yv)

	var beta mat.VecDense
	beta.MulVec(&inv, &xty)

	var fitted mat.VecDense
	fitted.MulVec(x, &beta)

	fit := olsFit{
		coef:   make([]float64, k),
		se:     make([]float64, k),
		resid:  make([]float64, n),
		nobs:   n,
		params: k,
	}
	for i := 0; i < n; i++ {
		r := y[i] - fitted.AtVec(i)
		fit.resid[i] = r
		fit.ssr += r * r
	}

	sigma2 := fit.ssr / float64(n-k)
	for j := 0; j < k; j++ {
		fit.coef[j] = beta.AtVec(j)
		fit.se[j] = math.Sqrt(sigma2 * inv.At(j, j))
	}
	return fit, nil
}
