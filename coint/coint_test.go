package coint

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/pairtrader/errs"
	"github.com/rustyeddy/pairtrader/market"
)

func dates(n int) []time.Time {
	out := make([]time.Time, n)
	t0 := time.Date(2015, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range out {
		out[i] = t0.AddDate(0, 0, i)
	}
	return out
}

// randomWalk returns log prices of a driftless Gaussian random walk.
func randomWalk(r *rand.Rand, n int, start, vol float64) []float64 {
	out := make([]float64, n)
	out[0] = start
	for i := 1; i < n; i++ {
		out[i] = out[i-1] + vol*r.NormFloat64()
	}
	return out
}

func TestEstimateProportionalSeries(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	logB := randomWalk(r, 400, math.Log(50), 0.01)

	tests := []struct {
		name      string
		beta      float64
		intercept float64
	}{
		{"A = 2B", 1.0, math.Log(2)},
		{"A = 3B^1.5", 1.5, math.Log(3)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logA := make([]float64, len(logB))
			for i, v := range logB {
				logA[i] = tt.intercept + tt.beta*v
			}

			h, err := Estimate(dates(len(logB)), logA, logB, DefaultOptions())
			require.NoError(t, err)
			assert.InDelta(t, tt.beta, h.Beta, 1e-9)
			assert.InDelta(t, tt.intercept, h.Intercept, 1e-7)
			assert.Equal(t, 0.0, h.PValue)
			assert.True(t, math.IsInf(h.ADFStatistic, -1))
			assert.True(t, h.Cointegrated())
			assert.Equal(t, 400, h.NObs)
			assert.Equal(t, dates(400)[0], h.WindowStart)
			assert.Equal(t, dates(400)[399], h.WindowEnd)
		})
	}
}

func TestEstimateStationaryResidual(t *testing.T) {
	r := rand.New(rand.NewSource(11))
	n := 500
	logB := randomWalk(r, n, math.Log(80), 0.01)
	logA := make([]float64, n)
	noise := 0.0
	for i := range logA {
		noise = 0.5*noise + 0.01*r.NormFloat64()
		logA[i] = 0.3 + 0.8*logB[i] + noise
	}

	h, err := Estimate(dates(n), logA, logB, DefaultOptions())
	require.NoError(t, err)
	assert.InDelta(t, 0.8, h.Beta, 0.05)
	assert.Less(t, h.PValue, 0.01)
	assert.Less(t, h.ADFStatistic, h.CriticalValues.OnePct)
	assert.True(t, h.Cointegrated())
}

func TestEstimateIndependentRandomWalks(t *testing.T) {
	const trials = 40
	rejected := 0
	for seed := int64(1); seed <= trials; seed++ {
		r := rand.New(rand.NewSource(seed))
		logA := randomWalk(r, 500, math.Log(40), 0.015)
		logB := randomWalk(r, 500, math.Log(60), 0.015)

		h, err := Estimate(dates(500), logA, logB, DefaultOptions())
		require.NoError(t, err)
		if h.Cointegrated() {
			rejected++
		}
	}
	// Spurious regressions should mostly fail to reject the unit root.
	assert.Less(t, rejected, trials/2)
}

func TestEstimateErrors(t *testing.T) {
	t.Run("insufficient", func(t *testing.T) {
		_, err := Estimate(dates(5), []float64{1, 2, 3, 4, 5}, []float64{2, 3, 1, 5, 4}, DefaultOptions())
		var ins *errs.InsufficientDataError
		require.ErrorAs(t, err, &ins)
		assert.Equal(t, MinObservations, ins.Need)
		assert.Equal(t, 5, ins.Have)
	})

	t.Run("constant B", func(t *testing.T) {
		n := 50
		a := randomWalk(rand.New(rand.NewSource(3)), n, 1, 0.1)
		b := make([]float64, n)
		for i := range b {
			b[i] = 4
		}
		_, err := Estimate(dates(n), a, b, DefaultOptions())
		assert.ErrorIs(t, err, errs.ErrDegenerateInput)
	})

	t.Run("missing rows dropped below minimum", func(t *testing.T) {
		n := MinObservations + 2
		r := rand.New(rand.NewSource(5))
		a := randomWalk(r, n, 1, 0.1)
		b := randomWalk(r, n, 1, 0.1)
		a[0], a[1], b[2] = math.NaN(), math.NaN(), math.NaN()
		_, err := Estimate(dates(n), a, b, DefaultOptions())
		assert.ErrorIs(t, err, errs.ErrInsufficientData)
	})
}

func TestEstimatePairUsesWindowOnly(t *testing.T) {
	r := rand.New(rand.NewSource(21))
	n := 300
	logB := randomWalk(r, n, math.Log(30), 0.01)
	d := dates(n)
	var a, b market.Series
	for i := 0; i < n; i++ {
		pa := math.Exp(0.1 + 1.2*logB[i])
		if i >= 200 {
			// Relationship breaks after the estimation window.
			pa = math.Exp(0.1 + 0.2*logB[i])
		}
		a.Points = append(a.Points, market.Point{Date: d[i], Price: pa})
		b.Points = append(b.Points, market.Point{Date: d[i], Price: math.Exp(logB[i])})
	}
	pair, err := market.NewPair(a, b)
	require.NoError(t, err)

	h, err := EstimatePair(pair, time.Time{}, d[200], DefaultOptions())
	require.NoError(t, err)
	assert.InDelta(t, 1.2, h.Beta, 1e-9)
	assert.Equal(t, d[199], h.WindowEnd)
	assert.Equal(t, 200, h.NObs)
}

func TestRollingBeta(t *testing.T) {
	r := rand.New(rand.NewSource(9))
	n := 300
	logB := randomWalk(r, n, math.Log(20), 0.01)
	logA := make([]float64, n)
	for i := range logA {
		logA[i] = 0.5 + 0.9*logB[i]
	}

	s, err := RollingBeta(dates(n), logA, logB, DefaultRollingWindow)
	require.NoError(t, err)
	assert.Len(t, s.Points, n-DefaultRollingWindow+1)
	assert.Equal(t, dates(n)[DefaultRollingWindow-1], s.Points[0].Date)
	assert.InDelta(t, 0.9, s.Mean, 1e-9)
	assert.InDelta(t, 0, s.StdDev, 1e-9)
	assert.InDelta(t, 0.9, s.Min, 1e-9)
	assert.InDelta(t, 0.9, s.Max, 1e-9)

	_, err = RollingBeta(dates(10), logA[:10], logB[:10], 20)
	assert.ErrorIs(t, err, errs.ErrInsufficientData)

	_, err = RollingBeta(dates(10), logA[:10], logB[:10], 1)
	assert.ErrorIs(t, err, errs.ErrInvalidConfiguration)
}

func TestADFPValue(t *testing.T) {
	assert.InDelta(t, 0.05, ADFPValue(-2.86154), 0.005)
	assert.InDelta(t, 0.01, ADFPValue(-3.43035), 0.003)
	assert.Equal(t, 1.0, ADFPValue(3))
	assert.Equal(t, 0.0, ADFPValue(-25))
	assert.True(t, math.IsNaN(ADFPValue(math.NaN())))

	// Monotone in the statistic.
	prev := 0.0
	for s := -6.0; s <= 2; s += 0.25 {
		p := ADFPValue(s)
		assert.GreaterOrEqual(t, p, prev)
		prev = p
	}
}

func TestADF(t *testing.T) {
	r := rand.New(rand.NewSource(13))

	t.Run("white noise rejects", func(t *testing.T) {
		x := make([]float64, 300)
		for i := range x {
			x[i] = r.NormFloat64()
		}
		res, err := ADF(x, 1)
		require.NoError(t, err)
		assert.True(t, res.Rejects(0.01))
		assert.Contains(t, []int{0, 1}, res.UsedLag)
		assert.Equal(t, 299-res.UsedLag, res.NObs)
		assert.Less(t, res.CriticalValues.OnePct, res.CriticalValues.FivePct)
		assert.Less(t, res.CriticalValues.FivePct, res.CriticalValues.TenPct)
	})

	t.Run("errors", func(t *testing.T) {
		_, err := ADF(make([]float64, 5), 1)
		assert.ErrorIs(t, err, errs.ErrInsufficientData)

		_, err = ADF(make([]float64, 50), 1)
		assert.ErrorIs(t, err, errs.ErrDegenerateInput)

		_, err = ADF(make([]float64, 50), -1)
		assert.ErrorIs(t, err, errs.ErrInvalidConfiguration)
	})
}

func TestHedgeRatioSpread(t *testing.T) {
	h := HedgeRatio{Beta: 2, Intercept: 0.5}
	assert.InDelta(t, 1-2*3-0.5, h.Spread(1, 3), 1e-12)
}
