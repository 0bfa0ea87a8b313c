package sweep

import (
	"bytes"
	"context"
	"errors"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/pairtrader/backtest"
	"github.com/rustyeddy/pairtrader/errs"
	"github.com/rustyeddy/pairtrader/market"
	"github.com/rustyeddy/pairtrader/metrics"
	"github.com/rustyeddy/pairtrader/pipeline"
)

func testPair(seed int64, n int) market.Pair {
	r := rand.New(rand.NewSource(seed))
	a := market.Series{Symbol: "A"}
	b := market.Series{Symbol: "B"}
	lb, e := math.Log(40), 0.0
	for i := 0; i < n; i++ {
		lb += 0.01 * r.NormFloat64()
		e = 0.85*e + 0.01*r.NormFloat64()
		d := time.Date(2016, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i)
		a.Points = append(a.Points, market.Point{Date: d, Price: math.Exp(1.1*lb + e)})
		b.Points = append(b.Points, market.Point{Date: d, Price: math.Exp(lb)})
	}
	return market.Pair{A: a, B: b}
}

var testGrid = Grid{
	Windows: []int{30, 60},
	Entries: []float64{1.5, 2.0, 2.5},
	Exits:   []float64{0, 0.5, 2.0},
}

func TestGridPoints(t *testing.T) {
	pts := testGrid.Points(backtest.DefaultConfig())
	// exit 2.0 survives only with entry 2.5.
	assert.Len(t, pts, 2*(2+2+3))
	assert.Equal(t, Params{Window: 30, Entry: 1.5, Exit: 0}, pts[0])
	for _, p := range pts {
		assert.Less(t, p.Exit, p.Entry)
	}

	base := Grid{}.Points(backtest.DefaultConfig())
	require.Len(t, base, 1)
	assert.Equal(t, Params{Window: 60, Entry: 2, Exit: 0.5}, base[0])
}

func TestRunMatchesSequential(t *testing.T) {
	pair := testPair(1, 700)
	cfg := pipeline.DefaultConfig()

	par, err := Run(context.Background(), pair, cfg, testGrid, WithWorkers(4))
	require.NoError(t, err)
	seq, err := Run(context.Background(), pair, cfg, testGrid, WithWorkers(1))
	require.NoError(t, err)

	require.False(t, par.Rejected)
	require.Len(t, par.Outcomes, len(testGrid.Points(cfg.Backtest)))
	require.Equal(t, len(seq.Outcomes), len(par.Outcomes))
	for i := range par.Outcomes {
		assert.Equal(t, seq.Outcomes[i].Params, par.Outcomes[i].Params)
		assert.Equal(t, seq.Outcomes[i].Trades, par.Outcomes[i].Trades)
		assert.Equal(t, seq.Outcomes[i].Test.TotalReturn, par.Outcomes[i].Test.TotalReturn)
	}
	require.NotNil(t, par.Best)
	assert.Equal(t, seq.Best.Params, par.Best.Params)

	// Every point shares the one frozen hedge: the default point equals a
	// plain pipeline run.
	rep, err := pipeline.Run(context.Background(), pair, cfg)
	require.NoError(t, err)
	assert.Equal(t, rep.Hedge, par.Hedge)
	for _, o := range par.Outcomes {
		if o.Params == (Params{Window: 60, Entry: 2, Exit: 0.5}) {
			assert.Equal(t, rep.Test.Metrics.TotalReturn, o.Test.TotalReturn)
			assert.Equal(t, rep.Train.Metrics.Sharpe, o.Train.Sharpe)
		}
	}
}

func TestBest(t *testing.T) {
	out := []Outcome{
		{Params: Params{Window: 1}, Train: metrics.Report{Sharpe: 0.5}},
		{Params: Params{Window: 2}, Train: metrics.Report{Sharpe: math.NaN()}},
		{Params: Params{Window: 3}, Train: metrics.Report{Sharpe: 1.5}, Err: errors.New("boom")},
		{Params: Params{Window: 4}, Train: metrics.Report{Sharpe: 1.2, Calmar: -1}},
		{Params: Params{Window: 5}, Train: metrics.Report{Sharpe: 1.2, Calmar: 3}},
	}
	b := Best(out, Sharpe)
	require.NotNil(t, b)
	assert.Equal(t, 4, b.Params.Window, "tie goes to the earlier point")

	b = Best(out, Calmar)
	require.NotNil(t, b)
	assert.Equal(t, 5, b.Params.Window)

	assert.Nil(t, Best(out[1:3], Sharpe))
	assert.Nil(t, Best(nil, Sharpe))
}

func TestRunErrors(t *testing.T) {
	pair := testPair(2, 400)

	_, err := Run(context.Background(), pair, pipeline.DefaultConfig(), testGrid, WithObjective("luck"))
	assert.ErrorIs(t, err, errs.ErrInvalidConfiguration)

	_, err = Run(context.Background(), pair, pipeline.DefaultConfig(), Grid{Entries: []float64{0.5}, Exits: []float64{1}})
	assert.ErrorIs(t, err, errs.ErrInvalidConfiguration)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Run(ctx, pair, pipeline.DefaultConfig(), testGrid)
	assert.ErrorIs(t, err, context.Canceled)

	for _, split := range []time.Time{pair.Last().AddDate(0, 6, 0), pair.First().AddDate(0, -6, 0)} {
		cfg := pipeline.DefaultConfig()
		cfg.Backtest.Split = split
		res, err := Run(context.Background(), pair, cfg, testGrid)
		assert.ErrorIs(t, err, errs.ErrInvalidConfiguration, split)
		assert.Nil(t, res)
	}
}

func TestInvalidPointIsRecorded(t *testing.T) {
	pair := testPair(3, 500)
	// Entry 4.5 is above the default stop of 4: that point cannot run.
	res, err := Run(context.Background(), pair, pipeline.DefaultConfig(), Grid{Entries: []float64{2, 4.5}})
	require.NoError(t, err)
	require.Len(t, res.Outcomes, 2)
	assert.NoError(t, res.Outcomes[0].Err)
	assert.ErrorIs(t, res.Outcomes[1].Err, errs.ErrInvalidConfiguration)

	var buf bytes.Buffer
	PrintResult(&buf, res)
	assert.Contains(t, buf.String(), "Parameter Sweep")
	assert.Contains(t, buf.String(), "error:")
}
