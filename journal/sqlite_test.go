package journal

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"math/rand"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/pairtrader/coint"
	"github.com/rustyeddy/pairtrader/market"
	"github.com/rustyeddy/pairtrader/pipeline"
)

func newTestSQLite(t *testing.T) (*SQLite, string) {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "test.db")

	j, err := NewSQLite(path)
	require.NoError(t, err)

	return j, path
}

var d0 = time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC)

func sampleRun(id string) RunRecord {
	return RunRecord{
		RunID:        id,
		Created:      time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC),
		SymbolA:      "KO",
		SymbolB:      "PEP",
		Start:        d0,
		End:          d0.AddDate(2, 0, 0),
		Split:        d0.AddDate(1, 4, 0),
		Beta:         1.25,
		Intercept:    0.1,
		ADFStatistic: -4.2,
		PValue:       0.003,
		Cointegrated: true,
		Traded:       true,
		Window:       60,
		Entry:        2,
		Exit:         0.5,
		StopLoss:     4,
		MaxHold:      20,
		CostBps:      5,
		Config:       []byte(`{"signal":{"zscore_window":60}}`),
	}
}

func TestSQLiteSchemaCreated(t *testing.T) {
	t.Parallel()

	j, path := newTestSQLite(t)
	assert.NoError(t, j.Close())

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	rows, err := db.Query(`SELECT name FROM sqlite_master WHERE type='table'`)
	require.NoError(t, err)
	defer rows.Close()

	found := map[string]bool{}
	for rows.Next() {
		var name string
		assert.NoError(t, rows.Scan(&name))
		found[name] = true
	}
	assert.NoError(t, rows.Err())

	for _, name := range []string{"runs", "metrics", "trades", "returns"} {
		assert.True(t, found[name], name)
	}
}

func TestSQLiteRunRoundTrip(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	t.Cleanup(func() { _ = j.Close() })

	rec := sampleRun("01RUN")
	rec.PValue = math.NaN()
	require.NoError(t, j.RecordRun(rec))

	got, err := j.GetRun("01RUN")
	require.NoError(t, err)

	assert.Equal(t, rec.SymbolA, got.SymbolA)
	assert.Equal(t, rec.SymbolB, got.SymbolB)
	assert.True(t, rec.Created.Equal(got.Created))
	assert.True(t, rec.Start.Equal(got.Start))
	assert.True(t, rec.End.Equal(got.End))
	assert.True(t, rec.Split.Equal(got.Split))
	assert.InDelta(t, rec.Beta, got.Beta, 1e-12)
	assert.InDelta(t, rec.ADFStatistic, got.ADFStatistic, 1e-12)
	assert.True(t, math.IsNaN(got.PValue))
	assert.True(t, got.Cointegrated)
	assert.False(t, got.Forced)
	assert.True(t, got.Traded)
	assert.Equal(t, 60, got.Window)
	assert.Equal(t, 20, got.MaxHold)
	assert.Equal(t, string(rec.Config), string(got.Config))
}

func TestSQLiteInfiniteStatistic(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	t.Cleanup(func() { _ = j.Close() })

	rec := sampleRun("01INF")
	rec.ADFStatistic = math.Inf(-1)
	require.NoError(t, j.RecordRun(rec))

	got, err := j.GetRun("01INF")
	require.NoError(t, err)
	assert.True(t, math.IsInf(got.ADFStatistic, -1))
}

func TestGetRunNotFound(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	t.Cleanup(func() { _ = j.Close() })

	_, err := j.GetRun("nope")
	assert.ErrorIs(t, err, ErrRunNotFound)

	_, err = j.LatestRun()
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestListRunsNewestFirst(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	t.Cleanup(func() { _ = j.Close() })

	for _, id := range []string{"01A", "01C", "01B"} {
		require.NoError(t, j.RecordRun(sampleRun(id)))
	}

	runs, err := j.ListRuns(0)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, "01C", runs[0].RunID)
	assert.Equal(t, "01B", runs[1].RunID)
	assert.Equal(t, "01A", runs[2].RunID)

	runs, err = j.ListRuns(1)
	require.NoError(t, err)
	require.Len(t, runs, 1)

	latest, err := j.LatestRun()
	require.NoError(t, err)
	assert.Equal(t, "01C", latest.RunID)
}

func TestSQLiteMetricsTradesReturns(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	t.Cleanup(func() { _ = j.Close() })

	require.NoError(t, j.RecordRun(sampleRun("R1")))

	// Inserted test first; reads come back train first.
	require.NoError(t, j.RecordMetrics(MetricsRecord{
		RunID: "R1", Window: "test", Days: 0,
		TotalReturn: math.NaN(), CAGR: math.NaN(), Volatility: math.NaN(),
		Sharpe: math.NaN(), Sortino: math.NaN(), MaxDrawdown: math.NaN(),
		Calmar: math.NaN(), Turnover: math.NaN(), HitRate: math.NaN(),
	}))
	require.NoError(t, j.RecordMetrics(MetricsRecord{
		RunID: "R1", Window: "train", Start: d0, End: d0.AddDate(0, 0, 9), Days: 10,
		TotalReturn: 0.05, CAGR: 0.4, Volatility: 0.1, Sharpe: 1.5, Sortino: 2.1,
		MaxDrawdown: 0.02, Calmar: math.NaN(), Turnover: 0.3, Trades: 2, HitRate: 0.5,
	}))

	ms, err := j.ListMetrics("R1")
	require.NoError(t, err)
	require.Len(t, ms, 2)
	assert.Equal(t, "train", ms[0].Window)
	assert.True(t, ms[0].Start.Equal(d0))
	assert.InDelta(t, 1.5, ms[0].Sharpe, 1e-12)
	assert.True(t, math.IsNaN(ms[0].Calmar))
	assert.Equal(t, 2, ms[0].Trades)
	assert.Equal(t, "test", ms[1].Window)
	assert.True(t, ms[1].Start.IsZero())
	assert.True(t, math.IsNaN(ms[1].Sharpe))

	late := TradeRecord{
		TradeID: "T2", RunID: "R1", Direction: "short",
		EntryDate: d0.AddDate(0, 0, 5), ExitDate: d0.AddDate(0, 0, 8),
		EntryZ: 2.3, ExitZ: 0.4, NotionalA: -1, NotionalB: 1.25,
		GrossPnL: 0.02, Cost: 0.001, PnL: 0.019, HoldingDays: 3, ExitReason: "target",
	}
	early := late
	early.TradeID, early.Direction = "T1", "long"
	early.EntryDate, early.ExitDate = d0, d0.AddDate(0, 0, 2)
	early.ExitReason = "stop_loss"
	require.NoError(t, j.RecordTrade(late))
	require.NoError(t, j.RecordTrade(early))

	ts, err := j.ListTrades("R1")
	require.NoError(t, err)
	require.Len(t, ts, 2)
	assert.Equal(t, "T1", ts[0].TradeID)
	assert.Equal(t, "stop_loss", ts[0].ExitReason)
	assert.True(t, ts[1].ExitDate.Equal(late.ExitDate))
	assert.InDelta(t, 1.25, ts[1].NotionalB, 1e-12)
	assert.Equal(t, 3, ts[1].HoldingDays)

	for i := 2; i >= 0; i-- {
		z := float64(i)
		if i == 0 {
			z = math.NaN()
		}
		require.NoError(t, j.RecordReturn(ReturnRecord{
			RunID: "R1", Date: d0.AddDate(0, 0, i), Window: "train",
			Z: z, Direction: "flat", Equity: 1,
		}))
	}
	rs, err := j.ListReturns("R1")
	require.NoError(t, err)
	require.Len(t, rs, 3)
	assert.True(t, rs[0].Date.Equal(d0))
	assert.True(t, math.IsNaN(rs[0].Z))
	assert.InDelta(t, 2.0, rs[2].Z, 1e-12)
}

func TestBatchRollsBack(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	t.Cleanup(func() { _ = j.Close() })

	boom := errors.New("boom")
	err := j.Batch(func(tx Journal) error {
		require.NoError(t, tx.RecordRun(sampleRun("R1")))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	runs, err := j.ListRuns(0)
	require.NoError(t, err)
	assert.Empty(t, runs)

	require.NoError(t, j.Batch(func(tx Journal) error {
		return tx.RecordRun(sampleRun("R2"))
	}))
	_, err = j.GetRun("R2")
	assert.NoError(t, err)
}

func cointegratedPair(seed int64, n int) market.Pair {
	r := rand.New(rand.NewSource(seed))
	a := market.Series{Symbol: "KO"}
	b := market.Series{Symbol: "PEP"}
	lb, e := math.Log(40), 0.0
	for i := 0; i < n; i++ {
		lb += 0.01 * r.NormFloat64()
		e = 0.85*e + 0.01*r.NormFloat64()
		d := d0.AddDate(0, 0, i)
		a.Points = append(a.Points, market.Point{Date: d, Price: math.Exp(0.2 + 1.3*lb + e)})
		b.Points = append(b.Points, market.Point{Date: d, Price: math.Exp(lb)})
	}
	return market.Pair{A: a, B: b}
}

func TestRecordReport(t *testing.T) {
	t.Parallel()

	cfg := pipeline.DefaultConfig()
	cfg.Force = true
	rep, err := pipeline.Run(context.Background(), cointegratedPair(1, 800), cfg)
	require.NoError(t, err)
	require.True(t, rep.Traded())

	j, _ := newTestSQLite(t)
	t.Cleanup(func() { _ = j.Close() })

	runID, err := Record(j, rep, []byte(`{}`))
	require.NoError(t, err)

	run, err := j.GetRun(runID)
	require.NoError(t, err)
	assert.Equal(t, "KO", run.SymbolA)
	assert.True(t, run.Traded)
	assert.True(t, run.Split.Equal(rep.Split))
	assert.InDelta(t, rep.Hedge.Beta, run.Beta, 1e-12)

	ms, err := j.ListMetrics(runID)
	require.NoError(t, err)
	require.Len(t, ms, 2)
	assert.Equal(t, rep.Train.Metrics.Days, ms[0].Days)
	assert.Equal(t, rep.Test.Metrics.Days, ms[1].Days)
	assert.Equal(t, rep.Test.Trades.Count, ms[1].Trades)

	ts, err := j.ListTrades(runID)
	require.NoError(t, err)
	assert.Len(t, ts, len(rep.Result.Trades))

	rs, err := j.ListReturns(runID)
	require.NoError(t, err)
	require.Len(t, rs, len(rep.Result.Days))
	assert.Equal(t, "train", rs[0].Window)
	assert.Equal(t, "test", rs[len(rs)-1].Window)
	assert.InDelta(t, rep.Result.FinalEquity(), rs[len(rs)-1].Equity, 1e-12)
}

func TestRecordRejectedReport(t *testing.T) {
	t.Parallel()

	rep := &pipeline.Report{
		SymbolA: "X",
		SymbolB: "Y",
		Start:   d0,
		End:     d0.AddDate(1, 0, 0),
		Split:   d0.AddDate(0, 8, 0),
		Hedge:   coint.HedgeRatio{Beta: 0.4, PValue: 0.6, Significance: 0.05},
		Config:  pipeline.DefaultConfig(),
	}

	j, _ := newTestSQLite(t)
	t.Cleanup(func() { _ = j.Close() })

	runID, err := Record(j, rep, nil)
	require.NoError(t, err)

	run, err := j.GetRun(runID)
	require.NoError(t, err)
	assert.False(t, run.Traded)
	assert.False(t, run.Cointegrated)
	assert.Equal(t, 60, run.Window)
	assert.Nil(t, run.Config)

	ms, err := j.ListMetrics(runID)
	require.NoError(t, err)
	assert.Empty(t, ms)
}
