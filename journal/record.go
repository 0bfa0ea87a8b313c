package journal

import (
	"time"

	"github.com/rustyeddy/pairtrader/backtest"
	"github.com/rustyeddy/pairtrader/pipeline"
	"github.com/rustyeddy/pairtrader/pkg/id"
)

// Record writes a pipeline report to j and returns the new run ID. cfg is
// the effective configuration, stored verbatim. A screened-out pair still
// gets a run row; metrics, trades and returns are written only when the
// backtest ran. Journals implementing Batcher get all rows in one
// transaction.
func Record(j Journal, rep *pipeline.Report, cfg []byte) (string, error) {
	runID := id.New()
	created, err := id.Time(runID)
	if err != nil {
		return "", err
	}
	write := func(j Journal) error {
		return record(j, runID, created, rep, cfg)
	}
	if b, ok := j.(Batcher); ok {
		return runID, b.Batch(write)
	}
	return runID, write(j)
}

func record(j Journal, runID string, created time.Time, rep *pipeline.Report, cfg []byte) error {
	bt := rep.Config.Backtest
	run := RunRecord{
		RunID:        runID,
		Created:      created,
		SymbolA:      rep.SymbolA,
		SymbolB:      rep.SymbolB,
		Start:        rep.Start,
		End:          rep.End,
		Split:        rep.Split,
		Beta:         rep.Hedge.Beta,
		Intercept:    rep.Hedge.Intercept,
		ADFStatistic: rep.Hedge.ADFStatistic,
		PValue:       rep.Hedge.PValue,
		Cointegrated: rep.Cointegrated,
		Forced:       rep.Forced,
		Traded:       rep.Traded(),
		Window:       bt.Window,
		Entry:        bt.Rules.EntryThreshold,
		Exit:         bt.Rules.ExitThreshold,
		StopLoss:     bt.Rules.StopLossThreshold,
		MaxHold:      bt.Rules.MaxHoldingDays,
		CostBps:      bt.CostBpsPerLeg,
		Config:       cfg,
	}
	if err := j.RecordRun(run); err != nil {
		return err
	}
	if !rep.Traded() {
		return nil
	}

	for _, w := range []pipeline.Window{rep.Train, rep.Test} {
		m := w.Metrics
		if err := j.RecordMetrics(MetricsRecord{
			RunID:       runID,
			Window:      m.Window,
			Start:       m.Start,
			End:         m.End,
			Days:        m.Days,
			TotalReturn: m.TotalReturn,
			CAGR:        m.CAGR,
			Volatility:  m.Volatility,
			Sharpe:      m.Sharpe,
			Sortino:     m.Sortino,
			MaxDrawdown: m.MaxDrawdown,
			Calmar:      m.Calmar,
			Turnover:    m.Turnover,
			Trades:      w.Trades.Count,
			HitRate:     w.Trades.HitRate,
		}); err != nil {
			return err
		}
	}

	res := rep.Result
	for _, t := range res.Trades {
		if err := j.RecordTrade(tradeRecord(runID, t)); err != nil {
			return err
		}
	}
	for _, s := range []backtest.ReturnSeries{res.Train, res.Test} {
		for _, d := range s.Days {
			if err := j.RecordReturn(ReturnRecord{
				RunID:     runID,
				Date:      d.Date,
				Window:    s.Window,
				Z:         d.Z,
				Direction: d.Direction.String(),
				Gross:     d.Gross,
				Cost:      d.Cost,
				PnL:       d.PnL,
				Return:    d.Return,
				Traded:    d.Traded,
				Equity:    d.Equity,
			}); err != nil {
				return err
			}
		}
	}
	return nil
}

func tradeRecord(runID string, t backtest.Trade) TradeRecord {
	return TradeRecord{
		TradeID:     id.At(t.ExitDate),
		RunID:       runID,
		Direction:   t.Direction.String(),
		EntryDate:   t.EntryDate,
		ExitDate:    t.ExitDate,
		EntryZ:      t.EntryZ,
		ExitZ:       t.ExitZ,
		NotionalA:   t.NotionalA,
		NotionalB:   t.NotionalB,
		GrossPnL:    t.GrossPnL,
		Cost:        t.Cost,
		PnL:         t.PnL,
		HoldingDays: t.HoldingDays,
		ExitReason:  string(t.ExitReason),
	}
}
