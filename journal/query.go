package journal

import (
	"database/sql"
	"errors"
	"fmt"
)

var ErrRunNotFound = errors.New("run not found")

const runColumns = `run_id, created, symbol_a, symbol_b, start_date, end_date, split_date,
	beta, intercept, adf_stat, p_value, cointegrated, forced, traded,
	zscore_window, entry, exit, stop_loss, max_hold, cost_bps, config`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (RunRecord, error) {
	var (
		r                     RunRecord
		beta, icpt, adf, pval sql.NullFloat64
		cfg                   sql.NullString
	)
	err := s.Scan(
		&r.RunID, &r.Created, &r.SymbolA, &r.SymbolB, &r.Start, &r.End, &r.Split,
		&beta, &icpt, &adf, &pval, &r.Cointegrated, &r.Forced, &r.Traded,
		&r.Window, &r.Entry, &r.Exit, &r.StopLoss, &r.MaxHold, &r.CostBps, &cfg,
	)
	if err != nil {
		return RunRecord{}, err
	}
	r.Beta, r.Intercept, r.ADFStatistic, r.PValue = fromNull(beta), fromNull(icpt), fromNull(adf), fromNull(pval)
	if cfg.Valid && cfg.String != "" {
		r.Config = []byte(cfg.String)
	}
	r.Created, r.Start, r.End, r.Split = r.Created.UTC(), r.Start.UTC(), r.End.UTC(), r.Split.UTC()
	return r, nil
}

// GetRun returns a single run by ID.
func (j *SQLite) GetRun(runID string) (RunRecord, error) {
	row := j.db.QueryRow(`SELECT `+runColumns+` FROM runs WHERE run_id = ?`, runID)
	r, err := scanRun(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return RunRecord{}, fmt.Errorf("%w: %q", ErrRunNotFound, runID)
		}
		return RunRecord{}, err
	}
	return r, nil
}

// LatestRun returns the most recently created run.
func (j *SQLite) LatestRun() (RunRecord, error) {
	row := j.db.QueryRow(`SELECT ` + runColumns + ` FROM runs ORDER BY run_id DESC LIMIT 1`)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return RunRecord{}, ErrRunNotFound
	}
	return r, err
}

// ListRuns returns up to limit runs, newest first. A limit <= 0 returns
// all of them.
func (j *SQLite) ListRuns(limit int) ([]RunRecord, error) {
	q := `SELECT ` + runColumns + ` FROM runs ORDER BY run_id DESC`
	args := []any{}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := j.db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListMetrics returns the per-window metrics of a run, train first.
func (j *SQLite) ListMetrics(runID string) ([]MetricsRecord, error) {
	rows, err := j.db.Query(`
		SELECT run_id, segment, start_date, end_date, days, total_return, cagr, volatility,
		       sharpe, sortino, max_drawdown, calmar, turnover, trades, hit_rate
		FROM metrics
		WHERE run_id = ?
		ORDER BY CASE segment WHEN 'train' THEN 0 ELSE 1 END, segment`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []MetricsRecord
	for rows.Next() {
		var (
			m                          MetricsRecord
			start, end                 sql.NullTime
			tr, cagr, vol, sh, so, mdd sql.NullFloat64
			calmar, turnover, hitRate  sql.NullFloat64
		)
		if err := rows.Scan(
			&m.RunID, &m.Window, &start, &end, &m.Days, &tr, &cagr, &vol,
			&sh, &so, &mdd, &calmar, &turnover, &m.Trades, &hitRate,
		); err != nil {
			return nil, err
		}
		m.Start, m.End = fromNullTime(start), fromNullTime(end)
		m.TotalReturn, m.CAGR, m.Volatility = fromNull(tr), fromNull(cagr), fromNull(vol)
		m.Sharpe, m.Sortino, m.MaxDrawdown = fromNull(sh), fromNull(so), fromNull(mdd)
		m.Calmar, m.Turnover, m.HitRate = fromNull(calmar), fromNull(turnover), fromNull(hitRate)
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListTrades returns the trades of a run ordered by exit date.
func (j *SQLite) ListTrades(runID string) ([]TradeRecord, error) {
	rows, err := j.db.Query(`
		SELECT trade_id, run_id, direction, entry_date, exit_date, entry_z, exit_z,
		       notional_a, notional_b, gross_pnl, cost, pnl, holding_days, exit_reason
		FROM trades
		WHERE run_id = ?
		ORDER BY exit_date ASC, trade_id ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TradeRecord
	for rows.Next() {
		var (
			t           TradeRecord
			entZ, exitZ sql.NullFloat64
		)
		if err := rows.Scan(
			&t.TradeID, &t.RunID, &t.Direction, &t.EntryDate, &t.ExitDate, &entZ, &exitZ,
			&t.NotionalA, &t.NotionalB, &t.GrossPnL, &t.Cost, &t.PnL, &t.HoldingDays, &t.ExitReason,
		); err != nil {
			return nil, err
		}
		t.EntryZ, t.ExitZ = fromNull(entZ), fromNull(exitZ)
		t.EntryDate, t.ExitDate = t.EntryDate.UTC(), t.ExitDate.UTC()
		out = append(out, t)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListReturns returns the daily series of a run in date order.
func (j *SQLite) ListReturns(runID string) ([]ReturnRecord, error) {
	rows, err := j.db.Query(`
		SELECT run_id, date, segment, z, direction, gross, cost, pnl, ret, traded, equity
		FROM returns
		WHERE run_id = ?
		ORDER BY date ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ReturnRecord
	for rows.Next() {
		var (
			r ReturnRecord
			z sql.NullFloat64
		)
		if err := rows.Scan(
			&r.RunID, &r.Date, &r.Window, &z, &r.Direction,
			&r.Gross, &r.Cost, &r.PnL, &r.Return, &r.Traded, &r.Equity,
		); err != nil {
			return nil, err
		}
		r.Z = fromNull(z)
		r.Date = r.Date.UTC()
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
