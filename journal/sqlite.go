package journal

import (
	"database/sql"
	"math"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

type SQLite struct {
	db *sql.DB
	x  execer
}

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(Schema); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &SQLite{db: db, x: db}, nil
}

// Batch runs fn against a journal bound to one transaction. The
// transaction commits when fn returns nil and rolls back otherwise.
func (j *SQLite) Batch(fn func(Journal) error) error {
	tx, err := j.db.Begin()
	if err != nil {
		return err
	}
	if err := fn(&txJournal{SQLite{db: j.db, x: tx}}); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (j *SQLite) RecordRun(r RunRecord) error {
	_, err := j.x.Exec(`
		INSERT INTO runs
		(run_id, created, symbol_a, symbol_b, start_date, end_date, split_date,
		 beta, intercept, adf_stat, p_value, cointegrated, forced, traded,
		 zscore_window, entry, exit, stop_loss, max_hold, cost_bps, config)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.Created.UTC(), r.SymbolA, r.SymbolB, r.Start.UTC(), r.End.UTC(), r.Split.UTC(),
		nullable(r.Beta), nullable(r.Intercept), nullable(r.ADFStatistic), nullable(r.PValue),
		r.Cointegrated, r.Forced, r.Traded,
		r.Window, r.Entry, r.Exit, r.StopLoss, r.MaxHold, r.CostBps, string(r.Config),
	)
	return err
}

func (j *SQLite) RecordMetrics(m MetricsRecord) error {
	_, err := j.x.Exec(`
		INSERT INTO metrics
		(run_id, segment, start_date, end_date, days, total_return, cagr, volatility,
		 sharpe, sortino, max_drawdown, calmar, turnover, trades, hit_rate)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.RunID, m.Window, nullTime(m.Start), nullTime(m.End), m.Days,
		nullable(m.TotalReturn), nullable(m.CAGR), nullable(m.Volatility),
		nullable(m.Sharpe), nullable(m.Sortino), nullable(m.MaxDrawdown),
		nullable(m.Calmar), nullable(m.Turnover), m.Trades, nullable(m.HitRate),
	)
	return err
}

func (j *SQLite) RecordTrade(t TradeRecord) error {
	_, err := j.x.Exec(`
		INSERT INTO trades
		(trade_id, run_id, direction, entry_date, exit_date, entry_z, exit_z,
		 notional_a, notional_b, gross_pnl, cost, pnl, holding_days, exit_reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.TradeID, t.RunID, t.Direction, t.EntryDate.UTC(), t.ExitDate.UTC(),
		nullable(t.EntryZ), nullable(t.ExitZ), t.NotionalA, t.NotionalB,
		t.GrossPnL, t.Cost, t.PnL, t.HoldingDays, t.ExitReason,
	)
	return err
}

func (j *SQLite) RecordReturn(r ReturnRecord) error {
	_, err := j.x.Exec(`
		INSERT INTO returns
		(run_id, date, segment, z, direction, gross, cost, pnl, ret, traded, equity)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.Date.UTC(), r.Window, nullable(r.Z), r.Direction,
		r.Gross, r.Cost, r.PnL, r.Return, r.Traded, r.Equity,
	)
	return err
}

func (j *SQLite) Close() error {
	return j.db.Close()
}

// txJournal is handed to Batch callbacks; closing it is a no-op.
type txJournal struct {
	SQLite
}

func (*txJournal) Close() error { return nil }

func nullable(x float64) any {
	if math.IsNaN(x) {
		return nil
	}
	return x
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC()
}

func fromNull(n sql.NullFloat64) float64 {
	if !n.Valid {
		return math.NaN()
	}
	return n.Float64
}

func fromNullTime(n sql.NullTime) time.Time {
	if !n.Valid {
		return time.Time{}
	}
	return n.Time.UTC()
}
