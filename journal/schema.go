package journal

// Float columns are nullable: NaN metrics and undefined z-scores are
// stored as NULL.
const Schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id TEXT PRIMARY KEY,
	created DATETIME NOT NULL,
	symbol_a TEXT NOT NULL,
	symbol_b TEXT NOT NULL,
	start_date DATETIME NOT NULL,
	end_date DATETIME NOT NULL,
	split_date DATETIME NOT NULL,
	beta REAL,
	intercept REAL,
	adf_stat REAL,
	p_value REAL,
	cointegrated INTEGER NOT NULL,
	forced INTEGER NOT NULL,
	traded INTEGER NOT NULL,
	zscore_window INTEGER NOT NULL,
	entry REAL NOT NULL,
	exit REAL NOT NULL,
	stop_loss REAL NOT NULL,
	max_hold INTEGER NOT NULL,
	cost_bps REAL NOT NULL,
	config TEXT
);

CREATE TABLE IF NOT EXISTS metrics (
	run_id TEXT NOT NULL REFERENCES runs(run_id),
	segment TEXT NOT NULL,
	start_date DATETIME,
	end_date DATETIME,
	days INTEGER NOT NULL,
	total_return REAL,
	cagr REAL,
	volatility REAL,
	sharpe REAL,
	sortino REAL,
	max_drawdown REAL,
	calmar REAL,
	turnover REAL,
	trades INTEGER NOT NULL,
	hit_rate REAL,
	PRIMARY KEY (run_id, segment)
);

CREATE TABLE IF NOT EXISTS trades (
	trade_id TEXT PRIMARY KEY,
	run_id TEXT NOT NULL REFERENCES runs(run_id),
	direction TEXT NOT NULL,
	entry_date DATETIME NOT NULL,
	exit_date DATETIME NOT NULL,
	entry_z REAL,
	exit_z REAL,
	notional_a REAL NOT NULL,
	notional_b REAL NOT NULL,
	gross_pnl REAL NOT NULL,
	cost REAL NOT NULL,
	pnl REAL NOT NULL,
	holding_days INTEGER NOT NULL,
	exit_reason TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS returns (
	run_id TEXT NOT NULL REFERENCES runs(run_id),
	date DATETIME NOT NULL,
	segment TEXT NOT NULL,
	z REAL,
	direction TEXT NOT NULL,
	gross REAL NOT NULL,
	cost REAL NOT NULL,
	pnl REAL NOT NULL,
	ret REAL NOT NULL,
	traded REAL NOT NULL,
	equity REAL NOT NULL,
	PRIMARY KEY (run_id, date)
);

CREATE INDEX IF NOT EXISTS idx_trades_run ON trades(run_id, exit_date);
`
