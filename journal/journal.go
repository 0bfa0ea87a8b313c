// Package journal persists research runs: one row per run, per-window
// metrics, closed trades and the daily return series.
package journal

import (
	"time"
)

// RunRecord describes one pipeline run.
type RunRecord struct {
	RunID        string
	Created      time.Time
	SymbolA      string
	SymbolB      string
	Start        time.Time
	End          time.Time
	Split        time.Time
	Beta         float64
	Intercept    float64
	ADFStatistic float64
	PValue       float64
	Cointegrated bool
	Forced       bool
	Traded       bool
	Window       int
	Entry        float64
	Exit         float64
	StopLoss     float64
	MaxHold      int
	CostBps      float64
	Config       []byte // effective configuration as JSON
}

// MetricsRecord is the summary of one window of a run.
type MetricsRecord struct {
	RunID       string
	Window      string
	Start       time.Time
	End         time.Time
	Days        int
	TotalReturn float64
	CAGR        float64
	Volatility  float64
	Sharpe      float64
	Sortino     float64
	MaxDrawdown float64
	Calmar      float64
	Turnover    float64
	Trades      int
	HitRate     float64
}

// TradeRecord is one closed round trip.
type TradeRecord struct {
	TradeID     string
	RunID       string
	Direction   string
	EntryDate   time.Time
	ExitDate    time.Time
	EntryZ      float64
	ExitZ       float64
	NotionalA   float64
	NotionalB   float64
	GrossPnL    float64
	Cost        float64
	PnL         float64
	HoldingDays int
	ExitReason  string
}

// ReturnRecord is one day of the return series.
type ReturnRecord struct {
	RunID     string
	Date      time.Time
	Window    string
	Z         float64
	Direction string
	Gross     float64
	Cost      float64
	PnL       float64
	Return    float64
	Traded    float64
	Equity    float64
}

type Journal interface {
	RecordRun(RunRecord) error
	RecordMetrics(MetricsRecord) error
	RecordTrade(TradeRecord) error
	RecordReturn(ReturnRecord) error
	Close() error
}

// Batcher is implemented by journals that can group writes atomically.
type Batcher interface {
	Batch(fn func(Journal) error) error
}
