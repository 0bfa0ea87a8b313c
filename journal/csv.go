package journal

import (
	"encoding/csv"
	"io"
	"math"
	"os"
	"strconv"
	"time"
)

var (
	tradeHeader  = []string{"trade_id", "run_id", "direction", "entry_date", "exit_date", "entry_z", "exit_z", "notional_a", "notional_b", "gross_pnl", "cost", "pnl", "holding_days", "exit_reason"}
	returnHeader = []string{"run_id", "date", "window", "z", "direction", "gross", "cost", "pnl", "return", "traded", "equity"}
)

// CSVJournal writes trades and daily returns to two CSV files. Runs and
// metrics have no CSV form and are ignored.
type CSVJournal struct {
	trades  *csv.Writer
	returns *csv.Writer
	tf, rf  *os.File
}

func NewCSV(tradesPath, returnsPath string) (*CSVJournal, error) {
	tf, err := os.Create(tradesPath)
	if err != nil {
		return nil, err
	}
	rf, err := os.Create(returnsPath)
	if err != nil {
		_ = tf.Close()
		return nil, err
	}

	tw := csv.NewWriter(tf)
	rw := csv.NewWriter(rf)

	if err := tw.Write(tradeHeader); err != nil {
		return nil, err
	}
	if err := rw.Write(returnHeader); err != nil {
		return nil, err
	}

	tw.Flush()
	if err := tw.Error(); err != nil {
		return nil, err
	}
	rw.Flush()
	if err := rw.Error(); err != nil {
		return nil, err
	}

	return &CSVJournal{tw, rw, tf, rf}, nil
}

func (j *CSVJournal) RecordRun(RunRecord) error         { return nil }
func (j *CSVJournal) RecordMetrics(MetricsRecord) error { return nil }

func (j *CSVJournal) RecordTrade(t TradeRecord) error {
	if err := j.trades.Write(tradeRow(t)); err != nil {
		return err
	}
	j.trades.Flush()
	return j.trades.Error()
}

func (j *CSVJournal) RecordReturn(r ReturnRecord) error {
	if err := j.returns.Write(returnRow(r)); err != nil {
		return err
	}
	j.returns.Flush()
	return j.returns.Error()
}

func (j *CSVJournal) Close() error {
	j.trades.Flush()
	if err := j.trades.Error(); err != nil {
		return err
	}
	j.returns.Flush()
	if err := j.returns.Error(); err != nil {
		return err
	}

	if err := j.tf.Close(); err != nil {
		return err
	}
	if err := j.rf.Close(); err != nil {
		return err
	}
	return nil
}

// WriteTradesCSV writes trades with a header row.
func WriteTradesCSV(w io.Writer, trades []TradeRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(tradeHeader); err != nil {
		return err
	}
	for _, t := range trades {
		if err := cw.Write(tradeRow(t)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteReturnsCSV writes a daily return series with a header row.
func WriteReturnsCSV(w io.Writer, rets []ReturnRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(returnHeader); err != nil {
		return err
	}
	for _, r := range rets {
		if err := cw.Write(returnRow(r)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func tradeRow(t TradeRecord) []string {
	return []string{
		t.TradeID,
		t.RunID,
		t.Direction,
		day(t.EntryDate),
		day(t.ExitDate),
		f(t.EntryZ),
		f(t.ExitZ),
		f(t.NotionalA),
		f(t.NotionalB),
		f(t.GrossPnL),
		f(t.Cost),
		f(t.PnL),
		strconv.Itoa(t.HoldingDays),
		t.ExitReason,
	}
}

func returnRow(r ReturnRecord) []string {
	return []string{
		r.RunID,
		day(r.Date),
		r.Window,
		f(r.Z),
		r.Direction,
		f(r.Gross),
		f(r.Cost),
		f(r.PnL),
		f(r.Return),
		f(r.Traded),
		f(r.Equity),
	}
}

func day(t time.Time) string {
	return t.UTC().Format(time.DateOnly)
}

// f leaves NaN cells empty.
func f(x float64) string {
	if math.IsNaN(x) {
		return ""
	}
	return strconv.FormatFloat(x, 'f', 6, 64)
}
