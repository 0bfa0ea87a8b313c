package backtest

import (
	"time"

	"github.com/rustyeddy/pairtrader/coint"
	"github.com/rustyeddy/pairtrader/position"
	"github.com/rustyeddy/pairtrader/signal"
)

// Trade is one closed round trip. PnL is net of both legs' costs; Return
// is PnL over the gross entry notional.
type Trade struct {
	EntryDate   time.Time           `json:"entry_date"`
	ExitDate    time.Time           `json:"exit_date"`
	Direction   position.Direction  `json:"direction"`
	EntryZ      float64             `json:"entry_z"`
	ExitZ       float64             `json:"exit_z"`
	EntryPriceA float64             `json:"entry_price_a"`
	EntryPriceB float64             `json:"entry_price_b"`
	ExitPriceA  float64             `json:"exit_price_a"`
	ExitPriceB  float64             `json:"exit_price_b"`
	NotionalA   float64             `json:"notional_a"`
	NotionalB   float64             `json:"notional_b"`
	GrossPnL    float64             `json:"gross_pnl"`
	EntryCost   float64             `json:"entry_cost"`
	ExitCost    float64             `json:"exit_cost"`
	Cost        float64             `json:"cost"`
	PnL         float64             `json:"pnl"`
	Return      float64             `json:"return"`
	HoldingDays int                 `json:"holding_days"`
	ExitReason  position.ExitReason `json:"exit_reason"`
}

// DailyReturn is one row of the daily series. Gross is the mark-to-market
// P&L of the position held into the day; PnL is Gross minus Cost. Return is
// PnL over the previous day's equity. Direction is the position after the
// day's decision. Traded is the gross notional that changed hands.
type DailyReturn struct {
	Date      time.Time          `json:"date"`
	Z         float64            `json:"z"`
	Direction position.Direction `json:"direction"`
	Gross     float64            `json:"gross"`
	Cost      float64            `json:"cost"`
	PnL       float64            `json:"pnl"`
	Return    float64            `json:"return"`
	Traded    float64            `json:"traded"`
	Equity    float64            `json:"equity"`
}

// ReturnSeries is a contiguous slice of the daily series. StartEquity is
// the equity at the close before the first day.
type ReturnSeries struct {
	Window      string
	StartEquity float64
	Days        []DailyReturn
}

const (
	WindowTrain = "train"
	WindowTest  = "test"
)

func (s ReturnSeries) Len() int { return len(s.Days) }

// Returns extracts the daily simple returns.
func (s ReturnSeries) Returns() []float64 {
	out := make([]float64, len(s.Days))
	for i, d := range s.Days {
		out[i] = d.Return
	}
	return out
}

func (s ReturnSeries) Dates() []time.Time {
	out := make([]time.Time, len(s.Days))
	for i, d := range s.Days {
		out[i] = d.Date
	}
	return out
}

// Equity returns the equity curve rebased to 1 at the start of the series.
func (s ReturnSeries) Equity() []float64 {
	out := make([]float64, len(s.Days))
	eq := 1.0
	for i, d := range s.Days {
		eq *= 1 + d.Return
		out[i] = eq
	}
	return out
}

// Result is the full output of Engine.Run.
type Result struct {
	Hedge   coint.HedgeRatio
	Config  Config
	Signals []signal.Point
	Trades  []Trade
	Days    []DailyReturn
	Train   ReturnSeries
	Test    ReturnSeries
}

// FinalEquity is the equity after the last day.
func (r *Result) FinalEquity() float64 {
	if len(r.Days) == 0 {
		return r.Config.InitialCapital
	}
	return r.Days[len(r.Days)-1].Equity
}

// TradesIn returns the trades whose exit date falls inside s.
func (r *Result) TradesIn(s ReturnSeries) []Trade {
	if len(s.Days) == 0 {
		return nil
	}
	from, to := s.Days[0].Date, s.Days[len(s.Days)-1].Date
	var out []Trade
	for _, t := range r.Trades {
		if !t.ExitDate.Before(from) && !t.ExitDate.After(to) {
			out = append(out, t)
		}
	}
	return out
}

func splitReturns(days []DailyReturn, capital float64, split time.Time) (ReturnSeries, ReturnSeries) {
	train := ReturnSeries{Window: WindowTrain, StartEquity: capital}
	test := ReturnSeries{Window: WindowTest, StartEquity: capital}
	if split.IsZero() {
		test.Days = days
		return train, test
	}
	k := 0
	for k < len(days) && days[k].Date.Before(split) {
		k++
	}
	train.Days = days[:k:k]
	test.Days = days[k:]
	if k > 0 {
		test.StartEquity = days[k-1].Equity
	}
	return train, test
}
