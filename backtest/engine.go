// Package backtest replays a pair day by day with a frozen hedge ratio and
// produces trades and a daily return series.
//
// Execution model: signals and fills happen at the close of day t using the
// close prices of day t; P&L on a position accrues from day t+1. Positions
// are marked to market close-to-close. Costs are charged once when a
// position opens and once when it closes.
package backtest

import (
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/rustyeddy/pairtrader/coint"
	"github.com/rustyeddy/pairtrader/errs"
	"github.com/rustyeddy/pairtrader/market"
	"github.com/rustyeddy/pairtrader/position"
	"github.com/rustyeddy/pairtrader/signal"
)

const (
	DefaultWindow         = 60
	DefaultCostBpsPerLeg  = 5.0
	DefaultInitialCapital = 1.0
	DefaultLegFraction    = 1.0
)

// Config controls one engine run.
//
// Split is the first date of the test window: days strictly before it are
// train, days on or after it are test. A zero Split means no split and the
// whole run is reported as the test window.
type Config struct {
	Window         int
	Rules          position.Rules
	CostBpsPerLeg  float64
	Split          time.Time
	InitialCapital float64
	LegFraction    float64
}

// DefaultConfig is the research setup: a 60 day window, default rules and
// 5 bps per leg.
func DefaultConfig() Config {
	return Config{
		Window:         DefaultWindow,
		Rules:          position.DefaultRules(),
		CostBpsPerLeg:  DefaultCostBpsPerLeg,
		InitialCapital: DefaultInitialCapital,
		LegFraction:    DefaultLegFraction,
	}
}

// Validate checks everything that does not depend on the data.
func (c Config) Validate() error {
	if c.Window < coint.MinObservations {
		return errs.InvalidConfig("zscore_window", "must be >= %d, got %d", coint.MinObservations, c.Window)
	}
	if !(c.CostBpsPerLeg >= 0) || math.IsInf(c.CostBpsPerLeg, 0) {
		return errs.InvalidConfig("cost_bps_per_leg", "must be a finite value >= 0, got %g", c.CostBpsPerLeg)
	}
	if !(c.InitialCapital > 0) || math.IsInf(c.InitialCapital, 0) {
		return errs.InvalidConfig("initial_capital", "must be a finite value > 0, got %g", c.InitialCapital)
	}
	if !(c.LegFraction > 0) || math.IsInf(c.LegFraction, 0) {
		return errs.InvalidConfig("leg_fraction", "must be a finite value > 0, got %g", c.LegFraction)
	}
	return c.Rules.Validate()
}

// CostRate is the per-dollar cost of trading one leg.
func (c Config) CostRate() float64 { return c.CostBpsPerLeg / 1e4 }

// Engine runs backtests for a fixed Config. It performs no I/O besides
// optional debug logging and is safe to reuse; every Run starts from a
// fresh state.
type Engine struct {
	cfg Config
	log zerolog.Logger
}

// Option customizes an Engine.
type Option func(*Engine)

// WithLogger sets the logger used for trade-level debug output.
func WithLogger(l zerolog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// NewEngine validates cfg eagerly.
func NewEngine(cfg Config, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Rules.ExitRule == "" {
		cfg.Rules.ExitRule = position.ExitCross
	}
	e := &Engine{cfg: cfg, log: zerolog.Nop()}
	for _, o := range opts {
		o(e)
	}
	return e, nil
}

func (e *Engine) Config() Config { return e.cfg }

// Run replays pair with the frozen hedge h. The pair must be aligned and
// at least Window rows long; a non-zero Split must fall strictly inside
// the date range.
func (e *Engine) Run(pair market.Pair, h coint.HedgeRatio) (*Result, error) {
	if err := pair.Validate(); err != nil {
		return nil, err
	}
	n := pair.Len()
	if n < e.cfg.Window {
		return nil, &errs.InsufficientDataError{What: "z-score window", Need: e.cfg.Window, Have: n}
	}
	split := e.cfg.Split
	if !split.IsZero() {
		if err := pair.CheckSplit(split); err != nil {
			return nil, err
		}
	}
	m, err := position.NewMachine(e.cfg.Rules, h.Beta)
	if err != nil {
		return nil, err
	}

	r := &run{
		cfg:    e.cfg,
		log:    e.log,
		m:      m,
		pos:    position.Flat{},
		equity: e.cfg.InitialCapital,
		lastA:  math.NaN(),
		lastB:  math.NaN(),
	}
	gen := signal.Generator{Window: e.cfg.Window}
	spread := signal.Spread(pair, h)

	i := 0
	for p := range gen.Points(pair.Dates(), spread) {
		r.step(p, pair.A.Points[i].Price, pair.B.Points[i].Price, i == n-1)
		i++
	}

	res := &Result{
		Hedge:   h,
		Config:  e.cfg,
		Signals: r.signals,
		Trades:  r.trades,
		Days:    r.days,
	}
	res.Train, res.Test = splitReturns(r.days, e.cfg.InitialCapital, split)

	e.log.Debug().
		Int("days", n).
		Int("trades", len(res.Trades)).
		Float64("final_equity", r.equity).
		Msg("backtest finished")
	return res, nil
}

// run is the mutable state of one replay.
type run struct {
	cfg Config
	log zerolog.Logger
	m   *position.Machine

	pos          position.Position
	unitsA       float64
	unitsB       float64
	entryCost    float64
	tradeGross   float64
	equity       float64
	lastA, lastB float64

	signals []signal.Point
	trades  []Trade
	days    []DailyReturn
}

func (r *run) step(p signal.Point, pa, pb float64, final bool) {
	// Mark the open position from the previous close to today's close,
	// carrying the last valid price over gaps.
	prevA, prevB := r.lastA, r.lastB
	if !market.Missing(pa) {
		r.lastA = pa
	}
	if !market.Missing(pb) {
		r.lastB = pb
	}
	gross := 0.0
	if _, open := position.OpenLeg(r.pos); open {
		gross = r.unitsA*(r.lastA-prevA) + r.unitsB*(r.lastB-prevB)
		r.tradeGross += gross
	}
	startEquity := r.equity
	markedEquity := r.equity + gross

	z := math.NaN()
	if p.Valid {
		z = p.Z
	}
	bar := position.Bar{
		Date:     p.Date,
		Z:        z,
		PriceA:   r.lastA,
		PriceB:   r.lastB,
		Notional: markedEquity * r.cfg.LegFraction,
	}

	cost, traded := 0.0, 0.0
	next, ev := r.m.Step(r.pos, bar)
	if final {
		// Nothing opens on the last bar.
		if ev.Action == position.EnterLong || ev.Action == position.EnterShort {
			next, ev = position.Flat{}, position.Event{Action: position.Hold}
		}
		if _, open := position.OpenLeg(next); open {
			var closeEv position.Event
			c, t := r.apply(ev, bar)
			cost, traded = cost+c, traded+t
			next, closeEv = r.m.Close(next, position.EndOfData)
			ev = closeEv
		}
	}
	c, t := r.apply(ev, bar)
	cost, traded = cost+c, traded+t
	r.pos = next

	net := gross - cost
	r.equity = startEquity + net
	r.signals = append(r.signals, p)
	r.days = append(r.days, DailyReturn{
		Date:      p.Date,
		Z:         z,
		Direction: r.pos.Direction(),
		Gross:     gross,
		Cost:      cost,
		PnL:       net,
		Return:    net / startEquity,
		Traded:    traded,
		Equity:    r.equity,
	})
}

// apply books the cash side of an event and returns its cost and traded
// notional.
func (r *run) apply(ev position.Event, bar position.Bar) (float64, float64) {
	switch ev.Action {
	case position.EnterLong, position.EnterShort:
		gross := ev.Opened.Gross()
		r.unitsA, r.unitsB = ev.Opened.Units()
		r.entryCost = r.cfg.CostRate() * gross
		r.tradeGross = 0
		r.log.Debug().
			Time("date", bar.Date).
			Str("side", ev.Direction.String()).
			Float64("z", bar.Z).
			Float64("notional", gross).
			Msg("open")
		return r.entryCost, gross

	case position.Exit:
		gross := math.Abs(r.unitsA*bar.PriceA) + math.Abs(r.unitsB*bar.PriceB)
		exitCost := r.cfg.CostRate() * gross
		leg := ev.Closed
		t := Trade{
			EntryDate:   leg.EntryDate,
			ExitDate:    bar.Date,
			Direction:   ev.Direction,
			EntryZ:      leg.EntryZ,
			ExitZ:       bar.Z,
			EntryPriceA: leg.EntryPriceA,
			EntryPriceB: leg.EntryPriceB,
			ExitPriceA:  bar.PriceA,
			ExitPriceB:  bar.PriceB,
			NotionalA:   leg.NotionalA,
			NotionalB:   leg.NotionalB,
			GrossPnL:    r.tradeGross,
			EntryCost:   r.entryCost,
			ExitCost:    exitCost,
			Cost:        r.entryCost + exitCost,
			PnL:         r.tradeGross - r.entryCost - exitCost,
			HoldingDays: leg.HoldingDays,
			ExitReason:  ev.Reason,
		}
		if g := leg.Gross(); g > 0 {
			t.Return = t.PnL / g
		}
		r.trades = append(r.trades, t)
		r.unitsA, r.unitsB, r.entryCost, r.tradeGross = 0, 0, 0, 0
		r.log.Debug().
			Time("date", bar.Date).
			Str("side", ev.Direction.String()).
			Str("reason", string(ev.Reason)).
			Int("held", leg.HoldingDays).
			Float64("pnl", t.PnL).
			Msg("close")
		return exitCost, gross
	}
	return 0, 0
}
