// Package pipeline wires estimation, signal generation, simulation and
// metrics into one research run:
//
//	split -> estimate on train -> screen -> backtest full horizon -> metrics per window
//
// The hedge ratio is fitted once on the train window and frozen for the
// whole simulation.
package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/rustyeddy/pairtrader/backtest"
	"github.com/rustyeddy/pairtrader/coint"
	"github.com/rustyeddy/pairtrader/errs"
	"github.com/rustyeddy/pairtrader/market"
	"github.com/rustyeddy/pairtrader/metrics"
)

// Config is everything a run needs besides the prices. Backtest.Split may
// be zero, in which case TrainFraction picks the split row.
type Config struct {
	Backtest      backtest.Config
	TrainFraction float64
	Estimation    coint.Options
	RollingWindow int
	// Force trades the pair even when the residual test fails to reject.
	Force bool
}

// DefaultConfig is a 70/30 split with default estimation and engine
// settings.
func DefaultConfig() Config {
	return Config{
		Backtest:      backtest.DefaultConfig(),
		TrainFraction: 0.7,
		Estimation:    coint.DefaultOptions(),
		RollingWindow: coint.DefaultRollingWindow,
	}
}

// Window is the evaluation of one side of the split.
type Window struct {
	Metrics metrics.Report     `json:"metrics"`
	Trades  metrics.TradeStats `json:"trades"`
}

// Report is the outcome of Run. Result is nil when the pair was screened
// out.
type Report struct {
	SymbolA      string           `json:"symbol_a"`
	SymbolB      string           `json:"symbol_b"`
	Start        time.Time        `json:"start"`
	End          time.Time        `json:"end"`
	Split        time.Time        `json:"split"`
	Hedge        coint.HedgeRatio `json:"hedge"`
	Stability    *coint.Stability `json:"stability,omitempty"`
	Cointegrated bool             `json:"cointegrated"`
	Forced       bool             `json:"forced"`
	Result       *backtest.Result `json:"-"`
	Train        Window           `json:"train"`
	Test         Window           `json:"test"`
	Config       Config           `json:"-"`
}

// Traded reports whether the backtest ran.
func (r *Report) Traded() bool { return r.Result != nil }

// Option customizes Run.
type Option func(*runner)

// WithLogger sets the logger for progress output; the engine shares it.
func WithLogger(l zerolog.Logger) Option {
	return func(r *runner) { r.log = l }
}

type runner struct {
	log zerolog.Logger
}

// Run executes the full research pipeline on pair. A pair that fails the
// cointegration screen is not an error: the report comes back with
// Cointegrated false and no Result, unless cfg.Force is set.
func Run(ctx context.Context, pair market.Pair, cfg Config, opts ...Option) (*Report, error) {
	r := runner{log: zerolog.Nop()}
	for _, o := range opts {
		o(&r)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := pair.Validate(); err != nil {
		return nil, err
	}
	split, err := resolveSplit(pair, cfg)
	if err != nil {
		return nil, err
	}
	cfg.Backtest.Split = split

	// Construct early so contradictory settings fail before any work.
	engine, err := backtest.NewEngine(cfg.Backtest, backtest.WithLogger(r.log))
	if err != nil {
		return nil, err
	}

	log := r.log.With().Str("pair", pair.A.Symbol+"/"+pair.B.Symbol).Logger()

	hedge, err := coint.EstimatePair(pair, time.Time{}, split, cfg.Estimation)
	if err != nil {
		return nil, err
	}
	rep := &Report{
		SymbolA:      pair.A.Symbol,
		SymbolB:      pair.B.Symbol,
		Start:        pair.First(),
		End:          pair.Last(),
		Split:        split,
		Hedge:        hedge,
		Cointegrated: hedge.Cointegrated(),
		Config:       cfg,
	}
	log.Info().
		Float64("beta", hedge.Beta).
		Float64("adf", hedge.ADFStatistic).
		Float64("p_value", hedge.PValue).
		Bool("cointegrated", rep.Cointegrated).
		Msg("estimated hedge ratio")

	if cfg.RollingWindow > 0 {
		stab, err := coint.RollingBetaPair(pair, time.Time{}, split, cfg.RollingWindow)
		switch {
		case err == nil:
			rep.Stability = &stab
		case errors.Is(err, errs.ErrInsufficientData), errors.Is(err, errs.ErrDegenerateInput):
			log.Warn().Err(err).Msg("rolling beta skipped")
		default:
			return nil, err
		}
	}

	if !rep.Cointegrated {
		if !cfg.Force {
			log.Info().Msg("pair rejected: residual not stationary")
			return rep, nil
		}
		rep.Forced = true
		log.Warn().Msg("trading a pair that failed the cointegration screen")
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	res, err := engine.Run(pair, hedge)
	if err != nil {
		return nil, err
	}
	rep.Result = res
	rep.Train = evaluate(res, res.Train)
	rep.Test = evaluate(res, res.Test)

	log.Info().
		Int("trades", len(res.Trades)).
		Float64("test_sharpe", rep.Test.Metrics.Sharpe).
		Float64("test_return", rep.Test.Metrics.TotalReturn).
		Msg("backtest complete")
	return rep, nil
}

// resolveSplit picks the split date and checks it leaves both windows
// non-empty.
func resolveSplit(pair market.Pair, cfg Config) (time.Time, error) {
	split := cfg.Backtest.Split
	if split.IsZero() {
		var err error
		if split, err = pair.SplitDate(cfg.TrainFraction); err != nil {
			return time.Time{}, err
		}
	}
	if err := pair.CheckSplit(split); err != nil {
		return time.Time{}, err
	}
	return split, nil
}

func evaluate(res *backtest.Result, s backtest.ReturnSeries) Window {
	return Window{
		Metrics: metrics.Compute(s),
		Trades:  metrics.SummarizeTrades(res.TradesIn(s)),
	}
}
