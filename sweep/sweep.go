// Package sweep grid-searches the z-score window and entry/exit thresholds
// for one pair. The hedge ratio is estimated once on the train window;
// every grid point then replays the pair independently with that frozen
// hedge, so the runs share no mutable state.
package sweep

import (
	"context"
	"math"
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/rustyeddy/pairtrader/backtest"
	"github.com/rustyeddy/pairtrader/coint"
	"github.com/rustyeddy/pairtrader/errs"
	"github.com/rustyeddy/pairtrader/market"
	"github.com/rustyeddy/pairtrader/metrics"
	"github.com/rustyeddy/pairtrader/pipeline"
)

// Params is one grid point.
type Params struct {
	Window int     `json:"window"`
	Entry  float64 `json:"entry"`
	Exit   float64 `json:"exit"`
}

// Grid is the cartesian product of its lists. An empty list means "use the
// base value".
type Grid struct {
	Windows []int
	Entries []float64
	Exits   []float64
}

// Points expands the grid in window, entry, exit order. Combinations with
// exit >= entry are skipped.
func (g Grid) Points(base backtest.Config) []Params {
	windows := g.Windows
	if len(windows) == 0 {
		windows = []int{base.Window}
	}
	entries := g.Entries
	if len(entries) == 0 {
		entries = []float64{base.Rules.EntryThreshold}
	}
	exits := g.Exits
	if len(exits) == 0 {
		exits = []float64{base.Rules.ExitThreshold}
	}

	var out []Params
	for _, w := range windows {
		for _, en := range entries {
			for _, ex := range exits {
				if ex >= en {
					continue
				}
				out = append(out, Params{Window: w, Entry: en, Exit: ex})
			}
		}
	}
	return out
}

// Outcome is the evaluation of one grid point. Err is set when that
// configuration could not run (e.g. a stop loss below the entry).
type Outcome struct {
	Params Params         `json:"params"`
	Train  metrics.Report `json:"train"`
	Test   metrics.Report `json:"test"`
	Trades int            `json:"trades"`
	Err    error          `json:"-"`
}

// Result collects every outcome in grid order.
type Result struct {
	Hedge     coint.HedgeRatio
	Split     time.Time
	Objective Objective
	Rejected  bool
	Outcomes  []Outcome
	Best      *Outcome
}

type options struct {
	workers   int
	objective Objective
	log       zerolog.Logger
}

// Option customizes Run.
type Option func(*options)

// WithWorkers bounds concurrency. Zero or less means GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(o *options) { o.workers = n }
}

// WithObjective sets the ranking metric (default Sharpe).
func WithObjective(obj Objective) Option {
	return func(o *options) { o.objective = obj }
}

func WithLogger(l zerolog.Logger) Option {
	return func(o *options) { o.log = l }
}

// Run evaluates every grid point of g on pair. cfg supplies the split,
// estimation options and all non-swept engine settings.
func Run(ctx context.Context, pair market.Pair, cfg pipeline.Config, g Grid, opts ...Option) (*Result, error) {
	o := options{objective: Sharpe, log: zerolog.Nop()}
	for _, fn := range opts {
		fn(&o)
	}
	if o.workers <= 0 {
		o.workers = runtime.GOMAXPROCS(0)
	}
	if !o.objective.Valid() {
		return nil, errs.InvalidConfig("sweep.objective", "unknown objective %q", o.objective)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	points := g.Points(cfg.Backtest)
	if len(points) == 0 {
		return nil, errs.InvalidConfig("sweep", "grid is empty after dropping exit >= entry")
	}
	if err := pair.Validate(); err != nil {
		return nil, err
	}
	split := cfg.Backtest.Split
	if split.IsZero() {
		var err error
		if split, err = pair.SplitDate(cfg.TrainFraction); err != nil {
			return nil, err
		}
	}
	if err := pair.CheckSplit(split); err != nil {
		return nil, err
	}
	hedge, err := coint.EstimatePair(pair, time.Time{}, split, cfg.Estimation)
	if err != nil {
		return nil, err
	}

	res := &Result{Hedge: hedge, Split: split, Objective: o.objective}
	if !hedge.Cointegrated() && !cfg.Force {
		res.Rejected = true
		return res, nil
	}

	res.Outcomes = make([]Outcome, len(points))

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(o.workers)
	for i, p := range points {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res.Outcomes[i] = evaluate(pair, hedge, split, cfg.Backtest, p)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	res.Best = Best(res.Outcomes, o.objective)
	o.log.Info().
		Int("points", len(points)).
		Int("workers", o.workers).
		Str("objective", string(o.objective)).
		Msg("sweep complete")
	return res, nil
}

func evaluate(pair market.Pair, h coint.HedgeRatio, split time.Time, base backtest.Config, p Params) Outcome {
	cfg := base
	cfg.Window = p.Window
	cfg.Rules.EntryThreshold = p.Entry
	cfg.Rules.ExitThreshold = p.Exit
	cfg.Split = split

	out := Outcome{Params: p}
	e, err := backtest.NewEngine(cfg)
	if err != nil {
		out.Err = err
		return out
	}
	r, err := e.Run(pair, h)
	if err != nil {
		out.Err = err
		return out
	}
	out.Train = metrics.Compute(r.Train)
	out.Test = metrics.Compute(r.Test)
	out.Trades = len(r.Trades)
	return out
}

// Objective names the in-sample metric used to rank grid points.
type Objective string

const (
	Sharpe      Objective = "sharpe"
	Sortino     Objective = "sortino"
	Calmar      Objective = "calmar"
	TotalReturn Objective = "total_return"
)

func (o Objective) Valid() bool {
	switch o {
	case Sharpe, Sortino, Calmar, TotalReturn:
		return true
	}
	return false
}

func (o Objective) score(r metrics.Report) float64 {
	switch o {
	case Sortino:
		return r.Sortino
	case Calmar:
		return r.Calmar
	case TotalReturn:
		return r.TotalReturn
	default:
		return r.Sharpe
	}
}

// Best picks the outcome with the highest train-window objective. Failed
// and NaN-scored outcomes never win; ties go to the earliest grid point.
// It returns nil when nothing qualifies. Test metrics never affect the
// choice.
func Best(outcomes []Outcome, obj Objective) *Outcome {
	var best *Outcome
	bestScore := math.Inf(-1)
	for i := range outcomes {
		oc := &outcomes[i]
		if oc.Err != nil {
			continue
		}
		s := obj.score(oc.Train)
		if math.IsNaN(s) {
			continue
		}
		if best == nil || s > bestScore {
			best, bestScore = oc, s
		}
	}
	return best
}
