package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/rustyeddy/pairtrader/coint"
	"github.com/rustyeddy/pairtrader/errs"
	"github.com/rustyeddy/pairtrader/market"
	"github.com/rustyeddy/pairtrader/pipeline"
)

var estimateCmd = &cobra.Command{
	Use:   "estimate",
	Short: "Estimate the hedge ratio and run the cointegration test",
	Long: `Fit log(A) = a + b*log(B) on the train window, run the ADF test on the
residual and report rolling-beta stability. No backtest is run.

Example:
  pairtrader estimate -c pair.yaml`,
	Args: cobra.NoArgs,
	RunE: runEstimate,
}

func init() {
	rootCmd.AddCommand(estimateCmd)
}

func runEstimate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	pair, err := cfg.LoadPair()
	if err != nil {
		return fmt.Errorf("load prices: %w", err)
	}
	split, err := cfg.Split(pair)
	if err != nil {
		return err
	}

	h, err := coint.EstimatePair(pair, time.Time{}, split, cfg.EstimateOptions())
	if err != nil {
		return err
	}
	rep := &pipeline.Report{
		SymbolA:      pair.A.Symbol,
		SymbolB:      pair.B.Symbol,
		Start:        pair.First(),
		End:          pair.Last(),
		Split:        split,
		Hedge:        h,
		Cointegrated: h.Cointegrated(),
	}
	stab, err := coint.RollingBetaPair(pair, time.Time{}, split, cfg.Estimation.RollingWindow)
	switch {
	case err == nil:
		rep.Stability = &stab
	case errors.Is(err, errs.ErrInsufficientData), errors.Is(err, errs.ErrDegenerateInput):
		log.Warn().Err(err).Msg("rolling beta skipped")
	default:
		return err
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Pair:          %s / %s\n", rep.SymbolA, rep.SymbolB)
	fmt.Fprintf(w, "Train:         %s .. %s\n", h.WindowStart.Format(market.DateLayout), h.WindowEnd.Format(market.DateLayout))
	pipeline.PrintHedge(w, rep)
	return nil
}
