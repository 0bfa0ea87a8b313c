package cmd

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/rustyeddy/pairtrader/sweep"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Grid-search the z-score window and thresholds",
	Long: `Estimate the hedge ratio once on the train window, then backtest every
combination of the configured windows, entry and exit thresholds in
parallel. Points are ranked on the train-window objective; test metrics are
shown alongside but never used for the choice.

Examples:
  pairtrader sweep -c pair.yaml
  pairtrader sweep -c pair.yaml --workers 8 --objective sortino`,
	Args: cobra.NoArgs,
	RunE: runSweep,
}

var (
	sweepWorkers   int
	sweepObjective string
	sweepForce     bool
)

func init() {
	rootCmd.AddCommand(sweepCmd)

	sweepCmd.Flags().IntVarP(&sweepWorkers, "workers", "w", 0, "parallel workers (default from config, 0 = GOMAXPROCS)")
	sweepCmd.Flags().StringVar(&sweepObjective, "objective", "", "ranking metric: sharpe, sortino, calmar, total_return")
	sweepCmd.Flags().BoolVar(&sweepForce, "force", false, "sweep the pair even if it fails the cointegration screen")
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if sweepForce {
		cfg.Estimation.Force = true
	}
	if sweepWorkers > 0 {
		cfg.Sweep.Workers = sweepWorkers
	}
	if sweepObjective != "" {
		cfg.Sweep.Objective = sweepObjective
	}

	pair, err := cfg.LoadPair()
	if err != nil {
		return fmt.Errorf("load prices: %w", err)
	}
	pcfg, err := cfg.PipelineConfig(pair)
	if err != nil {
		return err
	}

	opts := append(cfg.SweepOptions(), sweep.WithLogger(log.Logger))
	res, err := sweep.Run(cmd.Context(), pair, pcfg, cfg.SweepGrid(), opts...)
	if err != nil {
		return err
	}
	sweep.PrintResult(cmd.OutOrStdout(), res)
	return nil
}
