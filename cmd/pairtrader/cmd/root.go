package cmd

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/rustyeddy/pairtrader/config"
)

var rootCmd = &cobra.Command{
	Use:   "pairtrader",
	Short: "Cointegration pairs-trading research backtester",
	Long: `Pairtrader tests whether two price series are cointegrated and
backtests a mean-reversion strategy on their spread.

It provides tools for:
  - Estimating the hedge ratio and running the Engle-Granger screen
  - Backtesting z-score entry/exit rules with transaction costs
  - Reporting train and test metrics separately
  - Sweeping window and threshold grids in parallel
  - Keeping a SQLite journal of runs, trades and daily returns

Settings come from defaults, then the --config file, then PAIRS_*
environment variables.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		setupLogging(logLevel)
		return nil
	},
}

var (
	cfgFile  string
	logLevel string
)

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (YAML or JSON)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (trace, debug, info, warn, error)")
}

func setupLogging(level string) {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	if level == "" {
		level = "info"
	}
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		log.Warn().Str("level", level).Msg("unknown log level, using info")
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
}

// loadConfig resolves the effective configuration. The config file's log
// level applies unless --log-level was given.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if logLevel == "" {
		setupLogging(cfg.Log.Level)
	}
	return cfg, nil
}
