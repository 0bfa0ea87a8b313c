package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/rustyeddy/pairtrader/journal"
	"github.com/rustyeddy/pairtrader/pipeline"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Screen and backtest one pair",
	Long: `Estimate the hedge ratio on the train window, screen the pair for
cointegration and, if it passes, backtest the z-score rules over the whole
horizon. Metrics are reported separately for train and test.

Examples:
  pairtrader run -c pair.yaml
  pairtrader run -c pair.yaml --force --journal
  pairtrader run -c pair.yaml --trades-csv trades.csv --returns-csv returns.csv`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

var (
	runForce      bool
	runJournal    bool
	runDBPath     string
	runTradesCSV  string
	runReturnsCSV string
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolVar(&runForce, "force", false, "trade the pair even if it fails the cointegration screen")
	runCmd.Flags().BoolVar(&runJournal, "journal", false, "record the run in the SQLite journal")
	runCmd.Flags().StringVar(&runDBPath, "db", "", "journal DB path (default from config)")
	runCmd.Flags().StringVar(&runTradesCSV, "trades-csv", "", "write closed trades to this CSV file")
	runCmd.Flags().StringVar(&runReturnsCSV, "returns-csv", "", "write the daily return series to this CSV file")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if runForce {
		cfg.Estimation.Force = true
	}

	pair, err := cfg.LoadPair()
	if err != nil {
		return fmt.Errorf("load prices: %w", err)
	}
	pcfg, err := cfg.PipelineConfig(pair)
	if err != nil {
		return err
	}

	rep, err := pipeline.Run(cmd.Context(), pair, pcfg, pipeline.WithLogger(log.Logger))
	if err != nil {
		return err
	}
	pipeline.PrintReport(cmd.OutOrStdout(), rep)

	if runJournal || cfg.Journal.Enabled {
		dbPath := runDBPath
		if dbPath == "" {
			dbPath = cfg.Journal.DBPath
		}
		raw, err := json.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("encode config: %w", err)
		}
		j, err := journal.NewSQLite(dbPath)
		if err != nil {
			return fmt.Errorf("open journal: %w", err)
		}
		defer j.Close()

		runID, err := journal.Record(j, rep, raw)
		if err != nil {
			return fmt.Errorf("record run: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "\nJournaled run %s in %s\n", runID, dbPath)
	}

	if runTradesCSV != "" || runReturnsCSV != "" {
		if runTradesCSV == "" || runReturnsCSV == "" {
			return fmt.Errorf("--trades-csv and --returns-csv must be given together")
		}
		j, err := journal.NewCSV(runTradesCSV, runReturnsCSV)
		if err != nil {
			return fmt.Errorf("create csv: %w", err)
		}
		if _, err := journal.Record(j, rep, nil); err != nil {
			_ = j.Close()
			return fmt.Errorf("write csv: %w", err)
		}
		if err := j.Close(); err != nil {
			return err
		}
		log.Info().Str("trades", runTradesCSV).Str("returns", runReturnsCSV).Msg("wrote csv")
	}
	return nil
}
