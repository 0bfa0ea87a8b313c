package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/pairtrader/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Generate or validate configuration files",
	Long: `Manage research configuration files.

Subcommands:
  init     - Generate a default configuration file
  validate - Validate an existing configuration file

Examples:
  pairtrader config init -o pair.yaml
  pairtrader config validate -f pair.yaml`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate a default configuration file",
	Long: `Create a new configuration file with default settings. The format
follows the extension: .json writes JSON, anything else YAML.

Example:
  pairtrader config init -o pair.yaml`,
	Args: cobra.NoArgs,
	RunE: runConfigInit,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	Long: `Load a configuration file over the defaults, apply PAIRS_* overrides
and check every field.

Example:
  pairtrader config validate -f pair.yaml`,
	Args: cobra.NoArgs,
	RunE: runConfigValidate,
}

var (
	configInitOutput   string
	configValidatePath string
)

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configValidateCmd)

	configInitCmd.Flags().StringVarP(&configInitOutput, "output", "o", "pair.yaml", "output config file path")
	configValidateCmd.Flags().StringVarP(&configValidatePath, "file", "f", "", "path to config file (required)")
	_ = configValidateCmd.MarkFlagRequired("file")
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	cfg := config.Default()
	if err := cfg.SaveToFile(configInitOutput); err != nil {
		return fmt.Errorf("save config: %w", err)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "✓ Created default configuration: %s\n", configInitOutput)
	fmt.Fprintln(w, "\nSet data.pair_file (or data.series_a and data.series_b) and run with:")
	fmt.Fprintf(w, "  pairtrader run -c %s\n", configInitOutput)
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configValidatePath)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "✓ Configuration valid: %s\n", configValidatePath)
	if cfg.Data.PairFile != "" {
		fmt.Fprintf(w, "  Data: %s\n", cfg.Data.PairFile)
	} else {
		fmt.Fprintf(w, "  Data: %s + %s\n", cfg.Data.SeriesA, cfg.Data.SeriesB)
	}
	if cfg.Data.SplitDate != "" {
		fmt.Fprintf(w, "  Split: %s\n", cfg.Data.SplitDate)
	} else {
		fmt.Fprintf(w, "  Split: %.0f%% train\n", cfg.Data.TrainFraction*100)
	}
	fmt.Fprintf(w, "  Rules: window %d, entry %.2f, exit %.2f, stop %.2f, max hold %d\n",
		cfg.Signal.Window, cfg.Rules.EntryThreshold, cfg.Rules.ExitThreshold,
		cfg.Rules.StopLossThreshold, cfg.Rules.MaxHoldingDays)
	fmt.Fprintf(w, "  Cost: %.1f bps per leg\n", cfg.Backtest.CostBpsPerLeg)
	if cfg.Journal.Enabled {
		fmt.Fprintf(w, "  Journal: %s\n", cfg.Journal.DBPath)
	}
	return nil
}
