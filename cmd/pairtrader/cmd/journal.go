package cmd

import (
	"fmt"
	"math"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/pairtrader/journal"
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Query the run journal",
	Long: `Query and display recorded runs from the SQLite journal.

Subcommands:
  list    - List recent runs
  show    - Show one run as an Org-mode entry
  trades  - Export a run's trades as CSV
  returns - Export a run's daily returns as CSV

Examples:
  pairtrader journal list
  pairtrader journal show
  pairtrader journal show 01J2Z8...
  pairtrader journal trades 01J2Z8... > trades.csv`,
}

var journalListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent runs",
	Args:  cobra.NoArgs,
	RunE:  runJournalList,
}

var journalShowCmd = &cobra.Command{
	Use:   "show [run-id]",
	Short: "Show a run (default: the latest)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runJournalShow,
}

var journalTradesCmd = &cobra.Command{
	Use:   "trades <run-id>",
	Short: "Export the trades of a run as CSV",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalTrades,
}

var journalReturnsCmd = &cobra.Command{
	Use:   "returns <run-id>",
	Short: "Export the daily returns of a run as CSV",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalReturns,
}

var (
	journalDBPath string
	journalLimit  int
	journalTrades bool
)

func init() {
	rootCmd.AddCommand(journalCmd)
	journalCmd.AddCommand(journalListCmd)
	journalCmd.AddCommand(journalShowCmd)
	journalCmd.AddCommand(journalTradesCmd)
	journalCmd.AddCommand(journalReturnsCmd)

	journalCmd.PersistentFlags().StringVarP(&journalDBPath, "db", "d", "", "path to SQLite journal DB (default from config)")
	journalListCmd.Flags().IntVarP(&journalLimit, "limit", "n", 20, "maximum runs to list (0 = all)")
	journalShowCmd.Flags().BoolVar(&journalTrades, "trades", false, "append one Org block per trade")
}

func openJournal() (*journal.SQLite, error) {
	path := journalDBPath
	if path == "" {
		cfg, err := loadConfig()
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		path = cfg.Journal.DBPath
	}
	j, err := journal.NewSQLite(path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	return j, nil
}

func runJournalList(cmd *cobra.Command, args []string) error {
	j, err := openJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	runs, err := j.ListRuns(journalLimit)
	if err != nil {
		return fmt.Errorf("query runs: %w", err)
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN ID\tCREATED\tPAIR\tSPLIT\tBETA\tP-VALUE\tTRADED")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s/%s\t%s\t%s\t%s\t%t\n",
			r.RunID, r.Created.Format("2006-01-02 15:04"), r.SymbolA, r.SymbolB,
			r.Split.Format("2006-01-02"), fnum(r.Beta), fnum(r.PValue), r.Traded)
	}
	return tw.Flush()
}

func runJournalShow(cmd *cobra.Command, args []string) error {
	j, err := openJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	var run journal.RunRecord
	if len(args) == 1 {
		run, err = j.GetRun(args[0])
	} else {
		run, err = j.LatestRun()
	}
	if err != nil {
		return fmt.Errorf("get run: %w", err)
	}

	ms, err := j.ListMetrics(run.RunID)
	if err != nil {
		return fmt.Errorf("query metrics: %w", err)
	}
	ts, err := j.ListTrades(run.RunID)
	if err != nil {
		return fmt.Errorf("query trades: %w", err)
	}

	w := cmd.OutOrStdout()
	if err := journal.WriteRunOrg(w, journal.RunView{Run: run, Metrics: ms, Trades: ts}); err != nil {
		return err
	}
	if journalTrades && len(ts) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, journal.FormatTradesOrg(ts))
	}
	return nil
}

func runJournalTrades(cmd *cobra.Command, args []string) error {
	j, err := openJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	ts, err := j.ListTrades(args[0])
	if err != nil {
		return fmt.Errorf("query trades: %w", err)
	}
	return journal.WriteTradesCSV(cmd.OutOrStdout(), ts)
}

func runJournalReturns(cmd *cobra.Command, args []string) error {
	j, err := openJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	rs, err := j.ListReturns(args[0])
	if err != nil {
		return fmt.Errorf("query returns: %w", err)
	}
	return journal.WriteReturnsCSV(cmd.OutOrStdout(), rs)
}

func fnum(x float64) string {
	if math.IsNaN(x) {
		return "-"
	}
	return fmt.Sprintf("%.4f", x)
}
