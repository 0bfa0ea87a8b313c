package pipeline

import (
	"fmt"
	"io"
	"math"
	"sort"

	"github.com/rustyeddy/pairtrader/market"
	"github.com/rustyeddy/pairtrader/position"
)

func PrintReport(w io.Writer, r *Report) {
	fmt.Fprintln(w, "==================================================")
	fmt.Fprintln(w, " Pairs Backtest")
	fmt.Fprintln(w, "==================================================")

	fmt.Fprintf(w, "Pair:          %s / %s\n", r.SymbolA, r.SymbolB)
	fmt.Fprintf(w, "Period:        %s .. %s\n", r.Start.Format(market.DateLayout), r.End.Format(market.DateLayout))
	fmt.Fprintf(w, "Split:         %s\n", r.Split.Format(market.DateLayout))

	PrintHedge(w, r)

	if !r.Traded() {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Pair rejected: the residual did not reject a unit root.")
		fmt.Fprintln(w, "Re-run with --force to trade it anyway.")
		return
	}

	c := r.Config.Backtest
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Strategy Configuration")
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "Z Window:      %d\n", c.Window)
	fmt.Fprintf(w, "Entry / Exit:  %.2f / %.2f (%s", c.Rules.EntryThreshold, c.Rules.ExitThreshold, exitRule(c.Rules))
	if c.Rules.ExitEpsilon > 0 {
		fmt.Fprintf(w, ", eps %.2f", c.Rules.ExitEpsilon)
	}
	fmt.Fprintln(w, ")")
	fmt.Fprintf(w, "Stop Loss:     %.2f\n", c.Rules.StopLossThreshold)
	fmt.Fprintf(w, "Max Hold:      %d days\n", c.Rules.MaxHoldingDays)
	fmt.Fprintf(w, "Cost:          %.1f bps per leg\n", c.CostBpsPerLeg)
	if r.Forced {
		fmt.Fprintln(w, "Forced:        yes (pair failed the screen)")
	}

	printWindow(w, "Train (in-sample)", r.Train)
	printWindow(w, "Test (out-of-sample)", r.Test)
}

// PrintHedge writes the estimation block.
func PrintHedge(w io.Writer, r *Report) {
	h := r.Hedge
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Hedge Ratio (train)")
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "Beta:          %.4f\n", h.Beta)
	fmt.Fprintf(w, "Intercept:     %.4f\n", h.Intercept)
	fmt.Fprintf(w, "Observations:  %d\n", h.NObs)
	fmt.Fprintf(w, "ADF Stat:      %.3f (lag %d)\n", h.ADFStatistic, h.UsedLag)
	fmt.Fprintf(w, "Critical:      1%% %.3f  5%% %.3f  10%% %.3f\n",
		h.CriticalValues.OnePct, h.CriticalValues.FivePct, h.CriticalValues.TenPct)
	fmt.Fprintf(w, "p-value:       %.4f\n", h.PValue)
	fmt.Fprintf(w, "Cointegrated:  %t (alpha %.2f)\n", r.Cointegrated, h.Significance)
	if s := r.Stability; s != nil {
		fmt.Fprintf(w, "Rolling Beta:  mean %.4f sd %s range [%.4f, %.4f] (%d days)\n",
			s.Mean, num(s.StdDev, "%.4f"), s.Min, s.Max, s.Window)
	}
}

func printWindow(w io.Writer, title string, win Window) {
	m, t := win.Metrics, win.Trades
	fmt.Fprintln(w)
	fmt.Fprintln(w, title)
	fmt.Fprintln(w, "--------------------------------------------------")
	if m.Days == 0 {
		fmt.Fprintln(w, "No days in window.")
		return
	}
	fmt.Fprintf(w, "Days:          %d (%s .. %s)\n", m.Days, m.Start.Format(market.DateLayout), m.End.Format(market.DateLayout))
	fmt.Fprintf(w, "Total Return:  %s\n", pct(m.TotalReturn))
	fmt.Fprintf(w, "CAGR:          %s\n", pct(m.CAGR))
	fmt.Fprintf(w, "Volatility:    %s\n", pct(m.Volatility))
	fmt.Fprintf(w, "Sharpe:        %s\n", num(m.Sharpe, "%.2f"))
	fmt.Fprintf(w, "Sortino:       %s\n", num(m.Sortino, "%.2f"))
	fmt.Fprintf(w, "Max Drawdown:  %s\n", pct(m.MaxDrawdown))
	fmt.Fprintf(w, "Calmar:        %s\n", num(m.Calmar, "%.2f"))
	fmt.Fprintf(w, "Turnover:      %s\n", num(m.Turnover, "%.4f"))

	fmt.Fprintf(w, "Trades:        %d (long %d, short %d)\n", t.Count, t.Long, t.Short)
	if t.Count == 0 {
		return
	}
	fmt.Fprintf(w, "Wins:          %d\n", t.Wins)
	fmt.Fprintf(w, "Losses:        %d\n", t.Losses)
	fmt.Fprintf(w, "Hit Rate:      %s\n", pct(t.HitRate))
	fmt.Fprintf(w, "Profit Factor: %s\n", num(t.ProfitFactor, "%.2f"))
	fmt.Fprintf(w, "Avg Hold:      %.1f days\n", t.AvgHoldingDays)
	fmt.Fprintf(w, "Costs:         %.6f\n", t.TotalCost)

	reasons := make([]string, 0, len(t.ByReason))
	for k := range t.ByReason {
		reasons = append(reasons, string(k))
	}
	sort.Strings(reasons)
	for _, k := range reasons {
		fmt.Fprintf(w, "  %-12s %d\n", k+":", t.ByReason[position.ExitReason(k)])
	}
}

func exitRule(r position.Rules) position.ExitRule {
	if r.ExitRule == "" {
		return position.ExitCross
	}
	return r.ExitRule
}

func pct(x float64) string {
	if math.IsNaN(x) {
		return "n/a"
	}
	return fmt.Sprintf("%.2f%%", x*100)
}

func num(x float64, format string) string {
	if math.IsNaN(x) {
		return "n/a"
	}
	return fmt.Sprintf(format, x)
}
