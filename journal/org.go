package journal

import (
	"fmt"
	"io"
	"math"
	"strings"
	"text/template"
	"time"
)

// RunView is everything FormatRunOrg renders for one run.
type RunView struct {
	Run     RunRecord
	Metrics []MetricsRecord
	Trades  []TradeRecord
	Notes   []string
}

var orgFuncs = template.FuncMap{
	"day": func(t time.Time) string {
		if t.IsZero() {
			return "-"
		}
		return t.UTC().Format(time.DateOnly)
	},
	"stamp": func(t time.Time) string {
		return t.UTC().Format("2006-01-02 Mon 15:04")
	},
	"num": func(x float64) string {
		if math.IsNaN(x) {
			return "n/a"
		}
		return fmt.Sprintf("%.4f", x)
	},
	"pct": func(x float64) string {
		if math.IsNaN(x) {
			return "n/a"
		}
		return fmt.Sprintf("%.2f%%", x*100)
	},
	"short": shortID,
}

var runOrg = template.Must(template.New("run").Funcs(orgFuncs).Parse(RunOrgTemplate))

// WriteRunOrg renders v as an Org-mode entry.
func WriteRunOrg(w io.Writer, v RunView) error {
	return runOrg.Execute(w, v)
}

// FormatRunOrg is WriteRunOrg into a string.
func FormatRunOrg(v RunView) (string, error) {
	var b strings.Builder
	if err := WriteRunOrg(&b, v); err != nil {
		return "", err
	}
	return b.String(), nil
}

const RunOrgTemplate = `* PAIR: {{.Run.SymbolA}}/{{.Run.SymbolB}} ({{short .Run.RunID}})
:PROPERTIES:
:RUN_ID:       {{.Run.RunID}}
:SYMBOL_A:     {{.Run.SymbolA}}
:SYMBOL_B:     {{.Run.SymbolB}}
:START_DATE:   {{day .Run.Start}}
:SPLIT_DATE:   {{day .Run.Split}}
:END_DATE:     {{day .Run.End}}
:BETA:         {{num .Run.Beta}}
:INTERCEPT:    {{num .Run.Intercept}}
:ADF_STAT:     {{num .Run.ADFStatistic}}
:P_VALUE:      {{num .Run.PValue}}
:COINTEGRATED: {{.Run.Cointegrated}}
:FORCED:       {{.Run.Forced}}
:CREATED:      [{{stamp .Run.Created}}]
:END:

** Parameters
| Parameter      | Value |
|----------------+-------|
| Z window       | {{.Run.Window}} |
| Entry          | {{printf "%.2f" .Run.Entry}} |
| Exit           | {{printf "%.2f" .Run.Exit}} |
| Stop loss      | {{printf "%.2f" .Run.StopLoss}} |
| Max hold days  | {{.Run.MaxHold}} |
| Cost bps / leg | {{printf "%.2f" .Run.CostBps}} |
{{- if not .Run.Traded }}

** Result
Pair rejected by the cointegration screen; no backtest was run.
{{- else }}

** Performance
| Window | Days | Return | CAGR | Vol | Sharpe | Sortino | Max DD | Calmar | Turnover | Trades | Hit rate |
|--------+------+--------+------+-----+--------+---------+--------+--------+----------+--------+----------|
{{- range .Metrics }}
| {{.Window}} | {{.Days}} | {{pct .TotalReturn}} | {{pct .CAGR}} | {{pct .Volatility}} | {{num .Sharpe}} | {{num .Sortino}} | {{pct .MaxDrawdown}} | {{num .Calmar}} | {{num .Turnover}} | {{.Trades}} | {{pct .HitRate}} |
{{- end }}

** Trades
{{- if .Trades }}
| ID | Dir | Entry | Exit | Entry z | Exit z | Days | PnL | Reason |
|----+-----+-------+------+---------+--------+------+-----+--------|
{{- range .Trades }}
| {{short .TradeID}} | {{.Direction}} | {{day .EntryDate}} | {{day .ExitDate}} | {{num .EntryZ}} | {{num .ExitZ}} | {{.HoldingDays}} | {{printf "%.6f" .PnL}} | {{.ExitReason}} |
{{- end }}
{{- else }}
No trades.
{{- end }}
{{- end }}
{{- if .Notes }}

** Observations
{{- range .Notes }}
- {{.}}
{{- end }}
{{- end }}
`

// FormatTradeOrg renders a TradeRecord as an Org-mode block with its facts
// in a PROPERTIES drawer and empty review headings.
func FormatTradeOrg(t TradeRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "** Trade: %s (%s)\n", t.Direction, shortID(t.TradeID))
	b.WriteString(":PROPERTIES:\n")
	fmt.Fprintf(&b, ":TRADE_ID: %s\n", t.TradeID)
	fmt.Fprintf(&b, ":RUN_ID: %s\n", t.RunID)
	fmt.Fprintf(&b, ":DIRECTION: %s\n", t.Direction)
	fmt.Fprintf(&b, ":ENTRY_DATE: %s\n", t.EntryDate.UTC().Format(time.DateOnly))
	fmt.Fprintf(&b, ":EXIT_DATE: %s\n", t.ExitDate.UTC().Format(time.DateOnly))
	fmt.Fprintf(&b, ":ENTRY_Z: %.4f\n", t.EntryZ)
	fmt.Fprintf(&b, ":EXIT_Z: %.4f\n", t.ExitZ)
	fmt.Fprintf(&b, ":NOTIONAL_A: %.6f\n", t.NotionalA)
	fmt.Fprintf(&b, ":NOTIONAL_B: %.6f\n", t.NotionalB)
	fmt.Fprintf(&b, ":COST: %.6f\n", t.Cost)
	fmt.Fprintf(&b, ":PNL: %.6f\n", t.PnL)
	fmt.Fprintf(&b, ":HOLDING_DAYS: %d\n", t.HoldingDays)
	fmt.Fprintf(&b, ":REASON: %s\n", t.ExitReason)
	b.WriteString(":END:\n")
	b.WriteString("\n")
	b.WriteString("*** Review\n- \n")
	return b.String()
}

// FormatTradesOrg renders multiple trades separated by blank lines.
func FormatTradesOrg(trades []TradeRecord) string {
	var b strings.Builder
	for i, t := range trades {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(FormatTradeOrg(t))
	}
	return b.String()
}

func shortID(full string) string {
	if len(full) <= 8 {
		return full
	}
	return full[:8]
}
