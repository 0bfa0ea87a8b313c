package sweep

import (
	"fmt"
	"io"
	"math"

	"github.com/rustyeddy/pairtrader/market"
)

func PrintResult(w io.Writer, r *Result) {
	fmt.Fprintln(w, "==================================================")
	fmt.Fprintln(w, " Parameter Sweep")
	fmt.Fprintln(w, "==================================================")
	fmt.Fprintf(w, "Split:         %s\n", r.Split.Format(market.DateLayout))
	fmt.Fprintf(w, "Beta:          %.4f (p %.4f)\n", r.Hedge.Beta, r.Hedge.PValue)
	fmt.Fprintf(w, "Objective:     %s (train)\n", r.Objective)
	if r.Rejected {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Pair rejected: the residual did not reject a unit root.")
		return
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%6s %6s %6s %7s %10s %10s %10s %10s\n",
		"window", "entry", "exit", "trades", "train", "test", "test_ret", "test_mdd")
	fmt.Fprintln(w, "--------------------------------------------------------------------------")
	for i := range r.Outcomes {
		o := &r.Outcomes[i]
		mark := " "
		if o == r.Best {
			mark = "*"
		}
		if o.Err != nil {
			fmt.Fprintf(w, "%6d %6.2f %6.2f  error: %v\n", o.Params.Window, o.Params.Entry, o.Params.Exit, o.Err)
			continue
		}
		fmt.Fprintf(w, "%6d %6.2f %6.2f %7d %10s %10s %10s %10s %s\n",
			o.Params.Window, o.Params.Entry, o.Params.Exit, o.Trades,
			cell(r.Objective.score(o.Train)), cell(r.Objective.score(o.Test)),
			cell(o.Test.TotalReturn), cell(o.Test.MaxDrawdown), mark)
	}
	if r.Best == nil {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "No grid point produced a finite objective.")
	}
}

func cell(x float64) string {
	if math.IsNaN(x) {
		return "n/a"
	}
	return fmt.Sprintf("%.4f", x)
}
