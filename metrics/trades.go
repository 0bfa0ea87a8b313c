package metrics

import (
	"math"

	"github.com/rustyeddy/pairtrader/backtest"
	"github.com/rustyeddy/pairtrader/position"
)

// TradeStats summarizes closed trades.
type TradeStats struct {
	Count          int                         `json:"count"`
	Long           int                         `json:"long"`
	Short          int                         `json:"short"`
	Wins           int                         `json:"wins"`
	Losses         int                         `json:"losses"`
	HitRate        float64                     `json:"hit_rate"`
	TotalPnL       float64                     `json:"total_pnl"`
	AvgPnL         float64                     `json:"avg_pnl"`
	GrossProfit    float64                     `json:"gross_profit"`
	GrossLoss      float64                     `json:"gross_loss"`
	ProfitFactor   float64                     `json:"profit_factor"`
	TotalCost      float64                     `json:"total_cost"`
	AvgHoldingDays float64                     `json:"avg_holding_days"`
	ByReason       map[position.ExitReason]int `json:"by_reason"`
}

// SummarizeTrades computes hit rate, profit factor and exit-reason counts.
// Ratios are NaN when there is nothing to divide by.
func SummarizeTrades(trades []backtest.Trade) TradeStats {
	s := TradeStats{ByReason: map[position.ExitReason]int{}}
	held := 0
	for _, t := range trades {
		s.Count++
		switch t.Direction {
		case position.LongSpread:
			s.Long++
		case position.ShortSpread:
			s.Short++
		}
		switch {
		case t.PnL > 0:
			s.Wins++
			s.GrossProfit += t.PnL
		case t.PnL < 0:
			s.Losses++
			s.GrossLoss += -t.PnL
		}
		s.TotalPnL += t.PnL
		s.TotalCost += t.Cost
		held += t.HoldingDays
		s.ByReason[t.ExitReason]++
	}
	if s.Count == 0 {
		s.HitRate, s.AvgPnL, s.AvgHoldingDays, s.ProfitFactor = math.NaN(), math.NaN(), math.NaN(), math.NaN()
		return s
	}
	n := float64(s.Count)
	s.HitRate = float64(s.Wins) / n
	s.AvgPnL = s.TotalPnL / n
	s.AvgHoldingDays = float64(held) / n
	s.ProfitFactor = math.NaN()
	if s.GrossLoss > 0 {
		s.ProfitFactor = s.GrossProfit / s.GrossLoss
	}
	return s
}
