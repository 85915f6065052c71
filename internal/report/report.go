// Package report 把回测结果渲染成终端表格。
package report

import (
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"

	"pm-sandbox/internal/backtest"
	"pm-sandbox/internal/router"
	"pm-sandbox/internal/sizing"
)

// WriteComparison 输出多策略对比表。
func WriteComparison(w io.Writer, results []backtest.Result) {
	fmt.Fprintln(w, "策略对比")

	table := tablewriter.NewWriter(w)
	table.Header("Strategy", "Trades", "Win/Loss", "Rejected", "Final Equity", "Return %", "Max DD %")

	for _, r := range results {
		table.Append(
			r.StrategyName,
			fmt.Sprintf("%d", r.TotalTrades),
			fmt.Sprintf("%d/%d", r.WinningTrades, r.LosingTrades),
			fmt.Sprintf("%d", r.RejectedTrades),
			fmt.Sprintf("%.2f", r.FinalEquity),
			fmt.Sprintf("%+.2f", r.TotalReturn*100),
			fmt.Sprintf("%.2f", r.MaxDrawdown*100),
		)
	}

	table.Render()
}

// WriteRunDetail 输出单次回测的明细摘要。
func WriteRunDetail(w io.Writer, r backtest.Result) {
	fmt.Fprintf(w, "回测明细: %s\n", r.StrategyName)

	table := tablewriter.NewWriter(w)
	table.Header("Metric", "Value")
	table.Append("Initial Cash", fmt.Sprintf("%.2f", r.InitialCash))
	table.Append("Final Cash", fmt.Sprintf("%.2f", r.FinalCash))
	table.Append("Final Position", fmt.Sprintf("%.4f", r.FinalPosition))
	table.Append("Final Equity", fmt.Sprintf("%.2f", r.FinalEquity))
	table.Append("Total Return", fmt.Sprintf("%+.2f%%", r.TotalReturn*100))
	table.Append("Max Equity", fmt.Sprintf("%.2f", r.MaxEquity))
	table.Append("Min Equity", fmt.Sprintf("%.2f", r.MinEquity))
	table.Append("Max Drawdown", fmt.Sprintf("%.2f%%", r.MaxDrawdown*100))
	table.Append("Total Trades", fmt.Sprintf("%d", r.TotalTrades))
	table.Append("Rejected Trades", fmt.Sprintf("%d", r.RejectedTrades))
	table.Render()
}

// WriteRoutingStats 输出路由分布统计。
func WriteRoutingStats(w io.Writer, stats router.Stats) {
	fmt.Fprintln(w, "路由分布")

	table := tablewriter.NewWriter(w)
	table.Header("Route", "Count", "Pct")
	table.Append("ou_arb", fmt.Sprintf("%d", stats.OuArbCount), fmt.Sprintf("%.1f%%", stats.OuArbPct()))
	table.Append("sniper", fmt.Sprintf("%d", stats.SniperCount), fmt.Sprintf("%.1f%%", stats.SniperPct()))
	table.Append("no_action", fmt.Sprintf("%d", stats.NoActionCount), fmt.Sprintf("%.1f%%", stats.NoActionPct()))
	table.Render()
}

// WriteKellySuggestion 输出仓位建议。
func WriteKellySuggestion(w io.Writer, k sizing.KellyResult) {
	fmt.Fprintln(w, "Kelly 仓位建议")

	table := tablewriter.NewWriter(w)
	table.Header("Fraction Raw", "Half Kelly", "Applied", "Notional")
	table.Append(
		fmt.Sprintf("%.4f", k.FractionRaw),
		fmt.Sprintf("%.4f", k.FractionHalf),
		fmt.Sprintf("%.4f", k.FractionApplied),
		fmt.Sprintf("%.2f", k.Notional),
	)
	table.Render()
}
