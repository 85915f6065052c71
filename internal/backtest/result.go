package backtest

import (
	"time"

	"pm-sandbox/internal/market"
)

// Trade 记录一笔已执行的成交，创建后不再修改。
type Trade struct {
	Tick          int
	Timestamp     time.Time
	Side          market.Side
	Price         float64 // 实际成交价
	Size          float64 // 收敛后的成交数量
	Cost          float64 // 成交总额 size×price
	PositionAfter float64
	CashAfter     float64
	Meta          map[string]any
}

// Result 是一次回测运行的完整结果。
// 胜负计数使用近似启发式（卖出价对比紧邻前一笔成交价），
// 不是按开平仓配对的真实盈亏，只能作为参考指标。
type Result struct {
	StrategyName  string
	InitialCash   float64
	FinalCash     float64
	FinalPosition float64
	FinalEquity   float64
	TotalReturn   float64 // (final_equity - initial_cash) / initial_cash

	TotalTrades    int
	WinningTrades  int
	LosingTrades   int
	RejectedTrades int // 被风控闸门拒绝的订单数，与"无机会"分开计数

	EquityCurve []float64
	Trades      []Trade

	MaxEquity   float64
	MinEquity   float64
	MaxDrawdown float64 // 峰值到谷值的最大回撤（占峰值比例）
}
