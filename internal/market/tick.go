package market

import "time"

// Side 表示交易方向。
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Mode 为策略模式提示，来自上游数据源，允许为空。
type Mode string

const (
	ModeNone   Mode = ""
	ModeArb    Mode = "arb"
	ModeSniper Mode = "sniper"
)

// Tick 表示一个模拟时间步的市场快照。
//
// 所有价格字段均为可选：零值或负值一律视为缺失，下游必须退化为
// "无机会/不交易"，而不是报错。字段覆盖两个套利腿（Polymarket 买入侧
// 与 Opinion 卖出侧）以及狙击策略使用的单市场盘口。
type Tick struct {
	PMAsk float64 // Polymarket 卖一价（买入成本）
	PMBid float64 // Polymarket 买一价
	OPAsk float64 // Opinion 卖一价
	OPBid float64 // Opinion 买一价（卖出所得）

	BestAsk float64 // 狙击策略关注的市场卖一价
	BestBid float64 // 狙击策略关注的市场买一价

	Ask      float64 // 通用卖一价（兜底字段）
	Bid      float64 // 通用买一价（兜底字段）
	Price    float64 // 通用成交价（兜底字段）
	MidPrice float64 // 显式中间价，优先用于盯市估值

	Mode Mode // 上游给出的策略提示，可为空

	GasCostUSD   float64 // 预估链上成本（USD）
	PositionSize float64 // 覆盖默认下单金额（USD）
	PMLiquidity  float64 // PM 侧可用流动性
	OPLiquidity  float64 // OP 侧可用流动性

	HasPosition bool // 当前是否持仓（狙击止盈用，由调用方维护）

	Pattern *HistoricalPattern // 可选的历史形态上下文

	Timestamp time.Time
}

// BuyPrice 按固定顺序解析买入执行价：best_ask → pm_ask → ask → price → mid。
// 找不到正数价格时返回 0。
func (t Tick) BuyPrice() float64 {
	return firstPositive(t.BestAsk, t.PMAsk, t.Ask, t.Price, t.MidPrice)
}

// SellPrice 按固定顺序解析卖出执行价：best_bid → op_bid → bid → price → mid。
func (t Tick) SellPrice() float64 {
	return firstPositive(t.BestBid, t.OPBid, t.Bid, t.Price, t.MidPrice)
}

// MarkPrice 返回盯市估值价：优先显式中间价，其次买卖价均值，
// 再退化到任意单边价格，全部缺失时固定取 0.5。
func (t Tick) MarkPrice() float64 {
	if t.MidPrice > 0 {
		return t.MidPrice
	}

	bid := firstPositive(t.BestBid, t.OPBid, t.Bid)
	ask := firstPositive(t.BestAsk, t.PMAsk, t.Ask)

	if bid > 0 && ask > 0 {
		return (bid + ask) / 2
	}

	if p := firstPositive(t.Price, bid, ask); p > 0 {
		return p
	}

	return 0.5
}

// ArbSpread 返回跨平台毛价差 op_bid - pm_ask；任一腿缺失时返回 0。
func (t Tick) ArbSpread() float64 {
	if t.PMAsk <= 0 || t.OPBid <= 0 {
		return 0
	}
	return t.OPBid - t.PMAsk
}

func firstPositive(values ...float64) float64 {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 0
}
