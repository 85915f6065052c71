package strategy

import (
	"pm-sandbox/internal/config"
	"pm-sandbox/internal/market"
)

// Arb 为跨平台套利策略：当 Opinion 买一价高于 Polymarket 卖一价
// 且毛价差超过阈值时，同时买入 PM、卖出 OP 锁定价差。
// OP 流动性低于 PM，价格滞后于 PM 是套利空间的来源。
type Arb struct {
	name string
	cfg  config.ArbConfig
}

// NewArb 创建套利策略。
func NewArb(cfg config.ArbConfig) *Arb {
	if cfg.MinProfitRate <= 0 {
		cfg.MinProfitRate = 0.005
	}
	if cfg.MinSpreadMultiplier <= 0 {
		cfg.MinSpreadMultiplier = 0.5
	}
	if cfg.FallbackSize <= 0 {
		cfg.FallbackSize = 100.0
	}
	return &Arb{name: "ou_arb", cfg: cfg}
}

// Name 返回策略标识。
func (a *Arb) Name() string {
	return a.name
}

// OnTick 评估快照并在存在套利机会时返回一买一卖两条指令。
func (a *Arb) OnTick(tick market.Tick) []OrderInstruction {
	if tick.PMAsk <= 0 || tick.OPBid <= 0 {
		return nil
	}

	grossSpread := tick.OPBid - tick.PMAsk

	// 价差过小直接放弃；严格小于阈值才拒绝，恰好等于阈值仍然放行
	if grossSpread < a.minThreshold() {
		return nil
	}

	size := a.cfg.FallbackSize
	if tick.PMLiquidity > 0 && tick.OPLiquidity > 0 {
		size = min(tick.PMLiquidity, tick.OPLiquidity)
	}

	spreadPct := grossSpread / tick.PMAsk

	return []OrderInstruction{
		{
			Side:  market.SideBuy,
			Size:  size,
			Price: tick.PMAsk,
			Meta: map[string]any{
				"platform":     "polymarket",
				"reason":       "arb_buy_cheap",
				"gross_spread": grossSpread,
				"spread_pct":   spreadPct,
			},
		},
		{
			Side:  market.SideSell,
			Size:  size,
			Price: tick.OPBid,
			Meta: map[string]any{
				"platform":     "opinion",
				"reason":       "arb_sell_expensive",
				"gross_spread": grossSpread,
				"spread_pct":   spreadPct,
			},
		},
	}
}

// IsOpportunity 与 OnTick 共用阈值判断，供路由层做机会存在性校验。
func (a *Arb) IsOpportunity(tick market.Tick) bool {
	if tick.PMAsk <= 0 || tick.OPBid <= 0 {
		return false
	}
	return tick.OPBid-tick.PMAsk >= a.minThreshold()
}

// Spread 返回毛价差 op_bid - pm_ask，正值代表存在套利空间。
func (a *Arb) Spread(pmAsk, opBid float64) float64 {
	return opBid - pmAsk
}

func (a *Arb) minThreshold() float64 {
	return a.cfg.MinProfitRate * a.cfg.MinSpreadMultiplier
}
