package strategy

import (
	"pm-sandbox/internal/config"
	"pm-sandbox/internal/market"
)

// Sniper 为折价狙击策略：当市场卖一价显著低于自认的公允价时吃单买入，
// 当买一价超过公允价时止盈卖出。先查止盈再查进场，单个 tick 至多一条指令。
type Sniper struct {
	name string
	cfg  config.SniperConfig
}

// NewSniper 创建狙击策略。
func NewSniper(cfg config.SniperConfig) *Sniper {
	if cfg.TargetPrice <= 0 {
		cfg.TargetPrice = 0.50
	}
	if cfg.MinGap <= 0 {
		cfg.MinGap = 0.02
	}
	if cfg.PositionSize <= 0 {
		cfg.PositionSize = 50.0
	}
	return &Sniper{name: "sniper", cfg: cfg}
}

// Name 返回策略标识。
func (s *Sniper) Name() string {
	return s.name
}

// OnTick 评估快照，存在机会时返回单条买入或卖出指令。
func (s *Sniper) OnTick(tick market.Tick) []OrderInstruction {
	bestAsk := tick.BestAsk
	if bestAsk <= 0 {
		return nil
	}

	size := s.cfg.PositionSize
	if tick.PositionSize > 0 {
		size = tick.PositionSize
	}

	// 止盈：仅在调用方声明持仓时检查，优先于进场判断
	if tick.HasPosition && tick.BestBid > s.cfg.TargetPrice {
		shares := size / tick.BestBid
		return []OrderInstruction{
			{
				Side:  market.SideSell,
				Size:  shares,
				Price: tick.BestBid,
				Meta: map[string]any{
					"strategy":     "sniper",
					"reason":       "take_profit",
					"target_price": s.cfg.TargetPrice,
					"price_gap":    tick.BestBid - s.cfg.TargetPrice,
				},
			},
		}
	}

	opp := s.calculate(bestAsk, tick.GasCostUSD, size)
	if !opp.Has {
		return nil
	}

	return []OrderInstruction{
		{
			Side:  market.SideBuy,
			Size:  opp.Shares,
			Price: bestAsk,
			Meta: map[string]any{
				"strategy":        "sniper",
				"reason":          "sniper_entry",
				"target_price":    s.cfg.TargetPrice,
				"price_gap":       opp.PriceGap,
				"price_gap_pct":   opp.PriceGap / s.cfg.TargetPrice * 100,
				"expected_profit": opp.ExpectedProfit,
			},
		},
	}
}

// IsOpportunity 只做进场判断，与 OnTick 的买入分支共用同一套条件。
func (s *Sniper) IsOpportunity(tick market.Tick) bool {
	if tick.BestAsk <= 0 {
		return false
	}
	size := s.cfg.PositionSize
	if tick.PositionSize > 0 {
		size = tick.PositionSize
	}
	return s.calculate(tick.BestAsk, tick.GasCostUSD, size).Has
}

// TriggerPrice 返回触发买入的最高卖一价。
func (s *Sniper) TriggerPrice() float64 {
	return s.cfg.TargetPrice - s.cfg.MinGap
}

type sniperOpportunity struct {
	Has            bool
	PriceGap       float64
	Shares         float64
	ExpectedProfit float64
}

// calculate 计算进场条件：折价达到 min_gap（含等于），且扣除 gas 后
// 期望收益为正。期望收益 = 份额×目标价 − (投入+gas)。
func (s *Sniper) calculate(ask, gasCostUSD, size float64) sniperOpportunity {
	priceGap := s.cfg.TargetPrice - ask
	if priceGap < s.cfg.MinGap {
		return sniperOpportunity{}
	}

	shares := size / ask
	expectedProfit := shares*s.cfg.TargetPrice - (size + gasCostUSD)
	if expectedProfit <= 0 {
		return sniperOpportunity{PriceGap: priceGap, Shares: shares}
	}

	return sniperOpportunity{
		Has:            true,
		PriceGap:       priceGap,
		Shares:         shares,
		ExpectedProfit: expectedProfit,
	}
}
