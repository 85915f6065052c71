// Package router 把决策引擎与两个子策略组合成一个可直接喂给回测引擎的
// 复合策略。决策只是偏好，不是保证：被选中的策略在当前 tick 没有真实
// 机会时，路由器放弃动作，而不是退而求其次换另一个策略——换策略会改变
// 可观测的路由统计。
package router

import (
	"go.uber.org/zap"

	"pm-sandbox/internal/decision"
	"pm-sandbox/internal/market"
	"pm-sandbox/internal/strategy"
)

// Decider 是路由器依赖的决策契约，规则引擎与带回退的大模型组合都满足。
type Decider interface {
	Decide(tick market.Tick) decision.Result
	Reset()
}

// Stats 记录路由结果分布，用于事后统计。
type Stats struct {
	TotalTicks    int
	OuArbCount    int
	SniperCount   int
	NoActionCount int
}

// OuArbPct 返回套利路由占比（百分数）。
func (s Stats) OuArbPct() float64 { return pct(s.OuArbCount, s.TotalTicks) }

// SniperPct 返回狙击路由占比（百分数）。
func (s Stats) SniperPct() float64 { return pct(s.SniperCount, s.TotalTicks) }

// NoActionPct 返回未动作占比（百分数）。
func (s Stats) NoActionPct() float64 { return pct(s.NoActionCount, s.TotalTicks) }

func pct(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}

// Router 是策略路由器，本身实现 strategy.Strategy，可被回测引擎直接驱动。
type Router struct {
	name    string
	decider Decider
	arb     strategy.Strategy
	sniper  strategy.Strategy
	logger  *zap.Logger

	stats        Stats
	lastDecision *decision.Result
}

// New 创建路由器。
func New(decider Decider, arb, sniper strategy.Strategy, logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{
		name:    "router",
		decider: decider,
		arb:     arb,
		sniper:  sniper,
		logger:  logger,
	}
}

// Name 返回路由器标识。
func (r *Router) Name() string {
	return r.name
}

// OnTick 完成一次路由：取决策 → 校验被选策略的机会存在性 → 执行并
// 在订单元数据上加注路由来源。
func (r *Router) OnTick(tick market.Tick) []strategy.OrderInstruction {
	result := r.decider.Decide(tick)
	r.lastDecision = &result
	r.stats.TotalTicks++

	chosen := r.mapStrategy(result.Chosen)
	if chosen == nil {
		r.stats.NoActionCount++
		return nil
	}

	// 决策与机会存在性相互独立：选中但没有真实机会就不动作
	if !chosen.IsOpportunity(tick) {
		r.stats.NoActionCount++
		return nil
	}

	orders := chosen.OnTick(tick)
	if len(orders) == 0 {
		r.stats.NoActionCount++
		return nil
	}

	switch result.Chosen {
	case decision.StrategyArb:
		r.stats.OuArbCount++
	case decision.StrategySniper:
		r.stats.SniperCount++
	}

	for i := range orders {
		if orders[i].Meta == nil {
			orders[i].Meta = make(map[string]any, 5)
		}
		orders[i].Meta["routed_by"] = r.name
		orders[i].Meta["routing_mode"] = string(result.Chosen)
		orders[i].Meta["ai_reason"] = result.Reason
		orders[i].Meta["ai_risk_mode"] = string(result.RiskMode)
		orders[i].Meta["ai_confidence"] = result.Confidence
	}

	return orders
}

// IsOpportunity 报告任一子策略在当前 tick 是否存在机会。
func (r *Router) IsOpportunity(tick market.Tick) bool {
	return r.arb.IsOpportunity(tick) || r.sniper.IsOpportunity(tick)
}

// LastDecision 返回最近一次决策结果；尚未决策时为 nil。
func (r *Router) LastDecision() *decision.Result {
	return r.lastDecision
}

// RoutingStats 返回路由统计快照。
func (r *Router) RoutingStats() Stats {
	return r.stats
}

// Reset 清零路由统计并重置底层决策器的记忆，独立回测之间必须调用。
func (r *Router) Reset() {
	r.stats = Stats{}
	r.lastDecision = nil
	r.decider.Reset()
}

func (r *Router) mapStrategy(id decision.StrategyID) strategy.Strategy {
	switch id {
	case decision.StrategyArb:
		return r.arb
	case decision.StrategySniper:
		return r.sniper
	default:
		if id != decision.StrategyNone {
			// 上游契约被打破：未知策略标识按不动作处理
			r.logger.Warn("未知策略标识，按不动作处理", zap.String("chosen_strategy", string(id)))
		}
		return nil
	}
}
