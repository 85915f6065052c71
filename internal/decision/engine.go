package decision

import (
	"fmt"

	"go.uber.org/zap"

	"pm-sandbox/internal/config"
	"pm-sandbox/internal/market"
)

// featureRecord 是每个 tick 抽取出的布尔特征对。
type featureRecord struct {
	arbSignal    bool
	sniperSignal bool
}

// WindowSummary 描述当前记忆窗口的信号分布，供提示词与统计使用。
type WindowSummary struct {
	ArbSignals    int `json:"arb_signals"`
	SniperSignals int `json:"sniper_signals"`
	Length        int `json:"length"`
	Capacity      int `json:"capacity"`
}

// Engine 是规则决策引擎：维护一个固定容量的特征环形窗口，
// 按窗口多数派选择策略，平局时退化为单 tick 规则。
//
// 窗口是一次回测内唯一的跨 tick 可变状态，由单一 Engine 实例独占；
// 并发跑多个独立回测时必须一run一实例，并在复用实例前调用 Reset。
type Engine struct {
	cfg    config.DecisionConfig
	window []featureRecord
	logger *zap.Logger
}

// NewEngine 创建规则决策引擎。
func NewEngine(cfg config.DecisionConfig, logger *zap.Logger) *Engine {
	if cfg.WindowSize <= 0 {
		cfg.WindowSize = 5
	}
	if cfg.LargeSpreadThreshold <= 0 {
		cfg.LargeSpreadThreshold = 0.10
	}
	if cfg.DeepDiscountThreshold <= 0 {
		cfg.DeepDiscountThreshold = 0.42
	}
	if cfg.MinSpreadSignal <= 0 {
		cfg.MinSpreadSignal = 0.002
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		cfg:    cfg,
		window: make([]featureRecord, 0, cfg.WindowSize),
		logger: logger,
	}
}

// Decide 对当前 tick 做出策略选择。窗口先写入当前 tick 的特征，
// 因此多数派统计总是包含当前 tick。
func (e *Engine) Decide(tick market.Tick) Result {
	e.Observe(tick)

	arbCount, sniperCount := e.tally()
	winLen := len(e.window)

	if arbCount > sniperCount {
		confidence := min(0.60+float64(arbCount)/float64(winLen)*0.35, 0.95)
		result := Result{
			Chosen:   StrategyArb,
			RiskMode: RiskDefensive,
			Reason: fmt.Sprintf("Regime window favors arbitrage: %d/%d arb signals vs %d sniper",
				arbCount, winLen, sniperCount),
			Confidence: confidence,
		}
		return e.applyPattern(result, tick)
	}

	if sniperCount > arbCount {
		confidence := min(0.60+float64(sniperCount)/float64(winLen)*0.30, 0.90)
		result := Result{
			Chosen:   StrategySniper,
			RiskMode: RiskAggressive,
			Reason: fmt.Sprintf("Regime window favors sniper: %d/%d sniper signals vs %d arb",
				sniperCount, winLen, arbCount),
			Confidence: confidence,
		}
		return e.applyPattern(result, tick)
	}

	// 平局（含窗口刚好均分与空窗口）：退化为只看当前 tick 的规则
	return e.applyPattern(e.singleTickDecision(tick), tick)
}

// Observe 只抽取特征写入窗口，不产生决策。大模型决策成功时用它
// 保持记忆与实际行情同步。
func (e *Engine) Observe(tick market.Tick) {
	record := featureRecord{
		arbSignal:    tick.ArbSpread() > e.cfg.LargeSpreadThreshold || tick.Mode == market.ModeArb,
		sniperSignal: (tick.BestAsk > 0 && tick.BestAsk < e.cfg.DeepDiscountThreshold) || tick.Mode == market.ModeSniper,
	}

	e.window = append(e.window, record)
	if len(e.window) > e.cfg.WindowSize {
		e.window = e.window[1:]
	}
}

// Reset 清空记忆窗口。共享同一 Engine 实例的独立回测之间必须调用，
// 否则上一轮的行情记忆会泄漏进下一轮，这是正确性要求而非使用建议。
func (e *Engine) Reset() {
	e.window = e.window[:0]
}

// Summary 返回当前窗口的信号统计。
func (e *Engine) Summary() WindowSummary {
	arbCount, sniperCount := e.tally()
	return WindowSummary{
		ArbSignals:    arbCount,
		SniperSignals: sniperCount,
		Length:        len(e.window),
		Capacity:      e.cfg.WindowSize,
	}
}

func (e *Engine) tally() (arbCount, sniperCount int) {
	for _, record := range e.window {
		if record.arbSignal {
			arbCount++
		}
		if record.sniperSignal {
			sniperCount++
		}
	}
	return arbCount, sniperCount
}

// singleTickDecision 实现平局时的单 tick 规则，按严格优先级匹配。
func (e *Engine) singleTickDecision(tick market.Tick) Result {
	if tick.Mode == market.ModeArb {
		return Result{
			Chosen:     StrategyArb,
			RiskMode:   RiskDefensive,
			Reason:     "Arbitrage opportunity detected",
			Confidence: 0.95,
		}
	}

	if tick.Mode == market.ModeSniper {
		return Result{
			Chosen:     StrategySniper,
			RiskMode:   RiskAggressive,
			Reason:     "Trend sniper signal",
			Confidence: 0.80,
		}
	}

	if spread := tick.ArbSpread(); spread > e.cfg.MinSpreadSignal {
		return Result{
			Chosen:     StrategyArb,
			RiskMode:   RiskDefensive,
			Reason:     fmt.Sprintf("Arbitrage spread detected: %.4f", spread),
			Confidence: min(0.5+spread*10, 0.99),
		}
	}

	if tick.BestAsk > 0 {
		return Result{
			Chosen:     StrategySniper,
			RiskMode:   RiskNormal,
			Reason:     "Sniper mode available, no arb opportunity",
			Confidence: 0.60,
		}
	}

	// 兜底刻意保守：选套利而不是"什么都不做"
	return Result{
		Chosen:     StrategyArb,
		RiskMode:   RiskNormal,
		Reason:     "Default safety fallback",
		Confidence: 0.50,
	}
}

// applyPattern 按历史形态上下文修正决策：强正收益形态偏向狙击并强制
// 进攻档，显著负收益形态强制防守档。
func (e *Engine) applyPattern(result Result, tick market.Tick) Result {
	pattern := tick.Pattern
	if pattern == nil {
		return result
	}

	if pattern.Bullish() {
		// 只有在行情未显式指定模式时才推翻套利选择
		if result.Chosen == StrategyArb && tick.Mode == market.ModeNone {
			result.Chosen = StrategySniper
		}
		result.RiskMode = RiskAggressive
	}

	if pattern.Bearish() {
		result.RiskMode = RiskDefensive
	}

	result.Reason = fmt.Sprintf("%s | pattern=%s avg_return_3d=%.4f confidence=%s",
		result.Reason, pattern.PatternName, pattern.AvgReturn3D, pattern.Confidence)

	return result
}
