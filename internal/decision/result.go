// Package decision 实现策略路由的"大脑"：带短期记忆的规则引擎，
// 以及一条可选的、出错即回退的大模型决策通道。两条通道输出同一种 Result。
package decision

import (
	"fmt"
	"strings"
)

// StrategyID 标识一个可路由的策略。
type StrategyID string

const (
	StrategyNone   StrategyID = ""       // 不动作
	StrategyArb    StrategyID = "ou_arb" // 跨平台套利
	StrategySniper StrategyID = "sniper" // 折价狙击
)

// RiskMode 标识决策附带的风险档位。
type RiskMode string

const (
	RiskDefensive  RiskMode = "defensive"
	RiskNormal     RiskMode = "normal"
	RiskAggressive RiskMode = "aggressive"
)

// Result 是决策引擎的输出，两条决策通道（规则 / 大模型）共用同一契约。
type Result struct {
	Chosen     StrategyID
	RiskMode   RiskMode
	Reason     string
	Confidence float64 // 始终位于 [0,1]
}

// Validate 校验结果字段合法性。
func (r Result) Validate() error {
	switch r.Chosen {
	case StrategyNone, StrategyArb, StrategySniper:
	default:
		return fmt.Errorf("chosen_strategy 取值非法: %q", r.Chosen)
	}
	switch r.RiskMode {
	case RiskDefensive, RiskNormal, RiskAggressive:
	default:
		return fmt.Errorf("risk_mode 取值非法: %q", r.RiskMode)
	}
	if r.Confidence < 0 || r.Confidence > 1 {
		return fmt.Errorf("confidence 必须位于 [0,1]，当前为 %f", r.Confidence)
	}
	return nil
}

// ParseStrategyID 将外部来源的策略标识规范化；未知取值返回 false。
func ParseStrategyID(raw string) (StrategyID, bool) {
	switch StrategyID(strings.ToLower(strings.TrimSpace(raw))) {
	case StrategyArb:
		return StrategyArb, true
	case StrategySniper:
		return StrategySniper, true
	}
	return StrategyNone, false
}

// ParseRiskMode 将外部来源的风险档位规范化；未知取值返回 false。
func ParseRiskMode(raw string) (RiskMode, bool) {
	switch RiskMode(strings.ToLower(strings.TrimSpace(raw))) {
	case RiskDefensive:
		return RiskDefensive, true
	case RiskNormal:
		return RiskNormal, true
	case RiskAggressive:
		return RiskAggressive, true
	}
	return "", false
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
