// Package sizing 提供基于 Kelly 公式的仓位建议。建议只用于报告展示，
// 不直接参与下单，避免把仓位放大逻辑混进执行路径。
package sizing

import "fmt"

// DefaultMaxFraction 单笔仓位占总资金的上限。
const DefaultMaxFraction = 0.20

// KellyResult 描述一次仓位建议的完整推导过程。
type KellyResult struct {
	FractionRaw     float64
	FractionHalf    float64
	FractionApplied float64
	Notional        float64
}

// CalculateKelly 计算半 Kelly 仓位建议。
// confidence 作为胜率 p，winLossRatio 为平均盈亏比 b，
// 公式 f = (p*b - (1-p)) / b，取半后再按 maxFraction 封顶。
func CalculateKelly(totalCapital, confidence, winLossRatio, maxFraction float64) (KellyResult, error) {
	if totalCapital <= 0 {
		return KellyResult{}, fmt.Errorf("总资金必须为正: %f", totalCapital)
	}
	if winLossRatio <= 0 {
		return KellyResult{}, fmt.Errorf("盈亏比必须为正: %f", winLossRatio)
	}
	if confidence < 0 || confidence > 1 {
		return KellyResult{}, fmt.Errorf("胜率必须在 [0,1] 内: %f", confidence)
	}
	if maxFraction <= 0 {
		maxFraction = DefaultMaxFraction
	}

	raw := (confidence*winLossRatio - (1 - confidence)) / winLossRatio
	if raw < 0 {
		raw = 0
	}

	half := raw / 2
	applied := half
	if applied > maxFraction {
		applied = maxFraction
	}

	return KellyResult{
		FractionRaw:     raw,
		FractionHalf:    half,
		FractionApplied: applied,
		Notional:        totalCapital * applied,
	}, nil
}
