package market

// ConfidenceLevel 表示历史形态分析的置信等级。
type ConfidenceLevel string

const (
	ConfidenceLow    ConfidenceLevel = "low"
	ConfidenceMedium ConfidenceLevel = "medium"
	ConfidenceHigh   ConfidenceLevel = "high"
)

// HistoricalPattern 是可选的历史形态上下文，用于偏置决策引擎。
// 由形态分析器在回测开始前离线计算，核心循环内不做任何 I/O。
type HistoricalPattern struct {
	PatternName string
	AvgReturn3D float64
	Confidence  ConfidenceLevel
}

// Bullish 判断形态是否足以偏向进攻（3日均值收益显著为正且置信度不低）。
func (p HistoricalPattern) Bullish() bool {
	return p.AvgReturn3D > 0.10 &&
		(p.Confidence == ConfidenceMedium || p.Confidence == ConfidenceHigh)
}

// Bearish 判断形态是否要求防守。
func (p HistoricalPattern) Bearish() bool {
	return p.AvgReturn3D < -0.05
}
