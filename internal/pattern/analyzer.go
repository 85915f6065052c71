// Package pattern 在回测开始前离线分析历史收盘序列，产出供决策引擎
// 偏置使用的形态上下文。核心的每 tick 热路径不会触碰这里。
package pattern

import (
	"fmt"

	"go.uber.org/zap"

	"pm-sandbox/internal/indicator"
	"pm-sandbox/internal/market"
)

// Analyzer 把收盘价序列归纳为 {形态名, 3步均值收益, 置信等级}。
type Analyzer struct {
	calc   *indicator.Calculator
	logger *zap.Logger
}

// NewAnalyzer 创建形态分析器。
func NewAnalyzer(logger *zap.Logger) *Analyzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Analyzer{
		calc:   indicator.NewCalculator(),
		logger: logger,
	}
}

// Analyze 分析收盘序列。序列过短时返回错误，调用方应当视作
// "没有形态上下文"继续运行，而不是中断回测。
func (a *Analyzer) Analyze(name string, closes []float64) (market.HistoricalPattern, error) {
	res, err := a.calc.Compute(name, closes)
	if err != nil {
		return market.HistoricalPattern{}, err
	}

	shape := "ranging"
	switch {
	case res.EMA26 > 0 && res.EMA12 > res.EMA26*1.002:
		shape = "trending_up"
	case res.EMA26 > 0 && res.EMA12 < res.EMA26*0.998:
		shape = "trending_down"
	}

	confidence := market.ConfidenceLow
	if shape != "ranging" {
		confidence = market.ConfidenceMedium
		// RSI 走到极端区间且 MACD 柱同向时认为趋势更可信。
		macdAgrees := (shape == "trending_up" && res.MACD.Histogram > 0) ||
			(shape == "trending_down" && res.MACD.Histogram < 0)
		if (res.RSI > 60 || res.RSI < 40) && macdAgrees {
			confidence = market.ConfidenceHigh
		}
	}

	patternName := shape
	if name != "" {
		patternName = fmt.Sprintf("%s_%s", name, shape)
	}

	result := market.HistoricalPattern{
		PatternName: patternName,
		AvgReturn3D: avgReturnOverSteps(closes, 3),
		Confidence:  confidence,
	}

	a.logger.Debug("形态分析完成",
		zap.String("pattern", result.PatternName),
		zap.Float64("avg_return_3d", result.AvgReturn3D),
		zap.String("confidence", string(result.Confidence)),
	)

	return result, nil
}

// avgReturnOverSteps 计算固定步长滚动收益的均值。
func avgReturnOverSteps(closes []float64, steps int) float64 {
	if len(closes) <= steps {
		return 0
	}

	sum := 0.0
	count := 0
	for i := 0; i+steps < len(closes); i++ {
		if closes[i] <= 0 {
			continue
		}
		sum += closes[i+steps]/closes[i] - 1
		count++
	}

	if count == 0 {
		return 0
	}
	return sum / float64(count)
}
