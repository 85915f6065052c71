// Package indicator 基于收盘序列计算常用技术指标。合成行情只有
// 中间价序列，没有高低价和成交量，因此只保留纯收盘价指标。
package indicator

import (
	"fmt"
	"math"
	"sync"

	talib "github.com/markcheno/go-talib"
)

// MinLen 是指标计算要求的最小序列长度，由最慢的 EMA26 决定。
const MinLen = 30

// MACDResult 保存 MACD 关键值。
type MACDResult struct {
	Value         float64
	Signal        float64
	Histogram     float64
	PrevHistogram float64
}

// BollingerResult 保存布林带数据。
type BollingerResult struct {
	Upper     float64
	Middle    float64
	Lower     float64
	Bandwidth float64
	Position  float64
}

// Result 为一次指标计算的汇总。
type Result struct {
	EMA12         float64
	EMA26         float64
	MACD          MACDResult
	Bollinger     BollingerResult
	RSI           float64
	Close         float64
	PreviousClose float64
}

type cacheEntry struct {
	key    string
	result Result
}

// Calculator 提供技术指标计算并带有简单缓存。
type Calculator struct {
	mu    sync.Mutex
	cache map[string]cacheEntry
}

// NewCalculator 创建 Calculator。
func NewCalculator() *Calculator {
	return &Calculator{
		cache: make(map[string]cacheEntry),
	}
}

// Compute 依据给定收盘序列计算常用技术指标。
func (c *Calculator) Compute(name string, closes []float64) (Result, error) {
	if len(closes) < MinLen {
		return Result{}, fmt.Errorf("计算指标失败: 收盘序列过短 %d < %d", len(closes), MinLen)
	}

	cacheKey := fmt.Sprintf("%s:%d:%f", name, len(closes), closes[len(closes)-1])

	c.mu.Lock()
	if entry, ok := c.cache[name]; ok && entry.key == cacheKey {
		c.mu.Unlock()
		return entry.result, nil
	}
	c.mu.Unlock()

	result := c.calculate(closes)

	c.mu.Lock()
	c.cache[name] = cacheEntry{key: cacheKey, result: result}
	c.mu.Unlock()

	return result, nil
}

func (c *Calculator) calculate(closes []float64) Result {
	ema12 := talib.Ema(closes, 12)
	ema26 := talib.Ema(closes, 26)

	macd, macdSignal, macdHist := talib.Macd(closes, 12, 26, 9)

	bbUpper, bbMiddle, bbLower := talib.BBands(closes, 20, 2, 2, talib.EMA)

	rsi := talib.Rsi(closes, 14)

	return Result{
		EMA12:         Last(ema12),
		EMA26:         Last(ema26),
		MACD:          buildMACD(macd, macdSignal, macdHist),
		Bollinger:     buildBollinger(closes, bbUpper, bbMiddle, bbLower),
		RSI:           Last(rsi),
		Close:         Last(closes),
		PreviousClose: Prev(closes),
	}
}

func buildMACD(macd, signal, hist []float64) MACDResult {
	return MACDResult{
		Value:         Last(macd),
		Signal:        Last(signal),
		Histogram:     Last(hist),
		PrevHistogram: Prev(hist),
	}
}

func buildBollinger(close, upper, middle, lower []float64) BollingerResult {
	u := Last(upper)
	m := Last(middle)
	l := Last(lower)
	histWidth := u - l
	bandwidth := SafeDivide(histWidth, m)

	position := 0.0
	if histWidth > 0 {
		position = SafeDivide(Last(close)-l, histWidth)
	}

	// 将位置限制在[0,1]区间，便于后续使用。
	position = math.Max(0, math.Min(1, position))

	return BollingerResult{
		Upper:     u,
		Middle:    m,
		Lower:     l,
		Bandwidth: bandwidth,
		Position:  position,
	}
}
