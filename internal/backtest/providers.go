package backtest

import (
	"pm-sandbox/internal/market"
	"pm-sandbox/internal/strategy"
)

// TickProvider 按时间顺序提供行情快照，序列耗尽时返回 false。
type TickProvider interface {
	Next() (market.Tick, bool)
}

// SliceProvider 以固定切片提供行情快照。
type SliceProvider struct {
	ticks []market.Tick
	index int
}

// NewSliceProvider 创建切片行情源。
func NewSliceProvider(ticks []market.Tick) *SliceProvider {
	return &SliceProvider{ticks: ticks}
}

// Next 返回下一个快照。
func (p *SliceProvider) Next() (market.Tick, bool) {
	if p.index >= len(p.ticks) {
		return market.Tick{}, false
	}
	tick := p.ticks[p.index]
	p.index++
	return tick, true
}

// StrategyFunc 允许用函数充当策略，便于在测试中注入固定指令序列。
type StrategyFunc struct {
	StrategyName string
	Fn           func(tick market.Tick) []strategy.OrderInstruction
}

// Name 返回策略标识。
func (s StrategyFunc) Name() string {
	if s.StrategyName == "" {
		return "func"
	}
	return s.StrategyName
}

// OnTick 调用底层函数。
func (s StrategyFunc) OnTick(tick market.Tick) []strategy.OrderInstruction {
	if s.Fn == nil {
		return nil
	}
	return s.Fn(tick)
}
