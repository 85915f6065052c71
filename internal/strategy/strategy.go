// Package strategy 定义策略接口与两个机会评估器：跨平台套利与折价狙击。
// 评估器都是无状态的纯函数式组件，跨 tick 的记忆全部由决策引擎持有。
package strategy

import "pm-sandbox/internal/market"

// OrderInstruction 描述一笔期望成交的订单。每个 tick 重新生成，不持久化。
type OrderInstruction struct {
	Side  market.Side
	Size  float64        // 数量（份额），必须大于 0
	Price float64        // 限价；0 表示市价单，由执行引擎按 tick 解析
	Meta  map[string]any // 开放的元数据，路由层会在此加注来源信息
}

// Strategy 是执行引擎与路由层驱动的最小契约。
type Strategy interface {
	Name() string
	// OnTick 评估当前快照，无机会时返回空切片，绝不报错。
	OnTick(tick market.Tick) []OrderInstruction
	// IsOpportunity 与 OnTick 使用同一套阈值判断，但不生成订单。
	IsOpportunity(tick market.Tick) bool
}
