// Package risk 实现盘前风控闸门：单笔名义上限、运行累计亏损下限与
// 连续亏损次数熔断。闸门拒绝与"无机会"分开计数，被拒订单不算成交。
package risk

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"pm-sandbox/internal/config"
)

// EventType 标识一条风控日志的类别。
type EventType string

const (
	EventReject  EventType = "reject"
	EventLoss    EventType = "loss"
	EventProfit  EventType = "profit"
	EventHalt    EventType = "halt"
	EventResumed EventType = "reset"
)

// Event 是一条风控活动记录。闸门只在内存里累积事件，
// 核心循环内不做任何 I/O，落库由运行结束后的存储层完成。
type Event struct {
	OccurredAt time.Time
	Type       EventType
	Message    string
}

// Gate 是盘前风控闸门。状态属于单次回测运行，复用实例前必须 Reset。
type Gate struct {
	cfg    config.RiskConfig
	logger *zap.Logger

	realizedPnl       float64
	consecutiveLosses int
	rejected          int
	halted            bool
	events            []Event
}

// NewGate 创建风控闸门。cfg.Enabled=false 时所有检查直接放行。
func NewGate(cfg config.RiskConfig, logger *zap.Logger) *Gate {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gate{cfg: cfg, logger: logger}
}

// Check 判断一笔名义金额为 notional 的订单是否允许执行。
// 拒绝时返回 false 与拒绝原因，并单独计数。
func (g *Gate) Check(notional float64) (bool, string) {
	if !g.cfg.Enabled {
		return true, ""
	}

	if g.halted || g.realizedPnl <= g.cfg.MaxRunLoss {
		if !g.halted {
			g.halted = true
			g.record(EventHalt, fmt.Sprintf("运行累计亏损 %.2f 触及下限 %.2f，停止开仓", g.realizedPnl, g.cfg.MaxRunLoss))
		}
		g.reject(fmt.Sprintf("累计亏损触及下限 %.2f", g.cfg.MaxRunLoss))
		return false, "run_loss_floor"
	}

	if g.consecutiveLosses >= g.cfg.MaxConsecutiveLosses {
		g.reject(fmt.Sprintf("连续亏损 %d 次达到上限", g.consecutiveLosses))
		return false, "consecutive_losses"
	}

	if notional > g.cfg.MaxPositionSize {
		g.reject(fmt.Sprintf("单笔名义 %.2f 超过上限 %.2f", notional, g.cfg.MaxPositionSize))
		return false, "position_size_cap"
	}

	return true, ""
}

// RecordOutcome 记录一笔已实现盈亏（近似口径，见回测引擎的胜负启发式）。
func (g *Gate) RecordOutcome(pnl float64) {
	if !g.cfg.Enabled {
		return
	}

	g.realizedPnl += pnl
	if pnl < 0 {
		g.consecutiveLosses++
		g.record(EventLoss, fmt.Sprintf("亏损 %.2f，连续亏损 %d 次，累计 %.2f", pnl, g.consecutiveLosses, g.realizedPnl))
	} else {
		g.consecutiveLosses = 0
		g.record(EventProfit, fmt.Sprintf("盈利 %.2f，累计 %.2f", pnl, g.realizedPnl))
	}
}

// RejectedCount 返回被闸门拒绝的订单数。
func (g *Gate) RejectedCount() int {
	return g.rejected
}

// RealizedPnl 返回当前运行的累计已实现盈亏。
func (g *Gate) RealizedPnl() float64 {
	return g.realizedPnl
}

// Halted 报告闸门是否已因亏损下限停止开仓。
func (g *Gate) Halted() bool {
	return g.halted
}

// Events 返回本次运行累积的风控日志。
func (g *Gate) Events() []Event {
	return append([]Event(nil), g.events...)
}

// Reset 清空运行内状态，独立回测之间必须调用。
func (g *Gate) Reset() {
	g.realizedPnl = 0
	g.consecutiveLosses = 0
	g.rejected = 0
	g.halted = false
	g.events = g.events[:0]
}

func (g *Gate) reject(msg string) {
	g.rejected++
	g.record(EventReject, msg)
}

func (g *Gate) record(eventType EventType, msg string) {
	g.events = append(g.events, Event{
		OccurredAt: time.Now().UTC(),
		Type:       eventType,
		Message:    msg,
	})
}
