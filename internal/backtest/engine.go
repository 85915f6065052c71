// Package backtest 实现最小的事件驱动回测引擎：逐 tick 调用策略，
// 按可负担性/持仓量收敛订单规模模拟成交，跟踪现金、持仓、净值与回撤。
package backtest

import (
	"go.uber.org/zap"

	"pm-sandbox/internal/book"
	"pm-sandbox/internal/config"
	"pm-sandbox/internal/market"
	"pm-sandbox/internal/risk"
	"pm-sandbox/internal/strategy"
)

// TickStrategy 是回测引擎驱动策略的最小契约；strategy.Strategy 与
// 路由器都满足。引擎假设策略行为良好，不在循环内做 panic 兜底，
// 包装引擎的外层（如 UI）应在调用点自行捕获。
type TickStrategy interface {
	Name() string
	OnTick(tick market.Tick) []strategy.OrderInstruction
}

// Option 配置引擎的可选组件。
type Option func(*Engine)

// WithRiskGate 在执行前挂接盘前风控闸门。
func WithRiskGate(gate *risk.Gate) Option {
	return func(e *Engine) { e.gate = gate }
}

// WithOrderBook 启用高保真订单簿成交：吃单消耗分层深度并付出滑点，
// 每 replenishInterval 个 tick 做一次部分回补。
func WithOrderBook(b *book.Book, replenishInterval int) Option {
	return func(e *Engine) {
		e.book = b
		if replenishInterval <= 0 {
			replenishInterval = 5
		}
		e.replenishInterval = replenishInterval
	}
}

// WithLogger 注入日志器。
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// Engine 为单策略回测引擎。账户状态由引擎独占：
// 任意采样点上 equity == cash + position×mark_price，
// cash 与 position 永不为负（由成交时的收敛保证）。
// 实例属于单次运行，并发跑多个回测需要一run一实例。
type Engine struct {
	strategy    TickStrategy
	initialCash float64
	logger      *zap.Logger

	gate              *risk.Gate
	book              *book.Book
	replenishInterval int

	cash        float64
	position    float64
	equityCurve []float64
	trades      []Trade

	peakEquity  float64
	maxDrawdown float64
	tickIndex   int
}

// NewEngine 创建回测引擎。
func NewEngine(s TickStrategy, cfg config.BacktestConfig, opts ...Option) *Engine {
	initialCash := cfg.InitialCash
	if initialCash <= 0 {
		initialCash = 10000.0
	}

	e := &Engine{
		strategy:    s,
		initialCash: initialCash,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}

	e.Reset()
	return e
}

// Reset 将账户与统计恢复到初始状态，准备新一轮运行。
func (e *Engine) Reset() {
	e.cash = e.initialCash
	e.position = 0
	e.equityCurve = e.equityCurve[:0]
	e.trades = e.trades[:0]
	e.peakEquity = e.initialCash
	e.maxDrawdown = 0
	e.tickIndex = 0
	if e.gate != nil {
		e.gate.Reset()
	}
}

// Run 对给定的 tick 序列执行完整回测。空序列返回与初始状态一致的
// 结果（零成交、净值曲线为空、零收益），不报错。
func (e *Engine) Run(ticks []market.Tick) Result {
	e.Reset()
	for _, tick := range ticks {
		e.Step(tick)
	}
	return e.Finalize()
}

// RunFrom 从 TickProvider 逐个取 tick 执行回测，供生成器直接驱动。
func (e *Engine) RunFrom(provider TickProvider) Result {
	e.Reset()
	for {
		tick, ok := provider.Next()
		if !ok {
			break
		}
		e.Step(tick)
	}
	return e.Finalize()
}

// Step 处理单个 tick：评估策略、执行订单、盯市采样净值并更新回撤。
func (e *Engine) Step(tick market.Tick) {
	if e.book != nil {
		e.book.Reprice(tick.MarkPrice())
		if e.tickIndex > 0 && e.tickIndex%e.replenishInterval == 0 {
			e.book.Replenish()
		}
	}

	instructions := e.strategy.OnTick(tick)
	for _, instruction := range instructions {
		if trade, ok := e.execute(instruction, tick); ok {
			e.trades = append(e.trades, trade)
		}
	}

	markPrice := tick.MarkPrice()
	equity := e.cash + e.position*markPrice
	e.equityCurve = append(e.equityCurve, equity)

	if equity > e.peakEquity {
		e.peakEquity = equity
	}
	if e.peakEquity > 0 {
		if drawdown := (e.peakEquity - equity) / e.peakEquity; drawdown > e.maxDrawdown {
			e.maxDrawdown = drawdown
		}
	}

	e.tickIndex++
}

// execute 模拟单笔成交。价格解析失败、规模收敛到零或被风控拒绝时
// 静默放弃（无成交、无错误）。
func (e *Engine) execute(instruction strategy.OrderInstruction, tick market.Tick) (Trade, bool) {
	size := instruction.Size
	if size <= 0 {
		return Trade{}, false
	}

	side := instruction.Side
	if side != market.SideBuy && side != market.SideSell {
		return Trade{}, false
	}

	execPrice := instruction.Price
	if execPrice <= 0 {
		if side == market.SideBuy {
			execPrice = tick.BuyPrice()
		} else {
			execPrice = tick.SellPrice()
		}
	}
	if execPrice <= 0 {
		return Trade{}, false
	}

	if e.gate != nil {
		if ok, reason := e.gate.Check(size * execPrice); !ok {
			e.logger.Debug("订单被风控闸门拒绝",
				zap.String("side", string(side)),
				zap.Float64("notional", size*execPrice),
				zap.String("reason", reason),
			)
			return Trade{}, false
		}
	}

	switch side {
	case market.SideBuy:
		// 可负担性收敛：现金不足时按现金缩量，绝不透支
		if size*execPrice > e.cash {
			size = e.cash / execPrice
		}
		if size <= 0 {
			return Trade{}, false
		}
	case market.SideSell:
		// 持仓量收敛：只能卖出实际持有的份额
		if size > e.position {
			size = e.position
		}
		if size <= 0 {
			return Trade{}, false
		}
	}

	if e.book != nil {
		fill := e.book.Consume(side, size)
		if fill.Filled <= 0 {
			return Trade{}, false
		}
		size = fill.Filled
		execPrice = fill.AvgPrice
		if side == market.SideBuy && size*execPrice > e.cash {
			size = e.cash / execPrice
			if size <= 0 {
				return Trade{}, false
			}
		}
	}

	cost := size * execPrice
	if side == market.SideBuy {
		e.cash -= cost
		e.position += size
	} else {
		e.cash += cost
		e.position -= size

		// 近似盈亏口径：与上一笔成交价比较（见 Result 的胜负启发式说明）
		if e.gate != nil && len(e.trades) > 0 {
			previous := e.trades[len(e.trades)-1]
			e.gate.RecordOutcome((execPrice - previous.Price) * size)
		}
	}

	return Trade{
		Tick:          e.tickIndex,
		Timestamp:     tick.Timestamp,
		Side:          side,
		Price:         execPrice,
		Size:          size,
		Cost:          cost,
		PositionAfter: e.position,
		CashAfter:     e.cash,
		Meta:          instruction.Meta,
	}, true
}

// Finalize 汇总当前状态生成回测结果。
func (e *Engine) Finalize() Result {
	finalEquity := e.initialCash
	maxEquity := e.initialCash
	minEquity := e.initialCash

	if len(e.equityCurve) > 0 {
		finalEquity = e.equityCurve[len(e.equityCurve)-1]
		maxEquity = e.equityCurve[0]
		minEquity = e.equityCurve[0]
		for _, v := range e.equityCurve {
			if v > maxEquity {
				maxEquity = v
			}
			if v < minEquity {
				minEquity = v
			}
		}
	}

	totalReturn := 0.0
	if e.initialCash > 0 {
		totalReturn = (finalEquity - e.initialCash) / e.initialCash
	}

	winning, losing := classifyTrades(e.trades)

	rejected := 0
	if e.gate != nil {
		rejected = e.gate.RejectedCount()
	}

	return Result{
		StrategyName:   e.strategy.Name(),
		InitialCash:    e.initialCash,
		FinalCash:      e.cash,
		FinalPosition:  e.position,
		FinalEquity:    finalEquity,
		TotalReturn:    totalReturn,
		TotalTrades:    len(e.trades),
		WinningTrades:  winning,
		LosingTrades:   losing,
		RejectedTrades: rejected,
		EquityCurve:    append([]float64(nil), e.equityCurve...),
		Trades:         append([]Trade(nil), e.trades...),
		MaxEquity:      maxEquity,
		MinEquity:      minEquity,
		MaxDrawdown:    e.maxDrawdown,
	}
}

// classifyTrades 用近似口径给成交打胜负标签：每笔卖出与紧邻的前一笔
// 成交价比较。没有真实的开平仓配对，结果只作参考，不能当作精确盈亏。
func classifyTrades(trades []Trade) (winning, losing int) {
	for i, trade := range trades {
		if trade.Side != market.SideSell || i == 0 {
			continue
		}
		if trade.Price > trades[i-1].Price {
			winning++
		} else {
			losing++
		}
	}
	return winning, losing
}
