// Package book 实现高保真变体使用的分层订单簿模型：吃单从最优层级
// 向深层消耗流动性并付出随深度线性恶化的价格，消耗掉的深度按周期向
// 初始水平部分回补，模拟做市商补单行为。
package book

import (
	"math/rand"

	"pm-sandbox/internal/config"
	"pm-sandbox/internal/market"
)

// Level 是订单簿中的一个价格层级。
type Level struct {
	Price    float64
	Quantity float64
}

// Fill 描述一次吃单的成交结果。
type Fill struct {
	Filled    float64 // 实际成交数量，可能小于请求数量（部分成交）
	AvgPrice  float64 // 含滑点的平均成交价
	TotalCost float64 // 成交总额
	Slippage  float64 // 相对最优价的滑点成本
}

// Book 表示单个市场的双边订单簿。深度有限且会被消耗，
// 连续吃单会推高成交均价；LiquidityCrisis 打开时可用深度只剩 20%。
type Book struct {
	cfg config.BookConfig
	rng *rand.Rand

	askLevels []Level
	bidLevels []Level

	initialAsks []Level
	initialBids []Level

	liquidityCrisis bool
}

// New 以给定中间价构建订单簿，层级价格按 level_step 逐层外推。
func New(mid float64, cfg config.BookConfig, rng *rand.Rand) *Book {
	if cfg.Levels <= 0 {
		cfg.Levels = 5
	}
	if cfg.LevelQuantity <= 0 {
		cfg.LevelQuantity = 200.0
	}
	if cfg.LevelStep <= 0 {
		cfg.LevelStep = 0.005
	}
	if cfg.ReplenishRate <= 0 || cfg.ReplenishRate > 1 {
		cfg.ReplenishRate = 0.3
	}

	b := &Book{cfg: cfg, rng: rng}
	b.rebuild(mid)
	return b
}

func (b *Book) rebuild(mid float64) {
	b.askLevels = make([]Level, 0, b.cfg.Levels)
	b.bidLevels = make([]Level, 0, b.cfg.Levels)

	for i := 0; i < b.cfg.Levels; i++ {
		offset := b.cfg.LevelStep * float64(i+1)
		b.askLevels = append(b.askLevels, Level{Price: mid + offset, Quantity: b.cfg.LevelQuantity})
		if bidPrice := mid - offset; bidPrice > 0 {
			b.bidLevels = append(b.bidLevels, Level{Price: bidPrice, Quantity: b.cfg.LevelQuantity})
		}
	}

	b.initialAsks = append([]Level(nil), b.askLevels...)
	b.initialBids = append([]Level(nil), b.bidLevels...)
}

// Reprice 把各层级价格平移到新的中间价附近，保留已被消耗的数量。
func (b *Book) Reprice(mid float64) {
	if mid <= 0 {
		return
	}
	for i := range b.askLevels {
		b.askLevels[i].Price = mid + b.cfg.LevelStep*float64(i+1)
	}
	for i := range b.bidLevels {
		if price := mid - b.cfg.LevelStep*float64(i+1); price > 0 {
			b.bidLevels[i].Price = price
		}
	}
}

// BestAsk 返回卖一层级。
func (b *Book) BestAsk() (Level, bool) {
	if len(b.askLevels) == 0 {
		return Level{}, false
	}
	return b.askLevels[0], true
}

// BestBid 返回买一层级。
func (b *Book) BestBid() (Level, bool) {
	if len(b.bidLevels) == 0 {
		return Level{}, false
	}
	return b.bidLevels[0], true
}

// TotalLiquidity 返回一侧的可用总深度。
func (b *Book) TotalLiquidity(side market.Side) float64 {
	levels := b.askLevels
	if side == market.SideSell {
		levels = b.bidLevels
	}
	total := 0.0
	for _, level := range levels {
		total += level.Quantity
	}
	return total
}

// SetLiquidityCrisis 切换流动性危机状态。
func (b *Book) SetLiquidityCrisis(on bool) {
	b.liquidityCrisis = on
}

// Consume 从最优层级向深处吃掉 quantity 的流动性并返回成交结果。
// 层级越深价格越差（线性惩罚 0.1%×层序）；余量低于 0.01 的层级被移除。
func (b *Book) Consume(side market.Side, quantity float64) Fill {
	levels := &b.askLevels
	if side == market.SideSell {
		levels = &b.bidLevels
	}
	if quantity <= 0 || len(*levels) == 0 {
		return Fill{}
	}

	depthScale := 1.0
	if b.liquidityCrisis {
		depthScale = 0.2
	}

	bestPrice := (*levels)[0].Price
	remaining := quantity
	totalCost := 0.0
	filled := 0.0

	for i := range *levels {
		if remaining <= 0 {
			break
		}

		level := &(*levels)[i]
		available := level.Quantity * depthScale
		if available <= 0 {
			continue
		}

		// 价格随深度线性恶化
		penalty := 1 + 0.001*float64(i+1)
		adjPrice := level.Price * penalty
		if side == market.SideSell {
			adjPrice = level.Price / penalty
		}

		fill := min(remaining, available)
		totalCost += fill * adjPrice
		remaining -= fill
		filled += fill
		level.Quantity -= fill
	}

	// 清掉被吃穿的层级
	kept := (*levels)[:0]
	for _, level := range *levels {
		if level.Quantity > 0.01 {
			kept = append(kept, level)
		}
	}
	*levels = kept

	if filled <= 0 {
		return Fill{}
	}

	avgPrice := totalCost / filled
	slippage := avgPrice - bestPrice
	if side == market.SideSell {
		slippage = bestPrice - avgPrice
	}
	if slippage < 0 {
		slippage = 0
	}

	return Fill{
		Filled:    filled,
		AvgPrice:  avgPrice,
		TotalCost: totalCost,
		Slippage:  slippage * filled,
	}
}

// Replenish 将各层级数量向初始深度部分回补，带乘性抖动，
// 且不低于初始深度的 20%，避免连续 tick 之间流动性被永久耗尽。
func (b *Book) Replenish() {
	b.replenishSide(&b.askLevels, b.initialAsks)
	b.replenishSide(&b.bidLevels, b.initialBids)
}

func (b *Book) replenishSide(levels *[]Level, initial []Level) {
	if len(initial) == 0 {
		return
	}

	// 被吃穿的层级按初始深度重新挂出
	for len(*levels) < len(initial) {
		idx := len(*levels)
		*levels = append(*levels, Level{Price: initial[idx].Price, Quantity: 0})
	}

	for i := range *levels {
		if i >= len(initial) {
			break
		}
		initQty := initial[i].Quantity
		current := (*levels)[i].Quantity

		restored := current + (initQty-current)*b.cfg.ReplenishRate
		if b.rng != nil {
			restored *= 0.9 + b.rng.Float64()*0.2
		}
		(*levels)[i].Quantity = max(restored, initQty*0.2)
	}
}
