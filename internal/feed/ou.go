// Package feed 生成合成行情。主价格走 Ornstein-Uhlenbeck 均值回归过程，
// 次级平台价格按滞后权重跟随主价格，制造出套利策略可以捕捉的价差。
package feed

import (
	"math/rand"
	"time"

	"pm-sandbox/internal/config"
	"pm-sandbox/internal/market"
)

const (
	priceFloor = 0.01
	priceCeil  = 0.99
)

// OUGenerator 按需产出 tick，实现 backtest.TickProvider。
type OUGenerator struct {
	cfg     config.FeedConfig
	rng     *rand.Rand
	start   time.Time
	pmPrice float64
	opPrice float64
	emitted int
}

// NewOUGenerator 创建生成器。相同 Seed 产出完全相同的序列。
func NewOUGenerator(cfg config.FeedConfig) *OUGenerator {
	if cfg.Ticks <= 0 {
		cfg.Ticks = 500
	}
	if cfg.BasePrice <= 0 {
		cfg.BasePrice = 0.5
	}
	if cfg.Theta <= 0 {
		cfg.Theta = 0.05
	}
	if cfg.Sigma <= 0 {
		cfg.Sigma = 0.01
	}
	if cfg.LagWeight <= 0 {
		cfg.LagWeight = 0.3
	}
	if cfg.SpreadOffset <= 0 {
		cfg.SpreadOffset = 0.01
	}

	return &OUGenerator{
		cfg:     cfg,
		rng:     rand.New(rand.NewSource(cfg.Seed)),
		start:   time.Now(),
		pmPrice: cfg.BasePrice,
		opPrice: cfg.BasePrice,
	}
}

// Next 产出下一个 tick，序列耗尽时返回 false。
func (g *OUGenerator) Next() (market.Tick, bool) {
	if g.emitted >= g.cfg.Ticks {
		return market.Tick{}, false
	}

	g.pmPrice += g.cfg.Theta*(g.cfg.BasePrice-g.pmPrice) + g.cfg.Sigma*g.rng.NormFloat64()
	g.pmPrice = clampPrice(g.pmPrice)

	// 次级平台滞后跟随，滞后越大价差机会越多。
	g.opPrice = g.opPrice*(1-g.cfg.LagWeight) + g.pmPrice*g.cfg.LagWeight
	g.opPrice = clampPrice(g.opPrice)

	half := g.cfg.SpreadOffset / 2
	tick := market.Tick{
		PMAsk:     clampPrice(g.pmPrice + half),
		PMBid:     clampPrice(g.pmPrice - half),
		OPAsk:     clampPrice(g.opPrice + half),
		OPBid:     clampPrice(g.opPrice - half),
		BestAsk:   clampPrice(g.pmPrice + half),
		BestBid:   clampPrice(g.pmPrice - half),
		MidPrice:  g.pmPrice,
		Timestamp: g.start.Add(time.Duration(g.emitted) * time.Second),
	}

	g.emitted++
	return tick, true
}

// GenerateAll 一次性生成剩余全部 tick。
func (g *OUGenerator) GenerateAll() []market.Tick {
	ticks := make([]market.Tick, 0, g.cfg.Ticks-g.emitted)
	for {
		tick, ok := g.Next()
		if !ok {
			return ticks
		}
		ticks = append(ticks, tick)
	}
}

// Closes 从 tick 序列提取中间价收盘序列，供形态分析使用。
func Closes(ticks []market.Tick) []float64 {
	closes := make([]float64, 0, len(ticks))
	for _, t := range ticks {
		closes = append(closes, t.MarkPrice())
	}
	return closes
}

func clampPrice(p float64) float64 {
	if p < priceFloor {
		return priceFloor
	}
	if p > priceCeil {
		return priceCeil
	}
	return p
}
