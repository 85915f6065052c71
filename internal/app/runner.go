package app

import (
	"context"
	"math/rand"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"pm-sandbox/internal/backtest"
	"pm-sandbox/internal/book"
	"pm-sandbox/internal/decision"
	"pm-sandbox/internal/market"
	"pm-sandbox/internal/risk"
	"pm-sandbox/internal/router"
	"pm-sandbox/internal/strategy"
)

// defaultWinLossRatio 是 Kelly 建议使用的保守盈亏比假设。
const defaultWinLossRatio = 1.5

// runOutcome 是一路回测的完整产出。router 仅在路由运行中非空。
type runOutcome struct {
	result     backtest.Result
	riskEvents []risk.Event
	router     *router.Router
}

// runComparison 并发跑三路回测：纯套利、纯狙击、AI 路由组合。
// 每路使用独立的引擎、风控与订单簿实例，互不共享可变状态。
func (a *App) runComparison(ctx context.Context, ticks []market.Tick) ([]runOutcome, error) {
	builders := []func() (backtest.TickStrategy, *router.Router){
		func() (backtest.TickStrategy, *router.Router) {
			return strategy.NewArb(a.cfg.Arb), nil
		},
		func() (backtest.TickStrategy, *router.Router) {
			return strategy.NewSniper(a.cfg.Sniper), nil
		},
		func() (backtest.TickStrategy, *router.Router) {
			r := router.New(
				a.buildDecider(),
				strategy.NewArb(a.cfg.Arb),
				strategy.NewSniper(a.cfg.Sniper),
				a.logger,
			)
			return r, r
		},
	}

	outcomes := make([]runOutcome, len(builders))

	group, ctx := errgroup.WithContext(ctx)
	for i, build := range builders {
		group.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			tickStrategy, routerRef := build()

			gate := risk.NewGate(a.cfg.Risk, a.logger)
			opts := []backtest.Option{
				backtest.WithRiskGate(gate),
				backtest.WithLogger(a.logger),
			}
			if a.cfg.Book.Enabled {
				rng := rand.New(rand.NewSource(a.cfg.Feed.Seed))
				orderBook := book.New(a.cfg.Feed.BasePrice, a.cfg.Book, rng)
				opts = append(opts, backtest.WithOrderBook(orderBook, a.cfg.Book.ReplenishInterval))
			}

			engine := backtest.NewEngine(tickStrategy, a.cfg.Backtest, opts...)
			result := engine.Run(ticks)

			outcomes[i] = runOutcome{
				result:     result,
				riskEvents: gate.Events(),
				router:     routerRef,
			}

			a.logger.Info("单路回测完成",
				zap.String("strategy", result.StrategyName),
				zap.Int("trades", result.TotalTrades),
				zap.Float64("final_equity", result.FinalEquity),
			)
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}
	return outcomes, nil
}

// buildDecider 按配置装配决策器：规则引擎为基座，启用 OpenAI 后
// 包一层大模型通道，调用失败自动回落到规则结果。
func (a *App) buildDecider() router.Decider {
	rules := decision.NewEngine(a.cfg.Decision, a.logger)
	if !a.cfg.OpenAI.Enabled {
		return rules
	}

	client, err := decision.NewClient(a.cfg.OpenAI, a.logger)
	if err != nil {
		a.logger.Warn("大模型通道不可用，使用规则引擎", zap.Error(err))
		return rules
	}

	return decision.NewLLMBacked(rules, client, a.logger)
}
