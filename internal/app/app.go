// Package app 聚合配置、行情、策略与持久化，驱动一次完整的沙盒回测。
package app

import (
	"context"
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"

	"pm-sandbox/internal/backtest"
	"pm-sandbox/internal/config"
	"pm-sandbox/internal/feed"
	"pm-sandbox/internal/market"
	"pm-sandbox/internal/pattern"
	"pm-sandbox/internal/report"
	"pm-sandbox/internal/sizing"
	"pm-sandbox/internal/store"
)

// App 聚合核心依赖并驱动沙盒生命周期。
type App struct {
	cfg    *config.Config
	logger *zap.Logger
	store  *store.Store
}

// New 创建 App 实例。
func New(cfg *config.Config, logger *zap.Logger, store *store.Store) *App {
	return &App{
		cfg:    cfg,
		logger: logger,
		store:  store,
	}
}

// Run 执行一轮完整流程：生成行情、离线形态分析、三路对比回测、
// 结果落库与报告输出。ReportPort 配置后会在结束时启动查询接口。
func (a *App) Run(ctx context.Context) error {
	a.logger.Info("回测沙盒已初始化",
		zap.String("environment", a.cfg.App.Environment),
		zap.Int64("feed_seed", a.cfg.Feed.Seed),
		zap.Int("feed_ticks", a.cfg.Feed.Ticks),
	)

	generator := feed.NewOUGenerator(a.cfg.Feed)
	ticks := generator.GenerateAll()
	if len(ticks) == 0 {
		return errors.New("行情生成为空")
	}

	a.annotatePattern(ticks)

	if err := a.store.InitRunSchema(); err != nil {
		return fmt.Errorf("初始化回测存储失败: %w", err)
	}

	outcomes, err := a.runComparison(ctx, ticks)
	if err != nil {
		return fmt.Errorf("对比回测失败: %w", err)
	}

	for _, outcome := range outcomes {
		runID, saveErr := a.store.SaveRun(ctx, outcome.result, outcome.riskEvents)
		if saveErr != nil {
			a.logger.Error("保存回测结果失败",
				zap.String("strategy", outcome.result.StrategyName),
				zap.Error(saveErr),
			)
			continue
		}
		a.logger.Info("回测结果已保存",
			zap.String("run_id", runID),
			zap.String("strategy", outcome.result.StrategyName),
		)
	}

	a.render(outcomes)

	if a.cfg.App.ReportPort > 0 {
		if err := startRunsServer(ctx, a.store, a.cfg.App.ReportPort, a.logger); err != nil {
			return err
		}
		<-ctx.Done()
		a.logger.Info("查询接口收到退出信号，正在停止")
	}

	return nil
}

// annotatePattern 对整段行情做一次离线形态分析，结果以指针挂到每个
// tick 上。分析失败只降级为"无形态上下文"，不中断回测。
func (a *App) annotatePattern(ticks []market.Tick) {
	analyzer := pattern.NewAnalyzer(a.logger)
	result, err := analyzer.Analyze("ou", feed.Closes(ticks))
	if err != nil {
		a.logger.Warn("形态分析不可用", zap.Error(err))
		return
	}

	for i := range ticks {
		ticks[i].Pattern = &result
	}
}

func (a *App) render(outcomes []runOutcome) {
	all := make([]backtest.Result, 0, len(outcomes))
	for _, o := range outcomes {
		all = append(all, o.result)
	}
	report.WriteComparison(os.Stdout, all)

	for _, o := range outcomes {
		if o.router == nil {
			continue
		}
		report.WriteRunDetail(os.Stdout, o.result)
		report.WriteRoutingStats(os.Stdout, o.router.RoutingStats())

		confidence := 0.5
		if last := o.router.LastDecision(); last != nil {
			confidence = last.Confidence
		}
		suggestion, err := sizing.CalculateKelly(
			o.result.FinalEquity, confidence, defaultWinLossRatio, sizing.DefaultMaxFraction,
		)
		if err != nil {
			a.logger.Warn("仓位建议计算失败", zap.Error(err))
			continue
		}
		report.WriteKellySuggestion(os.Stdout, suggestion)
	}
}
