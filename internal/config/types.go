package config

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"
)

// Config 聚合了回测沙盒运行所需的全部配置项。
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Arb      ArbConfig      `mapstructure:"arb"`
	Sniper   SniperConfig   `mapstructure:"sniper"`
	Decision DecisionConfig `mapstructure:"decision"`
	OpenAI   OpenAIConfig   `mapstructure:"openai"`
	Risk     RiskConfig     `mapstructure:"risk"`
	Book     BookConfig     `mapstructure:"book"`
	Backtest BacktestConfig `mapstructure:"backtest"`
	Feed     FeedConfig     `mapstructure:"feed"`
	Database DatabaseConfig `mapstructure:"database"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// AppConfig 控制应用级参数。ReportPort 大于 0 时，回测结束后会
// 启动一个只读 HTTP 接口供查询历史运行记录。
type AppConfig struct {
	Environment string `mapstructure:"environment"`
	ReportPort  int    `mapstructure:"report_port"`
}

// ArbConfig 控制跨平台套利策略参数。
type ArbConfig struct {
	MinProfitRate       float64 `mapstructure:"min_profit_rate"`
	MinSpreadMultiplier float64 `mapstructure:"min_spread_multiplier"`
	FallbackSize        float64 `mapstructure:"fallback_size"`
}

// SniperConfig 控制折价狙击策略参数。
type SniperConfig struct {
	TargetPrice  float64 `mapstructure:"target_price"`
	MinGap       float64 `mapstructure:"min_gap"`
	PositionSize float64 `mapstructure:"position_size"`
}

// DecisionConfig 控制规则决策引擎的阈值与记忆窗口。
type DecisionConfig struct {
	WindowSize            int     `mapstructure:"window_size"`
	LargeSpreadThreshold  float64 `mapstructure:"large_spread_threshold"`
	DeepDiscountThreshold float64 `mapstructure:"deep_discount_threshold"`
	MinSpreadSignal       float64 `mapstructure:"min_spread_signal"`
}

// OpenAIConfig 描述可选的大模型决策通道。Enabled=false 时完全走规则引擎。
type OpenAIConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	APIKey  string        `mapstructure:"api_key"`
	BaseURL string        `mapstructure:"base_url"`
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// RiskConfig 控制盘前风控闸门。
type RiskConfig struct {
	Enabled              bool    `mapstructure:"enabled"`
	MaxRunLoss           float64 `mapstructure:"max_run_loss"`
	MaxPositionSize      float64 `mapstructure:"max_position_size"`
	MaxConsecutiveLosses int     `mapstructure:"max_consecutive_losses"`
}

// BookConfig 控制高保真订单簿模型。
type BookConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	Levels            int     `mapstructure:"levels"`
	LevelQuantity     float64 `mapstructure:"level_quantity"`
	LevelStep         float64 `mapstructure:"level_step"`
	ReplenishRate     float64 `mapstructure:"replenish_rate"`
	ReplenishInterval int     `mapstructure:"replenish_interval"`
}

// BacktestConfig 定义回测参数。
type BacktestConfig struct {
	InitialCash float64 `mapstructure:"initial_cash"`
}

// FeedConfig 控制合成行情生成。
type FeedConfig struct {
	Seed         int64   `mapstructure:"seed"`
	Ticks        int     `mapstructure:"ticks"`
	BasePrice    float64 `mapstructure:"base_price"`
	Theta        float64 `mapstructure:"theta"`
	Sigma        float64 `mapstructure:"sigma"`
	LagWeight    float64 `mapstructure:"lag_weight"`
	SpreadOffset float64 `mapstructure:"spread_offset"`
}

// DatabaseConfig 管理 SQLite 连接。
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	InMemory        bool          `mapstructure:"in_memory"`
}

// LoggingConfig 控制日志输出。
type LoggingConfig struct {
	Level            string   `mapstructure:"level"`
	Encoding         string   `mapstructure:"encoding"`
	Development      bool     `mapstructure:"development"`
	OutputPaths      []string `mapstructure:"output_paths"`
	ErrorOutputPaths []string `mapstructure:"error_output_paths"`
}

// Validate 对配置进行基本校验。
func (c *Config) Validate() error {
	var err error

	if c.App.Environment == "" {
		err = multierr.Append(err, errors.New("app.environment 不能为空"))
	}
	if c.App.ReportPort < 0 || c.App.ReportPort > 65535 {
		err = multierr.Append(err, errors.New("app.report_port 必须位于[0,65535]"))
	}
	if c.Arb.MinProfitRate <= 0 || c.Arb.MinProfitRate >= 1 {
		err = multierr.Append(err, errors.New("arb.min_profit_rate 必须位于(0,1)"))
	}
	if c.Arb.MinSpreadMultiplier <= 0 {
		err = multierr.Append(err, errors.New("arb.min_spread_multiplier 必须大于0"))
	}
	if c.Arb.FallbackSize <= 0 {
		err = multierr.Append(err, errors.New("arb.fallback_size 必须大于0"))
	}
	if c.Sniper.TargetPrice <= 0 || c.Sniper.TargetPrice >= 1 {
		err = multierr.Append(err, errors.New("sniper.target_price 必须位于(0,1)"))
	}
	if c.Sniper.MinGap <= 0 {
		err = multierr.Append(err, errors.New("sniper.min_gap 必须大于0"))
	}
	if c.Sniper.PositionSize <= 0 {
		err = multierr.Append(err, errors.New("sniper.position_size 必须大于0"))
	}
	if c.Decision.WindowSize <= 0 {
		err = multierr.Append(err, errors.New("decision.window_size 必须大于0"))
	}
	if c.Decision.LargeSpreadThreshold <= 0 {
		err = multierr.Append(err, errors.New("decision.large_spread_threshold 必须大于0"))
	}
	if c.Decision.DeepDiscountThreshold <= 0 || c.Decision.DeepDiscountThreshold >= 1 {
		err = multierr.Append(err, errors.New("decision.deep_discount_threshold 必须位于(0,1)"))
	}
	if c.Decision.MinSpreadSignal <= 0 {
		err = multierr.Append(err, errors.New("decision.min_spread_signal 必须大于0"))
	}
	if c.OpenAI.Enabled {
		if c.OpenAI.APIKey == "" {
			err = multierr.Append(err, errors.New("openai.api_key 不能为空 (enabled=true)"))
		}
		if c.OpenAI.Model == "" {
			err = multierr.Append(err, errors.New("openai.model 不能为空 (enabled=true)"))
		}
		if c.OpenAI.Timeout <= 0 {
			err = multierr.Append(err, errors.New("openai.timeout 必须大于0"))
		}
	}
	if c.Risk.Enabled {
		if c.Risk.MaxRunLoss >= 0 {
			err = multierr.Append(err, errors.New("risk.max_run_loss 必须为负数（亏损下限）"))
		}
		if c.Risk.MaxPositionSize <= 0 {
			err = multierr.Append(err, errors.New("risk.max_position_size 必须大于0"))
		}
		if c.Risk.MaxConsecutiveLosses <= 0 {
			err = multierr.Append(err, errors.New("risk.max_consecutive_losses 必须大于0"))
		}
	}
	if c.Book.Enabled {
		if c.Book.Levels <= 0 {
			err = multierr.Append(err, errors.New("book.levels 必须大于0"))
		}
		if c.Book.LevelQuantity <= 0 {
			err = multierr.Append(err, errors.New("book.level_quantity 必须大于0"))
		}
		if c.Book.LevelStep <= 0 {
			err = multierr.Append(err, errors.New("book.level_step 必须大于0"))
		}
		if c.Book.ReplenishRate <= 0 || c.Book.ReplenishRate > 1 {
			err = multierr.Append(err, errors.New("book.replenish_rate 必须位于(0,1]"))
		}
		if c.Book.ReplenishInterval <= 0 {
			err = multierr.Append(err, errors.New("book.replenish_interval 必须大于0"))
		}
	}
	if c.Backtest.InitialCash <= 0 {
		err = multierr.Append(err, errors.New("backtest.initial_cash 必须大于0"))
	}
	if c.Feed.Ticks <= 0 {
		err = multierr.Append(err, errors.New("feed.ticks 必须大于0"))
	}
	if c.Feed.BasePrice <= 0 || c.Feed.BasePrice >= 1 {
		err = multierr.Append(err, errors.New("feed.base_price 必须位于(0,1)"))
	}
	if c.Feed.Theta <= 0 || c.Feed.Theta >= 1 {
		err = multierr.Append(err, errors.New("feed.theta 必须位于(0,1)"))
	}
	if c.Feed.Sigma < 0 {
		err = multierr.Append(err, errors.New("feed.sigma 不能为负"))
	}
	if c.Feed.LagWeight < 0 || c.Feed.LagWeight > 1 {
		err = multierr.Append(err, errors.New("feed.lag_weight 必须位于[0,1]"))
	}
	if c.Database.Path == "" && !c.Database.InMemory {
		err = multierr.Append(err, errors.New("database.path 不能为空"))
	}
	if c.Database.MaxOpenConns <= 0 {
		err = multierr.Append(err, errors.New("database.max_open_conns 必须大于0"))
	}
	if c.Database.MaxIdleConns < 0 {
		err = multierr.Append(err, errors.New("database.max_idle_conns 不能为负"))
	}
	if c.Database.ConnMaxLifetime < 0 {
		err = multierr.Append(err, errors.New("database.conn_max_lifetime 不能为负"))
	}
	if c.Logging.Level == "" {
		err = multierr.Append(err, errors.New("logging.level 不能为空"))
	}
	if c.Logging.Encoding == "" {
		err = multierr.Append(err, errors.New("logging.encoding 不能为空"))
	}
	if len(c.Logging.OutputPaths) == 0 {
		err = multierr.Append(err, errors.New("logging.output_paths 至少包含一个输出目标"))
	}
	if len(c.Logging.ErrorOutputPaths) == 0 {
		err = multierr.Append(err, errors.New("logging.error_output_paths 至少包含一个输出目标"))
	}

	if err != nil {
		return fmt.Errorf("配置校验失败: %w", err)
	}

	return nil
}
