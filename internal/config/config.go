package config

import (
	"errors"
	"fmt"
	"strings"

	mapstructure "github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

const (
	defaultConfigPath = "configs/config.yaml"
	envPrefix         = "pm"
)

// Load 读取配置文件并结合环境变量返回 Config。
func Load(path string) (*Config, error) {
	v := viper.New()

	if path == "" {
		path = defaultConfigPath
	}

	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetEnvPrefix(envPrefix)
	replacer := strings.NewReplacer(".", "_")
	v.SetEnvKeyReplacer(replacer)
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil, fmt.Errorf("未找到配置文件 %q: %w", path, err)
		}
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Default 返回内置默认配置，用于无配置文件的快速运行与测试。
func Default() *Config {
	v := viper.New()
	setDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		panic(fmt.Sprintf("默认配置解析失败: %v", err))
	}
	return &cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.report_port", 0)

	v.SetDefault("arb.min_profit_rate", 0.005)
	v.SetDefault("arb.min_spread_multiplier", 0.5)
	v.SetDefault("arb.fallback_size", 100.0)

	v.SetDefault("sniper.target_price", 0.50)
	v.SetDefault("sniper.min_gap", 0.02)
	v.SetDefault("sniper.position_size", 50.0)

	v.SetDefault("decision.window_size", 5)
	v.SetDefault("decision.large_spread_threshold", 0.10)
	v.SetDefault("decision.deep_discount_threshold", 0.42)
	v.SetDefault("decision.min_spread_signal", 0.002)

	v.SetDefault("openai.enabled", false)
	v.SetDefault("openai.base_url", "https://api.openai.com/v1")
	v.SetDefault("openai.model", "gpt-4.1")
	v.SetDefault("openai.timeout", "10s")

	v.SetDefault("risk.enabled", false)
	v.SetDefault("risk.max_run_loss", -100.0)
	v.SetDefault("risk.max_position_size", 500.0)
	v.SetDefault("risk.max_consecutive_losses", 10)

	v.SetDefault("book.enabled", false)
	v.SetDefault("book.levels", 5)
	v.SetDefault("book.level_quantity", 200.0)
	v.SetDefault("book.level_step", 0.005)
	v.SetDefault("book.replenish_rate", 0.3)
	v.SetDefault("book.replenish_interval", 5)

	v.SetDefault("backtest.initial_cash", 10000.0)

	v.SetDefault("feed.seed", 42)
	v.SetDefault("feed.ticks", 200)
	v.SetDefault("feed.base_price", 0.50)
	v.SetDefault("feed.theta", 0.05)
	v.SetDefault("feed.sigma", 0.01)
	v.SetDefault("feed.lag_weight", 0.3)
	v.SetDefault("feed.spread_offset", 0.02)

	v.SetDefault("database.path", "data/pm_sandbox.db")
	v.SetDefault("database.max_open_conns", 4)
	v.SetDefault("database.max_idle_conns", 4)
	v.SetDefault("database.conn_max_lifetime", "1h")
	v.SetDefault("database.in_memory", false)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.encoding", "console")
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.output_paths", []string{"stdout"})
	v.SetDefault("logging.error_output_paths", []string{"stderr"})
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}
