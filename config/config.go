// Package config 提供了统一的配置加载与管理能力.
package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/wyfcoding/quant/idgen"
	"github.com/wyfcoding/quant/logging"

	"github.com/fsnotify/fsnotify"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config 全局顶级配置结构.
type Config struct {
	Version    string           `mapstructure:"version"    toml:"version"`
	Server     ServerConfig     `mapstructure:"server"     toml:"server"`
	Log        LogConfig        `mapstructure:"log"        toml:"log"`
	Metrics    MetricsConfig    `mapstructure:"metrics"    toml:"metrics"`
	Tracing    TracingConfig    `mapstructure:"tracing"    toml:"tracing"`
	Simulation SimulationConfig `mapstructure:"simulation" toml:"simulation"`
	Portfolio  PortfolioConfig  `mapstructure:"portfolio"  toml:"portfolio"`
	Cache      CacheConfig      `mapstructure:"cache"      toml:"cache"`
}

// ServerConfig 定义 HTTP 服务的基础参数.
type ServerConfig struct {
	Name         string        `mapstructure:"name"          toml:"name"          validate:"required"`
	Environment  string        `mapstructure:"environment"   toml:"environment"   validate:"oneof=dev test prod"`
	Addr         string        `mapstructure:"addr"          toml:"addr"          validate:"required"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"  toml:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" toml:"write_timeout"`
	IDType       string        `mapstructure:"id_type"       toml:"id_type"       validate:"oneof=snowflake sonyflake"` // 请求 ID 算法
	NodeID       int64         `mapstructure:"node_id"       toml:"node_id"       validate:"gte=0,lte=1023"`             // 请求 ID 的节点号
	RateLimit    float64       `mapstructure:"rate_limit"    toml:"rate_limit"    validate:"gte=0"`                      // 每个客户端每秒请求数，0 表示不限
	RateBurst    int           `mapstructure:"rate_burst"    toml:"rate_burst"    validate:"gte=0"`
}

// LogConfig 定义日志输出、级别与切割策略.
type LogConfig struct {
	Level      string `mapstructure:"level"       toml:"level"       validate:"omitempty,oneof=debug info warn error"`
	Format     string `mapstructure:"format"      toml:"format"      validate:"omitempty,oneof=json text"`
	File       string `mapstructure:"file"        toml:"file"`
	MaxSize    int    `mapstructure:"max_size"    toml:"max_size"    validate:"gte=0"`
	MaxBackups int    `mapstructure:"max_backups" toml:"max_backups" validate:"gte=0"`
	MaxAge     int    `mapstructure:"max_age"     toml:"max_age"     validate:"gte=0"`
	Compress   bool   `mapstructure:"compress"    toml:"compress"`
	Console    bool   `mapstructure:"console"     toml:"console"`
}

// MetricsConfig Prometheus 指标配置.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" toml:"enabled"`
	Path    string `mapstructure:"path"    toml:"path"`
}

// TracingConfig OpenTelemetry 链路追踪配置.
type TracingConfig struct {
	Enabled      bool    `mapstructure:"enabled"       toml:"enabled"`
	ServiceName  string  `mapstructure:"service_name"  toml:"service_name"`
	OTLPEndpoint string  `mapstructure:"otlp_endpoint" toml:"otlp_endpoint" validate:"required_if=Enabled true"`
	SampleRatio  float64 `mapstructure:"sample_ratio"  toml:"sample_ratio"  validate:"gte=0,lte=1"`
}

// SimulationConfig 蒙特卡洛模拟的默认参数，请求未指定时使用.
type SimulationConfig struct {
	Paths         int    `mapstructure:"paths"          toml:"paths"          validate:"min=1"`
	Steps         int    `mapstructure:"steps"          toml:"steps"          validate:"min=1"`
	Seed          uint64 `mapstructure:"seed"           toml:"seed"`                            // 0 表示每次随机
	Workers       int    `mapstructure:"workers"        toml:"workers"        validate:"gte=0"` // 0 表示按 CPU 数
	MaxConcurrent int    `mapstructure:"max_concurrent" toml:"max_concurrent" validate:"gte=0"` // 同时执行的计算请求上限，0 表示不限
}

// PortfolioConfig 组合优化器参数.
type PortfolioConfig struct {
	Portfolios     int     `mapstructure:"portfolios"       toml:"portfolios"       validate:"min=1"`
	PeriodsPerYear float64 `mapstructure:"periods_per_year" toml:"periods_per_year" validate:"gt=0"`
	MaxIterations  int     `mapstructure:"max_iterations"   toml:"max_iterations"   validate:"min=1"`
	Tolerance      float64 `mapstructure:"tolerance"        toml:"tolerance"        validate:"gt=0"`
	Workers        int     `mapstructure:"workers"          toml:"workers"          validate:"gte=0"`
}

// CacheConfig 固定种子请求的结果缓存.
type CacheConfig struct {
	Enabled bool          `mapstructure:"enabled" toml:"enabled"`
	TTL     time.Duration `mapstructure:"ttl"     toml:"ttl"     validate:"required_if=Enabled true"`
	MaxMB   int           `mapstructure:"max_mb"  toml:"max_mb"  validate:"gte=0"`
}

// Default 返回内置默认配置.
func Default() *Config {
	return &Config{
		Version: "dev",
		Server: ServerConfig{
			Name:         "quant",
			Environment:  "dev",
			Addr:         ":8080",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 60 * time.Second,
			IDType:       "snowflake",
			NodeID:       1,
			RateBurst:    20,
		},
		Log:     LogConfig{Level: "info", Format: "json", MaxSize: 100, MaxBackups: 5, MaxAge: 30},
		Metrics: MetricsConfig{Enabled: true, Path: "/metrics"},
		Tracing: TracingConfig{ServiceName: "quant", SampleRatio: 1},
		Simulation: SimulationConfig{
			Paths:         1000,
			Steps:         200,
			MaxConcurrent: 8,
		},
		Cache: CacheConfig{TTL: 10 * time.Minute, MaxMB: 64},
		Portfolio: PortfolioConfig{
			Portfolios:     10000,
			PeriodsPerYear: 252,
			MaxIterations:  2000,
			Tolerance:      1e-6,
		},
	}
}

// IDGen 将请求 ID 相关配置转换为 idgen.Config.
func (c *Config) IDGen() idgen.Config {
	return idgen.Config{Type: c.Server.IDType, MachineID: c.Server.NodeID}
}

// Logging 将日志配置转换为 logging.Config.
func (c *Config) Logging(module string) logging.Config {
	return logging.Config{
		Service:    c.Server.Name,
		Module:     module,
		Level:      c.Log.Level,
		Format:     c.Log.Format,
		File:       c.Log.File,
		MaxSize:    c.Log.MaxSize,
		MaxBackups: c.Log.MaxBackups,
		MaxAge:     c.Log.MaxAge,
		Compress:   c.Log.Compress,
		Console:    c.Log.Console,
	}
}

var (
	mu       sync.Mutex
	onReload []func(*Config)
	validate = validator.New()
)

// RegisterReloadHook 注册配置热更新回调。
func RegisterReloadHook(hook func(*Config)) {
	if hook == nil {
		return
	}
	mu.Lock()
	defer mu.Unlock()
	onReload = append(onReload, hook)
}

// Validate 校验配置字段.
func Validate(conf *Config) error {
	if err := validate.Struct(conf); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper, def *Config) {
	v.SetDefault("version", def.Version)
	v.SetDefault("server.name", def.Server.Name)
	v.SetDefault("server.environment", def.Server.Environment)
	v.SetDefault("server.addr", def.Server.Addr)
	v.SetDefault("server.read_timeout", def.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", def.Server.WriteTimeout)
	v.SetDefault("server.id_type", def.Server.IDType)
	v.SetDefault("server.node_id", def.Server.NodeID)
	v.SetDefault("server.rate_limit", def.Server.RateLimit)
	v.SetDefault("server.rate_burst", def.Server.RateBurst)
	v.SetDefault("log.level", def.Log.Level)
	v.SetDefault("log.format", def.Log.Format)
	v.SetDefault("log.max_size", def.Log.MaxSize)
	v.SetDefault("log.max_backups", def.Log.MaxBackups)
	v.SetDefault("log.max_age", def.Log.MaxAge)
	v.SetDefault("metrics.enabled", def.Metrics.Enabled)
	v.SetDefault("metrics.path", def.Metrics.Path)
	v.SetDefault("tracing.service_name", def.Tracing.ServiceName)
	v.SetDefault("tracing.sample_ratio", def.Tracing.SampleRatio)
	v.SetDefault("simulation.paths", def.Simulation.Paths)
	v.SetDefault("simulation.steps", def.Simulation.Steps)
	v.SetDefault("simulation.seed", def.Simulation.Seed)
	v.SetDefault("simulation.workers", def.Simulation.Workers)
	v.SetDefault("simulation.max_concurrent", def.Simulation.MaxConcurrent)
	v.SetDefault("portfolio.portfolios", def.Portfolio.Portfolios)
	v.SetDefault("portfolio.periods_per_year", def.Portfolio.PeriodsPerYear)
	v.SetDefault("portfolio.max_iterations", def.Portfolio.MaxIterations)
	v.SetDefault("portfolio.tolerance", def.Portfolio.Tolerance)
	v.SetDefault("portfolio.workers", def.Portfolio.Workers)
	v.SetDefault("cache.enabled", def.Cache.Enabled)
	v.SetDefault("cache.ttl", def.Cache.TTL)
	v.SetDefault("cache.max_mb", def.Cache.MaxMB)
}

// Load 读取 TOML 配置文件，叠加 QUANT_ 前缀的环境变量并校验.
// path 为空时只使用默认值与环境变量。watch 为 true 时监听文件变更并热更新 conf。
func Load(path string, watch bool) (*Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix("QUANT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config error: %w", err)
		}
	}

	conf := &Config{}
	if err := v.Unmarshal(conf); err != nil {
		return nil, fmt.Errorf("unmarshal config error: %w", err)
	}
	if err := Validate(conf); err != nil {
		return nil, err
	}

	if watch && path != "" {
		watchConfig(v, conf)
	}

	return conf, nil
}

func watchConfig(v *viper.Viper, conf *Config) {
	v.OnConfigChange(func(event fsnotify.Event) {
		slog.Info("detecting config change", "file", event.Name, "op", event.Op.String())

		next := &Config{}
		if err := v.Unmarshal(next); err != nil {
			slog.Error("reload config unmarshal failed", "error", err)
			return
		}
		if err := Validate(next); err != nil {
			slog.Error("reload config validation failed", "error", err)
			return
		}

		mu.Lock()
		*conf = *next
		hooks := append([]func(*Config){}, onReload...)
		mu.Unlock()

		logging.SetLevel(next.Log.Level)
		slog.Info("config hot-reloaded and validated successfully")

		for _, hook := range hooks {
			hook(next)
		}
	})
	v.WatchConfig()
}

// PrintWithMask 脱敏打印当前配置.
func PrintWithMask(logger *slog.Logger, conf any) {
	data, err := json.Marshal(conf)
	if err != nil {
		logger.Error("failed to marshal config for printing", "error", err)
		return
	}

	var configMap map[string]any
	if err := json.Unmarshal(data, &configMap); err != nil {
		logger.Error("failed to unmarshal config for masking", "error", err)
		return
	}

	mask(configMap)

	masked, err := json.Marshal(configMap)
	if err != nil {
		logger.Error("failed to marshal masked config", "error", err)
		return
	}

	logger.Info("current effective configuration", "config", string(masked))
}

func mask(configMap map[string]any) {
	sensitiveKeys := []string{"password", "secret", "token", "endpoint"}

	for key, val := range configMap {
		if subMap, ok := val.(map[string]any); ok {
			mask(subMap)
			continue
		}

		for _, sensitiveKey := range sensitiveKeys {
			if strings.Contains(strings.ToLower(key), sensitiveKey) {
				configMap[key] = "******"
				break
			}
		}
	}
}
