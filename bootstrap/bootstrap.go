// Package bootstrap 负责加载配置并初始化日志、追踪、指标与计算引擎.
package bootstrap

import (
	"context"

	"github.com/wyfcoding/quant/cache"
	"github.com/wyfcoding/quant/config"
	"github.com/wyfcoding/quant/engine"
	"github.com/wyfcoding/quant/idgen"
	"github.com/wyfcoding/quant/logging"
	"github.com/wyfcoding/quant/metrics"
	"github.com/wyfcoding/quant/tracing"
)

// Options 启动参数.
type Options struct {
	ConfigPath string
	Watch      bool // 监听配置文件变更
	Version    string
}

// Runtime 初始化完成的基础设施.
type Runtime struct {
	Config  *config.Config
	Logger  *logging.Logger
	Metrics *metrics.Metrics
	Engine  *engine.Engine
	Cache   cache.Cache // 未启用时为 nil

	shutdownTracer func(context.Context) error
}

// Setup 依次加载配置、初始化日志、追踪、指标与结果缓存，并创建计算引擎.
func Setup(opts Options) (*Runtime, error) {
	cfg, err := config.Load(opts.ConfigPath, opts.Watch)
	if err != nil {
		return nil, err
	}
	if opts.Version != "" {
		cfg.Version = opts.Version
	}

	logger := logging.InitLogger(cfg.Logging("bootstrap"))

	if err := idgen.Init(cfg.IDGen()); err != nil {
		return nil, err
	}

	shutdown, err := tracing.InitTracer(cfg.Tracing)
	if err != nil {
		logger.Error("failed to init tracer", "error", err)
		shutdown = func(context.Context) error { return nil }
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.NewMetrics(cfg.Server.Name)
		m.RegisterBuildInfo(cfg.Server.Name, cfg.Version)
	}

	rt := &Runtime{
		Config:         cfg,
		Logger:         logger,
		Metrics:        m,
		shutdownTracer: shutdown,
	}

	var engineOpts []engine.Option
	if cfg.Cache.Enabled {
		bc, err := cache.NewBigCache(cfg.Cache.TTL, cfg.Cache.MaxMB)
		if err != nil {
			_ = shutdown(context.Background())
			return nil, err
		}
		rt.Cache = bc
		engineOpts = append(engineOpts, engine.WithCache(bc))
		logger.Info("result cache enabled", "ttl", cfg.Cache.TTL, "max_mb", cfg.Cache.MaxMB)
	}
	rt.Engine = engine.New(cfg, logger, m, engineOpts...)

	return rt, nil
}

// Close 关闭结果缓存并刷新追踪导出器.
func (r *Runtime) Close(ctx context.Context) {
	if r.Cache != nil {
		if err := r.Cache.Close(); err != nil {
			r.Logger.Error("failed to close cache", "error", err)
		}
	}
	if err := r.shutdownTracer(ctx); err != nil {
		r.Logger.Error("failed to shutdown tracer", "error", err)
	}
}
