package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/quant/config"
	"github.com/wyfcoding/quant/engine"
	"github.com/wyfcoding/quant/logging"
	"github.com/wyfcoding/quant/metrics"
	"github.com/wyfcoding/quant/middleware"
	"github.com/wyfcoding/quant/response"
	"github.com/wyfcoding/quant/xerrors"
)

const maxBodyBytes = 32 << 20

// NewRouter 注册计算接口、健康检查与指标端点. m 为 nil 时不暴露指标.
func NewRouter(eng *engine.Engine, cfg *config.Config, logger *logging.Logger, m *metrics.Metrics) *gin.Engine {
	skip := []string{"/healthz"}
	if m != nil && cfg.Metrics.Enabled {
		skip = append(skip, cfg.Metrics.Path)
	}

	r := NewDefaultGinEngine(
		middleware.Recovery(logger.Logger),
		middleware.RequestID(),
		middleware.TracingMiddleware(cfg.Server.Name),
		middleware.Logger(logger.Logger),
		middleware.HTTPMetricsMiddlewareWithOptions(m, middleware.MetricsOptions{SkipPaths: skip}),
		middleware.MaxBodyBytes(maxBodyBytes),
	)

	r.GET("/healthz", func(c *gin.Context) {
		response.Success(c, gin.H{"status": "ok", "version": cfg.Version})
	})
	if m != nil && cfg.Metrics.Enabled {
		r.GET(cfg.Metrics.Path, gin.WrapH(m.Handler()))
	}

	limit := middleware.NewSwappable(middleware.NewLocalRateLimitMiddleware(cfg.Server.RateLimit, cfg.Server.RateBurst))
	config.RegisterReloadHook(func(next *config.Config) {
		limit.Swap(middleware.NewLocalRateLimitMiddleware(next.Server.RateLimit, next.Server.RateBurst))
		logger.Info("rate limit reloaded", "rps", next.Server.RateLimit, "burst", next.Server.RateBurst)
	})

	v1 := r.Group("/v1", limit.Handler())
	{
		v1.POST("/bond", handle(eng.PriceBond))
		v1.POST("/option", handle(eng.PriceOption))
		v1.POST("/var", handle(eng.ValueAtRisk))
		v1.POST("/stock", handle(eng.ProjectStock))
		v1.POST("/process", handle(eng.SimulateProcess))
		v1.POST("/portfolio", handle(eng.OptimizePortfolio))
	}

	r.NoRoute(func(c *gin.Context) {
		response.ErrorWithStatus(c, http.StatusNotFound, "route not found", c.Request.URL.Path)
	})

	return r
}

// handle 把引擎操作适配为 JSON 接口. 未收敛的优化结果以 422 连同部分结果返回.
func handle[Req, Resp any](op func(context.Context, Req) (*Resp, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req Req
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, xerrors.ErrInvalidParams.WithDetail("%v", err).WithCause(err))
			return
		}

		resp, err := op(c.Request.Context(), req)
		switch {
		case err == nil:
			response.Success(c, resp)
		case resp != nil && errors.Is(err, xerrors.ErrNotConverged):
			response.ErrorWithData(c, err, resp)
		default:
			response.Error(c, err)
		}
	}
}
