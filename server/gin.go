package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/quant/config"
)

const shutdownTimeout = 5 * time.Second

var _ Server = (*GinServer)(nil)

// GinServer 运行 Gin 引擎的 HTTP 服务，支持优雅关闭.
type GinServer struct {
	server *http.Server
	logger *slog.Logger
}

// NewGinServer 创建 HTTP 服务.
func NewGinServer(engine *gin.Engine, cfg config.ServerConfig, logger *slog.Logger) *GinServer {
	return &GinServer{
		server: &http.Server{
			Addr:         cfg.Addr,
			Handler:      engine,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
		logger: logger,
	}
}

// Start 启动监听并阻塞. ctx 取消时执行优雅关闭.
func (s *GinServer) Start(ctx context.Context) error {
	s.logger.Info("starting http server", "addr", s.server.Addr)

	errChan := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("http server stopping due to context cancellation")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	case err := <-errChan:
		return err
	}
}

// Stop 在超时内优雅关闭服务.
func (s *GinServer) Stop(ctx context.Context) error {
	s.logger.Info("stopping http server")
	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	return s.server.Shutdown(ctx)
}
