package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/google/subcommands"
	"github.com/wyfcoding/quant/bootstrap"
	"github.com/wyfcoding/quant/config"
	"github.com/wyfcoding/quant/server"
)

type serveCmd struct {
	configPath string
	addr       string
	watch      bool
}

func (*serveCmd) Name() string     { return "serve" }
func (*serveCmd) Synopsis() string { return "runs the HTTP API" }
func (*serveCmd) Usage() string {
	return `quant serve [-config quant.toml] [-addr :8080] [-watch]

  Serves POST /v1/{bond,option,var,stock,process,portfolio}, GET /healthz and the
  Prometheus endpoint. Stops gracefully on SIGINT or SIGTERM.

`
}

func (c *serveCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.configPath, "config", "", "Path to the TOML config file.")
	f.StringVar(&c.addr, "addr", "", "Listen address. Overrides server.addr.")
	f.BoolVar(&c.watch, "watch", false, "Reload simulation and portfolio settings when the config file changes.")
}

func (c *serveCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	rt, err := bootstrap.Setup(bootstrap.Options{ConfigPath: c.configPath, Watch: c.watch, Version: version})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer rt.Close(context.Background())

	cfg := rt.Config
	if c.addr != "" {
		cfg.Server.Addr = c.addr
	}
	config.PrintWithMask(rt.Logger.Logger, cfg)
	if cfg.Server.Environment == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	router := server.NewRouter(rt.Engine, cfg, rt.Logger, rt.Metrics)
	srv := server.NewGinServer(router, cfg.Server, rt.Logger.Logger)
	if err := srv.Start(ctx); err != nil {
		rt.Logger.Error("http server exited", "error", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
