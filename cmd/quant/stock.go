package main

import (
	"context"
	"flag"

	"github.com/google/subcommands"
	"github.com/wyfcoding/quant/engine"
)

type stockCmd struct {
	common
	req engine.StockRequest
}

func (*stockCmd) Name() string     { return "stock" }
func (*stockCmd) Synopsis() string { return "projects the expected stock price after a number of days" }
func (*stockCmd) Usage() string {
	return `quant stock -spot S -mu m -sigma s -days n [-samples k]

  Simulates daily geometric Brownian motion paths and prints the mean terminal price.
  -samples prints k randomly chosen paths as well.

`
}

func (c *stockCmd) SetFlags(f *flag.FlagSet) {
	c.setFlags(f)
	f.Float64Var(&c.req.Spot, "spot", 100, "Current price.")
	f.Float64Var(&c.req.Mu, "mu", 0.0005, "Daily drift.")
	f.Float64Var(&c.req.Sigma, "sigma", 0.01, "Daily volatility.")
	f.IntVar(&c.req.Days, "days", 252, "Number of days to project.")
	f.IntVar(&c.req.Samples, "samples", 0, "Number of sample paths to print.")
}

func (c *stockCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	c.req.Simulation = c.simulation()
	return c.run(ctx, func(ctx context.Context, eng *engine.Engine) (any, error) {
		resp, err := eng.ProjectStock(ctx, c.req)
		return result(resp, err)
	})
}
