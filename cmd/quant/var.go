package main

import (
	"context"
	"flag"

	"github.com/google/subcommands"
	"github.com/wyfcoding/quant/engine"
)

type varCmd struct {
	common
	req engine.VaRRequest
}

func (*varCmd) Name() string     { return "var" }
func (*varCmd) Synopsis() string { return "estimates value at risk of a position" }
func (*varCmd) Usage() string {
	return `quant var -position P -mu m -sigma s [-confidence 0.95] [-days 1]

  mu and sigma are the per-period mean and standard deviation of log returns.
  Prints the Monte Carlo VaR next to the parametric (normal) VaR.

`
}

func (c *varCmd) SetFlags(f *flag.FlagSet) {
	c.setFlags(f)
	f.Float64Var(&c.req.Position, "position", 1e6, "Current position value.")
	f.Float64Var(&c.req.Mu, "mu", 0, "Mean periodic return.")
	f.Float64Var(&c.req.Sigma, "sigma", 0.01, "Periodic volatility.")
	f.Float64Var(&c.req.Confidence, "confidence", 0.95, "Confidence level in (0, 1).")
	f.IntVar(&c.req.Days, "days", 1, "Horizon in periods.")
}

func (c *varCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	c.req.Simulation = c.simulation()
	return c.run(ctx, func(ctx context.Context, eng *engine.Engine) (any, error) {
		resp, err := eng.ValueAtRisk(ctx, c.req)
		return result(resp, err)
	})
}
