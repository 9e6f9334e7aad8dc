package main

import (
	"context"
	"flag"

	"github.com/google/subcommands"
	"github.com/wyfcoding/quant/engine"
)

type bondCmd struct {
	common
	req engine.BondRequest
}

func (*bondCmd) Name() string     { return "bond" }
func (*bondCmd) Synopsis() string { return "prices a zero-coupon bond under the Vasicek short-rate model" }
func (*bondCmd) Usage() string {
	return `quant bond [-principal 1000] [-r0 0.05] [-kappa 0.3] [-theta 0.1] [-sigma 0.03] [-maturity 1]

  Simulates short-rate paths and prices the bond as the mean of
  principal * exp(-integral of r dt). The Vasicek closed form is printed alongside.

`
}

func (c *bondCmd) SetFlags(f *flag.FlagSet) {
	c.setFlags(f)
	f.Float64Var(&c.req.Principal, "principal", 1000, "Face value paid at maturity.")
	f.Float64Var(&c.req.R0, "r0", 0.05, "Initial short rate.")
	f.Float64Var(&c.req.Kappa, "kappa", 0.3, "Speed of mean reversion.")
	f.Float64Var(&c.req.Theta, "theta", 0.1, "Long-run mean rate.")
	f.Float64Var(&c.req.Sigma, "sigma", 0.03, "Rate volatility.")
	f.Float64Var(&c.req.Maturity, "maturity", 1, "Maturity in years.")
	f.IntVar(&c.req.Steps, "steps", 0, "Time steps per path. 0 uses simulation.steps from the config.")
}

func (c *bondCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	c.req.Simulation = c.simulation()
	return c.run(ctx, func(ctx context.Context, eng *engine.Engine) (any, error) {
		resp, err := eng.PriceBond(ctx, c.req)
		return result(resp, err)
	})
}
