package main

import (
	"context"
	"flag"

	"github.com/google/subcommands"
	"github.com/wyfcoding/quant/algorithm/sim"
	"github.com/wyfcoding/quant/engine"
)

type simulateCmd struct {
	common
	kind string
	req  engine.ProcessRequest
}

func (*simulateCmd) Name() string     { return "simulate" }
func (*simulateCmd) Synopsis() string { return "simulates a stochastic process and prints the ensemble mean" }
func (*simulateCmd) Usage() string {
	return `quant simulate -kind mean_reverting|brownian|gbm [-initial x0] [-sigma s] [-horizon T] [-steps N]

  Prints the ensemble mean at every step and, with -samples, a few sample paths.

`
}

func (c *simulateCmd) SetFlags(f *flag.FlagSet) {
	c.setFlags(f)
	f.StringVar(&c.kind, "kind", string(sim.KindMeanReverting), "Process kind: mean_reverting, brownian or gbm.")
	f.Float64Var(&c.req.Process.Initial, "initial", 0.05, "Initial value.")
	f.Float64Var(&c.req.Process.Kappa, "kappa", 0.3, "Mean reversion speed (mean_reverting).")
	f.Float64Var(&c.req.Process.Theta, "theta", 0.1, "Long-run mean (mean_reverting).")
	f.Float64Var(&c.req.Process.Mu, "mu", 0.05, "Drift (gbm).")
	f.Float64Var(&c.req.Process.Sigma, "sigma", 0.03, "Volatility.")
	f.Float64Var(&c.req.Process.Horizon, "horizon", 1, "Time horizon.")
	f.IntVar(&c.req.Process.Steps, "steps", 200, "Points per path.")
	f.IntVar(&c.req.Samples, "samples", 0, "Number of sample paths to print.")
}

func (c *simulateCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	c.req.Process.Kind = sim.ProcessKind(c.kind)
	c.req.Simulation = c.simulation()
	return c.run(ctx, func(ctx context.Context, eng *engine.Engine) (any, error) {
		resp, err := eng.SimulateProcess(ctx, c.req)
		return result(resp, err)
	})
}
