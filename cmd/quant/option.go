package main

import (
	"context"
	"flag"

	"github.com/google/subcommands"
	"github.com/wyfcoding/quant/engine"
)

type optionCmd struct {
	common
	req engine.OptionRequest
}

func (*optionCmd) Name() string     { return "option" }
func (*optionCmd) Synopsis() string { return "prices a European option by Monte Carlo" }
func (*optionCmd) Usage() string {
	return `quant option -type call|put -spot S -strike K -maturity T -rate r -sigma v [-payoff expr]

  Draws terminal prices under geometric Brownian motion and discounts the mean payoff.
  With -payoff the expression is evaluated per path; it can use S, K, S0 and T,
  e.g. -payoff "max(S - K, 0) * 2".

`
}

func (c *optionCmd) SetFlags(f *flag.FlagSet) {
	c.setFlags(f)
	f.StringVar(&c.req.Type, "type", "call", "Option type: call or put.")
	f.Float64Var(&c.req.Spot, "spot", 100, "Current underlying price.")
	f.Float64Var(&c.req.Strike, "strike", 100, "Strike price.")
	f.Float64Var(&c.req.Maturity, "maturity", 1, "Time to expiry in years.")
	f.Float64Var(&c.req.Rate, "rate", 0.05, "Risk-free rate.")
	f.Float64Var(&c.req.Sigma, "sigma", 0.2, "Volatility.")
	f.StringVar(&c.req.Payoff, "payoff", "", "Custom payoff expression. Overrides -type.")
}

func (c *optionCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	c.req.Simulation = c.simulation()
	return c.run(ctx, func(ctx context.Context, eng *engine.Engine) (any, error) {
		resp, err := eng.PriceOption(ctx, c.req)
		return result(resp, err)
	})
}
