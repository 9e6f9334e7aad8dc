package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/google/subcommands"
	"github.com/wyfcoding/quant/engine"
	"github.com/wyfcoding/quant/marketdata"
)

type portfolioCmd struct {
	common
	pricesFile string
	tickers    string
	req        engine.PortfolioRequest
}

func (*portfolioCmd) Name() string     { return "portfolio" }
func (*portfolioCmd) Synopsis() string { return "finds the maximum Sharpe ratio long-only portfolio" }
func (*portfolioCmd) Usage() string {
	return `quant portfolio -prices prices.csv [-tickers AAA,BBB] [-portfolios 10000]

  Reads a "date,<ticker>,..." price table, converts it to log returns, explores random
  allocations and refines the best Sharpe ratio with projected gradient ascent.

Usage Examples:
$ quant portfolio -prices close.csv -tickers AAPL,MSFT,GOOG -round 3

`
}

func (c *portfolioCmd) SetFlags(f *flag.FlagSet) {
	c.setFlags(f)
	f.StringVar(&c.pricesFile, "prices", "", "CSV price table with a date column followed by one column per ticker.")
	f.StringVar(&c.tickers, "tickers", "", "Comma separated subset of tickers. All columns by default.")
	f.IntVar(&c.req.Portfolios, "portfolios", 0, "Random portfolios to explore. 0 uses portfolio.portfolios from the config.")
	f.Func("round", "Decimal places of the reported weights (default 4).", func(s string) error {
		var n int32
		if _, err := fmt.Sscan(s, &n); err != nil {
			return err
		}
		c.req.RoundTo = n
		return nil
	})
	f.BoolVar(&c.req.IncludeExploration, "exploration", false, "Print every explored portfolio.")
}

func (c *portfolioCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	if c.pricesFile == "" {
		fmt.Fprintf(os.Stderr, "Error: -prices is required\n")
		return subcommands.ExitUsageError
	}

	prices, err := marketdata.ReadFile(c.pricesFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: could not load prices: %v\n", err)
		return subcommands.ExitFailure
	}
	if c.tickers != "" {
		if prices, err = prices.Select(strings.Split(c.tickers, ",")...); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return subcommands.ExitFailure
		}
	}

	c.req.Tickers = prices.Tickers
	c.req.Prices = prices.Rows
	c.req.Seed = c.seed
	return c.run(ctx, func(ctx context.Context, eng *engine.Engine) (any, error) {
		resp, err := eng.OptimizePortfolio(ctx, c.req)
		return result(resp, err)
	})
}
