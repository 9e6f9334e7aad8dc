// Command quant 提供蒙特卡洛定价、风险度量与组合优化的命令行与 HTTP 服务入口.
package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/google/subcommands"
)

var version = "dev"

func main() {
	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	register(commander)

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}

func register(c *subcommands.Commander) {
	c.Register(c.HelpCommand(), "")
	c.Register(c.FlagsCommand(), "")

	c.Register(&bondCmd{}, "pricing")
	c.Register(&optionCmd{}, "pricing")
	c.Register(&varCmd{}, "risk")
	c.Register(&stockCmd{}, "simulation")
	c.Register(&simulateCmd{}, "simulation")
	c.Register(&portfolioCmd{}, "portfolio")
	c.Register(&serveCmd{}, "server")
}
