package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/google/subcommands"
	"github.com/wyfcoding/quant/bootstrap"
	"github.com/wyfcoding/quant/engine"
)

// common 各子命令共用的参数.
type common struct {
	configPath string
	paths      int
	seed       uint64

	out io.Writer
}

func (c *common) setFlags(f *flag.FlagSet) {
	f.StringVar(&c.configPath, "config", "", "Path to the TOML config file. Defaults and QUANT_* env vars apply when empty.")
	f.IntVar(&c.paths, "paths", 0, "Number of simulated paths. 0 uses simulation.paths from the config.")
	f.Uint64Var(&c.seed, "seed", 0, "Random seed. 0 uses simulation.seed from the config, or a random seed.")
}

func (c *common) simulation() engine.Simulation {
	return engine.Simulation{Paths: c.paths, Seed: c.seed}
}

func (c *common) writer() io.Writer {
	if c.out == nil {
		return os.Stdout
	}
	return c.out
}

// run 初始化运行时并执行 fn，把结果以缩进 JSON 写出.
// fn 同时返回结果与错误时 (例如优化未收敛) 先输出结果再报告错误.
func (c *common) run(ctx context.Context, fn func(ctx context.Context, eng *engine.Engine) (any, error)) subcommands.ExitStatus {
	rt, err := bootstrap.Setup(bootstrap.Options{ConfigPath: c.configPath, Version: version})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer rt.Close(ctx)

	out, err := fn(ctx, rt.Engine)
	if out != nil {
		enc := json.NewEncoder(c.writer())
		enc.SetIndent("", "  ")
		if encErr := enc.Encode(out); encErr != nil {
			fmt.Fprintf(os.Stderr, "Error: could not encode result: %v\n", encErr)
			return subcommands.ExitFailure
		}
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

// result 把类型化的引擎结果转换为 run 需要的形式，避免 nil 指针被当作非空接口.
func result[T any](resp *T, err error) (any, error) {
	if resp == nil {
		return nil, err
	}
	return resp, err
}
