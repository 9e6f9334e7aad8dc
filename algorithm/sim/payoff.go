package sim

import (
	"math"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/wyfcoding/quant/xerrors"
)

// Payoff 把一条路径的终值映射为收益. 估计器会对每条路径的收益单独做下限为 0 的截断.
type Payoff func(terminal float64) (float64, error)

// OptionType 期权类型.
type OptionType string

const (
	// Call 看涨期权.
	Call OptionType = "call"
	// Put 看跌期权.
	Put OptionType = "put"
)

// ParseOptionType 解析期权类型，大小写不敏感.
func ParseOptionType(s string) (OptionType, error) {
	switch OptionType(strings.ToLower(strings.TrimSpace(s))) {
	case Call:
		return Call, nil
	case Put:
		return Put, nil
	default:
		return "", xerrors.ErrInvalidOptionType.WithDetail("unknown option type %q", s)
	}
}

// Payoff 返回给定行权价下的内在价值函数.
func (t OptionType) Payoff(strike float64) (Payoff, error) {
	switch t {
	case Call:
		return func(s float64) (float64, error) { return s - strike, nil }, nil
	case Put:
		return func(s float64) (float64, error) { return strike - s, nil }, nil
	default:
		return nil, xerrors.ErrInvalidOptionType.WithDetail("unknown option type %q", string(t))
	}
}

// PayoffProgram 编译后的收益表达式，例如 "max(S - K, 0)".
// 可用变量: S 路径终值, K 行权价, S0 初始价格, T 期限.
type PayoffProgram struct {
	source  string
	program *vm.Program
}

// CompilePayoff 编译收益表达式. 引用未知变量或语法错误时返回 ErrInvalidPayoff.
func CompilePayoff(source string) (*PayoffProgram, error) {
	if strings.TrimSpace(source) == "" {
		return nil, xerrors.ErrInvalidPayoff.WithDetail("empty payoff expression")
	}

	program, err := expr.Compile(source, expr.Env(payoffEnv(0, 0, 0, 0)))
	if err != nil {
		return nil, xerrors.ErrInvalidPayoff.WithDetail("compile %q", source).WithCause(err)
	}

	return &PayoffProgram{source: source, program: program}, nil
}

func payoffEnv(s, k, s0, t float64) map[string]any {
	return map[string]any{"S": s, "K": k, "S0": s0, "T": t}
}

// String 返回表达式源码.
func (p *PayoffProgram) String() string {
	return p.source
}

// Bind 固定合约参数，得到只依赖终值的 Payoff. 返回的 Payoff 不是并发安全的.
func (p *PayoffProgram) Bind(strike, spot, maturity float64) Payoff {
	env := payoffEnv(0, strike, spot, maturity)
	var machine vm.VM
	return func(s float64) (float64, error) {
		env["S"] = s
		out, err := machine.Run(p.program, env)
		if err != nil {
			return 0, xerrors.ErrInvalidPayoff.WithDetail("evaluate %q", p.source).WithCause(err)
		}
		return toFloat(p.source, out)
	}
}

func toFloat(source string, out any) (float64, error) {
	var v float64
	switch x := out.(type) {
	case float64:
		v = x
	case float32:
		v = float64(x)
	case int:
		v = float64(x)
	case int64:
		v = float64(x)
	case bool:
		if x {
			v = 1
		}
	default:
		return 0, xerrors.ErrInvalidPayoff.WithDetail("%q returned %T, want number", source, out)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, xerrors.ErrInvalidPayoff.WithDetail("%q returned non-finite value %v", source, v)
	}
	return v, nil
}
