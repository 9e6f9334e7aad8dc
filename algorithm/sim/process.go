// Package sim 随机过程路径模拟与蒙特卡洛估计.
package sim

import (
	"errors"
	"math"

	"github.com/go-playground/validator/v10"
	"github.com/wyfcoding/quant/xerrors"
)

// ProcessKind 随机过程族.
type ProcessKind string

const (
	// KindMeanReverting 均值回复过程 (Vasicek / Ornstein-Uhlenbeck): dx = kappa(theta - x)dt + sigma dW.
	KindMeanReverting ProcessKind = "mean_reverting"
	// KindBrownian 纯布朗运动 (Wiener): dx = sigma dW.
	KindBrownian ProcessKind = "brownian"
	// KindGeometricBrownian 几何布朗运动，使用精确解离散.
	KindGeometricBrownian ProcessKind = "gbm"
)

var validate = validator.New()

// ProcessParameters 描述一个随机过程实例. 通过 NewXxx 构造函数创建以保证参数合法.
type ProcessParameters struct {
	Kind    ProcessKind `json:"kind"    validate:"oneof=mean_reverting brownian gbm"`
	Initial float64     `json:"initial"`
	Kappa   float64     `json:"kappa"   validate:"gte=0"` // 回复速度
	Theta   float64     `json:"theta"`                    // 长期均值
	Mu      float64     `json:"mu"`                       // GBM 漂移率
	Sigma   float64     `json:"sigma"   validate:"gte=0"`
	Horizon float64     `json:"horizon" validate:"gt=0"`
	Steps   int         `json:"steps"   validate:"min=1"`
}

// NewMeanReverting 创建均值回复过程参数.
func NewMeanReverting(r0, kappa, theta, sigma, horizon float64, steps int) (ProcessParameters, error) {
	p := ProcessParameters{
		Kind:    KindMeanReverting,
		Initial: r0,
		Kappa:   kappa,
		Theta:   theta,
		Sigma:   sigma,
		Horizon: horizon,
		Steps:   steps,
	}
	return p, p.Validate()
}

// NewBrownian 创建布朗运动参数.
func NewBrownian(x0, sigma, horizon float64, steps int) (ProcessParameters, error) {
	p := ProcessParameters{
		Kind:    KindBrownian,
		Initial: x0,
		Sigma:   sigma,
		Horizon: horizon,
		Steps:   steps,
	}
	return p, p.Validate()
}

// NewGeometricBrownian 创建几何布朗运动参数，mu 为漂移率 (例如无风险利率).
func NewGeometricBrownian(s0, mu, sigma, horizon float64, steps int) (ProcessParameters, error) {
	p := ProcessParameters{
		Kind:    KindGeometricBrownian,
		Initial: s0,
		Mu:      mu,
		Sigma:   sigma,
		Horizon: horizon,
		Steps:   steps,
	}
	return p, p.Validate()
}

// Validate 校验参数. 所有模拟入口在抽样前都会调用.
func (p ProcessParameters) Validate() error {
	fields := [...]struct {
		name  string
		value float64
	}{
		{"initial", p.Initial}, {"kappa", p.Kappa}, {"theta", p.Theta},
		{"mu", p.Mu}, {"sigma", p.Sigma}, {"horizon", p.Horizon},
	}
	for _, f := range fields {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) {
			return xerrors.ErrInvalidParams.WithDetail("%s must be finite, got %v", f.name, f.value)
		}
	}

	if err := validate.Struct(p); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return xerrors.ErrInvalidParams.
				WithDetail("%s failed %s=%s (value %v)", fe.Field(), fe.Tag(), fe.Param(), fe.Value()).
				WithCause(err)
		}
		return xerrors.ErrInvalidParams.WithCause(err)
	}

	if p.Kind == KindGeometricBrownian && p.Initial <= 0 {
		return xerrors.ErrInvalidParams.WithDetail("gbm initial value must be > 0, got %v", p.Initial)
	}

	return nil
}

// Dt 返回离散时间步长 T/N.
func (p ProcessParameters) Dt() float64 {
	return p.Horizon / float64(p.Steps)
}

// Kernel 过程核: 给出当前状态下的漂移与扩散系数. Euler-Maruyama 步进只依赖此接口.
type Kernel interface {
	Drift(x float64) float64
	Diffusion(x float64) float64
}

type meanRevertingKernel struct {
	kappa, theta, sigma float64
}

func (k meanRevertingKernel) Drift(x float64) float64 { return k.kappa * (k.theta - x) }
func (k meanRevertingKernel) Diffusion(float64) float64 { return k.sigma }

type brownianKernel struct {
	sigma float64
}

func (brownianKernel) Drift(float64) float64 { return 0 }
func (k brownianKernel) Diffusion(float64) float64 { return k.sigma }

// gbmKernel 仅用于需要 Euler 近似的场合 (例如对照测试); 模拟器对 GBM 默认使用精确解.
type gbmKernel struct {
	mu, sigma float64
}

func (k gbmKernel) Drift(x float64) float64 { return k.mu * x }
func (k gbmKernel) Diffusion(x float64) float64 { return k.sigma * x }

// Kernel 按过程族返回对应的过程核.
func (p ProcessParameters) Kernel() Kernel {
	switch p.Kind {
	case KindMeanReverting:
		return meanRevertingKernel{kappa: p.Kappa, theta: p.Theta, sigma: p.Sigma}
	case KindGeometricBrownian:
		return gbmKernel{mu: p.Mu, sigma: p.Sigma}
	default:
		return brownianKernel{sigma: p.Sigma}
	}
}
