package sim

import (
	"slices"

	"github.com/wyfcoding/quant/xerrors"
)

// SamplePath 一条离散路径，x[0] 为初始值，相邻点间隔 dt.
type SamplePath []float64

// Integral 以左端点矩形法近似路径积分 sum(x)*dt.
func (p SamplePath) Integral(dt float64) float64 {
	var sum float64
	for _, v := range p {
		sum += v
	}
	return sum * dt
}

// Terminal 返回路径终值.
func (p SamplePath) Terminal() float64 {
	if len(p) == 0 {
		return 0
	}
	return p[len(p)-1]
}

// PathEnsemble 等长路径集合，底层为一段连续内存 (行优先). 创建后只读.
type PathEnsemble struct {
	data     []float64
	numPaths int
	length   int
	dt       float64
}

func newPathEnsemble(numPaths, length int, dt float64) *PathEnsemble {
	return &PathEnsemble{
		data:     make([]float64, numPaths*length),
		numPaths: numPaths,
		length:   length,
		dt:       dt,
	}
}

// NewPathEnsemble 从已有路径构造集合，所有路径必须等长且非空.
func NewPathEnsemble(paths []SamplePath, dt float64) (*PathEnsemble, error) {
	if len(paths) == 0 || len(paths[0]) == 0 {
		return nil, xerrors.ErrEmptyData
	}
	length := len(paths[0])
	e := newPathEnsemble(len(paths), length, dt)
	for i, p := range paths {
		if len(p) != length {
			return nil, xerrors.ErrDimMismatch.WithDetail("path %d has length %d, want %d", i, len(p), length)
		}
		copy(e.row(i), p)
	}
	return e, nil
}

func (e *PathEnsemble) row(i int) []float64 {
	return e.data[i*e.length : (i+1)*e.length : (i+1)*e.length]
}

// Len 返回路径条数. nil 集合长度为 0.
func (e *PathEnsemble) Len() int {
	if e == nil {
		return 0
	}
	return e.numPaths
}

// Steps 返回每条路径的点数.
func (e *PathEnsemble) Steps() int {
	if e == nil {
		return 0
	}
	return e.length
}

// Dt 返回时间步长.
func (e *PathEnsemble) Dt() float64 {
	return e.dt
}

// Path 返回第 i 条路径的副本.
func (e *PathEnsemble) Path(i int) SamplePath {
	return slices.Clone(e.row(i))
}

// Paths 返回全部路径的副本.
func (e *PathEnsemble) Paths() []SamplePath {
	out := make([]SamplePath, e.numPaths)
	for i := range out {
		out[i] = e.Path(i)
	}
	return out
}

// Terminal 返回每条路径的终值.
func (e *PathEnsemble) Terminal() []float64 {
	out := make([]float64, e.numPaths)
	for i := range out {
		out[i] = e.data[(i+1)*e.length-1]
	}
	return out
}

// MeanAt 返回所有路径在第 step 个点上的均值.
func (e *PathEnsemble) MeanAt(step int) float64 {
	if e.Len() == 0 || step < 0 || step >= e.length {
		return 0
	}
	var sum float64
	for i := range e.numPaths {
		sum += e.data[i*e.length+step]
	}
	return sum / float64(e.numPaths)
}

// Sample 用蓄水池采样从集合中无放回地抽取 k 条路径，用于绘图等展示场景.
// k 不小于路径条数时返回全部路径.
func (e *PathEnsemble) Sample(k int, gen *Generator) ([]SamplePath, error) {
	if e.Len() == 0 {
		return nil, xerrors.ErrEmptyData
	}
	if k < 1 {
		return nil, xerrors.ErrInvalidParams.WithDetail("sample size must be >= 1, got %d", k)
	}
	if k >= e.numPaths {
		return e.Paths(), nil
	}

	sampler := NewReservoirSampler[int](k, gen)
	for i := range e.numPaths {
		sampler.Observe(i)
	}
	idx := slices.Clone(sampler.Samples())
	slices.Sort(idx)

	out := make([]SamplePath, len(idx))
	for j, i := range idx {
		out[j] = e.Path(i)
	}
	return out, nil
}
