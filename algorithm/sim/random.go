package sim

import (
	crypto_rand "crypto/rand"
	"encoding/binary"
	"time"

	"github.com/wyfcoding/quant/xerrors"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// Generator 随机样本生成器. 不是并发安全的，每个 goroutine 应持有自己的实例 (见 Split).
type Generator struct {
	rng    *rand.Rand
	normal distuv.Normal
}

// NewGenerator 以固定种子创建可复现的生成器.
func NewGenerator(seed uint64) *Generator {
	src := rand.NewSource(seed)
	return &Generator{
		rng:    rand.New(src),
		normal: distuv.Normal{Mu: 0, Sigma: 1, Src: src},
	}
}

// NewRandomGenerator 使用 crypto/rand 产生的种子创建生成器.
func NewRandomGenerator() *Generator {
	return NewGenerator(RandomSeed())
}

// RandomSeed 从 crypto/rand 读取一个种子，失败时退回到当前时间.
func RandomSeed() uint64 {
	var b [8]byte
	if _, err := crypto_rand.Read(b[:]); err != nil {
		return uint64(time.Now().UnixNano())
	}
	return binary.LittleEndian.Uint64(b[:])
}

// Split 派生一个独立的子生成器. 同一父生成器按相同顺序 Split 得到的子流是确定的.
func (g *Generator) Split() *Generator {
	return NewGenerator(g.rng.Uint64())
}

// Normal 返回一个标准正态样本.
func (g *Generator) Normal() float64 {
	return g.normal.Rand()
}

// Normals 返回 n 个独立的标准正态样本.
func (g *Generator) Normals(n int) []float64 {
	if n <= 0 {
		return nil
	}
	out := make([]float64, n)
	g.fillNormals(out)
	return out
}

func (g *Generator) fillNormals(dst []float64) {
	for i := range dst {
		dst[i] = g.normal.Rand()
	}
}

// Uniform 返回 [0, 1) 上的均匀样本.
func (g *Generator) Uniform() float64 {
	return g.rng.Float64()
}

// Intn 返回 [0, n) 上的均匀整数.
func (g *Generator) Intn(n int) int {
	return g.rng.Intn(n)
}

// Allocations 生成 k 个长度为 m 的随机配置向量: 先做均匀抽样再按行和归一化.
func (g *Generator) Allocations(k, m int) ([][]float64, error) {
	if k < 1 || m < 1 {
		return nil, xerrors.ErrInvalidParams.WithDetail("allocations need k >= 1 and m >= 1, got k=%d m=%d", k, m)
	}

	out := make([][]float64, k)
	backing := make([]float64, k*m)
	for i := range k {
		row := backing[i*m : (i+1)*m : (i+1)*m]
		var sum float64
		for j := range row {
			row[j] = g.rng.Float64()
			sum += row[j]
		}
		if sum == 0 {
			for j := range row {
				row[j] = 1
			}
			sum = float64(m)
		}
		for j := range row {
			row[j] /= sum
		}
		out[i] = row
	}

	return out, nil
}
