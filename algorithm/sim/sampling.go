package sim

// ReservoirSampler 蓄水池采样. 随机性来自调用方提供的 Generator，因此结果可复现.
type ReservoirSampler[T any] struct {
	gen     *Generator
	samples []T
	count   int
	k       int
}

// NewReservoirSampler 创建一个新的 ReservoirSampler 实例.
func NewReservoirSampler[T any](k int, gen *Generator) *ReservoirSampler[T] {
	return &ReservoirSampler[T]{
		gen:     gen,
		k:       k,
		samples: make([]T, 0, k),
	}
}

// Observe 处理一个新到达的元素.
func (s *ReservoirSampler[T]) Observe(item T) {
	s.count++

	if len(s.samples) < s.k {
		s.samples = append(s.samples, item)
		return
	}
	if j := s.gen.Intn(s.count); j < s.k {
		s.samples[j] = item
	}
}

// Samples 获取当前池中的所有样本.
func (s *ReservoirSampler[T]) Samples() []T {
	return s.samples
}

// Seen 返回已观察的元素数.
func (s *ReservoirSampler[T]) Seen() int {
	return s.count
}

// Reset 重置采样器.
func (s *ReservoirSampler[T]) Reset() {
	s.count = 0
	s.samples = s.samples[:0]
}
