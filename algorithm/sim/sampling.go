package sim

import (
	"slices"

	"golang.org/x/exp/rand"
)

// ReservoirSampler 蓄水池采样.
type ReservoirSampler[T any] struct {
	rnd     *rand.Rand
	samples []T
	count   int
	k       int
}

// NewReservoirSampler 创建一个新的 ReservoirSampler 实例，采样结果由 seed 决定.
func NewReservoirSampler[T any](k int, seed uint64) *ReservoirSampler[T] {
	k = max(k, 0)
	return &ReservoirSampler[T]{
		rnd:     rand.New(rand.NewSource(splitMix64(seed))),
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
	if j := s.rnd.Intn(s.count); j < s.k {
		s.samples[j] = item
	}
}

// GetSamples 获取当前池中的所有样本.
func (s *ReservoirSampler[T]) GetSamples() []T {
	return s.samples
}

// SamplePathIndices 从 n 条路径中等概率选取 k 条，返回升序下标.
// k >= n 时返回全部下标.
func SamplePathIndices(n, k int, seed uint64) []int {
	sampler := NewReservoirSampler[int](k, seed)
	for i := range n {
		sampler.Observe(i)
	}
	out := slices.Clone(sampler.GetSamples())
	slices.Sort(out)
	return out
}
