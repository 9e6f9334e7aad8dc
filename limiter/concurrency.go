package limiter

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrConcurrencyLimit 等待配额时 ctx 结束.
var ErrConcurrencyLimit = errors.New("concurrency limit exceeded")

// Slots 限制同时运行的计算数量. 容量 <= 0 时不限制.
type Slots struct {
	sem chan struct{}
}

// NewSlots 创建容量为 n 的配额池.
func NewSlots(n int) *Slots {
	if n <= 0 {
		return &Slots{}
	}
	return &Slots{sem: make(chan struct{}, n)}
}

// Acquire 阻塞直到拿到配额. ctx 先结束时返回包装了 ctx.Err() 的 ErrConcurrencyLimit.
// 成功时返回的 release 可重复调用，只有第一次生效.
func (s *Slots) Acquire(ctx context.Context) (release func(), err error) {
	if s == nil || s.sem == nil {
		return func() {}, nil
	}
	select {
	case s.sem <- struct{}{}:
		return s.releaser(), nil
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %w", ErrConcurrencyLimit, ctx.Err())
	}
}

// TryAcquire 非阻塞获取配额.
func (s *Slots) TryAcquire() (release func(), ok bool) {
	if s == nil || s.sem == nil {
		return func() {}, true
	}
	select {
	case s.sem <- struct{}{}:
		return s.releaser(), true
	default:
		return nil, false
	}
}

func (s *Slots) releaser() func() {
	var once sync.Once
	return func() {
		once.Do(func() { <-s.sem })
	}
}

// InUse 返回已占用的配额数. 不限制时恒为 0.
func (s *Slots) InUse() int {
	if s == nil {
		return 0
	}
	return len(s.sem)
}

// Cap 返回容量，0 表示不限制.
func (s *Slots) Cap() int {
	if s == nil {
		return 0
	}
	return cap(s.sem)
}
