package middleware

import (
	"sync/atomic"

	"github.com/gin-gonic/gin"
)

// Swappable 可在运行时替换的中间件，用于随配置热更新的限流等场景.
type Swappable struct {
	current atomic.Pointer[gin.HandlerFunc]
}

// NewSwappable 以 initial 作为当前实现. initial 为 nil 时直接放行.
func NewSwappable(initial gin.HandlerFunc) *Swappable {
	s := &Swappable{}
	s.Swap(initial)
	return s
}

// Swap 替换当前实现，已进入的请求不受影响.
func (s *Swappable) Swap(h gin.HandlerFunc) {
	if h == nil {
		s.current.Store(nil)
		return
	}
	s.current.Store(&h)
}

// Handler 返回注册到 Gin 的入口.
func (s *Swappable) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if h := s.current.Load(); h != nil {
			(*h)(c)
			return
		}
		c.Next()
	}
}
