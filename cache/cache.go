// Package cache 提供计算结果缓存. 值以 JSON 序列化存储.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrMiss 缓存未命中.
var ErrMiss = errors.New("cache miss")

// Cache 缓存接口.
type Cache interface {
	Get(ctx context.Context, key string, value any) error
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, key string) (bool, error)
	Close() error
}
