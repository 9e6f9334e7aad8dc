package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/allegro/bigcache/v3"
)

var _ Cache = (*BigCache)(nil)

// BigCache 基于 allegro/bigcache 的进程内缓存. 所有条目共享一个全局 TTL.
type BigCache struct {
	cache *bigcache.BigCache
}

// NewBigCache 创建缓存. maxMB 为硬上限，0 表示不限.
func NewBigCache(ttl time.Duration, maxMB int) (*BigCache, error) {
	cfg := bigcache.DefaultConfig(ttl)
	cfg.HardMaxCacheSize = maxMB
	cfg.CleanWindow = max(ttl/2, time.Second)
	cfg.Verbose = false

	c, err := bigcache.New(context.Background(), cfg)
	if err != nil {
		return nil, fmt.Errorf("init bigcache: %w", err)
	}
	return &BigCache{cache: c}, nil
}

// Get 读取并反序列化到 value. 未命中时返回 ErrMiss.
func (c *BigCache) Get(_ context.Context, key string, value any) error {
	data, err := c.cache.Get(key)
	if errors.Is(err, bigcache.ErrEntryNotFound) {
		return ErrMiss
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(data, value)
}

// Set 写入 value. 单条过期时间不受支持，expiration 被忽略.
func (c *BigCache) Set(_ context.Context, key string, value any, _ time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.cache.Set(key, data)
}

// Delete 删除若干 key，不存在的 key 被忽略.
func (c *BigCache) Delete(_ context.Context, keys ...string) error {
	for _, key := range keys {
		if err := c.cache.Delete(key); err != nil && !errors.Is(err, bigcache.ErrEntryNotFound) {
			return err
		}
	}
	return nil
}

// Exists 判断 key 是否存在.
func (c *BigCache) Exists(_ context.Context, key string) (bool, error) {
	_, err := c.cache.Get(key)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bigcache.ErrEntryNotFound):
		return false, nil
	default:
		return false, err
	}
}

// Len 返回条目数.
func (c *BigCache) Len() int {
	return c.cache.Len()
}

// Close 释放后台清理协程.
func (c *BigCache) Close() error {
	return c.cache.Close()
}
