// 包 cache：带过期时间的通用键值缓存，供区域解析（长 TTL）与停电计划解析（短 TTL）共用
package cache

import (
	"context"
	"time"

	"loadshed-monitor/internal/logger"
	"loadshed-monitor/internal/metrics"
)

// Clock：可注入的时间源，测试中以固定时钟驱动过期
type Clock func() time.Time

// Entry：缓存值与绝对过期时间
// 约束：过期时间随值在各层之间传递，回填上层时不得重置为完整 TTL
type Entry[V any] struct {
	Value   V         `json:"v"`
	Expires time.Time `json:"exp"`
}

// Tier：单层存储契约（进程内 LRU、Redis 等）
// 背景：存储层只负责保存与淘汰，过期判定统一在 TTL 前端完成。
type Tier[K comparable, V any] interface {
	Lookup(ctx context.Context, k K) (Entry[V], bool, error)
	Store(ctx context.Context, k K, e Entry[V]) error
	Evict(ctx context.Context, k K) error
}

// 文档注释：TTL 前端
// 背景：两个缓存仅在 TTL 与键类型上不同，统一为同一抽象；写入时按时钟计算过期时间，读取时过期即视为未命中并淘汰。
// 约束：永不返回已过期条目（now >= Expires 即过期）；存储层错误按未命中处理并记录日志，不向上传播。
type TTL[K comparable, V any] struct {
	name string
	tier Tier[K, V]
	ttl  time.Duration
	now  Clock
}

func NewTTL[K comparable, V any](name string, tier Tier[K, V], ttl time.Duration, now Clock) *TTL[K, V] {
	if now == nil {
		now = time.Now
	}
	return &TTL[K, V]{name: name, tier: tier, ttl: ttl, now: now}
}

func (c *TTL[K, V]) Name() string           { return c.name }
func (c *TTL[K, V]) Lifetime() time.Duration { return c.ttl }

// Get：读取未过期条目
func (c *TTL[K, V]) Get(ctx context.Context, k K) (V, bool) {
	var zero V
	e, ok, err := c.tier.Lookup(ctx, k)
	if err != nil {
		logger.L().Error("cache_lookup_error", "cache", c.name, "key", k, "err", err)
		metrics.CacheMissesTotal.WithLabelValues(c.name).Inc()
		return zero, false
	}
	if !ok {
		metrics.CacheMissesTotal.WithLabelValues(c.name).Inc()
		return zero, false
	}
	if !c.now().Before(e.Expires) {
		_ = c.tier.Evict(ctx, k)
		logger.L().Debug("cache_expired", "cache", c.name, "key", k)
		metrics.CacheMissesTotal.WithLabelValues(c.name).Inc()
		return zero, false
	}
	metrics.CacheHitsTotal.WithLabelValues(c.name).Inc()
	return e.Value, true
}

// Put：写入并以当前时钟加 TTL 作为过期时间
func (c *TTL[K, V]) Put(ctx context.Context, k K, v V) {
	e := Entry[V]{Value: v, Expires: c.now().Add(c.ttl)}
	if err := c.tier.Store(ctx, k, e); err != nil {
		logger.L().Error("cache_store_error", "cache", c.name, "key", k, "err", err)
	}
}

// Evict：主动淘汰
func (c *TTL[K, V]) Evict(ctx context.Context, k K) {
	if err := c.tier.Evict(ctx, k); err != nil {
		logger.L().Error("cache_evict_error", "cache", c.name, "key", k, "err", err)
	}
}
