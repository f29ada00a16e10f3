package cache

import (
	"context"
	"errors"

	"loadshed-monitor/internal/logger"
)

// 文档注释：多层存储链
// 背景：按顺序查询（进程内 → Redis），在下层命中时以原过期时间回填上层；写入与淘汰作用于所有层。
// 约束：nil 层被跳过；单层读取失败记录日志后继续查询下一层。
type Chain[K comparable, V any] struct {
	tiers []Tier[K, V]
}

func NewChain[K comparable, V any](tiers ...Tier[K, V]) *Chain[K, V] {
	var list []Tier[K, V]
	for _, t := range tiers {
		if t != nil {
			list = append(list, t)
		}
	}
	return &Chain[K, V]{tiers: list}
}

func (c *Chain[K, V]) Lookup(ctx context.Context, k K) (Entry[V], bool, error) {
	for i, t := range c.tiers {
		e, ok, err := t.Lookup(ctx, k)
		if err != nil {
			logger.L().Debug("cache_tier_lookup_error", "tier", i, "err", err)
			continue
		}
		if !ok {
			continue
		}
		for _, up := range c.tiers[:i] {
			_ = up.Store(ctx, k, e)
		}
		return e, true, nil
	}
	return Entry[V]{}, false, nil
}

func (c *Chain[K, V]) Store(ctx context.Context, k K, e Entry[V]) error {
	var errs []error
	for _, t := range c.tiers {
		if err := t.Store(ctx, k, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (c *Chain[K, V]) Evict(ctx context.Context, k K) error {
	var errs []error
	for _, t := range c.tiers {
		if err := t.Evict(ctx, k); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
