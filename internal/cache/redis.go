package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// 文档注释：Redis 存储层
// 背景：多实例部署时共享区域与停电计划缓存，进一步减少上游配额消耗；值以 JSON 保存并携带绝对过期时间。
// 约束：键为 prefix + key(k)；Redis 侧过期按剩余时长设置，已过期条目不写入；rc 为 nil 时不应构造本层。
type RedisTier[K comparable, V any] struct {
	rc     *redis.Client
	prefix string
	key    func(K) string
	now    Clock
}

func NewRedisTier[K comparable, V any](rc *redis.Client, prefix string, key func(K) string, now Clock) *RedisTier[K, V] {
	if now == nil {
		now = time.Now
	}
	return &RedisTier[K, V]{rc: rc, prefix: prefix, key: key, now: now}
}

func (r *RedisTier[K, V]) Lookup(ctx context.Context, k K) (Entry[V], bool, error) {
	var e Entry[V]
	b, err := r.rc.Get(ctx, r.prefix+r.key(k)).Bytes()
	if errors.Is(err, redis.Nil) {
		return e, false, nil
	}
	if err != nil {
		return e, false, err
	}
	if err := json.Unmarshal(b, &e); err != nil {
		return e, false, err
	}
	return e, true, nil
}

func (r *RedisTier[K, V]) Store(ctx context.Context, k K, e Entry[V]) error {
	ttl := e.Expires.Sub(r.now())
	if ttl <= 0 {
		return nil
	}
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return r.rc.Set(ctx, r.prefix+r.key(k), string(b), ttl).Err()
}

func (r *RedisTier[K, V]) Evict(ctx context.Context, k K) error {
	return r.rc.Del(ctx, r.prefix+r.key(k)).Err()
}
