package cache

import (
	"container/list"
	"context"
	"sync"
)

// 文档注释：进程内 LRU 存储层
// 背景：同一商户坐标与区域在每轮轮询中重复出现，进程内缓存命中后无需访问 Redis 或上游。
// 约束：容量满时淘汰最久未使用的条目；并发安全（互斥锁串行化读写）。
type LRU[K comparable, V any] struct {
	mu   sync.Mutex
	cap  int
	lst  *list.List
	dict map[K]*list.Element
}

type kv[K comparable, V any] struct {
	k K
	e Entry[V]
}

func NewLRU[K comparable, V any](capacity int) *LRU[K, V] {
	if capacity <= 0 {
		capacity = 1000
	}
	return &LRU[K, V]{cap: capacity, lst: list.New(), dict: make(map[K]*list.Element)}
}

func (c *LRU[K, V]) Lookup(_ context.Context, k K) (Entry[V], bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.dict[k]; ok {
		c.lst.MoveToFront(el)
		return el.Value.(kv[K, V]).e, true, nil
	}
	return Entry[V]{}, false, nil
}

func (c *LRU[K, V]) Store(_ context.Context, k K, e Entry[V]) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.dict[k]; ok {
		el.Value = kv[K, V]{k: k, e: e}
		c.lst.MoveToFront(el)
		return nil
	}
	c.dict[k] = c.lst.PushFront(kv[K, V]{k: k, e: e})
	for c.lst.Len() > c.cap {
		back := c.lst.Back()
		if back == nil {
			break
		}
		delete(c.dict, back.Value.(kv[K, V]).k)
		c.lst.Remove(back)
	}
	return nil
}

func (c *LRU[K, V]) Evict(_ context.Context, k K) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.dict[k]; ok {
		c.lst.Remove(el)
		delete(c.dict, k)
	}
	return nil
}

// Len：当前条目数（含尚未被读取淘汰的过期条目）
func (c *LRU[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lst.Len()
}
