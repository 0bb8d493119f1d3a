// Package cache 提供一个带 TTL 的泛型 LRU 缓存。
package cache

import (
	"container/list"
	"fmt"
	"sync"
	"time"
)

// Config 用于配置 LRU 缓存的行为。
type Config struct {
	// Capacity 是缓存的最大元素数量, 必须大于 0。
	Capacity int
	// TTL 是元素的存活时间。如果为0，则元素永不过期。
	TTL time.Duration
}

// entry 结构体用于存储链表节点中的实际数据。
type entry[K comparable, V any] struct {
	key        K
	value      V
	expiration time.Time
}

// LRU 是一个线程安全的 LRU 缓存, 过期元素在访问时被动淘汰。
type LRU[K comparable, V any] struct {
	cfg   Config
	ll    *list.List
	items map[K]*list.Element
	now   func() time.Time
	mu    sync.Mutex

	hits, misses uint64
}

// New 使用指定的配置创建一个 LRU 缓存实例。
func New[K comparable, V any](cfg Config) (*LRU[K, V], error) {
	if cfg.Capacity <= 0 {
		return nil, fmt.Errorf("cache capacity must be positive, got %d", cfg.Capacity)
	}
	return &LRU[K, V]{
		cfg:   cfg,
		ll:    list.New(),
		items: make(map[K]*list.Element, cfg.Capacity),
		now:   time.Now,
	}, nil
}

// Get 根据键获取一个值, 并将其标记为最近使用。
func (c *LRU[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	el, ok := c.items[key]
	if !ok {
		c.misses++
		return zero, false
	}
	e := el.Value.(*entry[K, V])
	if c.expired(e) {
		c.remove(el)
		c.misses++
		return zero, false
	}
	c.ll.MoveToFront(el)
	c.hits++
	return e.value, true
}

// Put 添加或更新一个键值对, 超出容量时淘汰最久未使用的元素。
func (c *LRU[K, V]) Put(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var exp time.Time
	if c.cfg.TTL > 0 {
		exp = c.now().Add(c.cfg.TTL)
	}
	if el, ok := c.items[key]; ok {
		e := el.Value.(*entry[K, V])
		e.value, e.expiration = value, exp
		c.ll.MoveToFront(el)
		return
	}

	c.items[key] = c.ll.PushFront(&entry[K, V]{key: key, value: value, expiration: exp})
	for c.ll.Len() > c.cfg.Capacity {
		c.remove(c.ll.Back())
	}
}

// Remove 删除一个键, 不存在时什么也不做。
func (c *LRU[K, V]) Remove(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[key]; ok {
		c.remove(el)
	}
}

// Len 返回当前缓存中的条目数量, 包括尚未被访问到的过期条目。
func (c *LRU[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}

// Stats 返回命中和未命中次数。
func (c *LRU[K, V]) Stats() (hits, misses uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}

// 以下方法假设已持有锁。

func (c *LRU[K, V]) expired(e *entry[K, V]) bool {
	return c.cfg.TTL > 0 && c.now().After(e.expiration)
}

func (c *LRU[K, V]) remove(el *list.Element) {
	c.ll.Remove(el)
	delete(c.items, el.Value.(*entry[K, V]).key)
}
