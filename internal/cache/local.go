package cache

import (
	"container/list"
	"sync"
	"time"
)

const (
	// DefaultLocalMaxSize 本地缓存默认容量
	DefaultLocalMaxSize = 100
	// DefaultTTL 默认过期时间
	DefaultTTL = 24 * time.Hour
)

// Entry 本地缓存条目
type Entry struct {
	Key      string
	Value    any
	StoredAt time.Time
	TTL      time.Duration
}

func (e *Entry) expired(now time.Time) bool {
	return now.Sub(e.StoredAt) > e.TTL
}

// LocalCache 有容量上限的进程内缓存。
// 满时淘汰最早写入的条目(按写入顺序，不是LRU)，过期在读取时惰性删除
type LocalCache struct {
	mu         sync.Mutex
	items      map[string]*list.Element
	order      *list.List // 队首为最早写入
	maxSize    int
	defaultTTL time.Duration
	now        func() time.Time
}

// LocalOption 本地缓存配置选项
type LocalOption func(*LocalCache)

// WithClock 替换时钟，用于测试
func WithClock(now func() time.Time) LocalOption {
	return func(c *LocalCache) {
		if now != nil {
			c.now = now
		}
	}
}

// NewLocalCache 创建本地缓存，maxSize或defaultTTL非正时使用默认值
func NewLocalCache(maxSize int, defaultTTL time.Duration, opts ...LocalOption) *LocalCache {
	if maxSize <= 0 {
		maxSize = DefaultLocalMaxSize
	}
	if defaultTTL <= 0 {
		defaultTTL = DefaultTTL
	}
	c := &LocalCache{
		items:      make(map[string]*list.Element),
		order:      list.New(),
		maxSize:    maxSize,
		defaultTTL: defaultTTL,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get 读取条目，已过期的条目被删除并视为不存在
func (c *LocalCache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		return nil, false
	}
	entry := elem.Value.(*Entry)
	if entry.expired(c.now()) {
		c.removeElement(elem)
		return nil, false
	}
	return entry.Value, true
}

// Set 写入条目。覆盖已有键会刷新其写入位置；容量已满时淘汰最早写入的条目
func (c *LocalCache) Set(key string, value any, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if elem, ok := c.items[key]; ok {
		entry := elem.Value.(*Entry)
		entry.Value = value
		entry.StoredAt = now
		entry.TTL = ttl
		c.order.MoveToBack(elem)
		return
	}

	for c.order.Len() >= c.maxSize {
		c.removeElement(c.order.Front())
	}
	c.items[key] = c.order.PushBack(&Entry{Key: key, Value: value, StoredAt: now, TTL: ttl})
}

// Delete 删除条目，返回条目是否存在
func (c *LocalCache) Delete(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		return false
	}
	c.removeElement(elem)
	return true
}

// Clear 清空所有条目
func (c *LocalCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]*list.Element)
	c.order.Init()
}

// Len 当前条目数(包含尚未被读取删除的过期条目)
func (c *LocalCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Keys 按写入顺序返回所有键
func (c *LocalCache) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	keys := make([]string, 0, c.order.Len())
	for e := c.order.Front(); e != nil; e = e.Next() {
		keys = append(keys, e.Value.(*Entry).Key)
	}
	return keys
}

func (c *LocalCache) removeElement(elem *list.Element) {
	entry := c.order.Remove(elem).(*Entry)
	delete(c.items, entry.Key)
}
