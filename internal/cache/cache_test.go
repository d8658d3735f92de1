package cache

import (
	"context"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resume-matcher/internal/config"
)

// fakeClock 可手动推进的时钟
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type cachedResult struct {
	Name   string   `json:"name"`
	Skills []string `json:"skills"`
	Score  float64  `json:"score"`
}

func TestGenerateKey_OrderInvariant(t *testing.T) {
	a := map[string]any{}
	a["text"] = "简历内容"
	a["job_description"] = "需要Go"
	a["options"] = map[string]any{"top_n": 10, "lang": "zh"}

	b := map[string]any{}
	b["options"] = map[string]any{"lang": "zh", "top_n": 10}
	b["job_description"] = "需要Go"
	b["text"] = "简历内容"

	keyA, err := GenerateKey("match", a)
	require.NoError(t, err)
	keyB, err := GenerateKey("match", b)
	require.NoError(t, err)

	assert.Equal(t, keyA, keyB, "参数构造顺序不同时键应相同")
	assert.Regexp(t, regexp.MustCompile(`^match:[0-9a-f]{32}$`), keyA)

	keyC, err := GenerateKey("resume", a)
	require.NoError(t, err)
	assert.NotEqual(t, keyA, keyC, "前缀不同键不同")

	keyD, err := GenerateKey("match", map[string]any{"text": "另一份简历"})
	require.NoError(t, err)
	assert.NotEqual(t, keyA, keyD)
}

func TestGenerateKey_Unserializable(t *testing.T) {
	_, err := GenerateKey("resume", map[string]any{"fn": func() {}})
	assert.ErrorIs(t, err, ErrUnserializable)
}

func TestLocalCache_RoundTripAndExpiry(t *testing.T) {
	clock := newFakeClock()
	c := NewLocalCache(10, time.Hour, WithClock(clock.Now))

	c.Set("k", "v", time.Minute)
	v, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "v", v)

	clock.Advance(59 * time.Second)
	_, ok = c.Get("k")
	assert.True(t, ok, "TTL内应命中")

	clock.Advance(2 * time.Second)
	_, ok = c.Get("k")
	assert.False(t, ok, "超过TTL后不应返回旧值")
	assert.Equal(t, 0, c.Len(), "过期条目在读取时被删除")
}

func TestLocalCache_DefaultTTL(t *testing.T) {
	clock := newFakeClock()
	c := NewLocalCache(10, 0, WithClock(clock.Now))

	c.Set("k", 1, 0)
	clock.Advance(DefaultTTL - time.Second)
	_, ok := c.Get("k")
	assert.True(t, ok)

	clock.Advance(2 * time.Second)
	_, ok = c.Get("k")
	assert.False(t, ok, "默认TTL为24小时")
}

func TestLocalCache_EvictsOldestInsertion(t *testing.T) {
	clock := newFakeClock()
	c := NewLocalCache(3, time.Hour, WithClock(clock.Now))

	c.Set("a", 1, 0)
	clock.Advance(time.Second)
	c.Set("b", 2, 0)
	clock.Advance(time.Second)
	c.Set("c", 3, 0)

	// 读取不会影响淘汰顺序
	_, ok := c.Get("a")
	require.True(t, ok)

	clock.Advance(time.Second)
	c.Set("d", 4, 0)

	assert.Equal(t, 3, c.Len())
	_, ok = c.Get("a")
	assert.False(t, ok, "最早写入的条目被淘汰")
	for _, k := range []string{"b", "c", "d"} {
		_, ok := c.Get(k)
		assert.True(t, ok, "其余条目保留: %s", k)
	}
}

func TestLocalCache_OverwriteRefreshesPosition(t *testing.T) {
	c := NewLocalCache(2, time.Hour)
	c.Set("a", 1, 0)
	c.Set("b", 2, 0)
	c.Set("a", 10, 0)
	assert.Equal(t, []string{"b", "a"}, c.Keys())

	c.Set("c", 3, 0)
	assert.Equal(t, []string{"a", "c"}, c.Keys(), "覆盖写入刷新位置，淘汰b")
	v, _ := c.Get("a")
	assert.Equal(t, 10, v)
}

func TestLocalCache_ConcurrentAccess(t *testing.T) {
	c := NewLocalCache(50, time.Hour)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				key := string(rune('a' + (i+j)%26))
				c.Set(key, j, 0)
				c.Get(key)
				if j%10 == 0 {
					c.Delete(key)
				}
			}
		}(i)
	}
	wg.Wait()
	assert.LessOrEqual(t, c.Len(), 50)
}

func TestManager_LocalOnly(t *testing.T) {
	ctx := context.Background()
	m := NewManager(NewLocalCache(10, time.Hour), nil)
	assert.False(t, m.RedisEnabled())

	want := cachedResult{Name: "张伟", Skills: []string{"Go"}, Score: 88.5}
	require.NoError(t, m.Set(ctx, "resume:1", want, 0))

	var got cachedResult
	hit, err := m.Get(ctx, "resume:1", &got)
	require.NoError(t, err)
	require.True(t, hit)
	assert.Equal(t, want, got)

	var asMap map[string]any
	hit, err = m.Get(ctx, "resume:1", &asMap)
	require.NoError(t, err)
	require.True(t, hit, "类型不同时经JSON转换")
	assert.Equal(t, "张伟", asMap["name"])

	m.Delete(ctx, "resume:1")
	hit, err = m.Get(ctx, "resume:1", &got)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestManager_LocalValuesAreIndependentCopies(t *testing.T) {
	ctx := context.Background()
	m := NewManager(NewLocalCache(10, time.Hour), nil)

	stored := cachedResult{Name: "张伟", Skills: []string{"Go", "Docker"}}
	require.NoError(t, m.Set(ctx, "resume:copy", stored, 0))
	stored.Skills[0] = "写入后被修改"

	var first cachedResult
	hit, err := m.Get(ctx, "resume:copy", &first)
	require.NoError(t, err)
	require.True(t, hit)
	assert.Equal(t, []string{"Go", "Docker"}, first.Skills, "写入后修改原值不影响缓存")

	first.Skills[0] = "读取后被修改"
	var second cachedResult
	hit, err = m.Get(ctx, "resume:copy", &second)
	require.NoError(t, err)
	require.True(t, hit)
	assert.Equal(t, []string{"Go", "Docker"}, second.Skills, "修改读取结果不影响缓存")
}

func TestManager_ContractViolations(t *testing.T) {
	ctx := context.Background()
	m := NewManager(nil, nil)

	var notPointer cachedResult
	_, err := m.Get(ctx, "k", notPointer)
	assert.ErrorIs(t, err, ErrInvalidDestination)
	_, err = m.Get(ctx, "k", nil)
	assert.ErrorIs(t, err, ErrInvalidDestination)
	var nilPtr *cachedResult
	_, err = m.Get(ctx, "k", nilPtr)
	assert.ErrorIs(t, err, ErrInvalidDestination)

	assert.ErrorIs(t, m.Set(ctx, "k", make(chan int), 0), ErrUnserializable)
}

func newTestRedisStore(t *testing.T, mr *miniredis.Miniredis) *RedisStore {
	t.Helper()
	store, err := NewRedisStore(config.RedisConfig{
		Address:             mr.Addr(),
		PoolSize:            2,
		DialTimeoutSeconds:  1,
		ReadTimeoutSeconds:  1,
		WriteTimeoutSeconds: 1,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestManager_RedisRoundTripAndTTL(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	m := NewManager(NewLocalCache(10, time.Hour), newTestRedisStore(t, mr))
	require.True(t, m.RedisEnabled())

	want := cachedResult{Name: "李四", Skills: []string{"Python", "Docker"}, Score: 72}
	require.NoError(t, m.Set(ctx, "match:abc", want, time.Minute))

	raw, err := mr.Get("match:abc")
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"李四","skills":["Python","Docker"],"score":72}`, raw, "Redis中保存JSON字符串")

	var got cachedResult
	hit, err := m.Get(ctx, "match:abc", &got)
	require.NoError(t, err)
	require.True(t, hit)
	assert.Equal(t, want, got)

	mr.FastForward(2 * time.Minute)
	hit, err = m.Get(ctx, "match:abc", &got)
	require.NoError(t, err)
	assert.False(t, hit, "过期后不应命中")
}

func TestManager_RedisDeleteAndClear(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	m := NewManager(NewLocalCache(10, time.Hour), newTestRedisStore(t, mr))

	require.NoError(t, m.Set(ctx, "resume:a", "A", 0))
	require.NoError(t, m.Set(ctx, "resume:b", "B", 0))

	m.Delete(ctx, "resume:a")
	assert.False(t, mr.Exists("resume:a"))
	assert.True(t, mr.Exists("resume:b"))

	m.Clear(ctx)
	assert.False(t, mr.Exists("resume:b"), "Clear 清空Redis")
}

func TestManager_DegradesWhenRedisFails(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	local := NewLocalCache(10, time.Hour)
	m := NewManager(local, newTestRedisStore(t, mr))

	mr.Close()

	want := cachedResult{Name: "王五"}
	require.NoError(t, m.Set(ctx, "resume:x", want, 0), "Redis不可用时写入不报错")
	assert.Equal(t, 1, local.Len(), "降级写入本地缓存")

	var got cachedResult
	hit, err := m.Get(ctx, "resume:x", &got)
	require.NoError(t, err, "Redis不可用时读取不报错")
	require.True(t, hit, "从本地缓存读取")
	assert.Equal(t, want, got)

	assert.NotPanics(t, func() {
		m.Delete(ctx, "resume:x")
		m.Clear(ctx)
	})
	assert.Equal(t, 0, local.Len())
}

func TestManager_RedisMissConsultsLocal(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	local := NewLocalCache(10, time.Hour)
	m := NewManager(local, newTestRedisStore(t, mr))

	local.Set("resume:degraded", "本地值", 0)

	var got string
	hit, err := m.Get(ctx, "resume:degraded", &got)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, "本地值", got)
}

func TestNewRedisStore_Unreachable(t *testing.T) {
	_, err := NewRedisStore(config.RedisConfig{Address: "127.0.0.1:1", DialTimeoutSeconds: 1})
	assert.Error(t, err)

	_, err = NewRedisStore(config.RedisConfig{})
	assert.Error(t, err, "地址为空")
}

func TestNewManagerFromConfig_FallsBackToLocal(t *testing.T) {
	m := NewManagerFromConfig(
		config.CacheConfig{LocalMaxSize: 5, DefaultTTL: "1h"},
		config.RedisConfig{Enabled: true, Address: "127.0.0.1:1", DialTimeoutSeconds: 1},
	)
	assert.False(t, m.RedisEnabled(), "Redis连接失败时只使用本地缓存")
	assert.Equal(t, time.Hour, m.defaultTTL)

	mr := miniredis.RunT(t)
	m = NewManagerFromConfig(config.CacheConfig{}, config.RedisConfig{Enabled: true, Address: mr.Addr()})
	defer m.Close()
	assert.True(t, m.RedisEnabled())
}
