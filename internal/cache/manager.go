package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"time"

	"resume-matcher/internal/config"
	"resume-matcher/internal/logger"
	"resume-matcher/internal/metrics"
	"resume-matcher/internal/tracing"
)

const (
	tierRedis = "redis"
	tierLocal = "local"
)

// Manager 两级缓存。配置了Redis时优先使用，Redis出错时本次调用降级到本地缓存。
// 除调用方误用(目标非指针、值无法序列化)外不返回错误
type Manager struct {
	redis      *RedisStore
	local      *LocalCache
	defaultTTL time.Duration
}

// NewManager 创建缓存管理器，redis为nil时只使用本地缓存
func NewManager(local *LocalCache, redis *RedisStore) *Manager {
	if local == nil {
		local = NewLocalCache(DefaultLocalMaxSize, DefaultTTL)
	}
	return &Manager{
		redis:      redis,
		local:      local,
		defaultTTL: local.defaultTTL,
	}
}

// NewManagerFromConfig 按配置创建缓存管理器。Redis未启用或连接失败时只使用本地缓存
func NewManagerFromConfig(cacheCfg config.CacheConfig, redisCfg config.RedisConfig) *Manager {
	log := logger.Component("cache")
	local := NewLocalCache(cacheCfg.LocalMaxSize, config.GetDuration(cacheCfg.DefaultTTL, DefaultTTL))

	if !redisCfg.Enabled {
		log.Info().Int("local_max_size", cacheCfg.LocalMaxSize).Msg("Redis未启用，使用本地缓存")
		return NewManager(local, nil)
	}

	store, err := NewRedisStore(redisCfg)
	if err != nil {
		log.Warn().Err(err).Str("address", redisCfg.Address).Msg("Redis不可用，使用本地缓存")
		return NewManager(local, nil)
	}
	log.Info().Str("address", redisCfg.Address).Msg("使用Redis缓存")
	return NewManager(local, store)
}

// RedisEnabled 是否配置了可用的Redis
func (m *Manager) RedisEnabled() bool {
	return m.redis != nil
}

// Close 关闭Redis连接
func (m *Manager) Close() error {
	if m.redis != nil {
		return m.redis.Close()
	}
	return nil
}

// Get 读取缓存到dest，返回是否命中。
// Redis未命中时还会检查本地缓存，Redis降级期间写入的条目仍然可见
func (m *Manager) Get(ctx context.Context, key string, dest any) (bool, error) {
	rv := reflect.ValueOf(dest)
	if !rv.IsValid() || rv.Kind() != reflect.Pointer || rv.IsNil() {
		return false, ErrInvalidDestination
	}
	log := logger.Ctx(ctx)

	if m.redis != nil {
		val, err := m.redis.Get(ctx, key)
		switch {
		case err == nil:
			jsonErr := json.Unmarshal([]byte(val), dest)
			if jsonErr == nil {
				countOp(tierRedis, "get", "hit")
				return true, nil
			}
			log.Warn().Err(jsonErr).Str("key", tracing.SafeCacheKey(key)).Msg("Redis缓存值无法解析，忽略该条目")
			countOp(tierRedis, "get", "corrupt")
		case errors.Is(err, ErrCacheMiss):
			countOp(tierRedis, "get", "miss")
		default:
			log.Warn().Err(err).Str("key", tracing.SafeCacheKey(key)).Msg("Redis读取失败，降级到本地缓存")
			countOp(tierRedis, "get", "error")
		}
	}

	value, ok := m.local.Get(key)
	if !ok {
		countOp(tierLocal, "get", "miss")
		return false, nil
	}
	if err := assign(value, dest); err != nil {
		log.Warn().Err(err).Str("key", tracing.SafeCacheKey(key)).Msg("本地缓存值类型不匹配")
		countOp(tierLocal, "get", "corrupt")
		return false, nil
	}
	countOp(tierLocal, "get", "hit")
	return true, nil
}

// Set 写入缓存，ttl非正时使用默认值。两级缓存都保存JSON编码，调用方之后修改value不影响缓存
func (m *Manager) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("写入缓存失败: %w: %v", ErrUnserializable, err)
	}
	if ttl <= 0 {
		ttl = m.defaultTTL
	}

	if m.redis != nil {
		err := m.redis.Set(ctx, key, string(data), ttl)
		if err == nil {
			countOp(tierRedis, "set", "ok")
			return nil
		}
		logger.Ctx(ctx).Warn().Err(err).Str("key", tracing.SafeCacheKey(key)).Msg("Redis写入失败，降级到本地缓存")
		countOp(tierRedis, "set", "error")
	}

	m.local.Set(key, json.RawMessage(data), ttl)
	countOp(tierLocal, "set", "ok")
	return nil
}

// Delete 从两级缓存中删除键
func (m *Manager) Delete(ctx context.Context, key string) {
	if m.redis != nil {
		if err := m.redis.Delete(ctx, key); err != nil {
			logger.Ctx(ctx).Warn().Err(err).Str("key", tracing.SafeCacheKey(key)).Msg("Redis删除失败")
			countOp(tierRedis, "delete", "error")
		} else {
			countOp(tierRedis, "delete", "ok")
		}
	}
	m.local.Delete(key)
	countOp(tierLocal, "delete", "ok")
}

// Clear 清空两级缓存
func (m *Manager) Clear(ctx context.Context) {
	if m.redis != nil {
		if err := m.redis.Flush(ctx); err != nil {
			logger.Ctx(ctx).Warn().Err(err).Msg("清空Redis缓存失败")
			countOp(tierRedis, "clear", "error")
		} else {
			countOp(tierRedis, "clear", "ok")
		}
	}
	m.local.Clear()
	countOp(tierLocal, "clear", "ok")
	logger.Ctx(ctx).Info().Msg("缓存已清空")
}

// assign 将本地缓存中的值解码到dest，每次读取得到独立的副本
func assign(value any, dest any) error {
	if raw, ok := value.(json.RawMessage); ok {
		return json.Unmarshal(raw, dest)
	}
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dest)
}

func countOp(tier, op, result string) {
	metrics.CacheOperationsTotal.WithLabelValues(tier, op, result).Inc()
}
