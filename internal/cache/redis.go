package cache

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"resume-matcher/internal/config"
	"resume-matcher/internal/tracing"
)

// ErrCacheMiss 键不存在
var ErrCacheMiss = errors.New("缓存未命中")

// 为Redis操作定义专用tracer
var redisTracer = otel.Tracer("resume-matcher/cache/redis")

// Redis操作前缀采样率配置，redisotel 钩子已为每条命令生成span，这里只对部分操作补充业务属性
var redisKeySamplingRates = map[string]float64{
	"resume:": 0.1,
	"match:":  0.25,
}

// shouldSampleRedisOp 根据key前缀决定是否需要创建span
func shouldSampleRedisOp(key string) bool {
	if key == "" {
		return false
	}
	for prefix, rate := range redisKeySamplingRates {
		if strings.HasPrefix(key, prefix) {
			return rand.Float64() < rate
		}
	}
	// 默认采样率5%
	return rand.Float64() < 0.05
}

// RedisStore 缓存的外部存储层
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore 创建Redis连接，添加OpenTelemetry钩子并检查连通性
func NewRedisStore(cfg config.RedisConfig) (*RedisStore, error) {
	if cfg.Address == "" {
		return nil, fmt.Errorf("redis地址不能为空")
	}

	opt := &redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,

		// 连接池设置
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,

		// 超时设置
		DialTimeout:  time.Duration(cfg.DialTimeoutSeconds) * time.Second,
		ReadTimeout:  time.Duration(cfg.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeoutSeconds) * time.Second,

		MaxRetries: cfg.MaxRetries,
	}

	client := redis.NewClient(opt)

	// 添加OpenTelemetry钩子, 记录所有Redis操作
	if err := redisotel.InstrumentTracing(client); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("为Redis添加OpenTelemetry钩子失败: %w", err)
	}

	store := &RedisStore{client: client}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := store.Ping(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("连接Redis失败 %s: %w", cfg.Address, err)
	}

	return store, nil
}

// Close 关闭连接
func (r *RedisStore) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

// Ping 检查连接
func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Get 获取键的值，键不存在时返回 ErrCacheMiss
func (r *RedisStore) Get(ctx context.Context, key string) (string, error) {
	ctx, span := r.startSpan(ctx, "Redis.Get", "GET", key)
	if span != nil {
		defer span.End()
	}

	val, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		if span != nil {
			span.SetAttributes(attribute.Bool("db.redis.key_exists", false))
			span.SetStatus(codes.Ok, "key not found")
		}
		return "", ErrCacheMiss
	}
	if err != nil {
		if span != nil {
			tracing.RecordError(span, err, tracing.ErrorTypeRedis)
		}
		return "", err
	}

	if span != nil {
		span.SetAttributes(
			attribute.Bool("db.redis.key_exists", true),
			attribute.Int("db.redis.value_length", len(val)),
		)
		span.SetStatus(codes.Ok, "")
	}
	return val, nil
}

// Set 设置键的值及过期时间
func (r *RedisStore) Set(ctx context.Context, key, value string, expiration time.Duration) error {
	ctx, span := r.startSpan(ctx, "Redis.Set", "SET", key)
	if span != nil {
		defer span.End()
		span.SetAttributes(
			attribute.Int("db.redis.value_length", len(value)),
			attribute.Int64("db.redis.expiration_ms", expiration.Milliseconds()),
		)
	}

	if err := r.client.Set(ctx, key, value, expiration).Err(); err != nil {
		if span != nil {
			tracing.RecordError(span, err, tracing.ErrorTypeRedis)
		}
		return err
	}
	if span != nil {
		span.SetStatus(codes.Ok, "")
	}
	return nil
}

// Delete 删除键
func (r *RedisStore) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}

// Flush 清空当前数据库
func (r *RedisStore) Flush(ctx context.Context) error {
	ctx, span := redisTracer.Start(ctx, "Redis.FlushDB", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	if err := r.client.FlushDB(ctx).Err(); err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeRedis)
		return err
	}
	span.SetStatus(codes.Ok, "")
	return nil
}

func (r *RedisStore) startSpan(ctx context.Context, name, op, key string) (context.Context, trace.Span) {
	if !shouldSampleRedisOp(key) {
		return ctx, nil
	}
	ctx, span := redisTracer.Start(ctx, name, trace.WithSpanKind(trace.SpanKindClient))
	span.SetAttributes(
		attribute.String("db.system", "redis"),
		attribute.String("db.operation", op),
		attribute.String("db.redis.key", tracing.SafeCacheKey(key)),
	)
	return ctx, span
}
