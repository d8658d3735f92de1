package llm

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"
)

// TokenBucket 令牌桶限流器
type TokenBucket struct {
	rate           float64 // 每秒生成的令牌数
	capacity       float64
	tokens         float64
	lastRefillTime time.Time
	mutex          sync.Mutex
	retryWaitTime  time.Duration
	maxRetries     int
}

// NewTokenBucket 创建令牌桶，capacity<=0 时取 QPM 的一半
func NewTokenBucket(qpm int, capacity int) *TokenBucket {
	if qpm <= 0 {
		qpm = 30
	}
	if capacity <= 0 {
		capacity = qpm / 2
		if capacity <= 0 {
			capacity = 1
		}
	}

	return &TokenBucket{
		rate:           float64(qpm) / 60.0,
		capacity:       float64(capacity),
		tokens:         float64(capacity),
		lastRefillTime: time.Now(),
		retryWaitTime:  time.Second,
		maxRetries:     3,
	}
}

// WithRetryPolicy 设置重试策略
func (tb *TokenBucket) WithRetryPolicy(waitTime time.Duration, maxRetries int) *TokenBucket {
	tb.mutex.Lock()
	defer tb.mutex.Unlock()
	if waitTime > 0 {
		tb.retryWaitTime = waitTime
	}
	if maxRetries >= 0 {
		tb.maxRetries = maxRetries
	}
	return tb
}

func (tb *TokenBucket) refill() {
	now := time.Now()
	elapsed := now.Sub(tb.lastRefillTime).Seconds()
	tb.lastRefillTime = now

	tb.tokens += elapsed * tb.rate
	if tb.tokens > tb.capacity {
		tb.tokens = tb.capacity
	}
}

// Allow 非阻塞地尝试获取一个令牌
func (tb *TokenBucket) Allow() bool {
	tb.mutex.Lock()
	defer tb.mutex.Unlock()

	tb.refill()
	if tb.tokens >= 1.0 {
		tb.tokens -= 1.0
		return true
	}
	return false
}

// Wait 阻塞直到获得令牌或上下文结束
func (tb *TokenBucket) Wait(ctx context.Context) error {
	for {
		tb.mutex.Lock()
		tb.refill()
		if tb.tokens >= 1.0 {
			tb.tokens -= 1.0
			tb.mutex.Unlock()
			return nil
		}
		waitTime := time.Duration((1.0 - tb.tokens) / tb.rate * float64(time.Second))
		tb.mutex.Unlock()

		timer := time.NewTimer(waitTime)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// RetryWithBackoff 获取令牌后执行fn，可重试错误按指数退避重试
func (tb *TokenBucket) RetryWithBackoff(ctx context.Context, fn func() error) error {
	tb.mutex.Lock()
	maxRetries, retryWait := tb.maxRetries, tb.retryWaitTime
	tb.mutex.Unlock()

	var err error
	for retry := 0; retry <= maxRetries; retry++ {
		if err = tb.Wait(ctx); err != nil {
			return err
		}

		err = fn()
		if err == nil {
			return nil
		}
		if ctx.Err() != nil || !isRetryableError(err) || retry >= maxRetries {
			return err
		}

		backoff := retryWait * time.Duration(1<<uint(retry))
		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return err
}

// isRetryableError 判断错误是否可重试：限流、服务端错误与常见的网络抖动
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode == http.StatusTooManyRequests || statusErr.StatusCode >= 500
	}

	return containsAny(err.Error(), []string{
		"timeout",
		"connection reset",
		"EOF",
		"connection refused",
		"rate limit",
		"服务器繁忙",
		"请求超过限额",
		"QPS限制",
	})
}

func containsAny(s string, substrs []string) bool {
	for _, substr := range substrs {
		if substr != "" && strings.Contains(s, substr) {
			return true
		}
	}
	return false
}
