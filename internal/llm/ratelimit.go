package llm

import (
	"context"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// RateLimitedModel 对模型调用进行限流与重试的代理
type RateLimitedModel struct {
	original    model.BaseChatModel
	rateLimiter *TokenBucket
}

// NewRateLimitedModel 创建限流代理，容量为QPM的一半以允许少量突发
func NewRateLimitedModel(original model.BaseChatModel, qpm int) *RateLimitedModel {
	return &RateLimitedModel{
		original:    original,
		rateLimiter: NewTokenBucket(qpm, qpm/2),
	}
}

// WithRetryPolicy 设置重试策略
func (rl *RateLimitedModel) WithRetryPolicy(waitTime time.Duration, maxRetries int) *RateLimitedModel {
	rl.rateLimiter.WithRetryPolicy(waitTime, maxRetries)
	return rl
}

// Generate 限流后调用原模型
func (rl *RateLimitedModel) Generate(ctx context.Context, messages []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	var response *schema.Message
	err := rl.rateLimiter.RetryWithBackoff(ctx, func() error {
		var genErr error
		response, genErr = rl.original.Generate(ctx, messages, opts...)
		return genErr
	})
	return response, err
}

// Stream 限流后调用原模型
func (rl *RateLimitedModel) Stream(ctx context.Context, messages []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	var stream *schema.StreamReader[*schema.Message]
	err := rl.rateLimiter.RetryWithBackoff(ctx, func() error {
		var streamErr error
		stream, streamErr = rl.original.Stream(ctx, messages, opts...)
		return streamErr
	})
	return stream, err
}

var _ model.BaseChatModel = (*RateLimitedModel)(nil)
