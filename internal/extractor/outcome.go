package extractor

import (
	"context"
	"errors"

	"resume-matcher/internal/types"
)

var (
	// ErrNoJSON 响应中没有找到JSON片段
	ErrNoJSON = errors.New("响应中未找到JSON")
	// ErrMalformedJSON JSON片段无法解析
	ErrMalformedJSON = errors.New("JSON格式错误")
	// ErrSchemaMismatch JSON结构与预期不符
	ErrSchemaMismatch = errors.New("JSON结构不符合预期")
	// ErrEmptyResponse 模型返回空内容
	ErrEmptyResponse = errors.New("模型返回空内容")
	// ErrNilModel 未提供模型
	ErrNilModel = errors.New("模型不能为空")
)

// Outcome 一次外部调用的显式结果：成功时携带值，失败时携带原因
type Outcome[T any] struct {
	value  T
	reason error
	ok     bool
}

// Ok 构造成功结果
func Ok[T any](value T) Outcome[T] {
	return Outcome[T]{value: value, ok: true}
}

// Failed 构造失败结果
func Failed[T any](reason error) Outcome[T] {
	if reason == nil {
		reason = errors.New("未知错误")
	}
	return Outcome[T]{reason: reason}
}

// Get 返回值及是否成功
func (o Outcome[T]) Get() (T, bool) {
	return o.value, o.ok
}

// Reason 失败原因，成功时为nil
func (o Outcome[T]) Reason() error {
	return o.reason
}

// Generative 生成式提取器，每个任务独立调用一次外部服务
type Generative interface {
	ExtractBaseInfo(ctx context.Context, text string) Outcome[types.BaseInfo]
	ExtractOptionalInfo(ctx context.Context, text string) Outcome[types.OptionalInfo]
	ExtractSkills(ctx context.Context, text string) Outcome[[]string]
	Summarize(ctx context.Context, text string) Outcome[string]
}

// Capability 构造时确定的生成式提取能力：Available(extractor) 或 Unavailable(reason)
type Capability struct {
	generative Generative
	reason     string
}

// Available 生成式提取可用
func Available(g Generative) Capability {
	if g == nil {
		return Unavailable("生成式提取器为空")
	}
	return Capability{generative: g}
}

// Unavailable 生成式提取不可用及原因
func Unavailable(reason string) Capability {
	return Capability{reason: reason}
}

// Generative 返回提取器及是否可用
func (c Capability) Generative() (Generative, bool) {
	return c.generative, c.generative != nil
}

// Reason 不可用的原因，可用时为空
func (c Capability) Reason() string {
	return c.reason
}
