package tracing

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ErrorType 定义错误类型，便于分类和过滤
type ErrorType string

const (
	// ErrorTypeRedis Redis错误
	ErrorTypeRedis ErrorType = "redis"
	// ErrorTypeLLM 生成式模型调用错误
	ErrorTypeLLM ErrorType = "llm"
	// ErrorTypeCache 缓存错误
	ErrorTypeCache ErrorType = "cache"
	// ErrorTypeParsing 文档解析错误
	ErrorTypeParsing ErrorType = "parsing"
	// ErrorTypeStorage 对象存储错误
	ErrorTypeStorage ErrorType = "storage"
	// ErrorTypeValidation 验证错误
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeInternal 内部错误
	ErrorTypeInternal ErrorType = "internal"
	// ErrorTypeTimeout 超时错误
	ErrorTypeTimeout ErrorType = "timeout"
)

// RecordError 记录错误，添加统一的错误类型和详情。
// 超时类错误统一归为 ErrorTypeTimeout
func RecordError(span trace.Span, err error, errorType ErrorType, attributes ...attribute.KeyValue) {
	if span == nil || err == nil {
		return
	}
	if errors.Is(err, context.DeadlineExceeded) {
		errorType = ErrorTypeTimeout
	}

	span.RecordError(err)
	span.SetAttributes(
		attribute.String("error.type", string(errorType)),
		attribute.String("error.message", TruncateString(err.Error(), DefaultMaxLength)),
	)
	if len(attributes) > 0 {
		span.SetAttributes(attributes...)
	}
	span.SetStatus(codes.Error, err.Error())
}
