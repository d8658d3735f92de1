// Package llm 提供通义千问(OpenAI兼容接口)聊天模型及其限流代理
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"resume-matcher/internal/logger"
	"resume-matcher/internal/tracing"
)

const (
	// DefaultQwenAPIURL DashScope 的 OpenAI 兼容接口
	DefaultQwenAPIURL = "https://dashscope.aliyuncs.com/compatible-mode/v1/chat/completions"
	// DefaultQwenModel 默认模型
	DefaultQwenModel = "qwen-plus"
)

// ErrEmptyAPIKey API密钥为空
var ErrEmptyAPIKey = errors.New("API 密钥不能为空")

var llmTracer = otel.Tracer("resume-matcher/llm")

// StatusError 接口返回非200状态
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("API 请求失败，状态 %d: %s", e.StatusCode, e.Body)
}

// QwenChatModel 实现 model.BaseChatModel，调用通义千问的OpenAI兼容接口
type QwenChatModel struct {
	apiKey      string
	modelName   string
	apiURL      string
	httpClient  *http.Client
	temperature *float32
	maxTokens   *int
}

// QwenOption 配置选项
type QwenOption func(*QwenChatModel)

// WithHTTPClient 使用自定义HTTP客户端
func WithHTTPClient(client *http.Client) QwenOption {
	return func(q *QwenChatModel) {
		if client != nil {
			q.httpClient = client
		}
	}
}

// WithRequestTimeout 设置HTTP层面的请求超时
func WithRequestTimeout(timeout time.Duration) QwenOption {
	return func(q *QwenChatModel) {
		if timeout > 0 {
			q.httpClient.Timeout = timeout
		}
	}
}

// WithDefaultTemperature 设置默认温度，调用时的 model.WithTemperature 优先
func WithDefaultTemperature(t float32) QwenOption {
	return func(q *QwenChatModel) {
		q.temperature = &t
	}
}

// WithDefaultMaxTokens 设置默认最大输出长度，调用时的 model.WithMaxTokens 优先
func WithDefaultMaxTokens(n int) QwenOption {
	return func(q *QwenChatModel) {
		if n > 0 {
			q.maxTokens = &n
		}
	}
}

// NewQwenChatModel 创建通义千问聊天模型
func NewQwenChatModel(apiKey, modelName, apiURL string, opts ...QwenOption) (*QwenChatModel, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, ErrEmptyAPIKey
	}
	if strings.TrimSpace(modelName) == "" {
		modelName = DefaultQwenModel
	}
	if strings.TrimSpace(apiURL) == "" {
		apiURL = DefaultQwenAPIURL
	}

	q := &QwenChatModel{
		apiKey:     apiKey,
		modelName:  modelName,
		apiURL:     apiURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(q)
	}

	logger.Component("llm").Info().Str("api_url", apiURL).Str("model", modelName).Msg("使用阿里云通义千问 LLM 客户端")
	return q, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   *int          `json:"max_tokens,omitempty"`
	Temperature *float32      `json:"temperature,omitempty"`
	TopP        *float32      `json:"top_p,omitempty"`
	Stop        []string      `json:"stop,omitempty"`
}

type chatCompletionResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Index   int `json:"index"`
		Message struct {
			Role    string  `json:"role"`
			Content *string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// Generate 发送一次非流式对话请求
func (q *QwenChatModel) Generate(ctx context.Context, messages []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	modelName := q.modelName
	options := model.GetCommonOptions(&model.Options{
		Temperature: q.temperature,
		MaxTokens:   q.maxTokens,
		Model:       &modelName,
	}, opts...)

	req := chatCompletionRequest{
		Model:       modelName,
		MaxTokens:   options.MaxTokens,
		Temperature: options.Temperature,
		TopP:        options.TopP,
		Stop:        options.Stop,
	}
	if options.Model != nil && *options.Model != "" {
		req.Model = *options.Model
	}
	for _, m := range messages {
		if m == nil {
			continue
		}
		req.Messages = append(req.Messages, chatMessage{Role: string(m.Role), Content: m.Content})
	}

	ctx, span := llmTracer.Start(ctx, "llm.generate", trace.WithAttributes(
		attribute.String("llm.model", req.Model),
		attribute.Int("llm.messages", len(req.Messages)),
	))
	defer span.End()

	resp, err := q.do(ctx, req)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeLLM)
		return nil, err
	}
	span.SetAttributes(
		attribute.Int("llm.usage.prompt_tokens", resp.Usage.PromptTokens),
		attribute.Int("llm.usage.completion_tokens", resp.Usage.CompletionTokens),
	)

	if len(resp.Choices) == 0 {
		err := fmt.Errorf("从 API 收到空选项")
		tracing.RecordError(span, err, tracing.ErrorTypeLLM)
		return nil, err
	}

	choice := resp.Choices[0]
	content := ""
	if choice.Message.Content != nil {
		content = *choice.Message.Content
	}
	role := schema.RoleType(choice.Message.Role)
	if role == "" {
		role = schema.Assistant
	}
	return &schema.Message{Role: role, Content: content}, nil
}

func (q *QwenChatModel) do(ctx context.Context, payload chatCompletionRequest) (*chatCompletionResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("序列化请求体失败: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, q.apiURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("创建 HTTP 请求失败: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+q.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := q.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("发送 HTTP 请求失败: %w", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("读取响应体失败: %w", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		return nil, &StatusError{
			StatusCode: httpResp.StatusCode,
			Body:       tracing.TruncateString(string(respBody), tracing.DefaultMaxLength),
		}
	}

	var parsed chatCompletionResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("反序列化 API 响应失败: %w", err)
	}

	logger.Component("llm").Debug().
		Str("model", parsed.Model).
		Int("total_tokens", parsed.Usage.TotalTokens).
		Msg("收到模型响应")
	return &parsed, nil
}

// Stream 流式输出暂不支持
func (q *QwenChatModel) Stream(ctx context.Context, messages []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("QwenChatModel 不支持流式输出")
}

var _ model.BaseChatModel = (*QwenChatModel)(nil)
