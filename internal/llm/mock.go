package llm

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// MockResponse 模拟的一次响应
type MockResponse struct {
	Content string
	Error   error
}

// Responder 根据收到的消息决定响应
type Responder func(messages []*schema.Message) MockResponse

// MockChatModel 用于测试的 model.BaseChatModel，可并发调用
type MockChatModel struct {
	mu        sync.Mutex
	responder Responder
	calls     [][]*schema.Message
	options   []*model.Options
}

// NewMockChatModel 使用自定义 Responder 创建模拟模型
func NewMockChatModel(responder Responder) *MockChatModel {
	return &MockChatModel{responder: responder}
}

// NewFixedMockChatModel 每次调用都返回相同内容
func NewFixedMockChatModel(content string, err error) *MockChatModel {
	return NewMockChatModel(func([]*schema.Message) MockResponse {
		return MockResponse{Content: content, Error: err}
	})
}

// NewKeywordMockChatModel 根据最后一条消息中包含的关键字选择响应，未命中时返回错误
func NewKeywordMockChatModel(responses map[string]MockResponse) *MockChatModel {
	return NewMockChatModel(func(messages []*schema.Message) MockResponse {
		if len(messages) == 0 {
			return MockResponse{Error: errors.New("mock: 没有收到消息")}
		}
		prompt := messages[len(messages)-1].Content
		for keyword, resp := range responses {
			if strings.Contains(prompt, keyword) {
				return resp
			}
		}
		return MockResponse{Error: errors.New("mock: 没有匹配的预设响应")}
	})
}

// Generate 记录调用并返回预设响应
func (m *MockChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	received := make([]*schema.Message, len(input))
	copy(received, input)

	m.mu.Lock()
	m.calls = append(m.calls, received)
	m.options = append(m.options, model.GetCommonOptions(&model.Options{}, opts...))
	m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	resp := m.responder(input)
	if resp.Error != nil {
		return nil, resp.Error
	}
	return schema.AssistantMessage(resp.Content, nil), nil
}

// Stream 模拟模型不支持流式输出
func (m *MockChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("streaming not implemented in MockChatModel")
}

// CallCount 返回Generate被调用的次数
func (m *MockChatModel) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// Calls 返回所有调用收到的消息
func (m *MockChatModel) Calls() [][]*schema.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]*schema.Message, len(m.calls))
	copy(out, m.calls)
	return out
}

// Options 返回所有调用解析后的通用选项
func (m *MockChatModel) Options() []*model.Options {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*model.Options, len(m.options))
	copy(out, m.options)
	return out
}

var _ model.BaseChatModel = (*MockChatModel)(nil)
