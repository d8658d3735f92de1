package extractor

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resume-matcher/internal/config"
	"resume-matcher/internal/llm"
	"resume-matcher/internal/textutil"
	"resume-matcher/internal/vocab"
)

// whitespaceTokenizer 按空白切分，避免测试加载gse词典
type whitespaceTokenizer struct{}

func (whitespaceTokenizer) Cut(text string) ([]string, error) {
	return strings.Fields(text), nil
}

func newTestPipeline(t *testing.T, capability Capability) *Pipeline {
	t.Helper()
	return NewPipeline(capability, NewRuleExtractor(vocab.Default()),
		WithKeywordRanker(textutil.NewKeywordRanker(whitespaceTokenizer{})),
	)
}

func newMockCapability(t *testing.T, responses map[Task]llm.MockResponse) (Capability, *llm.MockChatModel) {
	t.Helper()
	byMarker := make(map[string]llm.MockResponse, len(responses))
	for task, resp := range responses {
		byMarker[TaskMarker(task)] = resp
	}
	mock := llm.NewKeywordMockChatModel(byMarker)
	gen, err := NewLLMExtractor(mock, WithTimeout(time.Second))
	require.NoError(t, err)
	return Available(gen), mock
}

func TestPipeline_GenerativeUnavailable(t *testing.T) {
	p := newTestPipeline(t, Unavailable("测试"))
	assert.False(t, p.GenerativeAvailable())

	result := p.ExtractAll(context.Background(), "姓名: 张伟 电话: 13812345678 邮箱: zhang@example.com 3年工作经验 本科")

	require.NotNil(t, result.BaseInfo.Name)
	assert.Equal(t, "张伟", *result.BaseInfo.Name)
	require.NotNil(t, result.BaseInfo.Phone)
	assert.Equal(t, "13812345678", *result.BaseInfo.Phone)
	require.NotNil(t, result.BaseInfo.Email)
	assert.Equal(t, "zhang@example.com", *result.BaseInfo.Email)
	assert.Nil(t, result.BaseInfo.Address)

	require.NotNil(t, result.OptionalInfo.WorkExperienceYears)
	assert.Equal(t, 3, *result.OptionalInfo.WorkExperienceYears)
	require.NotNil(t, result.OptionalInfo.EducationBackground)
	assert.Contains(t, *result.OptionalInfo.EducationBackground, "本科")

	assert.NotNil(t, result.Skills, "技能列表不应为nil")
	assert.NotNil(t, result.Summary, "规则摘要取前几句")
	assert.LessOrEqual(t, len(result.Keywords), textutil.DefaultTopN)
}

func TestPipeline_AllNullBaseInfoFallsBack(t *testing.T) {
	capability, mock := newMockCapability(t, map[Task]llm.MockResponse{
		TaskBaseInfo: {Content: `{"name": null, "phone": null, "email": null, "address": null}`},
	})
	p := newTestPipeline(t, capability)

	result := p.ExtractAll(context.Background(), "姓名: 张伟 电话: 13812345678")
	require.NotNil(t, result.BaseInfo.Phone, "全空的生成式结果不能覆盖规则结果")
	assert.Equal(t, "13812345678", *result.BaseInfo.Phone)
	require.NotNil(t, result.BaseInfo.Name)
	assert.Equal(t, "张伟", *result.BaseInfo.Name)
	assert.Equal(t, 4, mock.CallCount(), "四个任务各调用一次")

	result = p.ExtractAll(context.Background(), "hello world")
	assert.Nil(t, result.BaseInfo.Name)
	assert.Nil(t, result.BaseInfo.Phone)
	assert.Nil(t, result.BaseInfo.Email)
	assert.Nil(t, result.BaseInfo.Address)
}

func TestPipeline_PlaceholderContactIsRejected(t *testing.T) {
	capability, _ := newMockCapability(t, map[Task]llm.MockResponse{
		TaskBaseInfo: {Content: `{"name": "李四", "phone": "无", "email": "null", "address": null}`},
	})
	p := newTestPipeline(t, capability)

	result := p.ExtractAll(context.Background(), "电话: 13900001111")
	require.NotNil(t, result.BaseInfo.Phone)
	assert.Equal(t, "13900001111", *result.BaseInfo.Phone)
	assert.Nil(t, result.BaseInfo.Name, "整体被拒绝时不保留生成式的姓名")
}

func TestPipeline_GenerativeAccepted(t *testing.T) {
	capability, mock := newMockCapability(t, map[Task]llm.MockResponse{
		TaskBaseInfo: {Content: "```json\n" + `{"name": "李四", "phone": "138-0000-1111", "email": " LISI@Example.COM ", "address": null}` + "\n```"},
		TaskOptionalInfo: {Content: `{"job_intention": "后端开发", "work_experience_years": "5年", "education_background": null}`},
		TaskSkills:       {Content: `["Go", "go", " Kubernetes ", ""]`},
		TaskSummary:      {Content: "  资深后端工程师，熟悉云原生。 "},
	})
	p := newTestPipeline(t, capability)
	assert.True(t, p.GenerativeAvailable())

	result := p.ExtractAll(context.Background(), "李四的简历，熟悉 Python")

	require.NotNil(t, result.BaseInfo.Phone)
	assert.Equal(t, "13800001111", *result.BaseInfo.Phone, "生成式电话也只保留数字")
	require.NotNil(t, result.BaseInfo.Email)
	assert.Equal(t, "lisi@example.com", *result.BaseInfo.Email)
	require.NotNil(t, result.BaseInfo.Name)
	assert.Equal(t, "李四", *result.BaseInfo.Name)

	require.NotNil(t, result.OptionalInfo.WorkExperienceYears)
	assert.Equal(t, 5, *result.OptionalInfo.WorkExperienceYears)
	require.NotNil(t, result.OptionalInfo.JobIntention)
	assert.Equal(t, "后端开发", *result.OptionalInfo.JobIntention)

	assert.Equal(t, []string{"Go", "Kubernetes"}, result.Skills, "生成式技能不受词表限制，但去重去空")
	require.NotNil(t, result.Summary)
	assert.Equal(t, "资深后端工程师，熟悉云原生。", *result.Summary)

	var summaryTokens, otherTokens int
	for i, call := range mock.Calls() {
		opts := mock.Options()[i]
		require.NotNil(t, opts.MaxTokens)
		require.Len(t, call, 2, "系统消息加用户消息")
		assert.Equal(t, schema.System, call[0].Role)
		if strings.Contains(call[1].Content, TaskMarker(TaskSummary)) {
			summaryTokens = *opts.MaxTokens
		} else {
			otherTokens = *opts.MaxTokens
		}
	}
	assert.Equal(t, defaultSummaryMaxTokens, summaryTokens)
	assert.Equal(t, defaultMaxTokens, otherTokens)
}

func TestPipeline_TaskFailuresAreIndependent(t *testing.T) {
	capability, _ := newMockCapability(t, map[Task]llm.MockResponse{
		TaskBaseInfo:     {Content: `{"name": "王五", "phone": "13700002222", "email": null, "address": null}`},
		TaskOptionalInfo: {Error: errors.New("connection reset by peer")},
		TaskSkills:       {Content: `抱歉，我无法识别技能`},
		TaskSummary:      {Content: "   "},
	})
	p := newTestPipeline(t, capability)

	result := p.ExtractAll(context.Background(), "工作年限: 6\n熟悉 Docker 与 Kubernetes。负责运维平台建设")

	require.NotNil(t, result.BaseInfo.Name)
	assert.Equal(t, "王五", *result.BaseInfo.Name, "基础信息使用生成式结果")
	require.NotNil(t, result.OptionalInfo.WorkExperienceYears)
	assert.Equal(t, 6, *result.OptionalInfo.WorkExperienceYears, "可选信息回退到规则提取")
	assert.Equal(t, []string{"Docker", "Kubernetes"}, result.Skills, "技能回退到词表匹配")
	require.NotNil(t, result.Summary)
	assert.Equal(t, "工作年限: 6。熟悉 Docker 与 Kubernetes。负责运维平台建设", *result.Summary)
}

// blockingModel 直到上下文结束才返回
type blockingModel struct{}

func (blockingModel) Generate(ctx context.Context, _ []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (blockingModel) Stream(ctx context.Context, _ []*schema.Message, _ ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("not implemented")
}

func TestPipeline_TimeoutFallsBack(t *testing.T) {
	gen, err := NewLLMExtractor(blockingModel{}, WithTimeout(20*time.Millisecond))
	require.NoError(t, err)

	outcome := gen.ExtractBaseInfo(context.Background(), "电话: 13900001111")
	_, ok := outcome.Get()
	assert.False(t, ok)
	assert.ErrorIs(t, outcome.Reason(), context.DeadlineExceeded, "超时应作为失败原因返回")

	p := newTestPipeline(t, Available(gen))
	start := time.Now()
	result := p.ExtractAll(context.Background(), "电话: 13900001111")
	assert.Less(t, time.Since(start), 2*time.Second, "超时后不应继续阻塞")
	require.NotNil(t, result.BaseInfo.Phone)
	assert.Equal(t, "13900001111", *result.BaseInfo.Phone, "超时后回退到规则提取")
}

func TestNewLLMExtractor_NilModel(t *testing.T) {
	_, err := NewLLMExtractor(nil)
	assert.ErrorIs(t, err, ErrNilModel)
}

func TestNewGenerativeCapability(t *testing.T) {
	disabled := NewGenerativeCapability(config.AliyunConfig{Enabled: false, APIKey: "k"})
	_, ok := disabled.Generative()
	assert.False(t, ok)
	assert.NotEmpty(t, disabled.Reason())

	noKey := NewGenerativeCapability(config.AliyunConfig{Enabled: true})
	_, ok = noKey.Generative()
	assert.False(t, ok)
	assert.Contains(t, noKey.Reason(), "ALIYUN_API_KEY")

	available := NewGenerativeCapability(config.AliyunConfig{Enabled: true, APIKey: "k", QPM: 60, TimeoutSeconds: 5})
	_, ok = available.Generative()
	assert.True(t, ok)
	assert.Empty(t, available.Reason())
}

func TestCapability_AvailableNil(t *testing.T) {
	c := Available(nil)
	_, ok := c.Generative()
	assert.False(t, ok, "nil提取器视为不可用")
}

func TestBuildPrompt_TruncatesText(t *testing.T) {
	prompt := buildPrompt(TaskSkills, "一二三四五六七", 5)
	assert.Contains(t, prompt, TaskMarker(TaskSkills))
	assert.Contains(t, prompt, "一二三四五")
	assert.NotContains(t, prompt, "六")
}

func TestLLMExtractor_SummaryCappedAt100Runes(t *testing.T) {
	long := strings.Repeat("负责分布式存储开发。", 15)
	gen, err := NewLLMExtractor(llm.NewFixedMockChatModel(long, nil))
	require.NoError(t, err)

	summary, ok := gen.Summarize(context.Background(), "简历").Get()
	require.True(t, ok)
	assert.Equal(t, 100, utf8.RuneCountInString(summary), "生成式摘要截断到100字")
	assert.True(t, strings.HasPrefix(long, summary))
}
