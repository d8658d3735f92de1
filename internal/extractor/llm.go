package extractor

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/xeipuuv/gojsonschema"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"resume-matcher/internal/config"
	"resume-matcher/internal/llm"
	"resume-matcher/internal/metrics"
	"resume-matcher/internal/textutil"
	"resume-matcher/internal/tracing"
	"resume-matcher/internal/types"
)

const (
	defaultGenerateTimeout  = 30 * time.Second
	defaultMaxTokens        = 1000
	defaultSummaryMaxTokens = 300
	maxSummaryRunes         = 100 // 生成式摘要的字符上限
	defaultTemperature      = float32(0.3)
)

var extractorTracer = otel.Tracer("resume-matcher/extractor")

var (
	baseInfoSchema = mustSchema(`{
		"type": "object",
		"properties": {
			"name":    {"type": ["string", "null"]},
			"phone":   {"type": ["string", "number", "null"]},
			"email":   {"type": ["string", "null"]},
			"address": {"type": ["string", "null"]}
		}
	}`)
	optionalInfoSchema = mustSchema(`{
		"type": "object",
		"properties": {
			"job_intention":         {"type": ["string", "null"]},
			"work_experience_years": {"type": ["integer", "number", "string", "null"]},
			"education_background":  {"type": ["string", "null"]}
		}
	}`)
	skillsSchema = mustSchema(`{
		"type": "array",
		"items": {"type": "string"}
	}`)
	skillsObjectSchema = mustSchema(`{
		"type": "object",
		"required": ["skills"],
		"properties": {
			"skills": {"type": "array", "items": {"type": "string"}}
		}
	}`)

	firstInteger = regexp.MustCompile(`\d+`)

	// 模型常用来表示"没有"的占位值
	placeholderValues = map[string]struct{}{
		"null": {}, "none": {}, "nil": {}, "n/a": {}, "na": {},
		"无": {}, "暂无": {}, "未知": {}, "未提供": {}, "...": {}, "…": {}, "-": {},
	}
)

func mustSchema(src string) *gojsonschema.Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
	if err != nil {
		panic(fmt.Sprintf("无效的JSON schema: %v", err))
	}
	return s
}

// LLMExtractor 通过生成式模型完成四个提取任务，每个任务一次调用
type LLMExtractor struct {
	model            model.BaseChatModel
	timeout          time.Duration
	maxTokens        int
	summaryMaxTokens int
	temperature      float32
	promptCharLimit  int
}

// LLMOption LLM提取器配置选项
type LLMOption func(*LLMExtractor)

// WithTimeout 单次调用超时
func WithTimeout(d time.Duration) LLMOption {
	return func(e *LLMExtractor) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithMaxTokens 结构化任务的最大输出长度
func WithMaxTokens(n int) LLMOption {
	return func(e *LLMExtractor) {
		if n > 0 {
			e.maxTokens = n
		}
	}
}

// WithSummaryMaxTokens 摘要任务的最大输出长度
func WithSummaryMaxTokens(n int) LLMOption {
	return func(e *LLMExtractor) {
		if n > 0 {
			e.summaryMaxTokens = n
		}
	}
}

// WithTemperature 采样温度
func WithTemperature(t float32) LLMOption {
	return func(e *LLMExtractor) {
		e.temperature = t
	}
}

// WithPromptCharLimit 提示词中嵌入的简历前缀字符数
func WithPromptCharLimit(n int) LLMOption {
	return func(e *LLMExtractor) {
		if n > 0 {
			e.promptCharLimit = n
		}
	}
}

// NewLLMExtractor 创建生成式提取器
func NewLLMExtractor(m model.BaseChatModel, opts ...LLMOption) (*LLMExtractor, error) {
	if m == nil {
		return nil, ErrNilModel
	}
	e := &LLMExtractor{
		model:            m,
		timeout:          defaultGenerateTimeout,
		maxTokens:        defaultMaxTokens,
		summaryMaxTokens: defaultSummaryMaxTokens,
		temperature:      defaultTemperature,
		promptCharLimit:  DefaultPromptCharLimit,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// NewGenerativeCapability 根据配置在构造时确定生成式提取是否可用
func NewGenerativeCapability(cfg config.AliyunConfig) Capability {
	if !cfg.Enabled {
		return Unavailable("生成式提取已关闭")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return Unavailable("未配置 ALIYUN_API_KEY")
	}

	timeout := cfg.LLMTimeout()
	qwen, err := llm.NewQwenChatModel(cfg.APIKey, cfg.Model, cfg.APIURL,
		llm.WithRequestTimeout(timeout),
		llm.WithDefaultTemperature(cfg.Temperature),
		llm.WithDefaultMaxTokens(cfg.MaxTokens),
	)
	if err != nil {
		return Unavailable(fmt.Sprintf("创建LLM客户端失败: %v", err))
	}

	var chatModel model.BaseChatModel = qwen
	if cfg.QPM > 0 {
		chatModel = llm.NewRateLimitedModel(qwen, cfg.QPM).
			WithRetryPolicy(time.Duration(cfg.RetryWaitSeconds)*time.Second, cfg.MaxRetries)
	}

	extractor, err := NewLLMExtractor(chatModel,
		WithTimeout(timeout),
		WithMaxTokens(cfg.MaxTokens),
		WithSummaryMaxTokens(cfg.SummaryMaxTokens),
		WithTemperature(cfg.Temperature),
		WithPromptCharLimit(cfg.PromptCharLimit),
	)
	if err != nil {
		return Unavailable(err.Error())
	}
	return Available(extractor)
}

// ExtractBaseInfo 提取基础信息，电话与邮箱按规则提取器的规则归一化
func (e *LLMExtractor) ExtractBaseInfo(ctx context.Context, text string) Outcome[types.BaseInfo] {
	content, err := e.generate(ctx, TaskBaseInfo, text, e.maxTokens)
	if err != nil {
		return Failed[types.BaseInfo](err)
	}
	var raw map[string]any
	if err := decodeFragment(content, '{', '}', baseInfoSchema, &raw); err != nil {
		return Failed[types.BaseInfo](err)
	}

	info := types.BaseInfo{
		Name:    types.StringPtr(stringField(raw, "name")),
		Phone:   types.StringPtr(textutil.NormalizePhone(stringField(raw, "phone"))),
		Email:   types.StringPtr(textutil.NormalizeEmail(stringField(raw, "email"))),
		Address: types.StringPtr(stringField(raw, "address")),
	}
	return Ok(info)
}

// ExtractOptionalInfo 提取可选信息，工作年限接受数字或数字字符串
func (e *LLMExtractor) ExtractOptionalInfo(ctx context.Context, text string) Outcome[types.OptionalInfo] {
	content, err := e.generate(ctx, TaskOptionalInfo, text, e.maxTokens)
	if err != nil {
		return Failed[types.OptionalInfo](err)
	}
	var raw map[string]any
	if err := decodeFragment(content, '{', '}', optionalInfoSchema, &raw); err != nil {
		return Failed[types.OptionalInfo](err)
	}

	info := types.OptionalInfo{
		JobIntention:        types.StringPtr(stringField(raw, "job_intention")),
		WorkExperienceYears: yearsField(raw["work_experience_years"]),
		EducationBackground: types.StringPtr(stringField(raw, "education_background")),
	}
	return Ok(info)
}

// ExtractSkills 提取技能数组；响应以对象开头时先尝试 {"skills": [...]}
func (e *LLMExtractor) ExtractSkills(ctx context.Context, text string) Outcome[[]string] {
	content, err := e.generate(ctx, TaskSkills, text, e.maxTokens)
	if err != nil {
		return Failed[[]string](err)
	}
	content = cleanResponse(content)

	obj, arr := strings.IndexByte(content, '{'), strings.IndexByte(content, '[')
	if obj != -1 && (arr == -1 || obj < arr) {
		var wrapped struct {
			Skills []string `json:"skills"`
		}
		if err := decodeFragment(content, '{', '}', skillsObjectSchema, &wrapped); err == nil {
			return Ok(dedupeSkills(wrapped.Skills))
		}
	}

	var skills []string
	if err := decodeFragment(content, '[', ']', skillsSchema, &skills); err != nil {
		return Failed[[]string](err)
	}
	return Ok(dedupeSkills(skills))
}

// Summarize 生成纯文本摘要
func (e *LLMExtractor) Summarize(ctx context.Context, text string) Outcome[string] {
	content, err := e.generate(ctx, TaskSummary, text, e.summaryMaxTokens)
	if err != nil {
		return Failed[string](err)
	}
	summary := strings.Trim(cleanResponse(content), "\"“” \n")
	if summary == "" {
		return Failed[string](ErrEmptyResponse)
	}
	return Ok(textutil.TruncateRunes(summary, maxSummaryRunes))
}

// generate 在超时内完成一次模型调用，返回原始文本
func (e *LLMExtractor) generate(ctx context.Context, task Task, text string, maxTokens int) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	ctx, span := extractorTracer.Start(ctx, "extractor.generate")
	defer span.End()
	span.SetAttributes(
		attribute.String("extract.task", string(task)),
		attribute.Int("extract.text_length", len(text)),
	)

	messages := []*schema.Message{
		schema.SystemMessage(systemPrompt),
		schema.UserMessage(buildPrompt(task, text, e.promptCharLimit)),
	}

	start := time.Now()
	resp, err := e.model.Generate(ctx, messages,
		model.WithMaxTokens(maxTokens),
		model.WithTemperature(e.temperature),
	)
	outcome := "success"
	defer func() {
		metrics.LLMRequestDuration.WithLabelValues(string(task), outcome).Observe(time.Since(start).Seconds())
	}()

	if err != nil {
		outcome = "error"
		tracing.RecordError(span, err, tracing.ErrorTypeLLM)
		return "", fmt.Errorf("调用LLM失败(%s): %w", task, err)
	}
	if resp == nil || strings.TrimSpace(resp.Content) == "" {
		outcome = "empty"
		tracing.RecordError(span, ErrEmptyResponse, tracing.ErrorTypeLLM)
		return "", ErrEmptyResponse
	}
	span.SetAttributes(attribute.Int("extract.response_length", len(resp.Content)))
	return resp.Content, nil
}

// stringField 读取字符串字段，数字按十进制文本处理，占位值视为缺失
func stringField(raw map[string]any, key string) string {
	var s string
	switch v := raw[key].(type) {
	case string:
		s = v
	case float64:
		s = strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
	s = strings.TrimSpace(s)
	if _, ok := placeholderValues[strings.ToLower(s)]; ok {
		return ""
	}
	return s
}

// maxExperienceYears 超过该值的工作年限视为无效输出
const maxExperienceYears = 80

// yearsField 将数字或含数字的字符串转为[0, maxExperienceYears]内的整数，超出上限返回nil
func yearsField(v any) *int {
	switch val := v.(type) {
	case float64:
		if val < 0 {
			return types.IntPtr(0)
		}
		if val > maxExperienceYears {
			return nil
		}
		return types.IntPtr(int(val))
	case string:
		m := firstInteger.FindString(val)
		if m == "" {
			return nil
		}
		n, err := strconv.Atoi(m)
		if err != nil || n > maxExperienceYears {
			return nil
		}
		return types.IntPtr(n)
	default:
		return nil
	}
}

// dedupeSkills 去除空白项并按首次出现去重(大小写不敏感)
func dedupeSkills(skills []string) []string {
	out := make([]string, 0, len(skills))
	seen := make(map[string]struct{}, len(skills))
	for _, s := range skills {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, ok := placeholderValues[strings.ToLower(s)]; ok {
			continue
		}
		key := strings.ToLower(s)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, s)
	}
	return out
}

var _ Generative = (*LLMExtractor)(nil)
