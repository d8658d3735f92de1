// Package extractor 实现简历信息的混合提取：优先调用生成式模型，结果不可用时回退到规则提取
package extractor

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"

	"resume-matcher/internal/logger"
	"resume-matcher/internal/metrics"
	"resume-matcher/internal/textutil"
	"resume-matcher/internal/types"
)

const (
	sourceGenerative    = "generative"
	sourceDeterministic = "deterministic"
)

// Pipeline 混合提取流水线。只持有不可变配置，可并发使用
type Pipeline struct {
	capability Capability
	rules      *RuleExtractor
	ranker     *textutil.KeywordRanker
	topN       int
}

// PipelineOption 流水线配置选项
type PipelineOption func(*Pipeline)

// WithKeywordTopN 关键词数量
func WithKeywordTopN(n int) PipelineOption {
	return func(p *Pipeline) {
		if n > 0 {
			p.topN = n
		}
	}
}

// WithKeywordRanker 替换关键词排序器
func WithKeywordRanker(r *textutil.KeywordRanker) PipelineOption {
	return func(p *Pipeline) {
		if r != nil {
			p.ranker = r
		}
	}
}

// NewPipeline 创建混合提取流水线
func NewPipeline(capability Capability, rules *RuleExtractor, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		capability: capability,
		rules:      rules,
		topN:       textutil.DefaultTopN,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.ranker == nil {
		p.ranker = textutil.NewKeywordRanker(nil)
	}

	if _, ok := capability.Generative(); ok {
		logger.Component("extractor").Info().Msg("生成式提取可用")
	} else {
		logger.Component("extractor").Warn().Str("reason", capability.Reason()).Msg("生成式提取不可用，仅使用规则提取")
	}
	return p
}

// GenerativeAvailable 生成式提取是否可用
func (p *Pipeline) GenerativeAvailable() bool {
	_, ok := p.capability.Generative()
	return ok
}

// ExtractAll 归一化文本后并发执行四个提取任务和关键词排序，全部完成后组装结果
func (p *Pipeline) ExtractAll(ctx context.Context, text string) types.ExtractionResult {
	resumeText := textutil.Normalize(text)
	log := logger.Ctx(ctx).With().Str("component", "extractor").Int("text_length", len(resumeText)).Logger()
	ctx = log.WithContext(ctx)

	var result types.ExtractionResult
	var g errgroup.Group

	g.Go(func() error {
		result.BaseInfo = runTask(ctx, p, TaskBaseInfo,
			func(gen Generative) Outcome[types.BaseInfo] { return gen.ExtractBaseInfo(ctx, resumeText) },
			types.BaseInfo.HasContact,
			func() types.BaseInfo { return p.rules.ExtractBaseInfo(resumeText) },
		)
		return nil
	})
	g.Go(func() error {
		result.OptionalInfo = runTask(ctx, p, TaskOptionalInfo,
			func(gen Generative) Outcome[types.OptionalInfo] { return gen.ExtractOptionalInfo(ctx, resumeText) },
			types.OptionalInfo.HasSignal,
			func() types.OptionalInfo { return p.rules.ExtractOptionalInfo(resumeText) },
		)
		return nil
	})
	g.Go(func() error {
		result.Skills = runTask(ctx, p, TaskSkills,
			func(gen Generative) Outcome[[]string] { return gen.ExtractSkills(ctx, resumeText) },
			func(skills []string) bool { return len(skills) > 0 },
			func() []string { return p.rules.ExtractSkills(resumeText) },
		)
		return nil
	})
	g.Go(func() error {
		result.Summary = runTask(ctx, p, TaskSummary,
			func(gen Generative) Outcome[*string] {
				outcome := gen.Summarize(ctx, resumeText)
				summary, ok := outcome.Get()
				if !ok {
					return Failed[*string](outcome.Reason())
				}
				return Ok(types.StringPtr(strings.TrimSpace(summary)))
			},
			func(s *string) bool { return s != nil && strings.TrimSpace(*s) != "" },
			func() *string { return p.rules.Summarize(resumeText) },
		)
		return nil
	})
	g.Go(func() error {
		result.Keywords = p.ranker.Rank(resumeText, p.topN)
		return nil
	})

	// 各任务内部处理所有失败，不会返回错误
	_ = g.Wait()

	if result.Skills == nil {
		result.Skills = []string{}
	}
	log.Info().
		Bool("has_contact", result.BaseInfo.HasContact()).
		Int("skills", len(result.Skills)).
		Int("keywords", len(result.Keywords)).
		Msg("简历信息提取完成")
	return result
}

// runTask 单个任务的回退链：生成式结果非空才采用，否则使用规则结果
func runTask[T any](
	ctx context.Context,
	p *Pipeline,
	task Task,
	attempt func(Generative) Outcome[T],
	accept func(T) bool,
	fallback func() T,
) T {
	log := logger.Ctx(ctx)

	if gen, ok := p.capability.Generative(); ok {
		outcome := attempt(gen)
		value, ok := outcome.Get()
		switch {
		case !ok:
			metrics.GenerativeFailuresTotal.WithLabelValues(string(task), "error").Inc()
			log.Warn().Err(outcome.Reason()).Str("task", string(task)).Msg("生成式提取失败，回退到规则提取")
		case !accept(value):
			metrics.GenerativeFailuresTotal.WithLabelValues(string(task), "rejected").Inc()
			log.Warn().Str("task", string(task)).Msg("生成式提取结果为空，回退到规则提取")
		default:
			metrics.ExtractionSourceTotal.WithLabelValues(string(task), sourceGenerative).Inc()
			log.Debug().Str("task", string(task)).Str("source", sourceGenerative).Msg("提取任务完成")
			return value
		}
	}

	metrics.ExtractionSourceTotal.WithLabelValues(string(task), sourceDeterministic).Inc()
	log.Debug().Str("task", string(task)).Str("source", sourceDeterministic).Msg("提取任务完成")
	return fallback()
}
