package service

import (
	"context"
	"errors"
	"time"

	"resume-matcher/internal/cache"
	"resume-matcher/internal/config"
	"resume-matcher/internal/extractor"
	"resume-matcher/internal/logger"
	"resume-matcher/internal/matcher"
	"resume-matcher/internal/parser"
	"resume-matcher/internal/storage"
	"resume-matcher/internal/vocab"
)

// NewFromConfig 按配置组装提取流水线、匹配引擎、缓存、PDF解析与归档。
// 返回的关闭函数释放Redis连接
func NewFromConfig(ctx context.Context, cfg *config.Config) (*ResumeService, func() error, error) {
	log := logger.Component("wire")

	skills := vocab.Default().Extend(cfg.Vocabulary.ExtraSkills...)
	jobTerms := skills.Extend(cfg.Vocabulary.JobExtraTerms...)
	if cfg.Vocabulary.IncludeEmploymentTerms {
		jobTerms = jobTerms.Extend(vocab.EmploymentTerms...)
	}

	pipeline := extractor.NewPipeline(
		extractor.NewGenerativeCapability(cfg.Aliyun),
		extractor.NewRuleExtractor(skills),
		extractor.WithKeywordTopN(cfg.Extraction.KeywordTopN),
	)
	engine := matcher.NewEngine(skills, matcher.WithJobVocabulary(jobTerms))
	resultCache := cache.NewManagerFromConfig(cfg.Cache, cfg.Redis)

	pdfExtractor, err := parser.NewEinoPDFTextExtractor(ctx, parser.WithEinoLogger(logger.Component("pdf")))
	if err != nil {
		_ = resultCache.Close()
		return nil, nil, err
	}

	opts := []Option{
		WithPDFExtractor(pdfExtractor),
		WithTTLs(TTLs{
			Extract: config.GetDuration(cfg.Cache.ExtractTTL, 0),
			Match:   config.GetDuration(cfg.Cache.MatchTTL, time.Hour),
			Resume:  config.GetDuration(cfg.Cache.ResumeTTL, 0),
		}),
	}

	archive, err := storage.NewMinIOArchive(ctx, cfg.MinIO)
	switch {
	case errors.Is(err, storage.ErrArchiveDisabled):
		log.Info().Msg("未启用MinIO归档")
	case err != nil:
		// 归档是可选能力，连接失败时继续提供提取与匹配
		log.Warn().Err(err).Str("endpoint", cfg.MinIO.Endpoint).Msg("MinIO不可用，跳过原件归档")
	default:
		opts = append(opts, WithArchive(archive))
	}

	return NewResumeService(pipeline, engine, resultCache, opts...), resultCache.Close, nil
}
