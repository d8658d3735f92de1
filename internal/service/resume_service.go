// Package service 组合提取、匹配、缓存与归档，提供应用层的简历操作
package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"resume-matcher/internal/cache"
	"resume-matcher/internal/constants"
	"resume-matcher/internal/extractor"
	"resume-matcher/internal/logger"
	"resume-matcher/internal/matcher"
	"resume-matcher/internal/parser"
	"resume-matcher/internal/storage"
	"resume-matcher/internal/textutil"
	"resume-matcher/internal/tracing"
	"resume-matcher/internal/types"
)

var (
	ErrEmptyText           = errors.New("简历文本为空")
	ErrEmptyJobDescription = errors.New("岗位描述为空")
	ErrResumeNotFound      = errors.New("简历不存在或已过期")
	ErrUnsupportedFile     = errors.New("仅支持PDF格式的简历")
	ErrPDFNotConfigured    = errors.New("未配置PDF提取器")
)

var tracer = otel.Tracer("resume-matcher/service")

// TTLs 各类缓存条目的有效期，非正值使用缓存默认值
type TTLs struct {
	Extract time.Duration
	Match   time.Duration
	Resume  time.Duration
}

// Status 服务依赖的可用状态
type Status struct {
	GenerativeAvailable bool `json:"llm_available"`
	RedisEnabled        bool `json:"redis_enabled"`
	ArchiveEnabled      bool `json:"archive_enabled"`
}

// ResumeService 简历应用服务，可并发使用
type ResumeService struct {
	pipeline *extractor.Pipeline
	engine   *matcher.Engine
	cache    *cache.Manager
	pdf      parser.TextExtractor
	archive  storage.Archive
	ttls     TTLs
	now      func() time.Time
	logger   *zerolog.Logger
}

// Option 服务配置选项
type Option func(*ResumeService)

// WithPDFExtractor 上传时使用的PDF文本提取器
func WithPDFExtractor(p parser.TextExtractor) Option {
	return func(s *ResumeService) {
		s.pdf = p
	}
}

// WithArchive 上传原件归档，nil表示不归档
func WithArchive(a storage.Archive) Option {
	return func(s *ResumeService) {
		s.archive = a
	}
}

// WithTTLs 设置缓存有效期
func WithTTLs(ttls TTLs) Option {
	return func(s *ResumeService) {
		s.ttls = ttls
	}
}

// WithClock 替换时间来源
func WithClock(now func() time.Time) Option {
	return func(s *ResumeService) {
		if now != nil {
			s.now = now
		}
	}
}

// NewResumeService 创建简历服务
func NewResumeService(pipeline *extractor.Pipeline, engine *matcher.Engine, resultCache *cache.Manager, opts ...Option) *ResumeService {
	if resultCache == nil {
		resultCache = cache.NewManager(nil, nil)
	}
	s := &ResumeService{
		pipeline: pipeline,
		engine:   engine,
		cache:    resultCache,
		now:      time.Now,
		logger:   logger.Component("resume_service"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Status 返回依赖状态
func (s *ResumeService) Status() Status {
	return Status{
		GenerativeAvailable: s.pipeline.GenerativeAvailable(),
		RedisEnabled:        s.cache.RedisEnabled(),
		ArchiveEnabled:      s.archive != nil,
	}
}

// PDFExtractor 返回上传使用的PDF提取器，未配置时为nil
func (s *ResumeService) PDFExtractor() parser.TextExtractor {
	return s.pdf
}

// ExtractText 提取简历信息，结果按归一化文本缓存
func (s *ResumeService) ExtractText(ctx context.Context, text string) (types.ExtractionResult, error) {
	resumeText := textutil.Normalize(text)
	if resumeText == "" {
		return types.ExtractionResult{}, ErrEmptyText
	}
	return s.extractNormalized(ctx, resumeText)
}

func (s *ResumeService) extractNormalized(ctx context.Context, resumeText string) (types.ExtractionResult, error) {
	ctx, span := tracer.Start(ctx, "ResumeService.Extract")
	defer span.End()
	span.SetAttributes(attribute.Int("resume.text_length", len(resumeText)))

	key, err := cache.GenerateKey(constants.ResumeExtractPrefix, map[string]any{
		constants.ParamText: resumeText,
	})
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeCache)
		return types.ExtractionResult{}, fmt.Errorf("生成缓存键失败: %w", err)
	}

	var result types.ExtractionResult
	if hit, err := s.cache.Get(ctx, key, &result); err == nil && hit {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		s.logger.Debug().Str("key", tracing.SafeCacheKey(key)).Msg("提取结果命中缓存")
		return result, nil
	}
	span.SetAttributes(attribute.Bool("cache.hit", false))

	result = s.pipeline.ExtractAll(ctx, resumeText)
	if err := s.cache.Set(ctx, key, result, s.ttls.Extract); err != nil {
		s.logger.Warn().Err(err).Msg("缓存提取结果失败")
	}
	span.SetStatus(codes.Ok, "")
	return result, nil
}

// UploadResume 解析上传的PDF，归档原件，提取信息并缓存简历记录
func (s *ResumeService) UploadResume(ctx context.Context, filename string, reader io.Reader, size int64) (*types.ResumeRecord, error) {
	ctx, span := tracer.Start(ctx, "ResumeService.UploadResume")
	defer span.End()
	span.SetAttributes(
		attribute.String("upload.filename", filepath.Base(filename)),
		attribute.Int64("upload.size", size),
	)

	if !parser.IsPDF(filename) {
		return nil, ErrUnsupportedFile
	}
	if s.pdf == nil {
		return nil, ErrPDFNotConfigured
	}

	// reader只能读一次，解析和归档都需要内容
	data, err := io.ReadAll(reader)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeParsing)
		return nil, fmt.Errorf("读取上传文件内容失败: %w", err)
	}

	text, err := s.pdf.ExtractTextFromReader(ctx, bytes.NewReader(data), filename)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeParsing)
		return nil, fmt.Errorf("解析PDF失败: %w", err)
	}
	resumeText := textutil.Normalize(text)
	if resumeText == "" {
		return nil, ErrEmptyText
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("生成UUIDv7失败: %w", err)
	}
	resumeID := id.String()
	span.SetAttributes(attribute.String("resume.id", resumeID))

	record := types.ResumeRecord{
		ID:         resumeID,
		Filename:   filepath.Base(filename),
		Text:       resumeText,
		UploadedAt: s.now(),
	}

	if s.archive != nil {
		objectKey, md5Hex, err := s.archive.StoreOriginal(ctx, resumeID, filename, bytes.NewReader(data), int64(len(data)))
		if err != nil {
			// 归档失败不影响提取
			s.logger.Warn().Err(err).Str("resume_id", resumeID).Msg("归档原始简历失败")
		} else {
			record.ObjectKey = objectKey
			s.logger.Debug().Str("resume_id", resumeID).Str("md5", md5Hex).Msg("原始简历已归档")
		}
	}

	info, err := s.extractNormalized(ctx, resumeText)
	if err != nil {
		return nil, err
	}
	record.Info = info

	key, err := resumeRecordKey(resumeID)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, key, record, s.ttls.Resume); err != nil {
		return nil, fmt.Errorf("保存简历记录失败: %w", err)
	}

	s.logger.Info().
		Str("resume_id", resumeID).
		Str("filename", record.Filename).
		Int("text_length", len(resumeText)).
		Str("name", tracing.MaskPtr(info.BaseInfo.Name)).
		Msg("简历上传处理完成")
	span.SetStatus(codes.Ok, "")
	return &record, nil
}

// GetResume 读取已上传的简历记录
func (s *ResumeService) GetResume(ctx context.Context, resumeID string) (*types.ResumeRecord, error) {
	resumeID = strings.TrimSpace(resumeID)
	if resumeID == "" {
		return nil, ErrResumeNotFound
	}
	key, err := resumeRecordKey(resumeID)
	if err != nil {
		return nil, err
	}

	var record types.ResumeRecord
	hit, err := s.cache.Get(ctx, key, &record)
	if err != nil {
		return nil, fmt.Errorf("读取简历记录失败: %w", err)
	}
	if !hit {
		return nil, ErrResumeNotFound
	}
	return &record, nil
}

// Match 计算已上传简历与岗位描述的匹配结果
func (s *ResumeService) Match(ctx context.Context, resumeID, jobDescription string) (types.MatchResult, error) {
	jd := strings.TrimSpace(jobDescription)
	if jd == "" {
		return types.MatchResult{}, ErrEmptyJobDescription
	}

	ctx, span := tracer.Start(ctx, "ResumeService.Match")
	defer span.End()
	span.SetAttributes(
		attribute.String("resume.id", resumeID),
		attribute.String("job.description", tracing.SafeAttributeValue("job.description", jd, tracing.DefaultMaxLength)),
	)

	key, err := cache.GenerateKey(constants.MatchPrefix, map[string]any{
		constants.ParamResumeID:       resumeID,
		constants.ParamJobDescription: jd,
	})
	if err != nil {
		return types.MatchResult{}, fmt.Errorf("生成缓存键失败: %w", err)
	}
	if result, ok := s.cachedMatch(ctx, key); ok {
		return result, nil
	}

	record, err := s.GetResume(ctx, resumeID)
	if err != nil {
		return types.MatchResult{}, err
	}
	result := s.engine.Match(types.ViewOf(record.Info, record.Text), jd)
	s.storeMatch(ctx, key, result)
	span.SetAttributes(attribute.Float64("match.total_score", result.TotalScore))
	return result, nil
}

// MatchText 直接对简历文本进行提取和匹配
func (s *ResumeService) MatchText(ctx context.Context, text, jobDescription string) (types.MatchResult, error) {
	jd := strings.TrimSpace(jobDescription)
	if jd == "" {
		return types.MatchResult{}, ErrEmptyJobDescription
	}
	resumeText := textutil.Normalize(text)
	if resumeText == "" {
		return types.MatchResult{}, ErrEmptyText
	}

	key, err := cache.GenerateKey(constants.MatchPrefix, map[string]any{
		constants.ParamResumeText:     resumeText,
		constants.ParamJobDescription: jd,
	})
	if err != nil {
		return types.MatchResult{}, fmt.Errorf("生成缓存键失败: %w", err)
	}
	if result, ok := s.cachedMatch(ctx, key); ok {
		return result, nil
	}

	info, err := s.extractNormalized(ctx, resumeText)
	if err != nil {
		return types.MatchResult{}, err
	}
	result := s.engine.Match(types.ViewOf(info, resumeText), jd)
	s.storeMatch(ctx, key, result)
	return result, nil
}

// ClearCache 清空结果缓存，已上传的简历记录也会被清除
func (s *ResumeService) ClearCache(ctx context.Context) {
	s.cache.Clear(ctx)
}

func (s *ResumeService) cachedMatch(ctx context.Context, key string) (types.MatchResult, bool) {
	var result types.MatchResult
	hit, err := s.cache.Get(ctx, key, &result)
	if err != nil || !hit {
		return types.MatchResult{}, false
	}
	s.logger.Debug().Str("key", tracing.SafeCacheKey(key)).Msg("匹配结果命中缓存")
	return result, true
}

func (s *ResumeService) storeMatch(ctx context.Context, key string, result types.MatchResult) {
	if err := s.cache.Set(ctx, key, result, s.ttls.Match); err != nil {
		s.logger.Warn().Err(err).Msg("缓存匹配结果失败")
	}
}

func resumeRecordKey(resumeID string) (string, error) {
	key, err := cache.GenerateKey(constants.ResumeRecordPrefix, map[string]any{
		constants.ParamResumeID: resumeID,
	})
	if err != nil {
		return "", fmt.Errorf("生成缓存键失败: %w", err)
	}
	return key, nil
}
