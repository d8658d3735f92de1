package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"reflect"
	"strings"
	"sync"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/go-playground/validator/v10"

	"resume-matcher/internal/logger"
	"resume-matcher/internal/parser"
	"resume-matcher/internal/service"
	"resume-matcher/internal/types"
)

// DefaultMaxUploadBytes 上传文件大小上限
const DefaultMaxUploadBytes = 10 << 20

// ResumeService 处理器依赖的应用服务
type ResumeService interface {
	ExtractText(ctx context.Context, text string) (types.ExtractionResult, error)
	UploadResume(ctx context.Context, filename string, reader io.Reader, size int64) (*types.ResumeRecord, error)
	GetResume(ctx context.Context, resumeID string) (*types.ResumeRecord, error)
	Match(ctx context.Context, resumeID, jobDescription string) (types.MatchResult, error)
	MatchText(ctx context.Context, text, jobDescription string) (types.MatchResult, error)
	ClearCache(ctx context.Context)
	Status() service.Status
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// getValidator 返回使用json字段名报告错误的校验器
func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// ExtractRequest 文本提取请求
type ExtractRequest struct {
	Text string `json:"text" validate:"required"`
}

// MatchRequest 匹配请求，resume_id 与 resume_text 二选一，同时提供时以 resume_id 为准
type MatchRequest struct {
	ResumeID       string `json:"resume_id" validate:"required_without=ResumeText"`
	ResumeText     string `json:"resume_text" validate:"required_without=ResumeID"`
	JobDescription string `json:"job_description" validate:"required"`
}

// UploadResponse 简历上传响应
type UploadResponse struct {
	ResumeID  string                 `json:"resume_id"`
	Filename  string                 `json:"filename"`
	ObjectKey string                 `json:"object_key,omitempty"`
	Info      types.ExtractionResult `json:"info"`
}

// MatchResponse 匹配响应，附带推荐等级的中文名称
type MatchResponse struct {
	types.MatchResult
	RecommendationLabel string `json:"recommendation_label"`
}

// ResumeHandler 简历相关的HTTP处理器
type ResumeHandler struct {
	svc            ResumeService
	maxUploadBytes int64
}

// NewResumeHandler 创建处理器，maxUploadBytes 非正时使用默认值
func NewResumeHandler(svc ResumeService, maxUploadBytes int64) *ResumeHandler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = DefaultMaxUploadBytes
	}
	return &ResumeHandler{svc: svc, maxUploadBytes: maxUploadBytes}
}

// Upload 处理 multipart 简历上传，表单字段为 file
func (h *ResumeHandler) Upload(c context.Context, ctx *app.RequestContext) {
	fileHeader, err := ctx.FormFile("file")
	if err != nil {
		ctx.JSON(consts.StatusBadRequest, utils.H{"error": "文件未找到"})
		return
	}
	if fileHeader.Size > h.maxUploadBytes {
		ctx.JSON(consts.StatusRequestEntityTooLarge, utils.H{"error": "文件超过大小限制"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		ctx.JSON(consts.StatusInternalServerError, utils.H{"error": "打开文件失败"})
		return
	}
	defer file.Close()

	record, err := h.svc.UploadResume(c, fileHeader.Filename, file, fileHeader.Size)
	if err != nil {
		h.fail(c, ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, UploadResponse{
		ResumeID:  record.ID,
		Filename:  record.Filename,
		ObjectKey: record.ObjectKey,
		Info:      record.Info,
	})
}

// GetResume 返回已上传的简历记录
func (h *ResumeHandler) GetResume(c context.Context, ctx *app.RequestContext) {
	record, err := h.svc.GetResume(c, ctx.Param("id"))
	if err != nil {
		h.fail(c, ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, record)
}

// Extract 从请求中的文本提取简历信息
func (h *ResumeHandler) Extract(c context.Context, ctx *app.RequestContext) {
	var req ExtractRequest
	if !bindAndValidate(ctx, &req) {
		return
	}
	result, err := h.svc.ExtractText(c, req.Text)
	if err != nil {
		h.fail(c, ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, result)
}

// Match 计算简历与岗位描述的匹配结果
func (h *ResumeHandler) Match(c context.Context, ctx *app.RequestContext) {
	var req MatchRequest
	if !bindAndValidate(ctx, &req) {
		return
	}

	var (
		result types.MatchResult
		err    error
	)
	if strings.TrimSpace(req.ResumeID) != "" {
		result, err = h.svc.Match(c, req.ResumeID, req.JobDescription)
	} else {
		result, err = h.svc.MatchText(c, req.ResumeText, req.JobDescription)
	}
	if err != nil {
		h.fail(c, ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, MatchResponse{
		MatchResult:         result,
		RecommendationLabel: result.Recommendation.Label(),
	})
}

// ClearCache 清空结果缓存
func (h *ResumeHandler) ClearCache(c context.Context, ctx *app.RequestContext) {
	h.svc.ClearCache(c)
	ctx.JSON(consts.StatusOK, utils.H{"status": "ok"})
}

// Health 报告服务与依赖状态
func (h *ResumeHandler) Health(_ context.Context, ctx *app.RequestContext) {
	status := h.svc.Status()
	ctx.JSON(consts.StatusOK, utils.H{
		"status":          "ok",
		"llm_available":   status.GenerativeAvailable,
		"redis_enabled":   status.RedisEnabled,
		"archive_enabled": status.ArchiveEnabled,
	})
}

func (h *ResumeHandler) fail(c context.Context, ctx *app.RequestContext, err error) {
	status := StatusFor(err)
	if status >= consts.StatusInternalServerError {
		logger.Ctx(c).Error().Err(err).Str("path", string(ctx.Path())).Msg("请求处理失败")
		ctx.JSON(status, utils.H{"error": "服务内部错误"})
		return
	}
	ctx.JSON(status, utils.H{"error": err.Error()})
}

// StatusFor 将服务层错误映射为HTTP状态码
func StatusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrResumeNotFound):
		return consts.StatusNotFound
	case errors.Is(err, service.ErrEmptyText),
		errors.Is(err, service.ErrEmptyJobDescription),
		errors.Is(err, service.ErrUnsupportedFile):
		return consts.StatusBadRequest
	case errors.Is(err, parser.ErrNotPDF),
		errors.Is(err, parser.ErrEmptyDocument):
		return consts.StatusUnprocessableEntity
	default:
		return consts.StatusInternalServerError
	}
}

// bindAndValidate 解析JSON请求体并校验，失败时写入400响应
func bindAndValidate(ctx *app.RequestContext, req any) bool {
	if err := json.Unmarshal(ctx.Request.Body(), req); err != nil {
		ctx.JSON(consts.StatusBadRequest, utils.H{"error": "请求体不是有效的JSON"})
		return false
	}
	if err := getValidator().Struct(req); err != nil {
		fields := map[string]string{}
		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			for _, fe := range ve {
				fields[fe.Field()] = fe.Tag()
			}
		}
		ctx.JSON(consts.StatusBadRequest, utils.H{"error": "请求参数无效", "fields": fields})
		return false
	}
	return true
}
