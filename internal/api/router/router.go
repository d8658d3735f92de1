package router

import (
	"context"
	"crypto/subtle"
	"errors"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/google/uuid"
	"github.com/hertz-contrib/keyauth"

	"resume-matcher/internal/api/handler"
	"resume-matcher/internal/logger"
)

// HeaderRequestID 请求ID头
const HeaderRequestID = "X-Request-ID"

var errInvalidAPIKey = errors.New("API Key无效")

// Options 路由配置
type Options struct {
	// APIKey 非空时除健康检查外的接口需要 Authorization: Bearer <key>
	APIKey string
}

// RegisterRoutes 注册 API 路由
func RegisterRoutes(h *server.Hertz, resumeHandler *handler.ResumeHandler, opts Options) {
	h.Use(RequestID(), AccessLog())

	public := h.Group("/api/v1")
	public.GET("/health", resumeHandler.Health)

	var middlewares []app.HandlerFunc
	if opts.APIKey != "" {
		middlewares = append(middlewares, APIKeyAuth(opts.APIKey))
	}
	api := h.Group("/api/v1", middlewares...)
	api.POST("/resume/upload", resumeHandler.Upload)
	api.GET("/resume/:id", resumeHandler.GetResume)
	api.POST("/extract", resumeHandler.Extract)
	api.POST("/match", resumeHandler.Match)
	api.POST("/cache/clear", resumeHandler.ClearCache)
}

// RequestID 为每个请求分配ID，写入响应头并放入日志上下文
func RequestID() app.HandlerFunc {
	return func(c context.Context, ctx *app.RequestContext) {
		id := string(ctx.GetHeader(HeaderRequestID))
		if id == "" {
			id = uuid.NewString()
		}
		ctx.Response.Header.Set(HeaderRequestID, id)
		ctx.Set("request_id", id)

		l := logger.Logger.With().Str("request_id", id).Logger()
		ctx.Next(l.WithContext(c))
	}
}

// AccessLog 记录请求方法、路径、状态码和耗时
func AccessLog() app.HandlerFunc {
	return func(c context.Context, ctx *app.RequestContext) {
		start := time.Now()
		ctx.Next(c)
		logger.Ctx(c).Info().
			Str("method", string(ctx.Method())).
			Str("path", string(ctx.Path())).
			Int("status", ctx.Response.StatusCode()).
			Dur("latency", time.Since(start)).
			Msg("HTTP请求")
	}
}

// APIKeyAuth Bearer API Key 认证
func APIKeyAuth(apiKey string) app.HandlerFunc {
	expected := []byte(apiKey)
	return keyauth.New(
		keyauth.WithValidator(func(_ context.Context, _ *app.RequestContext, key string) (bool, error) {
			if subtle.ConstantTimeCompare([]byte(key), expected) == 1 {
				return true, nil
			}
			return false, errInvalidAPIKey
		}),
		keyauth.WithErrorHandler(func(_ context.Context, ctx *app.RequestContext, err error) {
			ctx.AbortWithStatusJSON(consts.StatusUnauthorized, utils.H{"error": "未授权"})
		}),
	)
}
