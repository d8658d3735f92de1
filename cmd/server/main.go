package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloudwego/hertz/pkg/app/server"
	glog "github.com/cloudwego/hertz/pkg/common/hlog"
	hertzadapter "github.com/hertz-contrib/logger/zerolog"
	hertztracing "github.com/hertz-contrib/obs-opentelemetry/tracing"
	"github.com/spf13/pflag"

	"resume-matcher/internal/api/handler"
	"resume-matcher/internal/api/router"
	"resume-matcher/internal/config"
	appLogger "resume-matcher/internal/logger"
	"resume-matcher/internal/metrics"
	"resume-matcher/internal/service"
	"resume-matcher/internal/tracing"
)

const serviceName = "resume-matcher"

func main() {
	var configPath string
	pflag.StringVarP(&configPath, "config", "c", "internal/config/config.yaml", "配置文件路径")
	pflag.Parse()

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		appLogger.Fatal().Err(err).Str("path", configPath).Msg("加载配置失败")
	}

	if err := appLogger.Init(appLogger.Config{
		Level:        cfg.Logger.Level,
		Format:       cfg.Logger.Format,
		TimeFormat:   cfg.Logger.TimeFormat,
		ReportCaller: cfg.Logger.ReportCaller,
		File:         cfg.Logger.File,
	}); err != nil {
		appLogger.Warn().Err(err).Msg("日志文件不可用，仅输出到控制台")
	}
	glog.SetLogger(hertzadapter.From(appLogger.Logger))
	if cfg.Logger.Level == "debug" {
		glog.SetLevel(glog.LevelDebug)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Tracing.ServiceName == "" {
		cfg.Tracing.ServiceName = serviceName
	}
	shutdownTracing, err := tracing.InitProvider(ctx, tracing.ProviderConfig{
		Endpoint:    cfg.Tracing.Endpoint,
		ServiceName: cfg.Tracing.ServiceName,
		Insecure:    cfg.Tracing.Insecure,
	})
	if err != nil {
		appLogger.Warn().Err(err).Msg("初始化链路追踪失败，继续运行")
	}

	resumeService, closeService, err := service.NewFromConfig(ctx, cfg)
	if err != nil {
		appLogger.Fatal().Err(err).Msg("初始化简历服务失败")
	}
	status := resumeService.Status()
	appLogger.Info().
		Bool("llm_available", status.GenerativeAvailable).
		Bool("redis_enabled", status.RedisEnabled).
		Bool("archive_enabled", status.ArchiveEnabled).
		Msg("简历服务初始化成功")

	metricsServer := startMetricsServer(cfg.Metrics.Address)

	maxUploadBytes := int64(cfg.Server.MaxUploadMB) << 20
	tracer, tracerCfg := hertztracing.NewServerTracer()
	h := server.New(
		server.WithHostPorts(cfg.Server.Address),
		server.WithHandleMethodNotAllowed(true),
		// multipart 头部需要额外余量
		server.WithMaxRequestBodySize(int(maxUploadBytes)+1<<20),
		tracer,
	)
	h.Use(hertztracing.ServerMiddleware(tracerCfg))

	router.RegisterRoutes(h, handler.NewResumeHandler(resumeService, maxUploadBytes), router.Options{
		APIKey: cfg.Server.APIKey,
	})
	appLogger.Info().Str("address", cfg.Server.Address).Bool("auth", cfg.Server.APIKey != "").Msg("HTTP 服务器启动中")

	go func() {
		if err := h.Run(); err != nil {
			appLogger.Fatal().Err(err).Msg("启动HTTP服务器失败")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.Info().Msg("接收到终止信号，正在优雅退出...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := h.Shutdown(shutdownCtx); err != nil {
		appLogger.Error().Err(err).Msg("HTTP服务器关闭失败")
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			appLogger.Error().Err(err).Msg("指标服务关闭失败")
		}
	}
	if err := closeService(); err != nil {
		appLogger.Error().Err(err).Msg("关闭缓存连接失败")
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		appLogger.Error().Err(err).Msg("刷新链路追踪数据失败")
	}
	appLogger.Info().Msg("优雅退出完成")
}

// startMetricsServer 在独立端口暴露 /metrics，地址为空时不启动
func startMetricsServer(address string) *http.Server {
	if address == "" {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{
		Addr:              address,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Error().Err(err).Str("address", address).Msg("指标服务异常退出")
		}
	}()
	appLogger.Info().Str("address", address).Msg("指标服务已启动")
	return srv
}
