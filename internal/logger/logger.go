package logger // 应用日志组件，基于zerolog

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	// Logger 全局日志实例
	Logger = log.Logger
)

// Config 日志配置
type Config struct {
	Level        string    `json:"level" yaml:"level"`                 // debug, info, warn, error
	Format       string    `json:"format" yaml:"format"`               // json 或 pretty
	TimeFormat   string    `json:"time_format" yaml:"time_format"`     // 时间戳格式
	ReportCaller bool      `json:"report_caller" yaml:"report_caller"` // 是否输出调用位置
	File         string    `json:"file" yaml:"file"`                   // 额外写入的日志文件，为空则只输出到控制台
	Out          io.Writer `json:"-" yaml:"-"`                         // 控制台输出，默认 os.Stdout
}

// Init 按配置初始化全局日志。日志文件无法打开时返回错误，控制台输出仍然生效
func Init(config Config) error {
	level, err := zerolog.ParseLevel(config.Level)
	if err != nil || config.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if config.TimeFormat == "" {
		zerolog.TimeFieldFormat = time.RFC3339
	} else {
		zerolog.TimeFieldFormat = config.TimeFormat
	}

	out := config.Out
	if out == nil {
		out = os.Stdout
	}
	console := out
	if config.Format == "pretty" {
		console = zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: config.TimeFormat,
		}
	}

	output := console
	var fileErr error
	if config.File != "" {
		if f, err := openLogFile(config.File); err != nil {
			fileErr = err
		} else {
			output = zerolog.MultiLevelWriter(console, f)
		}
	}

	ctxLogger := zerolog.New(output).Level(level).With().Timestamp()
	if config.ReportCaller {
		ctxLogger = ctxLogger.Caller()
	}

	Logger = ctxLogger.Logger()
	log.Logger = Logger
	return fileErr
}

func openLogFile(path string) (*os.File, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("创建日志目录失败: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("无法打开日志文件 %s: %w", path, err)
	}
	return f, nil
}

// Component 返回带 component 字段的子日志器
func Component(name string) *zerolog.Logger {
	l := Logger.With().Str("component", name).Logger()
	return &l
}

// Debug 开始一条调试级别的日志事件
func Debug() *zerolog.Event {
	return Logger.Debug()
}

// Info 开始一条信息级别的日志事件
func Info() *zerolog.Event {
	return Logger.Info()
}

// Warn 开始一条警告级别的日志事件
func Warn() *zerolog.Event {
	return Logger.Warn()
}

// Error 开始一条错误级别的日志事件
func Error() *zerolog.Event {
	return Logger.Error()
}

// Fatal 记录后程序退出
func Fatal() *zerolog.Event {
	return Logger.Fatal()
}

// Ctx 从上下文中获取日志记录器，上下文中没有时返回全局实例
func Ctx(ctx context.Context) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l != nil && l.GetLevel() != zerolog.Disabled {
		return l
	}
	return &Logger
}

// WithContext 将全局日志记录器放入上下文
func WithContext(ctx context.Context) context.Context {
	return Logger.WithContext(ctx)
}
