package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// AliyunConfig 通义千问(OpenAI兼容接口)配置
type AliyunConfig struct {
	Enabled          bool    `yaml:"enabled" env:"ALIYUN_ENABLED"` // 关闭时只使用规则提取
	APIKey           string  `yaml:"api_key" env:"ALIYUN_API_KEY"`
	APIURL           string  `yaml:"api_url" env:"ALIYUN_API_URL"`
	Model            string  `yaml:"model" env:"ALIYUN_MODEL"`
	TimeoutSeconds   int     `yaml:"timeout_seconds"`    // 单次调用超时(秒)
	MaxTokens        int     `yaml:"max_tokens"`         // 结构化任务的最大输出长度
	SummaryMaxTokens int     `yaml:"summary_max_tokens"` // 摘要任务的最大输出长度
	Temperature      float32 `yaml:"temperature"`
	PromptCharLimit  int     `yaml:"prompt_char_limit"` // 提示词中嵌入的简历前缀字符数
	QPM              int     `yaml:"qpm"`               // 每分钟请求数限制，0表示不限流
	MaxRetries       int     `yaml:"max_retries"`
	RetryWaitSeconds int     `yaml:"retry_wait_seconds"`
}

// ExtractionConfig 提取流水线配置
type ExtractionConfig struct {
	KeywordTopN int `yaml:"keyword_top_n"`
}

// VocabularyConfig 技能词表配置
type VocabularyConfig struct {
	ExtraSkills            []string `yaml:"extra_skills"`             // 追加到默认技能词表
	JobExtraTerms          []string `yaml:"job_extra_terms"`          // 仅用于岗位关键词提取
	IncludeEmploymentTerms bool     `yaml:"include_employment_terms"` // 岗位关键词是否包含实习/全职等用工类型
}

// CacheConfig 结果缓存配置
type CacheConfig struct {
	LocalMaxSize int    `yaml:"local_max_size"`
	DefaultTTL   string `yaml:"default_ttl"`
	ExtractTTL   string `yaml:"extract_ttl"`
	MatchTTL     string `yaml:"match_ttl"`
	ResumeTTL    string `yaml:"resume_ttl"`
}

// RedisConfig holds configuration for Redis
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled" env:"REDIS_ENABLED"`
	Address  string `yaml:"address" env:"REDIS_ADDRESS"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"REDIS_DB"`
	// 连接池设置
	PoolSize     int `yaml:"pool_size"`
	MinIdleConns int `yaml:"min_idle_conns"`
	// 超时设置
	DialTimeoutSeconds  int `yaml:"dial_timeout_seconds"`
	ReadTimeoutSeconds  int `yaml:"read_timeout_seconds"`
	WriteTimeoutSeconds int `yaml:"write_timeout_seconds"`
	MaxRetries          int `yaml:"max_retries"`
}

// MinIOConfig 原始简历归档配置
type MinIOConfig struct {
	Enabled         bool   `yaml:"enabled" env:"MINIO_ENABLED"`
	Endpoint        string `yaml:"endpoint" env:"MINIO_ENDPOINT"`
	AccessKeyID     string `yaml:"accessKeyID" env:"MINIO_ACCESS_KEY_ID"`
	SecretAccessKey string `yaml:"secretAccessKey" env:"MINIO_SECRET_ACCESS_KEY"`
	UseSSL          bool   `yaml:"useSSL"`
	BucketName      string `yaml:"bucketName"`
	Location        string `yaml:"location"`
}

// ServerConfig 定义服务器配置
type ServerConfig struct {
	Address     string `yaml:"address" env:"SERVER_ADDRESS"`
	APIKey      string `yaml:"api_key" env:"SERVER_API_KEY"` // 非空时 /api/v1 需要 Bearer 认证
	MaxUploadMB int    `yaml:"max_upload_mb"`
}

// MetricsConfig Prometheus指标暴露配置
type MetricsConfig struct {
	Address string `yaml:"address" env:"METRICS_ADDRESS"` // 为空则不启动指标服务
}

// TracingConfig OpenTelemetry配置
type TracingConfig struct {
	Endpoint    string `yaml:"endpoint" env:"OTEL_EXPORTER_OTLP_ENDPOINT"` // 为空则不导出
	ServiceName string `yaml:"service_name"`
	Insecure    bool   `yaml:"insecure"`
}

// LoggerConfig 日志配置
type LoggerConfig struct {
	Level        string `yaml:"level" env:"LOG_LEVEL"`
	Format       string `yaml:"format"`
	TimeFormat   string `yaml:"time_format"`
	ReportCaller bool   `yaml:"report_caller"`
	File         string `yaml:"file"`
}

// Config 应用程序配置
type Config struct {
	Aliyun     AliyunConfig     `yaml:"aliyun"`
	Extraction ExtractionConfig `yaml:"extraction"`
	Vocabulary VocabularyConfig `yaml:"vocabulary"`
	Cache      CacheConfig      `yaml:"cache"`
	Redis      RedisConfig      `yaml:"redis"`
	MinIO      MinIOConfig      `yaml:"minio"`
	Server     ServerConfig     `yaml:"server"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Tracing    TracingConfig    `yaml:"tracing"`
	Logger     LoggerConfig     `yaml:"logger"`
}

// LoadConfig 加载配置：默认值 -> YAML文件 -> .env/环境变量。
// configPath 为空时只使用默认值与环境变量。
func LoadConfig(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("读取.env文件失败: %w", err)
	}

	config := createDefaultConfig()

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("配置文件不存在: %s", configPath)
			}
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("解析配置文件失败: %w", err)
		}
	}

	if err := env.Parse(config); err != nil {
		return nil, fmt.Errorf("解析环境变量失败: %w", err)
	}

	applyDefaults(config)
	return config, nil
}

// createDefaultConfig 返回带默认值的配置
func createDefaultConfig() *Config {
	return &Config{
		Aliyun: AliyunConfig{
			Enabled:          true,
			APIURL:           "https://dashscope.aliyuncs.com/compatible-mode/v1/chat/completions",
			Model:            "qwen-plus",
			TimeoutSeconds:   30,
			MaxTokens:        1000,
			SummaryMaxTokens: 300,
			Temperature:      0.3,
			PromptCharLimit:  2000,
			MaxRetries:       2,
			RetryWaitSeconds: 1,
		},
		Extraction: ExtractionConfig{KeywordTopN: 10},
		Cache: CacheConfig{
			LocalMaxSize: 100,
			DefaultTTL:   "24h",
			ExtractTTL:   "24h",
			MatchTTL:     "1h",
			ResumeTTL:    "24h",
		},
		Redis: RedisConfig{
			Address:             "localhost:6379",
			PoolSize:            10,
			MinIdleConns:        2,
			DialTimeoutSeconds:  5,
			ReadTimeoutSeconds:  3,
			WriteTimeoutSeconds: 3,
			MaxRetries:          1,
		},
		MinIO: MinIOConfig{
			BucketName: "resume-originals",
		},
		Server: ServerConfig{
			Address:     ":8080",
			MaxUploadMB: 10,
		},
		Tracing: TracingConfig{ServiceName: "resume-matcher", Insecure: true},
		Logger: LoggerConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// applyDefaults 修正缺失或非法的数值
func applyDefaults(c *Config) {
	if c.Aliyun.TimeoutSeconds <= 0 {
		c.Aliyun.TimeoutSeconds = 30
	}
	if c.Aliyun.MaxTokens <= 0 {
		c.Aliyun.MaxTokens = 1000
	}
	if c.Aliyun.SummaryMaxTokens <= 0 {
		c.Aliyun.SummaryMaxTokens = 300
	}
	if c.Aliyun.PromptCharLimit <= 0 {
		c.Aliyun.PromptCharLimit = 2000
	}
	if c.Extraction.KeywordTopN <= 0 {
		c.Extraction.KeywordTopN = 10
	}
	if c.Cache.LocalMaxSize <= 0 {
		c.Cache.LocalMaxSize = 100
	}
	if c.Server.Address == "" {
		c.Server.Address = ":8080"
	}
	if c.Server.MaxUploadMB <= 0 {
		c.Server.MaxUploadMB = 10
	}
}

// LLMTimeout 单次生成调用超时
func (c AliyunConfig) LLMTimeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// GetDuration 解析时间间隔字符串，失败返回默认值
func GetDuration(durationStr string, defaultDuration time.Duration) time.Duration {
	if durationStr == "" {
		return defaultDuration
	}
	duration, err := time.ParseDuration(durationStr)
	if err != nil {
		return defaultDuration
	}
	return duration
}
