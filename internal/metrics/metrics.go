// Package metrics 定义服务的Prometheus指标
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ExtractionSourceTotal 每个提取任务最终结果的来源(generative / deterministic)
	ExtractionSourceTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resume_extraction_source_total",
			Help: "Extraction task results by source",
		},
		[]string{"task", "source"},
	)
	// GenerativeFailuresTotal 生成式调用失败或被校验拒绝的次数
	GenerativeFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resume_generative_failures_total",
			Help: "Generative extraction failures by task and reason",
		},
		[]string{"task", "reason"},
	)
	// LLMRequestDuration 生成式模型调用耗时
	LLMRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "resume_llm_request_duration_seconds",
			Help:    "LLM request duration in seconds",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30},
		},
		[]string{"task", "outcome"},
	)
	// CacheOperationsTotal 缓存操作结果
	CacheOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resume_cache_operations_total",
			Help: "Cache operations by tier, operation and result",
		},
		[]string{"tier", "op", "result"},
	)
	// MatchScore 匹配总分分布
	MatchScore = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "resume_match_total_score",
			Help:    "Distribution of composite match scores",
			Buckets: []float64{20, 40, 60, 80, 100},
		},
	)
)

var registerOnce sync.Once

// Register 将指标注册到默认注册表，可重复调用
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			ExtractionSourceTotal,
			GenerativeFailuresTotal,
			LLMRequestDuration,
			CacheOperationsTotal,
			MatchScore,
		)
	})
}

// Handler 返回 /metrics 处理器
func Handler() http.Handler {
	Register()
	return promhttp.Handler()
}
