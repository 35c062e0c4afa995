package metrics

import (
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

// 全局 Registry，供 API/Ingest 注册与暴露
var DefaultRegistry = prometheus.NewRegistry()

func init() {
	DefaultRegistry.MustRegister(
		TurnDuration, TurnTotal, IntentTotal,
		ToolDuration, ToolFailTotal,
		LLMTokensTotal, RetrievalDuration,
		RateLimitWaitSeconds,
	)
}

// TurnDuration 单轮对话耗时（秒）
var TurnDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "polnav_turn_duration_seconds",
		Help:    "单轮对话耗时（秒）",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"intent"},
)

// TurnTotal 对话轮次总数（按结果）
var TurnTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "polnav_turn_total",
		Help: "对话轮次总数（按结果）",
	},
	[]string{"status"}, // completed | failed
)

// IntentTotal 意图分类总数（按意图）
var IntentTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "polnav_intent_total",
		Help: "意图分类总数（按意图）",
	},
	[]string{"intent"},
)

// ToolDuration 工具调用耗时（秒）
var ToolDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "polnav_tool_duration_seconds",
		Help:    "工具调用耗时（秒）",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"tool"},
)

// ToolFailTotal 工具调用失败总数（失败会以占位结果继续）
var ToolFailTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "polnav_tool_fail_total",
		Help: "工具调用失败总数",
	},
	[]string{"tool"},
)

// LLMTokensTotal LLM 调用 token 数
var LLMTokensTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "polnav_llm_tokens_total",
		Help: "LLM 调用 token 总数",
	},
	[]string{"direction"}, // input | output
)

// RetrievalDuration 向量检索耗时（秒）
var RetrievalDuration = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Name:    "polnav_retrieval_duration_seconds",
		Help:    "向量检索耗时（秒）",
		Buckets: prometheus.DefBuckets,
	},
)

// RateLimitWaitSeconds 限流等待时长（秒）
var RateLimitWaitSeconds = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "polnav_rate_limit_wait_seconds",
		Help:    "限流等待时长（秒）",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"kind", "provider"},
)

// WritePrometheus 将 Prometheus 文本格式写入 w（供 Hertz 等复用）
func WritePrometheus(w io.Writer) error {
	metrics, err := DefaultRegistry.Gather()
	if err != nil {
		return err
	}
	enc := expfmt.NewEncoder(w, expfmt.FmtText)
	for _, mf := range metrics {
		if err := enc.Encode(mf); err != nil {
			return err
		}
	}
	return nil
}
