package analyze

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/linnemanlabs/sift/internal/classify"
	"github.com/linnemanlabs/sift/internal/mail"
)

// Metrics holds Prometheus metrics for the analysis subsystem.
type Metrics struct {
	RunsTotal            *prometheus.CounterVec
	RunDuration          *prometheus.HistogramVec
	RunMessages          prometheus.Histogram
	RunErrors            prometheus.Histogram
	ClassificationsTotal *prometheus.CounterVec
	SummariesTotal       *prometheus.CounterVec
	ParseFailuresTotal   *prometheus.CounterVec
	LLMCallsTotal        *prometheus.CounterVec
	LLMDuration          *prometheus.HistogramVec
}

// NewMetrics registers and returns analysis metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sift_runs_total",
			Help: "Total analysis runs by final status.",
		}, []string{"status"}),
		RunDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sift_run_duration_seconds",
			Help:    "Duration of analysis runs in seconds.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12), // 1s .. ~2048s
		}, []string{"status"}),
		RunMessages: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "sift_run_messages_analyzed",
			Help:    "Messages analyzed per run.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12), // 1 .. ~2048
		}),
		RunErrors: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "sift_run_errors",
			Help:    "Per-message failures per run.",
			Buckets: prometheus.LinearBuckets(0, 1, 16), // 0 .. 15
		}),
		ClassificationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sift_classifications_total",
			Help: "Total classifications by source tier and resulting level.",
		}, []string{"source", "level"}),
		SummariesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sift_summaries_total",
			Help: "Total summarizations by source tier.",
		}, []string{"source"}),
		ParseFailuresTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sift_model_parse_failures_total",
			Help: "Model replies that could not be parsed, by operation.",
		}, []string{"op"}),
		LLMCallsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sift_llm_calls_total",
			Help: "Total generative endpoint calls by operation and status.",
		}, []string{"op", "status"}),
		LLMDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sift_llm_call_duration_seconds",
			Help:    "Duration of individual generative endpoint calls in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 8), // 0.5s .. ~64s
		}, []string{"op"}),
	}

	reg.MustRegister(
		m.RunsTotal,
		m.RunDuration,
		m.RunMessages,
		m.RunErrors,
		m.ClassificationsTotal,
		m.SummariesTotal,
		m.ParseFailuresTotal,
		m.LLMCallsTotal,
		m.LLMDuration,
	)

	return m
}

// Hooks returns RunHooks that increment the corresponding metrics.
func (m *Metrics) Hooks() RunHooks {
	return RunHooks{
		OnComplete: func(status Status, duration float64, analyzed, failed int) {
			m.RunsTotal.WithLabelValues(string(status)).Inc()
			m.RunDuration.WithLabelValues(string(status)).Observe(duration)
			m.RunMessages.Observe(float64(analyzed))
			m.RunErrors.Observe(float64(failed))
		},
	}
}

// ClassifyHooks returns classify.Hooks that increment the corresponding
// metrics.
func (m *Metrics) ClassifyHooks() classify.Hooks {
	return classify.Hooks{
		OnLLMCall: func(op string, duration float64, ok bool) {
			status := "success"
			if !ok {
				status = "error"
			}
			m.LLMCallsTotal.WithLabelValues(op, status).Inc()
			m.LLMDuration.WithLabelValues(op).Observe(duration)
		},
		OnClassify: func(source classify.Source, level mail.Level) {
			m.ClassificationsTotal.WithLabelValues(string(source), string(level)).Inc()
		},
		OnSummarize: func(source classify.Source) {
			m.SummariesTotal.WithLabelValues(string(source)).Inc()
		},
		OnParseFailure: func(op string) {
			m.ParseFailuresTotal.WithLabelValues(op).Inc()
		},
	}
}
