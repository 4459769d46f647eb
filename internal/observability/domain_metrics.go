package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

var (
	pipelineStageDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "shelfchat_pipeline_stage_duration_seconds",
			Help:    "Duration of each pipeline stage by outcome.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"stage", "outcome"},
	)
	pipelineRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shelfchat_pipeline_runs_total",
			Help: "Total number of pipeline runs by failed stage (empty when the run completed).",
		},
		[]string{"failed_stage"},
	)
	llmCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shelfchat_llm_calls_total",
			Help: "Total number of text-generation calls by provider and outcome.",
		},
		[]string{"provider", "outcome"},
	)
	llmRetriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shelfchat_llm_retries_total",
			Help: "Total number of retried text-generation calls after transient unavailability.",
		},
		[]string{"provider"},
	)
	translationCacheLookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shelfchat_translation_cache_lookups_total",
			Help: "Translation cache lookups by result.",
		},
		[]string{"result"},
	)
	graphqlOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shelfchat_graphql_operations_total",
			Help: "Executed GraphQL operations by operation type and outcome.",
		},
		[]string{"operation", "outcome"},
	)
	exportRowsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shelfchat_export_rows_total",
			Help: "Rows written to Parquet snapshots by table.",
		},
		[]string{"table"},
	)
)

func init() {
	prometheus.MustRegister(
		pipelineStageDurationSeconds,
		pipelineRunsTotal,
		llmCallsTotal,
		llmRetriesTotal,
		translationCacheLookupsTotal,
		graphqlOperationsTotal,
		exportRowsTotal,
	)
}

func ObservePipelineStage(stage, outcome string, elapsed time.Duration) {
	pipelineStageDurationSeconds.WithLabelValues(stage, outcome).Observe(elapsed.Seconds())
}

func ObservePipelineRun(failedStage string) {
	pipelineRunsTotal.WithLabelValues(failedStage).Inc()
}

func ObserveLLMCall(provider string, err error) {
	outcome := OutcomeOK
	if err != nil {
		outcome = OutcomeError
	}
	llmCallsTotal.WithLabelValues(provider, outcome).Inc()
}

func IncrementLLMRetry(provider string) {
	llmRetriesTotal.WithLabelValues(provider).Inc()
}

func ObserveTranslationCache(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	translationCacheLookupsTotal.WithLabelValues(result).Inc()
}

func ObserveGraphQLOperation(operation string, failed bool) {
	outcome := OutcomeOK
	if failed {
		outcome = OutcomeError
	}
	graphqlOperationsTotal.WithLabelValues(operation, outcome).Inc()
}

func AddExportRows(table string, rows int) {
	if rows <= 0 {
		return
	}
	exportRowsTotal.WithLabelValues(table).Add(float64(rows))
}
