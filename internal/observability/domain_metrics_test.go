package observability

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestObserveLLMCallLabelsOutcome(t *testing.T) {
	okBefore := counterValue(t, llmCallsTotal.WithLabelValues("fake", OutcomeOK))
	errBefore := counterValue(t, llmCallsTotal.WithLabelValues("fake", OutcomeError))

	ObserveLLMCall("fake", nil)
	ObserveLLMCall("fake", errors.New("boom"))
	ObserveLLMCall("fake", errors.New("boom"))

	if got := counterValue(t, llmCallsTotal.WithLabelValues("fake", OutcomeOK)) - okBefore; got != 1 {
		t.Fatalf("ok delta = %v", got)
	}
	if got := counterValue(t, llmCallsTotal.WithLabelValues("fake", OutcomeError)) - errBefore; got != 2 {
		t.Fatalf("error delta = %v", got)
	}
}

func TestObserveTranslationCache(t *testing.T) {
	hits := counterValue(t, translationCacheLookupsTotal.WithLabelValues("hit"))
	ObserveTranslationCache(true)
	if got := counterValue(t, translationCacheLookupsTotal.WithLabelValues("hit")) - hits; got != 1 {
		t.Fatalf("hit delta = %v", got)
	}
}

func TestAddExportRowsIgnoresEmpty(t *testing.T) {
	before := counterValue(t, exportRowsTotal.WithLabelValues("books"))
	AddExportRows("books", 0)
	AddExportRows("books", 3)
	if got := counterValue(t, exportRowsTotal.WithLabelValues("books")) - before; got != 3 {
		t.Fatalf("rows delta = %v", got)
	}
}

func TestObservePipelineStageRecordsSample(t *testing.T) {
	metric := pipelineStageDurationSeconds.WithLabelValues("translate", OutcomeOK).(prometheus.Metric)
	before := histogramCount(t, metric)
	ObservePipelineStage("translate", OutcomeOK, 20*time.Millisecond)
	if got := histogramCount(t, metric) - before; got != 1 {
		t.Fatalf("sample delta = %d", got)
	}
}

func counterValue(t *testing.T, metric prometheus.Metric) float64 {
	t.Helper()
	var out dto.Metric
	if err := metric.Write(&out); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	return out.GetCounter().GetValue()
}

func histogramCount(t *testing.T, metric prometheus.Metric) uint64 {
	t.Helper()
	var out dto.Metric
	if err := metric.Write(&out); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	return out.GetHistogram().GetSampleCount()
}
