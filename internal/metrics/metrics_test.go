package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecorder_CountsGenerations(t *testing.T) {
	registry := prometheus.NewRegistry()
	rec := NewRecorder(registry).(*recorder)

	rec.ObserveGeneration("text", "free", OutcomeSuccess)
	rec.ObserveGeneration("text", "free", OutcomeSuccess)
	rec.ObserveGeneration("image", "pro", OutcomeQuotaExceeded)

	if got := testutil.ToFloat64(rec.generations.WithLabelValues("text", "free", OutcomeSuccess)); got != 2 {
		t.Fatalf("expected 2 text successes, got %v", got)
	}
	if got := testutil.ToFloat64(rec.generations.WithLabelValues("image", "pro", OutcomeQuotaExceeded)); got != 1 {
		t.Fatalf("expected 1 quota denial, got %v", got)
	}
}

func TestRecorder_RequestMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	rec := NewRecorder(registry).(*recorder)

	rec.ObserveRequest("POST", "/api/v1/chat", 402, 15*time.Millisecond)

	if got := testutil.ToFloat64(rec.requests.WithLabelValues("POST", "/api/v1/chat", "402")); got != 1 {
		t.Fatalf("expected 1 request, got %v", got)
	}
	if count := testutil.CollectAndCount(rec.requestDuration); count != 1 {
		t.Fatalf("expected 1 latency series, got %d", count)
	}
}
