package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	return m.GetCounter().GetValue()
}

func TestObserveFetchSuccess(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveFetch(1, 4, nil)

	if got := counterValue(t, m.FetchTotal.WithLabelValues("success")); got != 1 {
		t.Fatalf("success counter = %v, want 1", got)
	}
}

func TestObserveFetchError(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveFetch(1, 0, errFetchFailed)

	if got := counterValue(t, m.FetchTotal.WithLabelValues("error")); got != 1 {
		t.Fatalf("error counter = %v, want 1", got)
	}
}

func TestObserveCommandAndTasksActive(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveCommand("async", "create")
	m.SetTasksActive("async", 3)
	m.SetWorkerThreads(4)
	m.ObserveHTTPRequest("GET", "/feed", "200", 10*time.Millisecond)

	if got := counterValue(t, m.CommandsTotal.WithLabelValues("async", "create")); got != 1 {
		t.Fatalf("commands counter = %v, want 1", got)
	}
}

var errFetchFailed = fetchError("boom")

type fetchError string

func (e fetchError) Error() string { return string(e) }
