package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestNewRegistry_RegistersAndIncrements(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := NewRegistry(reg)

	r.FilesIndexed.Inc()
	r.ChunksIndexed.Add(3)
	r.IndexErrors.WithLabelValues("embed").Inc()
	r.ActiveRuns.Set(1)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather failed: %v", err)
	}

	byName := make(map[string]*dto.MetricFamily)
	for _, f := range families {
		byName[f.GetName()] = f
	}

	if _, ok := byName["coderag_files_indexed_total"]; !ok {
		t.Error("expected coderag_files_indexed_total to be registered")
	}
	if _, ok := byName["coderag_index_errors_total"]; !ok {
		t.Error("expected coderag_index_errors_total to be registered")
	}
}

func TestNewRegistry_DoesNotPanicOnSecondIndependentRegistry(t *testing.T) {
	NewRegistry(prometheus.NewRegistry())
	NewRegistry(prometheus.NewRegistry())
}
