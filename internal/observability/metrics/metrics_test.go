package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestSchedulingMetricsObserve(t *testing.T) {
	m := NewSchedulingMetrics(prometheus.NewRegistry())
	m.ObserveOperation("add_working_hours", "ok", 0.01)
	m.ObserveSlots("30", 7)
	m.ObserveCopy(false, 1, 1)
	m.ObserveSlotCache("hit")
}

func TestSchedulingMetricsCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewSchedulingMetrics(reg)
	m.ObserveOperation("copy_schedule", "ok", 0.2)
	m.ObserveOperation("copy_schedule", "ok", 0.1)
	m.ObserveOperation("copy_schedule", "overlap", 0.1)
	m.ObserveCopy(true, 4, 0)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	ops := findFamily(families, "clinic_scheduling_operations_total")
	if ops == nil {
		t.Fatal("operations counter not registered")
	}
	if got := counterValue(ops, map[string]string{"operation": "copy_schedule", "outcome": "ok"}); got != 2 {
		t.Fatalf("ok count = %v, want 2", got)
	}
	copies := findFamily(families, "clinic_scheduling_copy_entries_total")
	if got := counterValue(copies, map[string]string{"mode": "overwrite", "result": "copied"}); got != 4 {
		t.Fatalf("copied = %v, want 4", got)
	}
}

func TestSchedulingMetricsNilSafe(t *testing.T) {
	var m *SchedulingMetrics
	m.ObserveOperation("list_weekly_template", "ok", 0.1)
	m.ObserveSlots("60", 0)
	m.ObserveCopy(true, 1, 0)
	m.ObserveSlotCache("miss")
}

func findFamily(families []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, f := range families {
		if f.GetName() == name {
			return f
		}
	}
	return nil
}

func counterValue(family *dto.MetricFamily, labels map[string]string) float64 {
	if family == nil {
		return -1
	}
	for _, metric := range family.GetMetric() {
		matched := 0
		for _, pair := range metric.GetLabel() {
			if labels[pair.GetName()] == pair.GetValue() {
				matched++
			}
		}
		if matched == len(labels) {
			return metric.GetCounter().GetValue()
		}
	}
	return -1
}
