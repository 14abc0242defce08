package metrics

import "github.com/prometheus/client_golang/prometheus"

// SchedulingMetrics exposes counters/histograms for scheduling operations.
type SchedulingMetrics struct {
	operationsTotal  *prometheus.CounterVec
	operationLatency *prometheus.HistogramVec
	slotsReturned    *prometheus.HistogramVec
	copyEntriesTotal *prometheus.CounterVec
	slotCacheTotal   *prometheus.CounterVec
}

func NewSchedulingMetrics(reg prometheus.Registerer) *SchedulingMetrics {
	m := &SchedulingMetrics{
		operationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "scheduling",
			Name:      "operations_total",
			Help:      "Total scheduling operations by outcome",
		}, []string{"operation", "outcome"}),
		operationLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "clinic",
			Subsystem: "scheduling",
			Name:      "operation_latency_seconds",
			Help:      "Latency of scheduling operations",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		slotsReturned: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "clinic",
			Subsystem: "scheduling",
			Name:      "slots_returned",
			Help:      "Number of slots returned per availability lookup",
			Buckets:   []float64{0, 1, 2, 4, 8, 16, 32, 64},
		}, []string{"duration_minutes"}),
		copyEntriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "scheduling",
			Name:      "copy_entries_total",
			Help:      "Working-hours entries handled by schedule copies",
		}, []string{"mode", "result"}),
		slotCacheTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "scheduling",
			Name:      "slot_cache_total",
			Help:      "Slot cache lookups by result",
		}, []string{"result"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.operationsTotal, m.operationLatency, m.slotsReturned, m.copyEntriesTotal, m.slotCacheTotal)
	return m
}

// ObserveOperation records one façade call. outcome is "ok" or an error class.
func (m *SchedulingMetrics) ObserveOperation(operation, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.operationsTotal.WithLabelValues(operation, outcome).Inc()
	m.operationLatency.WithLabelValues(operation).Observe(seconds)
}

func (m *SchedulingMetrics) ObserveSlots(durationLabel string, count int) {
	if m == nil {
		return
	}
	m.slotsReturned.WithLabelValues(durationLabel).Observe(float64(count))
}

func (m *SchedulingMetrics) ObserveCopy(overwrite bool, copied, skipped int) {
	if m == nil {
		return
	}
	mode := "merge"
	if overwrite {
		mode = "overwrite"
	}
	m.copyEntriesTotal.WithLabelValues(mode, "copied").Add(float64(copied))
	m.copyEntriesTotal.WithLabelValues(mode, "skipped").Add(float64(skipped))
}

func (m *SchedulingMetrics) ObserveSlotCache(result string) {
	if m == nil {
		return
	}
	m.slotCacheTotal.WithLabelValues(result).Inc()
}
