// Package observability registers the Prometheus metrics exported at /metrics.
package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	mutations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ironlog",
		Subsystem: "store",
		Name:      "mutations_total",
		Help:      "Store mutations by operation.",
	}, []string{"op"})
	slotWrites = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ironlog",
		Subsystem: "slot",
		Name:      "writes_total",
		Help:      "Persistence slot writes by result.",
	}, []string{"result"})
	workoutsGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "ironlog",
		Subsystem: "store",
		Name:      "workouts",
		Help:      "Number of workouts currently held by the store.",
	})
	quarantinedGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "ironlog",
		Subsystem: "store",
		Name:      "quarantined_records",
		Help:      "Stored records set aside at load because they failed validation.",
	})
	httpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "ironlog",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency by route and status.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)

func init() {
	prometheus.MustRegister(mutations, slotWrites, workoutsGauge, quarantinedGauge, httpDuration)
}

// RecordMutation counts one store mutation.
func RecordMutation(op string) {
	mutations.WithLabelValues(op).Inc()
}

// RecordSlotWrite counts one slot write, split by outcome.
func RecordSlotWrite(err error) {
	if err != nil {
		slotWrites.WithLabelValues("error").Inc()
		return
	}
	slotWrites.WithLabelValues("ok").Inc()
}

// SetWorkouts updates the store size gauge.
func SetWorkouts(n int) {
	workoutsGauge.Set(float64(n))
}

// SetQuarantined updates the quarantined record gauge.
func SetQuarantined(n int) {
	quarantinedGauge.Set(float64(n))
}

// ObserveRequest records one HTTP request. route should be the matched route
// pattern, not the raw path, to keep label cardinality bounded.
func ObserveRequest(method, route string, status int, d time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	httpDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(d.Seconds())
}
