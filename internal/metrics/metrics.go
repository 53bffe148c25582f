// Package metrics holds the process-wide prometheus collectors of the
// acquisition stack. Everything is registered on the default registry.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

const namespace = "rsa"

var (
	SustainTicks = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sustain_ticks_total",
		Help:      "Sustain calls that ran.",
	})
	SustainSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sustain_skipped_total",
		Help:      "Sustain calls rejected because a previous call was still running.",
	})
	syncEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sync_events_total",
		Help:      "Synthesized sync events per channel.",
	}, []string{"channel"})
	ParamNotify = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "param_notify_total",
		Help:      "Parameter change notifications delivered to the server.",
	})
	ResultNotify = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "result_notify_total",
		Help:      "Result notifications delivered to the server.",
	})
	reconcile = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "reconcile_total",
		Help:      "Binding reconciliation actions.",
	}, []string{"kind", "action"})
	opDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "op_duration_seconds",
		Help:      "Duration of server operations.",
		Buckets:   prometheus.ExponentialBuckets(1e-6, 4, 10),
	}, []string{"op"})
)

// Reconcile actions.
const (
	ActionCreate  = "create"
	ActionDestroy = "destroy"
	ActionUpdate  = "update"
	ActionKeep    = "keep"
)

// SyncEvent counts one synthesized sync event on ch.
func SyncEvent(ch int) {
	syncEvents.WithLabelValues(strconv.Itoa(ch)).Inc()
}

// Reconciled counts one reconciliation action for kind ("param" or "result").
func Reconciled(kind, action string) {
	reconcile.WithLabelValues(kind, action).Inc()
}

// Op measures the duration of a named operation.
type Op struct {
	name  string
	start time.Time
}

// Start begins measuring op. Use as: defer metrics.Start("evaluate").End().
func Start(op string) Op {
	return Op{name: op, start: time.Now()}
}

// End records the elapsed time.
func (o Op) End() {
	opDuration.WithLabelValues(o.name).Observe(time.Since(o.start).Seconds())
}

// Count returns the current value of a counter, or 0 if it cannot be read.
func Count(c prometheus.Counter) float64 {
	var m dto.Metric
	if c.Write(&m) != nil || m.Counter == nil {
		return 0
	}
	return m.Counter.GetValue()
}

// ReconcileCount returns the counter for kind/action.
func ReconcileCount(kind, action string) float64 {
	return Count(reconcile.WithLabelValues(kind, action))
}
