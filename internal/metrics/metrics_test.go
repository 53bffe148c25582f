package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestCounters(t *testing.T) {
	before := Count(SustainTicks)
	SustainTicks.Inc()
	SustainTicks.Inc()
	if got := Count(SustainTicks) - before; got != 2 {
		t.Errorf("SustainTicks delta = %v, want 2", got)
	}

	before = ReconcileCount("param", ActionCreate)
	Reconciled("param", ActionCreate)
	if got := ReconcileCount("param", ActionCreate) - before; got != 1 {
		t.Errorf("reconcile delta = %v, want 1", got)
	}
	if ReconcileCount("param", ActionDestroy) == ReconcileCount("param", ActionCreate) {
		t.Error("actions share one counter")
	}
}

func TestRegisteredOnDefaultRegistry(t *testing.T) {
	SyncEvent(0)
	Start("test").End()

	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	want := map[string]bool{
		"rsa_sustain_ticks_total":   false,
		"rsa_sync_events_total":     false,
		"rsa_op_duration_seconds":   false,
		"rsa_param_notify_total":    false,
		"rsa_result_notify_total":   false,
		"rsa_sustain_skipped_total": false,
	}
	for _, f := range families {
		if _, ok := want[f.GetName()]; ok {
			want[f.GetName()] = true
		}
	}
	for name, seen := range want {
		if !seen {
			t.Errorf("%s is not registered", name)
		}
	}
}
