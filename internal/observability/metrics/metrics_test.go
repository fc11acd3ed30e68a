package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestSchedulingMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewSchedulingMetrics(reg)
	m.ObserveSeriesCreated("week")
	m.ObserveReschedule("scope", "committed")
	m.ObserveReload()
}

func TestSessionMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewSessionMetrics(reg)
	m.ObserveJob("completed")
	m.ObserveTranscribe(1.2)
	m.ObserveNote(0.8)
}

func TestMetricsNilSafe(t *testing.T) {
	var sched *SchedulingMetrics
	sched.ObserveSeriesCreated("month")
	sched.ObserveReschedule("direct", "committed")
	sched.ObserveReload()

	var sess *SessionMetrics
	sess.ObserveJob("failed")
	sess.ObserveTranscribe(0.1)
	sess.ObserveNote(0.1)
}
