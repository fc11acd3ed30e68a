package metrics

import "github.com/prometheus/client_golang/prometheus"

// SchedulingMetrics exposes counters for the recurring-appointment engine.
type SchedulingMetrics struct {
	seriesCreatedTotal *prometheus.CounterVec
	rescheduleTotal    *prometheus.CounterVec
	reloadTotal        prometheus.Counter
}

func NewSchedulingMetrics(reg prometheus.Registerer) *SchedulingMetrics {
	m := &SchedulingMetrics{
		seriesCreatedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "practice",
			Subsystem: "scheduling",
			Name:      "series_created_total",
			Help:      "Recurring series created, by period unit",
		}, []string{"period"}),
		rescheduleTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "practice",
			Subsystem: "scheduling",
			Name:      "reschedule_total",
			Help:      "Appointment edits, by decision and outcome",
		}, []string{"decision", "outcome"}),
		reloadTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "practice",
			Subsystem: "scheduling",
			Name:      "reload_total",
			Help:      "Full list reloads after failed mutations",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.seriesCreatedTotal, m.rescheduleTotal, m.reloadTotal)
	return m
}

func (m *SchedulingMetrics) ObserveSeriesCreated(period string) {
	if m == nil {
		return
	}
	m.seriesCreatedTotal.WithLabelValues(period).Inc()
}

func (m *SchedulingMetrics) ObserveReschedule(decision, outcome string) {
	if m == nil {
		return
	}
	m.rescheduleTotal.WithLabelValues(decision, outcome).Inc()
}

func (m *SchedulingMetrics) ObserveReload() {
	if m == nil {
		return
	}
	m.reloadTotal.Inc()
}

// SessionMetrics covers the recording-to-note pipeline.
type SessionMetrics struct {
	jobsTotal          *prometheus.CounterVec
	transcribeDuration prometheus.Histogram
	noteDuration       prometheus.Histogram
}

func NewSessionMetrics(reg prometheus.Registerer) *SessionMetrics {
	m := &SessionMetrics{
		jobsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "practice",
			Subsystem: "sessions",
			Name:      "jobs_total",
			Help:      "Session pipeline jobs, by terminal status",
		}, []string{"status"}),
		transcribeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "practice",
			Subsystem: "sessions",
			Name:      "transcribe_duration_seconds",
			Help:      "Wall time of audio transcription",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10),
		}),
		noteDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "practice",
			Subsystem: "sessions",
			Name:      "note_duration_seconds",
			Help:      "Wall time of note generation",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10),
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.jobsTotal, m.transcribeDuration, m.noteDuration)
	return m
}

func (m *SessionMetrics) ObserveJob(status string) {
	if m == nil {
		return
	}
	m.jobsTotal.WithLabelValues(status).Inc()
}

func (m *SessionMetrics) ObserveTranscribe(seconds float64) {
	if m == nil {
		return
	}
	m.transcribeDuration.Observe(seconds)
}

func (m *SessionMetrics) ObserveNote(seconds float64) {
	if m == nil {
		return
	}
	m.noteDuration.Observe(seconds)
}
