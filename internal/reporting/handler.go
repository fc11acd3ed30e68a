package reporting

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/sereno-care/practice-platform/pkg/logging"
)

const transcribeLatencyMetric = "practice_sessions_transcribe_duration_seconds"

type statsRepo interface {
	AppointmentsByDay(ctx context.Context, orgID string, start, end time.Time, types []string) ([]DayStats, error)
	Notes(ctx context.Context, orgID string, start, end time.Time) (NoteCounts, error)
}

// LatencySnapshot summarizes a latency histogram scraped from the process
// metrics registry.
type LatencySnapshot struct {
	Total   int64           `json:"total"`
	P90Ms   float64         `json:"p90_ms"`
	P95Ms   float64         `json:"p95_ms"`
	Buckets []LatencyBucket `json:"buckets"`
}

type LatencyBucket struct {
	LeSeconds float64 `json:"le_seconds"`
	Label     string  `json:"label,omitempty"`
	Count     int64   `json:"count"`
}

// PracticeReport is the dashboard payload for one org and period.
type PracticeReport struct {
	OrgID             string          `json:"org_id"`
	PeriodStart       string          `json:"period_start"`
	PeriodEnd         string          `json:"period_end"`
	Booked            int64           `json:"booked"`
	Cancelled         int64           `json:"cancelled"`
	NoShows           int64           `json:"no_shows"`
	NoShowRatePct     float64         `json:"no_show_rate_pct"`
	Notes             NoteCounts      `json:"notes"`
	TranscribeLatency LatencySnapshot `json:"transcribe_latency"`
	Daily             []DayStats      `json:"daily"`
}

// Handler serves the practice stats report.
type Handler struct {
	repo     statsRepo
	gatherer prometheus.Gatherer
	logger   *logging.Logger
}

// NewHandler creates the reporting handler. A nil gatherer falls back to the
// process default registry.
func NewHandler(repo statsRepo, gatherer prometheus.Gatherer, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return &Handler{repo: repo, gatherer: gatherer, logger: logger.WithComponent("reporting.http")}
}

// GetReport returns practice stats for one org.
// GET /admin/orgs/{orgID}/report
// Query params:
//   - start: RFC3339 timestamp (optional, requires end)
//   - end: RFC3339 timestamp (optional, requires start)
//   - days: integer window (default 30) when start/end omitted
//   - types: comma-separated appointment type filter
func (h *Handler) GetReport(w http.ResponseWriter, r *http.Request) {
	orgID := chi.URLParam(r, "orgID")
	if strings.TrimSpace(orgID) == "" {
		http.Error(w, `{"error":"org_id required"}`, http.StatusBadRequest)
		return
	}
	if h.repo == nil {
		http.Error(w, `{"error":"reporting disabled (db not configured)"}`, http.StatusServiceUnavailable)
		return
	}

	start, end, err := parseReportWindow(r)
	if err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusBadRequest)
		return
	}

	var types []string
	if raw := strings.TrimSpace(r.URL.Query().Get("types")); raw != "" {
		for _, t := range strings.Split(raw, ",") {
			if t = strings.TrimSpace(t); t != "" {
				types = append(types, t)
			}
		}
	}

	daily, err := h.repo.AppointmentsByDay(r.Context(), orgID, start, end, types)
	if err != nil {
		h.logger.Error("failed to query appointment stats", "org_id", orgID, "error", err)
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	daily = fillMissingDays(daily, start, end)

	notes, err := h.repo.Notes(r.Context(), orgID, start, end)
	if err != nil {
		h.logger.Error("failed to query note stats", "org_id", orgID, "error", err)
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}

	var booked, cancelled, noShows int64
	for _, day := range daily {
		booked += day.Booked
		cancelled += day.Cancelled
		noShows += day.NoShows
	}

	noShowRate := 0.0
	if held := booked + noShows; held > 0 {
		noShowRate = (float64(noShows) / float64(held)) * 100.0
	}

	resp := PracticeReport{
		OrgID:             orgID,
		PeriodStart:       start.UTC().Format(time.RFC3339),
		PeriodEnd:         end.UTC().Format(time.RFC3339),
		Booked:            booked,
		Cancelled:         cancelled,
		NoShows:           noShows,
		NoShowRatePct:     noShowRate,
		Notes:             notes,
		TranscribeLatency: snapshotLatency(h.gatherer, transcribeLatencyMetric),
		Daily:             daily,
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func parseReportWindow(r *http.Request) (time.Time, time.Time, error) {
	q := r.URL.Query()

	startRaw := strings.TrimSpace(q.Get("start"))
	endRaw := strings.TrimSpace(q.Get("end"))
	if (startRaw == "") != (endRaw == "") {
		return time.Time{}, time.Time{}, fmt.Errorf("both start and end must be provided, or neither")
	}
	if startRaw != "" {
		start, err := time.Parse(time.RFC3339, startRaw)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid start time, use RFC3339 format")
		}
		end, err := time.Parse(time.RFC3339, endRaw)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid end time, use RFC3339 format")
		}
		if !end.After(start) {
			return time.Time{}, time.Time{}, fmt.Errorf("end must be after start")
		}
		return start.UTC(), end.UTC(), nil
	}

	days := 30
	if raw := strings.TrimSpace(q.Get("days")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 365 {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid days; must be 1-365")
		}
		days = parsed
	}

	now := time.Now().UTC()
	end := time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, time.UTC)
	start := end.AddDate(0, 0, -days)
	return start, end, nil
}

func fillMissingDays(existing []DayStats, start, end time.Time) []DayStats {
	startDay := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	endDay := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC)

	lookup := map[string]DayStats{}
	for _, d := range existing {
		lookup[d.Day.UTC().Format("2006-01-02")] = d
	}

	out := make([]DayStats, 0, int(endDay.Sub(startDay).Hours()/24)+1)
	for day := startDay; day.Before(endDay); day = day.AddDate(0, 0, 1) {
		key := day.Format("2006-01-02")
		if found, ok := lookup[key]; ok {
			out = append(out, found)
			continue
		}
		out = append(out, DayStats{Day: day, DayLabel: key})
	}
	return out
}

func snapshotLatency(gatherer prometheus.Gatherer, metricName string) LatencySnapshot {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	mfs, err := gatherer.Gather()
	if err != nil {
		return LatencySnapshot{}
	}

	var family *dto.MetricFamily
	for _, mf := range mfs {
		if mf != nil && mf.GetName() == metricName {
			family = mf
			break
		}
	}
	if family == nil {
		return LatencySnapshot{}
	}

	cumulativeByUpper := map[float64]uint64{}
	var sampleCount uint64

	for _, metric := range family.Metric {
		if metric == nil {
			continue
		}
		hist := metric.GetHistogram()
		if hist == nil {
			continue
		}
		sampleCount += hist.GetSampleCount()
		for _, b := range hist.Bucket {
			if b == nil {
				continue
			}
			cumulativeByUpper[b.GetUpperBound()] += b.GetCumulativeCount()
		}
	}

	if sampleCount == 0 || len(cumulativeByUpper) == 0 {
		return LatencySnapshot{}
	}

	uppers := make([]float64, 0, len(cumulativeByUpper))
	for upper := range cumulativeByUpper {
		uppers = append(uppers, upper)
	}
	sort.Float64s(uppers)

	buckets := make([]LatencyBucket, 0, len(uppers))
	var prev uint64
	var lastFiniteUpper float64
	for _, upper := range uppers {
		cum := cumulativeByUpper[upper]
		if math.IsInf(upper, 1) {
			overflow := int64(0)
			if cum >= prev {
				overflow = int64(cum - prev)
			} else {
				overflow = int64(cum)
			}
			if overflow > 0 {
				buckets = append(buckets, LatencyBucket{
					LeSeconds: lastFiniteUpper,
					Label:     fmt.Sprintf(">%s", formatSeconds(lastFiniteUpper)),
					Count:     overflow,
				})
			}
			prev = cum
			continue
		}

		lastFiniteUpper = upper
		count := int64(0)
		if cum >= prev {
			count = int64(cum - prev)
		} else {
			count = int64(cum)
		}
		buckets = append(buckets, LatencyBucket{LeSeconds: upper, Count: count})
		prev = cum
	}

	p90 := histogramQuantile(0.90, sampleCount, uppers, cumulativeByUpper)
	p95 := histogramQuantile(0.95, sampleCount, uppers, cumulativeByUpper)

	return LatencySnapshot{
		Total:   int64(sampleCount),
		P90Ms:   p90 * 1000.0,
		P95Ms:   p95 * 1000.0,
		Buckets: buckets,
	}
}

func histogramQuantile(q float64, total uint64, uppers []float64, cumulativeByUpper map[float64]uint64) float64 {
	if total == 0 || q <= 0 {
		return 0
	}
	if q >= 1 {
		for i := len(uppers) - 1; i >= 0; i-- {
			if !math.IsInf(uppers[i], 1) {
				return uppers[i]
			}
		}
		return 0
	}

	target := q * float64(total)
	var prevUpper float64
	var prevCum float64

	for _, upper := range uppers {
		cum := float64(cumulativeByUpper[upper])
		if cum < target {
			prevUpper = upper
			prevCum = cum
			continue
		}

		// If we can't interpolate, return the bucket upper bound.
		bucketCount := cum - prevCum
		if bucketCount <= 0 || upper == prevUpper {
			return upper
		}
		if math.IsInf(upper, 1) {
			return prevUpper
		}

		fraction := (target - prevCum) / bucketCount
		if fraction < 0 {
			fraction = 0
		}
		if fraction > 1 {
			fraction = 1
		}

		return prevUpper + fraction*(upper-prevUpper)
	}

	return uppers[len(uppers)-1]
}

func formatSeconds(seconds float64) string {
	if seconds <= 0 {
		return "0s"
	}
	if seconds < 1 {
		return fmt.Sprintf("%.2fs", seconds)
	}
	if seconds < 10 {
		return fmt.Sprintf("%.1fs", seconds)
	}
	return fmt.Sprintf("%.0fs", seconds)
}
