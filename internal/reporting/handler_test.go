package reporting

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/sereno-care/practice-platform/pkg/logging"
)

type stubStatsRepo struct {
	daily []DayStats
	notes NoteCounts
	err   error

	gotOrg   string
	gotStart time.Time
	gotEnd   time.Time
	gotTypes []string
}

func (s *stubStatsRepo) AppointmentsByDay(_ context.Context, orgID string, start, end time.Time, types []string) ([]DayStats, error) {
	s.gotOrg = orgID
	s.gotStart = start
	s.gotEnd = end
	s.gotTypes = types
	return s.daily, s.err
}

func (s *stubStatsRepo) Notes(_ context.Context, _ string, _, _ time.Time) (NoteCounts, error) {
	return s.notes, s.err
}

type stubGatherer struct {
	families []*dto.MetricFamily
	err      error
}

func (s stubGatherer) Gather() ([]*dto.MetricFamily, error) {
	return s.families, s.err
}

var _ prometheus.Gatherer = stubGatherer{}

func TestGetReport_FillsMissingDaysAndComputesNoShowRate(t *testing.T) {
	orgID := "org-1"
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 1, 4, 0, 0, 0, 0, time.UTC)

	repo := &stubStatsRepo{
		daily: []DayStats{
			{Day: start, DayLabel: "2025-01-01", Booked: 4, Cancelled: 1, NoShows: 1},
			{Day: time.Date(2025, 1, 3, 0, 0, 0, 0, time.UTC), DayLabel: "2025-01-03", Booked: 5},
		},
		notes: NoteCounts{Drafted: 6, Finalized: 4},
	}

	familyName := transcribeLatencyMetric
	metricType := dto.MetricType_HISTOGRAM
	gatherer := stubGatherer{
		families: []*dto.MetricFamily{
			{
				Name: &familyName,
				Type: &metricType,
				Metric: []*dto.Metric{
					{
						Histogram: &dto.Histogram{
							SampleCount: ptrUint64(10),
							Bucket: []*dto.Bucket{
								{UpperBound: ptrFloat64(1.0), CumulativeCount: ptrUint64(5)},
								{UpperBound: ptrFloat64(2.0), CumulativeCount: ptrUint64(9)},
								{UpperBound: ptrFloat64(3.0), CumulativeCount: ptrUint64(10)},
							},
						},
					},
				},
			},
		},
	}

	handler := NewHandler(repo, gatherer, logging.New("error"))

	r := chi.NewRouter()
	r.Get("/admin/orgs/{orgID}/report", handler.GetReport)

	req := httptest.NewRequest(http.MethodGet, "/admin/orgs/"+orgID+"/report?start=2025-01-01T00:00:00Z&end=2025-01-04T00:00:00Z&types=intake,follow_up", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp PracticeReport
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if resp.Booked != 9 || resp.Cancelled != 1 || resp.NoShows != 1 {
		t.Fatalf("totals = (%d, %d, %d), want (9, 1, 1)", resp.Booked, resp.Cancelled, resp.NoShows)
	}
	if resp.NoShowRatePct < 9.9 || resp.NoShowRatePct > 10.1 {
		t.Fatalf("no_show_rate_pct = %f, want ~10.0", resp.NoShowRatePct)
	}
	if resp.Notes.Drafted != 6 || resp.Notes.Finalized != 4 {
		t.Fatalf("notes = %#v, want drafted=6 finalized=4", resp.Notes)
	}

	if len(resp.Daily) != 3 {
		t.Fatalf("daily length = %d, want 3", len(resp.Daily))
	}
	if resp.Daily[1].DayLabel != "2025-01-02" || resp.Daily[1].Booked != 0 {
		t.Fatalf("expected missing day 2025-01-02 filled with zeros, got %#v", resp.Daily[1])
	}

	if resp.TranscribeLatency.Total != 10 {
		t.Fatalf("transcribe_latency.total = %d, want 10", resp.TranscribeLatency.Total)
	}
	if resp.TranscribeLatency.P90Ms < 1999 || resp.TranscribeLatency.P90Ms > 2001 {
		t.Fatalf("transcribe_latency.p90_ms = %f, want ~2000", resp.TranscribeLatency.P90Ms)
	}
	if resp.TranscribeLatency.P95Ms < 2499 || resp.TranscribeLatency.P95Ms > 2501 {
		t.Fatalf("transcribe_latency.p95_ms = %f, want ~2500", resp.TranscribeLatency.P95Ms)
	}

	if repo.gotOrg != orgID || !repo.gotStart.Equal(start) || !repo.gotEnd.Equal(end) {
		t.Fatalf("repo called with (%q, %s, %s); want (%q, %s, %s)", repo.gotOrg, repo.gotStart, repo.gotEnd, orgID, start, end)
	}
	if len(repo.gotTypes) != 2 || repo.gotTypes[0] != "intake" || repo.gotTypes[1] != "follow_up" {
		t.Fatalf("types filter = %v, want [intake follow_up]", repo.gotTypes)
	}
}

func TestGetReport_InvalidWindow(t *testing.T) {
	handler := NewHandler(&stubStatsRepo{}, stubGatherer{}, logging.New("error"))

	r := chi.NewRouter()
	r.Get("/admin/orgs/{orgID}/report", handler.GetReport)

	req := httptest.NewRequest(http.MethodGet, "/admin/orgs/org-1/report?start=2025-01-01T00:00:00Z", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
}

func TestSnapshotLatency_NoMetrics(t *testing.T) {
	lat := snapshotLatency(stubGatherer{families: nil}, transcribeLatencyMetric)
	if lat.Total != 0 {
		t.Fatalf("expected total=0, got %d", lat.Total)
	}
}

func ptrUint64(v uint64) *uint64 { return &v }

func ptrFloat64(v float64) *float64 { return &v }
