package scheduling

import (
	"testing"
	"time"
)

func seriesFixture(t *testing.T, occurrences int) (Series, []Appointment) {
	t.Helper()
	start := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	series, instances := GenerateSeries(testTemplate(start, start.Add(time.Hour)), Frequency{Interval: 1, Period: PeriodWeek}, occurrences)
	if len(instances) != occurrences {
		t.Fatalf("fixture: expected %d instances, got %d", occurrences, len(instances))
	}
	return series, instances
}

func TestResolveStandalone(t *testing.T) {
	start := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	appt := Appointment{ID: "a1", Start: start, End: start.Add(time.Hour)}

	d := Resolve(appt, Change{Status: StatusNoShow})
	if d.Kind != DecisionDirect {
		t.Fatalf("expected direct decision, got %s", d.Kind)
	}
	if d.Updated.Status != StatusNoShow {
		t.Errorf("change not applied: %s", d.Updated.Status)
	}
}

func TestResolveStandaloneIgnoresLeftoverRemaining(t *testing.T) {
	// No series id means standalone, even with a stale countdown value.
	start := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	appt := Appointment{ID: "a1", Start: start, End: start.Add(time.Hour), RemainingSessions: intPtr(3)}

	if d := Resolve(appt, Change{Status: StatusCancelled}); d.Kind != DecisionDirect {
		t.Errorf("expected direct decision, got %s", d.Kind)
	}
}

func TestResolveLastInSeriesDetaches(t *testing.T) {
	_, instances := seriesFixture(t, 3)
	last := instances[2]

	d := Resolve(last, Change{Status: StatusCancelled})
	if d.Kind != DecisionDetach {
		t.Fatalf("expected detach decision, got %s", d.Kind)
	}
	if d.Updated.SeriesID != nil || d.Updated.RemainingSessions != nil {
		t.Error("detach must strip series identifiers")
	}
	if d.Updated.Status != StatusCancelled {
		t.Error("change not applied on detach")
	}
}

func TestResolveNonLastNeedsScope(t *testing.T) {
	_, instances := seriesFixture(t, 3)

	d := Resolve(instances[1], Change{Start: instances[1].Start.Add(2 * time.Hour)})
	if d.Kind != DecisionScope {
		t.Fatalf("expected scope decision, got %s", d.Kind)
	}
	// staged preview keeps series identifiers until the choice is made
	if d.Updated.SeriesID == nil {
		t.Error("staged preview must keep the series id")
	}
}

func TestApplyChangePreservesDuration(t *testing.T) {
	start := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	appt := Appointment{ID: "a1", Start: start, End: start.Add(80 * time.Minute)}

	newStart := time.Date(2024, 2, 14, 15, 30, 0, 0, time.UTC)
	got := ApplyChange(appt, Change{Start: newStart})

	if !got.Start.Equal(newStart) {
		t.Errorf("start %s, want %s", got.Start, newStart)
	}
	if got.Duration() != 80*time.Minute {
		t.Errorf("duration %s, want 80m", got.Duration())
	}
}

func TestApplyToFutureShiftsSuffixUniformly(t *testing.T) {
	_, instances := seriesFixture(t, 4)
	target := instances[1]
	delta := 26 * time.Hour

	ch := Change{Start: target.Start.Add(delta), Status: StatusBooked, Type: TypeIntake}
	updated := ApplyToFuture(target, instances, ch, "new-series")

	if len(updated) != 3 {
		t.Fatalf("expected target plus 2 later instances, got %d", len(updated))
	}
	for _, appt := range updated {
		if appt.SeriesID == nil || *appt.SeriesID != "new-series" {
			t.Errorf("instance %s not re-pointed at the new series", appt.ID)
		}
		if appt.Type != TypeIntake {
			t.Errorf("instance %s missing shared field change", appt.ID)
		}
	}

	// each kept its original countdown and moved by exactly the delta
	for _, appt := range updated {
		for _, orig := range instances {
			if orig.ID != appt.ID {
				continue
			}
			if *appt.RemainingSessions != *orig.RemainingSessions {
				t.Errorf("instance %s countdown changed", appt.ID)
			}
			if got := appt.Start.Sub(orig.Start); got != delta {
				t.Errorf("instance %s shifted by %s, want %s", appt.ID, got, delta)
			}
			if got := appt.End.Sub(orig.End); got != delta {
				t.Errorf("instance %s end shifted by %s, want %s", appt.ID, got, delta)
			}
		}
	}

	// the earlier instance is not in the result at all
	for _, appt := range updated {
		if appt.ID == instances[0].ID {
			t.Error("earlier instance must not be touched")
		}
	}
}

func TestApplyToFutureOrdersByCountdownNotDate(t *testing.T) {
	// An instance whose date was independently moved into the past is
	// still "future" if its countdown says so.
	_, instances := seriesFixture(t, 3)
	instances[2].Start = instances[0].Start.AddDate(0, 0, -30)
	instances[2].End = instances[2].Start.Add(time.Hour)

	target := instances[1]
	updated := ApplyToFuture(target, instances, Change{Status: StatusCancelled}, "new-series")

	found := false
	for _, appt := range updated {
		if appt.ID == instances[2].ID {
			found = true
		}
		if appt.ID == instances[0].ID {
			t.Error("instance with larger countdown must be excluded")
		}
	}
	if !found {
		t.Error("date-moved later instance must still be included by countdown")
	}
}

func TestApplyToFutureStandaloneTarget(t *testing.T) {
	start := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	appt := Appointment{ID: "a1", Start: start, End: start.Add(time.Hour)}
	if got := ApplyToFuture(appt, nil, Change{}, "x"); got != nil {
		t.Error("standalone target must yield nil")
	}
}

func TestParseScope(t *testing.T) {
	if _, err := ParseScope("this"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if _, err := ParseScope("future"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if _, err := ParseScope("all"); err == nil {
		t.Error("expected error for unknown scope")
	}
}
