package scheduling

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// AppointmentType enumerates the supported visit types. The set is open:
// unknown values round-trip through the store untouched.
type AppointmentType string

const (
	TypeIntake   AppointmentType = "intake"
	TypeFollowUp AppointmentType = "follow_up"
)

// AppointmentStatus is the stored status. "booked-past" vs "booked-future"
// is derived at read time from Start vs now and never persisted.
type AppointmentStatus string

const (
	StatusBooked    AppointmentStatus = "booked"
	StatusCancelled AppointmentStatus = "cancelled"
	StatusNoShow    AppointmentStatus = "noshow"
)

// Period is the recurrence period unit.
type Period string

const (
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
)

// Appointment is one concrete occurrence, standalone or belonging to a series.
type Appointment struct {
	ID          string            `json:"id"`
	OrgID       string            `json:"org_id"`
	PatientID   string            `json:"patient_id"`
	PatientName string            `json:"patient_name"`
	Type        AppointmentType   `json:"type"`
	Status      AppointmentStatus `json:"status"`
	Start       time.Time         `json:"start"`
	End         time.Time         `json:"end"`

	// SeriesID links the appointment to a series. RemainingSessions counts
	// the occurrences after this one; the last occurrence carries 0.
	SeriesID          *string `json:"series_id,omitempty"`
	RemainingSessions *int    `json:"remaining_sessions,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// InSeries reports whether the appointment participates in series-wide edits.
// An appointment without a series id is standalone regardless of any
// leftover remaining-sessions value.
func (a *Appointment) InSeries() bool {
	return a.SeriesID != nil && *a.SeriesID != "" && a.RemainingSessions != nil
}

// LastInSeries reports whether this is the final occurrence of its series.
func (a *Appointment) LastInSeries() bool {
	return a.InSeries() && *a.RemainingSessions == 0
}

// Duration returns end minus start.
func (a *Appointment) Duration() time.Duration {
	return a.End.Sub(a.Start)
}

// Detach strips the series identifiers so the appointment no longer
// participates in series-wide edits.
func (a *Appointment) Detach() {
	a.SeriesID = nil
	a.RemainingSessions = nil
}

// Series is the first-class record owning a recurrence rule. Instances
// reference it by id; the rule itself is never re-derived from instances.
type Series struct {
	ID          string    `json:"id"`
	OrgID       string    `json:"org_id"`
	PatientID   string    `json:"patient_id"`
	Interval    int       `json:"interval"`
	Period      Period    `json:"period"`
	Occurrences int       `json:"occurrences"`
	BaseStart   time.Time `json:"base_start"`
	CreatedAt   time.Time `json:"created_at"`
}

// Frequency is a parsed recurrence specification such as "every 2 weeks".
type Frequency struct {
	Interval int    `json:"interval"`
	Period   Period `json:"period"`
}

// ParseFrequency accepts "every N week(s)/month(s)" and the shorthand
// "Nw"/"Nm" used by older clients.
func ParseFrequency(raw string) (Frequency, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return Frequency{}, ErrInvalidFrequency
	}

	s = strings.TrimPrefix(s, "every ")
	s = strings.TrimSpace(s)

	if n := len(s); n >= 2 && (s[n-1] == 'w' || s[n-1] == 'm') {
		if interval, err := strconv.Atoi(s[:n-1]); err == nil {
			return newFrequency(interval, s[n-1] == 'w')
		}
	}

	fields := strings.Fields(s)
	if len(fields) != 2 {
		return Frequency{}, fmt.Errorf("%w: %q", ErrInvalidFrequency, raw)
	}
	interval, err := strconv.Atoi(fields[0])
	if err != nil {
		return Frequency{}, fmt.Errorf("%w: %q", ErrInvalidFrequency, raw)
	}
	switch strings.TrimSuffix(fields[1], "s") {
	case "week":
		return newFrequency(interval, true)
	case "month":
		return newFrequency(interval, false)
	}
	return Frequency{}, fmt.Errorf("%w: %q", ErrInvalidFrequency, raw)
}

func newFrequency(interval int, week bool) (Frequency, error) {
	if interval < 1 {
		return Frequency{}, ErrInvalidFrequency
	}
	period := PeriodMonth
	if week {
		period = PeriodWeek
	}
	return Frequency{Interval: interval, Period: period}, nil
}

func (f Frequency) String() string {
	unit := string(f.Period)
	if f.Interval != 1 {
		unit += "s"
	}
	return fmt.Sprintf("every %d %s", f.Interval, unit)
}

func intPtr(v int) *int       { return &v }
func strPtr(v string) *string { return &v }
