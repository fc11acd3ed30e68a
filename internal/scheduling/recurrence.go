package scheduling

import (
	"time"

	"github.com/google/uuid"
)

// SeriesTemplate is the base appointment the generator stamps out.
type SeriesTemplate struct {
	OrgID       string
	PatientID   string
	PatientName string
	Type        AppointmentType
	Start       time.Time
	End         time.Time
}

func (t SeriesTemplate) valid() bool {
	return t.PatientID != "" && !t.Start.IsZero() && !t.End.IsZero() && t.End.After(t.Start)
}

// GenerateSeries produces the series record and its ordered instances.
// Instance i starts at base + i*interval periods, preserving time-of-day.
// RemainingSessions counts occurrences after the instance, so the first
// carries occurrences-1 and the last carries 0.
//
// An incomplete template yields a nil slice without error; validation
// upstream is expected to reject such requests before they get here.
func GenerateSeries(tpl SeriesTemplate, freq Frequency, occurrences int) (Series, []Appointment) {
	if !tpl.valid() || freq.Interval < 1 || occurrences < 1 {
		return Series{}, nil
	}

	series := Series{
		ID:          uuid.New().String(),
		OrgID:       tpl.OrgID,
		PatientID:   tpl.PatientID,
		Interval:    freq.Interval,
		Period:      freq.Period,
		Occurrences: occurrences,
		BaseStart:   tpl.Start,
	}

	duration := tpl.End.Sub(tpl.Start)
	instances := make([]Appointment, 0, occurrences)
	for i := 0; i < occurrences; i++ {
		start := advance(tpl.Start, freq, i)
		instances = append(instances, Appointment{
			ID:                uuid.New().String(),
			OrgID:             tpl.OrgID,
			PatientID:         tpl.PatientID,
			PatientName:       tpl.PatientName,
			Type:              tpl.Type,
			Status:            StatusBooked,
			Start:             start,
			End:               start.Add(duration),
			SeriesID:          strPtr(series.ID),
			RemainingSessions: intPtr(occurrences - 1 - i),
		})
	}
	return series, instances
}

// advance moves the base start forward by steps*interval periods.
func advance(base time.Time, freq Frequency, steps int) time.Time {
	if steps == 0 {
		return base
	}
	switch freq.Period {
	case PeriodWeek:
		return base.AddDate(0, 0, steps*freq.Interval*7)
	case PeriodMonth:
		return addMonthsClamped(base, steps*freq.Interval)
	}
	return base
}

// addMonthsClamped adds calendar months, clamping the day-of-month to the
// last day of the target month instead of letting it overflow. Jan 31 plus
// one month lands on Feb 29 in a leap year and Feb 28 otherwise.
func addMonthsClamped(t time.Time, months int) time.Time {
	year, month, day := t.Date()
	hour, min, sec := t.Clock()

	first := time.Date(year, month+time.Month(months), 1, 0, 0, 0, 0, t.Location())
	// Day 0 of the following month is the last day of the target month.
	lastDay := time.Date(first.Year(), first.Month()+1, 0, 0, 0, 0, 0, t.Location()).Day()
	if day > lastDay {
		day = lastDay
	}
	return time.Date(first.Year(), first.Month(), day, hour, min, sec, t.Nanosecond(), t.Location())
}
