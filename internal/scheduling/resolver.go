package scheduling

import "time"

// Change describes an edit coming from a form save or a drag drop.
// Zero values mean "keep the current value". When only Start is given the
// original duration is preserved.
type Change struct {
	Start       time.Time         `json:"start,omitempty"`
	End         time.Time         `json:"end,omitempty"`
	Status      AppointmentStatus `json:"status,omitempty"`
	Type        AppointmentType   `json:"type,omitempty"`
	PatientName string            `json:"patient_name,omitempty"`
}

// IsZero reports whether the change carries nothing.
func (c Change) IsZero() bool {
	return c.Start.IsZero() && c.End.IsZero() && c.Status == "" && c.Type == "" && c.PatientName == ""
}

// UpdateScope is the caller's answer to the series-edit confirmation.
type UpdateScope string

const (
	// ScopeThis commits the change to the one instance and detaches it.
	ScopeThis UpdateScope = "this"
	// ScopeFuture applies the change to the instance and every later one.
	ScopeFuture UpdateScope = "future"
)

// ParseScope validates a scope string from the API.
func ParseScope(raw string) (UpdateScope, error) {
	switch UpdateScope(raw) {
	case ScopeThis:
		return ScopeThis, nil
	case ScopeFuture:
		return ScopeFuture, nil
	}
	return "", ErrInvalidScope
}

// DecisionKind classifies what an edit requires.
type DecisionKind string

const (
	// DecisionDirect applies the change to the single resource. Terminal.
	DecisionDirect DecisionKind = "direct"
	// DecisionDetach applies the change and strips the series identifiers.
	// Taken for the last occurrence of a series. Terminal.
	DecisionDetach DecisionKind = "detach"
	// DecisionScope means the edit touches a non-last series member and the
	// caller must choose between single-instance and this-and-future.
	DecisionScope DecisionKind = "scope"
)

// Decision is the resolver's verdict for one edit, including the target
// with the change already applied (the staged preview for DecisionScope).
type Decision struct {
	Kind    DecisionKind
	Updated Appointment
}

// Resolve decides whether an edit applies to just the target instance or
// must offer series-wide propagation. Ordering within a series is decided
// purely by the stored RemainingSessions countdown, never by date.
func Resolve(appt Appointment, ch Change) Decision {
	updated := ApplyChange(appt, ch)
	switch {
	case !appt.InSeries():
		return Decision{Kind: DecisionDirect, Updated: updated}
	case appt.LastInSeries():
		updated.Detach()
		return Decision{Kind: DecisionDetach, Updated: updated}
	}
	return Decision{Kind: DecisionScope, Updated: updated}
}

// ApplyChange returns a copy of the appointment with the change applied,
// preserving duration when the edit moves only the start.
func ApplyChange(appt Appointment, ch Change) Appointment {
	out := appt
	if !ch.Start.IsZero() {
		out.Start = ch.Start
		if ch.End.IsZero() {
			out.End = ch.Start.Add(appt.Duration())
		}
	}
	if !ch.End.IsZero() {
		out.End = ch.End
	}
	if ch.Status != "" {
		out.Status = ch.Status
	}
	if ch.Type != "" {
		out.Type = ch.Type
	}
	if ch.PatientName != "" {
		out.PatientName = ch.PatientName
	}
	return out
}

// ApplyToFuture computes the mutated copies for a "this and future" choice.
//
// siblings is every member of the target's series, in any order. The suffix
// is the target plus all instances with a smaller-or-equal RemainingSessions
// countdown; each is shifted by the target's start delta, receives the same
// status/type/name change, and is re-pointed at newSeriesID. Instances not
// yet reached keep the original series id and are not returned.
func ApplyToFuture(target Appointment, siblings []Appointment, ch Change, newSeriesID string) []Appointment {
	if !target.InSeries() {
		return nil
	}

	var delta time.Duration
	if !ch.Start.IsZero() {
		delta = ch.Start.Sub(target.Start)
	}

	cutoff := *target.RemainingSessions
	out := make([]Appointment, 0, len(siblings)+1)
	for _, sib := range siblings {
		if !sib.InSeries() || *sib.RemainingSessions > cutoff {
			continue
		}
		updated := sib
		if sib.ID == target.ID {
			updated = ApplyChange(sib, ch)
		} else {
			updated.Start = sib.Start.Add(delta)
			updated.End = sib.End.Add(delta)
			if ch.Status != "" {
				updated.Status = ch.Status
			}
			if ch.Type != "" {
				updated.Type = ch.Type
			}
			if ch.PatientName != "" {
				updated.PatientName = ch.PatientName
			}
		}
		updated.SeriesID = strPtr(newSeriesID)
		out = append(out, updated)
	}
	return out
}
