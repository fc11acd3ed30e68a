package scheduling

// The in-memory appointment list is maintained through a single reducer so
// the stage/commit/revert/reload paths are testable without any transport.
// The live calendar feed keeps its per-org projection this way.

// ListEvent is one input to Reduce.
type ListEvent interface{ isListEvent() }

// Staged optimistically replaces an appointment while a scope choice is
// pending. The previous value should be kept by the caller for Reverted.
type Staged struct{ Appointment Appointment }

// Reverted restores the pre-stage snapshot after a dismissed confirmation.
type Reverted struct{ Appointment Appointment }

// Upserted inserts or replaces appointments after a committed mutation.
type Upserted struct{ Appointments []Appointment }

// Removed drops an appointment by id.
type Removed struct{ ID string }

// Reloaded discards the projection in favor of a fresh store read.
type Reloaded struct{ Appointments []Appointment }

func (Staged) isListEvent()   {}
func (Reverted) isListEvent() {}
func (Upserted) isListEvent() {}
func (Removed) isListEvent()  {}
func (Reloaded) isListEvent() {}

// Reduce applies one event to the list and returns the new list. The input
// slice is never mutated.
func Reduce(list []Appointment, ev ListEvent) []Appointment {
	switch e := ev.(type) {
	case Staged:
		return replace(list, e.Appointment)
	case Reverted:
		return replace(list, e.Appointment)
	case Upserted:
		out := clone(list)
		for _, appt := range e.Appointments {
			out = replace(out, appt)
		}
		return out
	case Removed:
		out := make([]Appointment, 0, len(list))
		for _, appt := range list {
			if appt.ID != e.ID {
				out = append(out, appt)
			}
		}
		return out
	case Reloaded:
		return clone(e.Appointments)
	}
	return list
}

func replace(list []Appointment, appt Appointment) []Appointment {
	out := clone(list)
	for i := range out {
		if out[i].ID == appt.ID {
			out[i] = appt
			return out
		}
	}
	return append(out, appt)
}

func clone(list []Appointment) []Appointment {
	out := make([]Appointment, len(list))
	copy(out, list)
	return out
}
