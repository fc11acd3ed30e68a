package scheduling

import "errors"

var (
	// ErrAppointmentNotFound is returned when an appointment does not exist
	// or belongs to a different org.
	ErrAppointmentNotFound = errors.New("appointment not found")

	// ErrSeriesNotFound is returned when a series id resolves to nothing.
	ErrSeriesNotFound = errors.New("series not found")

	// ErrInvalidFrequency is returned for unparseable recurrence specs.
	ErrInvalidFrequency = errors.New("invalid frequency")

	// ErrInvalidOccurrences is returned when the occurrence count is out of range.
	ErrInvalidOccurrences = errors.New("occurrences must be between 1 and the configured maximum")

	// ErrScopeRequired is returned when an edit touches a non-last series
	// member and the caller has not chosen an update scope yet.
	ErrScopeRequired = errors.New("series edit requires a scope choice")

	// ErrNotInSeries is returned when a scoped update targets a standalone appointment.
	ErrNotInSeries = errors.New("appointment is not part of a series")

	// ErrInvalidScope is returned for unknown scope values.
	ErrInvalidScope = errors.New("scope must be \"this\" or \"future\"")
)
