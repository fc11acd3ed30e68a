package scheduling

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/sereno-care/practice-platform/internal/events"
	"github.com/sereno-care/practice-platform/internal/observability/metrics"
	"github.com/sereno-care/practice-platform/pkg/logging"
)

// ErrIncompleteTemplate is returned when the validation gate rejects a
// schedule request missing patient or time fields.
var ErrIncompleteTemplate = errors.New("patient and start/end fields are required")

// Store is the persistence surface the service needs.
type Store interface {
	CreateAppointment(ctx context.Context, appt *Appointment) error
	CreateSeries(ctx context.Context, series Series, instances []Appointment) error
	GetForOrg(ctx context.Context, orgID, id string) (*Appointment, error)
	ListForOrg(ctx context.Context, orgID string, from, to time.Time) ([]Appointment, error)
	ListSeriesMembers(ctx context.Context, orgID, seriesID string) ([]Appointment, error)
	UpdateAppointment(ctx context.Context, appt Appointment) error
	ReassignSeriesSuffix(ctx context.Context, newSeries Series, updated []Appointment) error
	Delete(ctx context.Context, orgID, id string) error
	GetSeries(ctx context.Context, orgID, seriesID string) (*Series, error)
}

// Service orchestrates the recurring-appointment engine against the store.
// Any failed mutation triggers a full reload broadcast instead of a
// targeted rollback; there are no retries.
type Service struct {
	store          Store
	bus            *events.Bus
	metrics        *metrics.SchedulingMetrics
	logger         *logging.Logger
	maxOccurrences int
}

// NewService wires the scheduling service.
func NewService(store Store, bus *events.Bus, m *metrics.SchedulingMetrics, logger *logging.Logger, maxOccurrences int) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	if maxOccurrences < 1 {
		maxOccurrences = 52
	}
	return &Service{
		store:          store,
		bus:            bus,
		metrics:        m,
		logger:         logger.WithComponent("scheduling"),
		maxOccurrences: maxOccurrences,
	}
}

// ScheduleSingle books one standalone appointment.
func (s *Service) ScheduleSingle(ctx context.Context, tpl SeriesTemplate) (*Appointment, error) {
	if !tpl.valid() {
		return nil, ErrIncompleteTemplate
	}
	appt := Appointment{
		ID:          uuid.New().String(),
		OrgID:       tpl.OrgID,
		PatientID:   tpl.PatientID,
		PatientName: tpl.PatientName,
		Type:        tpl.Type,
		Status:      StatusBooked,
		Start:       tpl.Start,
		End:         tpl.End,
	}
	if err := s.store.CreateAppointment(ctx, &appt); err != nil {
		return nil, err
	}
	s.publish(tpl.OrgID, events.TopicAppointmentsUpserted, []Appointment{appt})
	return &appt, nil
}

// ScheduleSeries generates and persists a recurring series.
func (s *Service) ScheduleSeries(ctx context.Context, tpl SeriesTemplate, freq Frequency, occurrences int) ([]Appointment, error) {
	if occurrences < 1 || occurrences > s.maxOccurrences {
		return nil, ErrInvalidOccurrences
	}
	series, instances := GenerateSeries(tpl, freq, occurrences)
	if len(instances) == 0 {
		return nil, ErrIncompleteTemplate
	}
	if err := s.store.CreateSeries(ctx, series, instances); err != nil {
		return nil, err
	}
	s.metrics.ObserveSeriesCreated(string(freq.Period))
	s.logger.Info("series scheduled",
		"org_id", tpl.OrgID,
		"series_id", series.ID,
		"occurrences", occurrences,
		"frequency", freq.String(),
	)
	s.publish(tpl.OrgID, events.TopicAppointmentsUpserted, instances)
	return instances, nil
}

// List returns appointments in the window.
func (s *Service) List(ctx context.Context, orgID string, from, to time.Time) ([]Appointment, error) {
	return s.store.ListForOrg(ctx, orgID, from, to)
}

// Get returns one appointment.
func (s *Service) Get(ctx context.Context, orgID, id string) (*Appointment, error) {
	return s.store.GetForOrg(ctx, orgID, id)
}

// EditResult reports what an edit did. When RequiresScope is set nothing
// was persisted: Staged carries the preview the caller should show while
// it collects a scope choice.
type EditResult struct {
	RequiresScope bool          `json:"requires_scope"`
	Decision      DecisionKind  `json:"decision"`
	Appointment   *Appointment  `json:"appointment,omitempty"`
	Staged        *Appointment  `json:"staged,omitempty"`
	Updated       []Appointment `json:"updated,omitempty"`
}

// Edit applies a field or drag change to one appointment. Standalone and
// last-in-series targets commit immediately; other series members come
// back with RequiresScope for the caller to resolve via ApplyScope.
func (s *Service) Edit(ctx context.Context, orgID, id string, ch Change) (*EditResult, error) {
	appt, err := s.store.GetForOrg(ctx, orgID, id)
	if err != nil {
		return nil, err
	}

	decision := Resolve(*appt, ch)
	switch decision.Kind {
	case DecisionScope:
		s.metrics.ObserveReschedule(string(decision.Kind), "staged")
		staged := decision.Updated
		return &EditResult{RequiresScope: true, Decision: decision.Kind, Staged: &staged}, nil
	default:
		if err := s.store.UpdateAppointment(ctx, decision.Updated); err != nil {
			s.metrics.ObserveReschedule(string(decision.Kind), "failed")
			s.reloadAfterFailure(ctx, orgID, err)
			return nil, err
		}
		s.metrics.ObserveReschedule(string(decision.Kind), "committed")
		updated := decision.Updated
		s.publish(orgID, events.TopicAppointmentsUpserted, []Appointment{updated})
		return &EditResult{Decision: decision.Kind, Appointment: &updated}, nil
	}
}

// Reschedule translates a drop target into a time change and edits.
func (s *Service) Reschedule(ctx context.Context, orgID, id string, target DropTarget) (*EditResult, error) {
	appt, err := s.store.GetForOrg(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	start, end := Place(*appt, target)
	return s.Edit(ctx, orgID, id, Change{Start: start, End: end})
}

// ApplyScope commits a staged series edit with the caller's choice.
func (s *Service) ApplyScope(ctx context.Context, orgID, id string, ch Change, scope UpdateScope) (*EditResult, error) {
	appt, err := s.store.GetForOrg(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	if !appt.InSeries() {
		return nil, ErrNotInSeries
	}

	switch scope {
	case ScopeThis:
		updated := ApplyChange(*appt, ch)
		updated.Detach()
		if err := s.store.UpdateAppointment(ctx, updated); err != nil {
			s.metrics.ObserveReschedule("scope_this", "failed")
			s.reloadAfterFailure(ctx, orgID, err)
			return nil, err
		}
		s.metrics.ObserveReschedule("scope_this", "committed")
		s.publish(orgID, events.TopicAppointmentsUpserted, []Appointment{updated})
		return &EditResult{Decision: DecisionDetach, Appointment: &updated}, nil

	case ScopeFuture:
		siblings, err := s.store.ListSeriesMembers(ctx, orgID, *appt.SeriesID)
		if err != nil {
			return nil, err
		}
		newSeries, updated := s.buildSuffixSeries(ctx, orgID, *appt, siblings, ch)
		if err := s.store.ReassignSeriesSuffix(ctx, newSeries, updated); err != nil {
			s.metrics.ObserveReschedule("scope_future", "failed")
			s.reloadAfterFailure(ctx, orgID, err)
			return nil, err
		}
		s.metrics.ObserveReschedule("scope_future", "committed")
		s.logger.Info("series suffix reassigned",
			"org_id", orgID,
			"old_series_id", *appt.SeriesID,
			"new_series_id", newSeries.ID,
			"instances", len(updated),
		)
		s.publish(orgID, events.TopicAppointmentsUpserted, updated)
		return &EditResult{Decision: DecisionScope, Updated: updated}, nil
	}
	return nil, ErrInvalidScope
}

// Cancel marks an appointment cancelled through the normal edit path.
func (s *Service) Cancel(ctx context.Context, orgID, id string, scope UpdateScope) (*EditResult, error) {
	ch := Change{Status: StatusCancelled}
	if scope == "" {
		return s.Edit(ctx, orgID, id, ch)
	}
	return s.ApplyScope(ctx, orgID, id, ch, scope)
}

// Delete removes one appointment; siblings of a series are untouched.
func (s *Service) Delete(ctx context.Context, orgID, id string) error {
	if err := s.store.Delete(ctx, orgID, id); err != nil {
		if !errors.Is(err, ErrAppointmentNotFound) {
			s.reloadAfterFailure(ctx, orgID, err)
		}
		return err
	}
	s.bus.Publish(events.Envelope{OrgID: orgID, Topic: events.TopicAppointmentsRemoved, Payload: Removed{ID: id}})
	return nil
}

// buildSuffixSeries derives the new series record for a this-and-future
// edit. The rule is copied from the original series when it still exists;
// a placeholder rule is synthesized otherwise so the suffix stays linked.
func (s *Service) buildSuffixSeries(ctx context.Context, orgID string, target Appointment, siblings []Appointment, ch Change) (Series, []Appointment) {
	newID := uuid.New().String()
	updated := ApplyToFuture(target, siblings, ch, newID)

	newSeries := Series{
		ID:          newID,
		OrgID:       orgID,
		PatientID:   target.PatientID,
		Interval:    1,
		Period:      PeriodWeek,
		Occurrences: len(updated),
	}
	if prev, err := s.store.GetSeries(ctx, orgID, *target.SeriesID); err == nil {
		newSeries.Interval = prev.Interval
		newSeries.Period = prev.Period
	}
	if len(updated) > 0 {
		newSeries.BaseStart = updated[len(updated)-1].Start
		for _, appt := range updated {
			if appt.Start.Before(newSeries.BaseStart) {
				newSeries.BaseStart = appt.Start
			}
		}
	}
	return newSeries, updated
}

// reloadAfterFailure re-reads the org's full list and broadcasts it,
// discarding any optimistic state downstream.
func (s *Service) reloadAfterFailure(ctx context.Context, orgID string, cause error) {
	s.metrics.ObserveReload()
	s.logger.Error("mutation failed, reloading appointment list", "org_id", orgID, "error", cause)

	fresh, err := s.store.ListForOrg(ctx, orgID, time.Time{}, time.Time{})
	if err != nil {
		s.logger.Error("reload after failure also failed", "org_id", orgID, "error", err)
		return
	}
	s.bus.Publish(events.Envelope{
		OrgID:   orgID,
		Topic:   events.TopicAppointmentsReloaded,
		Payload: Reloaded{Appointments: fresh},
	})
}

func (s *Service) publish(orgID, topic string, appts []Appointment) {
	s.bus.Publish(events.Envelope{
		OrgID:   orgID,
		Topic:   topic,
		Payload: Upserted{Appointments: appts},
	})
}
