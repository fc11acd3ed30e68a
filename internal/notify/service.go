package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/sereno-care/practice-platform/internal/patients"
	"github.com/sereno-care/practice-platform/internal/scheduling"
	"github.com/sereno-care/practice-platform/pkg/logging"
)

// AppointmentLister returns the appointments for an org within a window.
type AppointmentLister interface {
	List(ctx context.Context, orgID string, from, to time.Time) ([]scheduling.Appointment, error)
}

// PatientDirectory looks up patient contact details.
type PatientDirectory interface {
	GetByID(ctx context.Context, orgID, id string) (*patients.Patient, error)
}

// Service sends appointment reminder emails to patients.
type Service struct {
	email    EmailSender
	appts    AppointmentLister
	patients PatientDirectory
	logger   *logging.Logger

	now func() time.Time
}

// NewService creates a reminder service. A nil email sender disables
// sending entirely; SendUpcoming then reports zero sent.
func NewService(email EmailSender, appts AppointmentLister, patients PatientDirectory, logger *logging.Logger) *Service {
	if appts == nil {
		panic("notify: appointment lister is required")
	}
	if patients == nil {
		panic("notify: patient directory is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		email:    email,
		appts:    appts,
		patients: patients,
		logger:   logger,
		now:      time.Now,
	}
}

// SendUpcoming emails a reminder for every booked appointment starting within
// the window from now. Appointments with cancelled or no-show status, archived
// patients, and patients without an email address are skipped. Send failures
// are logged and do not stop the sweep; the count of successful sends is
// returned along with the last error seen.
func (s *Service) SendUpcoming(ctx context.Context, orgID string, window time.Duration) (int, error) {
	if s.email == nil {
		s.logger.Debug("notify: email sender not configured, skipping reminders", "org_id", orgID)
		return 0, nil
	}
	if window <= 0 {
		return 0, fmt.Errorf("notify: reminder window must be positive")
	}

	from := s.now()
	to := from.Add(window)

	appts, err := s.appts.List(ctx, orgID, from, to)
	if err != nil {
		return 0, fmt.Errorf("notify: list appointments: %w", err)
	}

	var sent int
	var lastErr error
	for _, appt := range appts {
		if appt.Status != scheduling.StatusBooked {
			continue
		}
		if appt.Start.Before(from) {
			continue
		}

		patient, err := s.patients.GetByID(ctx, orgID, appt.PatientID)
		if err != nil {
			s.logger.Warn("notify: patient lookup failed", "error", err, "patient_id", appt.PatientID)
			lastErr = err
			continue
		}
		if patient.Archived || patient.Email == "" {
			continue
		}

		msg := buildReminder(appt, patient)
		if err := s.email.Send(ctx, msg); err != nil {
			s.logger.Error("notify: reminder send failed", "error", err, "appointment_id", appt.ID)
			lastErr = err
			continue
		}
		sent++
	}

	s.logger.Info("notify: reminder sweep complete", "org_id", orgID, "sent", sent, "window", window.String())
	return sent, lastErr
}

// buildReminder formats the reminder email for one appointment.
func buildReminder(appt scheduling.Appointment, patient *patients.Patient) EmailMessage {
	when := appt.Start.Format("Monday, January 2 at 3:04 PM")

	visit := "session"
	if appt.Type == scheduling.TypeIntake {
		visit = "intake session"
	}

	body := fmt.Sprintf(
		"Hi %s,\n\nThis is a reminder of your upcoming %s on %s.\n\nDuration: %d minutes\n\nIf you need to reschedule, please contact your practice.\n",
		patient.Name, visit, when, int(appt.Duration().Minutes()),
	)

	return EmailMessage{
		To:      patient.Email,
		ToName:  patient.Name,
		Subject: fmt.Sprintf("Appointment reminder: %s", when),
		Body:    body,
	}
}
