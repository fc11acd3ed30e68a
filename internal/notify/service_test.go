package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sereno-care/practice-platform/internal/patients"
	"github.com/sereno-care/practice-platform/internal/scheduling"
)

type fakeSender struct {
	sent []EmailMessage
	err  error
}

func (f *fakeSender) Send(_ context.Context, msg EmailMessage) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

type fakeLister struct {
	appts []scheduling.Appointment
	err   error
}

func (f *fakeLister) List(_ context.Context, _ string, _, _ time.Time) ([]scheduling.Appointment, error) {
	return f.appts, f.err
}

type fakeDirectory struct {
	patients map[string]*patients.Patient
}

func (f *fakeDirectory) GetByID(_ context.Context, _, id string) (*patients.Patient, error) {
	p, ok := f.patients[id]
	if !ok {
		return nil, patients.ErrPatientNotFound
	}
	return p, nil
}

func reminderAppt(id, patientID string, start time.Time, status scheduling.AppointmentStatus) scheduling.Appointment {
	return scheduling.Appointment{
		ID:        id,
		OrgID:     "org-1",
		PatientID: patientID,
		Type:      scheduling.TypeFollowUp,
		Status:    status,
		Start:     start,
		End:       start.Add(50 * time.Minute),
	}
}

func TestSendUpcoming(t *testing.T) {
	now := time.Date(2024, 6, 17, 8, 0, 0, 0, time.UTC)

	sender := &fakeSender{}
	lister := &fakeLister{appts: []scheduling.Appointment{
		reminderAppt("a-1", "p-1", now.Add(2*time.Hour), scheduling.StatusBooked),
		reminderAppt("a-2", "p-2", now.Add(3*time.Hour), scheduling.StatusCancelled),
		reminderAppt("a-3", "p-3", now.Add(4*time.Hour), scheduling.StatusBooked),
		reminderAppt("a-4", "p-4", now.Add(5*time.Hour), scheduling.StatusBooked),
	}}
	dir := &fakeDirectory{patients: map[string]*patients.Patient{
		"p-1": {ID: "p-1", Name: "Ada Moreno", Email: "ada@example.com"},
		"p-2": {ID: "p-2", Name: "Ben Ito", Email: "ben@example.com"},
		"p-3": {ID: "p-3", Name: "Cleo Park"}, // no email address
		"p-4": {ID: "p-4", Name: "Dev Rao", Email: "dev@example.com", Archived: true},
	}}

	svc := NewService(sender, lister, dir, nil)
	svc.now = func() time.Time { return now }

	sent, err := svc.SendUpcoming(context.Background(), "org-1", 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)

	require.Len(t, sender.sent, 1)
	msg := sender.sent[0]
	assert.Equal(t, "ada@example.com", msg.To)
	assert.Contains(t, msg.Subject, "Monday, June 17 at 10:00 AM")
	assert.Contains(t, msg.Body, "Hi Ada Moreno")
	assert.Contains(t, msg.Body, "50 minutes")
}

func TestSendUpcomingNoSenderConfigured(t *testing.T) {
	lister := &fakeLister{appts: []scheduling.Appointment{
		reminderAppt("a-1", "p-1", time.Now().Add(time.Hour), scheduling.StatusBooked),
	}}
	dir := &fakeDirectory{patients: map[string]*patients.Patient{}}

	svc := NewService(nil, lister, dir, nil)

	sent, err := svc.SendUpcoming(context.Background(), "org-1", time.Hour)
	require.NoError(t, err)
	assert.Zero(t, sent)
}

func TestSendUpcomingContinuesPastFailures(t *testing.T) {
	now := time.Date(2024, 6, 17, 8, 0, 0, 0, time.UTC)

	sender := &fakeSender{}
	lister := &fakeLister{appts: []scheduling.Appointment{
		reminderAppt("a-1", "missing", now.Add(time.Hour), scheduling.StatusBooked),
		reminderAppt("a-2", "p-2", now.Add(2*time.Hour), scheduling.StatusBooked),
	}}
	dir := &fakeDirectory{patients: map[string]*patients.Patient{
		"p-2": {ID: "p-2", Name: "Ben Ito", Email: "ben@example.com"},
	}}

	svc := NewService(sender, lister, dir, nil)
	svc.now = func() time.Time { return now }

	sent, err := svc.SendUpcoming(context.Background(), "org-1", 24*time.Hour)
	assert.ErrorIs(t, err, patients.ErrPatientNotFound)
	assert.Equal(t, 1, sent)
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "ben@example.com", sender.sent[0].To)
}

func TestSendUpcomingListError(t *testing.T) {
	lister := &fakeLister{err: errors.New("db down")}
	dir := &fakeDirectory{patients: map[string]*patients.Patient{}}

	svc := NewService(&fakeSender{}, lister, dir, nil)

	_, err := svc.SendUpcoming(context.Background(), "org-1", time.Hour)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list appointments")
}

func TestSendUpcomingRejectsNonPositiveWindow(t *testing.T) {
	svc := NewService(&fakeSender{}, &fakeLister{}, &fakeDirectory{}, nil)

	_, err := svc.SendUpcoming(context.Background(), "org-1", 0)
	require.Error(t, err)
}
