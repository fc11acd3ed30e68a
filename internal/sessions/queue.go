package sessions

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Queue is the transport for transcription jobs between the API and the
// session worker.
type Queue interface {
	Send(ctx context.Context, body string) error
	Receive(ctx context.Context, maxMessages int, waitSeconds int) ([]Message, error)
	Delete(ctx context.Context, receiptHandle string) error
}

// Message is one received queue entry.
type Message struct {
	ID            string
	Body          string
	ReceiptHandle string
}

// jobPayload is the wire format for a transcription job.
type jobPayload struct {
	ID            string `json:"id"`
	OrgID         string `json:"org_id"`
	AppointmentID string `json:"appointment_id"`
	PatientID     string `json:"patient_id"`
	RecordingKey  string `json:"recording_key"`
	ContentType   string `json:"content_type"`
	TemplateID    string `json:"template_id,omitempty"`
}

func encodePayload(payload jobPayload) (jobPayload, string, error) {
	if payload.ID == "" {
		payload.ID = uuid.NewString()
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return jobPayload{}, "", fmt.Errorf("sessions: failed to encode payload: %w", err)
	}

	return payload, string(body), nil
}
