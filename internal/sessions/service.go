package sessions

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/sereno-care/practice-platform/internal/observability/metrics"
	"github.com/sereno-care/practice-platform/pkg/logging"
)

// ErrJobNotCancelable is returned when cancellation targets a job that
// already reached a terminal state.
var ErrJobNotCancelable = errors.New("sessions: job is not pending")

// UploadRequest carries one recording destined for the pipeline.
type UploadRequest struct {
	OrgID         string
	AppointmentID string
	PatientID     string
	TemplateID    string
	ContentType   string
	Audio         []byte
}

// UploadResult identifies the stored recording and its queued job.
type UploadResult struct {
	JobID        string `json:"job_id"`
	RecordingKey string `json:"recording_key"`
}

// Service accepts recordings, stages them in S3, and enqueues
// transcription jobs for the worker.
type Service struct {
	audio   *AudioStore
	queue   Queue
	jobs    JobRecorder
	updater JobUpdater
	metrics *metrics.SessionMetrics
	logger  *logging.Logger
}

func NewService(audio *AudioStore, queue Queue, jobs JobRecorder, updater JobUpdater, m *metrics.SessionMetrics, logger *logging.Logger) *Service {
	if audio == nil {
		panic("sessions: audio store required")
	}
	if queue == nil {
		panic("sessions: queue required")
	}
	if jobs == nil {
		panic("sessions: job recorder required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		audio:   audio,
		queue:   queue,
		jobs:    jobs,
		updater: updater,
		metrics: m,
		logger:  logger,
	}
}

// Upload stores the audio and enqueues a transcription job. The job id
// returned can be polled until the worker finishes.
func (s *Service) Upload(ctx context.Context, req UploadRequest) (*UploadResult, error) {
	if req.OrgID == "" || req.AppointmentID == "" {
		return nil, errors.New("sessions: org and appointment are required")
	}
	if len(req.Audio) == 0 {
		return nil, errors.New("sessions: recording is empty")
	}

	recordingID := uuid.NewString()
	key, err := s.audio.PutRecording(ctx, req.OrgID, req.AppointmentID, recordingID, req.ContentType, req.Audio)
	if err != nil {
		return nil, err
	}

	payload, body, err := encodePayload(jobPayload{
		OrgID:         req.OrgID,
		AppointmentID: req.AppointmentID,
		PatientID:     req.PatientID,
		RecordingKey:  key,
		ContentType:   req.ContentType,
		TemplateID:    req.TemplateID,
	})
	if err != nil {
		return nil, err
	}

	if err := s.jobs.PutPending(ctx, &JobRecord{
		JobID:         payload.ID,
		OrgID:         req.OrgID,
		AppointmentID: req.AppointmentID,
		PatientID:     req.PatientID,
		RecordingKey:  key,
	}); err != nil {
		return nil, err
	}

	if err := s.queue.Send(ctx, body); err != nil {
		// The recording is staged but the job never left; surface the
		// failure on the job record so polling clients see it.
		if s.updater != nil {
			if markErr := s.updater.MarkFailed(ctx, payload.ID, "enqueue failed: "+err.Error()); markErr != nil {
				s.logger.Error("failed to mark job after enqueue failure", "error", markErr, "job_id", payload.ID)
			}
		}
		return nil, fmt.Errorf("sessions: enqueue: %w", err)
	}

	s.metrics.ObserveJob("enqueued")
	s.logger.Info("transcription job enqueued",
		"job_id", payload.ID,
		"org_id", req.OrgID,
		"appointment_id", req.AppointmentID,
	)
	return &UploadResult{JobID: payload.ID, RecordingKey: key}, nil
}

// Status returns the current job record.
func (s *Service) Status(ctx context.Context, orgID, jobID string) (*JobRecord, error) {
	job, err := s.jobs.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.OrgID != orgID {
		return nil, ErrJobNotFound
	}
	return job, nil
}

// Cancel discards a pending recording. The S3 object is deleted and the
// job marked failed; work already picked up by a worker is not
// interrupted.
func (s *Service) Cancel(ctx context.Context, orgID, jobID string) error {
	job, err := s.jobs.GetJob(ctx, jobID)
	if err != nil {
		return err
	}
	if job.OrgID != orgID {
		return ErrJobNotFound
	}
	if job.Status != JobStatusPending {
		return ErrJobNotCancelable
	}

	if err := s.audio.DeleteRecording(ctx, job.RecordingKey); err != nil {
		return err
	}
	if s.updater != nil {
		if err := s.updater.MarkFailed(ctx, jobID, "canceled before processing"); err != nil {
			return err
		}
	}
	s.metrics.ObserveJob("canceled")
	s.logger.Info("transcription job canceled", "job_id", jobID, "org_id", orgID)
	return nil
}
