package sessions

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/sereno-care/practice-platform/pkg/logging"
)

type failingQueue struct{ err error }

func (q *failingQueue) Send(ctx context.Context, body string) error { return q.err }
func (q *failingQueue) Receive(ctx context.Context, maxMessages, waitSeconds int) ([]Message, error) {
	return nil, nil
}
func (q *failingQueue) Delete(ctx context.Context, receiptHandle string) error { return nil }

func newTestService(s3c *fakeS3, queue Queue, jobs *fakeJobs) *Service {
	audio := NewAudioStore(s3c, "recordings", nil)
	return NewService(audio, queue, jobs, jobs, nil, logging.Default())
}

func TestUploadStoresAudioAndEnqueues(t *testing.T) {
	s3c := newFakeS3()
	jobs := newFakeJobs()
	queue := NewMemoryQueue(4)
	svc := newTestService(s3c, queue, jobs)

	result, err := svc.Upload(context.Background(), UploadRequest{
		OrgID:         "org-1",
		AppointmentID: "appt-1",
		PatientID:     "p-1",
		Audio:         []byte("audio-bytes"),
	})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if !s3c.has(result.RecordingKey) {
		t.Error("recording not stored in s3")
	}

	job, err := jobs.GetJob(context.Background(), result.JobID)
	if err != nil {
		t.Fatalf("job not recorded: %v", err)
	}
	if job.Status != JobStatusPending {
		t.Errorf("job status %s", job.Status)
	}

	msgs, err := queue.Receive(context.Background(), 1, 0)
	if err != nil || len(msgs) != 1 {
		t.Fatalf("expected queued message, got %d (%v)", len(msgs), err)
	}
	var payload jobPayload
	if err := json.Unmarshal([]byte(msgs[0].Body), &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if payload.ID != result.JobID || payload.RecordingKey != result.RecordingKey {
		t.Errorf("payload mismatch: %+v vs %+v", payload, result)
	}
}

func TestUploadMarksJobWhenEnqueueFails(t *testing.T) {
	s3c := newFakeS3()
	jobs := newFakeJobs()
	svc := newTestService(s3c, &failingQueue{err: errors.New("sqs down")}, jobs)

	_, err := svc.Upload(context.Background(), UploadRequest{
		OrgID:         "org-1",
		AppointmentID: "appt-1",
		Audio:         []byte("audio"),
	})
	if err == nil {
		t.Fatal("expected upload error")
	}

	var failed *JobRecord
	for _, job := range jobs.jobs {
		failed = job
	}
	if failed == nil || failed.Status != JobStatusFailed {
		t.Errorf("expected job marked failed, got %+v", failed)
	}
}

func TestCancelDiscardsPendingRecording(t *testing.T) {
	s3c := newFakeS3()
	jobs := newFakeJobs()
	queue := NewMemoryQueue(4)
	svc := newTestService(s3c, queue, jobs)

	result, err := svc.Upload(context.Background(), UploadRequest{
		OrgID:         "org-1",
		AppointmentID: "appt-1",
		Audio:         []byte("audio"),
	})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	if err := svc.Cancel(context.Background(), "org-1", result.JobID); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if s3c.has(result.RecordingKey) {
		t.Error("recording should be deleted")
	}
	job, _ := jobs.GetJob(context.Background(), result.JobID)
	if job.Status != JobStatusFailed {
		t.Errorf("expected failed status, got %s", job.Status)
	}
}

func TestCancelRejectsCompletedJob(t *testing.T) {
	s3c := newFakeS3()
	jobs := newFakeJobs()
	svc := newTestService(s3c, NewMemoryQueue(4), jobs)

	jobs.jobs["job-1"] = &JobRecord{JobID: "job-1", OrgID: "org-1", Status: JobStatusCompleted}
	if err := svc.Cancel(context.Background(), "org-1", "job-1"); !errors.Is(err, ErrJobNotCancelable) {
		t.Errorf("expected ErrJobNotCancelable, got %v", err)
	}
}

func TestStatusScopedToOrg(t *testing.T) {
	s3c := newFakeS3()
	jobs := newFakeJobs()
	svc := newTestService(s3c, NewMemoryQueue(4), jobs)

	jobs.jobs["job-1"] = &JobRecord{JobID: "job-1", OrgID: "org-2", Status: JobStatusPending}
	if _, err := svc.Status(context.Background(), "org-1", "job-1"); !errors.Is(err, ErrJobNotFound) {
		t.Errorf("expected ErrJobNotFound for cross-org read, got %v", err)
	}
}
