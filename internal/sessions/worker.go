package sessions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sereno-care/practice-platform/internal/notes"
	"github.com/sereno-care/practice-platform/internal/observability/metrics"
	"github.com/sereno-care/practice-platform/pkg/logging"
)

const maxWaitSeconds = 20

type sectionGenerator interface {
	GenerateSections(ctx context.Context, transcript string, tpl notes.Template) ([]notes.Section, error)
}

type noteStore interface {
	CreateNote(ctx context.Context, note *notes.Note) error
	GetTemplate(ctx context.Context, orgID, id string) (*notes.Template, error)
}

type workerConfig struct {
	workers          int
	receiveBatchSize int
	receiveWaitSecs  int
}

// WorkerOption customizes Worker behavior.
type WorkerOption func(*workerConfig)

// WithWorkerCount sets the number of concurrent consumer goroutines.
func WithWorkerCount(count int) WorkerOption {
	return func(cfg *workerConfig) {
		if count > 0 {
			cfg.workers = count
		}
	}
}

// WithReceiveWaitSeconds sets the SQS long-poll wait duration.
func WithReceiveWaitSeconds(seconds int) WorkerOption {
	return func(cfg *workerConfig) {
		if seconds < 0 {
			return
		}
		if seconds > maxWaitSeconds {
			seconds = maxWaitSeconds
		}
		cfg.receiveWaitSecs = seconds
	}
}

// Worker drains transcription jobs: fetch audio, transcribe, draft note
// sections, persist the note, and close out the job record.
type Worker struct {
	audio       *AudioStore
	queue       Queue
	jobs        JobUpdater
	transcriber Transcriber
	generator   sectionGenerator
	notes       noteStore
	metrics     *metrics.SessionMetrics
	logger      *logging.Logger
	cfg         workerConfig
	wg          sync.WaitGroup
}

func NewWorker(audio *AudioStore, queue Queue, jobs JobUpdater, transcriber Transcriber, generator sectionGenerator, store noteStore, m *metrics.SessionMetrics, logger *logging.Logger, opts ...WorkerOption) *Worker {
	if audio == nil {
		panic("sessions: audio store cannot be nil")
	}
	if queue == nil {
		panic("sessions: queue cannot be nil")
	}
	if transcriber == nil {
		panic("sessions: transcriber cannot be nil")
	}
	if generator == nil {
		panic("sessions: section generator cannot be nil")
	}
	if store == nil {
		panic("sessions: note store cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}

	cfg := workerConfig{
		workers:          2,
		receiveBatchSize: 5,
		receiveWaitSecs:  10,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Worker{
		audio:       audio,
		queue:       queue,
		jobs:        jobs,
		transcriber: transcriber,
		generator:   generator,
		notes:       store,
		metrics:     m,
		logger:      logger,
		cfg:         cfg,
	}
}

// Start launches the consumer goroutines.
func (w *Worker) Start(ctx context.Context) {
	for i := 0; i < w.cfg.workers; i++ {
		w.wg.Add(1)
		go w.run(ctx, i+1)
	}
}

// Wait blocks until all worker goroutines exit.
func (w *Worker) Wait() {
	w.wg.Wait()
}

func (w *Worker) run(ctx context.Context, workerID int) {
	defer w.wg.Done()
	w.logger.Debug("session worker started", "worker_id", workerID)

	backoff := time.Second

	for {
		select {
		case <-ctx.Done():
			w.logger.Debug("session worker stopping", "worker_id", workerID)
			return
		default:
		}

		messages, err := w.queue.Receive(ctx, w.cfg.receiveBatchSize, w.cfg.receiveWaitSecs)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			w.logger.Error("failed to receive session jobs", "error", err, "worker_id", workerID)
			time.Sleep(backoff)
			if backoff < 5*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		for _, msg := range messages {
			w.handleMessage(ctx, msg)
		}
	}
}

func (w *Worker) handleMessage(ctx context.Context, msg Message) {
	var payload jobPayload
	if err := json.Unmarshal([]byte(msg.Body), &payload); err != nil {
		w.logger.Error("failed to decode session job", "error", err)
		w.deleteMessage(context.Background(), msg.ReceiptHandle)
		return
	}

	w.logger.Info("processing transcription job",
		"job_id", payload.ID,
		"org_id", payload.OrgID,
		"appointment_id", payload.AppointmentID,
	)

	noteID, err := w.process(ctx, payload)
	if err != nil {
		w.logger.Error("transcription job failed", "error", err, "job_id", payload.ID)
		w.metrics.ObserveJob("failed")
		if w.jobs != nil {
			if storeErr := w.jobs.MarkFailed(ctx, payload.ID, err.Error()); storeErr != nil {
				w.logger.Error("failed to update job status", "error", storeErr, "job_id", payload.ID)
			}
		}
		w.deleteMessage(context.Background(), msg.ReceiptHandle)
		return
	}

	w.metrics.ObserveJob("completed")
	if w.jobs != nil {
		if storeErr := w.jobs.MarkCompleted(ctx, payload.ID, noteID); storeErr != nil {
			w.logger.Error("failed to update job status", "error", storeErr, "job_id", payload.ID)
		}
	}
	w.deleteMessage(context.Background(), msg.ReceiptHandle)
}

// process runs the pipeline for one job and returns the new note id.
func (w *Worker) process(ctx context.Context, payload jobPayload) (string, error) {
	audio, err := w.audio.GetRecording(ctx, payload.RecordingKey)
	if err != nil {
		return "", err
	}

	transcribeStart := time.Now()
	transcript, err := w.transcriber.Transcribe(ctx, audio, payload.ContentType)
	if err != nil {
		return "", err
	}
	w.metrics.ObserveTranscribe(time.Since(transcribeStart).Seconds())

	tpl, err := w.template(ctx, payload)
	if err != nil {
		return "", err
	}

	noteStart := time.Now()
	sections, err := w.generator.GenerateSections(ctx, transcript, tpl)
	if err != nil {
		return "", err
	}
	w.metrics.ObserveNote(time.Since(noteStart).Seconds())

	note := &notes.Note{
		OrgID:         payload.OrgID,
		PatientID:     payload.PatientID,
		AppointmentID: &payload.AppointmentID,
		Title:         fmt.Sprintf("Session note %s", time.Now().UTC().Format("2006-01-02")),
		Sections:      sections,
		Status:        notes.StatusDraft,
	}
	if err := w.notes.CreateNote(ctx, note); err != nil {
		return "", err
	}
	return note.ID, nil
}

func (w *Worker) template(ctx context.Context, payload jobPayload) (notes.Template, error) {
	if payload.TemplateID == "" {
		return notes.DefaultTemplate(payload.OrgID), nil
	}
	tpl, err := w.notes.GetTemplate(ctx, payload.OrgID, payload.TemplateID)
	if err != nil {
		if errors.Is(err, notes.ErrTemplateNotFound) {
			w.logger.Warn("template missing, using default", "template_id", payload.TemplateID)
			return notes.DefaultTemplate(payload.OrgID), nil
		}
		return notes.Template{}, err
	}
	return *tpl, nil
}

func (w *Worker) deleteMessage(ctx context.Context, receiptHandle string) {
	if err := w.queue.Delete(ctx, receiptHandle); err != nil {
		w.logger.Warn("failed to delete queue message", "error", err)
	}
}
