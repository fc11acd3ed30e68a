package sessions

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sereno-care/practice-platform/internal/tenancy"
	"github.com/sereno-care/practice-platform/pkg/logging"
)

// 25 MB cap on uploaded recordings.
const maxRecordingBytes = 25 << 20

// Handler exposes the recording upload and job polling endpoints.
type Handler struct {
	service *Service
	logger  *logging.Logger
}

func NewHandler(service *Service, logger *logging.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Routes mounts the session pipeline endpoints.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.Upload)
	r.Get("/jobs/{jobID}", h.JobStatus)
	r.Delete("/jobs/{jobID}", h.CancelJob)
	return r
}

// Upload handles POST /recordings. Multipart form with an "audio" file
// plus appointment_id, patient_id, and optional template_id fields.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	orgID, ok := tenancy.OrgIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing org context", http.StatusBadRequest)
		return
	}

	if err := r.ParseMultipartForm(maxRecordingBytes); err != nil {
		http.Error(w, "invalid multipart form", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("audio")
	if err != nil {
		http.Error(w, "audio file is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	audio, err := io.ReadAll(io.LimitReader(file, maxRecordingBytes+1))
	if err != nil {
		http.Error(w, "failed to read audio", http.StatusBadRequest)
		return
	}
	if len(audio) > maxRecordingBytes {
		http.Error(w, "recording too large", http.StatusRequestEntityTooLarge)
		return
	}

	result, err := h.service.Upload(r.Context(), UploadRequest{
		OrgID:         orgID,
		AppointmentID: r.FormValue("appointment_id"),
		PatientID:     r.FormValue("patient_id"),
		TemplateID:    r.FormValue("template_id"),
		ContentType:   header.Header.Get("Content-Type"),
		Audio:         audio,
	})
	if err != nil {
		h.logger.Error("recording upload failed", "error", err, "org_id", orgID)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusAccepted, result)
}

// JobStatus handles GET /recordings/jobs/{jobID}.
func (h *Handler) JobStatus(w http.ResponseWriter, r *http.Request) {
	orgID, ok := tenancy.OrgIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing org context", http.StatusBadRequest)
		return
	}

	job, err := h.service.Status(r.Context(), orgID, chi.URLParam(r, "jobID"))
	if err != nil {
		if errors.Is(err, ErrJobNotFound) {
			http.Error(w, "job not found", http.StatusNotFound)
			return
		}
		h.logger.Error("job lookup failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// CancelJob handles DELETE /recordings/jobs/{jobID}.
func (h *Handler) CancelJob(w http.ResponseWriter, r *http.Request) {
	orgID, ok := tenancy.OrgIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing org context", http.StatusBadRequest)
		return
	}

	err := h.service.Cancel(r.Context(), orgID, chi.URLParam(r, "jobID"))
	switch {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, ErrJobNotFound):
		http.Error(w, "job not found", http.StatusNotFound)
	case errors.Is(err, ErrJobNotCancelable):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		h.logger.Error("job cancel failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
