package notes

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sereno-care/practice-platform/internal/tenancy"
	"github.com/sereno-care/practice-platform/pkg/logging"
)

// Handler handles HTTP requests for notes and note templates
type Handler struct {
	store  Store
	logger *logging.Logger
}

func NewHandler(store Store, logger *logging.Logger) *Handler {
	return &Handler{store: store, logger: logger}
}

// Routes mounts note and template endpoints.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.CreateNote)
	r.Get("/", h.ListNotes)
	r.Route("/templates", func(r chi.Router) {
		r.Post("/", h.CreateTemplate)
		r.Get("/", h.ListTemplates)
		r.Get("/{templateID}", h.GetTemplate)
		r.Delete("/{templateID}", h.DeleteTemplate)
	})
	r.Route("/{noteID}", func(r chi.Router) {
		r.Get("/", h.GetNote)
		r.Put("/", h.UpdateNote)
		r.Delete("/", h.DeleteNote)
	})
	return r
}

type noteRequest struct {
	PatientID     string    `json:"patient_id"`
	AppointmentID *string   `json:"appointment_id,omitempty"`
	Title         string    `json:"title"`
	Sections      []Section `json:"sections"`
	Status        string    `json:"status"`
}

// CreateNote handles POST /notes
func (h *Handler) CreateNote(w http.ResponseWriter, r *http.Request) {
	orgID, ok := tenancy.OrgIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing org context", http.StatusBadRequest)
		return
	}

	var req noteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	note := &Note{
		OrgID:         orgID,
		PatientID:     req.PatientID,
		AppointmentID: req.AppointmentID,
		Title:         req.Title,
		Sections:      req.Sections,
		Status:        req.Status,
	}
	if err := h.store.CreateNote(r.Context(), note); err != nil {
		h.writeError(w, err)
		return
	}
	h.logger.Info("note created", "id", note.ID, "org_id", orgID)
	writeJSON(w, http.StatusCreated, note)
}

// ListNotes handles GET /notes?patient_id=
func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	orgID, ok := tenancy.OrgIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing org context", http.StatusBadRequest)
		return
	}

	list, err := h.store.ListNotes(r.Context(), orgID, r.URL.Query().Get("patient_id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"notes": list, "count": len(list)})
}

// GetNote handles GET /notes/{noteID}
func (h *Handler) GetNote(w http.ResponseWriter, r *http.Request) {
	orgID, ok := tenancy.OrgIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing org context", http.StatusBadRequest)
		return
	}

	note, err := h.store.GetNote(r.Context(), orgID, chi.URLParam(r, "noteID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// UpdateNote handles PUT /notes/{noteID}
func (h *Handler) UpdateNote(w http.ResponseWriter, r *http.Request) {
	orgID, ok := tenancy.OrgIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing org context", http.StatusBadRequest)
		return
	}

	var req noteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	note := &Note{
		ID:       chi.URLParam(r, "noteID"),
		OrgID:    orgID,
		Title:    req.Title,
		Sections: req.Sections,
		Status:   req.Status,
	}
	if err := h.store.UpdateNote(r.Context(), note); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// DeleteNote handles DELETE /notes/{noteID}
func (h *Handler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	orgID, ok := tenancy.OrgIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing org context", http.StatusBadRequest)
		return
	}

	if err := h.store.DeleteNote(r.Context(), orgID, chi.URLParam(r, "noteID")); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type templateRequest struct {
	Name     string          `json:"name"`
	Sections []SectionPrompt `json:"sections"`
}

// CreateTemplate handles POST /notes/templates
func (h *Handler) CreateTemplate(w http.ResponseWriter, r *http.Request) {
	orgID, ok := tenancy.OrgIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing org context", http.StatusBadRequest)
		return
	}

	var req templateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Name == "" || len(req.Sections) == 0 {
		http.Error(w, "name and sections are required", http.StatusBadRequest)
		return
	}

	tpl := &Template{OrgID: orgID, Name: req.Name, Sections: req.Sections}
	if err := h.store.CreateTemplate(r.Context(), tpl); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, tpl)
}

// ListTemplates handles GET /notes/templates
func (h *Handler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	orgID, ok := tenancy.OrgIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing org context", http.StatusBadRequest)
		return
	}

	list, err := h.store.ListTemplates(r.Context(), orgID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"templates": list, "count": len(list)})
}

// GetTemplate handles GET /notes/templates/{templateID}
func (h *Handler) GetTemplate(w http.ResponseWriter, r *http.Request) {
	orgID, ok := tenancy.OrgIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing org context", http.StatusBadRequest)
		return
	}

	tpl, err := h.store.GetTemplate(r.Context(), orgID, chi.URLParam(r, "templateID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tpl)
}

// DeleteTemplate handles DELETE /notes/templates/{templateID}
func (h *Handler) DeleteTemplate(w http.ResponseWriter, r *http.Request) {
	orgID, ok := tenancy.OrgIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing org context", http.StatusBadRequest)
		return
	}

	if err := h.store.DeleteTemplate(r.Context(), orgID, chi.URLParam(r, "templateID")); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNoteNotFound), errors.Is(err, ErrTemplateNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, ErrInvalidStatus), errors.Is(err, ErrMissingPatient):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		h.logger.Error("notes request failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
