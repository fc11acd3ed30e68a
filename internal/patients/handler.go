package patients

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sereno-care/practice-platform/internal/tenancy"
	"github.com/sereno-care/practice-platform/pkg/logging"
)

// Handler handles HTTP requests for patients
type Handler struct {
	repo   Repository
	logger *logging.Logger
}

// NewHandler creates a new patients handler
func NewHandler(repo Repository, logger *logging.Logger) *Handler {
	return &Handler{
		repo:   repo,
		logger: logger,
	}
}

// Routes mounts the patient endpoints.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/{patientID}", h.Get)
	r.Patch("/{patientID}", h.Update)
	return r
}

// Create handles POST /patients requests
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreatePatientRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("failed to decode request", "error", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	orgID, ok := tenancy.OrgIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing org context", http.StatusBadRequest)
		return
	}
	req.OrgID = orgID

	patient, err := h.repo.Create(r.Context(), &req)
	if err != nil {
		h.logger.Error("failed to create patient", "error", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	h.logger.Info("patient created", "id", patient.ID, "org_id", orgID)

	writeJSON(w, http.StatusCreated, patient)
}

// ListPatientsResponse is the response for listing patients
type ListPatientsResponse struct {
	Patients []*Patient `json:"patients"`
	Count    int        `json:"count"`
	Offset   int        `json:"offset"`
	Limit    int        `json:"limit"`
}

// List handles GET /patients requests
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	orgID, ok := tenancy.OrgIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing org context", http.StatusBadRequest)
		return
	}

	filter := ListFilter{
		Query: r.URL.Query().Get("q"),
		Limit: 50,
	}
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil && limit > 0 && limit <= 100 {
			filter.Limit = limit
		}
	}
	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil && offset >= 0 {
			filter.Offset = offset
		}
	}
	if r.URL.Query().Get("include_archived") == "true" {
		filter.IncludeArchived = true
	}

	list, err := h.repo.ListByOrg(r.Context(), orgID, filter)
	if err != nil {
		h.logger.Error("failed to list patients", "error", err, "org_id", orgID)
		http.Error(w, "failed to list patients", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, ListPatientsResponse{
		Patients: list,
		Count:    len(list),
		Offset:   filter.Offset,
		Limit:    filter.Limit,
	})
}

// Get handles GET /patients/{patientID} requests
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	orgID, ok := tenancy.OrgIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing org context", http.StatusBadRequest)
		return
	}

	patient, err := h.repo.GetByID(r.Context(), orgID, chi.URLParam(r, "patientID"))
	if err != nil {
		if err == ErrPatientNotFound {
			http.Error(w, "patient not found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to get patient", "error", err)
		http.Error(w, "failed to get patient", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, patient)
}

// Update handles PATCH /patients/{patientID} requests
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	orgID, ok := tenancy.OrgIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing org context", http.StatusBadRequest)
		return
	}

	var req UpdatePatientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	patient, err := h.repo.Update(r.Context(), orgID, chi.URLParam(r, "patientID"), &req)
	if err != nil {
		if err == ErrPatientNotFound {
			http.Error(w, "patient not found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to update patient", "error", err)
		http.Error(w, "failed to update patient", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, patient)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
