package scheduling

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sereno-care/practice-platform/internal/tenancy"
	"github.com/sereno-care/practice-platform/pkg/logging"
)

// Handler handles HTTP requests for the calendar.
type Handler struct {
	service *Service
	logger  *logging.Logger

	slotHeightPx    int
	minVisibleSlots int
}

// NewHandler creates the scheduling handler.
func NewHandler(service *Service, logger *logging.Logger, slotHeightPx, minVisibleSlots int) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	if slotHeightPx < 1 {
		slotHeightPx = 24
	}
	if minVisibleSlots < 1 {
		minVisibleSlots = 3
	}
	return &Handler{
		service:         service,
		logger:          logger.WithComponent("scheduling.http"),
		slotHeightPx:    slotHeightPx,
		minVisibleSlots: minVisibleSlots,
	}
}

// Routes mounts the calendar endpoints.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.Create)
	r.Post("/series", h.CreateSeries)
	r.Get("/", h.List)
	r.Get("/layout", h.Layout)
	r.Route("/{appointmentID}", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Patch("/", h.Edit)
		r.Post("/reschedule", h.Reschedule)
		r.Post("/scope", h.ApplyScope)
		r.Delete("/", h.Delete)
	})
	return r
}

type scheduleRequest struct {
	PatientID   string          `json:"patient_id"`
	PatientName string          `json:"patient_name"`
	Type        AppointmentType `json:"type"`
	Start       time.Time       `json:"start"`
	End         time.Time       `json:"end"`
	Frequency   string          `json:"frequency,omitempty"`
	Occurrences int             `json:"occurrences,omitempty"`
}

func (r scheduleRequest) template(orgID string) SeriesTemplate {
	return SeriesTemplate{
		OrgID:       orgID,
		PatientID:   r.PatientID,
		PatientName: r.PatientName,
		Type:        r.Type,
		Start:       r.Start,
		End:         r.End,
	}
}

// Create handles POST /appointments.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	orgID, ok := tenancy.OrgIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing org context", http.StatusBadRequest)
		return
	}

	var req scheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	appt, err := h.service.ScheduleSingle(r.Context(), req.template(orgID))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, appt)
}

// CreateSeries handles POST /appointments/series.
func (h *Handler) CreateSeries(w http.ResponseWriter, r *http.Request) {
	orgID, ok := tenancy.OrgIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing org context", http.StatusBadRequest)
		return
	}

	var req scheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	freq, err := ParseFrequency(req.Frequency)
	if err != nil {
		h.writeError(w, err)
		return
	}

	instances, err := h.service.ScheduleSeries(r.Context(), req.template(orgID), freq, req.Occurrences)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, map[string]any{
		"series_id":    *instances[0].SeriesID,
		"appointments": instances,
	})
}

// List handles GET /appointments?from=&to=.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	orgID, ok := tenancy.OrgIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing org context", http.StatusBadRequest)
		return
	}

	from, err := parseTimeParam(r.URL.Query().Get("from"))
	if err != nil {
		http.Error(w, "invalid from", http.StatusBadRequest)
		return
	}
	to, err := parseTimeParam(r.URL.Query().Get("to"))
	if err != nil {
		http.Error(w, "invalid to", http.StatusBadRequest)
		return
	}

	appts, err := h.service.List(r.Context(), orgID, from, to)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"appointments": appts,
		"count":        len(appts),
	})
}

// Get handles GET /appointments/{appointmentID}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	orgID, ok := tenancy.OrgIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing org context", http.StatusBadRequest)
		return
	}

	appt, err := h.service.Get(r.Context(), orgID, chi.URLParam(r, "appointmentID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, appt)
}

// Edit handles PATCH /appointments/{appointmentID}. A 202 with
// requires_scope set means nothing was persisted yet and the client must
// follow up on /scope with the user's choice.
func (h *Handler) Edit(w http.ResponseWriter, r *http.Request) {
	orgID, ok := tenancy.OrgIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing org context", http.StatusBadRequest)
		return
	}

	var ch Change
	if err := json.NewDecoder(r.Body).Decode(&ch); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	result, err := h.service.Edit(r.Context(), orgID, chi.URLParam(r, "appointmentID"), ch)
	if err != nil {
		h.writeError(w, err)
		return
	}
	status := http.StatusOK
	if result.RequiresScope {
		status = http.StatusAccepted
	}
	h.writeJSON(w, status, result)
}

type rescheduleRequest struct {
	Date string     `json:"date"`
	Slot *TimeOfDay `json:"slot,omitempty"`
}

// Reschedule handles POST /appointments/{appointmentID}/reschedule,
// the server half of a drag drop.
func (h *Handler) Reschedule(w http.ResponseWriter, r *http.Request) {
	orgID, ok := tenancy.OrgIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing org context", http.StatusBadRequest)
		return
	}

	var req rescheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	date, err := parseTimeParam(req.Date)
	if err != nil || date.IsZero() {
		http.Error(w, "invalid date", http.StatusBadRequest)
		return
	}

	result, err := h.service.Reschedule(r.Context(), orgID, chi.URLParam(r, "appointmentID"), DropTarget{Date: date, Slot: req.Slot})
	if err != nil {
		h.writeError(w, err)
		return
	}
	status := http.StatusOK
	if result.RequiresScope {
		status = http.StatusAccepted
	}
	h.writeJSON(w, status, result)
}

type scopeRequest struct {
	Scope  string `json:"scope"`
	Change Change `json:"change"`
}

// ApplyScope handles POST /appointments/{appointmentID}/scope.
func (h *Handler) ApplyScope(w http.ResponseWriter, r *http.Request) {
	orgID, ok := tenancy.OrgIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing org context", http.StatusBadRequest)
		return
	}

	var req scopeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	scope, err := ParseScope(req.Scope)
	if err != nil {
		h.writeError(w, err)
		return
	}

	result, err := h.service.ApplyScope(r.Context(), orgID, chi.URLParam(r, "appointmentID"), req.Change, scope)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

// Delete handles DELETE /appointments/{appointmentID}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	orgID, ok := tenancy.OrgIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing org context", http.StatusBadRequest)
		return
	}

	if err := h.service.Delete(r.Context(), orgID, chi.URLParam(r, "appointmentID")); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Layout handles GET /appointments/layout?start=&weeks=.
func (h *Handler) Layout(w http.ResponseWriter, r *http.Request) {
	orgID, ok := tenancy.OrgIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing org context", http.StatusBadRequest)
		return
	}

	start, err := parseTimeParam(r.URL.Query().Get("start"))
	if err != nil || start.IsZero() {
		http.Error(w, "invalid start", http.StatusBadRequest)
		return
	}
	weeks := 1
	if raw := r.URL.Query().Get("weeks"); raw != "" {
		if weeks, err = strconv.Atoi(raw); err != nil || weeks < 1 || weeks > 52 {
			http.Error(w, "invalid weeks", http.StatusBadRequest)
			return
		}
	}

	appts, err := h.service.List(r.Context(), orgID, start, start.AddDate(0, 0, weeks*7))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, ComputeWeekRows(start, weeks, appts, h.slotHeightPx, h.minVisibleSlots))
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrAppointmentNotFound), errors.Is(err, ErrSeriesNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, ErrInvalidFrequency),
		errors.Is(err, ErrInvalidOccurrences),
		errors.Is(err, ErrIncompleteTemplate),
		errors.Is(err, ErrInvalidScope),
		errors.Is(err, ErrNotInSeries):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrScopeRequired):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		h.logger.Error("scheduling request failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

// parseTimeParam accepts RFC3339 or a bare calendar date. Empty input
// yields the zero time (unbounded).
func parseTimeParam(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", raw)
}
