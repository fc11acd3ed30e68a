package handoff

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sereno-care/practice-platform/internal/tenancy"
	"github.com/sereno-care/practice-platform/pkg/logging"
)

// Handler exposes the stash/take endpoints for the date handoff.
type Handler struct {
	store  *Store
	logger *logging.Logger
}

// NewHandler creates the handoff handler.
func NewHandler(store *Store, logger *logging.Logger) *Handler {
	if store == nil {
		panic("handoff: store is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{store: store, logger: logger.WithComponent("handoff.http")}
}

// Routes mounts the handoff endpoints.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Put("/date", h.Put)
	r.Post("/date/take", h.Take)
	return r
}

type putRequest struct {
	Date string `json:"date"` // "2006-01-02"
}

// Put stashes the selected date for the caller's org.
func (h *Handler) Put(w http.ResponseWriter, r *http.Request) {
	orgID, ok := tenancy.OrgIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing org context", http.StatusBadRequest)
		return
	}

	var req putRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	date, err := time.Parse(dateLayout, req.Date)
	if err != nil {
		http.Error(w, "date must be YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	if err := h.store.Put(r.Context(), orgID, date); err != nil {
		h.logger.Error("handoff stash failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Take consumes the pending date. Returns 404 when nothing is stashed,
// so reopening the dialog falls back to its default date.
func (h *Handler) Take(w http.ResponseWriter, r *http.Request) {
	orgID, ok := tenancy.OrgIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing org context", http.StatusBadRequest)
		return
	}

	date, err := h.store.Take(r.Context(), orgID)
	if errors.Is(err, ErrNoDate) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	if err != nil {
		h.logger.Error("handoff take failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"date": date.Format(dateLayout)})
}
