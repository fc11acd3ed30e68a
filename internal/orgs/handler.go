package orgs

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/sereno-care/practice-platform/pkg/logging"
)

// Store is the repository surface the handler needs.
type Store interface {
	Create(ctx context.Context, name, contactEmail string) (*Organization, error)
	Get(ctx context.Context, id string) (*Organization, error)
	List(ctx context.Context) ([]*Organization, error)
}

// Handler serves the admin org-management endpoints.
type Handler struct {
	store  Store
	logger *logging.Logger
}

// NewHandler creates the orgs handler.
func NewHandler(store Store, logger *logging.Logger) *Handler {
	if store == nil {
		panic("orgs: store is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{store: store, logger: logger.WithComponent("orgs.http")}
}

// Routes mounts the org-management endpoints. Callers should guard these
// with the admin auth middleware.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/{orgID}", h.Get)
	return r
}

type createOrgRequest struct {
	Name         string `json:"name"`
	ContactEmail string `json:"contact_email"`
}

// Create registers a new practice tenant.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req createOrgRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		http.Error(w, "name is required", http.StatusBadRequest)
		return
	}

	org, err := h.store.Create(r.Context(), req.Name, req.ContactEmail)
	if err != nil {
		h.logger.Error("org create failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(org)
}

// List returns all organizations.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	all, err := h.store.List(r.Context())
	if err != nil {
		h.logger.Error("org list failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if all == nil {
		all = []*Organization{}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"organizations": all})
}

// Get returns one organization by id.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	org, err := h.store.Get(r.Context(), chi.URLParam(r, "orgID"))
	if errors.Is(err, ErrOrgNotFound) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	if err != nil {
		h.logger.Error("org get failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(org)
}
