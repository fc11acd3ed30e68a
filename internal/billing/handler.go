package billing

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sereno-care/practice-platform/internal/orgs"
	"github.com/sereno-care/practice-platform/pkg/logging"
)

type orgStore interface {
	Get(ctx context.Context, id string) (*orgs.Organization, error)
	SetStripeIDs(ctx context.Context, orgID, customerID, subscriptionID, status string) error
}

// Handler exposes the subscription endpoint.
type Handler struct {
	stripe *StripeService
	orgs   orgStore
	logger *logging.Logger
}

func NewHandler(stripe *StripeService, store orgStore, logger *logging.Logger) *Handler {
	return &Handler{stripe: stripe, orgs: store, logger: logger}
}

// Routes mounts billing endpoints.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/subscribe", h.Subscribe)
	return r
}

type subscribeRequest struct {
	OrgID         string `json:"org_id"`
	PaymentMethod string `json:"payment_method"`
}

// Subscribe handles POST /billing/subscribe. On SCA challenges the
// response carries requires_action and the client secret to confirm.
func (h *Handler) Subscribe(w http.ResponseWriter, r *http.Request) {
	var req subscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.OrgID == "" {
		http.Error(w, "org_id is required", http.StatusBadRequest)
		return
	}

	org, err := h.orgs.Get(r.Context(), req.OrgID)
	if err != nil {
		if errors.Is(err, orgs.ErrOrgNotFound) {
			http.Error(w, "organization not found", http.StatusNotFound)
			return
		}
		h.logger.Error("billing: org lookup failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	result, err := h.stripe.Subscribe(r.Context(), org.ID, org.Name, org.ContactEmail, req.PaymentMethod)
	if err != nil {
		h.logger.Error("billing: subscribe failed", "error", err, "org_id", org.ID)
		http.Error(w, "subscription failed", http.StatusBadGateway)
		return
	}

	status := orgs.SubscriptionActive
	if result.RequiresAction || result.Status == "incomplete" {
		status = orgs.SubscriptionPastDue
	}
	if err := h.orgs.SetStripeIDs(r.Context(), org.ID, result.CustomerID, result.SubscriptionID, status); err != nil {
		h.logger.Error("billing: persist stripe ids failed", "error", err, "org_id", org.ID)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(result)
}
