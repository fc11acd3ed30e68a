package billing

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/sereno-care/practice-platform/internal/orgs"
	"github.com/sereno-care/practice-platform/pkg/logging"
)

type subscriptionUpdater interface {
	SetSubscriptionStatus(ctx context.Context, subscriptionID, status string) error
}

type processedMarker interface {
	MarkProcessed(ctx context.Context, provider, eventID string) (bool, error)
}

// WebhookHandler processes Stripe subscription lifecycle events. Events
// carry a v1 HMAC signature; redeliveries are dropped via the processed
// event store.
type WebhookHandler struct {
	webhookSecret string
	orgs          subscriptionUpdater
	processed     processedMarker
	logger        *logging.Logger
}

// NewWebhookHandler creates a webhook handler. processed may be nil, in
// which case redeliveries are re-applied (updates are idempotent).
func NewWebhookHandler(secret string, updater subscriptionUpdater, processed processedMarker, logger *logging.Logger) *WebhookHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &WebhookHandler{
		webhookSecret: secret,
		orgs:          updater,
		processed:     processed,
		logger:        logger,
	}
}

// Handle processes one incoming Stripe event.
func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 65536))
	if err != nil {
		http.Error(w, "read error", http.StatusBadRequest)
		return
	}

	if h.webhookSecret != "" {
		sig := r.Header.Get("Stripe-Signature")
		if !h.verifySignature(body, sig) {
			http.Error(w, "invalid signature", http.StatusUnauthorized)
			return
		}
	}

	var event struct {
		ID   string `json:"id"`
		Type string `json:"type"`
		Data struct {
			Object json.RawMessage `json:"object"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &event); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	if h.processed != nil && event.ID != "" {
		first, err := h.processed.MarkProcessed(r.Context(), "stripe", event.ID)
		if err != nil {
			h.logger.Error("billing webhook: dedup check failed", "error", err, "event_id", event.ID)
			http.Error(w, "dedup failure", http.StatusInternalServerError)
			return
		}
		if !first {
			h.logger.Info("billing webhook: duplicate delivery ignored", "event_id", event.ID)
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"received":true}`))
			return
		}
	}

	switch event.Type {
	case "customer.subscription.updated", "customer.subscription.created":
		h.handleSubscriptionChange(r.Context(), event.Data.Object)
	case "customer.subscription.deleted":
		h.handleSubscriptionDeleted(r.Context(), event.Data.Object)
	case "invoice.payment_succeeded":
		h.handleInvoice(r.Context(), event.Data.Object, orgs.SubscriptionActive)
	case "invoice.payment_failed":
		h.handleInvoice(r.Context(), event.Data.Object, orgs.SubscriptionPastDue)
	default:
		h.logger.Info("billing webhook: unhandled event", "type", event.Type)
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"received":true}`))
}

func (h *WebhookHandler) verifySignature(payload []byte, sigHeader string) bool {
	if sigHeader == "" || h.webhookSecret == "" {
		return false
	}
	var timestamp, sig string
	for _, part := range strings.Split(sigHeader, ",") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch kv[0] {
		case "t":
			timestamp = kv[1]
		case "v1":
			sig = kv[1]
		}
	}
	if timestamp == "" || sig == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(h.webhookSecret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(sig))
}

func (h *WebhookHandler) handleSubscriptionChange(ctx context.Context, data json.RawMessage) {
	var sub struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	if err := json.Unmarshal(data, &sub); err != nil || sub.ID == "" {
		h.logger.Error("billing webhook: parse subscription", "error", err)
		return
	}

	status := orgs.SubscriptionActive
	switch sub.Status {
	case "past_due", "unpaid", "incomplete":
		status = orgs.SubscriptionPastDue
	case "canceled":
		status = orgs.SubscriptionCanceled
	}

	h.updateStatus(ctx, sub.ID, status)
}

func (h *WebhookHandler) handleSubscriptionDeleted(ctx context.Context, data json.RawMessage) {
	var sub struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(data, &sub); err != nil || sub.ID == "" {
		return
	}
	h.updateStatus(ctx, sub.ID, orgs.SubscriptionCanceled)
}

func (h *WebhookHandler) handleInvoice(ctx context.Context, data json.RawMessage, status string) {
	var invoice struct {
		Subscription string `json:"subscription"`
	}
	if err := json.Unmarshal(data, &invoice); err != nil || invoice.Subscription == "" {
		return
	}
	h.updateStatus(ctx, invoice.Subscription, status)
}

func (h *WebhookHandler) updateStatus(ctx context.Context, subscriptionID, status string) {
	if h.orgs == nil {
		return
	}
	if err := h.orgs.SetSubscriptionStatus(ctx, subscriptionID, status); err != nil {
		h.logger.Error("billing webhook: update subscription status",
			"error", err,
			"subscription_id", subscriptionID,
			"status", status,
		)
		return
	}
	h.logger.Info("billing webhook: subscription status updated",
		"subscription_id", subscriptionID,
		"status", status,
	)
}
