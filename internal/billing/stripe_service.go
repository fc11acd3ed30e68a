package billing

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/sereno-care/practice-platform/pkg/logging"
)

var stripeTracer = otel.Tracer("practice.internal.billing.stripe")

// StripeService drives the SaaS subscription flow against the Stripe
// HTTP API: create a customer, attach a payment method, create the
// subscription on the configured price.
type StripeService struct {
	secretKey  string
	priceID    string
	baseURL    string
	apiVersion string
	httpClient *http.Client
	logger     *logging.Logger
	dryRun     bool
}

// NewStripeService creates a Stripe billing service.
func NewStripeService(secretKey, priceID string, logger *logging.Logger) *StripeService {
	if logger == nil {
		logger = logging.Default()
	}
	return &StripeService{
		secretKey:  secretKey,
		priceID:    priceID,
		baseURL:    "https://api.stripe.com",
		apiVersion: "2024-12-18.acacia",
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
}

// WithBaseURL overrides the Stripe API base URL (for testing).
func (s *StripeService) WithBaseURL(baseURL string) *StripeService {
	if baseURL != "" {
		s.baseURL = strings.TrimRight(baseURL, "/")
	}
	return s
}

// WithDryRun enables dry-run mode (returns fake ids without calling Stripe).
func (s *StripeService) WithDryRun(enabled bool) *StripeService {
	s.dryRun = enabled
	return s
}

// SubscriptionResult is the outcome of a subscription attempt. When
// RequiresAction is set the client must confirm the payment intent with
// ClientSecret before the subscription activates.
type SubscriptionResult struct {
	CustomerID     string `json:"customer_id"`
	SubscriptionID string `json:"subscription_id"`
	Status         string `json:"status"`
	RequiresAction bool   `json:"requires_action"`
	ClientSecret   string `json:"client_secret,omitempty"`
}

// Subscribe runs the full flow for an org.
func (s *StripeService) Subscribe(ctx context.Context, orgID, orgName, email, paymentMethod string) (*SubscriptionResult, error) {
	ctx, span := stripeTracer.Start(ctx, "stripe.subscribe",
		trace.WithAttributes(attribute.String("practice.org_id", orgID)))
	defer span.End()

	if s.dryRun {
		fakeCustomer := "cus_dryrun_" + uuid.New().String()[:8]
		fakeSub := "sub_dryrun_" + uuid.New().String()[:8]
		s.logger.Info("stripe dry run: skipping subscription creation", "org_id", orgID)
		return &SubscriptionResult{
			CustomerID:     fakeCustomer,
			SubscriptionID: fakeSub,
			Status:         "active",
		}, nil
	}

	customerID, err := s.createCustomer(ctx, orgName, email, orgID)
	if err != nil {
		return nil, err
	}
	if err := s.attachPaymentMethod(ctx, customerID, paymentMethod); err != nil {
		return nil, err
	}
	return s.createSubscription(ctx, customerID)
}

func (s *StripeService) createCustomer(ctx context.Context, name, email, orgID string) (string, error) {
	ctx, span := stripeTracer.Start(ctx, "stripe.create_customer")
	defer span.End()

	form := url.Values{}
	form.Set("name", name)
	form.Set("email", email)
	form.Set("metadata[org_id]", orgID)

	var parsed struct {
		ID string `json:"id"`
	}
	if err := s.post(ctx, "/v1/customers", form, &parsed); err != nil {
		return "", err
	}
	if parsed.ID == "" {
		return "", fmt.Errorf("billing: stripe response missing customer id")
	}
	span.SetAttributes(attribute.String("stripe.customer_id", parsed.ID))
	return parsed.ID, nil
}

func (s *StripeService) attachPaymentMethod(ctx context.Context, customerID, paymentMethod string) error {
	ctx, span := stripeTracer.Start(ctx, "stripe.attach_payment_method")
	defer span.End()

	if strings.TrimSpace(paymentMethod) == "" {
		return fmt.Errorf("billing: payment method token is required")
	}

	attach := url.Values{}
	attach.Set("customer", customerID)
	if err := s.post(ctx, "/v1/payment_methods/"+paymentMethod+"/attach", attach, &struct{}{}); err != nil {
		return err
	}

	// Mark it as the default so invoices can charge it.
	update := url.Values{}
	update.Set("invoice_settings[default_payment_method]", paymentMethod)
	return s.post(ctx, "/v1/customers/"+customerID, update, &struct{}{})
}

func (s *StripeService) createSubscription(ctx context.Context, customerID string) (*SubscriptionResult, error) {
	ctx, span := stripeTracer.Start(ctx, "stripe.create_subscription")
	defer span.End()

	form := url.Values{}
	form.Set("customer", customerID)
	form.Set("items[0][price]", s.priceID)
	form.Set("payment_behavior", "default_incomplete")
	form.Set("expand[]", "latest_invoice.payment_intent")

	var parsed struct {
		ID            string `json:"id"`
		Status        string `json:"status"`
		LatestInvoice struct {
			PaymentIntent struct {
				Status       string `json:"status"`
				ClientSecret string `json:"client_secret"`
			} `json:"payment_intent"`
		} `json:"latest_invoice"`
	}
	if err := s.post(ctx, "/v1/subscriptions", form, &parsed); err != nil {
		return nil, err
	}

	result := &SubscriptionResult{
		CustomerID:     customerID,
		SubscriptionID: parsed.ID,
		Status:         parsed.Status,
	}
	if parsed.LatestInvoice.PaymentIntent.Status == "requires_action" {
		result.RequiresAction = true
		result.ClientSecret = parsed.LatestInvoice.PaymentIntent.ClientSecret
	}
	span.SetAttributes(
		attribute.String("stripe.subscription_id", parsed.ID),
		attribute.String("stripe.status", parsed.Status),
		attribute.Bool("stripe.requires_action", result.RequiresAction),
	)
	return result, nil
}

func (s *StripeService) post(ctx context.Context, path string, form url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("billing: stripe request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.secretKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Stripe-Version", s.apiVersion)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("billing: stripe http: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("billing: stripe api status %d: %s", resp.StatusCode, string(body))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("billing: stripe decode: %w", err)
	}
	return nil
}
