package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/sereno-care/practice-platform/internal/billing"
	"github.com/sereno-care/practice-platform/internal/handoff"
	httpmiddleware "github.com/sereno-care/practice-platform/internal/http/middleware"
	"github.com/sereno-care/practice-platform/internal/live"
	"github.com/sereno-care/practice-platform/internal/notes"
	"github.com/sereno-care/practice-platform/internal/orgs"
	"github.com/sereno-care/practice-platform/internal/patients"
	"github.com/sereno-care/practice-platform/internal/reporting"
	"github.com/sereno-care/practice-platform/internal/scheduling"
	"github.com/sereno-care/practice-platform/internal/sessions"
	"github.com/sereno-care/practice-platform/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger *logging.Logger

	SchedulingHandler *scheduling.Handler
	PatientsHandler   *patients.Handler
	NotesHandler      *notes.Handler
	SessionsHandler   *sessions.Handler
	BillingHandler    *billing.Handler
	StripeWebhook     *billing.WebhookHandler
	HandoffHandler    *handoff.Handler
	LiveHandler       *live.Handler

	// Admin surface
	OrgsHandler      *orgs.Handler
	ReportingHandler *reporting.Handler
	AdminAuthSecret  string

	MetricsHandler     http.Handler
	CORSAllowedOrigins []string

	// Requests/sec per IP on the public webhook surface. Zero disables.
	WebhookRateLimit float64
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	// Public endpoints (webhooks, health checks, live feed)
	r.Group(func(public chi.Router) {
		public.Get("/health", healthCheck)
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
		if cfg.StripeWebhook != nil {
			if cfg.WebhookRateLimit > 0 {
				public.With(httpmiddleware.RateLimit(cfg.WebhookRateLimit, int(cfg.WebhookRateLimit)*2)).
					Post("/webhooks/stripe", cfg.StripeWebhook.Handle)
			} else {
				public.Post("/webhooks/stripe", cfg.StripeWebhook.Handle)
			}
		}
		if cfg.LiveHandler != nil {
			public.Get("/live/feed", cfg.LiveHandler.HandleWebSocket)
			public.Get("/live/snapshot", cfg.LiveHandler.HandleSnapshot)
		}
	})

	// Admin routes (protected by HMAC JWT)
	if cfg.AdminAuthSecret != "" {
		r.Route("/admin", func(admin chi.Router) {
			admin.Use(httpmiddleware.AdminJWT(cfg.AdminAuthSecret))
			if cfg.OrgsHandler != nil {
				admin.Mount("/orgs", cfg.OrgsHandler.Routes())
			}
			if cfg.ReportingHandler != nil {
				admin.Get("/orgs/{orgID}/report", cfg.ReportingHandler.GetReport)
			}
		})
	}

	// Tenant-scoped API routes
	r.Group(func(tenant chi.Router) {
		tenant.Use(requireOrgID)

		if cfg.SchedulingHandler != nil {
			tenant.Mount("/appointments", cfg.SchedulingHandler.Routes())
		}
		if cfg.PatientsHandler != nil {
			tenant.Mount("/patients", cfg.PatientsHandler.Routes())
		}
		if cfg.NotesHandler != nil {
			tenant.Mount("/notes", cfg.NotesHandler.Routes())
		}
		if cfg.SessionsHandler != nil {
			tenant.Mount("/recordings", cfg.SessionsHandler.Routes())
		}
		if cfg.BillingHandler != nil {
			tenant.Mount("/billing", cfg.BillingHandler.Routes())
		}
		if cfg.HandoffHandler != nil {
			tenant.Mount("/handoff", cfg.HandoffHandler.Routes())
		}
	})

	return r
}

func healthCheck(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
