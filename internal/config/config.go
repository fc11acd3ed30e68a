package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port          string
	Env           string
	PublicBaseURL string
	LogLevel      string
	DatabaseURL   string

	// HTTP surface
	CORSAllowedOrigins []string
	AdminJWTSecret     string

	// Scheduling
	MaxSeriesOccurrences int
	SlotMinutes          int
	SlotHeightPx         int
	MinVisibleSlots      int

	// Session pipeline (recordings -> transcript -> note)
	UseMemoryQueue      bool
	WorkerCount         int
	SessionQueueURL     string
	SessionJobsTable    string
	RecordingsBucket    string
	TranscribeModelID   string
	NoteModelID         string
	GeminiAPIKey        string
	GeminiModelID       string
	NoteMaxTokens       int
	ReminderLeadTime    time.Duration
	ReminderPollEnabled bool

	// AWS
	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string

	// Stripe billing
	StripeSecretKey     string
	StripePriceID       string
	StripeWebhookSecret string

	// Redis (date handoff)
	RedisAddr     string
	RedisPassword string
	RedisTLS      bool
	HandoffTTL    time.Duration

	// Email (reminders)
	SendGridAPIKey    string
	SendGridFromEmail string
	SendGridFromName  string
	EmailProvider     string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		PublicBaseURL: getEnv("PUBLIC_BASE_URL", ""),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		DatabaseURL:   getEnv("DATABASE_URL", ""),

		CORSAllowedOrigins: splitAndTrim(getEnv("CORS_ALLOWED_ORIGINS", "")),
		AdminJWTSecret:     getEnv("ADMIN_JWT_SECRET", ""),

		MaxSeriesOccurrences: getEnvAsInt("MAX_SERIES_OCCURRENCES", 52),
		SlotMinutes:          getEnvAsInt("SLOT_MINUTES", 30),
		SlotHeightPx:         getEnvAsInt("SLOT_HEIGHT_PX", 24),
		MinVisibleSlots:      getEnvAsInt("MIN_VISIBLE_SLOTS", 3),

		UseMemoryQueue:      getEnvAsBool("USE_MEMORY_QUEUE", false),
		WorkerCount:         getEnvAsInt("WORKER_COUNT", 2),
		SessionQueueURL:     getEnv("SESSION_QUEUE_URL", ""),
		SessionJobsTable:    getEnv("SESSION_JOBS_TABLE", "session_jobs"),
		RecordingsBucket:    getEnv("RECORDINGS_BUCKET", ""),
		TranscribeModelID:   getEnv("TRANSCRIBE_MODEL_ID", ""),
		NoteModelID:         getEnv("NOTE_MODEL_ID", ""),
		GeminiAPIKey:        getEnv("GEMINI_API_KEY", ""),
		GeminiModelID:       getEnv("GEMINI_MODEL_ID", "gemini-2.5-flash"),
		NoteMaxTokens:       getEnvAsInt("NOTE_MAX_TOKENS", 2048),
		ReminderLeadTime:    getEnvAsDuration("REMINDER_LEAD_TIME", 24*time.Hour),
		ReminderPollEnabled: getEnvAsBool("REMINDER_POLL_ENABLED", false),

		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),

		StripeSecretKey:     getEnv("STRIPE_SECRET_KEY", ""),
		StripePriceID:       getEnv("STRIPE_PRICE_ID", ""),
		StripeWebhookSecret: getEnv("STRIPE_WEBHOOK_SECRET", ""),

		RedisAddr:     getEnv("REDIS_ADDR", "redis:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),
		HandoffTTL:    getEnvAsDuration("HANDOFF_TTL", 10*time.Minute),

		SendGridAPIKey:    getEnv("SENDGRID_API_KEY", ""),
		SendGridFromEmail: getEnv("SENDGRID_FROM_EMAIL", ""),
		SendGridFromName:  getEnv("SENDGRID_FROM_NAME", "Sereno Care"),
		EmailProvider:     strings.ToLower(strings.TrimSpace(getEnv("EMAIL_PROVIDER", "sendgrid"))),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func splitAndTrim(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	return out
}
