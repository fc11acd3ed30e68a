package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.Port != "8080" {
		t.Errorf("expected default port 8080, got %s", cfg.Port)
	}
	if cfg.MaxSeriesOccurrences != 52 {
		t.Errorf("expected default max occurrences 52, got %d", cfg.MaxSeriesOccurrences)
	}
	if cfg.SlotMinutes != 30 {
		t.Errorf("expected default slot minutes 30, got %d", cfg.SlotMinutes)
	}
	if cfg.HandoffTTL != 10*time.Minute {
		t.Errorf("expected default handoff TTL 10m, got %s", cfg.HandoffTTL)
	}
	if cfg.EmailProvider != "sendgrid" {
		t.Errorf("expected default email provider sendgrid, got %s", cfg.EmailProvider)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("MAX_SERIES_OCCURRENCES", "26")
	t.Setenv("USE_MEMORY_QUEUE", "true")
	t.Setenv("REMINDER_LEAD_TIME", "48h")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://app.example.com, https://admin.example.com")

	cfg := Load()

	if cfg.Port != "9090" {
		t.Errorf("expected port 9090, got %s", cfg.Port)
	}
	if cfg.MaxSeriesOccurrences != 26 {
		t.Errorf("expected max occurrences 26, got %d", cfg.MaxSeriesOccurrences)
	}
	if !cfg.UseMemoryQueue {
		t.Error("expected memory queue enabled")
	}
	if cfg.ReminderLeadTime != 48*time.Hour {
		t.Errorf("expected reminder lead time 48h, got %s", cfg.ReminderLeadTime)
	}
	if len(cfg.CORSAllowedOrigins) != 2 {
		t.Fatalf("expected 2 CORS origins, got %d", len(cfg.CORSAllowedOrigins))
	}
	if cfg.CORSAllowedOrigins[1] != "https://admin.example.com" {
		t.Errorf("unexpected second origin: %s", cfg.CORSAllowedOrigins[1])
	}
}

func TestInvalidValuesFallBack(t *testing.T) {
	t.Setenv("MAX_SERIES_OCCURRENCES", "not-a-number")
	t.Setenv("REMINDER_LEAD_TIME", "soon")

	cfg := Load()

	if cfg.MaxSeriesOccurrences != 52 {
		t.Errorf("expected fallback 52, got %d", cfg.MaxSeriesOccurrences)
	}
	if cfg.ReminderLeadTime != 24*time.Hour {
		t.Errorf("expected fallback 24h, got %s", cfg.ReminderLeadTime)
	}
}
