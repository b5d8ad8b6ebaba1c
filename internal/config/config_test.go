package config

import "testing"

func TestLoadIncludesDialogueDefaults(t *testing.T) {
	t.Setenv("DEFAULT_TIMEZONE", "")
	t.Setenv("ALTERNATIVE_LIMIT", "")
	t.Setenv("ESCALATE_AFTER_FAILURES", "")
	t.Setenv("GATEWAY_TIMEOUT_SECONDS", "")
	t.Setenv("NATS_SUBJECT", "")

	cfg := Load()
	if cfg.DefaultTimezone != "UTC" {
		t.Fatalf("expected default timezone UTC, got %q", cfg.DefaultTimezone)
	}
	if cfg.AlternativeLimit != 3 {
		t.Fatalf("expected default alternative limit 3, got %d", cfg.AlternativeLimit)
	}
	if cfg.EscalateAfterFailures != 2 {
		t.Fatalf("expected default escalation threshold 2, got %d", cfg.EscalateAfterFailures)
	}
	if cfg.GatewayTimeoutSeconds != 5 {
		t.Fatalf("expected default gateway timeout 5s, got %d", cfg.GatewayTimeoutSeconds)
	}
	if cfg.NATSSubject != "bookings.events" {
		t.Fatalf("expected default subject bookings.events, got %q", cfg.NATSSubject)
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	t.Setenv("DEFAULT_TIMEZONE", "Europe/Berlin")
	t.Setenv("ALTERNATIVE_LIMIT", "5")
	t.Setenv("API_RATE_LIMIT_RPS", "100")
	t.Setenv("REMINDER_LEAD_HOURS", "48")

	cfg := Load()
	if cfg.DefaultTimezone != "Europe/Berlin" {
		t.Fatalf("expected timezone override, got %q", cfg.DefaultTimezone)
	}
	if cfg.AlternativeLimit != 5 {
		t.Fatalf("expected alternative limit 5, got %d", cfg.AlternativeLimit)
	}
	if cfg.APIRateLimitRPS != 100 {
		t.Fatalf("expected rate limit 100, got %d", cfg.APIRateLimitRPS)
	}
	if cfg.ReminderLeadHours != 48 {
		t.Fatalf("expected reminder lead 48, got %d", cfg.ReminderLeadHours)
	}
}

func TestLoadFallsBackOnMalformedInt(t *testing.T) {
	t.Setenv("ALTERNATIVE_LIMIT", "lots")

	cfg := Load()
	if cfg.AlternativeLimit != 3 {
		t.Fatalf("expected fallback 3 for malformed int, got %d", cfg.AlternativeLimit)
	}
}
