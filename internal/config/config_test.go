package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"PORT", "DATABASE_URL", "REDIS_ADDR", "CORS_ORIGINS", "APP_ENV",
		"CART_TTL", "PAYMENT_TERM", "SWEEP_ENABLED", "SWEEP_INTERVAL",
		"SWEEP_RETENTION", "RATE_LIMIT", "RATE_BURST",
	} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Port != "8080" {
		t.Errorf("expected default port 8080, got %q", cfg.Port)
	}
	if cfg.CartTTL != 20*time.Minute {
		t.Errorf("expected default cart ttl 20m, got %v", cfg.CartTTL)
	}
	if cfg.PaymentTerm != 7*24*time.Hour {
		t.Errorf("expected default payment term 168h, got %v", cfg.PaymentTerm)
	}
	if !cfg.SweepEnabled {
		t.Errorf("expected sweep enabled by default")
	}
	if cfg.RateLimit != 20 || cfg.RateBurst != 40 {
		t.Errorf("unexpected rate limit defaults: %v/%v", cfg.RateLimit, cfg.RateBurst)
	}
	if len(cfg.CORSOrigins) == 0 {
		t.Errorf("expected default CORS origins")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9999")
	t.Setenv("CART_TTL", "5m")
	t.Setenv("SWEEP_ENABLED", "false")
	t.Setenv("CORS_ORIGINS", "https://shop.example, https://admin.example")
	t.Setenv("RATE_LIMIT", "2.5")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Port != "9999" {
		t.Errorf("expected port 9999, got %q", cfg.Port)
	}
	if cfg.CartTTL != 5*time.Minute {
		t.Errorf("expected cart ttl 5m, got %v", cfg.CartTTL)
	}
	if cfg.SweepEnabled {
		t.Errorf("expected sweep disabled")
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "https://admin.example" {
		t.Errorf("unexpected CORS origins: %v", cfg.CORSOrigins)
	}
	if cfg.RateLimit != 2.5 {
		t.Errorf("expected rate limit 2.5, got %v", cfg.RateLimit)
	}
}

func TestLoadRejectsBadDuration(t *testing.T) {
	t.Setenv("CART_TTL", "twenty minutes")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error for invalid CART_TTL")
	}
}
