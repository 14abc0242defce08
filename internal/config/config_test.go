package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "ENV", "LOG_LEVEL", "DATABASE_URL", "REDIS_ADDR", "SLOT_CACHE_TTL", "DEFAULT_SLOT_MINUTES", "CORS_ALLOWED_ORIGINS"} {
		t.Setenv(key, "")
	}
	cfg := Load()
	if cfg.Port != "8080" {
		t.Fatalf("expected default port, got %s", cfg.Port)
	}
	if cfg.Env != "development" {
		t.Fatalf("expected default env, got %s", cfg.Env)
	}
	if cfg.IsProduction() {
		t.Fatalf("expected development env not to be production")
	}
	if cfg.DatabaseURL != "" || cfg.RedisAddr != "" {
		t.Fatalf("expected no backing stores by default, got db=%q redis=%q", cfg.DatabaseURL, cfg.RedisAddr)
	}
	if cfg.SlotCacheTTL != 5*time.Minute {
		t.Fatalf("expected default slot cache ttl, got %s", cfg.SlotCacheTTL)
	}
	if cfg.DefaultSlotMinutes != 30 {
		t.Fatalf("expected default slot minutes 30, got %d", cfg.DefaultSlotMinutes)
	}
	if len(cfg.CORSAllowedOrigins) != 0 {
		t.Fatalf("expected no cors origins, got %v", cfg.CORSAllowedOrigins)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ENV", "Production")
	t.Setenv("DATABASE_URL", "postgres://user@host/clinica")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("REDIS_TLS", "true")
	t.Setenv("SLOT_CACHE_TTL", "90s")
	t.Setenv("DEFAULT_SLOT_MINUTES", "45")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://localhost:3000, https://clinica.example.com,,")
	t.Setenv("OUTBOX_BATCH_SIZE", "10")
	t.Setenv("HTTP_WRITE_TIMEOUT", "1m")
	cfg := Load()
	if cfg.Port != "9090" {
		t.Fatalf("expected override port, got %s", cfg.Port)
	}
	if !cfg.IsProduction() {
		t.Fatalf("expected production env")
	}
	if cfg.DatabaseURL != "postgres://user@host/clinica" {
		t.Fatalf("expected db override, got %s", cfg.DatabaseURL)
	}
	if cfg.RedisAddr != "localhost:6379" || !cfg.RedisTLS {
		t.Fatalf("expected redis overrides, got %s tls=%v", cfg.RedisAddr, cfg.RedisTLS)
	}
	if cfg.SlotCacheTTL != 90*time.Second {
		t.Fatalf("expected slot cache ttl override, got %s", cfg.SlotCacheTTL)
	}
	if cfg.DefaultSlotMinutes != 45 {
		t.Fatalf("expected slot minutes override, got %d", cfg.DefaultSlotMinutes)
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[1] != "https://clinica.example.com" {
		t.Fatalf("expected two cors origins, got %v", cfg.CORSAllowedOrigins)
	}
	if cfg.OutboxBatchSize != 10 {
		t.Fatalf("expected outbox batch override, got %d", cfg.OutboxBatchSize)
	}
	if cfg.HTTPWriteTimeout != time.Minute {
		t.Fatalf("expected write timeout override, got %s", cfg.HTTPWriteTimeout)
	}
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	t.Setenv("DEFAULT_SLOT_MINUTES", "thirty")
	t.Setenv("SLOT_CACHE_TTL", "soon")
	t.Setenv("REDIS_TLS", "maybe")
	cfg := Load()
	if cfg.DefaultSlotMinutes != 30 || cfg.SlotCacheTTL != 5*time.Minute || cfg.RedisTLS {
		t.Fatalf("expected defaults for malformed values, got %d %s %v", cfg.DefaultSlotMinutes, cfg.SlotCacheTTL, cfg.RedisTLS)
	}
}
