package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	if cfg.ServerPort == "" {
		t.Fatalf("expected default server port")
	}
	if cfg.APIBaseURL == "" || cfg.APISubdomain == "" {
		t.Fatalf("expected default api origin and subdomain")
	}
	if cfg.TrackingIntervalMS != 30000 {
		t.Fatalf("expected 30s default interval, got %d", cfg.TrackingIntervalMS)
	}
	if cfg.HistoryBackend != "redis" {
		t.Fatalf("expected redis history backend by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", ":9000")
	t.Setenv("POSTGRES_URL", "postgres://example")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("HISTORY_BACKEND", "postgres")
	t.Setenv("TRACKING_INTERVAL_MS", "5000")
	t.Setenv("FIX_FILE", "/run/fix.json")

	cfg := Load()
	if cfg.ServerPort != ":9000" {
		t.Fatalf("expected override port")
	}
	if cfg.PostgresURL != "postgres://example" {
		t.Fatalf("expected override postgres")
	}
	if cfg.RedisAddr != "redis:6379" {
		t.Fatalf("expected override redis")
	}
	if cfg.JWTSecret != "secret" {
		t.Fatalf("expected override secret")
	}
	if cfg.HistoryBackend != "postgres" {
		t.Fatalf("expected override backend")
	}
	if cfg.TrackingIntervalMS != 5000 {
		t.Fatalf("expected override interval")
	}
	if cfg.FixFile != "/run/fix.json" {
		t.Fatalf("expected override fix file")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := Load()
	cfg.HistoryBackend = "sqlite"
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected unknown backend to fail")
	}

	cfg = Load()
	cfg.StaticLatitude = 120
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected out of range latitude to fail")
	}

	cfg = Load()
	cfg.TrackingIntervalMS = 0
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected zero interval to fail")
	}
}

func TestLoadEmptyRedisAddr(t *testing.T) {
	t.Setenv("REDIS_ADDR", "")

	cfg := Load()
	if cfg.RedisAddr != "" {
		t.Fatalf("expected no redis address so the embedded store is used, got %q", cfg.RedisAddr)
	}
}
