package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.ServerPort != 8080 {
		t.Errorf("server port = %d, want 8080", cfg.ServerPort)
	}
	if cfg.TokenTTLMinutes != 30 {
		t.Errorf("token ttl = %d, want 30", cfg.TokenTTLMinutes)
	}
	if cfg.LoginRatePerMinute != 20 {
		t.Errorf("login rate = %d, want 20", cfg.LoginRatePerMinute)
	}
	if cfg.Database.Host != "localhost" || cfg.Database.Port != 5432 {
		t.Errorf("unexpected database defaults: %+v", cfg.Database)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("DEBUG", "true")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.ServerPort != 9090 {
		t.Errorf("server port = %d, want 9090", cfg.ServerPort)
	}
	if !cfg.Debug {
		t.Error("debug flag not picked up")
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[1] != "https://b.example" {
		t.Errorf("unexpected origins: %v", cfg.CORSAllowedOrigins)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("SERVER_PORT", "not-a-number")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for non-numeric port")
	}
}

func TestLoadRejectsNonPositiveTTL(t *testing.T) {
	t.Setenv("TOKEN_TTL_MINUTES", "0")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for zero token ttl")
	}
}
