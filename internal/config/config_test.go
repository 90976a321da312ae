package config

import "testing"

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("MINISENTRY_PRIMARY__ENV", "test")
	t.Setenv("MINISENTRY_SERVER__PORT", "8080")
	t.Setenv("MINISENTRY_SERVER__READ_TIMEOUT", "10")
	t.Setenv("MINISENTRY_SERVER__WRITE_TIMEOUT", "10")
	t.Setenv("MINISENTRY_SERVER__IDLE_TIMEOUT", "60")
	t.Setenv("MINISENTRY_DATABASE__HOST", "localhost")
	t.Setenv("MINISENTRY_DATABASE__PORT", "5432")
	t.Setenv("MINISENTRY_DATABASE__USER", "minisentry")
	t.Setenv("MINISENTRY_DATABASE__NAME", "minisentry")
	t.Setenv("MINISENTRY_DATABASE__SSL_MODE", "disable")
	t.Setenv("MINISENTRY_DATABASE__MAX_CONNS", "4")
	t.Setenv("MINISENTRY_DATABASE__CONN_MAX_LIFETIME", "300")
	t.Setenv("MINISENTRY_DATABASE__CONN_MAX_IDLE_TIME", "60")
}

func TestLoadConfig_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if len(cfg.Server.CORSAllowedOrigins) != 1 || cfg.Server.CORSAllowedOrigins[0] != "*" {
		t.Fatalf("CORS should default to any origin, got %v", cfg.Server.CORSAllowedOrigins)
	}
	if cfg.Server.PageSize != 20 {
		t.Fatalf("page size should default to 20, got %d", cfg.Server.PageSize)
	}
	if cfg.Observability == nil || cfg.Observability.Enabled {
		t.Fatalf("observability should default to disabled, got %+v", cfg.Observability)
	}
	if cfg.Observability.ServiceName != "minisentry" || cfg.Observability.Environment != "test" {
		t.Fatalf("observability identity not filled in: %+v", cfg.Observability)
	}
}

func TestDatabaseConfigURL(t *testing.T) {
	d := DatabaseConfig{
		Host: "db", Port: 5432, User: "u", Password: "p",
		Name: "minisentry", SSLMode: "disable",
	}
	want := "postgres://u:p@db:5432/minisentry?sslmode=disable"
	if got := d.URL(); got != want {
		t.Fatalf("URL() = %q, want %q", got, want)
	}
}
