package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Address != ":8080" {
		t.Errorf("Server.Address = %q", cfg.Server.Address)
	}
	if cfg.Storage.MaxFileSize != 2<<20 {
		t.Errorf("Storage.MaxFileSize = %d, want 2MiB", cfg.Storage.MaxFileSize)
	}
	if cfg.Storage.UploadPrefix != "form_uploads" {
		t.Errorf("Storage.UploadPrefix = %q", cfg.Storage.UploadPrefix)
	}
	if cfg.Redis.TTL != 5*time.Minute {
		t.Errorf("Redis.TTL = %v", cfg.Redis.TTL)
	}
	if cfg.RabbitMQ.Enabled || cfg.Redis.Enabled {
		t.Error("optional integrations should be disabled by default")
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("SERVER_ADDRESS", ":9090")
	t.Setenv("DATABASE_PORT", "6543")
	t.Setenv("REDIS_ENABLED", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Address != ":9090" {
		t.Errorf("Server.Address = %q, want :9090", cfg.Server.Address)
	}
	if cfg.Database.Port != 6543 {
		t.Errorf("Database.Port = %d, want 6543", cfg.Database.Port)
	}
	if !cfg.Redis.Enabled {
		t.Error("Redis.Enabled should follow REDIS_ENABLED")
	}
}

func TestDatabaseConfigDSN(t *testing.T) {
	cfg := DatabaseConfig{Host: "db", Port: 5432, User: "u", Password: "p", Name: "forms", SSLMode: "disable"}
	want := "postgres://u:p@db:5432/forms?sslmode=disable"
	if got := cfg.DSN(); got != want {
		t.Errorf("DSN() = %q, want %q", got, want)
	}
}
