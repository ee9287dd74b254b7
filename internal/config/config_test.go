package config

import (
	"os"
	"testing"
	"time"
)

func TestLoadConfig(t *testing.T) {
	if err := os.Setenv("SERVER_PORT", "9090"); err != nil {
		t.Fatalf("Failed to set SERVER_PORT: %v", err)
	}
	if err := os.Setenv("POSTGRES_HOST", "testhost"); err != nil {
		t.Fatalf("Failed to set POSTGRES_HOST: %v", err)
	}
	if err := os.Setenv("SNAPSHOT_RETENTION_WINDOW", "48h"); err != nil {
		t.Fatalf("Failed to set SNAPSHOT_RETENTION_WINDOW: %v", err)
	}
	defer func() {
		_ = os.Unsetenv("SERVER_PORT")
		_ = os.Unsetenv("POSTGRES_HOST")
		_ = os.Unsetenv("SNAPSHOT_RETENTION_WINDOW")
	}()

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Server.Port != "9090" {
		t.Errorf("Server.Port = %v, want %v", cfg.Server.Port, "9090")
	}
	if cfg.Database.Postgres.Host != "testhost" {
		t.Errorf("Database.Postgres.Host = %v, want %v", cfg.Database.Postgres.Host, "testhost")
	}
	if cfg.Snapshot.RetentionWindow != 48*time.Hour {
		t.Errorf("Snapshot.RetentionWindow = %v, want %v", cfg.Snapshot.RetentionWindow, 48*time.Hour)
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Snapshot.RetentionWindow != 72*time.Hour {
		t.Errorf("default RetentionWindow = %v, want 72h", cfg.Snapshot.RetentionWindow)
	}
	if cfg.Snapshot.SweepInterval != time.Hour {
		t.Errorf("default SweepInterval = %v, want 1h", cfg.Snapshot.SweepInterval)
	}
	if cfg.Snapshot.MaxFetchCeiling != 50 {
		t.Errorf("default MaxFetchCeiling = %v, want 50", cfg.Snapshot.MaxFetchCeiling)
	}
	if cfg.Summarizer.Timeout != 20*time.Second {
		t.Errorf("default Summarizer.Timeout = %v, want 20s", cfg.Summarizer.Timeout)
	}
}

func TestPostgresURL(t *testing.T) {
	cfg := &PostgresConfig{
		Host:     "db",
		Port:     "5432",
		Database: "snapshots",
		User:     "app",
		Password: "secret",
	}
	want := "postgres://app:secret@db:5432/snapshots?sslmode=disable"
	if got := cfg.PostgresURL(); got != want {
		t.Errorf("PostgresURL() = %v, want %v", got, want)
	}
}

func TestGetEnvAsDuration(t *testing.T) {
	if err := os.Setenv("TEST_DURATION", "90s"); err != nil {
		t.Fatalf("Failed to set TEST_DURATION: %v", err)
	}
	defer func() { _ = os.Unsetenv("TEST_DURATION") }()

	if got := getEnvAsDuration("TEST_DURATION", time.Minute); got != 90*time.Second {
		t.Errorf("getEnvAsDuration = %v, want 90s", got)
	}
	if got := getEnvAsDuration("MISSING_DURATION", time.Minute); got != time.Minute {
		t.Errorf("getEnvAsDuration default = %v, want 1m", got)
	}
	if err := os.Setenv("BAD_DURATION", "not-a-duration"); err != nil {
		t.Fatalf("Failed to set BAD_DURATION: %v", err)
	}
	defer func() { _ = os.Unsetenv("BAD_DURATION") }()
	if got := getEnvAsDuration("BAD_DURATION", time.Minute); got != time.Minute {
		t.Errorf("getEnvAsDuration on invalid value = %v, want fallback 1m", got)
	}
}
