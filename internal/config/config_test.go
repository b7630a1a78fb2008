package config

import (
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	t.Run("defaults per service", func(t *testing.T) {
		cfg, err := Load("library")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.Port != "8082" {
			t.Errorf("expected port 8082, got %s", cfg.Port)
		}
		if cfg.KafkaTopic != "purchase.completed" {
			t.Errorf("expected default topic, got %s", cfg.KafkaTopic)
		}
		if cfg.StartingBalance != 500000 {
			t.Errorf("expected starting balance 500000, got %d", cfg.StartingBalance)
		}
	})

	t.Run("file then env", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "store.yaml")
		yaml := "port: \"9000\"\npostgres_url: postgres://file\nstarting_balance: 42\nidempotency_ttl: 1h\n"
		if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
			t.Fatalf("write config: %v", err)
		}

		t.Setenv("GAMESTORE_CONFIG", path)
		t.Setenv("GAMESTORE_POSTGRES_URL", "postgres://env")
		t.Setenv("GAMESTORE_KAFKA_BROKERS", "k1:9092, k2:9092,")

		cfg, err := Load("store")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.Port != "9000" {
			t.Errorf("expected port from file, got %s", cfg.Port)
		}
		if cfg.PostgresURL != "postgres://env" {
			t.Errorf("expected env to win, got %s", cfg.PostgresURL)
		}
		if cfg.StartingBalance != 42 {
			t.Errorf("expected balance 42, got %d", cfg.StartingBalance)
		}
		if cfg.IdempotencyTTL != time.Hour {
			t.Errorf("expected ttl 1h, got %v", cfg.IdempotencyTTL)
		}
		if !slices.Equal(cfg.KafkaBrokers, []string{"k1:9092", "k2:9092"}) {
			t.Errorf("unexpected brokers: %v", cfg.KafkaBrokers)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		t.Setenv("GAMESTORE_CONFIG", filepath.Join(t.TempDir(), "nope.yaml"))
		if _, err := Load("store"); err == nil {
			t.Error("expected error for missing config file")
		}
	})
}
