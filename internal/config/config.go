package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "GAMESTORE_"

type Config struct {
	Port              string        `koanf:"port"`
	PostgresURL       string        `koanf:"postgres_url"`
	KafkaBrokers      []string      `koanf:"kafka_brokers"`
	KafkaTopic        string        `koanf:"kafka_topic"`
	KafkaGroupID      string        `koanf:"kafka_group_id"`
	RedisAddr         string        `koanf:"redis_addr"`
	RedisPassword     string        `koanf:"redis_password"`
	IdempotencyTTL    time.Duration `koanf:"idempotency_ttl"`
	StoreServiceURL   string        `koanf:"store_service_url"`
	LibraryServiceURL string        `koanf:"library_service_url"`
	EmailServiceURL   string        `koanf:"email_service_url"`
	StartingBalance   int64         `koanf:"starting_balance"`
	LogFile           string        `koanf:"log_file"`
	MigrationsPath    string        `koanf:"migrations_path"`
}

var defaultPorts = map[string]string{
	"gateway": "8080",
	"store":   "8081",
	"library": "8082",
	"email":   "8084",
}

func Default(service string) Config {
	return Config{
		Port:            defaultPorts[service],
		KafkaTopic:      "purchase.completed",
		KafkaGroupID:    "receipt-worker",
		IdempotencyTTL:  24 * time.Hour,
		StartingBalance: 500000,
		MigrationsPath:  "file://migrations",
	}
}

// Load layers, lowest first: defaults, the YAML file named by
// GAMESTORE_CONFIG, then GAMESTORE_* variables (nested keys use "__").
func Load(service string) (Config, error) {
	k := koanf.New(".")

	if path := os.Getenv(envPrefix + "CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("load %s: %w", path, err)
		}
	}

	if err := k.Load(env.ProviderWithValue(envPrefix, ".", func(key, value string) (string, any) {
		key = strings.TrimPrefix(key, envPrefix)
		key = strings.ToLower(strings.ReplaceAll(key, "__", "."))
		if key == "kafka_brokers" {
			return key, splitList(value)
		}
		return key, value
	}), nil); err != nil {
		return Config{}, fmt.Errorf("env overlay: %w", err)
	}

	cfg := Default(service)
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal: %w", err)
	}
	return cfg, nil
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
