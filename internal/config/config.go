// Package config loads pipeline settings from environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all pipeline settings, populated from environment variables.
// Input and output file paths come from flags on the binary, not from here.
type Config struct {
	LogLevel  string
	LogFormat string

	// Anomaly ensemble tunables.
	AnomalySeed           int64
	GlobalContamination   float64
	IndustryContamination float64
	MinPeerGroup          int

	// Optional HTTP server for /healthz, /readyz, /metrics on long runs.
	// Empty disables it.
	HTTPAddr        string
	ShutdownTimeout time.Duration

	// Optional Kafka sink for scored facility records. No brokers disables it.
	KafkaBrokers []string
	KafkaTopic   string

	// Optional SQLite run store. Empty path disables it.
	StorePath string
}

// Load reads configuration from environment variables, applying defaults
// where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := parseDuration("SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}

	seed, err := parseInt64("ANOMALY_SEED", 42)
	if err != nil {
		return nil, err
	}
	globalContamination, err := parseRate("GLOBAL_CONTAMINATION", 0.06)
	if err != nil {
		return nil, err
	}
	industryContamination, err := parseRate("INDUSTRY_CONTAMINATION", 0.15)
	if err != nil {
		return nil, err
	}
	minPeerGroup, err := parseInt("MIN_PEER_GROUP", 3)
	if err != nil {
		return nil, err
	}
	if minPeerGroup < 1 {
		return nil, errors.New("MIN_PEER_GROUP must be at least 1")
	}

	cfg := &Config{
		LogLevel:  envOrDefault("LOG_LEVEL", "info"),
		LogFormat: envOrDefault("LOG_FORMAT", "json"),

		AnomalySeed:           seed,
		GlobalContamination:   globalContamination,
		IndustryContamination: industryContamination,
		MinPeerGroup:          minPeerGroup,

		HTTPAddr:        os.Getenv("HTTP_ADDR"),
		ShutdownTimeout: shutdownTimeout,

		KafkaBrokers: parseBrokers(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:   envOrDefault("KAFKA_TOPIC", "scored-facilities"),

		StorePath: os.Getenv("STORE_PATH"),
	}

	if len(cfg.KafkaBrokers) > 0 && cfg.KafkaTopic == "" {
		return nil, errors.New("KAFKA_TOPIC is required when KAFKA_BROKERS is set")
	}

	return cfg, nil
}

// KafkaEnabled reports whether the scored-facility sink is configured.
func (c *Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

// StoreEnabled reports whether the SQLite run store is configured.
func (c *Config) StoreEnabled() bool {
	return c.StorePath != ""
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseBrokers(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	brokers := make([]string, 0, len(parts))
	for _, p := range parts {
		if b := strings.TrimSpace(p); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

func parseDuration(key string, fallback time.Duration) (time.Duration, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return d, nil
}

func parseInt(key string, fallback int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return n, nil
}

func parseInt64(key string, fallback int64) (int64, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return n, nil
}

// parseRate parses a contamination rate in (0, 1].
func parseRate(key string, fallback float64) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f <= 0 || f > 1 {
		return 0, fmt.Errorf("invalid %s: %q (want a rate in (0,1])", key, s)
	}
	return f, nil
}
