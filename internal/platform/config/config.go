package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"dealdesk/internal/clock"
	"dealdesk/internal/scoring"
)

// Server captures process level configuration. Environment variables set the
// baseline; a YAML file named by DEALDESK_CONFIG overrides it.
type Server struct {
	Addr            string        `yaml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	LogLevel        string        `yaml:"log_level"`

	JWTSigningKey string `yaml:"jwt_signing_key"`
	JWTIssuer     string `yaml:"jwt_issuer"`

	ReconsiderWindow time.Duration `yaml:"reconsider_window"`
	Thresholds       Thresholds    `yaml:"thresholds"`

	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Kafka    KafkaConfig    `yaml:"kafka"`
}

// Thresholds are the recommendation cut-offs on the 0-100 score scale.
type Thresholds struct {
	Pass        float64 `yaml:"pass"`
	Conditional float64 `yaml:"conditional"`
}

// DatabaseConfig selects postgres. An empty URL runs on in-memory stores.
type DatabaseConfig struct {
	URL             string        `yaml:"url"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// RedisConfig backs the idempotency store. An empty URL keeps keys in memory.
type RedisConfig struct {
	URL            string        `yaml:"url"`
	PoolSize       int           `yaml:"pool_size"`
	MinIdleConns   int           `yaml:"min_idle_conns"`
	DialTimeout    time.Duration `yaml:"dial_timeout"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	IdempotencyTTL time.Duration `yaml:"idempotency_ttl"`
}

// KafkaConfig drives the outbox relay. No brokers disables it.
type KafkaConfig struct {
	Brokers       []string      `yaml:"brokers"`
	Topic         string        `yaml:"topic"`
	RelayInterval time.Duration `yaml:"relay_interval"`
	RelayBatch    int           `yaml:"relay_batch"`
}

const devSigningKey = "dev-secret-key-change-in-production"

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	return Server{
		Addr:            envOr("DEALDESK_ADDR", ":8080"),
		ShutdownTimeout: envDuration("DEALDESK_SHUTDOWN_TIMEOUT", 15*time.Second),
		LogLevel:        envOr("LOG_LEVEL", "info"),

		// Use a default for development - should be overridden in production
		JWTSigningKey: envOr("JWT_SIGNING_KEY", devSigningKey),
		JWTIssuer:     envOr("JWT_ISSUER", "dealdesk"),

		ReconsiderWindow: envDuration("RECONSIDER_WINDOW", clock.DefaultReconsiderWindow),
		Thresholds: Thresholds{
			Pass:        envFloat("SCORE_PASS_THRESHOLD", scoring.DefaultPassThreshold),
			Conditional: envFloat("SCORE_CONDITIONAL_THRESHOLD", scoring.DefaultConditionalThreshold),
		},

		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    envInt("DATABASE_MAX_OPEN_CONNS", 20),
			MaxIdleConns:    envInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("DATABASE_CONN_MAX_LIFETIME", 30*time.Minute),
		},
		Redis: RedisConfig{
			URL:            os.Getenv("REDIS_URL"),
			PoolSize:       envInt("REDIS_POOL_SIZE", 10),
			MinIdleConns:   envInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:    envDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:    envDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout:   envDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
			IdempotencyTTL: envDuration("IDEMPOTENCY_TTL", 24*time.Hour),
		},
		Kafka: KafkaConfig{
			Brokers:       splitList(os.Getenv("KAFKA_BROKERS")),
			Topic:         envOr("KAFKA_TOPIC", "dealdesk.notifications"),
			RelayInterval: envDuration("OUTBOX_RELAY_INTERVAL", 2*time.Second),
			RelayBatch:    envInt("OUTBOX_RELAY_BATCH", 100),
		},
	}
}

// Load reads the environment, then overlays the file named by DEALDESK_CONFIG
// if set. ${VAR} references in the file are expanded.
func Load() (Server, error) {
	cfg := FromEnv()
	if path := os.Getenv("DEALDESK_CONFIG"); path != "" {
		if err := cfg.overlay(path); err != nil {
			return Server{}, err
		}
	}
	return cfg, cfg.Validate()
}

func (c *Server) overlay(path string) error {
	// #nosec G304 -- path is operator-provided config path.
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	expanded := os.ExpandEnv(string(raw))
	expanded = strings.ReplaceAll(expanded, "\r\n", "\n")
	if err := yaml.Unmarshal([]byte(expanded), c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c Server) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("addr is required")
	}
	if c.JWTSigningKey == "" {
		return fmt.Errorf("jwt_signing_key is required")
	}
	if c.ReconsiderWindow <= 0 {
		return fmt.Errorf("reconsider_window must be positive")
	}
	t := c.Thresholds
	if t.Conditional < 0 || t.Pass > 100 || t.Conditional >= t.Pass {
		return fmt.Errorf("thresholds must satisfy 0 <= conditional < pass <= 100")
	}
	if len(c.Kafka.Brokers) > 0 && c.Database.URL == "" {
		return fmt.Errorf("kafka relay requires database.url for the outbox")
	}
	if len(c.Kafka.Brokers) > 0 && c.Kafka.Topic == "" {
		return fmt.Errorf("kafka.topic is required when brokers are set")
	}
	return nil
}

// UsesDevSigningKey reports whether tokens are signed with the built-in key.
func (c Server) UsesDevSigningKey() bool {
	return c.JWTSigningKey == devSigningKey
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
