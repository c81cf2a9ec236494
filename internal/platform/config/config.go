package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full service configuration. Values come from an optional YAML
// file (DINEIN_CONFIG_FILE) and are then overridden by DINEIN_* environment
// variables so containers can tweak single settings.
type Config struct {
	Server     Server           `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Kafka      KafkaConfig      `yaml:"kafka"`
	ActorToken ActorTokenConfig `yaml:"actor_token"`
	Board      BoardConfig      `yaml:"board"`
	RateLimit  RateLimitConfig  `yaml:"rate_limit"`
	Loyalty    LoyaltyConfig    `yaml:"loyalty"`
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string        `yaml:"addr"`
	Environment     string        `yaml:"environment"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// DatabaseConfig selects the Postgres backend. An empty URL runs the service
// on in-memory stores.
type DatabaseConfig struct {
	URL          string `yaml:"url"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
	Migrate      bool   `yaml:"migrate"`
}

// RedisConfig is optional; an empty URL disables read caches.
type RedisConfig struct {
	URL          string        `yaml:"url"`
	PoolSize     int           `yaml:"pool_size"`
	MinIdleConns int           `yaml:"min_idle_conns"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// KafkaConfig is optional; without brokers order events are only logged.
type KafkaConfig struct {
	Brokers           []string `yaml:"brokers"`
	Topic             string   `yaml:"topic"`
	Partitions        int32    `yaml:"partitions"`
	ReplicationFactor int16    `yaml:"replication_factor"`
	BufferSize        int      `yaml:"buffer_size"`
}

// ActorTokenConfig verifies tokens minted by the auth service.
type ActorTokenConfig struct {
	SigningKey string `yaml:"signing_key"`
	Issuer     string `yaml:"issuer"`
}

// BoardConfig tunes the kitchen/waiter projections. CacheTTL must stay below
// the board polling interval.
type BoardConfig struct {
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

// RateLimitConfig bounds per-actor request rates on polling endpoints.
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// LoyaltyConfig bounds the accrual call made after settlement.
type LoyaltyConfig struct {
	AccrualTimeout time.Duration `yaml:"accrual_timeout"`
	SummaryTTL     time.Duration `yaml:"summary_ttl"`
}

const devSigningKey = "dev-actor-token-key-change-in-production"

// Default returns a configuration suitable for local development.
func Default() Config {
	return Config{
		Server: Server{
			Addr:            ":8080",
			Environment:     "development",
			RequestTimeout:  15 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{MaxOpenConns: 20, MaxIdleConns: 5, Migrate: true},
		Redis: RedisConfig{
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  2 * time.Second,
			ReadTimeout:  500 * time.Millisecond,
			WriteTimeout: 500 * time.Millisecond,
		},
		Kafka: KafkaConfig{
			Topic:             "dinein.order-events",
			Partitions:        6,
			ReplicationFactor: 1,
			BufferSize:        1024,
		},
		ActorToken: ActorTokenConfig{SigningKey: devSigningKey, Issuer: "dinein-auth"},
		Board:      BoardConfig{CacheTTL: 2 * time.Second},
		RateLimit:  RateLimitConfig{RequestsPerSecond: 5, Burst: 10},
		Loyalty:    LoyaltyConfig{AccrualTimeout: 3 * time.Second, SummaryTTL: 30 * time.Second},
	}
}

// Load reads the optional YAML file and applies environment overrides.
func Load() (Config, error) {
	cfg := Default()
	if path := os.Getenv("DINEIN_CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file: %w", err)
		}
	}
	if err := applyEnv(&cfg, os.Getenv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects incoherent settings before anything is wired.
func (c Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server addr is required")
	}
	if c.IsProduction() && c.ActorToken.SigningKey == devSigningKey {
		return fmt.Errorf("actor token signing key must be set in production")
	}
	if c.ActorToken.SigningKey == "" {
		return fmt.Errorf("actor token signing key is required")
	}
	if len(c.Kafka.Brokers) > 0 && c.Kafka.Topic == "" {
		return fmt.Errorf("kafka topic is required when brokers are configured")
	}
	if c.Board.CacheTTL < 0 || c.Board.CacheTTL >= 5*time.Second {
		return fmt.Errorf("board cache ttl must be in [0, 5s), got %s", c.Board.CacheTTL)
	}
	if c.RateLimit.RequestsPerSecond < 0 || c.RateLimit.Burst < 0 {
		return fmt.Errorf("rate limit values must be non-negative")
	}
	return nil
}

func (c Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

func applyEnv(cfg *Config, getenv func(string) string) error {
	setString(&cfg.Server.Addr, getenv("DINEIN_ADDR"))
	setString(&cfg.Server.Environment, getenv("DINEIN_ENV"))
	setString(&cfg.Database.URL, getenv("DINEIN_DATABASE_URL"))
	setString(&cfg.Redis.URL, getenv("DINEIN_REDIS_URL"))
	setString(&cfg.Kafka.Topic, getenv("DINEIN_KAFKA_TOPIC"))
	setString(&cfg.ActorToken.SigningKey, getenv("DINEIN_ACTOR_TOKEN_KEY"))
	setString(&cfg.ActorToken.Issuer, getenv("DINEIN_ACTOR_TOKEN_ISSUER"))

	if v := getenv("DINEIN_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = splitList(v)
	}
	if v := getenv("DINEIN_DATABASE_MIGRATE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("DINEIN_DATABASE_MIGRATE: %w", err)
		}
		cfg.Database.Migrate = b
	}
	if err := setDuration(&cfg.Board.CacheTTL, "DINEIN_BOARD_CACHE_TTL", getenv); err != nil {
		return err
	}
	if err := setDuration(&cfg.Server.RequestTimeout, "DINEIN_REQUEST_TIMEOUT", getenv); err != nil {
		return err
	}
	if v := getenv("DINEIN_RATE_LIMIT_RPS"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("DINEIN_RATE_LIMIT_RPS: %w", err)
		}
		cfg.RateLimit.RequestsPerSecond = f
	}
	if v := getenv("DINEIN_RATE_LIMIT_BURST"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("DINEIN_RATE_LIMIT_BURST: %w", err)
		}
		cfg.RateLimit.Burst = n
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, key string, getenv func(string) string) error {
	v := getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = d
	return nil
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
