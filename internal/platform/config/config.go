package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	id "tipjar/pkg/domain"
)

const devSigningKey = "dev-secret-key-change-in-production"

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"
)

// Server captures process level configuration.
type Server struct {
	Addr            string
	Owner           id.Identity
	MinDonation     id.Amount
	EventBuffer     int
	ShutdownTimeout time.Duration
	Store           StoreConfig
	Redis           RedisConfig
	Kafka           KafkaConfig
	Auth            AuthConfig
	RateLimit       RateLimitConfig
	Log             LogConfig
}

type StoreConfig struct {
	Backend     string
	DatabaseURL string
	SQLitePath  string
}

// RedisConfig is optional; an empty URL keeps challenges in memory.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig is optional; no brokers disables the Kafka sink.
type KafkaConfig struct {
	Brokers  []string
	Topic    string
	ClientID string
}

type AuthConfig struct {
	JWTSigningKey string
	Issuer        string
	Audience      string
	TokenTTL      time.Duration
	ChallengeTTL  time.Duration
	// DevSigningKey is set when JWT_SIGNING_KEY was not provided.
	DevSigningKey bool
}

// RateLimitConfig sets per-minute request budgets. Zero disables a class.
type RateLimitConfig struct {
	Disabled      bool
	AuthPerMinute int
}

type LogConfig struct {
	Level  string
	Format string
}

// FromEnv loads .env files when present, then reads the environment.
func FromEnv() (Server, error) {
	_ = godotenv.Load(".env", ".env.local")
	return fromLookup(os.LookupEnv)
}

func fromLookup(lookup func(string) (string, bool)) (Server, error) {
	env := envReader{lookup: lookup}

	cfg := Server{
		Addr:            env.get("TIPJAR_ADDR", ":8080"),
		EventBuffer:     env.getInt("EVENT_BUFFER", 256),
		ShutdownTimeout: env.getDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		Store: StoreConfig{
			Backend:     strings.ToLower(env.get("STORE_BACKEND", StoreMemory)),
			DatabaseURL: env.get("DATABASE_URL", ""),
			SQLitePath:  env.get("SQLITE_PATH", "tipjar.db"),
		},
		Redis: RedisConfig{
			URL:          env.get("REDIS_URL", ""),
			PoolSize:     env.getInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: env.getInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  env.getDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  env.getDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: env.getDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers:  splitList(env.get("KAFKA_BROKERS", "")),
			Topic:    env.get("KAFKA_TOPIC", "tipjar.ledger.events"),
			ClientID: env.get("KAFKA_CLIENT_ID", "tipjar"),
		},
		Auth: AuthConfig{
			JWTSigningKey: env.get("JWT_SIGNING_KEY", ""),
			Issuer:        env.get("JWT_ISSUER", "tipjar"),
			Audience:      env.get("JWT_AUDIENCE", "tipjar-api"),
			TokenTTL:      env.getDuration("TOKEN_TTL", time.Hour),
			ChallengeTTL:  env.getDuration("CHALLENGE_TTL", 5*time.Minute),
		},
		RateLimit: RateLimitConfig{
			Disabled:      env.get("RATE_LIMIT_DISABLED", "false") == "true",
			AuthPerMinute: env.getInt("RATE_LIMIT_AUTH_PER_MINUTE", 20),
		},
		Log: LogConfig{
			Level:  strings.ToLower(env.get("LOG_LEVEL", "info")),
			Format: strings.ToLower(env.get("LOG_FORMAT", "json")),
		},
	}
	if cfg.Auth.JWTSigningKey == "" {
		// Use a default for development - should be overridden in production
		cfg.Auth.JWTSigningKey = devSigningKey
		cfg.Auth.DevSigningKey = true
	}

	var errs []error
	errs = append(errs, env.errs...)

	owner, ok := lookup("LEDGER_OWNER")
	if !ok || strings.TrimSpace(owner) == "" {
		errs = append(errs, errors.New("LEDGER_OWNER is required"))
	} else if parsed, err := id.ParseIdentity(owner); err != nil {
		errs = append(errs, fmt.Errorf("LEDGER_OWNER: %w", err))
	} else {
		cfg.Owner = parsed
	}

	minDonation, err := id.ParseEther(env.get("MIN_DONATION", "0.001"))
	if err != nil {
		errs = append(errs, fmt.Errorf("MIN_DONATION: %w", err))
	}
	cfg.MinDonation = minDonation

	errs = append(errs, cfg.validate()...)
	if len(errs) > 0 {
		return Server{}, errors.Join(errs...)
	}
	return cfg, nil
}

func (c Server) validate() []error {
	var errs []error
	switch c.Store.Backend {
	case StoreMemory:
	case StorePostgres:
		if c.Store.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres store"))
		}
	case StoreSQLite:
		if c.Store.SQLitePath == "" {
			errs = append(errs, errors.New("SQLITE_PATH is required for the sqlite store"))
		}
	default:
		errs = append(errs, fmt.Errorf("STORE_BACKEND %q is not one of memory, postgres, sqlite", c.Store.Backend))
	}
	if c.EventBuffer < 0 {
		errs = append(errs, errors.New("EVENT_BUFFER cannot be negative"))
	}
	if c.Auth.TokenTTL <= 0 || c.Auth.ChallengeTTL <= 0 {
		errs = append(errs, errors.New("TOKEN_TTL and CHALLENGE_TTL must be positive"))
	}
	if c.RateLimit.AuthPerMinute < 0 {
		errs = append(errs, errors.New("RATE_LIMIT_AUTH_PER_MINUTE cannot be negative"))
	}
	if len(c.Kafka.Brokers) > 0 && c.Kafka.Topic == "" {
		errs = append(errs, errors.New("KAFKA_TOPIC is required when KAFKA_BROKERS is set"))
	}
	switch c.Log.Format {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("LOG_FORMAT %q is not one of json, text", c.Log.Format))
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("LOG_LEVEL %q is not one of debug, info, warn, error", c.Log.Level))
	}
	return errs
}

type envReader struct {
	lookup func(string) (string, bool)
	errs   []error
}

func (e *envReader) get(key, fallback string) string {
	if v, ok := e.lookup(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return fallback
}

func (e *envReader) getInt(key string, fallback int) int {
	v := e.get(key, "")
	if v == "" {
		return fallback
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return i
}

func (e *envReader) getDuration(key string, fallback time.Duration) time.Duration {
	v := e.get(key, "")
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return d
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
