package config

import (
	"fmt"
	"os"
	"time"
)

// Server captures process-level configuration. It is built once at startup
// and handed to constructors explicitly; nothing reads the environment after
// FromEnv returns.
type Server struct {
	Addr        string
	DatabaseURL string
	Redis       RedisConfig
	JWT         JWTConfig
	Enrollment  EnrollmentConfig
	LogLevel    string
}

// JWTConfig holds token signing parameters. SigningKey doubles as the
// password-hashing secret, matching the deployment's single-secret model.
type JWTConfig struct {
	SigningKey string
	Issuer     string
	Audience   string
	TokenTTL   time.Duration
}

// RedisConfig holds the optional cache connection. An empty URL disables
// Redis entirely.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// EnrollmentConfig holds workflow policy toggles.
type EnrollmentConfig struct {
	// AllowReapply permits a new enrollment request after a rejected one.
	// The default (false) blocks on an existing row of any status.
	AllowReapply bool
}

// FromEnv builds a Server config from environment variables so main stays
// lean. It returns an error for configuration the process cannot run
// without; everything else gets a development default.
func FromEnv() (Server, error) {
	cfg := Server{
		Addr:        envOr("POLICYGATE_ADDR", ":8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		LogLevel:    envOr("LOG_LEVEL", "info"),
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		JWT: JWTConfig{
			SigningKey: os.Getenv("JWT_SIGNING_KEY"),
			Issuer:     envOr("JWT_ISSUER", "policygate"),
			Audience:   envOr("JWT_AUDIENCE", "policygate-clients"),
			TokenTTL:   60 * time.Minute,
		},
		Enrollment: EnrollmentConfig{
			AllowReapply: os.Getenv("ENROLLMENT_ALLOW_REAPPLY") == "true",
		},
	}

	if raw := os.Getenv("TOKEN_TTL"); raw != "" {
		ttl, err := time.ParseDuration(raw)
		if err != nil {
			return Server{}, fmt.Errorf("parse TOKEN_TTL: %w", err)
		}
		cfg.JWT.TokenTTL = ttl
	}

	// The signing key secures both tokens and stored credentials; running
	// without one is a fatal misconfiguration, not a defaultable setting.
	if cfg.JWT.SigningKey == "" {
		return Server{}, fmt.Errorf("JWT_SIGNING_KEY is required")
	}

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
