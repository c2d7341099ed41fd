package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server      ServerConfig
	Auth        AuthConfig
	Routes      RoutesConfig
	RateLimit   RateLimitConfig
	Logging     LoggingConfig
	Tracing     TracingConfig
	Environment string
}

type ServerConfig struct {
	Host string
	Port int
}

// AuthConfig controls how the navigation guard reads the persisted credential.
// With VerifySignature unset, only the token payload is decoded.
type AuthConfig struct {
	JWTSecret       string
	JWTExpiry       time.Duration
	VerifySignature bool
	CookieName      string
}

type RoutesConfig struct {
	File         string
	Watch        bool
	LoginRoute   string
	AdminLanding string
	UserLanding  string
}

type RateLimitConfig struct {
	ShellPerMinute    int
	APIPerMinute      int
	TrustedProxyCIDRs []string
}

type LoggingConfig struct {
	Level  string
	Format string
}

type TracingConfig struct {
	Enabled      bool
	Exporter     string
	ServiceName  string
	OTLPEndpoint string
	SampleRate   float64
}

func Load() (Config, error) {
	cfg := Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: getEnvInt("SERVER_PORT", 8080),
		},
		Auth: AuthConfig{
			JWTSecret:       getEnv("JWT_SECRET", ""),
			JWTExpiry:       time.Duration(getEnvInt("JWT_EXPIRY_HOURS", 24)) * time.Hour,
			VerifySignature: getEnvBool("AUTH_VERIFY_SIGNATURE", false),
			CookieName:      getEnv("AUTH_COOKIE_NAME", "access_token"),
		},
		Routes: RoutesConfig{
			File:         getEnv("ROUTES_FILE", ""),
			Watch:        getEnvBool("ROUTES_WATCH", false),
			LoginRoute:   getEnv("ROUTE_LOGIN", "Login"),
			AdminLanding: getEnv("ROUTE_ADMIN_LANDING", "AdminPanel"),
			UserLanding:  getEnv("ROUTE_USER_LANDING", "UserDashboard"),
		},
		RateLimit: RateLimitConfig{
			ShellPerMinute:    getEnvInt("RATE_LIMIT_SHELL", 300),
			APIPerMinute:      getEnvInt("RATE_LIMIT_API", 120),
			TrustedProxyCIDRs: getEnvList("TRUSTED_PROXY_CIDRS"),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Tracing: TracingConfig{
			Enabled:      getEnvBool("TRACING_ENABLED", false),
			Exporter:     getEnv("TRACING_EXPORTER", "stdout"),
			ServiceName:  getEnv("TRACING_SERVICE_NAME", "studyhall-shell"),
			OTLPEndpoint: getEnv("OTLP_ENDPOINT", "localhost:4317"),
			SampleRate:   getEnvFloat("TRACING_SAMPLE_RATE", 1.0),
		},
		Environment: getEnv("ENVIRONMENT", "development"),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports configuration combinations the server cannot run with.
func (c Config) Validate() error {
	if c.Auth.VerifySignature && c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required when AUTH_VERIFY_SIGNATURE is enabled")
	}
	if c.Environment == "production" && c.Auth.JWTSecret != "" && len(c.Auth.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters in production")
	}
	if strings.TrimSpace(c.Auth.CookieName) == "" {
		return fmt.Errorf("AUTH_COOKIE_NAME must not be empty")
	}
	if c.Routes.Watch && c.Routes.File == "" {
		return fmt.Errorf("ROUTES_FILE is required when ROUTES_WATCH is enabled")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("SERVER_PORT %d out of range", c.Server.Port)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvFloat(key string, fallback float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}
