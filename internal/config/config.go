// Package config resolves server settings from environment variables and an
// optional koanf-loaded YAML file. Environment variables win over file
// values, file values win over built-in defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config holds all configuration values for the API server.
type Config struct {
	// Server settings
	Port int    `koanf:"port"`
	Env  string `koanf:"env"`

	// Logging
	LogLevel  string `koanf:"log_level"`  // debug, info, warn, error
	LogFormat string `koanf:"log_format"` // text or json

	// Database. An empty URL means the server runs on the in-memory directory.
	DatabaseURL      string `koanf:"database_url"`
	DatabaseMaxConns int    `koanf:"database_max_conns"`

	// Redis. An empty address disables the snapshot cache and Redis-backed
	// rate limiting; both fall back to in-process equivalents.
	RedisAddr     string `koanf:"redis_addr"`
	RedisPassword string `koanf:"redis_password"`
	RedisDB       int    `koanf:"redis_db"`

	// Directory snapshot cache
	CacheTTLSeconds int `koanf:"cache_ttl_seconds"`

	// Rate limiting
	RateLimitEnabled bool `koanf:"rate_limit_enabled"`
	RateLimitRPM     int  `koanf:"rate_limit_rpm"`

	// CORS. Comma-separated origin list; empty disables cross-origin access.
	CORSAllowedOrigins string `koanf:"cors_allowed_origins"`

	// JWT authentication for write endpoints
	AuthEnabled       bool   `koanf:"auth_enabled"`
	JWTSecret         string `koanf:"jwt_secret"`
	JWTPreviousSecret string `koanf:"jwt_previous_secret"` // Set during secret rotation

	// OpenTelemetry tracing
	TracingEnabled      bool    `koanf:"tracing_enabled"`
	OTLPEndpoint        string  `koanf:"otlp_endpoint"`
	TracingExporter     string  `koanf:"tracing_exporter"` // otlp-grpc or otlp-http
	TracingSamplingRate float64 `koanf:"tracing_sampling_rate"`
	TracingInsecure     bool    `koanf:"tracing_insecure"`

	// Scoring calibration file (JSON). Empty uses the built-in weights.
	CalibrationPath string `koanf:"calibration_path"`

	// Profiling (pprof endpoints, refused in production)
	ProfilingEnabled bool `koanf:"profiling_enabled"`
}

// Errors reported by Load and Validate.
var (
	ErrMissingJWTSecret    = errors.New("JWT_SECRET is required when AUTH_ENABLED is set")
	ErrMissingOTLPEndpoint = errors.New("OTLP_ENDPOINT is required when TRACING_ENABLED is set")
	ErrInvalidPort         = errors.New("PORT must be a valid integer")
	ErrInvalidLogLevel     = errors.New("LOG_LEVEL must be one of debug, info, warn, error")
	ErrInvalidLogFormat    = errors.New("LOG_FORMAT must be text or json")
	ErrInvalidExporter     = errors.New("TRACING_EXPORTER must be otlp-grpc or otlp-http")
	ErrInvalidSamplingRate = errors.New("TRACING_SAMPLING_RATE must be between 0 and 1")
	ErrInvalidCacheTTL     = errors.New("CACHE_TTL_SECONDS must be positive")
	ErrInvalidRateLimitRPM = errors.New("RATE_LIMIT_RPM must be positive")
	ErrInvalidMaxConns     = errors.New("DATABASE_MAX_CONNS must be positive")
)

// Defaults applied when neither the environment nor the file provides a value.
const (
	DefaultPort             = 8080
	DefaultEnv              = "development"
	DefaultLogLevel         = "info"
	DefaultLogFormat        = "text"
	DefaultDatabaseMaxConns = 25
	DefaultCacheTTLSeconds  = 300
	DefaultRateLimitRPM     = 100
	DefaultOTLPEndpoint     = "localhost:4317"
	DefaultTracingExporter  = "otlp-grpc"
	DefaultSamplingRate     = 1.0
)

// Load resolves the configuration, reading configFilePath as YAML when it is
// non-empty. It returns every problem found rather than stopping at the
// first, so a misconfigured deployment can be fixed in one pass. An
// unreadable config file is the exception: that aborts with a nil Config.
func Load(configFilePath string) (*Config, []error) {
	k := koanf.New(".")
	if configFilePath != "" {
		if err := k.Load(file.Provider(configFilePath), yaml.Parser()); err != nil {
			return nil, []error{fmt.Errorf("read config file %s: %w", configFilePath, err)}
		}
	}

	r := &resolver{k: k}
	cfg := &Config{
		Port:      r.port(),
		Env:       r.text("env", DefaultEnv, "VENDORMATCH_ENV", "ENV", "GO_ENV"),
		LogLevel:  r.text("log_level", DefaultLogLevel, "LOG_LEVEL"),
		LogFormat: r.text("log_format", DefaultLogFormat, "LOG_FORMAT"),

		DatabaseURL:      r.text("database_url", "", "DATABASE_URL"),
		DatabaseMaxConns: r.integer("database_max_conns", DefaultDatabaseMaxConns, "DATABASE_MAX_CONNS"),

		RedisAddr:     r.text("redis_addr", "", "REDIS_ADDR"),
		RedisPassword: r.text("redis_password", "", "REDIS_PASSWORD"),
		RedisDB:       r.integer("redis_db", 0, "REDIS_DB"),

		CacheTTLSeconds: r.integer("cache_ttl_seconds", DefaultCacheTTLSeconds, "CACHE_TTL_SECONDS"),

		RateLimitEnabled: r.boolean("rate_limit_enabled", true, "RATE_LIMIT_ENABLED"),
		RateLimitRPM:     r.integer("rate_limit_rpm", DefaultRateLimitRPM, "RATE_LIMIT_RPM"),

		CORSAllowedOrigins: r.text("cors_allowed_origins", "", "CORS_ALLOWED_ORIGINS"),

		AuthEnabled:       r.boolean("auth_enabled", false, "AUTH_ENABLED"),
		JWTSecret:         r.text("jwt_secret", "", "JWT_SECRET"),
		JWTPreviousSecret: r.text("jwt_previous_secret", "", "JWT_PREVIOUS_SECRET"),

		TracingEnabled:      r.boolean("tracing_enabled", false, "TRACING_ENABLED"),
		OTLPEndpoint:        r.text("otlp_endpoint", DefaultOTLPEndpoint, "OTLP_ENDPOINT"),
		TracingExporter:     r.text("tracing_exporter", DefaultTracingExporter, "TRACING_EXPORTER"),
		TracingSamplingRate: r.float("tracing_sampling_rate", DefaultSamplingRate, "TRACING_SAMPLING_RATE"),
		TracingInsecure:     r.boolean("tracing_insecure", true, "TRACING_INSECURE"),

		CalibrationPath: r.text("calibration_path", "", "CALIBRATION_PATH"),

		ProfilingEnabled: r.boolean("profiling_enabled", false, "PROFILING_ENABLED"),
	}

	return cfg, append(r.errs, cfg.Validate()...)
}

// resolver reads one setting at a time, preferring environment variables over
// file values over fallbacks. Parse failures are collected on the resolver so
// Load can report them all at once.
type resolver struct {
	k    *koanf.Koanf
	errs []error
}

// text resolves a string setting. The first non-empty environment variable in
// envKeys wins.
func (r *resolver) text(fileKey, fallback string, envKeys ...string) string {
	for _, key := range envKeys {
		if v := os.Getenv(key); v != "" {
			return v
		}
	}
	if v := r.k.String(fileKey); v != "" {
		return v
	}
	return fallback
}

// integer resolves an int setting. A zero file value falls back to the
// fallback, so zero cannot be configured via YAML.
func (r *resolver) integer(fileKey string, fallback int, envKeys ...string) int {
	for _, key := range envKeys {
		v := os.Getenv(key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			r.errs = append(r.errs, fmt.Errorf("%s must be an integer: %w", key, err))
			return 0
		}
		return n
	}
	if n := r.k.Int(fileKey); n != 0 {
		return n
	}
	return fallback
}

// float resolves a float64 setting, with the same zero-value caveat as
// integer.
func (r *resolver) float(fileKey string, fallback float64, envKeys ...string) float64 {
	for _, key := range envKeys {
		v := os.Getenv(key)
		if v == "" {
			continue
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			r.errs = append(r.errs, fmt.Errorf("%s must be a number: %w", key, err))
			return 0
		}
		return f
	}
	if f := r.k.Float64(fileKey); f != 0 {
		return f
	}
	return fallback
}

// boolean resolves a bool setting. Environment values outside the recognized
// vocabulary are ignored, keeping the file value or fallback.
func (r *resolver) boolean(fileKey string, fallback bool, envKeys ...string) bool {
	v := fallback
	if r.k.Exists(fileKey) {
		v = r.k.Bool(fileKey)
	}
	for _, key := range envKeys {
		switch strings.ToLower(os.Getenv(key)) {
		case "1", "true", "on", "yes":
			return true
		case "0", "false", "off", "no":
			return false
		}
	}
	return v
}

// port resolves the listen port. Both VENDORMATCH_PORT and the conventional
// PORT are honored, prefixed form first.
func (r *resolver) port() int {
	for _, key := range []string{"VENDORMATCH_PORT", "PORT"} {
		v := os.Getenv(key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			r.errs = append(r.errs, fmt.Errorf("%s=%q: %w", key, v, ErrInvalidPort))
			return 0
		}
		return n
	}
	if n := r.k.Int("port"); n != 0 {
		return n
	}
	return DefaultPort
}

// Validate checks the resolved values against their allowed ranges and
// cross-field requirements. Every failure is returned.
func (c *Config) Validate() []error {
	var errs []error

	if c.AuthEnabled && c.JWTSecret == "" {
		errs = append(errs, ErrMissingJWTSecret)
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, ErrInvalidLogLevel)
	}

	switch c.LogFormat {
	case "text", "json":
	default:
		errs = append(errs, ErrInvalidLogFormat)
	}

	if c.CacheTTLSeconds <= 0 {
		errs = append(errs, ErrInvalidCacheTTL)
	}
	if c.RateLimitRPM <= 0 {
		errs = append(errs, ErrInvalidRateLimitRPM)
	}
	// Pool sizing only matters when a database is configured.
	if c.DatabaseURL != "" && c.DatabaseMaxConns <= 0 {
		errs = append(errs, ErrInvalidMaxConns)
	}

	if c.TracingEnabled {
		if c.OTLPEndpoint == "" {
			errs = append(errs, ErrMissingOTLPEndpoint)
		}
		switch c.TracingExporter {
		case "otlp-grpc", "otlp-http":
		default:
			errs = append(errs, ErrInvalidExporter)
		}
	}
	if c.TracingSamplingRate < 0 || c.TracingSamplingRate > 1 {
		errs = append(errs, ErrInvalidSamplingRate)
	}

	return errs
}

// LogSummary flattens the configuration for the startup log line. Secrets
// and credentialed URLs are masked.
func (c *Config) LogSummary() map[string]string {
	return map[string]string{
		"port":                  strconv.Itoa(c.Port),
		"env":                   c.Env,
		"log_level":             c.LogLevel,
		"log_format":            c.LogFormat,
		"database_url":          maskDatabaseURL(c.DatabaseURL),
		"database_max_conns":    strconv.Itoa(c.DatabaseMaxConns),
		"redis_addr":            c.RedisAddr,
		"redis_password":        maskSecret(c.RedisPassword),
		"redis_db":              strconv.Itoa(c.RedisDB),
		"cache_ttl_seconds":     strconv.Itoa(c.CacheTTLSeconds),
		"rate_limit_enabled":    strconv.FormatBool(c.RateLimitEnabled),
		"rate_limit_rpm":        strconv.Itoa(c.RateLimitRPM),
		"cors_allowed_origins":  c.CORSAllowedOrigins,
		"auth_enabled":          strconv.FormatBool(c.AuthEnabled),
		"jwt_secret":            maskSecret(c.JWTSecret),
		"jwt_previous_secret":   maskSecret(c.JWTPreviousSecret),
		"tracing_enabled":       strconv.FormatBool(c.TracingEnabled),
		"otlp_endpoint":         c.OTLPEndpoint,
		"tracing_exporter":      c.TracingExporter,
		"tracing_sampling_rate": strconv.FormatFloat(c.TracingSamplingRate, 'g', -1, 64),
		"tracing_insecure":      strconv.FormatBool(c.TracingInsecure),
		"calibration_path":      c.CalibrationPath,
		"profiling_enabled":     strconv.FormatBool(c.ProfilingEnabled),
	}
}

// maskSecret reduces a secret to its first four characters plus asterisks.
// Anything shorter than eight characters is masked entirely.
func maskSecret(s string) string {
	switch {
	case s == "":
		return "<not set>"
	case len(s) < 8:
		return "****"
	default:
		return s[:4] + "****"
	}
}

// maskDatabaseURL blanks the password in a connection URL while leaving the
// rest readable. A value with no scheme is masked like any other secret.
func maskDatabaseURL(s string) string {
	if s == "" {
		return "<not set>"
	}
	scheme, rest, ok := strings.Cut(s, "://")
	if !ok {
		return maskSecret(s)
	}
	creds, host, ok := strings.Cut(rest, "@")
	if !ok {
		return s
	}
	user, _, ok := strings.Cut(creds, ":")
	if !ok {
		return s
	}
	return scheme + "://" + user + ":****@" + host
}
