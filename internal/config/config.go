// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the address the API server listens on (e.g. :8080).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// ProxyAddr is the address the identity-propagating reverse proxy listens on (e.g. :8081).
	ProxyAddr string `mapstructure:"PROXY_ADDR"`
	// ProxyUpstream is the URL the reverse proxy forwards to (e.g. http://localhost:8080).
	ProxyUpstream string `mapstructure:"PROXY_UPSTREAM"`
	// DatabaseURL is the Postgres DSN.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// RedisAddr is the Redis host:port for the session cache; empty disables caching.
	RedisAddr string `mapstructure:"REDIS_ADDR"`
	// RedisPassword is the optional Redis AUTH password.
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`

	// TokenSecret is the base64-encoded HMAC secret for signing bearer tokens.
	TokenSecret string `mapstructure:"TOKEN_SECRET"`
	// TokenIssuer is the iss claim (e.g. "jobhive-auth").
	TokenIssuer string `mapstructure:"TOKEN_ISSUER"`
	// TokenAudience is the aud claim (e.g. "jobhive-api").
	TokenAudience string `mapstructure:"TOKEN_AUDIENCE"`
	// AccessTokenTTL is the access token lifetime (e.g. "15m").
	AccessTokenTTL string `mapstructure:"ACCESS_TOKEN_TTL"`
	// RefreshTokenTTL is the refresh token lifetime (e.g. "168h").
	RefreshTokenTTL string `mapstructure:"REFRESH_TOKEN_TTL"`

	// EmailHashKey is the base64-encoded HMAC key for deterministic email hashing.
	EmailHashKey string `mapstructure:"EMAIL_HASH_KEY"`
	// DataKey is the base64-encoded 32-byte AES key for field encryption.
	DataKey string `mapstructure:"DATA_ENCRYPTION_KEY"`
	// CursorKey is the base64-encoded HMAC key for pagination cursors.
	CursorKey string `mapstructure:"CURSOR_HMAC_KEY"`
	// CursorMaxDepth is the maximum number of pages a cursor chain may walk.
	CursorMaxDepth int `mapstructure:"CURSOR_MAX_DEPTH"`
	// BcryptCost is the bcrypt cost factor (4–31); default 12.
	BcryptCost int `mapstructure:"BCRYPT_COST"`

	// SessionSlidingTTL is the initial sliding window for a standard login (e.g. "2h").
	SessionSlidingTTL string `mapstructure:"SESSION_SLIDING_TTL"`
	// SessionRememberSlidingTTL is the sliding window for remember-me logins (e.g. "720h").
	SessionRememberSlidingTTL string `mapstructure:"SESSION_REMEMBER_SLIDING_TTL"`
	// SessionAbsoluteTTL is the hard expiry cap for a standard login (e.g. "168h").
	SessionAbsoluteTTL string `mapstructure:"SESSION_ABSOLUTE_TTL"`
	// SessionRememberAbsoluteTTL is the hard cap for remember-me logins (e.g. "2160h").
	SessionRememberAbsoluteTTL string `mapstructure:"SESSION_REMEMBER_ABSOLUTE_TTL"`
	// SessionRefreshTriggerPct is the elapsed-window percentage (1–100) at which refresh extends the session.
	SessionRefreshTriggerPct int `mapstructure:"SESSION_REFRESH_TRIGGER_PCT"`
	// SessionCacheCeiling caps how long a cached session entry may live (e.g. "15m").
	SessionCacheCeiling string `mapstructure:"SESSION_CACHE_CEILING"`

	// InternalSigningKey is the PEM-encoded RSA private key (or path) the proxy signs identity assertions with.
	InternalSigningKey string `mapstructure:"INTERNAL_SIGNING_KEY"`
	// InternalVerifyKey is the PEM-encoded RSA public key (or path) the API verifies identity assertions with.
	InternalVerifyKey string `mapstructure:"INTERNAL_VERIFY_KEY"`
	// InternalAssertionTTL is the identity assertion lifetime (e.g. "30s").
	InternalAssertionTTL string `mapstructure:"INTERNAL_ASSERTION_TTL"`

	// OTLPEndpoint is the OTLP collector endpoint; empty disables telemetry export.
	OTLPEndpoint string `mapstructure:"OTLP_ENDPOINT"`
	// OTLPInsecure forces plaintext OTLP export even for https endpoints.
	OTLPInsecure bool `mapstructure:"OTLP_INSECURE"`
	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("PROXY_ADDR", ":8081")
	v.SetDefault("PROXY_UPSTREAM", "http://localhost:8080")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("TOKEN_ISSUER", "jobhive-auth")
	v.SetDefault("TOKEN_AUDIENCE", "jobhive-api")
	v.SetDefault("ACCESS_TOKEN_TTL", "15m")
	v.SetDefault("REFRESH_TOKEN_TTL", "168h") // 7d
	v.SetDefault("CURSOR_MAX_DEPTH", 100)
	v.SetDefault("BCRYPT_COST", 12)
	v.SetDefault("SESSION_SLIDING_TTL", "2h")
	v.SetDefault("SESSION_REMEMBER_SLIDING_TTL", "720h")   // 30d
	v.SetDefault("SESSION_ABSOLUTE_TTL", "168h")           // 7d
	v.SetDefault("SESSION_REMEMBER_ABSOLUTE_TTL", "2160h") // 90d
	v.SetDefault("SESSION_REFRESH_TRIGGER_PCT", 50)
	v.SetDefault("SESSION_CACHE_CEILING", "15m")
	v.SetDefault("INTERNAL_ASSERTION_TTL", "30s")
	v.SetDefault("OTLP_ENDPOINT", "")
	v.SetDefault("OTLP_INSECURE", false)
	v.SetDefault("APP_ENV", "")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.HTTPAddr == "" {
		return nil, errors.New("config: HTTP_ADDR must be set")
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = 12
	}
	if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		return nil, errors.New("config: BCRYPT_COST must be between 4 and 31")
	}
	if cfg.SessionRefreshTriggerPct < 1 || cfg.SessionRefreshTriggerPct > 100 {
		return nil, errors.New("config: SESSION_REFRESH_TRIGGER_PCT must be between 1 and 100")
	}
	if cfg.CursorMaxDepth < 1 {
		return nil, errors.New("config: CURSOR_MAX_DEPTH must be positive")
	}
	if d := cfg.SlidingTTL(false); d > cfg.AbsoluteTTL(false) {
		return nil, fmt.Errorf("config: SESSION_SLIDING_TTL %s exceeds SESSION_ABSOLUTE_TTL %s", d, cfg.AbsoluteTTL(false))
	}
	if d := cfg.SlidingTTL(true); d > cfg.AbsoluteTTL(true) {
		return nil, fmt.Errorf("config: SESSION_REMEMBER_SLIDING_TTL %s exceeds SESSION_REMEMBER_ABSOLUTE_TTL %s", d, cfg.AbsoluteTTL(true))
	}

	return &cfg, nil
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// AccessTTL parses AccessTokenTTL as a time.Duration. Returns 15m if unset or invalid.
func (c *Config) AccessTTL() time.Duration {
	return parseDuration(c.AccessTokenTTL, 15*time.Minute)
}

// RefreshTTL parses RefreshTokenTTL as a time.Duration. Returns 168h if unset or invalid.
func (c *Config) RefreshTTL() time.Duration {
	return parseDuration(c.RefreshTokenTTL, 168*time.Hour)
}

// SlidingTTL returns the initial sliding window for a session; rememberMe selects the extended window.
func (c *Config) SlidingTTL(rememberMe bool) time.Duration {
	if rememberMe {
		return parseDuration(c.SessionRememberSlidingTTL, 720*time.Hour)
	}
	return parseDuration(c.SessionSlidingTTL, 2*time.Hour)
}

// AbsoluteTTL returns the hard expiry cap for a session; rememberMe selects the extended cap.
func (c *Config) AbsoluteTTL(rememberMe bool) time.Duration {
	if rememberMe {
		return parseDuration(c.SessionRememberAbsoluteTTL, 2160*time.Hour)
	}
	return parseDuration(c.SessionAbsoluteTTL, 168*time.Hour)
}

// CacheCeiling parses SessionCacheCeiling. Returns 15m if unset or invalid.
func (c *Config) CacheCeiling() time.Duration {
	return parseDuration(c.SessionCacheCeiling, 15*time.Minute)
}

// AssertionTTL parses InternalAssertionTTL. Returns 30s if unset or invalid.
func (c *Config) AssertionTTL() time.Duration {
	return parseDuration(c.InternalAssertionTTL, 30*time.Second)
}
