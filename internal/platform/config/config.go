package config

import (
	"os"
	"strconv"
	"time"
)

// Server captures process-level configuration. FromEnv keeps main lean and
// gives every knob a development default so `go run ./cmd/server` just works.
type Server struct {
	Addr          string
	JWTSigningKey string
	JWTIssuer     string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration

	DatabaseURL string
	Redis       RedisConfig

	RateLimit RateLimitConfig
}

// RedisConfig configures the optional Redis connection. An empty URL disables
// Redis; the server falls back to in-memory stores.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// RateLimitConfig controls the per-user submission throttle.
type RateLimitConfig struct {
	Disabled   bool
	Burst      int
	RefillRate float64 // tokens per second
	RetryAfter int     // seconds advertised on 429
}

// FromEnv builds a Server config from environment variables.
func FromEnv() Server {
	cfg := Server{
		Addr:          getenv("LEANQUEST_ADDR", ":8080"),
		JWTSigningKey: getenv("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		JWTIssuer:     getenv("JWT_ISSUER", "leanquest"),
		AccessTTL:     getduration("ACCESS_TOKEN_TTL", 15*time.Minute),
		RefreshTTL:    getduration("REFRESH_TOKEN_TTL", 30*24*time.Hour),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     getint("REDIS_POOL_SIZE", 10),
			MinIdleConns: getint("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getduration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getduration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getduration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		RateLimit: RateLimitConfig{
			Disabled:   os.Getenv("RATE_LIMIT_DISABLED") == "true",
			Burst:      getint("RATE_LIMIT_BURST", 10),
			RefillRate: getfloat("RATE_LIMIT_REFILL_RATE", 1),
			RetryAfter: getint("RATE_LIMIT_RETRY_AFTER", 1),
		},
	}
	return cfg
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getint(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getfloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getduration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
