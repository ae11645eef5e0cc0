package config

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// DevJWTSecret signs tokens when ENV=development and JWT_SECRET is unset.
const DevJWTSecret = "secret_key"

const envDevelopment = "development"

type Config struct {
	Port        string   `env:"PORT,         default=5000"`
	Env         string   `env:"ENV,          default=development"`
	JWTSecret   string   `env:"JWT_SECRET"`
	LogLevel    string   `env:"LOG_LEVEL,    default=info"`
	CORSOrigins []string `env:"CORS_ORIGINS, default=http://localhost:5173"`

	// TrustedProxies lists CIDRs whose X-Forwarded-For header is believed.
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	Mongo    MongoConfig
	Redis    RedisConfig
	Hashing  HashingConfig
	Throttle ThrottleConfig

	devSecret   bool
	proxyRanges []*net.IPNet
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=hr_management"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR,     default=localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB,       default=0"`
}

type HashingConfig struct {
	Cost    int `env:"BCRYPT_COST,  default=10"`
	Workers int `env:"HASH_WORKERS, default=0"`
}

type ThrottleConfig struct {
	Limit  int           `env:"LOGIN_RATE_LIMIT,  default=10"`
	Window time.Duration `env:"LOGIN_RATE_WINDOW, default=1m"`
}

// IsDevelopment reports whether the service runs in the development environment.
func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.Env, envDevelopment)
}

// UsesDevSecret reports whether Validate fell back to DevJWTSecret.
func (c *Config) UsesDevSecret() bool {
	return c.devSecret
}

// ProxyRanges returns TrustedProxies as parsed by Validate.
func (c *Config) ProxyRanges() []*net.IPNet {
	return c.proxyRanges
}

// Validate applies cross-field rules. Outside development a JWT secret is
// mandatory; in development the built-in secret fills the gap.
func (c *Config) Validate() error {
	switch {
	case c.JWTSecret == "" && !c.IsDevelopment():
		return errors.New("config: JWT_SECRET is required outside development")
	case c.JWTSecret == "":
		c.JWTSecret = DevJWTSecret
		c.devSecret = true
	case c.JWTSecret == DevJWTSecret && !c.IsDevelopment():
		return errors.New("config: JWT_SECRET must not be the development secret outside development")
	case c.JWTSecret == DevJWTSecret:
		c.devSecret = true
	}

	c.proxyRanges = c.proxyRanges[:0]
	for _, cidr := range c.TrustedProxies {
		_, ipNet, err := net.ParseCIDR(strings.TrimSpace(cidr))
		if err != nil {
			return fmt.Errorf("config: TRUSTED_PROXIES: %w", err)
		}
		c.proxyRanges = append(c.proxyRanges, ipNet)
	}
	if len(c.CORSOrigins) == 0 {
		return errors.New("config: CORS_ORIGINS must list at least one origin")
	}
	return nil
}

// Load reads configuration from environment variables using go-envconfig.
func Load(ctx context.Context) (*Config, error) {
	return load(ctx, envconfig.OsLookuper())
}

func load(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: lookuper,
	}); err != nil {
		return nil, fmt.Errorf("config: failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
