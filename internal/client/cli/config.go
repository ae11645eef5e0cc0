package cli

import (
	"context"
	"fmt"

	"github.com/sethvargo/go-envconfig"
)

// Config holds hrctl defaults. Command-line flags override them.
type Config struct {
	Server   string `env:"HRCTL_SERVER,    default=http://localhost:5000"`
	DB       string `env:"HRCTL_DB,        default=hrctl-session.db"`
	LogLevel string `env:"HRCTL_LOG_LEVEL, default=warn"`
}

func LoadConfig(ctx context.Context) (*Config, error) {
	return loadConfig(ctx, envconfig.OsLookuper())
}

func loadConfig(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: l}); err != nil {
		return nil, fmt.Errorf("load client config: %w", err)
	}
	return &cfg, nil
}
