package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog/log"
)

var knownWeakSecrets = []string{
	"change-me", "dev-secret-change-me", "secret", "admin", "password",
}

type Config struct {
	Port               int    `env:"PORT" envDefault:"8080"`
	DatabaseURL        string `env:"DATABASE_URL,required"`
	RedisURL           string `env:"REDIS_URL,required"`
	AccessTokenSecret  string `env:"JWT_SECRET_KEY,required"`
	RefreshTokenSecret string `env:"JWT_REFRESH_KEY,required"`
	AccessTTLMinutes   int    `env:"ACCESS_TOKEN_TTL_MINUTES" envDefault:"60"`
	RefreshTTLHours    int    `env:"REFRESH_TOKEN_TTL_HOURS" envDefault:"168"`
	RateLimitPerMin    int    `env:"RATE_LIMIT_PER_MIN" envDefault:"60"`
	LogLevel           string `env:"LOG_LEVEL" envDefault:"info"`
}

func (c *Config) AccessTTL() time.Duration {
	return time.Duration(c.AccessTTLMinutes) * time.Minute
}

func (c *Config) RefreshTTL() time.Duration {
	return time.Duration(c.RefreshTTLHours) * time.Hour
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func (c *Config) Validate(isProduction bool) error {
	// A token must never verify under the other class's key.
	if c.AccessTokenSecret == c.RefreshTokenSecret {
		return fmt.Errorf("JWT_SECRET_KEY and JWT_REFRESH_KEY must be distinct")
	}

	if c.AccessTTLMinutes <= 0 || c.RefreshTTLHours <= 0 {
		return fmt.Errorf("token TTLs must be positive")
	}

	if isProduction {
		if err := validateSecret("JWT_SECRET_KEY", c.AccessTokenSecret); err != nil {
			return err
		}
		if err := validateSecret("JWT_REFRESH_KEY", c.RefreshTokenSecret); err != nil {
			return err
		}

		if c.AccessTTLMinutes > 24*60 {
			log.Warn().Int("minutes", c.AccessTTLMinutes).Msg("ACCESS_TOKEN_TTL_MINUTES is unusually long for an access token")
		}
	}

	return nil
}

func validateSecret(name, value string) error {
	if len(value) < 32 {
		return fmt.Errorf("%s must be at least 32 characters in production (generate with: openssl rand -base64 32)", name)
	}
	for _, weak := range knownWeakSecrets {
		if value == weak {
			return fmt.Errorf("%s is a known weak default; set a strong secret in production", name)
		}
	}
	return nil
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
