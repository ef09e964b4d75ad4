package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	defaultDSN         = "host=localhost user=postgres password=postgres dbname=restoran_pos port=5432 sslmode=disable"
	defaultCORSOrigins = "http://localhost:3000"
	minJWTSecretLength = 32
)

type Config struct {
	HTTPPort          string        `mapstructure:"HTTP_PORT"`
	DatabaseDSN       string        `mapstructure:"DATABASE_DSN"`
	JWTSecret         string        `mapstructure:"JWT_SECRET"`
	CORSOrigins       string        `mapstructure:"CORS_ALLOWED_ORIGINS"`
	SessionCookieName string        `mapstructure:"SESSION_COOKIE_NAME"`
	SessionTTL        time.Duration `mapstructure:"SESSION_TTL"`
	CookieSecure      bool          `mapstructure:"SESSION_COOKIE_SECURE"`
	RabbitMQURL       string        `mapstructure:"RABBITMQ_URL"`
	LogLevel          string        `mapstructure:"LOG_LEVEL"`
	RoleCacheSize     int           `mapstructure:"ROLE_CACHE_SIZE"`
}

var keys = []string{
	"HTTP_PORT", "DATABASE_DSN", "JWT_SECRET", "CORS_ALLOWED_ORIGINS",
	"SESSION_COOKIE_NAME", "SESSION_TTL", "SESSION_COOKIE_SECURE",
	"RABBITMQ_URL", "LOG_LEVEL", "ROLE_CACHE_SIZE",
}

// Load reads the configuration from the environment and, when path is not
// empty, from a config file. Environment variables win over the file.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetDefault("HTTP_PORT", "8080")
	v.SetDefault("DATABASE_DSN", defaultDSN)
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("CORS_ALLOWED_ORIGINS", defaultCORSOrigins)
	v.SetDefault("SESSION_COOKIE_NAME", "pos_session")
	v.SetDefault("SESSION_TTL", 12*time.Hour)
	v.SetDefault("SESSION_COOKIE_SECURE", false)
	v.SetDefault("RABBITMQ_URL", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("ROLE_CACHE_SIZE", 256)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	v.AutomaticEnv()
	for _, k := range keys {
		if err := v.BindEnv(k); err != nil {
			return nil, fmt.Errorf("bind %s: %w", k, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if len(c.JWTSecret) < minJWTSecretLength {
		return fmt.Errorf("JWT_SECRET must be at least %d characters", minJWTSecretLength)
	}
	if c.SessionTTL <= 0 {
		return errors.New("SESSION_TTL must be positive")
	}
	if c.RoleCacheSize <= 0 {
		return errors.New("ROLE_CACHE_SIZE must be positive")
	}
	return nil
}

// Warn logs settings that are fine for local development only.
func (c *Config) Warn(logger *slog.Logger) {
	if c.DatabaseDSN == defaultDSN {
		logger.Warn("DATABASE_DSN uses the default value, set your own Postgres DSN in production")
	}
	if c.CORSOrigins == defaultCORSOrigins {
		logger.Warn("CORS_ALLOWED_ORIGINS uses the default value, set your own domain in production")
	}
	if !c.CookieSecure {
		logger.Warn("SESSION_COOKIE_SECURE is off, session cookies are sent over plain HTTP")
	}
}

// AllowedOrigins splits the comma separated CORS origin list.
func (c *Config) AllowedOrigins() []string {
	parts := strings.Split(c.CORSOrigins, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Logger builds the JSON application logger for the configured level.
func (c *Config) Logger() *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}
