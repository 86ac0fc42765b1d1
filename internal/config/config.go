package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

type Config struct {
	Env            string        `mapstructure:"ENV"`
	Port           string        `mapstructure:"API_PORT"`
	DatabasePath   string        `mapstructure:"DATABASE_PATH"`
	JWTSecret      string        `mapstructure:"JWT_SECRET"`
	TokenTTL       time.Duration `mapstructure:"TOKEN_TTL"`
	CORSOrigins    []string      `mapstructure:"-"`
	BcryptCost     int           `mapstructure:"BCRYPT_COST"`
	TextbeltAPIKey string        `mapstructure:"TEXTBELT_API_KEY"`
	TextbeltURL    string        `mapstructure:"TEXTBELT_URL"`
	LogLevel       string        `mapstructure:"LOG_LEVEL"`
}

var keys = []string{
	"ENV", "API_PORT", "DATABASE_PATH", "JWT_SECRET", "TOKEN_TTL", "CORS_ORIGINS",
	"BCRYPT_COST", "TEXTBELT_API_KEY", "TEXTBELT_URL", "LOG_LEVEL",
}

// Load reads configuration from the environment. A .env file in the working directory, if
// present, is loaded first; variables already set in the environment win.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("ENV", "development")
	v.SetDefault("API_PORT", "8080")
	v.SetDefault("DATABASE_PATH", "clinic.db")
	v.SetDefault("TOKEN_TTL", "24h")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("BCRYPT_COST", 12)
	v.SetDefault("TEXTBELT_URL", "https://textbelt.com/text")
	v.SetDefault("LOG_LEVEL", "info")

	// Bind env vars explicitly so Unmarshal picks them up
	for _, k := range keys {
		if err := v.BindEnv(k); err != nil {
			return nil, fmt.Errorf("bind %s: %w", k, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	for _, o := range strings.Split(v.GetString("CORS_ORIGINS"), ",") {
		if o = strings.TrimSpace(o); o != "" {
			cfg.CORSOrigins = append(cfg.CORSOrigins, o)
		}
	}
	return cfg, nil
}

// Validate checks the settings the server cannot run without.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if c.DatabasePath == "" {
		return errors.New("DATABASE_PATH is required")
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("LOG_LEVEL: %w", err)
	}
	return nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// Level returns the configured log level, falling back to info.
func (c *Config) Level() zerolog.Level {
	lvl, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		return zerolog.InfoLevel
	}
	return lvl
}
