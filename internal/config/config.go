package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port                    string   `mapstructure:"PORT"`
	Env                     string   `mapstructure:"ENV"`
	DatabaseURL             string   `mapstructure:"DATABASE_URL"`
	DBMaxConns              int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns              int32    `mapstructure:"DB_MIN_CONNS"`
	JWTSecret               string   `mapstructure:"JWT_SECRET"`
	TokenTTLHours           int      `mapstructure:"TOKEN_TTL_HOURS"`
	CORSOrigins             []string `mapstructure:"CORS_ORIGINS"`
	Timezone                string   `mapstructure:"TIMEZONE"`
	ReminderIntervalSeconds int      `mapstructure:"REMINDER_INTERVAL_SECONDS"`
	SSEHeartbeatSeconds     int      `mapstructure:"SSE_HEARTBEAT_SECONDS"`
	FirebaseCredentialsFile string   `mapstructure:"FIREBASE_CREDENTIALS_FILE"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("TOKEN_TTL_HOURS", 12)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("TIMEZONE", "America/Sao_Paulo")
	v.SetDefault("REMINDER_INTERVAL_SECONDS", 60)
	v.SetDefault("SSE_HEARTBEAT_SECONDS", 20)

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("JWT_SECRET")
	v.BindEnv("TOKEN_TTL_HOURS")
	v.BindEnv("CORS_ORIGINS")
	v.BindEnv("TIMEZONE")
	v.BindEnv("REMINDER_INTERVAL_SECONDS")
	v.BindEnv("SSE_HEARTBEAT_SECONDS")
	v.BindEnv("FIREBASE_CREDENTIALS_FILE")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.IsDev() && cfg.JWTSecret == "" {
		cfg.JWTSecret = "dev-secret-do-not-use-in-production"
		log.Println("WARNING: JWT_SECRET not set; using insecure development secret.")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Validate checks that the configuration is safe to run. In non-development
// modes JWT_SECRET must be set so that real token authentication is enforced.
func (c *Config) Validate() error {
	if !c.IsDev() && c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required when ENV=%q", c.Env)
	}
	if c.ReminderIntervalSeconds <= 0 {
		return fmt.Errorf("REMINDER_INTERVAL_SECONDS must be positive, got %d", c.ReminderIntervalSeconds)
	}
	if c.SSEHeartbeatSeconds <= 0 {
		return fmt.Errorf("SSE_HEARTBEAT_SECONDS must be positive, got %d", c.SSEHeartbeatSeconds)
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("TIMEZONE %q is not a valid IANA zone: %w", c.Timezone, err)
	}
	return nil
}

// TokenTTL returns the configured token lifetime as a duration.
func (c *Config) TokenTTL() time.Duration {
	return time.Duration(c.TokenTTLHours) * time.Hour
}

// ReminderInterval returns the evaluator tick cadence.
func (c *Config) ReminderInterval() time.Duration {
	return time.Duration(c.ReminderIntervalSeconds) * time.Second
}

// SSEHeartbeat returns the keep-alive period for event streams.
func (c *Config) SSEHeartbeat() time.Duration {
	return time.Duration(c.SSEHeartbeatSeconds) * time.Second
}

// Location resolves the configured civil timezone. Reminder evaluation always
// runs in this zone so that "08:00" means the same wall-clock time regardless
// of where the server is deployed.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}
