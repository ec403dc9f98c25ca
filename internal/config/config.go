package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Port           string   `mapstructure:"PORT"`
	Env            string   `mapstructure:"ENV"`
	BackendBaseURL string   `mapstructure:"BACKEND_BASE_URL"`
	N8NBaseURL     string   `mapstructure:"N8N_BASE_URL"`
	SessionSecret  string   `mapstructure:"SESSION_SECRET"`
	CORSOrigins    []string `mapstructure:"CORS_ORIGINS"`
	HTTPTimeoutSec int      `mapstructure:"HTTP_TIMEOUT_SEC"`
	SessionTTLMin  int      `mapstructure:"SESSION_TTL_MIN"`
	CampaignID     int      `mapstructure:"CAMPAIGN_ID"`
	SweepCron      string   `mapstructure:"SWEEP_CRON"`
	SweepPatients  string   `mapstructure:"SWEEP_PATIENTS"`
	ExpireCron     string   `mapstructure:"SESSION_EXPIRE_CRON"`
	NotifyEnabled  bool     `mapstructure:"NOTIFY_ENABLED"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("CORS_ORIGINS", "http://localhost:5173")
	v.SetDefault("HTTP_TIMEOUT_SEC", 30)
	v.SetDefault("SESSION_TTL_MIN", 30)
	v.SetDefault("SWEEP_CRON", "")
	v.SetDefault("SESSION_EXPIRE_CRON", "*/10 * * * *")
	v.SetDefault("NOTIFY_ENABLED", true)

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("BACKEND_BASE_URL")
	v.BindEnv("N8N_BASE_URL")
	v.BindEnv("SESSION_SECRET")
	v.BindEnv("CORS_ORIGINS")
	v.BindEnv("HTTP_TIMEOUT_SEC")
	v.BindEnv("SESSION_TTL_MIN")
	v.BindEnv("CAMPAIGN_ID")
	v.BindEnv("SWEEP_CRON")
	v.BindEnv("SWEEP_PATIENTS")
	v.BindEnv("SESSION_EXPIRE_CRON")
	v.BindEnv("NOTIFY_ENABLED")

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

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// SweepPatientIDs parses SWEEP_PATIENTS, a comma-separated patient id list for
// the scheduled backfill sweep. An empty value disables the sweep.
func (c *Config) SweepPatientIDs() ([]int, error) {
	raw := strings.TrimSpace(c.SweepPatients)
	if raw == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	ids := make([]int, 0, len(parts))
	for _, p := range parts {
		id, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("SWEEP_PATIENTS entry %q is not an integer", p)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Validate checks that the configuration is safe to run. The two collaborator
// base URLs are required; in non-development modes SESSION_SECRET must be set
// so bearer tokens are actually verified before being forwarded.
func (c *Config) Validate() error {
	if c.BackendBaseURL == "" {
		return fmt.Errorf("BACKEND_BASE_URL is required")
	}
	if _, err := url.ParseRequestURI(c.BackendBaseURL); err != nil {
		return fmt.Errorf("BACKEND_BASE_URL is not a valid URL: %w", err)
	}
	if c.N8NBaseURL == "" {
		return fmt.Errorf("N8N_BASE_URL is required")
	}
	if _, err := url.ParseRequestURI(c.N8NBaseURL); err != nil {
		return fmt.Errorf("N8N_BASE_URL is not a valid URL: %w", err)
	}
	if !c.IsDev() && c.SessionSecret == "" {
		return fmt.Errorf("SESSION_SECRET is required when ENV is not development")
	}
	if c.HTTPTimeoutSec <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT_SEC must be positive, got %d", c.HTTPTimeoutSec)
	}
	if c.SessionTTLMin <= 0 {
		return fmt.Errorf("SESSION_TTL_MIN must be positive, got %d", c.SessionTTLMin)
	}
	if c.SweepCron != "" {
		if _, err := c.SweepPatientIDs(); err != nil {
			return err
		}
	}
	if c.ExpireCron == "" {
		return fmt.Errorf("SESSION_EXPIRE_CRON is required")
	}
	return nil
}
