package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config is the process configuration, environment-first with a .env
// fallback. Thresholds default to the protocol values; the per-deployment
// data (projects, blocked records, cohort sample) lives in the separate
// alerts definitions file.
type Config struct {
	Env  string `mapstructure:"ENV"`
	Port string `mapstructure:"PORT"`

	RedcapURL string `mapstructure:"REDCAP_URL"`
	// Comma-separated key=token pairs, one per REDCap project.
	RedcapProjects string `mapstructure:"REDCAP_PROJECTS"`

	DatabaseURL string `mapstructure:"DATABASE_URL"`
	AlertsFile  string `mapstructure:"ALERTS_FILE"`

	ChoiceSep string `mapstructure:"CHOICE_SEP"`
	CodeSep   string `mapstructure:"CODE_SEP"`

	DaysToNC           int `mapstructure:"DAYS_TO_NC"`
	DaysBeforeNV       int `mapstructure:"DAYS_BEFORE_NV"`
	DaysAfterNV        int `mapstructure:"DAYS_AFTER_NV"`
	DaysBeforeEndFU    int `mapstructure:"DAYS_BEFORE_END_FU"`
	DaysBeforeMRV2     int `mapstructure:"DAYS_BEFORE_MRV2"`
	DaysWithoutContact int `mapstructure:"DAYS_WITHOUT_CONTACT"`

	HTTPTimeoutSeconds int `mapstructure:"HTTP_TIMEOUT_SECONDS"`
	MaxRetries         int `mapstructure:"MAX_RETRIES"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("ENV", "development")
	v.SetDefault("PORT", "8000")
	v.SetDefault("ALERTS_FILE", "alerts.yaml")
	v.SetDefault("CHOICE_SEP", " | ")
	v.SetDefault("CODE_SEP", ", ")
	v.SetDefault("DAYS_TO_NC", 28)
	v.SetDefault("DAYS_BEFORE_NV", 7)
	v.SetDefault("DAYS_AFTER_NV", 28)
	v.SetDefault("DAYS_BEFORE_END_FU", 7)
	v.SetDefault("DAYS_BEFORE_MRV2", 7)
	v.SetDefault("DAYS_WITHOUT_CONTACT", 45)
	v.SetDefault("HTTP_TIMEOUT_SECONDS", 60)
	v.SetDefault("MAX_RETRIES", 3)

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("ENV")
	v.BindEnv("PORT")
	v.BindEnv("REDCAP_URL")
	v.BindEnv("REDCAP_PROJECTS")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("ALERTS_FILE")
	v.BindEnv("CHOICE_SEP")
	v.BindEnv("CODE_SEP")
	v.BindEnv("DAYS_TO_NC")
	v.BindEnv("DAYS_BEFORE_NV")
	v.BindEnv("DAYS_AFTER_NV")
	v.BindEnv("DAYS_BEFORE_END_FU")
	v.BindEnv("DAYS_BEFORE_MRV2")
	v.BindEnv("DAYS_WITHOUT_CONTACT")
	v.BindEnv("HTTP_TIMEOUT_SECONDS")
	v.BindEnv("MAX_RETRIES")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}

// Validate checks the settings a run cannot work without.
func (c *Config) Validate() error {
	if c.RedcapURL == "" {
		return fmt.Errorf("REDCAP_URL is required")
	}
	projects, err := c.Projects()
	if err != nil {
		return err
	}
	if len(projects) == 0 {
		return fmt.Errorf("REDCAP_PROJECTS is required (key=token pairs)")
	}
	return nil
}

// IsDev reports whether we run in development mode.
func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// Projects parses REDCAP_PROJECTS into project key to API token pairs.
func (c *Config) Projects() (map[string]string, error) {
	out := make(map[string]string)
	if strings.TrimSpace(c.RedcapProjects) == "" {
		return out, nil
	}
	for _, pair := range strings.Split(c.RedcapProjects, ",") {
		key, token, found := strings.Cut(strings.TrimSpace(pair), "=")
		if !found || key == "" || token == "" {
			return nil, fmt.Errorf("REDCAP_PROJECTS: malformed entry %q (want key=token)", pair)
		}
		out[key] = token
	}
	return out, nil
}
