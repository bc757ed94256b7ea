package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const DefaultAPIBaseURL = "https://citizen-grivance-system.onrender.com"

type Config struct {
	HTTPAddr        string        `yaml:"http_addr"`
	DBDSN           string        `yaml:"db_dsn"`
	APIBaseURL      string        `yaml:"api_base_url"`
	SessionSecret   string        `yaml:"session_secret"`
	SessionTTL      time.Duration `yaml:"session_ttl"`
	SecureCookies   bool          `yaml:"secure_cookies"`
	UpstreamTimeout time.Duration `yaml:"upstream_timeout"`
	AllowedOrigins  []string      `yaml:"allowed_origins"`
	BoardCacheSize  int           `yaml:"board_cache_size"`
	LogLevel        string        `yaml:"log_level"`
	LogFormat       string        `yaml:"log_format"`
}

func Default() Config {
	return Config{
		HTTPAddr:        ":8080",
		APIBaseURL:      DefaultAPIBaseURL,
		SessionTTL:      24 * time.Hour,
		UpstreamTimeout: 15 * time.Second,
		AllowedOrigins:  []string{"http://localhost:5173"},
		BoardCacheSize:  256,
		LogLevel:        "info",
		LogFormat:       "json",
	}
}

// envSetting binds one PORTAL_* variable to the field it overrides.
type envSetting struct {
	key   string
	apply func(value string) error
}

func stringSetting(dst *string) func(string) error {
	return func(v string) error { *dst = v; return nil }
}

func durationSetting(dst *time.Duration) func(string) error {
	return func(v string) error {
		d, err := time.ParseDuration(v)
		if err != nil {
			return err
		}
		*dst = d
		return nil
	}
}

func (c *Config) envSettings() []envSetting {
	return []envSetting{
		{"PORTAL_HTTP_ADDR", stringSetting(&c.HTTPAddr)},
		{"PORTAL_DB_DSN", stringSetting(&c.DBDSN)},
		{"PORTAL_API_BASE_URL", stringSetting(&c.APIBaseURL)},
		{"PORTAL_SESSION_SECRET", stringSetting(&c.SessionSecret)},
		{"PORTAL_LOG_LEVEL", stringSetting(&c.LogLevel)},
		{"PORTAL_LOG_FORMAT", stringSetting(&c.LogFormat)},
		{"PORTAL_SESSION_TTL", durationSetting(&c.SessionTTL)},
		{"PORTAL_UPSTREAM_TIMEOUT", durationSetting(&c.UpstreamTimeout)},
		{"PORTAL_SECURE_COOKIES", func(v string) error {
			b, err := strconv.ParseBool(v)
			c.SecureCookies = b
			return err
		}},
		{"PORTAL_BOARD_CACHE_SIZE", func(v string) error {
			n, err := strconv.Atoi(v)
			c.BoardCacheSize = n
			return err
		}},
		{"PORTAL_ALLOWED_ORIGINS", func(v string) error {
			var origins []string
			for _, o := range strings.Split(v, ",") {
				if o = strings.TrimSpace(o); o != "" {
					origins = append(origins, o)
				}
			}
			c.AllowedOrigins = origins
			return nil
		}},
	}
}

// applyEnv overrides fields from the environment. Unset and blank variables
// leave the field alone.
func (c *Config) applyEnv() error {
	for _, setting := range c.envSettings() {
		v := strings.TrimSpace(os.Getenv(setting.key))
		if v == "" {
			continue
		}
		if err := setting.apply(v); err != nil {
			return fmt.Errorf("%s: %w", setting.key, err)
		}
	}
	return nil
}

// Load applies defaults, then the YAML file at path (a missing file is not
// an error), then PORTAL_* environment variables.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config %s: %w", path, err)
			}
		case errors.Is(err, fs.ErrNotExist):
		default:
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	cfg.APIBaseURL = strings.TrimRight(cfg.APIBaseURL, "/")

	if cfg.SessionSecret == "" {
		cfg.SessionSecret = "dev-secret-change-me"
	}
	if cfg.BoardCacheSize <= 0 {
		cfg.BoardCacheSize = 256
	}
	return cfg, nil
}
