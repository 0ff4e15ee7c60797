package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	envPollInterval    = "BTS_POLL_INTERVAL"
	envLogDir          = "BTS_LOG_DIR"
	envAutoRecover     = "BTS_AUTO_RECOVER"
	envStatePath       = "BTS_STATE_PATH"
	envProfilePath     = "BTS_PROFILE_PATH"
	envHealthPort      = "BTS_HEALTH_PORT"
	envMetricsPort     = "BTS_METRICS_PORT"
	envWebhookURL      = "BTS_WEBHOOK_URL"
	envSlackWebhookURL = "BTS_SLACK_WEBHOOK_URL"
	envLogLevel        = "BTS_LOG_LEVEL"
)

const (
	defaultPollInterval = 60 * time.Second
	defaultLogDir       = "/var/log/bt-sentinel"
	defaultStatePath    = "/var/lib/bt-sentinel/state.json"
)

// Config describes runtime configuration loaded from the environment.
type Config struct {
	PollInterval    time.Duration
	LogDir          string
	AutoRecover     bool
	StatePath       string
	ProfilePath     string
	HealthPort      int
	MetricsPort     int
	WebhookURL      string
	SlackWebhookURL string
	LogLevel        string
}

// Load reads configuration from environment variables and a local .env file if present.
// Existing environment variables take precedence over values in .env.
func Load() (Config, error) {
	if err := loadDotEnvIfPresent(".env"); err != nil {
		return Config{}, err
	}

	cfg := Config{
		PollInterval: defaultPollInterval,
		LogDir:       defaultLogDir,
		AutoRecover:  true,
		StatePath:    defaultStatePath,
		LogLevel:     "info",
	}

	if value, ok := lookupTrimmed(envPollInterval); ok {
		interval, err := time.ParseDuration(value)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", envPollInterval, err)
		}
		if interval <= 0 {
			return Config{}, fmt.Errorf("%s must be greater than zero", envPollInterval)
		}
		cfg.PollInterval = interval
	}

	if value, ok := lookupTrimmed(envLogDir); ok {
		cfg.LogDir = value
	}

	if value, ok := lookupTrimmed(envAutoRecover); ok {
		enabled, err := strconv.ParseBool(value)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", envAutoRecover, err)
		}
		cfg.AutoRecover = enabled
	}

	if value, ok := lookupTrimmed(envStatePath); ok {
		cfg.StatePath = value
	}

	if value, ok := lookupTrimmed(envProfilePath); ok {
		cfg.ProfilePath = value
	}

	var err error
	if cfg.HealthPort, err = lookupPort(envHealthPort); err != nil {
		return Config{}, err
	}
	if cfg.MetricsPort, err = lookupPort(envMetricsPort); err != nil {
		return Config{}, err
	}

	if value, ok := lookupTrimmed(envWebhookURL); ok {
		cfg.WebhookURL = value
	}

	if value, ok := lookupTrimmed(envSlackWebhookURL); ok {
		cfg.SlackWebhookURL = value
	}

	if value, ok := lookupTrimmed(envLogLevel); ok {
		cfg.LogLevel = value
	}

	if cfg.LogDir == "" {
		return Config{}, errors.New("BTS_LOG_DIR must not be empty")
	}

	if cfg.WebhookURL != "" {
		if err := validateURL(cfg.WebhookURL, envWebhookURL); err != nil {
			return Config{}, err
		}
	}
	if cfg.SlackWebhookURL != "" {
		if err := validateURL(cfg.SlackWebhookURL, envSlackWebhookURL); err != nil {
			return Config{}, err
		}
	}

	return cfg, nil
}

func lookupTrimmed(key string) (string, bool) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	return strings.TrimSpace(value), true
}

func lookupPort(key string) (int, error) {
	value, ok := lookupTrimmed(key)
	if !ok || value == "" {
		return 0, nil
	}
	port, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if port < 0 || port > 65535 {
		return 0, fmt.Errorf("%s must be between 0 and 65535", key)
	}
	return port, nil
}

func loadDotEnvIfPresent(path string) error {
	err := godotenv.Load(path)
	if err == nil {
		return nil
	}

	var pathErr *os.PathError
	if errors.As(err, &pathErr) && errors.Is(pathErr.Err, os.ErrNotExist) {
		return nil
	}

	return err
}

func validateURL(value, name string) error {
	parsed, err := url.Parse(value)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", name, err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("invalid %s: must include scheme and host", name)
	}
	return nil
}
