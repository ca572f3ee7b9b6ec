package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

const (
	DefaultPath           = "/etc/acpanel/config.yaml"
	DefaultEnvFile        = ".env"
	DefaultHTTPAddr       = "0.0.0.0:8080"
	DefaultPollInterval   = 5 * time.Second
	DefaultRequestTimeout = 10 * time.Second
	DefaultLogLevel       = "info"
	DefaultMQTTTopic      = "acpanel/shadow"
)

// Config is the panel configuration.
type Config struct {
	Backend BackendConfig `yaml:"backend"`
	HTTP    HTTPConfig    `yaml:"http"`
	Log     LogConfig     `yaml:"log"`
	MQTT    MQTTConfig    `yaml:"mqtt"`
}

type BackendConfig struct {
	BaseURL        string        `yaml:"base_url"`
	PollInterval   time.Duration `yaml:"poll_interval"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// MQTTConfig configures the optional state republisher. It is disabled
// when Broker is empty.
type MQTTConfig struct {
	Broker       string `yaml:"broker"`
	Topic        string `yaml:"topic"`
	ClientID     string `yaml:"client_id"`
	Username     string `yaml:"username"`
	PasswordFile string `yaml:"password_file"`
	Retain       bool   `yaml:"retain"`
	QoS          byte   `yaml:"qos"`
}

func (m MQTTConfig) Enabled() bool {
	return strings.TrimSpace(m.Broker) != ""
}

// Load parses the YAML config file, applies environment overrides and
// defaults, and validates. A missing file at DefaultPath is not an error.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err = yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	case errors.Is(err, fs.ErrNotExist) && path == DefaultPath:
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err = applyEnv(cfg); err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	if err = Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDotEnv loads variables from an env file into the process
// environment without overriding variables that are already set. A
// missing file is ignored.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load env file: %w", err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	cfg.Backend.BaseURL = envOrDefault("ACPANEL_BASE_URL", cfg.Backend.BaseURL)
	cfg.HTTP.Addr = envOrDefault("ACPANEL_HTTP_ADDR", cfg.HTTP.Addr)
	cfg.Log.Level = envOrDefault("ACPANEL_LOG_LEVEL", cfg.Log.Level)
	cfg.MQTT.Broker = envOrDefault("ACPANEL_MQTT_BROKER", cfg.MQTT.Broker)

	if value := os.Getenv("ACPANEL_POLL_INTERVAL"); value != "" {
		interval, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("ACPANEL_POLL_INTERVAL: %w", err)
		}
		cfg.Backend.PollInterval = interval
	}
	return nil
}

func applyDefaults(cfg *Config) {
	cfg.Backend.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.Backend.BaseURL), "/")
	if cfg.Backend.PollInterval == 0 {
		cfg.Backend.PollInterval = DefaultPollInterval
	}
	if cfg.Backend.RequestTimeout == 0 {
		cfg.Backend.RequestTimeout = DefaultRequestTimeout
	}
	if cfg.HTTP.Addr == "" {
		cfg.HTTP.Addr = DefaultHTTPAddr
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.MQTT.Enabled() && cfg.MQTT.Topic == "" {
		cfg.MQTT.Topic = DefaultMQTTTopic
	}
}

// Validate enforces required invariants.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}

	if cfg.Backend.BaseURL == "" {
		return fmt.Errorf("backend.base_url is required")
	}
	u, err := url.Parse(cfg.Backend.BaseURL)
	if err != nil {
		return fmt.Errorf("backend.base_url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("backend.base_url must be http or https, got %q", cfg.Backend.BaseURL)
	}
	if u.Host == "" {
		return fmt.Errorf("backend.base_url has no host")
	}
	if cfg.Backend.PollInterval < 0 {
		return fmt.Errorf("backend.poll_interval must be positive")
	}
	if cfg.Backend.RequestTimeout < 0 {
		return fmt.Errorf("backend.request_timeout must be positive")
	}

	if cfg.HTTP.Addr == "" {
		return fmt.Errorf("http.addr is required")
	}
	if _, err := zap.ParseAtomicLevel(cfg.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}

	if cfg.MQTT.Enabled() {
		if cfg.MQTT.Topic == "" {
			return fmt.Errorf("mqtt.topic is required")
		}
		if cfg.MQTT.QoS > 2 {
			return fmt.Errorf("mqtt.qos must be 0, 1 or 2")
		}
	}

	return nil
}

// MQTTPassword reads the broker password from PasswordFile, if set.
func (m MQTTConfig) MQTTPassword() (string, error) {
	if m.PasswordFile == "" {
		return "", nil
	}
	data, err := os.ReadFile(m.PasswordFile)
	if err != nil {
		return "", fmt.Errorf("read mqtt password: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
