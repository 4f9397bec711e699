package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the client configuration: where the match channel and the HTTP
// collaborator live, and the knobs the tracker exposes. Values come from an
// optional YAML file with environment variables taking precedence.
type Config struct {
	SocketURL   string `yaml:"socket_url"`
	HTTPBaseURL string `yaml:"http_base_url"`
	CSRFToken   string `yaml:"csrf_token"`

	MatchID int `yaml:"match_id"`
	TeamID  int `yaml:"team_id"`

	ReconnectDelaySec int  `yaml:"reconnect_delay_sec"`
	RetryOnCleanClose bool `yaml:"retry_on_clean_close"`

	PeriodLengthMin  int  `yaml:"period_length_min"`
	ShowEndSignal    bool `yaml:"show_end_signal"`
	SearchDebounceMs int  `yaml:"search_debounce_ms"`

	LogLevel string `yaml:"log_level"`
}

func defaults() Config {
	return Config{
		ReconnectDelaySec: 3,
		RetryOnCleanClose: true,
		PeriodLengthMin:   30,
		ShowEndSignal:     true,
		SearchDebounceMs:  2000,
		LogLevel:          "info",
	}
}

// Load builds the configuration from defaults, then the YAML file at path
// (skipped when path is empty), then the environment.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.SocketURL = getEnv("SOCKET_URL", cfg.SocketURL)
	cfg.HTTPBaseURL = getEnv("HTTP_BASE_URL", cfg.HTTPBaseURL)
	cfg.CSRFToken = getEnv("CSRF_TOKEN", cfg.CSRFToken)
	cfg.MatchID = getEnvAsInt("MATCH_ID", cfg.MatchID)
	cfg.TeamID = getEnvAsInt("TEAM_ID", cfg.TeamID)
	cfg.ReconnectDelaySec = getEnvAsInt("RECONNECT_DELAY_SEC", cfg.ReconnectDelaySec)
	cfg.RetryOnCleanClose = getEnvAsBool("RETRY_ON_CLEAN_CLOSE", cfg.RetryOnCleanClose)
	cfg.PeriodLengthMin = getEnvAsInt("PERIOD_LENGTH_MIN", cfg.PeriodLengthMin)
	cfg.ShowEndSignal = getEnvAsBool("SHOW_END_SIGNAL", cfg.ShowEndSignal)
	cfg.SearchDebounceMs = getEnvAsInt("SEARCH_DEBOUNCE_MS", cfg.SearchDebounceMs)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)

	return &cfg, nil
}

// ReconnectDelay returns the socket retry interval.
func (c *Config) ReconnectDelay() time.Duration {
	return time.Duration(c.ReconnectDelaySec) * time.Second
}

// PeriodLength returns the nominal period length.
func (c *Config) PeriodLength() time.Duration {
	return time.Duration(c.PeriodLengthMin) * time.Minute
}

// SearchDebounce returns the roster search quiet period.
func (c *Config) SearchDebounce() time.Duration {
	return time.Duration(c.SearchDebounceMs) * time.Millisecond
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
