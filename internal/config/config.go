package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
	log "github.com/sirupsen/logrus"
)

// Config represents the entire configuration structure
type Config struct {
	Telegram  TelegramConfig  `toml:"telegram"`
	Proxy     ProxyConfig     `toml:"proxy"`
	Collector CollectorConfig `toml:"collector"`
	Runner    RunnerConfig    `toml:"runner"`
	Report    ReportConfig    `toml:"report"`
	Logging   LoggingConfig   `toml:"logging"`
}

// TelegramConfig contains the harness account and target bot settings
type TelegramConfig struct {
	Token          string `toml:"token"`
	ChatID         int64  `toml:"chat_id"`
	TargetBot      string `toml:"target_bot"`
	PollingTimeout int    `toml:"polling_timeout"`
}

// ProxyConfig contains HTTP proxy settings
type ProxyConfig struct {
	Enabled bool   `toml:"enabled"`
	URL     string `toml:"url"`
}

// CollectorConfig tunes the response collection heuristic. The stabilization
// interval is deliberately configurable: the right value depends on how the
// target bot paces multi-message replies.
type CollectorConfig struct {
	PollIntervalMS      int `toml:"poll_interval_ms"`
	StabilizationWaitMS int `toml:"stabilization_wait_ms"`
	InitialWaitMS       int `toml:"initial_wait_ms"`
	ClickTimeoutSec     int `toml:"click_timeout"`
	PollLimit           int `toml:"poll_limit"`
}

// RunnerConfig contains test execution pacing settings
type RunnerConfig struct {
	SetupTimeoutSec   int `toml:"setup_timeout"`
	SettleDelayMS     int `toml:"settle_delay_ms"`
	InterTestDelayMS  int `toml:"inter_test_delay_ms"`
	DefaultTimeoutSec int `toml:"default_timeout"`
}

// ReportConfig contains report output settings
type ReportConfig struct {
	Output      string `toml:"output"`
	Format      string `toml:"format"`
	HistoryPath string `toml:"history_path"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level  string `toml:"level"`
	Output string `toml:"output"`
}

// Load reads and parses the configuration file, then applies environment
// variable overrides for credentials so tokens can stay out of the file.
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = getDefaultConfigPath()
	}

	var cfg Config
	data, err := os.ReadFile(configPath)
	switch {
	case err == nil:
		log.Infof("Loading configuration from: %s", configPath)
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, err
		}
	case os.IsNotExist(err):
		// Credentials may come entirely from the environment.
		log.Debugf("No configuration file at %s, relying on environment", configPath)
	default:
		return nil, err
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	return &cfg, nil
}

// getDefaultConfigPath returns the default configuration file path
func getDefaultConfigPath() string {
	if _, err := os.Stat("config.toml"); err == nil {
		return "config.toml"
	}

	configDir := "config"
	if _, err := os.Stat(filepath.Join(configDir, "config.toml")); err == nil {
		return filepath.Join(configDir, "config.toml")
	}

	return "config.toml"
}

// applyEnvOverrides lets environment variables win over file values for
// credentials and the target conversation.
func applyEnvOverrides(cfg *Config) {
	if token := os.Getenv("TELEGRAM_BOT_TOKEN"); token != "" {
		cfg.Telegram.Token = token
	}
	if target := os.Getenv("TARGET_BOT"); target != "" {
		cfg.Telegram.TargetBot = target
	}
	if chatID := os.Getenv("TESTER_CHAT_ID"); chatID != "" {
		if id, err := strconv.ParseInt(chatID, 10, 64); err == nil {
			cfg.Telegram.ChatID = id
		} else {
			log.Warnf("Ignoring invalid TESTER_CHAT_ID %q: %v", chatID, err)
		}
	}
}

// setDefaults applies default values to configuration fields
func setDefaults(cfg *Config) {
	if cfg.Telegram.PollingTimeout == 0 {
		cfg.Telegram.PollingTimeout = 10
	}
	if cfg.Collector.PollIntervalMS == 0 {
		cfg.Collector.PollIntervalMS = 300
	}
	if cfg.Collector.StabilizationWaitMS == 0 {
		cfg.Collector.StabilizationWaitMS = 500
	}
	if cfg.Collector.InitialWaitMS == 0 {
		cfg.Collector.InitialWaitMS = 500
	}
	if cfg.Collector.ClickTimeoutSec == 0 {
		cfg.Collector.ClickTimeoutSec = 5
	}
	if cfg.Collector.PollLimit == 0 {
		cfg.Collector.PollLimit = 10
	}
	if cfg.Runner.SetupTimeoutSec == 0 {
		cfg.Runner.SetupTimeoutSec = 5
	}
	if cfg.Runner.SettleDelayMS == 0 {
		cfg.Runner.SettleDelayMS = 1000
	}
	if cfg.Runner.InterTestDelayMS == 0 {
		cfg.Runner.InterTestDelayMS = 500
	}
	if cfg.Runner.DefaultTimeoutSec == 0 {
		cfg.Runner.DefaultTimeoutSec = 10
	}
	if cfg.Report.Format == "" {
		cfg.Report.Format = "json"
	}
	if cfg.Report.HistoryPath == "" {
		cfg.Report.HistoryPath = "run-history.json"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "tester.log"
	}
}

// Validate checks if the configuration is valid. Credential errors name the
// environment variable that supplies the missing value.
func (c *Config) Validate() error {
	if c.Telegram.Token == "" {
		return &ConfigError{Field: "telegram.token", Message: "bot token is required (set telegram.token or TELEGRAM_BOT_TOKEN)"}
	}
	if strings.TrimPrefix(c.Telegram.TargetBot, "@") == "" {
		return &ConfigError{Field: "telegram.target_bot", Message: "target bot username is required (set telegram.target_bot or TARGET_BOT)"}
	}
	if c.Telegram.ChatID == 0 {
		return &ConfigError{Field: "telegram.chat_id", Message: "chat id of the conversation with the target bot is required (set telegram.chat_id or TESTER_CHAT_ID)"}
	}
	if c.Proxy.Enabled && c.Proxy.URL == "" {
		return &ConfigError{Field: "proxy.url", Message: "proxy URL is required when proxy is enabled"}
	}
	if c.Report.Format != "json" && c.Report.Format != "text" {
		return &ConfigError{Field: "report.format", Message: "format must be \"json\" or \"text\""}
	}
	return nil
}

// ConfigError represents a configuration validation error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Field + ": " + e.Message
}
