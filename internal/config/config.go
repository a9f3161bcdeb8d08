package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/0xPuncker/cronwatch/pkg/types"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	CrontabModeSystem = "system"
	CrontabModeFile   = "file"
)

type Config struct {
	LogLevel string           `yaml:"log_level"`
	Jobs     JobsConfig       `yaml:"jobs"`
	Crontab  CrontabConfig    `yaml:"crontab"`
	Server   ServerConfig     `yaml:"server"`
	Slack    SlackConfig      `yaml:"slack"`
	Metrics  MetricsConfig    `yaml:"metrics"`
	Tasks    types.TaskConfig `yaml:"tasks"`
}

type JobsConfig struct {
	File string `yaml:"file"`
}

type CrontabConfig struct {
	Mode            string `yaml:"mode"`
	Binary          string `yaml:"binary"`
	User            string `yaml:"user"`
	File            string `yaml:"file"`
	Prefix          string `yaml:"prefix"`
	CommandTemplate string `yaml:"command_template"`
	LockFile        string `yaml:"lock_file"`
}

type ServerConfig struct {
	Port            string   `yaml:"port"`
	ReadTimeout     string   `yaml:"read_timeout"`
	WriteTimeout    string   `yaml:"write_timeout"`
	AuthTokens      []string `yaml:"auth_tokens"`
	MaxAuthFailures int      `yaml:"max_auth_failures"`
	AuthBanDuration string   `yaml:"auth_ban_duration"`
}

type MetricsConfig struct {
	PollInterval string `yaml:"poll_interval"`
}

type SlackConfig struct {
	WebhookURL string `yaml:"webhook_url"`
	Channel    string `yaml:"channel"`
}

// envPattern matches ${VAR} and ${VAR:-default}.
var envPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-((?:[^}\\]|\\.)*))?\}`)

// Load reads a YAML config file on top of the defaults. Without a file the
// configuration comes from the environment, including .env files.
func Load(configPath string) (*Config, error) {
	LoadDotEnv()

	if configPath == "" {
		return validated(FromEnv())
	}

	raw, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return validated(FromEnv())
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	expanded, err := expandEnv(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to expand variables in %s: %w", configPath, err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(expanded, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	config.fillDerived()
	return validated(config)
}

func validated(config *Config) (*Config, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// LoadDotEnv loads .env, falling back to .env.local.
func LoadDotEnv() {
	if err := godotenv.Load(); err != nil {
		_ = godotenv.Load(".env.local")
	}
}

// FromEnv builds the configuration from defaults and environment variables.
func FromEnv() *Config {
	config := DefaultConfig()
	config.LogLevel = getEnv("LOG_LEVEL", config.LogLevel)
	config.Jobs.File = getEnv("CRONWATCH_JOBS_FILE", config.Jobs.File)
	config.Crontab.Mode = getEnv("CRONWATCH_CRONTAB_MODE", config.Crontab.Mode)
	config.Crontab.File = getEnv("CRONWATCH_CRONTAB_FILE", config.Crontab.File)
	config.Crontab.User = getEnv("CRONWATCH_CRONTAB_USER", config.Crontab.User)
	config.Crontab.Prefix = getEnv("CRONWATCH_PREFIX", config.Crontab.Prefix)
	config.Crontab.CommandTemplate = getEnv("CRONWATCH_COMMAND", config.Crontab.CommandTemplate)
	config.Server.Port = getEnv("PORT", config.Server.Port)
	config.Slack.WebhookURL = getEnv("SLACK_WEBHOOK_URL", config.Slack.WebhookURL)

	if tokens := getEnv("CRONWATCH_API_TOKENS", ""); tokens != "" {
		config.Server.AuthTokens = splitList(tokens)
	}

	config.fillDerived()
	return config
}

func DefaultConfig() *Config {
	jobsFile := "urls.yaml"
	if home, err := os.UserHomeDir(); err == nil {
		jobsFile = filepath.Join(home, ".config", "urlwatch", "urls.yaml")
	}

	return &Config{
		LogLevel: "info",
		Jobs: JobsConfig{
			File: jobsFile,
		},
		Crontab: CrontabConfig{
			Mode:            CrontabModeSystem,
			Binary:          "crontab",
			Prefix:          "cronwatch-bot",
			CommandTemplate: "urlwatch --jobs {index}",
		},
		Server: ServerConfig{
			Port:            "8080",
			ReadTimeout:     "15s",
			WriteTimeout:    "15s",
			MaxAuthFailures: 5,
			AuthBanDuration: "15m",
		},
		Metrics: MetricsConfig{
			PollInterval: "1m",
		},
		Tasks: types.TaskConfig{
			MaxConcurrent: 1,
			Predefined: []types.Task{
				{
					Name:        "schedule-audit",
					Schedule:    "0 */30 * * * *",
					Handler:     "audit-schedules",
					Enabled:     true,
					Description: "Report schedules pointing at missing jobs",
				},
			},
		},
	}
}

// fillDerived sets values that default relative to other settings.
func (c *Config) fillDerived() {
	if c.Crontab.LockFile == "" {
		c.Crontab.LockFile = filepath.Join(filepath.Dir(c.Jobs.File), "cronwatch-crontab.lock")
	}
}

func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.Jobs.File) == "" {
		errs = append(errs, errors.New("jobs.file is required"))
	}
	switch c.Crontab.Mode {
	case CrontabModeSystem:
	case CrontabModeFile:
		if c.Crontab.File == "" {
			errs = append(errs, errors.New("crontab.file is required in file mode"))
		}
	default:
		errs = append(errs, fmt.Errorf("crontab.mode must be %q or %q, got %q", CrontabModeSystem, CrontabModeFile, c.Crontab.Mode))
	}
	if !strings.Contains(c.Crontab.CommandTemplate, "{index}") {
		errs = append(errs, errors.New("crontab.command_template must contain {index}"))
	}
	for name, value := range map[string]string{
		"server.read_timeout":  c.Server.ReadTimeout,
		"server.write_timeout": c.Server.WriteTimeout,
	} {
		if _, err := time.ParseDuration(value); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	for name, value := range map[string]string{
		"server.auth_ban_duration": c.Server.AuthBanDuration,
		"metrics.poll_interval":    c.Metrics.PollInterval,
	} {
		d, err := time.ParseDuration(value)
		switch {
		case err != nil:
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		case d <= 0:
			errs = append(errs, fmt.Errorf("%s must be positive, got %s", name, value))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// Duration parses value, returning fallback when it is empty or invalid.
func Duration(value string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}

// expandEnv replaces ${VAR} and ${VAR:-default}. Variables that are unset
// and have no default are reported together.
func expandEnv(raw []byte) ([]byte, error) {
	var errs []error

	result := envPattern.ReplaceAllFunc(raw, func(match []byte) []byte {
		subs := envPattern.FindSubmatch(match)
		name := string(subs[1])

		if value, ok := os.LookupEnv(name); ok {
			return []byte(value)
		}
		if subs[2] != nil {
			return subs[2]
		}

		errs = append(errs, fmt.Errorf("unresolved variable: %s", name))
		return match
	})

	return result, errors.Join(errs...)
}

func splitList(value string) []string {
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}
