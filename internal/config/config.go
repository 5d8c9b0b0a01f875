// Package config loads the estimator's settings from a YAML file with
// ESTIMATOR_* environment overrides.
//
// Precedence: defaults, then the file, then the environment. Load validates
// the result; an invalid configuration is an error, never a silent default.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"github.com/mustafanordflytt/nordflytt-offerthantering-sub015/internal/engine"
)

// DefaultPath is read when no path is given and ESTIMATOR_CONFIG is unset.
const DefaultPath = "estimator.yaml"

const envPrefix = "ESTIMATOR_"

// Predictor kinds.
const (
	PredictorHTTP      = "http"
	PredictorAnthropic = "anthropic"
)

// Store drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type Config struct {
	ConfidenceThreshold    float64 `yaml:"confidence_threshold"`
	HumanReviewThreshold   float64 `yaml:"human_review_threshold"`
	MLFallbackEnabled      bool    `yaml:"ml_fallback_enabled"`
	AccuracyToleranceHours float64 `yaml:"accuracy_tolerance_hours"`

	Predictor PredictorConfig `yaml:"predictor"`
	Store     StoreConfig     `yaml:"store"`

	RatesPath          string `yaml:"rates_path"`
	DailyResetSchedule string `yaml:"daily_reset_schedule"`
	Timezone           string `yaml:"timezone"`

	Slack     SlackConfig     `yaml:"slack"`
	Redis     RedisConfig     `yaml:"redis"`
	Telemetry TelemetryConfig `yaml:"telemetry"`

	Location *time.Location `yaml:"-"` // computed from Timezone, not from YAML
}

type PredictorConfig struct {
	Kind     string        `yaml:"kind"`
	Endpoint string        `yaml:"endpoint"`
	Timeout  time.Duration `yaml:"timeout"`
	Model    string        `yaml:"model"`
	APIKey   string        `yaml:"api_key"`
}

type StoreConfig struct {
	Driver  string        `yaml:"driver"`
	DSN     string        `yaml:"dsn"`
	Timeout time.Duration `yaml:"timeout"`
}

type SlackConfig struct {
	BotToken      string `yaml:"bot_token"`
	ReviewChannel string `yaml:"review_channel"`
}

// Enabled reports whether review notifications should be posted.
func (c SlackConfig) Enabled() bool {
	return c.BotToken != "" && c.ReviewChannel != ""
}

type RedisConfig struct {
	Addr          string `yaml:"addr"`
	Password      string `yaml:"password"`
	DB            int    `yaml:"db"`
	ChannelPrefix string `yaml:"channel_prefix"`
}

// Enabled reports whether events should be forwarded to Redis.
func (c RedisConfig) Enabled() bool {
	return c.Addr != ""
}

type TelemetryConfig struct {
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	Insecure     bool   `yaml:"insecure"`
	ServiceName  string `yaml:"service_name"`
}

// Enabled reports whether metrics should be exported over OTLP.
func (c TelemetryConfig) Enabled() bool {
	return c.OTLPEndpoint != ""
}

// Default returns the built-in configuration.
func Default() Config {
	ec := engine.DefaultConfig()
	return Config{
		ConfidenceThreshold:    ec.ConfidenceThreshold,
		HumanReviewThreshold:   ec.HumanReviewThreshold,
		AccuracyToleranceHours: ec.AccuracyToleranceHours,
		Predictor: PredictorConfig{
			Kind:    PredictorHTTP,
			Timeout: ec.PredictorTimeout,
		},
		Store: StoreConfig{
			Driver:  DriverSQLite,
			DSN:     "./estimator.db",
			Timeout: ec.StoreTimeout,
		},
		DailyResetSchedule: "0 0 * * *",
		Timezone:           "Local",
		Redis: RedisConfig{
			ChannelPrefix: "estimator",
		},
		Telemetry: TelemetryConfig{
			ServiceName: "estimengine",
		},
	}
}

// Load reads path (or ESTIMATOR_CONFIG, or DefaultPath) over the defaults,
// applies environment overrides and validates the result. A missing
// DefaultPath is not an error; a missing explicit path is.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		if envPath := os.Getenv(envPrefix + "CONFIG"); envPath != "" {
			path, explicit = envPath, true
		} else {
			path = DefaultPath
		}
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
	case explicit || !errors.Is(err, os.ErrNotExist):
		return Config{}, fmt.Errorf("read %s: %w", path, err)
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	var errs []error
	collect := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	collect(envOverrideFloat(&cfg.ConfidenceThreshold, "CONFIDENCE_THRESHOLD"))
	collect(envOverrideFloat(&cfg.HumanReviewThreshold, "HUMAN_REVIEW_THRESHOLD"))
	collect(envOverrideBool(&cfg.MLFallbackEnabled, "ML_FALLBACK_ENABLED"))
	collect(envOverrideFloat(&cfg.AccuracyToleranceHours, "ACCURACY_TOLERANCE_HOURS"))

	envOverride(&cfg.Predictor.Kind, "PREDICTOR_KIND")
	envOverride(&cfg.Predictor.Endpoint, "PREDICTOR_ENDPOINT")
	collect(envOverrideDuration(&cfg.Predictor.Timeout, "PREDICTOR_TIMEOUT"))
	envOverride(&cfg.Predictor.Model, "PREDICTOR_MODEL")
	if cfg.Predictor.APIKey == "" {
		if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
			cfg.Predictor.APIKey = key
		}
	}
	envOverride(&cfg.Predictor.APIKey, "PREDICTOR_API_KEY")

	envOverride(&cfg.Store.Driver, "STORE_DRIVER")
	envOverride(&cfg.Store.DSN, "STORE_DSN")
	collect(envOverrideDuration(&cfg.Store.Timeout, "STORE_TIMEOUT"))

	envOverride(&cfg.RatesPath, "RATES_PATH")
	envOverride(&cfg.DailyResetSchedule, "DAILY_RESET_SCHEDULE")
	envOverride(&cfg.Timezone, "TIMEZONE")

	envOverride(&cfg.Slack.BotToken, "SLACK_BOT_TOKEN")
	envOverride(&cfg.Slack.ReviewChannel, "SLACK_REVIEW_CHANNEL")

	envOverride(&cfg.Redis.Addr, "REDIS_ADDR")
	envOverride(&cfg.Redis.Password, "REDIS_PASSWORD")
	collect(envOverrideInt(&cfg.Redis.DB, "REDIS_DB"))
	envOverride(&cfg.Redis.ChannelPrefix, "REDIS_CHANNEL_PREFIX")

	envOverride(&cfg.Telemetry.OTLPEndpoint, "OTLP_ENDPOINT")
	collect(envOverrideBool(&cfg.Telemetry.Insecure, "OTLP_INSECURE"))
	envOverride(&cfg.Telemetry.ServiceName, "SERVICE_NAME")

	return errors.Join(errs...)
}

// Validate checks ranges and cross-field requirements and resolves Location.
func (c *Config) Validate() error {
	var errs []error

	if err := c.EngineConfig().Validate(); err != nil {
		errs = append(errs, err)
	}

	if c.MLFallbackEnabled {
		switch c.Predictor.Kind {
		case PredictorHTTP:
			if c.Predictor.Endpoint == "" {
				errs = append(errs, errors.New("predictor.endpoint is required when ml_fallback_enabled with kind=http"))
			}
		case PredictorAnthropic:
			if c.Predictor.APIKey == "" {
				errs = append(errs, errors.New("predictor.api_key is required when ml_fallback_enabled with kind=anthropic"))
			}
		default:
			errs = append(errs, fmt.Errorf("predictor.kind must be %q or %q, got %q", PredictorHTTP, PredictorAnthropic, c.Predictor.Kind))
		}
	}
	if c.Predictor.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("predictor.timeout must be positive, got %s", c.Predictor.Timeout))
	}

	switch c.Store.Driver {
	case DriverSQLite, DriverPostgres:
		if c.Store.DSN == "" {
			errs = append(errs, fmt.Errorf("store.dsn is required for driver %q", c.Store.Driver))
		}
	case DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("store.driver must be sqlite, postgres or memory, got %q", c.Store.Driver))
	}

	if _, err := cron.ParseStandard(c.DailyResetSchedule); err != nil {
		errs = append(errs, fmt.Errorf("invalid daily_reset_schedule %q: %w", c.DailyResetSchedule, err))
	}

	if strings.EqualFold(c.Timezone, "Local") || c.Timezone == "" {
		c.Location = time.Local
	} else {
		loc, err := time.LoadLocation(c.Timezone)
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err))
		}
		c.Location = loc
	}

	if (c.Slack.BotToken == "") != (c.Slack.ReviewChannel == "") {
		errs = append(errs, errors.New("slack.bot_token and slack.review_channel must be set together"))
	}

	return errors.Join(errs...)
}

// EngineConfig projects the engine's tunables.
func (c Config) EngineConfig() engine.Config {
	return engine.Config{
		ConfidenceThreshold:    c.ConfidenceThreshold,
		HumanReviewThreshold:   c.HumanReviewThreshold,
		MLFallbackEnabled:      c.MLFallbackEnabled,
		AccuracyToleranceHours: c.AccuracyToleranceHours,
		PredictorTimeout:       c.Predictor.Timeout,
		StoreTimeout:           c.Store.Timeout,
	}
}

func envOverride(field *string, key string) {
	if val := os.Getenv(envPrefix + key); val != "" {
		*field = val
	}
}

func envOverrideInt(field *int, key string) error {
	val := os.Getenv(envPrefix + key)
	if val == "" {
		return nil
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fmt.Errorf("invalid %s%s %q: %w", envPrefix, key, val, err)
	}
	*field = parsed
	return nil
}

func envOverrideFloat(field *float64, key string) error {
	val := os.Getenv(envPrefix + key)
	if val == "" {
		return nil
	}
	parsed, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return fmt.Errorf("invalid %s%s %q: %w", envPrefix, key, val, err)
	}
	*field = parsed
	return nil
}

func envOverrideBool(field *bool, key string) error {
	val := os.Getenv(envPrefix + key)
	if val == "" {
		return nil
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fmt.Errorf("invalid %s%s %q: %w", envPrefix, key, val, err)
	}
	*field = parsed
	return nil
}

func envOverrideDuration(field *time.Duration, key string) error {
	val := os.Getenv(envPrefix + key)
	if val == "" {
		return nil
	}
	parsed, err := time.ParseDuration(val)
	if err != nil {
		return fmt.Errorf("invalid %s%s %q: %w", envPrefix, key, val, err)
	}
	*field = parsed
	return nil
}
