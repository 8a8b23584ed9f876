package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
	_ "time/tzdata" // zone database for minimal images

	"github.com/spf13/viper"

	"github.com/notifyhub/pricewatch/internal/domain"
	"github.com/notifyhub/pricewatch/internal/scheduler"
	"github.com/notifyhub/pricewatch/internal/source"
)

// Config holds all runtime configuration. Every field has a default; the
// ordered source list comes from the config file and falls back to a single
// goldapi.io source.
type Config struct {
	Env      string `mapstructure:"env"`
	LogLevel string `mapstructure:"log_level"`

	Commodity CommodityConfig `mapstructure:"commodity"`
	Sources   []source.Spec   `mapstructure:"sources"`
	Rate      RateConfig      `mapstructure:"rate"`
	Browser   BrowserConfig   `mapstructure:"browser"`
	Messaging MessagingConfig `mapstructure:"messaging"`
	Email     EmailConfig     `mapstructure:"email"`
	Schedule  ScheduleConfig  `mapstructure:"schedule"`
	Server    ServerConfig    `mapstructure:"server"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`

	HTTPTimeout time.Duration `mapstructure:"http_timeout"`
}

// CommodityConfig describes what is reported and how it is rounded.
type CommodityConfig struct {
	Name           string      `mapstructure:"name"`
	PrimaryLabel   string      `mapstructure:"primary_label"`
	SecondaryLabel string      `mapstructure:"secondary_label"`
	Unit           domain.Unit `mapstructure:"unit"`
	Currency       string      `mapstructure:"currency"`
	Precision      int         `mapstructure:"precision"`
	Timezone       string      `mapstructure:"timezone"`
}

// RateConfig configures the exchange rate lookup and its fallback constant.
type RateConfig struct {
	URL            string        `mapstructure:"url"`
	Base           string        `mapstructure:"base"`
	Fallback       float64       `mapstructure:"fallback"`
	MaxAttempts    int           `mapstructure:"max_attempts"`
	AttemptTimeout time.Duration `mapstructure:"attempt_timeout"`
	RetryDelay     time.Duration `mapstructure:"retry_delay"`
}

// BrowserConfig configures the headless browser used by rendered sources.
type BrowserConfig struct {
	RemoteURL string `mapstructure:"remote_url"`
	ExecPath  string `mapstructure:"exec_path"`
	UserAgent string `mapstructure:"user_agent"`
}

// MessagingConfig configures the messaging gateway channel.
type MessagingConfig struct {
	Endpoint    string        `mapstructure:"endpoint"`
	Token       string        `mapstructure:"token"`
	Phone       string        `mapstructure:"phone"`
	TrunkPrefix string        `mapstructure:"trunk_prefix"`
	CountryCode string        `mapstructure:"country_code"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// EmailConfig configures SMTP submission.
type EmailConfig struct {
	Host     string        `mapstructure:"host"`
	Port     int           `mapstructure:"port"`
	Username string        `mapstructure:"username"`
	Password string        `mapstructure:"password"`
	From     string        `mapstructure:"from"`
	To       []string      `mapstructure:"to"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// ScheduleConfig drives serve mode.
type ScheduleConfig struct {
	Cron       string `mapstructure:"cron"`
	RunOnStart bool   `mapstructure:"run_on_start"`
}

// ServerConfig configures the health and metrics listener in serve mode.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// MetricsConfig configures the optional Pushgateway used by one-shot runs.
type MetricsConfig struct {
	PushgatewayURL string        `mapstructure:"pushgateway_url"`
	PushTimeout    time.Duration `mapstructure:"push_timeout"`
}

// DefaultSource is used when the config file lists no sources.
var DefaultSource = source.Spec{
	ID:             "goldapi",
	Kind:           source.KindAPI,
	Priority:       1,
	MaxAttempts:    3,
	AttemptTimeout: 10 * time.Second,
	RetryDelay:     2 * time.Second,
	URL:            "https://www.goldapi.io/api/XAU/USD",
	Unit:           domain.UnitGram,
	Currency:       "USD",
	TokenEnv:       "GOLD_API_KEY",
	TokenHeader:    "x-access-token",
	PrimaryField:   "price_gram_24k",
	SecondaryField: "price_gram_22k",
}

// Load reads configuration from environment variables prefixed with
// PRICEWATCH_ and, when path is non-empty, from a YAML or JSON file.
// Environment values win over the file.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("PRICEWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if len(cfg.Sources) == 0 {
		cfg.Sources = []source.Spec{DefaultSource}
	}
	for i := range cfg.Sources {
		s := &cfg.Sources[i]
		if s.Token == "" && s.TokenEnv != "" {
			s.Token = os.Getenv(s.TokenEnv)
		}
	}
	if cfg.Email.From == "" {
		cfg.Email.From = cfg.Email.Username
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("http_timeout", 15*time.Second)

	// Commodity defaults
	v.SetDefault("commodity.name", "Gold")
	v.SetDefault("commodity.primary_label", "24K")
	v.SetDefault("commodity.secondary_label", "22K")
	v.SetDefault("commodity.unit", string(domain.UnitTola))
	v.SetDefault("commodity.currency", "PKR")
	v.SetDefault("commodity.precision", 2)
	v.SetDefault("commodity.timezone", "Asia/Karachi")

	// Exchange rate defaults
	v.SetDefault("rate.url", "https://api.exchangerate-api.com/v4/latest/{base}")
	v.SetDefault("rate.base", "USD")
	v.SetDefault("rate.fallback", 280.0)
	v.SetDefault("rate.max_attempts", 3)
	v.SetDefault("rate.attempt_timeout", 10*time.Second)
	v.SetDefault("rate.retry_delay", 2*time.Second)

	// Browser defaults
	v.SetDefault("browser.remote_url", "")
	v.SetDefault("browser.exec_path", "")
	v.SetDefault("browser.user_agent", "")

	// Messaging defaults
	v.SetDefault("messaging.endpoint", "")
	v.SetDefault("messaging.token", "")
	v.SetDefault("messaging.phone", "")
	v.SetDefault("messaging.trunk_prefix", "0")
	v.SetDefault("messaging.country_code", "92")
	v.SetDefault("messaging.timeout", 10*time.Second)

	// Email defaults
	v.SetDefault("email.host", "")
	v.SetDefault("email.port", 587)
	v.SetDefault("email.username", "")
	v.SetDefault("email.password", "")
	v.SetDefault("email.from", "")
	v.SetDefault("email.to", []string{})
	v.SetDefault("email.timeout", 30*time.Second)

	// Schedule defaults
	v.SetDefault("schedule.cron", "0 */6 * * *")
	v.SetDefault("schedule.run_on_start", true)

	// Server defaults
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", 5*time.Second)
	v.SetDefault("server.write_timeout", 10*time.Second)
	v.SetDefault("server.shutdown_timeout", 30*time.Second)

	// Metrics defaults
	v.SetDefault("metrics.pushgateway_url", "")
	v.SetDefault("metrics.push_timeout", 10*time.Second)
}

// Validate rejects configurations the pipeline cannot run with.
func (c *Config) Validate() error {
	var errs []error

	seen := make(map[string]bool, len(c.Sources))
	for _, s := range c.Sources {
		if err := s.Validate(); err != nil {
			errs = append(errs, err)
			continue
		}
		if seen[s.ID] {
			errs = append(errs, fmt.Errorf("source %s: duplicate id", s.ID))
		}
		seen[s.ID] = true
	}

	if p := c.Commodity.Precision; p != 0 && p != 2 {
		errs = append(errs, fmt.Errorf("commodity.precision must be 0 or 2, got %d", p))
	}
	if !c.Commodity.Unit.IsValid() {
		errs = append(errs, fmt.Errorf("commodity.unit: %w %q", domain.ErrUnknownUnit, c.Commodity.Unit))
	}
	if c.Commodity.Currency == "" {
		errs = append(errs, errors.New("commodity.currency is required"))
	}
	if _, err := time.LoadLocation(c.Commodity.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("commodity.timezone: %w", err))
	}
	if c.Rate.Fallback <= 0 {
		errs = append(errs, fmt.Errorf("rate.fallback must be positive, got %v", c.Rate.Fallback))
	}
	if c.Rate.MaxAttempts <= 0 {
		errs = append(errs, fmt.Errorf("rate.max_attempts must be positive, got %d", c.Rate.MaxAttempts))
	}

	// Every outbound call needs a deadline.
	timeouts := []struct {
		key string
		d   time.Duration
	}{
		{"http_timeout", c.HTTPTimeout},
		{"rate.attempt_timeout", c.Rate.AttemptTimeout},
		{"messaging.timeout", c.Messaging.Timeout},
		{"email.timeout", c.Email.Timeout},
	}
	for _, t := range timeouts {
		if t.d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %s", t.key, t.d))
		}
	}

	if err := scheduler.ValidateCronExpr(c.Schedule.Cron); err != nil {
		errs = append(errs, fmt.Errorf("schedule.cron: %w", err))
	}

	return errors.Join(errs...)
}

// Location returns the time zone messages are rendered in.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Commodity.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// RatePolicy is the retry policy of the exchange rate lookup.
func (c *Config) RatePolicy() domain.SourceConfig {
	return domain.SourceConfig{
		ID:             "exchange-rate",
		MaxAttempts:    c.Rate.MaxAttempts,
		AttemptTimeout: c.Rate.AttemptTimeout,
		RetryDelay:     c.Rate.RetryDelay,
	}
}

// MinIntervals maps source ids to their minimum spacing between requests.
func (c *Config) MinIntervals() map[string]time.Duration {
	m := make(map[string]time.Duration, len(c.Sources))
	for _, s := range c.Sources {
		if s.MinInterval > 0 {
			m[s.ID] = s.MinInterval
		}
	}
	return m
}

// NeedsBrowser reports whether any enabled source renders pages.
func (c *Config) NeedsBrowser() bool {
	for _, s := range c.Sources {
		if !s.Disabled && s.Kind == source.KindRendered {
			return true
		}
	}
	return false
}
