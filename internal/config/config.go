// File: internal/config/config.go
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/xkilldash9x/scalpel-e2e/internal/errs"
)

// EnvPrefix is prepended to every config key when read from the environment,
// e.g. SCALPEL_E2E_RUN_PARALLELISM.
const EnvPrefix = "SCALPEL_E2E"

// Config holds the entire application configuration.
type Config struct {
	Logger  LoggerConfig  `mapstructure:"logger" yaml:"logger"`
	Target  TargetConfig  `mapstructure:"target" yaml:"target"`
	Browser BrowserConfig `mapstructure:"browser" yaml:"browser"`
	API     APIConfig     `mapstructure:"api" yaml:"api"`
	Run     RunConfig     `mapstructure:"run" yaml:"run"`
	Report  ReportConfig  `mapstructure:"report" yaml:"report"`
	Tracing TracingConfig `mapstructure:"tracing" yaml:"tracing"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	NoColor     bool        `mapstructure:"no_color" yaml:"no_color"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color codes for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// TargetConfig locates the deployment under test.
type TargetConfig struct {
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`
	APIURL  string `mapstructure:"api_url" yaml:"api_url"`
}

// ViewportConfig is a width by height in CSS pixels.
type ViewportConfig struct {
	Width  int `mapstructure:"width" yaml:"width"`
	Height int `mapstructure:"height" yaml:"height"`
}

// BrowserConfig holds settings for the headless browser sessions.
type BrowserConfig struct {
	Headless        bool           `mapstructure:"headless" yaml:"headless"`
	IgnoreTLSErrors bool           `mapstructure:"ignore_tls_errors" yaml:"ignore_tls_errors"`
	ExecPath        string         `mapstructure:"exec_path" yaml:"exec_path"`
	Args            []string       `mapstructure:"args" yaml:"args"`
	LaunchTimeout   time.Duration  `mapstructure:"launch_timeout" yaml:"launch_timeout"`
	UserAgent       string         `mapstructure:"user_agent" yaml:"user_agent"`
	Viewport        ViewportConfig `mapstructure:"viewport" yaml:"viewport"`
}

// APIConfig tunes the HTTP probe.
type APIConfig struct {
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
	// Origin is sent on CORS preflights. Empty means the target base URL's origin.
	Origin string `mapstructure:"origin" yaml:"origin"`
	// BurstRate paces burst requests per second; 0 is unlimited.
	BurstRate float64 `mapstructure:"burst_rate" yaml:"burst_rate"`
	// LimitedPath enables the rate-limit-enforced check against this endpoint.
	LimitedPath string `mapstructure:"limited_path" yaml:"limited_path"`

	IgnoreTLSErrors bool   `mapstructure:"ignore_tls_errors" yaml:"ignore_tls_errors"`
	Proxy           string `mapstructure:"proxy" yaml:"proxy"`
	HTTP2           bool   `mapstructure:"http2" yaml:"http2"`
}

// RunConfig selects and schedules scenarios.
type RunConfig struct {
	Suite           string        `mapstructure:"suite" yaml:"suite"`
	Run             string        `mapstructure:"run" yaml:"run"`
	Skip            string        `mapstructure:"skip" yaml:"skip"`
	Parallelism     int           `mapstructure:"parallelism" yaml:"parallelism"`
	ScenarioTimeout time.Duration `mapstructure:"scenario_timeout" yaml:"scenario_timeout"`
	PresenceWait    time.Duration `mapstructure:"presence_wait" yaml:"presence_wait"`
}

// ReportConfig controls how the run summary is rendered.
type ReportConfig struct {
	Format      string `mapstructure:"format" yaml:"format"`
	Output      string `mapstructure:"output" yaml:"output"`
	MetricsFile string `mapstructure:"metrics_file" yaml:"metrics_file"`
	NoColor     bool   `mapstructure:"no_color" yaml:"no_color"`
	Verbose     bool   `mapstructure:"verbose" yaml:"verbose"`
}

// TracingConfig enables OpenTelemetry spans for scenarios.
type TracingConfig struct {
	Enabled     bool   `mapstructure:"enabled" yaml:"enabled"`
	File        string `mapstructure:"file" yaml:"file"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
}

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for every configuration key.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "scalpel-e2e")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.no_color", false)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")
	v.SetDefault("logger.colors.dpanic", "magenta")
	v.SetDefault("logger.colors.panic", "magenta")
	v.SetDefault("logger.colors.fatal", "red")

	// -- Target --
	v.SetDefault("target.base_url", "http://localhost:3000")
	v.SetDefault("target.api_url", "http://localhost:3001")

	// -- Browser --
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.ignore_tls_errors", false)
	v.SetDefault("browser.exec_path", "")
	v.SetDefault("browser.launch_timeout", "60s")
	v.SetDefault("browser.user_agent", "Mozilla/5.0 (compatible; AccessibilityScanner/1.0; +https://accessibility-scanner.com/bot)")
	v.SetDefault("browser.viewport.width", 1280)
	v.SetDefault("browser.viewport.height", 720)

	// -- API --
	v.SetDefault("api.timeout", "10s")
	v.SetDefault("api.origin", "")
	v.SetDefault("api.burst_rate", 0)
	v.SetDefault("api.limited_path", "")
	v.SetDefault("api.ignore_tls_errors", false)
	v.SetDefault("api.proxy", "")
	v.SetDefault("api.http2", false)

	// -- Run --
	v.SetDefault("run.suite", "")
	v.SetDefault("run.run", "")
	v.SetDefault("run.skip", "")
	v.SetDefault("run.parallelism", 1)
	v.SetDefault("run.scenario_timeout", "60s")
	v.SetDefault("run.presence_wait", "5s")

	// -- Report --
	v.SetDefault("report.format", "text")
	v.SetDefault("report.output", "")
	v.SetDefault("report.metrics_file", "")
	v.SetDefault("report.no_color", false)
	v.SetDefault("report.verbose", false)

	// -- Tracing --
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.file", "scalpel-e2e-traces.json")
	v.SetDefault("tracing.service_name", "scalpel-e2e")
}

// BindEnv wires the environment into v: every key under EnvPrefix, plus the
// short variables CI pipelines already export for the target deployment.
func BindEnv(v *viper.Viper) error {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// BindEnv takes the key's own prefixed name first; later names are fallbacks.
	bindings := map[string][]string{
		"target.base_url":  {EnvPrefix + "_TARGET_BASE_URL", "BASE_URL", "E2E_BASE_URL"},
		"target.api_url":   {EnvPrefix + "_TARGET_API_URL", "API_URL", "E2E_API_URL"},
		"browser.headless": {EnvPrefix + "_BROWSER_HEADLESS", "HEADLESS"},
	}
	for key, envs := range bindings {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return fmt.Errorf("failed to bind env for %s: %w", key, err)
		}
	}
	return nil
}

// NewConfigFromViper creates a validated configuration from a viper instance.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errs.Config("config", "error unmarshaling config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if err := ValidateURL("target.base_url", c.Target.BaseURL); err != nil {
		return err
	}
	if err := ValidateURL("target.api_url", c.Target.APIURL); err != nil {
		return err
	}
	if c.API.Origin != "" {
		if err := ValidateURL("api.origin", c.API.Origin); err != nil {
			return err
		}
	}
	if c.API.Proxy != "" {
		if err := ValidateURL("api.proxy", c.API.Proxy); err != nil {
			return err
		}
	}
	if c.API.Timeout <= 0 {
		return errs.Config("api.timeout", "must be a positive duration")
	}
	if c.API.BurstRate < 0 {
		return errs.Config("api.burst_rate", "must not be negative")
	}
	if c.Run.Parallelism <= 0 {
		return errs.Config("run.parallelism", "must be a positive integer")
	}
	if c.Run.ScenarioTimeout <= 0 {
		return errs.Config("run.scenario_timeout", "must be a positive duration")
	}
	if c.Browser.Viewport.Width <= 0 || c.Browser.Viewport.Height <= 0 {
		return errs.Config("browser.viewport", "width and height must be positive")
	}
	switch strings.ToLower(c.Report.Format) {
	case "text", "json", "sarif":
	default:
		return errs.Config("report.format", "unsupported format %q (want text, json or sarif)", c.Report.Format)
	}
	if c.Tracing.Enabled && c.Tracing.File == "" {
		return errs.Config("tracing.file", "required when tracing is enabled")
	}
	return nil
}

// Origin is the origin sent on CORS preflights.
func (c *Config) Origin() string {
	if c.API.Origin != "" {
		return c.API.Origin
	}
	u, err := url.Parse(c.Target.BaseURL)
	if err != nil {
		return ""
	}
	return u.Scheme + "://" + u.Host
}

// ValidateURL checks that raw is an absolute http or https URL with a host. key
// names the setting in the returned ConfigurationError.
func ValidateURL(key, raw string) error {
	if raw == "" {
		return errs.Config(key, "is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return errs.Config(key, "%q is not a valid URL: %v", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errs.Config(key, "%q must use http or https", raw)
	}
	if u.Host == "" {
		return errs.Config(key, "%q has no host", raw)
	}
	return nil
}
