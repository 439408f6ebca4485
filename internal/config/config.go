package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/harrison/researchflow/internal/models"
)

// ReportFormats lists the report formats a run can be rendered to.
var ReportFormats = []string{"markdown", "html", "pdf", "json", "csv"}

// NotifyEvents lists the run events a webhook can subscribe to.
var NotifyEvents = []string{"run_started", "run_completed", "run_failed", "task_failed"}

// AnalysisBackends lists the supported analysis service backends.
var AnalysisBackends = []string{"template", "cli", "none"}

// ReportConfig controls report rendering after a completed run
type ReportConfig struct {
	// Dir is the directory reports are written to
	Dir string `yaml:"dir"`

	// Formats are the formats rendered for every completed run
	Formats []string `yaml:"formats"`
}

// AnalysisConfig selects the analysis service backend
type AnalysisConfig struct {
	// Backend is one of template, cli, none
	Backend string `yaml:"backend"`

	// CLIPath is the LLM CLI binary used by the cli backend
	CLIPath string `yaml:"cli_path"`

	// Timeout bounds each analysis service call
	Timeout time.Duration `yaml:"timeout"`
}

// DataSourceConfig configures the mock data provider
type DataSourceConfig struct {
	// Seed makes generated data reproducible across processes
	Seed uint64 `yaml:"seed"`

	// Latency is added to every fetch
	Latency time.Duration `yaml:"latency"`

	// Fail lists capabilities whose fetches always fail
	Fail []string `yaml:"fail"`
}

// StoreConfig configures run history persistence
type StoreConfig struct {
	// Enabled turns run history on
	Enabled bool `yaml:"enabled"`

	// Path is the SQLite database file
	Path string `yaml:"path"`
}

// RetryConfig configures coordinator-level task retries
type RetryConfig struct {
	// MaxAttempts is the total number of attempts per task (1 = no retries)
	MaxAttempts int `yaml:"max_attempts"`

	// Backoff is the base of the exponential backoff between attempts
	Backoff time.Duration `yaml:"backoff"`
}

// ServerConfig configures the HTTP surface
type ServerConfig struct {
	// Addr is the listen address
	Addr string `yaml:"addr"`

	// Retention is how long finished runs stay queryable in memory
	Retention time.Duration `yaml:"retention"`
}

// NotifyConfig configures run event webhooks
type NotifyConfig struct {
	// URL receives a JSON POST per event; empty disables notifications
	URL string `yaml:"url"`

	// Timeout bounds each delivery attempt
	Timeout time.Duration `yaml:"timeout"`

	// Events selects which events are sent
	Events []string `yaml:"events"`
}

// Config represents researchflow configuration options
type Config struct {
	// MaxConcurrency caps parallel tasks within one run (0 = one worker per task)
	MaxConcurrency int `yaml:"max_concurrency"`

	// GlobalMaxConcurrency caps parallel tasks across all runs in the process (0 = unlimited)
	GlobalMaxConcurrency int `yaml:"global_max_concurrency"`

	// WorkflowTimeout bounds planning and execution of one run (0 = no deadline)
	WorkflowTimeout time.Duration `yaml:"workflow_timeout"`

	// TaskTimeout bounds a single task (0 = bounded by the workflow only)
	TaskTimeout time.Duration `yaml:"task_timeout"`

	// LogLevel sets the logging verbosity (trace, debug, info, warn, error)
	LogLevel string `yaml:"log_level"`

	// LogDir is the directory where run logs will be written
	LogDir string `yaml:"log_dir"`

	Report     ReportConfig     `yaml:"report"`
	Analysis   AnalysisConfig   `yaml:"analysis"`
	DataSource DataSourceConfig `yaml:"datasource"`
	Store      StoreConfig      `yaml:"store"`
	Retry      RetryConfig      `yaml:"retry"`
	Server     ServerConfig     `yaml:"server"`
	Notify     NotifyConfig     `yaml:"notify"`
}

// DefaultConfig returns a Config with sensible default values
func DefaultConfig() *Config {
	return &Config{
		MaxConcurrency:       0,
		GlobalMaxConcurrency: 16,
		WorkflowTimeout:      5 * time.Minute,
		TaskTimeout:          2 * time.Minute,
		LogLevel:             "info",
		LogDir:               ".researchflow/logs",
		Report: ReportConfig{
			Dir:     ".researchflow/reports",
			Formats: []string{"markdown", "json"},
		},
		Analysis: AnalysisConfig{
			Backend: "template",
			CLIPath: "claude",
			Timeout: 90 * time.Second,
		},
		Store: StoreConfig{
			Enabled: true,
			Path:    ".researchflow/history.db",
		},
		Retry: RetryConfig{
			MaxAttempts: 1,
			Backoff:     250 * time.Millisecond,
		},
		Server: ServerConfig{
			Addr:      ":8080",
			Retention: time.Hour,
		},
		Notify: NotifyConfig{
			Timeout: 5 * time.Second,
			Events:  []string{"run_completed", "run_failed"},
		},
	}
}

// LoadConfig loads configuration from the specified file path
// If the file doesn't exist, returns default configuration without error
// If the file exists but is malformed, returns an error
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Durations are strings in YAML
	type yamlConfig struct {
		MaxConcurrency       int    `yaml:"max_concurrency"`
		GlobalMaxConcurrency int    `yaml:"global_max_concurrency"`
		WorkflowTimeout      string `yaml:"workflow_timeout"`
		TaskTimeout          string `yaml:"task_timeout"`
		LogLevel             string `yaml:"log_level"`
		LogDir               string `yaml:"log_dir"`
		Report               struct {
			Dir     string   `yaml:"dir"`
			Formats []string `yaml:"formats"`
		} `yaml:"report"`
		Analysis struct {
			Backend string `yaml:"backend"`
			CLIPath string `yaml:"cli_path"`
			Timeout string `yaml:"timeout"`
		} `yaml:"analysis"`
		DataSource struct {
			Seed    uint64   `yaml:"seed"`
			Latency string   `yaml:"latency"`
			Fail    []string `yaml:"fail"`
		} `yaml:"datasource"`
		Store struct {
			Enabled bool   `yaml:"enabled"`
			Path    string `yaml:"path"`
		} `yaml:"store"`
		Retry struct {
			MaxAttempts int    `yaml:"max_attempts"`
			Backoff     string `yaml:"backoff"`
		} `yaml:"retry"`
		Server struct {
			Addr      string `yaml:"addr"`
			Retention string `yaml:"retention"`
		} `yaml:"server"`
		Notify struct {
			URL     string   `yaml:"url"`
			Timeout string   `yaml:"timeout"`
			Events  []string `yaml:"events"`
		} `yaml:"notify"`
	}

	var yamlCfg yamlConfig
	if err := yaml.Unmarshal(data, &yamlCfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Apply non-zero values from file (merging with defaults)
	if yamlCfg.MaxConcurrency != 0 {
		cfg.MaxConcurrency = yamlCfg.MaxConcurrency
	}
	if yamlCfg.GlobalMaxConcurrency != 0 {
		cfg.GlobalMaxConcurrency = yamlCfg.GlobalMaxConcurrency
	}
	if yamlCfg.LogLevel != "" {
		cfg.LogLevel = yamlCfg.LogLevel
	}
	if yamlCfg.LogDir != "" {
		cfg.LogDir = yamlCfg.LogDir
	}
	if yamlCfg.Report.Dir != "" {
		cfg.Report.Dir = yamlCfg.Report.Dir
	}
	if len(yamlCfg.Report.Formats) > 0 {
		cfg.Report.Formats = yamlCfg.Report.Formats
	}
	if yamlCfg.Analysis.Backend != "" {
		cfg.Analysis.Backend = yamlCfg.Analysis.Backend
	}
	if yamlCfg.Analysis.CLIPath != "" {
		cfg.Analysis.CLIPath = yamlCfg.Analysis.CLIPath
	}
	if yamlCfg.DataSource.Seed != 0 {
		cfg.DataSource.Seed = yamlCfg.DataSource.Seed
	}
	if len(yamlCfg.DataSource.Fail) > 0 {
		cfg.DataSource.Fail = yamlCfg.DataSource.Fail
	}
	if yamlCfg.Store.Path != "" {
		cfg.Store.Path = yamlCfg.Store.Path
	}
	if yamlCfg.Retry.MaxAttempts != 0 {
		cfg.Retry.MaxAttempts = yamlCfg.Retry.MaxAttempts
	}
	if yamlCfg.Server.Addr != "" {
		cfg.Server.Addr = yamlCfg.Server.Addr
	}
	if yamlCfg.Notify.URL != "" {
		cfg.Notify.URL = yamlCfg.Notify.URL
	}
	if len(yamlCfg.Notify.Events) > 0 {
		cfg.Notify.Events = yamlCfg.Notify.Events
	}

	durations := []struct {
		key   string
		value string
		dst   *time.Duration
	}{
		{"workflow_timeout", yamlCfg.WorkflowTimeout, &cfg.WorkflowTimeout},
		{"task_timeout", yamlCfg.TaskTimeout, &cfg.TaskTimeout},
		{"analysis.timeout", yamlCfg.Analysis.Timeout, &cfg.Analysis.Timeout},
		{"datasource.latency", yamlCfg.DataSource.Latency, &cfg.DataSource.Latency},
		{"retry.backoff", yamlCfg.Retry.Backoff, &cfg.Retry.Backoff},
		{"server.retention", yamlCfg.Server.Retention, &cfg.Server.Retention},
		{"notify.timeout", yamlCfg.Notify.Timeout, &cfg.Notify.Timeout},
	}
	for _, d := range durations {
		if d.value == "" {
			continue
		}
		parsed, err := time.ParseDuration(d.value)
		if err != nil {
			return nil, fmt.Errorf("invalid %s format %q: %w", d.key, d.value, err)
		}
		*d.dst = parsed
	}

	// Booleans default to true, so only an explicit key may turn them off
	var rawMap map[string]interface{}
	if err := yaml.Unmarshal(data, &rawMap); err == nil {
		if storeSection, ok := rawMap["store"].(map[string]interface{}); ok {
			if _, exists := storeSection["enabled"]; exists {
				cfg.Store.Enabled = yamlCfg.Store.Enabled
			}
		}
	}

	return cfg, nil
}

// LoadConfigFromDir loads configuration from .researchflow/config.yaml in the specified directory
// If the directory or file doesn't exist, returns default configuration without error
func LoadConfigFromDir(dir string) (*Config, error) {
	configPath := filepath.Join(dir, DirName, "config.yaml")
	return LoadConfig(configPath)
}

// Overrides carries CLI flag values. Nil fields leave the configuration
// untouched.
type Overrides struct {
	MaxConcurrency       *int
	GlobalMaxConcurrency *int
	WorkflowTimeout      *time.Duration
	TaskTimeout          *time.Duration
	LogLevel             *string
	LogDir               *string
	ReportDir            *string
	ReportFormats        *[]string
	AnalysisBackend      *string
	Seed                 *uint64
	StorePath            *string
	NoStore              *bool
	RetryAttempts        *int
	ServerAddr           *string
	NotifyURL            *string
}

// MergeWithFlags merges CLI flags into the configuration
// Non-nil flag values override configuration values
func (c *Config) MergeWithFlags(o Overrides) {
	if o.MaxConcurrency != nil {
		c.MaxConcurrency = *o.MaxConcurrency
	}
	if o.GlobalMaxConcurrency != nil {
		c.GlobalMaxConcurrency = *o.GlobalMaxConcurrency
	}
	if o.WorkflowTimeout != nil {
		c.WorkflowTimeout = *o.WorkflowTimeout
	}
	if o.TaskTimeout != nil {
		c.TaskTimeout = *o.TaskTimeout
	}
	if o.LogLevel != nil {
		c.LogLevel = *o.LogLevel
	}
	if o.LogDir != nil {
		c.LogDir = *o.LogDir
	}
	if o.ReportDir != nil {
		c.Report.Dir = *o.ReportDir
	}
	if o.ReportFormats != nil {
		c.Report.Formats = *o.ReportFormats
	}
	if o.AnalysisBackend != nil {
		c.Analysis.Backend = *o.AnalysisBackend
	}
	if o.Seed != nil {
		c.DataSource.Seed = *o.Seed
	}
	if o.StorePath != nil {
		c.Store.Path = *o.StorePath
	}
	if o.NoStore != nil && *o.NoStore {
		c.Store.Enabled = false
	}
	if o.RetryAttempts != nil {
		c.Retry.MaxAttempts = *o.RetryAttempts
	}
	if o.ServerAddr != nil {
		c.Server.Addr = *o.ServerAddr
	}
	if o.NotifyURL != nil {
		c.Notify.URL = *o.NotifyURL
	}
}

// ResolvePaths makes relative file locations absolute against base.
func (c *Config) ResolvePaths(base string) {
	for _, p := range []*string{&c.LogDir, &c.Report.Dir, &c.Store.Path} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(base, *p)
		}
	}
}

// FailCapabilities returns the configured fault-injection set.
func (c *Config) FailCapabilities() (map[models.Capability]bool, error) {
	out := make(map[models.Capability]bool, len(c.DataSource.Fail))
	for _, tag := range c.DataSource.Fail {
		capability, err := models.ParseCapability(tag)
		if err != nil {
			return nil, fmt.Errorf("datasource.fail: %w", err)
		}
		out[capability] = true
	}
	return out, nil
}

// Validate validates the configuration values
// Returns an error if any values are invalid
func (c *Config) Validate() error {
	if c.MaxConcurrency < 0 {
		return fmt.Errorf("max_concurrency must be >= 0, got %d", c.MaxConcurrency)
	}
	if c.GlobalMaxConcurrency < 0 {
		return fmt.Errorf("global_max_concurrency must be >= 0, got %d", c.GlobalMaxConcurrency)
	}

	validLevels := map[string]bool{
		"trace": true,
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[c.LogLevel] {
		return fmt.Errorf("invalid log_level %q, must be one of: trace, debug, info, warn, error", c.LogLevel)
	}

	// Timeouts can be 0 (none) or positive, negative is invalid
	if c.WorkflowTimeout < 0 {
		return fmt.Errorf("workflow_timeout must be >= 0, got %v", c.WorkflowTimeout)
	}
	if c.TaskTimeout < 0 {
		return fmt.Errorf("task_timeout must be >= 0, got %v", c.TaskTimeout)
	}
	if c.Analysis.Timeout < 0 {
		return fmt.Errorf("analysis.timeout must be >= 0, got %v", c.Analysis.Timeout)
	}
	if c.DataSource.Latency < 0 {
		return fmt.Errorf("datasource.latency must be >= 0, got %v", c.DataSource.Latency)
	}

	for _, f := range c.Report.Formats {
		if !contains(ReportFormats, f) {
			return fmt.Errorf("invalid report format %q, must be one of: %s", f, strings.Join(ReportFormats, ", "))
		}
	}
	if !contains(AnalysisBackends, strings.ToLower(c.Analysis.Backend)) {
		return fmt.Errorf("invalid analysis.backend %q, must be one of: %s", c.Analysis.Backend, strings.Join(AnalysisBackends, ", "))
	}
	if _, err := c.FailCapabilities(); err != nil {
		return err
	}

	if c.Store.Enabled && c.Store.Path == "" {
		return fmt.Errorf("store.path cannot be empty when the store is enabled")
	}

	if c.Retry.MaxAttempts < 0 {
		return fmt.Errorf("retry.max_attempts must be >= 0, got %d", c.Retry.MaxAttempts)
	}
	if c.Retry.Backoff < 0 {
		return fmt.Errorf("retry.backoff must be >= 0, got %v", c.Retry.Backoff)
	}
	if c.Server.Retention < 0 {
		return fmt.Errorf("server.retention must be >= 0, got %v", c.Server.Retention)
	}

	if c.Notify.URL != "" {
		u, err := url.Parse(c.Notify.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("notify.url must be an http(s) URL, got %q", c.Notify.URL)
		}
	}
	if c.Notify.Timeout < 0 {
		return fmt.Errorf("notify.timeout must be >= 0, got %v", c.Notify.Timeout)
	}
	for _, e := range c.Notify.Events {
		if !contains(NotifyEvents, e) {
			return fmt.Errorf("invalid notify event %q, must be one of: %s", e, strings.Join(NotifyEvents, ", "))
		}
	}

	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
