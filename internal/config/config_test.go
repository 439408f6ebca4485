package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/harrison/researchflow/internal/models"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

// TestDefaultConfig verifies default configuration values
func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.MaxConcurrency != 0 {
		t.Errorf("MaxConcurrency = %d, want 0", cfg.MaxConcurrency)
	}
	if cfg.GlobalMaxConcurrency != 16 {
		t.Errorf("GlobalMaxConcurrency = %d, want 16", cfg.GlobalMaxConcurrency)
	}
	if cfg.WorkflowTimeout != 5*time.Minute {
		t.Errorf("WorkflowTimeout = %v, want 5m", cfg.WorkflowTimeout)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "info")
	}
	if cfg.Analysis.Backend != "template" {
		t.Errorf("Analysis.Backend = %q, want template", cfg.Analysis.Backend)
	}
	if !cfg.Store.Enabled {
		t.Error("Store.Enabled = false, want true")
	}
	if cfg.Retry.MaxAttempts != 1 {
		t.Errorf("Retry.MaxAttempts = %d, want 1", cfg.Retry.MaxAttempts)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate, got %v", err)
	}
}

// TestLoadConfigValidFile tests loading a fully populated YAML config file
func TestLoadConfigValidFile(t *testing.T) {
	path := writeConfig(t, t.TempDir(), `max_concurrency: 4
global_max_concurrency: 8
workflow_timeout: 30s
task_timeout: 10s
log_level: debug
log_dir: /tmp/rf/logs
report:
  dir: /tmp/rf/reports
  formats: [html, pdf, csv]
analysis:
  backend: cli
  cli_path: /usr/local/bin/claude
  timeout: 45s
datasource:
  seed: 99
  latency: 20ms
  fail: [patent, web]
store:
  enabled: false
  path: /tmp/rf/history.db
retry:
  max_attempts: 3
  backoff: 100ms
server:
  addr: 127.0.0.1:9090
  retention: 10m
notify:
  url: https://hooks.example.com/rf
  timeout: 2s
  events: [run_failed, task_failed]
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	checks := []struct {
		name      string
		got, want interface{}
	}{
		{"MaxConcurrency", cfg.MaxConcurrency, 4},
		{"GlobalMaxConcurrency", cfg.GlobalMaxConcurrency, 8},
		{"WorkflowTimeout", cfg.WorkflowTimeout, 30 * time.Second},
		{"TaskTimeout", cfg.TaskTimeout, 10 * time.Second},
		{"LogLevel", cfg.LogLevel, "debug"},
		{"LogDir", cfg.LogDir, "/tmp/rf/logs"},
		{"Report.Dir", cfg.Report.Dir, "/tmp/rf/reports"},
		{"Report.Formats", cfg.Report.Formats, []string{"html", "pdf", "csv"}},
		{"Analysis.Backend", cfg.Analysis.Backend, "cli"},
		{"Analysis.CLIPath", cfg.Analysis.CLIPath, "/usr/local/bin/claude"},
		{"Analysis.Timeout", cfg.Analysis.Timeout, 45 * time.Second},
		{"DataSource.Seed", cfg.DataSource.Seed, uint64(99)},
		{"DataSource.Latency", cfg.DataSource.Latency, 20 * time.Millisecond},
		{"DataSource.Fail", cfg.DataSource.Fail, []string{"patent", "web"}},
		{"Store.Enabled", cfg.Store.Enabled, false},
		{"Store.Path", cfg.Store.Path, "/tmp/rf/history.db"},
		{"Retry.MaxAttempts", cfg.Retry.MaxAttempts, 3},
		{"Retry.Backoff", cfg.Retry.Backoff, 100 * time.Millisecond},
		{"Server.Addr", cfg.Server.Addr, "127.0.0.1:9090"},
		{"Server.Retention", cfg.Server.Retention, 10 * time.Minute},
		{"Notify.URL", cfg.Notify.URL, "https://hooks.example.com/rf"},
		{"Notify.Timeout", cfg.Notify.Timeout, 2 * time.Second},
		{"Notify.Events", cfg.Notify.Events, []string{"run_failed", "task_failed"}},
	}
	for _, c := range checks {
		if !reflect.DeepEqual(c.got, c.want) {
			t.Errorf("%s = %v, want %v", c.name, c.got, c.want)
		}
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

// TestLoadConfigFileNotExists tests fallback to defaults when file doesn't exist
func TestLoadConfigFileNotExists(t *testing.T) {
	cfg, err := LoadConfig("/nonexistent/path/config.yaml")
	if err != nil {
		t.Fatalf("LoadConfig() should not error on missing file, got: %v", err)
	}
	if !reflect.DeepEqual(cfg, DefaultConfig()) {
		t.Errorf("LoadConfig() = %+v, want defaults", cfg)
	}
}

// TestLoadConfigInvalid tests error handling for malformed files
func TestLoadConfigInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"invalid yaml", "max_concurrency: 5\nworkflow_timeout: [not valid\n", "failed to parse"},
		{"bad workflow timeout", "workflow_timeout: soon\n", "workflow_timeout"},
		{"bad backoff", "retry:\n  backoff: quickly\n", "retry.backoff"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, t.TempDir(), tt.content))
			if err == nil {
				t.Fatal("LoadConfig() expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

// TestLoadConfigPartialValues tests that partial config merges with defaults
func TestLoadConfigPartialValues(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, t.TempDir(), "max_concurrency: 2\nstore:\n  path: runs.db\n"))
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.MaxConcurrency != 2 {
		t.Errorf("MaxConcurrency = %d, want 2", cfg.MaxConcurrency)
	}
	if cfg.Store.Path != "runs.db" {
		t.Errorf("Store.Path = %q, want runs.db", cfg.Store.Path)
	}
	if !cfg.Store.Enabled {
		t.Error("Store.Enabled should keep its default when the key is absent")
	}
	if cfg.GlobalMaxConcurrency != 16 {
		t.Errorf("GlobalMaxConcurrency = %d, want 16 (default)", cfg.GlobalMaxConcurrency)
	}
	if !reflect.DeepEqual(cfg.Report.Formats, []string{"markdown", "json"}) {
		t.Errorf("Report.Formats = %v, want defaults", cfg.Report.Formats)
	}
}

// TestLoadFromDir tests loading .researchflow/config.yaml and resolving paths
func TestLoadFromDir(t *testing.T) {
	base := t.TempDir()
	stateDir, err := EnsureStateDir(base)
	if err != nil {
		t.Fatalf("EnsureStateDir() error = %v", err)
	}
	writeConfig(t, stateDir, "log_dir: logs\nreport:\n  dir: /abs/reports\n")

	cfg, err := Load(base)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.LogDir != filepath.Join(base, "logs") {
		t.Errorf("LogDir = %q, want it resolved under %s", cfg.LogDir, base)
	}
	if cfg.Report.Dir != "/abs/reports" {
		t.Errorf("Report.Dir = %q, absolute paths must be kept", cfg.Report.Dir)
	}
	if cfg.Store.Path != filepath.Join(base, ".researchflow", "history.db") {
		t.Errorf("Store.Path = %q", cfg.Store.Path)
	}
}

// TestBaseDir tests the RESEARCHFLOW_HOME override
func TestBaseDir(t *testing.T) {
	t.Setenv(HomeEnv, "/srv/research")
	got, err := BaseDir()
	if err != nil {
		t.Fatalf("BaseDir() error = %v", err)
	}
	if got != "/srv/research" {
		t.Errorf("BaseDir() = %q, want /srv/research", got)
	}

	t.Setenv(HomeEnv, "")
	cwd, _ := os.Getwd()
	got, err = BaseDir()
	if err != nil {
		t.Fatalf("BaseDir() error = %v", err)
	}
	if got != cwd {
		t.Errorf("BaseDir() = %q, want %q", got, cwd)
	}
}

// TestMergeWithFlags tests CLI flag precedence over config values
func TestMergeWithFlags(t *testing.T) {
	cfg := DefaultConfig()

	maxConcurrency := 3
	timeout := 90 * time.Second
	formats := []string{"pdf"}
	backend := "none"
	seed := uint64(7)
	noStore := true
	cfg.MergeWithFlags(Overrides{
		MaxConcurrency:  &maxConcurrency,
		WorkflowTimeout: &timeout,
		ReportFormats:   &formats,
		AnalysisBackend: &backend,
		Seed:            &seed,
		NoStore:         &noStore,
	})

	if cfg.MaxConcurrency != 3 {
		t.Errorf("MaxConcurrency = %d, want 3", cfg.MaxConcurrency)
	}
	if cfg.WorkflowTimeout != 90*time.Second {
		t.Errorf("WorkflowTimeout = %v, want 90s", cfg.WorkflowTimeout)
	}
	if !reflect.DeepEqual(cfg.Report.Formats, []string{"pdf"}) {
		t.Errorf("Report.Formats = %v, want [pdf]", cfg.Report.Formats)
	}
	if cfg.Analysis.Backend != "none" {
		t.Errorf("Analysis.Backend = %q, want none", cfg.Analysis.Backend)
	}
	if cfg.DataSource.Seed != 7 {
		t.Errorf("DataSource.Seed = %d, want 7", cfg.DataSource.Seed)
	}
	if cfg.Store.Enabled {
		t.Error("Store.Enabled = true, want false")
	}

	// Nil overrides keep existing values
	before := *cfg
	cfg.MergeWithFlags(Overrides{})
	if !reflect.DeepEqual(before, *cfg) {
		t.Error("empty overrides changed the configuration")
	}
}

// TestValidate tests configuration validation
func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"negative max_concurrency", func(c *Config) { c.MaxConcurrency = -1 }, "max_concurrency"},
		{"negative global", func(c *Config) { c.GlobalMaxConcurrency = -2 }, "global_max_concurrency"},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }, "log_level"},
		{"negative workflow timeout", func(c *Config) { c.WorkflowTimeout = -time.Second }, "workflow_timeout"},
		{"negative task timeout", func(c *Config) { c.TaskTimeout = -time.Second }, "task_timeout"},
		{"unknown format", func(c *Config) { c.Report.Formats = []string{"docx"} }, "report format"},
		{"unknown backend", func(c *Config) { c.Analysis.Backend = "gpt" }, "analysis.backend"},
		{"unknown fail capability", func(c *Config) { c.DataSource.Fail = []string{"astrology"} }, "datasource.fail"},
		{"store without path", func(c *Config) { c.Store.Path = "" }, "store.path"},
		{"negative retries", func(c *Config) { c.Retry.MaxAttempts = -1 }, "retry.max_attempts"},
		{"notify url without scheme", func(c *Config) { c.Notify.URL = "hooks.example.com" }, "notify.url"},
		{"unknown notify event", func(c *Config) { c.Notify.URL = "http://x"; c.Notify.Events = []string{"run_paused"} }, "notify event"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("Validate() expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}

	cfg := DefaultConfig()
	cfg.Store.Enabled = false
	cfg.Store.Path = ""
	if err := cfg.Validate(); err != nil {
		t.Errorf("disabled store needs no path, got %v", err)
	}
}

// TestFailCapabilities tests alias resolution for fault injection
func TestFailCapabilities(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DataSource.Fail = []string{"iqvia", "Clinical-Trials"}

	got, err := cfg.FailCapabilities()
	if err != nil {
		t.Fatalf("FailCapabilities() error = %v", err)
	}
	want := map[models.Capability]bool{models.CapabilityMarket: true, models.CapabilityClinicalTrials: true}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("FailCapabilities() = %v, want %v", got, want)
	}
}
