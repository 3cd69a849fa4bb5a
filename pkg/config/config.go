// Package config loads tabpilot settings from a YAML file, a .env file and
// environment variables, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/entrhq/tabpilot/pkg/agent/approval"
	"github.com/entrhq/tabpilot/pkg/agent/history"
	"github.com/entrhq/tabpilot/pkg/agent/retry"
	"github.com/entrhq/tabpilot/pkg/logging"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variables that override the config file.
const (
	EnvAPIKey   = "OPENAI_API_KEY"
	EnvBaseURL  = "OPENAI_BASE_URL"
	EnvModel    = "TABPILOT_MODEL"
	EnvLogLevel = "TABPILOT_LOG_LEVEL"
	EnvHeadless = "TABPILOT_HEADLESS"
	EnvHome     = "TABPILOT_HOME"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gpt-4o"

// Config is the full tabpilot configuration.
type Config struct {
	LLM          LLMSection     `yaml:"llm"`
	Agent        AgentSection   `yaml:"agent"`
	Browser      BrowserSection `yaml:"browser"`
	Memory       MemorySection  `yaml:"memory"`
	Logging      LoggingSection `yaml:"logging"`
	AutoApproval *AutoApproval  `yaml:"auto_approval"`
}

// LLMSection configures the model provider.
type LLMSection struct {
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url,omitempty"`
	APIKey  string `yaml:"api_key,omitempty"`
}

// AgentSection configures the execution loop.
type AgentSection struct {
	MaxIterations       int           `yaml:"max_iterations"`
	MaxProviderAttempts int           `yaml:"max_provider_attempts"`
	MaxContextTokens    int           `yaml:"max_context_tokens"`
	ApprovalTimeout     time.Duration `yaml:"approval_timeout"`
	ClientID            string        `yaml:"client_id"`
	IncompatibleClients []string      `yaml:"incompatible_clients"`
	Platform            string        `yaml:"platform,omitempty"`
}

// BrowserSection configures the Playwright browser.
type BrowserSection struct {
	Headless         *bool         `yaml:"headless,omitempty"`
	ViewportWidth    int           `yaml:"viewport_width"`
	ViewportHeight   int           `yaml:"viewport_height"`
	TimeoutMS        float64       `yaml:"timeout_ms"`
	ProbeTimeout     time.Duration `yaml:"probe_timeout"`
	ScreenshotDir    string        `yaml:"screenshot_dir"`
	MaxContentLength int           `yaml:"max_content_length"`
}

// IsHeadless reports whether the browser runs without a window. Defaults to true.
func (b BrowserSection) IsHeadless() bool {
	return b.Headless == nil || *b.Headless
}

// MemorySection configures the domain memory store.
type MemorySection struct {
	Dir          string `yaml:"dir"`
	MaxPerDomain int    `yaml:"max_per_domain"`
	LookupLimit  int    `yaml:"lookup_limit"`
	LookupTool   string `yaml:"lookup_tool"`
}

// LoggingSection configures the log file.
type LoggingSection struct {
	Level string `yaml:"level"`
	Dir   string `yaml:"dir"`
}

// HomeDir returns the tabpilot data directory: $TABPILOT_HOME or ~/.tabpilot.
func HomeDir() (string, error) {
	if dir := os.Getenv(EnvHome); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(home, ".tabpilot"), nil
}

// DefaultPath returns the config file used when none is given.
func DefaultPath() (string, error) {
	dir, err := HomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	home, err := HomeDir()
	if err != nil {
		home = filepath.Join(os.TempDir(), "tabpilot")
	}

	return &Config{
		LLM: LLMSection{Model: DefaultModel},
		Agent: AgentSection{
			MaxIterations:       50,
			MaxProviderAttempts: 3,
			MaxContextTokens:    history.DefaultMaxTokens,
			ApprovalTimeout:     approval.DefaultTimeout,
			ClientID:            "tabpilot-cli",
			IncompatibleClients: append([]string(nil), retry.DefaultIncompatibleClients...),
		},
		Browser: BrowserSection{
			ViewportWidth:    1280,
			ViewportHeight:   720,
			TimeoutMS:        30000,
			ProbeTimeout:     5 * time.Second,
			ScreenshotDir:    filepath.Join(home, "screenshots"),
			MaxContentLength: 10000,
		},
		Memory: MemorySection{
			Dir:          filepath.Join(home, "memories"),
			MaxPerDomain: 20,
			LookupLimit:  5,
			LookupTool:   "memory_lookup",
		},
		Logging: LoggingSection{
			Level: "info",
			Dir:   filepath.Join(home, "logs"),
		},
		AutoApproval: NewAutoApproval(),
	}
}

// Load reads path (DefaultPath when empty) on top of the defaults, then
// applies .env and environment overrides and validates the result. A missing
// file is not an error.
func Load(path string, envFiles ...string) (*Config, error) {
	if err := loadDotEnv(envFiles...); err != nil {
		return nil, err
	}

	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	cfg, err := readFile(path)
	if err != nil {
		return nil, err
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// LoadFile reads path on top of the defaults without consulting the
// environment. Commands that rewrite the file use it so overrides from the
// environment are not persisted.
func LoadFile(path string) (*Config, error) {
	cfg, err := readFile(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func readFile(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}
	if cfg.AutoApproval == nil {
		cfg.AutoApproval = NewAutoApproval()
	}
	return cfg, nil
}

// loadDotEnv loads the given files, or ./.env when none are given. Variables
// already set in the environment win. A missing default .env is ignored.
func loadDotEnv(files ...string) error {
	if len(files) == 0 {
		if _, err := os.Stat(".env"); err != nil {
			return nil
		}
		files = []string{".env"}
	}
	if err := godotenv.Load(files...); err != nil {
		return fmt.Errorf("failed to load env file: %w", err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv(EnvAPIKey); v != "" {
		c.LLM.APIKey = v
	}
	if v := os.Getenv(EnvBaseURL); v != "" {
		c.LLM.BaseURL = v
	}
	if v := os.Getenv(EnvModel); v != "" {
		c.LLM.Model = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv(EnvHeadless); v != "" {
		headless, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvHeadless, v, err)
		}
		c.Browser.Headless = &headless
	}
	return nil
}

// Validate reports every invalid setting.
func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.LLM.Model) == "" {
		errs = append(errs, errors.New("llm.model is required"))
	}
	if c.Agent.MaxIterations <= 0 {
		errs = append(errs, errors.New("agent.max_iterations must be positive"))
	}
	if c.Agent.MaxProviderAttempts <= 0 {
		errs = append(errs, errors.New("agent.max_provider_attempts must be positive"))
	}
	if c.Agent.MaxContextTokens <= 0 {
		errs = append(errs, errors.New("agent.max_context_tokens must be positive"))
	}
	if c.Agent.ApprovalTimeout < 0 {
		errs = append(errs, errors.New("agent.approval_timeout must not be negative"))
	}
	if _, err := retry.NewStreamingPolicy(c.Agent.IncompatibleClients); err != nil {
		errs = append(errs, fmt.Errorf("agent.incompatible_clients: %w", err))
	}
	if c.Browser.ViewportWidth <= 0 || c.Browser.ViewportHeight <= 0 {
		errs = append(errs, errors.New("browser viewport must be positive"))
	}
	if c.Browser.TimeoutMS < 0 {
		errs = append(errs, errors.New("browser.timeout_ms must not be negative"))
	}
	if c.Memory.Dir == "" {
		errs = append(errs, errors.New("memory.dir is required"))
	}
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, fmt.Errorf("logging.level: %w", err))
	}

	return errors.Join(errs...)
}

// StreamingPolicy compiles the incompatible client patterns.
func (c *Config) StreamingPolicy() (*retry.StreamingPolicy, error) {
	return retry.NewStreamingPolicy(c.Agent.IncompatibleClients)
}

// LogLevel returns the parsed logging level, falling back to info.
func (c *Config) LogLevel() logging.Level {
	level, err := logging.ParseLevel(c.Logging.Level)
	if err != nil {
		return logging.LevelInfo
	}
	return level
}
