// Package config handles configuration loading and validation for promptstack.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Supported LLM providers.
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// MaxLLMTimeout is the hard ceiling for a single chat call.
const MaxLLMTimeout = 30 * time.Minute

// DefaultProjectBrief describes the kind of project the agent works on. It is
// placed at the top of every task prompt.
const DefaultProjectBrief = `You are a coding agent. You will be given requirements or a plain user prompt and must implement them in the project described by the file structure below.
The project is a Next.js JavaScript project configured with Tailwind CSS. Every change is built directly in CI, so take extra care that the code builds without errors.
Write clean, component-based code. Do not create files that already exist. If you add an external package, also edit package.json accordingly.
Disable ESLint in any file you create or edit.`

// Config holds the application configuration.
type Config struct {
	LLM     LLMConfig    `yaml:"llm"`
	GitHub  GitHubConfig `yaml:"github"`
	Agent   AgentConfig  `yaml:"agent"`
	Build   BuildConfig  `yaml:"build"`
	DataDir string       `yaml:"-"` // set by caller, not from config file
}

// LLMConfig configures the chat endpoint and its retry policy.
type LLMConfig struct {
	Provider    string        `yaml:"provider"`
	Model       string        `yaml:"model"`
	BaseURL     string        `yaml:"base_url"`
	Temperature *float64      `yaml:"temperature"` // nil = provider default of 0.7
	Timeout     time.Duration `yaml:"timeout"`
	MaxAttempts int           `yaml:"max_attempts"`
	BaseDelay   time.Duration `yaml:"base_delay"`
	MaxDelay    time.Duration `yaml:"max_delay"`
}

// TemperatureOrDefault returns the configured temperature or 0.7.
func (l LLMConfig) TemperatureOrDefault() float64 {
	if l.Temperature == nil {
		return 0.7
	}
	return *l.Temperature
}

// GitHubConfig locates repositories and the CI workflow that judges them.
type GitHubConfig struct {
	APIURL        string `yaml:"api_url"`
	Owner         string `yaml:"owner"`
	DefaultBranch string `yaml:"default_branch"`
	Workflow      string `yaml:"workflow"`
}

// AgentConfig bounds the orchestration loop.
type AgentConfig struct {
	MaxLoops          int           `yaml:"max_loops"`
	MaxAttempts       int           `yaml:"max_attempts"`
	HistoryWindow     int           `yaml:"history_window"`
	ReadConcurrency   int           `yaml:"read_concurrency"`
	ReadTimeout       time.Duration `yaml:"read_timeout"`
	AlwaysRead        []string      `yaml:"always_read"`
	ProtectedPaths    []string      `yaml:"protected_paths"`
	ExpandFirstPrompt *bool         `yaml:"expand_first_prompt"` // nil = true
	ProjectBrief      string        `yaml:"project_brief"`
}

// ShouldExpandFirstPrompt reports whether the first prompt of a project is
// expanded into a requirement brief.
func (a AgentConfig) ShouldExpandFirstPrompt() bool {
	return a.ExpandFirstPrompt == nil || *a.ExpandFirstPrompt
}

// BuildConfig controls CI polling and log compaction.
type BuildConfig struct {
	PollInterval time.Duration `yaml:"poll_interval"`
	Timeout      time.Duration `yaml:"timeout"`
	ContextLines int           `yaml:"context_lines"`
	MaxLogChars  int           `yaml:"max_log_chars"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		LLM: LLMConfig{
			Provider:    ProviderOpenAI,
			Model:       "blackboxai/deepseek/deepseek-r1:free",
			BaseURL:     "https://api.blackbox.ai/v1",
			Timeout:     5 * time.Minute,
			MaxAttempts: 3,
			BaseDelay:   time.Second,
			MaxDelay:    10 * time.Second,
		},
		GitHub: GitHubConfig{
			APIURL:        "https://api.github.com",
			DefaultBranch: "main",
			Workflow:      "nextjs.yml",
		},
		Agent: AgentConfig{
			MaxLoops:        10,
			MaxAttempts:     5,
			HistoryWindow:   5,
			ReadConcurrency: 5,
			ReadTimeout:     10 * time.Second,
			AlwaysRead:      []string{"package.json"},
			ProtectedPaths:  []string{".github/workflows/**"},
			ProjectBrief:    DefaultProjectBrief,
		},
		Build: BuildConfig{
			PollInterval: 5 * time.Second,
			Timeout:      120 * time.Second,
			ContextLines: 5,
			MaxLogChars:  1000,
		},
	}
}

// Load reads configuration from the given path and sets the data directory.
// If configPath is empty or doesn't exist, returns defaults with the provided dataDir.
func Load(configPath, dataDir string) (*Config, error) {
	cfg := DefaultConfig()
	cfg.DataDir = dataDir

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			data, err := os.ReadFile(configPath)
			if err != nil {
				return nil, fmt.Errorf("read config file: %w", err)
			}

			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("parse config file: %w", err)
			}

			// Re-set dataDir since Unmarshal may have cleared it
			cfg.DataDir = dataDir
		}
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// applyDefaults sets default values for any unset configuration options.
func (c *Config) applyDefaults() {
	d := DefaultConfig()

	setString(&c.LLM.Provider, d.LLM.Provider)
	setString(&c.LLM.Model, d.LLM.Model)
	if c.LLM.Provider == ProviderOpenAI {
		setString(&c.LLM.BaseURL, d.LLM.BaseURL)
	}
	setDuration(&c.LLM.Timeout, d.LLM.Timeout)
	setInt(&c.LLM.MaxAttempts, d.LLM.MaxAttempts)
	setDuration(&c.LLM.BaseDelay, d.LLM.BaseDelay)
	setDuration(&c.LLM.MaxDelay, d.LLM.MaxDelay)

	setString(&c.GitHub.APIURL, d.GitHub.APIURL)
	setString(&c.GitHub.DefaultBranch, d.GitHub.DefaultBranch)
	setString(&c.GitHub.Workflow, d.GitHub.Workflow)

	setInt(&c.Agent.MaxLoops, d.Agent.MaxLoops)
	setInt(&c.Agent.MaxAttempts, d.Agent.MaxAttempts)
	setInt(&c.Agent.HistoryWindow, d.Agent.HistoryWindow)
	setInt(&c.Agent.ReadConcurrency, d.Agent.ReadConcurrency)
	setDuration(&c.Agent.ReadTimeout, d.Agent.ReadTimeout)
	setString(&c.Agent.ProjectBrief, d.Agent.ProjectBrief)
	if c.Agent.AlwaysRead == nil {
		c.Agent.AlwaysRead = d.Agent.AlwaysRead
	}
	if c.Agent.ProtectedPaths == nil {
		c.Agent.ProtectedPaths = d.Agent.ProtectedPaths
	}

	setDuration(&c.Build.PollInterval, d.Build.PollInterval)
	setDuration(&c.Build.Timeout, d.Build.Timeout)
	setInt(&c.Build.ContextLines, d.Build.ContextLines)
	setInt(&c.Build.MaxLogChars, d.Build.MaxLogChars)
}

func setString(dst *string, def string) {
	if *dst == "" {
		*dst = def
	}
}

func setInt(dst *int, def int) {
	if *dst == 0 {
		*dst = def
	}
}

func setDuration(dst *time.Duration, def time.Duration) {
	if *dst == 0 {
		*dst = def
	}
}

// Validate checks that the configuration is structurally valid.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data directory cannot be empty")
	}

	switch c.LLM.Provider {
	case ProviderOpenAI:
		if c.LLM.BaseURL == "" {
			return fmt.Errorf("llm.base_url is required for provider %q", c.LLM.Provider)
		}
	case ProviderGemini:
	default:
		return fmt.Errorf("llm.provider %q is not supported (want %s or %s)", c.LLM.Provider, ProviderOpenAI, ProviderGemini)
	}

	if c.LLM.Timeout > MaxLLMTimeout {
		return fmt.Errorf("llm.timeout %s exceeds the maximum of %s", c.LLM.Timeout, MaxLLMTimeout)
	}
	if c.LLM.MaxDelay < c.LLM.BaseDelay {
		return fmt.Errorf("llm.max_delay must not be less than llm.base_delay")
	}

	for name, v := range map[string]int{
		"llm.max_attempts":       c.LLM.MaxAttempts,
		"agent.max_loops":        c.Agent.MaxLoops,
		"agent.max_attempts":     c.Agent.MaxAttempts,
		"agent.history_window":   c.Agent.HistoryWindow,
		"agent.read_concurrency": c.Agent.ReadConcurrency,
		"build.context_lines":    c.Build.ContextLines,
		"build.max_log_chars":    c.Build.MaxLogChars,
	} {
		if v < 1 {
			return fmt.Errorf("%s must be at least 1", name)
		}
	}

	if c.Build.PollInterval > c.Build.Timeout {
		return fmt.Errorf("build.poll_interval must not exceed build.timeout")
	}

	if c.GitHub.Workflow == "" {
		return fmt.Errorf("github.workflow cannot be empty")
	}

	return nil
}

// ProjectsDir returns the directory holding per-project records.
func (c *Config) ProjectsDir() string {
	return filepath.Join(c.DataDir, "projects")
}

// LocksDir returns the directory holding per-project lock files.
func (c *Config) LocksDir() string {
	return filepath.Join(c.DataDir, "locks")
}
