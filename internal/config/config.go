// Package config loads and validates the service configuration from a
// YAML or JSON5 file with environment variable expansion, plus environment
// overrides for secrets. Configuration is read once at startup.
package config

import (
	"fmt"
	"os"
	"time"
)

// Config is the root service configuration.
type Config struct {
	Server       ServerConfig       `yaml:"server" json:"server"`
	Log          LogConfig          `yaml:"log" json:"log"`
	SessionStore SessionStoreConfig `yaml:"session_store" json:"session_store"`
	Providers    ProvidersConfig    `yaml:"providers" json:"providers"`
	Backend      BackendConfig      `yaml:"backend" json:"backend"`
	Ledger       LedgerConfig       `yaml:"ledger" json:"ledger"`
	ObjectStore  ObjectStoreConfig  `yaml:"object_store" json:"object_store"`
	Agent        AgentConfig        `yaml:"agent" json:"agent"`
}

// ServerConfig configures the HTTP gateway.
type ServerConfig struct {
	Host string `yaml:"host" json:"host"`
	Port int    `yaml:"port" json:"port"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
}

// SessionStoreConfig configures the Redis-backed session memory.
type SessionStoreConfig struct {
	// URL is the Redis connection URL (redis://...).
	URL string `yaml:"url" json:"url"`

	// HistoryLimit bounds the conversation log length.
	HistoryLimit int `yaml:"history_limit" json:"history_limit"`

	// HistoryTTL is the conversation log TTL from last write.
	HistoryTTL time.Duration `yaml:"history_ttl" json:"history_ttl"`

	// StateTTL is the execution state TTL; shorter than the log TTL.
	StateTTL time.Duration `yaml:"state_ttl" json:"state_ttl"`

	// ObservationLimit bounds the tool observation ring.
	ObservationLimit int `yaml:"observation_limit" json:"observation_limit"`

	// LockTTL is the advisory session lock lease duration.
	LockTTL time.Duration `yaml:"lock_ttl" json:"lock_ttl"`

	// LockTimeout bounds the wait for a busy session lock.
	LockTimeout time.Duration `yaml:"lock_timeout" json:"lock_timeout"`
}

// ProviderConfig configures a single LLM provider.
type ProviderConfig struct {
	APIKey  string `yaml:"api_key" json:"api_key"`
	Model   string `yaml:"model" json:"model"`
	BaseURL string `yaml:"base_url" json:"base_url"`
}

// ProvidersConfig configures the LLM providers and defaults.
type ProvidersConfig struct {
	OpenAI    ProviderConfig `yaml:"openai" json:"openai"`
	Anthropic ProviderConfig `yaml:"anthropic" json:"anthropic"`
	Gemini    ProviderConfig `yaml:"gemini" json:"gemini"`

	// DefaultText names the provider used for text when the caller
	// expresses no preference.
	DefaultText string `yaml:"default_text" json:"default_text"`

	// DefaultImage names the provider used for image generation.
	DefaultImage string `yaml:"default_image" json:"default_image"`

	// Timeout applies to each model call.
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
}

// BackendConfig configures the external tool backend API.
type BackendConfig struct {
	URL          string        `yaml:"url" json:"url"`
	ServiceToken string        `yaml:"service_token" json:"service_token"`
	Timeout      time.Duration `yaml:"timeout" json:"timeout"`
}

// LedgerConfig configures the credit ledger service.
type LedgerConfig struct {
	URL     string        `yaml:"url" json:"url"`
	Token   string        `yaml:"token" json:"token"`
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
}

// ObjectStoreConfig configures the S3-compatible object store.
type ObjectStoreConfig struct {
	Endpoint      string `yaml:"endpoint" json:"endpoint"`
	Region        string `yaml:"region" json:"region"`
	Bucket        string `yaml:"bucket" json:"bucket"`
	AccessKey     string `yaml:"access_key" json:"access_key"`
	SecretKey     string `yaml:"secret_key" json:"secret_key"`
	PublicBaseURL string `yaml:"public_base_url" json:"public_base_url"`
}

// AgentConfig configures the kernel loop and the HITL gate.
type AgentConfig struct {
	// MaxIterations caps loop iterations per run.
	MaxIterations int `yaml:"max_iterations" json:"max_iterations"`

	// MaxWallClock caps total run duration.
	MaxWallClock time.Duration `yaml:"max_wall_clock" json:"max_wall_clock"`

	// IterationTimeout soft-caps a single iteration.
	IterationTimeout time.Duration `yaml:"iteration_timeout" json:"iteration_timeout"`

	// CallTimeout applies to each external call.
	CallTimeout time.Duration `yaml:"call_timeout" json:"call_timeout"`

	// BudgetThreshold is the dollar amount above which spending tools
	// require confirmation.
	BudgetThreshold float64 `yaml:"budget_threshold" json:"budget_threshold"`

	// ClarityThreshold is the minimum LLM clarity score below which a
	// parameter triggers a selection request.
	ClarityThreshold float64 `yaml:"clarity_threshold" json:"clarity_threshold"`

	// ReflectionEnabled turns on the post-observation critique step.
	ReflectionEnabled bool `yaml:"reflection_enabled" json:"reflection_enabled"`

	// MaxRetries bounds tool retry attempts beyond the first.
	MaxRetries int `yaml:"max_retries" json:"max_retries"`
}

// Default returns the baseline configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{Host: "0.0.0.0", Port: 8080},
		Log:    LogConfig{Level: "info", Format: "json"},
		SessionStore: SessionStoreConfig{
			URL:              "redis://localhost:6379/0",
			HistoryLimit:     50,
			HistoryTTL:       24 * time.Hour,
			StateTTL:         time.Hour,
			ObservationLimit: 100,
			LockTTL:          30 * time.Second,
			LockTimeout:      30 * time.Second,
		},
		Providers: ProvidersConfig{
			OpenAI:       ProviderConfig{Model: "gpt-4o"},
			Anthropic:    ProviderConfig{Model: "claude-sonnet-4-20250514"},
			Gemini:       ProviderConfig{Model: "gemini-2.0-flash"},
			DefaultText:  "openai",
			DefaultImage: "openai",
			Timeout:      30 * time.Second,
		},
		Backend: BackendConfig{Timeout: 30 * time.Second},
		Ledger:  LedgerConfig{Timeout: 10 * time.Second},
		Agent: AgentConfig{
			MaxIterations:     10,
			MaxWallClock:      10 * time.Minute,
			IterationTimeout:  120 * time.Second,
			CallTimeout:       30 * time.Second,
			BudgetThreshold:   50,
			ClarityThreshold:  0.9,
			ReflectionEnabled: true,
			MaxRetries:        3,
		},
	}
}

// applyEnv overlays secret-bearing environment variables onto the config.
// Each variable is read once at startup.
func (c *Config) applyEnv() {
	set := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	set(&c.SessionStore.URL, "SESSION_STORE_URL")
	set(&c.Providers.OpenAI.APIKey, "OPENAI_API_KEY")
	set(&c.Providers.Anthropic.APIKey, "ANTHROPIC_API_KEY")
	set(&c.Providers.Gemini.APIKey, "GEMINI_API_KEY")
	set(&c.Backend.URL, "BACKEND_API_URL")
	set(&c.Backend.ServiceToken, "BACKEND_SERVICE_TOKEN")
	set(&c.Ledger.URL, "CREDIT_LEDGER_URL")
	set(&c.Ledger.Token, "CREDIT_LEDGER_TOKEN")
	set(&c.ObjectStore.Endpoint, "OBJECT_STORE_URL")
	set(&c.ObjectStore.AccessKey, "OBJECT_STORE_ACCESS_KEY")
	set(&c.ObjectStore.SecretKey, "OBJECT_STORE_SECRET_KEY")
	set(&c.ObjectStore.Bucket, "OBJECT_STORE_BUCKET")
}

// Validate checks the configuration for startup-blocking problems.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.SessionStore.URL == "" {
		return fmt.Errorf("session_store.url is required")
	}
	if c.SessionStore.HistoryLimit <= 0 {
		return fmt.Errorf("session_store.history_limit must be positive")
	}
	if c.SessionStore.StateTTL > c.SessionStore.HistoryTTL {
		return fmt.Errorf("session_store.state_ttl must not exceed history_ttl")
	}
	if c.Agent.MaxIterations <= 0 {
		return fmt.Errorf("agent.max_iterations must be positive")
	}
	if c.Agent.ClarityThreshold < 0 || c.Agent.ClarityThreshold > 1 {
		return fmt.Errorf("agent.clarity_threshold must be in [0, 1]")
	}
	return nil
}
