// Package config loads the service configuration from a YAML file with
// environment overrides for secrets and deployment-specific values.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full service configuration.
type Config struct {
	// Server configuration
	Server ServerConfig `yaml:"server"`

	// Store selects and configures the session context backend.
	Store StoreConfig `yaml:"store"`

	// Model selects and configures the completion backend.
	Model ModelConfig `yaml:"model"`

	// Gateway configures the upstream travel search gateway. Empty base URL
	// means the bundled datasets serve all tool calls.
	Gateway GatewayConfig `yaml:"gateway"`

	// Orchestrator tunes the turn pipeline.
	Orchestrator OrchestratorConfig `yaml:"orchestrator"`

	// RateLimit throttles the turn API.
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// StoreConfig selects the context-store backend.
type StoreConfig struct {
	// Backend is "memory", "redis", or "firestore".
	Backend string `yaml:"backend"`

	// MaxHistoryTurns bounds the model-facing conversation window.
	MaxHistoryTurns int `yaml:"max_history_turns"`
	// MaxSearchRecords bounds the per-session search history.
	MaxSearchRecords int `yaml:"max_search_records"`
	// MaxLogTurns bounds the analytics turn log.
	MaxLogTurns int `yaml:"max_log_turns"`

	// SessionTTL expires idle sessions (memory and redis backends).
	SessionTTL time.Duration `yaml:"session_ttl"`

	Redis     RedisConfig     `yaml:"redis"`
	Firestore FirestoreConfig `yaml:"firestore"`
}

// RedisConfig holds redis backend settings.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

// FirestoreConfig holds firestore backend settings.
type FirestoreConfig struct {
	Project    string `yaml:"project"`
	Collection string `yaml:"collection"`
}

// ModelConfig selects the completion backend.
type ModelConfig struct {
	// Provider is "openai", "sagemaker", or "mock".
	Provider string `yaml:"provider"`

	OpenAIKey   string `yaml:"openai_key"`
	OpenAIModel string `yaml:"openai_model"`

	SageMakerEndpoint string `yaml:"sagemaker_endpoint"`
	AWSRegion         string `yaml:"aws_region"`

	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float32 `yaml:"temperature"`
}

// GatewayConfig holds the search gateway settings.
type GatewayConfig struct {
	BaseURL string        `yaml:"base_url"`
	APIKey  string        `yaml:"api_key"`
	Timeout time.Duration `yaml:"timeout"`
}

// OrchestratorConfig tunes the turn pipeline.
type OrchestratorConfig struct {
	MaxIterations int           `yaml:"max_iterations"`
	RetryAttempts int           `yaml:"retry_attempts"`
	ToolTimeout   time.Duration `yaml:"tool_timeout"`
	ModelTimeout  time.Duration `yaml:"model_timeout"`
}

// RateLimitConfig throttles the turn API per session and globally.
type RateLimitConfig struct {
	PerSecond float64 `yaml:"per_second"`
	Burst     int     `yaml:"burst"`
}

// Load reads the YAML file at path, applies environment overrides and
// defaults. An empty path loads defaults plus environment only.
func Load(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyEnv fills secrets and deployment values from the environment when the
// file left them empty.
func (c *Config) applyEnv() {
	if c.Model.OpenAIKey == "" {
		c.Model.OpenAIKey = os.Getenv("OPENAI_API_KEY")
	}
	if c.Model.SageMakerEndpoint == "" {
		c.Model.SageMakerEndpoint = os.Getenv("SAGEMAKER_ENDPOINT")
	}
	if c.Model.AWSRegion == "" {
		c.Model.AWSRegion = os.Getenv("AWS_REGION")
	}
	if c.Store.Redis.Addr == "" {
		c.Store.Redis.Addr = os.Getenv("REDIS_ADDR")
	}
	if c.Store.Redis.Password == "" {
		c.Store.Redis.Password = os.Getenv("REDIS_PASSWORD")
	}
	if c.Store.Firestore.Project == "" {
		c.Store.Firestore.Project = os.Getenv("GCP_PROJECT")
	}
	if c.Gateway.APIKey == "" {
		c.Gateway.APIKey = os.Getenv("TRAVEL_GATEWAY_API_KEY")
	}
	if c.Gateway.BaseURL == "" {
		c.Gateway.BaseURL = os.Getenv("TRAVEL_GATEWAY_URL")
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 15 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 60 * time.Second
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if c.Store.Backend == "" {
		c.Store.Backend = "memory"
	}
	if c.Store.MaxHistoryTurns == 0 {
		c.Store.MaxHistoryTurns = 20
	}
	if c.Store.MaxSearchRecords == 0 {
		c.Store.MaxSearchRecords = 25
	}
	if c.Store.MaxLogTurns == 0 {
		c.Store.MaxLogTurns = 200
	}
	if c.Store.SessionTTL == 0 {
		c.Store.SessionTTL = 24 * time.Hour
	}
	if c.Store.Firestore.Collection == "" {
		c.Store.Firestore.Collection = "session-contexts"
	}
	if c.Model.Provider == "" {
		c.Model.Provider = "openai"
	}
	if c.Model.MaxTokens == 0 {
		c.Model.MaxTokens = 1024
	}
	if c.Model.Temperature == 0 {
		c.Model.Temperature = 0.7
	}
	if c.Gateway.Timeout == 0 {
		c.Gateway.Timeout = 10 * time.Second
	}
	if c.Orchestrator.MaxIterations == 0 {
		c.Orchestrator.MaxIterations = 8
	}
	if c.Orchestrator.RetryAttempts == 0 {
		c.Orchestrator.RetryAttempts = 3
	}
	if c.Orchestrator.ToolTimeout == 0 {
		c.Orchestrator.ToolTimeout = 10 * time.Second
	}
	if c.Orchestrator.ModelTimeout == 0 {
		c.Orchestrator.ModelTimeout = 30 * time.Second
	}
	if c.RateLimit.PerSecond == 0 {
		c.RateLimit.PerSecond = 5
	}
	if c.RateLimit.Burst == 0 {
		c.RateLimit.Burst = 10
	}
}

// Validate checks cross-field requirements.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case "memory":
	case "redis":
		if c.Store.Redis.Addr == "" {
			return fmt.Errorf("store.redis.addr is required for the redis backend")
		}
	case "firestore":
		if c.Store.Firestore.Project == "" {
			return fmt.Errorf("store.firestore.project is required for the firestore backend")
		}
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}

	switch c.Model.Provider {
	case "mock":
	case "openai":
		if c.Model.OpenAIKey == "" {
			return fmt.Errorf("model.openai_key (or OPENAI_API_KEY) is required for the openai provider")
		}
	case "sagemaker":
		if c.Model.SageMakerEndpoint == "" {
			return fmt.Errorf("model.sagemaker_endpoint is required for the sagemaker provider")
		}
	default:
		return fmt.Errorf("unknown model provider %q", c.Model.Provider)
	}
	return nil
}
