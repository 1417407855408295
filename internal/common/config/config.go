// internal/common/config/config.go
package config

import "time"

// Config is the main application configuration struct.
type Config struct {
	App     AppConfig     `mapstructure:"app"`
	Agent   AgentConfig   `mapstructure:"agent"`
	ChatAPI ChatAPIConfig `mapstructure:"chat_api"`
	Cache   CacheConfig   `mapstructure:"cache"`
	Search  SearchConfig  `mapstructure:"search"`
	Logging LoggingConfig `mapstructure:"logging"`
	Server  ServerConfig  `mapstructure:"server"`
}

// --- Core App Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

// AgentConfig holds credentials for the conversational search agent.
type AgentConfig struct {
	Endpoint string `mapstructure:"endpoint"`
	AgentID  string `mapstructure:"agent_id"`
	APIKey   string `mapstructure:"api_key"`
}

// Configured reports whether every required agent credential is present.
func (a AgentConfig) Configured() bool {
	return a.Endpoint != "" && a.AgentID != "" && a.APIKey != ""
}

// ChatAPIConfig holds credentials for the chat-completion service used by
// the structuring step.
type ChatAPIConfig struct {
	Endpoint    string  `mapstructure:"endpoint"`
	Deployment  string  `mapstructure:"deployment"`
	APIKey      string  `mapstructure:"api_key"`
	MaxTokens   int     `mapstructure:"max_tokens"`
	Temperature float64 `mapstructure:"temperature"`
}

// Configured reports whether the completion service can be called.
func (c ChatAPIConfig) Configured() bool {
	return c.Endpoint != "" && c.Deployment != "" && c.APIKey != ""
}

// CacheConfig holds the optional Redis search-result cache settings.
type CacheConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Address  string        `mapstructure:"address"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// SearchConfig tunes pipeline pacing.
type SearchConfig struct {
	MaxRetries    int           `mapstructure:"max_retries"`
	PollInterval  time.Duration `mapstructure:"poll_interval"`
	GuidanceDelay time.Duration `mapstructure:"guidance_delay"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type ServerConfig struct {
	Address        string        `mapstructure:"address"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// ==========================
// Configuration Status
// ==========================

// Status is the explicit configuration-status value produced at startup.
// Diagnostic logging of credential state belongs to the caller, not to
// constructors.
type Status struct {
	AgentConfigured   bool
	ChatAPIConfigured bool
	Missing           []string
}

// FallbackOnly reports whether the pipeline must run without any network
// calls (permanent fallback mode).
func (s Status) FallbackOnly() bool {
	return !s.AgentConfigured
}

// ValidateConfiguration inspects external-service credentials and returns
// an explicit status instead of logging from the constructor path.
func ValidateConfiguration(cfg *Config) Status {
	status := Status{
		AgentConfigured:   cfg.Agent.Configured(),
		ChatAPIConfigured: cfg.ChatAPI.Configured(),
	}
	if cfg.Agent.Endpoint == "" {
		status.Missing = append(status.Missing, "agent.endpoint")
	}
	if cfg.Agent.AgentID == "" {
		status.Missing = append(status.Missing, "agent.agent_id")
	}
	if cfg.Agent.APIKey == "" {
		status.Missing = append(status.Missing, "agent.api_key")
	}
	if cfg.ChatAPI.Endpoint == "" {
		status.Missing = append(status.Missing, "chat_api.endpoint")
	}
	if cfg.ChatAPI.Deployment == "" {
		status.Missing = append(status.Missing, "chat_api.deployment")
	}
	if cfg.ChatAPI.APIKey == "" {
		status.Missing = append(status.Missing, "chat_api.api_key")
	}
	return status
}
