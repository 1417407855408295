// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

func Load() (*Config, error) {
	loadEnvFile()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath("../../configs")
	viper.AddConfigPath(".")

	// Enable ENV override like AGENT_API_KEY
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	envConfigFile := fmt.Sprintf("config.%s", env)
	viper.SetConfigName(envConfigFile)
	_ = viper.MergeInConfig() // ignore error if not found

	expandEnvVars(viper.GetViper())

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	return &cfg, nil
}

// loadEnvFile tries .env from the working directory upward, plus the
// project root found via go.mod.
func loadEnvFile() {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env",
		"../../../.env",
	}

	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

// expandEnvVars resolves ${VAR} placeholders left in yaml values.
func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		val := v.Get(key)

		if strVal, ok := val.(string); ok {
			if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
				expanded := os.ExpandEnv(strVal)
				if expanded != strVal && expanded != "" {
					v.Set(key, expanded)
				}
			}
		}
	}
}

// overrideEmptyConfig falls back to well-known env vars when yaml left a
// credential empty.
func overrideEmptyConfig(cfg *Config) {
	if cfg.Agent.Endpoint == "" {
		cfg.Agent.Endpoint = os.Getenv("AGENT_ENDPOINT")
	}
	if cfg.Agent.AgentID == "" {
		cfg.Agent.AgentID = os.Getenv("AGENT_ID")
	}
	if cfg.Agent.APIKey == "" {
		cfg.Agent.APIKey = os.Getenv("AGENT_API_KEY")
	}
	if cfg.ChatAPI.Endpoint == "" {
		cfg.ChatAPI.Endpoint = os.Getenv("CHAT_API_ENDPOINT")
	}
	if cfg.ChatAPI.Deployment == "" {
		cfg.ChatAPI.Deployment = os.Getenv("CHAT_API_DEPLOYMENT")
	}
	if cfg.ChatAPI.APIKey == "" {
		cfg.ChatAPI.APIKey = os.Getenv("CHAT_API_KEY")
	}
	if cfg.Cache.Address == "" {
		cfg.Cache.Address = os.Getenv("REDIS_ADDRESS")
	}
}

func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "regsearch"
	}
	if cfg.Search.MaxRetries == 0 {
		cfg.Search.MaxRetries = 3
	}
	if cfg.Search.PollInterval == 0 {
		cfg.Search.PollInterval = 1 * time.Second
	}
	if cfg.Search.GuidanceDelay == 0 {
		cfg.Search.GuidanceDelay = 2 * time.Second
	}
	if cfg.ChatAPI.MaxTokens == 0 {
		cfg.ChatAPI.MaxTokens = 2000
	}
	if cfg.ChatAPI.Temperature == 0 {
		cfg.ChatAPI.Temperature = 0.1
	}
	if cfg.Cache.TTL == 0 {
		cfg.Cache.TTL = 6 * time.Hour
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Server.Address == "" {
		cfg.Server.Address = ":8084"
	}
	if cfg.Server.RequestTimeout == 0 {
		cfg.Server.RequestTimeout = 5 * time.Minute
	}
}
