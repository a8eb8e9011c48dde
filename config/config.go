package config

import (
	"fmt"
	"time"

	"github.com/BurntSushi/toml"
)

type ServerConfig struct {
	Port int  `toml:"port"`
	Demo bool `toml:"demo"` // seed demo emails at startup
}

type AIConfig struct {
	Provider       string `toml:"provider"` // "ollama" or "openai"
	Model          string `toml:"model"`
	OllamaURL      string `toml:"ollama_url"`
	OpenAIURL      string `toml:"openai_url"`
	OpenAIKey      string `toml:"openai_api_key"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

type CacheConfig struct {
	DigestTTLMinutes int `toml:"digest_ttl_minutes"`
}

type RateLimitConfig struct {
	Requests      int `toml:"requests"`
	WindowSeconds int `toml:"window_seconds"`
}

type StorageConfig struct {
	DataDir string `toml:"data_dir"`
}

type Config struct {
	Server    ServerConfig    `toml:"server"`
	AI        AIConfig        `toml:"ai"`
	Cache     CacheConfig     `toml:"cache"`
	RateLimit RateLimitConfig `toml:"ratelimit"`
	Storage   StorageConfig   `toml:"storage"`
}

// Default returns a config with every field at its default value.
func Default() *Config {
	var config Config

	config.Server.Port = 8000
	config.Server.Demo = true

	config.AI.Provider = "ollama"
	config.AI.Model = "llama3.2"
	config.AI.OllamaURL = "http://localhost:11434"
	config.AI.OpenAIURL = "https://api.openai.com/v1"
	config.AI.TimeoutSeconds = 120

	config.Cache.DigestTTLMinutes = 60

	config.RateLimit.Requests = 100
	config.RateLimit.WindowSeconds = 60

	config.Storage.DataDir = "./data"

	return &config
}

// LoadConfig reads a TOML config file over the defaults.
func LoadConfig(filepath string) (*Config, error) {
	config := Default()

	_, err := toml.DecodeFile(filepath, config)
	if err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks that the provider selection is usable.
func (c *Config) Validate() error {
	switch c.AI.Provider {
	case "ollama":
		if c.AI.OllamaURL == "" {
			return fmt.Errorf("ai.ollama_url is required for the ollama provider")
		}
	case "openai":
		if c.AI.OpenAIKey == "" {
			return fmt.Errorf("ai.openai_api_key is required for the openai provider")
		}
	default:
		return fmt.Errorf("unknown ai.provider %q", c.AI.Provider)
	}

	if c.AI.Model == "" {
		return fmt.Errorf("ai.model is required")
	}

	return nil
}

// Timeout returns the AI request timeout as a duration.
func (a *AIConfig) Timeout() time.Duration {
	if a.TimeoutSeconds <= 0 {
		return 120 * time.Second
	}
	return time.Duration(a.TimeoutSeconds) * time.Second
}

// DigestTTL returns how long cached digests stay valid.
func (c *CacheConfig) DigestTTL() time.Duration {
	if c.DigestTTLMinutes <= 0 {
		return time.Hour
	}
	return time.Duration(c.DigestTTLMinutes) * time.Minute
}

// RateWindow returns the rate limit window as a duration.
func (r *RateLimitConfig) RateWindow() time.Duration {
	if r.WindowSeconds <= 0 {
		return time.Minute
	}
	return time.Duration(r.WindowSeconds) * time.Second
}
