package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Config holds all kindred configuration.
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Database DatabaseConfig `toml:"database"`
	LLM      LLMConfig      `toml:"llm"`
	Security SecurityConfig `toml:"security"`
	Memory   MemoryConfig   `toml:"memory"`
}

type ServerConfig struct {
	Bind string `toml:"bind"`
	Port int    `toml:"port"`
}

type DatabaseConfig struct {
	Path string `toml:"path"`
}

type LLMConfig struct {
	Provider       string `toml:"provider"` // "anthropic", "ollama", "none"
	Model          string `toml:"model"`
	OllamaURL      string `toml:"ollama_url"`
	OllamaModel    string `toml:"ollama_model"` // e.g. "llama3.2"
	AnthropicKey   string `toml:"anthropic_key"`
	SummaryTimeout int    `toml:"summary_timeout"` // seconds
}

type SecurityConfig struct {
	// MasterKey enables at-rest encryption of memory content. Empty
	// means content is stored unencrypted.
	MasterKey string `toml:"master_key"`
	// Tokens maps bearer tokens to user IDs.
	Tokens map[string]string `toml:"tokens"`
}

type MemoryConfig struct {
	MaxContextMemories int     `toml:"max_context_memories"`
	RelevanceThreshold float64 `toml:"relevance_threshold"`
	CleanupDays        int     `toml:"cleanup_days"`
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Bind: "127.0.0.1",
			Port: 38180,
		},
		Database: DatabaseConfig{
			Path: "", // resolved at runtime via store.DefaultDBPath()
		},
		LLM: LLMConfig{
			Provider:       "anthropic",
			SummaryTimeout: 30,
		},
		Memory: MemoryConfig{
			MaxContextMemories: 5,
			RelevanceThreshold: 0.6,
			CleanupDays:        30,
		},
	}
}

// Load reads a TOML config file, layered over defaults. A missing file
// is not an error: defaults apply.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// ListenAddr returns the bind:port address string.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Bind, c.Server.Port)
}
