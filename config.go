package modelbridge

import (
	"fmt"
	"net/url"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the top-level library configuration. API keys configured here sit
// at the bottom of the credential precedence order, below explicit overrides
// and environment variables.
type Config struct {
	DefaultModel string `yaml:"default_model"`

	OpenAI ProviderConfig `yaml:"openai"`
	Gemini ProviderConfig `yaml:"gemini"`
}

// ProviderConfig configures a single provider backend.
type ProviderConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

// LoadConfig reads and parses a YAML config file.
// Environment variables in the format ${VAR} are expanded before parsing.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("modelbridge: read config: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return Config{}, fmt.Errorf("modelbridge: parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate checks the config for consistency.
func (c Config) Validate() error {
	checks := []struct {
		name string
		url  string
	}{
		{"openai", c.OpenAI.BaseURL},
		{"gemini", c.Gemini.BaseURL},
	}
	for _, ck := range checks {
		if ck.url == "" {
			continue
		}
		u, err := url.Parse(ck.url)
		if err != nil {
			return fmt.Errorf("modelbridge: config: %s base_url: %w", ck.name, err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("modelbridge: config: %s base_url: unsupported scheme %q", ck.name, u.Scheme)
		}
	}
	return nil
}

// apiKeyFor returns the configured key for a provider, if any.
func (c Config) apiKeyFor(id ProviderID) string {
	switch id {
	case ProviderGemini:
		return c.Gemini.APIKey
	default:
		return c.OpenAI.APIKey
	}
}
