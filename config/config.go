// Package config loads the process configuration.
package config

import (
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/gptbridge/pkg/llmfactory"
	"github.com/effective-security/gptbridge/store"
	"github.com/effective-security/x/configloader"
	"github.com/effective-security/x/values"
	"github.com/go-playground/validator/v10"
)

// Environment variables used when no configuration file is provided
const (
	EnvAPIKey  = "OPENAI_API_KEY"
	EnvModel   = "OPENAI_MODEL"
	EnvBaseURL = "OPENAI_BASE_URL"
)

// DefaultModel is the model used when OPENAI_MODEL is not set
const DefaultModel = "gpt-4"

// DefaultProviderName is the name of the provider built from the environment
const DefaultProviderName = "openai"

// Config is the process configuration
type Config struct {
	// LLM specifies the completion API providers
	LLM llmfactory.Config `json:"llm" yaml:"llm"`
	// Sessions specifies the eviction policy of the collaboration sessions
	Sessions Sessions `json:"sessions" yaml:"sessions"`
	// Server specifies the transport
	Server Server `json:"server" yaml:"server"`
}

// Sessions specifies the eviction policy, zero values disable the bounds
type Sessions struct {
	// MaxSessions caps the number of live sessions
	MaxSessions int `json:"max_sessions,omitempty" yaml:"max_sessions,omitempty" validate:"gte=0"`
	// TTL is the idle time after which a session expires, e.g. 30m
	TTL string `json:"ttl,omitempty" yaml:"ttl,omitempty"`
}

// Server specifies the transport
type Server struct {
	// Listen specifies the address of the HTTP transport,
	// if empty the server is served over stdio.
	Listen string `json:"listen,omitempty" yaml:"listen,omitempty"`
}

// Load returns the configuration from the file,
// or from the environment if file is empty.
// The returned configuration is validated.
func Load(file string) (*Config, error) {
	cfg := new(Config)
	if file != "" {
		if err := configloader.UnmarshalAndExpand(file, cfg); err != nil {
			return nil, errors.WithMessagef(err, "failed to load config %s", file)
		}
	}
	if len(cfg.LLM.Providers) == 0 {
		cfg.LLM.Providers = []*llmfactory.ProviderConfig{FromEnv()}
		cfg.LLM.DefaultProvider = DefaultProviderName
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromEnv returns the OpenAI provider configured by the environment
func FromEnv() *llmfactory.ProviderConfig {
	model := values.StringsCoalesce(os.Getenv(EnvModel), DefaultModel)
	return &llmfactory.ProviderConfig{
		Name:            DefaultProviderName,
		APIType:         "OPENAI",
		Token:           os.Getenv(EnvAPIKey),
		BaseURL:         os.Getenv(EnvBaseURL),
		DefaultModel:    model,
		AvailableModels: []string{model},
	}
}

// Validate returns an error if the configuration is not usable
func (c *Config) Validate() error {
	if err := c.LLM.Validate(); err != nil {
		return err
	}
	for _, p := range c.LLM.Providers {
		if p.Token == "" {
			if p.Name == DefaultProviderName {
				return errors.Errorf("missing API key for provider %s: set %s", p.Name, EnvAPIKey)
			}
			return errors.Errorf("missing API key for provider %s", p.Name)
		}
	}
	if err := validator.New().Struct(c.Sessions); err != nil {
		return errors.Wrap(err, "invalid sessions configuration")
	}
	if _, err := c.Sessions.ttl(); err != nil {
		return err
	}
	return nil
}

// StoreOptions returns the eviction policy of the session store
func (c *Config) StoreOptions() store.Options {
	ttl, _ := c.Sessions.ttl()
	return store.Options{
		MaxSessions: c.Sessions.MaxSessions,
		TTL:         ttl,
	}
}

func (s Sessions) ttl() (time.Duration, error) {
	if s.TTL == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s.TTL)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid sessions ttl: %q", s.TTL)
	}
	if d < 0 {
		return 0, errors.Errorf("invalid sessions ttl: %q", s.TTL)
	}
	return d, nil
}
