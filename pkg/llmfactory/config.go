package llmfactory

import (
	"slices"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/x/configloader"
	"github.com/go-playground/validator/v10"
)

type Config struct {
	// Providers specifies the list of providers to use
	Providers []*ProviderConfig `json:"providers" yaml:"providers" validate:"dive"`
	// DefaultProvider specifies the default provider to use
	DefaultProvider string `json:"default_provider,omitempty" yaml:"default_provider,omitempty"`
	// ToolModels specifies the mapping of tools to models.
	// key is the tool name, value is the list of preferred model names.
	// Use `default: <model_name>` as the default model for tools.
	ToolModels map[string][]string `json:"tool_models,omitempty" yaml:"tool_models,omitempty"`
}

// ProviderConfig specifies one upstream completion API.
type ProviderConfig struct {
	Name string `json:"name" yaml:"name" validate:"required"`
	// APIType specifies the type of API to use: OPENAI|ANTHROPIC|GOOGLEAI
	APIType         string   `json:"api_type" yaml:"api_type" validate:"required,oneof=OPENAI OPEN_AI ANTHROPIC GOOGLEAI"`
	Token           string   `json:"token,omitempty" yaml:"token,omitempty"`
	BaseURL         string   `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	DefaultModel    string   `json:"default_model,omitempty" yaml:"default_model,omitempty"`
	AvailableModels []string `json:"available_models,omitempty" yaml:"available_models,omitempty"`
	// MaxRetries is the number of SDK retries, the default 0 disables them.
	MaxRetries int `json:"max_retries,omitempty" yaml:"max_retries,omitempty" validate:"gte=0"`
}

// FindModel returns the first of the models served by the provider,
// or the provider default.
func (c *ProviderConfig) FindModel(models ...string) string {
	for _, model := range models {
		if slices.Contains(c.AvailableModels, model) {
			return model
		}
	}
	return c.DefaultModel
}

// Validate returns an error if the configuration is not usable.
func (c *Config) Validate() error {
	if len(c.Providers) == 0 {
		return errors.New("no providers configured")
	}
	if err := validator.New().Struct(c); err != nil {
		return errors.Wrap(err, "invalid LLM configuration")
	}
	if c.DefaultProvider != "" && !slices.ContainsFunc(c.Providers, func(p *ProviderConfig) bool {
		return p.Name == c.DefaultProvider
	}) {
		return errors.Errorf("default provider not found: %s", c.DefaultProvider)
	}
	return nil
}

// LoadConfig from file
func LoadConfig(file string) (*Config, error) {
	cfg := new(Config)
	if file == "" {
		return cfg, nil
	}

	err := configloader.UnmarshalAndExpand(file, cfg)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}
