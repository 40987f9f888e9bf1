package llmfactory

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/gptbridge/pkg/llms"
	"github.com/effective-security/gptbridge/pkg/llms/anthropic"
	"github.com/effective-security/gptbridge/pkg/llms/googleai"
	"github.com/effective-security/gptbridge/pkg/llms/openai"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/gptbridge", "llmfactory")

// NewLLM is a wrapper for CreateLLM to allow for overriding the default implementation.
var NewLLM = CreateLLM

// Factory is the interface for creating and managing LLM models.
type Factory interface {
	// DefaultModel returns the default LLM model.
	DefaultModel() (llms.Model, error)
	// ModelByType returns an LLM model by its type, e.g.
	// OPENAI, ANTHROPIC, GOOGLEAI
	ModelByType(providerType string) (llms.Model, error)
	// ModelByName returns an LLM model by its name,
	// if the model is not found, it will return the default model.
	ModelByName(preferredModels ...string) (llms.Model, error)
	// ToolModel returns the model configured for the tool.
	ToolModel(toolName string, preferredModels ...string) (llms.Model, error)
}

// Load returns the factory for the configuration file
func Load(location string) (Factory, error) {
	cfg, err := LoadConfig(location)
	if err != nil {
		return nil, err
	}
	return New(cfg), nil
}

type factory struct {
	cfg *Config

	defaultProvider *ProviderConfig
	defaultModel    llms.Model
	toolModels      map[string][]string
	byType          map[string]llms.Model
	byName          map[string]llms.Model
	lock            sync.Mutex
}

// New creates a new LLM factory
func New(cfg *Config) Factory {
	f := &factory{
		cfg:        cfg,
		byType:     make(map[string]llms.Model),
		byName:     make(map[string]llms.Model),
		toolModels: make(map[string][]string),
	}

	for k, v := range cfg.ToolModels {
		f.toolModels[k] = slices.Clone(v)
	}

	if cfg.DefaultProvider != "" {
		for _, provider := range cfg.Providers {
			if provider.Name == cfg.DefaultProvider {
				f.defaultProvider = provider
				break
			}
		}
	}

	if f.defaultProvider == nil && len(f.cfg.Providers) > 0 {
		f.defaultProvider = f.cfg.Providers[0]
	}

	return f
}

// CreateLLM creates the model for the provider
func CreateLLM(cfg *ProviderConfig, preferredModels ...string) (llms.Model, error) {
	provType := strings.ToUpper(cfg.APIType)
	switch provType {
	case "OPENAI", "OPEN_AI":
		return newOpenAI(cfg, preferredModels...)
	case "ANTHROPIC":
		return newAnthropic(cfg, preferredModels...)
	case "GOOGLEAI":
		return newGoogleAI(cfg, preferredModels...)
	}
	return nil, errors.Errorf("unsupported provider type: %s", provType)
}

func newOpenAI(cfg *ProviderConfig, preferredModels ...string) (llms.Model, error) {
	opts := []openai.Option{
		openai.WithMaxRetries(cfg.MaxRetries),
	}
	if model := cfg.FindModel(preferredModels...); model != "" {
		opts = append(opts, openai.WithModel(model))
	}
	if cfg.Token != "" {
		opts = append(opts, openai.WithToken(cfg.Token))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}
	return openai.New(opts...)
}

func newAnthropic(cfg *ProviderConfig, preferredModels ...string) (llms.Model, error) {
	opts := []anthropic.Option{
		anthropic.WithModel(cfg.FindModel(preferredModels...)),
		anthropic.WithMaxRetries(cfg.MaxRetries),
	}
	if cfg.Token != "" {
		opts = append(opts, anthropic.WithToken(cfg.Token))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(cfg.BaseURL))
	}
	return anthropic.New(opts...)
}

func newGoogleAI(cfg *ProviderConfig, preferredModels ...string) (llms.Model, error) {
	opts := []googleai.Option{
		googleai.WithDefaultModel(cfg.FindModel(preferredModels...)),
	}
	if cfg.Token != "" {
		opts = append(opts, googleai.WithAPIKey(cfg.Token))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, googleai.WithBaseURL(cfg.BaseURL))
	}
	return googleai.New(context.Background(), opts...)
}

// DefaultModel returns the model of the default provider
func (f *factory) DefaultModel() (llms.Model, error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.defaultModelLocked()
}

func (f *factory) defaultModelLocked() (llms.Model, error) {
	if len(f.cfg.Providers) == 0 || f.defaultProvider == nil {
		return nil, errors.New("no providers configured")
	}
	if f.defaultModel != nil {
		return f.defaultModel, nil
	}

	model, err := NewLLM(f.defaultProvider, f.defaultProvider.DefaultModel)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create default model for %s", f.defaultProvider.Name)
	}
	logger.KV(xlog.DEBUG,
		"status", "created_llm",
		"type", f.defaultProvider.APIType,
		"name", f.defaultProvider.Name,
		"model", model.GetName())

	f.defaultModel = model
	return model, nil
}

func (f *factory) ModelByType(providerType string) (llms.Model, error) {
	f.lock.Lock()
	defer f.lock.Unlock()

	if client, ok := f.byType[providerType]; ok {
		return client, nil
	}

	for _, cfg := range f.cfg.Providers {
		if cfg.APIType == providerType {
			model, err := NewLLM(cfg)
			if err != nil {
				return nil, err
			}

			logger.KV(xlog.DEBUG,
				"status", "created_llm",
				"type", cfg.APIType,
				"name", cfg.Name)

			f.byType[providerType] = model
			return model, nil
		}
	}
	return nil, errors.Errorf("provider not found for type: %s", providerType)
}

func (f *factory) ModelByName(modelNames ...string) (llms.Model, error) {
	f.lock.Lock()
	defer f.lock.Unlock()

	for _, modelName := range modelNames {
		if client, ok := f.byName[modelName]; ok {
			return client, nil
		}

		for _, cfg := range f.cfg.Providers {
			if slices.Contains(cfg.AvailableModels, modelName) {
				model, err := NewLLM(cfg, modelName)
				if err != nil {
					logger.KV(xlog.ERROR,
						"reason", "NewLLM",
						"type", cfg.APIType,
						"model", modelName,
						"err", err.Error(),
					)
					continue
				}

				logger.KV(xlog.DEBUG,
					"status", "created_llm",
					"type", cfg.APIType,
					"name", cfg.Name,
					"model", modelName)

				f.byName[modelName] = model
				return model, nil
			}
		}
	}
	return f.defaultModelLocked()
}

// ToolModel returns a tool model by its name.
func (f *factory) ToolModel(toolName string, preferredModels ...string) (llms.Model, error) {
	// Check if we have a specific model mapping for this tool
	if modelNames, ok := f.toolModels[toolName]; ok {
		return f.ModelByName(modelNames...)
	}

	// Check for default model mapping
	if modelNames, ok := f.toolModels["default"]; ok {
		return f.ModelByName(modelNames...)
	}

	// Fallback to default provider
	return f.ModelByName(preferredModels...)
}
