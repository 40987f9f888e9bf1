package llms

import (
	"context"

	"github.com/cockroachdb/errors"
)

// ProviderType is the type of provider.
type ProviderType string

const (
	// ProviderAnthropic is the type of provider.
	ProviderAnthropic ProviderType = "ANTHROPIC"
	// ProviderGoogleAI is the type of provider.
	ProviderGoogleAI ProviderType = "GOOGLEAI"
	// ProviderOpenAI is the type of provider.
	ProviderOpenAI ProviderType = "OPENAI"
)

var (
	// ErrEmptyResponse is returned when the provider returns no content.
	ErrEmptyResponse = errors.New("empty response")
	// ErrMissingToken is returned when the provider API key is not configured.
	ErrMissingToken = errors.New("missing the API key")
)

//go:generate mockgen -destination=../../mocks/mockllms/llm_mock.gen.go -package mockllms github.com/effective-security/gptbridge/pkg/llms Model

// Model is an interface text completion models implement.
type Model interface {
	// GetName returns the default model identifier.
	GetName() string
	// GetProviderType returns the type of provider.
	GetProviderType() ProviderType
	// GenerateContent asks the model to generate content from a sequence of
	// messages.
	GenerateContent(ctx context.Context, messages []Message, options ...CallOption) (*ContentResponse, error)
}
