package googleai

import (
	"net/http"
	"os"

	"google.golang.org/genai"
)

const apiKeyEnvVarName = "GOOGLE_API_KEY" //nolint:gosec

// Options is a set of options for GoogleAI clients.
type Options struct {
	DefaultModel     string
	DefaultMaxTokens int
	HarmThreshold    genai.HarmBlockThreshold
	APIKey           string
	BaseURL          string
	HTTPClient       *http.Client
}

func DefaultOptions() Options {
	return Options{
		DefaultModel:  "gemini-2.5-pro",
		HarmThreshold: genai.HarmBlockThresholdBlockOnlyHigh,
	}
}

// EnsureAuthPresent uses the GOOGLE_API_KEY environment variable
// when the key is not provided.
func (o *Options) EnsureAuthPresent() {
	if o.APIKey == "" {
		if key := os.Getenv(apiKeyEnvVarName); key != "" {
			WithAPIKey(key)(o)
		}
	}
}

type Option func(*Options)

// WithAPIKey passes the API KEY (token) to the client.
func WithAPIKey(apiKey string) Option {
	return func(opts *Options) {
		opts.APIKey = apiKey
	}
}

// WithBaseURL overrides the Gemini API endpoint.
func WithBaseURL(baseURL string) Option {
	return func(opts *Options) {
		opts.BaseURL = baseURL
	}
}

// WithHTTPClient uses the provided HTTP client to make requests.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(opts *Options) {
		opts.HTTPClient = httpClient
	}
}

// WithDefaultModel passes a default content model name to the client.
func WithDefaultModel(defaultModel string) Option {
	return func(opts *Options) {
		if defaultModel != "" {
			opts.DefaultModel = defaultModel
		}
	}
}

// WithDefaultMaxTokens passes the maximum number of tokens to generate.
func WithDefaultMaxTokens(maxTokens int) Option {
	return func(opts *Options) {
		opts.DefaultMaxTokens = maxTokens
	}
}

// WithHarmThreshold sets the safety/harm setting for the model.
func WithHarmThreshold(ht genai.HarmBlockThreshold) Option {
	return func(opts *Options) {
		opts.HarmThreshold = ht
	}
}
