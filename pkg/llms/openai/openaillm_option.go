package openai

import (
	"net/http"
)

const (
	tokenEnvVarName   = "OPENAI_API_KEY"  //nolint:gosec
	modelEnvVarName   = "OPENAI_MODEL"    //nolint:gosec
	baseURLEnvVarName = "OPENAI_BASE_URL" //nolint:gosec

	// DefaultModel is used when neither the option nor OPENAI_MODEL is set.
	DefaultModel = "gpt-4"
)

// Options for the OpenAI client.
type Options struct {
	Token      string
	Model      string
	BaseURL    string
	HTTPClient *http.Client
	// MaxRetries is the number of SDK retries, zero disables them.
	MaxRetries int
}

// Option is a functional option for the OpenAI client.
type Option func(*Options)

// WithToken passes the OpenAI API token to the client. If not set, the token
// is read from the OPENAI_API_KEY environment variable.
func WithToken(token string) Option {
	return func(opts *Options) {
		opts.Token = token
	}
}

// WithModel passes the OpenAI model to the client. If not set, the model
// is read from the OPENAI_MODEL environment variable.
func WithModel(model string) Option {
	return func(opts *Options) {
		opts.Model = model
	}
}

// WithBaseURL passes the OpenAI base url to the client. If not set, the base url
// is read from the OPENAI_BASE_URL environment variable. If still not set,
// then the SDK default https://api.openai.com/v1 is used.
func WithBaseURL(baseURL string) Option {
	return func(opts *Options) {
		opts.BaseURL = baseURL
	}
}

// WithHTTPClient allows setting a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(opts *Options) {
		opts.HTTPClient = client
	}
}

// WithMaxRetries sets the number of retries on transient failures.
func WithMaxRetries(retries int) Option {
	return func(opts *Options) {
		opts.MaxRetries = retries
	}
}
