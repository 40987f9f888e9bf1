package anthropic

import (
	"context"
	"net/http"
	"os"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/cockroachdb/errors"
	"github.com/effective-security/gptbridge/pkg/llms"
	"github.com/effective-security/x/values"
)

// DefaultMaxTokens is sent when the call does not limit the output.
const DefaultMaxTokens = 4096

// LLM is the Anthropic messages model.
type LLM struct {
	Client  *anthropic.Client
	Options *Options
}

var _ llms.Model = (*LLM)(nil)

// New creates a new Anthropic LLM client using the official Anthropic SDK.
// If no token is provided via options, it will attempt to read the API key
// from the ANTHROPIC_API_KEY environment variable.
func New(opts ...Option) (*LLM, error) {
	options := &Options{
		Token:      os.Getenv(TokenEnvVarName),
		HttpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(options)
	}

	if len(options.Token) == 0 {
		return nil, errors.WithMessage(llms.ErrMissingToken, "anthropic: set it in the ANTHROPIC_API_KEY environment variable")
	}
	options.Model = values.StringsCoalesce(options.Model, DefaultModel)

	sdkOpts := []option.RequestOption{
		option.WithAPIKey(options.Token),
		option.WithMaxRetries(options.MaxRetries),
	}
	if options.BaseURL != "" {
		sdkOpts = append(sdkOpts, option.WithBaseURL(options.BaseURL))
	}
	if options.HttpClient != nil {
		sdkOpts = append(sdkOpts, option.WithHTTPClient(options.HttpClient))
	}

	client := anthropic.NewClient(sdkOpts...)
	return &LLM{
		Client:  &client,
		Options: options,
	}, nil
}

// GetName implements the Model interface.
func (o *LLM) GetName() string {
	return o.Options.Model
}

// GetProviderType implements the Model interface.
func (o *LLM) GetProviderType() llms.ProviderType {
	return llms.ProviderAnthropic
}

// GenerateContent implements the Model interface.
// System messages are sent as the system prompt, the text blocks of the reply
// are joined into a single choice.
func (o *LLM) GenerateContent(ctx context.Context, messages []llms.Message, options ...llms.CallOption) (*llms.ContentResponse, error) {
	opts := llms.CallOptions{
		Model: o.Options.Model,
	}
	for _, opt := range options {
		opt(&opts)
	}

	systemPrompt, rest := llms.SplitSystem(messages)
	sdkMessages := make([]anthropic.MessageParam, 0, len(rest))
	for _, m := range rest {
		switch m.Role {
		case llms.RoleHuman:
			sdkMessages = append(sdkMessages, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		case llms.RoleAI:
			sdkMessages = append(sdkMessages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		default:
			return nil, errors.WithMessagef(llms.ErrUnexpectedRole, "anthropic: %q", m.Role)
		}
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(opts.Model),
		Messages:  sdkMessages,
		MaxTokens: values.NumbersCoalesce(int64(opts.MaxTokens), DefaultMaxTokens),
	}
	if systemPrompt != "" {
		params.System = []anthropic.TextBlockParam{
			{
				Type: "text",
				Text: systemPrompt,
			},
		}
	}
	if opts.Temperature > 0 {
		params.Temperature = anthropic.Float(opts.Temperature)
	}

	result, err := o.Client.Messages.New(ctx, params)
	if err != nil {
		return nil, errors.Wrap(err, "anthropic: failed to create message")
	}

	var texts []string
	for _, contentBlock := range result.Content {
		if content, ok := contentBlock.AsAny().(anthropic.TextBlock); ok {
			texts = append(texts, content.Text)
		}
	}
	if len(texts) == 0 {
		return nil, errors.WithMessage(llms.ErrEmptyResponse, "anthropic")
	}

	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{
			{
				Content:    strings.Join(texts, "\n"),
				StopReason: string(result.StopReason),
				GenerationInfo: map[string]any{
					"InputTokens":  result.Usage.InputTokens,
					"OutputTokens": result.Usage.OutputTokens,
					"TotalTokens":  result.Usage.InputTokens + result.Usage.OutputTokens,
					"ID":           result.ID,
				},
			},
		},
	}, nil
}
