package openai

import (
	"context"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/gptbridge/pkg/llms"
	"github.com/effective-security/x/values"
	"github.com/effective-security/xlog"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/gptbridge", "openai")

// LLM is the OpenAI chat completions model.
type LLM struct {
	Client  *openai.Client
	Options *Options
}

var _ llms.Model = (*LLM)(nil)

// New returns a new OpenAI LLM.
func New(opts ...Option) (*LLM, error) {
	options := &Options{
		Token:   os.Getenv(tokenEnvVarName),
		Model:   os.Getenv(modelEnvVarName),
		BaseURL: os.Getenv(baseURLEnvVarName),
	}
	for _, opt := range opts {
		opt(options)
	}

	if options.Token == "" {
		return nil, errors.WithMessage(llms.ErrMissingToken, "openai: set it in the OPENAI_API_KEY environment variable")
	}
	options.Model = values.StringsCoalesce(options.Model, DefaultModel)

	sdkOpts := []option.RequestOption{
		option.WithAPIKey(options.Token),
		option.WithMaxRetries(options.MaxRetries),
	}
	if options.BaseURL != "" {
		sdkOpts = append(sdkOpts, option.WithBaseURL(options.BaseURL))
	}
	if options.HTTPClient != nil {
		sdkOpts = append(sdkOpts, option.WithHTTPClient(options.HTTPClient))
	}

	client := openai.NewClient(sdkOpts...)
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
	return llms.ProviderOpenAI
}

// GenerateContent implements the Model interface.
func (o *LLM) GenerateContent(ctx context.Context, messages []llms.Message, options ...llms.CallOption) (*llms.ContentResponse, error) {
	opts := llms.CallOptions{
		Model: o.Options.Model,
	}
	for _, opt := range options {
		opt(&opts)
	}

	chatMsgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case llms.RoleSystem:
			chatMsgs = append(chatMsgs, openai.SystemMessage(m.Content))
		case llms.RoleHuman:
			chatMsgs = append(chatMsgs, openai.UserMessage(m.Content))
		case llms.RoleAI:
			chatMsgs = append(chatMsgs, openai.AssistantMessage(m.Content))
		default:
			return nil, errors.WithMessagef(llms.ErrUnexpectedRole, "openai: %q", m.Role)
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(opts.Model),
		Messages:    chatMsgs,
		Temperature: openai.Float(opts.Temperature),
	}
	if opts.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(opts.MaxTokens))
	}

	logger.ContextKV(ctx, xlog.DEBUG,
		"model", opts.Model,
		"temperature", opts.Temperature,
		"messages", len(chatMsgs),
	)

	result, err := o.Client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, errors.Wrap(err, "openai: failed to create chat completion")
	}
	if len(result.Choices) == 0 {
		return nil, errors.WithMessage(llms.ErrEmptyResponse, "openai")
	}

	choices := make([]*llms.ContentChoice, len(result.Choices))
	for i, c := range result.Choices {
		choices[i] = &llms.ContentChoice{
			Content:    c.Message.Content,
			StopReason: string(c.FinishReason),
			GenerationInfo: map[string]any{
				"OutputTokens": result.Usage.CompletionTokens,
				"InputTokens":  result.Usage.PromptTokens,
				"TotalTokens":  result.Usage.TotalTokens,
				"ID":           result.ID,
			},
		}
	}
	return &llms.ContentResponse{Choices: choices}, nil
}
