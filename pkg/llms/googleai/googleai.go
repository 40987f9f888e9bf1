package googleai

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/gptbridge/pkg/llms"
	"github.com/effective-security/x/values"
	"google.golang.org/genai"
)

// GetName implements the [llms.Model] interface.
func (g *GoogleAI) GetName() string {
	return g.opts.DefaultModel
}

// GetProviderType implements the [llms.Model] interface.
func (g *GoogleAI) GetProviderType() llms.ProviderType {
	return llms.ProviderGoogleAI
}

// GenerateContent implements the [llms.Model] interface.
func (g *GoogleAI) GenerateContent(ctx context.Context, messages []llms.Message, options ...llms.CallOption) (*llms.ContentResponse, error) {
	opts := llms.CallOptions{
		Model:     g.opts.DefaultModel,
		MaxTokens: g.opts.DefaultMaxTokens,
	}
	for _, opt := range options {
		opt(&opts)
	}

	systemPrompt, rest := llms.SplitSystem(messages)

	history := make([]*genai.Content, 0, len(rest))
	for _, m := range rest {
		switch m.Role {
		case llms.RoleHuman:
			history = append(history, genai.NewContentFromText(m.Content, genai.RoleUser))
		case llms.RoleAI:
			history = append(history, genai.NewContentFromText(m.Content, genai.RoleModel))
		default:
			return nil, errors.WithMessagef(llms.ErrUnexpectedRole, "googleai: %q", m.Role)
		}
	}

	callCfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(opts.Temperature)),
	}
	if systemPrompt != "" {
		callCfg.SystemInstruction = genai.NewContentFromText(systemPrompt, genai.RoleUser)
	}
	if opts.MaxTokens > 0 {
		callCfg.MaxOutputTokens = int32(opts.MaxTokens)
	}
	callCfg.SafetySettings = []*genai.SafetySetting{
		{
			Category:  genai.HarmCategoryDangerousContent,
			Threshold: g.opts.HarmThreshold,
		},
		{
			Category:  genai.HarmCategoryHarassment,
			Threshold: g.opts.HarmThreshold,
		},
		{
			Category:  genai.HarmCategoryHateSpeech,
			Threshold: g.opts.HarmThreshold,
		},
		{
			Category:  genai.HarmCategorySexuallyExplicit,
			Threshold: g.opts.HarmThreshold,
		},
	}

	model := values.StringsCoalesce(opts.Model, g.opts.DefaultModel)
	resp, err := g.client.Models.GenerateContent(ctx, model, history, callCfg)
	if err != nil {
		return nil, errors.Wrap(err, "googleai: failed to generate content")
	}
	if len(resp.Candidates) == 0 {
		return nil, errors.WithMessage(llms.ErrEmptyResponse, "googleai")
	}
	return convertCandidates(resp.Candidates, resp.UsageMetadata), nil
}

// convertCandidates converts a sequence of genai.Candidate to a response.
func convertCandidates(candidates []*genai.Candidate, usage *genai.GenerateContentResponseUsageMetadata) *llms.ContentResponse {
	var contentResponse llms.ContentResponse

	for _, candidate := range candidates {
		buf := strings.Builder{}
		if candidate.Content != nil {
			for _, part := range candidate.Content.Parts {
				if part.Text != "" && !part.Thought {
					buf.WriteString(part.Text)
				}
			}
		}

		metadata := make(map[string]any)
		if usage != nil {
			metadata["InputTokens"] = int64(usage.PromptTokenCount)
			metadata["OutputTokens"] = int64(usage.CandidatesTokenCount + usage.ThoughtsTokenCount)
			metadata["TotalTokens"] = int64(usage.TotalTokenCount)
		}

		contentResponse.Choices = append(contentResponse.Choices,
			&llms.ContentChoice{
				Content:        buf.String(),
				StopReason:     string(candidate.FinishReason),
				GenerationInfo: metadata,
			})
	}
	return &contentResponse
}
