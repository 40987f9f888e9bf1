package gateway_test

import (
	"context"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/gptbridge/errcode"
	"github.com/effective-security/gptbridge/gateway"
	"github.com/effective-security/gptbridge/mocks/mockgateway"
	"github.com/effective-security/gptbridge/mocks/mockllms"
	"github.com/effective-security/gptbridge/pkg/llms"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func newModel(ctrl *gomock.Controller) *mockllms.MockModel {
	model := mockllms.NewMockModel(ctrl)
	model.EXPECT().GetName().Return("gpt-4").AnyTimes()
	model.EXPECT().GetProviderType().Return(llms.ProviderOpenAI).AnyTimes()
	return model
}

func TestComplete(t *testing.T) {
	ctrl := gomock.NewController(t)
	model := newModel(ctrl)
	provider := mockgateway.NewMockModelProvider(ctrl)
	provider.EXPECT().ToolModel("chatgpt_research").Return(model, nil)

	model.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, messages []llms.Message, options ...llms.CallOption) (*llms.ContentResponse, error) {
			require.Len(t, messages, 2)
			assert.Equal(t, llms.SystemMessage("be helpful"), messages[0])
			assert.Equal(t, llms.HumanMessage("quantum computing"), messages[1])

			opts := llms.NewCallOptions(options...)
			assert.Equal(t, 0.3, opts.Temperature)

			return &llms.ContentResponse{
				Choices: []*llms.ContentChoice{
					{
						Content: "qubits",
						GenerationInfo: map[string]any{
							"InputTokens":  int64(12),
							"OutputTokens": int64(3),
						},
					},
				},
			}, nil
		})

	gw := gateway.New(provider)
	text, err := gw.Complete(context.Background(), &gateway.Request{
		Tool:        "chatgpt_research",
		System:      "be helpful",
		User:        "quantum computing",
		Temperature: 0.3,
	})
	require.NoError(t, err)
	assert.Equal(t, "qubits", text)
}

func TestComplete_Failures(t *testing.T) {
	req := &gateway.Request{Tool: "chatgpt_analyze", System: "s", User: "u", Temperature: 0.2}

	t.Run("api error", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		model := newModel(ctrl)
		provider := mockgateway.NewMockModelProvider(ctrl)
		provider.EXPECT().ToolModel(gomock.Any()).Return(model, nil)
		// exactly one call, no retry
		model.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil, errors.New("status 500")).Times(1)

		_, err := gateway.New(provider).Complete(context.Background(), req)
		require.Error(t, err)
		assert.True(t, errors.Is(err, errcode.ErrUpstream))
		assert.False(t, errcode.IsCoded(err))
		assert.Equal(t, "OPENAI: gpt-4: status 500", err.Error())
	})

	t.Run("empty choices", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		model := newModel(ctrl)
		provider := mockgateway.NewMockModelProvider(ctrl)
		provider.EXPECT().ToolModel(gomock.Any()).Return(model, nil)
		model.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(&llms.ContentResponse{}, nil)

		_, err := gateway.New(provider).Complete(context.Background(), req)
		require.Error(t, err)
		assert.True(t, errors.Is(err, errcode.ErrUpstream))
		assert.True(t, errors.Is(err, llms.ErrEmptyResponse))
	})

	t.Run("no model", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		provider := mockgateway.NewMockModelProvider(ctrl)
		provider.EXPECT().ToolModel(gomock.Any()).Return(nil, errors.New("no providers"))

		_, err := gateway.New(provider).Complete(context.Background(), req)
		require.Error(t, err)
		assert.False(t, errors.Is(err, errcode.ErrUpstream))
		assert.Equal(t, "no model for tool chatgpt_analyze: no providers", err.Error())
	})
}

func TestComplete_Cancelled(t *testing.T) {
	ctrl := gomock.NewController(t)
	model := newModel(ctrl)
	provider := mockgateway.NewMockModelProvider(ctrl)
	provider.EXPECT().ToolModel(gomock.Any()).Return(model, nil)
	model.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, _ []llms.Message, _ ...llms.CallOption) (*llms.ContentResponse, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := gateway.New(provider).Complete(ctx, &gateway.Request{Tool: "chatgpt_research"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}
