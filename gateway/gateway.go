// Package gateway performs the single outbound language-model call
// behind every tool invocation.
package gateway

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/gptbridge/errcode"
	"github.com/effective-security/gptbridge/pkg/llms"
	"github.com/effective-security/gptbridge/pkg/llmutils"
	"github.com/effective-security/gptbridge/pkg/metricskey"
	"github.com/effective-security/xlog"
)

//go:generate mockgen -source=gateway.go -destination=../mocks/mockgateway/gateway_mock.gen.go -package mockgateway

var logger = xlog.NewPackageLogger("github.com/effective-security/gptbridge", "gateway")

// Request is a single completion request
type Request struct {
	// Tool is the name of the tool issuing the request,
	// used for model routing and metrics.
	Tool        string
	System      string
	User        string
	Temperature float64
}

// Gateway sends a system/user pair to the model and returns the answer text.
type Gateway interface {
	Complete(ctx context.Context, req *Request) (string, error)
}

// ModelProvider returns the model to use for a tool.
// llmfactory.Factory implements this interface.
type ModelProvider interface {
	ToolModel(toolName string, preferredModels ...string) (llms.Model, error)
}

type gateway struct {
	models ModelProvider
}

// New returns a Gateway over the provided models
func New(models ModelProvider) Gateway {
	return &gateway{models: models}
}

func (g *gateway) Complete(ctx context.Context, req *Request) (string, error) {
	model, err := g.models.ToolModel(req.Tool)
	if err != nil {
		return "", errors.WithMessagef(err, "no model for tool %s", req.Tool)
	}
	modelName := model.GetName()

	messages := []llms.Message{
		llms.SystemMessage(req.System),
		llms.HumanMessage(req.User),
	}

	started := time.Now()
	resp, err := model.GenerateContent(ctx, messages, llms.WithTemperature(req.Temperature))
	metricskey.PerfLLMCall.MeasureSince(started, req.Tool, modelName)

	if err == nil {
		var text string
		text, err = resp.Text()
		if err == nil {
			g.record(ctx, req.Tool, modelName, messages, resp, started)
			return text, nil
		}
	}

	metricskey.StatsLLMCallsFailed.IncrCounter(1, req.Tool, modelName)
	logger.ContextKV(ctx, xlog.ERROR,
		"tool", req.Tool,
		"model", modelName,
		"elapsed", time.Since(started).String(),
		"err", err.Error(),
	)
	return "", errcode.Upstream(err, string(model.GetProviderType())+": "+modelName)
}

func (g *gateway) record(ctx context.Context, tool, modelName string, messages []llms.Message, resp *llms.ContentResponse, started time.Time) {
	sent := llmutils.CountMessagesSize(messages)
	received := llmutils.CountResponseSize(resp)
	in, out, _ := llmutils.CountTokens(resp)

	metricskey.StatsLLMCallsSucceeded.IncrCounter(1, tool, modelName)
	metricskey.StatsLLMBytesSent.IncrCounter(float64(sent), tool, modelName)
	metricskey.StatsLLMBytesReceived.IncrCounter(float64(received), tool, modelName)
	if in > 0 {
		metricskey.StatsLLMInputTokens.IncrCounter(float64(in), tool, modelName)
	}
	if out > 0 {
		metricskey.StatsLLMOutputTokens.IncrCounter(float64(out), tool, modelName)
	}

	logger.ContextKV(ctx, xlog.DEBUG,
		"tool", tool,
		"model", modelName,
		"elapsed", time.Since(started).String(),
		"bytes_sent", sent,
		"bytes_received", received,
		"input_tokens", in,
		"output_tokens", out,
	)
}
