// Package dispatcher routes a tool call through argument validation,
// prompt composition and the model gateway, and formats the answer.
package dispatcher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/gptbridge/chatmodel"
	"github.com/effective-security/gptbridge/errcode"
	"github.com/effective-security/gptbridge/gateway"
	"github.com/effective-security/gptbridge/pkg/metricskey"
	"github.com/effective-security/gptbridge/store"
	"github.com/effective-security/gptbridge/tools"
	"github.com/effective-security/x/values"
	"github.com/effective-security/xlog"
	mcp "github.com/metoro-io/mcp-golang"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/gptbridge", "dispatcher")

const collaborationFooter = "*The collaboration session is ongoing. Include the session ID in your next request to keep the context.*"

// Dispatcher executes the tools
type Dispatcher struct {
	sessions store.SessionStore
	gateway  gateway.Gateway
}

// New returns a Dispatcher
func New(sessions store.SessionStore, gw gateway.Gateway) *Dispatcher {
	return &Dispatcher{
		sessions: sessions,
		gateway:  gw,
	}
}

// ListTools returns the definitions of the tools
func (d *Dispatcher) ListTools() []*tools.Definition {
	return tools.Definitions()
}

// CallTool executes the tool and returns a single text block.
// Unknown tools fail with MethodNotFound, invalid arguments with InvalidArgument,
// any other failure is reported as Internal.
func (d *Dispatcher) CallTool(ctx context.Context, name string, arguments json.RawMessage) (*mcp.ToolResponse, error) {
	kind, err := tools.ParseKind(name)
	if err != nil {
		metricskey.StatsToolCallsNotFound.IncrCounter(1, name)
		logger.ContextKV(ctx, xlog.DEBUG, "status", "not_found", "tool", name)
		return nil, err
	}

	callCtx := chatmodel.NewCallContext("", kind.String())
	ctx = chatmodel.WithCallContext(ctx, callCtx)

	started := time.Now()
	defer metricskey.PerfToolCall.MeasureSince(started, kind.String())

	text, err := d.call(ctx, kind, arguments)
	if err != nil {
		metricskey.StatsToolCallsFailed.IncrCounter(1, kind.String(), failureReason(err))
		logger.ContextKV(ctx, xlog.ERROR,
			"call_id", callCtx.CallID(),
			"tool", kind,
			"elapsed", time.Since(started).String(),
			"err", err.Error(),
		)
		if !errcode.IsCoded(err) {
			err = errcode.Internal(err, "Tool execution failed")
		}
		return nil, err
	}

	metricskey.StatsToolCallsSucceeded.IncrCounter(1, kind.String())
	logger.ContextKV(ctx, xlog.INFO,
		"call_id", callCtx.CallID(),
		"tool", kind,
		"elapsed", time.Since(started).String(),
		"size", len(text),
	)
	return mcp.NewToolResponse(mcp.NewTextContent(text)), nil
}

func (d *Dispatcher) call(ctx context.Context, kind tools.Kind, arguments json.RawMessage) (string, error) {
	args, err := tools.Decode(kind, arguments)
	if err != nil {
		return "", err
	}

	switch kind {
	case tools.KindResearch:
		return d.research(ctx, args.(*tools.ResearchArgs))
	case tools.KindAnalyze:
		return d.analyze(ctx, args.(*tools.AnalyzeArgs))
	case tools.KindCollaborate:
		return d.collaborate(ctx, args.(*tools.CollaborateArgs))
	case tools.KindGetLatestInfo:
		return d.latestInfo(ctx, args.(*tools.LatestInfoArgs))
	}
	return "", errcode.MethodNotFound("Unknown tool: %s", kind)
}

func (d *Dispatcher) research(ctx context.Context, args *tools.ResearchArgs) (string, error) {
	text, err := d.complete(ctx, tools.KindResearch, args, nil)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("# ChatGPT Research Result\n\n**Topic**: %s\n**Depth**: %s\n\n%s",
		args.Topic, args.Depth, text), nil
}

func (d *Dispatcher) analyze(ctx context.Context, args *tools.AnalyzeArgs) (string, error) {
	text, err := d.complete(ctx, tools.KindAnalyze, args, nil)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("# ChatGPT Analysis Result\n\n**Analysis type**: %s\n\n%s",
		args.AnalysisType, text), nil
}

func (d *Dispatcher) collaborate(ctx context.Context, args *tools.CollaborateArgs) (string, error) {
	_, existed := d.sessions.Get(args.CollaborationID)
	s := d.sessions.GetOrCreate(args.CollaborationID, args.ProjectDescription)
	if callCtx := chatmodel.GetCallContext(ctx); callCtx != nil {
		callCtx.SetMetadata("session", s.ID())
	}

	d.sessions.AppendTurn(s, chatmodel.ContributorAssistant, args.ClaudeContribution, chatmodel.TurnWorkUpdate)
	history := d.sessions.RecentTurns(s, tools.HistoryWindow)

	text, err := d.complete(ctx, tools.KindCollaborate, args, history)
	if err != nil {
		// the caller never learns the ID of a session created by a failed call
		if !existed && d.sessions.Discard(s) {
			logger.ContextKV(ctx, xlog.DEBUG,
				"call_id", chatmodel.GetCallID(ctx),
				"status", "session_discarded",
				"session", s.ID(),
			)
		}
		return "", err
	}
	d.sessions.AppendTurn(s, chatmodel.ContributorModel, text, chatmodel.TurnResponse)

	logger.ContextKV(ctx, xlog.DEBUG,
		"call_id", chatmodel.GetCallID(ctx),
		"session", s.ID(),
		"turns", s.Len(),
	)

	return fmt.Sprintf("# Collaboration Session Response\n\n**Session ID**: %s\n**Project**: %s\n\n## ChatGPT Response:\n\n%s\n\n---\n%s",
		s.ID(), args.ProjectDescription, text, collaborationFooter), nil
}

func (d *Dispatcher) latestInfo(ctx context.Context, args *tools.LatestInfoArgs) (string, error) {
	text, err := d.complete(ctx, tools.KindGetLatestInfo, args, nil)
	if err != nil {
		return "", err
	}
	timeRange := values.StringsCoalesce(string(args.TimeRange), string(tools.TimeRangeRecent))
	return fmt.Sprintf("# Latest Information Result\n\n**Query**: %s\n**Time range**: %s\n\n%s",
		args.Query, timeRange, text), nil
}

func (d *Dispatcher) complete(ctx context.Context, kind tools.Kind, args any, history []chatmodel.Turn) (string, error) {
	prompt, err := tools.Compose(kind, args, history)
	if err != nil {
		return "", err
	}
	return d.gateway.Complete(ctx, &gateway.Request{
		Tool:        kind.String(),
		System:      prompt.System,
		User:        prompt.User,
		Temperature: kind.Temperature(),
	})
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, errcode.ErrInvalidArgument):
		return "invalid_argument"
	case errors.Is(err, errcode.ErrMethodNotFound):
		return "not_found"
	case errors.Is(err, errcode.ErrUpstream):
		return "upstream"
	case errors.Is(err, context.Canceled):
		return "cancelled"
	default:
		return "internal"
	}
}
