package dispatcher_test

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/cockroachdb/errors"
	"github.com/effective-security/gptbridge/chatmodel"
	"github.com/effective-security/gptbridge/dispatcher"
	"github.com/effective-security/gptbridge/errcode"
	"github.com/effective-security/gptbridge/gateway"
	"github.com/effective-security/gptbridge/mocks/mockgateway"
	"github.com/effective-security/gptbridge/store"
	"github.com/effective-security/gptbridge/tools"
	mcp "github.com/metoro-io/mcp-golang"
	"github.com/sourcegraph/conc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func textOf(t *testing.T, resp *mcp.ToolResponse) string {
	t.Helper()
	require.NotNil(t, resp)
	require.Len(t, resp.Content, 1)
	require.NotNil(t, resp.Content[0].TextContent)
	return resp.Content[0].TextContent.Text
}

func raw(t *testing.T, v any) json.RawMessage {
	t.Helper()
	js, err := json.Marshal(v)
	require.NoError(t, err)
	return js
}

func TestListTools(t *testing.T) {
	ctrl := gomock.NewController(t)
	d := dispatcher.New(store.NewMemoryStore(store.Options{}), mockgateway.NewMockGateway(ctrl))

	list := d.ListTools()
	require.Len(t, list, 4)
	for i, kind := range tools.AllKinds {
		assert.Equal(t, kind.String(), list[i].Name)
		assert.NotEmpty(t, list[i].Description)
		assert.NotNil(t, list[i].InputSchema)
	}
}

func TestResearch(t *testing.T) {
	ctrl := gomock.NewController(t)
	gw := mockgateway.NewMockGateway(ctrl)
	d := dispatcher.New(store.NewMemoryStore(store.Options{}), gw)

	gw.EXPECT().Complete(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, req *gateway.Request) (string, error) {
			assert.NotEmpty(t, chatmodel.GetCallID(ctx))
			assert.Equal(t, "chatgpt_research", req.Tool)
			assert.Equal(t, 0.3, req.Temperature)
			assert.Equal(t, "quantum computing", req.User)
			assert.Contains(t, req.System, "basic")
			return "Qubits are the basic unit.", nil
		})

	resp, err := d.CallTool(context.Background(), "chatgpt_research",
		json.RawMessage(`{"topic":"quantum computing","depth":"basic"}`))
	require.NoError(t, err)
	assert.Equal(t,
		"# ChatGPT Research Result\n\n**Topic**: quantum computing\n**Depth**: basic\n\nQubits are the basic unit.",
		textOf(t, resp))
}

func TestAnalyze(t *testing.T) {
	ctrl := gomock.NewController(t)
	gw := mockgateway.NewMockGateway(ctrl)
	d := dispatcher.New(store.NewMemoryStore(store.Options{}), gw)

	gw.EXPECT().Complete(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req *gateway.Request) (string, error) {
			assert.Equal(t, 0.2, req.Temperature)
			assert.Contains(t, req.User, "func main() {}")
			return "looks fine", nil
		})

	resp, err := d.CallTool(context.Background(), "chatgpt_analyze", raw(t, tools.AnalyzeArgs{
		Data:         "func main() {}",
		AnalysisType: tools.AnalysisCodeReview,
	}))
	require.NoError(t, err)
	assert.Equal(t, "# ChatGPT Analysis Result\n\n**Analysis type**: code_review\n\nlooks fine", textOf(t, resp))
}

func TestLatestInfo(t *testing.T) {
	ctrl := gomock.NewController(t)
	gw := mockgateway.NewMockGateway(ctrl)
	d := dispatcher.New(store.NewMemoryStore(store.Options{}), gw)

	gw.EXPECT().Complete(gomock.Any(), gomock.Any()).Return("Go 1.25", nil).Times(2)

	resp, err := d.CallTool(context.Background(), "chatgpt_get_latest_info",
		json.RawMessage(`{"query":"latest Go release"}`))
	require.NoError(t, err)
	assert.Equal(t, "# Latest Information Result\n\n**Query**: latest Go release\n**Time range**: recent\n\nGo 1.25", textOf(t, resp))

	resp, err = d.CallTool(context.Background(), "chatgpt_get_latest_info",
		json.RawMessage(`{"query":"latest Go release","time_range":"this_year","sources":["github"]}`))
	require.NoError(t, err)
	assert.Contains(t, textOf(t, resp), "**Time range**: this_year\n")
}

func TestCollaborate(t *testing.T) {
	ctrl := gomock.NewController(t)
	gw := mockgateway.NewMockGateway(ctrl)
	st := store.NewMemoryStore(store.Options{})
	d := dispatcher.New(st, gw)

	var prompts []*gateway.Request
	gw.EXPECT().Complete(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req *gateway.Request) (string, error) {
			assert.Equal(t, 0.4, req.Temperature)
			prompts = append(prompts, req)
			return "answer " + string(rune('A'+len(prompts)-1)), nil
		}).Times(2)

	args := tools.CollaborateArgs{
		ProjectDescription: "todo app",
		ClaudeContribution: "wrote the data model",
		NextStepRequest:    "review the API",
		CollaborationID:    "s1",
	}
	resp, err := d.CallTool(context.Background(), "chatgpt_collaborate", raw(t, args))
	require.NoError(t, err)
	assert.Equal(t,
		"# Collaboration Session Response\n\n**Session ID**: s1\n**Project**: todo app\n\n## ChatGPT Response:\n\nanswer A\n\n---\n"+
			"*The collaboration session is ongoing. Include the session ID in your next request to keep the context.*",
		textOf(t, resp))

	args.ClaudeContribution = "added the handlers"
	args.NextStepRequest = "write tests"
	_, err = d.CallTool(context.Background(), "chatgpt_collaborate", raw(t, args))
	require.NoError(t, err)

	s, ok := st.Get("s1")
	require.True(t, ok)
	turns := s.Turns()
	require.Len(t, turns, 4)
	kinds := make([]chatmodel.TurnKind, len(turns))
	for i, turn := range turns {
		kinds[i] = turn.Kind
	}
	assert.Equal(t, []chatmodel.TurnKind{
		chatmodel.TurnWorkUpdate, chatmodel.TurnResponse,
		chatmodel.TurnWorkUpdate, chatmodel.TurnResponse,
	}, kinds)
	assert.Equal(t, "answer A", turns[1].Contribution)
	assert.Equal(t, chatmodel.ContributorModel, turns[1].Contributor)

	// the window includes the caller turn recorded just before the call
	require.Len(t, prompts, 2)
	assert.Contains(t, prompts[0].System, "[claude] wrote the data model")
	assert.Contains(t, prompts[1].System,
		"[claude] wrote the data model\n[chatgpt] answer A\n[claude] added the handlers")
}

func TestCollaborate_NewSession(t *testing.T) {
	ctrl := gomock.NewController(t)
	gw := mockgateway.NewMockGateway(ctrl)
	st := store.NewMemoryStore(store.Options{})
	d := dispatcher.New(st, gw)

	gw.EXPECT().Complete(gomock.Any(), gomock.Any()).Return("ok", nil)

	resp, err := d.CallTool(context.Background(), "chatgpt_collaborate", raw(t, tools.CollaborateArgs{
		ProjectDescription: gofakeit.AppName(),
		ClaudeContribution: gofakeit.HackerPhrase(),
		NextStepRequest:    gofakeit.HackerPhrase(),
	}))
	require.NoError(t, err)
	assert.Contains(t, textOf(t, resp), "**Session ID**: "+chatmodel.SessionIDPrefix)
	assert.Equal(t, 1, st.Len())
}

func TestCollaborate_UpstreamFailure(t *testing.T) {
	upstreamErr := errcode.Upstream(errors.New("status 503"), "OPENAI: gpt-4")
	args := tools.CollaborateArgs{
		ProjectDescription: "p",
		ClaudeContribution: "c",
		NextStepRequest:    "n",
		CollaborationID:    "s1",
	}

	t.Run("new session", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		gw := mockgateway.NewMockGateway(ctrl)
		st := store.NewMemoryStore(store.Options{})
		d := dispatcher.New(st, gw)

		gw.EXPECT().Complete(gomock.Any(), gomock.Any()).Return("", upstreamErr)

		_, err := d.CallTool(context.Background(), "chatgpt_collaborate", raw(t, args))
		require.Error(t, err)
		assert.Equal(t, errcode.CodeInternalError, errcode.CodeOf(err))
		assert.True(t, errors.Is(err, errcode.ErrUpstream))
		assert.Equal(t, "Tool execution failed: OPENAI: gpt-4: status 503", err.Error())

		// a session created by the failed call is not kept
		_, ok := st.Get("s1")
		assert.False(t, ok)
		assert.Equal(t, 0, st.Len())
	})

	t.Run("generated keys", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		gw := mockgateway.NewMockGateway(ctrl)
		st := store.NewMemoryStore(store.Options{})
		d := dispatcher.New(st, gw)

		gw.EXPECT().Complete(gomock.Any(), gomock.Any()).Return("", upstreamErr).Times(3)

		noKey := args
		noKey.CollaborationID = ""
		for i := 0; i < 3; i++ {
			_, err := d.CallTool(context.Background(), "chatgpt_collaborate", raw(t, noKey))
			require.Error(t, err)
		}
		assert.Equal(t, 0, st.Len())
	})

	t.Run("existing session", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		gw := mockgateway.NewMockGateway(ctrl)
		st := store.NewMemoryStore(store.Options{})
		d := dispatcher.New(st, gw)

		gomock.InOrder(
			gw.EXPECT().Complete(gomock.Any(), gomock.Any()).Return("first answer", nil),
			gw.EXPECT().Complete(gomock.Any(), gomock.Any()).Return("", upstreamErr),
		)

		_, err := d.CallTool(context.Background(), "chatgpt_collaborate", raw(t, args))
		require.NoError(t, err)
		_, err = d.CallTool(context.Background(), "chatgpt_collaborate", raw(t, args))
		require.Error(t, err)

		// the caller turn stays recorded, no response turn
		s, ok := st.Get("s1")
		require.True(t, ok)
		turns := s.Turns()
		require.Len(t, turns, 3)
		assert.Equal(t, chatmodel.TurnResponse, turns[1].Kind)
		assert.Equal(t, chatmodel.TurnWorkUpdate, turns[2].Kind)
	})
}

func TestCallTool_Errors(t *testing.T) {
	tcases := []struct {
		name string
		tool string
		args string
		code errcode.Code
		msg  string
	}{
		{"unknown tool", "chatgpt_unknown", `{}`, errcode.CodeMethodNotFound, "Unknown tool: chatgpt_unknown"},
		{"bad analysis type", "chatgpt_analyze", `{"data":"x","analysis_type":"nonexistent"}`, errcode.CodeInvalidParams,
			`invalid value for analysis_type: "nonexistent", expected one of: code_review, data_analysis, performance, security, optimization`},
		{"missing topic", "chatgpt_research", `{"depth":"basic"}`, errcode.CodeInvalidParams, "missing required argument: topic"},
		{"no arguments", "chatgpt_research", ``, errcode.CodeInvalidParams, "missing required argument: topic"},
		{"missing next step", "chatgpt_collaborate", `{"project_description":"p","claude_contribution":"c","collaboration_id":"s1"}`,
			errcode.CodeInvalidParams, "missing required argument: next_step_request"},
		{"bad time range", "chatgpt_get_latest_info", `{"query":"q","time_range":"yesterday"}`, errcode.CodeInvalidParams,
			`invalid value for time_range: "yesterday", expected one of: recent, this_month, this_year, latest_available`},
		{"malformed json", "chatgpt_analyze", `{"data":`, errcode.CodeInvalidParams, ""},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			// no expectations: the gateway must not be called
			gw := mockgateway.NewMockGateway(ctrl)
			st := store.NewMemoryStore(store.Options{})
			d := dispatcher.New(st, gw)

			resp, err := d.CallTool(context.Background(), tc.tool, json.RawMessage(tc.args))
			require.Error(t, err)
			assert.Nil(t, resp)
			assert.Equal(t, tc.code, errcode.CodeOf(err))
			assert.True(t, errcode.IsCoded(err))
			if tc.msg != "" {
				assert.Equal(t, tc.msg, err.Error())
			}
			// no session is created on validation failure
			assert.Equal(t, 0, st.Len())
		})
	}
}

func TestCallTool_AllKinds(t *testing.T) {
	valid := map[tools.Kind]string{
		tools.KindResearch:      `{"topic":"t","depth":"expert","format":"report","focus":"f"}`,
		tools.KindAnalyze:       `{"data":"d","analysis_type":"security","context":"c"}`,
		tools.KindCollaborate:   `{"project_description":"p","claude_contribution":"c","next_step_request":"n"}`,
		tools.KindGetLatestInfo: `{"query":"q","time_range":"latest_available"}`,
	}

	ctrl := gomock.NewController(t)
	gw := mockgateway.NewMockGateway(ctrl)
	gw.EXPECT().Complete(gomock.Any(), gomock.Any()).Return("ok", nil).Times(len(tools.AllKinds))
	d := dispatcher.New(store.NewMemoryStore(store.Options{}), gw)

	for _, kind := range tools.AllKinds {
		args, ok := valid[kind]
		require.True(t, ok, "no fixture for %s", kind)

		resp, err := d.CallTool(context.Background(), kind.String(), json.RawMessage(args))
		require.NoError(t, err, kind.String())
		text := textOf(t, resp)
		assert.True(t, strings.HasPrefix(text, "# "), text)
		assert.Contains(t, text, "ok")
	}
}

// barrierStore holds every caller turn until the given number of
// caller turns has been recorded
type barrierStore struct {
	store.SessionStore
	arrived sync.WaitGroup
}

func newBarrierStore(callers int) *barrierStore {
	b := &barrierStore{SessionStore: store.NewMemoryStore(store.Options{})}
	b.arrived.Add(callers)
	return b
}

func (b *barrierStore) AppendTurn(s *chatmodel.Session, contributor chatmodel.Contributor, contribution string, kind chatmodel.TurnKind) {
	b.SessionStore.AppendTurn(s, contributor, contribution, kind)
	if kind == chatmodel.TurnWorkUpdate {
		b.arrived.Done()
		b.arrived.Wait()
	}
}

func TestCollaborate_Concurrent(t *testing.T) {
	ctrl := gomock.NewController(t)
	gw := mockgateway.NewMockGateway(ctrl)

	var mu sync.Mutex
	var windows []string
	gw.EXPECT().Complete(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req *gateway.Request) (string, error) {
			mu.Lock()
			windows = append(windows, req.System)
			mu.Unlock()
			return "ok", nil
		}).Times(2)

	st := newBarrierStore(2)
	d := dispatcher.New(st, gw)

	var wg conc.WaitGroup
	for _, contribution := range []string{"first change", "second change"} {
		args := raw(t, tools.CollaborateArgs{
			ProjectDescription: "p",
			ClaudeContribution: contribution,
			NextStepRequest:    "n",
			CollaborationID:    "shared",
		})
		wg.Go(func() {
			_, err := d.CallTool(context.Background(), "chatgpt_collaborate", args)
			assert.NoError(t, err)
		})
	}
	wg.Wait()

	s, ok := st.Get("shared")
	require.True(t, ok)
	assert.Equal(t, 4, s.Len())
	assert.Equal(t, 1, st.Len())

	// both calls see both caller turns in their window
	require.Len(t, windows, 2)
	for _, window := range windows {
		assert.Contains(t, window, "[claude] first change")
		assert.Contains(t, window, "[claude] second change")
	}
}
