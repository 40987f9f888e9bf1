package tools

import (
	"strings"

	"github.com/effective-security/gptbridge/chatmodel"
	"github.com/effective-security/gptbridge/errcode"
	"github.com/effective-security/gptbridge/pkg/llms"
	"github.com/effective-security/gptbridge/pkg/prompts"
)

// HistoryWindow is the number of recent turns rendered in the collaboration prompt.
const HistoryWindow = 3

// Prompt is the system and user message pair sent to the model.
type Prompt struct {
	System string
	User   string
}

// Messages returns the prompt as chat messages.
func (p *Prompt) Messages() []llms.Message {
	return []llms.Message{
		llms.SystemMessage(p.System),
		llms.HumanMessage(p.User),
	}
}

var depthClauses = map[Depth]string{
	DepthBasic:    "core concepts and key information",
	DepthDetailed: "detailed analysis from several perspectives",
	DepthExpert:   "in-depth analysis at an expert level",
}

var formats = map[Format]bool{
	FormatSummary:      true,
	FormatBulletPoints: true,
	FormatReport:       true,
	FormatJSON:         true,
}

var analysisClauses = map[AnalysisType]string{
	AnalysisCodeReview:   "Perform a code review and analyze bugs, possible improvements and adherence to best practices.",
	AnalysisDataAnalysis: "Analyze the data to find patterns, insights and outliers.",
	AnalysisPerformance:  "Analyze it from the performance optimization point of view and propose improvements.",
	AnalysisSecurity:     "Analyze security vulnerabilities and risk factors.",
	AnalysisOptimization: "Find the parts that can be optimized and propose specific improvements.",
}

var timeRangeClauses = map[TimeRange]string{
	TimeRangeRecent:          "the most recent information from the last few weeks",
	TimeRangeThisMonth:       "up-to-date information from this month",
	TimeRangeThisYear:        "up-to-date information from this year",
	TimeRangeLatestAvailable: "the latest available information",
}

var researchPrompt = prompts.MustChatPromptTemplate(string(KindResearch),
	`You are a research specialist collaborating with Claude AI.
Perform research on the following topic at the {{.Depth}} level.

Research depth guide:
- basic: core concepts and key information
- detailed: detailed analysis from several perspectives
- expert: in-depth analysis at an expert level

Requested depth: {{.Depth}} ({{.DepthClause}}).
Provide the result in the {{.Format}} format.
{{- with .Focus}}
Focus in particular on the following perspective: {{.}}
{{- end}}

Collaboration context: Claude will use this information to implement code or write documentation.`,
	`{{.Topic}}`,
)

var analyzePrompt = prompts.MustChatPromptTemplate(string(KindAnalyze),
	`You are an analysis specialist collaborating with Claude AI.
{{.Instruction}}

Provide the analysis result in the following structure:
1. Overall summary
2. Key findings
3. Specific recommendations
4. Next steps Claude can take
{{- with .Context}}

Additional context: {{.}}
{{- end}}`,
	"Analysis target:\n\n{{.Data}}",
)

var collaboratePrompt = prompts.MustChatPromptTemplate(string(KindCollaborate),
	`You are collaborating with Claude AI in real time.

Project: {{.ProjectDescription}}

Claude's latest contribution:
{{.ClaudeContribution}}

Collaboration history:
{{.History}}

Next step requested by Claude: {{.NextStepRequest}}

Respond to it, and suggest further work to Claude when needed.
Keep the collaboration continuous and move the project forward using the strengths of each side.`,
	`{{.NextStepRequest}}`,
)

var latestInfoPrompt = prompts.MustChatPromptTemplate(string(KindGetLatestInfo),
	`You are an information gathering specialist collaborating with Claude AI.
Provide {{.TimeRangeClause}} about the following query.
{{- if .Sources}}

Preferred sources: {{join ", " .Sources}}
{{- end}}

Provide the information in the following structure:
1. Summary of the key information
2. Major changes or trends
3. Specific data or cases worth referencing
4. Practical information useful for Claude's development or analysis work

Make the information as specific and actionable as possible.`,
	`{{.Query}}`,
)

// Compose builds the prompt for the tool.
// The args must be the pointer to the args struct of the kind, as returned by Decode.
// The history is used only by the collaborate tool and is rendered as is,
// the caller selects the window.
func Compose(kind Kind, args any, history []chatmodel.Turn) (*Prompt, error) {
	switch kind {
	case KindResearch:
		a, ok := args.(*ResearchArgs)
		if !ok {
			return nil, argsTypeError(kind, args)
		}
		return composeResearch(a)
	case KindAnalyze:
		a, ok := args.(*AnalyzeArgs)
		if !ok {
			return nil, argsTypeError(kind, args)
		}
		return composeAnalyze(a)
	case KindCollaborate:
		a, ok := args.(*CollaborateArgs)
		if !ok {
			return nil, argsTypeError(kind, args)
		}
		return composeCollaborate(a, history)
	case KindGetLatestInfo:
		a, ok := args.(*LatestInfoArgs)
		if !ok {
			return nil, argsTypeError(kind, args)
		}
		return composeLatestInfo(a)
	}
	return nil, errcode.MethodNotFound("Unknown tool: %s", kind)
}

func argsTypeError(kind Kind, args any) error {
	return errcode.InvalidArgument("invalid arguments for %s: %T", kind, args)
}

func composeResearch(a *ResearchArgs) (*Prompt, error) {
	if a.Topic == "" {
		return nil, errcode.InvalidArgument("missing required argument: topic")
	}
	clause, ok := depthClauses[a.Depth]
	if !ok {
		return nil, errcode.InvalidArgument("invalid value for depth: %q", a.Depth)
	}
	format := a.Format
	if format == "" {
		format = FormatSummary
	}
	if !formats[format] {
		return nil, errcode.InvalidArgument("invalid value for format: %q", format)
	}

	return render(researchPrompt, map[string]any{
		"Topic":       a.Topic,
		"Depth":       string(a.Depth),
		"DepthClause": clause,
		"Format":      string(format),
		"Focus":       a.Focus,
	})
}

func composeAnalyze(a *AnalyzeArgs) (*Prompt, error) {
	if a.Data == "" {
		return nil, errcode.InvalidArgument("missing required argument: data")
	}
	instruction, ok := analysisClauses[a.AnalysisType]
	if !ok {
		return nil, errcode.InvalidArgument("invalid value for analysis_type: %q", a.AnalysisType)
	}
	return render(analyzePrompt, map[string]any{
		"Instruction": instruction,
		"Context":     a.Context,
		"Data":        a.Data,
	})
}

func composeCollaborate(a *CollaborateArgs, history []chatmodel.Turn) (*Prompt, error) {
	if a.NextStepRequest == "" {
		return nil, errcode.InvalidArgument("missing required argument: next_step_request")
	}
	return render(collaboratePrompt, map[string]any{
		"ProjectDescription": a.ProjectDescription,
		"ClaudeContribution": a.ClaudeContribution,
		"History":            RenderHistory(history),
		"NextStepRequest":    a.NextStepRequest,
	})
}

func composeLatestInfo(a *LatestInfoArgs) (*Prompt, error) {
	if a.Query == "" {
		return nil, errcode.InvalidArgument("missing required argument: query")
	}
	timeRange := a.TimeRange
	if timeRange == "" {
		timeRange = TimeRangeRecent
	}
	clause, ok := timeRangeClauses[timeRange]
	if !ok {
		return nil, errcode.InvalidArgument("invalid value for time_range: %q", timeRange)
	}
	sources := a.Sources
	if sources == nil {
		sources = []string{}
	}
	return render(latestInfoPrompt, map[string]any{
		"TimeRangeClause": clause,
		"Sources":         sources,
		"Query":           a.Query,
	})
}

// RenderHistory returns one `[contributor] contribution` line per turn.
func RenderHistory(turns []chatmodel.Turn) string {
	lines := make([]string, len(turns))
	for i, t := range turns {
		lines[i] = "[" + string(t.Contributor) + "] " + t.Contribution
	}
	return strings.Join(lines, "\n")
}

func render(t *prompts.ChatPromptTemplate, data map[string]any) (*Prompt, error) {
	value, err := t.FormatPrompt(data)
	if err != nil {
		return nil, errcode.Internal(err, "compose prompt")
	}
	return &Prompt{
		System: value.Content(llms.RoleSystem),
		User:   value.Content(llms.RoleHuman),
	}, nil
}
