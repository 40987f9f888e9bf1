package metricskey

import "github.com/effective-security/metrics"

// Stats
var (
	// StatsLLMCallsSucceeded is base for counter metric for completed LLM calls
	StatsLLMCallsSucceeded = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_llm_calls_succeeded",
		Help:         "stats_llm_calls_succeeded provides total LLM calls succeeded",
		RequiredTags: []string{"tool", "model"},
	}

	StatsLLMCallsFailed = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_llm_calls_failed",
		Help:         "stats_llm_calls_failed provides total LLM calls failed",
		RequiredTags: []string{"tool", "model"},
	}

	StatsLLMBytesSent = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_llm_bytes_sent",
		Help:         "stats_llm_bytes_sent provides total bytes sent to LLM",
		RequiredTags: []string{"tool", "model"},
	}

	StatsLLMBytesReceived = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_llm_bytes_received",
		Help:         "stats_llm_bytes_received provides total bytes received from LLM",
		RequiredTags: []string{"tool", "model"},
	}

	StatsLLMInputTokens = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_llm_input_tokens",
		Help:         "stats_llm_input_tokens provides total input tokens sent to LLM",
		RequiredTags: []string{"tool", "model"},
	}

	StatsLLMOutputTokens = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_llm_output_tokens",
		Help:         "stats_llm_output_tokens provides total output tokens received from LLM",
		RequiredTags: []string{"tool", "model"},
	}

	StatsToolCallsSucceeded = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_tool_calls_succeeded",
		Help:         "stats_tool_calls_succeeded provides total tool calls succeeded",
		RequiredTags: []string{"tool"},
	}

	StatsToolCallsFailed = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_tool_calls_failed",
		Help:         "stats_tool_calls_failed provides total tool calls failed",
		RequiredTags: []string{"tool", "reason"},
	}

	StatsToolCallsNotFound = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_tool_calls_not_found",
		Help:         "stats_tool_calls_not_found provides total tool calls not found",
		RequiredTags: []string{"tool"},
	}

	StatsSessionsCreated = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_sessions_created",
		Help:         "stats_sessions_created provides total collaboration sessions created",
		RequiredTags: []string{"store"},
	}

	StatsSessionsEvicted = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_sessions_evicted",
		Help:         "stats_sessions_evicted provides total collaboration sessions evicted",
		RequiredTags: []string{"store", "reason"},
	}
)

// Perf
var (
	PerfLLMCall = metrics.Describe{
		Type:         metrics.TypeSample,
		Name:         "perf_llm_call",
		Help:         "perf_llm_call provides duration of LLM call",
		RequiredTags: []string{"tool", "model"},
	}

	PerfToolCall = metrics.Describe{
		Type:         metrics.TypeSample,
		Name:         "perf_tool_call",
		Help:         "perf_tool_call provides duration of tool call",
		RequiredTags: []string{"tool"},
	}
)

// Metrics returns slice of metrics from this repo
// keep sorted by name
var Metrics = []*metrics.Describe{
	&PerfLLMCall,
	&PerfToolCall,
	&StatsLLMBytesReceived,
	&StatsLLMBytesSent,
	&StatsLLMCallsFailed,
	&StatsLLMCallsSucceeded,
	&StatsLLMInputTokens,
	&StatsLLMOutputTokens,
	&StatsSessionsCreated,
	&StatsSessionsEvicted,
	&StatsToolCallsFailed,
	&StatsToolCallsNotFound,
	&StatsToolCallsSucceeded,
}
