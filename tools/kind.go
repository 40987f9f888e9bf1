package tools

import (
	"github.com/effective-security/gptbridge/errcode"
)

// Kind identifies a tool.
type Kind string

// Tool kinds, the value is the wire name of the tool.
const (
	KindResearch      Kind = "chatgpt_research"
	KindAnalyze       Kind = "chatgpt_analyze"
	KindCollaborate   Kind = "chatgpt_collaborate"
	KindGetLatestInfo Kind = "chatgpt_get_latest_info"
)

// AllKinds lists the tools in the declaration order.
var AllKinds = []Kind{
	KindResearch,
	KindAnalyze,
	KindCollaborate,
	KindGetLatestInfo,
}

// ParseKind returns the Kind of the tool name,
// or MethodNotFound error for unknown names.
func ParseKind(name string) (Kind, error) {
	for _, k := range AllKinds {
		if string(k) == name {
			return k, nil
		}
	}
	return "", errcode.MethodNotFound("Unknown tool: %s", name)
}

func (k Kind) String() string {
	return string(k)
}

// Temperature returns the sampling temperature used for the tool.
func (k Kind) Temperature() float64 {
	switch k {
	case KindResearch:
		return 0.3
	case KindAnalyze:
		return 0.2
	case KindCollaborate:
		return 0.4
	case KindGetLatestInfo:
		return 0.3
	}
	return 0
}
