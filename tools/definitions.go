package tools

import (
	"reflect"

	"github.com/effective-security/gptbridge/pkg/schema"
	"github.com/invopop/jsonschema"
)

// Definition declares a tool to the caller.
type Definition struct {
	Name        string             `json:"name"`
	Description string             `json:"description"`
	InputSchema *jsonschema.Schema `json:"inputSchema"`
}

var descriptions = map[Kind]string{
	KindResearch:      "Ask ChatGPT to perform a research task",
	KindAnalyze:       "Ask ChatGPT to analyze data or code",
	KindCollaborate:   "Start or continue a real-time collaboration session with ChatGPT",
	KindGetLatestInfo: "Gather the latest information through ChatGPT",
}

// ArgsType returns the args struct type of the tool.
func ArgsType(kind Kind) reflect.Type {
	switch kind {
	case KindResearch:
		return reflect.TypeFor[ResearchArgs]()
	case KindAnalyze:
		return reflect.TypeFor[AnalyzeArgs]()
	case KindCollaborate:
		return reflect.TypeFor[CollaborateArgs]()
	case KindGetLatestInfo:
		return reflect.TypeFor[LatestInfoArgs]()
	}
	return nil
}

// Describe returns the definition of the tool.
func Describe(kind Kind) (*Definition, error) {
	t := ArgsType(kind)
	if t == nil {
		_, err := ParseKind(string(kind))
		return nil, err
	}
	s, err := schema.New(t)
	if err != nil {
		return nil, err
	}
	return &Definition{
		Name:        string(kind),
		Description: descriptions[kind],
		InputSchema: s.Parameters,
	}, nil
}

// Definitions returns the definitions of all tools, in the declaration order.
func Definitions() []*Definition {
	list := make([]*Definition, 0, len(AllKinds))
	for _, kind := range AllKinds {
		d, err := Describe(kind)
		if err != nil {
			// static types, cannot fail
			panic(err)
		}
		list = append(list, d)
	}
	return list
}
