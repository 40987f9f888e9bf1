package llmutils

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/effective-security/gptbridge/pkg/llms"
	"github.com/effective-security/x/values"
	"gopkg.in/yaml.v3"
)

func JSONIndent(body string) string {
	var buf bytes.Buffer
	_ = json.Indent(&buf, []byte(body), "", "\t")
	return buf.String()
}

func ToJSON(val any) string {
	js, _ := json.Marshal(val)
	return string(js)
}

func ToJSONIndent(val any) string {
	js, _ := json.MarshalIndent(val, "", "\t")
	return string(js)
}

func ToYAML(val any) string {
	js, _ := yaml.Marshal(val)
	return string(js)
}

// PrintMessages is a debugging helper for Message.
func PrintMessages(w io.Writer, msgs []llms.Message) {
	for _, m := range msgs {
		fmt.Fprintf(w, "%s: %s\n", strings.ToUpper(string(m.Role)), m.Content)
	}
}

// CountMessagesSize counts the size of the content in the messages
func CountMessagesSize(msgs []llms.Message) uint64 {
	var size uint64
	for _, m := range msgs {
		size += uint64(len(m.Role))
		size += uint64(len(m.Content))
	}
	return size
}

// CountResponseSize counts the size of the content in the content response
func CountResponseSize(resp *llms.ContentResponse) uint64 {
	var size uint64
	if resp == nil {
		return 0
	}
	for _, choice := range resp.Choices {
		size += uint64(len(choice.Content))
	}
	return size
}

// CountTokens returns the token usage reported by the provider
func CountTokens(resp *llms.ContentResponse) (in, out, total int64) {
	if resp == nil {
		return
	}
	for _, choice := range resp.Choices {
		ma := values.MapAny(choice.GenerationInfo)
		in += ma.Int64("InputTokens")
		out += ma.Int64("OutputTokens")
		total += ma.Int64("TotalTokens")
	}
	return
}

// EnsureEndsWithNewline ensures the message ends with a newline,
// it also removes any extra leading and trailing spaces.
func EnsureEndsWithNewline(s string) string {
	s = strings.TrimSpace(s)
	c := len(s)
	if c == 0 {
		return s
	}
	if s[c-1] != '\n' {
		return s + "\n"
	}
	return s
}
