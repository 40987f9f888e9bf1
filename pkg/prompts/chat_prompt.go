// Package prompts renders chat messages from text/template sources
// with the sprig function set.
package prompts

import (
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"github.com/cockroachdb/errors"
	"github.com/effective-security/gptbridge/pkg/llms"
)

// MessagePromptTemplate renders one message of a given role.
type MessagePromptTemplate struct {
	Role llms.Role
	tmpl *template.Template
}

// NewMessagePromptTemplate parses the template text.
// Missing keys in the data are reported as errors.
func NewMessagePromptTemplate(role llms.Role, name, text string) (*MessagePromptTemplate, error) {
	tmpl, err := template.New(name).
		Funcs(sprig.TxtFuncMap()).
		Option("missingkey=error").
		Parse(text)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse template: %s", name)
	}
	return &MessagePromptTemplate{Role: role, tmpl: tmpl}, nil
}

// Format renders the message.
func (m *MessagePromptTemplate) Format(data any) (llms.Message, error) {
	var buf strings.Builder
	if err := m.tmpl.Execute(&buf, data); err != nil {
		return llms.Message{}, errors.Wrapf(err, "failed to render template: %s", m.tmpl.Name())
	}
	return llms.Message{Role: m.Role, Content: buf.String()}, nil
}

// ChatPromptTemplate is an ordered list of message templates
// rendered with the same data.
type ChatPromptTemplate struct {
	Name     string
	Messages []*MessagePromptTemplate
}

// ChatPromptValue is a prompt value that is a list of chat messages.
type ChatPromptValue []llms.Message

// NewChatPromptTemplate returns the template of a system and a user message.
func NewChatPromptTemplate(name, system, user string) (*ChatPromptTemplate, error) {
	sys, err := NewMessagePromptTemplate(llms.RoleSystem, name+".system", system)
	if err != nil {
		return nil, err
	}
	usr, err := NewMessagePromptTemplate(llms.RoleHuman, name+".user", user)
	if err != nil {
		return nil, err
	}
	return &ChatPromptTemplate{
		Name:     name,
		Messages: []*MessagePromptTemplate{sys, usr},
	}, nil
}

// MustChatPromptTemplate is like NewChatPromptTemplate but panics on error,
// used for the package level templates.
func MustChatPromptTemplate(name, system, user string) *ChatPromptTemplate {
	t, err := NewChatPromptTemplate(name, system, user)
	if err != nil {
		panic(err)
	}
	return t
}

// FormatPrompt renders all messages.
func (t *ChatPromptTemplate) FormatPrompt(data any) (ChatPromptValue, error) {
	res := make(ChatPromptValue, 0, len(t.Messages))
	for _, m := range t.Messages {
		msg, err := m.Format(data)
		if err != nil {
			return nil, err
		}
		res = append(res, msg)
	}
	return res, nil
}

// String returns the chat messages as a buffer string.
func (v ChatPromptValue) String() string {
	var buf strings.Builder
	for _, m := range v {
		buf.WriteString(strings.ToUpper(string(m.Role)))
		buf.WriteString(": ")
		buf.WriteString(m.Content)
		buf.WriteString("\n")
	}
	return buf.String()
}

// Messages returns the ChatMessage slice.
func (v ChatPromptValue) Messages() []llms.Message {
	return v
}

// Content returns the content of the first message with the role.
func (v ChatPromptValue) Content(role llms.Role) string {
	for _, m := range v {
		if m.Role == role {
			return m.Content
		}
	}
	return ""
}
