package chatmodel

import (
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/effective-security/xdb/pkg/flake"
)

// SessionIDPrefix is the prefix of generated collaboration session IDs.
const SessionIDPrefix = "collab_"

// Contributor identifies the author of a Turn.
type Contributor string

const (
	// ContributorAssistant is the human-assisting agent calling the tools.
	ContributorAssistant Contributor = "claude"
	// ContributorModel is the remote language model.
	ContributorModel Contributor = "chatgpt"
)

// TurnKind tags the purpose of a Turn.
type TurnKind string

const (
	// TurnWorkUpdate is a work report submitted by the caller.
	TurnWorkUpdate TurnKind = "work_update"
	// TurnResponse is the remote model answer.
	TurnResponse TurnKind = "response"
)

// Turn is one immutable contribution within a collaboration session.
type Turn struct {
	Timestamp    time.Time   `json:"timestamp" yaml:"timestamp"`
	Contributor  Contributor `json:"contributor" yaml:"contributor"`
	Contribution string      `json:"contribution" yaml:"contribution"`
	Kind         TurnKind    `json:"type" yaml:"type"`
}

// Session is a named, append-only conversation history
// between the caller and the remote model.
type Session struct {
	id        string
	project   string
	createdAt time.Time

	mu    sync.RWMutex
	turns []Turn
}

// NewSession returns an empty session.
// If id is empty, a new ID is generated.
func NewSession(id, project string, createdAt time.Time) *Session {
	if id == "" {
		id = NewSessionID()
	}
	return &Session{
		id:        id,
		project:   project,
		createdAt: createdAt,
	}
}

// ID returns the session key.
func (s *Session) ID() string {
	return s.id
}

// Project returns the project description recorded at creation.
func (s *Session) Project() string {
	return s.project
}

// CreatedAt returns the creation time.
func (s *Session) CreatedAt() time.Time {
	return s.createdAt
}

// Append adds a turn to the end of the history.
func (s *Session) Append(t Turn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns = append(s.turns, t)
}

// Len returns the number of turns.
func (s *Session) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.turns)
}

// Turns returns a copy of the full history, oldest first.
func (s *Session) Turns() []Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.turns)
}

// Last returns a copy of the last n turns, oldest first.
func (s *Session) Last(n int) []Turn {
	if n <= 0 {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	start := max(len(s.turns)-n, 0)
	return slices.Clone(s.turns[start:])
}

// NewSessionID generates a new collaboration session ID using the flake ID generator.
func NewSessionID() string {
	return SessionIDPrefix + strconv.FormatUint(flake.DefaultIDGenerator.NextID(), 10)
}
