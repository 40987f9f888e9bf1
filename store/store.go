package store

import (
	"time"

	"github.com/effective-security/gptbridge/chatmodel"
)

// SessionStore owns the collaboration sessions and their turn histories.
// Operations are total: a missing key triggers creation, never an error.
type SessionStore interface {
	// GetOrCreate returns the live session for key, ignoring projectDescription,
	// or creates a new one. An empty key creates a session with a generated ID.
	GetOrCreate(key, projectDescription string) *chatmodel.Session
	// AppendTurn records a new turn at the end of the session history.
	AppendTurn(s *chatmodel.Session, contributor chatmodel.Contributor, contribution string, kind chatmodel.TurnKind)
	// RecentTurns returns up to n most recent turns, oldest first.
	// It does not modify the store.
	RecentTurns(s *chatmodel.Session, n int) []chatmodel.Turn
	// Get returns the live session for key without creating or touching it.
	Get(key string) (*chatmodel.Session, bool)
	// Len returns the number of live sessions.
	Len() int
	// Discard removes s if it is still the live session for its ID and holds
	// no model response, and returns true if it was removed.
	// It is used to drop a session created by a call that failed.
	Discard(s *chatmodel.Session) bool
	// Purge evicts expired and over-capacity sessions and returns the number evicted.
	Purge() int
}

// Options specifies the eviction policy.
// Zero values disable the corresponding bound.
type Options struct {
	// MaxSessions caps the number of live sessions,
	// the least recently used are evicted first.
	MaxSessions int `json:"max_sessions,omitempty" yaml:"max_sessions,omitempty" validate:"gte=0"`
	// TTL evicts sessions not used for longer than the duration.
	TTL time.Duration `json:"ttl,omitempty" yaml:"ttl,omitempty" validate:"gte=0"`
	// Now overrides the clock, used in tests.
	Now func() time.Time `json:"-" yaml:"-"`
}
