package store

import (
	"sync"
	"time"

	"github.com/effective-security/gptbridge/chatmodel"
	"github.com/effective-security/gptbridge/pkg/metricskey"
	"github.com/effective-security/xlog"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/gptbridge", "store")

const storeName = "memory"

type entry struct {
	session  *chatmodel.Session
	lastUsed time.Time
}

// inMemory keeps sessions in an ordered map where
// the oldest pair is the least recently used session.
type inMemory struct {
	opts Options

	mu       sync.Mutex
	sessions *orderedmap.OrderedMap[string, *entry]
}

// NewMemoryStore returns a process-local SessionStore.
func NewMemoryStore(opts Options) SessionStore {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &inMemory{
		opts:     opts,
		sessions: orderedmap.New[string, *entry](),
	}
}

func (m *inMemory) GetOrCreate(key, projectDescription string) *chatmodel.Session {
	now := m.opts.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	m.evictExpired(now)

	if key != "" {
		if e, ok := m.sessions.Get(key); ok {
			m.touch(key, e, now)
			return e.session
		}
	}

	s := chatmodel.NewSession(key, projectDescription, now)
	if e, ok := m.sessions.Get(s.ID()); ok {
		// generated ID collided with a caller-supplied key
		m.touch(s.ID(), e, now)
		return e.session
	}
	m.sessions.Set(s.ID(), &entry{session: s, lastUsed: now})
	metricskey.StatsSessionsCreated.IncrCounter(1, storeName)

	logger.KV(xlog.DEBUG,
		"status", "session_created",
		"session", s.ID(),
		"sessions", m.sessions.Len(),
	)

	m.evictOverCapacity()
	return s
}

func (m *inMemory) AppendTurn(s *chatmodel.Session, contributor chatmodel.Contributor, contribution string, kind chatmodel.TurnKind) {
	now := m.opts.Now()
	s.Append(chatmodel.Turn{
		Timestamp:    now,
		Contributor:  contributor,
		Contribution: contribution,
		Kind:         kind,
	})

	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.sessions.Get(s.ID()); ok && e.session == s {
		m.touch(s.ID(), e, now)
	}
}

func (m *inMemory) RecentTurns(s *chatmodel.Session, n int) []chatmodel.Turn {
	return s.Last(n)
}

func (m *inMemory) Get(key string) (*chatmodel.Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.sessions.Get(key)
	if !ok || m.expired(e, m.opts.Now()) {
		return nil, false
	}
	return e.session, true
}

func (m *inMemory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions.Len()
}

func (m *inMemory) Discard(s *chatmodel.Session) bool {
	for _, t := range s.Turns() {
		if t.Kind == chatmodel.TurnResponse {
			return false
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.sessions.Get(s.ID())
	if !ok || e.session != s {
		return false
	}
	m.sessions.Delete(s.ID())
	logger.KV(xlog.DEBUG, "status", "session_discarded", "session", s.ID())
	metricskey.StatsSessionsEvicted.IncrCounter(1, storeName, "discarded")
	return true
}

func (m *inMemory) Purge() int {
	now := m.opts.Now()

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.evictExpired(now) + m.evictOverCapacity()
}

// touch marks the entry as most recently used, the caller must hold the lock.
func (m *inMemory) touch(key string, e *entry, now time.Time) {
	e.lastUsed = now
	_ = m.sessions.MoveToBack(key)
}

func (m *inMemory) expired(e *entry, now time.Time) bool {
	return m.opts.TTL > 0 && now.Sub(e.lastUsed) > m.opts.TTL
}

// evictExpired removes idle sessions, the caller must hold the lock.
func (m *inMemory) evictExpired(now time.Time) int {
	if m.opts.TTL <= 0 {
		return 0
	}
	count := 0
	for pair := m.sessions.Oldest(); pair != nil; {
		if !m.expired(pair.Value, now) {
			break
		}
		next := pair.Next()
		m.sessions.Delete(pair.Key)
		logger.KV(xlog.DEBUG, "status", "session_expired", "session", pair.Key)
		metricskey.StatsSessionsEvicted.IncrCounter(1, storeName, "ttl")
		pair = next
		count++
	}
	return count
}

// evictOverCapacity removes least recently used sessions, the caller must hold the lock.
func (m *inMemory) evictOverCapacity() int {
	if m.opts.MaxSessions <= 0 {
		return 0
	}
	count := 0
	for m.sessions.Len() > m.opts.MaxSessions {
		pair := m.sessions.Oldest()
		m.sessions.Delete(pair.Key)
		logger.KV(xlog.DEBUG, "status", "session_evicted", "session", pair.Key)
		metricskey.StatsSessionsEvicted.IncrCounter(1, storeName, "capacity")
		count++
	}
	return count
}
