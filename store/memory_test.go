package store_test

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/effective-security/gptbridge/chatmodel"
	"github.com/effective-security/gptbridge/store"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)}
}

func Test_MemoryStore(t *testing.T) {
	clock := newClock()
	st := store.NewMemoryStore(store.Options{Now: clock.Now})
	assert.Equal(t, 0, st.Len())

	_, ok := st.Get("s1")
	assert.False(t, ok)

	s := st.GetOrCreate("s1", "first project")
	require.NotNil(t, s)
	assert.Equal(t, "s1", s.ID())
	assert.Equal(t, "first project", s.Project())
	assert.Equal(t, clock.Now(), s.CreatedAt())
	assert.Equal(t, 0, s.Len())
	assert.Equal(t, 1, st.Len())

	st.AppendTurn(s, chatmodel.ContributorAssistant, "hello", chatmodel.TurnWorkUpdate)

	// idempotent for an existing key, the description is ignored
	s2 := st.GetOrCreate("s1", "another project")
	assert.Same(t, s, s2)
	assert.Equal(t, "first project", s2.Project())
	assert.Equal(t, 1, s2.Len())
	assert.Equal(t, 1, st.Len())

	got, ok := st.Get("s1")
	require.True(t, ok)
	assert.Same(t, s, got)

	// generated keys
	g1 := st.GetOrCreate("", "p")
	g2 := st.GetOrCreate("", "p")
	assert.True(t, strings.HasPrefix(g1.ID(), chatmodel.SessionIDPrefix))
	assert.NotEqual(t, g1.ID(), g2.ID())
	assert.Equal(t, 3, st.Len())
}

func Test_RecentTurns(t *testing.T) {
	clock := newClock()
	st := store.NewMemoryStore(store.Options{Now: clock.Now})
	s := st.GetOrCreate("s1", "p")

	assert.Empty(t, st.RecentTurns(s, 3))

	st.AppendTurn(s, chatmodel.ContributorAssistant, "one", chatmodel.TurnWorkUpdate)
	one := st.RecentTurns(s, 3)
	require.Len(t, one, 1)
	assert.Equal(t, "one", one[0].Contribution)

	var expected []chatmodel.Turn
	expected = append(expected, one[0])
	for i := 0; i < 5; i++ {
		clock.Advance(time.Second)
		text := gofakeit.HackerPhrase()
		contributor := chatmodel.ContributorModel
		kind := chatmodel.TurnResponse
		if i%2 == 1 {
			contributor = chatmodel.ContributorAssistant
			kind = chatmodel.TurnWorkUpdate
		}
		st.AppendTurn(s, contributor, text, kind)

		// round trip: the appended turn is the last element
		window := st.RecentTurns(s, 1)
		require.Len(t, window, 1)
		assert.Equal(t, text, window[0].Contribution)
		assert.Equal(t, clock.Now(), window[0].Timestamp)
		expected = append(expected, window[0])
	}

	window := st.RecentTurns(s, 3)
	require.Len(t, window, 3)
	if diff := cmp.Diff(expected[3:], window); diff != "" {
		t.Errorf("RecentTurns mismatch (-want +got):\n%s", diff)
	}
	for i := 1; i < len(window); i++ {
		assert.True(t, window[i-1].Timestamp.Before(window[i].Timestamp))
	}

	assert.Len(t, st.RecentTurns(s, 100), 6)
	assert.Empty(t, st.RecentTurns(s, 0))

	// reads do not mutate
	assert.Equal(t, 6, s.Len())
	assert.Equal(t, 1, st.Len())
}

func Test_MaxSessions(t *testing.T) {
	clock := newClock()
	st := store.NewMemoryStore(store.Options{MaxSessions: 2, Now: clock.Now})

	a := st.GetOrCreate("a", "p")
	clock.Advance(time.Second)
	st.GetOrCreate("b", "p")
	clock.Advance(time.Second)

	// touch a, so b becomes the least recently used
	st.AppendTurn(a, chatmodel.ContributorAssistant, "x", chatmodel.TurnWorkUpdate)
	clock.Advance(time.Second)

	st.GetOrCreate("c", "p")
	assert.Equal(t, 2, st.Len())

	_, ok := st.Get("b")
	assert.False(t, ok)
	got, ok := st.Get("a")
	require.True(t, ok)
	assert.Same(t, a, got)
	_, ok = st.Get("c")
	assert.True(t, ok)

	// an evicted key starts a fresh session
	b := st.GetOrCreate("b", "new")
	assert.Equal(t, "new", b.Project())
	assert.Equal(t, 0, b.Len())
}

func Test_TTL(t *testing.T) {
	clock := newClock()
	st := store.NewMemoryStore(store.Options{TTL: time.Minute, Now: clock.Now})

	a := st.GetOrCreate("a", "p")
	st.AppendTurn(a, chatmodel.ContributorAssistant, "x", chatmodel.TurnWorkUpdate)
	clock.Advance(30 * time.Second)
	st.GetOrCreate("b", "p")

	clock.Advance(45 * time.Second)
	_, ok := st.Get("a")
	assert.False(t, ok, "a is idle for 75s")
	_, ok = st.Get("b")
	assert.True(t, ok, "b is idle for 45s")

	assert.Equal(t, 1, st.Purge())
	assert.Equal(t, 1, st.Len())

	a2 := st.GetOrCreate("a", "p2")
	assert.NotSame(t, a, a2)
	assert.Equal(t, 0, a2.Len())

	clock.Advance(2 * time.Minute)
	assert.Equal(t, 2, st.Purge())
	assert.Equal(t, 0, st.Len())
}

func Test_Unbounded(t *testing.T) {
	st := store.NewMemoryStore(store.Options{})
	for i := 0; i < 100; i++ {
		st.GetOrCreate("", "p")
	}
	assert.Equal(t, 100, st.Len())
	assert.Equal(t, 0, st.Purge())
}

func Test_ConcurrentAppend(t *testing.T) {
	st := store.NewMemoryStore(store.Options{})
	s := st.GetOrCreate("shared", "p")

	const workers = 8
	const perWorker = 50
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				got := st.GetOrCreate("shared", "ignored")
				st.AppendTurn(got, chatmodel.ContributorAssistant, "x", chatmodel.TurnWorkUpdate)
				_ = st.RecentTurns(got, 3)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, workers*perWorker, s.Len())
	assert.Equal(t, 1, st.Len())
}

func Test_Discard(t *testing.T) {
	st := store.NewMemoryStore(store.Options{})

	s := st.GetOrCreate("", "p")
	st.AppendTurn(s, chatmodel.ContributorAssistant, "x", chatmodel.TurnWorkUpdate)
	assert.True(t, st.Discard(s))
	assert.Equal(t, 0, st.Len())
	_, ok := st.Get(s.ID())
	assert.False(t, ok)
	assert.False(t, st.Discard(s), "already removed")

	// a session with a model response is kept
	kept := st.GetOrCreate("kept", "p")
	st.AppendTurn(kept, chatmodel.ContributorAssistant, "x", chatmodel.TurnWorkUpdate)
	st.AppendTurn(kept, chatmodel.ContributorModel, "y", chatmodel.TurnResponse)
	st.AppendTurn(kept, chatmodel.ContributorAssistant, "z", chatmodel.TurnWorkUpdate)
	assert.False(t, st.Discard(kept))
	assert.Equal(t, 1, st.Len())

	// a detached session does not remove the live one with the same ID
	live := st.GetOrCreate("k", "p")
	detached := chatmodel.NewSession("k", "p", time.Now())
	assert.False(t, st.Discard(detached))
	got, ok := st.Get("k")
	require.True(t, ok)
	assert.Same(t, live, got)
}
