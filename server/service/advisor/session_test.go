package advisor

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	advisorerrors "github.com/campushq/advisor/internal/errors"
)

func TestSessionStore_GetOrCreate(t *testing.T) {
	s := NewInMemorySessionStore()

	info := s.GetOrCreate("u1", "Alex")
	assert.Equal(t, "u1", info.UserID)
	assert.Equal(t, "Alex", info.DisplayName)
	assert.Empty(t, info.History)

	// Second call returns the same session.
	s.RecordMessage("u1", "Alex", "hello")
	info = s.GetOrCreate("u1", "Alex")
	assert.Len(t, info.History, 1)
}

func TestSessionStore_RecentContext(t *testing.T) {
	s := NewInMemorySessionStore()

	s.RecordMessage("u1", "Alex", "first")
	s.RecordMessage("u1", "bot", "second")
	s.RecordMessage("u1", "Alex", "third")

	t.Run("WindowSmallerThanHistory", func(t *testing.T) {
		got := s.RecentContext("u1", 2)
		assert.Equal(t, "bot: second\nAlex: third", got)
	})

	t.Run("WindowLargerThanHistory", func(t *testing.T) {
		got := s.RecentContext("u1", 10)
		assert.Equal(t, "Alex: first\nbot: second\nAlex: third", got)
	})

	t.Run("UnknownUser", func(t *testing.T) {
		assert.Empty(t, s.RecentContext("nobody", 5))
	})

	t.Run("ZeroWindow", func(t *testing.T) {
		assert.Empty(t, s.RecentContext("u1", 0))
	})
}

func TestSessionStore_PendingRoundTrip(t *testing.T) {
	s := NewInMemorySessionStore()
	s.GetOrCreate("u1", "Alex")

	before, _ := s.Snapshot("u1")

	require.NoError(t, s.AddPending("u1", PendingQuestion{
		QuestionID: "q-1",
		Question:   "What is CS999?",
	}))

	mid, _ := s.Snapshot("u1")
	assert.Equal(t, before.PendingCount+1, mid.PendingCount)

	pq, err := s.ResolvePending("q-1")
	require.NoError(t, err)
	assert.Equal(t, "What is CS999?", pq.Question)
	assert.Equal(t, "u1", pq.UserID)

	after, _ := s.Snapshot("u1")
	assert.Equal(t, before.PendingCount, after.PendingCount)
}

func TestSessionStore_PendingUniqueness(t *testing.T) {
	s := NewInMemorySessionStore()

	require.NoError(t, s.AddPending("u1", PendingQuestion{QuestionID: "q-1", Question: "a"}))

	// Same id cannot be pending for any user.
	err := s.AddPending("u2", PendingQuestion{QuestionID: "q-1", Question: "b"})
	require.Error(t, err)
	assert.True(t, advisorerrors.IsCode(err, advisorerrors.ErrCodeInvalidArgument))
}

func TestSessionStore_DoubleResolveReported(t *testing.T) {
	s := NewInMemorySessionStore()
	require.NoError(t, s.AddPending("u1", PendingQuestion{QuestionID: "q-1", Question: "a"}))

	_, err := s.ResolvePending("q-1")
	require.NoError(t, err)

	// Second resolution finds no matching pending entry and is reported.
	_, err = s.ResolvePending("q-1")
	require.Error(t, err)
	assert.True(t, advisorerrors.IsCode(err, advisorerrors.ErrCodePendingNotFound))
}

func TestSessionStore_SweepIdle(t *testing.T) {
	s := NewInMemorySessionStore()
	current := time.Now()
	s.now = func() time.Time { return current }

	s.RecordMessage("stale", "x", "old message")
	require.NoError(t, s.AddPending("stale", PendingQuestion{QuestionID: "q-stale", Question: "q"}))

	current = current.Add(2 * time.Hour)
	s.RecordMessage("fresh", "y", "new message")

	removed := s.SweepIdle(current.Add(-time.Hour))
	assert.Equal(t, 1, removed)

	_, ok := s.Snapshot("stale")
	assert.False(t, ok)
	_, ok = s.Snapshot("fresh")
	assert.True(t, ok)

	// Pending entries of swept sessions are gone from the index too.
	_, err := s.ResolvePending("q-stale")
	require.Error(t, err)
}

func TestSessionStore_ConcurrentAccess(t *testing.T) {
	s := NewInMemorySessionStore()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			userID := fmt.Sprintf("u%d", worker%2)
			for j := 0; j < 50; j++ {
				s.RecordMessage(userID, "sender", "message")
				s.RecentContext(userID, 5)
				qid := fmt.Sprintf("q-%d-%d", worker, j)
				if err := s.AddPending(userID, PendingQuestion{QuestionID: qid, Question: "q"}); err == nil {
					s.ResolvePending(qid)
				}
			}
		}(i)
	}
	wg.Wait()

	info, ok := s.Snapshot("u0")
	require.True(t, ok)
	assert.Equal(t, 200, len(info.History))
	assert.Zero(t, info.PendingCount)
}
