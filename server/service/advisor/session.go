package advisor

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	advisorerrors "github.com/campushq/advisor/internal/errors"
)

// PendingQuestion tracks one escalated question awaiting a human answer.
// Lifecycle: created once the question has been forwarded to the advisor,
// removed when the matching answer arrives. A question id lives in at most
// one session's pending set at a time.
type PendingQuestion struct {
	QuestionID string
	Question   string
	UserID     string
	CreatedAt  time.Time
}

// SessionInfo is a read-only snapshot of one user session.
type SessionInfo struct {
	UserID       string
	DisplayName  string
	History      []Message
	PendingCount int
	LastActive   time.Time
}

// SessionStore tracks per-user conversational state. Implementations must be
// safe for concurrent use and must serialize mutations per user id.
type SessionStore interface {
	// GetOrCreate ensures a session exists and returns its snapshot.
	GetOrCreate(userID, displayName string) SessionInfo

	// RecordMessage appends a message to the user's history, creating the
	// session when absent.
	RecordMessage(userID, sender, text string)

	// RecentContext returns the last max messages formatted as
	// "sender: text" lines, oldest first.
	RecentContext(userID string, max int) string

	// AddPending registers an escalated question. Fails when the question id
	// is already pending anywhere.
	AddPending(userID string, pq PendingQuestion) error

	// ResolvePending removes and returns the pending question with the given
	// id, wherever it lives.
	ResolvePending(questionID string) (PendingQuestion, error)

	// Snapshot returns a copy of the session state for inspection.
	Snapshot(userID string) (SessionInfo, bool)

	// SweepIdle removes sessions idle since before the cutoff, along with
	// their pending questions. Returns the number of sessions removed.
	SweepIdle(cutoff time.Time) int
}

type userSession struct {
	mu sync.Mutex

	userID      string
	displayName string
	history     []Message
	pending     map[string]PendingQuestion
	lastActive  time.Time
}

// InMemorySessionStore keeps sessions in process memory with per-user
// locking, so unrelated users never contend on one lock.
type InMemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*userSession
	// pendingIndex maps question id to owning user id, enforcing the
	// at-most-one-session invariant.
	pendingIndex map[string]string

	now func() time.Time
}

// NewInMemorySessionStore creates an empty session store.
func NewInMemorySessionStore() *InMemorySessionStore {
	return &InMemorySessionStore{
		sessions:     make(map[string]*userSession),
		pendingIndex: make(map[string]string),
		now:          time.Now,
	}
}

var _ SessionStore = (*InMemorySessionStore)(nil)

// getOrCreateLocked returns the session for userID, creating it when absent.
func (s *InMemorySessionStore) getOrCreate(userID, displayName string) *userSession {
	s.mu.RLock()
	sess, ok := s.sessions[userID]
	s.mu.RUnlock()
	if ok {
		return sess
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[userID]; ok {
		return sess
	}
	sess = &userSession{
		userID:      userID,
		displayName: displayName,
		pending:     make(map[string]PendingQuestion),
		lastActive:  s.now(),
	}
	s.sessions[userID] = sess
	return sess
}

func (s *InMemorySessionStore) GetOrCreate(userID, displayName string) SessionInfo {
	sess := s.getOrCreate(userID, displayName)
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if displayName != "" {
		sess.displayName = displayName
	}
	return sess.snapshotLocked()
}

func (s *InMemorySessionStore) RecordMessage(userID, sender, text string) {
	sess := s.getOrCreate(userID, "")
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.history = append(sess.history, Message{
		Sender:    sender,
		Text:      text,
		CreatedAt: s.now(),
	})
	sess.lastActive = s.now()
}

func (s *InMemorySessionStore) RecentContext(userID string, max int) string {
	s.mu.RLock()
	sess, ok := s.sessions[userID]
	s.mu.RUnlock()
	if !ok || max <= 0 {
		return ""
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	start := len(sess.history) - max
	if start < 0 {
		start = 0
	}
	lines := make([]string, 0, len(sess.history)-start)
	for _, m := range sess.history[start:] {
		lines = append(lines, fmt.Sprintf("%s: %s", m.Sender, m.Text))
	}
	return strings.Join(lines, "\n")
}

func (s *InMemorySessionStore) AddPending(userID string, pq PendingQuestion) error {
	// The index lock is held across both the uniqueness check and the
	// session mutation so two concurrent escalations cannot share an id.
	s.mu.Lock()
	defer s.mu.Unlock()

	if owner, exists := s.pendingIndex[pq.QuestionID]; exists {
		return advisorerrors.InvalidArgument(
			fmt.Sprintf("question %s already pending for user %s", pq.QuestionID, owner))
	}

	sess, ok := s.sessions[userID]
	if !ok {
		sess = &userSession{
			userID:     userID,
			pending:    make(map[string]PendingQuestion),
			lastActive: s.now(),
		}
		s.sessions[userID] = sess
	}

	pq.UserID = userID
	if pq.CreatedAt.IsZero() {
		pq.CreatedAt = s.now()
	}

	sess.mu.Lock()
	sess.pending[pq.QuestionID] = pq
	sess.lastActive = s.now()
	sess.mu.Unlock()

	s.pendingIndex[pq.QuestionID] = userID
	return nil
}

func (s *InMemorySessionStore) ResolvePending(questionID string) (PendingQuestion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	userID, ok := s.pendingIndex[questionID]
	if !ok {
		return PendingQuestion{}, advisorerrors.PendingNotFound(questionID)
	}
	delete(s.pendingIndex, questionID)

	sess, ok := s.sessions[userID]
	if !ok {
		return PendingQuestion{}, advisorerrors.PendingNotFound(questionID)
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	pq, ok := sess.pending[questionID]
	if !ok {
		return PendingQuestion{}, advisorerrors.PendingNotFound(questionID)
	}
	delete(sess.pending, questionID)
	sess.lastActive = s.now()
	return pq, nil
}

func (s *InMemorySessionStore) Snapshot(userID string) (SessionInfo, bool) {
	s.mu.RLock()
	sess, ok := s.sessions[userID]
	s.mu.RUnlock()
	if !ok {
		return SessionInfo{}, false
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.snapshotLocked(), true
}

func (s *InMemorySessionStore) SweepIdle(cutoff time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed []string
	for userID, sess := range s.sessions {
		sess.mu.Lock()
		idle := sess.lastActive.Before(cutoff)
		if idle {
			for qid := range sess.pending {
				delete(s.pendingIndex, qid)
			}
		}
		sess.mu.Unlock()
		if idle {
			removed = append(removed, userID)
		}
	}
	sort.Strings(removed)
	for _, userID := range removed {
		delete(s.sessions, userID)
	}
	return len(removed)
}

// snapshotLocked copies session state. Caller holds sess.mu.
func (sess *userSession) snapshotLocked() SessionInfo {
	history := make([]Message, len(sess.history))
	copy(history, sess.history)
	return SessionInfo{
		UserID:       sess.userID,
		DisplayName:  sess.displayName,
		History:      history,
		PendingCount: len(sess.pending),
		LastActive:   sess.lastActive,
	}
}
