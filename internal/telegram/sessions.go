package telegram

import (
	"sync"
	"time"

	"calorie-tracker/internal/advisor"
	"calorie-tracker/internal/food"
	"calorie-tracker/internal/recognition"
)

// session is the transient per-chat state: the chat history and the photo
// pipeline. Nothing here is persisted.
type session struct {
	mu           sync.Mutex
	pipeline     *recognition.Pipeline
	conversation *advisor.Conversation
	meal         food.MealType
	lastSeen     time.Time
}

func (s *session) setMeal(meal food.MealType) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.meal = meal
}

func (s *session) busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conversation != nil && s.conversation.Pending() {
		return true
	}
	if s.pipeline != nil {
		switch s.pipeline.Status() {
		case recognition.StatusUploading, recognition.StatusAnalyzing:
			return true
		}
	}
	return false
}

// SessionStore keeps sessions per chat and expires idle ones.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[int64]*session
	ttl      time.Duration
	now      func() time.Time
}

// NewSessionStore creates a store whose sessions expire after ttl of inactivity.
func NewSessionStore(ttl time.Duration) *SessionStore {
	return &SessionStore{
		sessions: make(map[int64]*session),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Get returns the session for chatID, creating it if needed.
func (s *SessionStore) Get(chatID int64) *session {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[chatID]
	if !ok {
		sess = &session{}
		s.sessions[chatID] = sess
	}
	sess.lastSeen = s.now()
	return sess
}

// Delete drops the session for chatID.
func (s *SessionStore) Delete(chatID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, chatID)
}

// Len reports the number of live sessions.
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// CleanupExpired removes idle sessions that have no request in flight and
// returns how many were removed.
func (s *SessionStore) CleanupExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := s.now().Add(-s.ttl)
	removed := 0
	for id, sess := range s.sessions {
		if sess.lastSeen.Before(cutoff) && !sess.busy() {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}
