// Package memory provides in-process session history for multi-turn chat.
package memory

import (
	"strings"
	"sync"
	"time"
)

// Roles for chat messages.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single turn in a chat session.
type Message struct {
	Role    string
	Content string
	At      time.Time
}

type session struct {
	messages  []Message
	updatedAt time.Time
}

// Store keeps per-session chat history in memory. Sessions expire after a
// period of inactivity. For multi-instance deployments the history would
// need to move to a shared store such as Redis.
type Store struct {
	mu          sync.RWMutex
	sessions    map[string]*session
	maxMessages int
	ttl         time.Duration
}

// NewStore creates a session store and starts its expiry janitor.
func NewStore(maxMessages int, ttl time.Duration) *Store {
	s := &Store{
		sessions:    make(map[string]*session),
		maxMessages: maxMessages,
		ttl:         ttl,
	}
	go s.janitor()
	return s
}

// DefaultStore creates a store with sensible defaults:
// 20 messages per session (10 turns), 1 hour idle TTL.
func DefaultStore() *Store {
	return NewStore(20, 1*time.Hour)
}

// Append records a message for a session, trimming oldest messages beyond
// the per-session cap.
func (s *Store) Append(sessionID, role, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		sess = &session{}
		s.sessions[sessionID] = sess
	}

	sess.messages = append(sess.messages, Message{Role: role, Content: content, At: time.Now()})
	sess.updatedAt = time.Now()

	if len(sess.messages) > s.maxMessages {
		sess.messages = sess.messages[len(sess.messages)-s.maxMessages:]
	}
}

// Recent returns a copy of the last n messages for a session, oldest first.
// Returns nil for unknown sessions.
func (s *Store) Recent(sessionID string, n int) []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil
	}

	messages := sess.messages
	if len(messages) > n {
		messages = messages[len(messages)-n:]
	}
	out := make([]Message, len(messages))
	copy(out, messages)
	return out
}

func (s *Store) janitor() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		s.expire()
	}
}

func (s *Store) expire() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for id, sess := range s.sessions {
		if now.Sub(sess.updatedAt) > s.ttl {
			delete(s.sessions, id)
		}
	}
}

// FormatForPrompt renders session history for inclusion in an LLM prompt.
// Returns the empty string when there is no history.
func FormatForPrompt(messages []Message) string {
	if len(messages) == 0 {
		return ""
	}

	var sb strings.Builder
	for _, msg := range messages {
		switch msg.Role {
		case RoleUser:
			sb.WriteString("User: ")
		case RoleAssistant:
			sb.WriteString("Assistant: ")
		default:
			continue
		}
		sb.WriteString(msg.Content)
		sb.WriteString("\n")
	}
	return sb.String()
}
