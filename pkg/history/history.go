// Package history keeps the sliding window of recent chat messages that
// feeds generation context. The window is bounded (FIFO eviction) and
// persisted best-effort after every mutation; in-memory state stays
// authoritative when persistence fails.
package history

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/moekyun/mika/pkg/bus"
	"github.com/moekyun/mika/pkg/logger"
	"github.com/moekyun/mika/pkg/storage"
)

const documentKey = "history"

// Message is one history entry. Immutable once created; callers only ever
// see copies of the window.
type Message struct {
	ID        string       `json:"id"`
	Author    string       `json:"author"`
	Content   string       `json:"content"`
	Platform  bus.Platform `json:"platform"`
	IsAgent   bool         `json:"is_agent"`
	Timestamp time.Time    `json:"timestamp"`
}

// Turn is a role-tagged generation context entry.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type document struct {
	Messages []Message `json:"messages"`
}

// Store is the bounded history window. Not safe for concurrent use; the
// coordinator serializes access.
type Store struct {
	max      int
	messages []Message
	store    storage.Store
	now      func() time.Time
}

type Option func(*Store)

// WithClock replaces the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New creates a history window holding at most max messages. store may be
// nil for a purely in-memory window. Previously persisted history is
// reloaded, truncated to the window size.
func New(max int, store storage.Store, opts ...Option) *Store {
	s := &Store{
		max:   max,
		store: store,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.load()
	return s
}

// Append records a message and evicts from the head while the window
// exceeds its bound. It never fails: author/content are required by the
// connectors, and persistence errors are logged and swallowed.
func (s *Store) Append(author, content string, platform bus.Platform, isAgent bool) {
	s.messages = append(s.messages, Message{
		ID:        uuid.NewString(),
		Author:    author,
		Content:   content,
		Platform:  platform,
		IsAgent:   isAgent,
		Timestamp: s.now(),
	})
	if len(s.messages) > s.max {
		s.messages = append([]Message(nil), s.messages[len(s.messages)-s.max:]...)
	}
	s.persist()
}

// Recent returns a copy of the last count messages, or the whole window
// when count <= 0 or exceeds the window length.
func (s *Store) Recent(count int) []Message {
	if count <= 0 || count > len(s.messages) {
		count = len(s.messages)
	}
	out := make([]Message, count)
	copy(out, s.messages[len(s.messages)-count:])
	return out
}

// Len reports the current window length.
func (s *Store) Len() int {
	return len(s.messages)
}

// GenerationContext formats the window as role-tagged turns, oldest
// first. Viewer messages carry an attribution marker so the backend can
// tell speakers apart; agent messages pass through unprefixed.
func (s *Store) GenerationContext() []Turn {
	turns := make([]Turn, 0, len(s.messages))
	for _, msg := range s.messages {
		if msg.IsAgent {
			turns = append(turns, Turn{Role: "assistant", Content: msg.Content})
			continue
		}
		turns = append(turns, Turn{
			Role:    "user",
			Content: fmt.Sprintf("(message from %s): %s", msg.Author, msg.Content),
		})
	}
	return turns
}

// Clear empties the window, e.g. between streams.
func (s *Store) Clear() {
	s.messages = nil
	s.persist()
}

func (s *Store) load() {
	if s.store == nil {
		return
	}
	var doc document
	if err := s.store.Load(documentKey, &doc); err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			logger.WarnCF("history", "failed to load persisted history", map[string]any{"error": err.Error()})
		}
		return
	}
	if len(doc.Messages) > s.max {
		doc.Messages = doc.Messages[len(doc.Messages)-s.max:]
	}
	s.messages = doc.Messages
}

func (s *Store) persist() {
	if s.store == nil {
		return
	}
	if err := s.store.Save(documentKey, document{Messages: s.messages}); err != nil {
		logger.WarnCF("history", "failed to persist history", map[string]any{"error": err.Error()})
	}
}
