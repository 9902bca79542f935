// Package users is the per-user relationship memory: activity counters,
// freeform facts, and preferences, keyed by normalized username. Records
// are created lazily and never deleted. The derived natural-language
// summary is spliced verbatim into the persona prompt.
package users

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/moekyun/mika/pkg/logger"
	"github.com/moekyun/mika/pkg/storage"
)

const documentKey = "users"

// Tier thresholds on message count.
const (
	veteranThreshold   = 100
	recurringThreshold = 10
)

// Record is everything remembered about one user.
type Record struct {
	FirstSeen    time.Time         `json:"first_seen"`
	LastSeen     time.Time         `json:"last_seen"`
	MessageCount int               `json:"message_count"`
	Facts        []string          `json:"facts"`
	Preferences  map[string]string `json:"preferences"`
}

// Statistics are aggregate counts for the status surface, computed on
// demand.
type Statistics struct {
	TotalUsers    int `json:"total_users"`
	TotalFacts    int `json:"total_facts"`
	TotalMessages int `json:"total_messages"`
}

// Store holds all user records. Not safe for concurrent use; the
// coordinator serializes access.
type Store struct {
	records map[string]*Record
	store   storage.Store
	now     func() time.Time
}

type Option func(*Store)

// WithClock replaces the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New loads previously persisted records; store may be nil for a purely
// in-memory store.
func New(store storage.Store, opts ...Option) *Store {
	s := &Store{
		records: make(map[string]*Record),
		store:   store,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.load()
	return s
}

// Touch records activity: lazily creates the record, bumps last-seen and
// the message counter. Never errors.
func (s *Store) Touch(username string) {
	rec := s.ensure(username)
	rec.LastSeen = s.now()
	rec.MessageCount++
	s.persist()
}

// AddFact appends a fact unless an identical one is already remembered.
func (s *Store) AddFact(username, fact string) {
	rec := s.ensure(username)
	for _, existing := range rec.Facts {
		if existing == fact {
			return
		}
	}
	rec.Facts = append(rec.Facts, fact)
	logger.InfoCF("users", "learned new fact", map[string]any{
		"user": Normalize(username),
		"fact": fact,
	})
	s.persist()
}

// Facts returns a copy of the user's fact list.
func (s *Store) Facts(username string) []string {
	rec, ok := s.records[Normalize(username)]
	if !ok {
		return nil
	}
	return append([]string(nil), rec.Facts...)
}

// SetPreference stores a last-write-wins preference value.
func (s *Store) SetPreference(username, key, value string) {
	rec := s.ensure(username)
	rec.Preferences[key] = value
	s.persist()
}

// GetPreference returns the value and whether it was set.
func (s *Store) GetPreference(username, key string) (string, bool) {
	rec, ok := s.records[Normalize(username)]
	if !ok {
		return "", false
	}
	value, ok := rec.Preferences[key]
	return value, ok
}

// Summary composes the deterministic context sentence for a user:
// activity tier, then facts, then preferences. Unknown users get a
// distinct new-visitor sentence.
func (s *Store) Summary(username string) string {
	name := Normalize(username)
	rec, ok := s.records[name]
	if !ok {
		return fmt.Sprintf("%s is a brand new visitor!", name)
	}

	var parts []string
	switch {
	case rec.MessageCount > veteranThreshold:
		parts = append(parts, fmt.Sprintf("%s is a regular veteran of the chat (%d messages)", name, rec.MessageCount))
	case rec.MessageCount > recurringThreshold:
		parts = append(parts, fmt.Sprintf("%s shows up recurringly (%d messages)", name, rec.MessageCount))
	default:
		parts = append(parts, fmt.Sprintf("%s is relatively new here", name))
	}

	if len(rec.Facts) > 0 {
		parts = append(parts, "You know that: "+strings.Join(rec.Facts, ", "))
	}

	if len(rec.Preferences) > 0 {
		keys := make([]string, 0, len(rec.Preferences))
		for k := range rec.Preferences {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		pairs := make([]string, 0, len(keys))
		for _, k := range keys {
			pairs = append(pairs, k+": "+rec.Preferences[k])
		}
		parts = append(parts, "Preferences: "+strings.Join(pairs, ", "))
	}

	return strings.Join(parts, ". ")
}

// Statistics aggregates over all records.
func (s *Store) Statistics() Statistics {
	stats := Statistics{TotalUsers: len(s.records)}
	for _, rec := range s.records {
		stats.TotalFacts += len(rec.Facts)
		stats.TotalMessages += rec.MessageCount
	}
	return stats
}

// Records returns a copy of the full user map for the web surface.
func (s *Store) Records() map[string]Record {
	out := make(map[string]Record, len(s.records))
	for name, rec := range s.records {
		c := *rec
		c.Facts = append([]string(nil), rec.Facts...)
		c.Preferences = make(map[string]string, len(rec.Preferences))
		for k, v := range rec.Preferences {
			c.Preferences[k] = v
		}
		out[name] = c
	}
	return out
}

// Normalize is the canonical username key: lower-cased and trimmed.
func Normalize(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

func (s *Store) ensure(username string) *Record {
	name := Normalize(username)
	rec, ok := s.records[name]
	if !ok {
		rec = &Record{
			FirstSeen:   s.now(),
			LastSeen:    s.now(),
			Preferences: make(map[string]string),
		}
		s.records[name] = rec
		logger.DebugCF("users", "new user record", map[string]any{"user": name})
	}
	return rec
}

func (s *Store) load() {
	if s.store == nil {
		return
	}
	var doc map[string]*Record
	if err := s.store.Load(documentKey, &doc); err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			logger.WarnCF("users", "failed to load persisted user memory", map[string]any{"error": err.Error()})
		}
		return
	}
	for name, rec := range doc {
		if rec.Preferences == nil {
			rec.Preferences = make(map[string]string)
		}
		s.records[name] = rec
	}
	logger.InfoCF("users", "user memory loaded", map[string]any{"users": len(s.records)})
}

func (s *Store) persist() {
	if s.store == nil {
		return
	}
	if err := s.store.Save(documentKey, s.records); err != nil {
		logger.WarnCF("users", "failed to persist user memory", map[string]any{"error": err.Error()})
	}
}
