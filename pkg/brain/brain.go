// Package brain is the coordinator: it owns the arbiter, the history
// store and the user memory store, and runs every inbound message
// through the same pipeline regardless of which platform delivered it.
//
// All three owned components are mutated only under a single mutex. The
// generation call is the one step allowed to run outside it, so a slow
// model does not stall gating decisions for other messages; the reply
// commit re-acquires the lock.
package brain

import (
	"context"
	"sync"

	"github.com/moekyun/mika/pkg/arbiter"
	"github.com/moekyun/mika/pkg/bus"
	"github.com/moekyun/mika/pkg/history"
	"github.com/moekyun/mika/pkg/logger"
	"github.com/moekyun/mika/pkg/persona"
	"github.com/moekyun/mika/pkg/providers"
	"github.com/moekyun/mika/pkg/users"
)

// Status is a point-in-time snapshot for the status command and web
// surface.
type Status struct {
	BotName    string           `json:"bot_name"`
	HistoryLen int              `json:"history_len"`
	Arbiter    arbiter.Stats    `json:"arbiter"`
	Users      users.Statistics `json:"users"`
}

// Brain ties the gating and memory components together.
type Brain struct {
	mu       sync.Mutex
	botName  string
	arbiter  *arbiter.Arbiter
	history  *history.Store
	users    *users.Store
	composer *persona.Composer
	provider providers.Client
}

func New(botName string, arb *arbiter.Arbiter, hist *history.Store, userStore *users.Store, composer *persona.Composer, provider providers.Client) *Brain {
	return &Brain{
		botName:  botName,
		arbiter:  arb,
		history:  hist,
		users:    userStore,
		composer: composer,
		provider: provider,
	}
}

// HandleIncoming runs one inbound message through the pipeline. The
// returned bool reports whether a reply was produced; the string is the
// reply text (possibly a fallback phrase — generation failure never
// surfaces as an error).
//
// Memory updates happen before arbitration so that suppressed messages
// still feed future context, and the response is recorded only after the
// reply has actually been committed to history.
func (b *Brain) HandleIncoming(ctx context.Context, author, content string, platform bus.Platform, forced bool) (string, bool) {
	b.mu.Lock()
	b.users.Touch(author)
	b.history.Append(author, content, platform, false)

	decision := b.arbiter.Evaluate(author, content, forced)
	if !decision.ShouldRespond {
		b.mu.Unlock()
		logger.DebugCF("brain", "message not answered", map[string]any{
			"author": author,
			"reason": decision.Reason,
		})
		return "", false
	}

	systemPrompt := b.composer.Compose(author, content, b.users.Summary(author))
	turns := generationTurns(b.history.GenerationContext())
	b.mu.Unlock()

	reply, err := b.provider.Generate(ctx, systemPrompt, turns)
	if err != nil || reply == "" {
		if err != nil {
			logger.WarnCF("brain", "generation failed, using fallback", map[string]any{
				"author": author,
				"error":  err.Error(),
			})
		}
		reply = providers.Fallback()
	}

	b.mu.Lock()
	b.history.Append(b.botName, reply, platform, true)
	b.arbiter.RecordResponse()
	b.mu.Unlock()

	logger.InfoCF("brain", "responding", map[string]any{
		"author":   author,
		"reason":   decision.Reason,
		"priority": decision.Priority,
	})
	return reply, true
}

// Learn stores a fact about a user, for the admin teach command.
func (b *Brain) Learn(username, fact string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.users.AddFact(username, fact)
}

// SetPreference records a user preference, last write wins.
func (b *Brain) SetPreference(username, key, value string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.users.SetPreference(username, key, value)
}

// UserSummary exposes the memory summary for the status surfaces.
func (b *Brain) UserSummary(username string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.users.Summary(username)
}

// RecentHistory returns a copy of the last count history entries.
func (b *Brain) RecentHistory(count int) []history.Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.history.Recent(count)
}

// UserRecords returns a copy of all user records.
func (b *Brain) UserRecords() map[string]users.Record {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.users.Records()
}

// ClearContext empties the conversation window. User memory and arbiter
// state are kept.
func (b *Brain) ClearContext() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.history.Clear()
	logger.InfoC("brain", "conversation context cleared")
}

// Status snapshots the engine state.
func (b *Brain) Status() Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Status{
		BotName:    b.botName,
		HistoryLen: b.history.Len(),
		Arbiter:    b.arbiter.Stats(),
		Users:      b.users.Statistics(),
	}
}

func generationTurns(ctx []history.Turn) []providers.Message {
	turns := make([]providers.Message, len(ctx))
	for i, t := range ctx {
		turns[i] = providers.Message{Role: t.Role, Content: t.Content}
	}
	return turns
}
