// Package arbiter decides, per inbound chat message, whether the agent
// should respond at all. It is the cheap gate in front of the expensive
// generation backend: exact-match self-suppression, a rolling per-minute
// response ceiling, a cooldown between replies, and substring mention
// detection, evaluated in that order.
package arbiter

import (
	"strings"
	"time"
)

// Decision reason strings, stable for logs and the status surface.
const (
	ReasonSelfMessage = "self-message"
	ReasonRateLimit   = "rate-limit"
	ReasonCooldown    = "cooldown"
	ReasonMention     = "mention"
	ReasonForced      = "forced"
	ReasonNoTrigger   = "no-trigger"
)

const rateWindow = time.Minute

// Decision is the outcome of one Evaluate call. It is transient and never
// persisted.
type Decision struct {
	ShouldRespond bool
	Reason        string
	Priority      int
}

// Stats is a point-in-time snapshot of the arbiter's rolling state.
type Stats struct {
	ResponsesLastMinute int
	MaxPerMinute        int
	CooldownRemaining   time.Duration
	RateLimited         bool
}

// Arbiter is the response gate. It is not safe for concurrent use; the
// coordinator serializes access.
type Arbiter struct {
	botName      string
	aliases      []string
	cooldown     time.Duration
	maxPerMinute int

	lastResponse time.Time
	recent       []time.Time

	now func() time.Time
}

type Option func(*Arbiter)

// WithClock replaces the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(a *Arbiter) { a.now = now }
}

// New builds an arbiter for the given bot identity. Aliases and the bot
// name are normalized once at construction.
func New(botName string, aliases []string, cooldown time.Duration, maxPerMinute int, opts ...Option) *Arbiter {
	normalized := make([]string, 0, len(aliases))
	for _, alias := range aliases {
		alias = normalize(alias)
		if alias != "" {
			normalized = append(normalized, alias)
		}
	}

	a := &Arbiter{
		botName:      normalize(botName),
		aliases:      normalized,
		cooldown:     cooldown,
		maxPerMinute: maxPerMinute,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Evaluate applies the gating rules in strict priority order and returns
// the first match. Self-suppression dominates everything: an agent that
// answers its own output loops forever. Rate limit and cooldown block
// even explicit mentions; forced bypasses only the cooldown.
func (a *Arbiter) Evaluate(author, content string, forced bool) Decision {
	if a.isSelf(author) {
		return Decision{Reason: ReasonSelfMessage}
	}

	a.pruneWindow()
	if len(a.recent) >= a.maxPerMinute {
		return Decision{Reason: ReasonRateLimit}
	}

	if !forced && a.inCooldown() {
		return Decision{Reason: ReasonCooldown}
	}

	if a.isMentioned(content) {
		return Decision{ShouldRespond: true, Reason: ReasonMention, Priority: 10}
	}

	if forced {
		return Decision{ShouldRespond: true, Reason: ReasonForced, Priority: 9}
	}

	return Decision{Reason: ReasonNoTrigger}
}

// RecordResponse marks that a reply was actually sent to the chat surface.
// Call it exactly once per sent reply, never speculatively: the cooldown
// and rate window are only accurate if they count real traffic.
func (a *Arbiter) RecordResponse() {
	now := a.now()
	a.lastResponse = now
	a.recent = append(a.recent, now)
}

// Stats reports the rolling window for the status command and web surface.
func (a *Arbiter) Stats() Stats {
	a.pruneWindow()

	var remaining time.Duration
	if !a.lastResponse.IsZero() {
		if elapsed := a.now().Sub(a.lastResponse); elapsed < a.cooldown {
			remaining = a.cooldown - elapsed
		}
	}

	return Stats{
		ResponsesLastMinute: len(a.recent),
		MaxPerMinute:        a.maxPerMinute,
		CooldownRemaining:   remaining,
		RateLimited:         len(a.recent) >= a.maxPerMinute,
	}
}

// isSelf uses exact matching only. A viewer whose name merely contains an
// alias ("mika_fan42") must not be suppressed.
func (a *Arbiter) isSelf(author string) bool {
	author = normalize(author)
	if author == a.botName {
		return true
	}
	for _, alias := range a.aliases {
		if author == alias {
			return true
		}
	}
	return false
}

// isMentioned favors recall: any alias as a case-insensitive substring
// counts, with or without a leading "@".
func (a *Arbiter) isMentioned(content string) bool {
	content = strings.ToLower(content)
	for _, alias := range a.aliases {
		if strings.Contains(content, alias) {
			return true
		}
	}
	return false
}

func (a *Arbiter) inCooldown() bool {
	if a.lastResponse.IsZero() {
		return false
	}
	return a.now().Sub(a.lastResponse) < a.cooldown
}

func (a *Arbiter) pruneWindow() {
	cutoff := a.now().Add(-rateWindow)
	kept := a.recent[:0]
	for _, ts := range a.recent {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	a.recent = kept
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
