package arbiter

import (
	"testing"
	"time"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestArbiter(clock *fakeClock) *Arbiter {
	return New("ryosaia", []string{"ryosa", "ryo"}, 2*time.Second, 10, WithClock(clock.now))
}

func TestEvaluate_SelfSuppression(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1700000000, 0)}
	a := newTestArbiter(clock)

	cases := []struct {
		author string
		self   bool
	}{
		{"ryosaia", true},
		{"RyosaIA", true},
		{"  Ryosa ", true},
		{"ryo", true},
		{"ryosa_fan42", false}, // contains an alias, not equal to one
		{"viewer1", false},
	}

	for _, tc := range cases {
		d := a.Evaluate(tc.author, "@ryosa hello", false)
		if tc.self {
			if d.ShouldRespond || d.Reason != ReasonSelfMessage {
				t.Errorf("author %q: expected self suppression, got %+v", tc.author, d)
			}
		} else if !d.ShouldRespond {
			t.Errorf("author %q: expected mention response, got %+v", tc.author, d)
		}
	}
}

func TestEvaluate_SelfSuppressionDominatesForced(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1700000000, 0)}
	a := newTestArbiter(clock)

	d := a.Evaluate("ryosaia", "@ryosa hello", true)
	if d.ShouldRespond || d.Reason != ReasonSelfMessage {
		t.Fatalf("forced self message must be suppressed, got %+v", d)
	}
}

func TestEvaluate_Mention(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1700000000, 0)}
	a := newTestArbiter(clock)

	cases := []struct {
		content string
		want    bool
	}{
		{"@ryosa you there?", true},
		{"hey Ryo, what's up", true},
		{"RYOSA!!!", true},
		{"hello everyone", false},
		{"", false},
	}

	for _, tc := range cases {
		d := a.Evaluate("viewer1", tc.content, false)
		if d.ShouldRespond != tc.want {
			t.Errorf("content %q: ShouldRespond = %v, want %v (reason %q)", tc.content, d.ShouldRespond, tc.want, d.Reason)
		}
		if tc.want && (d.Reason != ReasonMention || d.Priority != 10) {
			t.Errorf("content %q: expected mention/10, got %+v", tc.content, d)
		}
	}
}

func TestEvaluate_Cooldown(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1700000000, 0)}
	a := newTestArbiter(clock)

	a.RecordResponse()
	clock.advance(time.Second)

	d := a.Evaluate("viewer1", "@ryosa still there?", false)
	if d.ShouldRespond || d.Reason != ReasonCooldown {
		t.Fatalf("mention 1s after a response should hit cooldown, got %+v", d)
	}

	// Forced bypasses cooldown, not rate limit or self suppression.
	d = a.Evaluate("viewer1", "@ryosa still there?", true)
	if !d.ShouldRespond || d.Reason != ReasonMention {
		t.Fatalf("forced mention should bypass cooldown, got %+v", d)
	}

	clock.advance(1500 * time.Millisecond)
	d = a.Evaluate("viewer1", "@ryosa still there?", false)
	if !d.ShouldRespond {
		t.Fatalf("cooldown elapsed, expected response, got %+v", d)
	}
}

func TestEvaluate_ForcedWithoutMention(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1700000000, 0)}
	a := newTestArbiter(clock)

	d := a.Evaluate("viewer1", "tell us a joke", true)
	if !d.ShouldRespond || d.Reason != ReasonForced || d.Priority != 9 {
		t.Fatalf("expected forced/9, got %+v", d)
	}
}

func TestEvaluate_RateLimit(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1700000000, 0)}
	a := newTestArbiter(clock)

	for i := 0; i < 10; i++ {
		d := a.Evaluate("viewer1", "@ryosa ping", true)
		if !d.ShouldRespond {
			t.Fatalf("response %d unexpectedly blocked: %+v", i, d)
		}
		a.RecordResponse()
		clock.advance(3 * time.Second)
	}

	// The 11th within the same 60s window is blocked even on an exact
	// mention and even when forced.
	d := a.Evaluate("viewer1", "@ryosa ping", true)
	if d.ShouldRespond || d.Reason != ReasonRateLimit {
		t.Fatalf("11th response should be rate limited, got %+v", d)
	}

	// Once the oldest response timestamps fall out of the window, the
	// gate reopens.
	clock.advance(45 * time.Second)
	d = a.Evaluate("viewer1", "@ryosa ping", false)
	if !d.ShouldRespond {
		t.Fatalf("window drained, expected response, got %+v", d)
	}
}

func TestEvaluate_NoTrigger(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1700000000, 0)}
	a := newTestArbiter(clock)

	d := a.Evaluate("viewer1", "what game is this?", false)
	if d.ShouldRespond || d.Reason != ReasonNoTrigger || d.Priority != 0 {
		t.Fatalf("expected no-trigger, got %+v", d)
	}
}

func TestStats(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1700000000, 0)}
	a := newTestArbiter(clock)

	s := a.Stats()
	if s.ResponsesLastMinute != 0 || s.RateLimited || s.CooldownRemaining != 0 {
		t.Fatalf("fresh arbiter stats: %+v", s)
	}

	a.RecordResponse()
	clock.advance(500 * time.Millisecond)

	s = a.Stats()
	if s.ResponsesLastMinute != 1 {
		t.Errorf("ResponsesLastMinute = %d, want 1", s.ResponsesLastMinute)
	}
	if s.CooldownRemaining != 1500*time.Millisecond {
		t.Errorf("CooldownRemaining = %v, want 1.5s", s.CooldownRemaining)
	}
	if s.MaxPerMinute != 10 {
		t.Errorf("MaxPerMinute = %d, want 10", s.MaxPerMinute)
	}
}
