package history

import (
	"fmt"
	"strings"
	"testing"

	"github.com/moekyun/mika/pkg/bus"
	"github.com/moekyun/mika/pkg/storage"
)

func TestAppend_BoundedWindow(t *testing.T) {
	s := New(3, nil)

	for i := 0; i < 7; i++ {
		s.Append("viewer1", fmt.Sprintf("msg-%d", i), bus.PlatformTwitch, false)
		if s.Len() > 3 {
			t.Fatalf("window exceeded bound after %d appends: len=%d", i+1, s.Len())
		}
	}

	got := s.Recent(0)
	if len(got) != 3 {
		t.Fatalf("window length = %d, want 3", len(got))
	}
	// Oldest evicted first: the window holds exactly the last three.
	for i, msg := range got {
		want := fmt.Sprintf("msg-%d", 4+i)
		if msg.Content != want {
			t.Errorf("window[%d] = %q, want %q", i, msg.Content, want)
		}
	}
}

func TestRecent_ReturnsCopy(t *testing.T) {
	s := New(5, nil)
	s.Append("viewer1", "original", bus.PlatformTwitch, false)

	got := s.Recent(1)
	got[0].Content = "mutated"

	if s.Recent(1)[0].Content != "original" {
		t.Fatal("mutating Recent result affected internal window")
	}
}

func TestRecent_CountLargerThanWindow(t *testing.T) {
	s := New(5, nil)
	s.Append("viewer1", "only", bus.PlatformTwitch, false)

	if got := s.Recent(10); len(got) != 1 {
		t.Fatalf("Recent(10) length = %d, want 1", len(got))
	}
}

func TestGenerationContext_RolesAndAttribution(t *testing.T) {
	s := New(5, nil)
	s.Append("viewer1", "what game is this?", bus.PlatformTwitch, false)
	s.Append("mika_ai", "it's Hollow Knight!", bus.PlatformTwitch, true)

	turns := s.GenerationContext()
	if len(turns) != 2 {
		t.Fatalf("got %d turns, want 2", len(turns))
	}
	if turns[0].Role != "user" {
		t.Errorf("turns[0].Role = %q, want user", turns[0].Role)
	}
	if !strings.Contains(turns[0].Content, "viewer1") {
		t.Errorf("viewer turn lacks attribution marker: %q", turns[0].Content)
	}
	if turns[1].Role != "assistant" || turns[1].Content != "it's Hollow Knight!" {
		t.Errorf("agent turn must pass through unprefixed, got %+v", turns[1])
	}
}

func TestClearAndReload(t *testing.T) {
	dir := t.TempDir()
	store, err := storage.NewJSONStore(dir)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	s := New(5, store)
	s.Append("viewer1", "hello", bus.PlatformDiscord, false)
	s.Append("viewer2", "hey", bus.PlatformDiscord, false)

	// A second store over the same backing data sees the window.
	reloaded := New(5, store)
	if reloaded.Len() != 2 {
		t.Fatalf("reloaded window length = %d, want 2", reloaded.Len())
	}

	s.Clear()
	if s.Len() != 0 {
		t.Fatalf("window not empty after Clear: %d", s.Len())
	}
	cleared := New(5, store)
	if cleared.Len() != 0 {
		t.Fatalf("Clear was not persisted, reloaded length = %d", cleared.Len())
	}
}

func TestLoad_TruncatesToWindowSize(t *testing.T) {
	dir := t.TempDir()
	store, err := storage.NewJSONStore(dir)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	big := New(10, store)
	for i := 0; i < 10; i++ {
		big.Append("viewer1", fmt.Sprintf("msg-%d", i), bus.PlatformTwitch, false)
	}

	small := New(4, store)
	if small.Len() != 4 {
		t.Fatalf("reloaded with smaller bound, length = %d, want 4", small.Len())
	}
	if got := small.Recent(0)[0].Content; got != "msg-6" {
		t.Fatalf("oldest surviving message = %q, want msg-6", got)
	}
}

type failingStore struct{}

func (failingStore) Load(string, any) error { return storage.ErrNotFound }
func (failingStore) Save(string, any) error { return fmt.Errorf("disk full") }
func (failingStore) Close() error           { return nil }

func TestAppend_SurvivesPersistFailure(t *testing.T) {
	s := New(3, failingStore{})
	s.Append("viewer1", "still recorded", bus.PlatformTwitch, false)
	if s.Len() != 1 {
		t.Fatal("append must succeed even when persistence fails")
	}
}
