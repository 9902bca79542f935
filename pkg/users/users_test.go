package users

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moekyun/mika/pkg/storage"
)

func TestTouchCreatesAndCounts(t *testing.T) {
	s := New(nil)

	s.Touch("Alice")
	s.Touch("alice")
	s.Touch("  ALICE ")

	stats := s.Statistics()
	assert.Equal(t, 1, stats.TotalUsers, "normalized variants must collapse to one record")
	assert.Equal(t, 3, stats.TotalMessages)
}

func TestAddFactDeduplicates(t *testing.T) {
	s := New(nil)

	s.AddFact("bob", "plays guitar")
	s.AddFact("bob", "plays guitar")
	s.AddFact("bob", "likes cats")

	assert.Equal(t, []string{"plays guitar", "likes cats"}, s.Facts("bob"))
	assert.Equal(t, 2, s.Statistics().TotalFacts)
}

func TestPreferencesLastWriteWins(t *testing.T) {
	s := New(nil)

	s.SetPreference("carol", "game", "tetris")
	s.SetPreference("carol", "game", "chess")

	v, ok := s.GetPreference("carol", "game")
	require.True(t, ok)
	assert.Equal(t, "chess", v)

	_, ok = s.GetPreference("carol", "drink")
	assert.False(t, ok)
	_, ok = s.GetPreference("nobody", "game")
	assert.False(t, ok)
}

func TestSummaryTiers(t *testing.T) {
	s := New(nil)

	for i := 0; i < 101; i++ {
		s.Touch("vet")
	}
	for i := 0; i < 11; i++ {
		s.Touch("reg")
	}
	s.Touch("newbie")

	assert.Contains(t, s.Summary("vet"), "regular veteran")
	assert.Contains(t, s.Summary("vet"), "101 messages")
	assert.Contains(t, s.Summary("reg"), "recurringly")
	assert.Contains(t, s.Summary("newbie"), "relatively new")
}

func TestSummaryUnknownUser(t *testing.T) {
	s := New(nil)

	got := s.Summary("Stranger")
	assert.Equal(t, "stranger is a brand new visitor!", got)
}

func TestSummaryIncludesFactsAndPreferences(t *testing.T) {
	s := New(nil)

	s.Touch("dave")
	s.AddFact("dave", "speedruns mario")
	s.SetPreference("dave", "greeting", "yo")
	s.SetPreference("dave", "color", "blue")

	sum := s.Summary("dave")
	assert.Contains(t, sum, "You know that: speedruns mario")
	// preference keys come out sorted
	assert.Contains(t, sum, "Preferences: color: blue, greeting: yo")
}

func TestPersistenceRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store, err := storage.NewJSONStore(dir)
	require.NoError(t, err)

	s := New(store)
	s.Touch("erin")
	s.AddFact("erin", "draws fanart")
	s.SetPreference("erin", "tea", "green")

	reloaded := New(store)
	assert.Equal(t, []string{"draws fanart"}, reloaded.Facts("erin"))
	v, ok := reloaded.GetPreference("erin", "tea")
	require.True(t, ok)
	assert.Equal(t, "green", v)
	assert.Equal(t, 1, reloaded.Statistics().TotalMessages)
}

func TestTouchUpdatesSeenTimes(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	current := base
	s := New(nil, WithClock(func() time.Time { return current }))

	s.Touch("frank")
	current = base.Add(time.Hour)
	s.Touch("frank")

	recs := s.Records()
	rec, ok := recs["frank"]
	require.True(t, ok)
	assert.Equal(t, base, rec.FirstSeen)
	assert.Equal(t, base.Add(time.Hour), rec.LastSeen)
}

func TestRecordsReturnsCopy(t *testing.T) {
	s := New(nil)
	s.AddFact("gina", "loves rhythm games")

	recs := s.Records()
	recs["gina"].Facts[0] = "mutated"

	assert.Equal(t, []string{"loves rhythm games"}, s.Facts("gina"))
}
