package persona

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func testComposer() *Composer {
	return NewComposer(map[string]string{
		"Tosachii":  "creator",
		"tosachii_": "creator",
		"ichiro":    "friend",
	})
}

func TestCategoryLookup(t *testing.T) {
	c := testComposer()

	assert.Equal(t, CategoryCreator, c.Category("tosachii"))
	assert.Equal(t, CategoryCreator, c.Category("  TOSACHII_ "))
	assert.Equal(t, CategoryFriend, c.Category("Ichiro"))
	assert.Equal(t, CategoryViewer, c.Category("random_viewer123"))
}

func TestIsQuestion(t *testing.T) {
	cases := []struct {
		content string
		want    bool
	}{
		{"what game is this", true},
		{"is that the final boss?", true},
		{"anyone know a good build", true},
		{"how do I craft this  ", true},
		{"nice play", false},
		{"lets gooo", false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, IsQuestion(tc.content), "content=%q", tc.content)
	}
}

func TestComposeLayersAddenda(t *testing.T) {
	c := testComposer()

	prompt := c.Compose("tosachii", "how are you?", "tosachii is a regular veteran of the chat (150 messages)")

	assert.Contains(t, prompt, BasePrompt)
	assert.Contains(t, prompt, "your creator")
	assert.Contains(t, prompt, "asking a question")
	assert.Contains(t, prompt, "Additional context:\ntosachii is a regular veteran")
}

func TestComposeViewerNoQuestionNoSummary(t *testing.T) {
	c := testComposer()

	prompt := c.Compose("stranger", "hello there", "")

	assert.Contains(t, prompt, "viewer from chat")
	assert.NotContains(t, prompt, "asking a question")
	assert.NotContains(t, prompt, "Additional context")
}

func TestComposeUnknownCategoryFallsBackToViewer(t *testing.T) {
	c := NewComposer(map[string]string{"vip_person": "superfan"})

	prompt := c.Compose("vip_person", "hi", "")

	assert.Contains(t, prompt, "viewer from chat")
}
