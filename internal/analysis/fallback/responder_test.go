package fallback

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/zhouzirui/bzik/backend/internal/model/persona"
)

func anna() persona.Persona {
	return persona.NewMemoryStore(persona.Seed()).Resolve("Anna")
}

func TestDecideRuleOrder(t *testing.T) {
	cases := []struct {
		message string
		want    Source
	}{
		{"hi", SourceGreeting},
		{"  Hey There ", SourceGreeting},
		{"How are you doing today?", SourceHowAreYou},
		{"Tell me about your business features", SourceDomain},
		{"what about pricing", SourceDomain},
		{"Who created you?", SourceIdentity},
		{"What can you help with?", SourceHelp},
		{"I really appreciate it", SourceGratitude},
		{"Goodbye!", SourceFarewell},
		{"Random question about machine learning", SourceKeyword},
		{"?? !!", SourceUnknown},
		{"", SourceEmptyPrompt},
	}

	for _, tc := range cases {
		got := Decide(tc.message, anna())
		assert.Equal(t, tc.want, got.Source, "message %q", tc.message)
		assert.NotEmpty(t, got.Reply, "message %q", tc.message)
	}
}

func TestDecide_BusinessFeaturesBeforeFeatures(t *testing.T) {
	got := Decide("tell me about your business features", anna())
	assert.Contains(t, got.Reply, "business solutions")
}

func TestDecide_GreetingRequiresExactMatch(t *testing.T) {
	got := Decide("hi there, tell me something", anna())
	assert.NotEqual(t, SourceGreeting, got.Source)
}

func TestDecide_KeywordReplyReferencesFirstKeyword(t *testing.T) {
	got := Decide("Random question about machine learning", anna())
	assert.Contains(t, got.Reply, "random")
}

func TestDecide_Deterministic(t *testing.T) {
	for _, msg := range []string{"hi", "how are you", "something about gardening", "??"} {
		first := Reply(msg, anna())
		for i := 0; i < 5; i++ {
			assert.Equal(t, first, Reply(msg, anna()))
		}
	}
}

func TestReply_NeverEmpty(t *testing.T) {
	store := persona.NewMemoryStore(persona.Seed())
	messages := []string{"", " ", "hi", "yo", "sup", "42", "ok", "a b c", "😀😀", "tell me more about quantum computing"}
	for _, p := range store.List() {
		for _, msg := range messages {
			assert.NotEmpty(t, Reply(msg, p), "persona %s message %q", p.ID, msg)
		}
	}
	assert.NotEmpty(t, Reply("hello", persona.Persona{}))
}

func TestKeywords(t *testing.T) {
	assert.Equal(t, []string{"random", "question", "about"}, Keywords("Random question about machine learning", 3))
	assert.Equal(t, []string{"gardening"}, Keywords("what is gardening?? gardening", 1))
	assert.Empty(t, Keywords("what would you have", 3))
	assert.Equal(t, []string{"grow", "tomatoes"}, Keywords("I grow tomatoes in 2024", 3))
}
