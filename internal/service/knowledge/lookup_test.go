package knowledge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"What is your NAME?":          "what is your name",
		"  what   is\tyour\nname  ":   "what is your name",
		"What's up!!!":                "whats up",
		"":                            "",
		"¿Qué tal, Señor?":            "qué tal señor",
		"--- ???":                     "",
		"version 2.0 is out":          "version 20 is out",
	}
	for in, want := range cases {
		assert.Equal(t, want, Normalize(in), "Normalize(%q)", in)
	}
}

func TestLookup_CaseAndPunctuationInsensitive(t *testing.T) {
	table := NewTable(Defaults())

	a, ok := table.Lookup("What is your NAME?")
	require.True(t, ok)
	b, ok := table.Lookup("what is your name")
	require.True(t, ok)
	assert.Equal(t, a, b)
}

func TestLookup_ExactMatchOnly(t *testing.T) {
	table := NewTable(Defaults())

	_, ok := table.Lookup("what is your name please")
	assert.False(t, ok)
	_, ok = table.Lookup("name")
	assert.False(t, ok)
}

func TestLookup_MissNeverPanics(t *testing.T) {
	var nilTable *Table
	_, ok := nilTable.Lookup("hi")
	assert.False(t, ok)
	assert.Zero(t, nilTable.Len())

	_, ok = NewTable(nil).Lookup("")
	assert.False(t, ok)
}

func TestNewTable_SkipsEmptyEntries(t *testing.T) {
	table := NewTable(map[string]string{
		"???":   "punctuation only",
		"hello": "   ",
		"Hi!":   "Hi there",
	})
	assert.Equal(t, 1, table.Len())
	answer, ok := table.Lookup("hi")
	require.True(t, ok)
	assert.Equal(t, "Hi there", answer)
}

func TestMerge(t *testing.T) {
	merged := Merge(map[string]string{"a": "1", "b": "2"}, map[string]string{"b": "3", "c": "4"})
	assert.Equal(t, map[string]string{"a": "1", "b": "3", "c": "4"}, merged)
}
