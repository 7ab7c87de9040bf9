package knowledge

import (
	"strings"
	"unicode"
)

// Normalize lowercases text, drops every rune that is neither a letter, a digit nor
// whitespace, collapses whitespace runs and trims the ends.
func Normalize(text string) string {
	if text == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// Table is the canned-answer table, keyed by normalized question. It is built once
// and read-only afterwards, so it is safe for concurrent use.
type Table struct {
	answers map[string]string
}

// NewTable normalizes every configured question. Later entries win when two
// questions normalize to the same key; entries with an empty key or answer are
// skipped.
func NewTable(entries map[string]string) *Table {
	t := &Table{answers: make(map[string]string, len(entries))}
	for question, answer := range entries {
		key := Normalize(question)
		answer = strings.TrimSpace(answer)
		if key == "" || answer == "" {
			continue
		}
		t.answers[key] = answer
	}
	return t
}

// Lookup returns the canned answer for an exact normalized match.
func (t *Table) Lookup(message string) (string, bool) {
	if t == nil {
		return "", false
	}
	answer, ok := t.answers[Normalize(message)]
	return answer, ok
}

// Len returns the number of distinct normalized questions.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.answers)
}

// Merge returns a new entry map with overrides layered over base.
func Merge(base, overrides map[string]string) map[string]string {
	merged := make(map[string]string, len(base)+len(overrides))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range overrides {
		merged[k] = v
	}
	return merged
}
