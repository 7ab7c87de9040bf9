// Package dedupe suppresses accidental double sends: the same text from the same user
// inside a short window is answered from cache instead of being processed again.
package dedupe

import (
	"container/list"
	"strings"
	"sync"
	"time"
)

const (
	DefaultWindow   = 15 * time.Second
	DefaultCapacity = 1000
)

// entry is the last fresh request seen for one user.
type entry struct {
	userID  string
	text    string
	at      time.Time
	reply   string
	element *list.Element
}

// Suppressor keeps one entry per user. Entries are ordered by last update (oldest at
// the front) so eviction is O(1).
type Suppressor struct {
	mu       sync.Mutex
	entries  map[string]*entry
	order    *list.List
	window   time.Duration
	capacity int
}

// New creates a suppressor. Non-positive arguments fall back to the defaults.
func New(window time.Duration, capacity int) *Suppressor {
	if window <= 0 {
		window = DefaultWindow
	}
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Suppressor{
		entries:  make(map[string]*entry),
		order:    list.New(),
		window:   window,
		capacity: capacity,
	}
}

// Normalize is the light normalization used for duplicate detection: lowercase and
// trim. Punctuation is significant.
func Normalize(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}

// Check returns the cached reply when userID sent the same normalized text less than
// one window before now.
func (s *Suppressor) Check(userID, raw string, now time.Time) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[userID]
	if !ok {
		return "", false
	}
	if e.text != Normalize(raw) || now.Sub(e.at) >= s.window {
		return "", false
	}
	return e.reply, true
}

// Record overwrites the user's entry after a fresh reply. When the map grows past
// capacity the single least recently updated entry is evicted.
func (s *Suppressor) Record(userID, raw, reply string, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	text := Normalize(raw)
	if e, ok := s.entries[userID]; ok {
		e.text = text
		e.at = now
		e.reply = reply
		s.order.MoveToBack(e.element)
		return
	}

	e := &entry{userID: userID, text: text, at: now, reply: reply}
	e.element = s.order.PushBack(e)
	s.entries[userID] = e

	if len(s.entries) > s.capacity {
		s.evictOldestLocked()
	}
}

// Len returns the number of tracked users.
func (s *Suppressor) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *Suppressor) evictOldestLocked() {
	front := s.order.Front()
	if front == nil {
		return
	}
	oldest, _ := front.Value.(*entry)
	s.order.Remove(front)
	if oldest != nil {
		delete(s.entries, oldest.userID)
	}
}
