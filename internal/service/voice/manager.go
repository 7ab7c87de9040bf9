// Package voice tracks whether a user is still in a hands-free listening session.
package voice

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	DefaultListenDuration = 120 * time.Second
	DefaultSilenceTimeout = 25 * time.Second
	DefaultSilenceGrace   = 5 * time.Second

	SilencePrompt = "Is there anything I can do?"
	ExitMessage   = "Goodbye! See you soon."
)

// DefaultExitPhrases end a session when they appear anywhere in a message.
var DefaultExitPhrases = []string{"bye", "goodbye", "see you", "shut up", "stop listening", "close mic"}

// State 是会话在状态机中的位置。
type State string

const (
	StateInactive       State = "inactive"
	StateListening      State = "listening"
	StateSilencePending State = "silence_pending"
)

type session struct {
	listeningUntil time.Time
	lastInputAt    time.Time
	silenceStart   time.Time
	promptSentAt   *time.Time
}

func (s *session) state() State {
	if s.promptSentAt != nil {
		return StateSilencePending
	}
	return StateListening
}

// Status is what clients poll. Only one poll ever carries SilencePrompt for a given
// silence period.
type Status struct {
	Active         bool     `json:"active"`
	ShouldListen   bool     `json:"should_listen"`
	ListeningUntil *float64 `json:"listening_until"`
	TimeRemaining  float64  `json:"time_remaining"`
	SilentFor      float64  `json:"silent_for"`
	SilencePrompt  string   `json:"silence_prompt,omitempty"`
	ExitTriggered  bool     `json:"exit_triggered"`
	ExitMessage    string   `json:"exit_message,omitempty"`
	State          State    `json:"state"`
}

// Config tunes the timers. Zero fields use the defaults.
type Config struct {
	ListenDuration time.Duration
	SilenceTimeout time.Duration
	SilenceGrace   time.Duration
	ExitPhrases    []string
}

// Manager owns every user's session. All methods are safe for concurrent use.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*session

	listenDuration time.Duration
	silenceTimeout time.Duration
	silenceGrace   time.Duration
	exitPhrases    []string

	logger zerolog.Logger
}

// NewManager builds a manager from cfg.
func NewManager(cfg Config, logger zerolog.Logger) *Manager {
	m := &Manager{
		sessions:       make(map[string]*session),
		listenDuration: cfg.ListenDuration,
		silenceTimeout: cfg.SilenceTimeout,
		silenceGrace:   cfg.SilenceGrace,
		logger:         logger.With().Str("component", "voice").Logger(),
	}
	if m.listenDuration <= 0 {
		m.listenDuration = DefaultListenDuration
	}
	if m.silenceTimeout <= 0 {
		m.silenceTimeout = DefaultSilenceTimeout
	}
	if m.silenceGrace <= 0 {
		m.silenceGrace = DefaultSilenceGrace
	}

	phrases := cfg.ExitPhrases
	if len(phrases) == 0 {
		phrases = DefaultExitPhrases
	}
	for _, p := range phrases {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			m.exitPhrases = append(m.exitPhrases, p)
		}
	}
	return m
}

// DetectExit reports whether message contains an exit phrase (case-insensitive
// substring).
func (m *Manager) DetectExit(message string) bool {
	lower := strings.ToLower(message)
	for _, phrase := range m.exitPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

// Begin starts or refreshes the user's listening window. Any pending presence check is
// cancelled.
func (m *Manager) Begin(userID string, now time.Time) Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := &session{
		listeningUntil: now.Add(m.listenDuration),
		lastInputAt:    now,
		silenceStart:   now,
	}
	m.sessions[userID] = s
	return m.statusLocked(s, now)
}

// End destroys the user's session. It returns the exit payload so callers can forward
// it unchanged.
func (m *Manager) End(userID string) Status {
	m.mu.Lock()
	delete(m.sessions, userID)
	m.mu.Unlock()

	return Status{
		ExitTriggered: true,
		ExitMessage:   ExitMessage,
		State:         StateInactive,
	}
}

// Poll advances the silence timers for one user and returns the current status.
func (m *Manager) Poll(userID string, now time.Time) Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[userID]
	if !ok {
		return inactive()
	}

	if s.promptSentAt != nil {
		if now.Sub(*s.promptSentAt) > m.silenceGrace {
			delete(m.sessions, userID)
			m.logger.Debug().Str("user_id", userID).Msg("静默确认超时，结束语音会话")
			return Status{
				ExitTriggered: true,
				ExitMessage:   ExitMessage,
				State:         StateInactive,
			}
		}
		return m.statusLocked(s, now)
	}

	if now.Sub(s.lastInputAt) >= m.silenceTimeout {
		sent := now
		s.promptSentAt = &sent
		st := m.statusLocked(s, now)
		st.SilencePrompt = SilencePrompt
		return st
	}
	return m.statusLocked(s, now)
}

// Peek returns the status without advancing any timer.
func (m *Manager) Peek(userID string, now time.Time) Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[userID]
	if !ok {
		return inactive()
	}
	return m.statusLocked(s, now)
}

// Active reports whether the user currently has a session.
func (m *Manager) Active(userID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.sessions[userID]
	return ok
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Sweep drops sessions whose listening window has passed. It returns how many were
// removed.
func (m *Manager) Sweep(now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for userID, s := range m.sessions {
		if now.After(s.listeningUntil) {
			delete(m.sessions, userID)
			removed++
		}
	}
	return removed
}

// Run sweeps every interval until ctx is done.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := m.Sweep(now); n > 0 {
				m.logger.Debug().Int("removed", n).Msg("清理过期语音会话")
			}
		}
	}
}

func (m *Manager) statusLocked(s *session, now time.Time) Status {
	until := float64(s.listeningUntil.UnixNano()) / float64(time.Second)
	remaining := s.listeningUntil.Sub(now).Seconds()
	if remaining < 0 {
		remaining = 0
	}
	return Status{
		Active:         true,
		ShouldListen:   remaining > 0,
		ListeningUntil: &until,
		TimeRemaining:  remaining,
		SilentFor:      now.Sub(s.silenceStart).Seconds(),
		State:          s.state(),
	}
}

func inactive() Status {
	return Status{State: StateInactive}
}
