package credential

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync"
	"time"
)

// DefaultCooldown is how long a failed credential is skipped.
const DefaultCooldown = 60 * time.Second

// FailureKind classifies why an attempt with a credential failed.
type FailureKind int

const (
	FailureGeneric FailureKind = iota
	FailureRateLimited
	FailureQuotaExhausted
)

func (k FailureKind) String() string {
	switch k {
	case FailureRateLimited:
		return "rate_limited"
	case FailureQuotaExhausted:
		return "quota_exhausted"
	default:
		return "generic"
	}
}

// deprioritizes reports whether the failure moves the credential to the back.
func (k FailureKind) deprioritizes() bool {
	return k == FailureRateLimited || k == FailureQuotaExhausted
}

// Credential is one API token plus its cooldown state. ID is a fingerprint of the
// token and is the only value safe to log.
type Credential struct {
	ID            string
	Token         string
	CooldownUntil time.Time
}

// InCooldown reports whether the credential must be skipped at now.
func (c Credential) InCooldown(now time.Time) bool {
	return !c.CooldownUntil.IsZero() && now.Before(c.CooldownUntil)
}

// Fingerprint derives a stable, non-secret identifier from a token.
func Fingerprint(token string) string {
	sum := sha256.Sum256([]byte(token))
	return "k_" + hex.EncodeToString(sum[:6])
}

// Pool is the ordered credential set shared by all requests. The front of the order
// is attempted first. Order and cooldowns are guarded by a single mutex that is never
// held across a network call.
type Pool struct {
	mu       sync.Mutex
	order    []*Credential
	cooldown time.Duration
	now      func() time.Time
}

// Option customizes a Pool.
type Option func(*Pool)

// WithCooldown overrides DefaultCooldown.
func WithCooldown(d time.Duration) Option {
	return func(p *Pool) {
		if d > 0 {
			p.cooldown = d
		}
	}
}

// WithClock injects the time source used by RecordFailure.
func WithClock(now func() time.Time) Option {
	return func(p *Pool) {
		if now != nil {
			p.now = now
		}
	}
}

// NewPool builds a pool from raw tokens in configuration order. Blank and repeated
// tokens are dropped.
func NewPool(tokens []string, opts ...Option) *Pool {
	p := &Pool{
		cooldown: DefaultCooldown,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}

	seen := make(map[string]struct{}, len(tokens))
	for _, raw := range tokens {
		token := strings.TrimSpace(raw)
		if token == "" {
			continue
		}
		id := Fingerprint(token)
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		p.order = append(p.order, &Credential{ID: id, Token: token})
	}
	return p
}

// Len returns the number of credentials.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.order)
}

// Snapshot returns a copy of the current order for one request's attempt loop.
func (p *Pool) Snapshot() []Credential {
	p.mu.Lock()
	defer p.mu.Unlock()

	view := make([]Credential, len(p.order))
	for i, c := range p.order {
		view[i] = *c
	}
	return view
}

// InCooldown checks the live cooldown state of the credential with the given id.
// Unknown ids are reported as cooling down so they are never attempted.
func (p *Pool) InCooldown(id string, now time.Time) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	idx := p.indexLocked(id)
	if idx < 0 {
		return true
	}
	return p.order[idx].InCooldown(now)
}

// RecordSuccess moves the credential to the front of the order.
func (p *Pool) RecordSuccess(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	idx := p.indexLocked(id)
	if idx <= 0 {
		return
	}
	c := p.order[idx]
	copy(p.order[1:idx+1], p.order[:idx])
	p.order[0] = c
}

// RecordFailure starts the cooldown and, for quota failures, moves the credential to
// the back of the order.
func (p *Pool) RecordFailure(id string, kind FailureKind) {
	p.mu.Lock()
	defer p.mu.Unlock()

	idx := p.indexLocked(id)
	if idx < 0 {
		return
	}
	c := p.order[idx]
	c.CooldownUntil = p.now().Add(p.cooldown)

	if !kind.deprioritizes() || idx == len(p.order)-1 {
		return
	}
	copy(p.order[idx:], p.order[idx+1:])
	p.order[len(p.order)-1] = c
}

// Status summarizes one credential for health reporting.
type Status struct {
	ID            string     `json:"id"`
	Position      int        `json:"position"`
	CoolingDown   bool       `json:"coolingDown"`
	CooldownUntil *time.Time `json:"cooldownUntil,omitempty"`
}

// Statuses reports the order and cooldown state without exposing tokens.
func (p *Pool) Statuses(now time.Time) []Status {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]Status, len(p.order))
	for i, c := range p.order {
		s := Status{ID: c.ID, Position: i, CoolingDown: c.InCooldown(now)}
		if s.CoolingDown {
			until := c.CooldownUntil
			s.CooldownUntil = &until
		}
		out[i] = s
	}
	return out
}

func (p *Pool) indexLocked(id string) int {
	for i, c := range p.order {
		if c.ID == id {
			return i
		}
	}
	return -1
}
