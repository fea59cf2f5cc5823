package handlers

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

var (
	errScopeMismatch   = errors.New("request signed for a different scope")
	errRequestExpired  = errors.New("request expiry outside accepted window")
	errRequestReplayed = errors.New("request already submitted")
	errReplayCacheFull = errors.New("too many outstanding signed requests")
)

// Envelope binds a signed body to one scope and a deadline. It is embedded in
// every signed request so the signature covers both.
type Envelope struct {
	Scope     string `json:"scope"`
	ExpiresAt int64  `json:"expires_at"` // unix seconds
}

// replayGuard remembers accepted signatures until their request expires.
type replayGuard struct {
	mu      sync.Mutex
	clock   clockwork.Clock
	maxTTL  time.Duration
	maxSize int
	seen    map[string]time.Time
}

func newReplayGuard(clock clockwork.Clock, maxTTL time.Duration, maxSize int) *replayGuard {
	return &replayGuard{
		clock:   clock,
		maxTTL:  maxTTL,
		maxSize: maxSize,
		seen:    make(map[string]time.Time),
	}
}

// admit records signature and fails if it was already seen or expiresAt is
// not within (now, now+maxTTL].
func (g *replayGuard) admit(signature string, expiresAt time.Time) error {
	now := g.clock.Now()
	if !expiresAt.After(now) {
		return fmt.Errorf("%w: expired at %s", errRequestExpired, expiresAt.UTC().Format(time.RFC3339))
	}
	if expiresAt.After(now.Add(g.maxTTL)) {
		return fmt.Errorf("%w: expires more than %s ahead", errRequestExpired, g.maxTTL)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if exp, ok := g.seen[signature]; ok && exp.After(now) {
		return errRequestReplayed
	}
	if len(g.seen) >= g.maxSize {
		g.prune(now)
		if len(g.seen) >= g.maxSize {
			return errReplayCacheFull
		}
	}
	g.seen[signature] = expiresAt
	return nil
}

func (g *replayGuard) prune(now time.Time) {
	for sig, exp := range g.seen {
		if !exp.After(now) {
			delete(g.seen, sig)
		}
	}
}

func (g *replayGuard) size() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.seen)
}
