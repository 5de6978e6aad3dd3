package guard

import (
	"errors"
	"sync"
	"time"
)

// ErrCapacity rejects brand-new sessions once the active set is full. The
// boundary maps it to "service busy"; unlike throttling there is no
// retry-after guarantee.
var ErrCapacity = errors.New("service at capacity")

// ConcurrencyGuard tracks distinct active session ids with a hard cap.
// Already-active sessions are never rejected; only admissions of never-seen
// ids are refused at capacity. A periodic sweep prunes entries idle past the
// inactivity timeout regardless of what happened to their session elsewhere.
type ConcurrencyGuard struct {
	mu       sync.Mutex
	active   map[string]time.Time
	max      int
	idle     time.Duration
	stopOnce sync.Once
	stop     chan struct{}
}

func NewConcurrencyGuard(max int, idle time.Duration) *ConcurrencyGuard {
	if max <= 0 {
		max = 200
	}
	if idle <= 0 {
		idle = 30 * time.Minute
	}
	return &ConcurrencyGuard{
		active: make(map[string]time.Time),
		max:    max,
		idle:   idle,
		stop:   make(chan struct{}),
	}
}

// RegisterActivity admits the session or refreshes its activity timestamp.
func (g *ConcurrencyGuard) RegisterActivity(sessionID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.active[sessionID]; ok {
		g.active[sessionID] = time.Now()
		return nil
	}
	if len(g.active) >= g.max {
		return ErrCapacity
	}
	g.active[sessionID] = time.Now()
	return nil
}

// Release drops a session explicitly (conversation ended). The sweep would
// get it eventually; this just frees the slot sooner.
func (g *ConcurrencyGuard) Release(sessionID string) {
	g.mu.Lock()
	delete(g.active, sessionID)
	g.mu.Unlock()
}

// ActiveCount reports the current active set size.
func (g *ConcurrencyGuard) ActiveCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.active)
}

// Run prunes idle entries periodically until Stop is called.
func (g *ConcurrencyGuard) Run(interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			g.sweep(time.Now())
		case <-g.stop:
			return
		}
	}
}

// Stop terminates the sweep loop.
func (g *ConcurrencyGuard) Stop() {
	g.stopOnce.Do(func() { close(g.stop) })
}

func (g *ConcurrencyGuard) sweep(now time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for id, last := range g.active {
		if now.Sub(last) > g.idle {
			delete(g.active, id)
		}
	}
}
