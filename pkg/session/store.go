package session

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/stirosario/sti-ai-chat-sub006/internal/pkg/logger"
)

// StoreConfig bounds the cache and schedules the write-back flush.
type StoreConfig struct {
	CacheSize     int
	SessionTTL    time.Duration // inactivity TTL for the cache
	RetentionTTL  time.Duration // durable record TTL handed to the backend
	FlushInterval time.Duration
	MaxDirty      int // backpressure bound on the dirty set
}

func (c *StoreConfig) defaults() {
	if c.CacheSize <= 0 {
		c.CacheSize = 1000
	}
	if c.SessionTTL <= 0 {
		c.SessionTTL = 30 * time.Minute
	}
	if c.RetentionTTL <= 0 {
		c.RetentionTTL = 72 * time.Hour
	}
	if c.FlushInterval <= 0 {
		c.FlushInterval = 5 * time.Second
	}
	if c.MaxDirty <= 0 {
		c.MaxDirty = 500
	}
}

// FlushOutcome reports one persistence attempt from a flush batch.
type FlushOutcome struct {
	ID  string
	Err error
}

type retryState struct {
	attempts int
	next     time.Time
}

// Store is a write-back session cache. Reads go cache-first; writes mark the
// session dirty and return immediately, a background loop persists dirty
// sessions in batches. Dirty sessions are pinned in a side map, so LRU
// eviction can never drop unflushed state: the pin is only removed once the
// backend write succeeds (or durability is explicitly given up and logged).
//
// The dirty map holds deep copies taken at Save time, while the caller still
// holds the per-session lock. The flusher only ever touches those snapshots,
// so it never races a turn mutating the live session.
type Store struct {
	cfg     StoreConfig
	cache   *expirable.LRU[string, *Session]
	backend Backend
	log     logger.ILogger

	mu    sync.Mutex
	dirty map[string]*Session
	retry map[string]*retryState

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

func NewStore(backend Backend, cfg StoreConfig, log logger.ILogger) *Store {
	cfg.defaults()

	s := &Store{
		cfg:     cfg,
		backend: backend,
		log:     log,
		dirty:   make(map[string]*Session),
		retry:   make(map[string]*retryState),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	s.cache = expirable.NewLRU[string, *Session](cfg.CacheSize, nil, cfg.SessionTTL)
	return s
}

// Run drives the periodic flush until Close is called. Meant to be started as
// a background goroutine from the container.
func (s *Store) Run() {
	ticker := time.NewTicker(s.cfg.FlushInterval)
	defer ticker.Stop()
	defer close(s.done)

	for {
		select {
		case <-ticker.C:
			s.FlushDirty(context.Background())
		case <-s.stop:
			// Final drain before shutdown.
			s.FlushDirty(context.Background())
			return
		}
	}
}

// Close stops the flush loop after one final drain.
func (s *Store) Close() {
	s.stopOnce.Do(func() { close(s.stop) })
	<-s.done
}

// Load returns the cached session, falling back to the dirty pin and then the
// durable backend. A backend hit repopulates the cache.
func (s *Store) Load(ctx context.Context, id string) (*Session, error) {
	if sess, ok := s.cache.Get(id); ok {
		return sess, nil
	}

	s.mu.Lock()
	if snap, ok := s.dirty[id]; ok {
		// Hand out a copy: the pinned snapshot belongs to the flusher.
		live := snap.Clone()
		s.mu.Unlock()
		s.cache.Add(id, live)
		return live, nil
	}
	s.mu.Unlock()

	sess, err := s.backend.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.cache.Add(id, sess)
	return sess, nil
}

// Save caches the session and marks it dirty; actual persistence is deferred
// to the flush loop. When the dirty set outgrows its bound, the caller pays
// for an inline flush (backpressure instead of unbounded growth).
func (s *Store) Save(ctx context.Context, sess *Session) {
	s.cache.Add(sess.ID, sess)
	snap := sess.Clone()

	s.mu.Lock()
	s.dirty[sess.ID] = snap
	over := len(s.dirty) >= s.cfg.MaxDirty
	s.mu.Unlock()

	if over {
		s.FlushDirty(ctx)
	}
}

// MarkDirty pins a snapshot for the next flush without touching the cache.
func (s *Store) MarkDirty(sess *Session) {
	snap := sess.Clone()
	s.mu.Lock()
	s.dirty[sess.ID] = snap
	s.mu.Unlock()
}

// Delete removes the session everywhere, including durable storage.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.cache.Remove(id)

	s.mu.Lock()
	delete(s.dirty, id)
	delete(s.retry, id)
	s.mu.Unlock()

	return s.backend.Delete(ctx, id)
}

// DirtyCount reports the current backlog, for health endpoints and tests.
func (s *Store) DirtyCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.dirty)
}

// FlushDirty persists every due dirty session best-effort. Failures stay
// dirty and are retried with exponential backoff on later cycles; a session
// that keeps failing past its inactivity TTL is dropped with a durability
// warning rather than silently.
func (s *Store) FlushDirty(ctx context.Context) []FlushOutcome {
	now := time.Now()

	s.mu.Lock()
	batch := make(map[string]*Session, len(s.dirty))
	for id, sess := range s.dirty {
		if st, ok := s.retry[id]; ok && now.Before(st.next) {
			continue // backing off
		}
		batch[id] = sess
	}
	s.mu.Unlock()

	outcomes := make([]FlushOutcome, 0, len(batch))
	for id, sess := range batch {
		err := s.backend.Put(ctx, id, sess, s.cfg.RetentionTTL)
		outcomes = append(outcomes, FlushOutcome{ID: id, Err: err})

		s.mu.Lock()
		if err == nil {
			// A Save may have pinned a newer snapshot while this one was being
			// written; only unpin if ours is still the latest.
			if s.dirty[id] == sess {
				delete(s.dirty, id)
			}
			delete(s.retry, id)
			s.mu.Unlock()
			continue
		}

		st, ok := s.retry[id]
		if !ok {
			st = &retryState{}
			s.retry[id] = st
		}
		st.attempts++
		st.next = now.Add(flushBackoff(st.attempts))

		// Give up only once the session went inactive past its TTL; the data
		// loss is deliberate and loud.
		expired := now.Sub(sess.LastActivityAt) > s.cfg.SessionTTL
		if expired && st.attempts >= 3 {
			delete(s.dirty, id)
			delete(s.retry, id)
			s.mu.Unlock()
			if s.log != nil {
				s.log.Error("SessionStore", "Dropping unflushed session after TTL, changes lost", map[string]interface{}{
					"session_id": id,
					"attempts":   st.attempts,
					"error":      err.Error(),
				})
			}
			continue
		}
		s.mu.Unlock()

		if s.log != nil {
			s.log.Warn("SessionStore", "Flush failed, will retry", map[string]interface{}{
				"session_id": id,
				"attempts":   st.attempts,
				"error":      err.Error(),
			})
		}
	}

	return outcomes
}

func flushBackoff(attempts int) time.Duration {
	if attempts > 7 {
		attempts = 7 // cap at 32s
	}
	return 500 * time.Millisecond << uint(attempts-1)
}
