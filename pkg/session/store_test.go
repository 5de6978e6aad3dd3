package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stirosario/sti-ai-chat-sub006/pkg/flow"
)

// flakyBackend wraps MemoryBackend and fails Put on demand.
type flakyBackend struct {
	*MemoryBackend
	mu      sync.Mutex
	failing bool
	puts    int
}

func (b *flakyBackend) Put(ctx context.Context, id string, sess *Session, ttl time.Duration) error {
	b.mu.Lock()
	b.puts++
	failing := b.failing
	b.mu.Unlock()
	if failing {
		return errors.New("backend down")
	}
	return b.MemoryBackend.Put(ctx, id, sess, ttl)
}

func (b *flakyBackend) setFailing(v bool) {
	b.mu.Lock()
	b.failing = v
	b.mu.Unlock()
}

func newTestStore(t *testing.T, backend Backend) *Store {
	t.Helper()
	return NewStore(backend, StoreConfig{
		CacheSize:     8,
		SessionTTL:    time.Minute,
		RetentionTTL:  time.Hour,
		FlushInterval: time.Hour, // flush manually in tests
		MaxDirty:      100,
	}, nil)
}

func TestStoreLoadUnknownIsNotFound(t *testing.T) {
	store := newTestStore(t, NewMemoryBackend(time.Hour))

	_, err := store.Load(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStoreSaveFlushReload(t *testing.T) {
	backend := NewMemoryBackend(time.Hour)
	store := newTestStore(t, backend)
	ctx := context.Background()

	sess := New("abc")
	sess.Locale = "es-AR"
	sess.Append(SpeakerUser, "hola")
	sess.Append(SpeakerBot, "¿en qué idioma hablamos?")
	sess.Stage = flow.StageAskName
	sess.Append(SpeakerUser, "Valeria")
	sess.Touch()

	store.Save(ctx, sess)
	assert.Equal(t, 1, store.DirtyCount())

	outcomes := store.FlushDirty(ctx)
	require.Len(t, outcomes, 1)
	require.NoError(t, outcomes[0].Err)
	assert.Equal(t, 0, store.DirtyCount())

	// Simulate cache eviction: a cold store against the same backend must see
	// the identical transcript order and stage.
	cold := newTestStore(t, backend)
	reloaded, err := cold.Load(ctx, "abc")
	require.NoError(t, err)

	assert.Equal(t, flow.StageAskName, reloaded.Stage)
	assert.Equal(t, sess.Version, reloaded.Version)
	require.Len(t, reloaded.Transcript, 3)
	for i := range sess.Transcript {
		assert.Equal(t, sess.Transcript[i].Speaker, reloaded.Transcript[i].Speaker)
		assert.Equal(t, sess.Transcript[i].Text, reloaded.Transcript[i].Text)
		assert.Equal(t, sess.Transcript[i].Stage, reloaded.Transcript[i].Stage)
	}
}

func TestStoreDirtySurvivesCacheEviction(t *testing.T) {
	backend := &flakyBackend{MemoryBackend: NewMemoryBackend(time.Hour)}
	backend.setFailing(true)

	store := NewStore(backend, StoreConfig{
		CacheSize:     2, // tiny cache to force LRU eviction
		SessionTTL:    time.Minute,
		RetentionTTL:  time.Hour,
		FlushInterval: time.Hour,
		MaxDirty:      100,
	}, nil)
	ctx := context.Background()

	dirty := New("pinned")
	dirty.Append(SpeakerUser, "mi compu no enciende")
	dirty.Touch()
	store.Save(ctx, dirty)
	store.FlushDirty(ctx) // fails, stays dirty

	// Push enough sessions through to evict "pinned" from the LRU.
	for _, id := range []string{"a", "b", "c", "d"} {
		store.Save(ctx, New(id))
	}

	// The dirty pin must still serve the unflushed state.
	got, err := store.Load(ctx, "pinned")
	require.NoError(t, err)
	assert.Equal(t, dirty.Version, got.Version)
	require.Len(t, got.Transcript, 1)
	assert.Equal(t, "mi compu no enciende", got.Transcript[0].Text)
}

func TestStoreFlushRetriesWithBackoff(t *testing.T) {
	backend := &flakyBackend{MemoryBackend: NewMemoryBackend(time.Hour)}
	backend.setFailing(true)
	store := newTestStore(t, backend)
	ctx := context.Background()

	sess := New("retry-me")
	sess.Touch()
	store.Save(ctx, sess)

	outcomes := store.FlushDirty(ctx)
	require.Len(t, outcomes, 1)
	assert.Error(t, outcomes[0].Err)
	assert.Equal(t, 1, store.DirtyCount())

	// Immediately after a failure the entry is backing off, so the next flush
	// skips it entirely.
	outcomes = store.FlushDirty(ctx)
	assert.Empty(t, outcomes)

	// Once the backend recovers and the backoff elapses, the flush succeeds.
	backend.setFailing(false)
	store.mu.Lock()
	store.retry["retry-me"].next = time.Now().Add(-time.Second)
	store.mu.Unlock()

	outcomes = store.FlushDirty(ctx)
	require.Len(t, outcomes, 1)
	assert.NoError(t, outcomes[0].Err)
	assert.Equal(t, 0, store.DirtyCount())
}

func TestStoreFlushWritesSnapshotOfSaveTime(t *testing.T) {
	backend := NewMemoryBackend(time.Hour)
	store := newTestStore(t, backend)
	ctx := context.Background()

	sess := New("snap")
	sess.Append(SpeakerUser, "hola")
	sess.Touch()
	store.Save(ctx, sess)

	// Mutations after Save belong to the next turn; the pending flush must
	// not see them, torn or otherwise.
	sess.Append(SpeakerBot, "todavía sin guardar")
	sess.Steps[TierBasic] = []DiagnosticStep{{Index: 1, Description: "Paso", Tier: TierBasic, Status: StepPending}}
	sess.Touch()

	outcomes := store.FlushDirty(ctx)
	require.Len(t, outcomes, 1)
	require.NoError(t, outcomes[0].Err)

	persisted, err := backend.Get(ctx, "snap")
	require.NoError(t, err)
	require.Len(t, persisted.Transcript, 1)
	assert.Equal(t, "hola", persisted.Transcript[0].Text)
	assert.Empty(t, persisted.Steps[TierBasic])

	// The next Save picks the later mutations up.
	store.Save(ctx, sess)
	store.FlushDirty(ctx)
	persisted, err = backend.Get(ctx, "snap")
	require.NoError(t, err)
	require.Len(t, persisted.Transcript, 2)
	require.Len(t, persisted.Steps[TierBasic], 1)
}

func TestSessionCloneIsDeep(t *testing.T) {
	sess := New("c")
	sess.Append(SpeakerUser, "hola")
	sess.Steps[TierBasic] = []DiagnosticStep{{Index: 1, Description: "Paso", Tier: TierBasic, Status: StepPending}}

	snap := sess.Clone()
	sess.Append(SpeakerBot, "respuesta")
	sess.ResolveAllSteps(TierBasic, StepConfirmed)
	sess.Touch()

	require.Len(t, snap.Transcript, 1)
	assert.Equal(t, StepPending, snap.Steps[TierBasic][0].Status)
	assert.Equal(t, int64(0), snap.Version)
}

func TestStoreDelete(t *testing.T) {
	backend := NewMemoryBackend(time.Hour)
	store := newTestStore(t, backend)
	ctx := context.Background()

	sess := New("gone")
	store.Save(ctx, sess)
	store.FlushDirty(ctx)

	require.NoError(t, store.Delete(ctx, "gone"))
	_, err := store.Load(ctx, "gone")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSessionTicketIDSetOnce(t *testing.T) {
	sess := New("s")
	require.NoError(t, sess.SetTicketID("STI-1"))
	require.NoError(t, sess.SetTicketID("STI-1")) // idempotent
	assert.Error(t, sess.SetTicketID("STI-2"))
	assert.Equal(t, "STI-1", sess.TicketID)
}
