package session

import (
	"context"
	"encoding/json"
	"time"

	"github.com/patrickmn/go-cache"
)

// MemoryBackend keeps durable records in a go-cache map. Used in development
// and tests; values are stored as JSON so the serialize/reload path matches
// the redis backend byte for byte.
type MemoryBackend struct {
	cache *cache.Cache
}

var _ Backend = &MemoryBackend{}

func NewMemoryBackend(retention time.Duration) *MemoryBackend {
	return &MemoryBackend{
		cache: cache.New(retention, 10*time.Minute),
	}
}

func (b *MemoryBackend) Get(_ context.Context, id string) (*Session, error) {
	raw, found := b.cache.Get(id)
	if !found {
		return nil, ErrNotFound
	}

	var sess Session
	if err := json.Unmarshal(raw.([]byte), &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

func (b *MemoryBackend) Put(_ context.Context, id string, sess *Session, ttl time.Duration) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	b.cache.Set(id, data, ttl)
	return nil
}

func (b *MemoryBackend) Delete(_ context.Context, id string) error {
	b.cache.Delete(id)
	return nil
}
