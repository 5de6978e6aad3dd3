package session

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound signals that the backend has no record for the id (either never
// written or expired past the retention TTL).
var ErrNotFound = errors.New("session not found")

// Backend is the durable side of the store: a TTL'd key-value contract that
// can be served by redis, an in-memory map, or anything else.
type Backend interface {
	Get(ctx context.Context, id string) (*Session, error)
	Put(ctx context.Context, id string, sess *Session, ttl time.Duration) error
	Delete(ctx context.Context, id string) error
}
