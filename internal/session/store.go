package session

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound means the slot holds no snapshot.
var ErrNotFound = errors.New("no saved session")

// Store keeps snapshot text under a key.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// PersistenceError reports a store failure or an unreadable snapshot.
type PersistenceError struct {
	Op  string
	Key string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("session %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
