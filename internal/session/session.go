// Package session keeps per-subject analysis state (tremor positions, neck
// calibration) between requests, in process memory or in Redis.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNotFound is returned when no state exists for a session.
var ErrNotFound = errors.New("session not found")

// Store holds opaque session blobs with a sliding expiry.
type Store interface {
	// Load returns the stored value or ErrNotFound.
	Load(ctx context.Context, key string) ([]byte, error)
	// Update replaces the value under key with fn(old) atomically. old is nil
	// when the key is absent. fn may run more than once and must be quick.
	Update(ctx context.Context, key string, fn func(old []byte) ([]byte, error)) error
	// Take returns the stored value and removes it in one step, or
	// ErrNotFound.
	Take(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	Close() error
}

// Sessions is a typed view over a Store for one kind of state.
type Sessions[T any] struct {
	store Store
	kind  string
}

// New returns the sessions of the given kind stored in store.
func New[T any](store Store, kind string) *Sessions[T] {
	return &Sessions[T]{store: store, kind: kind}
}

func (s *Sessions[T]) key(id string) string {
	return s.kind + ":" + id
}

// Get returns the state for id, or ErrNotFound.
func (s *Sessions[T]) Get(ctx context.Context, id string) (T, error) {
	var v T
	data, err := s.store.Load(ctx, s.key(id))
	if err != nil {
		return v, err
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return v, fmt.Errorf("decode %s session %s: %w", s.kind, id, err)
	}
	return v, nil
}

// Update applies fn to the state for id, starting from the zero value when
// none exists, and stores the result. If fn fails nothing is written.
func (s *Sessions[T]) Update(ctx context.Context, id string, fn func(*T) error) (T, error) {
	var out T
	err := s.store.Update(ctx, s.key(id), func(old []byte) ([]byte, error) {
		var v T
		if old != nil {
			if err := json.Unmarshal(old, &v); err != nil {
				return nil, fmt.Errorf("decode %s session %s: %w", s.kind, id, err)
			}
		}
		if err := fn(&v); err != nil {
			return nil, err
		}
		out = v
		return json.Marshal(v)
	})
	return out, err
}

// Take returns the state for id and removes it atomically, so concurrent
// updates land either before it or in a fresh session.
func (s *Sessions[T]) Take(ctx context.Context, id string) (T, error) {
	var v T
	data, err := s.store.Take(ctx, s.key(id))
	if err != nil {
		return v, err
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return v, fmt.Errorf("decode %s session %s: %w", s.kind, id, err)
	}
	return v, nil
}

// Delete drops the state for id. Deleting a missing session is not an error.
func (s *Sessions[T]) Delete(ctx context.Context, id string) error {
	return s.store.Delete(ctx, s.key(id))
}
