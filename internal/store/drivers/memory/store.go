// Package memory is an in-process Store. Nothing survives the process; it
// backs tests and the --ephemeral flag of labctl.
package memory

import (
	"context"
	"maps"
	"sync"

	"github.com/aussiebroadwan/labres/internal/store"
)

type Store struct {
	mu   sync.RWMutex
	data map[string]string
}

var _ store.Store = (*Store)(nil)

func NewStore() *Store {
	return &Store{data: make(map[string]string)}
}

func (s *Store) Get(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.data[key]
	if !ok {
		return "", store.ErrNotFound
	}
	return v, nil
}

func (s *Store) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	return nil
}

func (s *Store) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

// WithTx stages writes on a copy and swaps it in when fn succeeds. The write
// lock is held for the duration of fn, so fn must only use tx.
func (s *Store) WithTx(ctx context.Context, fn func(tx store.KV) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &txStore{data: maps.Clone(s.data)}
	if err := fn(tx); err != nil {
		return err
	}
	s.data = tx.data
	return nil
}

func (s *Store) ApplyMigrations() error       { return nil }
func (s *Store) Ping(_ context.Context) error { return nil }
func (s *Store) Close() error                 { return nil }

type txStore struct {
	data map[string]string
}

func (t *txStore) Get(_ context.Context, key string) (string, error) {
	v, ok := t.data[key]
	if !ok {
		return "", store.ErrNotFound
	}
	return v, nil
}

func (t *txStore) Set(_ context.Context, key, value string) error {
	t.data[key] = value
	return nil
}

func (t *txStore) Delete(_ context.Context, key string) error {
	delete(t.data, key)
	return nil
}
