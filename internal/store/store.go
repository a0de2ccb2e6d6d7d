package store

import (
	"context"
	"errors"
)

var (
	ErrNotFound = errors.New("store: not found")

	// ErrSealed is returned when a value was written sealed but the store
	// was opened without a master key.
	ErrSealed = errors.New("store: value is sealed and no master key is configured")
)

// Well-known keys. Each holds a single string value.
const (
	KeyRefreshToken = "refresh_token"
	KeyLanguage     = "language"
	KeyTheme        = "theme"
)

// KV is the durable client-side storage port: one string per key.
type KV interface {
	// Get returns ErrNotFound for absent keys.
	Get(ctx context.Context, key string) (string, error)

	// Set inserts or replaces the value under key.
	Set(ctx context.Context, key, value string) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}

// Store is the root storage interface implemented by the drivers.
type Store interface {
	KV

	// WithTx runs fn against a transaction-scoped KV. If fn returns an error
	// nothing it wrote is kept.
	WithTx(ctx context.Context, fn func(tx KV) error) error

	ApplyMigrations() error

	// Ping verifies the backing database is reachable.
	Ping(ctx context.Context) error

	Close() error
}
