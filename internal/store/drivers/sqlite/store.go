package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/aussiebroadwan/labres/internal/store"
	"github.com/aussiebroadwan/labres/pkg/cryptox"
	_ "modernc.org/sqlite"
)

// Store keeps client state in a single kv table. When a Sealer is configured
// every value is written sealed with the key as associated data.
type Store struct {
	db     *sql.DB
	sealer *cryptox.Sealer
}

var _ store.Store = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithSealer seals values at rest.
func WithSealer(s *cryptox.Sealer) Option {
	return func(st *Store) { st.sealer = s }
}

func NewStore(dsn string, opts ...Option) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	// One connection: the CLI is the only writer, and ":memory:" databases
	// are per connection.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(context.Background(), `PRAGMA busy_timeout = 5000;`); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &Store{db: db}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Ping verifies the database connection is still alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	return (&kvRepo{q: s.db, sealer: s.sealer}).Get(ctx, key)
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	return (&kvRepo{q: s.db, sealer: s.sealer}).Set(ctx, key, value)
}

func (s *Store) Delete(ctx context.Context, key string) error {
	return (&kvRepo{q: s.db, sealer: s.sealer}).Delete(ctx, key)
}

// WithTx executes fn within a transaction, automatically handling
// commit/rollback.
func (s *Store) WithTx(ctx context.Context, fn func(tx store.KV) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() {
		_ = tx.Rollback() // safe to call even after commit
	}()

	if err := fn(&kvRepo{q: tx, sealer: s.sealer}); err != nil {
		return err
	}

	return tx.Commit()
}

// querier is the subset of *sql.DB and *sql.Tx the repo needs.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type kvRepo struct {
	q      querier
	sealer *cryptox.Sealer
}

const (
	getValue = `SELECT value, sealed FROM kv WHERE key = ?`

	upsertValue = `
INSERT INTO kv (key, value, sealed, updated_at) VALUES (?, ?, ?, ?)
ON CONFLICT (key) DO UPDATE SET
    value = excluded.value,
    sealed = excluded.sealed,
    updated_at = excluded.updated_at`

	deleteValue = `DELETE FROM kv WHERE key = ?`
)

func (r *kvRepo) Get(ctx context.Context, key string) (string, error) {
	var (
		raw    []byte
		sealed bool
	)
	err := r.q.QueryRowContext(ctx, getValue, key).Scan(&raw, &sealed)
	if err != nil {
		return "", mapNotFound(err)
	}

	if !sealed {
		return string(raw), nil
	}
	if r.sealer == nil {
		return "", store.ErrSealed
	}

	plain, err := r.sealer.Open(raw, []byte(key))
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

func (r *kvRepo) Set(ctx context.Context, key, value string) error {
	raw := []byte(value)
	sealed := false

	if r.sealer != nil {
		var err error
		raw, err = r.sealer.Seal(raw, []byte(key))
		if err != nil {
			return err
		}
		sealed = true
	}

	_, err := r.q.ExecContext(ctx, upsertValue, key, raw, sealed, time.Now().UTC())
	return err
}

func (r *kvRepo) Delete(ctx context.Context, key string) error {
	_, err := r.q.ExecContext(ctx, deleteValue, key)
	return err
}

func mapNotFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}
