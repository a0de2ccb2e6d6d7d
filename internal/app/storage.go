package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/aussiebroadwan/labres/internal/store"
	"github.com/aussiebroadwan/labres/pkg/authsdk"
)

// tokenStorage adapts a store.KV to authsdk.Storage.
type tokenStorage struct {
	kv store.KV
}

var _ authsdk.Storage = tokenStorage{}

func (s tokenStorage) Get(ctx context.Context, key string) (string, error) {
	v, err := s.kv.Get(ctx, key)
	if errors.Is(err, store.ErrNotFound) {
		return "", fmt.Errorf("%w: %w", authsdk.ErrNotFound, err)
	}
	return v, err
}

func (s tokenStorage) Set(ctx context.Context, key, value string) error {
	return s.kv.Set(ctx, key, value)
}

func (s tokenStorage) Delete(ctx context.Context, key string) error {
	return s.kv.Delete(ctx, key)
}
