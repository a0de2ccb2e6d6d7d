package authsdk

import "context"

// Storage is the durable slot for the refresh token. Get must return an
// error wrapping ErrNotFound when the key is absent.
type Storage interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// Observer receives session lifecycle events. Metrics hook in here.
type Observer interface {
	// RefreshCompleted is called once per token exchange, err is nil on
	// success.
	RefreshCompleted(trigger Trigger, err error)

	// RequestRetried is called after a 401 triggered a refresh; ok reports
	// whether the refresh worked and the request was replayed.
	RequestRetried(ok bool)
}

type nopObserver struct{}

func (nopObserver) RefreshCompleted(Trigger, error) {}
func (nopObserver) RequestRetried(bool)             {}
