package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a key has no stored value.
var ErrNotFound = errors.New("storage: key not found")

// Well-known keys for the credential pair and session flags.
const (
	KeyServiceToken = "auth.service_token"
	KeyUserToken    = "auth.user_token"
)

// Store is the local key-value persistence used for tokens and session
// flags. Implementations must be safe for concurrent use.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Close() error
}
