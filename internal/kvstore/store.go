// Package kvstore defines the key-value store the shortener persists records in,
// the error classification every backend reports, and the backends that need no
// external service.
package kvstore

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned by Get when the key has no value.
	ErrNotFound = errors.New("key not found")
	// ErrUnauthorized is returned when the store rejects the caller's credentials.
	ErrUnauthorized = errors.New("not authorized to access the store")
	// ErrUnknown wraps any other store failure.
	ErrUnknown = errors.New("unknown store error")
	// ErrExists is returned by Create when the key already has a value.
	ErrExists = errors.New("key already exists")
)

// Store is the key-value collaborator. Implementations must classify their
// failures with the errors above so callers can use errors.Is.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
}

// Creator is implemented by stores offering an atomic create-if-absent write.
type Creator interface {
	Create(ctx context.Context, key string, value []byte) error
}

// Pinger is implemented by stores that can report their own liveness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Classify keeps err if it already matches the store taxonomy and otherwise
// wraps it as ErrUnknown.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	for _, known := range []error{ErrNotFound, ErrUnauthorized, ErrUnknown, ErrExists} {
		if errors.Is(err, known) {
			return err
		}
	}
	return errors.Join(ErrUnknown, err)
}
