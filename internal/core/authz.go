package core

import (
	"context"
	"errors"

	"github.com/ndajr/urlshortener-kv/internal/kvstore"
)

// Permits reports whether credential proves ownership of the existing record.
// Records without a password can never be changed. Protected records accept
// only an exact, byte-for-byte match of their password.
func Permits(existing Record, credential *string) bool {
	if existing.Password == nil || credential == nil {
		return false
	}
	return *existing.Password == *credential
}

// canOverwrite loads the record stored under key and checks credential
// against it. A missing key is the creation path and is always allowed; any
// failure to load or decode the stored record denies.
func (s Shortener) canOverwrite(ctx context.Context, key string, credential *string) bool {
	raw, err := s.store.Get(ctx, key)
	if errors.Is(err, kvstore.ErrNotFound) {
		return true
	}
	if err != nil {
		s.logger.Warn("failed to load existing record, denying overwrite", "key", key, "error", err)
		return false
	}

	existing, err := DecodeRecord(raw)
	if err != nil {
		s.logger.Error("value in store is invalid, denying overwrite", "key", key, "error", err)
		return false
	}
	return Permits(existing, credential)
}
