package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ndajr/urlshortener-kv/internal/kvstore"
)

var (
	ErrAliasTaken         = errors.New("requested alias is already taken and your password doesn't grant you a permission to change it")
	ErrGeneratedKeyExists = errors.New("generated short string already exists")
	ErrCorruptRecord      = errors.New("stored record is invalid")
)

// ShortenRequest is one create or update of a short link.
type ShortenRequest struct {
	URL string
	// Alias is the requested key. When empty a key is generated from URL.
	Alias string
	// Password protects the record. Nil stores an unprotected record.
	Password *string
	// OldPassword proves ownership of an existing record. Nil means Password
	// is used for that check too.
	OldPassword *string
}

func (r ShortenRequest) credential() *string {
	if r.OldPassword != nil {
		return r.OldPassword
	}
	return r.Password
}

// Shortener composes the record codec, key generator and overwrite policy
// over a key-value store. It holds no per-request state.
type Shortener struct {
	store  kvstore.Store
	keys   KeyGenerator
	logger *slog.Logger
}

func NewShortener(logger *slog.Logger, store kvstore.Store, keyLength int) Shortener {
	return Shortener{
		store:  store,
		keys:   NewKeyGenerator(logger, keyLength),
		logger: logger,
	}
}

// Shorten stores req.URL under the requested alias or a generated key and
// returns the key.
//
// Availability check and write are separate store calls. Stores implementing
// kvstore.Creator make the creation atomic; overwrites stay last-writer-wins.
func (s Shortener) Shorten(ctx context.Context, req ShortenRequest) (string, error) {
	key := req.Alias
	generated := key == ""
	if generated {
		var err error
		key, err = s.keys.Generate(ctx, req.URL, s.available)
		if err != nil {
			return "", fmt.Errorf("shorten: %w", err)
		}
	}

	value, err := EncodeRecord(Record{URL: req.URL, Password: req.Password})
	if err != nil {
		return "", fmt.Errorf("shorten: %w", err)
	}

	free, err := s.available(ctx, key)
	if err != nil {
		return "", fmt.Errorf("shorten: %w", err)
	}

	switch {
	case free:
		if err := s.create(ctx, key, value); err != nil {
			if errors.Is(err, kvstore.ErrExists) {
				s.logger.Warn("key was taken by a concurrent write", "key", key)
				return "", taken(generated)
			}
			return "", fmt.Errorf("shorten: %w", err)
		}
	case s.canOverwrite(ctx, key, req.credential()):
		if err := s.store.Put(ctx, key, value); err != nil {
			return "", fmt.Errorf("shorten: %w", kvstore.Classify(err))
		}
		s.logger.Info("short link updated", "key", key)
	default:
		return "", taken(generated)
	}
	return key, nil
}

// Resolve returns the URL stored under key.
func (s Shortener) Resolve(ctx context.Context, key string) (string, error) {
	raw, err := s.store.Get(ctx, key)
	if err != nil {
		return "", fmt.Errorf("resolve: %w", kvstore.Classify(err))
	}
	rec, err := DecodeRecord(raw)
	if err != nil {
		s.logger.Error("stored record is invalid", "key", key, "error", err)
		return "", fmt.Errorf("resolve %q: %w: %w", key, ErrCorruptRecord, err)
	}
	return rec.URL, nil
}

// available reports whether key is unused: only a not-found lookup counts as unused.
func (s Shortener) available(ctx context.Context, key string) (bool, error) {
	_, err := s.store.Get(ctx, key)
	switch {
	case err == nil:
		return false, nil
	case errors.Is(err, kvstore.ErrNotFound):
		return true, nil
	default:
		return false, kvstore.Classify(err)
	}
}

func (s Shortener) create(ctx context.Context, key string, value []byte) error {
	if c, ok := s.store.(kvstore.Creator); ok {
		return kvstore.Classify(c.Create(ctx, key, value))
	}
	return kvstore.Classify(s.store.Put(ctx, key, value))
}

func taken(generated bool) error {
	if generated {
		return ErrGeneratedKeyExists
	}
	return ErrAliasTaken
}
