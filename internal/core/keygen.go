package core

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/cespare/xxhash/v2"
)

const (
	// alphabet is the base-36 digit set used to render generated keys.
	alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
	// DefaultKeyLength is the initial length of generated keys. The actual
	// length grows once every key of the current length has been tried.
	DefaultKeyLength = 8
)

// AvailabilityFunc reports whether key is unused in the store.
type AvailabilityFunc func(ctx context.Context, key string) (bool, error)

// KeyGenerator derives short keys from URLs.
type KeyGenerator struct {
	length int
	logger *slog.Logger
}

// NewKeyGenerator returns a generator whose keys start at the given length.
// Non-positive lengths fall back to DefaultKeyLength.
func NewKeyGenerator(logger *slog.Logger, length int) KeyGenerator {
	if length <= 0 {
		length = DefaultKeyLength
	}
	return KeyGenerator{length: length, logger: logger}
}

// Generate returns the first available key derived from url.
//
// The URL bytes are fed into a running 64-bit hash on every attempt, so each
// attempt yields the next candidate of a deterministic sequence. After 36^L
// failed attempts at length L the key grows by one character.
func (g KeyGenerator) Generate(ctx context.Context, url string, available AvailabilityFunc) (string, error) {
	length := g.length
	digest := xxhash.New()
	var attempts uint64

	for {
		if err := ctx.Err(); err != nil {
			return "", fmt.Errorf("keygen: %w", err)
		}

		_, _ = digest.WriteString(url)
		key := renderBase36(digest.Sum64(), length)

		ok, err := available(ctx, key)
		if err != nil {
			return "", fmt.Errorf("keygen: availability of %q: %w", key, err)
		}
		if ok {
			return key, nil
		}
		g.logger.Info("collision detected, generating a new short key", "key", key, "length", length)

		attempts++
		if attempts >= keySpace(length) {
			length++
			attempts = 0
			g.logger.Info("key space exhausted, growing generated key length", "length", length)
		}
	}
}

// renderBase36 renders v in base 36, keeping only the length least
// significant digits. Shorter renderings are not padded.
func renderBase36(v uint64, length int) string {
	digits := make([]byte, 0, 13)
	for {
		digits = append(digits, alphabet[v%36])
		v /= 36
		if v == 0 {
			break
		}
	}
	if len(digits) > length {
		digits = digits[:length]
	}
	for i, j := 0, len(digits)-1; i < j; i, j = i+1, j-1 {
		digits[i], digits[j] = digits[j], digits[i]
	}
	return string(digits)
}

// keySpace returns 36^length, saturating at math.MaxUint64.
func keySpace(length int) uint64 {
	n := uint64(1)
	for range length {
		if n > math.MaxUint64/36 {
			return math.MaxUint64
		}
		n *= 36
	}
	return n
}
