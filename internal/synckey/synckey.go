// Package synckey validates client-supplied sync keys and derives the
// storage namespace key they map to. The sync key is the only secret in the
// protocol: it flows directly into the key-value store's keyspace, so the
// normalizer rejects anything outside a strict allow-list instead of trying
// to escape it.
package synckey

import (
	"errors"
	"strings"
)

// MaxLength bounds the sync key after trimming.
const MaxLength = 64

// storagePrefix namespaces all sync state in the key-value store. Changing
// it orphans every stored record, so it carries the format version.
const storagePrefix = "progress:v1:"

var ErrInvalidKey = errors.New("invalid sync key")

// Normalize trims and validates a raw sync key. Normalization is
// idempotent: an already-normalized key passes through unchanged.
func Normalize(raw string) (string, error) {
	key := strings.TrimSpace(raw)
	if key == "" {
		return "", ErrInvalidKey
	}
	if len(key) > MaxLength {
		return "", ErrInvalidKey
	}
	for _, r := range key {
		if !allowed(r) {
			return "", ErrInvalidKey
		}
	}
	return key, nil
}

func allowed(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == '.', r == '_', r == '-':
		return true
	}
	return false
}

// StorageKey derives the store key for a normalized sync key. Pure and
// stable across restarts; distinct normalized keys never collide because
// the prefix is fixed and the key is appended verbatim.
func StorageKey(normalized string) string {
	return storagePrefix + normalized
}
