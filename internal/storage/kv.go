// Package storage holds the device storage port and its SQLite implementation.
package storage

import (
	"context"
	"errors"
	"strings"
)

// KV is a flat string key/value store. Each key holds one document that is
// always read and written whole.
type KV interface {
	// Get returns ok=false when the key has never been written.
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

var ErrInvalidKey = errors.New("invalid storage key")

// ValidateKey rejects keys that cannot be used as a file name or row id.
func ValidateKey(key string) error {
	if strings.TrimSpace(key) == "" || strings.ContainsAny(key, `/\`) || key == "." || key == ".." {
		return ErrInvalidKey
	}
	return nil
}
