// Package kvstore is the persistence boundary of the order desk: a small
// key-value store holding JSON documents under string keys such as
// "order:<id>" and "customer:<id>".
//
// Writes are read-modify-write with a single writer in mind. Two clients
// editing the same key concurrently may overwrite each other.
package kvstore

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Entry is one stored document.
type Entry struct {
	Key       string
	Value     []byte
	UpdatedAt time.Time
}

type Store interface {
	// Get returns ErrNotFound when key is absent.
	Get(ctx context.Context, key string) ([]byte, error)
	// Create stores value under a fresh key and returns ErrConflict when the
	// key is taken.
	Create(ctx context.Context, key string, value []byte) error
	// Put stores value, replacing any previous one.
	Put(ctx context.Context, key string, value []byte) error
	// Delete returns ErrNotFound when key is absent.
	Delete(ctx context.Context, key string) error
	// List returns every entry whose key starts with prefix, ordered by key.
	List(ctx context.Context, prefix string) ([]Entry, error)
	// ReplacePrefix atomically swaps every entry under prefix for entries.
	ReplacePrefix(ctx context.Context, prefix string, entries []Entry) error
}

var (
	ErrNotFound   = errors.New("not_found")
	ErrConflict   = errors.New("conflict")
	ErrInvalidKey = errors.New("invalid_key")
	ErrBusy       = errors.New("store_busy")
)

func validateKey(key string) error {
	if strings.TrimSpace(key) == "" || len(key) > 191 {
		return ErrInvalidKey
	}
	return nil
}

func validateEntries(prefix string, entries []Entry) error {
	for _, e := range entries {
		if err := validateKey(e.Key); err != nil {
			return err
		}
		if !strings.HasPrefix(e.Key, prefix) {
			return ErrInvalidKey
		}
	}
	return nil
}
