// Package embedded adapts a general-purpose embedded store to the same
// set/get/remove contract core.KvStore exposes, for callers that want a
// maintenance-free engine and are willing to trade away the log-structured
// on-disk layout to get it.
package embedded

import (
	"errors"

	"github.com/cockroachdb/pebble"
)

// PebbleEngine stores keys and values directly in a pebble LSM tree. It does
// its own background compaction internally, so unlike core.KvStore it has
// no exported reclaimable-bytes accounting or explicit compaction trigger.
// Unlike core.KvStore, durability is not configurable: this variant's whole
// reason for existing is relying on its library for a flush after every
// mutation (spec §4.5), so every Set/Remove syncs pebble's WAL unconditionally.
type PebbleEngine struct {
	db *pebble.DB
}

func Open(dir string) (*PebbleEngine, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, err
	}
	return &PebbleEngine{db: db}, nil
}

func (e *PebbleEngine) Set(key, value string) error {
	return e.db.Set([]byte(key), []byte(value), pebble.Sync)
}

func (e *PebbleEngine) Get(key string) (string, bool, error) {
	val, closer, err := e.db.Get([]byte(key))
	if errors.Is(err, pebble.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	out := string(val)
	if err := closer.Close(); err != nil {
		return "", false, err
	}
	return out, true, nil
}

func (e *PebbleEngine) Remove(key string) error {
	_, closer, err := e.db.Get([]byte(key))
	if errors.Is(err, pebble.ErrNotFound) {
		return &KeyNotFoundError{Key: key}
	}
	if err != nil {
		return err
	}
	if err := closer.Close(); err != nil {
		return err
	}
	return e.db.Delete([]byte(key), pebble.Sync)
}

func (e *PebbleEngine) Close() error {
	return e.db.Close()
}

// ErrKeyNotFound is the sentinel behind KeyNotFoundError, matching
// core.ErrKeyNotFound's public contract.
var ErrKeyNotFound = errors.New("key not found")

// KeyNotFoundError reports a Remove call against a key that pebble has no
// record of, matching core.KeyNotFoundError's public contract.
type KeyNotFoundError struct {
	Key string
}

func (e *KeyNotFoundError) Error() string {
	return "key not found: " + e.Key
}

func (e *KeyNotFoundError) Unwrap() error { return ErrKeyNotFound }
