// Package engineselect picks, persists and opens whichever storage engine
// a data directory was created with, and dispatches operations to it
// through a single tagged-variant type rather than an interface, so the
// two variants never need to agree on an artificial common abstraction.
package engineselect

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/epokhe/kvs/core"
	"github.com/epokhe/kvs/embedded"
)

type Kind int

const (
	KindKvs Kind = iota
	KindSled
)

func (k Kind) String() string {
	switch k {
	case KindKvs:
		return "kvs"
	case KindSled:
		return "sled"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

func ParseKind(s string) (Kind, error) {
	switch s {
	case "kvs":
		return KindKvs, nil
	case "sled":
		return KindSled, nil
	default:
		return 0, &InvalidKindError{Value: s}
	}
}

type InvalidKindError struct {
	Value string
}

func (e *InvalidKindError) Error() string {
	return fmt.Sprintf("unknown engine %q", e.Value)
}

var ErrInvalidEngine = errors.New("invalid engine")

func (e *InvalidKindError) Unwrap() error { return ErrInvalidEngine }

// MismatchError reports that the engine recorded on disk disagrees with
// the one the caller asked to open the directory with.
type MismatchError struct {
	OnDisk    Kind
	Requested Kind
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("engine mismatch: directory was created with %q, requested %q", e.OnDisk, e.Requested)
}

var ErrEngineMismatch = errors.New("engine mismatch")

func (e *MismatchError) Unwrap() error { return ErrEngineMismatch }

const engineMetaFile = "00engine"

// resolveKind reads the 00engine marker left by a previous Open, if any,
// and reconciles it against the caller's request:
//   - no marker, no request: defaults to kvs
//   - no marker, a request: honors the request and writes the marker
//   - a marker, no request: honors whatever is on disk
//   - a marker, a request: they must agree, or MismatchError
func resolveKind(dir string, requested *Kind) (Kind, error) {
	path := filepath.Join(dir, engineMetaFile)
	onDisk, err := os.ReadFile(path)
	switch {
	case err == nil:
		kind, parseErr := ParseKind(string(onDisk))
		if parseErr != nil {
			return 0, parseErr
		}
		if requested != nil && *requested != kind {
			return 0, &MismatchError{OnDisk: kind, Requested: *requested}
		}
		return kind, nil

	case errors.Is(err, os.ErrNotExist):
		kind := KindKvs
		if requested != nil {
			kind = *requested
		}
		if writeErr := os.WriteFile(path, []byte(kind.String()), 0644); writeErr != nil {
			return 0, writeErr
		}
		return kind, nil

	default:
		return 0, err
	}
}

// Engine is a tagged union over the two storage backends: exactly one of
// kvs or sled is non-nil, selected by kind.
type Engine struct {
	kind Kind
	kvs  *core.KvStore
	sled *embedded.PebbleEngine
}

func (e *Engine) Kind() Kind { return e.kind }

// Open resolves (and, on first use, persists) the engine kind for dir and
// opens it. requested may be nil to accept whatever the directory already
// uses, defaulting to kvs for a brand-new directory.
func Open(dir string, requested *Kind, opts ...Option) (*Engine, error) {
	kind, err := resolveKind(dir, requested)
	if err != nil {
		return nil, err
	}
	cfg := collectOptions(opts)

	e := &Engine{kind: kind}
	switch kind {
	case KindKvs:
		db, err := core.Open(dir, cfg.kvsOptions()...)
		if err != nil {
			return nil, err
		}
		e.kvs = db
	case KindSled:
		db, err := embedded.Open(dir)
		if err != nil {
			return nil, err
		}
		e.sled = db
	default:
		return nil, &InvalidKindError{Value: kind.String()}
	}
	return e, nil
}

func (e *Engine) Set(key, value string) error {
	switch e.kind {
	case KindKvs:
		return e.kvs.Set(key, value)
	default:
		return e.sled.Set(key, value)
	}
}

func (e *Engine) Get(key string) (string, bool, error) {
	switch e.kind {
	case KindKvs:
		return e.kvs.Get(key)
	default:
		return e.sled.Get(key)
	}
}

func (e *Engine) Remove(key string) error {
	switch e.kind {
	case KindKvs:
		return e.kvs.Remove(key)
	default:
		return e.sled.Remove(key)
	}
}

func (e *Engine) Close() error {
	switch e.kind {
	case KindKvs:
		return e.kvs.Close()
	default:
		return e.sled.Close()
	}
}

// IsKeyNotFound reports whether err is the "key not found" failure either
// backend's Remove returns for an absent key, so callers (the wire server)
// can tell it apart from an unrelated I/O or codec failure without caring
// which variant produced it.
func IsKeyNotFound(err error) bool {
	return errors.Is(err, core.ErrKeyNotFound) || errors.Is(err, embedded.ErrKeyNotFound)
}
