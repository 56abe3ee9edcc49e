package embedded

import (
	"errors"
	"os"
	"testing"
)

func setupTempEngine(tb testing.TB) *PebbleEngine {
	tb.Helper()
	dir, err := os.MkdirTemp("", "kvs-embedded-*")
	if err != nil {
		tb.Fatalf("MkdirTemp: %v", err)
	}
	tb.Cleanup(func() { os.RemoveAll(dir) })

	e, err := Open(dir)
	if err != nil {
		tb.Fatalf("Open: %v", err)
	}
	tb.Cleanup(func() { e.Close() })
	return e
}

func TestPebbleEngineSetGet(t *testing.T) {
	e := setupTempEngine(t)

	if err := e.Set("k", "v"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	val, ok, err := e.Get("k")
	if err != nil || !ok || val != "v" {
		t.Errorf("Get(k) = %q, %v, %v, want v, true, nil", val, ok, err)
	}
}

func TestPebbleEngineGetMiss(t *testing.T) {
	e := setupTempEngine(t)

	_, ok, err := e.Get("missing")
	if err != nil || ok {
		t.Errorf("Get(missing) = ok=%v err=%v, want not found", ok, err)
	}
}

func TestPebbleEngineRemove(t *testing.T) {
	e := setupTempEngine(t)
	_ = e.Set("k", "v")

	if err := e.Remove("k"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	_, ok, _ := e.Get("k")
	if ok {
		t.Errorf("key still present after Remove")
	}
}

func TestPebbleEngineRemoveAbsentKeyFails(t *testing.T) {
	e := setupTempEngine(t)

	err := e.Remove("nope")
	var notFound *KeyNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("Remove(absent) = %v, want *KeyNotFoundError", err)
	}
}
