package core

import (
	"os"
	"testing"
)

// setupTempDB opens a KvStore rooted at a fresh temp directory and
// registers cleanup on tb.
func setupTempDB(tb testing.TB, opts ...Option) (db *KvStore, path string) {
	tb.Helper()

	path, err := os.MkdirTemp("", "kvs_test_*")
	if err != nil {
		tb.Fatalf("MkdirTemp failed: %v", err)
	}

	db, err = Open(path, opts...)
	if err != nil {
		_ = os.RemoveAll(path)
		tb.Fatalf("Open(%q) failed: %v", path, err)
	}

	tb.Cleanup(func() {
		_ = db.Close()
		_ = os.RemoveAll(path)
	})

	return db, path
}
