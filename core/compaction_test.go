package core

import (
	"fmt"
	"os"
	"strings"
	"testing"
)

func countSegmentFiles(t *testing.T, dir string) int {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	n := 0
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".kvs") {
			n++
		}
	}
	return n
}

func TestCompactionLeavesExactlyTwoSegments(t *testing.T) {
	db, path := setupTempDB(t, WithCompactionThreshold(1024))

	// Overwrite the same small set of keys enough times to cross the
	// threshold and force a compaction.
	for i := 0; i < 200; i++ {
		key := fmt.Sprintf("k%d", i%5)
		if err := db.Set(key, strings.Repeat("x", 32)); err != nil {
			t.Fatalf("Set: %v", err)
		}
	}

	// Each record is 49 bytes ({"Set":["kN","<32 x>"]}), so every overwrite
	// adds 49 reclaimable bytes and a compaction fires on every 21st one.
	// The last compaction runs on write 194 and resets the count to zero;
	// the 6 overwrites after it leave 6*49 bytes reclaimable.
	if got, want := db.ReclaimableBytes(), int64(6*49); got != want {
		t.Errorf("reclaimable bytes after last compaction = %d, want %d", got, want)
	}

	if got := countSegmentFiles(t, path); got != 2 {
		t.Errorf("segment file count after compaction = %d, want 2", got)
	}

	for i := 0; i < 5; i++ {
		key := fmt.Sprintf("k%d", i)
		if _, ok, err := db.Get(key); err != nil || !ok {
			t.Errorf("Get(%q) after compaction = ok=%v err=%v", key, ok, err)
		}
	}
}

func TestCompactionPreservesTombstones(t *testing.T) {
	db, _ := setupTempDB(t, WithCompactionThreshold(512))

	for i := 0; i < 50; i++ {
		key := fmt.Sprintf("k%d", i%3)
		_ = db.Set(key, strings.Repeat("y", 64))
	}
	if err := db.Remove("k0"); err != nil {
		t.Fatalf("Remove: %v", err)
	}

	for i := 0; i < 50; i++ {
		key := fmt.Sprintf("k%d", (i%3)+3)
		_ = db.Set(key, strings.Repeat("z", 64))
	}

	if _, ok, err := db.Get("k0"); err != nil || ok {
		t.Errorf("Get(k0) after remove+compaction: ok=%v err=%v, want not found", ok, err)
	}
	if _, ok, err := db.Get("k1"); err != nil || !ok {
		t.Errorf("Get(k1) after compaction: ok=%v err=%v, want found", ok, err)
	}
}

func TestCompactionEffectivenessOnHeavyOverwrite(t *testing.T) {
	db, _ := setupTempDB(t, WithCompactionThreshold(64*1024))

	const n = 1000
	values := make([]string, n)
	for i := range values {
		values[i] = strings.Repeat("v", 1024)
	}

	var liveBytes int64
	for i := 0; i < n; i++ {
		key := fmt.Sprintf("key-%06d", i)
		for r := 0; r < 5; r++ {
			if err := db.Set(key, values[i]); err != nil {
				t.Fatalf("Set: %v", err)
			}
		}
		liveBytes += int64(len(key) + len(values[i]))
	}

	size, err := db.DiskSize()
	if err != nil {
		t.Fatalf("DiskSize: %v", err)
	}

	// Compaction is triggered by a byte threshold, not run after every
	// write, so some slack above the live data size is expected; it
	// should still be well inside a small constant factor.
	if max := liveBytes * 3; size > max {
		t.Errorf("on-disk size %d exceeds %d (3x live data %d)", size, max, liveBytes)
	}
}

func TestSegmentIDsNeverCollideAcrossRepeatedCompactions(t *testing.T) {
	db, path := setupTempDB(t, WithCompactionThreshold(256))

	for i := 0; i < 500; i++ {
		key := fmt.Sprintf("k%d", i%4)
		_ = db.Set(key, strings.Repeat("a", 48))
	}

	seen := make(map[int]bool)
	for id := range db.segments.segments {
		if seen[id] {
			t.Fatalf("duplicate segment id %d in live segment set", id)
		}
		seen[id] = true
	}

	if got := countSegmentFiles(t, path); got != len(db.segments.segments) {
		t.Errorf("on-disk segment files (%d) don't match in-memory segment set (%d)", got, len(db.segments.segments))
	}
}
