package core

import (
	"fmt"
	"testing"
)

func BenchmarkGet(b *testing.B) {
	db, _ := setupTempDB(b)

	for i := 0; i < 10000; i++ {
		key := fmt.Sprintf("k%04d", i)
		_ = db.Set(key, "v")
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, _, err := db.Get("k0050"); err != nil {
			b.Fatalf("Get: %v", err)
		}
	}
}

func BenchmarkSet(b *testing.B) {
	db, _ := setupTempDB(b)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		key := fmt.Sprintf("k%04d", i%10000)
		if err := db.Set(key, "value"); err != nil {
			b.Fatalf("Set: %v", err)
		}
	}
}

func BenchmarkSetFsync(b *testing.B) {
	db, _ := setupTempDB(b, WithFsync(true))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		key := fmt.Sprintf("k%04d", i%10000)
		if err := db.Set(key, "value"); err != nil {
			b.Fatalf("Set: %v", err)
		}
	}
}
