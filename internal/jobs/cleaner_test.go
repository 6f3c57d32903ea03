package jobs

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestCleaner_Sweep(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, "old")
	fresh := filepath.Join(dir, "fresh")
	for _, d := range []string{old, fresh} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(filepath.Join(dir, "stray.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	now := time.Now()
	past := now.Add(-3 * time.Hour)
	if err := os.Chtimes(old, past, past); err != nil {
		t.Fatal(err)
	}

	c := NewCleaner(dir, 2*time.Hour, zerolog.Nop())
	c.now = func() time.Time { return now }
	if n := c.Sweep(); n != 1 {
		t.Fatalf("expected 1 removed, got %d", n)
	}
	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Fatalf("old run not removed")
	}
	if _, err := os.Stat(fresh); err != nil {
		t.Fatalf("fresh run removed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "stray.txt")); err != nil {
		t.Fatalf("file removed: %v", err)
	}
}

func TestCleaner_MissingDir(t *testing.T) {
	c := NewCleaner(filepath.Join(t.TempDir(), "none"), time.Hour, zerolog.Nop())
	if n := c.Sweep(); n != 0 {
		t.Fatalf("expected 0, got %d", n)
	}
}
