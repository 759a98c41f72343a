package logbook

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestTailReturnsRecentLines(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "logs", "teal.log")
	book, err := New(path)
	if err != nil {
		t.Fatalf("new logbook: %v", err)
	}
	for i := 0; i < 5; i++ {
		book.Info("entry-%d", i)
	}
	lines := book.Tail(3)
	if len(lines) != 3 {
		t.Fatalf("len(lines) = %d, want 3", len(lines))
	}
	for idx, want := range []string{"entry-2", "entry-3", "entry-4"} {
		if !strings.Contains(lines[idx], want) {
			t.Fatalf("line %d = %q, missing %s", idx, lines[idx], want)
		}
	}
	if got := book.Tail(0); got != nil {
		t.Fatalf("Tail(0) = %v, want nil", got)
	}
}

func TestPrefixAndLevels(t *testing.T) {
	path := filepath.Join(t.TempDir(), "teal.log")
	book, err := New(path)
	if err != nil {
		t.Fatalf("new logbook: %v", err)
	}
	book.now = func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) }
	task := book.WithPrefix(" drizzle ")
	task.Warn("read-only file %s", "a.yaml")
	book.Error("boom")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	want := "2024-03-01T12:00:00Z WARN  [drizzle] read-only file a.yaml\n" +
		"2024-03-01T12:00:00Z ERROR boom\n"
	if string(data) != want {
		t.Fatalf("log contents:\n%q\nwant\n%q", data, want)
	}
}

func TestNilLogbookDiscards(t *testing.T) {
	var book *Logbook
	book.Info("ignored")
	if book.Path() != "" || book.Tail(5) != nil || book.WithPrefix("x") != nil {
		t.Fatalf("nil logbook should be inert")
	}
}
