package logbook

import (
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestTailReturnsRecentLinesAndTotal(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "session.log")
	book, err := New(path)
	if err != nil {
		t.Fatalf("new logbook: %v", err)
	}
	for i := 0; i < 5; i++ {
		book.Info("entry-%d", i)
	}
	lines, total := book.Tail(3)
	if total != 5 {
		t.Fatalf("total lines = %d, want 5", total)
	}
	if len(lines) != 3 {
		t.Fatalf("len(lines) = %d, want 3", len(lines))
	}
	for idx, want := range []string{"entry-2", "entry-3", "entry-4"} {
		if !strings.Contains(lines[idx], want) {
			t.Fatalf("line %d = %q, missing %s", idx, lines[idx], want)
		}
	}
}

func TestTailOnMissingFile(t *testing.T) {
	book, err := New(filepath.Join(t.TempDir(), "nested", "session.log"))
	if err != nil {
		t.Fatalf("new logbook: %v", err)
	}
	lines, total := book.Tail(10)
	if lines != nil || total != 0 {
		t.Fatalf("expected empty tail, got %v / %d", lines, total)
	}
	var nilBook *Logbook
	nilBook.Info("ignored")
	if _, total := nilBook.Tail(1); total != 0 {
		t.Fatalf("nil logbook should report nothing")
	}
}

func TestEntriesCarryStageAndFlattenNewlines(t *testing.T) {
	book, err := New(filepath.Join(t.TempDir(), "session.log"))
	if err != nil {
		t.Fatal(err)
	}
	fixed := time.Date(2024, 3, 7, 14, 0, 0, 0, time.UTC)
	book.now = func() time.Time { return fixed }

	book.Info("session started")
	book.SetStage("SOR")
	book.Warn("mentor emailed\ndirectly")

	entries := book.Entries()
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}
	if entries[0].Stage != "" || entries[0].Level != LevelInfo {
		t.Fatalf("unexpected first entry %+v", entries[0])
	}
	if entries[1].Stage != "SOR" || entries[1].Level != LevelWarn {
		t.Fatalf("unexpected second entry %+v", entries[1])
	}
	if entries[1].Message != "mentor emailed directly" {
		t.Fatalf("message = %q", entries[1].Message)
	}
	if !entries[1].At.Equal(fixed) {
		t.Fatalf("at = %s", entries[1].At)
	}
}

func TestTruncateEmptiesJournal(t *testing.T) {
	book, err := New(filepath.Join(t.TempDir(), "session.log"))
	if err != nil {
		t.Fatal(err)
	}
	book.Error("boom")
	if err := book.Truncate(); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	if _, total := book.Tail(5); total != 0 {
		t.Fatalf("expected empty journal, total=%d", total)
	}
}

func TestParseLineRejectsForeignText(t *testing.T) {
	for _, line := range []string{"", "hello world", "not-a-time INFO [x] y", "2024-03-07T14:00:00Z INFO nostage"} {
		if _, ok := ParseLine(line); ok {
			t.Fatalf("expected %q to be rejected", line)
		}
	}
}
