// Package logbook keeps the trainee-facing session journal: one plain line
// per notable action, readable without any tooling.
package logbook

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Level represents the severity of a journal entry.
type Level string

const (
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

// Entry is a parsed journal line.
type Entry struct {
	At      time.Time
	Level   Level
	Stage   string
	Message string
}

// Logbook appends journal entries to a text file.
type Logbook struct {
	path  string
	stage string
	now   func() time.Time
	mu    sync.Mutex
}

// New creates a logbook that writes to the provided path.
func New(path string) (*Logbook, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return &Logbook{path: path, now: time.Now}, nil
}

// Path returns the file backing this logbook.
func (l *Logbook) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// SetStage tags subsequent entries with the given stage label.
func (l *Logbook) SetStage(stage string) {
	if l == nil {
		return
	}
	l.mu.Lock()
	l.stage = strings.TrimSpace(stage)
	l.mu.Unlock()
}

// Append writes a single entry to the journal. Write failures are dropped;
// the journal never blocks the session.
func (l *Logbook) Append(level Level, message string) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	stage := l.stage
	if stage == "" {
		stage = "-"
	}
	message = strings.ReplaceAll(strings.TrimSpace(message), "\n", " ")
	line := fmt.Sprintf("%s %-5s [%s] %s\n",
		l.now().UTC().Format(time.RFC3339),
		string(level),
		stage,
		message,
	)
	file, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return
	}
	defer file.Close()
	_, _ = file.WriteString(line)
}

// Tail returns up to maxLines of the most recent entries and the total
// number of lines in the journal.
func (l *Logbook) Tail(maxLines int) ([]string, int) {
	lines := l.readAll()
	total := len(lines)
	if maxLines <= 0 || total == 0 {
		return nil, total
	}
	if total > maxLines {
		lines = lines[total-maxLines:]
	}
	return lines, total
}

// Entries parses every journal line. Lines that do not match the journal
// layout are skipped.
func (l *Logbook) Entries() []Entry {
	var out []Entry
	for _, line := range l.readAll() {
		if entry, ok := ParseLine(line); ok {
			out = append(out, entry)
		}
	}
	return out
}

// Truncate empties the journal, used when a session restarts.
func (l *Logbook) Truncate() error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := os.WriteFile(l.path, nil, 0o644); err != nil {
		return fmt.Errorf("logbook: truncate %s: %w", l.path, err)
	}
	return nil
}

// ParseLine splits a journal line into its parts.
func ParseLine(line string) (Entry, bool) {
	fields := strings.Fields(line)
	if len(fields) < 3 {
		return Entry{}, false
	}
	at, err := time.Parse(time.RFC3339, fields[0])
	if err != nil {
		return Entry{}, false
	}
	stageField := fields[2]
	if !strings.HasPrefix(stageField, "[") || !strings.HasSuffix(stageField, "]") {
		return Entry{}, false
	}
	entry := Entry{
		At:    at,
		Level: Level(fields[1]),
		Stage: strings.Trim(stageField, "[]"),
	}
	if entry.Stage == "-" {
		entry.Stage = ""
	}
	if idx := strings.Index(line, stageField); idx >= 0 {
		entry.Message = strings.TrimSpace(line[idx+len(stageField):])
	}
	return entry, true
}

func (l *Logbook) readAll() []string {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	file, err := os.Open(l.path)
	if err != nil {
		return nil
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		if text := scanner.Text(); text != "" {
			lines = append(lines, text)
		}
	}
	return lines
}

// Info appends an informational entry.
func (l *Logbook) Info(format string, args ...any) {
	l.Append(LevelInfo, fmt.Sprintf(format, args...))
}

// Warn appends a warning entry.
func (l *Logbook) Warn(format string, args ...any) {
	l.Append(LevelWarn, fmt.Sprintf(format, args...))
}

// Error appends an error entry.
func (l *Logbook) Error(format string, args ...any) {
	l.Append(LevelError, fmt.Sprintf(format, args...))
}
