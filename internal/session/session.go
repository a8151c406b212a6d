// Package session implements the append-only JSONL capture buffer written by
// the hook entrypoint during a coding session, and its compression into a
// small number of durable memories once the buffer crosses a size threshold.
package session

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/devmemory/memento/pkg/types"
)

// Event is one captured action within a session: a tool use, a tool
// failure, or a user intent.
type Event struct {
	Timestamp  time.Time `json:"timestamp"`
	Kind       types.MemoryKind `json:"kind"`
	Title      string    `json:"title"`
	Content    string    `json:"content"`
	Importance float64   `json:"importance"`
	Tags       []string  `json:"tags,omitempty"`
	FilePath   string    `json:"file_path,omitempty"`
	// EventType is one of "tool_use", "tool_failure", "intent".
	EventType string `json:"event_type"`
}

// Buffer manages the JSONL session file for a single session ID.
type Buffer struct {
	Path string
}

// NewBuffer returns the buffer for sessionID under dir (typically
// ~/.local/share/memento/sessions/).
func NewBuffer(dir, sessionID string) *Buffer {
	return &Buffer{Path: filepath.Join(dir, sessionID+".jsonl")}
}

// Append writes event to the buffer, creating the file and its parent
// directory if needed. Skips the write when the last buffered event matches
// (title, content, event_type), which absorbs the double-invocation some
// hook frameworks produce for a single action.
func (b *Buffer) Append(event Event) error {
	if err := os.MkdirAll(filepath.Dir(b.Path), 0o700); err != nil {
		return fmt.Errorf("session: mkdir %s: %w", filepath.Dir(b.Path), err)
	}

	if last, ok := b.lastEvent(); ok {
		if last.Title == event.Title && last.Content == event.Content && last.EventType == event.EventType {
			return nil
		}
	}

	f, err := os.OpenFile(b.Path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("session: open %s: %w", b.Path, err)
	}
	defer f.Close()

	line, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("session: marshal event: %w", err)
	}
	line = append(line, '\n')
	_, err = f.Write(line)
	return err
}

func (b *Buffer) lastEvent() (Event, bool) {
	data, err := os.ReadFile(b.Path)
	if err != nil {
		return Event{}, false
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if strings.TrimSpace(lines[i]) == "" {
			continue
		}
		var e Event
		if err := json.Unmarshal([]byte(lines[i]), &e); err != nil {
			return Event{}, false
		}
		return e, true
	}
	return Event{}, false
}

// ReadAll returns every event in the buffer, skipping malformed lines.
func (b *Buffer) ReadAll() ([]Event, error) {
	f, err := os.Open(b.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("session: open %s: %w", b.Path, err)
	}
	defer f.Close()

	var events []Event
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var e Event
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			continue
		}
		events = append(events, e)
	}
	return events, scanner.Err()
}

// Delete removes the buffer file. Not an error if it never existed.
func (b *Buffer) Delete() error {
	err := os.Remove(b.Path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("session: delete %s: %w", b.Path, err)
	}
	return nil
}

// Size returns the number of events currently buffered.
func (b *Buffer) Size() int {
	events, err := b.ReadAll()
	if err != nil {
		return 0
	}
	return len(events)
}

// StaleBuffers returns the paths of every *.jsonl buffer in dir whose mtime
// is older than maxAge, for periodic force-flush sweeps.
func StaleBuffers(dir string, maxAge time.Duration) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var stale []string
	now := time.Now()
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".jsonl") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if now.Sub(info.ModTime()) > maxAge {
			stale = append(stale, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(stale)
	return stale
}
