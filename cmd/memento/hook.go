package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/devmemory/memento/internal/session"
	"github.com/devmemory/memento/pkg/types"
)

// sessionBufferThreshold is the number of buffered events that triggers
// compression into durable memories.
const sessionBufferThreshold = 20

// hookPayload is the JSON shape a hook framework sends on stdin for one
// captured action within a coding session.
type hookPayload struct {
	SessionID  string   `json:"session_id"`
	EventType  string   `json:"event_type"` // tool_use, tool_failure, intent
	Title      string   `json:"title"`
	Content    string   `json:"content"`
	Kind       string   `json:"kind,omitempty"`
	Importance float64  `json:"importance,omitempty"`
	Tags       []string `json:"tags,omitempty"`
	FilePath   string   `json:"file_path,omitempty"`
}

// runHook appends one session event read from stdin as JSON, and compresses
// the session's buffer into durable memories once it crosses
// sessionBufferThreshold events.
func runHook(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("hook", flag.ExitOnError)
	flush := fs.Bool("flush", false, "force compression of the named session's buffer now")
	sessionID := fs.String("session", "", "session ID (required)")
	fs.Parse(args)

	if *sessionID == "" {
		fatalf("hook: -session is required")
	}

	a, err := newApp(ctx)
	if err != nil {
		fatalf("%v", err)
	}
	defer a.Close()

	sessionsDir := filepath.Join(a.cfg.Storage.DataPath, "sessions")
	buf := session.NewBuffer(sessionsDir, *sessionID)

	if !*flush {
		raw, err := io.ReadAll(os.Stdin)
		if err != nil {
			fatalf("hook: read stdin: %v", err)
		}
		var payload hookPayload
		if err := json.Unmarshal(raw, &payload); err != nil {
			fatalf("hook: invalid JSON payload: %v", err)
		}

		kind, err := types.ParseMemoryKind(payload.Kind)
		if err != nil {
			kind = types.KindObservation
		}
		importance := payload.Importance
		if importance == 0 {
			importance = 0.4
		}

		if err := buf.Append(session.Event{
			Timestamp:  time.Now().UTC(),
			Kind:       kind,
			Title:      payload.Title,
			Content:    payload.Content,
			Importance: importance,
			Tags:       payload.Tags,
			FilePath:   payload.FilePath,
			EventType:  payload.EventType,
		}); err != nil {
			fatalf("hook: %v", err)
		}
	}

	if buf.Size() < sessionBufferThreshold && !*flush {
		return
	}

	events, err := buf.ReadAll()
	if err != nil {
		fatalf("hook: read buffer: %v", err)
	}
	if len(events) == 0 {
		return
	}

	memories := session.CompressWithLLM(ctx, a.gen, events)
	for _, m := range memories {
		input := types.CreateMemoryInput{
			Title:      m.Title,
			Content:    m.Content,
			Kind:       m.Kind,
			Tags:       m.Tags,
			Importance: m.Importance,
			Scope:      types.ScopeSession,
			ScopeID:    *sessionID,
		}
		if _, err := a.eng.Capture(ctx, input, actor()); err != nil {
			fmt.Fprintf(os.Stderr, "memento: hook: capture compressed memory: %v\n", err)
		}
	}

	if err := buf.Delete(); err != nil {
		fmt.Fprintf(os.Stderr, "memento: hook: delete buffer: %v\n", err)
	}
}
