package main

import (
	"context"
	"flag"
	"fmt"
	"strings"

	"github.com/devmemory/memento/internal/dedup"
	"github.com/devmemory/memento/pkg/types"
)

func runCapture(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("capture", flag.ExitOnError)
	title := fs.String("title", "", "memory title (required)")
	content := fs.String("content", "", "memory content (required)")
	kind := fs.String("kind", "observation", "observation, decision, pattern, error, fix, preference, fact, lesson, todo, procedure")
	tags := fs.String("tags", "", "comma-separated tags")
	importance := fs.Float64("importance", 0.5, "importance, 0.0-1.0")
	scope := fs.String("scope", "global", "global, project, session")
	scopeID := fs.String("scope-id", "", "session ID, when scope=session")
	projectID := fs.String("project", "", "project this memory belongs to")
	privacy := fs.String("privacy", "private", "public, team, private")
	related := fs.String("related-to", "", "comma-separated memory IDs to explicitly relate to")
	fs.Parse(args)

	if *title == "" || *content == "" {
		fatalf("capture: -title and -content are required")
	}

	k, err := types.ParseMemoryKind(*kind)
	if err != nil {
		fatalf("capture: %v", err)
	}

	a, err := newApp(ctx)
	if err != nil {
		fatalf("%v", err)
	}
	defer a.Close()

	input := types.CreateMemoryInput{
		Title:      *title,
		Content:    *content,
		Kind:       k,
		Tags:       splitCSV(*tags),
		Importance: *importance,
		Scope:      types.ScopeKind(*scope),
		ScopeID:    *scopeID,
		ProjectID:  *projectID,
		Privacy:    types.MemoryPrivacy(*privacy),
		RelatedTo:  splitCSV(*related),
	}

	result, err := a.eng.Capture(ctx, input, actor())
	if err != nil {
		fatalf("capture: %v", err)
	}

	switch result.Decision {
	case dedup.DecisionSkip:
		fmt.Printf("duplicate of %s, not re-captured\n", result.Memory.ID)
	case dedup.DecisionUpdate:
		fmt.Printf("merged into existing memory %s\n", result.Memory.ID)
	default:
		fmt.Printf("captured %s\n", result.Memory.ID)
	}
}

func splitCSV(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
