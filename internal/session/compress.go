package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/devmemory/memento/internal/llm"
	"github.com/devmemory/memento/pkg/types"
)

// CompressedMemory is one memory produced by reducing a session buffer.
type CompressedMemory struct {
	Kind       types.MemoryKind
	Title      string
	Content    string
	Importance float64
	Tags       []string
}

const compressionSystemPrompt = `You are a developer knowledge extractor. Given a coding session's events, extract 1-3 high-value memories that would help a developer in FUTURE sessions.

For each memory, identify:
- The KEY INSIGHT or LESSON learned (not just what files changed)
- ENTITIES: specific tools, libraries, APIs, patterns, or concepts involved
- WHY this matters for future reference

Output a JSON array. Each object must have:
- "title": descriptive, searchable
- "content": 2-4 sentences explaining the insight, the approach taken, and any gotchas
- "kind": one of observation, decision, pattern, error, fix, lesson
- "importance": 0.0-1.0
- "tags": 3-8 lowercase tags for searchability

Focus on REUSABLE KNOWLEDGE, not session narration. Skip routine changes with no insight.
Respond ONLY with a JSON array, no markdown fences.`

// CompressWithLLM reduces events into memories via an LLM, falling back to
// CompressHeuristic on any generation or parse failure.
func CompressWithLLM(ctx context.Context, gen llm.TextGenerator, events []Event) []CompressedMemory {
	if gen == nil {
		return CompressHeuristic(events)
	}

	prompt := buildCompressionPrompt(events)
	response, err := gen.Complete(ctx, prompt)
	if err != nil {
		return CompressHeuristic(events)
	}

	memories, err := parseLLMMemories(response)
	if err != nil || len(memories) == 0 {
		return CompressHeuristic(events)
	}
	return memories
}

func buildCompressionPrompt(events []Event) string {
	var b strings.Builder
	b.WriteString(compressionSystemPrompt)
	b.WriteString("\n\n")

	var intents, edits, errs []Event
	for _, e := range events {
		switch {
		case e.EventType == "intent":
			intents = append(intents, e)
		case e.Kind == types.KindError:
			errs = append(errs, e)
		default:
			edits = append(edits, e)
		}
	}

	if len(intents) > 0 {
		b.WriteString("## User Requests\n")
		for _, e := range intents {
			fmt.Fprintf(&b, "- %s\n", truncate(e.Content, 300))
		}
		b.WriteString("\n")
	}
	if len(edits) > 0 {
		b.WriteString("## File Changes\n")
		for _, e := range edits {
			fmt.Fprintf(&b, "### %s\n%s\n\n", basename(e.FilePath), truncate(e.Content, 400))
		}
	}
	if len(errs) > 0 {
		b.WriteString("## Errors\n")
		for _, e := range errs {
			fmt.Fprintf(&b, "- %s\n", truncate(e.Content, 200))
		}
	}
	return b.String()
}

type llmMemory struct {
	Title      string   `json:"title"`
	Content    string   `json:"content"`
	Kind       string   `json:"kind"`
	Importance float64  `json:"importance"`
	Tags       []string `json:"tags"`
}

func parseLLMMemories(response string) ([]CompressedMemory, error) {
	cleaned := strings.TrimSpace(response)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	var items []llmMemory
	if err := json.Unmarshal([]byte(cleaned), &items); err != nil {
		return nil, fmt.Errorf("parse LLM response as JSON array: %w", err)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("LLM returned empty memories array")
	}

	memories := make([]CompressedMemory, 0, len(items))
	for _, item := range items {
		kind := parseKind(item.Kind)
		importance := item.Importance
		if importance < 0 {
			importance = 0
		}
		if importance > 1 {
			importance = 1
		}

		tags := []string{"auto-capture", "session-compressed", "llm-summarized"}
		seen := map[string]bool{}
		for _, t := range tags {
			seen[t] = true
		}
		for _, t := range item.Tags {
			t = strings.ToLower(strings.TrimSpace(t))
			if t == "" || seen[t] {
				continue
			}
			seen[t] = true
			tags = append(tags, t)
		}

		title := item.Title
		if title == "" {
			title = "Session activity"
		}

		memories = append(memories, CompressedMemory{
			Kind:       kind,
			Title:      title,
			Content:    item.Content,
			Importance: importance,
			Tags:       tags,
		})
	}
	return memories, nil
}

func parseKind(s string) types.MemoryKind {
	switch s {
	case "decision":
		return types.KindDecision
	case "pattern":
		return types.KindPattern
	case "error":
		return types.KindError
	case "fix":
		return types.KindFix
	case "lesson":
		return types.KindLesson
	default:
		return types.KindObservation
	}
}

// CompressHeuristic groups buffered events into memories without an LLM:
// edits are grouped by file, errors merged into one memory, and intent text
// (if present) becomes the title.
func CompressHeuristic(events []Event) []CompressedMemory {
	if len(events) == 0 {
		return nil
	}

	var intents, errs, edits []Event
	for _, e := range events {
		switch {
		case e.EventType == "intent":
			intents = append(intents, e)
		case e.Kind == types.KindError:
			errs = append(errs, e)
		default:
			edits = append(edits, e)
		}
	}

	var memories []CompressedMemory

	fileGroups := map[string][]Event{}
	for _, e := range edits {
		key := e.FilePath
		if key == "" {
			key = "unknown"
		}
		fileGroups[key] = append(fileGroups[key], e)
	}

	if len(fileGroups) > 0 {
		var paths []string
		for p := range fileGroups {
			paths = append(paths, p)
		}
		sort.Strings(paths)

		var filesSummary []string
		var content strings.Builder
		maxImportance := 0.4
		var fileTags []string
		tagSeen := map[string]bool{}

		for _, path := range paths {
			group := fileGroups[path]
			name := basename(path)
			count := len(group)
			suffix := ""
			if count > 1 {
				suffix = "s"
			}
			filesSummary = append(filesSummary, fmt.Sprintf("%s (%d edit%s)", name, count, suffix))

			for _, e := range group {
				if e.Importance > maxImportance {
					maxImportance = e.Importance
				}
			}

			stem := name
			if idx := strings.LastIndex(name, "."); idx >= 0 {
				stem = name[:idx]
			}
			if stem != "" {
				tag := strings.ToLower(stem)
				if tag == "cargo" || tag == "go" {
					tag = "dependencies"
				}
				if !tagSeen[tag] {
					tagSeen[tag] = true
					fileTags = append(fileTags, tag)
				}
			}

			fmt.Fprintf(&content, "### %s\n%s\n", name, truncate(group[0].Content, 300))
			if len(group) > 1 {
				fmt.Fprintf(&content, "...\n%s\n", truncate(group[len(group)-1].Content, 300))
			}
		}

		if len(intents) > 0 {
			content.WriteString("\n### User Intent\n")
			for _, e := range intents {
				content.WriteString(truncate(e.Content, 200))
				content.WriteString("\n")
			}
		}

		var title string
		switch {
		case len(intents) > 0:
			title = truncate(strings.TrimSpace(intents[0].Content), 80)
		case len(filesSummary) == 1:
			title = "Update " + filesSummary[0]
		case len(filesSummary) <= 3:
			title = "Update " + strings.Join(filesSummary, ", ")
		default:
			title = fmt.Sprintf("Update %d files: %s, and %d more", len(paths), strings.Join(filesSummary[:2], ", "), len(paths)-2)
		}

		if maxImportance > 0.7 {
			maxImportance = 0.7
		}

		tags := append([]string{"auto-capture", "session-compressed"}, fileTags...)
		memories = append(memories, CompressedMemory{
			Kind:       types.KindDecision,
			Title:      title,
			Content:    content.String(),
			Importance: maxImportance,
			Tags:       tags,
		})
	}

	if len(errs) > 0 {
		var content strings.Builder
		maxImportance := 0.6
		for _, e := range errs {
			fmt.Fprintf(&content, "- %s\n  %s\n", truncate(e.Title, 100), truncate(e.Content, 200))
			if e.Importance > maxImportance {
				maxImportance = e.Importance
			}
		}
		title := errs[0].Title
		if len(errs) > 1 {
			title = fmt.Sprintf("%d errors encountered", len(errs))
		}
		memories = append(memories, CompressedMemory{
			Kind:       types.KindError,
			Title:      title,
			Content:    content.String(),
			Importance: maxImportance,
			Tags:       []string{"auto-capture", "session-compressed"},
		})
	}

	return memories
}

func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}

func basename(path string) string {
	if path == "" {
		return "unknown"
	}
	if idx := strings.LastIndex(path, "/"); idx >= 0 {
		return path[idx+1:]
	}
	return path
}
