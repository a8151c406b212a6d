package consolidate

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/devmemory/memento/internal/llm"
	"github.com/devmemory/memento/pkg/types"
)

// SystemPrompt instructs the model to merge a cluster of related memories
// into one consolidated note without inventing facts.
const SystemPrompt = `You merge a small set of related notes written by the same developer into a single consolidated note.
Preserve every distinct fact. Do not invent information that isn't present in the input notes.
Respond with JSON only, matching this shape:
{"title": "...", "content": "...", "tags": ["..."]}`

// llmResponse is the shape the model is asked to return.
type llmResponse struct {
	Title   string   `json:"title"`
	Content string   `json:"content"`
	Tags    []string `json:"tags"`
}

// BuildPrompt renders the user-turn prompt listing every member of a
// cluster, for a single-shot consolidation call.
func BuildPrompt(cluster Cluster) string {
	var b strings.Builder
	b.WriteString("Notes to merge:\n\n")
	for i, m := range cluster.Members {
		fmt.Fprintf(&b, "%d. [%s] %s\n", i+1, m.Memory.Title, m.Memory.Content)
	}
	return b.String()
}

// Summarize calls gen to merge cluster into a single memory input. When gen
// is nil it uses a deterministic fallback: the members' contents joined
// under the first member's title. A generation or parse error is returned
// to the caller; the fallback is not used in that case.
func Summarize(ctx context.Context, gen llm.TextGenerator, cluster Cluster) (*types.CreateMemoryInput, error) {
	if gen == nil {
		return fallbackSummary(cluster), nil
	}

	raw, err := gen.Complete(ctx, SystemPrompt+"\n\n"+BuildPrompt(cluster))
	if err != nil {
		return nil, fmt.Errorf("consolidation completion failed: %w", err)
	}

	clean := llm.ExtractJSON(raw)
	var parsed llmResponse
	if err := json.Unmarshal([]byte(clean), &parsed); err != nil {
		return nil, fmt.Errorf("parsing consolidation response: %w", err)
	}
	if parsed.Content == "" {
		return nil, fmt.Errorf("consolidation response had empty content")
	}

	return &types.CreateMemoryInput{
		Title:   parsed.Title,
		Content: parsed.Content,
		Tags:    parsed.Tags,
	}, nil
}

func fallbackSummary(cluster Cluster) *types.CreateMemoryInput {
	var content strings.Builder
	tagSet := map[string]bool{}
	var tags []string
	for i, m := range cluster.Members {
		if i > 0 {
			content.WriteString("\n\n")
		}
		content.WriteString(m.Memory.Content)
		for _, t := range m.Memory.Tags {
			if !tagSet[t] {
				tagSet[t] = true
				tags = append(tags, t)
			}
		}
	}
	title := cluster.Members[0].Memory.Title
	return &types.CreateMemoryInput{
		Title:   title,
		Content: content.String(),
		Tags:    tags,
	}
}
