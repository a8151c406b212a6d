package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/devmemory/memento/pkg/types"
)

// runExport writes every memory matching query to a YAML bundle, the
// inverse of `memento import -bundle`.
func runExport(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	query := fs.String("query", "", "optional search query to filter exported memories")
	out := fs.String("out", "", "output file path (required)")
	limit := fs.Int("limit", 1000, "maximum number of memories to export")
	fs.Parse(args)

	if *out == "" {
		fatalf("export: -out is required")
	}

	a, err := newApp(ctx)
	if err != nil {
		fatalf("%v", err)
	}
	defer a.Close()

	results, err := a.eng.Search(ctx, types.SearchQuery{Query: *query, Limit: *limit})
	if err != nil {
		fatalf("export: %v", err)
	}

	b := bundle{}
	for _, r := range results {
		m := r.Memory
		b.Memories = append(b.Memories, bundleEntry{
			Title:      m.Title,
			Content:    m.Content,
			Kind:       string(m.Kind),
			Tags:       m.Tags,
			Importance: m.Importance,
		})
	}

	data, err := yaml.Marshal(b)
	if err != nil {
		fatalf("export: marshal bundle: %v", err)
	}
	if err := os.WriteFile(*out, data, 0o600); err != nil {
		fatalf("export: write %s: %v", *out, err)
	}

	fmt.Printf("exported %d memories to %s\n", len(b.Memories), *out)
}
