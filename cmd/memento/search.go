package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/devmemory/memento/pkg/types"
)

func runSearch(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	query := fs.String("query", "", "natural-language search query (required)")
	kind := fs.String("kind", "", "filter to a single memory kind")
	projectID := fs.String("project", "", "scope search to a project")
	tags := fs.String("tags", "", "comma-separated tags, any match")
	limit := fs.Int("limit", 10, "max results")
	fs.Parse(args)

	if *query == "" {
		fatalf("search: -query is required")
	}

	a, err := newApp(ctx)
	if err != nil {
		fatalf("%v", err)
	}
	defer a.Close()

	q := types.SearchQuery{Query: *query, ProjectID: *projectID, Tags: splitCSV(*tags), Limit: *limit}
	if *kind != "" {
		k, err := types.ParseMemoryKind(*kind)
		if err != nil {
			fatalf("search: %v", err)
		}
		q.Kind = &k
	}

	results, err := a.eng.Search(ctx, q)
	if err != nil {
		fatalf("search: %v", err)
	}

	if len(results) == 0 {
		fmt.Println("no matches")
		return
	}
	for _, r := range results {
		fmt.Printf("%.3f  %s  [%s]  %s\n", r.Score, r.Memory.ID, r.Memory.Kind, r.Memory.Title)
	}
}
