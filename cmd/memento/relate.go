package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/devmemory/memento/pkg/types"
)

func runRelate(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("relate", flag.ExitOnError)
	source := fs.String("source", "", "source memory ID (required)")
	target := fs.String("target", "", "target memory ID (required)")
	relType := fs.String("type", "related", "caused_by, fixes, supersedes, related, contradicts")
	strength := fs.Float64("strength", 1.0, "relation strength, 0.0-1.0")
	fs.Parse(args)

	if *source == "" || *target == "" {
		fatalf("relate: -source and -target are required")
	}

	a, err := newApp(ctx)
	if err != nil {
		fatalf("%v", err)
	}
	defer a.Close()

	rel, err := a.eng.Relate(ctx, *source, *target, types.RelationType(*relType), *strength)
	if err != nil {
		fatalf("relate: %v", err)
	}
	fmt.Println("created relation " + rel.ID)
}
