package main

import (
	"context"
	"flag"
	"fmt"
	"strings"

	"github.com/devmemory/memento/internal/storage"
	"github.com/devmemory/memento/pkg/types"
)

func runChain(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("chain", flag.ExitOnError)
	id := fs.String("id", "", "starting memory ID (required)")
	maxHops := fs.Int("max-hops", 3, "maximum hops from the starting memory")
	maxNodes := fs.Int("max-nodes", 100, "maximum nodes to return")
	allowedTypes := fs.String("allowed-types", "", "comma-separated relation types to follow (default: all)")
	fs.Parse(args)
	if *id == "" && fs.NArg() > 0 {
		*id = fs.Arg(0)
	}
	if *id == "" {
		fatalf("chain: -id is required")
	}

	a, err := newApp(ctx)
	if err != nil {
		fatalf("%v", err)
	}
	defer a.Close()

	bounds := storage.GraphBounds{MaxHops: *maxHops, MaxNodes: *maxNodes}
	if *allowedTypes != "" {
		for _, t := range strings.Split(*allowedTypes, ",") {
			if t = strings.TrimSpace(t); t != "" {
				bounds.AllowedTypes = append(bounds.AllowedTypes, types.RelationType(t))
			}
		}
	}

	result, err := a.eng.Chain(ctx, *id, bounds)
	if err != nil {
		fatalf("chain: %v", err)
	}

	fmt.Printf("%d nodes, %d edges\n", len(result.Nodes), len(result.Edges))
	for _, e := range result.Edges {
		fmt.Printf("  %s --%s--> %s (%.2f)\n", e.From, e.RelationType, e.To, e.Weight)
	}
	if len(result.BoundsReached) > 0 {
		fmt.Printf("bounds reached: %v\n", result.BoundsReached)
	}
}
