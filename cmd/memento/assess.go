package main

import (
	"context"
	"flag"
	"fmt"
)

func runAssess(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("assess", flag.ExitOnError)
	id := fs.String("id", "", "memory ID (required)")
	fs.Parse(args)
	if *id == "" && fs.NArg() > 0 {
		*id = fs.Arg(0)
	}
	if *id == "" {
		fatalf("assess: -id is required")
	}

	a, err := newApp(ctx)
	if err != nil {
		fatalf("%v", err)
	}
	defer a.Close()

	result, err := a.eng.Assess(ctx, *id)
	if err != nil {
		fatalf("assess: %v", err)
	}

	fmt.Printf("%s  score=%d/100\n", result.MemoryID, result.Score)
	for _, issue := range result.Issues {
		fmt.Printf("  - %s\n", issue)
	}
}
