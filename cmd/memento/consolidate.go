package main

import (
	"context"
	"flag"
	"fmt"
)

func runConsolidate(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("consolidate", flag.ExitOnError)
	fs.Parse(args)

	a, err := newApp(ctx)
	if err != nil {
		fatalf("%v", err)
	}
	defer a.Close()

	results, err := a.eng.Consolidate(ctx, actor())
	if err != nil {
		fatalf("consolidate: %v", err)
	}

	if len(results) == 0 {
		fmt.Println("no clusters eligible for consolidation")
		return
	}
	for _, r := range results {
		fmt.Printf("merged %v into %s\n", r.Absorbed, r.MergedID)
	}
}
