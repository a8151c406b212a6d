package main

import (
	"context"
	"flag"
	"fmt"
)

func runHistory(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	id := fs.String("id", "", "memory ID (required)")
	limit := fs.Int("limit", 0, "max entries, 0 means no limit")
	fs.Parse(args)
	if *id == "" && fs.NArg() > 0 {
		*id = fs.Arg(0)
	}
	if *id == "" {
		fatalf("history: -id is required")
	}

	a, err := newApp(ctx)
	if err != nil {
		fatalf("%v", err)
	}
	defer a.Close()

	entries, err := a.eng.History(ctx, *id, *limit)
	if err != nil {
		fatalf("history: %v", err)
	}

	if len(entries) == 0 {
		fmt.Println("no history")
		return
	}
	for _, e := range entries {
		fmt.Printf("%s  %-10s  %s", e.Time.Format("2006-01-02 15:04:05"), e.Event, e.Actor)
		if e.Detail != "" {
			fmt.Printf("  %s", e.Detail)
		}
		fmt.Println()
	}
}
