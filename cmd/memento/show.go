package main

import (
	"context"
	"flag"
	"fmt"
	"strings"
)

func runShow(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("show", flag.ExitOnError)
	id := fs.String("id", "", "memory ID (required)")
	fs.Parse(args)
	if *id == "" && fs.NArg() > 0 {
		*id = fs.Arg(0)
	}
	if *id == "" {
		fatalf("show: -id is required")
	}

	a, err := newApp(ctx)
	if err != nil {
		fatalf("%v", err)
	}
	defer a.Close()

	entry, rels, err := a.eng.Show(ctx, *id)
	if err != nil {
		fatalf("show: %v", err)
	}

	fmt.Printf("%s  [%s]  %s\n", entry.ID, entry.Kind, entry.Title)
	fmt.Printf("importance=%.2f  privacy=%s  status=%s  verification=%s\n",
		entry.Importance, entry.Privacy, entry.Status, entry.Verification)
	fmt.Println(strings.TrimSpace(entry.Summary))
	if entry.ProjectID != "" {
		fmt.Printf("project: %s\n", entry.ProjectID)
	}
	fmt.Printf("created: %s by %s\n", entry.CreatedAt.Format("2006-01-02 15:04"), entry.CreatedBy)

	if len(rels) == 0 {
		fmt.Println("no relations")
		return
	}
	fmt.Println("relations:")
	for _, r := range rels {
		dir := "->"
		other := r.TargetID
		if r.TargetID == entry.ID {
			dir = "<-"
			other = r.SourceID
		}
		fmt.Printf("  %s %s %s (%.2f)\n", dir, r.RelationType, other, r.Strength)
	}
}
