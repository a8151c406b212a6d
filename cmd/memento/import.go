package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/devmemory/memento/internal/importer"
	"github.com/devmemory/memento/pkg/types"
)

// bundleEntry is one memory as serialized in a YAML import/export bundle —
// a secondary, human-editable serialization format alongside the JSON the
// HTTP and MCP surfaces speak.
type bundleEntry struct {
	Title      string   `yaml:"title"`
	Content    string   `yaml:"content"`
	Kind       string   `yaml:"kind"`
	Tags       []string `yaml:"tags,omitempty"`
	Importance float64  `yaml:"importance"`
}

type bundle struct {
	Memories []bundleEntry `yaml:"memories"`
}

// runImport captures memories from either a Markdown/Obsidian vault
// directory or a YAML bundle file produced by `memento export`.
func runImport(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	dir := fs.String("dir", "", "path to a Markdown/Obsidian vault directory")
	bundlePath := fs.String("bundle", "", "path to a YAML memory bundle")
	fs.Parse(args)

	if *dir == "" && *bundlePath == "" {
		fatalf("import: one of -dir or -bundle is required")
	}

	a, err := newApp(ctx)
	if err != nil {
		fatalf("%v", err)
	}
	defer a.Close()

	created, skipped := 0, 0

	if *dir != "" {
		result, err := importer.ImportDirectory(*dir)
		if err != nil {
			fatalf("import: %v", err)
		}
		for path, parseErr := range result.FilesErrors {
			fmt.Fprintf(os.Stderr, "memento: import: skipping %s: %v\n", path, parseErr)
		}
		skipped += result.Skipped + len(result.FilesErrors)

		for _, pf := range result.Files {
			input := types.CreateMemoryInput{
				Title:      pf.Title,
				Content:    pf.Content,
				Kind:       types.KindObservation,
				Tags:       pf.Tags,
				Importance: 0.5,
			}
			if _, err := a.eng.Capture(ctx, input, actor()); err != nil {
				fmt.Fprintf(os.Stderr, "memento: import: capture %s: %v\n", pf.RelativePath, err)
				skipped++
				continue
			}
			created++
		}
	}

	if *bundlePath != "" {
		raw, err := os.ReadFile(*bundlePath)
		if err != nil {
			fatalf("import: read bundle: %v", err)
		}
		var b bundle
		if err := yaml.Unmarshal(raw, &b); err != nil {
			fatalf("import: parse bundle: %v", err)
		}
		for _, entry := range b.Memories {
			kind, err := types.ParseMemoryKind(entry.Kind)
			if err != nil {
				kind = types.KindObservation
			}
			input := types.CreateMemoryInput{
				Title:      entry.Title,
				Content:    entry.Content,
				Kind:       kind,
				Tags:       entry.Tags,
				Importance: entry.Importance,
			}
			if _, err := a.eng.Capture(ctx, input, actor()); err != nil {
				fmt.Fprintf(os.Stderr, "memento: import: capture %q: %v\n", entry.Title, err)
				skipped++
				continue
			}
			created++
		}
	}

	fmt.Printf("imported %d memories (%d skipped)\n", created, skipped)
}
