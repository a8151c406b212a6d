package importer_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/devmemory/memento/internal/importer"
)

// TestImportDirectory walks a synthetic vault and validates that both notes
// parse successfully and their wiki-link relationship is discoverable.
func TestImportDirectory(t *testing.T) {
	vaultDir := t.TempDir()

	note1 := []byte(`---
title: Alpha Note
tags: [go, testing]
---

# Alpha Note

This note links to [[Beta Note]] for more detail.
`)
	note2 := []byte(`---
title: Beta Note
tags: [go, testing]
---

# Beta Note

This note links back to [[Alpha Note]] as a reference.
`)
	if err := os.WriteFile(filepath.Join(vaultDir, "alpha-note.md"), note1, 0o600); err != nil {
		t.Fatalf("failed to create note1: %v", err)
	}
	if err := os.WriteFile(filepath.Join(vaultDir, "beta-note.md"), note2, 0o600); err != nil {
		t.Fatalf("failed to create note2: %v", err)
	}

	result, err := importer.ImportDirectory(vaultDir)
	if err != nil {
		t.Fatalf("ImportDirectory failed: %v", err)
	}

	if len(result.Files) != 2 {
		t.Fatalf("expected 2 parsed files, got %d", len(result.Files))
	}
	if len(result.FilesErrors) != 0 {
		t.Errorf("expected no parse errors, got %v", result.FilesErrors)
	}

	totalLinks := 0
	for _, f := range result.Files {
		totalLinks += len(f.WikiLinks)
	}
	if totalLinks == 0 {
		t.Error("expected at least one wiki-link relationship to be discoverable")
	}
}

// TestImportDirectory_SkipsEmptyFiles ensures a blank note doesn't produce a
// memory or a parse error, just a skip.
func TestImportDirectory_SkipsEmptyFiles(t *testing.T) {
	vaultDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(vaultDir, "empty.md"), []byte("   \n"), 0o600); err != nil {
		t.Fatalf("failed to create empty note: %v", err)
	}

	result, err := importer.ImportDirectory(vaultDir)
	if err != nil {
		t.Fatalf("ImportDirectory failed: %v", err)
	}
	if result.Skipped != 1 {
		t.Errorf("expected 1 skipped file, got %d", result.Skipped)
	}
	if len(result.Files) != 0 {
		t.Errorf("expected 0 parsed files, got %d", len(result.Files))
	}
}

// TestMarkdownParser tests the lower-level ParseMarkdownFile function.
func TestMarkdownParser(t *testing.T) {
	content := []byte(`---
title: Test Note
tags: [go, testing]
date: 2024-01-15
category: Engineering
---

# Test Note

This is a test note that links to [[Another Note]] and [[Third Note|Display Name]].

Some content here. #inline-tag

More content.
`)

	parsed, err := importer.ParseMarkdownFile(content, "/vault/Engineering/test-note.md", "Engineering/test-note.md")
	if err != nil {
		t.Fatalf("ParseMarkdownFile failed: %v", err)
	}

	t.Logf("Title:    %s", parsed.Title)
	t.Logf("Domain:   %s", parsed.Domain)
	t.Logf("Category: %s", parsed.Category)
	t.Logf("Tags:     %v", parsed.Tags)
	t.Logf("Links:    %v", parsed.WikiLinks)
	t.Logf("Content:\n%s", parsed.Content)

	if parsed.Title != "Test Note" {
		t.Errorf("expected title 'Test Note', got %q", parsed.Title)
	}
	if parsed.Domain != "engineering" {
		t.Errorf("expected domain 'engineering', got %q", parsed.Domain)
	}
	if len(parsed.WikiLinks) != 2 {
		t.Errorf("expected 2 wiki links, got %d", len(parsed.WikiLinks))
	}
	// Check that inline #tag was picked up.
	foundInline := false
	for _, tag := range parsed.Tags {
		if tag == "inline-tag" {
			foundInline = true
		}
	}
	if !foundInline {
		t.Errorf("expected inline-tag in tags, got %v", parsed.Tags)
	}
}

// TestWikiLinkExtractor tests wikilink extraction directly.
func TestWikiLinkExtractor(t *testing.T) {
	content := "See [[Project Alpha]] and [[Beta Note|Custom Label]] for details. Also [[Project Alpha]] again."

	links := importer.ExtractWikiLinks(content)
	if len(links) != 2 {
		t.Errorf("expected 2 unique links (deduped), got %d: %v", len(links), links)
	}
	if links[0].Target != "Project Alpha" {
		t.Errorf("expected 'Project Alpha', got %q", links[0].Target)
	}
	if links[1].Target != "Beta Note" || links[1].Alias != "Custom Label" {
		t.Errorf("unexpected second link: %+v", links[1])
	}

	stripped := importer.StripWikiLinks(content)
	t.Logf("Stripped: %s", stripped)
}
