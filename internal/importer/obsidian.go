package importer

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// DirectoryImportResult is the summary produced by walking an Obsidian
// vault or plain Markdown directory tree.
type DirectoryImportResult struct {
	Files       []*ParsedFile
	FilesErrors map[string]error // relative path -> parse error, for files that failed
	Skipped     int              // files skipped for being empty
}

// ImportDirectory walks dirPath for Markdown files, parsing each one.
// Parse failures are collected per-file rather than aborting the walk, so a
// single malformed note doesn't block importing the rest of a vault.
func ImportDirectory(dirPath string) (*DirectoryImportResult, error) {
	paths, err := collectMarkdownFiles(dirPath)
	if err != nil {
		return nil, fmt.Errorf("importer: walk %s: %w", dirPath, err)
	}

	result := &DirectoryImportResult{FilesErrors: map[string]error{}}
	for _, absPath := range paths {
		rel, err := filepath.Rel(dirPath, absPath)
		if err != nil {
			rel = absPath
		}

		content, err := os.ReadFile(absPath)
		if err != nil {
			result.FilesErrors[rel] = err
			continue
		}
		if len(strings.TrimSpace(string(content))) == 0 {
			result.Skipped++
			continue
		}

		pf, err := ParseMarkdownFile(content, absPath, rel)
		if err != nil {
			result.FilesErrors[rel] = err
			continue
		}
		result.Files = append(result.Files, pf)
	}

	return result, nil
}

// collectMarkdownFiles walks dirPath and returns all .md / .markdown files found.
// Obsidian hidden directories (e.g. .obsidian) are skipped.
func collectMarkdownFiles(dirPath string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dirPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			// Skip hidden directories (e.g. .obsidian, .git, .trash).
			if strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		ext := strings.ToLower(filepath.Ext(d.Name()))
		if ext == ".md" || ext == ".markdown" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}
