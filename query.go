package main

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/elcuervo/otq/internal/task"
	"github.com/elcuervo/otq/internal/vault"
)

// QuerySection is one query shown on screen: a ```tasks block from a query
// file, or the inline query given on the command line.
type QuerySection struct {
	Name   string
	Source string
	// File is the note the query lives in; placeholders expand against it.
	File *task.File
	// Rel is File's path inside the vault, empty when the query file is
	// outside it or the query is inline.
	Rel string
}

// resolveQuery determines if input is a file path or inline query string
// and returns the query sections accordingly
func resolveQuery(input string, vaultPath string) ([]QuerySection, error) {
	// Try to resolve as file path first
	expanded, err := expandPath(input)
	if err != nil {
		// If expansion fails, treat as inline query
		return parseInlineQuery(input), nil
	}

	var filePath string
	if filepath.IsAbs(expanded) {
		filePath = expanded
	} else if vaultPath != "" {
		filePath = filepath.Join(vaultPath, expanded)
	} else {
		filePath = expanded
	}

	// Check if file exists and is not a directory
	if info, err := os.Stat(filePath); err == nil && !info.IsDir() {
		return parseQueryFile(filePath, vaultPath)
	}

	// Not a file - treat as inline query
	return parseInlineQuery(input), nil
}

// parseQueryFile reads every ```tasks block of filePath, each bound to the
// file's frontmatter.
func parseQueryFile(filePath, vaultPath string) ([]QuerySection, error) {
	blocks, err := vault.ReadQueryBlocks(filePath)
	if err != nil {
		return nil, err
	}

	root, rel := filepath.Dir(filePath), filepath.Base(filePath)
	inVault := false
	if vaultPath != "" {
		if r, err := filepath.Rel(vaultPath, filePath); err == nil && !strings.HasPrefix(r, "..") {
			root, rel, inVault = vaultPath, filepath.ToSlash(r), true
		}
	}

	file := task.NewFile(rel, nil)
	if doc, err := vault.ParseFile(root, rel); err == nil {
		file = doc.File
	}

	sections := make([]QuerySection, 0, len(blocks))
	for _, block := range blocks {
		section := QuerySection{Name: block.Name, Source: block.Source, File: file}
		if inVault {
			section.Rel = rel
		}
		sections = append(sections, section)
	}
	return sections, nil
}

// parseInlineQuery wraps an inline query string like "not done" or
// "due today". Literal "\n" sequences separate lines.
func parseInlineQuery(queryStr string) []QuerySection {
	source := strings.ReplaceAll(queryStr, `\n`, "\n")
	return []QuerySection{{Source: source, File: task.NewFile("", nil)}}
}
