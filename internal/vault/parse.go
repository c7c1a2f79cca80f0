package vault

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/elcuervo/otq/internal/task"
)

var headingRe = regexp.MustCompile(`^#{1,6}\s+(.+?)\s*#*\s*$`)

// Document is a parsed markdown file.
type Document struct {
	File  *task.File
	Tasks []*task.Task
	// FrontmatterErr is set when the frontmatter is not valid YAML. The
	// file then has no properties, but its tasks are still read.
	FrontmatterErr error
}

// ParseFile reads root/rel. rel is slash separated.
func ParseFile(root, rel string) (*Document, error) {
	content, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
	if err != nil {
		return nil, err
	}
	return Parse(rel, content)
}

// Parse reads markdown content as the file at path.
func Parse(path string, content []byte) (*Document, error) {
	props, fmLines, fmErr := splitFrontmatter(content)
	if fmErr != nil {
		props = nil
	}

	doc := &Document{
		File:           task.NewFile(path, props),
		FrontmatterErr: fmErr,
	}

	scanner := bufio.NewScanner(bytes.NewReader(content))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNum := 0
	heading := ""
	inFence := false

	for scanner.Scan() {
		lineNum++
		line := scanner.Text()

		if lineNum <= fmLines {
			continue
		}

		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~") {
			inFence = !inFence
			continue
		}
		if inFence {
			continue
		}

		if m := headingRe.FindStringSubmatch(line); m != nil {
			heading = m[1]
			continue
		}

		loc := task.Location{Path: path, Line: lineNum, Heading: heading}
		if t, ok := ParseLine(line, loc, doc.File); ok {
			doc.Tasks = append(doc.Tasks, t)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return doc, nil
}

// splitFrontmatter decodes a leading --- fenced YAML block. It returns the
// number of lines the block spans.
func splitFrontmatter(content []byte) (map[string]any, int, error) {
	lines := strings.Split(string(content), "\n")
	if len(lines) == 0 || strings.TrimRight(lines[0], "\r") != "---" {
		return nil, 0, nil
	}

	for i := 1; i < len(lines); i++ {
		if strings.TrimRight(lines[i], "\r") != "---" {
			continue
		}

		body := strings.Join(lines[1:i], "\n")
		props := map[string]any{}
		if err := yaml.Unmarshal([]byte(body), &props); err != nil {
			return nil, i + 1, fmt.Errorf("frontmatter: %w", err)
		}
		return props, i + 1, nil
	}

	// An unclosed fence is ordinary content.
	return nil, 0, nil
}
