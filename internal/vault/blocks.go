package vault

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
)

var (
	blockRe  = regexp.MustCompile("(?s)```tasks[ \\t]*\\r?\\n(.*?)```")
	headerRe = regexp.MustCompile(`(?m)^##\s+(.+?)\s*$`)
)

// ErrNoQueryBlock is returned when a file holds no ```tasks block.
var ErrNoQueryBlock = errors.New("no ```tasks block found")

// QueryBlock is a ```tasks fenced query inside a note.
type QueryBlock struct {
	// Name is the closest "## " heading above the block.
	Name   string
	Source string
	// Line is the 1-based line of the opening fence.
	Line int
}

// ReadQueryBlocks parses all ```tasks blocks from a file
func ReadQueryBlocks(path string) ([]QueryBlock, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	blocks := QueryBlocks(string(content))
	if len(blocks) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoQueryBlock, path)
	}
	return blocks, nil
}

// QueryBlocks returns every ```tasks block in content, in file order.
func QueryBlocks(content string) []QueryBlock {
	matches := blockRe.FindAllStringSubmatchIndex(content, -1)
	headers := headerRe.FindAllStringSubmatchIndex(content, -1)

	blocks := make([]QueryBlock, 0, len(matches))
	for _, match := range matches {
		blockStart := match[0]

		sectionName := ""
		for _, header := range headers {
			if header[1] >= blockStart {
				break
			}
			sectionName = content[header[2]:header[3]]
		}

		blocks = append(blocks, QueryBlock{
			Name:   sectionName,
			Source: content[match[2]:match[3]],
			Line:   strings.Count(content[:blockStart], "\n") + 1,
		})
	}

	return blocks
}
