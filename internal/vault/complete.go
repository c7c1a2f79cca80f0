package vault

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/natefinch/atomic"

	"github.com/elcuervo/otq/internal/task"
)

var (
	// ErrTaskMoved means the line on disk no longer matches the task, so the
	// file changed since it was read.
	ErrTaskMoved = errors.New("task line changed on disk")
	ErrNoLine    = errors.New("line out of range")
)

// ReplaceLine swaps line (1-based) of root/rel for replacement, after
// checking it still reads original. An empty replacement deletes the line.
func ReplaceLine(root, rel string, line int, original string, replacement []string) error {
	path := filepath.Join(root, filepath.FromSlash(rel))

	info, err := os.Stat(path)
	if err != nil {
		return err
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	lines := strings.Split(string(content), "\n")
	if line < 1 || line > len(lines) {
		return fmt.Errorf("%w: %s:%d", ErrNoLine, rel, line)
	}

	current := lines[line-1]
	ending := ""
	if strings.HasSuffix(current, "\r") {
		ending = "\r"
		current = strings.TrimSuffix(current, "\r")
	}
	if current != original {
		return fmt.Errorf("%w: %s:%d", ErrTaskMoved, rel, line)
	}

	out := make([]string, 0, len(lines)+len(replacement))
	out = append(out, lines[:line-1]...)
	for _, r := range replacement {
		out = append(out, r+ending)
	}
	out = append(out, lines[line:]...)

	if err := atomic.WriteFile(path, strings.NewReader(strings.Join(out, "\n"))); err != nil {
		return fmt.Errorf("failed to write %s: %w", rel, err)
	}

	// atomic.WriteFile creates a new file, keep the original mode
	if err := os.Chmod(path, info.Mode().Perm()); err != nil {
		return fmt.Errorf("failed to set file permissions: %w", err)
	}

	return nil
}

// Complete toggles t in its file. A completed recurring task gets its next
// occurrence written on the line above it. It returns the tasks that now
// take t's place.
func (s *Store) Complete(t *task.Task, opts task.ToggleOptions) ([]*task.Task, error) {
	toggled := t.Toggle(opts)

	lines := make([]string, len(toggled))
	for i, nt := range toggled {
		lines[i] = FormatLine(nt)
	}

	if err := ReplaceLine(s.root, t.Path, t.Line, t.OriginalMarkdown, lines); err != nil {
		return nil, err
	}

	for i, nt := range toggled {
		nt.Line = t.Line + i
		nt.OriginalMarkdown = lines[i]
	}
	s.Invalidate(t.Path)

	return toggled, nil
}

// Delete removes t's line from its file.
func (s *Store) Delete(t *task.Task) error {
	if err := ReplaceLine(s.root, t.Path, t.Line, t.OriginalMarkdown, nil); err != nil {
		return err
	}
	s.Invalidate(t.Path)
	return nil
}
