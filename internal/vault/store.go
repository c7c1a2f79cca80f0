package vault

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/elcuervo/otq/internal/task"
)

// cachedFile stores a parsed file with the modification time it was read at
type cachedFile struct {
	modTime time.Time
	doc     *Document
}

// Store is a mtime validated cache of every markdown file under a vault
// root. It is safe for concurrent use.
type Store struct {
	root   string
	logger *zap.Logger

	mu    sync.RWMutex
	files map[string]*cachedFile
}

// NewStore creates an empty store for the vault at root.
func NewStore(root string, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{root: root, logger: logger, files: make(map[string]*cachedFile)}
}

// Root returns the vault directory.
func (s *Store) Root() string {
	return s.root
}

// Scan returns the slash separated paths of every .md file under root,
// skipping hidden directories.
func Scan(root string) ([]string, error) {
	var files []string

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() && strings.HasPrefix(d.Name(), ".") && path != root {
			return filepath.SkipDir
		}

		if !d.IsDir() && isMarkdown(d.Name()) {
			rel, relErr := filepath.Rel(root, path)
			if relErr != nil {
				return relErr
			}
			files = append(files, filepath.ToSlash(rel))
		}

		return nil
	})

	return files, err
}

func isMarkdown(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), ".md")
}

// Load brings the cache up to date with the files on disk and returns every
// task, ordered by path and line. Files that fail to read are skipped and
// logged.
func (s *Store) Load() ([]*task.Task, error) {
	paths, err := Scan(s.root)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(paths))
	for _, rel := range paths {
		seen[rel] = true
		if _, err := s.Document(rel); err != nil {
			s.logger.Warn("skipping unreadable file", zap.String("path", rel), zap.Error(err))
		}
	}

	s.mu.Lock()
	for rel := range s.files {
		if !seen[rel] {
			delete(s.files, rel)
		}
	}
	s.mu.Unlock()

	return s.Tasks(), nil
}

// Document returns the parsed file at rel, reading it again when it changed
// on disk since it was cached.
func (s *Store) Document(rel string) (*Document, error) {
	if doc, ok := s.get(rel); ok {
		return doc, nil
	}

	full := filepath.Join(s.root, filepath.FromSlash(rel))
	info, err := os.Stat(full)
	if err != nil {
		s.Invalidate(rel)
		return nil, err
	}

	doc, err := ParseFile(s.root, rel)
	if err != nil {
		return nil, err
	}
	if doc.FrontmatterErr != nil {
		s.logger.Warn("ignoring frontmatter", zap.String("path", rel), zap.Error(doc.FrontmatterErr))
	}

	s.mu.Lock()
	s.files[rel] = &cachedFile{modTime: info.ModTime(), doc: doc}
	s.mu.Unlock()

	return doc, nil
}

// File returns the file context for rel, or an empty file when it cannot be
// read.
func (s *Store) File(rel string) *task.File {
	doc, err := s.Document(rel)
	if err != nil {
		return task.NewFile(rel, nil)
	}
	return doc.File
}

// get returns the cached document if the file hasn't been modified since
// caching
func (s *Store) get(rel string) (*Document, bool) {
	s.mu.RLock()
	cached, exists := s.files[rel]
	s.mu.RUnlock()
	if !exists {
		return nil, false
	}

	info, err := os.Stat(filepath.Join(s.root, filepath.FromSlash(rel)))
	if err != nil || !info.ModTime().Equal(cached.modTime) {
		return nil, false
	}

	return cached.doc, true
}

// Invalidate removes a file from the cache
func (s *Store) Invalidate(rel string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.files, rel)
}

// Tasks returns every cached task ordered by path and line.
func (s *Store) Tasks() []*task.Task {
	s.mu.RLock()
	paths := make([]string, 0, len(s.files))
	for rel := range s.files {
		paths = append(paths, rel)
	}
	slices.Sort(paths)

	var tasks []*task.Task
	for _, rel := range paths {
		tasks = append(tasks, s.files[rel].doc.Tasks...)
	}
	s.mu.RUnlock()

	return tasks
}

// Rel converts a path on disk to the vault relative form used by tasks.
func (s *Store) Rel(path string) (string, error) {
	if !filepath.IsAbs(path) {
		return filepath.ToSlash(filepath.Clean(path)), nil
	}
	rel, err := filepath.Rel(s.root, path)
	if err != nil {
		return "", err
	}
	if strings.HasPrefix(rel, "..") {
		return "", errors.New("path is outside the vault: " + path)
	}
	return filepath.ToSlash(rel), nil
}
