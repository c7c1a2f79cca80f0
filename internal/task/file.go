package task

import (
	"fmt"
	"path"
	"reflect"
	"strings"
)

// File is the markdown file a task or query lives in. Path is slash
// separated and relative to the vault root.
type File struct {
	path       string
	properties map[string]any
}

// NewFile returns a File with the given frontmatter properties. The map is
// copied; keys are matched case-insensitively on lookup.
func NewFile(p string, properties map[string]any) *File {
	props := make(map[string]any, len(properties))
	for k, v := range properties {
		props[k] = v
	}
	return &File{path: p, properties: props}
}

func (f *File) Path() string {
	if f == nil {
		return ""
	}
	return f.path
}

// Folder returns the containing folder with a trailing slash, "/" for the root.
func (f *File) Folder() string {
	dir := path.Dir(f.Path())
	if dir == "." || dir == "/" || dir == "" {
		return "/"
	}
	return dir + "/"
}

// Root returns the top-level folder with a trailing slash, "/" for the root.
func (f *File) Root() string {
	p := strings.TrimPrefix(f.Path(), "/")
	if i := strings.Index(p, "/"); i >= 0 {
		return p[:i+1]
	}
	return "/"
}

func (f *File) Filename() string {
	if f.Path() == "" {
		return ""
	}
	return path.Base(f.Path())
}

func (f *File) FilenameWithoutExtension() string {
	name := f.Filename()
	return strings.TrimSuffix(name, path.Ext(name))
}

// Property looks up a frontmatter property by case-insensitive name.
func (f *File) Property(name string) (any, bool) {
	if f == nil {
		return nil, false
	}
	if v, ok := f.properties[name]; ok {
		return v, true
	}
	for k, v := range f.properties {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	return nil, false
}

func (f *File) HasProperty(name string) bool {
	_, ok := f.Property(name)
	return ok
}

// PropertyString renders a property for text comparison and placeholder
// expansion. Lists are joined with ", ".
func (f *File) PropertyString(name string) (string, bool) {
	v, ok := f.Property(name)
	if !ok {
		return "", false
	}
	return FormatValue(v), true
}

// PropertyStrings returns a property as a list of strings; scalars become a
// one element list.
func (f *File) PropertyStrings(name string) []string {
	v, ok := f.Property(name)
	if !ok || v == nil {
		return nil
	}
	if list, ok := v.([]any); ok {
		out := make([]string, 0, len(list))
		for _, item := range list {
			out = append(out, FormatValue(item))
		}
		return out
	}
	return []string{FormatValue(v)}
}

// PropertiesIdenticalTo reports whether both files carry the same frontmatter.
func (f *File) PropertiesIdenticalTo(other *File) bool {
	var a, b map[string]any
	if f != nil {
		a = f.properties
	}
	if other != nil {
		b = other.properties
	}
	if len(a) == 0 && len(b) == 0 {
		return true
	}
	return reflect.DeepEqual(a, b)
}

// FormatValue renders a frontmatter value the way it reads in the file.
func FormatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []any:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			parts = append(parts, FormatValue(item))
		}
		return strings.Join(parts, ", ")
	default:
		return fmt.Sprint(val)
	}
}
