package query

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/elcuervo/otq/internal/task"
)

var (
	placeholderRe  = regexp.MustCompile(`\{\{\s*(.*?)\s*\}\}`)
	propertyCallRe = regexp.MustCompile(`^query\.file\.property\(\s*['"]([^'"]+)['"]\s*\)$`)
)

// ExpandPlaceholders substitutes {{query.file.*}} expressions in text with
// values from the file the query is written in.
func ExpandPlaceholders(text string, file *task.File) (string, error) {
	if !strings.Contains(text, "{{") {
		return text, nil
	}

	var firstErr error
	out := placeholderRe.ReplaceAllStringFunc(text, func(match string) string {
		expr := placeholderRe.FindStringSubmatch(match)[1]
		value, err := resolvePlaceholder(expr, file)
		if err != nil && firstErr == nil {
			firstErr = err
		}
		return value
	})
	if firstErr != nil {
		return "", firstErr
	}
	if strings.Contains(out, "{{") {
		return "", fmt.Errorf("%w: unterminated placeholder in %q", ErrPlaceholder, text)
	}
	return out, nil
}

func resolvePlaceholder(expr string, file *task.File) (string, error) {
	if file == nil || file.Path() == "" {
		return "", fmt.Errorf("%w: {{%s}}: query is not in a file", ErrPlaceholder, expr)
	}

	switch expr {
	case "query.file.path":
		return file.Path(), nil
	case "query.file.folder":
		return file.Folder(), nil
	case "query.file.root":
		return file.Root(), nil
	case "query.file.filename":
		return file.Filename(), nil
	case "query.file.filenameWithoutExtension":
		return file.FilenameWithoutExtension(), nil
	}

	var name string
	if m := propertyCallRe.FindStringSubmatch(expr); m != nil {
		name = m[1]
	} else if rest, ok := strings.CutPrefix(expr, "query.file.frontmatter."); ok && rest != "" {
		name = rest
	} else {
		return "", fmt.Errorf("%w: unknown expression {{%s}}", ErrPlaceholder, expr)
	}

	value, ok := file.PropertyString(name)
	if !ok {
		return "", fmt.Errorf("%w: {{%s}}: property %q not found in %s", ErrPlaceholder, expr, name, file.Path())
	}
	return value, nil
}
