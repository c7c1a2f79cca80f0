package query

import (
	"regexp"
	"strings"

	"github.com/elcuervo/otq/internal/task"
)

var (
	textFieldRe = regexp.MustCompile(`(?i)^(description|path|filename|folder|root|heading|recurrence|id)\s+(includes|does not include|regex matches|regex does not match)\s+(.*)$`)
	regexLitRe  = regexp.MustCompile(`^/(.*)/([imsu]*)$`)
)

type textField func(t *task.Task) string

var textFields = map[string]textField{
	"description": func(t *task.Task) string { return t.Description },
	"path":        func(t *task.Task) string { return t.Path },
	"filename":    func(t *task.Task) string { return t.File.Filename() },
	"folder":      func(t *task.Task) string { return t.File.Folder() },
	"root":        func(t *task.Task) string { return t.File.Root() },
	"heading":     func(t *task.Task) string { return t.Heading },
	"id":          func(t *task.Task) string { return t.ID },
	"recurrence": func(t *task.Task) string {
		if t.Recurrence == nil {
			return ""
		}
		return t.Recurrence.String()
	},
}

func parseTextFilter(line string, _ compileContext) (*Filter, error) {
	m := textFieldRe.FindStringSubmatch(line)
	if m == nil {
		return nil, nil
	}

	field := textFields[strings.ToLower(m[1])]
	op := strings.ToLower(m[2])
	value := strings.TrimSpace(m[3])
	negate := strings.Contains(op, "not")

	if strings.HasPrefix(op, "regex") {
		re, err := parseRegexLiteral(value)
		if err != nil {
			return nil, err
		}
		return newFilter(lowerFirst(line), func(t *task.Task, _ *SearchInfo) bool {
			return re.MatchString(field(t)) != negate
		}), nil
	}

	if value == "" {
		return nil, parseErrorf("%s filter needs a value", strings.ToLower(m[1]))
	}
	needle := strings.ToLower(value)
	return newFilter(lowerFirst(line), func(t *task.Task, _ *SearchInfo) bool {
		return strings.Contains(strings.ToLower(field(t)), needle) != negate
	}), nil
}

// parseRegexLiteral reads /pattern/flags. Supported flags map to Go's
// (?flags) syntax.
func parseRegexLiteral(lit string) (*regexp.Regexp, error) {
	m := regexLitRe.FindStringSubmatch(strings.TrimSpace(lit))
	if m == nil {
		return nil, parseErrorf("regex must be written as /pattern/flags: %q", lit)
	}

	pattern := m[1]
	if flags := strings.ReplaceAll(m[2], "u", ""); flags != "" {
		pattern = "(?" + flags + ")" + pattern
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, parseErrorf("invalid regex %q: %v", lit, err)
	}
	return re, nil
}
