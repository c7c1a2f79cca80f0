package query

import "strings"

// Statement origins.
const (
	OriginQuery  = "query"
	OriginGlobal = "global query"
)

const (
	commentPrefix = "#"
	continuation  = `\`
)

// Statement is one instruction of a query.
type Statement struct {
	// Raw is the instruction as written, continuation lines joined.
	Raw string
	// Expanded is Raw with placeholders substituted.
	Expanded string
	// Line is the 1-based line the statement starts on.
	Line int
	// Origin tells whether the statement came from the query block or the
	// configured global query.
	Origin string
	// Source is the block fragment the statement was read from.
	Source string
}

// ParseStatements splits a query block into statements. Blank lines and
// lines starting with '#' are skipped; a trailing backslash joins the next
// line.
func ParseStatements(source, origin string) []Statement {
	var (
		statements []Statement
		pending    []string
		fragment   []string
		start      int
	)

	flush := func() {
		if len(pending) == 0 {
			return
		}
		raw := strings.TrimSpace(strings.Join(pending, " "))
		if raw != "" {
			statements = append(statements, Statement{
				Raw:      raw,
				Expanded: raw,
				Line:     start,
				Origin:   origin,
				Source:   strings.Join(fragment, "\n"),
			})
		}
		pending, fragment = nil, nil
	}

	for i, line := range strings.Split(strings.ReplaceAll(source, "\r\n", "\n"), "\n") {
		trimmed := strings.TrimSpace(line)

		if len(pending) == 0 {
			if trimmed == "" || strings.HasPrefix(trimmed, commentPrefix) {
				continue
			}
			start = i + 1
		}

		fragment = append(fragment, line)
		if strings.HasSuffix(trimmed, continuation) {
			pending = append(pending, strings.TrimSpace(strings.TrimSuffix(trimmed, continuation)))
			continue
		}

		pending = append(pending, trimmed)
		flush()
	}
	flush()

	return statements
}
