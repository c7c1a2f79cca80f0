package main

import (
	"fmt"
	"io"
	"net/url"
	"path/filepath"

	"github.com/savioxavier/termlink"

	"github.com/elcuervo/otq/internal/query"
	"github.com/elcuervo/otq/internal/task"
)

// listWriter prints query results without the TUI.
type listWriter struct {
	out       io.Writer
	vaultPath string
	// links turns file locations into terminal hyperlinks.
	links bool
}

// printSections writes every section. It returns the number of tasks shown.
func (w listWriter) printSections(sections []QuerySection, results []*query.Result) int {
	total := 0
	for i, section := range sections {
		res := results[i]
		if res == nil {
			continue
		}
		total += w.printSection(section, res)
	}
	return total
}

func (w listWriter) printSection(section QuerySection, res *query.Result) int {
	if section.Name != "" {
		fmt.Fprintf(w.out, "## %s (%d)\n", section.Name, len(res.Tasks))
	}

	for _, err := range res.Errors {
		fmt.Fprintf(w.out, "! %v\n", err)
	}
	if res.Explanation != "" {
		fmt.Fprintf(w.out, "%s\n\n", res.Explanation)
	}

	if len(res.Tasks) == 0 {
		fmt.Fprintln(w.out, "(no matching tasks)")
		fmt.Fprintln(w.out)
		return 0
	}

	for _, group := range res.Groups {
		if heading := groupHeading(group); heading != "" {
			fmt.Fprintf(w.out, "### %s\n", heading)
		}
		for _, t := range group.Tasks {
			w.printTask(t, res.Layout)
		}
	}

	if !res.Layout.IsHidden("task count") && res.TotalMatched > len(res.Tasks) {
		fmt.Fprintf(w.out, "%d of %d tasks shown\n", len(res.Tasks), res.TotalMatched)
	}
	fmt.Fprintln(w.out)
	return len(res.Tasks)
}

func (w listWriter) printTask(t *task.Task, layout query.Layout) {
	line := fmt.Sprintf("[%s] %s", checkboxSymbol(t), taskText(t, layout))
	if layout.IsHidden("backlink") {
		fmt.Fprintln(w.out, line)
		return
	}

	location := fmt.Sprintf("%s:%d", t.Path, t.Line)
	if w.links {
		location = termlink.Link(location, fileURL(filepath.Join(w.vaultPath, t.Path)))
	}
	fmt.Fprintf(w.out, "%s (%s)\n", line, location)
}

func fileURL(path string) string {
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(path)}
	return u.String()
}
