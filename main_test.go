package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/elcuervo/otq/internal/date"
	"github.com/elcuervo/otq/internal/query"
	"github.com/elcuervo/otq/internal/task"
)

func TestExpandPath(t *testing.T) {
	home, _ := os.UserHomeDir()
	t.Setenv("OT_TEST_DIR", "/from/env")

	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "empty string", input: "", want: ""},
		{name: "absolute path", input: "/usr/bin", want: "/usr/bin"},
		{name: "tilde only", input: "~", want: home},
		{name: "tilde with path", input: "~/Documents", want: filepath.Join(home, "Documents")},
		{name: "whitespace trimmed", input: "  /path  ", want: "/path"},
		{name: "environment variable", input: "$OT_TEST_DIR/vault", want: "/from/env/vault"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := expandPath(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("expandPath() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if got != tt.want {
				t.Errorf("expandPath() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestResolveVaultPath(t *testing.T) {
	home, _ := os.UserHomeDir()

	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "absolute path unchanged", input: "/vault", want: "/vault"},
		{name: "relative becomes absolute", input: "vault", want: filepath.Join(home, "vault")},
		{name: "tilde path", input: "~/vault", want: filepath.Join(home, "vault")},
		{name: "empty stays empty", input: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolveVaultPath(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("resolveVaultPath() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if got != tt.want {
				t.Errorf("resolveVaultPath() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestResolveQueryPath(t *testing.T) {
	home, _ := os.UserHomeDir()

	tests := []struct {
		name    string
		query   string
		vault   string
		want    string
		wantErr bool
	}{
		{name: "absolute query unchanged", query: "/queries/q.md", vault: "/vault", want: "/queries/q.md"},
		{name: "relative joins vault", query: "queries/q.md", vault: "/vault", want: "/vault/queries/q.md"},
		{name: "tilde query expands", query: "~/q.md", vault: "/vault", want: filepath.Join(home, "q.md")},
		{name: "empty vault uses relative", query: "q.md", vault: "", want: "q.md"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolveQueryPath(tt.query, tt.vault)
			if (err != nil) != tt.wantErr {
				t.Errorf("resolveQueryPath() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if got != tt.want {
				t.Errorf("resolveQueryPath() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestValidateProfile(t *testing.T) {
	tests := []struct {
		name     string
		profile  Profile
		wantErr  bool
		errField string
	}{
		{name: "valid profile", profile: Profile{Vault: "/v", Query: "q.md"}, wantErr: false},
		{name: "empty query shows everything", profile: Profile{Vault: "/v"}, wantErr: false},
		{name: "empty vault", profile: Profile{Vault: "", Query: "q.md"}, wantErr: true, errField: "vault"},
		{name: "whitespace vault", profile: Profile{Vault: "  ", Query: "q.md"}, wantErr: true, errField: "vault"},
		{name: "both empty", profile: Profile{}, wantErr: true, errField: "vault"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateProfile("test", tt.profile)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateProfile() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if tt.wantErr && tt.errField != "" {
				var pe *ProfileError
				if errors.As(err, &pe) && pe.Field != tt.errField {
					t.Errorf("error field = %q, want %q", pe.Field, tt.errField)
				}
			}
		})
	}
}

func TestSelectProfile(t *testing.T) {
	tests := []struct {
		name        string
		profileFlag string
		cfg         Config
		wantName    string
		wantNil     bool
		wantErr     bool
	}{
		{
			name:        "explicit flag",
			profileFlag: "work",
			cfg:         Config{Profiles: map[string]Profile{"work": {Vault: "/v", Query: "q"}}},
			wantName:    "work",
		},
		{
			name:        "default profile",
			profileFlag: "",
			cfg:         Config{DefaultProfile: "home", Profiles: map[string]Profile{"home": {Vault: "/v", Query: "q"}}},
			wantName:    "home",
		},
		{
			name:        "flag wins over default",
			profileFlag: "work",
			cfg:         Config{DefaultProfile: "home", Profiles: map[string]Profile{"home": {}, "work": {}}},
			wantName:    "work",
		},
		{
			name:        "no profile",
			profileFlag: "",
			cfg:         Config{},
			wantNil:     true,
		},
		{
			name:        "flag profile not found",
			profileFlag: "missing",
			cfg:         Config{Profiles: map[string]Profile{"work": {}}},
			wantErr:     true,
		},
		{
			name:        "default profile not found",
			profileFlag: "",
			cfg:         Config{DefaultProfile: "missing", Profiles: map[string]Profile{}},
			wantErr:     true,
		},
		{
			name:        "flag with no profiles map",
			profileFlag: "work",
			cfg:         Config{},
			wantErr:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			name, profile, err := selectProfile(tt.profileFlag, tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("selectProfile() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if tt.wantNil && profile != nil {
				t.Errorf("selectProfile() profile = %v, want nil", profile)
				return
			}
			if !tt.wantNil && !tt.wantErr && name != tt.wantName {
				t.Errorf("selectProfile() name = %q, want %q", name, tt.wantName)
			}
		})
	}
}

func TestResolveProfilePaths(t *testing.T) {
	tmpDir := t.TempDir()
	vaultDir := filepath.Join(tmpDir, "vault")
	os.MkdirAll(vaultDir, 0755)
	os.WriteFile(filepath.Join(vaultDir, "tasks.md"), []byte("```tasks\nnot done\n```\n"), 0644)

	fileAsVault := filepath.Join(tmpDir, "file.txt")
	os.WriteFile(fileAsVault, []byte("not a dir"), 0644)

	tests := []struct {
		name        string
		profile     Profile
		wantErr     bool
		errField    string
		wantIsFile  bool
		wantQuery   string
		wantEditor  string
		checkResult bool
	}{
		{
			name:        "query file inside vault",
			profile:     Profile{Vault: vaultDir, Query: "tasks.md", Editor: "nvim"},
			wantIsFile:  true,
			wantEditor:  "nvim",
			checkResult: true,
		},
		{
			name:        "inline query",
			profile:     Profile{Vault: vaultDir, Query: "  not done  "},
			wantQuery:   "not done",
			checkResult: true,
		},
		{
			name:     "non-existent vault",
			profile:  Profile{Vault: filepath.Join(tmpDir, "nonexistent"), Query: "tasks.md"},
			wantErr:  true,
			errField: "vault",
		},
		{
			name:     "vault is file",
			profile:  Profile{Vault: fileAsVault, Query: "tasks.md"},
			wantErr:  true,
			errField: "vault",
		},
		{
			name:     "empty vault",
			profile:  Profile{Vault: "", Query: "tasks.md"},
			wantErr:  true,
			errField: "vault",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resolved, err := resolveProfilePaths("test", tt.profile)
			if (err != nil) != tt.wantErr {
				t.Errorf("resolveProfilePaths() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if tt.wantErr && tt.errField != "" {
				var pe *ProfileError
				if errors.As(err, &pe) && pe.Field != tt.errField {
					t.Errorf("error field = %q, want %q", pe.Field, tt.errField)
				}
			}
			if !tt.wantErr && resolved == nil {
				t.Fatal("resolveProfilePaths() returned nil without error")
			}
			if !tt.checkResult {
				return
			}
			if resolved.QueryIsFile != tt.wantIsFile {
				t.Errorf("QueryIsFile = %v, want %v", resolved.QueryIsFile, tt.wantIsFile)
			}
			if tt.wantIsFile && filepath.Base(resolved.Query) != "tasks.md" {
				t.Errorf("Query = %q, want a path to tasks.md", resolved.Query)
			}
			if tt.wantQuery != "" && resolved.Query != tt.wantQuery {
				t.Errorf("Query = %q, want %q", resolved.Query, tt.wantQuery)
			}
			if resolved.EditorMode != tt.wantEditor {
				t.Errorf("EditorMode = %q, want %q", resolved.EditorMode, tt.wantEditor)
			}
		})
	}
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr error
		fail    bool
	}{
		{
			name: "valid config",
			cfg:  Config{DefaultProfile: "work", Profiles: map[string]Profile{"work": {Vault: "/v", Query: "q"}}},
		},
		{
			name: "no default profile",
			cfg:  Config{Profiles: map[string]Profile{"work": {Vault: "/v", Query: "q"}}},
		},
		{
			name: "missing default profile",
			cfg:  Config{DefaultProfile: "missing", Profiles: map[string]Profile{"work": {}}},
			fail: true,
		},
		{
			name: "known log level",
			cfg:  Config{LogLevel: "debug"},
		},
		{
			name:    "unknown log level",
			cfg:     Config{LogLevel: "chatty"},
			fail:    true,
			wantErr: ErrBadLogLevel,
		},
		{
			name: "empty config",
			cfg:  Config{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateConfig(tt.cfg)
			if (err != nil) != tt.fail {
				t.Errorf("validateConfig() error = %v, wantErr %v", err, tt.fail)
				return
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("validateConfig() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadConfigFile(t *testing.T) {
	tmpDir := t.TempDir()

	valid := filepath.Join(tmpDir, "config.toml")
	os.WriteFile(valid, []byte(`default_profile = "work"
global_query = "path does not include templates"
remove_scheduled_on_recurrence = true
debounce = "250ms"
log_level = "warn"

[profiles.work]
vault = "~/notes"
query = "Dashboard.md"
editor = "nvim"
`), 0644)

	badDuration := filepath.Join(tmpDir, "bad-duration.toml")
	os.WriteFile(badDuration, []byte(`debounce = "soon"`), 0644)

	negative := filepath.Join(tmpDir, "negative.toml")
	os.WriteFile(negative, []byte(`debounce = "-1s"`), 0644)

	t.Run("valid file", func(t *testing.T) {
		cfg, err := loadConfigFile(valid)
		if err != nil {
			t.Fatalf("loadConfigFile() error = %v", err)
		}
		if cfg.DefaultProfile != "work" {
			t.Errorf("DefaultProfile = %q, want %q", cfg.DefaultProfile, "work")
		}
		if cfg.GlobalQuery != "path does not include templates" {
			t.Errorf("GlobalQuery = %q", cfg.GlobalQuery)
		}
		if !cfg.RemoveScheduledOnRecurrence {
			t.Error("RemoveScheduledOnRecurrence = false, want true")
		}
		if cfg.Debounce.Duration != 250*time.Millisecond {
			t.Errorf("Debounce = %v, want 250ms", cfg.Debounce.Duration)
		}
		if p := cfg.Profiles["work"]; p.Query != "Dashboard.md" || p.Editor != "nvim" {
			t.Errorf("Profiles[work] = %+v", p)
		}
	})

	t.Run("missing file is empty", func(t *testing.T) {
		cfg, err := loadConfigFile(filepath.Join(tmpDir, "missing.toml"))
		if err != nil {
			t.Fatalf("loadConfigFile() error = %v", err)
		}
		if cfg.DefaultProfile != "" || cfg.Profiles != nil {
			t.Errorf("loadConfigFile() = %+v, want empty config", cfg)
		}
	})

	for _, path := range []string{badDuration, negative} {
		t.Run(filepath.Base(path), func(t *testing.T) {
			if _, err := loadConfigFile(path); err == nil {
				t.Error("loadConfigFile() error = nil, want duration error")
			}
		})
	}
}

func TestLogConfig(t *testing.T) {
	home, _ := os.UserHomeDir()

	tests := []struct {
		name      string
		cfg       Config
		fileFlag  string
		levelFlag string
		wantFile  string
		wantLevel string
		wantErr   bool
	}{
		{name: "defaults", wantLevel: "info"},
		{name: "from config", cfg: Config{LogFile: "~/ot.log", LogLevel: "debug"}, wantFile: filepath.Join(home, "ot.log"), wantLevel: "debug"},
		{name: "flags win", cfg: Config{LogFile: "/a.log", LogLevel: "debug"}, fileFlag: "/b.log", levelFlag: "error", wantFile: "/b.log", wantLevel: "error"},
		{name: "bad level flag", levelFlag: "loud", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lc, err := logConfig(tt.cfg, tt.fileFlag, tt.levelFlag)
			if (err != nil) != tt.wantErr {
				t.Errorf("logConfig() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if tt.wantErr {
				return
			}
			if lc.Filename != tt.wantFile {
				t.Errorf("Filename = %q, want %q", lc.Filename, tt.wantFile)
			}
			if lc.Level != tt.wantLevel {
				t.Errorf("Level = %q, want %q", lc.Level, tt.wantLevel)
			}
		})
	}
}

func TestResolveQuery(t *testing.T) {
	tmpDir := t.TempDir()

	queryFile := filepath.Join(tmpDir, "query.md")
	os.WriteFile(queryFile, []byte("```tasks\nnot done\ndue today\n```\n"), 0644)

	os.WriteFile(filepath.Join(tmpDir, "plan.md"), []byte(
		"---\nproject: home\n---\n## Today\n```tasks\nnot done\n```\n\n## Later\n```tasks\ndue after today\n```\n"), 0644)

	outside := filepath.Join(t.TempDir(), "q.md")
	os.WriteFile(outside, []byte("```tasks\ndone\n```\n"), 0644)

	tests := []struct {
		name      string
		input     string
		vaultPath string
		wantNames []string
		wantRel   string
		wantErr   bool
	}{
		{name: "inline query not done", input: "not done", vaultPath: tmpDir, wantNames: []string{""}},
		{name: "inline query due today", input: "due today", vaultPath: tmpDir, wantNames: []string{""}},
		{name: "query file path", input: queryFile, vaultPath: tmpDir, wantNames: []string{""}, wantRel: "query.md"},
		{name: "relative query file", input: "query.md", vaultPath: tmpDir, wantNames: []string{""}, wantRel: "query.md"},
		{name: "named blocks", input: "plan.md", vaultPath: tmpDir, wantNames: []string{"Today", "Later"}, wantRel: "plan.md"},
		{name: "file outside vault", input: outside, vaultPath: tmpDir, wantNames: []string{""}},
		{name: "nonexistent file treated as inline", input: "nonexistent.md", vaultPath: tmpDir, wantNames: []string{""}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sections, err := resolveQuery(tt.input, tt.vaultPath)
			if (err != nil) != tt.wantErr {
				t.Errorf("resolveQuery() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if len(sections) != len(tt.wantNames) {
				t.Fatalf("resolveQuery() returned %d sections, want %d", len(sections), len(tt.wantNames))
			}
			for i, s := range sections {
				if s.Name != tt.wantNames[i] {
					t.Errorf("section %d name = %q, want %q", i, s.Name, tt.wantNames[i])
				}
				if s.Rel != tt.wantRel {
					t.Errorf("section %d rel = %q, want %q", i, s.Rel, tt.wantRel)
				}
				if s.File == nil {
					t.Errorf("section %d has no file", i)
				}
			}
		})
	}

	t.Run("frontmatter reaches the query file", func(t *testing.T) {
		sections, err := resolveQuery("plan.md", tmpDir)
		if err != nil {
			t.Fatalf("resolveQuery() error = %v", err)
		}
		got, ok := sections[1].File.PropertyString("project")
		if !ok || got != "home" {
			t.Errorf("File.PropertyString(project) = %q, %v, want %q", got, ok, "home")
		}
		if sections[1].Source != "due after today\n" {
			t.Errorf("Source = %q", sections[1].Source)
		}
	})

	t.Run("file without blocks", func(t *testing.T) {
		os.WriteFile(filepath.Join(tmpDir, "plain.md"), []byte("# nothing here\n"), 0644)
		if _, err := resolveQuery("plain.md", tmpDir); err == nil {
			t.Error("resolveQuery() error = nil, want an error for a file without query blocks")
		}
	})
}

func TestParseInlineQuery(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "single line", input: "not done", want: "not done"},
		{name: "escaped newline", input: `not done\ngroup by folder`, want: "not done\ngroup by folder"},
		{name: "real newline", input: "not done\nlimit 5", want: "not done\nlimit 5"},
		{name: "empty string", input: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sections := parseInlineQuery(tt.input)
			if len(sections) != 1 {
				t.Fatalf("parseInlineQuery() returned %d sections, want 1", len(sections))
			}
			if sections[0].Source != tt.want {
				t.Errorf("Source = %q, want %q", sections[0].Source, tt.want)
			}
			if sections[0].Rel != "" {
				t.Errorf("Rel = %q, want empty", sections[0].Rel)
			}
		})
	}
}

func sampleTask() *task.Task {
	return &task.Task{
		Location:    task.Location{Path: "projects/a.md", Line: 3},
		Status:      task.StatusFromSymbol(" "),
		Description: "buy milk #errand",
		Tags:        []string{"#errand"},
		Priority:    task.PriorityHigh,
		DueDate:     date.MustParse("2025-01-10"),
	}
}

func TestTaskText(t *testing.T) {
	tests := []struct {
		name   string
		layout query.Layout
		want   string
	}{
		{name: "everything", want: "buy milk #errand ⏫ 📅 2025-01-10"},
		{name: "hide priority", layout: query.Layout{Hidden: map[string]bool{"priority": true}}, want: "buy milk #errand 📅 2025-01-10"},
		{name: "hide due date", layout: query.Layout{Hidden: map[string]bool{"due date": true}}, want: "buy milk #errand ⏫"},
		{name: "short mode", layout: query.Layout{ShortMode: true}, want: "buy milk #errand ⏫ 📅"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := taskText(sampleTask(), tt.layout); got != tt.want {
				t.Errorf("taskText() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestListWriter(t *testing.T) {
	tk := sampleTask()
	sections := []QuerySection{{Name: "Errands"}, {Name: "Empty"}}
	results := []*query.Result{
		{
			Groups:       []query.Group{{Names: []string{"projects"}, Tasks: []*task.Task{tk}}},
			Tasks:        []*task.Task{tk},
			TotalMatched: 4,
		},
		{},
	}

	t.Run("with backlinks", func(t *testing.T) {
		var buf bytes.Buffer
		w := listWriter{out: &buf, vaultPath: "/vault"}

		if got := w.printSections(sections, results); got != 1 {
			t.Errorf("printSections() = %d, want 1", got)
		}

		out := buf.String()
		for _, want := range []string{
			"## Errands (1)\n",
			"### projects\n",
			"[ ] buy milk #errand ⏫ 📅 2025-01-10 (projects/a.md:3)\n",
			"1 of 4 tasks shown\n",
			"## Empty (0)\n(no matching tasks)\n",
		} {
			if !strings.Contains(out, want) {
				t.Errorf("output missing %q:\n%s", want, out)
			}
		}
	})

	t.Run("hidden backlink and count", func(t *testing.T) {
		var buf bytes.Buffer
		w := listWriter{out: &buf, vaultPath: "/vault"}
		res := *results[0]
		res.Layout = query.Layout{Hidden: map[string]bool{"backlink": true, "task count": true}}

		w.printSections(sections[:1], []*query.Result{&res})

		out := buf.String()
		if strings.Contains(out, "projects/a.md:3") {
			t.Errorf("backlink should be hidden:\n%s", out)
		}
		if strings.Contains(out, "tasks shown") {
			t.Errorf("task count should be hidden:\n%s", out)
		}
	})

	t.Run("pending results are skipped", func(t *testing.T) {
		var buf bytes.Buffer
		w := listWriter{out: &buf}
		if got := w.printSections(sections, []*query.Result{nil, nil}); got != 0 || buf.Len() != 0 {
			t.Errorf("printSections() = %d, %q, want nothing", got, buf.String())
		}
	})
}

func TestFileURL(t *testing.T) {
	if got := fileURL("/vault/my notes/a.md"); got != "file:///vault/my%20notes/a.md" {
		t.Errorf("fileURL() = %q", got)
	}
}

func TestTruncateLeft(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{in: "/short", n: 20, want: "/short"},
		{in: "/home/user/notes/vault", n: 10, want: "...s/vault"},
		{in: "/home/user/notes/vault", n: 3, want: "/home/user/notes/vault"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := truncateLeft(tt.in, tt.n); got != tt.want {
				t.Errorf("truncateLeft(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
			}
		})
	}
}

func TestCalculateVisibleRange(t *testing.T) {
	tests := []struct {
		name      string
		cursor    int
		heights   []int
		visible   int
		wantStart int
		wantEnd   int
	}{
		{name: "empty", cursor: 0, heights: nil, visible: 10, wantStart: 0, wantEnd: 0},
		{name: "fits", cursor: 1, heights: []int{1, 1, 1}, visible: 10, wantStart: 0, wantEnd: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end := calculateVisibleRange(tt.cursor, tt.heights, tt.visible)
			if start != tt.wantStart || end != tt.wantEnd {
				t.Errorf("calculateVisibleRange() = %d, %d, want %d, %d", start, end, tt.wantStart, tt.wantEnd)
			}
		})
	}

	t.Run("cursor stays visible", func(t *testing.T) {
		heights := make([]int, 50)
		for i := range heights {
			heights[i] = 1
		}
		for _, cursor := range []int{0, 10, 25, 49} {
			start, end := calculateVisibleRange(cursor, heights, 10)
			if cursor < start || cursor >= end {
				t.Errorf("cursor %d outside visible range [%d, %d)", cursor, start, end)
			}
			if end-start > 10 {
				t.Errorf("range [%d, %d) exceeds visible height", start, end)
			}
		}
	})
}

func TestResolveTarget(t *testing.T) {
	vault := t.TempDir()
	want, _ := filepath.EvalSymlinks(vault)

	tests := []struct {
		name      string
		opts      options
		cfg       Config
		wantErr   error
		wantQuery string
	}{
		{name: "no vault is a usage error", wantErr: errUsage},
		{name: "vault flag", opts: options{vault: vault, query: "not done"}, wantQuery: "not done"},
		{
			name:      "positional query overrides profile",
			opts:      options{query: "done"},
			cfg:       Config{DefaultProfile: "p", Profiles: map[string]Profile{"p": {Vault: vault, Query: "not done"}}},
			wantQuery: "done",
		},
		{
			name:      "vault flag keeps profile query",
			opts:      options{vault: vault},
			cfg:       Config{DefaultProfile: "p", Profiles: map[string]Profile{"p": {Vault: "/elsewhere", Query: "not done"}}},
			wantQuery: "not done",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target, err := resolveTarget(tt.opts, tt.cfg)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("resolveTarget() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("resolveTarget() error = %v", err)
			}
			if target.VaultPath != want {
				t.Errorf("VaultPath = %q, want %q", target.VaultPath, want)
			}
			if target.Query != tt.wantQuery {
				t.Errorf("Query = %q, want %q", target.Query, tt.wantQuery)
			}
			if target.Name == "" {
				t.Error("Name is empty")
			}
		})
	}
}

func TestSessionToggleRerenders(t *testing.T) {
	vault := t.TempDir()
	path := filepath.Join(vault, "tasks.md")
	os.WriteFile(path, []byte("# Inbox\n- [ ] one\n- [ ] two\n"), 0644)

	s := newSession(vault, parseInlineQuery("not done"), settings{}, nil)
	defer s.close()

	count, err := s.load()
	if err != nil {
		t.Fatalf("load() error = %v", err)
	}
	if count != 2 {
		t.Fatalf("load() = %d tasks, want 2", count)
	}

	var (
		mu     sync.Mutex
		latest *query.Result
	)
	s.start(func(_ int, res *query.Result) {
		mu.Lock()
		latest = res
		mu.Unlock()
	})

	current := func() *query.Result {
		mu.Lock()
		defer mu.Unlock()
		return latest
	}

	res := current()
	if res == nil || len(res.Tasks) != 2 {
		t.Fatalf("initial result = %+v, want 2 tasks", res)
	}

	if err := s.toggle(res.Tasks[0]); err != nil {
		t.Fatalf("toggle() error = %v", err)
	}

	data, _ := os.ReadFile(path)
	lines := strings.Split(string(data), "\n")
	if !strings.HasPrefix(lines[1], "- [x] one ✅ ") {
		t.Errorf("toggled line = %q", lines[1])
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		res = current()
		if len(res.Tasks) == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("result after toggle has %d tasks, want 1", len(res.Tasks))
		}
		time.Sleep(10 * time.Millisecond)
	}
	if res.Tasks[0].Description != "two" {
		t.Errorf("remaining task = %q, want %q", res.Tasks[0].Description, "two")
	}
}
