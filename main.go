package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/elcuervo/otq/internal/logging"
	"github.com/elcuervo/otq/internal/query"
)

var (
	version  = "0.2.0"
	buildSHA = ""
)

var (
	errUsage         = errors.New("a vault is required")
	errLoadCancelled = errors.New("load cancelled")
)

// options are the parsed command line flags.
type options struct {
	vault    string
	profile  string
	list     bool
	watch    bool
	logFile  string
	logLevel string
	version  bool
	query    string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, errUsage) {
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags(args []string, stderr io.Writer) (options, *pflag.FlagSet, error) {
	var opts options

	flags := pflag.NewFlagSet("ot", pflag.ContinueOnError)
	flags.SetOutput(stderr)
	flags.StringVar(&opts.vault, "vault", "", "Path to Obsidian vault")
	flags.StringVarP(&opts.profile, "profile", "p", "", "Profile name from config (optional)")
	flags.BoolVarP(&opts.list, "list", "l", false, "List tasks without TUI (non-interactive)")
	flags.BoolVarP(&opts.watch, "watch", "w", false, "With --list, print again whenever the vault changes")
	flags.StringVar(&opts.logFile, "log-file", "", "Write JSON logs to this file")
	flags.StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn or error")
	flags.BoolVarP(&opts.version, "version", "v", false, "Print version and exit")

	if err := flags.Parse(args); err != nil {
		return opts, flags, err
	}
	if flags.NArg() > 0 {
		opts.query = flags.Arg(0)
	}
	return opts, flags, nil
}

func printUsage(w io.Writer, flags *pflag.FlagSet, cfgPath string) {
	fmt.Fprintln(w, "Usage: ot [query-file.md | \"inline query\"] --vault <path>")
	fmt.Fprintln(w, "\nOptions:")
	fmt.Fprint(w, flags.FlagUsages())
	fmt.Fprintln(w, "\nQuery lines, one per line (or separated by \\n inline):")
	fmt.Fprintln(w, "  not done                          Only open tasks")
	fmt.Fprintln(w, "  due before tomorrow               Date filters: due, scheduled, start, done, happens")
	fmt.Fprintln(w, "  (tags include #work) OR (is recurring)")
	fmt.Fprintln(w, "  sort by priority reverse          Sorters chain in order")
	fmt.Fprintln(w, "  group by folder                   Repeated group lines nest")
	fmt.Fprintln(w, "  limit 10                          Also: limit groups N, explain, hide <field>")
	fmt.Fprintln(w, "\nExample:")
	fmt.Fprintln(w, "  ot --vault ~/obsidian-vault Dashboard.md")
	if cfgPath != "" {
		fmt.Fprintln(w, "\nConfig:")
		fmt.Fprintf(w, "  %s\n", cfgPath)
		fmt.Fprintln(w, "  Define profiles with vault/query and set default_profile to skip flags.")
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	opts, flags, err := parseFlags(args, stderr)
	if errors.Is(err, pflag.ErrHelp) {
		return nil
	}
	if err != nil {
		return err
	}

	if opts.version {
		fmt.Fprintf(stdout, "ot v%s\n", version)
		return nil
	}

	cfg, cfgPath, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	target, err := resolveTarget(opts, cfg)
	if errors.Is(err, errUsage) {
		printUsage(stderr, flags, cfgPath)
		return err
	}
	if err != nil {
		return err
	}

	sections, err := resolveQuery(target.Query, target.VaultPath)
	if err != nil {
		return fmt.Errorf("parsing query: %w", err)
	}

	lc, err := logConfig(cfg, opts.logFile, opts.logLevel)
	if err != nil {
		return err
	}
	// The TUI owns the terminal; list mode may log to stderr when asked.
	lc.Console = opts.list && opts.logLevel != ""
	logger, err := logging.New(lc)
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	initRenderer(cfg.Theme)

	s := newSession(target.VaultPath, sections, settings{
		GlobalQuery:     cfg.GlobalQuery,
		RemoveScheduled: cfg.RemoveScheduledOnRecurrence,
		Debounce:        cfg.Debounce.Duration,
	}, logger)
	defer s.close()

	logger.Info("starting",
		zap.String("vault", target.VaultPath),
		zap.String("profile", target.Name),
		zap.Int("sections", len(sections)),
		zap.Bool("list", opts.list))

	if opts.list {
		return runList(ctx, s, stdout, opts.watch)
	}
	return runTUI(ctx, s, target)
}

// resolveTarget picks the vault and query from the profile, overridden by
// flags and the positional argument.
func resolveTarget(opts options, cfg Config) (*ResolvedProfile, error) {
	name, profile, err := selectProfile(opts.profile, cfg)
	if err != nil {
		return nil, err
	}

	target := &ResolvedProfile{Name: name}
	if profile != nil && opts.vault == "" {
		target, err = resolveProfilePaths(name, *profile)
		if err != nil {
			return nil, err
		}
	} else if profile != nil {
		target.Query = profile.Query
		target.EditorMode = profile.Editor
	}

	if opts.vault != "" {
		vaultPath, err := expandPath(opts.vault)
		if err != nil {
			return nil, fmt.Errorf("expanding vault path: %w", err)
		}
		vaultPath = filepath.Clean(vaultPath)
		if resolved, err := filepath.EvalSymlinks(vaultPath); err == nil {
			vaultPath = resolved
		}
		if err := validateVaultExists(name, vaultPath); err != nil {
			return nil, err
		}
		target.VaultPath = vaultPath
	}

	if opts.query != "" {
		target.Query = opts.query
	}

	if target.VaultPath == "" {
		return nil, errUsage
	}
	if target.Name == "" {
		target.Name = filepath.Base(target.VaultPath)
	}
	return target, nil
}

// runList prints every section once, or on every change with watch.
func runList(ctx context.Context, s *session, stdout io.Writer, watch bool) error {
	if _, err := s.load(); err != nil {
		return fmt.Errorf("scanning vault: %w", err)
	}

	w := listWriter{out: stdout, vaultPath: s.vaultPath, links: true}
	results := make([]*query.Result, len(s.sections))

	var (
		mu      sync.Mutex
		started bool
	)
	s.start(func(i int, res *query.Result) {
		mu.Lock()
		defer mu.Unlock()
		results[i] = res
		if started && watch {
			fmt.Fprintf(stdout, "--- %s\n", time.Now().Format(time.DateTime))
			w.printSections(s.sections, results)
		}
	})

	mu.Lock()
	started = true
	total := w.printSections(s.sections, results)
	mu.Unlock()

	if !watch {
		if total == 0 {
			fmt.Fprintln(stdout, "No tasks found matching any query.")
		}
		return nil
	}

	if err := s.watch(ctx); err != nil {
		return fmt.Errorf("watching vault: %w", err)
	}
	<-ctx.Done()
	return nil
}

func runTUI(ctx context.Context, s *session, target *ResolvedProfile) error {
	if _, err := RunWithLoader(s); errors.Is(err, errLoadCancelled) {
		return nil
	} else if err != nil {
		return fmt.Errorf("scanning vault: %w", err)
	}

	if err := s.watch(ctx); err != nil {
		return fmt.Errorf("watching vault: %w", err)
	}

	snd := &sender{}
	p := tea.NewProgram(newModel(s, snd, target.Name, target.EditorMode), tea.WithAltScreen(), tea.WithContext(ctx))
	snd.program = p

	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("running TUI: %w", err)
	}
	return nil
}
