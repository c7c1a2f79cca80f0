package main

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/elcuervo/otq/internal/date"
	"github.com/elcuervo/otq/internal/live"
	"github.com/elcuervo/otq/internal/query"
	"github.com/elcuervo/otq/internal/task"
	"github.com/elcuervo/otq/internal/vault"
)

// settings are the config values that shape query evaluation and
// completion.
type settings struct {
	GlobalQuery     string
	RemoveScheduled bool
	Debounce        time.Duration
}

// session ties a vault to the live queries shown for it.
type session struct {
	vaultPath string
	sections  []QuerySection
	settings  settings
	logger    *zap.Logger
	clock     live.Clock

	store   *vault.Store
	bus     *live.Bus
	watcher *vault.Watcher

	mu      sync.Mutex
	queries []*live.Query
	handle  live.Handle
	cancel  context.CancelFunc
}

func newSession(vaultPath string, sections []QuerySection, s settings, logger *zap.Logger) *session {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &session{
		vaultPath: vaultPath,
		sections:  sections,
		settings:  s,
		logger:    logger,
		clock:     live.RealClock,
		store:     vault.NewStore(vaultPath, logger),
		bus:       live.NewBus(),
	}
}

// load reads the vault and publishes it. It returns the task count.
func (s *session) load() (int, error) {
	tasks, err := s.store.Load()
	if err != nil {
		return 0, err
	}
	s.bus.Publish(tasks)
	return len(tasks), nil
}

// start creates a live query per section. onRender receives the section
// index with every result, on whatever goroutine produced it.
func (s *session) start(onRender func(int, *query.Result)) {
	s.mu.Lock()

	// Registered before the queries so a changed query file is picked up
	// ahead of their evaluation.
	s.handle = s.bus.Subscribe(func(live.Snapshot) { s.refreshFiles() })

	for i, section := range s.sections {
		q := live.New(section.Source, section.File, s.bus, live.Options{
			GlobalQuery: s.settings.GlobalQuery,
			Clock:       s.clock,
			Logger:      s.logger.With(zap.String("section", section.Name)),
			OnRender: func(res *query.Result) {
				onRender(i, res)
			},
		})
		s.queries = append(s.queries, q)
	}
	queries := s.queries
	s.mu.Unlock()

	for _, q := range queries {
		q.Start()
	}
}

// refreshFiles hands query notes with edited frontmatter to their queries.
func (s *session) refreshFiles() {
	s.mu.Lock()
	queries := s.queries
	s.mu.Unlock()

	for i, q := range queries {
		if rel := s.sections[i].Rel; rel != "" {
			q.SetFile(s.store.File(rel))
		}
	}
}

// watch starts the vault watcher in the background.
func (s *session) watch(ctx context.Context) error {
	w, err := vault.NewWatcher(s.store, s.bus, vault.WatcherOptions{
		Debounce: s.settings.Debounce,
		Clock:    s.clock,
		Logger:   s.logger,
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.watcher = w
	s.cancel = cancel
	s.mu.Unlock()

	go func() {
		if err := w.Run(ctx); err != nil && ctx.Err() == nil {
			s.logger.Error("watcher stopped", zap.Error(err))
		}
	}()
	return nil
}

func (s *session) toggleOptions() task.ToggleOptions {
	return task.ToggleOptions{
		Today:               date.FromTime(s.clock.Now()),
		RemoveScheduledDate: s.settings.RemoveScheduled,
	}
}

// toggle completes or reopens t on disk and republishes the vault.
func (s *session) toggle(t *task.Task) error {
	if _, err := s.store.Complete(t, s.toggleOptions()); err != nil {
		return err
	}
	_, err := s.load()
	return err
}

// remove deletes t's line and republishes the vault.
func (s *session) remove(t *task.Task) error {
	if err := s.store.Delete(t); err != nil {
		return err
	}
	_, err := s.load()
	return err
}

func (s *session) close() {
	s.mu.Lock()
	queries := s.queries
	s.queries = nil
	w := s.watcher
	cancel := s.cancel
	s.bus.Unsubscribe(s.handle)
	s.mu.Unlock()

	for _, q := range queries {
		q.Close()
	}
	if cancel != nil {
		cancel()
	}
	if w != nil {
		if err := w.Close(); err != nil {
			s.logger.Warn("closing watcher", zap.Error(err))
		}
	}
}
