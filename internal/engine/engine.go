// Package engine runs the discovery loop: a fixed-interval poll plus
// event-driven wake-ups from file changes on the mapping directory and the
// watched transcript directories. Every trigger runs the same synchronous
// pipeline; polls are serialized, never overlapped.
package engine

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/dsakurai/agentpane/internal/logging"
	"github.com/dsakurai/agentpane/internal/mapping"
	"github.com/dsakurai/agentpane/internal/session"
	"github.com/dsakurai/agentpane/internal/transcript"
)

var log = logging.ForComponent(logging.CompEngine)

// DefaultPollInterval is the periodic refresh interval.
const DefaultPollInterval = 3 * time.Second

// debounceDelay coalesces rapid file events into one wake-up.
const debounceDelay = 100 * time.Millisecond

// Engine drives periodic and event-driven session discovery.
type Engine struct {
	assembler *session.Assembler
	mappings  *mapping.Store
	interval  time.Duration

	// onUpdate is called with the fresh session list after every
	// successful poll (for UI refresh). May be nil.
	onUpdate func([]session.Session)

	// pollMu serializes polls; watched is only touched under it.
	pollMu  sync.Mutex
	watcher *fsnotify.Watcher
	watched map[string]bool

	group   singleflight.Group
	limiter *rate.Limiter

	mu       sync.RWMutex
	sessions []session.Session

	wake chan struct{}
}

// New creates an engine. A non-positive interval means DefaultPollInterval.
func New(assembler *session.Assembler, mappings *mapping.Store, interval time.Duration, onUpdate func([]session.Session)) *Engine {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Engine{
		assembler: assembler,
		mappings:  mappings,
		interval:  interval,
		onUpdate:  onUpdate,
		watched:   make(map[string]bool),
		// Event storms re-poll at most twice a second; the ticker
		// covers anything throttled away.
		limiter: rate.NewLimiter(rate.Every(500*time.Millisecond), 1),
		wake:    make(chan struct{}, 1),
	}
}

// Sessions returns the most recent session list.
func (e *Engine) Sessions() []session.Session {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]session.Session, len(e.sessions))
	copy(out, e.sessions)
	return out
}

// Refresh runs one poll immediately. Concurrent callers share a single
// assembly pass.
func (e *Engine) Refresh() ([]session.Session, error) {
	v, err, _ := e.group.Do("poll", func() (any, error) {
		return e.poll()
	})
	if err != nil {
		return nil, err
	}
	return v.([]session.Session), nil
}

// Run watches for changes and polls until the context is cancelled.
func (e *Engine) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	e.watcher = watcher
	defer func() {
		e.pollMu.Lock()
		_ = watcher.Close()
		e.watcher = nil
		e.pollMu.Unlock()
	}()

	if err := watcher.Add(e.mappings.Dir()); err != nil {
		// The hook may not have created the directory yet; polling
		// alone still works.
		log.Warn("mapping_dir_watch_failed",
			slog.String("dir", e.mappings.Dir()),
			slog.String("error", err.Error()))
	}

	if _, err := e.Refresh(); err != nil {
		log.Warn("initial_poll_failed", slog.String("error", err.Error()))
	}

	go e.consumeEvents(ctx, watcher)

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		case <-e.wake:
			if !e.limiter.Allow() {
				// Throttled; the next tick picks it up
				continue
			}
		}

		if _, err := e.Refresh(); err != nil {
			// A failed poll aborts only itself
			log.Warn("poll_failed", slog.String("error", err.Error()))
		}
	}
}

// consumeEvents debounces watcher events into wake-ups.
func (e *Engine) consumeEvents(ctx context.Context, watcher *fsnotify.Watcher) {
	var debounceTimer *time.Timer
	var debounceMu sync.Mutex

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !relevantEvent(event) {
				continue
			}

			debounceMu.Lock()
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(debounceDelay, func() {
				select {
				case e.wake <- struct{}{}:
				default:
				}
			})
			debounceMu.Unlock()

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			log.Warn("watcher_error", slog.String("error", err.Error()))
		}
	}
}

// relevantEvent keeps mapping writes and transcript appends; everything
// else (chmod noise, unrelated files) is dropped before debouncing.
func relevantEvent(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	switch filepath.Ext(event.Name) {
	case ".json", ".jsonl":
		return true
	}
	return false
}

// poll runs one full pipeline pass and reconciles the watch set.
func (e *Engine) poll() ([]session.Session, error) {
	e.pollMu.Lock()
	defer e.pollMu.Unlock()

	sessions, err := e.assembler.Assemble()
	if err != nil {
		return nil, err
	}

	prev := e.swapSessions(sessions)
	logTransitions(prev, sessions)
	e.updateWatchSet(sessions)

	if e.onUpdate != nil {
		e.onUpdate(sessions)
	}
	return sessions, nil
}

func (e *Engine) swapSessions(sessions []session.Session) []session.Session {
	e.mu.Lock()
	defer e.mu.Unlock()
	prev := e.sessions
	e.sessions = sessions
	return prev
}

// updateWatchSet diffs the transcript directories of the current session
// list against the watched set: unwatch removed, watch added. The mapping
// directory is managed in Run, never here.
func (e *Engine) updateWatchSet(sessions []session.Session) {
	if e.watcher == nil {
		return
	}

	want := make(map[string]bool)
	for i := range sessions {
		if dir := watchDirFor(&sessions[i]); dir != "" {
			want[dir] = true
		}
	}

	for dir := range e.watched {
		if !want[dir] {
			_ = e.watcher.Remove(dir)
			delete(e.watched, dir)
			log.Debug("transcript_dir_unwatched", slog.String("dir", dir))
		}
	}
	for dir := range want {
		if !e.watched[dir] {
			if err := e.watcher.Add(dir); err != nil {
				log.Debug("transcript_dir_watch_failed",
					slog.String("dir", dir),
					slog.String("error", err.Error()))
				continue
			}
			e.watched[dir] = true
			log.Debug("transcript_dir_watched", slog.String("dir", dir))
		}
	}
}

// watchDirFor picks the directory whose changes affect this session's
// status: the mapped transcript's directory when known, otherwise the
// directory derived from the pane's cwd.
func watchDirFor(s *session.Session) string {
	if s.TranscriptPath != "" {
		return filepath.Dir(s.TranscriptPath)
	}
	if cwd := s.Pane.CwdPath(); cwd != "" {
		return transcript.Dir(cwd)
	}
	return ""
}

// logTransitions records status changes between polls, keyed by pane.
func logTransitions(prev, next []session.Session) {
	if len(prev) == 0 {
		return
	}
	old := make(map[uint32]transcript.Status, len(prev))
	for i := range prev {
		old[prev[i].Pane.PaneID] = prev[i].Status()
	}
	for i := range next {
		s := &next[i]
		if was, ok := old[s.Pane.PaneID]; ok && was != s.Status() {
			log.Info("status_transition",
				slog.Uint64("pane", uint64(s.Pane.PaneID)),
				slog.String("from", was.String()),
				slog.String("to", s.Status().String()))
		}
	}
}
