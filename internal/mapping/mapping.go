// Package mapping reads the per-TTY session mapping files written by the
// status-line hook. A mapping ties a TTY to a session id and transcript
// path, which keeps sessions distinguishable even when several share one
// working directory. Files are written by the hook every few hundred
// milliseconds while a session is active; this package only ever reads or
// deletes them.
package mapping

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dsakurai/agentpane/internal/logging"
)

var log = logging.ForComponent(logging.CompMapping)

// StaleAfter is how long a mapping stays valid without an update. The hook
// refreshes mappings roughly every 300ms, so five minutes of silence means
// the session is gone or the hook is broken.
const StaleAfter = 5 * time.Minute

// Mapping is one session mapping record, keyed by TTY.
type Mapping struct {
	SessionID      string    `json:"session_id"`
	TranscriptPath string    `json:"transcript_path"`
	CWD            string    `json:"cwd"`
	TTY            string    `json:"tty"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// State classifies a mapping lookup result.
type State int

const (
	// Valid: mapping exists and is fresh.
	Valid State = iota
	// Stale: mapping exists but has not been updated within StaleAfter.
	Stale
	// NotFound: no mapping (or an unreadable/unparseable one) for this TTY.
	NotFound
)

// Result is a mapping lookup outcome. Mapping is set for Valid and Stale.
type Result struct {
	State   State
	Mapping *Mapping
}

// Store reads mapping files from a directory.
type Store struct {
	dir string
}

// NewStore returns a store over the given directory.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// DefaultDir returns the per-user mapping directory (~/.agentpane/sessions).
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".agentpane", "sessions")
	}
	return filepath.Join(home, ".agentpane", "sessions")
}

// Dir returns the directory this store reads from.
func (s *Store) Dir() string {
	return s.dir
}

// FilePath returns the mapping file path for a TTY. Path separators in the
// TTY name (pts/0) are replaced so the name is a valid filename.
func (s *Store) FilePath(tty string) string {
	safe := strings.ReplaceAll(strings.TrimPrefix(tty, "/dev/"), "/", "-")
	return filepath.Join(s.dir, safe+".json")
}

// Lookup reads the mapping for a TTY. Accepts both prefixed (/dev/ttys003)
// and bare (ttys003) names.
func (s *Store) Lookup(tty string) Result {
	return s.lookupAt(tty, time.Now())
}

// lookupAt is Lookup with an injectable clock for tests.
func (s *Store) lookupAt(tty string, now time.Time) Result {
	data, err := os.ReadFile(s.FilePath(tty))
	if err != nil {
		return Result{State: NotFound}
	}

	var m Mapping
	if err := json.Unmarshal(data, &m); err != nil {
		log.Debug("mapping_unparseable", slog.String("tty", tty), slog.String("error", err.Error()))
		return Result{State: NotFound}
	}

	// Strictly greater: a mapping exactly StaleAfter old is still valid.
	if now.Sub(m.UpdatedAt) > StaleAfter {
		return Result{State: Stale, Mapping: &m}
	}
	return Result{State: Valid, Mapping: &m}
}

// All returns every fresh mapping in the store. Stale and unparseable files
// are skipped.
func (s *Store) All() []Mapping {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil
	}

	now := time.Now()
	var mappings []Mapping
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.dir, entry.Name()))
		if err != nil {
			continue
		}
		var m Mapping
		if err := json.Unmarshal(data, &m); err != nil {
			continue
		}
		if now.Sub(m.UpdatedAt) > StaleAfter {
			continue
		}
		mappings = append(mappings, m)
	}
	return mappings
}

// CleanupStale deletes mapping files older than StaleAfter, plus any that no
// longer parse. Sessions closed without hook cleanup leave these behind.
// Returns the number of files removed.
func (s *Store) CleanupStale() int {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0
	}

	now := time.Now()
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		path := filepath.Join(s.dir, entry.Name())

		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var m Mapping
		if err := json.Unmarshal(data, &m); err != nil {
			if os.Remove(path) == nil {
				removed++
			}
			continue
		}
		if now.Sub(m.UpdatedAt) > StaleAfter {
			if os.Remove(path) == nil {
				removed++
			}
		}
	}
	if removed > 0 {
		log.Debug("mappings_cleaned", slog.Int("removed", removed))
	}
	return removed
}

// CleanupInactiveTTYs deletes mapping files whose TTY is not in the active
// set. Safe at startup: a TTY absent from the multiplexer's pane list
// definitely has no session. Returns the number of files removed.
func (s *Store) CleanupInactiveTTYs(activeTTYs []string) int {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0
	}

	active := make(map[string]bool, len(activeTTYs))
	for _, tty := range activeTTYs {
		safe := strings.ReplaceAll(strings.TrimPrefix(tty, "/dev/"), "/", "-")
		active[safe] = true
	}

	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		name := strings.TrimSuffix(entry.Name(), ".json")
		if active[name] {
			continue
		}
		if os.Remove(filepath.Join(s.dir, entry.Name())) == nil {
			removed++
		}
	}
	return removed
}
