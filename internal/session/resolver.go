// Package session turns detected panes into session records: it resolves
// each pane's identity through the TTY mapping store, classifies the
// transcript, and assembles the per-workspace session list.
package session

import (
	"log/slog"
	"os"
	"time"

	"github.com/dsakurai/agentpane/internal/logging"
	"github.com/dsakurai/agentpane/internal/mapping"
	"github.com/dsakurai/agentpane/internal/pane"
	"github.com/dsakurai/agentpane/internal/transcript"
)

var log = logging.ForComponent(logging.CompSession)

// StaleMappingWarning is shown when a pane's mapping file exists but has
// not been refreshed recently.
const StaleMappingWarning = "Session info stale (statusLine not updating). Try interacting with the session."

// Info is everything resolved about one pane's session.
type Info struct {
	Classification transcript.Classification
	LastPrompt     string
	LastOutput     string
	// SessionID is set only when a TTY mapping identified the session.
	SessionID string
	// TranscriptPath is set only when a mapping named the transcript.
	// Directory-based fallback never records which file it read.
	TranscriptPath string
	// UpdatedAt is the transcript file's modification time, zero when no
	// transcript was read.
	UpdatedAt time.Time
	Warning   string
}

// Status is shorthand for the classified status.
func (i Info) Status() transcript.Status {
	return i.Classification.Status
}

// Resolver resolves a pane to its session info. Resolution prefers the TTY
// mapping over directory guessing: a valid mapping yields the exact
// transcript, a stale one still yields a status but no previews, and only
// a missing mapping falls back to the working directory.
type Resolver struct {
	mappings *mapping.Store
	opts     transcript.Options
}

// NewResolver returns a resolver over the given mapping store.
func NewResolver(store *mapping.Store, opts transcript.Options) *Resolver {
	return &Resolver{mappings: store, opts: opts}
}

// Resolve determines the session info for a detected pane.
func (r *Resolver) Resolve(p *pane.Pane) Info {
	if tty := p.TTYShort(); tty != "" {
		result := r.mappings.Lookup(tty)
		switch result.State {
		case mapping.Valid:
			return r.fromValidMapping(result.Mapping)
		case mapping.Stale:
			// Do not fall back to the directory here: another session
			// with the same cwd could supply a wrong status.
			return r.fromStaleMapping(result.Mapping)
		}
	}
	return r.fromCwd(p)
}

func (r *Resolver) fromValidMapping(m *mapping.Mapping) Info {
	info := Info{
		SessionID:      m.SessionID,
		TranscriptPath: m.TranscriptPath,
	}

	if _, err := os.Stat(m.TranscriptPath); err != nil {
		// Mapping written before the first transcript entry
		info.Classification = transcript.Classification{Status: transcript.StatusReady}
		return info
	}

	ti, err := transcript.ReadInfo(m.TranscriptPath, r.opts)
	if err != nil {
		log.Debug("transcript_read_failed",
			slog.String("path", m.TranscriptPath),
			slog.String("error", err.Error()))
		info.Classification = transcript.Classification{Status: transcript.StatusUnknown}
		return info
	}

	info.Classification = ti.Classification
	info.LastPrompt = ti.LastPrompt
	info.LastOutput = ti.LastOutput
	info.UpdatedAt = fileMtime(m.TranscriptPath)
	return info
}

func (r *Resolver) fromStaleMapping(m *mapping.Mapping) Info {
	info := Info{
		SessionID:      m.SessionID,
		TranscriptPath: m.TranscriptPath,
		Warning:        StaleMappingWarning,
	}

	c, err := transcript.ReadStatus(m.TranscriptPath, r.opts)
	if err != nil {
		info.Classification = transcript.Classification{Status: transcript.StatusUnknown}
		return info
	}
	info.Classification = c
	info.UpdatedAt = fileMtime(m.TranscriptPath)
	return info
}

// fromCwd is directory-based discovery for panes without a mapping. It
// cannot tell concurrent sessions in one directory apart; the assembler
// handles that ambiguity.
func (r *Resolver) fromCwd(p *pane.Pane) Info {
	cwd := p.CwdPath()
	if cwd == "" {
		return Info{Classification: transcript.Classification{Status: transcript.StatusUnknown}}
	}

	path := transcript.Latest(transcript.Dir(cwd))
	if path == "" {
		// Process exists but no session has been started yet
		return Info{Classification: transcript.Classification{Status: transcript.StatusReady}}
	}

	ti, err := transcript.ReadInfo(path, r.opts)
	if err != nil {
		log.Debug("transcript_read_failed",
			slog.String("path", path),
			slog.String("error", err.Error()))
		return Info{Classification: transcript.Classification{Status: transcript.StatusUnknown}}
	}

	return Info{
		Classification: ti.Classification,
		LastPrompt:     ti.LastPrompt,
		LastOutput:     ti.LastOutput,
		UpdatedAt:      fileMtime(path),
	}
}

func fileMtime(path string) time.Time {
	fi, err := os.Stat(path)
	if err != nil {
		return time.Time{}
	}
	return fi.ModTime()
}
