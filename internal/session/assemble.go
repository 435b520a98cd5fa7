package session

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/dsakurai/agentpane/internal/detect"
	"github.com/dsakurai/agentpane/internal/git"
	"github.com/dsakurai/agentpane/internal/pane"
	"github.com/dsakurai/agentpane/internal/procscan"
)

// AmbiguousCwdMessage replaces previews when directory-based discovery
// cannot tell sessions in the same directory apart.
const AmbiguousCwdMessage = "Multiple sessions share this directory. Enable the statusLine hook to tell them apart."

// Session is one detected assistant session: the pane it runs in, why it
// was detected, and everything resolved about it.
type Session struct {
	Pane      pane.Pane
	Reason    detect.Reason
	GitBranch string
	Info
}

// Assembler produces the session list for one poll: list panes, snapshot
// the process tree once, correlate, resolve, and post-process.
type Assembler struct {
	Panes    pane.Source
	Procs    procscan.Source
	Detector *detect.Detector
	Resolver *Resolver

	// Workspace limits assembly to panes of one workspace. Empty means
	// all workspaces.
	Workspace string
}

// Assemble runs one full discovery pass. A process listing failure aborts
// the pass; individual pane failures only drop that pane.
func (a *Assembler) Assemble() ([]Session, error) {
	panes, err := a.Panes.ListPanes()
	if err != nil {
		return nil, fmt.Errorf("list panes: %w", err)
	}

	// One tree per pass, shared by every correlation query
	tree, err := procscan.BuildTreeFrom(a.Procs)
	if err != nil {
		return nil, fmt.Errorf("snapshot processes: %w", err)
	}

	var sessions []Session
	for i := range panes {
		p := &panes[i]
		if a.Workspace != "" && p.Workspace != a.Workspace {
			continue
		}

		reason := a.Detector.Detect(p, tree)
		if reason == nil {
			continue
		}

		s := Session{
			Pane:   *p,
			Reason: *reason,
			Info:   a.Resolver.Resolve(p),
		}
		if cwd := p.CwdPath(); cwd != "" {
			s.GitBranch = git.Branch(cwd)
		}
		sessions = append(sessions, s)
	}

	markAmbiguous(sessions)

	// Group by directory, stable within a directory by pane id
	sort.Slice(sessions, func(i, j int) bool {
		ci, cj := sessions[i].Pane.CwdPath(), sessions[j].Pane.CwdPath()
		if ci != cj {
			return ci < cj
		}
		return sessions[i].Pane.PaneID < sessions[j].Pane.PaneID
	})

	log.Debug("sessions_assembled", slog.Int("count", len(sessions)))
	return sessions, nil
}

// markAmbiguous clears previews on directory-resolved sessions that share
// a working directory: the fallback path cannot know which transcript
// belongs to which pane, so showing either would be a guess. Sessions
// identified by a mapping are exact and keep their previews.
func markAmbiguous(sessions []Session) {
	counts := make(map[string]int)
	for i := range sessions {
		if sessions[i].SessionID != "" {
			continue
		}
		if cwd := sessions[i].Pane.CwdPath(); cwd != "" {
			counts[cwd]++
		}
	}

	for i := range sessions {
		s := &sessions[i]
		if s.SessionID != "" {
			continue
		}
		if cwd := s.Pane.CwdPath(); cwd != "" && counts[cwd] > 1 {
			s.LastPrompt = ""
			s.LastOutput = AmbiguousCwdMessage
		}
	}
}
