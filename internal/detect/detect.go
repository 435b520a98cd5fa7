// Package detect decides whether an assistant process is attached to a
// multiplexer pane, correlating the pane's TTY against a process snapshot.
package detect

import (
	"strings"

	"github.com/dsakurai/agentpane/internal/pane"
	"github.com/dsakurai/agentpane/internal/procscan"
)

// DefaultProcessNames is the default allowlist of assistant process names.
var DefaultProcessNames = []string{"claude", "anthropic"}

// ReasonKind tags how a pane was matched to an assistant process.
type ReasonKind int

const (
	// DirectMatch: a process on the pane's TTY has an allowlisted command
	// name or argument string.
	DirectMatch ReasonKind = iota
	// WrapperMatch: a process on the pane's TTY has an allowlisted name
	// somewhere in its ancestor chain.
	WrapperMatch
)

// Reason describes why a pane was matched. Diagnostic only; it never affects
// classification.
type Reason struct {
	Kind ReasonKind
	// ProcessName is the matched process command for DirectMatch, or the
	// wrapper process command for WrapperMatch.
	ProcessName string
}

// String renders the reason for display.
func (r Reason) String() string {
	switch r.Kind {
	case DirectMatch:
		return "process: " + r.ProcessName
	case WrapperMatch:
		return "wrapper: " + r.ProcessName
	}
	return "unknown"
}

// Detector correlates panes with assistant processes by TTY.
type Detector struct {
	// ProcessNames is the allowlist of names matched against command names,
	// argument strings, and ancestor chains.
	ProcessNames []string

	// SelfPaneID excludes the pane the engine itself runs in. Set from
	// pane.CurrentPaneID() at startup; nil disables self-exclusion.
	SelfPaneID *uint32
}

// New returns a detector with the default allowlist.
func New() *Detector {
	return &Detector{ProcessNames: DefaultProcessNames}
}

// WithProcessNames overrides the allowlist. Empty input keeps the default.
func (d *Detector) WithProcessNames(names []string) *Detector {
	if len(names) > 0 {
		d.ProcessNames = names
	}
	return d
}

// WithSelfPane sets the engine's own pane id for self-exclusion.
func (d *Detector) WithSelfPane(id uint32) *Detector {
	d.SelfPaneID = &id
	return d
}

// Detect reports whether an assistant process is attached to the pane's TTY,
// directly or through a wrapper. Returns nil when the pane has no TTY, is
// the engine's own pane, or no process on its TTY matches. Pure query over a
// pre-built snapshot; the tree is built once per poll and shared.
func (d *Detector) Detect(p *pane.Pane, tree *procscan.Tree) *Reason {
	if d.SelfPaneID != nil && p.PaneID == *d.SelfPaneID {
		return nil
	}

	tty := p.TTYShort()
	if tty == "" {
		return nil
	}

	var reason *Reason
	tree.All(func(proc procscan.Record) bool {
		if proc.TTY == "" || proc.TTY != tty {
			return true
		}

		if d.matchesAllowlist(proc) {
			reason = &Reason{Kind: DirectMatch, ProcessName: proc.Command}
			return false
		}

		for _, name := range d.ProcessNames {
			if tree.HasAncestor(proc.PID, name) {
				reason = &Reason{Kind: WrapperMatch, ProcessName: proc.Command}
				return false
			}
		}
		return true
	})
	return reason
}

// matchesAllowlist reports whether the process command or args contains any
// allowlisted name, case-insensitively.
func (d *Detector) matchesAllowlist(proc procscan.Record) bool {
	command := strings.ToLower(proc.Command)
	args := strings.ToLower(proc.Args)

	for _, name := range d.ProcessNames {
		name = strings.ToLower(name)
		if strings.Contains(command, name) {
			return true
		}
		if args != "" && strings.Contains(args, name) {
			return true
		}
	}
	return false
}
