// Package pane models terminal multiplexer panes and the data source that
// lists them. Panes are immutable snapshots: the engine re-lists them every
// poll and never mutates one.
package pane

import "strings"

// Pane is a single wezterm pane as reported by `wezterm cli list`.
type Pane struct {
	PaneID      uint32  `json:"pane_id"`
	TabID       uint32  `json:"tab_id"`
	WindowID    uint32  `json:"window_id"`
	Workspace   string  `json:"workspace"`
	Title       string  `json:"title"`
	CWD         *string `json:"cwd"`
	TTYName     *string `json:"tty_name"`
	IsActive    bool    `json:"is_active"`
	TabTitle    *string `json:"tab_title"`
	WindowTitle *string `json:"window_title"`
}

// CwdPath returns the working directory with the file:// URI prefix removed.
// Returns "" when the pane reports no cwd.
func (p *Pane) CwdPath() string {
	if p.CWD == nil {
		return ""
	}
	cwd := strings.TrimPrefix(*p.CWD, "file://")
	// wezterm on some hosts emits file://hostname/path; drop the authority
	if i := strings.Index(cwd, "/"); i > 0 {
		cwd = cwd[i:]
	}
	return cwd
}

// TTYShort returns the pane's TTY name with any /dev/ prefix removed, so it
// compares equal to the TTY column of ps output. Returns "" when the pane has
// no TTY.
func (p *Pane) TTYShort() string {
	if p.TTYName == nil {
		return ""
	}
	return strings.TrimPrefix(*p.TTYName, "/dev/")
}
