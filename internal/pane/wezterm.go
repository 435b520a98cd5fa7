package pane

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strconv"
)

// Source lists the panes of the host multiplexer.
type Source interface {
	ListPanes() ([]Pane, error)
}

// WeztermSource retrieves pane information from the wezterm CLI.
type WeztermSource struct{}

// NewWeztermSource returns a pane source backed by `wezterm cli list`.
func NewWeztermSource() *WeztermSource {
	return &WeztermSource{}
}

// ListPanes runs `wezterm cli list --format json` and parses the result.
func (s *WeztermSource) ListPanes() ([]Pane, error) {
	out, err := exec.Command("wezterm", "cli", "list", "--format", "json").Output()
	if err != nil {
		return nil, fmt.Errorf("wezterm cli list: %w", err)
	}

	var panes []Pane
	if err := json.Unmarshal(out, &panes); err != nil {
		return nil, fmt.Errorf("parse wezterm cli list output: %w", err)
	}
	return panes, nil
}

// CurrentPaneID returns the pane id of the terminal this process runs in,
// taken from the WEZTERM_PANE environment variable. Returns false when unset
// or unparseable (e.g. running outside wezterm).
func CurrentPaneID() (uint32, bool) {
	v := os.Getenv("WEZTERM_PANE")
	if v == "" {
		return 0, false
	}
	id, err := strconv.ParseUint(v, 10, 32)
	if err != nil {
		return 0, false
	}
	return uint32(id), true
}

// CurrentWorkspace resolves the workspace of the pane this process runs in.
func (s *WeztermSource) CurrentWorkspace() (string, error) {
	id, ok := CurrentPaneID()
	if !ok {
		return "", fmt.Errorf("WEZTERM_PANE not set")
	}

	panes, err := s.ListPanes()
	if err != nil {
		return "", err
	}
	for _, p := range panes {
		if p.PaneID == id {
			return p.Workspace, nil
		}
	}
	return "", fmt.Errorf("current pane %d not found in pane list", id)
}
