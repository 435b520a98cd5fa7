package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/dsakurai/agentpane/internal/pane"
	"github.com/dsakurai/agentpane/internal/session"
)

// sessionJSON is the scripting-friendly shape of one session.
type sessionJSON struct {
	PaneID     uint32    `json:"pane_id"`
	Status     string    `json:"status"`
	Tools      []string  `json:"tools,omitempty"`
	Path       string    `json:"path,omitempty"`
	Branch     string    `json:"branch,omitempty"`
	SessionID  string    `json:"session_id,omitempty"`
	LastPrompt string    `json:"last_prompt,omitempty"`
	LastOutput string    `json:"last_output,omitempty"`
	UpdatedAt  time.Time `json:"updated_at,omitzero"`
	Warning    string    `json:"warning,omitempty"`
	Reason     string    `json:"reason"`
}

func toJSON(sessions []session.Session) []sessionJSON {
	out := make([]sessionJSON, len(sessions))
	for i := range sessions {
		s := &sessions[i]
		out[i] = sessionJSON{
			PaneID:     s.Pane.PaneID,
			Status:     s.Status().String(),
			Tools:      s.Classification.Tools,
			Path:       s.Pane.CwdPath(),
			Branch:     s.GitBranch,
			SessionID:  s.SessionID,
			LastPrompt: s.LastPrompt,
			LastOutput: s.LastOutput,
			UpdatedAt:  s.UpdatedAt,
			Warning:    s.Warning,
			Reason:     s.Reason.String(),
		}
	}
	return out
}

func handleList(args []string) {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	jsonOutput := fs.Bool("json", false, "Output as JSON")
	filter := fs.String("filter", "", "Fuzzy-filter sessions by path, branch or title")
	workspace := fs.String("workspace", "", "Workspace to list (default: current, \"all\" for every workspace)")

	fs.Usage = func() {
		fmt.Println("Usage: agentpane list [options]")
		fmt.Println()
		fmt.Println("List detected assistant sessions and their status.")
		fmt.Println()
		fmt.Println("Options:")
		fs.PrintDefaults()
		fmt.Println()
		fmt.Println("Examples:")
		fmt.Println("  agentpane list                     # Sessions in the current workspace")
		fmt.Println("  agentpane list --workspace all     # Every workspace")
		fmt.Println("  agentpane list --filter api        # Fuzzy match on path/branch/title")
		fmt.Println("  agentpane list --json              # For scripting")
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	cfg := loadConfig()
	initLogging(cfg, false)

	panes := pane.NewWeztermSource()
	assembler := newAssembler(cfg, resolveWorkspace(*workspace, panes), true)

	sessions, err := assembler.Assemble()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	sessions = filterSessions(sessions, *filter)

	if *jsonOutput {
		output, err := json.MarshalIndent(toJSON(sessions), "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to format JSON output: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(string(output))
		return
	}

	if len(sessions) == 0 {
		fmt.Println("No assistant sessions found.")
		return
	}
	renderTable(sessions)
}
