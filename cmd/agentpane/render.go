package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/sahilm/fuzzy"

	"github.com/dsakurai/agentpane/internal/session"
	"github.com/dsakurai/agentpane/internal/transcript"
)

// Table column widths for list command output
const (
	tableColPane   = 6
	tableColStatus = 12
	tableColBranch = 18
	tableColPath   = 36
)

var (
	readyStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("111")) // blue
	processingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214")) // orange
	idleStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("114")) // green
	waitingStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("204")).Bold(true)
	unknownStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245")) // grey
	warningStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("228")).Italic(true)
	dimStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
)

func statusStyle(s transcript.Status) lipgloss.Style {
	switch s {
	case transcript.StatusReady:
		return readyStyle
	case transcript.StatusProcessing:
		return processingStyle
	case transcript.StatusIdle:
		return idleStyle
	case transcript.StatusWaiting:
		return waitingStyle
	}
	return unknownStyle
}

// renderStatus renders "icon Name" in the status color, including the
// waiting session's tool names.
func renderStatus(c transcript.Classification) string {
	text := c.Status.Icon() + " " + c.Status.String()
	if c.Status == transcript.StatusWaiting && len(c.Tools) > 0 {
		text += " (" + strings.Join(c.Tools, ", ") + ")"
	}
	return statusStyle(c.Status).Render(text)
}

// fit truncates or pads text to the given display width. Truncation is
// width-aware so CJK titles and paths line up.
func fit(text string, width int) string {
	text = runewidth.Truncate(text, width, "…")
	return runewidth.FillRight(text, width)
}

// renderTable prints the session list as an aligned table.
func renderTable(sessions []session.Session) {
	header := fmt.Sprintf("%s %s %s %s %s",
		fit("PANE", tableColPane),
		fit("STATUS", tableColStatus),
		fit("BRANCH", tableColBranch),
		fit("PATH", tableColPath),
		"LAST ACTIVITY")
	fmt.Println(dimStyle.Render(header))
	fmt.Println(dimStyle.Render(strings.Repeat("-", tableColPane+tableColStatus+tableColBranch+tableColPath+17)))

	for i := range sessions {
		s := &sessions[i]

		// Status is styled after fitting: ANSI codes break width math
		statusCell := fit(s.Status().Icon()+" "+s.Status().String(), tableColStatus)
		fmt.Printf("%s %s %s %s %s\n",
			fit(fmt.Sprintf("%d", s.Pane.PaneID), tableColPane),
			statusStyle(s.Status()).Render(statusCell),
			fit(s.GitBranch, tableColBranch),
			fit(s.Pane.CwdPath(), tableColPath),
			dimStyle.Render(relativeTime(s.UpdatedAt)))

		if s.Warning != "" {
			fmt.Printf("%s %s\n", fit("", tableColPane), warningStyle.Render("⚠ "+s.Warning))
		}
	}
	fmt.Printf("\nTotal: %d sessions\n", len(sessions))
}

// renderDetail prints one session in long form.
func renderDetail(s *session.Session) {
	fmt.Printf("Pane:    %d (%s)\n", s.Pane.PaneID, s.Reason.String())
	fmt.Printf("Status:  %s\n", renderStatus(s.Classification))
	if s.Pane.CwdPath() != "" {
		fmt.Printf("Path:    %s\n", s.Pane.CwdPath())
	}
	if s.GitBranch != "" {
		fmt.Printf("Branch:  %s\n", s.GitBranch)
	}
	if s.SessionID != "" {
		fmt.Printf("Session: %s\n", s.SessionID)
	}
	if !s.UpdatedAt.IsZero() {
		fmt.Printf("Updated: %s (%s)\n", s.UpdatedAt.Format(time.RFC3339), relativeTime(s.UpdatedAt))
	}
	if s.Warning != "" {
		fmt.Println(warningStyle.Render("⚠ " + s.Warning))
	}
	if s.LastPrompt != "" {
		fmt.Printf("\n> %s\n", s.LastPrompt)
	}
	if s.LastOutput != "" {
		fmt.Printf("\n%s\n", dimStyle.Render(s.LastOutput))
	}
}

// relativeTime renders "42s ago" style durations, "" for the zero time.
func relativeTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds ago", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}

// filterSessions keeps sessions whose path, branch or title fuzzy-matches
// the pattern. An empty pattern keeps everything.
func filterSessions(sessions []session.Session, pattern string) []session.Session {
	if pattern == "" {
		return sessions
	}

	haystack := make([]string, len(sessions))
	for i := range sessions {
		haystack[i] = sessions[i].Pane.CwdPath() + " " + sessions[i].GitBranch + " " + sessions[i].Pane.Title
	}

	matches := fuzzy.Find(pattern, haystack)
	out := make([]session.Session, 0, len(matches))
	for _, m := range matches {
		out = append(out, sessions[m.Index])
	}
	return out
}
