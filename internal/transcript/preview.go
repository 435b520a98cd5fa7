package transcript

import (
	"encoding/json"
	"regexp"
	"strings"
)

const (
	// promptMaxChars bounds the last-user-prompt preview.
	promptMaxChars = 200
	// outputMaxChars bounds the last-assistant-text preview.
	outputMaxChars = 1000

	// promptScanLimit is how many lines back the prompt search goes. Most
	// recent user entries are tool results, so the search reaches deep.
	promptScanLimit = 200
	// outputScanLimit is how many entries back the output search goes.
	outputScanLimit = 20
)

// systemReminderRe matches system-reminder tags injected into user messages.
var systemReminderRe = regexp.MustCompile(`(?s)<system-reminder>.*?</system-reminder>`)

// stripSystemReminders removes injected system-reminder tags and their
// content from a prompt.
func stripSystemReminders(text string) string {
	return strings.TrimSpace(systemReminderRe.ReplaceAllString(text, ""))
}

// truncate bounds text to max runes, appending an ellipsis when cut.
func truncate(text string, max int) string {
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max]) + "..."
}

// LastUserPrompt returns the most recent real user prompt, at most
// promptMaxChars runes. Meta entries, tool results and reminder-only
// messages are skipped. Returns "" when none is found.
func (s *Snapshot) LastUserPrompt() string {
	scanned := 0
	for i := len(s.lines) - 1; i >= 0 && scanned < promptScanLimit; i-- {
		scanned++

		var e Entry
		if err := json.Unmarshal([]byte(s.lines[i]), &e); err != nil {
			continue
		}
		if e.Type != TypeUser || e.IsMeta || e.Message == nil {
			continue
		}

		var text string
		switch {
		case e.Message.Content.Text != "":
			text = stripSystemReminders(e.Message.Content.Text)
		case len(e.Message.Content.Blocks) > 0:
			if e.IsToolResult() {
				continue
			}
			var parts []string
			for _, b := range e.Message.Content.Blocks {
				if b.Type == "text" && b.Text != "" {
					parts = append(parts, b.Text)
				}
			}
			text = stripSystemReminders(strings.Join(parts, "\n"))
		}

		if text != "" {
			return truncate(text, promptMaxChars)
		}
	}
	return ""
}

// LastAssistantText returns the most recent assistant text output, at most
// outputMaxChars runes. Tool-only assistant entries are skipped. Returns ""
// when none is found.
func (s *Snapshot) LastAssistantText() string {
	entries := s.LastEntries(outputScanLimit)
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		if e.Type != TypeAssistant || e.Message == nil {
			continue
		}

		var parts []string
		for _, b := range e.Message.Content.Blocks {
			if b.Type == "text" && b.Text != "" {
				parts = append(parts, b.Text)
			}
		}
		if len(parts) > 0 {
			return truncate(strings.Join(parts, "\n"), outputMaxChars)
		}
	}
	return ""
}
