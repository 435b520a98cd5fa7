// Package transcript reads and classifies the JSONL transcript logs that
// assistant sessions append to. A transcript lives at
// ~/.claude/projects/{encoded-cwd}/{session_id}.jsonl and grows without
// bound; everything here operates on a bounded tail of it.
package transcript

import (
	"encoding/json"
	"strings"
	"time"
)

// Entry type tags observed in transcripts.
const (
	TypeUser                = "user"
	TypeAssistant           = "assistant"
	TypeSystem              = "system"
	TypeProgress            = "progress"
	TypeFileHistorySnapshot = "file-history-snapshot"
	TypeQueueOperation      = "queue-operation"
)

// System subtypes that mark turn completion.
const (
	SubtypeStopHookSummary = "stop_hook_summary"
	SubtypeTurnDuration    = "turn_duration"
)

// interruptMarker is inserted into a user message when the user aborts a
// running turn.
const interruptMarker = "[Request interrupted by user"

// ContentBlock is one block of a message's content array.
type ContentBlock struct {
	Type string `json:"type"`
	Name string `json:"name,omitempty"`
	Text string `json:"text,omitempty"`
}

// Content is a message body: assistant messages carry a block array, user
// messages carry either a bare string or a block array.
type Content struct {
	// Text is set when the content was a bare JSON string.
	Text string
	// Blocks is set when the content was an array.
	Blocks []ContentBlock
}

// UnmarshalJSON accepts both the string and the array form.
func (c *Content) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &c.Text)
	}
	return json.Unmarshal(data, &c.Blocks)
}

// Message is the message object of a user or assistant entry.
type Message struct {
	StopReason *string `json:"stop_reason"`
	Content    Content `json:"content"`
}

// progressData distinguishes hook-progress from real progress entries.
type progressData struct {
	Type string `json:"type"`
}

// Entry is one parsed transcript line. Entries are immutable once parsed.
type Entry struct {
	Type      string        `json:"type"`
	Subtype   string        `json:"subtype,omitempty"`
	Timestamp string        `json:"timestamp,omitempty"`
	Message   *Message      `json:"message,omitempty"`
	Data      *progressData `json:"data,omitempty"`
	IsMeta    bool          `json:"isMeta,omitempty"`
}

// Time parses the entry timestamp. Returns false when absent or not RFC3339.
func (e *Entry) Time() (time.Time, bool) {
	if e.Timestamp == "" {
		return time.Time{}, false
	}
	ts, err := time.Parse(time.RFC3339, e.Timestamp)
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}

// IsToolUse reports whether this is an assistant message invoking tools,
// either via stop_reason or via tool_use content blocks. The blocks matter:
// stop_reason stays null while the assistant waits for tool approval.
func (e *Entry) IsToolUse() bool {
	if e.Type != TypeAssistant || e.Message == nil {
		return false
	}
	if e.Message.StopReason != nil && *e.Message.StopReason == "tool_use" {
		return true
	}
	for _, b := range e.Message.Content.Blocks {
		if b.Type == "tool_use" {
			return true
		}
	}
	return false
}

// IsEndTurn reports an assistant message that finished its turn.
func (e *Entry) IsEndTurn() bool {
	return e.Type == TypeAssistant &&
		e.Message != nil &&
		e.Message.StopReason != nil &&
		*e.Message.StopReason == "end_turn"
}

// IsProgress reports a progress entry of any kind.
func (e *Entry) IsProgress() bool {
	return e.Type == TypeProgress
}

// IsHookProgress reports a progress entry emitted by session hooks rather
// than by the assistant itself.
func (e *Entry) IsHookProgress() bool {
	return e.Type == TypeProgress && e.Data != nil && e.Data.Type == "hook_progress"
}

// IsTurnComplete reports a system entry that marks the end of a turn.
func (e *Entry) IsTurnComplete() bool {
	return e.Type == TypeSystem &&
		(e.Subtype == SubtypeStopHookSummary || e.Subtype == SubtypeTurnDuration)
}

// IsToolResult reports a user entry carrying a tool result back to the
// assistant.
func (e *Entry) IsToolResult() bool {
	if e.Type != TypeUser || e.Message == nil {
		return false
	}
	for _, b := range e.Message.Content.Blocks {
		if b.Type == "tool_result" {
			return true
		}
	}
	return false
}

// IsInterrupt reports a user entry recording that the user aborted the
// running turn.
func (e *Entry) IsInterrupt() bool {
	if e.Type != TypeUser || e.Message == nil {
		return false
	}
	if strings.Contains(e.Message.Content.Text, interruptMarker) {
		return true
	}
	for _, b := range e.Message.Content.Blocks {
		if b.Type == "text" && strings.Contains(b.Text, interruptMarker) {
			return true
		}
	}
	return false
}

// IsInternal reports bookkeeping entries that carry no activity signal of
// their own: non-terminal system entries, file-history snapshots, queue
// operations and hook progress. The classifier treats them as transparent.
func (e *Entry) IsInternal() bool {
	switch {
	case e.Type == TypeSystem && !e.IsTurnComplete():
		return true
	case e.Type == TypeFileHistorySnapshot, e.Type == TypeQueueOperation:
		return true
	case e.IsHookProgress():
		return true
	}
	return false
}

// ToolNames returns the invoked tool names in content order.
func (e *Entry) ToolNames() []string {
	if e.Message == nil {
		return nil
	}
	var names []string
	for _, b := range e.Message.Content.Blocks {
		if b.Type == "tool_use" && b.Name != "" {
			names = append(names, b.Name)
		}
	}
	return names
}
