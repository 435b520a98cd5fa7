package transcript

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"
)

// mustEntry parses a transcript line like the reader would.
func mustEntry(t *testing.T, line string) Entry {
	t.Helper()
	var e Entry
	if err := json.Unmarshal([]byte(line), &e); err != nil {
		t.Fatalf("parse entry %s: %v", line, err)
	}
	return e
}

func entries(t *testing.T, lines ...string) []Entry {
	t.Helper()
	out := make([]Entry, 0, len(lines))
	for _, l := range lines {
		out = append(out, mustEntry(t, l))
	}
	return out
}

// fixedNow keeps the time-based rules deterministic.
var fixedNow = time.Date(2026, 1, 23, 16, 30, 0, 0, time.UTC)

func ts(ago time.Duration) string {
	return fixedNow.Add(-ago).Format(time.RFC3339)
}

func classifyAt(t *testing.T, lines ...string) Classification {
	t.Helper()
	return Classify(entries(t, lines...), Options{Now: fixedNow})
}

func TestClassify_EmptyWindow(t *testing.T) {
	got := Classify(nil, Options{Now: fixedNow})
	if got.Status != StatusUnknown {
		t.Errorf("empty window = %v, want Unknown", got.Status)
	}
}

func TestClassify_Progress(t *testing.T) {
	// A bare progress entry always wins, regardless of what precedes it.
	got := classifyAt(t,
		`{"type":"assistant","message":{"stop_reason":"end_turn","content":[{"type":"text","text":"done"}]}}`,
		`{"type":"progress","timestamp":"`+ts(time.Second)+`"}`,
	)
	if got.Status != StatusProcessing {
		t.Errorf("progress = %v, want Processing", got.Status)
	}
}

func TestClassify_HookProgressIsTransparent(t *testing.T) {
	got := classifyAt(t,
		`{"type":"assistant","message":{"stop_reason":"end_turn","content":[{"type":"text","text":"done"}]}}`,
		`{"type":"progress","data":{"type":"hook_progress"}}`,
	)
	if got.Status != StatusIdle {
		t.Errorf("hook progress after end_turn = %v, want Idle", got.Status)
	}
}

func TestClassify_TurnCompleteSubtypes(t *testing.T) {
	for _, subtype := range []string{"stop_hook_summary", "turn_duration"} {
		got := classifyAt(t, fmt.Sprintf(`{"type":"system","subtype":%q}`, subtype))
		if got.Status != StatusIdle {
			t.Errorf("subtype %s = %v, want Idle", subtype, got.Status)
		}
	}
}

func TestClassify_AssistantEndTurn(t *testing.T) {
	got := classifyAt(t,
		`{"type":"assistant","message":{"stop_reason":"end_turn","content":[{"type":"text","text":"All set."}]}}`,
	)
	if got.Status != StatusIdle {
		t.Errorf("end_turn = %v, want Idle", got.Status)
	}
}

func TestClassify_ToolUseWithinTimeout(t *testing.T) {
	got := classifyAt(t,
		`{"type":"assistant","timestamp":"`+ts(3*time.Second)+`","message":{"stop_reason":"tool_use","content":[{"type":"tool_use","name":"Bash"}]}}`,
	)
	if got.Status != StatusProcessing {
		t.Errorf("recent tool_use = %v, want Processing", got.Status)
	}
}

func TestClassify_ToolUsePastTimeout(t *testing.T) {
	got := classifyAt(t,
		`{"type":"assistant","timestamp":"`+ts(30*time.Second)+`","message":{"stop_reason":"tool_use","content":[{"type":"tool_use","name":"Bash"},{"type":"tool_use","name":"Edit"}]}}`,
	)
	if got.Status != StatusWaiting {
		t.Fatalf("stale tool_use = %v, want Waiting", got.Status)
	}
	if len(got.Tools) != 2 || got.Tools[0] != "Bash" || got.Tools[1] != "Edit" {
		t.Errorf("Tools = %v, want [Bash Edit] in content order", got.Tools)
	}
}

func TestClassify_ToolUseNullStopReason(t *testing.T) {
	// stop_reason stays null while the assistant waits for approval; the
	// tool_use content block alone must trigger the waiting rule.
	got := classifyAt(t,
		`{"type":"assistant","timestamp":"`+ts(time.Minute)+`","message":{"stop_reason":null,"content":[{"type":"tool_use","name":"AskUserQuestion"}]}}`,
	)
	if got.Status != StatusWaiting {
		t.Fatalf("approval wait = %v, want Waiting", got.Status)
	}
	if len(got.Tools) != 1 || got.Tools[0] != "AskUserQuestion" {
		t.Errorf("Tools = %v, want [AskUserQuestion]", got.Tools)
	}
}

func TestClassify_ToolUseWithoutTimestamp(t *testing.T) {
	// No timestamp: the time branch is skipped, never an error.
	got := classifyAt(t,
		`{"type":"assistant","message":{"stop_reason":"tool_use","content":[{"type":"tool_use","name":"Bash"}]}}`,
	)
	if got.Status != StatusProcessing {
		t.Errorf("tool_use without timestamp = %v, want Processing", got.Status)
	}
}

func TestClassify_ToolUseBadTimestamp(t *testing.T) {
	got := classifyAt(t,
		`{"type":"assistant","timestamp":"yesterday-ish","message":{"stop_reason":"tool_use","content":[{"type":"tool_use","name":"Bash"}]}}`,
	)
	if got.Status != StatusProcessing {
		t.Errorf("tool_use with bad timestamp = %v, want Processing", got.Status)
	}
}

func TestClassify_AssistantTextOnly(t *testing.T) {
	got := classifyAt(t,
		`{"type":"assistant","message":{"stop_reason":null,"content":[{"type":"text","text":"thinking about it"}]}}`,
	)
	if got.Status != StatusIdle {
		t.Errorf("assistant without tools = %v, want Idle", got.Status)
	}
}

func TestClassify_UserInterrupt(t *testing.T) {
	got := classifyAt(t,
		`{"type":"user","message":{"content":"[Request interrupted by user]"}}`,
	)
	if got.Status != StatusIdle {
		t.Errorf("interrupt = %v, want Idle", got.Status)
	}
}

func TestClassify_ToolResultAfterInterrupt(t *testing.T) {
	got := classifyAt(t,
		`{"type":"user","message":{"content":"[Request interrupted by user for tool use]"}}`,
		`{"type":"user","message":{"content":[{"type":"tool_result","text":"aborted"}]}}`,
	)
	if got.Status != StatusIdle {
		t.Errorf("tool_result after interrupt = %v, want Idle", got.Status)
	}
}

func TestClassify_ToolResultWithoutInterrupt(t *testing.T) {
	got := classifyAt(t,
		`{"type":"assistant","timestamp":"`+ts(5*time.Second)+`","message":{"stop_reason":"tool_use","content":[{"type":"tool_use","name":"Bash"}]}}`,
		`{"type":"user","message":{"content":[{"type":"tool_result","text":"exit 0"}]}}`,
	)
	if got.Status != StatusProcessing {
		t.Errorf("tool_result = %v, want Processing", got.Status)
	}
}

func TestClassify_InterruptBeyondLookback(t *testing.T) {
	// The interrupt is four entries before the tool_result: out of range.
	got := classifyAt(t,
		`{"type":"user","message":{"content":"[Request interrupted by user]"}}`,
		`{"type":"user","message":{"content":[{"type":"tool_result","text":"a"}]}}`,
		`{"type":"user","message":{"content":[{"type":"tool_result","text":"b"}]}}`,
		`{"type":"user","message":{"content":[{"type":"tool_result","text":"c"}]}}`,
		`{"type":"user","message":{"content":[{"type":"tool_result","text":"d"}]}}`,
	)
	if got.Status != StatusProcessing {
		t.Errorf("distant interrupt = %v, want Processing", got.Status)
	}
}

func TestClassify_UserPrompt(t *testing.T) {
	got := classifyAt(t,
		`{"type":"user","message":{"content":"please fix the tests"}}`,
	)
	if got.Status != StatusProcessing {
		t.Errorf("user prompt = %v, want Processing", got.Status)
	}
}

func TestClassify_InternalOnlyWindowIsReady(t *testing.T) {
	got := classifyAt(t,
		`{"type":"file-history-snapshot"}`,
		`{"type":"queue-operation"}`,
	)
	if got.Status != StatusReady {
		t.Errorf("internal-only window = %v, want Ready", got.Status)
	}
}

func TestClassify_InternalTailIsTransparent(t *testing.T) {
	// The trailing snapshot and queue entries are skipped; the stale
	// tool_use behind them decides.
	got := classifyAt(t,
		`{"type":"assistant","timestamp":"`+ts(time.Minute)+`","message":{"stop_reason":"tool_use","content":[{"type":"tool_use","name":"Write"}]}}`,
		`{"type":"file-history-snapshot"}`,
		`{"type":"queue-operation"}`,
	)
	if got.Status != StatusWaiting {
		t.Fatalf("stale tool_use behind internal tail = %v, want Waiting", got.Status)
	}
	if len(got.Tools) != 1 || got.Tools[0] != "Write" {
		t.Errorf("Tools = %v, want [Write]", got.Tools)
	}
}

func TestClassify_SystemTailAfterEndTurn(t *testing.T) {
	got := classifyAt(t,
		`{"type":"assistant","message":{"stop_reason":"end_turn","content":[{"type":"text","text":"done"}]}}`,
		`{"type":"system","subtype":"hook_event"}`,
	)
	if got.Status != StatusIdle {
		t.Errorf("system tail after end_turn = %v, want Idle", got.Status)
	}
}

func TestClassify_AssistantEmptyContent(t *testing.T) {
	// No tool blocks at all still counts as a completed assistant turn.
	got := classifyAt(t,
		`{"type":"user","message":{"content":"go"}}`,
		`{"type":"assistant","message":{"stop_reason":null,"content":[]}}`,
	)
	if got.Status != StatusIdle {
		t.Errorf("assistant with empty content = %v, want Idle", got.Status)
	}
}

func TestClassify_UnknownEntryType(t *testing.T) {
	got := classifyAt(t, `{"type":"summary"}`)
	if got.Status != StatusUnknown {
		t.Errorf("lone unknown type = %v, want Unknown", got.Status)
	}
}

func TestClassify_CustomTimeout(t *testing.T) {
	window := entries(t,
		`{"type":"assistant","timestamp":"`+ts(20*time.Second)+`","message":{"stop_reason":"tool_use","content":[{"type":"tool_use","name":"Bash"}]}}`,
	)

	got := Classify(window, Options{Now: fixedNow, WaitingTimeout: time.Minute})
	if got.Status != StatusProcessing {
		t.Errorf("within custom timeout = %v, want Processing", got.Status)
	}

	got = Classify(window, Options{Now: fixedNow, WaitingTimeout: 5 * time.Second})
	if got.Status != StatusWaiting {
		t.Errorf("past custom timeout = %v, want Waiting", got.Status)
	}
}

func TestClassify_Deterministic(t *testing.T) {
	window := entries(t,
		`{"type":"user","message":{"content":"hello"}}`,
		`{"type":"assistant","timestamp":"`+ts(time.Minute)+`","message":{"stop_reason":"tool_use","content":[{"type":"tool_use","name":"Bash"}]}}`,
	)
	first := Classify(window, Options{Now: fixedNow})
	for i := 0; i < 10; i++ {
		if got := Classify(window, Options{Now: fixedNow}); got.Status != first.Status {
			t.Fatalf("classification not deterministic: %v vs %v", got.Status, first.Status)
		}
	}
}

func TestStatus_StringAndIcon(t *testing.T) {
	tests := []struct {
		status Status
		str    string
		icon   string
	}{
		{StatusReady, "Ready", "◇"},
		{StatusProcessing, "Processing", "●"},
		{StatusIdle, "Idle", "○"},
		{StatusWaiting, "Waiting", "◐"},
		{StatusUnknown, "Unknown", "?"},
	}
	for _, tt := range tests {
		if got := tt.status.String(); got != tt.str {
			t.Errorf("String() = %q, want %q", got, tt.str)
		}
		if got := tt.status.Icon(); got != tt.icon {
			t.Errorf("Icon() = %q, want %q", got, tt.icon)
		}
	}
}
