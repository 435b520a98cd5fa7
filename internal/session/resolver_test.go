package session

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dsakurai/agentpane/internal/mapping"
	"github.com/dsakurai/agentpane/internal/pane"
	"github.com/dsakurai/agentpane/internal/transcript"
)

func strptr(s string) *string { return &s }

func testPane(tty, cwd string) *pane.Pane {
	p := &pane.Pane{PaneID: 1}
	if tty != "" {
		p.TTYName = strptr(tty)
	}
	if cwd != "" {
		p.CWD = strptr("file://" + cwd)
	}
	return p
}

func writeTranscriptFile(t *testing.T, path string, lines ...string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	var data []byte
	for _, l := range lines {
		data = append(data, l...)
		data = append(data, '\n')
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("write transcript: %v", err)
	}
}

func writeMapping(t *testing.T, store *mapping.Store, tty string, m mapping.Mapping) {
	t.Helper()
	if err := os.MkdirAll(store.Dir(), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	data, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("marshal mapping: %v", err)
	}
	if err := os.WriteFile(store.FilePath(tty), data, 0644); err != nil {
		t.Fatalf("write mapping: %v", err)
	}
}

const idleLine = `{"type":"assistant","message":{"stop_reason":"end_turn","content":[{"type":"text","text":"done"}]}}`

func TestResolve_ValidMapping(t *testing.T) {
	dir := t.TempDir()
	transcriptPath := filepath.Join(dir, "t.jsonl")
	writeTranscriptFile(t, transcriptPath,
		`{"type":"user","message":{"content":"hello"}}`,
		idleLine,
	)

	store := mapping.NewStore(filepath.Join(dir, "sessions"))
	writeMapping(t, store, "ttys003", mapping.Mapping{
		SessionID:      "abc-123",
		TranscriptPath: transcriptPath,
		CWD:            "/work/repo",
		TTY:            "/dev/ttys003",
		UpdatedAt:      time.Now(),
	})

	info := NewResolver(store, transcript.Options{}).Resolve(testPane("/dev/ttys003", "/work/repo"))

	if info.Status() != transcript.StatusIdle {
		t.Errorf("Status = %v, want Idle", info.Status())
	}
	if info.SessionID != "abc-123" {
		t.Errorf("SessionID = %q", info.SessionID)
	}
	if info.TranscriptPath != transcriptPath {
		t.Errorf("TranscriptPath = %q", info.TranscriptPath)
	}
	if info.LastPrompt != "hello" || info.LastOutput != "done" {
		t.Errorf("previews = %q / %q", info.LastPrompt, info.LastOutput)
	}
	if info.UpdatedAt.IsZero() {
		t.Error("UpdatedAt not set from transcript mtime")
	}
	if info.Warning != "" {
		t.Errorf("unexpected warning %q", info.Warning)
	}
}

func TestResolve_ValidMappingTranscriptMissing(t *testing.T) {
	dir := t.TempDir()
	store := mapping.NewStore(filepath.Join(dir, "sessions"))
	writeMapping(t, store, "ttys003", mapping.Mapping{
		SessionID:      "abc-123",
		TranscriptPath: filepath.Join(dir, "missing.jsonl"),
		UpdatedAt:      time.Now(),
	})

	info := NewResolver(store, transcript.Options{}).Resolve(testPane("/dev/ttys003", ""))

	if info.Status() != transcript.StatusReady {
		t.Errorf("Status = %v, want Ready", info.Status())
	}
	if info.SessionID != "abc-123" {
		t.Errorf("SessionID = %q", info.SessionID)
	}
}

func TestResolve_StaleMapping(t *testing.T) {
	dir := t.TempDir()
	transcriptPath := filepath.Join(dir, "t.jsonl")
	writeTranscriptFile(t, transcriptPath,
		`{"type":"user","message":{"content":"secret prompt"}}`,
		idleLine,
	)

	store := mapping.NewStore(filepath.Join(dir, "sessions"))
	writeMapping(t, store, "ttys003", mapping.Mapping{
		SessionID:      "old-session",
		TranscriptPath: transcriptPath,
		UpdatedAt:      time.Now().Add(-10 * time.Minute),
	})

	info := NewResolver(store, transcript.Options{}).Resolve(testPane("/dev/ttys003", "/work/repo"))

	if info.Status() != transcript.StatusIdle {
		t.Errorf("Status = %v, want Idle from the stale mapping's transcript", info.Status())
	}
	if info.Warning != StaleMappingWarning {
		t.Errorf("Warning = %q", info.Warning)
	}
	if info.SessionID != "old-session" {
		t.Errorf("SessionID = %q", info.SessionID)
	}
	// A stale identity must not leak previews
	if info.LastPrompt != "" || info.LastOutput != "" {
		t.Errorf("stale mapping carried previews: %q / %q", info.LastPrompt, info.LastOutput)
	}
}

func TestResolve_NoMappingFallsBackToCwd(t *testing.T) {
	configDir := t.TempDir()
	t.Setenv("CLAUDE_CONFIG_DIR", configDir)

	cwd := "/work/repo"
	writeTranscriptFile(t,
		filepath.Join(configDir, "projects", transcript.EncodeCwd(cwd),
			"11111111-1111-4111-8111-111111111111.jsonl"),
		`{"type":"user","message":{"content":"hi"}}`,
		idleLine,
	)

	store := mapping.NewStore(filepath.Join(configDir, "sessions"))
	info := NewResolver(store, transcript.Options{}).Resolve(testPane("/dev/ttys003", cwd))

	if info.Status() != transcript.StatusIdle {
		t.Errorf("Status = %v, want Idle", info.Status())
	}
	if info.SessionID != "" {
		t.Errorf("fallback path invented a session id: %q", info.SessionID)
	}
	if info.TranscriptPath != "" {
		t.Errorf("fallback path recorded a transcript guess: %q", info.TranscriptPath)
	}
	if info.LastPrompt != "hi" {
		t.Errorf("LastPrompt = %q", info.LastPrompt)
	}
}

func TestResolve_NoMappingNoTranscript(t *testing.T) {
	t.Setenv("CLAUDE_CONFIG_DIR", t.TempDir())

	store := mapping.NewStore(filepath.Join(t.TempDir(), "sessions"))
	info := NewResolver(store, transcript.Options{}).Resolve(testPane("/dev/ttys003", "/work/fresh"))

	if info.Status() != transcript.StatusReady {
		t.Errorf("Status = %v, want Ready for a session not yet started", info.Status())
	}
}

func TestResolve_NoCwd(t *testing.T) {
	t.Setenv("CLAUDE_CONFIG_DIR", t.TempDir())

	store := mapping.NewStore(filepath.Join(t.TempDir(), "sessions"))
	info := NewResolver(store, transcript.Options{}).Resolve(&pane.Pane{PaneID: 7})

	if info.Status() != transcript.StatusUnknown {
		t.Errorf("Status = %v, want Unknown", info.Status())
	}
}
