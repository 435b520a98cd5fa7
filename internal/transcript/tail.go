package transcript

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

const (
	// smallFileLimit: files under this size are read whole.
	smallFileLimit = 1 << 20 // 1 MiB

	// entrySizeEstimate sizes the backward seek for large files. Entries
	// carrying tool output run large; 100 KiB per entry is a generous
	// upper bound, and undershooting only narrows the classifier window,
	// it never yields wrong entries.
	entrySizeEstimate = 100 * 1024

	// seekSlack is extra entries worth of bytes read beyond the requested
	// count when seeking backward.
	seekSlack = 10

	// maxScanTokenSize allows individual transcript lines well beyond
	// bufio's default 64 KiB limit.
	maxScanTokenSize = 4 * 1024 * 1024
)

// Snapshot is one bounded read of a transcript's tail. All extraction
// (classifier window, prompt preview, output preview) runs against the same
// snapshot so each poll reads the file once. Nothing is cached across
// snapshots; every call re-reads the file.
type Snapshot struct {
	lines []string
}

// Load reads the tail of a transcript file into a snapshot. Files under
// smallFileLimit are read whole; larger files are read from an estimated
// byte offset sized for window entries, with the possibly-truncated first
// line discarded.
func Load(path string) (*Snapshot, error) {
	return load(path, statusWindow)
}

func load(path string, count int) (*Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open transcript: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat transcript: %w", err)
	}
	size := info.Size()
	if size == 0 {
		return &Snapshot{}, nil
	}

	reader := bufio.NewReader(f)
	if size >= smallFileLimit {
		offset := size - int64(count+seekSlack)*entrySizeEstimate
		if offset > 0 {
			if _, err := f.Seek(offset, io.SeekStart); err != nil {
				return nil, fmt.Errorf("seek transcript: %w", err)
			}
			reader.Reset(f)
			// Drop the partial line the seek landed in
			if _, err := reader.ReadString('\n'); err != nil && err != io.EOF {
				return nil, fmt.Errorf("skip partial line: %w", err)
			}
		}
	}

	var lines []string
	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 64*1024), maxScanTokenSize)
	for scanner.Scan() {
		line := scanner.Text()
		if len(line) > 0 {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read transcript: %w", err)
	}
	return &Snapshot{lines: lines}, nil
}

// Empty reports whether the snapshot holds no lines.
func (s *Snapshot) Empty() bool {
	return len(s.lines) == 0
}

// LastEntries parses the last count valid entries, in chronological order.
// Invalid JSON lines are skipped: the log is append-only and may carry
// transient partial writes.
func (s *Snapshot) LastEntries(count int) []Entry {
	var entries []Entry
	for i := len(s.lines) - 1; i >= 0 && len(entries) < count; i-- {
		var e Entry
		if err := json.Unmarshal([]byte(s.lines[i]), &e); err != nil {
			continue
		}
		if e.Type == "" {
			continue
		}
		entries = append(entries, e)
	}

	// Collected backward; restore chronological order
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	return entries
}

// Tail reads the last count valid entries of a transcript file in
// chronological order.
func Tail(path string, count int) ([]Entry, error) {
	snap, err := load(path, count)
	if err != nil {
		return nil, err
	}
	return snap.LastEntries(count), nil
}
