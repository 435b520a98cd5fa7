// Package procscan captures the OS process list and indexes it into a
// queryable tree. The tree is built once per poll and shared read-only by
// every correlation query in that poll; pids carry no identity across polls.
package procscan

import (
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// Record holds one process as reported by ps.
type Record struct {
	PID     uint32
	PPID    uint32
	TTY     string // normalized, "" when the process has no controlling TTY
	Command string
	Args    string
}

// Tree indexes process records by pid and answers ancestor queries.
type Tree struct {
	procs map[uint32]Record
}

// BuildTree indexes a process list.
func BuildTree(records []Record) *Tree {
	procs := make(map[uint32]Record, len(records))
	for _, r := range records {
		procs[r.PID] = r
	}
	return &Tree{procs: procs}
}

// Get returns the record for a pid.
func (t *Tree) Get(pid uint32) (Record, bool) {
	r, ok := t.procs[pid]
	return r, ok
}

// Len returns the number of indexed processes.
func (t *Tree) Len() int {
	return len(t.procs)
}

// All iterates every record. The order is unspecified.
func (t *Tree) All(fn func(Record) bool) {
	for _, r := range t.procs {
		if !fn(r) {
			return
		}
	}
}

// HasAncestor reports whether the process or any of its ancestors matches
// target (case-insensitive substring of the command name or argument string).
// The walk terminates on a missing parent, the tree root, or a pid cycle.
func (t *Tree) HasAncestor(pid uint32, target string) bool {
	target = strings.ToLower(target)
	visited := make(map[uint32]bool)

	for cur := pid; !visited[cur]; {
		visited[cur] = true

		proc, ok := t.procs[cur]
		if !ok {
			return false
		}
		if strings.Contains(strings.ToLower(proc.Command), target) {
			return true
		}
		if proc.Args != "" && strings.Contains(strings.ToLower(proc.Args), target) {
			return true
		}
		if proc.PPID == 0 {
			return false
		}
		cur = proc.PPID
	}
	return false
}

// NormalizeTTY strips the /dev/ prefix from a ps TTY column value. "?" and
// "" mean no controlling TTY and normalize to "".
func NormalizeTTY(tty string) string {
	tty = strings.TrimSpace(tty)
	if tty == "?" || tty == "??" || tty == "-" {
		return ""
	}
	return strings.TrimPrefix(tty, "/dev/")
}

// Source produces process snapshots.
type Source interface {
	ListProcesses() ([]Record, error)
}

// BuildTreeFrom lists processes from src and indexes them. Listing failure
// is a hard error: the caller must abort the whole poll rather than treat an
// empty tree as "no sessions".
func BuildTreeFrom(src Source) (*Tree, error) {
	records, err := src.ListProcesses()
	if err != nil {
		return nil, err
	}
	return BuildTree(records), nil
}

// PSSource lists processes via the ps command, the common denominator of
// macOS and Linux.
type PSSource struct{}

// NewPSSource returns a process source backed by `ps -eo pid,ppid,tty,comm,args`.
func NewPSSource() *PSSource {
	return &PSSource{}
}

// ListProcesses runs ps and parses its output. Individual malformed lines
// are skipped; a failed ps invocation is an error.
func (s *PSSource) ListProcesses() ([]Record, error) {
	out, err := exec.Command("ps", "-eo", "pid,ppid,tty,comm,args").Output()
	if err != nil {
		return nil, fmt.Errorf("ps -eo: %w", err)
	}
	return parsePSOutput(string(out)), nil
}

// parsePSOutput parses `ps -eo pid,ppid,tty,comm,args` output, skipping the
// header and any line that does not yield at least pid, ppid, tty and comm.
func parsePSOutput(out string) []Record {
	var records []Record

	lines := strings.Split(out, "\n")
	for i, line := range lines {
		if i == 0 {
			continue // header
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		fields := splitColumns(line, 5)
		if len(fields) < 4 {
			continue
		}

		pid, err := strconv.ParseUint(fields[0], 10, 32)
		if err != nil {
			continue
		}
		ppid, err := strconv.ParseUint(fields[1], 10, 32)
		if err != nil {
			continue
		}

		rec := Record{
			PID:     uint32(pid),
			PPID:    uint32(ppid),
			TTY:     NormalizeTTY(fields[2]),
			Command: fields[3],
		}
		if len(fields) == 5 {
			rec.Args = fields[4]
		}
		records = append(records, rec)
	}
	return records
}

// splitColumns splits a ps line into at most n whitespace-separated columns,
// keeping the remainder of the line intact in the final column.
func splitColumns(line string, n int) []string {
	var fields []string
	rest := line
	for len(fields) < n-1 {
		rest = strings.TrimLeft(rest, " \t")
		if rest == "" {
			return fields
		}
		idx := strings.IndexAny(rest, " \t")
		if idx < 0 {
			fields = append(fields, rest)
			return fields
		}
		fields = append(fields, rest[:idx])
		rest = rest[idx:]
	}
	rest = strings.TrimLeft(rest, " \t")
	if rest != "" {
		fields = append(fields, rest)
	}
	return fields
}
