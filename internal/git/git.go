// Package git answers read-only questions about a session's working
// directory: whether it is a repository and which branch is checked out.
// Everything shells out to the git CLI; a missing binary just means no
// branch information.
package git

import (
	"fmt"
	"os/exec"
	"strings"
)

// IsRepo checks if the given directory is inside a git repository
func IsRepo(dir string) bool {
	cmd := exec.Command("git", "-C", dir, "rev-parse", "--git-dir")
	return cmd.Run() == nil
}

// RepoRoot returns the root directory of the git repository containing dir
func RepoRoot(dir string) (string, error) {
	cmd := exec.Command("git", "-C", dir, "rev-parse", "--show-toplevel")
	output, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("not a git repository: %w", err)
	}
	return strings.TrimSpace(string(output)), nil
}

// CurrentBranch returns the checked-out branch for the repository at dir.
// Detached HEAD yields "HEAD".
func CurrentBranch(dir string) (string, error) {
	cmd := exec.Command("git", "-C", dir, "rev-parse", "--abbrev-ref", "HEAD")
	output, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("failed to get current branch: %w", err)
	}
	return strings.TrimSpace(string(output)), nil
}

// Branch is CurrentBranch for display purposes: "" on any failure.
func Branch(dir string) string {
	branch, err := CurrentBranch(dir)
	if err != nil {
		return ""
	}
	return branch
}
