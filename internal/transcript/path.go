package transcript

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// EncodeCwd converts a working directory to the directory name the host
// application uses under its projects root: every '/', '.' and '_' becomes
// a '-'.
func EncodeCwd(cwd string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '.', '_':
			return '-'
		}
		return r
	}, cwd)
}

// ProjectsRoot returns the host application's projects directory. Honors
// CLAUDE_CONFIG_DIR; defaults to ~/.claude.
func ProjectsRoot() string {
	configDir := os.Getenv("CLAUDE_CONFIG_DIR")
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return filepath.Join(os.TempDir(), ".claude", "projects")
		}
		configDir = filepath.Join(home, ".claude")
	}
	return filepath.Join(configDir, "projects")
}

// Dir returns the transcript directory for a working directory.
func Dir(cwd string) string {
	return filepath.Join(ProjectsRoot(), EncodeCwd(cwd))
}

// Latest returns the most recently modified session transcript in a
// directory, or "" when the directory is missing or holds none. Only
// UUID-named .jsonl files count; agent-*.jsonl side logs are skipped.
func Latest(dir string) string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}

	var latest string
	var latestTime time.Time
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != ".jsonl" {
			continue
		}
		if strings.HasPrefix(name, "agent-") {
			continue
		}
		if uuid.Validate(strings.TrimSuffix(name, ".jsonl")) != nil {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}
		if mod := info.ModTime(); mod.After(latestTime) {
			latestTime = mod
			latest = filepath.Join(dir, name)
		}
	}
	return latest
}
