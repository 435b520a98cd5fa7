package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/dsakurai/agentpane/internal/config"
	"github.com/dsakurai/agentpane/internal/detect"
	"github.com/dsakurai/agentpane/internal/logging"
	"github.com/dsakurai/agentpane/internal/mapping"
	"github.com/dsakurai/agentpane/internal/pane"
	"github.com/dsakurai/agentpane/internal/procscan"
	"github.com/dsakurai/agentpane/internal/session"
)

const Version = "0.3.0"

// init sets up color profile for consistent terminal colors across environments
func init() {
	initColorProfile()
}

// initColorProfile configures lipgloss color profile based on terminal
// capabilities. Prefers TrueColor, falls back to ANSI256.
func initColorProfile() {
	// Allow user override via environment variable
	// AGENTPANE_COLOR: truecolor, 256, 16, none
	if colorEnv := os.Getenv("AGENTPANE_COLOR"); colorEnv != "" {
		switch strings.ToLower(colorEnv) {
		case "truecolor", "true", "24bit":
			lipgloss.SetColorProfile(termenv.TrueColor)
			return
		case "256", "ansi256":
			lipgloss.SetColorProfile(termenv.ANSI256)
			return
		case "16", "ansi", "basic":
			lipgloss.SetColorProfile(termenv.ANSI)
			return
		case "none", "off", "ascii":
			lipgloss.SetColorProfile(termenv.Ascii)
			return
		}
	}

	if colorTerm := os.Getenv("COLORTERM"); colorTerm == "truecolor" || colorTerm == "24bit" {
		lipgloss.SetColorProfile(termenv.TrueColor)
		return
	}

	// wezterm is the expected host and supports TrueColor
	term := os.Getenv("TERM")
	for _, t := range []string{"wezterm", "xterm-256color", "screen-256color", "tmux-256color", "alacritty", "kitty"} {
		if strings.Contains(term, t) {
			lipgloss.SetColorProfile(termenv.TrueColor)
			return
		}
	}

	lipgloss.SetColorProfile(termenv.ANSI256)
}

func main() {
	args := os.Args[1:]

	if len(args) > 0 {
		switch args[0] {
		case "version", "--version", "-v":
			fmt.Printf("agentpane v%s\n", Version)
			return
		case "help", "--help", "-h":
			printHelp()
			return
		case "list", "ls":
			handleList(args[1:])
			return
		case "status":
			handleStatus(args[1:])
			return
		case "watch":
			handleWatch(args[1:])
			return
		case "cleanup":
			handleCleanup(args[1:])
			return
		}
	}

	printHelp()
	os.Exit(1)
}

func printHelp() {
	fmt.Println("agentpane - discover AI assistant sessions in wezterm panes")
	fmt.Println()
	fmt.Println("Usage: agentpane <command> [options]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  list      List detected sessions with status")
	fmt.Println("  status    Show the status of one pane's session")
	fmt.Println("  watch     Continuously print session status changes")
	fmt.Println("  cleanup   Remove stale session mapping files")
	fmt.Println("  version   Print version")
	fmt.Println()
	fmt.Println("Run 'agentpane <command> --help' for command options.")
}

// loadConfig reads the config file. A parse error is reported once but
// never fatal: defaults keep the command usable.
func loadConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
	}
	return cfg
}

// initLogging wires log output per config. Commands call this before any
// component starts logging.
func initLogging(cfg *config.Config, debug bool) {
	logDir := cfg.Logs.Dir
	if debug && logDir == "" {
		logDir = config.Dir()
	}
	logging.Init(logging.Config{
		LogDir:     logDir,
		Level:      cfg.Logs.Level,
		Format:     cfg.Logs.Format,
		MaxSizeMB:  cfg.Logs.MaxSizeMB,
		MaxBackups: cfg.Logs.MaxBackups,
		MaxAgeDays: cfg.Logs.MaxAgeDays,
		Compress:   cfg.Logs.Compress,
		Debug:      debug,
	})
}

// newAssembler builds the discovery pipeline shared by list, status and
// watch: wezterm panes, a ps snapshot, the configured detector and the
// mapping-backed resolver. With excludeSelf the current pane is skipped so
// agentpane never reports itself.
func newAssembler(cfg *config.Config, workspace string, excludeSelf bool) *session.Assembler {
	detector := detect.New().WithProcessNames(cfg.ProcessNames)
	if excludeSelf {
		if id, ok := pane.CurrentPaneID(); ok {
			detector = detector.WithSelfPane(id)
		}
	}

	return &session.Assembler{
		Panes:     pane.NewWeztermSource(),
		Procs:     procscan.NewPSSource(),
		Detector:  detector,
		Resolver:  session.NewResolver(mapping.NewStore(cfg.SessionsDir()), cfg.TranscriptOptions()),
		Workspace: workspace,
	}
}

// resolveWorkspace maps the --workspace flag to an assembler filter:
// explicit name wins, "all" disables filtering, default is the current
// pane's workspace when detectable.
func resolveWorkspace(flagValue string, panes *pane.WeztermSource) string {
	switch flagValue {
	case "all":
		return ""
	case "":
		ws, err := panes.CurrentWorkspace()
		if err != nil {
			return ""
		}
		return ws
	default:
		return flagValue
	}
}
