package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dsakurai/agentpane/internal/engine"
	"github.com/dsakurai/agentpane/internal/logging"
	"github.com/dsakurai/agentpane/internal/mapping"
	"github.com/dsakurai/agentpane/internal/pane"
	"github.com/dsakurai/agentpane/internal/session"
)

func handleWatch(args []string) {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	workspace := fs.String("workspace", "", "Workspace to watch (default: current, \"all\" for every workspace)")
	interval := fs.Duration("interval", 0, "Poll interval (default: from config, 3s)")
	debug := fs.Bool("debug", false, "Enable debug logging")

	fs.Usage = func() {
		fmt.Println("Usage: agentpane watch [options]")
		fmt.Println()
		fmt.Println("Continuously re-render the session list on every poll or file change.")
		fmt.Println("Stops on Ctrl+C.")
		fmt.Println()
		fmt.Println("Options:")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	cfg := loadConfig()
	initLogging(cfg, *debug)
	defer logging.Shutdown()

	pollInterval := cfg.PollInterval()
	if *interval > 0 {
		pollInterval = *interval
	}

	panes := pane.NewWeztermSource()
	assembler := newAssembler(cfg, resolveWorkspace(*workspace, panes), true)
	store := mapping.NewStore(cfg.SessionsDir())

	eng := engine.New(assembler, store, pollInterval, func(sessions []session.Session) {
		// Clear and redraw; watch owns the whole screen while it runs
		fmt.Print("\033[2J\033[H")
		fmt.Println(dimStyle.Render(time.Now().Format("15:04:05")))
		if len(sessions) == 0 {
			fmt.Println("No assistant sessions found.")
			return
		}
		renderTable(sessions)
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := eng.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
