package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/dsakurai/agentpane/internal/mapping"
	"github.com/dsakurai/agentpane/internal/pane"
)

func handleCleanup(args []string) {
	fs := flag.NewFlagSet("cleanup", flag.ExitOnError)
	inactive := fs.Bool("inactive", false, "Also remove mappings for TTYs with no live pane")

	fs.Usage = func() {
		fmt.Println("Usage: agentpane cleanup [options]")
		fmt.Println()
		fmt.Println("Remove stale session mapping files. Sessions closed without hook")
		fmt.Println("cleanup leave mappings behind; this prunes them.")
		fmt.Println()
		fmt.Println("Options:")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	cfg := loadConfig()
	initLogging(cfg, false)

	store := mapping.NewStore(cfg.SessionsDir())
	removed := store.CleanupStale()

	if *inactive {
		panes, err := pane.NewWeztermSource().ListPanes()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		ttys := make([]string, 0, len(panes))
		for i := range panes {
			if tty := panes[i].TTYShort(); tty != "" {
				ttys = append(ttys, tty)
			}
		}
		removed += store.CleanupInactiveTTYs(ttys)
	}

	fmt.Printf("Removed %d mapping file(s).\n", removed)
}
