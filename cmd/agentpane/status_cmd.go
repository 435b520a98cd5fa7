package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/dsakurai/agentpane/internal/pane"
)

func handleStatus(args []string) {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	paneID := fs.Uint("pane", 0, "Pane id to inspect (default: the current pane)")
	jsonOutput := fs.Bool("json", false, "Output as JSON")

	fs.Usage = func() {
		fmt.Println("Usage: agentpane status [options]")
		fmt.Println()
		fmt.Println("Show the session status of one pane.")
		fmt.Println()
		fmt.Println("Options:")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	target := uint32(*paneID)
	if !isFlagSet(fs, "pane") {
		id, ok := pane.CurrentPaneID()
		if !ok {
			fmt.Fprintln(os.Stderr, "Error: no --pane given and WEZTERM_PANE is not set")
			os.Exit(1)
		}
		target = id
	}

	cfg := loadConfig()
	initLogging(cfg, false)

	// status inspects a named pane, which may be the pane we run in
	assembler := newAssembler(cfg, "", false)

	sessions, err := assembler.Assemble()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	for i := range sessions {
		if sessions[i].Pane.PaneID != target {
			continue
		}
		if *jsonOutput {
			output, err := json.MarshalIndent(toJSON(sessions[i:i+1])[0], "", "  ")
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: failed to format JSON output: %v\n", err)
				os.Exit(1)
			}
			fmt.Println(string(output))
			return
		}
		renderDetail(&sessions[i])
		return
	}

	fmt.Fprintf(os.Stderr, "No assistant session detected in pane %d.\n", target)
	os.Exit(1)
}

// isFlagSet reports whether a flag was given explicitly.
func isFlagSet(fs *flag.FlagSet, name string) bool {
	set := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}
