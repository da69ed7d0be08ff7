// ORA Memory API: persistent personalization memory for the ORA assistant.
//
// Stores per-user profiles and an append-only conversation log, and
// serves the assembled context over HTTP JSON or the Model Context
// Protocol.
//
// Usage:
//
//	ora-memory serve       # Start the HTTP API
//	ora-memory serve-mcp   # Start the MCP server (stdio transport)
//	ora-memory update      # Update to the latest release
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/oralabs/ora-memory/internal/config"
	"github.com/oralabs/ora-memory/internal/server"
	"github.com/oralabs/ora-memory/internal/updater"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		if err := runHTTP(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "serve-mcp":
		if err := runMCP(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "update":
		runUpdate()
	case "--help", "-h", "help":
		printUsage()
		os.Exit(0)
	case "--version", "-v", "version":
		fmt.Printf("ora-memory v%s\n", server.Version)
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func runHTTP() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	s, cleanup, err := server.New(cfg)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	defer cleanup()

	// Best-effort version check on stderr.
	go notifyUpdates()

	// Graceful shutdown on interrupt.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigCh
		cancel()
	}()

	return s.ListenAndServe(ctx)
}

func runMCP() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	s, cleanup, err := server.NewMCP(cfg)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	defer cleanup()

	return mcpserver.ServeStdio(s)
}

// notifyUpdates prints a notice to stderr when a newer release exists.
// Network failures are silently ignored.
func notifyUpdates() {
	st := updater.Check(server.Version)
	if st.Newer {
		fmt.Fprintf(os.Stderr,
			"\nUpdate available: v%s -> v%s\nRun: ora-memory update\nRelease: %s\n\n",
			st.Current, st.Latest, st.ReleaseURL)
	}
}

// runUpdate swaps the running binary for the latest release.
func runUpdate() {
	st := updater.Check(server.Version)
	if !st.Newer {
		fmt.Fprintf(os.Stderr, "Already at the latest version (v%s)\n", st.Current)
		return
	}

	fmt.Fprintf(os.Stderr, "Updating v%s -> v%s...\n", st.Current, st.Latest)
	if err := updater.Apply(server.Version); err != nil {
		fmt.Fprintf(os.Stderr, "Update failed: %v\n", err)
		if st.ReleaseURL != "" {
			fmt.Fprintf(os.Stderr, "Download manually from: %s\n", st.ReleaseURL)
		}
		os.Exit(1)
	}
	fmt.Fprintf(os.Stderr, "Updated to v%s. Restart ora-memory to use it.\n", st.Latest)
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `ORA Memory API v%s — persistent personalization memory

Usage:
  ora-memory serve       Start the HTTP API (default port 5000)
  ora-memory serve-mcp   Start the MCP server (stdio transport)
  ora-memory update      Update to the latest release

Configuration:
  Reads config.yaml from the working directory or ~/.config/ora-memory,
  overridable via ORA_* environment variables (e.g. ORA_PORT=8080,
  ORA_STORAGE_BACKEND=sqlite).
`, server.Version)
}
