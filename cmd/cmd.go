// Package cmd provides the CLI commands for sturdy.
//
// Commands:
//   - serve: HTTP API server (default)
//   - mcp: Model Context Protocol server for editor/agent integration
//
// Signal handling and graceful shutdown are implemented for both commands
// via context cancellation.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/sturdystudy/sturdy/internal/config"
	"github.com/sturdystudy/sturdy/internal/log"
)

// Version information (injected at build time via ldflags).
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// Execute is the main entry point for the sturdy CLI.
func Execute() error {
	if len(os.Args) < 2 {
		return runServe()
	}

	switch os.Args[1] {
	case "serve":
		return runServe()
	case "mcp":
		return runMCP()
	case "version", "--version", "-v":
		runVersion()
		return nil
	case "help", "--help", "-h":
		runHelp()
		return nil
	default:
		return fmt.Errorf("unknown command: %s", os.Args[1])
	}
}

// initLogger builds the process logger. Level is controlled by the DEBUG
// environment variable. Output goes to stderr so the MCP command can reserve
// stdout for JSON-RPC.
func initLogger() log.Logger {
	level := slog.LevelInfo
	if os.Getenv("DEBUG") != "" {
		level = slog.LevelDebug
	}
	logger := log.New(log.Config{Level: level})
	slog.SetDefault(logger)
	return logger
}

// checkRequiredEnv verifies the Gemini API key is present before any model
// call can be attempted.
func checkRequiredEnv() error {
	if os.Getenv("GEMINI_API_KEY") == "" {
		fmt.Fprintln(os.Stderr, "Error: GEMINI_API_KEY environment variable not set")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "sturdy requires a Gemini API key to function.")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "To set your API key:")
		fmt.Fprintln(os.Stderr, "  export GEMINI_API_KEY=your-api-key")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Get your API key at: https://ai.google.dev/")
		return fmt.Errorf("%w: GEMINI_API_KEY not set", config.ErrMissingAPIKey)
	}
	return nil
}

// runVersion displays version information.
func runVersion() {
	fmt.Printf("sturdy v%s\n", Version)
	fmt.Printf("Build: %s\n", BuildTime)
	fmt.Printf("Commit: %s\n", GitCommit)
}

// runHelp displays the help message.
func runHelp() {
	fmt.Println("sturdy - retrieval-grounded study assistant")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  sturdy serve [addr]  Start the HTTP API server (default: 127.0.0.1:8080)")
	fmt.Println("  sturdy mcp           Start the MCP server (stdio transport)")
	fmt.Println("  sturdy --version     Show version information")
	fmt.Println("  sturdy --help        Show this help")
	fmt.Println()
	fmt.Println("Environment Variables:")
	fmt.Println("  GEMINI_API_KEY       Required: Gemini API key")
	fmt.Println("  DATABASE_URL         Optional: PostgreSQL URL override")
	fmt.Println("  DEBUG                Optional: Enable debug logging")
	fmt.Println()
	fmt.Println("Learn more: https://github.com/sturdystudy/sturdy")
}
