package main

import (
	"fmt"
	"io"
	"os"

	"github.com/ironsheep/chart-signals-mcp/internal/config"
	"github.com/ironsheep/chart-signals-mcp/internal/logging"
	"github.com/rs/zerolog"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// run dispatches a command line and returns the process exit code.
func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	cmd := "serve"
	if len(args) > 0 {
		cmd, args = args[0], args[1:]
	}

	switch cmd {
	case "--version", "-v", "version":
		fmt.Fprintf(stdout, "chart-signals-mcp %s\n", Version)
		fmt.Fprintf(stdout, "  Build time: %s\n", BuildTime)
		fmt.Fprintf(stdout, "  Git commit: %s\n", GitCommit)
		return 0
	case "--help", "-h", "help":
		printUsage(stdout)
		return 0
	case "serve":
		return runServe(args, stdin, stdout, stderr)
	case "extract":
		return runExtract(args, stdout, stderr)
	case "overlay":
		return runOverlay(args, stderr)
	default:
		// Flags without a subcommand belong to serve.
		if len(cmd) > 0 && cmd[0] == '-' {
			return runServe(append([]string{cmd}, args...), stdin, stdout, stderr)
		}
		fmt.Fprintf(stderr, "unknown command: %s\n\n", cmd)
		printUsage(stderr)
		return 2
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "chart-signals-mcp - trend and support/resistance signals from chart images")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  chart-signals-mcp [serve] [--config FILE]")
	fmt.Fprintln(w, "  chart-signals-mcp extract [--top-k N] [--workers N] [--config FILE] IMAGE...")
	fmt.Fprintln(w, "  chart-signals-mcp overlay [--top-k N] [--level-color HEX] [--trend-color HEX]")
	fmt.Fprintln(w, "                            [--config FILE] IMAGE OUT.png")
	fmt.Fprintln(w, "  chart-signals-mcp version | help")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Environment variables:")
	fmt.Fprintln(w, "  CHART_MCP_CONFIG=FILE         YAML config file")
	fmt.Fprintln(w, "  CHART_MCP_LOG_LEVEL=debug     debug, info, warn or error")
	fmt.Fprintln(w, "  CHART_MCP_LOG_FORMAT=console  json or console")
	fmt.Fprintln(w, "  CHART_MCP_EXTRACT_TOP_K=4     default number of levels")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "serve communicates via MCP protocol over stdin/stdout.")
	fmt.Fprintln(w, "Configure it in your MCP client (e.g., Claude Desktop).")
}

// setup loads configuration and builds the stderr logger.
func setup(configPath string, stderr io.Writer) (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	logger, err := logging.New(stderr, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	return cfg, logger, nil
}
