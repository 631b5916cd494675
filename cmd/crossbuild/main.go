// Package main is the entry point for the crossbuild command.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/dshills/crossbuild/internal/app"
	"github.com/dshills/crossbuild/internal/toolchain"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	opts, rest, code, done := parseFlags(args, stdout, stderr)
	if done {
		return code
	}
	if len(rest) == 0 {
		fmt.Fprintln(stderr, "Error: missing command (try -help)")
		return 2
	}

	cmd, ok := commands[rest[0]]
	if !ok {
		fmt.Fprintf(stderr, "Error: unknown command %q\n", rest[0])
		return 2
	}
	if len(rest)-1 < cmd.minArgs {
		fmt.Fprintf(stderr, "Usage: crossbuild %s %s\n", rest[0], cmd.usage)
		return 2
	}
	if !cmd.project {
		opts.Root = ""
	}

	application, err := app.New(opts)
	if err != nil {
		fmt.Fprintf(stderr, "Error: failed to initialize: %v\n", err)
		return 1
	}
	defer application.Close()

	ctx := &cmdContext{app: application, args: rest[1:], out: stdout}
	if err := cmd.run(ctx); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	for _, w := range application.Warnings() {
		fmt.Fprintf(stderr, "Warning: %v\n", w)
	}
	return 0
}

func parseFlags(args []string, stdout, stderr io.Writer) (opts app.Options, rest []string, code int, done bool) {
	fs := flag.NewFlagSet("crossbuild", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var kind string
	var showVersion bool
	fs.StringVar(&opts.Root, "project", ".", "Project directory")
	fs.StringVar(&opts.Root, "p", ".", "Project directory (shorthand)")
	fs.StringVar(&kind, "kind", string(toolchain.KindARM), "Project kind used when creating a project")
	fs.StringVar(&opts.Name, "name", "", "Project name used when creating a project")
	fs.StringVar(&opts.SettingsPath, "settings", "", "Path to the settings file")
	fs.StringVar(&opts.LogLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	fs.BoolVar(&showVersion, "version", false, "Show version information")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "crossbuild - embedded cross-compilation project configuration\n\n")
		fmt.Fprintf(stderr, "Usage: crossbuild [options] <command> [args...]\n\n")
		fmt.Fprintf(stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(stderr, "\nCommands:\n")
		names := make([]string, 0, len(commands))
		for name := range commands {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(stderr, "  %-16s %s\n", name, commands[name].help)
		}
	}

	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return opts, nil, 0, true
		}
		return opts, nil, 2, true
	}

	if showVersion {
		fmt.Fprintf(stdout, "crossbuild %s\n", version)
		fmt.Fprintf(stdout, "Commit: %s\n", commit)
		fmt.Fprintf(stdout, "Built: %s\n", date)
		return opts, nil, 0, true
	}

	switch opts.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		fmt.Fprintf(stderr, "Error: invalid log level %q (must be debug, info, warn, or error)\n", opts.LogLevel)
		return opts, nil, 2, true
	}

	opts.Kind = toolchain.Kind(strings.TrimSpace(kind))
	opts.LogOutput = stderr
	return opts, fs.Args(), 0, false
}
