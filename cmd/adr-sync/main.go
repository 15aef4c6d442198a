// Package main is the entry point for the adr-sync CLI.
package main

import (
	"fmt"
	"os"

	"github.com/runoshun/adr-sync/internal/app"
	"github.com/runoshun/adr-sync/internal/cli"
)

// version is set at build time using -ldflags.
var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get current directory: %w", err)
	}

	container, err := app.New(cwd)
	if err != nil {
		return runWithoutContainer(os.Args[1:], fmt.Errorf("failed to initialize: %w", err))
	}
	defer func() { _ = container.Close() }()

	rootCmd := cli.NewRootCommand(container, version)
	return rootCmd.Execute()
}

// runWithoutContainer handles a config that fails to load. Help, version,
// the dev server and the config template still work; everything else
// reports the load error.
func runWithoutContainer(args []string, loadErr error) error {
	if !canRunWithoutConfig(args) {
		return loadErr
	}
	rootCmd := cli.NewRootCommand(nil, version)
	rootCmd.SetArgs(args)
	return rootCmd.Execute()
}

func canRunWithoutConfig(args []string) bool {
	if len(args) == 0 {
		return false
	}
	switch args[0] {
	case "help", "devserver":
		return true
	case "config":
		return len(args) > 1 && args[1] == "template"
	}
	for _, arg := range args {
		if arg == "--version" || arg == "-v" || arg == "--help" || arg == "-h" {
			return true
		}
	}
	return false
}
