package main

import (
	"fmt"
	"log/slog"
	"os"
)

var version = "dev"

func main() {
	root := newRunCmd()
	root.Use = "modelbench"
	root.Short = "Benchmark local Ollama models with cloud reviewers"
	root.Version = version

	root.AddCommand(
		newRunCmd(),
		newValidateCmd(),
		newCacheCmd(),
		newHistoryCmd(),
		newRenderCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
