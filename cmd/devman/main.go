package main

import (
	"os"

	"github.com/devman-ai/devman/internal"
	"github.com/devman-ai/devman/internal/cli"
)

// Populated at build time through ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	cli.SetVersionInfo(version, commit, date)
	internal.Register()
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
