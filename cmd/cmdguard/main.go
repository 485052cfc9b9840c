package main

import (
	"os"

	"github.com/dotcommander/cmdguard/internal/commands"
)

// version is set via ldflags: -X main.version=v1.0.0
var version = "dev"

func main() {
	if err := commands.Execute(version); err != nil {
		os.Exit(commands.ExitCode(err))
	}
}
