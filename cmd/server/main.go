package main

import (
	"os"

	"github.com/iliyamo/depot-yard/internal/cli"
)

// Set via ldflags at build time.
var (
	version = ""
	commit  = ""
)

func main() {
	cli.SetVersion(version, commit)
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
