package main

import (
	"context"
	"fmt"
	"os"

	"github.com/petems/akasha/internal/cli"
)

var (
	// Version is set via ldflags at build time
	Version = "dev"
	// Commit is set via ldflags at build time
	Commit = "unknown"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "akasha: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	deps := &cli.Dependencies{
		Version: Version,
		Commit:  Commit,
	}
	return cli.NewRootCmd(deps).ExecuteContext(context.Background())
}
