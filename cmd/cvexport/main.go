package main

import (
	"fmt"
	"os"

	"go.uber.org/automaxprocs/maxprocs"

	"github.com/nchhillar/cvexport/internal/config"
)

// Version is set at build time via ldflags.
var Version = "dev"

func main() {
	// maxprocs.Set only fails on an invalid GOMAXPROCS value, in which case
	// the runtime default stays in effect.
	_, _ = maxprocs.Set(maxprocs.Logger(func(format string, args ...any) {
		if os.Getenv(config.EnvDebugMaxprocs) != "" {
			fmt.Fprintf(os.Stderr, format+"\n", args...)
		}
	}))

	os.Exit(execute(os.Args[1:], DefaultEnv()))
}
