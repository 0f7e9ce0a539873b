package main

import (
	"io"
	"os"
	"time"

	"github.com/nchhillar/cvexport/internal/config"
)

// Environment holds injectable process dependencies for testability.
type Environment struct {
	Now     func() time.Time
	Stdout  io.Writer
	Stderr  io.Writer
	Lookup  config.LookupFunc
	Environ func() []string
}

// DefaultEnv returns the production environment.
func DefaultEnv() *Environment {
	return &Environment{
		Now:     time.Now,
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
		Lookup:  os.LookupEnv,
		Environ: os.Environ,
	}
}
