package main

import (
	"io"
	"os"

	"github.com/alnah/go-texshot/internal/hints"
)

// Environment is everything the CLI reads from or writes to the process.
// Tests swap each field for an in-memory stand-in.
type Environment struct {
	Stdin     io.Reader
	Stdout    io.Writer
	Stderr    io.Writer
	Getenv    func(string) string
	Container func() bool
}

// DefaultEnv returns the Environment of the running process.
func DefaultEnv() *Environment {
	proc := hints.Process()
	return &Environment{
		Stdin:     os.Stdin,
		Stdout:    os.Stdout,
		Stderr:    os.Stderr,
		Getenv:    os.Getenv,
		Container: proc.Container,
	}
}

// hints returns the view of env used to pick remediation hints.
func (env *Environment) hints() hints.Env {
	return hints.Env{Getenv: env.Getenv, Container: env.Container}
}
