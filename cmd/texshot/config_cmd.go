package main

import (
	"fmt"

	"github.com/alnah/go-texshot/internal/yamlutil"
)

// runConfigCmd prints the effective configuration as YAML.
func runConfigCmd(args []string, env *Environment) int {
	flags, _, err := parseRenderFlags(args)
	if err != nil {
		fmt.Fprintln(env.Stderr, err)
		return ExitUsage
	}

	cfg, err := resolveConfig(flags, loadEnvConfig(env.Getenv))
	if err != nil {
		fmt.Fprintln(env.Stderr, err)
		return exitCodeFor(err)
	}

	if err := yamlutil.Encode(env.Stdout, cfg); err != nil {
		fmt.Fprintln(env.Stderr, err)
		return ExitGeneral
	}
	return ExitSuccess
}
