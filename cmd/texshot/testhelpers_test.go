package main

import "bytes"

// testEnv returns an Environment with captured output and the given
// variables, outside any container.
func testEnv(vars map[string]string) (*Environment, *bytes.Buffer, *bytes.Buffer) {
	var stdout, stderr bytes.Buffer
	env := &Environment{
		Stdin:     bytes.NewReader(nil),
		Stdout:    &stdout,
		Stderr:    &stderr,
		Getenv:    func(key string) string { return vars[key] },
		Container: func() bool { return false },
	}
	return env, &stdout, &stderr
}
