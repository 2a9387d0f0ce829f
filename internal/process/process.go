// Package process terminates the Chrome process tree left behind when a
// launcher dies before its children do.
package process

import "errors"

// ErrInvalidPID rejects pids that would address the caller's own group
// or every process the caller may signal.
var ErrInvalidPID = errors.New("process: pid must be positive")
