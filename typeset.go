package texshot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/alnah/go-texshot/internal/hints"
)

// Typesetter converts math markup into an HTML fragment.
type Typesetter interface {
	Typeset(ctx context.Context, markup string) (string, error)
}

// CommandRunner abstracts command execution to enable testing without real subprocesses.
type CommandRunner interface {
	RunInput(ctx context.Context, stdin string, name string, args ...string) (stdout string, stderr string, err error)
}

// ExecRunner implements CommandRunner using os/exec.
type ExecRunner struct{}

// RunInput starts name with args, writes stdin to the process and waits for it.
// The process is killed when ctx is done.
func (r *ExecRunner) RunInput(ctx context.Context, stdin string, name string, args ...string) (string, string, error) {
	cmd := exec.CommandContext(ctx, name, args...) // #nosec G204 -- command is configured by the operator
	cmd.Stdin = strings.NewReader(stdin)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}

// Compile-time interface checks.
var (
	_ CommandRunner = (*ExecRunner)(nil)
	_ Typesetter    = (*KaTeXTypesetter)(nil)
)

// Default KaTeX invocation. Errors in the markup are rendered inline instead
// of aborting, and the output uses display-style layout.
const defaultKaTeXCommand = "katex"

var defaultKaTeXArgs = []string{"--no-throw-on-error", "--display-mode"}

// KaTeXTypesetter typesets markup by invoking the KaTeX CLI.
// Markup is written to stdin and the fragment is read from stdout.
type KaTeXTypesetter struct {
	Runner  CommandRunner
	Command string
	Args    []string
}

// NewKaTeXTypesetter creates a KaTeXTypesetter with a real command runner.
// command may hold extra words (e.g. "npx katex"); empty means "katex".
func NewKaTeXTypesetter(command string) *KaTeXTypesetter {
	name, extra := splitCommand(command)
	return &KaTeXTypesetter{
		Runner:  &ExecRunner{},
		Command: name,
		Args:    append(extra, defaultKaTeXArgs...),
	}
}

// Typeset runs KaTeX on markup. A non-zero exit status is returned as a
// *MarkupError carrying the engine's stderr.
func (k *KaTeXTypesetter) Typeset(ctx context.Context, markup string) (string, error) {
	if strings.TrimSpace(markup) == "" {
		return "", ErrEmptyMarkup
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	stdout, stderr, err := k.Runner.RunInput(ctx, markup, k.Command, k.Args...)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		if errors.Is(err, exec.ErrNotFound) {
			return "", fmt.Errorf("%w: %q: %v%s", ErrTypesetterNotFound, k.Command, err, hints.TypesetterNotFound)
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", &MarkupError{Stderr: stderr, Err: err}
		}
		return "", fmt.Errorf("running %s: %w", k.Command, err)
	}

	return stdout, nil
}

// splitCommand splits a configured command line into the program and its leading args.
func splitCommand(command string) (string, []string) {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return defaultKaTeXCommand, nil
	}
	return fields[0], fields[1:]
}
