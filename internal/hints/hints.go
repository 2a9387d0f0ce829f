// Package hints appends remediation advice to CLI error messages.
// Every hint renders as "\n  hint: <text>" so it can follow any error text.
package hints

import (
	"os"
	"strings"

	"github.com/alnah/go-texshot/internal/fileutil"
)

const prefix = "\n  hint: "

// Fixed hints.
const (
	TypesetterNotFound = prefix + "install it with 'npm install -g katex'; " +
		`or point --katex-cmd at it (e.g. "npx --yes katex"); or use --typesetter mathml`
	StyleLoad = prefix + "the page stylesheet is fetched over the network; " +
		"for offline use pass --stylesheet file:///path/to/katex.min.css"
	Timeout         = prefix + "for slow networks or cold browsers, raise --timeout"
	OutputDirectory = prefix + "check the output directory exists and is writable"
)

// ciVars are set by the CI providers hints recognize.
var ciVars = []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "JENKINS_URL", "BUILDKITE", "CIRCLECI"}

// Env is the part of the process environment that changes which hints apply.
type Env struct {
	Getenv    func(string) string
	Container func() bool
}

// Process returns the Env of the running process.
func Process() Env {
	return Env{
		Getenv:    os.Getenv,
		Container: func() bool { return fileutil.FileExists("/.dockerenv") },
	}
}

// CI reports whether a known CI provider variable is set.
func (e Env) CI() bool {
	for _, name := range ciVars {
		if e.Getenv(name) != "" {
			return true
		}
	}
	return false
}

func (e Env) container() bool {
	return e.Container != nil && e.Container()
}

// BrowserConnect suggests the rod variables that are unset and likely
// needed, or returns "" when nothing applies.
func (e Env) BrowserConnect() string {
	var advice []string
	if (e.CI() || e.container()) && e.Getenv("ROD_NO_SANDBOX") != "1" {
		advice = append(advice, "set ROD_NO_SANDBOX=1 for Docker/CI")
	}
	if e.Getenv("ROD_BROWSER_BIN") == "" {
		advice = append(advice, "set ROD_BROWSER_BIN to use a specific Chrome")
	}
	return join(advice)
}

// ConfigNotFound points at --config and, when one of the searched paths
// is in the user config directory, at that file.
func ConfigNotFound(searched []string) string {
	advice := "use --config /path/to/file.yaml"
	for _, p := range searched {
		if strings.Contains(strings.ReplaceAll(p, `\`, "/"), ".config/go-texshot") {
			advice += " or create " + p
			break
		}
	}
	return prefix + advice
}

func join(advice []string) string {
	if len(advice) == 0 {
		return ""
	}
	return prefix + strings.Join(advice, "; ")
}
