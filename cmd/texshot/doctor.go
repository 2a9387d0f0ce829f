package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"github.com/go-rod/rod/lib/launcher"
	flag "github.com/spf13/pflag"

	"github.com/alnah/go-texshot"
	"github.com/alnah/go-texshot/internal/fileutil"
	"github.com/alnah/go-texshot/internal/hints"
)

// Doctor statuses.
const (
	statusReady    = "ready"
	statusWarnings = "warnings"
	statusErrors   = "errors"
)

// checkLevel grades one doctor finding.
type checkLevel string

const (
	levelOK    checkLevel = "ok"
	levelWarn  checkLevel = "warn"
	levelError checkLevel = "error"
)

// doctorCheck is one finding, grouped under a section heading.
type doctorCheck struct {
	Section string     `json:"section"`
	Level   checkLevel `json:"level"`
	Message string     `json:"message"`
}

// doctorReport is the doctor output in both text and JSON form.
type doctorReport struct {
	Status string        `json:"status"`
	Checks []doctorCheck `json:"checks"`
}

func (r *doctorReport) add(section string, level checkLevel, format string, args ...any) {
	r.Checks = append(r.Checks, doctorCheck{Section: section, Level: level, Message: fmt.Sprintf(format, args...)})
}

// messages returns the messages recorded at level.
func (r *doctorReport) messages(level checkLevel) []string {
	var out []string
	for _, c := range r.Checks {
		if c.Level == level {
			out = append(out, c.Message)
		}
	}
	return out
}

// doctorProbes are the system lookups doctor performs, replaced in tests.
type doctorProbes struct {
	lookChrome    func() (string, bool)
	lookPath      func(string) (string, error)
	chromeVersion func(path string) (string, error)
	stat          func(string) (os.FileInfo, error)
	writeTemp     func() error
	mathml        func() error
}

// defaultProbes returns the real system lookups.
func defaultProbes() doctorProbes {
	return doctorProbes{
		lookChrome: launcher.LookPath,
		lookPath:   exec.LookPath,
		chromeVersion: func(path string) (string, error) {
			out, err := exec.Command(path, "--version").Output() // #nosec G204 -- path from rod lookup or ROD_BROWSER_BIN
			return strings.TrimSpace(string(out)), err
		},
		stat:      os.Stat,
		writeTemp: func() error { return fileutil.ProbeWritable("") },
		mathml: func() error {
			_, err := texshot.NewMathMLTypesetter().Typeset(context.Background(), `\frac{a}{b}`)
			return err
		},
	}
}

// doctorCheckFunc appends the findings of one section to r.
type doctorCheckFunc func(r *doctorReport, getenv func(string) string, probes doctorProbes)

// doctorChecks run in output order.
var doctorChecks = []doctorCheckFunc{
	checkChrome,
	checkTypesetters,
	checkEnvironment,
	checkTempDir,
}

// runDoctorCmd executes the doctor command and returns an exit code:
// 0 when ready (warnings included), 1 when any check failed.
func runDoctorCmd(args []string, env *Environment) int {
	return runDoctorWith(args, env, defaultProbes())
}

func runDoctorWith(args []string, env *Environment, probes doctorProbes) int {
	fs := flag.NewFlagSet("doctor", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	asJSON := fs.Bool("json", false, "print the report as JSON")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(env.Stderr, "%v: %v\n", ErrUsage, err)
		return ExitUsage
	}

	report := runDoctor(env.Getenv, probes)

	if *asJSON {
		enc := json.NewEncoder(env.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(report)
	} else {
		printDoctorReport(env.Stdout, report)
	}

	if report.Status == statusErrors {
		return ExitGeneral
	}
	return ExitSuccess
}

// runDoctor runs every check and grades the report by its worst finding.
func runDoctor(getenv func(string) string, probes doctorProbes) *doctorReport {
	r := &doctorReport{}
	for _, check := range doctorChecks {
		check(r, getenv, probes)
	}

	switch {
	case len(r.messages(levelError)) > 0:
		r.Status = statusErrors
	case len(r.messages(levelWarn)) > 0:
		r.Status = statusWarnings
	default:
		r.Status = statusReady
	}
	return r
}

// checkChrome locates the browser the engine will launch.
func checkChrome(r *doctorReport, getenv func(string) string, probes doctorProbes) {
	const section = "Chrome"

	path := getenv("ROD_BROWSER_BIN")
	if path == "" {
		var found bool
		if path, found = probes.lookChrome(); !found {
			// rod downloads a browser on first launch.
			r.add(section, levelWarn, "not found; rod will download Chromium on first render (install Chrome or set ROD_BROWSER_BIN)")
			return
		}
	}

	if _, err := probes.stat(path); err != nil {
		r.add(section, levelError, "not found at %s", path)
		return
	}
	r.add(section, levelOK, "found at %s", path)

	if version, err := probes.chromeVersion(path); err != nil {
		r.add(section, levelWarn, "could not read version: %v", err)
	} else {
		r.add(section, levelOK, "version %s", version)
	}

	if getenv("ROD_NO_SANDBOX") == "1" {
		r.add(section, levelOK, "sandbox disabled (ROD_NO_SANDBOX=1)")
	} else {
		r.add(section, levelOK, "sandbox enabled")
	}
}

// checkTypesetters looks for the KaTeX command and runs the MathML typesetter.
func checkTypesetters(r *doctorReport, getenv func(string) string, probes doctorProbes) {
	const section = "Typesetters"

	command := getenv("TEXSHOT_KATEX_CMD")
	if strings.TrimSpace(command) == "" {
		command = "katex"
	}
	name := strings.Fields(command)[0]
	if path, err := probes.lookPath(name); err != nil {
		r.add(section, levelWarn, "katex: %q not on PATH%s", name, hints.TypesetterNotFound)
	} else {
		r.add(section, levelOK, "katex: %s at %s", command, path)
	}

	if err := probes.mathml(); err != nil {
		r.add(section, levelError, "mathml: sample formula failed: %v", err)
	} else {
		r.add(section, levelOK, "mathml: built in")
	}
}

// checkEnvironment reports the platform and warns when a container or CI
// runner needs the sandbox disabled.
func checkEnvironment(r *doctorReport, getenv func(string) string, probes doctorProbes) {
	const section = "Environment"

	r.add(section, levelOK, "platform %s/%s", runtime.GOOS, runtime.GOARCH)

	container, signal := isContainer(getenv, probes)
	if container {
		r.add(section, levelOK, "container detected (%s)", signal)
	}
	ci := hints.Env{Getenv: getenv}.CI()
	if ci {
		r.add(section, levelOK, "CI detected")
	}
	if (container || ci) && getenv("ROD_NO_SANDBOX") != "1" {
		r.add(section, levelWarn, "container/CI without ROD_NO_SANDBOX=1; Chrome may refuse to start")
	}
}

// isContainer returns whether a container signal is present and which one.
func isContainer(getenv func(string) string, probes doctorProbes) (bool, string) {
	if getenv("TEXSHOT_CONTAINER") == "1" {
		return true, "TEXSHOT_CONTAINER=1"
	}
	if _, err := probes.stat("/.dockerenv"); err == nil {
		return true, "/.dockerenv"
	}
	if v := getenv("container"); v != "" {
		return true, "container=" + v
	}
	if getenv("KUBERNETES_SERVICE_HOST") != "" {
		return true, "KUBERNETES_SERVICE_HOST"
	}
	return false, ""
}

// checkTempDir verifies render documents can be staged.
func checkTempDir(r *doctorReport, _ func(string) string, probes doctorProbes) {
	const section = "Temp directory"

	if err := probes.writeTemp(); err != nil {
		r.add(section, levelError, "%s not writable: %v", os.TempDir(), err)
		return
	}
	r.add(section, levelOK, "%s writable", os.TempDir())
}

// levelTags prefix each text line.
var levelTags = map[checkLevel]string{
	levelOK:    "[OK]",
	levelWarn:  "[WARN]",
	levelError: "[ERROR]",
}

// printDoctorReport writes the report grouped by section.
func printDoctorReport(w io.Writer, r *doctorReport) {
	fmt.Fprintln(w, "texshot doctor")

	section := ""
	for _, c := range r.Checks {
		if c.Section != section {
			section = c.Section
			fmt.Fprintf(w, "\n%s\n", section)
		}
		fmt.Fprintf(w, "  %s %s\n", levelTags[c.Level], c.Message)
	}

	fmt.Fprintln(w)
	switch r.Status {
	case statusReady:
		fmt.Fprintln(w, "Status: ready to render")
	case statusWarnings:
		fmt.Fprintf(w, "Status: ready with %d warning(s)\n", len(r.messages(levelWarn)))
	case statusErrors:
		fmt.Fprintf(w, "Status: not ready, %d error(s)\n", len(r.messages(levelError)))
	}
}
