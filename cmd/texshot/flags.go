package main

import (
	"errors"
	"fmt"
	"io"

	flag "github.com/spf13/pflag"
)

// ErrUsage reports invalid command-line usage.
var ErrUsage = errors.New("invalid usage")

// commonFlags holds flags shared across commands.
type commonFlags struct {
	config  string
	quiet   bool
	verbose bool
}

// engineFlags holds headless browser flags.
type engineFlags struct {
	browserBin string
	noSandbox  bool
	timeout    string
}

// typesetFlags holds typesetter flags.
type typesetFlags struct {
	backend  string
	katexCmd string
}

// documentFlags holds render document flags.
type documentFlags struct {
	stylesheet string
	fontSize   string
	assetPath  string
}

// imageFlags holds output image flags.
type imageFlags struct {
	maxWidth int
	trim     bool
}

// logFlags holds logging flags.
type logFlags struct {
	level  string
	format string
}

// renderFlags holds all flags for the render command.
type renderFlags struct {
	common      commonFlags
	output      string
	workers     int
	htmlOnly    bool
	metricsFile string
	engine      engineFlags
	typeset     typesetFlags
	document    documentFlags
	image       imageFlags
	log         logFlags

	// set records which flags were given explicitly, so zero values
	// such as --trim=false still override the config file.
	set map[string]bool
}

// addCommonFlags adds common flags to a FlagSet.
func addCommonFlags(fs *flag.FlagSet, f *commonFlags) {
	fs.StringVarP(&f.config, "config", "c", "", "config file name or path")
	fs.BoolVarP(&f.quiet, "quiet", "q", false, "only show errors")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "show timing and diagnostics")
}

// addEngineFlags adds browser flags to a FlagSet.
func addEngineFlags(fs *flag.FlagSet, f *engineFlags) {
	fs.StringVar(&f.browserBin, "browser-bin", "", "Chrome/Chromium binary")
	fs.BoolVar(&f.noSandbox, "no-sandbox", false, "disable the Chrome sandbox")
	fs.StringVarP(&f.timeout, "timeout", "t", "", "per-render timeout (e.g. 30s, 1m)")
}

// addTypesetFlags adds typesetter flags to a FlagSet.
func addTypesetFlags(fs *flag.FlagSet, f *typesetFlags) {
	fs.StringVar(&f.backend, "typesetter", "", "typesetter: katex, mathml")
	fs.StringVar(&f.katexCmd, "katex-cmd", "", "KaTeX command line (default: katex)")
}

// addDocumentFlags adds render document flags to a FlagSet.
func addDocumentFlags(fs *flag.FlagSet, f *documentFlags) {
	fs.StringVar(&f.stylesheet, "stylesheet", "", "stylesheet URL (http(s) or file)")
	fs.StringVar(&f.fontSize, "font-size", "", "CSS font size of the equation")
	fs.StringVar(&f.assetPath, "asset-path", "", "directory overriding embedded templates and styles")
}

// addImageFlags adds image flags to a FlagSet.
func addImageFlags(fs *flag.FlagSet, f *imageFlags) {
	fs.IntVar(&f.maxWidth, "max-width", 0, "downscale images wider than this (0 = off)")
	fs.BoolVar(&f.trim, "trim", false, "crop transparent margins")
}

// addLogFlags adds logging flags to a FlagSet.
func addLogFlags(fs *flag.FlagSet, f *logFlags) {
	fs.StringVar(&f.level, "log-level", "", "log level: debug, info, warn, error")
	fs.StringVar(&f.format, "log-format", "", "log format: text, json")
}

// newRenderFlagSet builds the render FlagSet bound to f.
func newRenderFlagSet(f *renderFlags) *flag.FlagSet {
	fs := flag.NewFlagSet("render", flag.ContinueOnError)
	fs.SortFlags = false

	addCommonFlags(fs, &f.common)
	fs.StringVarP(&f.output, "output", "o", "", "output file (single input) or directory")
	fs.IntVarP(&f.workers, "workers", "w", 0, "concurrent renders (0 = auto)")
	fs.BoolVar(&f.htmlOnly, "html-only", false, "write the render document instead of a PNG")
	fs.StringVar(&f.metricsFile, "metrics-file", "", "write Prometheus metrics to this file on exit")
	addEngineFlags(fs, &f.engine)
	addTypesetFlags(fs, &f.typeset)
	addDocumentFlags(fs, &f.document)
	addImageFlags(fs, &f.image)
	addLogFlags(fs, &f.log)
	return fs
}

// parseRenderFlags parses render arguments (without the program name).
// Returns the flags and the positional arguments.
func parseRenderFlags(args []string) (*renderFlags, []string, error) {
	f := &renderFlags{set: map[string]bool{}}
	fs := newRenderFlagSet(f)
	fs.SetOutput(io.Discard)

	if err := fs.Parse(args); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrUsage, err)
	}
	fs.Visit(func(fl *flag.Flag) { f.set[fl.Name] = true })

	if f.common.quiet && f.common.verbose {
		return nil, nil, fmt.Errorf("%w: --quiet and --verbose are mutually exclusive", ErrUsage)
	}
	return f, fs.Args(), nil
}
