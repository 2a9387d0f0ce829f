package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/alnah/go-texshot"
	"github.com/alnah/go-texshot/internal/config"
	"github.com/alnah/go-texshot/internal/fileutil"
	"github.com/alnah/go-texshot/internal/hints"
	"github.com/alnah/go-texshot/internal/logging"
)

// runRender renders every input against one shared engine and returns the
// process exit code.
func runRender(ctx context.Context, args []string, env *Environment) int {
	flags, positional, err := parseRenderFlags(args)
	if err != nil {
		fmt.Fprintln(env.Stderr, err)
		return ExitUsage
	}

	warnUnknownEnvVars(env.Stderr, os.Environ())

	cfg, err := resolveConfig(flags, loadEnvConfig(env.Getenv))
	if err != nil {
		fmt.Fprintln(env.Stderr, err)
		return exitCodeFor(err)
	}

	logger, err := buildLogger(cfg, flags, env)
	if err != nil {
		fmt.Fprintln(env.Stderr, err)
		return ExitUsage
	}

	workers := cfg.Engine.MaxSessions
	if err := validateWorkers(workers); err != nil {
		fmt.Fprintln(env.Stderr, err)
		return ExitUsage
	}

	inputs, err := collectInputs(positional, env.Stdin)
	if err != nil {
		fmt.Fprintln(env.Stderr, err)
		if errors.Is(err, ErrNoInput) {
			printRenderUsage(env.Stderr)
		}
		return exitCodeFor(err)
	}

	reg := prometheus.NewRegistry()
	metrics := texshot.NewMetrics(reg)

	engine := texshot.NewEngine(engineOptions(cfg, logger, metrics)...)
	defer func() {
		if err := engine.Close(); err != nil {
			logger.Warn("engine.close_failed", "err", err)
		}
	}()

	renderer, err := texshot.NewRenderer(engine, rendererOptions(cfg, logger, metrics)...)
	if err != nil {
		fmt.Fprintln(env.Stderr, err)
		return exitCodeFor(err)
	}

	ext := fileutil.KindImage.Extension()
	if flags.htmlOnly {
		ext = fileutil.KindDocument.Extension()
	}
	assignOutputs(inputs, flags.output, cfg.Output.Dir, ext)

	if flags.common.verbose {
		fmt.Fprintf(env.Stderr, "Rendering %d input(s) with %d session(s)\n", len(inputs), engine.MaxSessions())
	}

	var results []RenderResult
	if flags.htmlOnly {
		results = runBatch(ctx, inputs, engine.MaxSessions(), htmlJob(renderer))
	} else {
		results = runBatch(ctx, inputs, engine.MaxSessions(), imageJob(renderer, logger))
	}

	code := printResults(results, flags.common.quiet, flags.common.verbose, env)

	if flags.metricsFile != "" {
		if err := prometheus.WriteToTextfile(flags.metricsFile, reg); err != nil {
			fmt.Fprintf(env.Stderr, "writing metrics: %v\n", err)
			if code == ExitSuccess {
				code = ExitIO
			}
		}
	}

	return code
}

// resolveConfig loads the config file (if any) and layers environment and
// flag values on top: CLI flags > env vars > config file > defaults.
func resolveConfig(flags *renderFlags, env *envConfig) (*config.Config, error) {
	name := flags.common.config
	if name == "" {
		name = env.ConfigPath
	}

	cfg := config.DefaultConfig()
	if name != "" {
		loaded, err := config.LoadConfig(name)
		if err != nil {
			if errors.Is(err, config.ErrConfigNotFound) && !fileutil.IsFilePath(name) {
				return nil, fmt.Errorf("%w%s", err, hints.ConfigNotFound(config.SearchPaths(name)))
			}
			return nil, err
		}
		cfg = loaded
	}

	applyEnvConfig(env, cfg)
	mergeFlags(flags, cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// mergeFlags applies explicitly set CLI flags to cfg.
func mergeFlags(flags *renderFlags, cfg *config.Config) {
	set := flags.set

	if set["browser-bin"] {
		cfg.Engine.BrowserBin = flags.engine.browserBin
	}
	if set["no-sandbox"] {
		cfg.Engine.NoSandbox = flags.engine.noSandbox
	}
	if set["timeout"] {
		cfg.Engine.Timeout = flags.engine.timeout
	}
	if set["workers"] {
		cfg.Engine.MaxSessions = flags.workers
	}
	if set["typesetter"] {
		cfg.Typeset.Backend = flags.typeset.backend
	}
	if set["katex-cmd"] {
		cfg.Typeset.Command = flags.typeset.katexCmd
	}
	if set["stylesheet"] {
		cfg.Document.StylesheetURL = flags.document.stylesheet
		if cfg.Document.StylesheetURL == "" {
			cfg.Document.StylesheetURL = config.StylesheetNone
		}
	}
	if set["font-size"] {
		cfg.Document.FontSize = flags.document.fontSize
	}
	if set["asset-path"] {
		cfg.Document.AssetPath = flags.document.assetPath
	}
	if set["max-width"] {
		cfg.Output.MaxWidth = flags.image.maxWidth
	}
	if set["trim"] {
		cfg.Output.Trim = flags.image.trim
	}
	if set["log-level"] {
		cfg.Log.Level = flags.log.level
	}
	if set["log-format"] {
		cfg.Log.Format = flags.log.format
	}
}

// buildLogger creates the stderr logger. --verbose lowers the level to
// debug and --quiet raises it to error; otherwise the configured level
// applies, defaulting to warn so that normal runs print results only.
func buildLogger(cfg *config.Config, flags *renderFlags, env *Environment) (*slog.Logger, error) {
	level := slog.LevelWarn
	if cfg.Log.Level != "" {
		parsed, err := logging.ParseLevel(cfg.Log.Level)
		if err != nil {
			return nil, err
		}
		level = parsed
	}
	switch {
	case flags.common.verbose:
		level = slog.LevelDebug
	case flags.common.quiet:
		level = slog.LevelError
	}
	return logging.New(env.Stderr, level, cfg.Log.Format)
}

// engineOptions maps cfg to engine options.
func engineOptions(cfg *config.Config, logger *slog.Logger, metrics *texshot.Metrics) []texshot.EngineOption {
	opts := []texshot.EngineOption{
		texshot.WithMaxSessions(cfg.Engine.MaxSessions),
		texshot.WithEngineLogger(logger),
		texshot.WithEngineMetrics(metrics),
	}
	if cfg.Engine.BrowserBin != "" {
		opts = append(opts, texshot.WithBrowserBin(cfg.Engine.BrowserBin))
	}
	if cfg.Engine.NoSandbox {
		opts = append(opts, texshot.WithNoSandbox(true))
	}
	return opts
}

// rendererOptions maps cfg to renderer options.
func rendererOptions(cfg *config.Config, logger *slog.Logger, metrics *texshot.Metrics) []texshot.Option {
	opts := []texshot.Option{
		texshot.WithTypesetter(newTypesetter(cfg)),
		texshot.WithMaxWidth(cfg.Output.MaxWidth),
		texshot.WithTrim(cfg.Output.Trim),
		texshot.WithLogger(logger),
		texshot.WithMetrics(metrics),
	}
	if d := cfg.TimeoutDuration(); d > 0 {
		opts = append(opts, texshot.WithTimeout(d))
	}
	switch cfg.Document.StylesheetURL {
	case "":
	case config.StylesheetNone:
		opts = append(opts, texshot.WithStylesheetURL(""))
	default:
		opts = append(opts, texshot.WithStylesheetURL(cfg.Document.StylesheetURL))
	}
	if cfg.Document.FontSize != "" {
		opts = append(opts, texshot.WithFontSize(cfg.Document.FontSize))
	}
	if cfg.Document.AssetPath != "" {
		opts = append(opts, texshot.WithAssetPath(cfg.Document.AssetPath))
	}
	return opts
}

// newTypesetter builds the configured typesetter backend.
func newTypesetter(cfg *config.Config) texshot.Typesetter {
	if strings.EqualFold(cfg.Typeset.Backend, config.BackendMathML) {
		return texshot.NewMathMLTypesetter()
	}
	return texshot.NewKaTeXTypesetter(cfg.Typeset.Command)
}

// RenderResult holds the outcome of one input.
type RenderResult struct {
	Input    Input
	Skipped  bool   // no markup block in the message
	Reply    string // error reply posted for the input
	Err      error
	Duration time.Duration
}
