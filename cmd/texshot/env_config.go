package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/alnah/go-texshot/internal/config"
)

// envConfig holds configuration from environment variables.
// Provides CI/CD-friendly overrides without requiring YAML files.
type envConfig struct {
	// Tier 1 - Essential
	ConfigPath string        // TEXSHOT_CONFIG: config file name or path
	Timeout    time.Duration // TEXSHOT_TIMEOUT: per-render timeout
	Typesetter string        // TEXSHOT_TYPESETTER: katex or mathml
	KaTeXCmd   string        // TEXSHOT_KATEX_CMD: KaTeX command line

	// Tier 2 - I/O and document
	OutputDir  string // TEXSHOT_OUTPUT_DIR: default output directory
	Stylesheet string // TEXSHOT_STYLESHEET: stylesheet URL
	Workers    int    // TEXSHOT_WORKERS: concurrent renders

	// Tier 3 - Logging
	LogLevel  string // TEXSHOT_LOG_LEVEL
	LogFormat string // TEXSHOT_LOG_FORMAT

	// Browser, shared with go-rod
	BrowserBin string // ROD_BROWSER_BIN
	NoSandbox  bool   // ROD_NO_SANDBOX=1
}

// knownEnvVars lists valid TEXSHOT_* environment variables.
// Used to detect typos and warn users about unknown variables.
var knownEnvVars = map[string]bool{
	"TEXSHOT_CONFIG":     true,
	"TEXSHOT_TIMEOUT":    true,
	"TEXSHOT_TYPESETTER": true,
	"TEXSHOT_KATEX_CMD":  true,
	"TEXSHOT_OUTPUT_DIR": true,
	"TEXSHOT_STYLESHEET": true,
	"TEXSHOT_WORKERS":    true,
	"TEXSHOT_LOG_LEVEL":  true,
	"TEXSHOT_LOG_FORMAT": true,
	"TEXSHOT_CONTAINER":  true, // read by doctor
}

// loadEnvConfig reads configuration from environment variables.
// Invalid durations and counts are ignored.
func loadEnvConfig(getenv func(string) string) *envConfig {
	cfg := &envConfig{
		ConfigPath: getenv("TEXSHOT_CONFIG"),
		Typesetter: getenv("TEXSHOT_TYPESETTER"),
		KaTeXCmd:   getenv("TEXSHOT_KATEX_CMD"),
		OutputDir:  getenv("TEXSHOT_OUTPUT_DIR"),
		Stylesheet: getenv("TEXSHOT_STYLESHEET"),
		LogLevel:   getenv("TEXSHOT_LOG_LEVEL"),
		LogFormat:  getenv("TEXSHOT_LOG_FORMAT"),
		BrowserBin: getenv("ROD_BROWSER_BIN"),
		NoSandbox:  getenv("ROD_NO_SANDBOX") == "1",
	}

	if timeout := getenv("TEXSHOT_TIMEOUT"); timeout != "" {
		if d, err := time.ParseDuration(timeout); err == nil && d > 0 {
			cfg.Timeout = d
		}
	}

	if workers := getenv("TEXSHOT_WORKERS"); workers != "" {
		if w, err := strconv.Atoi(workers); err == nil && w > 0 {
			cfg.Workers = w
		}
	}

	return cfg
}

// warnUnknownEnvVars writes a warning for each unrecognized TEXSHOT_* variable.
func warnUnknownEnvVars(w io.Writer, environ []string) {
	for _, env := range environ {
		if !strings.HasPrefix(env, "TEXSHOT_") {
			continue
		}
		name := strings.SplitN(env, "=", 2)[0]
		if !knownEnvVars[name] {
			fmt.Fprintf(w, "warning: unknown environment variable %s (typo?)\n", name)
		}
	}
}

// applyEnvConfig applies environment values to cfg.
// Environment values override the config file; CLI flags are applied later
// by mergeFlags: CLI flags > env vars > config file > defaults.
func applyEnvConfig(env *envConfig, cfg *config.Config) {
	if env.Timeout > 0 {
		cfg.Engine.Timeout = env.Timeout.String()
	}
	if env.Typesetter != "" {
		cfg.Typeset.Backend = env.Typesetter
	}
	if env.KaTeXCmd != "" {
		cfg.Typeset.Command = env.KaTeXCmd
	}
	if env.OutputDir != "" {
		cfg.Output.Dir = env.OutputDir
	}
	if env.Stylesheet != "" {
		cfg.Document.StylesheetURL = env.Stylesheet
	}
	if env.Workers > 0 {
		cfg.Engine.MaxSessions = env.Workers
	}
	if env.LogLevel != "" {
		cfg.Log.Level = env.LogLevel
	}
	if env.LogFormat != "" {
		cfg.Log.Format = env.LogFormat
	}
	if env.BrowserBin != "" {
		cfg.Engine.BrowserBin = env.BrowserBin
	}
	if env.NoSandbox {
		cfg.Engine.NoSandbox = true
	}
}
