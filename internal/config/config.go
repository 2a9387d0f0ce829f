package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/alnah/go-texshot/internal/fileutil"
	"github.com/alnah/go-texshot/internal/yamlutil"
)

// Sentinel errors for config operations.
var (
	ErrConfigNotFound  = errors.New("config file not found")
	ErrEmptyConfigName = errors.New("config name cannot be empty")
	ErrConfigParse     = errors.New("failed to parse config")
	ErrFieldTooLong    = errors.New("field exceeds maximum length")
	ErrInvalidValue    = errors.New("invalid config value")
)

// Field length limits.
const (
	MaxPathLength     = 4096
	MaxURLLength      = 2048 // Browser limit
	MaxCommandLength  = 512
	MaxFontSizeLength = 16 // "2.5em", "32px"
)

// Upper bounds for numeric settings.
const (
	MaxSessions = 64
	MaxWidth    = 8192
)

// Typesetter backends.
const (
	BackendKaTeX  = "katex"
	BackendMathML = "mathml"
)

// StylesheetNone as document.stylesheetURL links no external stylesheet.
const StylesheetNone = "none"

// Config holds all configuration for rendering.
type Config struct {
	Engine   EngineConfig   `yaml:"engine"`
	Typeset  TypesetConfig  `yaml:"typeset"`
	Document DocumentConfig `yaml:"document"`
	Output   OutputConfig   `yaml:"output"`
	Log      LogConfig      `yaml:"log"`
}

// EngineConfig defines headless browser options.
type EngineConfig struct {
	BrowserBin  string `yaml:"browserBin"`  // Empty = rod lookup/download
	NoSandbox   bool   `yaml:"noSandbox"`   // Required in most containers
	Timeout     string `yaml:"timeout"`     // Per render, Go duration (default: 30s)
	MaxSessions int    `yaml:"maxSessions"` // 0 = derived from CPU count
}

// TypesetConfig defines the markup typesetter.
type TypesetConfig struct {
	Backend string `yaml:"backend"` // "katex" or "mathml" (default: "katex")
	Command string `yaml:"command"` // KaTeX command line (default: "katex")
}

// DocumentConfig defines the render document.
type DocumentConfig struct {
	StylesheetURL string `yaml:"stylesheetURL"` // Empty = KaTeX CDN stylesheet, "none" = no link
	FontSize      string `yaml:"fontSize"`      // CSS length (default: "2.5em")
	AssetPath     string `yaml:"assetPath"`     // Empty = embedded assets
}

// OutputConfig defines image output options.
type OutputConfig struct {
	Dir      string `yaml:"dir"`      // Default output directory (empty = current)
	MaxWidth int    `yaml:"maxWidth"` // Pixels, 0 = unlimited
	Trim     bool   `yaml:"trim"`     // Crop transparent margins
}

// LogConfig defines logging options.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

// Validate checks field lengths and value ranges.
// Called automatically by LoadConfig, but available for consumers
// who construct Config manually.
func (c *Config) Validate() error {
	if err := validateFieldLength("engine.browserBin", c.Engine.BrowserBin, MaxPathLength); err != nil {
		return err
	}
	if c.Engine.Timeout != "" {
		d, err := time.ParseDuration(c.Engine.Timeout)
		if err != nil {
			return fmt.Errorf("%w: engine.timeout: %v", ErrInvalidValue, err)
		}
		if d <= 0 {
			return fmt.Errorf("%w: engine.timeout: must be positive, got %s", ErrInvalidValue, d)
		}
	}
	if c.Engine.MaxSessions < 0 || c.Engine.MaxSessions > MaxSessions {
		return fmt.Errorf("%w: engine.maxSessions: must be between 0 and %d, got %d", ErrInvalidValue, MaxSessions, c.Engine.MaxSessions)
	}

	switch strings.ToLower(c.Typeset.Backend) {
	case "", BackendKaTeX, BackendMathML:
	default:
		return fmt.Errorf("%w: typeset.backend: %q (must be %s or %s)", ErrInvalidValue, c.Typeset.Backend, BackendKaTeX, BackendMathML)
	}
	if err := validateFieldLength("typeset.command", c.Typeset.Command, MaxCommandLength); err != nil {
		return err
	}

	if err := validateFieldLength("document.stylesheetURL", c.Document.StylesheetURL, MaxURLLength); err != nil {
		return err
	}
	if err := validateFieldLength("document.fontSize", c.Document.FontSize, MaxFontSizeLength); err != nil {
		return err
	}
	if err := validateFieldLength("document.assetPath", c.Document.AssetPath, MaxPathLength); err != nil {
		return err
	}

	if err := validateFieldLength("output.dir", c.Output.Dir, MaxPathLength); err != nil {
		return err
	}
	if c.Output.MaxWidth < 0 || c.Output.MaxWidth > MaxWidth {
		return fmt.Errorf("%w: output.maxWidth: must be between 0 and %d, got %d", ErrInvalidValue, MaxWidth, c.Output.MaxWidth)
	}

	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("%w: log.format: %q (must be text or json)", ErrInvalidValue, c.Log.Format)
	}
	switch strings.ToLower(c.Log.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: log.level: %q", ErrInvalidValue, c.Log.Level)
	}

	return nil
}

// TimeoutDuration returns the parsed engine timeout, or 0 when unset or invalid.
func (c *Config) TimeoutDuration() time.Duration {
	if c.Engine.Timeout == "" {
		return 0
	}
	d, err := time.ParseDuration(c.Engine.Timeout)
	if err != nil {
		return 0
	}
	return d
}

// validateFieldLength checks if a field exceeds its maximum allowed length.
func validateFieldLength(fieldName, value string, maxLength int) error {
	if len(value) > maxLength {
		return fmt.Errorf("%w: %s (%d chars, max %d)", ErrFieldTooLong, fieldName, len(value), maxLength)
	}
	return nil
}

// DefaultConfig returns a configuration that leaves every value to the library defaults.
func DefaultConfig() *Config {
	return &Config{
		Typeset: TypesetConfig{Backend: BackendKaTeX},
	}
}

// LoadConfig loads configuration from a file path or config name.
// If nameOrPath contains a path separator, it's treated as a file path.
// Otherwise, it's treated as a config name and searched in standard locations.
// Returns error if the file is not found (no silent fallback).
func LoadConfig(nameOrPath string) (*Config, error) {
	if nameOrPath == "" {
		return nil, ErrEmptyConfigName
	}

	var configPath string
	var err error

	if fileutil.IsFilePath(nameOrPath) {
		configPath = nameOrPath
	} else {
		configPath, err = resolveConfigPath(nameOrPath)
		if err != nil {
			return nil, err
		}
	}

	f, err := os.Open(configPath) // #nosec G304 -- config path is user-provided
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, configPath)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	defer func() { _ = f.Close() }()

	cfg := DefaultConfig()
	if err := yamlutil.Decode(f, cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigParse, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// SearchPaths lists the candidate files for a config name, in lookup order.
func SearchPaths(name string) []string {
	extensions := []string{".yaml", ".yml"}
	paths := make([]string, 0, len(extensions)*2)

	for _, ext := range extensions {
		paths = append(paths, name+ext)
	}
	if userConfigDir, err := os.UserConfigDir(); err == nil {
		for _, ext := range extensions {
			paths = append(paths, filepath.Join(userConfigDir, "go-texshot", name+ext))
		}
	}
	return paths
}

// resolveConfigPath searches for a config file by name in standard locations:
// current directory, then the user config directory, .yaml before .yml.
func resolveConfigPath(name string) (string, error) {
	paths := SearchPaths(name)
	for _, p := range paths {
		if fileutil.FileExists(p) {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: tried %s", ErrConfigNotFound, strings.Join(paths, ", "))
}
