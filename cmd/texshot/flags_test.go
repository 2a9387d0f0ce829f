package main

import (
	"errors"
	"reflect"
	"testing"
)

// ---------------------------------------------------------------------------
// TestParseRenderFlags - Flag parsing
// ---------------------------------------------------------------------------

func TestParseRenderFlags(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		args           []string
		wantPositional []string
		check          func(t *testing.T, f *renderFlags)
	}{
		{
			name:           "positional only",
			args:           []string{"$$x$$", "notes.tex"},
			wantPositional: []string{"$$x$$", "notes.tex"},
			check: func(t *testing.T, f *renderFlags) {
				if len(f.set) != 0 {
					t.Errorf("set = %v, want empty", f.set)
				}
			},
		},
		{
			name:           "short flags",
			args:           []string{"-o", "out.png", "-w", "3", "-t", "10s", "-c", "work", "-v", "in.tex"},
			wantPositional: []string{"in.tex"},
			check: func(t *testing.T, f *renderFlags) {
				if f.output != "out.png" || f.workers != 3 || f.engine.timeout != "10s" || f.common.config != "work" || !f.common.verbose {
					t.Errorf("short flags not bound: %+v", f)
				}
			},
		},
		{
			name:           "long flags",
			args:           []string{"--typesetter", "mathml", "--katex-cmd", "npx katex", "--stylesheet", "file:///k.css", "--font-size", "32px", "--max-width", "400", "--trim", "--html-only", "--no-sandbox", "--browser-bin", "/bin/chrome", "--log-level", "debug", "--log-format", "json", "--metrics-file", "m.prom"},
			wantPositional: nil,
			check: func(t *testing.T, f *renderFlags) {
				if f.typeset.backend != "mathml" || f.typeset.katexCmd != "npx katex" {
					t.Errorf("typeset flags = %+v", f.typeset)
				}
				if f.document.stylesheet != "file:///k.css" || f.document.fontSize != "32px" {
					t.Errorf("document flags = %+v", f.document)
				}
				if f.image.maxWidth != 400 || !f.image.trim {
					t.Errorf("image flags = %+v", f.image)
				}
				if !f.htmlOnly || !f.engine.noSandbox || f.engine.browserBin != "/bin/chrome" {
					t.Errorf("engine flags = %+v html-only=%v", f.engine, f.htmlOnly)
				}
				if f.log.level != "debug" || f.log.format != "json" || f.metricsFile != "m.prom" {
					t.Errorf("log flags = %+v metrics=%q", f.log, f.metricsFile)
				}
			},
		},
		{
			name:           "stdin dash is positional",
			args:           []string{"-", "-q"},
			wantPositional: []string{"-"},
			check: func(t *testing.T, f *renderFlags) {
				if !f.common.quiet {
					t.Error("quiet not set")
				}
			},
		},
		{
			name:           "explicit false is recorded",
			args:           []string{"--trim=false"},
			wantPositional: nil,
			check: func(t *testing.T, f *renderFlags) {
				if !f.set["trim"] || f.image.trim {
					t.Errorf("trim set=%v value=%v, want set and false", f.set["trim"], f.image.trim)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f, positional, err := parseRenderFlags(tt.args)
			if err != nil {
				t.Fatalf("parseRenderFlags() error = %v", err)
			}
			if len(positional) == 0 {
				positional = nil
			}
			if !reflect.DeepEqual(positional, tt.wantPositional) {
				t.Errorf("positional = %v, want %v", positional, tt.wantPositional)
			}
			tt.check(t, f)
		})
	}
}

func TestParseRenderFlags_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		args []string
	}{
		{name: "unknown flag", args: []string{"--frobnicate"}},
		{name: "bad integer", args: []string{"--workers", "many"}},
		{name: "missing value", args: []string{"-o"}},
		{name: "quiet and verbose", args: []string{"-q", "-v"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, _, err := parseRenderFlags(tt.args)
			if !errors.Is(err, ErrUsage) {
				t.Errorf("parseRenderFlags(%v) error = %v, want ErrUsage", tt.args, err)
			}
		})
	}
}
