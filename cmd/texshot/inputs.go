package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/alnah/go-texshot/internal/config"
)

// Sentinel errors for input discovery.
var (
	ErrNoInput        = errors.New("no input specified")
	ErrReadInput      = errors.New("failed to read input")
	ErrWriteImage     = errors.New("failed to write image")
	ErrInvalidWorkers = errors.New("invalid worker count")
)

// stdinArg selects standard input.
const stdinArg = "-"

// inputExtensions are the file types read as messages.
var inputExtensions = map[string]bool{
	".tex": true,
	".txt": true,
	".md":  true,
}

// inputKind tells how an input was given.
type inputKind int

const (
	inputText inputKind = iota // positional argument used as the message itself
	inputFile
	inputStdin
)

// Input is one message to render.
type Input struct {
	Name       string // file path, "stdin" or "arg N"
	Text       string
	OutputPath string

	kind    inputKind
	baseDir string // directory argument a file was found under
}

// collectInputs turns positional arguments into messages. Each argument is
// "-" for stdin, an input file, a directory scanned for input files, or
// otherwise the message text itself.
func collectInputs(args []string, stdin io.Reader) ([]Input, error) {
	if len(args) == 0 {
		return nil, ErrNoInput
	}

	var inputs []Input
	stdinUsed := false

	for i, arg := range args {
		switch {
		case arg == stdinArg:
			if stdinUsed {
				return nil, fmt.Errorf("%w: stdin given more than once", ErrUsage)
			}
			stdinUsed = true
			data, err := io.ReadAll(stdin)
			if err != nil {
				return nil, fmt.Errorf("%w: stdin: %v", ErrReadInput, err)
			}
			inputs = append(inputs, Input{Name: "stdin", Text: string(data), kind: inputStdin})

		case isDir(arg):
			found, err := scanDir(arg)
			if err != nil {
				return nil, err
			}
			inputs = append(inputs, found...)

		case inputExtensions[strings.ToLower(filepath.Ext(arg))] && !strings.ContainsAny(arg, "$\n"):
			data, err := os.ReadFile(arg) // #nosec G304 -- user-provided input path
			if err != nil {
				return nil, fmt.Errorf("%w: %s: %w", ErrReadInput, arg, err)
			}
			inputs = append(inputs, Input{Name: arg, Text: string(data), kind: inputFile})

		default:
			inputs = append(inputs, Input{Name: fmt.Sprintf("arg %d", i+1), Text: arg, kind: inputText})
		}
	}

	if len(inputs) == 0 {
		return nil, ErrNoInput
	}
	return inputs, nil
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// scanDir finds input files under dir, in lexical order.
func scanDir(dir string) ([]Input, error) {
	var inputs []Input
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("scanning %s: %w", path, err)
		}
		if d.IsDir() || !inputExtensions[strings.ToLower(filepath.Ext(path))] {
			return nil
		}
		data, err := os.ReadFile(path) // #nosec G304 -- discovered path
		if err != nil {
			return fmt.Errorf("%w: %s: %w", ErrReadInput, path, err)
		}
		inputs = append(inputs, Input{Name: path, Text: string(data), kind: inputFile, baseDir: dir})
		return nil
	})
	return inputs, err
}

// assignOutputs sets OutputPath on every input. output is the -o value and
// defaultDir the configured output directory; ext is "png" or "html".
// A single input whose -o carries the extension is written exactly there.
// File inputs otherwise land next to their source (or mirrored under the
// output directory), text inputs in the output directory or ".".
// Clashing names get a numeric suffix.
func assignOutputs(inputs []Input, output, defaultDir, ext string) {
	suffix := "." + ext
	if len(inputs) == 1 && strings.EqualFold(filepath.Ext(output), suffix) {
		inputs[0].OutputPath = output
		return
	}

	dir := output
	if dir == "" {
		dir = defaultDir
	}

	used := make(map[string]int, len(inputs))
	textCount := 0
	for i := range inputs {
		in := &inputs[i]
		var path string

		switch in.kind {
		case inputFile:
			base := strings.TrimSuffix(filepath.Base(in.Name), filepath.Ext(in.Name))
			switch {
			case dir == "":
				path = filepath.Join(filepath.Dir(in.Name), base)
			case in.baseDir != "":
				rel, err := filepath.Rel(in.baseDir, filepath.Dir(in.Name))
				if err != nil {
					rel = ""
				}
				path = filepath.Join(dir, rel, base)
			default:
				path = filepath.Join(dir, base)
			}
		case inputStdin:
			path = filepath.Join(dirOrCwd(dir), "stdin")
		default:
			textCount++
			path = filepath.Join(dirOrCwd(dir), fmt.Sprintf("equation-%d", textCount))
		}

		used[path]++
		if n := used[path]; n > 1 {
			path = fmt.Sprintf("%s-%d", path, n)
		}
		in.OutputPath = path + suffix
	}
}

func dirOrCwd(dir string) string {
	if dir == "" {
		return "."
	}
	return dir
}

// validateWorkers checks that the worker count is within valid bounds.
func validateWorkers(n int) error {
	if n < 0 {
		return fmt.Errorf("%w: %d (must be >= 0, 0 means auto)", ErrInvalidWorkers, n)
	}
	if n > config.MaxSessions {
		return fmt.Errorf("%w: %d (maximum is %d)", ErrInvalidWorkers, n, config.MaxSessions)
	}
	return nil
}
