package main

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	flag "github.com/spf13/pflag"
)

// Shell is a shell completion scripts can be generated for.
type Shell string

// Supported shells.
const (
	ShellBash Shell = "bash"
	ShellZsh  Shell = "zsh"
	ShellFish Shell = "fish"
)

// ErrUnsupportedShell is returned when an unknown shell is requested.
var ErrUnsupportedShell = errors.New("unsupported shell")

// flagType is the completion type of a flag.
type flagType int

const (
	flagString flagType = iota
	flagBool
	flagInt
	flagEnum
	flagFile
	flagDir
)

// flagDef describes a flag for completion.
type flagDef struct {
	Long     string
	Short    string
	Type     flagType
	Desc     string
	Values   []string // flagEnum
	FileGlob []string // flagFile, extensions without dot
}

// completionMeta holds completion hints that a FlagSet cannot express.
type completionMeta struct {
	Values   []string
	FileGlob []string
	IsDir    bool
}

// flagCompletionMeta is the only place completion hints are defined.
// Names, types and descriptions come from the render FlagSet.
var flagCompletionMeta = map[string]completionMeta{
	"typesetter":   {Values: []string{"katex", "mathml"}},
	"log-level":    {Values: []string{"debug", "info", "warn", "error"}},
	"log-format":   {Values: []string{"text", "json"}},
	"config":       {FileGlob: []string{"yaml", "yml"}},
	"metrics-file": {FileGlob: []string{"prom"}},
	"browser-bin":  {FileGlob: []string{"*"}},
	"output":       {IsDir: true},
	"asset-path":   {IsDir: true},
}

// commandNames lists the subcommands offered as the first word.
var commandNames = []string{"render", "config", "doctor", "completion", "version", "help"}

// extractFlags turns a FlagSet into completion definitions.
func extractFlags(fs *flag.FlagSet) []flagDef {
	var defs []flagDef
	fs.VisitAll(func(f *flag.Flag) {
		fd := flagDef{Long: f.Name, Short: f.Shorthand, Desc: f.Usage}

		switch f.Value.Type() {
		case "bool":
			fd.Type = flagBool
		case "int":
			fd.Type = flagInt
		default:
			fd.Type = flagString
		}

		if meta, ok := flagCompletionMeta[f.Name]; ok {
			switch {
			case len(meta.Values) > 0:
				fd.Type = flagEnum
				fd.Values = meta.Values
			case len(meta.FileGlob) > 0:
				fd.Type = flagFile
				fd.FileGlob = meta.FileGlob
			case meta.IsDir:
				fd.Type = flagDir
			}
		}
		defs = append(defs, fd)
	})
	return defs
}

// renderFlagDefs returns the completion definitions of the render flags.
func renderFlagDefs() []flagDef {
	return extractFlags(newRenderFlagSet(&renderFlags{}))
}

// GenerateCompletion writes the completion script for shell to w.
func GenerateCompletion(w io.Writer, shell Shell) error {
	defs := renderFlagDefs()
	switch shell {
	case ShellBash:
		return generateBash(w, defs)
	case ShellZsh:
		// zsh runs the bash script through bashcompinit.
		if _, err := fmt.Fprintln(w, "autoload -U +X bashcompinit && bashcompinit"); err != nil {
			return err
		}
		return generateBash(w, defs)
	case ShellFish:
		return generateFish(w, defs)
	default:
		return fmt.Errorf("%w: %q (supported: bash, zsh, fish)", ErrUnsupportedShell, shell)
	}
}

func generateBash(w io.Writer, defs []flagDef) error {
	var b strings.Builder
	var words []string
	cases := map[string]string{}

	for _, fd := range defs {
		names := []string{"--" + fd.Long}
		if fd.Short != "" {
			names = append(names, "-"+fd.Short)
		}
		words = append(words, names...)

		var reply string
		switch fd.Type {
		case flagEnum:
			reply = fmt.Sprintf(`COMPREPLY=( $(compgen -W "%s" -- "$cur") )`, strings.Join(fd.Values, " "))
		case flagDir:
			reply = `COMPREPLY=( $(compgen -d -- "$cur") )`
		case flagFile:
			if fd.FileGlob[0] == "*" {
				reply = `COMPREPLY=( $(compgen -f -- "$cur") )`
			} else {
				reply = fmt.Sprintf(`COMPREPLY=( $(compgen -f -X '!*.@(%s)' -- "$cur") $(compgen -d -- "$cur") )`, strings.Join(fd.FileGlob, "|"))
			}
		case flagInt, flagString:
			reply = "COMPREPLY=()"
		default:
			continue
		}
		cases[strings.Join(names, "|")] = reply
	}

	patterns := make([]string, 0, len(cases))
	for p := range cases {
		patterns = append(patterns, p)
	}
	sort.Strings(patterns)

	b.WriteString("# bash completion for texshot\n")
	b.WriteString("shopt -s extglob\n")
	b.WriteString("_texshot() {\n")
	b.WriteString("    local cur prev\n")
	b.WriteString("    cur=\"${COMP_WORDS[COMP_CWORD]}\"\n")
	b.WriteString("    prev=\"${COMP_WORDS[COMP_CWORD-1]}\"\n\n")
	b.WriteString("    case \"$prev\" in\n")
	for _, p := range patterns {
		fmt.Fprintf(&b, "        %s)\n            %s\n            return ;;\n", p, cases[p])
	}
	b.WriteString("    esac\n\n")
	b.WriteString("    if [[ \"$cur\" == -* ]]; then\n")
	fmt.Fprintf(&b, "        COMPREPLY=( $(compgen -W \"%s\" -- \"$cur\") )\n", strings.Join(words, " "))
	b.WriteString("        return\n")
	b.WriteString("    fi\n")
	b.WriteString("    if [[ $COMP_CWORD -eq 1 ]]; then\n")
	fmt.Fprintf(&b, "        COMPREPLY=( $(compgen -W \"%s\" -- \"$cur\") $(compgen -f -- \"$cur\") )\n", strings.Join(commandNames, " "))
	b.WriteString("        return\n")
	b.WriteString("    fi\n")
	b.WriteString("    COMPREPLY=( $(compgen -f -- \"$cur\") )\n")
	b.WriteString("}\n")
	b.WriteString("complete -o filenames -F _texshot texshot\n")

	_, err := io.WriteString(w, b.String())
	return err
}

func generateFish(w io.Writer, defs []flagDef) error {
	var b strings.Builder
	b.WriteString("# fish completion for texshot\n")
	for _, name := range commandNames {
		fmt.Fprintf(&b, "complete -c texshot -n '__fish_use_subcommand' -a %s\n", name)
	}
	for _, fd := range defs {
		fmt.Fprintf(&b, "complete -c texshot -l %s", fd.Long)
		if fd.Short != "" {
			fmt.Fprintf(&b, " -s %s", fd.Short)
		}
		switch fd.Type {
		case flagEnum:
			fmt.Fprintf(&b, " -x -a '%s'", strings.Join(fd.Values, " "))
		case flagDir:
			b.WriteString(" -x -a '(__fish_complete_directories)'")
		case flagFile:
			b.WriteString(" -r -F")
		case flagInt, flagString:
			b.WriteString(" -x")
		}
		fmt.Fprintf(&b, " -d %s\n", fishQuote(fd.Desc))
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// fishQuote single-quotes s for fish.
func fishQuote(s string) string {
	return "'" + strings.ReplaceAll(strings.ReplaceAll(s, `\`, `\\`), "'", `\'`) + "'"
}

// runCompletion handles the completion command.
func runCompletion(args []string, env *Environment) int {
	if len(args) == 0 {
		printCompletionUsage(env.Stdout)
		return ExitSuccess
	}
	if err := GenerateCompletion(env.Stdout, Shell(args[0])); err != nil {
		fmt.Fprintln(env.Stderr, err)
		if errors.Is(err, ErrUnsupportedShell) {
			return ExitUsage
		}
		return ExitGeneral
	}
	return ExitSuccess
}

// printCompletionUsage prints help for the completion command.
func printCompletionUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: texshot completion <shell>")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Generate a shell completion script.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Supported shells: bash, zsh, fish")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Installation:")
	fmt.Fprintln(w, "  Bash:  eval \"$(texshot completion bash)\"     # in ~/.bashrc")
	fmt.Fprintln(w, "  Zsh:   eval \"$(texshot completion zsh)\"      # in ~/.zshrc")
	fmt.Fprintln(w, "  Fish:  texshot completion fish > ~/.config/fish/completions/texshot.fish")
}
