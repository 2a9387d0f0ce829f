package main

import (
	"fmt"
	"io"
)

// printUsage prints the main usage message.
func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: texshot [flags] <text|file|dir|->...")
	fmt.Fprintln(w, "       texshot <command> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Render the first $$...$$ block of each input as a cropped, transparent PNG.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  render     Render inputs (default)")
	fmt.Fprintln(w, "  config     Print the effective configuration")
	fmt.Fprintln(w, "  doctor     Check system configuration")
	fmt.Fprintln(w, "  completion Generate shell completion script")
	fmt.Fprintln(w, "  version    Show version information")
	fmt.Fprintln(w, "  help       Show help for a command")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Run 'texshot help <command>' for details on a specific command.")
}

// printRenderUsage prints usage for the render command.
func printRenderUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: texshot [render] <input>... [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Render the first $$...$$ block of each input. Inputs without one are skipped.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Arguments:")
	fmt.Fprintln(w, "  input    Message text, .tex/.txt/.md file, directory, or - for stdin")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Input/Output:")
	fmt.Fprintln(w, "  -o, --output <path>       Output .png (single input) or directory")
	fmt.Fprintln(w, "  -c, --config <name>       Config file name or path")
	fmt.Fprintln(w, "  -w, --workers <n>         Concurrent renders (0 = auto)")
	fmt.Fprintln(w, "      --html-only           Write the render document instead of a PNG")
	fmt.Fprintln(w, "      --metrics-file <path> Write Prometheus metrics on exit")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Typesetting:")
	fmt.Fprintln(w, "      --typesetter <s>      katex (default) or mathml")
	fmt.Fprintln(w, "      --katex-cmd <cmd>     KaTeX command line (default: katex)")
	fmt.Fprintln(w, "      --stylesheet <url>    Stylesheet URL (http(s) or file://), \"none\" for no link")
	fmt.Fprintln(w, "      --font-size <css>     Equation font size (default: 2.5em)")
	fmt.Fprintln(w, "      --asset-path <dir>    Override embedded templates and styles")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Image:")
	fmt.Fprintln(w, "      --max-width <px>      Downscale wider images (0 = off)")
	fmt.Fprintln(w, "      --trim                Crop transparent margins")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Browser:")
	fmt.Fprintln(w, "  -t, --timeout <dur>       Per-render timeout (default: 30s)")
	fmt.Fprintln(w, "      --browser-bin <path>  Chrome/Chromium binary")
	fmt.Fprintln(w, "      --no-sandbox          Disable the Chrome sandbox (containers)")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Output control:")
	fmt.Fprintln(w, "  -q, --quiet               Only show errors")
	fmt.Fprintln(w, "  -v, --verbose             Show timing and diagnostics")
	fmt.Fprintln(w, "      --log-level <s>       debug, info, warn, error")
	fmt.Fprintln(w, "      --log-format <s>      text or json")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Environment:")
	fmt.Fprintln(w, "  TEXSHOT_CONFIG, TEXSHOT_TIMEOUT, TEXSHOT_TYPESETTER, TEXSHOT_KATEX_CMD,")
	fmt.Fprintln(w, "  TEXSHOT_OUTPUT_DIR, TEXSHOT_STYLESHEET, TEXSHOT_WORKERS,")
	fmt.Fprintln(w, "  TEXSHOT_LOG_LEVEL, TEXSHOT_LOG_FORMAT, ROD_BROWSER_BIN, ROD_NO_SANDBOX")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Exit codes:")
	fmt.Fprintln(w, "  0 success, 1 general, 2 usage, 3 I/O, 4 browser, 5 markup")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Examples:")
	fmt.Fprintln(w, "  texshot 'Euler: $$e^{i\\pi} + 1 = 0$$' -o euler.png")
	fmt.Fprintln(w, "  texshot notes/ -o images/ --trim")
	fmt.Fprintln(w, "  echo '$$\\sum_{k=1}^n k$$' | texshot - --typesetter mathml")
}

// printConfigUsage prints usage for the config command.
func printConfigUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: texshot config [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Print the configuration after merging the config file, TEXSHOT_* variables")
	fmt.Fprintln(w, "and flags. Accepts the same flags as render.")
}

// printDoctorUsage prints usage for the doctor command.
func printDoctorUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: texshot doctor [--json]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Check Chrome, both typesetters, sandbox settings and the temp directory.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fmt.Fprintln(w, "      --json    Output results as JSON")
}

// runHelp prints help for the given command.
func runHelp(args []string, env *Environment) int {
	if len(args) == 0 {
		printUsage(env.Stdout)
		return ExitSuccess
	}

	switch args[0] {
	case "render":
		printRenderUsage(env.Stdout)
	case "config":
		printConfigUsage(env.Stdout)
	case "doctor":
		printDoctorUsage(env.Stdout)
	case "completion":
		printCompletionUsage(env.Stdout)
	case "version":
		fmt.Fprintln(env.Stdout, "Usage: texshot version")
		fmt.Fprintln(env.Stdout)
		fmt.Fprintln(env.Stdout, "Show version information.")
	case "help":
		fmt.Fprintln(env.Stdout, "Usage: texshot help [command]")
	default:
		fmt.Fprintf(env.Stderr, "unknown command: %s\n", args[0])
		printUsage(env.Stderr)
		return ExitUsage
	}
	return ExitSuccess
}
