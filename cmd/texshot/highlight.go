package main

import (
	"fmt"
	"io"

	"github.com/alecthomas/chroma/v2/quick"
)

// highlightMarkup prints markup with TeX syntax colouring for terminals.
// Falls back to plain text when highlighting fails.
func highlightMarkup(w io.Writer, markup string) {
	fmt.Fprint(w, "  markup: ")
	if err := quick.Highlight(w, markup, "latex", "terminal", "monokai"); err != nil {
		fmt.Fprint(w, markup)
	}
	fmt.Fprintln(w)
}
