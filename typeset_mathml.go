package texshot

import (
	"bytes"
	"context"
	"strings"

	treeblood "github.com/wyatt915/goldmark-treeblood"
	"github.com/yuin/goldmark"
)

// MathMLTypesetter converts markup to MathML in-process.
// No external binary is needed; browsers render MathML natively.
type MathMLTypesetter struct {
	md goldmark.Markdown
}

// Compile-time interface check.
var _ Typesetter = (*MathMLTypesetter)(nil)

// NewMathMLTypesetter creates a MathMLTypesetter.
func NewMathMLTypesetter() *MathMLTypesetter {
	return &MathMLTypesetter{
		md: goldmark.New(
			goldmark.WithExtensions(
				treeblood.MathML(),
			),
		),
	}
}

// Typeset wraps markup in display delimiters and converts it to MathML.
func (m *MathMLTypesetter) Typeset(ctx context.Context, markup string) (string, error) {
	markup = strings.TrimSpace(markup)
	if markup == "" {
		return "", ErrEmptyMarkup
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := m.md.Convert([]byte("$$"+markup+"$$"), &buf); err != nil {
		return "", &MarkupError{Err: err}
	}

	out := strings.TrimSpace(buf.String())
	if !strings.Contains(out, "<math") {
		return "", &MarkupError{Stderr: "no MathML produced for input"}
	}
	return out, nil
}
