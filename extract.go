package texshot

import (
	"regexp"
	"strings"
)

// markupBlock matches the first $$...$$ pair. The content may span lines
// and the match is non-greedy, so later blocks are never swallowed.
var markupBlock = regexp.MustCompile(`(?s)\$\$(.+?)\$\$`)

// Extract returns the trimmed content of the first $$-delimited block in text.
// Returns false when no complete pair exists or the block holds only whitespace.
// Blocks after the first are ignored.
func Extract(text string) (string, bool) {
	m := markupBlock.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	markup := strings.TrimSpace(m[1])
	if markup == "" {
		return "", false
	}
	return markup, true
}

// Request is one incoming message and the markup found in it.
type Request struct {
	Text      string // raw message text
	Markup    string // first markup block, trimmed
	HasMarkup bool   // false means the message is ignored
}

// NewRequest extracts the markup block from text.
func NewRequest(text string) Request {
	markup, ok := Extract(text)
	return Request{Text: text, Markup: markup, HasMarkup: ok}
}
