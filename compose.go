package texshot

import (
	"bytes"
	"fmt"
	"html/template"
	"net/url"
	"regexp"
	"strings"

	"github.com/alnah/go-texshot/internal/assets"
)

// ContentID is the id of the single element wrapping the typeset fragment.
const ContentID = "math"

// Document defaults.
const (
	DefaultStylesheetURL = "https://cdn.jsdelivr.net/npm/katex@0.16.8/dist/katex.min.css"
	DefaultFontSize      = "2.5em"
)

// fontSizePattern accepts CSS lengths such as "2.5em", "32px" or "200%".
var fontSizePattern = regexp.MustCompile(`^\d+(\.\d+)?(em|rem|px|pt|%)$`)

// Document is a self-contained HTML page wrapping one typeset fragment.
type Document struct {
	HTML      string
	ContentID string
}

// documentData feeds the document template.
type documentData struct {
	StylesheetURL template.URL
	CSS           template.CSS
	ContentID     string
	Fragment      template.HTML
}

// Composer wraps fragments into render documents.
type Composer struct {
	tmpl          *template.Template
	css           string
	stylesheetURL string
}

// NewComposer loads the document template and layout CSS from loader.
// stylesheetURL may be empty to omit the external stylesheet.
func NewComposer(loader assets.AssetLoader, stylesheetURL, fontSize string) (*Composer, error) {
	if err := validateStylesheetURL(stylesheetURL); err != nil {
		return nil, err
	}
	if !fontSizePattern.MatchString(fontSize) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidFontSize, fontSize)
	}

	source, err := loader.LoadTemplate(assets.DocumentTemplateName)
	if err != nil {
		return nil, fmt.Errorf("loading document template: %w", err)
	}
	tmpl, err := template.New(assets.DocumentTemplateName).Parse(source)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTemplate, err)
	}

	css, err := loader.LoadStyle(assets.DisplayStyleName)
	if err != nil {
		return nil, fmt.Errorf("loading display style: %w", err)
	}
	css = strings.TrimSpace(css) + fmt.Sprintf("\n\n#%s {\n  font-size: %s;\n}\n", ContentID, fontSize)

	return &Composer{tmpl: tmpl, css: css, stylesheetURL: stylesheetURL}, nil
}

// Compose wraps fragment, verbatim, into a document whose single content
// node carries the id ContentID.
func (c *Composer) Compose(fragment string) (*Document, error) {
	var buf bytes.Buffer
	err := c.tmpl.Execute(&buf, documentData{
		// #nosec G203 -- URL validated in NewComposer
		StylesheetURL: template.URL(c.stylesheetURL),
		// #nosec G203 -- CSS comes from trusted assets
		CSS:       template.CSS(c.css),
		ContentID: ContentID,
		// #nosec G203 -- fragment is typesetter output and must stay verbatim
		Fragment: template.HTML(fragment),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTemplate, err)
	}

	html := buf.String()
	if !strings.Contains(html, `id="`+ContentID+`"`) {
		return nil, fmt.Errorf("%w: template has no element with id %q", ErrTemplate, ContentID)
	}

	return &Document{HTML: html, ContentID: ContentID}, nil
}

// validateStylesheetURL accepts empty, http(s) and file URLs.
func validateStylesheetURL(raw string) error {
	if raw == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidStylesheet, err)
	}
	switch u.Scheme {
	case "http", "https", "file":
		return nil
	default:
		return fmt.Errorf("%w: unsupported scheme %q", ErrInvalidStylesheet, u.Scheme)
	}
}
