// Package assets provides the HTML template and CSS used to compose
// render documents, from the binary or from a directory on disk.
//
// A directory passed to NewResolver mirrors the embedded layout:
//
//	{dir}/styles/display.css
//	{dir}/templates/document.html
//
// Either file may be omitted; missing names fall back to the built-in copy.
// The document template receives StylesheetURL, CSS, ContentID and Fragment
// and must render exactly one element whose id is ContentID.
package assets

import (
	"errors"
	"fmt"
	"strings"
)

// Built-in asset names.
const (
	// DocumentTemplateName is the page template wrapping the typeset fragment.
	DocumentTemplateName = "document"

	// DisplayStyleName is the layout CSS centering the content node.
	DisplayStyleName = "display"
)

// Sentinel errors for asset lookups.
var (
	ErrStyleNotFound    = errors.New("style not found")
	ErrTemplateNotFound = errors.New("template not found")
	ErrInvalidAssetName = errors.New("invalid asset name")
	ErrInvalidBasePath  = errors.New("invalid asset directory")
	ErrAssetRead        = errors.New("failed to read asset")
	ErrPathTraversal    = errors.New("asset path escapes its directory")
)

// AssetLoader loads document templates and layout styles by name.
type AssetLoader interface {
	// LoadStyle returns styles/{name}.css or ErrStyleNotFound.
	LoadStyle(name string) (string, error)
	// LoadTemplate returns templates/{name}.html or ErrTemplateNotFound.
	LoadTemplate(name string) (string, error)
}

// Kind selects an asset family.
type Kind int

const (
	KindStyle Kind = iota
	KindTemplate
)

// kindLayout maps a kind to its directory, extension and not-found error.
var kindLayout = map[Kind]struct {
	dir, ext string
	notFound error
}{
	KindStyle:    {dir: "styles", ext: ".css", notFound: ErrStyleNotFound},
	KindTemplate: {dir: "templates", ext: ".html", notFound: ErrTemplateNotFound},
}

// relPath returns the slash-separated path of name inside an asset tree.
func (k Kind) relPath(name string) string {
	l := kindLayout[k]
	return l.dir + "/" + name + l.ext
}

func (k Kind) notFound(name string) error {
	return fmt.Errorf("%w: %q", kindLayout[k].notFound, name)
}

// ValidateAssetName rejects empty names and names that could leave the
// asset directory: separators, dots and NUL bytes.
func ValidateAssetName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidAssetName)
	}
	if strings.ContainsAny(name, "/\\.\x00") {
		return fmt.Errorf("%w: %q", ErrInvalidAssetName, name)
	}
	return nil
}

// builtinLoader serves the package-level helpers.
var builtinLoader = NewEmbeddedLoader()

// LoadStyle loads a built-in style.
func LoadStyle(name string) (string, error) {
	return builtinLoader.LoadStyle(name)
}

// LoadTemplate loads a built-in template.
func LoadTemplate(name string) (string, error) {
	return builtinLoader.LoadTemplate(name)
}
