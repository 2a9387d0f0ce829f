package assets

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

//go:embed styles/*.css templates/*.html
var builtin embed.FS

// Loader reads assets from one tree: the embedded files or a directory.
type Loader struct {
	fsys fs.FS
	dir  string // real directory path, empty for the embedded tree
}

var _ AssetLoader = (*Loader)(nil)

// NewEmbeddedLoader returns a Loader over the assets compiled into the binary.
func NewEmbeddedLoader() *Loader {
	return &Loader{fsys: builtin}
}

// NewFilesystemLoader returns a Loader over dir, which must be a readable
// directory. Symlinks in dir itself are resolved once here.
func NewFilesystemLoader(dir string) (*Loader, error) {
	if dir == "" {
		return nil, fmt.Errorf("%w: empty path", ErrInvalidBasePath)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBasePath, err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBasePath, err)
	}
	info, err := os.Stat(resolved)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBasePath, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: not a directory: %s", ErrInvalidBasePath, resolved)
	}
	if _, err := os.ReadDir(resolved); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBasePath, err)
	}
	return &Loader{fsys: os.DirFS(resolved), dir: resolved}, nil
}

// LoadStyle loads styles/{name}.css.
func (l *Loader) LoadStyle(name string) (string, error) {
	return l.load(KindStyle, name)
}

// LoadTemplate loads templates/{name}.html.
func (l *Loader) LoadTemplate(name string) (string, error) {
	return l.load(KindTemplate, name)
}

func (l *Loader) load(kind Kind, name string) (string, error) {
	if err := ValidateAssetName(name); err != nil {
		return "", err
	}
	rel := kind.relPath(name)
	if err := l.contain(rel); err != nil {
		return "", err
	}

	data, err := fs.ReadFile(l.fsys, rel)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return "", kind.notFound(name)
	case err != nil:
		return "", fmt.Errorf("%w: %v", ErrAssetRead, err)
	}
	return string(data), nil
}

// contain rejects directory assets whose symlinks resolve outside l.dir.
// A missing file passes; the read reports it as not found.
func (l *Loader) contain(rel string) error {
	if l.dir == "" {
		return nil
	}
	resolved, err := filepath.EvalSymlinks(filepath.Join(l.dir, filepath.FromSlash(rel)))
	if err != nil {
		return nil
	}
	if !strings.HasPrefix(resolved, l.dir+string(filepath.Separator)) {
		return fmt.Errorf("%w: %s", ErrPathTraversal, rel)
	}
	return nil
}

// Resolver layers a directory over the embedded assets: names the
// directory does not provide fall through to the built-in copy.
type Resolver struct {
	layers []*Loader
}

var _ AssetLoader = (*Resolver)(nil)

// NewResolver returns a Resolver. An empty dir means embedded assets only.
func NewResolver(dir string) (*Resolver, error) {
	r := &Resolver{}
	if dir != "" {
		custom, err := NewFilesystemLoader(dir)
		if err != nil {
			return nil, err
		}
		r.layers = append(r.layers, custom)
	}
	r.layers = append(r.layers, NewEmbeddedLoader())
	return r, nil
}

// Custom reports whether a directory layer is configured.
func (r *Resolver) Custom() bool {
	return len(r.layers) > 1
}

// LoadStyle loads a style from the first layer that has it.
func (r *Resolver) LoadStyle(name string) (string, error) {
	return r.load(KindStyle, name)
}

// LoadTemplate loads a template from the first layer that has it.
func (r *Resolver) LoadTemplate(name string) (string, error) {
	return r.load(KindTemplate, name)
}

func (r *Resolver) load(kind Kind, name string) (string, error) {
	var err error
	for _, layer := range r.layers {
		var content string
		content, err = layer.load(kind, name)
		if err == nil {
			return content, nil
		}
		// Only a miss falls through; validation and I/O errors surface.
		if !errors.Is(err, kindLayout[kind].notFound) {
			return "", err
		}
	}
	return "", err
}
