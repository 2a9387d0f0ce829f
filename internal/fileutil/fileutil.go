// Package fileutil owns the transient files of a render and a few path
// predicates shared by the config and CLI layers.
package fileutil

import (
	"errors"
	"os"
	"strings"
)

// ErrScopeReleased is returned by Write on a Scope that was already released.
var ErrScopeReleased = errors.New("scope already released")

// tempPrefix names every transient file created by this package.
const tempPrefix = "texshot-"

// ProbeWritable creates and removes one transient file in dir
// ("" = system temp directory).
func ProbeWritable(dir string) error {
	scope := NewScopeIn(dir, nil)
	defer scope.Release()
	_, err := scope.Write(nil, KindDocument)
	return err
}

// FileExists reports whether path names a regular file or a symlink to one.
func FileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// IsFilePath reports whether s is a path rather than a bare config name.
// Any separator, on any platform, makes it a path.
func IsFilePath(s string) bool {
	return strings.ContainsAny(s, `/\`)
}
