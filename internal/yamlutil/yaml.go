// Package yamlutil is the only importer of the YAML library. Config files
// are decoded strictly and printed back through here.
package yamlutil

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/goccy/go-yaml"
)

// MaxDocumentSize bounds the bytes accepted from one YAML source.
const MaxDocumentSize = 1 << 20

var (
	ErrEmptyDocument    = errors.New("yamlutil: empty document")
	ErrDocumentTooLarge = errors.New("yamlutil: document too large")
	ErrNilDestination   = errors.New("yamlutil: nil destination")
)

// Decode reads one YAML document from r into v. Keys that v does not
// declare are errors carrying the line and column of the key.
func Decode(r io.Reader, v any) error {
	data, err := io.ReadAll(io.LimitReader(r, MaxDocumentSize+1))
	if err != nil {
		return fmt.Errorf("yamlutil: reading document: %w", err)
	}
	return DecodeBytes(data, v)
}

// DecodeBytes is Decode over an in-memory document.
func DecodeBytes(data []byte, v any) error {
	switch {
	case v == nil:
		return ErrNilDestination
	case len(data) > MaxDocumentSize:
		return fmt.Errorf("%w: over %d bytes", ErrDocumentTooLarge, MaxDocumentSize)
	case len(bytes.TrimSpace(data)) == 0:
		return ErrEmptyDocument
	}
	if err := yaml.UnmarshalWithOptions(data, v, yaml.Strict()); err != nil {
		return fmt.Errorf("yamlutil: %s", yaml.FormatError(err, false, false))
	}
	return nil
}

// Encode writes v to w as YAML indented by two spaces.
func Encode(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w, yaml.Indent(2))
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("yamlutil: %w", err)
	}
	return enc.Close()
}
