// Package imageutil post-processes captured PNG images.
package imageutil

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"

	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/image/draw"
)

// ErrNotPNG is returned when data does not sniff as a PNG image.
var ErrNotPNG = errors.New("data is not a PNG image")

const pngMIME = "image/png"

// IsPNG reports whether data carries a PNG signature.
func IsPNG(data []byte) bool {
	return mimetype.Detect(data).Is(pngMIME)
}

// Decode parses PNG data.
func Decode(data []byte) (image.Image, error) {
	if !IsPNG(data) {
		return nil, fmt.Errorf("%w: detected %s", ErrNotPNG, mimetype.Detect(data).String())
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding png: %w", err)
	}
	return img, nil
}

// Encode serializes img as PNG.
func Encode(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestCompression}
	if err := enc.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding png: %w", err)
	}
	return buf.Bytes(), nil
}

// Dimensions returns the pixel size of PNG data without decoding pixels.
func Dimensions(data []byte) (width, height int, err error) {
	if !IsPNG(data) {
		return 0, 0, ErrNotPNG
	}
	cfg, err := png.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, fmt.Errorf("reading png header: %w", err)
	}
	return cfg.Width, cfg.Height, nil
}

// OpaqueBounds returns the smallest rectangle holding every pixel with
// non-zero alpha. ok is false for a fully transparent image.
func OpaqueBounds(img image.Image) (r image.Rectangle, ok bool) {
	b := img.Bounds()
	minX, minY, maxX, maxY := b.Max.X, b.Max.Y, b.Min.X, b.Min.Y

	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if _, _, _, a := img.At(x, y).RGBA(); a == 0 {
				continue
			}
			minX = min(minX, x)
			minY = min(minY, y)
			maxX = max(maxX, x+1)
			maxY = max(maxY, y+1)
		}
	}

	if minX >= maxX || minY >= maxY {
		return image.Rectangle{}, false
	}
	return image.Rect(minX, minY, maxX, maxY), true
}

// TrimTransparent crops transparent margins, keeping padding pixels around
// the opaque area. A fully transparent image is returned unchanged.
func TrimTransparent(img image.Image, padding int) image.Image {
	r, ok := OpaqueBounds(img)
	if !ok {
		return img
	}
	r = r.Inset(-max(padding, 0)).Intersect(img.Bounds())
	if r == img.Bounds() {
		return img
	}

	dst := image.NewNRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	draw.Draw(dst, dst.Bounds(), img, r.Min, draw.Src)
	return dst
}

// FitWidth downscales img so it is at most maxWidth pixels wide, keeping the
// aspect ratio. Images already narrow enough and maxWidth <= 0 are returned unchanged.
func FitWidth(img image.Image, maxWidth int) image.Image {
	b := img.Bounds()
	if maxWidth <= 0 || b.Dx() <= maxWidth {
		return img
	}

	targetH := max(1, b.Dy()*maxWidth/b.Dx())
	dst := image.NewNRGBA(image.Rect(0, 0, maxWidth, targetH))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}
