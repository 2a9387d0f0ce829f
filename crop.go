package texshot

import (
	"context"
	"fmt"

	"github.com/alnah/go-texshot/internal/imageutil"
)

// fallbackSelector is captured when the content node is missing.
const fallbackSelector = "body"

// trimPadding is kept around the opaque area when trimming.
const trimPadding = 2

// Result is a cropped capture.
type Result struct {
	PNG    []byte
	Width  int
	Height int
}

// Cropper captures exactly the bounding box of the content node.
type Cropper struct {
	// MaxWidth downscales wider captures; 0 keeps the native size.
	MaxWidth int
	// Trim removes transparent margins left inside the box.
	Trim bool
}

// Capture screenshots the element with id contentID, falling back to the
// document body when it does not exist. A box with no area fails with
// ErrElementGeometry.
func (c *Cropper) Capture(ctx context.Context, s Session, contentID string) (*Result, error) {
	box, found, err := s.Bounds(ctx, "#"+contentID)
	if err != nil {
		return nil, err
	}
	selector := "#" + contentID
	if !found {
		selector = fallbackSelector
		box, found, err = s.Bounds(ctx, fallbackSelector)
		if err != nil {
			return nil, err
		}
		if !found {
			return nil, fmt.Errorf("%w: neither #%s nor %s present", ErrElementGeometry, contentID, fallbackSelector)
		}
	}
	if box.Empty() {
		return nil, fmt.Errorf("%w: %s has size %gx%g", ErrElementGeometry, selector, box.Width, box.Height)
	}

	data, err := s.Capture(ctx, box)
	if err != nil {
		return nil, err
	}
	if !imageutil.IsPNG(data) {
		return nil, fmt.Errorf("%w: capture is not a PNG image", ErrScreenshot)
	}

	return c.postProcess(data)
}

// postProcess applies trimming and width fitting, and reads the final size.
func (c *Cropper) postProcess(data []byte) (*Result, error) {
	if !c.Trim && c.MaxWidth <= 0 {
		w, h, err := imageutil.Dimensions(data)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrScreenshot, err)
		}
		return &Result{PNG: data, Width: w, Height: h}, nil
	}

	img, err := imageutil.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrScreenshot, err)
	}
	if c.Trim {
		img = imageutil.TrimTransparent(img, trimPadding)
	}
	img = imageutil.FitWidth(img, c.MaxWidth)

	out, err := imageutil.Encode(img)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrScreenshot, err)
	}
	b := img.Bounds()
	return &Result{PNG: out, Width: b.Dx(), Height: b.Dy()}, nil
}
