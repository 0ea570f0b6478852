package main

import (
	"context"
	"fmt"
	"image"
	"io"

	"github.com/disintegration/imaging"
)

// ImagingCropper crops images with disintegration/imaging and writes JPEG.
type ImagingCropper struct {
	Quality int
}

func NewImagingCropper() *ImagingCropper {
	return &ImagingCropper{Quality: 90}
}

// Crop reads an image from r, cuts out c (original pixels) and writes the
// result to w. Images are not auto-oriented: the coordinates refer to the
// stored pixel grid, which is what imageDimensions reports.
func (c *ImagingCropper) Crop(ctx context.Context, r io.Reader, w io.Writer, sel Crop) error {
	src, err := imaging.Decode(r)
	if err != nil {
		return fmt.Errorf("failed to decode image: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	bounds := src.Bounds()
	rect := image.Rect(sel.Left, sel.Top, sel.Left+sel.Width, sel.Top+sel.Height).Add(bounds.Min)
	if !rect.In(bounds) {
		rect = rect.Intersect(bounds)
		if rect.Empty() {
			return fmt.Errorf("crop %s is outside image bounds %s", sel, bounds)
		}
	}

	cropped := imaging.Crop(src, rect)
	return imaging.Encode(w, cropped, imaging.JPEG, imaging.JPEGQuality(c.Quality))
}
