package main

import (
	"context"
	"fmt"
	"image"
	"math"

	"github.com/disintegration/imaging"
	"github.com/muesli/smartcrop"
	"github.com/rs/zerolog/log"

	"croptool/internal/crop"
)

// SuggestCrop finds the most interesting region of img with the configured
// ratio and returns it as a selection the crop engine accepts. Without a
// ratio the whole image is suggested.
func SuggestCrop(ctx context.Context, img image.Image, defaults CropDefaults) (crop.Coords, error) {
	bounds := img.Bounds()
	full := crop.Coords{Width: bounds.Dx(), Height: bounds.Dy()}
	if defaults.Ratio <= 0 {
		return full, nil
	}

	// smartcrop only needs the aspect of the requested size.
	const base = 1000
	width, height := int(math.Round(defaults.Ratio*base)), base

	analyzer := smartcrop.NewAnalyzer(&resizer{resampler: imaging.Box})

	type result struct {
		rect image.Rectangle
		err  error
	}
	done := make(chan result, 1)
	go func() {
		rect, err := analyzer.FindBestCrop(img, width, height)
		done <- result{rect, err}
	}()

	var res result
	select {
	case <-ctx.Done():
		return crop.Coords{}, ctx.Err()
	case res = <-done:
	}
	if res.err != nil {
		return crop.Coords{}, fmt.Errorf("finding best crop: %w", res.err)
	}

	rect := res.rect.Sub(bounds.Min)
	suggested := crop.Coords{Left: rect.Min.X, Top: rect.Min.Y, Width: rect.Dx(), Height: rect.Dy()}
	log.Ctx(ctx).Debug().Stringer("suggested", suggested).Msg("smartcrop suggestion")

	// Run the suggestion through an engine at full size so it honours the
	// minimum size and is ratio-exact.
	e, err := crop.New(crop.Options{
		Image:              "suggestion",
		OriginalWidth:      full.Width,
		OriginalHeight:     full.Height,
		MinWidth:           defaults.MinWidth,
		MinHeight:          defaults.MinHeight,
		Ratio:              defaults.Ratio,
		InitialCoordinates: &suggested,
	})
	if err != nil {
		return crop.Coords{}, err
	}
	if err := e.Prime(float64(full.Width), float64(full.Height)); err != nil {
		return crop.Coords{}, err
	}
	return e.Coords(), nil
}

func SuggestCropFile(ctx context.Context, path string, defaults CropDefaults) (crop.Coords, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return crop.Coords{}, fmt.Errorf("failed to open image: %w", err)
	}
	return SuggestCrop(ctx, img, defaults)
}

// resizer lets smartcrop downscale with imaging.
type resizer struct {
	resampler imaging.ResampleFilter
}

func (r *resizer) Resize(img image.Image, width, height uint) image.Image {
	return imaging.Resize(img, int(width), int(height), r.resampler)
}
