package crop

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

const (
	DefaultMinWidth  = 250
	DefaultMinHeight = 250
)

// Options configures an Engine.
type Options struct {
	// Image is the host's reference to the image being cropped (file name, URL).
	Image string
	// OriginalWidth and OriginalHeight are the full-resolution image size.
	OriginalWidth  int
	OriginalHeight int
	// MinWidth and MinHeight are the smallest selection in original pixels.
	// Zero means DefaultMinWidth / DefaultMinHeight.
	MinWidth  int
	MinHeight int
	// Ratio is width/height of the selection; zero means unconstrained.
	Ratio float64
	// InitialCoordinates, in original pixels, replace the default placement.
	InitialCoordinates *Coords

	Logger *zerolog.Logger

	OnReady   func()
	OnMoved   func(Coords)
	OnChanged func(Coords)
}

func (o Options) validate() error {
	if strings.TrimSpace(o.Image) == "" {
		return ErrNoImage
	}
	if o.OriginalWidth <= 0 || o.OriginalHeight <= 0 {
		return fmt.Errorf("%w: got %dx%d", ErrImageSize, o.OriginalWidth, o.OriginalHeight)
	}
	if o.MinWidth < 0 || o.MinHeight < 0 {
		return fmt.Errorf("%w: got %dx%d", ErrInvalidMinimum, o.MinWidth, o.MinHeight)
	}
	if o.Ratio < 0 || math.IsNaN(o.Ratio) || math.IsInf(o.Ratio, 0) {
		return fmt.Errorf("%w: got %v", ErrInvalidRatio, o.Ratio)
	}
	return nil
}

func (o Options) withDefaults() Options {
	if o.MinWidth == 0 {
		o.MinWidth = DefaultMinWidth
	}
	if o.MinHeight == 0 {
		o.MinHeight = DefaultMinHeight
	}
	return o
}

// ParseRatio parses an aspect ratio written as "16:9", "4/3" or "1.5". The
// empty string means no ratio and yields 0.
func ParseRatio(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}

	var ratio float64
	if sep := strings.IndexAny(s, ":/"); sep >= 0 {
		w, err := strconv.ParseFloat(strings.TrimSpace(s[:sep]), 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrInvalidRatio, s)
		}
		h, err := strconv.ParseFloat(strings.TrimSpace(s[sep+1:]), 64)
		if err != nil || h == 0 {
			return 0, fmt.Errorf("%w: %q", ErrInvalidRatio, s)
		}
		ratio = w / h
	} else {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrInvalidRatio, s)
		}
		ratio = v
	}

	if ratio <= 0 || math.IsNaN(ratio) || math.IsInf(ratio, 0) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidRatio, s)
	}
	return ratio, nil
}
