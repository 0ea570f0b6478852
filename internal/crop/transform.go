package crop

import "math"

// Transform converts between display space (the rendered image) and original
// space (the full-resolution image). Lengths convert with ceiling, positions
// with round-to-nearest, so an exported selection is never smaller than what
// the user sees.
type Transform struct {
	OriginalWidth  int
	OriginalHeight int
	Rendered       Size
}

// ScaleX is originalWidth / renderedWidth.
func (t Transform) ScaleX() float64 {
	return float64(t.OriginalWidth) / t.Rendered.Width
}

// ScaleY is originalHeight / renderedHeight.
func (t Transform) ScaleY() float64 {
	return float64(t.OriginalHeight) / t.Rendered.Height
}

// ToOriginal converts a display rectangle to original pixels.
func (t Transform) ToOriginal(r Rect) Coords {
	return Coords{
		Left:   int(math.Round(t.toOriginalX(r.X))),
		Top:    int(math.Round(t.toOriginalY(r.Y))),
		Width:  int(math.Ceil(t.toOriginalX(r.Width))),
		Height: int(math.Ceil(t.toOriginalY(r.Height))),
	}
}

// ToDisplay converts original pixels to a display rectangle, rounded to whole
// display pixels.
func (t Transform) ToDisplay(c Coords) Rect {
	return Rect{
		X:      math.Round(t.toDisplayX(float64(c.Left))),
		Y:      math.Round(t.toDisplayY(float64(c.Top))),
		Width:  math.Round(t.toDisplayX(float64(c.Width))),
		Height: math.Round(t.toDisplayY(float64(c.Height))),
	}
}

// MinDisplay scales a minimum selection size in original pixels to display
// space, rounding up.
func (t Transform) MinDisplay(minWidth, minHeight int) Size {
	return Size{
		Width:  math.Ceil(t.toDisplayX(float64(minWidth))),
		Height: math.Ceil(t.toDisplayY(float64(minHeight))),
	}
}

// Multiply before dividing: v*orig/rendered stays exact for the integral
// sizes hosts usually report, where v*(orig/rendered) may not.
func (t Transform) toOriginalX(v float64) float64 {
	return v * float64(t.OriginalWidth) / t.Rendered.Width
}

func (t Transform) toOriginalY(v float64) float64 {
	return v * float64(t.OriginalHeight) / t.Rendered.Height
}

func (t Transform) toDisplayX(v float64) float64 {
	return v * t.Rendered.Width / float64(t.OriginalWidth)
}

func (t Transform) toDisplayY(v float64) float64 {
	return v * t.Rendered.Height / float64(t.OriginalHeight)
}
