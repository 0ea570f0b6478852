package crop

import "math"

// maxSnapIterations bounds the ratio correction loop. The loop is a
// heuristic and may stop before the ratio holds exactly.
const maxSnapIterations = 4

// export turns a display rectangle into original pixels: scale, enforce the
// minimum size, keep the selection inside the image, then force the ratio.
func export(t Transform, r Rect, minWidth, minHeight int, ratio float64) Coords {
	c := t.ToOriginal(r)
	c.Width = max(c.Width, minWidth)
	c.Height = max(c.Height, minHeight)
	c = fit(c, t.OriginalWidth, t.OriginalHeight)

	if ratio > 0 {
		c.Width, c.Height = snapToRatio(c.Width, c.Height, ratio)
		if c.Width > t.OriginalWidth || c.Height > t.OriginalHeight {
			// Snapping grew a side past the image: take the largest
			// ratio-exact size that fits and snap again from there.
			h := min(c.Height, t.OriginalHeight, int(float64(t.OriginalWidth)/ratio))
			c.Width, c.Height = snapToRatio(int(float64(h)*ratio), h, ratio)
		}
		c = fit(c, t.OriginalWidth, t.OriginalHeight)
	}
	return c
}

// snapToRatio runs SnapRatio and, when it gives up, derives the width from
// the height so the export never drifts from the ratio by more than half a
// pixel.
func snapToRatio(width, height int, ratio float64) (int, int) {
	w, h := SnapRatio(width, height, ratio)
	if !exactRatio(float64(w), float64(h), ratio) {
		w = int(math.Round(float64(h) * ratio))
	}
	return w, h
}

func fit(c Coords, fullWidth, fullHeight int) Coords {
	c.Left, c.Width = fitAxis(c.Left, c.Width, fullWidth)
	c.Top, c.Height = fitAxis(c.Top, c.Height, fullHeight)
	return c
}

func fitAxis(pos, length, full int) (int, int) {
	if length >= full {
		return 0, full
	}
	if pos+length >= full {
		pos = full - length
	}
	return pos, length
}

// SnapRatio adjusts width and height so that width/height == ratio, trying at
// most maxSnapIterations times. Each attempt first derives the width from the
// height, then the height from the width, and otherwise shrinks both by one
// pixel. A non-positive ratio leaves the size unchanged.
//
// The decrement step can take a side up to maxSnapIterations pixels below a
// minimum the caller enforced beforehand, so minimums are best effort once a
// ratio is set.
func SnapRatio(width, height int, ratio float64) (int, int) {
	if ratio <= 0 {
		return width, height
	}

	w, h := float64(width), float64(height)
	for i := 0; i < maxSnapIterations && !exactRatio(w, h, ratio); i++ {
		candidateWidth := h * ratio
		candidateHeight := w / ratio
		switch {
		case isWhole(candidateWidth):
			w, h = candidateWidth, candidateWidth/ratio
		case isWhole(candidateHeight):
			w, h = candidateHeight*ratio, candidateHeight
		default:
			w--
			h--
		}
	}
	return int(math.Round(w)), int(math.Round(h))
}

func exactRatio(w, h, ratio float64) bool {
	return w/ratio == h && h*ratio == w
}

func isWhole(v float64) bool {
	return v == math.Trunc(v)
}
