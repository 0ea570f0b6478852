package crop

import "math"

// resize moves one corner of the selection. The edges adjacent to the corner
// follow the pointer; the other two stay where they were at gesture start.
type resize struct {
	corner  Corner
	start   Rect
	pointer Point

	// Distance from the fixed right/bottom edges to the image boundary,
	// used in ratio mode to keep those edges anchored.
	rightMargin  float64
	bottomMargin float64
}

func newResize(r Rect, p Point, c Corner, bounds Size) *resize {
	return &resize{
		corner:       c,
		start:        r,
		pointer:      p,
		rightMargin:  bounds.Width - r.Width - r.X,
		bottomMargin: bounds.Height - r.Height - r.Y,
	}
}

func (z *resize) state() State { return Resizing }

func (z *resize) move(_ Rect, p Point, g geometry) Rect {
	if g.ratio > 0 {
		return z.moveLocked(p, g)
	}
	return z.moveFree(p, g)
}

// moveFree resizes each axis on its own.
func (z *resize) moveFree(p Point, g geometry) Rect {
	r := z.start
	r.X, r.Width = resizeAxis(z.corner.west(), z.start.X, z.start.Width, p.X-z.pointer.X, g.min.Width, g.bounds.Width)
	r.Y, r.Height = resizeAxis(z.corner.north(), z.start.Y, z.start.Height, p.Y-z.pointer.Y, g.min.Height, g.bounds.Height)
	return r
}

// resizeAxis returns the new position and length along one axis after the
// pointer moved by delta. When leading is set the low edge follows the
// pointer and the high edge stays fixed; otherwise the high edge follows.
func resizeAxis(leading bool, pos, length, delta, minLength, bound float64) (float64, float64) {
	if !leading {
		return pos, clamp(length+delta, minLength, bound-pos)
	}

	end := pos + length
	pos = math.Max(0, pos+delta)
	length = end - pos
	if length < minLength {
		pos += length - minLength
		length = minLength
	}
	if maxLength := bound - pos; length > maxLength {
		length = maxLength
	}
	return pos, length
}

// moveLocked resizes along the pointer's horizontal movement and derives the
// height from the ratio. When both constraints cannot hold, the height
// constraint wins.
func (z *resize) moveLocked(p Point, g geometry) Rect {
	west, north := z.corner.west(), z.corner.north()
	delta := p.X - z.pointer.X

	width, maxWidth := z.start.Width+delta, g.bounds.Width-z.start.X
	if west {
		width, maxWidth = z.start.Width-delta, g.bounds.Width-z.rightMargin
	}
	width = clamp(width, g.min.Width, maxWidth)

	maxHeight := g.bounds.Height - z.start.Y
	if north {
		maxHeight = g.bounds.Height - z.bottomMargin
	}
	height := clamp(width/g.ratio, g.min.Height, maxHeight)
	width = height * g.ratio

	r := Rect{X: z.start.X, Y: z.start.Y, Width: width, Height: height}
	if west {
		r.X = g.bounds.Width - z.rightMargin - width
	}
	if north {
		r.Y = g.bounds.Height - z.bottomMargin - height
	}
	return r
}
