package crop

// drag moves the selection with the pointer, keeping its size.
type drag struct {
	// offset of the pointer from the selection origin at gesture start
	offset Point
}

func newDrag(r Rect, p Point) *drag {
	return &drag{offset: Point{X: p.X - r.X, Y: p.Y - r.Y}}
}

func (d *drag) state() State { return Dragging }

func (d *drag) move(r Rect, p Point, g geometry) Rect {
	r.X = clamp(p.X-d.offset.X, 0, g.bounds.Width-r.Width)
	r.Y = clamp(p.Y-d.offset.Y, 0, g.bounds.Height-r.Height)
	return r
}
