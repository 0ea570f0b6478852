package crop

import "fmt"

// Rect is the crop selection in display space.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func (r Rect) Right() float64  { return r.X + r.Width }
func (r Rect) Bottom() float64 { return r.Y + r.Height }

func (r Rect) String() string {
	return fmt.Sprintf("rect(x=%.2f,y=%.2f,w=%.2f,h=%.2f)", r.X, r.Y, r.Width, r.Height)
}

// clamp restores the rectangle invariants: each side is at least minSize and at
// most bounds (bounds win when both cannot hold), and the rectangle lies
// inside [0, bounds].
func (r Rect) clamp(bounds, minSize Size) Rect {
	r.Width = clamp(r.Width, minSize.Width, bounds.Width)
	r.Height = clamp(r.Height, minSize.Height, bounds.Height)
	r.X = clamp(r.X, 0, bounds.Width-r.Width)
	r.Y = clamp(r.Y, 0, bounds.Height-r.Height)
	return r
}

// clamp limits v to [lo, hi]; hi is applied last.
func clamp(v, lo, hi float64) float64 {
	if v < lo {
		v = lo
	}
	if v > hi {
		v = hi
	}
	return v
}
