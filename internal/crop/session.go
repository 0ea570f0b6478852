package crop

import "fmt"

// State is the gesture session state: Idle, then Dragging or Resizing until
// the pointer goes up, then Idle again.
type State uint8

const (
	Idle State = iota
	Dragging
	Resizing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Dragging:
		return "dragging"
	case Resizing:
		return "resizing"
	default:
		return fmt.Sprintf("state(%d)", uint8(s))
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *State) UnmarshalText(text []byte) error {
	for _, candidate := range []State{Idle, Dragging, Resizing} {
		if candidate.String() == string(text) {
			*s = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown state %q", string(text))
}

// geometry is what a gesture needs to know about the image on every sample.
type geometry struct {
	bounds Size
	min    Size
	ratio  float64
}

// gesture is an active session. It holds the snapshot taken when the
// pointer went down and computes the selection for each move sample.
type gesture interface {
	state() State
	move(current Rect, p Point, g geometry) Rect
}

// startGesture claims a down event. Corner handles always start a resize;
// anywhere else on the selection starts a drag.
func startGesture(r Rect, p Point, c Corner, bounds Size) gesture {
	if c == NoCorner {
		return newDrag(r, p)
	}
	return newResize(r, p, c, bounds)
}
