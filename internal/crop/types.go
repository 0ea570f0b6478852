package crop

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Point is a pointer position in display space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Size is a width/height pair in display space.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Coords is a crop selection in original-image pixels.
type Coords struct {
	Left   int `json:"left"`
	Top    int `json:"top"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

func (c Coords) String() string {
	return fmt.Sprintf("coords(left=%d,top=%d,w=%d,h=%d)", c.Left, c.Top, c.Width, c.Height)
}

// UnmarshalJSON requires every one of width, height, top and left to be
// present. A JSON null leaves c unchanged.
func (c *Coords) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	var raw struct {
		Left   *int `json:"left"`
		Top    *int `json:"top"`
		Width  *int `json:"width"`
		Height *int `json:"height"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("failed to unmarshal coordinates: %w", err)
	}

	fields := []struct {
		name  string
		value *int
	}{
		{"width", raw.Width},
		{"height", raw.Height},
		{"top", raw.Top},
		{"left", raw.Left},
	}
	for _, f := range fields {
		if f.value == nil {
			return fmt.Errorf("%w: %q", ErrMissingCoordinate, f.name)
		}
	}

	*c = Coords{Left: *raw.Left, Top: *raw.Top, Width: *raw.Width, Height: *raw.Height}
	return nil
}

// Corner identifies a resize handle. NoCorner means the pointer went down on
// the body of the selection.
type Corner uint8

const (
	NoCorner Corner = iota
	NW
	NE
	SE
	SW
)

var cornerNames = [...]string{"", "nw", "ne", "se", "sw"}

func (c Corner) String() string {
	if int(c) < len(cornerNames) {
		return cornerNames[c]
	}
	return fmt.Sprintf("corner(%d)", uint8(c))
}

// Valid reports whether c is NoCorner or one of the four handles.
func (c Corner) Valid() bool {
	return int(c) < len(cornerNames)
}

// north reports whether the top edge follows the pointer.
func (c Corner) north() bool { return c == NW || c == NE }

// west reports whether the left edge follows the pointer.
func (c Corner) west() bool { return c == NW || c == SW }

// ParseCorner accepts "nw", "ne", "se", "sw" in any case, or "" for NoCorner.
func ParseCorner(s string) (Corner, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range cornerNames {
		if name == s {
			return Corner(i), nil
		}
	}
	return NoCorner, fmt.Errorf("unknown corner %q", s)
}

func (c Corner) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("unknown corner %d", uint8(c))
	}
	return []byte(c.String()), nil
}

func (c *Corner) UnmarshalText(text []byte) error {
	parsed, err := ParseCorner(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Phase is the gesture phase a pointer sample belongs to.
type Phase uint8

const (
	PhaseDown Phase = iota + 1
	PhaseMove
	PhaseUp
)

func (p Phase) String() string {
	switch p {
	case PhaseDown:
		return "down"
	case PhaseMove:
		return "move"
	case PhaseUp:
		return "up"
	default:
		return fmt.Sprintf("phase(%d)", uint8(p))
	}
}

func (p Phase) MarshalText() ([]byte, error) {
	switch p {
	case PhaseDown, PhaseMove, PhaseUp:
		return []byte(p.String()), nil
	}
	return nil, fmt.Errorf("unknown phase %d", uint8(p))
}

func (p *Phase) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "down":
		*p = PhaseDown
	case "move":
		*p = PhaseMove
	case "up":
		*p = PhaseUp
	default:
		return fmt.Errorf("unknown phase %q", string(text))
	}
	return nil
}

// Event is one pointer sample. Corner is only meaningful for PhaseDown.
type Event struct {
	Phase  Phase   `json:"phase"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Corner Corner  `json:"corner,omitempty"`
}

func (e Event) Point() Point {
	return Point{X: e.X, Y: e.Y}
}
