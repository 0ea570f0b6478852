// Package crop implements the geometry behind an interactive crop selection:
// a rectangle drawn over a scaled-down image that the user drags and resizes
// by its corners, reported in the original image's pixels.
//
// An Engine is not safe for concurrent use. Hosts feed it pointer samples one
// at a time and receive notifications synchronously through the callbacks in
// Options.
package crop

import (
	"fmt"

	"github.com/rs/zerolog"
)

type Engine struct {
	opts   Options
	logger zerolog.Logger

	primed    bool
	transform Transform
	min       Size
	rect      Rect

	// current is the only active session, nil while idle.
	current gesture
}

// New validates opts and returns an engine waiting for Prime.
func New(opts Options) (*Engine, error) {
	if err := opts.validate(); err != nil {
		return nil, fmt.Errorf("invalid crop options: %w", err)
	}
	opts = opts.withDefaults()

	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = opts.Logger.With().Str("image", opts.Image).Logger()
	}

	return &Engine{opts: opts, logger: logger}, nil
}

// Prime makes the engine usable once the rendered image size is known. It
// places the selection and emits OnReady.
func (e *Engine) Prime(renderedWidth, renderedHeight float64) error {
	if err := e.setViewport(renderedWidth, renderedHeight); err != nil {
		return err
	}
	e.current = nil
	e.rect = e.initialRect().clamp(e.transform.Rendered, e.min)
	e.primed = true

	e.logger.Debug().
		Stringer("rect", e.rect).
		Stringer("coords", e.Coords()).
		Msg("crop ready")
	if fn := e.opts.OnReady; fn != nil {
		fn()
	}
	return nil
}

// Reprime adapts to a new rendered size, keeping the selection proportional.
// An active session is dropped without a change notification.
func (e *Engine) Reprime(renderedWidth, renderedHeight float64) error {
	if !e.primed {
		return e.Prime(renderedWidth, renderedHeight)
	}

	old := e.transform.Rendered
	if err := e.setViewport(renderedWidth, renderedHeight); err != nil {
		return err
	}
	if e.current != nil {
		e.logger.Debug().Stringer("state", e.current.state()).Msg("crop session dropped by viewport change")
		e.current = nil
	}

	sx, sy := renderedWidth/old.Width, renderedHeight/old.Height
	r := Rect{X: e.rect.X * sx, Y: e.rect.Y * sy, Width: e.rect.Width * sx, Height: e.rect.Height * sy}
	e.rect = r.clamp(e.transform.Rendered, e.min)
	return nil
}

func (e *Engine) setViewport(renderedWidth, renderedHeight float64) error {
	if !(renderedWidth > 0 && renderedHeight > 0) {
		return fmt.Errorf("%w: got %vx%v", ErrRenderedSize, renderedWidth, renderedHeight)
	}
	e.transform = Transform{
		OriginalWidth:  e.opts.OriginalWidth,
		OriginalHeight: e.opts.OriginalHeight,
		Rendered:       Size{Width: renderedWidth, Height: renderedHeight},
	}
	e.min = e.transform.MinDisplay(e.opts.MinWidth, e.opts.MinHeight)
	return nil
}

func (e *Engine) initialRect() Rect {
	if c := e.opts.InitialCoordinates; c != nil {
		return e.transform.ToDisplay(*c)
	}

	bounds := e.transform.Rendered
	r := Rect{Width: bounds.Width, Height: bounds.Height}
	if ratio := e.opts.Ratio; ratio > 0 {
		if bounds.Width/bounds.Height > ratio {
			r.Width = bounds.Height * ratio
			r.X = (bounds.Width - r.Width) / 2
		} else {
			r.Height = bounds.Width / ratio
			r.Y = (bounds.Height - r.Height) / 2
		}
	}
	return r
}

// Handle dispatches a pointer sample and reports whether it was accepted.
func (e *Engine) Handle(ev Event) bool {
	switch ev.Phase {
	case PhaseDown:
		return e.PointerDown(ev.Point(), ev.Corner)
	case PhaseMove:
		return e.PointerMove(ev.Point())
	case PhaseUp:
		return e.PointerUp()
	}
	return false
}

// PointerDown starts a session: a resize when corner names a handle, a drag
// otherwise. It is ignored while a session is already active or before Prime.
func (e *Engine) PointerDown(p Point, corner Corner) bool {
	if !e.primed || e.current != nil || !corner.Valid() {
		return false
	}
	e.current = startGesture(e.rect, p, corner, e.transform.Rendered)
	e.logger.Debug().
		Stringer("state", e.current.state()).
		Stringer("corner", corner).
		Float64("x", p.X).
		Float64("y", p.Y).
		Msg("crop session started")
	return true
}

// PointerMove updates the selection for the active session and emits OnMoved.
func (e *Engine) PointerMove(p Point) bool {
	if e.current == nil {
		return false
	}
	g := geometry{bounds: e.transform.Rendered, min: e.min, ratio: e.opts.Ratio}
	e.rect = e.current.move(e.rect, p, g).clamp(g.bounds, g.min)

	if fn := e.opts.OnMoved; fn != nil {
		fn(e.Coords())
	}
	return true
}

// PointerUp ends the active session, wherever the pointer is, and emits
// OnChanged once.
func (e *Engine) PointerUp() bool {
	if e.current == nil {
		return false
	}
	state := e.current.state()
	e.current = nil

	coords := e.Coords()
	e.logger.Debug().Stringer("state", state).Stringer("coords", coords).Msg("crop session ended")
	if fn := e.opts.OnChanged; fn != nil {
		fn(coords)
	}
	return true
}

// Coords exports the selection in original pixels. It is the zero value
// before Prime.
func (e *Engine) Coords() Coords {
	if !e.primed {
		return Coords{}
	}
	return export(e.transform, e.rect, e.opts.MinWidth, e.opts.MinHeight, e.opts.Ratio)
}

// Rect returns the selection in display space, for drawing.
func (e *Engine) Rect() Rect { return e.rect }

// MinSize returns the minimum selection size in display space.
func (e *Engine) MinSize() Size { return e.min }

func (e *Engine) State() State {
	if e.current == nil {
		return Idle
	}
	return e.current.state()
}

func (e *Engine) Primed() bool { return e.primed }

func (e *Engine) Options() Options { return e.opts }
