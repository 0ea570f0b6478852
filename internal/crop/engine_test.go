package crop

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	ready   int
	moved   []Coords
	changed []Coords
}

// newTestEngine returns an engine over a 2000x1000 image rendered at 1000x500.
func newTestEngine(t *testing.T, ratio float64, initial *Coords) (*Engine, *recorder) {
	t.Helper()
	rec := &recorder{}
	e, err := New(Options{
		Image:              "photo.jpg",
		OriginalWidth:      2000,
		OriginalHeight:     1000,
		Ratio:              ratio,
		InitialCoordinates: initial,
		OnReady:            func() { rec.ready++ },
		OnMoved:            func(c Coords) { rec.moved = append(rec.moved, c) },
		OnChanged:          func(c Coords) { rec.changed = append(rec.changed, c) },
	})
	require.NoError(t, err)
	require.NoError(t, e.Prime(1000, 500))
	return e, rec
}

func TestNewValidation(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		want error
	}{
		{"no image", Options{OriginalWidth: 10, OriginalHeight: 10}, ErrNoImage},
		{"no width", Options{Image: "a.jpg", OriginalHeight: 10}, ErrImageSize},
		{"no height", Options{Image: "a.jpg", OriginalWidth: 10}, ErrImageSize},
		{"negative ratio", Options{Image: "a.jpg", OriginalWidth: 10, OriginalHeight: 10, Ratio: -1}, ErrInvalidRatio},
		{"negative minimum", Options{Image: "a.jpg", OriginalWidth: 10, OriginalHeight: 10, MinWidth: -1}, ErrInvalidMinimum},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.opts)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestNewDefaultsMinimum(t *testing.T) {
	e, err := New(Options{Image: "a.jpg", OriginalWidth: 2000, OriginalHeight: 1000})
	require.NoError(t, err)
	assert.Equal(t, DefaultMinWidth, e.Options().MinWidth)
	assert.Equal(t, DefaultMinHeight, e.Options().MinHeight)
}

func TestPrimeRejectsEmptyViewport(t *testing.T) {
	e, err := New(Options{Image: "a.jpg", OriginalWidth: 2000, OriginalHeight: 1000})
	require.NoError(t, err)
	assert.ErrorIs(t, e.Prime(0, 500), ErrRenderedSize)
	assert.False(t, e.Primed())
	assert.Equal(t, Coords{}, e.Coords())
}

func TestInitialPlacementFullImage(t *testing.T) {
	e, rec := newTestEngine(t, 0, nil)
	assert.Equal(t, 1, rec.ready)
	assert.Equal(t, Rect{X: 0, Y: 0, Width: 1000, Height: 500}, e.Rect())
	assert.Equal(t, Coords{Left: 0, Top: 0, Width: 2000, Height: 1000}, e.Coords())
	assert.Equal(t, Size{Width: 125, Height: 125}, e.MinSize())
}

func TestInitialPlacementRatioCentered(t *testing.T) {
	e, _ := newTestEngine(t, 1, nil)
	assert.Equal(t, Rect{X: 250, Y: 0, Width: 500, Height: 500}, e.Rect())
	assert.Equal(t, Coords{Left: 500, Top: 0, Width: 1000, Height: 1000}, e.Coords())
}

func TestInitialPlacementRatioTallerThanImage(t *testing.T) {
	e, _ := newTestEngine(t, 4, nil)
	// 1000/500 = 2 < 4, so the selection spans the width and is centered vertically.
	assert.Equal(t, Rect{X: 0, Y: 125, Width: 1000, Height: 250}, e.Rect())
	assert.Equal(t, Coords{Left: 0, Top: 250, Width: 2000, Height: 500}, e.Coords())
}

func TestInitialPlacementCoordinates(t *testing.T) {
	e, _ := newTestEngine(t, 0, &Coords{Left: 200, Top: 100, Width: 800, Height: 600})
	assert.Equal(t, Rect{X: 100, Y: 50, Width: 400, Height: 300}, e.Rect())
	assert.Equal(t, Coords{Left: 200, Top: 100, Width: 800, Height: 600}, e.Coords())
}

func TestInitialCoordinatesAreClamped(t *testing.T) {
	e, _ := newTestEngine(t, 0, &Coords{Left: 1900, Top: 0, Width: 100, Height: 100})
	// 50x50 display is below the 125x125 minimum and must stay inside the image.
	assert.Equal(t, Rect{X: 875, Y: 0, Width: 125, Height: 125}, e.Rect())
}

func TestCoordsIdempotent(t *testing.T) {
	e, _ := newTestEngine(t, 16.0/9.0, nil)
	assert.Equal(t, e.Coords(), e.Coords())
}

func TestDrag(t *testing.T) {
	e, rec := newTestEngine(t, 1, nil)

	require.True(t, e.PointerDown(Point{X: 300, Y: 100}, NoCorner))
	assert.Equal(t, Dragging, e.State())
	require.True(t, e.PointerMove(Point{X: 350, Y: 100}))

	assert.Equal(t, Rect{X: 300, Y: 0, Width: 500, Height: 500}, e.Rect())
	require.Len(t, rec.moved, 1)
	assert.Equal(t, Coords{Left: 600, Top: 0, Width: 1000, Height: 1000}, rec.moved[0])
	assert.Empty(t, rec.changed)

	require.True(t, e.PointerUp())
	assert.Equal(t, Idle, e.State())
	require.Len(t, rec.changed, 1)
	assert.Equal(t, rec.moved[0], rec.changed[0])
}

func TestDragClampsToImage(t *testing.T) {
	e, _ := newTestEngine(t, 1, nil)

	require.True(t, e.PointerDown(Point{X: 300, Y: 100}, NoCorner))
	e.PointerMove(Point{X: 5000, Y: -300})
	assert.Equal(t, Rect{X: 500, Y: 0, Width: 500, Height: 500}, e.Rect())

	e.PointerMove(Point{X: -5000, Y: 900})
	assert.Equal(t, Rect{X: 0, Y: 0, Width: 500, Height: 500}, e.Rect())
	e.PointerUp()

	assert.Equal(t, Coords{Left: 0, Top: 0, Width: 1000, Height: 1000}, e.Coords())
}

func TestSessionIsSingleShot(t *testing.T) {
	e, rec := newTestEngine(t, 0, nil)

	assert.False(t, e.PointerMove(Point{X: 10, Y: 10}), "move without session")
	assert.False(t, e.PointerUp(), "up without session")

	require.True(t, e.PointerDown(Point{X: 500, Y: 250}, NoCorner))
	assert.False(t, e.PointerDown(Point{X: 1000, Y: 500}, SE), "down while dragging")
	assert.Equal(t, Dragging, e.State())

	require.True(t, e.PointerUp())
	assert.False(t, e.PointerUp())
	assert.Len(t, rec.changed, 1)

	assert.True(t, e.PointerDown(Point{X: 1000, Y: 500}, SE), "rearmed after up")
	assert.Equal(t, Resizing, e.State())
}

func TestPointerDownBeforePrime(t *testing.T) {
	e, err := New(Options{Image: "a.jpg", OriginalWidth: 2000, OriginalHeight: 1000})
	require.NoError(t, err)
	assert.False(t, e.PointerDown(Point{}, NoCorner))
}

func TestPointerDownUnknownCorner(t *testing.T) {
	e, _ := newTestEngine(t, 0, nil)
	assert.False(t, e.PointerDown(Point{}, Corner(9)))
	assert.Equal(t, Idle, e.State())
}

func TestHandleDispatch(t *testing.T) {
	e, rec := newTestEngine(t, 0, nil)
	events := []Event{
		{Phase: PhaseDown, X: 1000, Y: 500, Corner: SE},
		{Phase: PhaseMove, X: 800, Y: 400},
		{Phase: PhaseMove, X: 600, Y: 300},
		{Phase: PhaseUp, X: 10, Y: 10},
	}
	for _, ev := range events {
		assert.True(t, e.Handle(ev), ev.Phase.String())
	}
	assert.False(t, e.Handle(Event{}))

	assert.Len(t, rec.moved, 2)
	require.Len(t, rec.changed, 1)
	assert.Equal(t, Coords{Left: 0, Top: 0, Width: 1200, Height: 600}, rec.changed[0])
}

func TestReprimeKeepsProportions(t *testing.T) {
	e, _ := newTestEngine(t, 1, nil)
	before := e.Coords()

	require.True(t, e.PointerDown(Point{X: 300, Y: 100}, NoCorner))
	require.NoError(t, e.Reprime(500, 250))

	assert.Equal(t, Idle, e.State())
	assert.Equal(t, Rect{X: 125, Y: 0, Width: 250, Height: 250}, e.Rect())
	assert.Equal(t, Size{Width: 63, Height: 63}, e.MinSize())
	assert.Equal(t, before, e.Coords())
	assert.False(t, e.PointerUp())
}

func TestReprimeRejectsEmptyViewport(t *testing.T) {
	e, _ := newTestEngine(t, 0, nil)
	assert.ErrorIs(t, e.Reprime(100, -1), ErrRenderedSize)
	assert.Equal(t, Rect{X: 0, Y: 0, Width: 1000, Height: 500}, e.Rect())
}

func TestPrimeOnUnevenViewportKeepsRatio(t *testing.T) {
	e, err := New(Options{Image: "photo.jpg", OriginalWidth: 2000, OriginalHeight: 1000, Ratio: 4.0 / 3})
	require.NoError(t, err)
	require.NoError(t, e.Prime(640, 333))

	assert.Equal(t, Rect{X: 98, Y: 0, Width: 444, Height: 333}, e.Rect())
	assert.Equal(t, Coords{Left: 306, Top: 0, Width: 1332, Height: 999}, e.Coords())
}

// Random gestures must always export a selection inside the image. Without a
// ratio the minimum holds exactly; with one, snapping may shave up to
// maxSnapIterations pixels off it and the ratio holds to half a pixel.
func TestExportInvariantsUnderRandomGestures(t *testing.T) {
	for _, viewport := range []Size{{Width: 1000, Height: 500}, {Width: 640, Height: 333}} {
		for _, ratio := range []float64{0, 1, 2, 4.0 / 3, 16.0 / 9} {
			rec := &recorder{}
			e, err := New(Options{
				Image:          "photo.jpg",
				OriginalWidth:  2000,
				OriginalHeight: 1000,
				Ratio:          ratio,
				OnMoved:        func(c Coords) { rec.moved = append(rec.moved, c) },
				OnChanged:      func(c Coords) { rec.changed = append(rec.changed, c) },
			})
			require.NoError(t, err)
			require.NoError(t, e.Prime(viewport.Width, viewport.Height))

			rng := rand.New(rand.NewPCG(42, uint64(ratio*100)+uint64(viewport.Width)))
			point := func() Point {
				return Point{
					X: rng.Float64()*viewport.Width*1.4 - viewport.Width*0.2,
					Y: rng.Float64()*viewport.Height*1.8 - viewport.Height*0.4,
				}
			}

			for i := 0; i < 200; i++ {
				e.PointerDown(point(), Corner(rng.IntN(5)))
				for j := 0; j < 5; j++ {
					e.PointerMove(point())
				}
				e.PointerUp()
			}

			slack := 0
			if ratio > 0 {
				slack = maxSnapIterations
			}
			all := append([]Coords{e.Coords()}, append(rec.moved, rec.changed...)...)
			require.Greater(t, len(all), 1)
			for _, c := range all {
				msg := []any{"viewport %v ratio %v: %s", viewport, ratio, c}
				assert.GreaterOrEqual(t, c.Left, 0, msg...)
				assert.GreaterOrEqual(t, c.Top, 0, msg...)
				assert.LessOrEqual(t, c.Left+c.Width, 2000, msg...)
				assert.LessOrEqual(t, c.Top+c.Height, 1000, msg...)
				assert.GreaterOrEqual(t, c.Width, DefaultMinWidth-slack, msg...)
				assert.GreaterOrEqual(t, c.Height, DefaultMinHeight-slack, msg...)
				if ratio > 0 {
					assert.InDelta(t, float64(c.Height)*ratio, float64(c.Width), 0.5, msg...)
				}
			}
		}
	}
}
