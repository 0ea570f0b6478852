package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog/log"

	"croptool/internal/crop"
)

type ReplayConfig struct {
	Image              string
	OriginalWidth      int
	OriginalHeight     int
	RenderedWidth      float64
	RenderedHeight     float64
	Defaults           CropDefaults
	InitialCoordinates *crop.Coords
}

// Replay feeds a stream of JSON pointer events through a fresh engine and
// writes every notification to w as one JSON line, starting with ready.
func Replay(ctx context.Context, r io.Reader, w io.Writer, cfg ReplayConfig) error {
	enc := json.NewEncoder(w)
	var writeErr error
	emit := func(kind string) func(crop.Coords) {
		return func(c crop.Coords) {
			if writeErr == nil {
				writeErr = enc.Encode(Notification{Type: kind, Coords: c})
			}
		}
	}

	logger := log.Ctx(ctx)
	e, err := crop.New(crop.Options{
		Image:              cfg.Image,
		OriginalWidth:      cfg.OriginalWidth,
		OriginalHeight:     cfg.OriginalHeight,
		MinWidth:           cfg.Defaults.MinWidth,
		MinHeight:          cfg.Defaults.MinHeight,
		Ratio:              cfg.Defaults.Ratio,
		InitialCoordinates: cfg.InitialCoordinates,
		Logger:             logger,
		OnMoved:            emit(notifyMoved),
		OnChanged:          emit(notifyChanged),
	})
	if err != nil {
		return err
	}
	if err := e.Prime(cfg.RenderedWidth, cfg.RenderedHeight); err != nil {
		return err
	}
	emit(notifyReady)(e.Coords())

	dec := json.NewDecoder(r)
	for line := 1; ; line++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		var ev crop.Event
		if err := dec.Decode(&ev); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return fmt.Errorf("event %d: %w", line, err)
		}
		if !e.Handle(ev) {
			logger.Debug().Int("event", line).Stringer("phase", ev.Phase).Stringer("state", e.State()).Msg("event ignored")
		}
		if writeErr != nil {
			return fmt.Errorf("failed to write notification: %w", writeErr)
		}
	}
	return writeErr
}
