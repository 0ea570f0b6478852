package main

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc/pool"

	"croptool/internal/crop"
)

type Operations = []Operation

// Operation is either a crop or a pick; exactly one field is set.
type Operation struct {
	Crop *CropOperation
	Pick *PickOperation
}

const (
	opCrop = "crop"
	opPick = "pick"
)

func (o *Operation) UnmarshalJSON(data []byte) error {
	var op struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &op); err != nil {
		return fmt.Errorf("failed to unmarshal operation: %w", err)
	}

	switch op.Type {
	case opCrop:
		var cropOp CropOperation
		if err := json.Unmarshal(data, &cropOp); err != nil {
			return fmt.Errorf("failed to unmarshal crop operation: %w", err)
		}
		o.Crop = &cropOp
	case opPick:
		var pick PickOperation
		if err := json.Unmarshal(data, &pick); err != nil {
			return fmt.Errorf("failed to unmarshal pick operation: %w", err)
		}
		o.Pick = &pick
	default:
		return fmt.Errorf("unknown operation %q", op.Type)
	}
	return nil
}

// MarshalJSON writes the same tagged form UnmarshalJSON reads.
func (o Operation) MarshalJSON() ([]byte, error) {
	switch {
	case o.Crop != nil:
		return json.Marshal(struct {
			Type string `json:"type"`
			CropOperation
		}{opCrop, *o.Crop})
	case o.Pick != nil:
		return json.Marshal(struct {
			Type string `json:"type"`
			PickOperation
		}{opPick, *o.Pick})
	}
	return nil, errors.New("empty operation")
}

// Crop is a selection in original-image pixels, as exported by the crop engine.
type Crop = crop.Coords

// cropID is a short stable name for a selection, used in output file names.
func cropID(c Crop) string {
	sum := md5.Sum([]byte(c.String()))
	return fmt.Sprintf("%x", sum[:6])
}

type CropOperation struct {
	Filename string `json:"filename"`
	Crop     Crop   `json:"crop"`
	// Session names a crop session whose current selection replaces Crop.
	Session string `json:"session,omitempty"`
}

type PickOperation struct {
	Filename string `json:"filename"`
}

type Cropper interface {
	Crop(ctx context.Context, r io.Reader, w io.Writer, c Crop) error
}

var errEmptyCrop = errors.New("crop has no area")

type OperationExecutor struct {
	BaseDir   string
	OutputDir string
	Cropper   Cropper
}

func (r OperationExecutor) Exec(ctx context.Context, ops []Operation) error {
	if len(ops) == 0 {
		log.Ctx(ctx).Warn().Msg("no operations to execute")
		return nil
	}

	if err := os.MkdirAll(r.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory %s: %w", r.OutputDir, err)
	}

	p := pool.New().WithErrors().WithContext(ctx).WithMaxGoroutines(runtime.NumCPU())
	for _, op := range ops {
		p.Go(func(ctx context.Context) error {
			if err := r.execute(ctx, op); err != nil {
				log.Ctx(ctx).Error().Err(err).
					Interface("op", op).
					Msg("failed to execute operation")
				return err
			}
			return nil
		})
	}

	if err := p.Wait(); err != nil {
		log.Ctx(ctx).Error().Err(err).Int("operations", len(ops)).Msg("finished with errors")
		return err
	}
	log.Ctx(ctx).Info().Int("operations", len(ops)).Str("output", r.OutputDir).Msg("operations done")
	return nil
}

func (r OperationExecutor) execute(ctx context.Context, op Operation) error {
	switch {
	case op.Crop != nil:
		return r.executeCrop(ctx, *op.Crop)
	case op.Pick != nil:
		return r.executePick(ctx, *op.Pick)
	}
	return nil
}

func (r OperationExecutor) executeCrop(ctx context.Context, op CropOperation) error {
	if op.Crop.Width <= 0 || op.Crop.Height <= 0 {
		return fmt.Errorf("%s: %w", op.Filename, errEmptyCrop)
	}
	log.Ctx(ctx).Info().Str("filename", op.Filename).Stringer("crop", op.Crop).Msg("cropping")

	src, err := os.Open(r.sourcePath(op.Filename))
	if err != nil {
		return fmt.Errorf("failed to open file %s: %w", op.Filename, err)
	}
	defer src.Close()

	// Crop into memory first so a failed decode leaves no partial file behind.
	var b bytes.Buffer
	if err := r.Cropper.Crop(ctx, src, &b, op.Crop); err != nil {
		return fmt.Errorf("failed to crop %s: %w", op.Filename, err)
	}

	name := strings.TrimSuffix(filepath.Base(op.Filename), filepath.Ext(op.Filename))
	newName := fmt.Sprintf("%s-%dx%d-%s.jpg", name, op.Crop.Width, op.Crop.Height, cropID(op.Crop))
	return writeFile(filepath.Join(r.OutputDir, newName), &b)
}

func (r OperationExecutor) executePick(ctx context.Context, op PickOperation) error {
	log.Ctx(ctx).Info().Str("filename", op.Filename).Msg("picking")

	src, err := os.Open(r.sourcePath(op.Filename))
	if err != nil {
		return fmt.Errorf("failed to open file %s: %w", op.Filename, err)
	}
	defer src.Close()

	if err := writeFile(filepath.Join(r.OutputDir, cleanRel(op.Filename)), src); err != nil {
		return fmt.Errorf("failed to pick file %s: %w", op.Filename, err)
	}
	return nil
}

func (r OperationExecutor) sourcePath(name string) string {
	return filepath.Join(r.BaseDir, cleanRel(name))
}

// cleanRel keeps a client-supplied name from escaping its base directory.
func cleanRel(name string) string {
	return filepath.Clean("/" + name)
}

func writeFile(path string, src io.Reader) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	if _, err := io.Copy(f, src); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
