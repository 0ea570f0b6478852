package main

import (
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc/iter"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

var imageExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".webp", ".bmp"}

type ImageInfo struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

type FileInfo struct {
	Name       string    `json:"name"`
	IsDir      bool      `json:"is_dir"`
	SizeBytes  int64     `json:"size_bytes"`
	ModifiedAt time.Time `json:"modified_at"`
	URL        string    `json:"url"`
	Image      ImageInfo `json:"image"`
}

type Directory struct {
	Name  string     `json:"name"`
	Files []FileInfo `json:"files"`
}

func isImage(path string) bool {
	return slices.Contains(imageExtensions, strings.ToLower(filepath.Ext(path)))
}

// walkImages lists the images under rootPath with their original sizes. The
// output directory written by the executor is skipped.
func walkImages(ctx context.Context, rootPath string) (Directory, error) {
	var files []FileInfo

	if err := filepath.WalkDir(rootPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != rootPath && d.Name() == "output" {
				return filepath.SkipDir
			}
			return nil
		}
		if !isImage(path) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return fmt.Errorf("failed to get file info: %w", err)
		}
		relPath, err := filepath.Rel(rootPath, path)
		if err != nil {
			return fmt.Errorf("failed to get relative path: %w", err)
		}

		files = append(files, FileInfo{
			Name:       filepath.ToSlash(relPath),
			SizeBytes:  info.Size(),
			ModifiedAt: info.ModTime(),
		})
		return nil
	}); err != nil {
		return Directory{}, err
	}

	iter.ForEach(files, func(f *FileInfo) {
		w, h, err := imageDimensions(filepath.Join(rootPath, filepath.FromSlash(f.Name)))
		if err != nil {
			log.Ctx(ctx).Error().Err(err).Str("filename", f.Name).Msg("cannot read image dimensions")
			return
		}
		f.Image = ImageInfo{Width: w, Height: h}
	})

	return Directory{
		Name:  filepath.Base(rootPath),
		Files: files,
	}, nil
}

// imageDimensions reads only the image header.
func imageDimensions(filePath string) (width, height int, err error) {
	file, err := os.Open(filePath)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	cfg, format, err := image.DecodeConfig(file)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to decode %s header: %w", filepath.Base(filePath), err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return 0, 0, fmt.Errorf("%s image %s has no size", format, filepath.Base(filePath))
	}
	return cfg.Width, cfg.Height, nil
}
