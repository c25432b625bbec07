// Package imaging normalises uploaded dish photos: alpha and palette images
// are flattened onto white, wide images are scaled down, and everything is
// re-encoded as JPEG.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"io"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"

	// decoders for the formats the admin page accepts
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

const (
	DefaultMaxWidth = 800
	DefaultQuality  = 85
)

type Options struct {
	MaxWidth int
	Quality  int
}

func DefaultOptions() Options {
	return Options{MaxWidth: DefaultMaxWidth, Quality: DefaultQuality}
}

func (o Options) withDefaults() Options {
	if o.MaxWidth <= 0 {
		o.MaxWidth = DefaultMaxWidth
	}
	if o.Quality <= 0 || o.Quality > 100 {
		o.Quality = DefaultQuality
	}
	return o
}

// ErrUnsupported wraps decode failures so callers can tell a bad upload from
// an I/O problem.
type ErrUnsupported struct {
	Err error
}

func (e *ErrUnsupported) Error() string { return "unsupported image: " + e.Err.Error() }
func (e *ErrUnsupported) Unwrap() error { return e.Err }

// Optimize decodes r and returns the optimised JPEG bytes.
func Optimize(r io.Reader, opts Options) ([]byte, error) {
	opts = opts.withDefaults()

	src, _, err := image.Decode(r)
	if err != nil {
		return nil, &ErrUnsupported{Err: err}
	}

	img := Flatten(src)
	img = fitWidth(img, opts.MaxWidth)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(opts.Quality)); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// Flatten composites src onto an opaque white canvas and returns an RGB
// (fully opaque NRGBA) image. Opaque sources come out unchanged in colour.
func Flatten(src image.Image) *image.NRGBA {
	b := src.Bounds()
	bg := imaging.New(b.Dx(), b.Dy(), color.White)
	return imaging.Overlay(bg, src, image.Pt(0, 0), 1.0)
}

// fitWidth scales img down to maxWidth keeping the aspect ratio. The height
// is derived from the width ratio and truncated, never below one pixel.
func fitWidth(img *image.NRGBA, maxWidth int) *image.NRGBA {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	if w <= maxWidth {
		return img
	}
	height := int(float64(h) * float64(maxWidth) / float64(w))
	if height < 1 {
		height = 1
	}
	return imaging.Resize(img, maxWidth, height, imaging.Lanczos)
}

// OptimizeFile rewrites the image at path in place.
func OptimizeFile(path string, opts Options) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	out, err := Optimize(f, opts)
	f.Close()
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return writeFileAtomic(path, out)
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".optimize-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}
