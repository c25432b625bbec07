package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// transparentRGBA is w×h, fully transparent except a red square in the
// top-left quarter.
func transparentRGBA(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h/2; y++ {
		for x := 0; x < w/2; x++ {
			img.Set(x, y, color.RGBA{R: 255, A: 255})
		}
	}
	return img
}

func TestOptimize_RGBAWideImage(t *testing.T) {
	src := pngBytes(t, transparentRGBA(1601, 901))

	out, err := Optimize(bytes.NewReader(src), DefaultOptions())
	require.NoError(t, err)

	cfg, format, err := image.DecodeConfig(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, 800, cfg.Width)
	// 901 * 800 / 1601 = 450.2 -> truncated
	assert.Equal(t, 450, cfg.Height)

	img, err := jpeg.Decode(bytes.NewReader(out))
	require.NoError(t, err)

	// transparent corner is flattened onto white
	r, g, b, a := img.At(790, 440).RGBA()
	assert.Equal(t, uint32(0xffff), a)
	assert.Greater(t, r>>8, uint32(240))
	assert.Greater(t, g>>8, uint32(240))
	assert.Greater(t, b>>8, uint32(240))

	// the red square stays red
	r, g, _, _ = img.At(100, 100).RGBA()
	assert.Greater(t, r>>8, uint32(200))
	assert.Less(t, g>>8, uint32(60))
}

func TestOptimize_NarrowImageKeepsSize(t *testing.T) {
	src := pngBytes(t, transparentRGBA(320, 200))

	out, err := Optimize(bytes.NewReader(src), DefaultOptions())
	require.NoError(t, err)

	cfg, err := jpeg.DecodeConfig(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 320, cfg.Width)
	assert.Equal(t, 200, cfg.Height)
}

func TestOptimize_PaletteImage(t *testing.T) {
	pal := color.Palette{color.Transparent, color.RGBA{B: 255, A: 255}}
	img := image.NewPaletted(image.Rect(0, 0, 40, 40), pal)
	for x := 0; x < 20; x++ {
		img.SetColorIndex(x, 5, 1)
	}

	out, err := Optimize(bytes.NewReader(pngBytes(t, img)), Options{MaxWidth: 10, Quality: 90})
	require.NoError(t, err)

	cfg, err := jpeg.DecodeConfig(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.Width)
	assert.Equal(t, 10, cfg.Height)
}

func TestOptimize_ExtremeAspectKeepsOnePixel(t *testing.T) {
	src := pngBytes(t, image.NewRGBA(image.Rect(0, 0, 4000, 2)))

	out, err := Optimize(bytes.NewReader(src), DefaultOptions())
	require.NoError(t, err)

	cfg, err := jpeg.DecodeConfig(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 800, cfg.Width)
	assert.Equal(t, 1, cfg.Height)
}

func TestOptimize_RejectsGarbage(t *testing.T) {
	_, err := Optimize(bytes.NewReader([]byte("definitely not an image")), DefaultOptions())
	require.Error(t, err)

	var unsupported *ErrUnsupported
	assert.ErrorAs(t, err, &unsupported)
}

func TestOptimizeFile_InPlace(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dish.jpg")
	require.NoError(t, os.WriteFile(path, pngBytes(t, transparentRGBA(1000, 500)), 0o644))

	require.NoError(t, OptimizeFile(path, DefaultOptions()))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	cfg, format, err := image.DecodeConfig(f)
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, 800, cfg.Width)
	assert.Equal(t, 400, cfg.Height)
}

func TestOptimizeDir(t *testing.T) {
	in := t.TempDir()
	out := filepath.Join(t.TempDir(), "optimized")

	require.NoError(t, os.WriteFile(filepath.Join(in, "a.png"), pngBytes(t, transparentRGBA(900, 300)), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(in, "b.PNG"), []byte("broken"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(in, "notes.txt"), []byte("skip me"), 0o644))

	reports, err := OptimizeDir(in, out, DefaultOptions())
	require.NoError(t, err)
	require.Len(t, reports, 2)

	assert.NoError(t, reports[0].Err)
	assert.Equal(t, filepath.Join(out, "a.jpg"), reports[0].Output)
	assert.FileExists(t, reports[0].Output)
	assert.Positive(t, reports[0].BytesOut)

	assert.Error(t, reports[1].Err)
	assert.NoFileExists(t, filepath.Join(out, "b.jpg"))
}
