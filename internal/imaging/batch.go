package imaging

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

var supportedExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true,
	".bmp": true, ".tif": true, ".tiff": true, ".webp": true,
}

// Supported reports whether filename has an image extension we can decode.
func Supported(filename string) bool {
	return supportedExtensions[strings.ToLower(filepath.Ext(filename))]
}

// Report describes one file processed by OptimizeDir.
type Report struct {
	Source   string
	Output   string
	BytesIn  int64
	BytesOut int64
	Err      error
}

// Saved returns the size reduction in percent. Negative means the file grew.
func (r Report) Saved() float64 {
	if r.BytesIn == 0 {
		return 0
	}
	return float64(r.BytesIn-r.BytesOut) / float64(r.BytesIn) * 100
}

// OptimizeDir optimises every image directly inside in and writes the JPEG
// results to out under the same stem. out may equal in. Per-file failures are
// reported, not returned.
func OptimizeDir(in, out string, opts Options) ([]Report, error) {
	if out == "" {
		out = in
	}
	entries, err := os.ReadDir(in)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(out, 0o755); err != nil {
		return nil, err
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !Supported(e.Name()) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	reports := make([]Report, 0, len(names))
	for _, name := range names {
		reports = append(reports, optimizeOne(in, out, name, opts))
	}
	return reports, nil
}

func optimizeOne(in, out, name string, opts Options) Report {
	src := filepath.Join(in, name)
	dst := filepath.Join(out, strings.TrimSuffix(name, filepath.Ext(name))+".jpg")
	rep := Report{Source: src, Output: dst}

	info, err := os.Stat(src)
	if err != nil {
		rep.Err = err
		return rep
	}
	rep.BytesIn = info.Size()

	f, err := os.Open(src)
	if err != nil {
		rep.Err = err
		return rep
	}
	data, err := Optimize(f, opts)
	f.Close()
	if err != nil {
		rep.Err = fmt.Errorf("%s: %w", name, err)
		return rep
	}

	if err := writeFileAtomic(dst, data); err != nil {
		rep.Err = err
		return rep
	}
	rep.BytesOut = int64(len(data))
	return rep
}
