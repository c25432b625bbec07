// Package storage holds the two image backends: the local upload directory
// and an S3-compatible bucket fronted by a CDN.
package storage

import (
	"context"
	"io"
	"net/url"
	"path"
	"strings"

	"github.com/chenyk320/menu/internal/imaging"

	"github.com/google/uuid"
)

// ImageStore persists optimised images under a key and resolves the
// reference recorded on a dish.
type ImageStore interface {
	// Store writes r under key and returns the reference to record.
	Store(ctx context.Context, key string, r io.Reader) (string, error)

	// Delete removes key. A missing object is not an error.
	Delete(ctx context.Context, key string) error

	// URL is the reference Store would return for key.
	URL(key string) string
}

// UniqueName builds the storage key of an upload:
// <random token>_<sanitised stem>.jpg
func UniqueName(original string) string {
	name := imaging.SanitizeFilename(original)
	stem := strings.TrimSuffix(name, path.Ext(name))
	if stem == "" {
		stem = "image"
	}
	return uuid.NewString() + "_" + stem + ".jpg"
}

// KeyFromRef recovers the storage key from a recorded reference, either a
// local path like /uploads/<key> or a CDN URL like https://cdn/<key>.
func KeyFromRef(ref string) string {
	if ref == "" {
		return ""
	}
	if u, err := url.Parse(ref); err == nil && u.Scheme != "" {
		ref = u.Path
	}
	ref = strings.TrimRight(strings.ReplaceAll(ref, "\\", "/"), "/")
	key := path.Base(ref)
	if key == "." || key == "/" {
		return ""
	}
	return key
}
