// Package media moves dish images between the upload directory and the
// remote CDN bucket.
package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/chenyk320/menu/internal/imaging"
	"github.com/chenyk320/menu/internal/menu"
	"github.com/chenyk320/menu/internal/storage"
)

// MaxUploadBytes caps a single image upload.
const MaxUploadBytes = 16 << 20

// Ingestor implements menu.ImageIngestor on top of a local store and an
// optional remote one.
type Ingestor struct {
	local  *storage.LocalStore
	remote storage.ImageStore

	keepLocal bool
	opts      imaging.Options
}

// NewIngestor builds the pipeline. remote may be nil when no CDN is
// configured; keepLocal retains the local copy after a successful upload.
func NewIngestor(local *storage.LocalStore, remote storage.ImageStore, keepLocal bool, opts imaging.Options) *Ingestor {
	return &Ingestor{local: local, remote: remote, keepLocal: keepLocal, opts: opts}
}

var _ menu.ImageIngestor = (*Ingestor)(nil)

// Ingest removes the previous image, stages the upload under a fresh unique
// key, optimises it in place, then pushes it to the remote store when one is
// configured. A remote failure leaves the dish with its local copy. Files
// without an image extension are refused before anything is deleted.
func (i *Ingestor) Ingest(ctx context.Context, r io.Reader, filename string, previous menu.ImageRef) (menu.ImageRef, error) {
	if !imaging.Supported(filename) {
		return menu.ImageRef{}, &menu.ValidationError{Message: "unsupported image format"}
	}

	removed := !previous.IsZero()
	if removed {
		i.Remove(ctx, previous)
	}
	fail := func(err error) (menu.ImageRef, error) {
		if removed {
			return menu.ImageRef{}, fmt.Errorf("%w: %w", menu.ErrImageDiscarded, err)
		}
		return menu.ImageRef{}, err
	}

	key := storage.UniqueName(filename)
	localRef, err := i.local.Store(ctx, key, io.LimitReader(r, MaxUploadBytes+1))
	if err != nil {
		return fail(fmt.Errorf("stage upload: %w", err))
	}
	path := i.local.Path(key)

	if info, err := os.Stat(path); err == nil && info.Size() > MaxUploadBytes {
		i.local.Delete(ctx, key)
		return fail(&menu.ValidationError{Message: "image is larger than 16 MB"})
	}

	if err := imaging.OptimizeFile(path, i.opts); err != nil {
		i.local.Delete(ctx, key)
		var unsupported *imaging.ErrUnsupported
		if errors.As(err, &unsupported) {
			return fail(&menu.ValidationError{Message: "unsupported image format"})
		}
		return fail(fmt.Errorf("optimize upload: %w", err))
	}

	ref := menu.ImageRef{Local: localRef}
	if i.remote == nil {
		return ref, nil
	}

	cdnURL, err := uploadFile(ctx, i.remote, key, path)
	if err != nil {
		log.Printf("cdn upload of %s failed, keeping local copy: %v", key, err)
		return ref, nil
	}
	ref.CDN = cdnURL

	if !i.keepLocal {
		if err := i.local.Delete(ctx, key); err != nil {
			log.Printf("drop local copy %s: %v", key, err)
			return ref, nil
		}
		ref.Local = ""
	}
	return ref, nil
}

// uploadFile sends the file in memory; S3 request signing needs a seekable body.
func uploadFile(ctx context.Context, store storage.ImageStore, key, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return store.Store(ctx, key, bytes.NewReader(data))
}

// Remove deletes both copies of ref. Failures are logged, never returned.
func (i *Ingestor) Remove(ctx context.Context, ref menu.ImageRef) {
	if key := storage.KeyFromRef(ref.Local); key != "" {
		if err := i.local.Delete(ctx, key); err != nil {
			log.Printf("remove local image %s: %v", key, err)
		}
	}
	if key := storage.KeyFromRef(ref.CDN); key != "" && i.remote != nil {
		if err := i.remote.Delete(ctx, key); err != nil {
			log.Printf("remove cdn image %s: %v", key, err)
		}
	}
}

// RemoteEnabled reports whether a CDN backend is configured.
func (i *Ingestor) RemoteEnabled() bool { return i.remote != nil }
