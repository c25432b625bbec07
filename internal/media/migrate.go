package media

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/chenyk320/menu/internal/imaging"
	"github.com/chenyk320/menu/internal/menu"
	"github.com/chenyk320/menu/internal/storage"
)

var ErrRemoteDisabled = errors.New("cdn storage is not configured")

// Migrator runs the batch image jobs. Each dish is committed on its own so an
// interrupted run keeps the dishes it already processed.
type Migrator struct {
	repo   menu.Repository
	local  *storage.LocalStore
	remote storage.ImageStore

	keepLocal bool
	opts      imaging.Options
}

func NewMigrator(repo menu.Repository, local *storage.LocalStore, remote storage.ImageStore, keepLocal bool, opts imaging.Options) *Migrator {
	return &Migrator{repo: repo, local: local, remote: remote, keepLocal: keepLocal, opts: opts}
}

// Status counts dishes by which image references they carry.
type Status struct {
	RemoteEnabled bool     `json:"cdn_enabled"`
	Total         int      `json:"total"`
	WithLocal     int      `json:"with_local"`
	WithCDN       int      `json:"with_cdn"`
	Both          int      `json:"both"`
	CDNOnly       int      `json:"cdn_only"`
	LocalOnly     int      `json:"local_only"`
	NoImage       int      `json:"no_image"`
	MissingFiles  []string `json:"missing_files"`
}

// Result summarises a migrate or cleanup run.
type Result struct {
	Candidates int      `json:"candidates"`
	Succeeded  int      `json:"succeeded"`
	Failed     int      `json:"failed"`
	Failures   []string `json:"failures,omitempty"`
}

func (r *Result) fail(d *menu.Dish, format string, args ...any) {
	r.Failed++
	msg := fmt.Sprintf("%s: %s", d.DishNumber, fmt.Sprintf(format, args...))
	r.Failures = append(r.Failures, msg)
	log.Printf("image job: %s", msg)
}

func (m *Migrator) Status(ctx context.Context) (*Status, error) {
	dishes, err := m.repo.ListDishes(ctx)
	if err != nil {
		return nil, err
	}

	st := &Status{RemoteEnabled: m.remote != nil, Total: len(dishes), MissingFiles: []string{}}
	for _, d := range dishes {
		local, cdn := d.Image != "", d.ImageCDNURL != ""
		switch {
		case local && cdn:
			st.Both++
		case cdn:
			st.CDNOnly++
		case local:
			st.LocalOnly++
			if !m.local.Exists(storage.KeyFromRef(d.Image)) {
				st.MissingFiles = append(st.MissingFiles, d.Image)
			}
		default:
			st.NoImage++
		}
		if local {
			st.WithLocal++
		}
		if cdn {
			st.WithCDN++
		}
	}
	return st, nil
}

// MigrateToCDN uploads every local-only image under its existing key and
// records the CDN URL. Without LOCAL_BACKUP the local copy is dropped after
// the URL is saved.
func (m *Migrator) MigrateToCDN(ctx context.Context) (*Result, error) {
	if m.remote == nil {
		return nil, ErrRemoteDisabled
	}
	dishes, err := m.repo.ListDishes(ctx)
	if err != nil {
		return nil, err
	}

	res := &Result{}
	for idx := range dishes {
		d := &dishes[idx]
		if d.Image == "" || d.ImageCDNURL != "" {
			continue
		}
		res.Candidates++

		if err := ctx.Err(); err != nil {
			return res, err
		}

		key := storage.KeyFromRef(d.Image)
		if !m.local.Exists(key) {
			res.fail(d, "local file %s is missing", d.Image)
			continue
		}
		path := m.local.Path(key)
		if err := imaging.OptimizeFile(path, m.opts); err != nil {
			res.fail(d, "optimize: %v", err)
			continue
		}

		cdnURL, err := uploadFile(ctx, m.remote, key, path)
		if err != nil {
			res.fail(d, "upload: %v", err)
			continue
		}

		ref := menu.ImageRef{Local: d.Image, CDN: cdnURL}
		if !m.swap(ctx, res, d, d.ImageRef(), ref) {
			// the uploaded copy belongs to an image the dish no longer uses
			if err := m.remote.Delete(ctx, key); err != nil {
				log.Printf("image job: %s: drop stale cdn copy: %v", d.DishNumber, err)
			}
			continue
		}
		res.Succeeded++

		if m.keepLocal {
			continue
		}
		swapped, err := m.repo.SwapDishImage(ctx, d.ID, ref, menu.ImageRef{CDN: cdnURL})
		if err != nil {
			log.Printf("image job: %s: clear local ref: %v", d.DishNumber, err)
			continue
		}
		if !swapped {
			log.Printf("image job: %s: image changed, local copy kept", d.DishNumber)
			continue
		}
		if err := m.local.Delete(ctx, key); err != nil {
			log.Printf("image job: %s: drop local copy: %v", d.DishNumber, err)
		}
	}
	return res, nil
}

// swap records next on d only while the dish still carries old, so an image
// edited during the run is never overwritten with the snapshot value.
func (m *Migrator) swap(ctx context.Context, res *Result, d *menu.Dish, old, next menu.ImageRef) bool {
	swapped, err := m.repo.SwapDishImage(ctx, d.ID, old, next)
	switch {
	case err != nil:
		res.fail(d, "save image refs: %v", err)
		return false
	case !swapped:
		res.fail(d, "image changed during the run, skipped")
		return false
	}
	return true
}

// CleanupLocal clears the local reference of every image that already has a
// CDN URL, then deletes the local file.
func (m *Migrator) CleanupLocal(ctx context.Context) (*Result, error) {
	dishes, err := m.repo.ListDishes(ctx)
	if err != nil {
		return nil, err
	}

	res := &Result{}
	for idx := range dishes {
		d := &dishes[idx]
		if d.Image == "" || d.ImageCDNURL == "" {
			continue
		}
		res.Candidates++

		if !m.swap(ctx, res, d, d.ImageRef(), menu.ImageRef{CDN: d.ImageCDNURL}) {
			continue
		}
		if err := m.local.Delete(ctx, storage.KeyFromRef(d.Image)); err != nil {
			log.Printf("image job: %s: delete local file: %v", d.DishNumber, err)
		}
		res.Succeeded++
	}
	return res, nil
}
