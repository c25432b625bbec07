// Package app wires the menu services from a Config. The API server and the
// menuctl CLI share it.
package app

import (
	"context"
	"fmt"
	"log"

	"github.com/chenyk320/menu/internal/config"
	"github.com/chenyk320/menu/internal/db"
	"github.com/chenyk320/menu/internal/imaging"
	"github.com/chenyk320/menu/internal/media"
	"github.com/chenyk320/menu/internal/menu"
	"github.com/chenyk320/menu/internal/storage"
)

type App struct {
	Config   *config.Config
	Store    *db.Store
	Local    *storage.LocalStore
	Remote   storage.ImageStore
	Ingestor *media.Ingestor
	Migrator *media.Migrator
	Menu     *menu.Service
}

// New opens the database and the image stores. The caller closes the App.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	store, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	local, err := storage.NewLocalStore(cfg.UploadFolder)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("upload folder: %w", err)
	}

	var remote storage.ImageStore
	if cfg.RemoteStorageEnabled() {
		r2, err := storage.NewR2Store(ctx, storage.R2Config{
			Endpoint:      cfg.R2Endpoint,
			AccessKey:     cfg.R2AccessKey,
			SecretKey:     cfg.R2SecretKey,
			Bucket:        cfg.R2BucketName,
			PublicBaseURL: cfg.CDNDomain,
		})
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("R2 init failed: %w", err)
		}
		remote = r2
		log.Printf("✅ CDN storage enabled (bucket %s)", cfg.R2BucketName)
	} else {
		log.Println("ℹ️  CDN storage not configured, images stay local")
	}

	opts := imaging.Options{MaxWidth: cfg.ImageMaxWidth, Quality: cfg.ImageQuality}
	ingestor := media.NewIngestor(local, remote, cfg.LocalBackup, opts)

	return &App{
		Config:   cfg,
		Store:    store,
		Local:    local,
		Remote:   remote,
		Ingestor: ingestor,
		Migrator: media.NewMigrator(store.Repo, local, remote, cfg.LocalBackup, opts),
		Menu:     menu.NewService(store.Repo, ingestor),
	}, nil
}

func (a *App) Close() error {
	return a.Store.Close()
}
